// Package texscan walks a LaTeX project's inclusion graph and extracts
// citation usage from it.
//
// It runs two deliberately separate traversals over the same tree:
//
//   - Scan collects every citation occurrence with its source position.
//   - Numbers assigns each key the sequence number it would receive when the
//     document is compiled (first-appearance order).
//
// Both traversals follow inclusion directives found in the *raw* file text,
// so a commented-out \input is still followed, matching how latexmk-style
// tooling discovers project files. Citation extraction, in contrast, runs on
// filtered text: line comments, verbatim-like environments and
// \iffalse...\fi regions never contribute citations.
package texscan

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Occurrence is one concrete use of a citation key in the source tree.
type Occurrence struct {
	File    string // absolute file path
	Line    int    // 1-based source line
	Column  int    // 1-based column of the key's first non-space character
	Snippet string // trimmed source line, capped at snippetMax runes
}

const snippetMax = 240

// texSuffix is appended to inclusion targets that carry no extension.
const texSuffix = ".tex"

// citeRe matches the supported citation commands: optional trailing star,
// zero to two bracketed arguments, then the mandatory key-list argument.
var citeRe = regexp.MustCompile(`\\(?:` +
	`cite|citet|citep|Cite|Citet|Citep|` +
	`parencite|textcite|autocite|smartcite|` +
	`footcite|footcitetext|` +
	`citeauthor|Citeauthor` +
	`)\*?(?:\s*\[[^\]]*\]){0,2}\s*\{([^}]*)\}`)

// includeRe matches the three inclusion directive forms.
var includeRe = regexp.MustCompile(`(?i)\\(?:input|include|subfile)\s*\{([^}]+)\}`)

// skipEnvs are the verbatim-like environments whose content is never
// scanned for citations.
var skipEnvs = []string{"comment", "verbatim", "lstlisting", "minted"}

var (
	beginEnvRe = regexp.MustCompile(`(?i)\\begin\{(` + strings.Join(skipEnvs, "|") + `)\}`)
	endEnvRe   = regexp.MustCompile(`(?i)\\end\{(` + strings.Join(skipEnvs, "|") + `)\}`)
	iffalseRe  = regexp.MustCompile(`(?i)\\iffalse\b`)
	fiRe       = regexp.MustCompile(`(?i)\\fi\b`)
)

// resolveInclude resolves an inclusion argument relative to the including
// file's directory, appending the default .tex suffix when the target has
// no extension.
func resolveInclude(base, arg string) string {
	p := strings.TrimSpace(arg)
	if filepath.Ext(p) == "" {
		p += texSuffix
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(filepath.Dir(base), p)
	}
	return filepath.Clean(p)
}

// readFileLenient reads a file as text, replacing invalid byte sequences
// instead of failing on them.
func readFileLenient(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), "�"), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// cutComment returns line up to the first % not preceded by a backslash.
func cutComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == '%' && (i == 0 || line[i-1] != '\\') {
			return line[:i]
		}
	}
	return line
}

// stripLineComments applies cutComment to every line of text.
func stripLineComments(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = cutComment(line)
	}
	return strings.Join(lines, "\n")
}

// splitKeys iterates the comma-separated items of a citation key list,
// reporting each item's byte offset within the list and its text. Offsets
// point at the item start, before leading whitespace is trimmed.
func splitKeys(keys string, fn func(offset int, item string)) {
	pos := 0
	for pos <= len(keys) {
		end := strings.IndexByte(keys[pos:], ',')
		if end < 0 {
			fn(pos, keys[pos:])
			return
		}
		fn(pos, keys[pos:pos+end])
		pos += end + 1
	}
}
