package texscan

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
)

// Numbers walks the project rooted at rootTex a second time and assigns each
// citation key a positive sequence number in first-appearance order, the way
// the compiled document would number them. Keys inside one \cite{a,b,c}
// cluster are numbered left to right; a key seen again later keeps its
// original number. Numbers are 1..N with no gaps.
//
// This is intentionally a separate traversal from Scan rather than a
// projection of its output: includes are followed in raw text, but numbering
// runs on the filtered text, so a commented-out citation never consumes a
// number.
func Numbers(rootTex string, log *slog.Logger) (map[string]int, error) {
	abs, err := filepath.Abs(rootTex)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	n := &numberer{
		numbers: make(map[string]int),
		visited: make(map[string]bool),
		log:     log,
	}
	if err := n.file(filepath.Clean(abs), true); err != nil {
		return nil, err
	}
	return n.numbers, nil
}

type numberer struct {
	numbers map[string]int
	visited map[string]bool
	counter int
	log     *slog.Logger
}

func (n *numberer) file(path string, isRoot bool) error {
	if n.visited[path] {
		return nil
	}
	n.visited[path] = true

	raw, err := readFileLenient(path)
	if err != nil {
		if isRoot {
			return fmt.Errorf("read root file: %w", err)
		}
		n.log.Debug("skipping unreadable include", "file", path, "error", err)
		return nil
	}

	for _, m := range includeRe.FindAllStringSubmatch(raw, -1) {
		arg := strings.TrimSpace(m[1])
		if arg == "" {
			continue
		}
		inc := resolveInclude(path, arg)
		if fileExists(inc) {
			if err := n.file(inc, false); err != nil {
				return err
			}
		}
	}

	cleaned := filterSource(raw)
	for _, m := range citeRe.FindAllStringSubmatch(cleaned, -1) {
		splitKeys(m[1], func(_ int, item string) {
			key := strings.TrimSpace(item)
			if key == "" {
				return
			}
			if _, seen := n.numbers[key]; !seen {
				n.counter++
				n.numbers[key] = n.counter
			}
		})
	}
	return nil
}

var (
	envBlockRes = buildEnvBlockRes()
	iffBlockRe  = regexp.MustCompile(`(?is)\\iffalse\b.*?\\fi\b`)
)

func buildEnvBlockRes() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(skipEnvs))
	for _, env := range skipEnvs {
		res = append(res, regexp.MustCompile(
			`(?is)\\begin\{`+regexp.QuoteMeta(env)+`\}.*?\\end\{`+regexp.QuoteMeta(env)+`\}`))
	}
	return res
}

// filterSource removes verbatim-like blocks, \iffalse regions and line
// comments, in that order.
func filterSource(text string) string {
	for _, re := range envBlockRes {
		text = re.ReplaceAllString(text, "")
	}
	for {
		next := iffBlockRe.ReplaceAllString(text, "")
		if next == text {
			break
		}
		text = next
	}
	return stripLineComments(text)
}
