package texscan

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Scan recursively scans the project rooted at rootTex and returns a mapping
// from citation key to its occurrences, in traversal order. Inclusion targets
// that do not exist are skipped; files already visited (by cleaned absolute
// path) are never re-scanned.
func Scan(rootTex string, log *slog.Logger) (map[string][]Occurrence, error) {
	abs, err := filepath.Abs(rootTex)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	s := &scanner{
		occurrences: make(map[string][]Occurrence),
		visited:     make(map[string]bool),
		log:         log,
	}
	if err := s.file(filepath.Clean(abs), true); err != nil {
		return nil, err
	}
	return s.occurrences, nil
}

type scanner struct {
	occurrences map[string][]Occurrence
	visited     map[string]bool
	log         *slog.Logger
}

func (s *scanner) file(path string, isRoot bool) error {
	if s.visited[path] {
		return nil
	}
	s.visited[path] = true

	raw, err := readFileLenient(path)
	if err != nil {
		if isRoot {
			return fmt.Errorf("read root file: %w", err)
		}
		s.log.Debug("skipping unreadable include", "file", path, "error", err)
		return nil
	}

	// Follow includes in raw order first, mirroring compilation traversal.
	// Discovery runs on unfiltered text on purpose: a commented-out
	// inclusion is still followed.
	for _, m := range includeRe.FindAllStringSubmatch(raw, -1) {
		arg := strings.TrimSpace(m[1])
		if arg == "" {
			continue
		}
		inc := resolveInclude(path, arg)
		if fileExists(inc) {
			if err := s.file(inc, false); err != nil {
				return err
			}
		}
	}

	s.lines(path, raw)
	return nil
}

// lines runs the per-line block state machine and occurrence extraction.
// Three mutually exclusive states: normal, inside a verbatim-like block,
// inside an \iffalse conditional. A block-end marker only closes the block
// when its name matches the open block's name; a mismatched \end leaves the
// block open.
func (s *scanner) lines(path, raw string) {
	inBlock := false
	blockName := ""
	inFalse := false

	for idx, line := range strings.Split(raw, "\n") {
		if !inFalse && iffalseRe.MatchString(line) {
			inFalse = true
		}
		if inFalse {
			if fiRe.MatchString(line) {
				inFalse = false
			}
			continue
		}

		if !inBlock {
			if m := beginEnvRe.FindStringSubmatch(line); m != nil {
				inBlock = true
				blockName = strings.ToLower(m[1])
				continue
			}
		} else {
			if m := endEnvRe.FindStringSubmatch(line); m != nil {
				if strings.ToLower(m[1]) == blockName {
					inBlock = false
					blockName = ""
				}
			}
			continue
		}

		segment := cutComment(line)
		if !strings.Contains(segment, `\`) {
			continue
		}
		s.segment(path, idx+1, segment)
	}
}

// segment extracts citation keys from one comment-trimmed line. Each key's
// column is the offset of its first non-space character within the original
// line, surviving the key-list split.
func (s *scanner) segment(path string, lineNo int, segment string) {
	for _, m := range citeRe.FindAllStringSubmatchIndex(segment, -1) {
		groupStart, groupEnd := m[2], m[3]
		keys := segment[groupStart:groupEnd]
		splitKeys(keys, func(offset int, item string) {
			key := strings.TrimSpace(item)
			if key == "" {
				return
			}
			lead := len(item) - len(strings.TrimLeft(item, " \t"))
			col := utf8.RuneCountInString(segment[:groupStart+offset+lead]) + 1
			s.occurrences[key] = append(s.occurrences[key], Occurrence{
				File:    path,
				Line:    lineNo,
				Column:  col,
				Snippet: makeSnippet(segment),
			})
		})
	}
}

func makeSnippet(segment string) string {
	snippet := strings.TrimSpace(segment)
	runes := []rune(snippet)
	if len(runes) > snippetMax {
		return string(runes[:snippetMax]) + "…"
	}
	return snippet
}
