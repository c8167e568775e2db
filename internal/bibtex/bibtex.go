// Package bibtex parses BibTeX sources into ordered records.
//
// The parser is deliberately tolerant: it accepts the common subset of
// BibTeX syntax and never fails. Malformed records are skipped, unterminated
// braces and quotes consume to end of input, and parsing always returns the
// best-effort record set it could recover.
package bibtex

import (
	"regexp"
	"strings"
)

// Record is one bibliography entry. Field values keep their raw LaTeX
// markup; field names are case-folded to lowercase. Records are immutable
// after parsing.
type Record struct {
	Type       string
	Key        string
	Fields     map[string]string
	OrderIndex int // 0-based position of first successful parse
}

// Field returns the value for a field name (case-insensitive), or "".
func (r *Record) Field(name string) string {
	return r.Fields[strings.ToLower(name)]
}

var (
	entryHeadRe = regexp.MustCompile(`^@([A-Za-z]+)\s*[({]`)
	fieldNameRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_\-]*)\s*=`)
)

// Parse extracts all records from a BibTeX source. Comments (an unescaped %
// to end of line) are stripped first. A record whose body has no comma
// separating the key from its fields is skipped.
func Parse(src string) []*Record {
	text := stripComments(src)
	var records []*Record
	orderIndex := 0

	i := 0
	for {
		at := strings.IndexByte(text[i:], '@')
		if at < 0 {
			break
		}
		at += i

		m := entryHeadRe.FindStringSubmatch(text[at:])
		if m == nil {
			i = at + 1
			continue
		}
		entryType := m[1]

		openPos := at + len(m[0]) - 1
		openChar := text[openPos]
		closeChar := byte('}')
		if openChar == '(' {
			closeChar = ')'
		}

		// Find the matching close delimiter by depth counting.
		depth := 0
		j := openPos
		for j < len(text) {
			switch text[j] {
			case openChar:
				depth++
			case closeChar:
				depth--
			}
			if depth == 0 && text[j] == closeChar {
				break
			}
			j++
		}
		if j >= len(text) {
			// Unterminated record body: skip past the @ and keep going.
			i = at + 1
			continue
		}

		body := strings.TrimSpace(text[openPos+1 : j])
		comma := strings.IndexByte(body, ',')
		if comma < 0 {
			// No key/fields separator: malformed, not fatal.
			i = j + 1
			continue
		}
		key := strings.TrimSpace(body[:comma])
		fieldsStr := strings.TrimSpace(body[comma+1:])

		records = append(records, &Record{
			Type:       entryType,
			Key:        key,
			Fields:     parseFields(fieldsStr),
			OrderIndex: orderIndex,
		})
		orderIndex++
		i = j + 1
	}

	return records
}

func parseFields(s string) map[string]string {
	fields := make(map[string]string)
	k := 0
	for k < len(s) {
		for k < len(s) && (isSpace(s[k]) || s[k] == ',') {
			k++
		}
		if k >= len(s) {
			break
		}
		m := fieldNameRe.FindStringSubmatch(s[k:])
		if m == nil {
			// Not a "name =" form: resync at the next comma.
			nxt := strings.IndexByte(s[k:], ',')
			if nxt < 0 {
				break
			}
			k += nxt + 1
			continue
		}
		name := strings.ToLower(m[1])
		k += len(m[0])
		val, next := readValue(s, k)
		fields[name] = strings.TrimSpace(val)
		k = next
	}
	return fields
}

// readValue reads a field value starting at i: braced, quoted, or bare.
func readValue(s string, i int) (string, int) {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i >= len(s) {
		return "", i
	}
	switch s[i] {
	case '{':
		return readBraced(s, i)
	case '"':
		return readQuoted(s, i)
	}
	j := i
	for j < len(s) && s[j] != ',' && s[j] != '}' {
		j++
	}
	return strings.TrimSpace(s[i:j]), j
}

// readBraced reads a {...} value with arbitrary nesting, tracked by a depth
// counter. Outer braces are stripped, inner braces preserved. An unterminated
// value consumes to end of input.
func readBraced(s string, i int) (string, int) {
	depth := 0
	j := i
	for j < len(s) {
		switch s[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[i+1 : j], j + 1
			}
		}
		j++
	}
	return s[i+1:], len(s)
}

// readQuoted reads a "..." value, honoring backslash-escaped quotes. An
// unterminated value consumes to end of input.
func readQuoted(s string, i int) (string, int) {
	j := i + 1
	var out strings.Builder
	for j < len(s) {
		c := s[j]
		if c == '"' && s[j-1] != '\\' {
			return out.String(), j + 1
		}
		out.WriteByte(c)
		j++
	}
	return out.String(), j
}

// stripComments removes everything after an unescaped % on each line.
func stripComments(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = cutComment(line)
	}
	return strings.Join(lines, "\n")
}

func cutComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == '%' && (i == 0 || line[i-1] != '\\') {
			return line[:i]
		}
	}
	return line
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
