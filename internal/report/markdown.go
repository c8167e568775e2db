package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/refmap/internal/collect"
)

// RenderMarkdown writes a numbered reference list in display order. The
// output is plain CommonMark so it pastes cleanly into notes and readmes.
func RenderMarkdown(w io.Writer, title string, cards []collect.Card) error {
	var b strings.Builder
	b.WriteString("# " + title + "\n\n")

	for _, c := range cards {
		b.WriteString(fmt.Sprintf("%d. **%s**", c.SequenceNumber, orPlaceholder(c.Title, "(no title)")))
		if len(c.Authors) > 0 {
			b.WriteString(" — " + strings.Join(c.Authors, ", "))
		}
		if c.Year != nil {
			b.WriteString(fmt.Sprintf(" (%d)", *c.Year))
		}
		b.WriteString("\n")
		b.WriteString("   - key: `" + c.Key + "`\n")
		if c.DOI != nil {
			b.WriteString("   - doi: [" + *c.DOI + "](https://doi.org/" + *c.DOI + ")\n")
		}
		if c.URL != nil {
			b.WriteString("   - url: <" + *c.URL + ">\n")
		}
		for _, o := range c.Occurrences {
			b.WriteString("   - " + occurrenceLabel(o) + "\n")
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func occurrenceLabel(o collect.Occurrence) string {
	if o.PDFPage != nil {
		if o.PDFLineno != nil {
			return fmt.Sprintf("page %d, line %d", *o.PDFPage, *o.PDFLineno)
		}
		return fmt.Sprintf("page %d", *o.PDFPage)
	}
	return fmt.Sprintf("%s:%d", o.File, o.Line)
}

func orPlaceholder(s, alt string) string {
	if s == "" {
		return alt
	}
	return s
}
