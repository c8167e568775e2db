package pagegeom

import (
	"fmt"
	"os"

	pdflib "github.com/ledongthuc/pdf"
)

// pdfDocument implements Document over a PDF file on disk.
type pdfDocument struct {
	f      *os.File
	reader *pdflib.Reader
	width  float64
	height float64
}

// Open opens a PDF for geometry inspection. The caller owns the returned
// Document and must Close it.
func Open(path string) (Document, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if reader.NumPage() < 1 {
		f.Close()
		return nil, fmt.Errorf("open pdf: no pages")
	}
	w, h, ok := mediaBoxSize(reader.Page(1))
	if !ok {
		f.Close()
		return nil, fmt.Errorf("open pdf: no MediaBox on first page")
	}
	return &pdfDocument{f: f, reader: reader, width: w, height: h}, nil
}

func (d *pdfDocument) NumPages() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) PageWidth() float64 {
	return d.width
}

func (d *pdfDocument) PageTokens(page int) ([]Token, error) {
	if page < 1 || page > d.reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range (pdf has %d pages)", page, d.reader.NumPage())
	}
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d has no content", page)
	}

	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, fmt.Errorf("read page %d text: %w", page, err)
	}

	height := d.height
	if _, h, ok := mediaBoxSize(p); ok {
		height = h
	}

	var tokens []Token
	for _, row := range rows {
		glyphs := make([]glyph, 0, len(row.Content))
		for _, t := range row.Content {
			glyphs = append(glyphs, glyph{x: t.X, y: t.Y, w: t.W, size: t.FontSize, s: t.S})
		}
		tokens = append(tokens, mergeGlyphs(glyphs, height)...)
	}
	return tokens, nil
}

func (d *pdfDocument) Close() error {
	return d.f.Close()
}

// mediaBoxSize reads the page's MediaBox, walking up the page tree for
// inherited values.
func mediaBoxSize(p pdflib.Page) (w, h float64, ok bool) {
	v := p.V
	for !v.IsNull() {
		if mb := v.Key("MediaBox"); !mb.IsNull() && mb.Len() == 4 {
			x0 := mb.Index(0).Float64()
			y0 := mb.Index(1).Float64()
			x1 := mb.Index(2).Float64()
			y1 := mb.Index(3).Float64()
			return x1 - x0, y1 - y0, true
		}
		v = v.Key("Parent")
	}
	return 0, 0, false
}
