// Package pagegeom exposes read-only page geometry for a rendered PDF:
// page count, page width, and per-page word tokens as rectangles.
//
// Coordinates use a top-left origin in PDF points, matching the output of
// synctex view, so callers can compare y positions directly.
package pagegeom

import "strings"

// Token is one word box on a page.
type Token struct {
	X0, Y0, X1, Y1 float64
	Text           string
}

// Document is a read-only page-geometry source.
type Document interface {
	NumPages() int
	PageWidth() float64
	PageTokens(page int) ([]Token, error) // page is 1-based
	Close() error
}

// glyph is a positioned text run before word merging. x/y are PDF user-space
// coordinates (bottom-left origin, y at the text baseline).
type glyph struct {
	x, y, w, size float64
	s             string
}

// mergeGlyphs merges consecutive baseline-aligned glyph runs into word
// tokens and flips them into top-left origin coordinates. Runs are expected
// in left-to-right order. A horizontal gap wider than a fraction of the font
// size, or a whitespace run, starts a new word.
func mergeGlyphs(glyphs []glyph, pageHeight float64) []Token {
	var tokens []Token
	var cur *Token
	var curEnd, curSize float64

	flush := func() {
		if cur != nil && cur.Text != "" {
			tokens = append(tokens, *cur)
		}
		cur = nil
	}

	for _, g := range glyphs {
		if isBlank(g.s) {
			flush()
			continue
		}
		gap := maxFloat(1.0, 0.3*g.size)
		if cur == nil || g.x-curEnd > gap {
			flush()
			y1 := pageHeight - g.y
			cur = &Token{X0: g.x, Y0: y1 - g.size, X1: g.x + g.w, Y1: y1}
			curSize = g.size
		} else {
			cur.X1 = g.x + g.w
			if g.size > curSize {
				curSize = g.size
				cur.Y0 = cur.Y1 - g.size
			}
		}
		cur.Text += g.s
		curEnd = g.x + g.w
	}
	flush()
	return tokens
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
