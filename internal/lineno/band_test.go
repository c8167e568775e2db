package lineno

import (
	"fmt"
	"testing"

	"github.com/dgallion1/refmap/internal/pagegeom"
)

// fakeDoc is an in-memory page-geometry document for tests.
type fakeDoc struct {
	width      float64
	pages      map[int][]pagegeom.Token
	errs       map[int]error
	tokenCalls int
}

func (d *fakeDoc) NumPages() int      { return len(d.pages) }
func (d *fakeDoc) PageWidth() float64 { return d.width }
func (d *fakeDoc) Close() error       { return nil }

func (d *fakeDoc) PageTokens(page int) ([]pagegeom.Token, error) {
	d.tokenCalls++
	if err := d.errs[page]; err != nil {
		return nil, err
	}
	return d.pages[page], nil
}

// numberedPage builds a page with a left-margin number column (x around
// marginX) plus some body text tokens that must not be mistaken for it.
func numberedPage(marginX float64, startLine, count int) []pagegeom.Token {
	var tokens []pagegeom.Token
	y := 100.0
	for i := 0; i < count; i++ {
		n := startLine + i
		tokens = append(tokens, pagegeom.Token{
			X0: marginX, Y0: y - 8, X1: marginX + 12, Y1: y,
			Text: fmt.Sprintf("%d", n),
		})
		tokens = append(tokens, pagegeom.Token{
			X0: 100, Y0: y - 8, X1: 400, Y1: y,
			Text: "body",
		})
		y += 12
	}
	// A stray year in the body text: numeric, but not part of a regular
	// vertical column.
	tokens = append(tokens, pagegeom.Token{X0: 250, Y0: 300, X1: 275, Y1: 310, Text: "2021"})
	return tokens
}

func newFakeDoc(pages ...[]pagegeom.Token) *fakeDoc {
	d := &fakeDoc{width: 500, pages: make(map[int][]pagegeom.Token), errs: make(map[int]error)}
	for i, p := range pages {
		d.pages[i+1] = p
	}
	return d
}

func TestDetectBand_FindsLeftColumn(t *testing.T) {
	doc := newFakeDoc(numberedPage(30, 1, 20))

	band, err := DetectBand(doc, "", 0)
	if err != nil {
		t.Fatalf("DetectBand: %v", err)
	}
	if band.Side != "left" {
		t.Errorf("expected left side, got %q", band.Side)
	}
	if band.XMin > 30 || band.XMax < 42 {
		t.Errorf("band does not cover the number column: [%f, %f]", band.XMin, band.XMax)
	}
	if band.YTol < yTolFloor {
		t.Errorf("tolerance below floor: %f", band.YTol)
	}
}

func TestDetectBand_FindsRightColumn(t *testing.T) {
	doc := newFakeDoc(numberedPage(460, 1, 20))

	band, err := DetectBand(doc, "", 0)
	if err != nil {
		t.Fatalf("DetectBand: %v", err)
	}
	if band.Side != "right" {
		t.Errorf("expected right side, got %q", band.Side)
	}
}

func TestDetectBand_NoNumbersFails(t *testing.T) {
	doc := newFakeDoc([]pagegeom.Token{
		{X0: 100, Y0: 90, X1: 300, Y1: 100, Text: "prose"},
		{X0: 100, Y0: 110, X1: 300, Y1: 120, Text: "only"},
	})

	if _, err := DetectBand(doc, "", 0); err != ErrBandNotFound {
		t.Fatalf("expected ErrBandNotFound, got %v", err)
	}
}

func TestDetectBand_PreferredSideBreaksTie(t *testing.T) {
	// Identical columns on both sides; the preferred side must win.
	page := append(numberedPage(30, 1, 20), numberedPage(460, 1, 20)...)
	doc := newFakeDoc(page)

	band, err := DetectBand(doc, "right", 0)
	if err != nil {
		t.Fatalf("DetectBand: %v", err)
	}
	if band.Side != "right" {
		t.Errorf("expected preferred right side to win, got %q", band.Side)
	}
}

func TestDetectBand_PageHintExtendsWindow(t *testing.T) {
	empty := []pagegeom.Token{{X0: 100, Y0: 90, X1: 300, Y1: 100, Text: "prose"}}
	doc := newFakeDoc(empty, empty, empty, empty, empty, empty, empty)
	// Numbers only appear on page 7, outside the leading window.
	doc.pages[7] = numberedPage(30, 200, 20)

	if _, err := DetectBand(doc, "", 0); err != ErrBandNotFound {
		t.Fatalf("expected detection to miss without a hint, got %v", err)
	}
	band, err := DetectBand(doc, "", 7)
	if err != nil {
		t.Fatalf("DetectBand with hint: %v", err)
	}
	if band.Side != "left" {
		t.Errorf("expected left side, got %q", band.Side)
	}
}

func TestNearest_FindsClosestNumber(t *testing.T) {
	doc := newFakeDoc(numberedPage(30, 1, 20))
	band, err := DetectBand(doc, "", 0)
	if err != nil {
		t.Fatalf("DetectBand: %v", err)
	}

	// Line 5's token has Y1 = 100 + 4*12 = 148.
	n, ok, err := Nearest(doc, 1, 149.5, band, AnchorBottom)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if !ok {
		t.Fatalf("expected a match")
	}
	if n != 5 {
		t.Errorf("expected line 5, got %d", n)
	}
}

func TestNearest_TooFarIsAMiss(t *testing.T) {
	doc := newFakeDoc(numberedPage(30, 1, 3))
	band, err := DetectBand(doc, "", 0)
	if err != nil {
		t.Fatalf("DetectBand: %v", err)
	}

	n, ok, err := Nearest(doc, 1, 600, band, AnchorBottom)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if ok {
		t.Errorf("expected a miss far from the band, got line %d", n)
	}
}

func TestNearest_PageOutOfRange(t *testing.T) {
	doc := newFakeDoc(numberedPage(30, 1, 5))
	band, err := DetectBand(doc, "", 0)
	if err != nil {
		t.Fatalf("DetectBand: %v", err)
	}

	if _, _, err := Nearest(doc, 9, 100, band, AnchorBottom); err == nil {
		t.Fatalf("expected an error for an out-of-range page")
	}
}

func TestNearest_IgnoresBodyNumbersOutsideBand(t *testing.T) {
	doc := newFakeDoc(numberedPage(30, 1, 20))
	band, err := DetectBand(doc, "", 0)
	if err != nil {
		t.Fatalf("DetectBand: %v", err)
	}

	// Target sits exactly on the stray "2021" body token; the band filter
	// must keep it out of consideration.
	n, ok, err := Nearest(doc, 1, 310, band, AnchorBottom)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if ok && n == 2021 {
		t.Errorf("body-text number leaked into the band lookup")
	}
}
