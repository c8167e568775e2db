// Package lineno recovers printed margin line numbers from a rendered PDF.
//
// Documents built with the lineno package print a line number next to every
// text line. This package finds the vertical column those digits occupy (the
// margin band) by clustering short numeric tokens along x and scoring each
// cluster for vertical regularity, then maps a page y-coordinate to the
// nearest number in that band.
package lineno

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/dgallion1/refmap/internal/pagegeom"
)

// ErrBandNotFound reports that no plausible line-number column was detected.
// It is a whole-document condition: callers should treat printed line
// numbers as unavailable for the run rather than retry per occurrence.
var ErrBandNotFound = errors.New("no margin line-number band found")

// MarginBand describes where printed line numbers live on the page. It is
// computed once per document and reused for every lookup.
type MarginBand struct {
	Side      string // "left" or "right"
	XMin      float64
	XMax      float64
	XCut      float64
	YTol      float64
	PageWidth float64
}

// Anchor selects which edge of a candidate token is compared against the
// target y-coordinate.
type Anchor string

const (
	AnchorTop    Anchor = "top"
	AnchorCenter Anchor = "center"
	AnchorBottom Anchor = "bottom"
)

const (
	// bandScanPages bounds the window of leading pages inspected.
	bandScanPages = 5
	// clusterEps is the x-center chaining distance for clustering.
	clusterEps = 12.0
	// yGapMin/yGapMax is the plausible line-height window for gap scoring.
	yGapMin = 6.0
	yGapMax = 24.0
	// bandPad widens the band's horizontal extent during lookups.
	bandPad = 2.0
	// yTolFloor is the minimum vertical tolerance.
	yTolFloor = 6.0
)

// numericRe matches short numeric tokens that plausibly are line numbers.
var numericRe = regexp.MustCompile(`^\d{1,5}$`)

// DetectBand scans a bounded window of leading pages (plus pageHint, if
// given) for the margin band. preferSide, when "left" or "right", applies a
// fixed score penalty to clusters on the other side.
func DetectBand(doc pagegeom.Document, preferSide string, pageHint int) (MarginBand, error) {
	width := doc.PageWidth()
	numPages := doc.NumPages()

	pages := make([]int, 0, bandScanPages+1)
	last := bandScanPages
	if numPages < last {
		last = numPages
	}
	for p := 1; p <= last; p++ {
		pages = append(pages, p)
	}
	if pageHint >= 1 && pageHint <= numPages && pageHint > last {
		pages = append([]int{pageHint}, pages...)
	}

	var (
		found     bool
		bestScore float64
		bestCl    []pagegeom.Token
		bestSide  string
		heights   []float64
	)

	for _, p := range pages {
		tokens, err := doc.PageTokens(p)
		if err != nil {
			continue
		}
		var spans []pagegeom.Token
		for _, t := range tokens {
			if !numericRe.MatchString(t.Text) {
				continue
			}
			spans = append(spans, t)
			heights = append(heights, t.Y1-t.Y0)
		}
		if len(spans) == 0 {
			continue
		}
		for _, cl := range clusterByX(spans, clusterEps) {
			score := scoreCluster(cl)
			side := clusterSide(cl, width)
			if preferSide != "" && preferSide != side {
				score -= 0.3
			}
			if !found || score > bestScore {
				found = true
				bestScore = score
				bestCl = cl
				bestSide = side
			}
		}
	}

	if !found {
		return MarginBand{}, ErrBandNotFound
	}

	xMin := math.Inf(1)
	xMax := math.Inf(-1)
	for _, t := range bestCl {
		xMin = math.Min(xMin, t.X0)
		xMax = math.Max(xMax, t.X1)
	}
	xCut := math.Min(width, xMax+bandPad)
	if bestSide == "right" {
		xCut = math.Max(0, xMin-bandPad)
	}

	yTol := 8.0
	if len(heights) > 0 {
		sort.Float64s(heights)
		med := heights[len(heights)/2]
		yTol = math.Max(yTolFloor, 0.9*med)
	}

	return MarginBand{
		Side:      bestSide,
		XMin:      xMin,
		XMax:      xMax,
		XCut:      xCut,
		YTol:      yTol,
		PageWidth: width,
	}, nil
}

// clusterByX chains tokens into clusters by horizontal center: the tokens
// are sorted by center and a token joins the current cluster when its center
// is within eps of the previous token's center.
func clusterByX(tokens []pagegeom.Token, eps float64) [][]pagegeom.Token {
	sorted := make([]pagegeom.Token, len(tokens))
	copy(sorted, tokens)
	sort.Slice(sorted, func(i, j int) bool {
		return xCenter(sorted[i]) < xCenter(sorted[j])
	})

	var clusters [][]pagegeom.Token
	var cur []pagegeom.Token
	lastXC := math.NaN()
	for _, t := range sorted {
		xc := xCenter(t)
		if math.IsNaN(lastXC) || math.Abs(xc-lastXC) <= eps {
			cur = append(cur, t)
		} else {
			clusters = append(clusters, cur)
			cur = []pagegeom.Token{t}
		}
		lastXC = xc
	}
	if len(cur) > 0 {
		clusters = append(clusters, cur)
	}
	return clusters
}

// scoreCluster rates a cluster by vertical monotonicity: gaps between
// consecutive y-centers inside the plausible line-height window count as
// good steps, density adds a small bonus, and gap-size variance (capped)
// subtracts a penalty.
func scoreCluster(cl []pagegeom.Token) float64 {
	if len(cl) <= 1 {
		return 0
	}
	ycs := make([]float64, len(cl))
	for i, t := range cl {
		ycs[i] = 0.5 * (t.Y0 + t.Y1)
	}
	sort.Float64s(ycs)

	good := 0
	var gaps []float64
	for i := 1; i < len(ycs); i++ {
		dy := ycs[i] - ycs[i-1]
		if dy > 0 {
			gaps = append(gaps, dy)
			if dy >= yGapMin && dy <= yGapMax {
				good++
			}
		}
	}

	varPenalty := 0.0
	if len(gaps) > 0 {
		mean := 0.0
		for _, g := range gaps {
			mean += g
		}
		mean /= float64(len(gaps))
		variance := 0.0
		for _, g := range gaps {
			variance += (g - mean) * (g - mean)
		}
		variance /= float64(len(gaps))
		varPenalty = math.Min(variance, 25.0)
	}

	return float64(good) + 0.1*float64(len(cl)) - 0.02*varPenalty
}

func clusterSide(cl []pagegeom.Token, pageWidth float64) string {
	sum := 0.0
	for _, t := range cl {
		sum += xCenter(t)
	}
	if sum/float64(len(cl)) < 0.5*pageWidth {
		return "left"
	}
	return "right"
}

func xCenter(t pagegeom.Token) float64 {
	return 0.5 * (t.X0 + t.X1)
}

// Nearest finds the printed line number closest to targetY inside the band
// on the given page. Candidates are numeric tokens within the band's
// horizontal extent on the band's side, ranked by absolute vertical distance
// from the chosen anchor. The nearest candidate is accepted only within the
// band's tolerance; for the bottom anchor the tolerance is widened slightly
// to compensate for the text-baseline offset.
func Nearest(doc pagegeom.Document, page int, targetY float64, band MarginBand, align Anchor) (int, bool, error) {
	if page < 1 || page > doc.NumPages() {
		return 0, false, fmt.Errorf("page %d out of range (document has %d pages)", page, doc.NumPages())
	}
	tokens, err := doc.PageTokens(page)
	if err != nil {
		return 0, false, err
	}

	xMin := band.XMin - bandPad
	xMax := band.XMax + bandPad
	half := 0.5 * band.PageWidth

	bestDist := math.Inf(1)
	bestText := ""
	for _, t := range tokens {
		if !numericRe.MatchString(t.Text) {
			continue
		}
		if t.X1 < xMin || t.X0 > xMax {
			continue
		}
		xc := xCenter(t)
		if band.Side == "right" && xc < half {
			continue
		}
		if band.Side == "left" && xc > half {
			continue
		}
		var anchor float64
		switch align {
		case AnchorTop:
			anchor = t.Y0
		case AnchorCenter:
			anchor = 0.5 * (t.Y0 + t.Y1)
		default:
			anchor = t.Y1
		}
		if d := math.Abs(anchor - targetY); d < bestDist {
			bestDist = d
			bestText = t.Text
		}
	}

	if bestText == "" {
		return 0, false, nil
	}
	tol := band.YTol
	if align == AnchorBottom || align == "" {
		tol = math.Max(tol, 0.9*tol+1.5)
	}
	if bestDist > tol {
		return 0, false, nil
	}
	n := 0
	for _, c := range bestText {
		n = n*10 + int(c-'0')
	}
	return n, true, nil
}
