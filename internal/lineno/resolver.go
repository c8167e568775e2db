package lineno

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/dgallion1/refmap/internal/pagegeom"
	"github.com/dgallion1/refmap/internal/synctex"
)

// Resolver maps a source location to a PDF page and printed line number.
// The margin band is detected lazily on the first resolution attempt and
// cached for the resolver's lifetime; resolution is strictly sequential, so
// no locking is needed.
type Resolver struct {
	doc     pagegeom.Document
	pdfPath string
	texMain string
	runner  *synctex.Runner
	log     *slog.Logger

	band      *MarginBand
	bandErr   error
	bandTried bool

	stats Stats
}

// Stats counts resolution outcomes for one run.
type Stats struct {
	Attempts   int // occurrences submitted
	Pages      int // occurrences with a resolved page
	Lines      int // occurrences with a resolved printed line number
	ToolErrors int // failed synctex invocations
}

// NewResolver creates a resolver over the given page-geometry document. doc
// may be nil when the PDF could not be opened for inspection; pages are then
// still resolved through synctex, but printed line numbers stay absent.
func NewResolver(doc pagegeom.Document, pdfPath, texMain string, runner *synctex.Runner, log *slog.Logger) *Resolver {
	return &Resolver{
		doc:     doc,
		pdfPath: pdfPath,
		texMain: texMain,
		runner:  runner,
		log:     log,
	}
}

// Resolve maps file:line:column to (page, printed line number). Either
// result may be nil: a failed synctex call yields (nil, nil), a missing band
// or no close-enough margin number yields a page without a line. Failures
// degrade the occurrence, never the run.
func (r *Resolver) Resolve(ctx context.Context, file string, line, column int) (page, printed *int) {
	r.stats.Attempts++

	res, err := r.runner.View(ctx, file, line, column, r.pdfPath)
	if err != nil {
		r.stats.ToolErrors++
		r.log.Debug("coordinate lookup failed", "file", file, "line", line, "error", err)
		return nil, nil
	}
	p := res.Page
	r.stats.Pages++

	band, bandErr := r.ensureBand(res.Page)
	if bandErr != nil {
		return &p, nil
	}

	n, ok, err := Nearest(r.doc, res.Page, res.Y, *band, AnchorBottom)
	if err != nil {
		r.log.Debug("margin lookup failed", "page", res.Page, "error", err)
		return &p, nil
	}
	if !ok {
		return &p, nil
	}
	r.stats.Lines++
	return &p, &n
}

// ensureBand computes the margin band at most once per resolver lifetime.
// A detection failure is remembered so later occurrences skip detection;
// call ResetBand to force a re-detect.
func (r *Resolver) ensureBand(pageHint int) (*MarginBand, error) {
	if r.bandTried {
		return r.band, r.bandErr
	}
	r.bandTried = true

	if r.doc == nil {
		r.bandErr = ErrBandNotFound
		return nil, r.bandErr
	}

	band, err := DetectBand(r.doc, r.preferredSide(), pageHint)
	if err != nil {
		r.bandErr = err
		r.log.Warn("line-number band detection failed; printed line numbers unavailable", "error", err)
		return nil, err
	}
	r.band = &band
	r.log.Debug("detected line-number band",
		"side", band.Side, "x_min", band.XMin, "x_max", band.XMax, "y_tol", band.YTol)
	return r.band, nil
}

// ResetBand discards the cached band so the next resolution re-detects it.
func (r *Resolver) ResetBand() {
	r.band = nil
	r.bandErr = nil
	r.bandTried = false
}

// RunStats returns the resolution counters accumulated so far.
func (r *Resolver) RunStats() Stats {
	return r.stats
}

var linenoOptsRe = regexp.MustCompile(`(?i)\\usepackage\[(.*?)\]\s*\{\s*lineno\s*\}`)

// preferredSide reads the main file's preamble for a lineno package side
// option. Returns "", "left" or "right".
func (r *Resolver) preferredSide() string {
	if r.texMain == "" {
		return ""
	}
	b, err := os.ReadFile(r.texMain)
	if err != nil {
		return ""
	}
	m := linenoOptsRe.FindStringSubmatch(string(b))
	if m == nil {
		return ""
	}
	opts := m[1]
	switch {
	case strings.Contains(opts, "right"):
		return "right"
	case strings.Contains(opts, "left"):
		return "left"
	}
	return ""
}
