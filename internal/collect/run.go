package collect

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/refmap/internal/bibtex"
	"github.com/dgallion1/refmap/internal/lineno"
	"github.com/dgallion1/refmap/internal/pagegeom"
	"github.com/dgallion1/refmap/internal/synctex"
	"github.com/dgallion1/refmap/internal/texscan"
)

// Options configures one collection run.
type Options struct {
	TexPath string // root document source
	BibPath string // bibliography source

	// DisablePDF skips coordinate resolution even when a rendered PDF
	// exists next to the root file.
	DisablePDF bool

	SynctexBin     string
	SynctexTimeout time.Duration

	// Progress, when non-nil, is called with the total occurrence count
	// and returns a callback invoked once per processed occurrence.
	Progress func(total int) func()
}

// Result is the output of one collection run.
type Result struct {
	Title       string
	Cards       []Card
	DefaultView string // "pdf" when a resolver ran, else "tex"
	Stats       lineno.Stats
}

// Run executes the full pipeline: parse the bibliography, scan the source
// tree for occurrences, number citations in compile order, resolve PDF
// locations when a rendered document is available, and aggregate everything
// into sorted cards. Only missing inputs abort the run; everything else
// degrades individual output fields.
func Run(ctx context.Context, opts Options, log *slog.Logger) (*Result, error) {
	texPath, err := filepath.Abs(opts.TexPath)
	if err != nil {
		return nil, fmt.Errorf("resolve tex path: %w", err)
	}
	bibPath, err := filepath.Abs(opts.BibPath)
	if err != nil {
		return nil, fmt.Errorf("resolve bib path: %w", err)
	}
	if _, err := os.Stat(texPath); err != nil {
		return nil, fmt.Errorf("tex file not found: %s", texPath)
	}
	if _, err := os.Stat(bibPath); err != nil {
		return nil, fmt.Errorf("bib file not found: %s", bibPath)
	}

	// Phase 1: parse the bibliography.
	bibRaw, err := os.ReadFile(bibPath)
	if err != nil {
		return nil, fmt.Errorf("read bib file: %w", err)
	}
	records := bibtex.Parse(strings.ToValidUTF8(string(bibRaw), "�"))
	log.Info("parsed bibliography", "records", len(records))

	// Phase 2: scan the source tree for citation occurrences.
	occurrences, err := texscan.Scan(texPath, log)
	if err != nil {
		return nil, fmt.Errorf("scan source tree: %w", err)
	}
	total := 0
	for _, occs := range occurrences {
		total += len(occs)
	}
	log.Info("scanned source tree", "keys", len(occurrences), "occurrences", total)

	// Phase 3: number citations in compile order. This is a second,
	// independent traversal on purpose; see the texscan package docs.
	numbers, err := texscan.Numbers(texPath, log)
	if err != nil {
		return nil, fmt.Errorf("number citations: %w", err)
	}
	log.Info("numbered citations", "keys", len(numbers))

	// Phase 4: set up the coordinate resolver when a rendered PDF exists.
	var loc Locator
	var resolver *lineno.Resolver
	defaultView := "tex"
	pdfPath := strings.TrimSuffix(texPath, filepath.Ext(texPath)) + ".pdf"
	if !opts.DisablePDF {
		if _, err := os.Stat(pdfPath); err == nil {
			doc, err := pagegeom.Open(pdfPath)
			if err != nil {
				// Pages can still come from synctex alone.
				log.Warn("pdf not inspectable; printed line numbers unavailable", "pdf", pdfPath, "error", err)
			} else {
				defer doc.Close()
			}
			runner := &synctex.Runner{Bin: opts.SynctexBin, Timeout: opts.SynctexTimeout}
			resolver = lineno.NewResolver(doc, pdfPath, texPath, runner, log)
			loc = resolver
			defaultView = "pdf"
		} else {
			log.Info("no rendered pdf next to root; skipping coordinate resolution", "pdf", pdfPath)
		}
	}

	// Phase 5: aggregate.
	var onOccurrence func()
	if opts.Progress != nil {
		onOccurrence = opts.Progress(total)
	}
	cards := BuildCards(ctx, records, occurrences, loc, numbers, onOccurrence, log)

	res := &Result{
		Title:       "References for " + filepath.Base(texPath),
		Cards:       cards,
		DefaultView: defaultView,
	}
	if resolver != nil {
		res.Stats = resolver.RunStats()
		log.Info("resolved occurrences",
			"attempts", res.Stats.Attempts,
			"pages", res.Stats.Pages,
			"printed_lines", res.Stats.Lines,
			"tool_errors", res.Stats.ToolErrors)
	}
	log.Info("built cards", "cards", len(cards))
	return res, nil
}
