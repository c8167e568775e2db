// Package synctex invokes the external synctex binary to map a source
// location (file, line, column) to a position on a rendered PDF page.
//
// Every failure mode here — missing binary, non-zero exit, unparsable
// output, timeout — is recoverable; callers degrade the affected occurrence
// instead of aborting the run.
package synctex

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultBin is the executable name used when none is configured.
const DefaultBin = "synctex"

// Result is a location in the rendered PDF: 1-based page index and x/y in
// page coordinate units (points, top-left origin).
type Result struct {
	Page int
	X    float64
	Y    float64
}

// Runner invokes synctex view. The zero value uses DefaultBin and no
// timeout.
type Runner struct {
	Bin     string
	Timeout time.Duration
}

// View maps texFile:line:column in the given PDF to a page position. The
// invocation is bounded by the runner's timeout; a hung binary is killed and
// reported as an ordinary error.
func (r *Runner) View(ctx context.Context, texFile string, line, column int, pdfPath string) (Result, error) {
	bin := r.Bin
	if bin == "" {
		bin = DefaultBin
	}
	if _, err := exec.LookPath(bin); err != nil {
		return Result{}, fmt.Errorf("synctex not available: %w", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	locator := fmt.Sprintf("%d:%d:%s", line, column, texFile)
	cmd := exec.CommandContext(ctx, bin, "view", "-i", locator, "-o", pdfPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail != "" {
			return Result{}, fmt.Errorf("synctex view: %w: %s", err, detail)
		}
		return Result{}, fmt.Errorf("synctex view: %w", err)
	}

	return parseView(stdout.String())
}

// parseView extracts the first Page:/x:/y: triple from synctex view output.
func parseView(out string) (Result, error) {
	var (
		page       int
		x, y       float64
		gotPage    bool
		gotX, gotY bool
	)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case !gotPage && strings.HasPrefix(line, "Page:"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Page:")))
			if err == nil {
				page = n
				gotPage = true
			}
		case !gotX && strings.HasPrefix(line, "x:"):
			f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "x:")), 64)
			if err == nil {
				x = f
				gotX = true
			}
		case !gotY && strings.HasPrefix(line, "y:"):
			f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "y:")), 64)
			if err == nil {
				y = f
				gotY = true
			}
		}
		if gotPage && gotX && gotY {
			return Result{Page: page, X: x, Y: y}, nil
		}
	}
	return Result{}, fmt.Errorf("synctex view: missing page/x/y in output")
}
