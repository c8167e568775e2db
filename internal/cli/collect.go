package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dgallion1/refmap/internal/collect"
	"github.com/dgallion1/refmap/internal/config"
	"github.com/dgallion1/refmap/internal/report"
)

func newCollectCmd(logger func() *slog.Logger) *cobra.Command {
	var (
		texPath    string
		bibPath    string
		outPath    string
		format     string
		noPDF      bool
		synctexBin string
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect citations and write a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()
			cfg := config.Load()
			if synctexBin == "" {
				synctexBin = cfg.SynctexBin
			}
			if format != "html" && format != "json" && format != "md" {
				return fmt.Errorf("unknown format %q (want html, json or md)", format)
			}

			res, err := collect.Run(cmd.Context(), collect.Options{
				TexPath:        texPath,
				BibPath:        bibPath,
				DisablePDF:     noPDF,
				SynctexBin:     synctexBin,
				SynctexTimeout: cfg.SynctexTimeout,
				Progress:       newProgress,
			}, log)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = "references." + format
			}
			out := os.Stdout
			if outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "html":
				err = report.RenderHTML(out, res.Title, res.Cards, res.DefaultView)
			case "json":
				var payload []byte
				payload, err = report.CardsJSON(res.Cards)
				if err == nil {
					_, err = out.Write(append(payload, '\n'))
				}
			case "md":
				err = report.RenderMarkdown(out, res.Title, res.Cards)
			}
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			if outPath != "-" {
				log.Info("wrote report", "path", outPath, "cards", len(res.Cards))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&texPath, "tex", "", "root .tex file of the document")
	cmd.Flags().StringVar(&bibPath, "bib", "", "BibTeX bibliography file")
	cmd.Flags().StringVar(&outPath, "out", "", `output path (default "references.<format>", "-" for stdout)`)
	cmd.Flags().StringVar(&format, "format", "html", "output format: html, json or md")
	cmd.Flags().BoolVar(&noPDF, "no-pdf", false, "skip PDF coordinate resolution")
	cmd.Flags().StringVar(&synctexBin, "synctex", "", "synctex binary (default $SYNCTEX_BIN or \"synctex\")")
	cmd.MarkFlagRequired("tex")
	cmd.MarkFlagRequired("bib")

	return cmd
}

// newProgress builds the per-occurrence progress callback used while
// resolving rendered locations.
func newProgress(total int) func() {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Resolving occurrences"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
	return func() {
		bar.Add(1)
	}
}
