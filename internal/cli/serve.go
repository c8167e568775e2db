package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/refmap/internal/api"
	"github.com/dgallion1/refmap/internal/collect"
	"github.com/dgallion1/refmap/internal/config"
)

func newServeCmd(logger func() *slog.Logger) *cobra.Command {
	var (
		texPath string
		bibPath string
		addr    string
		noPDF   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Collect citations and serve the dashboard over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()
			cfg := config.Load()
			if addr == "" {
				addr = ":" + cfg.Port
			}

			res, err := collect.Run(cmd.Context(), collect.Options{
				TexPath:        texPath,
				BibPath:        bibPath,
				DisablePDF:     noPDF,
				SynctexBin:     cfg.SynctexBin,
				SynctexTimeout: cfg.SynctexTimeout,
				Progress:       newProgress,
			}, log)
			if err != nil {
				return err
			}

			srv := api.NewServer(res, log, cfg)
			httpServer := &http.Server{
				Addr:         addr,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			// Graceful shutdown.
			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				<-sigCh
				log.Info("shutting down...")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			log.Info("serving dashboard", "addr", addr, "cards", len(res.Cards))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&texPath, "tex", "", "root .tex file of the document")
	cmd.Flags().StringVar(&bibPath, "bib", "", "BibTeX bibliography file")
	cmd.Flags().StringVar(&addr, "addr", "", `listen address (default ":$PORT" or ":8090")`)
	cmd.Flags().BoolVar(&noPDF, "no-pdf", false, "skip PDF coordinate resolution")
	cmd.MarkFlagRequired("tex")
	cmd.MarkFlagRequired("bib")

	return cmd
}
