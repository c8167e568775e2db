package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev" // set via ldflags
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the build information shown by the version command.
// Called by the main package with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the refmap CLI.
func Execute() error {
	var verbose bool
	var log *slog.Logger

	root := &cobra.Command{
		Use:          "refmap",
		Short:        "refmap maps citations in LaTeX sources to their rendered locations",
		Long:         `refmap scans a multi-file LaTeX document for citations, joins them with their BibTeX records, and locates each citation in the rendered PDF down to the printed line number.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = newLogger(os.Stderr, verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	logger := func() *slog.Logger { return log }
	root.AddCommand(newCollectCmd(logger))
	root.AddCommand(newServeCmd(logger))
	root.AddCommand(newVersionCmd())

	return root.ExecuteContext(context.Background())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("refmap %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		},
	}
}
