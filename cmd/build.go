package cmd

import (
	"fmt"
	"time"

	"github.com/olynch/presentations/internal/build"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Render the deck once",
	Long: `Render every slide of the source document into the output directory.

Static assets are mirrored to out/static, an index page is written to
out/index.html, and pages left over from a longer version of the deck are
removed. No refresh script is written; use serve for live preview.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	result, err := build.NewBuilder(cfg, build.Options{}, logger).Build(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Built %d slides into %s in %s\n", result.Slides, cfg.Out, result.Duration.Round(time.Millisecond))
	return nil
}
