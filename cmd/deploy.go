package cmd

import (
	"fmt"

	"github.com/olynch/presentations/internal/build"
	"github.com/olynch/presentations/internal/deploy"
	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Build the deck and publish it",
	Long: `Build the deck, then copy the output directory to the "deploy" destination.

Destinations starting with s3:// are mirrored to the bucket with the AWS SDK
(see the [s3] table in config.toml). Anything else is passed to rsync:

  rsync -rutv out/ <deploy>`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	d, err := deploy.New(ctx, cfg.Deploy, cfg.S3, logger)
	if err != nil {
		return err
	}

	result, err := build.NewBuilder(cfg, build.Options{}, logger).Build(ctx)
	if err != nil {
		return err
	}

	if err := d.Deploy(ctx, cfg.Out); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deployed %d slides to %s\n", result.Slides, cfg.Deploy)
	return nil
}
