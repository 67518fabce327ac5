package cmd

import (
	"fmt"

	"github.com/olynch/presentations/internal/broadcast"
	"github.com/olynch/presentations/internal/build"
	"github.com/olynch/presentations/internal/config"
	"github.com/olynch/presentations/internal/logging"
	"github.com/olynch/presentations/internal/server"
	"github.com/olynch/presentations/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	servePort int
	serveOpen bool
)

// newWatcher is replaced in tests.
var newWatcher = watcher.NewFileWatcher

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the preview server with live reload",
	Long: `Build the deck, then watch the source, the template and the static tree and
rebuild on every change. Browsers viewing a slide reload after each
successful rebuild. A failed rebuild is logged and the previous pages stay
in place.

The server listens on 127.0.0.1 only.

Examples:
  deck serve                 # http://127.0.0.1:3000/1.html
  deck serve --port 4000
  deck serve --open          # also open the first slide in a browser`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", server.DefaultPort, "Port to serve on")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "Open the first slide in a browser")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	builder := build.NewBuilder(cfg, build.Options{Dev: true}, logger)
	if _, err := builder.Build(ctx); err != nil {
		return err
	}

	hub := broadcast.NewHub(broadcast.DefaultCapacity)
	defer hub.Close()

	fw, err := newWatcher(watcher.DefaultDebounce, logger)
	if err != nil {
		// Without a watcher the deck is still served; it just never rebuilds.
		logger.Error(ctx, err, "file watching disabled")
	} else {
		defer fw.Stop()

		fw.AddFilter(watcher.NoEditorTempFilter)
		fw.AddFilter(watcher.NoGitFilter)
		watchSources(cmd, fw, cfg, logger)
		fw.AddHandler(watcher.NewRebuildLoop(builder, hub, logger).Handle)
		if err := fw.Start(ctx); err != nil {
			logger.Error(ctx, err, "file watching disabled")
		}
	}

	srv := server.New(server.Options{
		Port:   servePort,
		OutDir: cfg.Out,
		Open:   serveOpen,
		Stats:  builder.Metrics(),
	}, hub, logger)
	if _, err := srv.Listen(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at %s\n", cfg.Src, srv.URL())
	return srv.Serve(ctx)
}

// watchSources registers every input of the build. A path that cannot be
// watched is logged; the remaining watches still work.
func watchSources(cmd *cobra.Command, fw *watcher.FileWatcher, cfg *config.Config, logger logging.Logger) {
	ctx := cmd.Context()
	for _, path := range []string{cfg.Src, cfg.Template} {
		if err := fw.AddFile(path); err != nil {
			logger.Warn(ctx, err, "not watching file", "path", path)
		}
	}
	if err := fw.AddRecursive(cfg.Static); err != nil {
		logger.Warn(ctx, err, "not watching static directory", "path", cfg.Static)
	}
}
