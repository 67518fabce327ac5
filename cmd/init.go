package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/olynch/presentations/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init [dir]",
	Aliases: []string{"i"},
	Short:   "Create a new deck project",
	Long: `Create config.toml, a sample slides.md, a slide template and a static
directory. If no directory is given, the current directory is used.
Existing files are left alone unless --force is set.

Examples:
  deck init            # scaffold in the current directory
  deck init talk       # scaffold in ./talk
  deck init --force    # overwrite existing scaffold files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}

type scaffoldFile struct {
	name    string
	content string
}

func scaffold() ([]scaffoldFile, error) {
	cfg := &config.Config{
		Src:      "slides.md",
		Out:      "out",
		Template: "template.html",
		Static:   "static",
	}
	encoded, err := cfg.Encode("toml")
	if err != nil {
		return nil, err
	}

	return []scaffoldFile{
		{config.DefaultPath, string(encoded)},
		{cfg.Src, sampleSlides},
		{cfg.Template, sampleTemplate},
		{filepath.Join(cfg.Static, "deck.css"), sampleCSS},
		{filepath.Join(cfg.Static, "deck.js"), sampleJS},
	}, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	projectDir := "."
	if len(args) == 1 {
		projectDir = args[0]
	}

	files, err := scaffold()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range files {
		path := filepath.Join(projectDir, f.name)
		if _, err := os.Stat(path); err == nil && !initForce {
			fmt.Fprintf(out, "  skip   %s (exists)\n", path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(out, "  create %s\n", path)
	}

	fmt.Fprintln(out, "\nNext steps:")
	if projectDir != "." {
		fmt.Fprintln(out, "  cd "+projectDir)
	}
	fmt.Fprintln(out, "  deck serve")
	return nil
}

const sampleSlides = `# A Deck {.title}

Written in one file, one slide per top-level heading.

# Lists

- Items render with the usual markup
- **Bold**, *emphasis* and ` + "`code`" + `

# Attributes {#last .center}

Classes on a heading become the slide's classes.
`

const sampleTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ number }} / {{ total }}</title>
  <link rel="stylesheet" href="static/deck.css">
  <script src="static/deck.js" data-number="{{ number }}" data-total="{{ total }}" defer></script>
  <script src="refresh.js" defer></script>
</head>
<body>
  <main class="slide {{ classes }}">
{{ body }}
  </main>
  <footer>{{ number }} / {{ total }}</footer>
</body>
</html>
`

const sampleCSS = `body {
  margin: 0;
  font-family: system-ui, sans-serif;
  font-size: 2rem;
}

.slide {
  box-sizing: border-box;
  min-height: 100vh;
  padding: 4rem 6rem;
}

.title,
.center {
  display: flex;
  flex-direction: column;
  justify-content: center;
  text-align: center;
}

footer {
  position: fixed;
  right: 1rem;
  bottom: 1rem;
  font-size: 1rem;
  opacity: 0.5;
}
`

const sampleJS = `(function () {
  var script = document.currentScript;
  var number = parseInt(script.dataset.number, 10);
  var total = parseInt(script.dataset.total, 10);

  document.addEventListener("keydown", function (e) {
    if ((e.key === "ArrowRight" || e.key === " ") && number < total) {
      window.location.href = (number + 1) + ".html";
    } else if (e.key === "ArrowLeft" && number > 1) {
      window.location.href = (number - 1) + ".html";
    }
  });
})();
`
