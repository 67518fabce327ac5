// Package render turns segmented slides into HTML pages.
//
// Each slide is rendered to an HTML fragment by the markup layer and then
// poured into a user supplied pongo2 template (Django/Jinja syntax) with the
// variables body, number, total and classes. The template file is read from
// disk on every call, so edits to it take effect on the next build.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/flosch/pongo2/v6"
	"github.com/olynch/presentations/internal/errors"
	"github.com/olynch/presentations/internal/logging"
	"github.com/olynch/presentations/internal/markup"
	"github.com/olynch/presentations/internal/slides"
)

// FragmentRenderer renders content events to HTML.
type FragmentRenderer interface {
	RenderFragment(w io.Writer, events []markup.Event) error
}

// Page describes one written slide page.
type Page struct {
	Number int
	Path   string
	// Title is the text of the first heading in the slide, if any.
	Title string
}

// PageName returns the file name of slide n.
func PageName(n int) string {
	return strconv.Itoa(n) + ".html"
}

// PageRenderer renders slides through a template file.
type PageRenderer struct {
	templatePath string
	logger       logging.Logger
}

// NewPageRenderer creates a renderer for the template at templatePath.
func NewPageRenderer(templatePath string, logger logging.Logger) *PageRenderer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &PageRenderer{
		templatePath: templatePath,
		logger:       logger.WithComponent("render"),
	}
}

// load compiles the template. A fresh template set is used each time so
// nothing is cached between builds; includes resolve relative to the
// template's directory.
func (r *PageRenderer) load() (*pongo2.Template, error) {
	if _, err := os.Stat(r.templatePath); err != nil {
		return nil, errors.NewBuildError(errors.ErrCodeTemplateLoad, "reading template",
			errors.NewIOError(errors.ErrCodeReadFailed, "stat failed", err).WithPath(r.templatePath)).
			WithPath(r.templatePath)
	}

	loader, err := pongo2.NewLocalFileSystemLoader(filepath.Dir(r.templatePath))
	if err != nil {
		return nil, errors.NewBuildError(errors.ErrCodeTemplateLoad, "creating template loader", err).
			WithPath(r.templatePath)
	}

	set := pongo2.NewSet(filepath.Base(r.templatePath), loader)
	tpl, err := set.FromFile(filepath.Base(r.templatePath))
	if err != nil {
		return nil, errors.NewBuildError(errors.ErrCodeTemplateLoad, "compiling template", err).
			WithPath(r.templatePath)
	}
	return tpl, nil
}

// RenderAll writes slide i of total to outDir/{i}.html, creating or
// truncating it, and returns the written pages in order. Files written
// before a failure are left in place.
func (r *PageRenderer) RenderAll(ctx context.Context, frag FragmentRenderer, deck []slides.Slide, outDir string) ([]Page, error) {
	tpl, err := r.load()
	if err != nil {
		return nil, err
	}

	total := strconv.Itoa(len(deck))
	pages := make([]Page, 0, len(deck))

	for i, slide := range deck {
		number := i + 1

		var body bytes.Buffer
		if err := frag.RenderFragment(&body, slide.Events); err != nil {
			return pages, errors.NewBuildError(errors.ErrCodeFragmentRender,
				fmt.Sprintf("rendering slide %d", number), err)
		}

		path := filepath.Join(outDir, PageName(number))
		if err := writePage(tpl, path, pongo2.Context{
			"body":    pongo2.AsSafeValue(body.String()),
			"number":  strconv.Itoa(number),
			"total":   total,
			"classes": slide.Classes(),
		}); err != nil {
			return pages, err
		}

		pages = append(pages, Page{
			Number: number,
			Path:   path,
			Title:  FirstHeading(body.Bytes()),
		})
		r.logger.Debug(ctx, "rendered slide", "number", number, "path", path)
	}

	return pages, nil
}

func writePage(tpl *pongo2.Template, path string, data pongo2.Context) error {
	// Render into memory first so a template error does not leave a
	// truncated page behind.
	var buf bytes.Buffer
	if err := tpl.ExecuteWriter(data, &buf); err != nil {
		return errors.NewBuildError(errors.ErrCodeTemplateRender, "executing template", err).WithPath(path)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.NewBuildError(errors.ErrCodeWriteFailed, "writing page",
			errors.NewIOError(errors.ErrCodeWriteFailed, "write failed", err).WithPath(path)).WithPath(path)
	}
	return nil
}
