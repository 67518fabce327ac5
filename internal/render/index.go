package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
	"github.com/olynch/presentations/internal/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IndexName is the file name of the deck index page.
const IndexName = "index.html"

// IndexRenderer writes a table of contents linking every slide page.
type IndexRenderer struct {
	title string
}

// NewIndexRenderer derives the page title from the source file name:
// "talks/intro-to_go.md" becomes "Intro To Go".
func NewIndexRenderer(srcPath string) *IndexRenderer {
	name := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return &IndexRenderer{title: cases.Title(language.English).String(strings.TrimSpace(name))}
}

// Title returns the index page title.
func (r *IndexRenderer) Title() string {
	return r.title
}

// Component returns the index page as a templ component.
func (r *IndexRenderer) Component(pages []Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := templ.EscapeString(r.title)
		if _, err := fmt.Fprintf(w,
			"<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n<h1>%s</h1>\n<ol class=\"deck-index\">\n",
			title, title); err != nil {
			return err
		}
		for _, p := range pages {
			label := p.Title
			if label == "" {
				label = fmt.Sprintf("Slide %d", p.Number)
			}
			if _, err := fmt.Fprintf(w, "<li><a href=\"%s\">%s</a></li>\n",
				templ.EscapeString(PageName(p.Number)), templ.EscapeString(label)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ol>\n</body></html>\n")
		return err
	})
}

// Write renders the index into outDir/index.html.
func (r *IndexRenderer) Write(ctx context.Context, pages []Page, outDir string) error {
	var buf bytes.Buffer
	if err := r.Component(pages).Render(ctx, &buf); err != nil {
		return errors.NewBuildError(errors.ErrCodeIndexRender, "rendering index", err)
	}

	path := filepath.Join(outDir, IndexName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.NewBuildError(errors.ErrCodeWriteFailed, "writing index",
			errors.NewIOError(errors.ErrCodeWriteFailed, "write failed", err).WithPath(path)).WithPath(path)
	}
	return nil
}

// FirstHeading returns the whitespace-normalised text of the first h1-h6
// element in an HTML fragment, or "" if there is none.
func FirstHeading(fragment []byte) string {
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	})
	if err != nil {
		return ""
	}
	for _, n := range nodes {
		if h := findHeading(n); h != nil {
			return strings.Join(strings.Fields(textContent(h)), " ")
		}
	}
	return ""
}

func findHeading(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if h := findHeading(c); h != nil {
			return h
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
