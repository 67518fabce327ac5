package markup

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/olynch/presentations/internal/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Parser parses Markdown with heading attributes ("# Title {.dark #intro}").
//
// Headings open sections the way djot does: a heading of level n closes
// every open section of level >= n and opens a new one, and all sections
// still open at the end of the document are closed. The heading's
// attributes move to the section it opens.
type Parser struct {
	md goldmark.Markdown
}

// NewParser returns a parser with GitHub-flavoured extensions, definition
// lists, heading attributes and raw HTML passthrough enabled.
func NewParser() *Parser {
	return &Parser{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.DefinitionList),
			goldmark.WithParserOptions(parser.WithAttribute()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Document is a parsed source.
type Document struct {
	md     goldmark.Markdown
	source []byte
	root   ast.Node
	attrs  map[ast.Node]Attributes
}

// Parse parses src. The source must be valid UTF-8.
func (p *Parser) Parse(src []byte) (*Document, error) {
	if !utf8.Valid(src) {
		return nil, errors.NewParseError(errors.ErrCodeInvalidUTF8, "source is not valid UTF-8", nil)
	}

	root := p.md.Parser().Parse(text.NewReader(src))

	doc := &Document{
		md:     p.md,
		source: src,
		root:   root,
		attrs:  make(map[ast.Node]Attributes),
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if _, ok := n.(*ast.Heading); !ok {
			continue
		}
		doc.attrs[n] = convertAttributes(n.Attributes())
		n.RemoveAttributes()
	}

	return doc, nil
}

// Events returns the document's event stream. It can be ranged over more
// than once.
func (d *Document) Events() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		var open []int
		for n := d.root.FirstChild(); n != nil; n = n.NextSibling() {
			if h, ok := n.(*ast.Heading); ok {
				for len(open) > 0 && open[len(open)-1] >= h.Level {
					open = open[:len(open)-1]
					if !yield(End()) {
						return
					}
				}
				open = append(open, h.Level)
				if !yield(Start(d.attrs[n]...)) {
					return
				}
			}
			if !yield(Content(n)) {
				return
			}
		}
		for range open {
			if !yield(End()) {
				return
			}
		}
	}
}

// RenderFragment renders content events as HTML. Section delimiters are
// ignored.
func (d *Document) RenderFragment(w io.Writer, events []Event) error {
	r := d.md.Renderer()
	for i, ev := range events {
		if ev.Kind != KindContent || ev.Node == nil {
			continue
		}
		if err := r.Render(w, d.source, ev.Node); err != nil {
			return errors.NewRenderError(errors.ErrCodeFragmentRender, fmt.Sprintf("rendering event %d", i), err)
		}
	}
	return nil
}

// RenderString is RenderFragment into a string.
func (d *Document) RenderString(events []Event) (string, error) {
	var buf bytes.Buffer
	if err := d.RenderFragment(&buf, events); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func convertAttributes(raw []ast.Attribute) Attributes {
	attrs := make(Attributes, 0, len(raw))
	for _, a := range raw {
		name := string(a.Name)
		value := attributeValue(a.Value)
		switch name {
		case "class":
			for _, class := range strings.Fields(value) {
				attrs = append(attrs, Class(class))
			}
		case "id":
			attrs = append(attrs, Attribute{Kind: AttrID, Value: value})
		default:
			attrs = append(attrs, Attribute{Kind: AttrPair, Key: name, Value: value})
		}
	}
	return attrs
}

func attributeValue(v interface{}) string {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
