// Package markup turns a markup source into a flat stream of events in
// which only section boundaries are interpreted. Everything between two
// boundaries is an opaque content event carrying the parser's block node.
package markup

import (
	"strings"

	"github.com/yuin/goldmark/ast"
)

// Kind tags an Event.
type Kind int

const (
	KindContent Kind = iota
	KindSectionStart
	KindSectionEnd
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindSectionStart:
		return "section-start"
	case KindSectionEnd:
		return "section-end"
	default:
		return "unknown"
	}
}

// AttributeKind tags an Attribute.
type AttributeKind int

const (
	AttrClass AttributeKind = iota
	AttrID
	AttrPair
)

// Attribute is one (kind, value) entry of a section's attribute bag. Key is
// only set for AttrPair.
type Attribute struct {
	Kind  AttributeKind
	Key   string
	Value string
}

// Attributes is an ordered attribute bag.
type Attributes []Attribute

// Classes returns the values of the class entries in capture order.
func (a Attributes) Classes() []string {
	var classes []string
	for _, attr := range a {
		if attr.Kind == AttrClass {
			classes = append(classes, attr.Value)
		}
	}
	return classes
}

// Class builds a class attribute.
func Class(name string) Attribute {
	return Attribute{Kind: AttrClass, Value: name}
}

// Event is one element of the markup stream.
type Event struct {
	Kind Kind
	// Attrs is set on section starts. A start without attributes carries a
	// non-nil empty bag so "set but empty" is distinguishable from unset.
	Attrs Attributes
	// Node is set on content events.
	Node ast.Node
}

// Start returns a section-start event.
func Start(attrs ...Attribute) Event {
	bag := make(Attributes, 0, len(attrs))
	return Event{Kind: KindSectionStart, Attrs: append(bag, attrs...)}
}

// End returns a section-end event.
func End() Event {
	return Event{Kind: KindSectionEnd}
}

// Content wraps a parser node as a content event.
func Content(node ast.Node) Event {
	return Event{Kind: KindContent, Node: node}
}

// Text returns a content event holding literal text. It renders as the
// escaped text with no enclosing block element.
func Text(s string) Event {
	return Content(ast.NewString([]byte(s)))
}

// IsSection reports whether e is a section delimiter.
func (e Event) IsSection() bool {
	return e.Kind == KindSectionStart || e.Kind == KindSectionEnd
}

// String is used in test failure output.
func (e Event) String() string {
	switch e.Kind {
	case KindSectionStart:
		return "start(" + strings.Join(e.Attrs.Classes(), " ") + ")"
	case KindSectionEnd:
		return "end"
	default:
		if e.Node == nil {
			return "content(<nil>)"
		}
		return "content(" + e.Node.Kind().String() + ")"
	}
}
