// Package slides partitions a markup event stream into slides.
package slides

import (
	"iter"
	"strings"

	"github.com/olynch/presentations/internal/markup"
)

// Slide is one page of the deck. Attrs is nil when no section start was
// seen for the slide. Events never contain section delimiters.
type Slide struct {
	Attrs  markup.Attributes
	Events []markup.Event
}

// Classes returns the slide's class attributes joined by single spaces.
func (s Slide) Classes() string {
	return strings.Join(s.Attrs.Classes(), " ")
}

// Segment consumes events in order and returns the slides they form.
//
// A section start records its attributes for the current slide, replacing
// any earlier start seen for the same slide; a section end closes the
// current slide, even an empty one. Sections are treated as flat: a nested
// start overwrites the attributes and the first end closes the slide. A
// trailing slide is emitted at end of stream only if it has events or
// attributes.
func Segment(events iter.Seq[markup.Event]) []Slide {
	var (
		slides  []Slide
		current Slide
	)

	for ev := range events {
		switch ev.Kind {
		case markup.KindSectionStart:
			current.Attrs = ev.Attrs
			if current.Attrs == nil {
				current.Attrs = markup.Attributes{}
			}
		case markup.KindSectionEnd:
			slides = append(slides, current)
			current = Slide{}
		default:
			current.Events = append(current.Events, ev)
		}
	}

	if len(current.Events) > 0 || current.Attrs != nil {
		slides = append(slides, current)
	}

	return slides
}
