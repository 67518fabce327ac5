//go:build property

package slides

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/olynch/presentations/internal/markup"
	"github.com/yuin/goldmark/ast"
)

// deck builds a well-formed stream: counts[i] text events inside section i,
// whose classes are taken round-robin from names.
func deck(counts []int, names []string) ([]markup.Event, [][]string) {
	var (
		events  []markup.Event
		classes [][]string
	)
	for i, n := range counts {
		var cs []string
		for j := 0; j < i%3 && len(names) > 0; j++ {
			cs = append(cs, names[(i+j)%len(names)])
		}
		attrs := make([]markup.Attribute, 0, len(cs))
		for _, c := range cs {
			attrs = append(attrs, markup.Class(c))
		}
		events = append(events, markup.Start(attrs...))
		for j := 0; j < n; j++ {
			events = append(events, markup.Text(fmt.Sprintf("s%d-e%d", i, j)))
		}
		events = append(events, markup.End())
		classes = append(classes, cs)
	}
	return events, classes
}

func flatten(slides []Slide) []markup.Event {
	var out []markup.Event
	for _, s := range slides {
		out = append(out, markup.Start(s.Attrs...))
		out = append(out, s.Events...)
		out = append(out, markup.End())
	}
	return out
}

func sameStream(a, b []markup.Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind {
			return false
		}
		if a[i].Kind != markup.KindContent {
			continue
		}
		sa, okA := a[i].Node.(*ast.String)
		sb, okB := b[i].Node.(*ast.String)
		if !okA || !okB || string(sa.Value) != string(sb.Value) {
			return false
		}
	}
	return true
}

// TestSegmentProperties validates the segmenter invariants
func TestSegmentProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	counts := gen.SliceOf(gen.IntRange(0, 5))
	names := gen.SliceOf(gen.Identifier())

	properties.Property("k balanced sections yield k slides", prop.ForAll(
		func(counts []int, names []string) bool {
			events, _ := deck(counts, names)
			return len(Segment(slices.Values(events))) == len(counts)
		},
		counts, names,
	))

	properties.Property("re-wrapping slides reconstructs the stream", prop.ForAll(
		func(counts []int, names []string) bool {
			events, _ := deck(counts, names)
			return sameStream(events, flatten(Segment(slices.Values(events))))
		},
		counts, names,
	))

	properties.Property("classes are joined in capture order", prop.ForAll(
		func(counts []int, names []string) bool {
			events, classes := deck(counts, names)
			got := Segment(slices.Values(events))
			for i, s := range got {
				if s.Classes() != strings.Join(classes[i], " ") {
					return false
				}
			}
			return true
		},
		counts, names,
	))

	properties.Property("slides never contain section delimiters", prop.ForAll(
		func(counts []int, names []string) bool {
			events, _ := deck(counts, names)
			// Drop every third delimiter to produce unbalanced input.
			var ragged []markup.Event
			for i, ev := range events {
				if ev.IsSection() && i%3 == 0 {
					continue
				}
				ragged = append(ragged, ev)
			}
			for _, s := range Segment(slices.Values(ragged)) {
				for _, ev := range s.Events {
					if ev.IsSection() {
						return false
					}
				}
			}
			return true
		},
		counts, names,
	))

	properties.TestingRun(t)
}
