//go:build property

package watcher

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var allTypes = []EventType{
	EventTypeCreated, EventTypeModified, EventTypeDeleted, EventTypeRenamed, EventTypeChmod,
}

// TestDebouncerProperties validates critical properties of the debouncer
func TestDebouncerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	// Each burst is a list of (path index, type index) pairs encoded as ints.
	burst := gen.SliceOfN(12, gen.IntRange(0, 4*len(allTypes)-1))

	properties.Property("a burst yields one batch merged per path", prop.ForAll(
		func(codes []int) bool {
			if len(codes) == 0 {
				return true
			}

			d := NewDebouncer(5 * time.Millisecond)
			want := make(map[string]EventType)
			for _, c := range codes {
				path := fmt.Sprintf("file-%d", c/len(allTypes))
				typ := allTypes[c%len(allTypes)]
				want[path] |= typ
				d.Add(ChangeEvent{Path: path, Type: typ})
			}

			var batch []ChangeEvent
			select {
			case batch = <-d.Batches():
			case <-time.After(time.Second):
				return false
			}

			if len(batch) != len(want) {
				return false
			}
			for i, ev := range batch {
				if want[ev.Path] != ev.Type {
					return false
				}
				if i > 0 && batch[i-1].Path >= ev.Path {
					return false
				}
			}

			select {
			case <-d.Batches():
				return false
			case <-time.After(20 * time.Millisecond):
				return true
			}
		},
		burst,
	))

	properties.Property("modification means any non-remove kind", prop.ForAll(
		func(mask uint8) bool {
			typ := EventType(mask & 0x1f)
			return typ.IsModification() == (typ&^EventTypeDeleted != 0)
		},
		gen.UInt8(),
	))

	properties.TestingRun(t)
}
