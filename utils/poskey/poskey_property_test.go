package poskey

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_PositionKeyUniqueness(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all generated keys are unique and increasing", prop.ForAll(
		func(count int) bool {
			g := NewGenerator()

			seen := make(map[int64]bool, count)
			var last int64
			for range count {
				key := g.Next()
				if seen[key] || key <= last {
					return false
				}
				seen[key] = true
				last = key
			}

			return len(seen) == count
		},
		gen.IntRange(100, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
