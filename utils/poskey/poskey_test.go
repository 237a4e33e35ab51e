package poskey

import (
	"sync"
	"testing"
	"time"
)

func TestNext_StrictlyIncreasing(t *testing.T) {
	gen := NewGenerator()

	var last int64
	for i := 0; i < 10000; i++ {
		key := gen.Next()
		if key <= last {
			t.Fatalf("key %d is not greater than previous key %d", key, last)
		}
		last = key
	}
}

func TestNext_UniqueAcrossGoroutines(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 8
	const perGoroutine = 2000

	var mu sync.Mutex
	seen := make(map[int64]bool, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys := make([]int64, 0, perGoroutine)
			for j := 0; j < perGoroutine; j++ {
				keys = append(keys, gen.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, key := range keys {
				if seen[key] {
					t.Errorf("duplicate key %d", key)
				}
				seen[key] = true
			}
		}()
	}
	wg.Wait()

	if len(seen) != goroutines*perGoroutine {
		t.Errorf("expected %d unique keys, got %d", goroutines*perGoroutine, len(seen))
	}
}

func TestTime_RoundTrip(t *testing.T) {
	gen := NewGenerator()

	before := time.Now().Add(-time.Second)
	key := gen.Next()
	after := time.Now().Add(time.Second)

	keyTime := Time(key)
	if keyTime.Before(before) || keyTime.After(after) {
		t.Errorf("key time %v outside window [%v, %v]", keyTime, before, after)
	}
}
