// Package poskey generates the sortable position keys that order queue
// members within a priority tier. Keys are time-ordered (high bits are
// milliseconds since a fixed epoch) with a per-process sequence in the low
// bits, so two joins in the same millisecond still get distinct, ordered keys.
package poskey

import (
	"sync"
	"time"
)

const (
	// Epoch is the custom epoch (January 1, 2024 00:00:00 UTC) in milliseconds.
	Epoch int64 = 1704067200000

	// SequenceBits is the width of the per-millisecond sequence.
	SequenceBits uint8 = 12

	sequenceMask int64 = -1 ^ (-1 << SequenceBits)
)

// Generator mints strictly increasing position keys.
type Generator struct {
	mu sync.Mutex

	sequence      int64
	lastTimestamp int64
}

// NewGenerator returns a generator starting at the current time.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns the next position key. Keys from one generator are strictly
// increasing, even across a backwards clock step: the generator never hands
// out a timestamp earlier than the last one it used.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	timestamp := currentTimestamp()
	if timestamp < g.lastTimestamp {
		timestamp = g.lastTimestamp
	}

	if timestamp == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & sequenceMask
		// Sequence overflow - wait for the next millisecond
		if g.sequence == 0 {
			timestamp = waitNextMillis(g.lastTimestamp)
		}
	} else {
		g.sequence = 0
	}

	g.lastTimestamp = timestamp

	return ((timestamp - Epoch) << SequenceBits) | g.sequence
}

// Time extracts the wall-clock component of a position key.
func Time(key int64) time.Time {
	ms := (key >> SequenceBits) + Epoch
	return time.UnixMilli(ms)
}

func currentTimestamp() int64 {
	return time.Now().UnixMilli()
}

func waitNextMillis(lastTimestamp int64) int64 {
	timestamp := currentTimestamp()
	for timestamp <= lastTimestamp {
		timestamp = currentTimestamp()
	}
	return timestamp
}
