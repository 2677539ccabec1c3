// Package dirty tracks modified byte ranges of a memory-mapped heap file and
// flushes them to disk.
//
// The tracker keeps a list of dirty ranges, coalesces them into page-aligned
// ranges at flush time, and hands each range to a Syncer (msync on unix).
package dirty

import (
	"context"
	"slices"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	defaultRangeCapacity = 64

	// standardPageSize is the typical OS page size (4KB).
	standardPageSize = 4096
)

// DirtyTracker is the minimal interface for components that only report
// modified regions (the heap allocator) without managing flushes.
type DirtyTracker interface {
	// Add marks a byte range as dirty.
	Add(off, length int)
}

// Syncer flushes a sub-slice of a mapping to stable storage.
type Syncer interface {
	Bytes() []byte
	Sync(b []byte) error
	Datasync() error
}

// Range represents a dirty byte range (absolute region offsets).
type Range struct {
	Off int64
	Len int64
}

// Tracker accumulates dirty ranges and flushes them efficiently.
//
// NOT thread-safe. The heap serializes calls under its own lock.
type Tracker struct {
	s        Syncer
	ranges   []Range
	pageSize int64
}

// NewTracker creates a dirty tracker flushing through s.
func NewTracker(s Syncer) *Tracker {
	return &Tracker{
		s:        s,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: standardPageSize,
	}
}

// Add records a dirty range. Ranges are page-aligned and merged at flush time.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{Off: int64(off), Len: int64(length)})
}

// Len returns the number of recorded (uncoalesced) ranges.
func (t *Tracker) Len() int { return len(t.ranges) }

// Flush coalesces the recorded ranges, syncs each one, then fdatasyncs the file.
//
// The context is checked between ranges. If cancelled mid-flush, some ranges
// may already be on disk; the unflushed ones stay recorded.
func (t *Tracker) Flush(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data := t.s.Bytes()
	for _, r := range t.Coalesced() {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := int(r.Off)
		end := min(int(r.Off+r.Len), len(data))
		if start >= end {
			continue
		}
		if err := t.s.Sync(data[start:end]); err != nil {
			return err
		}
	}
	t.ranges = t.ranges[:0]
	return t.s.Datasync()
}

// Reset clears all tracked ranges.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// Coalesced returns the page-aligned, sorted, merged ranges that Flush would sync.
func (t *Tracker) Coalesced() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	slices.SortFunc(aligned, func(a, b Range) int {
		switch {
		case a.Off < b.Off:
			return -1
		case a.Off > b.Off:
			return 1
		default:
			return 0
		}
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.Off+current.Len {
			current.Len = max(current.Off+current.Len, next.Off+next.Len) - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
