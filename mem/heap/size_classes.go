package heap

import "math"

// SizeClassConfig defines the free-list size class strategy.
// Different configurations trade free-list count against best-fit scan cost.
type SizeClassConfig struct {
	// Name for this configuration (for benchmarking)
	Name string

	// Small block settings (linear increments)
	SmallMin       int // Smallest block size (a bare 16-byte header)
	SmallMax       int // Max for linear increments
	SmallIncrement int // Increment for small classes (multiple of 16)

	// Medium block settings (logarithmic growth); larger blocks share the last list.
	MediumMax    int
	GrowthFactor float64
}

// Predefined configurations.
var (
	// ConfigFine: many small buckets, good for varied small-object workloads.
	// 16-512 step 16 (31 classes) + 512-64K log growth.
	ConfigFine = SizeClassConfig{
		Name:           "Fine",
		SmallMin:       16,
		SmallMax:       512,
		SmallIncrement: 16,
		MediumMax:      65536,
		GrowthFactor:   1.5,
	}

	// ConfigCoarse: fewer buckets, cheaper free-list maintenance, more scanning.
	ConfigCoarse = SizeClassConfig{
		Name:           "Coarse",
		SmallMin:       16,
		SmallMax:       512,
		SmallIncrement: 64,
		MediumMax:      65536,
		GrowthFactor:   2.0,
	}

	// DefaultConfig is used if none is specified.
	DefaultConfig = ConfigFine
)

// sizeClassTable holds the computed size class boundaries.
type sizeClassTable struct {
	config     SizeClassConfig
	boundaries []int // Upper bound for each size class
}

// newSizeClassTable computes size class boundaries from config.
func newSizeClassTable(config SizeClassConfig) *sizeClassTable {
	table := &sizeClassTable{
		config:     config,
		boundaries: make([]int, 0, 64),
	}

	inc := max(config.SmallIncrement, 1)
	for size := config.SmallMin; size < config.SmallMax; size += inc {
		table.boundaries = append(table.boundaries, size+inc-1)
	}

	if config.SmallMax < config.MediumMax && config.GrowthFactor > 1 {
		size := config.SmallMax
		for size < config.MediumMax {
			next := int(math.Ceil(float64(size) * config.GrowthFactor))
			if next <= size {
				next = size + 1
			}
			table.boundaries = append(table.boundaries, next-1)
			size = next
		}
	}
	return table
}

// classOf returns the size class index for a block size.
// Returns NumClasses() for sizes beyond the last boundary (the large list).
func (t *sizeClassTable) classOf(size int) int {
	lo, hi := 0, len(t.boundaries)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if size <= t.boundaries[mid] {
			if mid == 0 || size > t.boundaries[mid-1] {
				return mid
			}
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return len(t.boundaries)
}

// NumClasses returns the number of size classes (excluding the large list).
func (t *sizeClassTable) NumClasses() int {
	return len(t.boundaries)
}

func (t *sizeClassTable) String() string {
	return t.config.Name
}
