// Package memstats exports heap statistics as Prometheus metrics.
//
// The collector reads every registered heap at scrape time, so metrics follow
// heaps as they are created and closed without explicit bookkeeping:
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(memstats.NewCollector())
package memstats

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshuapare/memkit/mem/heap"
)

const namespace = "memkit"

// HeapSource lists the heaps to export. heap.Heaps is the default.
type HeapSource func() []*heap.Heap

// Collector is a prometheus.Collector over a set of heaps.
type Collector struct {
	source HeapSource

	freeBytes  *prometheus.Desc
	usedBytes  *prometheus.Desc
	blocks     *prometheus.Desc
	freeBlocks *prometheus.Desc
	chunks     *prometheus.Desc
	unitBytes  *prometheus.Desc

	allocs    *prometheus.Desc
	frees     *prometheus.Desc
	grows     *prometheus.Desc
	growBytes *prometheus.Desc
	coalesce  *prometheus.Desc
	reallocs  *prometheus.Desc
	defrags   *prometheus.Desc
}

// NewCollector returns a collector over every registered heap.
func NewCollector() *Collector { return NewCollectorFor(heap.Heaps) }

// NewCollectorFor returns a collector over the heaps src lists.
func NewCollectorFor(src HeapSource) *Collector {
	heapLabel := []string{"heap"}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "heap", name), help,
			append(append([]string(nil), heapLabel...), labels...), nil)
	}
	return &Collector{
		source:     src,
		freeBytes:  desc("free_bytes", "Bytes in free blocks, headers included"),
		usedBytes:  desc("used_bytes", "Bytes in allocated blocks, headers included"),
		blocks:     desc("blocks", "Allocated blocks"),
		freeBlocks: desc("free_blocks", "Free blocks"),
		chunks:     desc("chunks", "Chunks appended to the heap region"),
		unitBytes:  desc("unit_bytes", "Growth unit"),
		allocs:     desc("allocations_total", "Allocation calls by path", "path"),
		frees:      desc("frees_total", "Blocks returned to the free lists"),
		grows:      desc("grows_total", "Growth operations"),
		growBytes:  desc("grow_bytes_total", "Bytes appended by growth"),
		coalesce:   desc("coalesce_total", "Free block merges by direction", "direction"),
		reallocs:   desc("reallocations_total", "Reallocate and Preallocate calls by outcome", "outcome"),
		defrags:    desc("defragment_moves_total", "Blocks moved by Defragment"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.freeBytes, c.usedBytes, c.blocks, c.freeBlocks, c.chunks, c.unitBytes,
		c.allocs, c.frees, c.grows, c.growBytes, c.coalesce, c.reallocs, c.defrags,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	seen := map[string]int{}
	for _, h := range c.source() {
		name := h.Name()
		// Heap names are not unique; label values must be.
		if k := seen[name]; k > 0 {
			seen[name]++
			name = fmt.Sprintf("%s#%d", name, k+1)
		} else {
			seen[name] = 1
		}
		s := h.Stats()
		n := h.Counters()

		gauge := func(d *prometheus.Desc, v float64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, append([]string{name}, labels...)...)
		}
		counter := func(d *prometheus.Desc, v float64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, append([]string{name}, labels...)...)
		}

		gauge(c.freeBytes, float64(s.FreeBytes))
		gauge(c.usedBytes, float64(s.UsedBytes))
		gauge(c.blocks, float64(s.Blocks))
		gauge(c.freeBlocks, float64(s.FreeBlocks))
		gauge(c.chunks, float64(s.Chunks))
		gauge(c.unitBytes, float64(h.HeapUnit()))

		counter(c.allocs, float64(n.AllocFastPath), "fast")
		counter(c.allocs, float64(n.AllocSlowPath), "grow")
		counter(c.frees, float64(n.FreeCalls))
		counter(c.grows, float64(n.GrowCalls))
		counter(c.growBytes, float64(n.GrowBytes))
		counter(c.coalesce, float64(n.CoalesceForward), "forward")
		counter(c.coalesce, float64(n.CoalesceBackward), "backward")
		counter(c.reallocs, float64(n.ReallocInPlace), "in_place")
		counter(c.reallocs, float64(n.ReallocMoved), "moved")
		counter(c.defrags, float64(n.DefragMoves))
	}
}
