package heap

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"unsafe"
	"weak"

	"github.com/joshuapare/memkit/internal/format"
	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/internal/mmfile"
)

const (
	// DefaultUnit is the default minimum chunk size added when the heap grows.
	DefaultUnit = 64 << 10

	// DefaultMinAllocate is the default payload floor for small allocations.
	DefaultMinAllocate = 16
)

// Heap is a region of chunks holding reference-counted blocks.
type Heap struct {
	mu   sync.RWMutex
	dtMu sync.Mutex // guards the dirty tracker under the shared lock

	name string
	b    backing

	unit      int
	minAlloc  int
	debug     bool
	autoCheck bool

	// Size class configuration and lookup table
	sizeTable *sizeClassTable

	// Segregated free lists by size class; the last one holds large blocks.
	freeLists []freeCellHeap

	// byOff: start offset -> cell (removal during coalescing)
	// endIdx: end offset -> start offset (backward coalesce lookup)
	byOff  map[int]*freeCell
	endIdx map[int]int

	// Pool for reusing freeCell structs
	cellPool sync.Pool

	// Chunk boundaries, sorted by start, for O(log C) lookup
	chunks []chunkRange

	// Allocation sites recorded in debug mode, keyed by header offset
	sites map[int]Site

	stats Counters

	// Closes the backing if the heap is collected without Close
	cleanup runtime.Cleanup

	// Test hook: called after each chunk is appended (nil in production)
	onGrow func(size int)
}

// chunkRange represents chunk boundaries for binary search.
type chunkRange struct {
	start int // chunk header offset
	end   int // exclusive
}

// Option configures a Heap at construction.
type Option func(*Heap)

// WithName names the heap (used in logs and metrics).
func WithName(name string) Option { return func(h *Heap) { h.name = name } }

// WithUnit sets the minimum chunk size added on growth.
func WithUnit(n int) Option { return func(h *Heap) { h.setUnit(n) } }

// WithMinAllocate sets the payload floor for small allocations.
func WithMinAllocate(n int) Option { return func(h *Heap) { h.setMinAllocate(n) } }

// WithDebug enables allocation site tracking and operation logging.
func WithDebug(on bool) Option { return func(h *Heap) { h.debug = on } }

// WithAutoCheck runs the full consistency scan after every mutating call.
func WithAutoCheck(on bool) Option { return func(h *Heap) { h.autoCheck = on } }

// WithSizeClasses selects the free-list size class strategy.
func WithSizeClasses(cfg SizeClassConfig) Option {
	return func(h *Heap) { h.sizeTable = newSizeClassTable(cfg) }
}

func newHeap(b backing, opts []Option) *Heap {
	h := &Heap{
		b:        b,
		unit:     DefaultUnit,
		minAlloc: DefaultMinAllocate,
		byOff:    make(map[int]*freeCell, 256),
		endIdx:   make(map[int]int, 256),
		chunks:   make([]chunkRange, 0, 16),
		sites:    make(map[int]Site),
		cellPool: sync.Pool{
			New: func() any { return &freeCell{} },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.sizeTable == nil {
		h.sizeTable = newSizeClassTable(DefaultConfig)
	}
	h.freeLists = make([]freeCellHeap, h.sizeTable.NumClasses()+1)
	if h.name == "" {
		h.name = fmt.Sprintf("heap-%d", heapSeq.Add(1))
	}
	return h
}

var heapSeq atomic.Uint64

// New creates a heap in Go memory. It starts empty and grows on demand.
// Call Close when done; a heap dropped without Close is released only when the
// garbage collector reclaims it.
func New(opts ...Option) *Heap {
	h := newHeap(&memBacking{data: alignedBytes(format.HeapHeaderSize)}, opts)
	h.writeHeapHeader()
	register(h)
	return h
}

// NewOver creates a heap over a caller-supplied buffer. The heap never grows
// beyond buf; exhausting it returns ErrOutOfMemory. buf must not be used by
// the caller while the heap is open.
func NewOver(buf []byte, opts ...Option) (*Heap, error) {
	n := (len(buf) - format.RegionAlignment) &^ format.ChunkAlignmentMask
	if n < format.HeapHeaderSize+format.ChunkHeaderSize+format.MinBlockSize {
		return nil, fmt.Errorf("%w: buffer of %d bytes is too small", ErrBadSize, len(buf))
	}
	region := alignSlice(buf, n)
	clear(region)
	h := newHeap(&fixedBacking{data: region}, opts)
	h.writeHeapHeader()
	h.addChunk(format.HeapHeaderSize, n-format.HeapHeaderSize)
	register(h)
	return h, nil
}

// CreateFile creates a heap file at path with one initial chunk and maps it.
func CreateFile(path string, opts ...Option) (*Heap, error) {
	probe := newHeap(nil, opts)
	size := format.HeapHeaderSize + probe.unit
	r, err := mmfile.Create(path, size)
	if err != nil {
		return nil, fmt.Errorf("heap: create %s: %w", path, err)
	}
	h := probe
	h.b = newFileBacking(r)
	h.writeHeapHeader()
	h.addChunk(format.HeapHeaderSize, h.unit)
	register(h)
	return h, nil
}

// OpenFile maps an existing heap file, validates it and rebuilds the free
// lists from the chunk contents. Hold counts persist across reopen.
func OpenFile(path string, opts ...Option) (*Heap, error) {
	r, err := mmfile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("heap: open %s: %w", path, err)
	}
	h := newHeap(newFileBacking(r), opts)
	if err := h.load(opts); err != nil {
		_ = r.Close()
		return nil, err
	}
	register(h)
	return h, nil
}

// Name returns the heap name.
func (h *Heap) Name() string { return h.name }

// Backing returns "memory", "fixed" or "file".
func (h *Heap) Backing() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.b == nil {
		return "closed"
	}
	return h.b.kind()
}

// Close releases the region. For file heaps dirty ranges are flushed first.
// Every Ref into the heap becomes unusable.
func (h *Heap) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.b == nil {
		return nil
	}
	unregister(h)
	err := h.b.close()
	h.b = nil
	return err
}

// Sync flushes dirty ranges of a file heap to disk. No-op for other backings.
func (h *Heap) Sync(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.b == nil {
		return ErrClosed
	}
	h.dtMu.Lock()
	defer h.dtMu.Unlock()
	return h.b.sync(ctx)
}

// SetMinAllocate floors small allocations to n payload bytes.
func (h *Heap) SetMinAllocate(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setMinAllocate(n)
	h.writeHeapHeader()
}

// MinAllocate returns the payload floor.
func (h *Heap) MinAllocate() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.minAlloc
}

// SetHeapUnit sets the minimum chunk size added when the heap must grow.
func (h *Heap) SetHeapUnit(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setUnit(n)
	h.writeHeapHeader()
}

// HeapUnit returns the growth unit.
func (h *Heap) HeapUnit() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.unit
}

// SetAllocateDebug toggles allocation site tracking and operation logging.
// Sites are only recorded for blocks allocated while debug is on.
func (h *Heap) SetAllocateDebug(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.debug = on
}

// SetManualAllocateCheck selects when the consistency scan runs. With manual
// checking (the default) it runs only when Check is called; otherwise it runs
// after every mutating call and a detected corruption panics.
func (h *Heap) SetManualAllocateCheck(manual bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.autoCheck = !manual
}

// Counters returns cumulative allocator operation counts.
func (h *Heap) Counters() Counters {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

func (h *Heap) setUnit(n int) {
	if n < format.ChunkHeaderSize+format.MinBlockSize {
		n = format.ChunkHeaderSize + format.MinBlockSize
	}
	h.unit = format.AlignChunk(n)
}

func (h *Heap) setMinAllocate(n int) {
	h.minAlloc = max(n, 0)
}

// ============================================================================
// Region helpers
// ============================================================================

func (h *Heap) data() []byte { return h.b.bytes() }

// touch records a dirty range for file heaps.
func (h *Heap) touch(off, n int) {
	dt := h.b.tracker()
	if dt == nil {
		return
	}
	h.dtMu.Lock()
	dt.Add(off, n)
	h.dtMu.Unlock()
}

func (h *Heap) writeHeapHeader() {
	data := h.data()
	copy(data[format.HeapSignatureOffset:], format.HeapSignature)
	format.PutU32(data, format.HeapVersionOffset, format.HeapVersion)
	format.PutU32(data, format.HeapDataEndOffset, uint32(len(data)))
	format.PutU32(data, format.HeapUnitOffset, uint32(h.unit))
	format.PutU32(data, format.HeapMinAllocOffset, uint32(h.minAlloc))
	format.PutU32(data, format.HeapChunkCountOff, uint32(len(h.chunks)))
	format.PutU32(data, format.HeapChecksumOffset, format.Checksum(data))
	h.touch(0, format.HeapHeaderSize)
}

// addChunk writes a chunk header at off and turns the rest of the chunk into
// one free block.
func (h *Heap) addChunk(off, size int) {
	data := h.data()
	copy(data[off+format.ChunkSignatureOffset:], format.ChunkSignature)
	format.PutU32(data, off+format.ChunkSelfOffset, uint32(off))
	format.PutU32(data, off+format.ChunkSizeOffset, uint32(size))
	format.PutU32(data, off+format.ChunkSeqOffset, uint32(len(h.chunks)))
	h.chunks = append(h.chunks, chunkRange{start: off, end: off + size})

	freeOff := off + format.ChunkHeaderSize
	h.writeFree(freeOff, size-format.ChunkHeaderSize, 0)
	h.insertFree(freeOff, size-format.ChunkHeaderSize)
	h.touch(off, format.ChunkHeaderSize)
	h.writeHeapHeader()
}

// grow appends a chunk large enough for a block of total bytes at align.
func (h *Heap) grow(total, align int) error {
	size := format.AlignUp(format.ChunkHeaderSize+total+padSlack(align), format.PageSize)
	size = max(size, h.unit)

	start := len(h.data())
	if end, ok := format.AddOverflowSafe(start, size); !ok || end > format.MaxRegionSize {
		return fmt.Errorf("%w: region would exceed %d bytes", ErrOutOfMemory, format.MaxRegionSize)
	}
	if err := h.b.grow(size); err != nil {
		if errors.Is(err, ErrOutOfMemory) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	h.stats.GrowCalls++
	h.stats.GrowBytes += int64(size)
	h.addChunk(start, size)

	if h.debug {
		logger.Debug("heap: grow", "heap", h.name, "chunk", len(h.chunks)-1, "offset", start, "size", size)
	}
	if h.onGrow != nil {
		h.onGrow(size)
	}
	return nil
}

// findChunk returns the chunk containing off.
// O(log C) operation via binary search on the chunk index.
func (h *Heap) findChunk(off int) (chunkRange, int, bool) {
	i := sort.Search(len(h.chunks), func(i int) bool { return h.chunks[i].end > off })
	if i < len(h.chunks) && h.chunks[i].start <= off {
		return h.chunks[i], i, true
	}
	return chunkRange{}, -1, false
}

// writeFree writes a free block header.
func (h *Heap) writeFree(off, size int, gen uint16) {
	data := h.data()
	format.PutBlockHeader(data, off, format.BlockHeader{
		Size: int32(size),
		Meta: format.MakeMeta(0, 0, gen),
	})
	h.touch(off, format.BlockHeaderSize)
}

// tombstone marks a header absorbed by coalescing. The magic and generation
// stay so a stale Ref to it is still recognized and the generation keeps
// counting if a block starts here again.
func (h *Heap) tombstone(off int) {
	data := h.data()
	format.PutI32(data, off+format.BlockSizeOffset, 0)
	h.touch(off, format.BlockHeaderSize)
}

// nextGen returns the generation for a new block at off.
func (h *Heap) nextGen(off int) uint16 {
	meta := format.ReadU32(h.data(), off+format.BlockMetaOffset)
	if !format.MagicOK(meta) {
		return 1
	}
	g := format.MetaGen(meta) + 1
	if g == 0 {
		g = 1
	}
	return g
}

// holdsPtr returns the hold-count word of the block at off for atomic access.
// The region base is RegionAlignment-aligned so the word is 4-byte aligned.
func (h *Heap) holdsPtr(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&h.data()[off+format.BlockHoldsOffset]))
}

// padFor returns the bytes to skip before a block at off so that its payload
// is aligned. Block offsets are 16-aligned, so this is 0 or 16.
func padFor(off, align int) int {
	if align <= format.BlockAlignment {
		return 0
	}
	dataOff := off + format.BlockHeaderSize
	if r := dataOff % align; r != 0 {
		return align - r
	}
	return 0
}

func padSlack(align int) int {
	if align <= format.BlockAlignment {
		return 0
	}
	return align
}

// blockTotal returns the block size for a payload of size bytes.
func (h *Heap) blockTotal(size int) (int, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	payload := max(size, h.minAlloc)
	total, ok := format.AddOverflowSafe(format.BlockHeaderSize, payload)
	if !ok || total > format.MaxRegionSize/2 {
		return 0, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	return format.Align16(total), nil
}

// resolve validates ref and returns the header offset and decoded header.
func (h *Heap) resolve(ref Ref) (int, format.BlockHeader, error) {
	if h.b == nil {
		return 0, format.BlockHeader{}, ErrClosed
	}
	off := ref.Offset()
	data := h.data()
	if ref == NilRef || off < format.HeapHeaderSize+format.ChunkHeaderSize ||
		off&format.BlockAlignmentMask != 0 || !format.Has(data, off, format.BlockHeaderSize) {
		return 0, format.BlockHeader{}, ErrStaleRef
	}
	hdr := h.readHeader(off)
	if !format.MagicOK(hdr.Meta) || format.MetaGen(hdr.Meta) != ref.gen() || !hdr.Allocated() {
		return 0, format.BlockHeader{}, ErrStaleRef
	}
	if !format.Has(data, off, hdr.AbsSize()) {
		return 0, format.BlockHeader{}, corruptf(fmt.Sprintf("block 0x%x size %d beyond region", off, hdr.AbsSize()))
	}
	return off, hdr, nil
}

// readHeader decodes the block header at off. The hold count is loaded
// atomically since Hold and Release update it under the shared lock.
func (h *Heap) readHeader(off int) format.BlockHeader {
	data := h.data()
	return format.BlockHeader{
		Size:  format.ReadI32(data, off+format.BlockSizeOffset),
		Holds: atomic.LoadUint32(h.holdsPtr(off)),
		Used:  format.ReadU32(data, off+format.BlockUsedOffset),
		Meta:  format.ReadU32(data, off+format.BlockMetaOffset),
	}
}

// afterMutation runs the automatic consistency scan when enabled.
// A corruption found here is fatal.
func (h *Heap) afterMutation() {
	if !h.autoCheck {
		return
	}
	if err := h.checkLocked(); err != nil {
		logger.Error("heap: consistency check failed", "heap", h.name, "error", err)
		panic(err)
	}
}

// ============================================================================
// Registry of open heaps (GetMemStats)
// ============================================================================

// The registry holds weak pointers so a heap dropped without Close can still
// be collected. Its cleanup closes the backing and removes the entry.
var registry = struct {
	mu    sync.Mutex
	heaps map[weak.Pointer[Heap]]struct{}
}{heaps: make(map[weak.Pointer[Heap]]struct{})}

type dropped struct {
	b  backing
	wp weak.Pointer[Heap]
}

func register(h *Heap) {
	wp := weak.Make(h)
	registry.mu.Lock()
	registry.heaps[wp] = struct{}{}
	registry.mu.Unlock()
	h.cleanup = runtime.AddCleanup(h, closeDropped, dropped{b: h.b, wp: wp})
}

func closeDropped(d dropped) {
	registry.mu.Lock()
	delete(registry.heaps, d.wp)
	registry.mu.Unlock()
	_ = d.b.close()
}

func unregister(h *Heap) {
	h.cleanup.Stop()
	registry.mu.Lock()
	delete(registry.heaps, weak.Make(h))
	registry.mu.Unlock()
}

// Heaps returns every open heap, sorted by name. Heaps that were dropped
// without Close are left out once collected.
func Heaps() []*Heap {
	registry.mu.Lock()
	out := make([]*Heap, 0, len(registry.heaps))
	for wp := range registry.heaps {
		if h := wp.Value(); h != nil {
			out = append(out, h)
		} else {
			delete(registry.heaps, wp)
		}
	}
	registry.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// GetMemStats aggregates Stats across every open heap.
func GetMemStats() MemStats {
	var total MemStats
	for _, h := range Heaps() {
		total.Add(h.Stats())
	}
	return total
}
