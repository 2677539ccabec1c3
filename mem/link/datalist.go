package link

// DataList is an order-preserving list of values. Unlike List it stores any
// value, zero included, and Delete closes the gap.
type DataList[T any] struct {
	items []T
}

// NewDataList returns a DataList with room for capacity values.
func NewDataList[T any](capacity int) *DataList[T] {
	return &DataList[T]{items: make([]T, 0, max(capacity, 0))}
}

// Add appends v and returns its index.
func (d *DataList[T]) Add(v T) int {
	d.items = append(d.items, v)
	return len(d.items) - 1
}

// Get returns the value at i.
func (d *DataList[T]) Get(i int) (T, bool) {
	if i < 0 || i >= len(d.items) {
		var zero T
		return zero, false
	}
	return d.items[i], true
}

// Set replaces the value at i.
func (d *DataList[T]) Set(i int, v T) bool {
	if i < 0 || i >= len(d.items) {
		return false
	}
	d.items[i] = v
	return true
}

// Delete removes the value at i, shifting later values down by one.
func (d *DataList[T]) Delete(i int) bool {
	if i < 0 || i >= len(d.items) {
		return false
	}
	copy(d.items[i:], d.items[i+1:])
	var zero T
	d.items[len(d.items)-1] = zero
	d.items = d.items[:len(d.items)-1]
	return true
}

// Len returns the number of values.
func (d *DataList[T]) Len() int { return len(d.items) }

// Each calls fn for every value in order until fn returns false.
func (d *DataList[T]) Each(fn func(i int, v T) bool) {
	for i, v := range d.items {
		if !fn(i, v) {
			return
		}
	}
}

// Empty removes every value.
func (d *DataList[T]) Empty() {
	clear(d.items)
	d.items = d.items[:0]
}
