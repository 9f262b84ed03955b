package objproc

import (
	"math"
	"sync"
)

const (
	defaultPoolCap = 3 * 4096    // scalars pre-allocated for a fresh pool
	maxPooledCap   = 3 * 1 << 20 // pools grown beyond this are left to the GC
)

// floatBufferPool reuses the backing arrays of attribute pools between segments and parses.
// Buckets copy values out of the pools, so a segment's buffers can be recycled as soon as it is finalized.
var floatBufferPool = sync.Pool{
	New: func() any {
		buf := make([]float32, 0, defaultPoolCap)
		return &buf
	},
}

// attributePool is an append-only sequence of scalars grouped into fixed-stride tuples.
type attributePool struct {
	values []float32
	stride int
}

// newAttributePool returns an empty pool backed by a recycled buffer.
func newAttributePool(stride int) attributePool {
	buf := floatBufferPool.Get().(*[]float32)
	return attributePool{
		values: (*buf)[:0],
		stride: stride,
	}
}

// push appends one scalar.
func (p *attributePool) push(v float32) {
	p.values = append(p.values, v)
}

// cursor returns the number of scalars written.
func (p *attributePool) cursor() int {
	return len(p.values)
}

// count returns the number of complete tuples.
func (p *attributePool) count() int {
	return len(p.values) / p.stride
}

// tuple returns the tuple at a 0-based local index.
func (p *attributePool) tuple(index int) ([]float32, bool) {
	// bounds are checked before multiplying so huge references cannot overflow
	if index < 0 || index >= p.count() {
		return nil, false
	}
	start := index * p.stride
	return p.values[start : start+p.stride], true
}

// release hands the backing array back to the buffer pool; the pool must not be used afterwards.
func (p *attributePool) release() {
	if p.values == nil || cap(p.values) > maxPooledCap {
		p.values = nil
		return
	}
	buf := p.values[:0]
	floatBufferPool.Put(&buf)
	p.values = nil
}

// appendTuple copies a resolved tuple into dst, or a NaN tuple when the reference did not resolve.
func appendTuple(dst []float32, src []float32, stride int) []float32 {
	if src == nil {
		nan := float32(math.NaN())
		for range stride {
			dst = append(dst, nan)
		}
		return dst
	}
	return append(dst, src...)
}
