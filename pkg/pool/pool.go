// Package pool recycles the row batches that move between the pipeline
// stages, so steady-state conversion allocates only the row fields.
//
// Example usage:
//
//	batches := pool.NewBatchPool(500)
//	batch := batches.Get()
//	batch = append(batch, fields)
//	...
//	batches.Put(batch)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool is a typed wrapper around sync.Pool with an optional reset hook and
// usage statistics. It is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		gets      int64
		puts      int64
	}
}

// New creates a pool. newFn builds an object when the pool is empty; reset,
// when non-nil, runs before an object goes back into the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object, allocating one when the pool is empty
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.gets, 1)
	return p.pool.Get().(T)
}

// Put returns obj to the pool
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.puts, 1)
	p.pool.Put(obj)
}

// Stats returns the number of objects created, handed out and returned
func (p *Pool[T]) Stats() (allocated, gets, puts int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.gets),
		atomic.LoadInt64(&p.stats.puts)
}

// BatchPool hands out empty [][]string batches with capacity for size rows
type BatchPool struct {
	size int
	pool *Pool[*[][]string]
}

// NewBatchPool creates a pool of batches holding size rows
func NewBatchPool(size int) *BatchPool {
	if size <= 0 {
		size = 1
	}
	return &BatchPool{
		size: size,
		pool: New(
			func() *[][]string {
				b := make([][]string, 0, size)
				return &b
			},
			func(b *[][]string) {
				clear(*b)
				*b = (*b)[:0]
			},
		),
	}
}

// Get returns an empty batch
func (p *BatchPool) Get() [][]string {
	return (*p.pool.Get())[:0]
}

// Put recycles batch. Rows must not be referenced by the caller afterwards.
// Batches that grew beyond or were built outside the pool's size are dropped.
func (p *BatchPool) Put(batch [][]string) {
	if cap(batch) != p.size {
		return
	}
	p.pool.Put(&batch)
}

// Size returns the row capacity of pooled batches
func (p *BatchPool) Size() int {
	return p.size
}

// Stats returns the underlying pool statistics
func (p *BatchPool) Stats() (allocated, gets, puts int64) {
	return p.pool.Stats()
}
