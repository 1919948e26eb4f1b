// Package allocator sub-allocates small uniform and storage regions out of large GPU buffers.
package allocator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrWriteOverflow is returned when WriteData is given more bytes than the view holds.
var ErrWriteOverflow = errors.New("allocator: write exceeds view size")

// ErrInvalidView is returned when an operation is given a zero BufferView.
var ErrInvalidView = errors.New("allocator: invalid buffer view")

// BufferView is a sub-range of a GPU buffer owned by an Allocator.
// The zero value is invalid.
type BufferView struct {
	Buffer device.BufferID
	Offset uint64
	// Size is the usable size requested by the caller.
	Size uint64
	// reserved is Size rounded up to the allocator alignment.
	reserved uint64
	usage    wgpu.BufferUsage
}

// IsValid reports whether the view refers to allocated storage.
func (v BufferView) IsValid() bool {
	return v.Buffer != device.InvalidBuffer
}

// Stats is a snapshot of the allocator's bookkeeping.
type Stats struct {
	Blocks        int
	BytesReserved uint64
	BytesInUse    uint64
	Allocations   int
	Writes        int
}

// Allocator hands out aligned BufferViews from a set of growing GPU buffer blocks.
type Allocator interface {
	// AllocateUniformBuffer reserves size bytes usable as a uniform binding.
	// Device failure while growing panics.
	//
	// Parameters:
	//   - size: the number of bytes the caller will write
	//
	// Returns:
	//   - BufferView: the reserved region
	AllocateUniformBuffer(size uint64) BufferView

	// AllocateStorageBuffer reserves size bytes usable as a storage binding.
	//
	// Parameters:
	//   - size: the number of bytes the caller will write
	//
	// Returns:
	//   - BufferView: the reserved region
	AllocateStorageBuffer(size uint64) BufferView

	// WriteData queues a write of data at the start of view.
	//
	// Parameters:
	//   - view: the destination region
	//   - data: the bytes to write, at most view.Size long
	//
	// Returns:
	//   - error: ErrInvalidView, ErrWriteOverflow or a device error
	WriteData(view BufferView, data []byte) error

	// Free returns view to the allocator for reuse. Freeing a zero view is a no-op.
	Free(view BufferView)

	// Stats returns a snapshot of block and write counters.
	Stats() Stats

	// Release frees every block. Views handed out before Release become invalid.
	Release()
}

type block struct {
	buffer device.BufferID
	size   uint64
	cursor uint64
}

type pool struct {
	usage  wgpu.BufferUsage
	blocks []*block
	// free holds released views bucketed by reserved size.
	free map[uint64][]BufferView
}

type allocator struct {
	mu        *sync.Mutex
	dev       device.Device
	label     string
	blockSize uint64
	alignment uint64

	uniform *pool
	storage *pool

	inUse       uint64
	allocations int
	writes      int
}

var _ Allocator = &allocator{}

// NewAllocator creates an Allocator that carves views out of blocks created on dev.
//
// Parameters:
//   - dev: the device that owns the backing buffers
//   - options: functional options configuring block size, alignment and label
//
// Returns:
//   - Allocator: the new allocator
func NewAllocator(dev device.Device, options ...AllocatorBuilderOption) Allocator {
	a := &allocator{
		mu:        &sync.Mutex{},
		dev:       dev,
		label:     "uniform allocator",
		blockSize: DefaultBlockSize,
		alignment: DefaultAlignment,
	}
	for _, opt := range options {
		opt(a)
	}
	a.uniform = &pool{usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst, free: make(map[uint64][]BufferView)}
	a.storage = &pool{usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst, free: make(map[uint64][]BufferView)}
	return a
}

// alignUp rounds size up to the next multiple of align.
func alignUp(size, align uint64) uint64 {
	if size%align == 0 {
		return size
	}
	return (size/align + 1) * align
}

func (a *allocator) AllocateUniformBuffer(size uint64) BufferView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocate(a.uniform, size)
}

func (a *allocator) AllocateStorageBuffer(size uint64) BufferView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocate(a.storage, size)
}

func (a *allocator) allocate(p *pool, size uint64) BufferView {
	reserved := alignUp(common.Coalesce(size, 4), a.alignment)

	if views := p.free[reserved]; len(views) > 0 {
		v := views[len(views)-1]
		p.free[reserved] = views[:len(views)-1]
		v.Size = size
		a.inUse += reserved
		a.allocations++
		return v
	}

	var target *block
	for _, b := range p.blocks {
		if b.size-b.cursor >= reserved {
			target = b
			break
		}
	}
	if target == nil {
		target = a.grow(p, reserved)
	}

	v := BufferView{
		Buffer:   target.buffer,
		Offset:   target.cursor,
		Size:     size,
		reserved: reserved,
		usage:    p.usage,
	}
	target.cursor += reserved
	a.inUse += reserved
	a.allocations++
	return v
}

// grow appends a block large enough for at least minSize bytes.
func (a *allocator) grow(p *pool, minSize uint64) *block {
	size := max(a.blockSize, minSize)
	label := fmt.Sprintf("%s block %d", a.label, len(p.blocks))
	buf, err := a.dev.CreateBuffer(label, size, p.usage)
	if err != nil {
		panic(fmt.Sprintf("allocator: failed to create buffer block: %v", err))
	}
	b := &block{buffer: buf, size: size}
	p.blocks = append(p.blocks, b)
	common.Logger().Debug("allocator: grew pool", "label", label, "size", size)
	return b
}

func (a *allocator) WriteData(view BufferView, data []byte) error {
	if !view.IsValid() {
		return ErrInvalidView
	}
	if uint64(len(data)) > view.Size {
		return fmt.Errorf("%w: %d bytes into %d", ErrWriteOverflow, len(data), view.Size)
	}
	if err := a.dev.WriteBuffer(view.Buffer, view.Offset, data); err != nil {
		return err
	}
	a.mu.Lock()
	a.writes++
	a.mu.Unlock()
	return nil
}

func (a *allocator) Free(view BufferView) {
	if !view.IsValid() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.uniform
	if view.usage&wgpu.BufferUsageStorage != 0 {
		p = a.storage
	}
	p.free[view.reserved] = append(p.free[view.reserved], view)
	a.inUse -= view.reserved
	a.allocations--
}

func (a *allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{
		BytesInUse:  a.inUse,
		Allocations: a.allocations,
		Writes:      a.writes,
	}
	for _, p := range []*pool{a.uniform, a.storage} {
		s.Blocks += len(p.blocks)
		for _, b := range p.blocks {
			s.BytesReserved += b.size
		}
	}
	return s
}

func (a *allocator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range []*pool{a.uniform, a.storage} {
		for _, b := range p.blocks {
			a.dev.ReleaseBuffer(b.buffer)
		}
		p.blocks = nil
		clear(p.free)
	}
	a.inUse = 0
	a.allocations = 0
}
