package allocator

const (
	// DefaultBlockSize is the size of each buffer block when no option overrides it.
	DefaultBlockSize uint64 = 64 * 1024

	// DefaultAlignment matches the WebGPU default minUniformBufferOffsetAlignment.
	DefaultAlignment uint64 = 256
)

// AllocatorBuilderOption is a functional option used to configure an Allocator during construction.
type AllocatorBuilderOption func(*allocator)

// WithBlockSize sets the size of newly created buffer blocks.
// Requests larger than the block size get a dedicated block.
//
// Parameters:
//   - size: the block size in bytes
//
// Returns:
//   - AllocatorBuilderOption: a function that sets the block size
func WithBlockSize(size uint64) AllocatorBuilderOption {
	return func(a *allocator) {
		if size > 0 {
			a.blockSize = size
		}
	}
}

// WithAlignment sets the offset alignment of every view. Must be a power of two
// no smaller than the device's minimum offset alignment.
//
// Parameters:
//   - align: the alignment in bytes
//
// Returns:
//   - AllocatorBuilderOption: a function that sets the alignment
func WithAlignment(align uint64) AllocatorBuilderOption {
	return func(a *allocator) {
		if align > 0 {
			a.alignment = align
		}
	}
}

// WithLabel sets the debug label prefix used for block buffers.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - AllocatorBuilderOption: a function that sets the label
func WithLabel(label string) AllocatorBuilderOption {
	return func(a *allocator) {
		a.label = label
	}
}
