package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/allocator"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
)

// EntrySource resolves the GPU resource behind one binding of a packet.
type EntrySource interface {
	// BindGroupEntry returns the entry for desc, or false if the source holds nothing for it.
	BindGroupEntry(desc shader.BindingDescriptor) (device.BindGroupEntry, bool)
}

// EntrySourceFunc adapts a function to the EntrySource interface.
type EntrySourceFunc func(desc shader.BindingDescriptor) (device.BindGroupEntry, bool)

// BindGroupEntry calls f(desc).
func (f EntrySourceFunc) BindGroupEntry(desc shader.BindingDescriptor) (device.BindGroupEntry, bool) {
	return f(desc)
}

// BufferEntry builds the entry binding view at binding.
//
// Parameters:
//   - binding: the binding index
//   - view: the buffer region backing the binding
//
// Returns:
//   - device.BindGroupEntry: the buffer entry
func BufferEntry(binding uint32, view allocator.BufferView) device.BindGroupEntry {
	return device.BindGroupEntry{
		Binding: binding,
		Buffer:  view.Buffer,
		Offset:  view.Offset,
		Size:    view.Size,
	}
}
