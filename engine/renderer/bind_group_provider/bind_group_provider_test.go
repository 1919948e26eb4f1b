package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPacket() shader.PropertyPacket {
	p := shader.NewPropertyPacket(shader.TierMaterial)
	p.Insert(shader.BindingDescriptor{Name: "tint", Group: 0, Binding: 0, DataType: shader.DataTypeVec4, Size: 16, Visibility: wgpu.ShaderStageFragment})
	p.Insert(shader.BindingDescriptor{Name: "albedo_map", Group: 0, Binding: 1, DataType: shader.DataTypeTexture, Visibility: wgpu.ShaderStageFragment, ViewDimension: wgpu.TextureViewDimension2D, SampleType: wgpu.TextureSampleTypeFloat})
	return p
}

func fullSource() EntrySource {
	return EntrySourceFunc(func(d shader.BindingDescriptor) (device.BindGroupEntry, bool) {
		if d.DataType == shader.DataTypeTexture {
			return device.BindGroupEntry{Binding: d.Binding, TextureView: 99}, true
		}
		return device.BindGroupEntry{Binding: d.Binding, Buffer: 7, Size: d.Size}, true
	})
}

func TestProvide_BuildsOnceUntilRebuild(t *testing.T) {
	dev := devicetest.NewRecorder()
	p := NewBindGroupProvider(dev, WithLabel("test"))
	packet := testPacket()

	first := p.Provide(packet, fullSource(), device.InvalidBindGroup, false)
	require.NotEqual(t, device.InvalidBindGroup, first)
	assert.NotEqual(t, device.InvalidLayout, packet.Layout())

	same := p.Provide(packet, fullSource(), first, false)
	assert.Equal(t, first, same)
	assert.Equal(t, 1, p.Built())

	second := p.Provide(packet, fullSource(), first, true)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, p.Built())
	assert.Equal(t, 1, p.Live())
	assert.Equal(t, 1, dev.LiveBindGroups())

	entries := dev.BindGroups[second].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Equal(t, device.BufferID(7), entries[0].Buffer)
	assert.Equal(t, device.TextureViewID(99), entries[1].TextureView)
	assert.Contains(t, dev.BindGroups[second].Label, "test")
}

func TestProvide_SkipsMissingEntries(t *testing.T) {
	dev := devicetest.NewRecorder()
	p := NewBindGroupProvider(dev)

	onlyBuffers := EntrySourceFunc(func(d shader.BindingDescriptor) (device.BindGroupEntry, bool) {
		if d.DataType.IsResource() {
			return device.BindGroupEntry{}, false
		}
		return device.BindGroupEntry{Binding: d.Binding, Buffer: 3, Size: d.Size}, true
	})

	id := p.Provide(testPacket(), onlyBuffers, device.InvalidBindGroup, false)
	require.NotEqual(t, device.InvalidBindGroup, id)
	assert.Len(t, dev.BindGroups[id].Entries, 1)
}

func TestProvide_DeviceFailurePanics(t *testing.T) {
	dev := devicetest.NewRecorder()
	dev.FailBindGroups = true
	p := NewBindGroupProvider(dev)

	assert.Panics(t, func() {
		p.Provide(testPacket(), fullSource(), device.InvalidBindGroup, false)
	})
}

func TestRelease(t *testing.T) {
	dev := devicetest.NewRecorder()
	p := NewBindGroupProvider(dev)
	packet := testPacket()

	a := p.Provide(packet, fullSource(), device.InvalidBindGroup, false)
	b := p.Provide(packet, fullSource(), device.InvalidBindGroup, false)
	assert.Equal(t, 2, p.Live())

	p.Release(a)
	p.Release(a)
	p.Release(device.InvalidBindGroup)
	assert.Equal(t, 1, p.Live())
	assert.Equal(t, 1, dev.BindGroupsReleased)

	p.ReleaseAll()
	assert.Zero(t, p.Live())
	_, ok := dev.BindGroups[b]
	assert.False(t, ok)
}
