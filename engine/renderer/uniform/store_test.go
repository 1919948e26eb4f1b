package uniform

import (
	"image"
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/allocator"
	bgp "github.com/Carmen-Shannon/oxy-bind/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResources(dev *devicetest.Recorder) Resources {
	return Resources{
		Device:     dev,
		Allocator:  allocator.NewAllocator(dev),
		Textures:   texture.NewManager(dev),
		BindGroups: bgp.NewBindGroupProvider(dev),
	}
}

func buffer(name string, binding uint32, dt shader.DataType, size uint64) shader.BindingDescriptor {
	return shader.BindingDescriptor{
		Name:       name,
		Group:      0,
		Binding:    binding,
		DataType:   dt,
		Size:       size,
		Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
	}
}

// materialPacket covers every value kind.
func materialPacket() shader.PropertyPacket {
	p := shader.NewPropertyPacket(shader.TierMaterial)
	p.Insert(buffer("f", 0, shader.DataTypeFloat, 4))
	p.Insert(buffer("v2", 1, shader.DataTypeVec2, 8))
	p.Insert(buffer("v3", 2, shader.DataTypeVec3, 12))
	p.Insert(buffer("v4", 3, shader.DataTypeVec4, 16))
	p.Insert(buffer("iv4", 4, shader.DataTypeIVec4, 16))
	p.Insert(buffer("uv4", 5, shader.DataTypeUVec4, 16))
	p.Insert(buffer("m3", 6, shader.DataTypeMat3, 48))
	p.Insert(buffer("m4", 7, shader.DataTypeMat4, 64))
	p.Insert(buffer("blob", 8, shader.DataTypeStruct, 32))
	p.Insert(shader.BindingDescriptor{
		Name: "albedo_map", Group: 0, Binding: 9, DataType: shader.DataTypeTexture,
		Visibility: wgpu.ShaderStageFragment, ViewDimension: wgpu.TextureViewDimension2D, SampleType: wgpu.TextureSampleTypeFloat,
	})
	p.Insert(shader.BindingDescriptor{
		Name: "albedo_sampler", Group: 0, Binding: 10, DataType: shader.DataTypeSampler,
		Visibility: wgpu.ShaderStageFragment,
	})
	return p
}

func TestNewUniformStore_Defaults(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	s := NewUniformStore(materialPacket(), res.Textures.Builtins())

	f, ok := s.Float("f")
	assert.True(t, ok)
	assert.Zero(t, f)

	v4, _ := s.Vec4("v4")
	assert.Equal(t, mgl32.Vec4{}, v4)
	m3, _ := s.Mat3("m3")
	assert.Equal(t, mgl32.Ident3(), m3)
	m4, _ := s.Mat4("m4")
	assert.Equal(t, mgl32.Ident4(), m4)
	blob, _ := s.Struct("blob")
	assert.Equal(t, make([]byte, 32), blob)

	tex, _ := s.Texture("albedo_map")
	assert.Equal(t, res.Textures.Builtins().White, tex)
	smp, _ := s.Sampler("albedo_sampler")
	assert.Equal(t, texture.InvalidSampler, smp)

	assert.False(t, s.IsDirty())
	assert.True(t, s.NeedsBindGroup())
	assert.Equal(t, uint32(0), s.BindGroupIndex())
	assert.Len(t, s.Names(), 11)
	assert.Equal(t, "f", s.Names()[0])
}

func TestUniformStore_RoundTrip(t *testing.T) {
	s := NewUniformStore(materialPacket(), texture.Builtins{})

	require.True(t, s.SetFloat("f", 1.5))
	require.True(t, s.SetVec2("v2", mgl32.Vec2{1, 2}))
	require.True(t, s.SetVec3("v3", mgl32.Vec3{1, 2, 3}))
	require.True(t, s.SetVec4("v4", mgl32.Vec4{1, 2, 3, 4}))
	require.True(t, s.SetIVec4("iv4", [4]int32{-1, 2, -3, 4}))
	require.True(t, s.SetUVec4("uv4", [4]uint32{5, 6, 7, 8}))
	require.True(t, s.SetMat3("m3", mgl32.Scale2D(2, 3)))
	require.True(t, s.SetMat4("m4", mgl32.Translate3D(1, 2, 3)))
	require.True(t, s.SetStruct("blob", []byte{1, 2, 3}))
	require.True(t, s.SetTexture("albedo_map", 42))
	require.True(t, s.SetSampler("albedo_sampler", 7))

	f, _ := s.Float("f")
	assert.Equal(t, float32(1.5), f)
	v2, _ := s.Vec2("v2")
	assert.Equal(t, mgl32.Vec2{1, 2}, v2)
	v3, _ := s.Vec3("v3")
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, v3)
	v4, _ := s.Vec4("v4")
	assert.Equal(t, mgl32.Vec4{1, 2, 3, 4}, v4)
	iv4, _ := s.IVec4("iv4")
	assert.Equal(t, [4]int32{-1, 2, -3, 4}, iv4)
	uv4, _ := s.UVec4("uv4")
	assert.Equal(t, [4]uint32{5, 6, 7, 8}, uv4)
	m3, _ := s.Mat3("m3")
	assert.Equal(t, mgl32.Scale2D(2, 3), m3)
	m4, _ := s.Mat4("m4")
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), m4)
	blob, _ := s.Struct("blob")
	assert.Len(t, blob, 32)
	assert.Equal(t, []byte{1, 2, 3, 0}, blob[:4])
	tex, _ := s.Texture("albedo_map")
	assert.Equal(t, texture.TextureHandle(42), tex)
	smp, _ := s.Sampler("albedo_sampler")
	assert.Equal(t, texture.SamplerHandle(7), smp)

	assert.True(t, s.IsDirty())
}

func TestUniformStore_UnknownNameAndKindMismatch(t *testing.T) {
	s := NewUniformStore(materialPacket(), texture.Builtins{})

	assert.False(t, s.SetVec4("missing", mgl32.Vec4{}))
	_, ok := s.Mat4("missing")
	assert.False(t, ok)
	assert.False(t, s.IsDirty())

	assert.Panics(t, func() { s.SetFloat("v4", 1) })
	assert.Panics(t, func() { s.Mat4("m3") })
	assert.Panics(t, func() { s.SetTexture("albedo_sampler", 1) })
	assert.Panics(t, func() { s.SetStruct("blob", make([]byte, 33)) })
}

func TestUniformStore_ResourceSettersDoNotDirty(t *testing.T) {
	s := NewUniformStore(materialPacket(), texture.Builtins{White: 1})

	assert.True(t, s.SetTexture("albedo_map", 1))
	assert.False(t, s.IsDirty())
	assert.True(t, s.SetTexture("albedo_map", 2))
	assert.False(t, s.IsDirty())
	assert.True(t, s.(*uniformStore).resourcesChanged)
}

func TestUniformStore_SyncWithoutSetWritesNothing(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	s := NewUniformStore(materialPacket(), res.Textures.Builtins())

	assert.Zero(t, s.Sync(res))
	assert.Zero(t, dev.WriteCount())
}

func TestUniformStore_SyncWritesDirtyValuesOnce(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	s := NewUniformStore(materialPacket(), res.Textures.Builtins())

	s.SetVec4("v4", mgl32.Vec4{1, 2, 3, 4})
	s.SetFloat("f", 2)
	assert.Equal(t, 2, s.Sync(res))
	assert.False(t, s.IsDirty())
	assert.Zero(t, s.Sync(res))

	view := s.(*uniformStore).values["v4"].View
	require.True(t, view.IsValid())
	data, ok := dev.LastWrite(view.Buffer, view.Offset)
	require.True(t, ok)
	want := make([]byte, 16)
	common.PutFloats(want, 1, 2, 3, 4)
	assert.Equal(t, want, data)

	s.SetVec4("v4", mgl32.Vec4{5, 6, 7, 8})
	assert.Equal(t, 1, s.Sync(res))
	assert.Equal(t, view, s.(*uniformStore).values["v4"].View)
	assert.Equal(t, 2, res.Allocator.Stats().Allocations)
}

func TestUniformStore_SyncMaterializesResources(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	s := NewUniformStore(materialPacket(), res.Textures.Builtins())

	s.SetFloat("f", 1)
	s.Sync(res)

	_, ok := res.Textures.TextureView(res.Textures.Builtins().White)
	assert.True(t, ok)
	_, ok = res.Textures.Sampler(texture.InvalidSampler)
	assert.True(t, ok)
}

func TestUniformStore_GetBindGroupIsCached(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	packet := materialPacket()
	s := NewUniformStore(packet, res.Textures.Builtins())

	s.SetVec4("v4", mgl32.Vec4{1, 1, 1, 1})
	s.Sync(res)
	first := s.GetBindGroup(res, packet)
	require.NotEqual(t, device.InvalidBindGroup, first)
	assert.Len(t, dev.BindGroups[first].Entries, 11)
	assert.False(t, s.NeedsBindGroup())

	assert.Equal(t, first, s.GetBindGroup(res, packet))

	s.SetVec4("v4", mgl32.Vec4{2, 2, 2, 2})
	s.Sync(res)
	assert.Equal(t, first, s.GetBindGroup(res, packet))

	s.SetTexture("albedo_map", res.Textures.Builtins().White)
	assert.False(t, s.NeedsBindGroup())

	img := res.Textures.AddTexture(common.TextureStagingData{Label: "red", Pixels: []byte{255, 0, 0, 255}, Width: 1, Height: 1})
	s.SetTexture("albedo_map", img)
	assert.True(t, s.NeedsBindGroup())

	second := s.GetBindGroup(res, packet)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, dev.LiveBindGroups())
	assert.Equal(t, 2, res.BindGroups.Built())
}

func TestUniformStore_GetBindGroupBeforeSyncUploadsDefaults(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	packet := materialPacket()
	s := NewUniformStore(packet, res.Textures.Builtins())

	id := s.GetBindGroup(res, packet)
	require.NotEqual(t, device.InvalidBindGroup, id)

	view := s.(*uniformStore).values["m4"].View
	data, ok := dev.LastWrite(view.Buffer, view.Offset)
	require.True(t, ok)
	assert.Equal(t, common.Mat4Bytes(mgl32.Ident4()), data)
	assert.False(t, s.NeedsBindGroup())
}

func TestUniformStore_GetBindGroupSettlesDirtyFlag(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	packet := materialPacket()
	s := NewUniformStore(packet, res.Textures.Builtins())

	s.SetFloat("f", 1)
	s.GetBindGroup(res, packet)
	assert.False(t, s.IsDirty(), "the bind-time upload leaves nothing to sync")
	assert.Zero(t, s.Sync(res))

	fresh := NewUniformStore(packet, res.Textures.Builtins())
	fresh.SetFloat("f", 1)
	fresh.Sync(res)
	fresh.SetFloat("f", 2)
	fresh.SetVec4("v4", mgl32.Vec4{1, 2, 3, 4})
	fresh.GetBindGroup(res, packet)
	assert.True(t, fresh.IsDirty(), "f already had storage, so only v4 was uploaded")
	assert.Equal(t, 1, fresh.Sync(res))
	assert.False(t, fresh.IsDirty())
}

func TestUniformStore_DefaultsMatchLayout(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	packet := shader.NewPropertyPacket(shader.TierScene)
	packet.Insert(shader.BindingDescriptor{
		Name: "shadow_map", Group: 3, Binding: 0, DataType: shader.DataTypeTexture,
		Visibility: wgpu.ShaderStageFragment, ViewDimension: wgpu.TextureViewDimension2D, SampleType: wgpu.TextureSampleTypeDepth,
	})
	packet.Insert(shader.BindingDescriptor{
		Name: "shadow_sampler", Group: 3, Binding: 1, DataType: shader.DataTypeSampler,
		Visibility: wgpu.ShaderStageFragment, Comparison: true,
	})
	packet.Insert(shader.BindingDescriptor{
		Name: "ids", Group: 3, Binding: 2, DataType: shader.DataTypeTexture,
		Visibility: wgpu.ShaderStageFragment, ViewDimension: wgpu.TextureViewDimension2DArray, SampleType: wgpu.TextureSampleTypeUint,
	})
	builtins := res.Textures.Builtins()
	s := NewUniformStore(packet, builtins)

	h, _ := s.Texture("shadow_map")
	assert.Equal(t, builtins.Depth.Flat, h)
	h, _ = s.Texture("ids")
	assert.Equal(t, builtins.Uint.Array, h)

	id := s.GetBindGroup(res, packet)
	require.NotEqual(t, device.InvalidBindGroup, id)

	formats := map[wgpu.TextureFormat]wgpu.TextureViewDimension{}
	for _, tex := range dev.Textures {
		formats[tex.Format] = tex.ViewDimension
	}
	assert.Equal(t, map[wgpu.TextureFormat]wgpu.TextureViewDimension{
		wgpu.TextureFormatDepth16Unorm: wgpu.TextureViewDimension2D,
		wgpu.TextureFormatRGBA8Uint:    wgpu.TextureViewDimension2DArray,
	}, formats)

	require.Len(t, dev.Samplers, 1)
	for _, smp := range dev.Samplers {
		assert.Equal(t, wgpu.CompareFunctionLess, smp.Compare)
	}
}

func TestUniformStore_Release(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	packet := materialPacket()
	s := NewUniformStore(packet, res.Textures.Builtins())

	s.SetFloat("f", 3)
	s.Sync(res)
	s.GetBindGroup(res, packet)

	s.Release(res)
	assert.Zero(t, dev.LiveBindGroups())
	assert.Zero(t, res.Allocator.Stats().Allocations)
	assert.Equal(t, device.InvalidBindGroup, s.BindGroup())
	assert.True(t, s.IsDirty())

	f, _ := s.Float("f")
	assert.Equal(t, float32(3), f)
}

func TestUniformStore_MarkResourcesChanged(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	packet := materialPacket()
	s := NewUniformStore(packet, res.Textures.Builtins())

	first := s.GetBindGroup(res, packet)
	s.MarkResourcesChanged()
	assert.True(t, s.NeedsBindGroup())
	assert.NotEqual(t, first, s.GetBindGroup(res, packet))
}

func TestUniformStore_CopyFrom(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	builtins := res.Textures.Builtins()

	src := NewUniformStore(materialPacket(), builtins)
	src.SetFloat("f", 2)
	src.SetMat4("m4", mgl32.Scale3D(2, 2, 2))
	src.SetStruct("blob", []byte{1, 2, 3})
	custom := res.Textures.AddImage("custom", image.NewRGBA(image.Rect(0, 0, 2, 2)), false)
	src.SetTexture("albedo_map", custom)

	// The destination keeps f and albedo_map, turns v4 into a float and shrinks blob.
	p := shader.NewPropertyPacket(shader.TierMaterial)
	p.Insert(buffer("f", 0, shader.DataTypeFloat, 4))
	p.Insert(buffer("v4", 1, shader.DataTypeFloat, 4))
	p.Insert(buffer("m4", 2, shader.DataTypeMat4, 64))
	p.Insert(buffer("blob", 3, shader.DataTypeStruct, 16))
	p.Insert(shader.BindingDescriptor{
		Name: "albedo_map", Group: 0, Binding: 4, DataType: shader.DataTypeTexture,
		Visibility: wgpu.ShaderStageFragment, ViewDimension: wgpu.TextureViewDimension2D, SampleType: wgpu.TextureSampleTypeFloat,
	})
	dst := NewUniformStore(p, builtins)

	assert.Equal(t, 3, dst.CopyFrom(src))
	f, _ := dst.Float("f")
	assert.Equal(t, float32(2), f)
	m, _ := dst.Mat4("m4")
	assert.Equal(t, mgl32.Scale3D(2, 2, 2), m)
	blob, _ := dst.Struct("blob")
	assert.Equal(t, make([]byte, 16), blob, "a struct of another size is not copied")
	tex, _ := dst.Texture("albedo_map")
	assert.Equal(t, custom, tex)
	assert.True(t, dst.IsDirty())
	assert.True(t, dst.NeedsBindGroup())

	assert.Zero(t, dst.CopyFrom(dst))
}
