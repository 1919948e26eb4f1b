package uniform

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/allocator"
	bgp "github.com/Carmen-Shannon/oxy-bind/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
	"github.com/go-gl/mathgl/mgl32"
)

type uniformStore struct {
	values map[string]*UniformValue
	descs  map[string]shader.BindingDescriptor
	names  []string

	bindGroupIndex uint32
	bindGroup      device.BindGroupID

	// dirty is true iff at least one value is dirty.
	dirty bool
	// resourcesChanged is set when a texture or sampler handle changed, or when backing
	// storage was allocated after the bind group was built.
	resourcesChanged bool
}

// UniformStore holds the current value of every binding in one property packet.
// A store is owned by exactly one material or shared tier owner and is not safe for
// concurrent use.
type UniformStore interface {
	SetFloat(name string, v float32) bool
	SetVec2(name string, v mgl32.Vec2) bool
	SetVec3(name string, v mgl32.Vec3) bool
	SetVec4(name string, v mgl32.Vec4) bool
	SetIVec4(name string, v [4]int32) bool
	SetUVec4(name string, v [4]uint32) bool
	SetMat3(name string, v mgl32.Mat3) bool
	SetMat4(name string, v mgl32.Mat4) bool

	// SetStruct copies data into the struct value. Data shorter than the struct leaves the
	// remaining bytes zero; longer data panics.
	SetStruct(name string, data []byte) bool

	// SetTexture and SetSampler replace a resource handle. They never mark the store dirty;
	// a changed handle schedules a bind group rebuild instead.
	SetTexture(name string, h texture.TextureHandle) bool
	SetSampler(name string, h texture.SamplerHandle) bool

	Float(name string) (float32, bool)
	Vec2(name string) (mgl32.Vec2, bool)
	Vec3(name string) (mgl32.Vec3, bool)
	Vec4(name string) (mgl32.Vec4, bool)
	IVec4(name string) ([4]int32, bool)
	UVec4(name string) ([4]uint32, bool)
	Mat3(name string) (mgl32.Mat3, bool)
	Mat4(name string) (mgl32.Mat4, bool)
	Struct(name string) ([]byte, bool)
	Texture(name string) (texture.TextureHandle, bool)
	Sampler(name string) (texture.SamplerHandle, bool)

	// Kind returns the data type of a binding.
	Kind(name string) (shader.DataType, bool)

	// Descriptor returns the reflected descriptor of a binding.
	Descriptor(name string) (shader.BindingDescriptor, bool)

	// Names returns every binding name in binding order.
	Names() []string

	// BindGroupIndex returns the bind group index the store's packet occupies.
	BindGroupIndex() uint32

	// IsDirty reports whether any value awaits a write.
	IsDirty() bool

	// Sync writes every dirty value to its backing storage, allocating the storage on first
	// write, and makes sure every referenced texture and sampler exists on the GPU.
	// It does nothing when the store is clean.
	//
	// Parameters:
	//   - res: the collaborators to sync with
	//
	// Returns:
	//   - int: the number of buffer writes issued
	Sync(res Resources) int

	// GetBindGroup returns the cached bind group, building a new one if none exists or a
	// resource binding changed since the last call.
	//
	// Parameters:
	//   - res: the collaborators to build with
	//   - packet: the packet the store was created from
	//
	// Returns:
	//   - device.BindGroupID: the bind group
	GetBindGroup(res Resources, packet shader.PropertyPacket) device.BindGroupID

	// BindGroup returns the cached bind group without building one.
	BindGroup() device.BindGroupID

	// NeedsBindGroup reports whether the next GetBindGroup call will build a new bind group.
	NeedsBindGroup() bool

	// MarkResourcesChanged forces the next GetBindGroup call to rebuild.
	MarkResourcesChanged()

	// Release frees every backing view and the bind group. Values are kept and marked dirty
	// so the store can be synced again.
	Release(res Resources)

	// CopyFrom copies every value whose binding exists in src with the same name and kind.
	// Structs must also match in size, textures in view dimension and samplers in
	// comparison mode. Backing storage is not shared.
	//
	// Parameters:
	//   - src: the store to copy from
	//
	// Returns:
	//   - int: the number of values copied
	CopyFrom(src UniformStore) int
}

var _ UniformStore = &uniformStore{}

// NewUniformStore creates a store holding the default value of every binding in packet.
// A fresh store is clean: defaults are written when backing storage is first allocated.
//
// Parameters:
//   - packet: the property packet the store backs
//   - builtins: the fallback resources used for texture bindings
//
// Returns:
//   - UniformStore: the new store
func NewUniformStore(packet shader.PropertyPacket, builtins texture.Builtins) UniformStore {
	sorted := packet.Sorted()
	s := &uniformStore{
		values:         make(map[string]*UniformValue, len(sorted)),
		descs:          make(map[string]shader.BindingDescriptor, len(sorted)),
		names:          make([]string, 0, len(sorted)),
		bindGroupIndex: packet.BindGroupIndex(),
	}
	for _, d := range sorted {
		s.values[d.Name] = newValue(d, builtins)
		s.descs[d.Name] = d
		s.names = append(s.names, d.Name)
	}
	return s
}

// lookup returns the value for name, panicking if its kind is not want.
func (s *uniformStore) lookup(name string, want shader.DataType) (*UniformValue, bool) {
	v, ok := s.values[name]
	if !ok {
		return nil, false
	}
	if v.Kind != want {
		panic(fmt.Sprintf("uniform: %q holds %s, accessed as %s", name, v.Kind, want))
	}
	return v, true
}

// set applies fn to the value for name and marks it dirty.
func (s *uniformStore) set(name string, want shader.DataType, fn func(v *UniformValue)) bool {
	v, ok := s.lookup(name, want)
	if !ok {
		return false
	}
	fn(v)
	v.Dirty = true
	s.dirty = true
	return true
}

func (s *uniformStore) CopyFrom(src UniformStore) int {
	other, ok := src.(*uniformStore)
	if !ok || other == s {
		return 0
	}

	n := 0
	for _, name := range s.names {
		from, ok := other.values[name]
		to := s.values[name]
		if !ok || from.Kind != to.Kind {
			continue
		}
		switch to.Kind {
		case shader.DataTypeStruct:
			if len(from.Struct) != len(to.Struct) {
				continue
			}
			s.SetStruct(name, from.Struct)
		case shader.DataTypeTexture:
			if s.descs[name].ViewDimension != other.descs[name].ViewDimension {
				continue
			}
			s.SetTexture(name, from.Texture)
		case shader.DataTypeSampler:
			if s.descs[name].Comparison != other.descs[name].Comparison {
				continue
			}
			s.SetSampler(name, from.Sampler)
		default:
			s.set(name, to.Kind, func(v *UniformValue) {
				v.Float, v.Vec = from.Float, from.Vec
				v.IVec4, v.UVec4 = from.IVec4, from.UVec4
				v.Mat3, v.Mat4 = from.Mat3, from.Mat4
			})
		}
		n++
	}
	return n
}

func (s *uniformStore) SetFloat(name string, f float32) bool {
	return s.set(name, shader.DataTypeFloat, func(v *UniformValue) { v.Float = f })
}

func (s *uniformStore) SetVec2(name string, vec mgl32.Vec2) bool {
	return s.set(name, shader.DataTypeVec2, func(v *UniformValue) { v.Vec = vec.Vec4(0, 0) })
}

func (s *uniformStore) SetVec3(name string, vec mgl32.Vec3) bool {
	return s.set(name, shader.DataTypeVec3, func(v *UniformValue) { v.Vec = vec.Vec4(0) })
}

func (s *uniformStore) SetVec4(name string, vec mgl32.Vec4) bool {
	return s.set(name, shader.DataTypeVec4, func(v *UniformValue) { v.Vec = vec })
}

func (s *uniformStore) SetIVec4(name string, vec [4]int32) bool {
	return s.set(name, shader.DataTypeIVec4, func(v *UniformValue) { v.IVec4 = vec })
}

func (s *uniformStore) SetUVec4(name string, vec [4]uint32) bool {
	return s.set(name, shader.DataTypeUVec4, func(v *UniformValue) { v.UVec4 = vec })
}

func (s *uniformStore) SetMat3(name string, m mgl32.Mat3) bool {
	return s.set(name, shader.DataTypeMat3, func(v *UniformValue) { v.Mat3 = m })
}

func (s *uniformStore) SetMat4(name string, m mgl32.Mat4) bool {
	return s.set(name, shader.DataTypeMat4, func(v *UniformValue) { v.Mat4 = m })
}

func (s *uniformStore) SetStruct(name string, data []byte) bool {
	return s.set(name, shader.DataTypeStruct, func(v *UniformValue) {
		if len(data) > len(v.Struct) {
			panic(fmt.Sprintf("uniform: struct %q is %d bytes, got %d", name, len(v.Struct), len(data)))
		}
		n := copy(v.Struct, data)
		clear(v.Struct[n:])
	})
}

func (s *uniformStore) SetTexture(name string, h texture.TextureHandle) bool {
	v, ok := s.lookup(name, shader.DataTypeTexture)
	if !ok {
		return false
	}
	if v.Texture != h {
		v.Texture = h
		s.resourcesChanged = true
	}
	return true
}

func (s *uniformStore) SetSampler(name string, h texture.SamplerHandle) bool {
	v, ok := s.lookup(name, shader.DataTypeSampler)
	if !ok {
		return false
	}
	if v.Sampler != h {
		v.Sampler = h
		s.resourcesChanged = true
	}
	return true
}

func (s *uniformStore) Float(name string) (float32, bool) {
	v, ok := s.lookup(name, shader.DataTypeFloat)
	if !ok {
		return 0, false
	}
	return v.Float, true
}

func (s *uniformStore) Vec2(name string) (mgl32.Vec2, bool) {
	v, ok := s.lookup(name, shader.DataTypeVec2)
	if !ok {
		return mgl32.Vec2{}, false
	}
	return v.Vec.Vec2(), true
}

func (s *uniformStore) Vec3(name string) (mgl32.Vec3, bool) {
	v, ok := s.lookup(name, shader.DataTypeVec3)
	if !ok {
		return mgl32.Vec3{}, false
	}
	return v.Vec.Vec3(), true
}

func (s *uniformStore) Vec4(name string) (mgl32.Vec4, bool) {
	v, ok := s.lookup(name, shader.DataTypeVec4)
	if !ok {
		return mgl32.Vec4{}, false
	}
	return v.Vec, true
}

func (s *uniformStore) IVec4(name string) ([4]int32, bool) {
	v, ok := s.lookup(name, shader.DataTypeIVec4)
	if !ok {
		return [4]int32{}, false
	}
	return v.IVec4, true
}

func (s *uniformStore) UVec4(name string) ([4]uint32, bool) {
	v, ok := s.lookup(name, shader.DataTypeUVec4)
	if !ok {
		return [4]uint32{}, false
	}
	return v.UVec4, true
}

func (s *uniformStore) Mat3(name string) (mgl32.Mat3, bool) {
	v, ok := s.lookup(name, shader.DataTypeMat3)
	if !ok {
		return mgl32.Mat3{}, false
	}
	return v.Mat3, true
}

func (s *uniformStore) Mat4(name string) (mgl32.Mat4, bool) {
	v, ok := s.lookup(name, shader.DataTypeMat4)
	if !ok {
		return mgl32.Mat4{}, false
	}
	return v.Mat4, true
}

func (s *uniformStore) Struct(name string) ([]byte, bool) {
	v, ok := s.lookup(name, shader.DataTypeStruct)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v.Struct...), true
}

func (s *uniformStore) Texture(name string) (texture.TextureHandle, bool) {
	v, ok := s.lookup(name, shader.DataTypeTexture)
	if !ok {
		return texture.InvalidTexture, false
	}
	return v.Texture, true
}

func (s *uniformStore) Sampler(name string) (texture.SamplerHandle, bool) {
	v, ok := s.lookup(name, shader.DataTypeSampler)
	if !ok {
		return texture.InvalidSampler, false
	}
	return v.Sampler, true
}

func (s *uniformStore) Kind(name string) (shader.DataType, bool) {
	v, ok := s.values[name]
	if !ok {
		return 0, false
	}
	return v.Kind, true
}

func (s *uniformStore) Descriptor(name string) (shader.BindingDescriptor, bool) {
	d, ok := s.descs[name]
	return d, ok
}

func (s *uniformStore) Names() []string {
	return append([]string(nil), s.names...)
}

func (s *uniformStore) BindGroupIndex() uint32 {
	return s.bindGroupIndex
}

func (s *uniformStore) IsDirty() bool {
	return s.dirty
}

func (s *uniformStore) Sync(res Resources) int {
	if !s.dirty {
		return 0
	}

	writes := 0
	for _, name := range s.names {
		v := s.values[name]
		switch v.Kind {
		case shader.DataTypeTexture:
			if err := res.Textures.EnsureGPUTextureValid(v.boundTexture(res.Textures.Builtins())); err != nil {
				common.Logger().Warn("uniform: texture not available", "name", name, "error", err)
			}
		case shader.DataTypeSampler:
			if err := res.Textures.EnsureGPUSamplerValid(v.boundSampler(res.Textures.Builtins())); err != nil {
				common.Logger().Warn("uniform: sampler not available", "name", name, "error", err)
			}
		case shader.DataTypeFloat, shader.DataTypeVec2, shader.DataTypeVec3, shader.DataTypeVec4,
			shader.DataTypeIVec4, shader.DataTypeUVec4, shader.DataTypeMat3, shader.DataTypeMat4,
			shader.DataTypeStruct:
			if !v.Dirty {
				continue
			}
			s.write(res, name, v)
			writes++
		}
	}
	s.dirty = false
	return writes
}

// write copies v into its backing storage, allocating the storage first if needed, and
// clears the value's dirty flag.
func (s *uniformStore) write(res Resources, name string, v *UniformValue) {
	if !v.View.IsValid() {
		if v.space == shader.AddressSpaceUniform {
			v.View = res.Allocator.AllocateUniformBuffer(v.Size())
		} else {
			v.View = res.Allocator.AllocateStorageBuffer(v.Size())
		}
		if s.bindGroup != device.InvalidBindGroup {
			s.resourcesChanged = true
		}
	}
	if err := res.Allocator.WriteData(v.View, v.Bytes()); err != nil {
		panic(fmt.Sprintf("uniform: failed to write %q: %v", name, err))
	}
	v.Dirty = false
}

// entrySource resolves bind group entries from the store's values.
type entrySource struct {
	store *uniformStore
	res   Resources
}

func (e entrySource) BindGroupEntry(d shader.BindingDescriptor) (device.BindGroupEntry, bool) {
	v, ok := e.store.values[d.Name]
	if !ok {
		return device.BindGroupEntry{}, false
	}
	switch v.Kind {
	case shader.DataTypeTexture:
		h := v.boundTexture(e.res.Textures.Builtins())
		if err := e.res.Textures.EnsureGPUTextureValid(h); err != nil {
			common.Logger().Warn("uniform: texture not available", "name", d.Name, "error", err)
			return device.BindGroupEntry{}, false
		}
		view, ok := e.res.Textures.TextureView(h)
		return device.BindGroupEntry{Binding: d.Binding, TextureView: view}, ok
	case shader.DataTypeSampler:
		h := v.boundSampler(e.res.Textures.Builtins())
		if err := e.res.Textures.EnsureGPUSamplerValid(h); err != nil {
			common.Logger().Warn("uniform: sampler not available", "name", d.Name, "error", err)
			return device.BindGroupEntry{}, false
		}
		smp, ok := e.res.Textures.Sampler(h)
		return device.BindGroupEntry{Binding: d.Binding, Sampler: smp}, ok
	case shader.DataTypeFloat, shader.DataTypeVec2, shader.DataTypeVec3, shader.DataTypeVec4,
		shader.DataTypeIVec4, shader.DataTypeUVec4, shader.DataTypeMat3, shader.DataTypeMat4,
		shader.DataTypeStruct:
		if !v.View.IsValid() {
			// Never synced: allocate now and upload the default value.
			e.store.write(e.res, d.Name, v)
		}
		return bgp.BufferEntry(d.Binding, v.View), true
	default:
		return device.BindGroupEntry{}, false
	}
}

func (s *uniformStore) GetBindGroup(res Resources, packet shader.PropertyPacket) device.BindGroupID {
	rebuild := s.resourcesChanged
	s.bindGroup = res.BindGroups.Provide(packet, entrySource{store: s, res: res}, s.bindGroup, rebuild)
	s.resourcesChanged = false
	// Building entries uploads never-synced values and clears their dirty flags.
	s.dirty = s.anyDirty()
	return s.bindGroup
}

func (s *uniformStore) anyDirty() bool {
	for _, v := range s.values {
		if v.Dirty {
			return true
		}
	}
	return false
}

func (s *uniformStore) BindGroup() device.BindGroupID {
	return s.bindGroup
}

func (s *uniformStore) NeedsBindGroup() bool {
	return s.bindGroup == device.InvalidBindGroup || s.resourcesChanged
}

func (s *uniformStore) MarkResourcesChanged() {
	s.resourcesChanged = true
}

func (s *uniformStore) Release(res Resources) {
	for _, v := range s.values {
		if v.View.IsValid() {
			res.Allocator.Free(v.View)
			v.View = allocator.BufferView{}
		}
		if !v.Kind.IsResource() {
			v.Dirty = true
			s.dirty = true
		}
	}
	if s.bindGroup != device.InvalidBindGroup {
		res.BindGroups.Release(s.bindGroup)
		s.bindGroup = device.InvalidBindGroup
	}
	s.resourcesChanged = false
}
