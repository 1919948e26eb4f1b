package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// DataType is the closed set of value kinds a reflected binding can hold.
type DataType int

const (
	DataTypeFloat DataType = iota + 1
	DataTypeVec2
	DataTypeVec3
	DataTypeVec4
	DataTypeIVec4
	DataTypeUVec4
	DataTypeMat3
	DataTypeMat4
	DataTypeStruct
	DataTypeTexture
	DataTypeSampler
)

var dataTypeNames = map[DataType]string{
	DataTypeFloat:   "float",
	DataTypeVec2:    "vec2",
	DataTypeVec3:    "vec3",
	DataTypeVec4:    "vec4",
	DataTypeIVec4:   "ivec4",
	DataTypeUVec4:   "uvec4",
	DataTypeMat3:    "mat3",
	DataTypeMat4:    "mat4",
	DataTypeStruct:  "struct",
	DataTypeTexture: "texture",
	DataTypeSampler: "sampler",
}

func (t DataType) String() string {
	if n, ok := dataTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// IsResource reports whether values of this type are bound by handle rather than written to a buffer.
func (t DataType) IsResource() bool {
	return t == DataTypeTexture || t == DataTypeSampler
}

// ByteSize returns the buffer footprint of fixed-size numeric types using WGSL uniform layout.
// Struct sizes come from the descriptor; resources have no footprint.
func (t DataType) ByteSize() uint64 {
	switch t {
	case DataTypeFloat:
		return 4
	case DataTypeVec2:
		return 8
	case DataTypeVec3:
		return 12
	case DataTypeVec4, DataTypeIVec4, DataTypeUVec4:
		return 16
	case DataTypeMat3:
		return 48
	case DataTypeMat4:
		return 64
	default:
		return 0
	}
}

// AddressSpace is where a buffer binding lives on the GPU.
type AddressSpace int

const (
	// AddressSpaceUniform is var<uniform>.
	AddressSpaceUniform AddressSpace = iota
	// AddressSpaceStorage is var<storage, read>.
	AddressSpaceStorage
	// AddressSpaceStorageReadWrite is var<storage, read_write>.
	AddressSpaceStorageReadWrite
	// AddressSpaceHandle holds textures and samplers.
	AddressSpaceHandle
)

// BufferBindingType returns the layout buffer type matching the address space.
func (a AddressSpace) BufferBindingType() wgpu.BufferBindingType {
	switch a {
	case AddressSpaceStorage:
		return wgpu.BufferBindingTypeReadOnlyStorage
	case AddressSpaceStorageReadWrite:
		return wgpu.BufferBindingTypeStorage
	default:
		return wgpu.BufferBindingTypeUniform
	}
}

// BindingDescriptor describes one global resource declared by a shader.
// Descriptors are produced by Reflect and never mutated afterward.
type BindingDescriptor struct {
	Name       string
	Group      uint32
	Binding    uint32
	DataType   DataType
	Visibility wgpu.ShaderStage

	AddressSpace AddressSpace

	// Size is the buffer footprint in bytes. Set for every non-resource type.
	Size uint64

	// ViewDimension, SampleType and Multisampled describe texture bindings.
	ViewDimension wgpu.TextureViewDimension
	SampleType    wgpu.TextureSampleType
	Multisampled  bool

	// Comparison marks a comparison sampler.
	Comparison bool
}

// LayoutEntry converts the descriptor to a native bind group layout entry.
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the entry for this binding
func (d BindingDescriptor) LayoutEntry() wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    d.Binding,
		Visibility: d.Visibility,
	}
	switch d.DataType {
	case DataTypeTexture:
		entry.Texture = wgpu.TextureBindingLayout{
			SampleType:    d.SampleType,
			ViewDimension: d.ViewDimension,
			Multisampled:  d.Multisampled,
		}
	case DataTypeSampler:
		entry.Sampler = wgpu.SamplerBindingLayout{
			Type: wgpu.SamplerBindingTypeFiltering,
		}
		if d.Comparison {
			entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
		}
	default:
		entry.Buffer = wgpu.BufferBindingLayout{
			Type:           d.AddressSpace.BufferBindingType(),
			MinBindingSize: d.Size,
		}
	}
	return entry
}
