package uniform

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/allocator"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// UniformValue is the current value of one binding. Kind selects which payload field is
// meaningful; the others stay zero. Non-resource values also carry their backing storage
// and a dirty flag.
type UniformValue struct {
	Kind shader.DataType

	Float float32
	// Vec holds Vec2, Vec3 and Vec4 payloads in its leading components.
	Vec   mgl32.Vec4
	IVec4 [4]int32
	UVec4 [4]uint32
	Mat3  mgl32.Mat3
	Mat4  mgl32.Mat4
	// Struct is sized to the reflected struct size.
	Struct []byte

	Texture texture.TextureHandle
	Sampler texture.SamplerHandle

	// View is the backing storage, allocated on first write.
	View  allocator.BufferView
	Dirty bool

	space shader.AddressSpace
	// viewDim, sampleType and comparison select the builtin a resource falls back to.
	viewDim    wgpu.TextureViewDimension
	sampleType wgpu.TextureSampleType
	comparison bool
}

// newValue builds the default value for a descriptor: zero for scalars, vectors and
// structs, identity for matrices, the builtin texture matching the binding's layout and
// the invalid sampler.
func newValue(d shader.BindingDescriptor, builtins texture.Builtins) *UniformValue {
	v := &UniformValue{
		Kind:       d.DataType,
		space:      d.AddressSpace,
		viewDim:    d.ViewDimension,
		sampleType: d.SampleType,
		comparison: d.Comparison,
	}
	switch d.DataType {
	case shader.DataTypeFloat, shader.DataTypeVec2, shader.DataTypeVec3, shader.DataTypeVec4,
		shader.DataTypeIVec4, shader.DataTypeUVec4:
	case shader.DataTypeMat3:
		v.Mat3 = mgl32.Ident3()
	case shader.DataTypeMat4:
		v.Mat4 = mgl32.Ident4()
	case shader.DataTypeStruct:
		v.Struct = make([]byte, d.Size)
	case shader.DataTypeTexture:
		v.Texture = builtins.DefaultTextureFor(d.ViewDimension, d.SampleType)
	case shader.DataTypeSampler:
		v.Sampler = texture.InvalidSampler
	default:
		panic(fmt.Sprintf("uniform: binding %q has unknown data type %v", d.Name, d.DataType))
	}
	return v
}

// boundTexture returns the texture bound for v, falling back to the builtin that fits its layout.
func (v *UniformValue) boundTexture(builtins texture.Builtins) texture.TextureHandle {
	if v.Texture != texture.InvalidTexture {
		return v.Texture
	}
	return builtins.DefaultTextureFor(v.viewDim, v.sampleType)
}

// boundSampler returns the sampler bound for v. Unset comparison samplers resolve to the
// builtin comparison sampler.
func (v *UniformValue) boundSampler(builtins texture.Builtins) texture.SamplerHandle {
	if v.Sampler != texture.InvalidSampler {
		return v.Sampler
	}
	return builtins.DefaultSampler(v.comparison)
}

// Size returns the number of bytes the value occupies in backing storage.
func (v *UniformValue) Size() uint64 {
	if v.Kind == shader.DataTypeStruct {
		return uint64(len(v.Struct))
	}
	return v.Kind.ByteSize()
}

// Bytes encodes the value with the WGSL uniform layout. Resources encode to nil.
//
// Returns:
//   - []byte: the encoded value
func (v *UniformValue) Bytes() []byte {
	switch v.Kind {
	case shader.DataTypeFloat:
		buf := make([]byte, 4)
		common.PutFloats(buf, v.Float)
		return buf
	case shader.DataTypeVec2:
		buf := make([]byte, 8)
		common.PutFloats(buf, v.Vec[0], v.Vec[1])
		return buf
	case shader.DataTypeVec3:
		buf := make([]byte, 12)
		common.PutFloats(buf, v.Vec[0], v.Vec[1], v.Vec[2])
		return buf
	case shader.DataTypeVec4:
		buf := make([]byte, 16)
		common.PutFloats(buf, v.Vec[:]...)
		return buf
	case shader.DataTypeIVec4:
		buf := make([]byte, 16)
		common.PutUints(buf, uint32(v.IVec4[0]), uint32(v.IVec4[1]), uint32(v.IVec4[2]), uint32(v.IVec4[3]))
		return buf
	case shader.DataTypeUVec4:
		buf := make([]byte, 16)
		common.PutUints(buf, v.UVec4[:]...)
		return buf
	case shader.DataTypeMat3:
		return common.Mat3Bytes(v.Mat3)
	case shader.DataTypeMat4:
		return common.Mat4Bytes(v.Mat4)
	case shader.DataTypeStruct:
		return v.Struct
	case shader.DataTypeTexture, shader.DataTypeSampler:
		return nil
	default:
		panic(fmt.Sprintf("uniform: cannot encode data type %v", v.Kind))
	}
}
