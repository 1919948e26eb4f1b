// Package device defines the graphics device collaborator used by the binding engine.
//
// Every GPU object is owned by the device and referenced by an opaque integer handle.
// The zero value of every handle type is the invalid sentinel, so freshly constructed
// structs never alias a live GPU object.
package device

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// LayoutID identifies a bind group layout owned by a Device.
type LayoutID uint32

// BindGroupID identifies a bind group owned by a Device.
type BindGroupID uint32

// BufferID identifies a GPU buffer owned by a Device.
type BufferID uint32

// TextureID identifies a GPU texture owned by a Device.
type TextureID uint32

// TextureViewID identifies a texture view owned by a Device.
type TextureViewID uint32

// SamplerID identifies a sampler owned by a Device.
type SamplerID uint32

// ShaderModuleID identifies a compiled shader module owned by a Device.
type ShaderModuleID uint32

// PipelineLayoutID identifies a pipeline layout owned by a Device.
type PipelineLayoutID uint32

// PipelineID identifies a render pipeline owned by a Device.
type PipelineID uint32

const (
	InvalidLayout         LayoutID         = 0
	InvalidBindGroup      BindGroupID      = 0
	InvalidBuffer         BufferID         = 0
	InvalidTexture        TextureID        = 0
	InvalidTextureView    TextureViewID    = 0
	InvalidSampler        SamplerID        = 0
	InvalidShaderModule   ShaderModuleID   = 0
	InvalidPipelineLayout PipelineLayoutID = 0
	InvalidPipeline       PipelineID       = 0
)

// ErrUnknownHandle is returned when a handle does not name a live object.
var ErrUnknownHandle = errors.New("device: unknown handle")

// ErrNoSurface is returned by frame operations on a device created without a surface.
var ErrNoSurface = errors.New("device: no surface configured")

// BindGroupEntry is one resolved binding of a bind group. Exactly one of Buffer,
// TextureView or Sampler is set.
type BindGroupEntry struct {
	Binding     uint32
	Buffer      BufferID
	Offset      uint64
	Size        uint64
	TextureView TextureViewID
	Sampler     SamplerID
}

// TextureDescriptor describes a sampled texture to create.
type TextureDescriptor struct {
	Label         string
	Width, Height uint32
	// Layers is the number of array layers (6 for cube maps).
	Layers        uint32
	MipLevels     uint32
	Format        wgpu.TextureFormat
	ViewDimension wgpu.TextureViewDimension
}

// RenderPipelineDescriptor describes a render pipeline using a single shader module
// holding both the vertex and the fragment entry points.
type RenderPipelineDescriptor struct {
	Label              string
	Layout             PipelineLayoutID
	Module             ShaderModuleID
	VertexEntryPoint   string
	FragmentEntryPoint string
	VertexBuffers      []wgpu.VertexBufferLayout
	Primitive          wgpu.PrimitiveState
	ColorFormat        wgpu.TextureFormat
	Blend              *wgpu.BlendState
	WriteMask          wgpu.ColorWriteMask
	DepthFormat        wgpu.TextureFormat
	DepthWriteEnabled  bool
	DepthCompare       wgpu.CompareFunction
	DepthBias          int32
	DepthBiasSlope     float32
	SampleCount        uint32
}

// Device is the graphics-context collaborator. Creation calls return an error on
// failure; callers in the binding engine treat those errors as fatal.
type Device interface {
	// CreateBindGroupLayout creates a bind group layout from native layout entries.
	//
	// Parameters:
	//   - label: debug label
	//   - entries: one entry per binding
	//
	// Returns:
	//   - LayoutID: handle to the new layout
	//   - error: an error if the device rejected the layout
	CreateBindGroupLayout(label string, entries []wgpu.BindGroupLayoutEntry) (LayoutID, error)

	// ReleaseBindGroupLayout releases a layout. Unknown handles are ignored.
	ReleaseBindGroupLayout(id LayoutID)

	// CreateBindGroup creates a bind group against a layout from resolved entries.
	//
	// Parameters:
	//   - label: debug label
	//   - layout: the layout the group conforms to
	//   - entries: resolved resources keyed by binding
	//
	// Returns:
	//   - BindGroupID: handle to the new bind group
	//   - error: an error if a handle is unknown or the device rejected the group
	CreateBindGroup(label string, layout LayoutID, entries []BindGroupEntry) (BindGroupID, error)

	// ReleaseBindGroup releases a bind group. Unknown handles are ignored.
	ReleaseBindGroup(id BindGroupID)

	// CreateBuffer creates a GPU buffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: buffer size in bytes
	//   - usage: wgpu buffer usage flags
	//
	// Returns:
	//   - BufferID: handle to the new buffer
	//   - error: an error if allocation failed
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (BufferID, error)

	// WriteBuffer queues a write of data into buf at offset.
	//
	// Returns:
	//   - error: ErrUnknownHandle if buf is not live
	WriteBuffer(buf BufferID, offset uint64, data []byte) error

	// ReleaseBuffer releases a buffer. Unknown handles are ignored.
	ReleaseBuffer(id BufferID)

	// CreateShaderModule compiles WGSL source into a shader module.
	CreateShaderModule(label, wgsl string) (ShaderModuleID, error)

	// ReleaseShaderModule releases a shader module. Unknown handles are ignored.
	ReleaseShaderModule(id ShaderModuleID)

	// CreateTexture creates a sampled texture and its default view.
	CreateTexture(desc TextureDescriptor) (TextureID, TextureViewID, error)

	// WriteTexture uploads every layer of one mip level. pixels holds the layers back to back.
	WriteTexture(tex TextureID, mipLevel, width, height, layers uint32, pixels []byte) error

	// ReleaseTexture releases a texture and its default view. Unknown handles are ignored.
	ReleaseTexture(id TextureID)

	// CreateSampler creates a sampler from staging data. Zero fields fall back to linear/repeat defaults.
	CreateSampler(desc common.SamplerStagingData) (SamplerID, error)

	// ReleaseSampler releases a sampler. Unknown handles are ignored.
	ReleaseSampler(id SamplerID)

	// CreatePipelineLayout creates a pipeline layout where layouts[i] is bound at group i.
	CreatePipelineLayout(label string, layouts []LayoutID) (PipelineLayoutID, error)

	// ReleasePipelineLayout releases a pipeline layout. Unknown handles are ignored.
	ReleasePipelineLayout(id PipelineLayoutID)

	// CreateRenderPipeline creates a render pipeline.
	CreateRenderPipeline(desc RenderPipelineDescriptor) (PipelineID, error)

	// ReleaseRenderPipeline releases a render pipeline. Unknown handles are ignored.
	ReleaseRenderPipeline(id PipelineID)
}

// FrameEncoder records draw commands into the current frame's render pass.
// BeginFrame and EndFrame bracket every draw; Present displays the result.
type FrameEncoder interface {
	// ColorFormat returns the format of the color target draws are recorded against.
	ColorFormat() wgpu.TextureFormat
	// DepthFormat returns the format of the depth attachment.
	DepthFormat() wgpu.TextureFormat
	// SampleCount returns the MSAA sample count of the render pass.
	SampleCount() uint32

	BeginFrame() error
	SetPipeline(id PipelineID)
	SetBindGroup(index uint32, id BindGroupID)
	SetVertexBuffer(slot uint32, id BufferID)
	SetIndexBuffer(id BufferID)
	DrawIndexed(indexCount, instanceCount uint32)
	EndFrame() error
	Present()
}

// BufferUsageFor returns the buffer usage flags required to back a binding of the
// given buffer binding type.
//
// Parameters:
//   - t: the layout entry's buffer binding type
//
// Returns:
//   - wgpu.BufferUsage: usage flags including CopyDst
func BufferUsageFor(t wgpu.BufferBindingType) wgpu.BufferUsage {
	switch t {
	case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	default:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	}
}
