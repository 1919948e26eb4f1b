package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// RenderStateBuilderOption is a functional option used to configure a RenderState during construction.
type RenderStateBuilderOption func(*RenderState)

// WithDepthTestEnabled sets whether depth testing is enabled.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - RenderStateBuilderOption: a function that sets the depth test enabled state
func WithDepthTestEnabled(enabled bool) RenderStateBuilderOption {
	return func(rs *RenderState) {
		rs.DepthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - RenderStateBuilderOption: a function that sets the depth write enabled state
func WithDepthWriteEnabled(enabled bool) RenderStateBuilderOption {
	return func(rs *RenderState) {
		rs.DepthWriteEnabled = enabled
	}
}

// WithDepthBias sets the depth bias parameters.
//
// Parameters:
//   - bias: the constant depth bias to apply
//   - slopeScale: the slope scale depth bias to apply
//
// Returns:
//   - RenderStateBuilderOption: a function that sets the depth bias parameters
func WithDepthBias(bias int32, slopeScale float32) RenderStateBuilderOption {
	return func(rs *RenderState) {
		rs.DepthBias = bias
		rs.DepthBiasSlopeScale = slopeScale
	}
}

// WithBlendEnabled sets whether blending is enabled. The blend state defaults to AlphaBlend.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - RenderStateBuilderOption: a function that sets the blend enabled state
func WithBlendEnabled(enabled bool) RenderStateBuilderOption {
	return func(rs *RenderState) {
		rs.BlendEnabled = enabled
	}
}

// WithBlendState enables blending with the given state.
//
// Parameters:
//   - blendState: the blend state to use (e.g., pipeline.AlphaBlend, pipeline.AdditiveBlend)
//
// Returns:
//   - RenderStateBuilderOption: a function that sets the blend state
func WithBlendState(blendState wgpu.BlendState) RenderStateBuilderOption {
	return func(rs *RenderState) {
		rs.BlendEnabled = true
		rs.BlendState = blendState
	}
}

// WithCullMode sets the cull mode.
//
// Parameters:
//   - mode: the cull mode (e.g., wgpu.CullModeNone, wgpu.CullModeFront, wgpu.CullModeBack)
//
// Returns:
//   - RenderStateBuilderOption: a function that sets the cull mode
func WithCullMode(mode wgpu.CullMode) RenderStateBuilderOption {
	return func(rs *RenderState) {
		rs.CullMode = mode
	}
}

// WithTopology sets the primitive topology.
//
// Parameters:
//   - topology: the primitive topology (e.g., wgpu.PrimitiveTopologyTriangleList, wgpu.PrimitiveTopologyLineList)
//
// Returns:
//   - RenderStateBuilderOption: a function that sets the primitive topology
func WithTopology(topology wgpu.PrimitiveTopology) RenderStateBuilderOption {
	return func(rs *RenderState) {
		rs.Topology = topology
	}
}

// WithFrontFace sets the front face winding order.
//
// Parameters:
//   - frontFace: the front face (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - RenderStateBuilderOption: a function that sets the front face
func WithFrontFace(frontFace wgpu.FrontFace) RenderStateBuilderOption {
	return func(rs *RenderState) {
		rs.FrontFace = frontFace
	}
}

// WithWriteMask sets the color write mask.
//
// Parameters:
//   - writeMask: the color write mask (e.g., wgpu.ColorWriteMaskAll, wgpu.ColorWriteMaskRed)
//
// Returns:
//   - RenderStateBuilderOption: a function that sets the color write mask
func WithWriteMask(writeMask wgpu.ColorWriteMask) RenderStateBuilderOption {
	return func(rs *RenderState) {
		rs.WriteMask = writeMask
	}
}

// WithQueue sets the render queue.
//
// Parameters:
//   - queue: the queue the material draws in (e.g., pipeline.QueueOpaque, pipeline.QueueTransparent)
//
// Returns:
//   - RenderStateBuilderOption: a function that sets the render queue
func WithQueue(queue RenderQueue) RenderStateBuilderOption {
	return func(rs *RenderState) {
		rs.Queue = queue
	}
}
