package pipeline

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// RenderQueue orders draws. Lower queues are submitted first.
type RenderQueue int32

const (
	QueueBackground  RenderQueue = 1000
	QueueOpaque      RenderQueue = 2000
	QueueAlphaTest   RenderQueue = 2450
	QueueTransparent RenderQueue = 3000
	QueueOverlay     RenderQueue = 4000
)

// RenderState is the fixed-function state a material draws with. It is part of pipeline
// identity: two materials sharing a shader but differing in any field get distinct pipelines.
//
// The zero value is not usable; construct one with NewRenderState.
type RenderState struct {
	CullMode            wgpu.CullMode
	Topology            wgpu.PrimitiveTopology
	FrontFace           wgpu.FrontFace
	Queue               RenderQueue
	DepthTestEnabled    bool
	DepthWriteEnabled   bool
	DepthBias           int32
	DepthBiasSlopeScale float32
	BlendEnabled        bool
	BlendState          wgpu.BlendState
	WriteMask           wgpu.ColorWriteMask
}

// NewRenderState creates a RenderState with opaque, depth-tested defaults and applies the options.
//
// Parameters:
//   - options: functional options overriding the defaults
//
// Returns:
//   - RenderState: the configured state
func NewRenderState(options ...RenderStateBuilderOption) RenderState {
	rs := RenderState{
		CullMode:          wgpu.CullModeNone,
		Topology:          wgpu.PrimitiveTopologyTriangleList,
		FrontFace:         wgpu.FrontFaceCCW,
		Queue:             QueueOpaque,
		DepthTestEnabled:  true,
		DepthWriteEnabled: true,
		WriteMask:         wgpu.ColorWriteMaskAll,
		BlendState:        AlphaBlend,
	}
	for _, opt := range options {
		opt(&rs)
	}
	return rs
}

// AlphaBlend is standard source-over alpha blending.
var AlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
	},
	Alpha: wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
	},
}

// AdditiveBlend adds source color onto the destination.
var AdditiveBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOne,
	},
	Alpha: wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
	},
}

// Bytes serializes every field in a fixed order. Equal states always produce equal bytes.
//
// Returns:
//   - []byte: the canonical encoding of the state
func (rs RenderState) Bytes() []byte {
	buf := make([]byte, 0, 64)
	u32 := func(v uint32) { buf = binary.LittleEndian.AppendUint32(buf, v) }
	flag := func(b bool) {
		if b {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	component := func(c wgpu.BlendComponent) {
		u32(uint32(c.Operation))
		u32(uint32(c.SrcFactor))
		u32(uint32(c.DstFactor))
	}

	u32(uint32(rs.CullMode))
	u32(uint32(rs.Topology))
	u32(uint32(rs.FrontFace))
	u32(uint32(rs.Queue))
	flag(rs.DepthTestEnabled)
	flag(rs.DepthWriteEnabled)
	u32(uint32(rs.DepthBias))
	u32(math.Float32bits(rs.DepthBiasSlopeScale))
	flag(rs.BlendEnabled)
	if rs.BlendEnabled {
		component(rs.BlendState.Color)
		component(rs.BlendState.Alpha)
	}
	u32(uint32(rs.WriteMask))
	return buf
}

// Primitive returns the primitive state the pipeline is created with.
func (rs RenderState) Primitive() wgpu.PrimitiveState {
	return wgpu.PrimitiveState{
		Topology:  rs.Topology,
		FrontFace: rs.FrontFace,
		CullMode:  rs.CullMode,
	}
}

// Blend returns the blend state, or nil when blending is disabled.
func (rs RenderState) Blend() *wgpu.BlendState {
	if !rs.BlendEnabled {
		return nil
	}
	b := rs.BlendState
	return &b
}

// DepthCompare returns Less when depth testing is enabled and Always otherwise.
func (rs RenderState) DepthCompare() wgpu.CompareFunction {
	if rs.DepthTestEnabled {
		return wgpu.CompareFunctionLess
	}
	return wgpu.CompareFunctionAlways
}

// ParseCullMode parses "none", "front" or "back".
//
// Parameters:
//   - s: the cull mode name, case-insensitive
//
// Returns:
//   - wgpu.CullMode: the parsed mode
//   - error: an error if s names no cull mode
func ParseCullMode(s string) (wgpu.CullMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return wgpu.CullModeNone, nil
	case "front":
		return wgpu.CullModeFront, nil
	case "back":
		return wgpu.CullModeBack, nil
	}
	return wgpu.CullModeNone, fmt.Errorf("pipeline: unknown cull mode %q", s)
}

// ParsePolygonMode maps a polygon mode name onto a primitive topology. WebGPU has no
// rasterizer polygon mode, so "line" and "point" draw the mesh as line or point lists.
//
// Parameters:
//   - s: "fill", "line" or "point", case-insensitive
//
// Returns:
//   - wgpu.PrimitiveTopology: the topology for the mode
//   - error: an error if s names no polygon mode
func ParsePolygonMode(s string) (wgpu.PrimitiveTopology, error) {
	switch strings.ToLower(s) {
	case "", "fill":
		return wgpu.PrimitiveTopologyTriangleList, nil
	case "line":
		return wgpu.PrimitiveTopologyLineList, nil
	case "point":
		return wgpu.PrimitiveTopologyPointList, nil
	}
	return wgpu.PrimitiveTopologyTriangleList, fmt.Errorf("pipeline: unknown polygon mode %q", s)
}

// ParseQueue parses a queue name ("background", "opaque", "alpha_test", "transparent",
// "overlay").
//
// Parameters:
//   - s: the queue name, case-insensitive
//
// Returns:
//   - RenderQueue: the parsed queue
//   - error: an error if s names no queue
func ParseQueue(s string) (RenderQueue, error) {
	switch strings.ToLower(s) {
	case "background":
		return QueueBackground, nil
	case "", "opaque", "geometry":
		return QueueOpaque, nil
	case "alpha_test", "alphatest":
		return QueueAlphaTest, nil
	case "transparent":
		return QueueTransparent, nil
	case "overlay":
		return QueueOverlay, nil
	}
	return QueueOpaque, fmt.Errorf("pipeline: unknown render queue %q", s)
}

// ParseBlend parses "none", "alpha" or "additive".
//
// Parameters:
//   - s: the blend mode name, case-insensitive
//
// Returns:
//   - bool: whether blending is enabled
//   - wgpu.BlendState: the blend state, AlphaBlend when disabled
//   - error: an error if s names no blend mode
func ParseBlend(s string) (bool, wgpu.BlendState, error) {
	switch strings.ToLower(s) {
	case "", "none", "opaque":
		return false, AlphaBlend, nil
	case "alpha":
		return true, AlphaBlend, nil
	case "additive":
		return true, AdditiveBlend, nil
	}
	return false, AlphaBlend, fmt.Errorf("pipeline: unknown blend mode %q", s)
}
