package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderState_Defaults(t *testing.T) {
	rs := NewRenderState()
	assert.Equal(t, wgpu.CullModeNone, rs.CullMode)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, rs.Topology)
	assert.Equal(t, wgpu.FrontFaceCCW, rs.FrontFace)
	assert.Equal(t, QueueOpaque, rs.Queue)
	assert.True(t, rs.DepthTestEnabled)
	assert.True(t, rs.DepthWriteEnabled)
	assert.False(t, rs.BlendEnabled)
	assert.Nil(t, rs.Blend())
	assert.Equal(t, wgpu.ColorWriteMaskAll, rs.WriteMask)
}

func TestRenderState_BytesStable(t *testing.T) {
	a := NewRenderState(WithCullMode(wgpu.CullModeBack))
	b := NewRenderState(WithCullMode(wgpu.CullModeBack))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestRenderState_BytesChangeWithEveryField(t *testing.T) {
	base := NewRenderState().Bytes()
	variants := map[string]RenderState{
		"cull":       NewRenderState(WithCullMode(wgpu.CullModeBack)),
		"topology":   NewRenderState(WithTopology(wgpu.PrimitiveTopologyLineList)),
		"front":      NewRenderState(WithFrontFace(wgpu.FrontFaceCW)),
		"queue":      NewRenderState(WithQueue(QueueTransparent)),
		"depthTest":  NewRenderState(WithDepthTestEnabled(false)),
		"depthWrite": NewRenderState(WithDepthWriteEnabled(false)),
		"bias":       NewRenderState(WithDepthBias(1, 0)),
		"blend":      NewRenderState(WithBlendEnabled(true)),
		"writeMask":  NewRenderState(WithWriteMask(wgpu.ColorWriteMaskRed)),
	}
	for name, rs := range variants {
		assert.NotEqual(t, base, rs.Bytes(), name)
	}

	alpha := NewRenderState(WithBlendState(AlphaBlend)).Bytes()
	additive := NewRenderState(WithBlendState(AdditiveBlend)).Bytes()
	assert.NotEqual(t, alpha, additive)
}

func TestParsers(t *testing.T) {
	cull, err := ParseCullMode("Back")
	require.NoError(t, err)
	assert.Equal(t, wgpu.CullModeBack, cull)
	_, err = ParseCullMode("sideways")
	assert.Error(t, err)

	topo, err := ParsePolygonMode("line")
	require.NoError(t, err)
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, topo)
	_, err = ParsePolygonMode("wire")
	assert.Error(t, err)

	q, err := ParseQueue("transparent")
	require.NoError(t, err)
	assert.Equal(t, QueueTransparent, q)
	q, err = ParseQueue("")
	require.NoError(t, err)
	assert.Equal(t, QueueOpaque, q)
	_, err = ParseQueue("later")
	assert.Error(t, err)

	enabled, state, err := ParseBlend("additive")
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, AdditiveBlend, state)
	enabled, _, err = ParseBlend("none")
	require.NoError(t, err)
	assert.False(t, enabled)
	_, _, err = ParseBlend("multiply")
	assert.Error(t, err)
}
