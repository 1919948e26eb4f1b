package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gapSource leaves group 1 unused.
const gapSource = `
@group(0) @binding(0) var<uniform> tint: vec4<f32>;
@group(2) @binding(0) var<uniform> _view_projection_matrix: mat4x4<f32>;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return _view_projection_matrix * vec4<f32>(position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return tint;
}
`

var target = Target{
	ColorFormat: wgpu.TextureFormatBGRA8UnormSrgb,
	DepthFormat: wgpu.TextureFormatDepth24Plus,
	SampleCount: 1,
}

func gapShader(t *testing.T) shader.Shader {
	t.Helper()
	s, err := shader.NewShader("gap", gapSource)
	require.NoError(t, err)
	return s
}

func TestCache_CreatesOncePerKey(t *testing.T) {
	dev := devicetest.NewRecorder()
	c := NewCache(dev)
	sh := gapShader(t)
	rs := NewRenderState()

	p1, err := c.GetOrCreate(sh, rs, 42, target)
	require.NoError(t, err)
	p2, err := c.GetOrCreate(sh, rs, 42, target)
	require.NoError(t, err)

	assert.Equal(t, p1.ID(), p2.ID())
	assert.Equal(t, 1, dev.PipelinesCreated)
	assert.Equal(t, 1, c.Built())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "gap", p1.ShaderKey())

	got, ok := c.Get(p1.Key())
	require.True(t, ok)
	assert.Equal(t, p1.ID(), got.ID())
}

func TestCache_DistinctKeys(t *testing.T) {
	dev := devicetest.NewRecorder()
	c := NewCache(dev)
	sh := gapShader(t)
	rs := NewRenderState()

	_, err := c.GetOrCreate(sh, rs, 1, target)
	require.NoError(t, err)
	_, err = c.GetOrCreate(sh, rs, 2, target)
	require.NoError(t, err)

	msaa := target
	msaa.SampleCount = 4
	_, err = c.GetOrCreate(sh, rs, 1, msaa)
	require.NoError(t, err)

	assert.Equal(t, 3, dev.PipelinesCreated)
	assert.Len(t, dev.PipelineLayouts, 1, "pipelines of one shader share a layout")
}

func TestCache_FillsGapGroups(t *testing.T) {
	dev := devicetest.NewRecorder()
	c := NewCache(dev)
	sh := gapShader(t)

	p, err := c.GetOrCreate(sh, NewRenderState(), 7, target)
	require.NoError(t, err)

	desc := dev.Pipelines[p.ID()]
	layouts := dev.PipelineLayouts[desc.Layout]
	require.Len(t, layouts, 3)
	assert.Equal(t, sh.Packet(shader.TierMaterial).Layout(), layouts[0])
	assert.Equal(t, sh.Packet(shader.TierCamera).Layout(), layouts[2])
	assert.Empty(t, dev.Layouts[layouts[1]])
	empty := c.EmptyBindGroup()
	require.NotEqual(t, device.InvalidBindGroup, empty)
	assert.Equal(t, layouts[1], dev.BindGroups[empty].Layout)

	assert.Equal(t, "vs_main", desc.VertexEntryPoint)
	assert.Equal(t, "fs_main", desc.FragmentEntryPoint)
	assert.Equal(t, wgpu.CompareFunctionLess, desc.DepthCompare)
	assert.True(t, desc.DepthWriteEnabled)
	assert.Nil(t, desc.Blend)
	require.Len(t, desc.VertexBuffers, 1)
	assert.Equal(t, uint64(12), desc.VertexBuffers[0].ArrayStride)
}

func TestCache_RenderStateReachesDescriptor(t *testing.T) {
	dev := devicetest.NewRecorder()
	c := NewCache(dev)
	sh := gapShader(t)
	rs := NewRenderState(
		WithCullMode(wgpu.CullModeBack),
		WithBlendState(AdditiveBlend),
		WithDepthTestEnabled(false),
		WithDepthWriteEnabled(false),
		WithDepthBias(2, 1.5),
	)

	p, err := c.GetOrCreate(sh, rs, 9, target)
	require.NoError(t, err)

	desc := dev.Pipelines[p.ID()]
	assert.Equal(t, wgpu.CullModeBack, desc.Primitive.CullMode)
	require.NotNil(t, desc.Blend)
	assert.Equal(t, wgpu.BlendFactorOne, desc.Blend.Color.DstFactor)
	assert.Equal(t, wgpu.CompareFunctionAlways, desc.DepthCompare)
	assert.False(t, desc.DepthWriteEnabled)
	assert.Equal(t, int32(2), desc.DepthBias)
	assert.Equal(t, float32(1.5), desc.DepthBiasSlope)
}

func TestCache_DeviceFailureReturnsError(t *testing.T) {
	dev := devicetest.NewRecorder()
	dev.FailPipelines = true
	c := NewCache(dev)

	_, err := c.GetOrCreate(gapShader(t), NewRenderState(), 1, target)
	require.ErrorIs(t, err, devicetest.ErrInjected)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Built())
}

func TestCache_EvictShaderAndRelease(t *testing.T) {
	dev := devicetest.NewRecorder()
	c := NewCache(dev)
	sh := gapShader(t)

	_, err := c.GetOrCreate(sh, NewRenderState(), 1, target)
	require.NoError(t, err)
	_, err = c.GetOrCreate(sh, NewRenderState(WithCullMode(wgpu.CullModeFront)), 2, target)
	require.NoError(t, err)
	require.Len(t, dev.Pipelines, 2)

	c.EvictShader(sh)
	assert.Empty(t, dev.Pipelines)
	assert.Empty(t, dev.PipelineLayouts)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 2, c.Built())

	_, err = c.GetOrCreate(sh, NewRenderState(), 1, target)
	require.NoError(t, err)
	c.Release()
	assert.Empty(t, dev.Pipelines)
	assert.Empty(t, dev.PipelineLayouts)
	assert.Equal(t, 0, dev.LiveBindGroups())
	assert.Equal(t, device.InvalidBindGroup, c.EmptyBindGroup())

	sh.Release(dev)
	assert.Empty(t, dev.Layouts)
}

func TestTargetOf(t *testing.T) {
	dev := devicetest.NewRecorder()
	assert.Equal(t, target, TargetOf(dev))
}
