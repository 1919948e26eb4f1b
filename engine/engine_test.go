package engine

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatSource = `
@group(0) @binding(0) var<uniform> color: vec4<f32>;
@group(1) @binding(0) var<uniform> _model_view_projection_matrix: mat4x4<f32>;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return _model_view_projection_matrix * vec4<f32>(position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return color;
}
`

func TestEngine_AdvanceRunsFixedTicks(t *testing.T) {
	var ticks []float32
	e := &engine{tickRate: tickDuration(100)}
	e.tickCallback = func(dt float32) { ticks = append(ticks, dt) }

	assert.Equal(t, 0, e.advance(5*time.Millisecond))
	assert.Equal(t, 1, e.advance(5*time.Millisecond))
	assert.Equal(t, 2, e.advance(25*time.Millisecond))
	assert.Equal(t, 5*time.Millisecond, e.tickAccumulator)
	require.Len(t, ticks, 3)
	assert.InDelta(t, 0.01, ticks[0], 1e-6)

	assert.Equal(t, maxTicksPerFrame, e.advance(time.Second), "a long frame is capped")
	assert.Less(t, e.tickAccumulator, e.tickRate)
}

func TestTickDurationAndFrameLimit(t *testing.T) {
	assert.Equal(t, time.Second/60, tickDuration(0))
	assert.Equal(t, 50*time.Millisecond, tickDuration(20))
	assert.Zero(t, frameLimit(0))
	assert.Equal(t, 10*time.Millisecond, frameLimit(100))
}

func TestRenderFrame_DrawsInQueueOrder(t *testing.T) {
	dev := devicetest.NewRecorder()
	lib := shader.NewLibrary()
	_, err := lib.Load("flat", flatSource)
	require.NoError(t, err)
	r := renderer.NewRenderer(dev, renderer.WithLibrary(lib))
	t.Cleanup(r.Release)

	newMat := func(q pipeline.RenderQueue) material.Material {
		rs := pipeline.NewRenderState(pipeline.WithQueue(q))
		return material.NewMaterial("flat", lib, material.WithRenderState(rs), material.WithBuiltins(r.Textures().Builtins()))
	}
	transparent := newMat(pipeline.QueueTransparent)
	opaque := newMat(pipeline.QueueOpaque)
	mesh := renderer.Mesh{VertexBuffer: 1, IndexBuffer: 2, IndexCount: 3}

	f := &Frame{Width: 800, Height: 600}
	f.Input.View = mgl32.Ident4()
	f.Input.Projection = mgl32.Ident4()
	f.Draw(renderer.DrawItem{Material: transparent, ObjectID: uuid.New(), Model: mgl32.Ident4(), Mesh: mesh})
	f.Draw(renderer.DrawItem{Material: opaque, ObjectID: uuid.New(), Model: mgl32.Ident4(), Mesh: mesh})
	f.Draw(renderer.DrawItem{Material: nil, ObjectID: uuid.New(), Mesh: mesh})

	require.NoError(t, renderFrame(r, f))
	require.Len(t, dev.Draws, 2)

	// Each draw binds its own material group, so group 0 identifies the material.
	assert.Equal(t, opaque.GetBindGroup(), dev.Draws[0].BindGroups[0])
	assert.Equal(t, transparent.GetBindGroup(), dev.Draws[1].BindGroups[0])

	stats := r.Stats()
	assert.Equal(t, uint64(2), stats.Draws)
	assert.Equal(t, uint64(1), stats.DrawsSkipped)
	assert.InDelta(t, 800.0/600.0, f.Aspect(), 1e-6)
}
