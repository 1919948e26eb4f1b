package material

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/uniform"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brickYAML = `
name: brick
shader: unlit
render_state:
  cull: back
  polygon: fill
  queue: transparent
  blend: alpha
  depth_write: false
uniforms:
  albedo_color: [1, 0.5, 0.25, 1]
  roughness: [0.8]
features: [3, 40]
`

func TestLoadDefinition(t *testing.T) {
	def, err := LoadDefinition(strings.NewReader(brickYAML))
	require.NoError(t, err)

	assert.Equal(t, "brick", def.Name)
	assert.Equal(t, "unlit", def.Shader)
	assert.Equal(t, "back", def.RenderState.Cull)
	require.NotNil(t, def.RenderState.DepthWrite)
	assert.False(t, *def.RenderState.DepthWrite)
	assert.Nil(t, def.RenderState.DepthTest)
	assert.Equal(t, []float32{0.8}, def.Uniforms["roughness"])
	assert.Equal(t, []int{3, 40}, def.Features)
}

const brickTOML = `
name = "brick"
shader = "unlit"
features = [3, 40]

[render_state]
cull = "back"
polygon = "fill"
queue = "transparent"
blend = "alpha"
depth_write = false

[uniforms]
albedo_color = [1.0, 0.5, 0.25, 1.0]
roughness = [0.8]
`

func TestLoadDefinitionTOML_MatchesYAML(t *testing.T) {
	fromYAML, err := LoadDefinition(strings.NewReader(brickYAML))
	require.NoError(t, err)
	fromTOML, err := LoadDefinitionTOML(strings.NewReader(brickTOML))
	require.NoError(t, err)
	assert.Equal(t, fromYAML, fromTOML)

	_, err = LoadDefinitionTOML(strings.NewReader("shader = \"unlit\"\ncolour = \"red\"\n"))
	assert.Error(t, err, "unknown keys are rejected")
	_, err = LoadDefinitionTOML(strings.NewReader("name = \"empty\"\n"))
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestLoadDefinitionFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "brick.yaml")
	tomlPath := filepath.Join(dir, "brick.TOML")
	require.NoError(t, os.WriteFile(yamlPath, []byte(brickYAML), 0o644))
	require.NoError(t, os.WriteFile(tomlPath, []byte(brickTOML), 0o644))

	a, err := LoadDefinitionFile(yamlPath)
	require.NoError(t, err)
	b, err := LoadDefinitionFile(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = LoadDefinitionFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDefinition_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": "shader: unlit\ncolour: red\n",
		"no shader":     "name: empty\n",
		"bad cull":      "shader: unlit\nrender_state:\n  cull: sideways\n",
		"bad queue":     "shader: unlit\nrender_state:\n  queue: soon\n",
		"bad yaml":      "shader: [unlit\n",
	}
	for name, src := range cases {
		_, err := LoadDefinition(strings.NewReader(src))
		assert.Error(t, err, name)
	}

	_, err := LoadDefinition(strings.NewReader("name: empty\n"))
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestRenderStateDefinition_Build(t *testing.T) {
	def, err := LoadDefinition(strings.NewReader(brickYAML))
	require.NoError(t, err)

	rs, err := def.RenderState.Build()
	require.NoError(t, err)
	assert.Equal(t, wgpu.CullModeBack, rs.CullMode)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, rs.Topology)
	assert.Equal(t, pipeline.QueueTransparent, rs.Queue)
	assert.True(t, rs.BlendEnabled)
	assert.Equal(t, pipeline.AlphaBlend, rs.BlendState)
	assert.True(t, rs.DepthTestEnabled)
	assert.False(t, rs.DepthWriteEnabled)

	empty, err := RenderStateDefinition{}.Build()
	require.NoError(t, err)
	assert.Equal(t, pipeline.NewRenderState(), empty)
}

func TestDefinition_Build(t *testing.T) {
	dev := devicetest.NewRecorder()
	textures := texture.NewManager(dev)
	lib := newLibrary(t, map[string]string{"unlit": unlitSource})

	def, err := LoadDefinition(strings.NewReader(brickYAML))
	require.NoError(t, err)
	m, err := def.Build(lib, textures)
	require.NoError(t, err)

	assert.Equal(t, "brick", m.Label())
	assert.Equal(t, wgpu.CullModeBack, m.RenderState().CullMode)

	color, _ := m.Store().Vec4("albedo_color")
	assert.Equal(t, mgl32.Vec4{1, 0.5, 0.25, 1}, color)
	rough, _ := m.Store().Float("roughness")
	assert.Equal(t, float32(0.8), rough)

	assert.True(t, m.Features().Has(uniform.FeatureEmissiveMap))
	assert.True(t, m.Features().Has(40))

	tex, _ := m.Store().Texture("albedo_map")
	assert.Equal(t, textures.Builtins().White, tex)

	plain := NewMaterial("unlit", lib, WithRenderState(m.RenderState()))
	assert.Equal(t, plain.HashValue(), m.HashValue())
}

func TestDefinition_BuildErrors(t *testing.T) {
	lib := newLibrary(t, map[string]string{"unlit": unlitSource})

	cases := map[string]Definition{
		"missing shader":  {Name: "a", Shader: "nope"},
		"unknown uniform": {Name: "b", Shader: "unlit", Uniforms: map[string][]float32{"shininess": {1}}},
		"wrong arity":     {Name: "c", Shader: "unlit", Uniforms: map[string][]float32{"albedo_color": {1, 1}}},
		"texture value":   {Name: "d", Shader: "unlit", Uniforms: map[string][]float32{"albedo_map": {1}}},
		"struct overflow": {Name: "e", Shader: "unlit", Uniforms: map[string][]float32{shader.BuiltinMaterialFeatures: {1, 2, 3, 4, 5}}},
		"bad blend":       {Name: "f", Shader: "unlit", RenderState: RenderStateDefinition{Blend: "multiply"}},
	}
	for name, def := range cases {
		_, err := def.Build(lib, nil)
		assert.ErrorIs(t, err, ErrInvalidDefinition, name)
	}
}
