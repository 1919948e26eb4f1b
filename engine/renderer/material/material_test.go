package material

import (
	"encoding/binary"
	"image"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/allocator"
	bgp "github.com/Carmen-Shannon/oxy-bind/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
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

const unlitSource = `
//@oxy:group 0 0 storage_uniform _material_features material_features
@group(0) @binding(1) var<uniform> albedo_color: vec4<f32>;
@group(0) @binding(2) var albedo_map: texture_2d<f32>;
@group(0) @binding(3) var albedo_sampler: sampler;
@group(0) @binding(4) var<uniform> roughness: f32;

@group(1) @binding(0) var<uniform> _model_matrix: mat4x4<f32>;
@group(2) @binding(0) var<uniform> _view_projection_matrix: mat4x4<f32>;

struct VertexOut {
    @builtin(position) clip: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(1) uv: vec2<f32>) -> VertexOut {
    var out: VertexOut;
    out.clip = _view_projection_matrix * _model_matrix * vec4<f32>(position, 1.0);
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    let sampled = textureSample(albedo_map, albedo_sampler, in.uv);
    let color = select(albedo_color, albedo_color * sampled, material_feature(FEATURE_ALBEDO_MAP));
    return vec4<f32>(color.rgb * (1.0 - roughness * 0.5), color.a);
}
`

// roleSource names its albedo texture base_tex and maps the albedo_map role onto it.
const roleSource = `
@group(0) @binding(0) var<uniform> albedo_color: vec4<f32>;
//@oxy:provider 0 1 material albedo_map
@group(0) @binding(1) var base_tex: texture_2d<f32>;
@group(0) @binding(2) var base_sampler: sampler;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return textureSample(base_tex, base_sampler, vec2<f32>(0.5, 0.5)) * albedo_color;
}
`

func newResources(dev *devicetest.Recorder) uniform.Resources {
	return uniform.Resources{
		Device:     dev,
		Allocator:  allocator.NewAllocator(dev),
		Textures:   texture.NewManager(dev),
		BindGroups: bgp.NewBindGroupProvider(dev),
	}
}

func newLibrary(t *testing.T, sources map[string]string) shader.Library {
	t.Helper()
	lib := shader.NewLibrary()
	for key, src := range sources {
		_, err := lib.Load(key, src)
		require.NoError(t, err)
	}
	return lib
}

func featureBits(t *testing.T, m Material) uint32 {
	t.Helper()
	raw, ok := m.Store().Struct(shader.BuiltinMaterialFeatures)
	require.True(t, ok)
	return binary.LittleEndian.Uint32(raw[:4])
}

func TestNewMaterial_HashStability(t *testing.T) {
	lib := newLibrary(t, map[string]string{"unlit": unlitSource})

	a := NewMaterial("unlit", lib)
	b := NewMaterial("unlit", lib)
	assert.NotZero(t, a.HashValue())
	assert.Equal(t, a.HashValue(), b.HashValue())

	c := NewMaterial("unlit", lib, WithRenderState(pipeline.NewRenderState(pipeline.WithCullMode(wgpu.CullModeBack))))
	assert.NotEqual(t, a.HashValue(), c.HashValue())
}

func TestMaterial_SetRenderStateRehashesOnUpdate(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	lib := newLibrary(t, map[string]string{"unlit": unlitSource})
	m := NewMaterial("unlit", lib)
	before := m.HashValue()

	m.SetRenderState(pipeline.NewRenderState(pipeline.WithCullMode(wgpu.CullModeFront)))
	assert.Equal(t, before, m.HashValue(), "hash is recomputed on the next update")

	require.True(t, m.OnUpdate(res))
	assert.NotEqual(t, before, m.HashValue())
	assert.Equal(t, wgpu.CullModeFront, m.RenderState().CullMode)

	m.SetRenderState(pipeline.NewRenderState())
	require.True(t, m.OnUpdate(res))
	assert.Equal(t, before, m.HashValue())
}

func TestMaterial_ShaderNotLoaded(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	lib := shader.NewLibrary()

	m := NewMaterial("later", lib)
	assert.Nil(t, m.Shader())
	assert.Nil(t, m.Store())
	assert.False(t, m.SetAlbedoColor(mgl32.Vec4{1, 0, 0, 1}))
	assert.False(t, m.OnUpdate(res))
	assert.Equal(t, device.InvalidBindGroup, m.GetBindGroup())
	assert.Equal(t, 0, dev.ModulesCreated)

	_, err := lib.Load("later", unlitSource)
	require.NoError(t, err)
	require.True(t, m.OnUpdate(res))
	assert.NotNil(t, m.Store())
	assert.NotZero(t, m.HashValue())
	assert.NotEqual(t, device.InvalidBindGroup, m.GetBindGroup())
}

func TestMaterial_SharedShaderCompilesOnce(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	lib := newLibrary(t, map[string]string{"unlit": unlitSource})

	a := NewMaterial("unlit", lib)
	b := NewMaterial("unlit", lib)
	require.True(t, a.OnUpdate(res))
	require.True(t, b.OnUpdate(res))
	require.True(t, a.OnUpdate(res))

	assert.Equal(t, 1, dev.ModulesCreated)
	assert.NotEqual(t, a.GetBindGroup(), b.GetBindGroup())
}

func TestMaterial_BindGroupBuiltOnlyOnResourceChange(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	lib := newLibrary(t, map[string]string{"unlit": unlitSource})
	m := NewMaterial("unlit", lib)

	require.True(t, m.OnUpdate(res))
	first := m.GetBindGroup()
	require.NotEqual(t, device.InvalidBindGroup, first)
	assert.Equal(t, 1, dev.BindGroupsCreated)

	require.True(t, m.SetAlbedoColor(mgl32.Vec4{0.5, 0.5, 0.5, 1}))
	require.True(t, m.SetRoughness(0.25))
	writes := dev.WriteCount()
	require.True(t, m.OnUpdate(res))
	assert.Equal(t, writes+2, dev.WriteCount())
	assert.Equal(t, first, m.GetBindGroup())
	assert.Equal(t, 1, dev.BindGroupsCreated)

	require.True(t, m.OnUpdate(res))
	assert.Equal(t, writes+2, dev.WriteCount())
}

func TestMaterial_AlbedoMapTogglesFeature(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	lib := newLibrary(t, map[string]string{"unlit": unlitSource})
	m := NewMaterial("unlit", lib, WithBuiltins(res.Textures.Builtins()))
	require.True(t, m.OnUpdate(res))
	first := m.GetBindGroup()
	assert.Zero(t, featureBits(t, m))

	tex := res.Textures.AddImage("albedo", image.NewRGBA(image.Rect(0, 0, 4, 4)), true)
	require.True(t, m.SetAlbedoMap(tex))
	assert.True(t, m.Features().Has(uniform.FeatureAlbedoMap))
	assert.Equal(t, uint32(1), featureBits(t, m))

	require.True(t, m.OnUpdate(res))
	second := m.GetBindGroup()
	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, dev.BindGroupsCreated)
	assert.Equal(t, 1, dev.LiveBindGroups())

	require.True(t, m.SetAlbedoMap(tex))
	require.True(t, m.OnUpdate(res))
	assert.Equal(t, second, m.GetBindGroup(), "same texture does not rebuild")

	require.True(t, m.SetAlbedoMap(texture.InvalidTexture))
	assert.False(t, m.Features().Has(uniform.FeatureAlbedoMap))
	assert.Zero(t, featureBits(t, m))
	require.True(t, m.OnUpdate(res))
	assert.NotEqual(t, second, m.GetBindGroup())
	assert.Equal(t, 1, dev.LiveBindGroups())
}

func TestMaterial_MissingBindingLeavesFeatureAlone(t *testing.T) {
	lib := newLibrary(t, map[string]string{"unlit": unlitSource})
	m := NewMaterial("unlit", lib)

	assert.False(t, m.SetNormalMap(5))
	assert.False(t, m.SetEmissiveMap(5))
	assert.False(t, m.SetMetallicRoughnessMap(5))
	assert.False(t, m.SetMetallic(1))
	assert.False(t, m.Features().Has(uniform.FeatureNormalMap))
	assert.True(t, m.SetAlbedoSampler(3))
}

func TestMaterial_RoleAnnotationRedirectsSetter(t *testing.T) {
	lib := newLibrary(t, map[string]string{"role": roleSource})
	m := NewMaterial("role", lib)

	require.True(t, m.SetAlbedoMap(9))
	got, ok := m.Store().Texture("base_tex")
	require.True(t, ok)
	assert.Equal(t, texture.TextureHandle(9), got)
	assert.True(t, m.Features().Has(uniform.FeatureAlbedoMap), "mask tracks the bit without a features binding")
}

func TestMaterial_EnableDisableFeature(t *testing.T) {
	lib := newLibrary(t, map[string]string{"unlit": unlitSource})
	m := NewMaterial("unlit", lib, WithFeatures(uniform.FeatureEmissiveMap))
	assert.Equal(t, uint32(1)<<uniform.FeatureEmissiveMap, featureBits(t, m))

	assert.True(t, m.EnableFeature(40))
	assert.False(t, m.EnableFeature(40))
	raw, _ := m.Store().Struct(shader.BuiltinMaterialFeatures)
	assert.Equal(t, uint32(1)<<8, binary.LittleEndian.Uint32(raw[4:8]))

	assert.False(t, m.EnableFeature(uniform.MaxFeatures))
	assert.True(t, m.DisableFeature(40))
	assert.False(t, m.DisableFeature(40))
}

func TestMaterial_Label(t *testing.T) {
	lib := shader.NewLibrary()
	named := NewMaterial("x", lib, WithName("brick"))
	assert.Equal(t, "brick", named.Label())

	a := NewMaterial("x", lib)
	b := NewMaterial("x", lib)
	assert.True(t, strings.HasPrefix(a.Label(), "material-"))
	assert.NotEqual(t, a.Label(), b.Label())
	assert.Equal(t, "x", a.ShaderKey())
}

func TestMaterial_Release(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	lib := newLibrary(t, map[string]string{"unlit": unlitSource})
	m := NewMaterial("unlit", lib)
	require.True(t, m.OnUpdate(res))
	require.Equal(t, 1, dev.LiveBindGroups())

	m.Release(res)
	assert.Equal(t, 0, dev.LiveBindGroups())
	assert.Equal(t, device.InvalidBindGroup, m.GetBindGroup())

	require.True(t, m.OnUpdate(res))
	assert.Equal(t, 1, dev.LiveBindGroups())
}

func TestMaterial_ShaderReplacedRebuildsStore(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	lib := newLibrary(t, map[string]string{"unlit": unlitSource})
	m := NewMaterial("unlit", lib, WithBuiltins(res.Textures.Builtins()))
	require.True(t, m.SetAlbedoColor(mgl32.Vec4{0.2, 0.4, 0.6, 1}))
	require.True(t, m.OnUpdate(res))
	oldStore := m.Store()

	lib.Remove(dev, "unlit")
	assert.False(t, m.OnUpdate(res))

	_, err := lib.Load("unlit", unlitSource)
	require.NoError(t, err)
	require.True(t, m.OnUpdate(res))
	assert.NotSame(t, oldStore, m.Store())
	assert.Equal(t, 1, dev.LiveBindGroups())

	color, _ := m.Store().Vec4("albedo_color")
	assert.Equal(t, mgl32.Vec4{0.2, 0.4, 0.6, 1}, color, "shared bindings survive the swap")

	// A replacement without roughness keeps the rest of the values.
	noRoughness := strings.Replace(unlitSource, "@group(0) @binding(4) var<uniform> roughness: f32;\n", "", 1)
	noRoughness = strings.Replace(noRoughness, "(1.0 - roughness * 0.5)", "1.0", 1)
	_, err = lib.Replace("unlit", noRoughness)
	require.NoError(t, err)
	require.True(t, m.OnUpdate(res))
	_, ok := m.Store().Kind("roughness")
	assert.False(t, ok)
	color, _ = m.Store().Vec4("albedo_color")
	assert.Equal(t, mgl32.Vec4{0.2, 0.4, 0.6, 1}, color)
	assert.Equal(t, 1, lib.ReleaseRetired(dev))
}
