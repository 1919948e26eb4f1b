package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reflectModule declares a vec4 uniform, a 16-byte struct, a 2D texture and a sampler. Only
// the vec4 uniform is referenced, from the fragment stage.
func reflectModule() *ir.Module {
	vec4 := ir.VectorType{Size: ir.Vec4, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}
	return &ir.Module{
		Types: []ir.Type{
			{Inner: vec4},
			{Name: "MaterialFeatures", Inner: ir.StructType{
				Members: []ir.StructMember{{Name: "bits", Type: 0}},
				Span:    16,
			}},
			{Inner: ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled, SampledKind: ir.ScalarFloat}},
			{Inner: ir.SamplerType{}},
		},
		GlobalVariables: []ir.GlobalVariable{
			{Name: "tint", Space: ir.SpaceUniform, Type: 0, Binding: &ir.ResourceBinding{Group: 0, Binding: 1}},
			{Name: BuiltinMaterialFeatures, Space: ir.SpaceUniform, Type: 1, Binding: &ir.ResourceBinding{Group: 0, Binding: 0}},
			{Name: "unused_tex", Space: ir.SpaceHandle, Type: 2, Binding: &ir.ResourceBinding{Group: 0, Binding: 2}},
			{Name: "unused_sampler", Space: ir.SpaceHandle, Type: 3, Binding: &ir.ResourceBinding{Group: 0, Binding: 3}},
		},
		EntryPoints: []ir.EntryPoint{{
			Name:  "fs_main",
			Stage: ir.StageFragment,
			Function: ir.Function{
				Name:        "fs_main",
				Expressions: []ir.Expression{{Kind: ir.ExprGlobalVariable{Variable: 0}}},
			},
		}},
	}
}

func TestReflect_UnreferencedVisibility(t *testing.T) {
	out, err := Reflect(reflectModule())
	require.NoError(t, err)
	require.Len(t, out, 4)

	byName := make(map[string]BindingDescriptor, len(out))
	for _, d := range out {
		byName[d.Name] = d
	}
	assert.Equal(t, wgpu.ShaderStageFragment, byName["tint"].Visibility)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, byName[BuiltinMaterialFeatures].Visibility)
	assert.Equal(t, uint64(16), byName[BuiltinMaterialFeatures].Size)
	assert.Equal(t, wgpu.ShaderStageFragment, byName["unused_tex"].Visibility)
	assert.Equal(t, wgpu.ShaderStageFragment, byName["unused_sampler"].Visibility)
	assert.Equal(t, []string{BuiltinMaterialFeatures, "tint", "unused_tex", "unused_sampler"},
		[]string{out[0].Name, out[1].Name, out[2].Name, out[3].Name})
}

func TestReflect_ResourceWithoutBinding(t *testing.T) {
	module := reflectModule()
	module.GlobalVariables[0].Binding = nil

	out, err := Reflect(module)
	assert.ErrorIs(t, err, ErrMalformedShader)
	assert.ErrorContains(t, err, `"tint"`)
	assert.Nil(t, out)
}

func TestReflect_PrivateGlobalsIgnored(t *testing.T) {
	module := reflectModule()
	module.GlobalVariables = append(module.GlobalVariables, ir.GlobalVariable{Name: "scratch", Space: ir.SpacePrivate, Type: 0})

	out, err := Reflect(module)
	require.NoError(t, err)
	assert.Len(t, out, 4)
}
