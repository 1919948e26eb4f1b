package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreProcessor_IncludeIsDeduplicated(t *testing.T) {
	src := "//@oxy:include camera_matrices\n//@oxy:include camera_matrices\nfn f() {}"
	out, err := NewPreProcessor().Process(src)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "struct CameraMatrices"))
	assert.Contains(t, out, "fn f() {}")
}

func TestPreProcessor_GroupInjectsStruct(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:group 2 0 storage_uniform _camera_matrices camera_matrices")
	require.NoError(t, err)

	assert.Contains(t, out, "struct CameraMatrices")
	assert.Contains(t, out, "@group(2) @binding(0) var<uniform> _camera_matrices: CameraMatrices;")

	decls := pp.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, 2, *decls[0].Group)
	assert.Equal(t, 0, *decls[0].Binding)
}

func TestPreProcessor_GroupAfterIncludeDoesNotDuplicate(t *testing.T) {
	src := "//@oxy:include lighting_info\n//@oxy:group 3 0 storage_read _lighting_info lighting_info"
	out, err := NewPreProcessor().Process(src)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "struct LightingInfo"))
	assert.Contains(t, out, "var<storage, read> _lighting_info: LightingInfo;")
}

func TestPreProcessor_ProviderEmitsNothing(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:provider 0 1 material albedo_map\n@group(0) @binding(1) var t: texture_2d<f32>;")
	require.NoError(t, err)
	assert.Equal(t, "@group(0) @binding(1) var t: texture_2d<f32>;", out)

	decls := pp.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, []AnnotationArg{"material", AnnotationArgAlbedoMap}, decls[0].Args)
}

func TestPreProcessor_DeclarationsResetPerCall(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("//@oxy:provider 0 0 material")
	require.NoError(t, err)
	_, err = pp.Process("fn f() {}")
	require.NoError(t, err)
	assert.Empty(t, pp.Declarations())
}

func TestPreProcessor_Errors(t *testing.T) {
	cases := []string{
		"//@oxy:",
		"//@oxy:include",
		"//@oxy:include mystery",
		"//@oxy:group 0 0 storage_uniform name",
		"//@oxy:group x 0 storage_uniform name camera_matrices",
		"//@oxy:group 0 0 private name camera_matrices",
		"//@oxy:provider 0 0",
		"//@oxy:provider 0 0 world",
		"//@oxy:provider 0 0 material sparkle_map",
		"//@oxy:frobnicate",
	}
	for _, src := range cases {
		_, err := NewPreProcessor().Process(src)
		assert.Error(t, err, src)
	}
}

func TestParseAnnotation_IgnoresCode(t *testing.T) {
	a, err := parseAnnotation(`let s = "@oxy:include camera_matrices";`, 1)
	assert.NoError(t, err)
	assert.Nil(t, a)

	a, err = parseAnnotation("// plain comment", 2)
	assert.NoError(t, err)
	assert.Nil(t, a)
}
