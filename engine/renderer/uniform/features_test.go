package uniform

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func featurePacket(dt shader.DataType) shader.PropertyPacket {
	p := shader.NewPropertyPacket(shader.TierMaterial)
	p.Insert(buffer(shader.BuiltinMaterialFeatures, 0, dt, 16))
	return p
}

func TestFeatureMask_EnableDisable(t *testing.T) {
	var m FeatureMask

	assert.True(t, m.Enable(2))
	assert.False(t, m.Enable(2))
	assert.True(t, m.Has(2))
	assert.Equal(t, FeatureMask{4, 0, 0, 0}, m)

	assert.True(t, m.Enable(37))
	assert.Equal(t, uint32(1<<5), m[1])
	assert.True(t, m.Enable(127))
	assert.Equal(t, uint32(1<<31), m[3])

	assert.True(t, m.Disable(2))
	assert.False(t, m.Disable(2))
	assert.False(t, m.Has(2))
}

func TestFeatureMask_OutOfRangeIsNoop(t *testing.T) {
	var m FeatureMask
	assert.False(t, m.Enable(128))
	assert.False(t, m.Enable(-1))
	assert.False(t, m.Disable(500))
	assert.Equal(t, FeatureMask{}, m)
	assert.False(t, m.Has(128))
}

func TestFeatureSet_ToggleRoundTrip(t *testing.T) {
	dev := devicetest.NewRecorder()
	res := newResources(dev)
	store := NewUniformStore(featurePacket(shader.DataTypeUVec4), res.Textures.Builtins())
	fs := NewFeatureSet(shader.BuiltinMaterialFeatures)

	assert.True(t, fs.Enable(2, store))
	assert.Equal(t, 1, store.Sync(res))
	got, _ := store.UVec4(shader.BuiltinMaterialFeatures)
	assert.Equal(t, [4]uint32{4, 0, 0, 0}, got)

	assert.False(t, fs.Enable(2, store))
	assert.False(t, store.IsDirty())
	assert.Zero(t, store.Sync(res))

	assert.True(t, fs.Disable(2, store))
	assert.Equal(t, 1, store.Sync(res))
	got, _ = store.UVec4(shader.BuiltinMaterialFeatures)
	assert.Equal(t, [4]uint32{}, got)
	assert.Equal(t, FeatureMask{}, fs.Mask())
}

func TestFeatureSet_StructBinding(t *testing.T) {
	store := NewUniformStore(featurePacket(shader.DataTypeStruct), newResources(devicetest.NewRecorder()).Textures.Builtins())
	fs := NewFeatureSet(shader.BuiltinMaterialFeatures)

	require.True(t, fs.Enable(FeatureNormalMap, store))
	data, _ := store.Struct(shader.BuiltinMaterialFeatures)
	assert.Equal(t, []byte{2, 0, 0, 0}, data[:4])
}

func TestFeatureSet_WriteToStoreWithoutBinding(t *testing.T) {
	store := NewUniformStore(materialPacket(), newResources(devicetest.NewRecorder()).Textures.Builtins())
	fs := NewFeatureSet(shader.BuiltinMaterialFeatures)

	assert.True(t, fs.Enable(FeatureAlbedoMap, store))
	assert.False(t, store.IsDirty())
	assert.False(t, fs.WriteTo(nil))
}
