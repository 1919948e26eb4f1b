package uniform

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
)

// MaxFeatures is the number of feature bits a FeatureMask holds.
const MaxFeatures = 128

// Material feature bits, matching the FEATURE_* constants in the material_features WGSL include.
const (
	FeatureAlbedoMap = iota
	FeatureNormalMap
	FeatureMetallicRoughnessMap
	FeatureEmissiveMap
)

// Global feature bits, matching the FEATURE_* constants in the global_features WGSL include.
const (
	FeatureIBL = iota
	FeatureSHLighting
	FeatureDirectionalLight
)

// FeatureMask is a 128-bit set of feature flags laid out as a vec4<u32>.
type FeatureMask [4]uint32

// locate splits a feature index into its word and bit. ok is false when i is out of range.
func locate(i int) (word int, bit uint32, ok bool) {
	if i < 0 || i>>5 >= len(FeatureMask{}) {
		common.Logger().Warn("uniform: feature index out of range, ignoring", "index", i)
		return 0, 0, false
	}
	return i >> 5, 1 << uint32(i&31), true
}

// Enable sets bit i.
//
// Parameters:
//   - i: the feature index, in [0, MaxFeatures)
//
// Returns:
//   - bool: true if the bit was previously clear
func (m *FeatureMask) Enable(i int) bool {
	word, bit, ok := locate(i)
	if !ok || m[word]&bit != 0 {
		return false
	}
	m[word] |= bit
	return true
}

// Disable clears bit i.
//
// Parameters:
//   - i: the feature index, in [0, MaxFeatures)
//
// Returns:
//   - bool: true if the bit was previously set
func (m *FeatureMask) Disable(i int) bool {
	word, bit, ok := locate(i)
	if !ok || m[word]&bit == 0 {
		return false
	}
	m[word] &^= bit
	return true
}

// Has reports whether bit i is set. Out of range indices report false.
func (m FeatureMask) Has(i int) bool {
	if i < 0 || i >= MaxFeatures {
		return false
	}
	return m[i>>5]&(1<<uint32(i&31)) != 0
}

// Bytes encodes the mask as 16 little-endian bytes.
func (m FeatureMask) Bytes() []byte {
	buf := make([]byte, 16)
	common.PutUints(buf, m[:]...)
	return buf
}

// FeatureSet pairs a FeatureMask with the builtin binding it is written to.
type FeatureSet struct {
	name string
	mask FeatureMask
}

// NewFeatureSet creates an empty feature set written to the named binding.
//
// Parameters:
//   - name: shader.BuiltinMaterialFeatures or shader.BuiltinGlobalFeatures
//
// Returns:
//   - *FeatureSet: the new feature set
func NewFeatureSet(name string) *FeatureSet {
	return &FeatureSet{name: name}
}

// Name returns the binding the mask is written to.
func (f *FeatureSet) Name() string {
	return f.name
}

// Mask returns a copy of the current mask.
func (f *FeatureSet) Mask() FeatureMask {
	return f.mask
}

// Enable sets bit i and, only if the bit changed, writes the mask into every store.
//
// Parameters:
//   - i: the feature index
//   - stores: the stores holding the feature binding
//
// Returns:
//   - bool: true if the bit changed
func (f *FeatureSet) Enable(i int, stores ...UniformStore) bool {
	if !f.mask.Enable(i) {
		return false
	}
	for _, s := range stores {
		f.WriteTo(s)
	}
	return true
}

// Disable clears bit i and, only if the bit changed, writes the mask into every store.
//
// Parameters:
//   - i: the feature index
//   - stores: the stores holding the feature binding
//
// Returns:
//   - bool: true if the bit changed
func (f *FeatureSet) Disable(i int, stores ...UniformStore) bool {
	if !f.mask.Disable(i) {
		return false
	}
	for _, s := range stores {
		f.WriteTo(s)
	}
	return true
}

// WriteTo writes the mask into store. A UVec4 binding is written with SetUVec4 and a 16-byte
// struct binding with SetStruct.
//
// Parameters:
//   - store: the destination store, may be nil
//
// Returns:
//   - bool: false if the store has no compatible binding
func (f *FeatureSet) WriteTo(store UniformStore) bool {
	if store == nil {
		return false
	}
	d, ok := store.Descriptor(f.name)
	if !ok {
		return false
	}
	switch d.DataType {
	case shader.DataTypeUVec4:
		return store.SetUVec4(f.name, f.mask)
	case shader.DataTypeStruct:
		if d.Size != 16 {
			panic(fmt.Sprintf("uniform: feature binding %q is %d bytes, want 16", f.name, d.Size))
		}
		return store.SetStruct(f.name, f.mask.Bytes())
	default:
		panic(fmt.Sprintf("uniform: feature binding %q has type %s", f.name, d.DataType))
	}
}
