package renderer

import (
	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
)

// sceneList returns every scene store. Caller holds r.mu.
func (r *renderer) sceneList() []uniform.UniformStore {
	out := make([]uniform.UniformStore, 0, len(r.sceneStores))
	for _, s := range r.sceneStores {
		out = append(out, s)
	}
	return out
}

// textureSetter returns a scene setter binding h to the texture binding name.
func textureSetter(name string, h texture.TextureHandle) func(uniform.UniformStore) bool {
	return func(s uniform.UniformStore) bool {
		if kind, ok := s.Kind(name); !ok || kind != shader.DataTypeTexture {
			return false
		}
		return s.SetTexture(name, h)
	}
}

// setScene records apply under name so scene stores created later receive it too, and applies
// it to every existing scene store.
func (r *renderer) setScene(name string, apply func(uniform.UniformStore) bool) {
	r.sceneValues[name] = apply
	for _, s := range r.sceneStores {
		apply(s)
	}
}

func (r *renderer) EnableGlobalFeature(i int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globalFeatures.Enable(i, r.sceneList()...)
}

func (r *renderer) DisableGlobalFeature(i int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globalFeatures.Disable(i, r.sceneList()...)
}

func (r *renderer) GlobalFeatures() uniform.FeatureMask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globalFeatures.Mask()
}

func (r *renderer) SetIBL(irradiance, reflection, brdfLUT texture.TextureHandle, sampler texture.SamplerHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setScene(shader.BuiltinIrradianceMap, textureSetter(shader.BuiltinIrradianceMap, irradiance))
	r.setScene(shader.BuiltinReflectionMap, textureSetter(shader.BuiltinReflectionMap, reflection))
	r.setScene(shader.BuiltinBRDFLUT, textureSetter(shader.BuiltinBRDFLUT, brdfLUT))
	r.setScene(shader.BuiltinIBLSampler, func(s uniform.UniformStore) bool {
		if kind, ok := s.Kind(shader.BuiltinIBLSampler); !ok || kind != shader.DataTypeSampler {
			return false
		}
		return s.SetSampler(shader.BuiltinIBLSampler, sampler)
	})
	r.globalFeatures.Enable(uniform.FeatureIBL, r.sceneList()...)
}

func (r *renderer) SetSHCoefficients(coeffs [9]mgl32.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// array<vec4<f32>, 9>: each coefficient padded to 16 bytes.
	packed := make([]float32, 0, 36)
	for _, c := range coeffs {
		packed = append(packed, c[0], c[1], c[2], 0)
	}
	data := common.SliceToBytes(packed)
	r.setScene(shader.BuiltinSHCoefficients, func(s uniform.UniformStore) bool {
		return putStruct(s, shader.BuiltinSHCoefficients, data)
	})
	r.globalFeatures.Enable(uniform.FeatureSHLighting, r.sceneList()...)
}

func (r *renderer) SetLightingInfo(info shader.GPULightingInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := info.Marshal()
	r.setScene(shader.BuiltinLightingInfo, func(s uniform.UniformStore) bool {
		return putStruct(s, shader.BuiltinLightingInfo, data)
	})
	r.globalFeatures.Enable(uniform.FeatureDirectionalLight, r.sceneList()...)
}

func (r *renderer) SetSceneTexture(name string, h texture.TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setScene(name, textureSetter(name, h))
}

func (r *renderer) SetSceneVec4(name string, v mgl32.Vec4) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setScene(name, func(s uniform.UniformStore) bool {
		if kind, ok := s.Kind(name); !ok || kind != shader.DataTypeVec4 {
			return false
		}
		return s.SetVec4(name, v)
	})
}
