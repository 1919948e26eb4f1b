package material

import (
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
)

// bindingFor resolves a role to a binding name. A provider annotation naming the role wins;
// otherwise the role's own name is used as the conventional binding name.
func (m *material) bindingFor(role shader.AnnotationArg) (string, bool) {
	if m.store == nil {
		return "", false
	}
	name, ok := m.shader.RoleBinding(role)
	if !ok {
		name = string(role)
	}
	_, ok = m.store.Descriptor(name)
	return name, ok
}

// setMap attaches or detaches a texture and keeps the feature bit in step with it.
func (m *material) setMap(role shader.AnnotationArg, feature int, h texture.TextureHandle) bool {
	name, ok := m.bindingFor(role)
	if !ok {
		return false
	}
	if old, _ := m.store.Texture(name); old != h {
		m.textureBindingsChanged = true
	}
	m.store.SetTexture(name, h)
	if h != texture.InvalidTexture {
		m.EnableFeature(feature)
	} else {
		m.DisableFeature(feature)
	}
	return true
}

func (m *material) SetAlbedoColor(c mgl32.Vec4) bool {
	name, ok := m.bindingFor(shader.AnnotationArgAlbedoColor)
	if !ok {
		return false
	}
	return m.store.SetVec4(name, c)
}

func (m *material) SetAlbedoMap(h texture.TextureHandle) bool {
	return m.setMap(shader.AnnotationArgAlbedoMap, uniform.FeatureAlbedoMap, h)
}

func (m *material) SetAlbedoSampler(h texture.SamplerHandle) bool {
	name, ok := m.bindingFor(shader.AnnotationArgAlbedoSampler)
	if !ok {
		return false
	}
	if old, _ := m.store.Sampler(name); old != h {
		m.textureBindingsChanged = true
	}
	return m.store.SetSampler(name, h)
}

func (m *material) SetNormalMap(h texture.TextureHandle) bool {
	return m.setMap(shader.AnnotationArgNormalMap, uniform.FeatureNormalMap, h)
}

func (m *material) SetMetallicRoughnessMap(h texture.TextureHandle) bool {
	return m.setMap(shader.AnnotationArgMetallicRoughnessMap, uniform.FeatureMetallicRoughnessMap, h)
}

func (m *material) SetEmissiveMap(h texture.TextureHandle) bool {
	return m.setMap(shader.AnnotationArgEmissiveMap, uniform.FeatureEmissiveMap, h)
}

func (m *material) SetMetallic(v float32) bool {
	name, ok := m.bindingFor(shader.AnnotationArgMetallic)
	if !ok {
		return false
	}
	return m.store.SetFloat(name, v)
}

func (m *material) SetRoughness(v float32) bool {
	name, ok := m.bindingFor(shader.AnnotationArgRoughness)
	if !ok {
		return false
	}
	return m.store.SetFloat(name, v)
}
