package material

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// material is the implementation of the Material interface.
type material struct {
	name      string
	shaderKey string
	library   shader.Library
	builtins  texture.Builtins

	shader      shader.Shader
	store       uniform.UniformStore
	renderState pipeline.RenderState
	features    *uniform.FeatureSet

	materialHash           uint64
	dirty                  bool
	initialized            bool
	textureBindingsChanged bool
}

// Material binds a shader to a render state and the values of its material-tier bindings.
//
// The shader is looked up by key in a shader.Library, so a material can be created before its
// shader is loaded. Until the shader appears every setter reports the binding as missing and
// OnUpdate returns false.
type Material interface {
	// Label returns the material name, or a generated unique label when no name was given.
	Label() string

	// ShaderKey returns the key of the shader the material draws with.
	ShaderKey() string

	// Shader returns the resolved shader, or nil if it has not been loaded yet.
	Shader() shader.Shader

	// Store returns the per-material uniform store, or nil if the shader has not been loaded yet.
	Store() uniform.UniformStore

	// RenderState returns the current render state.
	RenderState() pipeline.RenderState

	// SetRenderState replaces the render state and marks the material dirty.
	//
	// Parameters:
	//   - rs: the new render state
	SetRenderState(rs pipeline.RenderState)

	// HashValue returns the material hash, covering shader identity and render state.
	// Materials with equal hashes share a render pipeline.
	HashValue() uint64

	// MarkDirty makes the next OnUpdate recompute the material hash.
	MarkDirty()

	// OnUpdate prepares the material for drawing: it recomputes the hash if dirty, compiles
	// the shader once, syncs the store and rebuilds the bind group when a resource changed.
	//
	// Parameters:
	//   - res: the collaborators to sync with
	//
	// Returns:
	//   - bool: false if the shader is not loaded and the material must be skipped
	OnUpdate(res uniform.Resources) bool

	// GetBindGroup returns the bind group built by the last OnUpdate.
	GetBindGroup() device.BindGroupID

	// Features returns the material feature mask.
	Features() uniform.FeatureMask

	// EnableFeature sets a material feature bit and rewrites the mask if it changed.
	//
	// Parameters:
	//   - i: the feature index, below uniform.MaxFeatures
	//
	// Returns:
	//   - bool: true if the bit changed
	EnableFeature(i int) bool

	// DisableFeature clears a material feature bit and rewrites the mask if it changed.
	//
	// Parameters:
	//   - i: the feature index, below uniform.MaxFeatures
	//
	// Returns:
	//   - bool: true if the bit changed
	DisableFeature(i int) bool

	// SetAlbedoColor sets the albedo color binding.
	SetAlbedoColor(c mgl32.Vec4) bool

	// SetAlbedoMap attaches an albedo texture, or detaches it when h is texture.InvalidTexture,
	// and toggles uniform.FeatureAlbedoMap to match.
	SetAlbedoMap(h texture.TextureHandle) bool

	// SetAlbedoSampler sets the sampler used with the albedo map.
	SetAlbedoSampler(h texture.SamplerHandle) bool

	// SetNormalMap attaches or detaches a normal map and toggles uniform.FeatureNormalMap.
	SetNormalMap(h texture.TextureHandle) bool

	// SetMetallicRoughnessMap attaches or detaches a metallic-roughness map and toggles
	// uniform.FeatureMetallicRoughnessMap.
	SetMetallicRoughnessMap(h texture.TextureHandle) bool

	// SetEmissiveMap attaches or detaches an emissive map and toggles uniform.FeatureEmissiveMap.
	SetEmissiveMap(h texture.TextureHandle) bool

	// SetMetallic sets the metallic factor binding.
	SetMetallic(v float32) bool

	// SetRoughness sets the roughness factor binding.
	SetRoughness(v float32) bool

	// Release frees the store's backing storage and bind group.
	//
	// Parameters:
	//   - res: the collaborators the storage was allocated from
	Release(res uniform.Resources)
}

var _ Material = &material{}

// NewMaterial creates a material drawing with the shader registered under shaderKey.
//
// Parameters:
//   - shaderKey: the library key of the shader
//   - library: the library the shader is looked up in
//   - options: functional options such as WithName and WithRenderState
//
// Returns:
//   - Material: the new material
func NewMaterial(shaderKey string, library shader.Library, options ...MaterialBuilderOption) Material {
	m := &material{
		shaderKey:   shaderKey,
		library:     library,
		renderState: pipeline.NewRenderState(),
		features:    uniform.NewFeatureSet(shader.BuiltinMaterialFeatures),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.name == "" {
		m.name = "material-" + uuid.NewString()
	}
	m.resolve(uniform.Resources{})
	return m
}

// resolve binds the library's current shader for the key. A shader replaced in the library
// since the last call gets a fresh store, seeded with every value the new bindings share
// with the old ones.
func (m *material) resolve(res uniform.Resources) bool {
	sh, ok := m.library.Get(m.shaderKey)
	if !ok {
		return false
	}
	if sh == m.shader {
		return true
	}

	old := m.store
	m.shader = sh
	m.store = uniform.NewUniformStore(sh.Packet(shader.TierMaterial), m.builtins)
	if old != nil {
		kept := m.store.CopyFrom(old)
		common.Logger().Info("material: shader replaced, store rebuilt", "material", m.name, "shader", m.shaderKey, "kept", kept)
		if res.Device != nil {
			old.Release(res)
		}
	}
	m.features.WriteTo(m.store)
	m.initialized = false
	m.textureBindingsChanged = false
	m.materialHash = m.computeHash()
	m.dirty = false
	return true
}

func (m *material) computeHash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], m.shader.Hash())
	_, _ = h.Write(buf[:])
	_, _ = h.Write(m.renderState.Bytes())
	return h.Sum64()
}

func (m *material) Label() string {
	return m.name
}

func (m *material) ShaderKey() string {
	return m.shaderKey
}

func (m *material) Shader() shader.Shader {
	return m.shader
}

func (m *material) Store() uniform.UniformStore {
	return m.store
}

func (m *material) RenderState() pipeline.RenderState {
	return m.renderState
}

func (m *material) SetRenderState(rs pipeline.RenderState) {
	m.renderState = rs
	m.MarkDirty()
}

func (m *material) HashValue() uint64 {
	return m.materialHash
}

func (m *material) MarkDirty() {
	m.dirty = true
}

func (m *material) OnUpdate(res uniform.Resources) bool {
	if !m.resolve(res) {
		common.Logger().Debug("material: shader not loaded, skipping", "material", m.name, "shader", m.shaderKey)
		return false
	}

	if m.dirty {
		m.materialHash = m.computeHash()
		m.dirty = false
	}

	if !m.initialized {
		if _, err := m.shader.EnsureCompiled(res.Device); err != nil {
			common.Logger().Error("material: shader compilation failed", "material", m.name, "shader", m.shaderKey, "error", err)
			return false
		}
		m.initialized = true
	}

	m.store.Sync(res)

	packet := m.shader.Packet(shader.TierMaterial)
	if !packet.IsValid() {
		return true
	}
	if m.store.NeedsBindGroup() || m.textureBindingsChanged {
		if m.textureBindingsChanged {
			m.store.MarkResourcesChanged()
		}
		m.store.GetBindGroup(res, packet)
		m.textureBindingsChanged = false
	}
	return true
}

func (m *material) GetBindGroup() device.BindGroupID {
	if m.store == nil {
		return device.InvalidBindGroup
	}
	return m.store.BindGroup()
}

func (m *material) Features() uniform.FeatureMask {
	return m.features.Mask()
}

func (m *material) EnableFeature(i int) bool {
	return m.features.Enable(i, m.store)
}

func (m *material) DisableFeature(i int) bool {
	return m.features.Disable(i, m.store)
}

func (m *material) Release(res uniform.Resources) {
	if m.store != nil {
		m.store.Release(res)
	}
	m.initialized = false
}
