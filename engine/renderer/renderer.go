package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/allocator"
	bgp "github.com/Carmen-Shannon/oxy-bind/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

var (
	// ErrNotInFrame is returned by Draw outside a BeginFrame/EndFrame pair.
	ErrNotInFrame = errors.New("renderer: draw outside of a frame")

	// ErrMaterialNotReady is returned by Draw when the material's shader is not loaded.
	ErrMaterialNotReady = errors.New("renderer: material not ready")

	// ErrMissingBindGroup is returned by Draw when a tier's bind group could not be built.
	ErrMissingBindGroup = errors.New("renderer: missing bind group")
)

// FrameInput carries the per-frame values camera and scene builtins are filled from.
type FrameInput struct {
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	CameraPosition mgl32.Vec3
	// Time is the elapsed time in seconds written to _time.
	Time float32
}

// Mesh names the GPU buffers of an indexed mesh.
type Mesh struct {
	VertexBuffer device.BufferID
	IndexBuffer  device.BufferID
	IndexCount   uint32
	// Instances defaults to 1 when zero.
	Instances uint32
}

// DrawItem is one object drawn with one material.
type DrawItem struct {
	Material material.Material
	ObjectID uuid.UUID
	Model    mgl32.Mat4
	Mesh     Mesh
}

// Stats is a cumulative snapshot of the renderer's work counters.
type Stats struct {
	Frames          uint64
	Draws           uint64
	DrawsSkipped    uint64
	BufferWrites    int
	BindGroupsBuilt int
	BindGroupsLive  int
	PipelinesBuilt  int
	Pipelines       int
}

// objectKey identifies a per-object store. An object drawn with two shaders gets two stores.
type objectKey struct {
	id     uuid.UUID
	shader uint64
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	dev          device.Device
	enc          device.FrameEncoder
	res          uniform.Resources
	library      shader.Library
	ownsLibrary  bool
	ownsTextures bool
	pipelines    pipeline.Cache

	cameraStores map[uint64]uniform.UniformStore
	sceneStores  map[uint64]uniform.UniformStore
	objectStores map[objectKey]uniform.UniformStore
	record       *uniform.FrameSyncRecord

	globalFeatures *uniform.FeatureSet
	sceneValues    map[string]func(uniform.UniformStore) bool

	frame   FrameInput
	inFrame bool

	frames       uint64
	draws        uint64
	drawsSkipped uint64
}

// Renderer drives frames: it supplies builtin uniforms per tier, keeps the shared camera and
// scene stores and the per-object stores, and submits draws with cached pipelines.
//
// A Renderer is driven from a single goroutine.
type Renderer interface {
	// Library returns the shader library materials look their shaders up in.
	Library() shader.Library

	// Textures returns the texture manager.
	Textures() texture.Manager

	// Resources returns the collaborators stores and materials sync with.
	Resources() uniform.Resources

	// Pipelines returns the render pipeline cache.
	Pipelines() pipeline.Cache

	// BeginFrame starts a frame, resetting the per-frame sync record and beginning the render pass.
	// Shaders replaced in the library since the previous frame are released first.
	//
	// Parameters:
	//   - in: the camera and time values of the frame
	//
	// Returns:
	//   - error: an error if the encoder could not begin the frame
	BeginFrame(in FrameInput) error

	// Draw prepares the item's material and builtin stores, resolves every bind group and the
	// pipeline, and encodes the draw. A failure is logged and skips only this item.
	//
	// Parameters:
	//   - item: the object to draw
	//
	// Returns:
	//   - error: the reason the item was skipped, or nil if it was drawn
	Draw(item DrawItem) error

	// EndFrame ends the render pass and submits the frame.
	//
	// Returns:
	//   - error: an error if submission failed
	EndFrame() error

	// Present displays the last submitted frame.
	Present()

	// EnableGlobalFeature sets a scene feature bit and rewrites the mask in every scene store.
	//
	// Parameters:
	//   - i: the feature index, below uniform.MaxFeatures
	//
	// Returns:
	//   - bool: true if the bit changed
	EnableGlobalFeature(i int) bool

	// DisableGlobalFeature clears a scene feature bit and rewrites the mask in every scene store.
	//
	// Parameters:
	//   - i: the feature index, below uniform.MaxFeatures
	//
	// Returns:
	//   - bool: true if the bit changed
	DisableGlobalFeature(i int) bool

	// GlobalFeatures returns the scene feature mask.
	GlobalFeatures() uniform.FeatureMask

	// SetIBL binds image-based lighting resources and enables uniform.FeatureIBL.
	//
	// Parameters:
	//   - irradiance: the diffuse irradiance cube map
	//   - reflection: the prefiltered specular cube map
	//   - brdfLUT: the split-sum BRDF lookup texture
	//   - sampler: the sampler used with all three
	SetIBL(irradiance, reflection, brdfLUT texture.TextureHandle, sampler texture.SamplerHandle)

	// SetSHCoefficients writes nine spherical harmonics coefficients to _sh_coefficients and
	// enables uniform.FeatureSHLighting.
	//
	// Parameters:
	//   - coeffs: the L2 SH coefficients, one RGB triple each
	SetSHCoefficients(coeffs [9]mgl32.Vec3)

	// SetLightingInfo writes _lighting_info and enables uniform.FeatureDirectionalLight.
	//
	// Parameters:
	//   - info: the directional light
	SetLightingInfo(info shader.GPULightingInfo)

	// SetSceneTexture binds a texture to a named scene binding in every scene store.
	SetSceneTexture(name string, h texture.TextureHandle)

	// SetSceneVec4 writes a vector to a named scene binding in every scene store.
	SetSceneVec4(name string, v mgl32.Vec4)

	// ReleaseObject frees the per-object stores of an object.
	//
	// Parameters:
	//   - id: the object id used in DrawItem
	ReleaseObject(id uuid.UUID)

	// Stats returns the cumulative work counters.
	Stats() Stats

	// Release frees every store, pipeline and GPU resource the renderer owns.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer drawing on dev. When dev also implements device.FrameEncoder
// it is used to encode draws unless WithFrameEncoder overrides it.
//
// Parameters:
//   - dev: the device resources are created on
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new Renderer
func NewRenderer(dev device.Device, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:             &sync.Mutex{},
		dev:            dev,
		cameraStores:   make(map[uint64]uniform.UniformStore),
		sceneStores:    make(map[uint64]uniform.UniformStore),
		objectStores:   make(map[objectKey]uniform.UniformStore),
		record:         uniform.NewFrameSyncRecord(),
		globalFeatures: uniform.NewFeatureSet(shader.BuiltinGlobalFeatures),
		sceneValues:    make(map[string]func(uniform.UniformStore) bool),
	}
	if enc, ok := dev.(device.FrameEncoder); ok {
		r.enc = enc
	}
	for _, opt := range options {
		opt(r)
	}

	if r.library == nil {
		r.library = shader.NewLibrary()
		r.ownsLibrary = true
	}
	if r.res.Textures == nil {
		r.res.Textures = texture.NewManager(dev)
		r.ownsTextures = true
	}
	r.res.Device = dev
	r.res.Allocator = allocator.NewAllocator(dev)
	r.res.BindGroups = bgp.NewBindGroupProvider(dev, bgp.WithLabel("renderer"))
	r.pipelines = pipeline.NewCache(dev)

	if r.enc == nil {
		panic("renderer: failed to create renderer: device has no frame encoder and none was given")
	}
	return r
}

// sharedKey identifies a shared store. Every field that shapes a layout entry is part of
// the key, so two packets share a store only when their layouts are interchangeable.
func sharedKey(p shader.PropertyPacket) uint64 {
	h := fnv.New64a()
	put := func(v uint64) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	flag := func(b bool) uint64 {
		if b {
			return 1
		}
		return 0
	}
	put(p.ContentHash())
	for _, d := range p.Sorted() {
		put(uint64(d.Visibility))
		put(uint64(d.AddressSpace))
		put(d.Size)
		put(uint64(d.ViewDimension))
		put(uint64(d.SampleType))
		put(flag(d.Multisampled))
		put(flag(d.Comparison))
	}
	return h.Sum64()
}

func (r *renderer) Library() shader.Library {
	return r.library
}

func (r *renderer) Textures() texture.Manager {
	return r.res.Textures
}

func (r *renderer) Resources() uniform.Resources {
	return r.res
}

func (r *renderer) Pipelines() pipeline.Cache {
	return r.pipelines
}

func (r *renderer) BeginFrame(in FrameInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.enc.BeginFrame(); err != nil {
		return fmt.Errorf("renderer: failed to begin frame: %w", err)
	}
	if n := r.library.ReleaseRetired(r.dev); n > 0 {
		common.Logger().Debug("renderer: released replaced shaders", "count", n)
	}
	r.record.Reset()
	r.frame = in
	r.inFrame = true
	r.frames++
	return nil
}

func (r *renderer) Draw(item DrawItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.draw(item); err != nil {
		r.drawsSkipped++
		common.Logger().Warn("renderer: draw skipped", "object", item.ObjectID, "error", err)
		return err
	}
	r.draws++
	return nil
}

func (r *renderer) draw(item DrawItem) error {
	if !r.inFrame {
		return ErrNotInFrame
	}
	if item.Material == nil {
		return fmt.Errorf("%w: nil material", ErrMaterialNotReady)
	}
	mat := item.Material
	if !mat.OnUpdate(r.res) {
		return fmt.Errorf("%w: %s waits for shader %q", ErrMaterialNotReady, mat.Label(), mat.ShaderKey())
	}

	sh := mat.Shader()
	packets := sh.Packets()
	flags := sh.BuiltinFlags()

	var groups [shader.TierCount]device.BindGroupID
	groups[shader.TierMaterial] = mat.GetBindGroup()

	if p := packets[shader.TierObject]; p.IsValid() {
		store := r.objectStore(item.ObjectID, sh)
		fillObject(store, flags, item.Model, r.frame)
		store.Sync(r.res)
		groups[shader.TierObject] = store.GetBindGroup(r.res, p)
	}
	if p := packets[shader.TierCamera]; p.IsValid() {
		store := r.sharedStore(r.cameraStores, p)
		if r.record.TryMark(store, "") {
			fillCamera(store, flags, r.frame)
			store.Sync(r.res)
		}
		groups[shader.TierCamera] = store.GetBindGroup(r.res, p)
	}
	if p := packets[shader.TierScene]; p.IsValid() {
		store := r.sharedStore(r.sceneStores, p)
		if r.record.TryMark(store, "") {
			fillScene(store, flags, r.frame)
			store.Sync(r.res)
		}
		groups[shader.TierScene] = store.GetBindGroup(r.res, p)
	}

	pl, err := r.pipelines.GetOrCreate(sh, mat.RenderState(), mat.HashValue(), pipeline.TargetOf(r.enc))
	if err != nil {
		return err
	}

	bound := make(map[uint32]device.BindGroupID, shader.TierCount)
	top := uint32(0)
	for t, p := range packets {
		if !p.IsValid() {
			continue
		}
		if groups[t] == device.InvalidBindGroup {
			return fmt.Errorf("%w: %s group %d", ErrMissingBindGroup, shader.Tier(t), p.BindGroupIndex())
		}
		bound[p.BindGroupIndex()] = groups[t]
		top = max(top, p.BindGroupIndex()+1)
	}

	r.enc.SetPipeline(pl.ID())
	for g := range top {
		id, ok := bound[g]
		if !ok {
			id = r.pipelines.EmptyBindGroup()
		}
		r.enc.SetBindGroup(g, id)
	}
	r.enc.SetVertexBuffer(0, item.Mesh.VertexBuffer)
	r.enc.SetIndexBuffer(item.Mesh.IndexBuffer)
	r.enc.DrawIndexed(item.Mesh.IndexCount, common.Coalesce(item.Mesh.Instances, 1))
	return nil
}

// objectStore returns the store of an object for a shader, creating it on first use.
func (r *renderer) objectStore(id uuid.UUID, sh shader.Shader) uniform.UniformStore {
	key := objectKey{id: id, shader: sh.Hash()}
	if s, ok := r.objectStores[key]; ok {
		return s
	}
	s := uniform.NewUniformStore(sh.Packet(shader.TierObject), r.res.Textures.Builtins())
	r.objectStores[key] = s
	return s
}

// sharedStore returns the camera or scene store for a packet, creating it on first use.
func (r *renderer) sharedStore(stores map[uint64]uniform.UniformStore, p shader.PropertyPacket) uniform.UniformStore {
	key := sharedKey(p)
	if s, ok := stores[key]; ok {
		return s
	}
	s := uniform.NewUniformStore(p, r.res.Textures.Builtins())
	stores[key] = s
	if p.Tier() == shader.TierScene {
		r.globalFeatures.WriteTo(s)
		for _, apply := range r.sceneValues {
			apply(s)
		}
	}
	common.Logger().Debug("renderer: shared store created", "tier", p.Tier(), "group", p.BindGroupIndex(), "stores", len(stores))
	return s
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inFrame {
		return ErrNotInFrame
	}
	r.inFrame = false
	if err := r.enc.EndFrame(); err != nil {
		return fmt.Errorf("renderer: failed to end frame: %w", err)
	}
	return nil
}

func (r *renderer) Present() {
	r.enc.Present()
}

func (r *renderer) ReleaseObject(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, s := range r.objectStores {
		if key.id == id {
			s.Release(r.res)
			delete(r.objectStores, key)
		}
	}
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		Frames:          r.frames,
		Draws:           r.draws,
		DrawsSkipped:    r.drawsSkipped,
		BufferWrites:    r.res.Allocator.Stats().Writes,
		BindGroupsBuilt: r.res.BindGroups.Built(),
		BindGroupsLive:  r.res.BindGroups.Live(),
		PipelinesBuilt:  r.pipelines.Built(),
		Pipelines:       r.pipelines.Len(),
	}
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stores := range []map[uint64]uniform.UniformStore{r.cameraStores, r.sceneStores} {
		for key, s := range stores {
			s.Release(r.res)
			delete(stores, key)
		}
	}
	for key, s := range r.objectStores {
		s.Release(r.res)
		delete(r.objectStores, key)
	}
	r.pipelines.Release()
	r.res.BindGroups.ReleaseAll()
	if r.ownsLibrary {
		r.library.Close(r.dev)
	}
	if r.ownsTextures {
		r.res.Textures.Release()
	}
	r.res.Allocator.Release()
}
