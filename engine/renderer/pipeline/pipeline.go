package pipeline

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Target describes the render pass attachments a pipeline is created against.
type Target struct {
	ColorFormat wgpu.TextureFormat
	DepthFormat wgpu.TextureFormat
	SampleCount uint32
}

// TargetOf returns the Target of a frame encoder.
func TargetOf(enc device.FrameEncoder) Target {
	return Target{
		ColorFormat: enc.ColorFormat(),
		DepthFormat: enc.DepthFormat(),
		SampleCount: enc.SampleCount(),
	}
}

// Key identifies one render pipeline in the Cache.
type Key struct {
	MaterialHash     uint64
	VertexLayoutHash uint64
	Target
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	key         Key
	id          device.PipelineID
	shaderHash  uint64
	shaderKey   string
	renderState RenderState
}

// Pipeline is a cached render pipeline.
type Pipeline interface {
	// Key returns the cache key the pipeline was created under.
	Key() Key

	// ID returns the device handle of the pipeline.
	ID() device.PipelineID

	// ShaderKey returns the key of the shader the pipeline was built from.
	ShaderKey() string

	// RenderState returns the render state the pipeline was built with.
	RenderState() RenderState
}

var _ Pipeline = &pipeline{}

func (p *pipeline) Key() Key {
	return p.key
}

func (p *pipeline) ID() device.PipelineID {
	return p.id
}

func (p *pipeline) ShaderKey() string {
	return p.shaderKey
}

func (p *pipeline) RenderState() RenderState {
	return p.renderState
}

// cache is the implementation of the Cache interface.
type cache struct {
	mu  *sync.Mutex
	dev device.Device

	label      string
	pipelines  map[Key]*pipeline
	layouts    map[uint64]device.PipelineLayoutID
	empty      device.LayoutID
	emptyGroup device.BindGroupID
	built      int
}

// Cache creates one render pipeline per (material hash, vertex layout, target) and reuses it
// for every later draw with the same key.
type Cache interface {
	// GetOrCreate returns the pipeline for the key, creating it on a miss. A miss compiles the
	// shader if needed and creates the shader's pipeline layout once.
	//
	// Parameters:
	//   - sh: the shader the pipeline runs
	//   - rs: the render state the pipeline is built with
	//   - materialHash: the hash of the material, covering sh and rs
	//   - target: the render pass attachments
	//
	// Returns:
	//   - Pipeline: the cached or new pipeline
	//   - error: an error if the shader or pipeline could not be created
	GetOrCreate(sh shader.Shader, rs RenderState, materialHash uint64, target Target) (Pipeline, error)

	// Get returns the pipeline cached under key.
	Get(key Key) (Pipeline, bool)

	// Len returns the number of cached pipelines.
	Len() int

	// Built returns the number of pipelines created over the cache's lifetime.
	Built() int

	// EmptyBindGroup returns the bind group to set for groups no tier occupies. It is invalid
	// until a pipeline layout with such a gap has been created.
	EmptyBindGroup() device.BindGroupID

	// EvictShader releases every pipeline built from sh, along with its pipeline layout.
	// Call it before releasing the shader itself.
	EvictShader(sh shader.Shader)

	// Release releases every pipeline and layout the cache owns.
	Release()
}

var _ Cache = &cache{}

// NewCache creates an empty pipeline cache on dev.
//
// Parameters:
//   - dev: the device pipelines are created on
//   - options: functional options to configure the cache
//
// Returns:
//   - Cache: the new cache
func NewCache(dev device.Device, options ...CacheBuilderOption) Cache {
	c := &cache{
		mu:        &sync.Mutex{},
		dev:       dev,
		label:     "pipeline",
		pipelines: make(map[Key]*pipeline),
		layouts:   make(map[uint64]device.PipelineLayoutID),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cache) GetOrCreate(sh shader.Shader, rs RenderState, materialHash uint64, target Target) (Pipeline, error) {
	key := Key{
		MaterialHash:     materialHash,
		VertexLayoutHash: sh.VertexLayoutHash(),
		Target:           target,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}

	module, err := sh.EnsureCompiled(c.dev)
	if err != nil {
		return nil, err
	}
	layout, err := c.pipelineLayout(sh)
	if err != nil {
		return nil, err
	}

	label := fmt.Sprintf("%s:%s:%016x", c.label, sh.Key(), materialHash)
	id, err := c.dev.CreateRenderPipeline(device.RenderPipelineDescriptor{
		Label:              label,
		Layout:             layout,
		Module:             module,
		VertexEntryPoint:   sh.VertexEntryPoint(),
		FragmentEntryPoint: sh.FragmentEntryPoint(),
		VertexBuffers:      sh.VertexLayouts(),
		Primitive:          rs.Primitive(),
		ColorFormat:        target.ColorFormat,
		Blend:              rs.Blend(),
		WriteMask:          rs.WriteMask,
		DepthFormat:        target.DepthFormat,
		DepthWriteEnabled:  rs.DepthWriteEnabled,
		DepthCompare:       rs.DepthCompare(),
		DepthBias:          rs.DepthBias,
		DepthBiasSlope:     rs.DepthBiasSlopeScale,
		SampleCount:        target.SampleCount,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: failed to create %s: %w", label, err)
	}

	p := &pipeline{
		key:         key,
		id:          id,
		shaderHash:  sh.Hash(),
		shaderKey:   sh.Key(),
		renderState: rs,
	}
	c.pipelines[key] = p
	c.built++
	common.Logger().Debug("pipeline: created", "label", label, "total", len(c.pipelines))
	return p, nil
}

// pipelineLayout returns the pipeline layout of sh, creating it on first use. Groups no tier
// occupies below the highest used group get an empty bind group layout.
func (c *cache) pipelineLayout(sh shader.Shader) (device.PipelineLayoutID, error) {
	if id, ok := c.layouts[sh.Hash()]; ok {
		return id, nil
	}

	byGroup := make(map[uint32]device.LayoutID)
	count := uint32(0)
	for _, p := range sh.Packets() {
		if !p.IsValid() {
			continue
		}
		p.BuildLayout(c.dev)
		byGroup[p.BindGroupIndex()] = p.Layout()
		count = max(count, p.BindGroupIndex()+1)
	}

	layouts := make([]device.LayoutID, count)
	for g := range count {
		if l, ok := byGroup[g]; ok {
			layouts[g] = l
			continue
		}
		if c.empty == device.InvalidLayout {
			empty, err := c.dev.CreateBindGroupLayout(c.label+":empty", nil)
			if err != nil {
				return device.InvalidPipelineLayout, fmt.Errorf("pipeline: failed to create empty bind group layout: %w", err)
			}
			group, err := c.dev.CreateBindGroup(c.label+":empty", empty, nil)
			if err != nil {
				c.dev.ReleaseBindGroupLayout(empty)
				return device.InvalidPipelineLayout, fmt.Errorf("pipeline: failed to create empty bind group: %w", err)
			}
			c.empty = empty
			c.emptyGroup = group
		}
		layouts[g] = c.empty
	}

	id, err := c.dev.CreatePipelineLayout(c.label+":"+sh.Key(), layouts)
	if err != nil {
		return device.InvalidPipelineLayout, fmt.Errorf("pipeline: failed to create layout for %s: %w", sh.Key(), err)
	}
	c.layouts[sh.Hash()] = id
	return id, nil
}

func (c *cache) Get(key Key) (Pipeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pipelines[key]
	if !ok {
		return nil, false
	}
	return p, true
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pipelines)
}

func (c *cache) Built() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.built
}

func (c *cache) EmptyBindGroup() device.BindGroupID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emptyGroup
}

func (c *cache) EvictShader(sh shader.Shader) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := sh.Hash()
	for key, p := range c.pipelines {
		if p.shaderHash == hash {
			c.dev.ReleaseRenderPipeline(p.id)
			delete(c.pipelines, key)
		}
	}
	if id, ok := c.layouts[hash]; ok {
		c.dev.ReleasePipelineLayout(id)
		delete(c.layouts, hash)
	}
}

func (c *cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, p := range c.pipelines {
		c.dev.ReleaseRenderPipeline(p.id)
		delete(c.pipelines, key)
	}
	for hash, id := range c.layouts {
		c.dev.ReleasePipelineLayout(id)
		delete(c.layouts, hash)
	}
	if c.emptyGroup != device.InvalidBindGroup {
		c.dev.ReleaseBindGroup(c.emptyGroup)
		c.emptyGroup = device.InvalidBindGroup
	}
	if c.empty != device.InvalidLayout {
		c.dev.ReleaseBindGroupLayout(c.empty)
		c.empty = device.InvalidLayout
	}
}
