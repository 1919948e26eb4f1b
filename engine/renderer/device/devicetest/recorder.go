// Package devicetest provides a recording in-memory Device for tests that must not touch a GPU.
package devicetest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrInjected is returned by a creation call that was told to fail.
var ErrInjected = errors.New("devicetest: injected failure")

// BufferWrite records one WriteBuffer call.
type BufferWrite struct {
	Buffer device.BufferID
	Offset uint64
	Data   []byte
}

// BindGroup records the arguments of one CreateBindGroup call.
type BindGroup struct {
	Label   string
	Layout  device.LayoutID
	Entries []device.BindGroupEntry
}

// Draw records one DrawIndexed call along with the state bound at the time.
type Draw struct {
	Pipeline   device.PipelineID
	BindGroups map[uint32]device.BindGroupID
	IndexCount uint32
	Instances  uint32
}

// Recorder is a Device and FrameEncoder that hands out sequential handles and records
// every call. Handles of all kinds share one counter, so no two objects ever compare equal.
type Recorder struct {
	mu   sync.Mutex
	next uint32

	Layouts         map[device.LayoutID][]wgpu.BindGroupLayoutEntry
	BindGroups      map[device.BindGroupID]BindGroup
	Buffers         map[device.BufferID]uint64
	Modules         map[device.ShaderModuleID]string
	Textures        map[device.TextureID]device.TextureDescriptor
	Samplers        map[device.SamplerID]common.SamplerStagingData
	PipelineLayouts map[device.PipelineLayoutID][]device.LayoutID
	Pipelines       map[device.PipelineID]device.RenderPipelineDescriptor

	Writes        []BufferWrite
	TextureWrites int
	Draws         []Draw

	BindGroupsCreated  int
	BindGroupsReleased int
	PipelinesCreated   int
	ModulesCreated     int

	// FailPipelines makes CreateRenderPipeline return ErrInjected.
	FailPipelines bool
	// FailBindGroups makes CreateBindGroup return ErrInjected.
	FailBindGroups bool

	pipeline device.PipelineID
	bound    map[uint32]device.BindGroupID
}

var _ device.Device = &Recorder{}
var _ device.FrameEncoder = &Recorder{}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		Layouts:         make(map[device.LayoutID][]wgpu.BindGroupLayoutEntry),
		BindGroups:      make(map[device.BindGroupID]BindGroup),
		Buffers:         make(map[device.BufferID]uint64),
		Modules:         make(map[device.ShaderModuleID]string),
		Textures:        make(map[device.TextureID]device.TextureDescriptor),
		Samplers:        make(map[device.SamplerID]common.SamplerStagingData),
		PipelineLayouts: make(map[device.PipelineLayoutID][]device.LayoutID),
		Pipelines:       make(map[device.PipelineID]device.RenderPipelineDescriptor),
		bound:           make(map[uint32]device.BindGroupID),
	}
}

func (r *Recorder) id() uint32 {
	r.next++
	return r.next
}

func (r *Recorder) CreateBindGroupLayout(label string, entries []wgpu.BindGroupLayoutEntry) (device.LayoutID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := device.LayoutID(r.id())
	r.Layouts[id] = append([]wgpu.BindGroupLayoutEntry(nil), entries...)
	return id, nil
}

func (r *Recorder) ReleaseBindGroupLayout(id device.LayoutID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Layouts, id)
}

func (r *Recorder) CreateBindGroup(label string, layout device.LayoutID, entries []device.BindGroupEntry) (device.BindGroupID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailBindGroups {
		return device.InvalidBindGroup, ErrInjected
	}
	if _, ok := r.Layouts[layout]; !ok {
		return device.InvalidBindGroup, fmt.Errorf("bind group %q layout %d: %w", label, layout, device.ErrUnknownHandle)
	}
	id := device.BindGroupID(r.id())
	r.BindGroups[id] = BindGroup{Label: label, Layout: layout, Entries: append([]device.BindGroupEntry(nil), entries...)}
	r.BindGroupsCreated++
	return id, nil
}

func (r *Recorder) ReleaseBindGroup(id device.BindGroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.BindGroups[id]; ok {
		delete(r.BindGroups, id)
		r.BindGroupsReleased++
	}
}

func (r *Recorder) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (device.BufferID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := device.BufferID(r.id())
	r.Buffers[id] = size
	return id, nil
}

func (r *Recorder) WriteBuffer(buf device.BufferID, offset uint64, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	size, ok := r.Buffers[buf]
	if !ok {
		return fmt.Errorf("write buffer %d: %w", buf, device.ErrUnknownHandle)
	}
	if offset+uint64(len(data)) > size {
		return fmt.Errorf("devicetest: write of %d bytes at %d overflows buffer %d of %d bytes", len(data), offset, buf, size)
	}
	r.Writes = append(r.Writes, BufferWrite{Buffer: buf, Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

func (r *Recorder) ReleaseBuffer(id device.BufferID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Buffers, id)
}

func (r *Recorder) CreateShaderModule(label, wgsl string) (device.ShaderModuleID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := device.ShaderModuleID(r.id())
	r.Modules[id] = wgsl
	r.ModulesCreated++
	return id, nil
}

func (r *Recorder) ReleaseShaderModule(id device.ShaderModuleID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Modules, id)
}

func (r *Recorder) CreateTexture(desc device.TextureDescriptor) (device.TextureID, device.TextureViewID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := device.TextureID(r.id())
	r.Textures[id] = desc
	return id, device.TextureViewID(r.id()), nil
}

func (r *Recorder) WriteTexture(tex device.TextureID, mipLevel, width, height, layers uint32, pixels []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Textures[tex]; !ok {
		return fmt.Errorf("write texture %d: %w", tex, device.ErrUnknownHandle)
	}
	r.TextureWrites++
	return nil
}

func (r *Recorder) ReleaseTexture(id device.TextureID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Textures, id)
}

func (r *Recorder) CreateSampler(desc common.SamplerStagingData) (device.SamplerID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := device.SamplerID(r.id())
	r.Samplers[id] = desc
	return id, nil
}

func (r *Recorder) ReleaseSampler(id device.SamplerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Samplers, id)
}

func (r *Recorder) CreatePipelineLayout(label string, layouts []device.LayoutID) (device.PipelineLayoutID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range layouts {
		if _, ok := r.Layouts[l]; !ok {
			return device.InvalidPipelineLayout, fmt.Errorf("pipeline layout %q group %d: %w", label, i, device.ErrUnknownHandle)
		}
	}
	id := device.PipelineLayoutID(r.id())
	r.PipelineLayouts[id] = append([]device.LayoutID(nil), layouts...)
	return id, nil
}

func (r *Recorder) ReleasePipelineLayout(id device.PipelineLayoutID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.PipelineLayouts, id)
}

func (r *Recorder) CreateRenderPipeline(desc device.RenderPipelineDescriptor) (device.PipelineID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailPipelines {
		return device.InvalidPipeline, ErrInjected
	}
	id := device.PipelineID(r.id())
	r.Pipelines[id] = desc
	r.PipelinesCreated++
	return id, nil
}

func (r *Recorder) ReleaseRenderPipeline(id device.PipelineID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Pipelines, id)
}

func (r *Recorder) ColorFormat() wgpu.TextureFormat { return wgpu.TextureFormatBGRA8UnormSrgb }
func (r *Recorder) DepthFormat() wgpu.TextureFormat { return wgpu.TextureFormatDepth24Plus }
func (r *Recorder) SampleCount() uint32             { return 1 }

func (r *Recorder) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipeline = device.InvalidPipeline
	clear(r.bound)
	return nil
}

func (r *Recorder) SetPipeline(id device.PipelineID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipeline = id
}

func (r *Recorder) SetBindGroup(index uint32, id device.BindGroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bound[index] = id
}

func (r *Recorder) SetVertexBuffer(slot uint32, id device.BufferID) {}
func (r *Recorder) SetIndexBuffer(id device.BufferID)               {}

func (r *Recorder) DrawIndexed(indexCount, instanceCount uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	groups := make(map[uint32]device.BindGroupID, len(r.bound))
	for k, v := range r.bound {
		groups[k] = v
	}
	r.Draws = append(r.Draws, Draw{Pipeline: r.pipeline, BindGroups: groups, IndexCount: indexCount, Instances: instanceCount})
}

func (r *Recorder) EndFrame() error { return nil }
func (r *Recorder) Present()        {}

// LiveBindGroups returns the number of bind groups created and not yet released.
func (r *Recorder) LiveBindGroups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.BindGroups)
}

// WriteCount returns the number of WriteBuffer calls recorded so far.
func (r *Recorder) WriteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Writes)
}

// LastWrite returns the most recent write into buf, if any.
func (r *Recorder) LastWrite(buf device.BufferID, offset uint64) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Writes) - 1; i >= 0; i-- {
		w := r.Writes[i]
		if w.Buffer == buf && w.Offset == offset {
			return w.Data, true
		}
	}
	return nil, false
}
