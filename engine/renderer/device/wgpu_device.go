package device

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// releaser is satisfied by every native wgpu object the device hands out.
type releaser interface {
	Release()
}

// arena owns native objects of one kind and hands out integer handles for them.
// Handles start at 1 so the zero value stays the invalid sentinel.
type arena[T releaser] struct {
	next  uint32
	items map[uint32]T
}

func newArena[T releaser]() *arena[T] {
	return &arena[T]{items: make(map[uint32]T)}
}

func (a *arena[T]) put(v T) uint32 {
	a.next++
	a.items[a.next] = v
	return a.next
}

func (a *arena[T]) get(id uint32) (T, bool) {
	v, ok := a.items[id]
	return v, ok
}

func (a *arena[T]) release(id uint32) {
	if v, ok := a.items[id]; ok {
		v.Release()
		delete(a.items, id)
	}
}

func (a *arena[T]) releaseAll() {
	for id, v := range a.items {
		v.Release()
		delete(a.items, id)
	}
}

// texture pairs a native texture with the handle of its default view.
type texture struct {
	tex  *wgpu.Texture
	view TextureViewID
}

func (t texture) Release() {
	t.tex.Release()
}

// wgpuDevice is the cogentcore/webgpu implementation of Device and FrameEncoder.
type wgpuDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	forceFallbackAdapter bool
	maxBindGroups        uint32
	presentMode          wgpu.PresentMode
	sampleCount          MSAASampleCount

	surfaceFormat        wgpu.TextureFormat
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	layouts         *arena[*wgpu.BindGroupLayout]
	bindGroups      *arena[*wgpu.BindGroup]
	buffers         *arena[*wgpu.Buffer]
	modules         *arena[*wgpu.ShaderModule]
	textures        *arena[texture]
	views           *arena[*wgpu.TextureView]
	samplers        *arena[*wgpu.Sampler]
	pipelineLayouts *arena[*wgpu.PipelineLayout]
	pipelines       *arena[*wgpu.RenderPipeline]
}

// WGPUDevice is a Device and FrameEncoder backed by a native WebGPU device, optionally
// presenting to a window surface.
type WGPUDevice interface {
	Device
	FrameEncoder

	// ConfigureSurface (re)configures the surface, MSAA target and depth target for a new size.
	// Must be called before the first BeginFrame and after every window resize.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// Release releases every object still owned by the device, then the device itself.
	Release()
}

var _ WGPUDevice = &wgpuDevice{}

// NewWGPUDevice requests an adapter and device from the WebGPU instance. Failure to acquire
// an adapter or device panics, since no rendering is possible without one.
//
// Parameters:
//   - surfaceDescriptor: the window surface to present to, or nil for a headless device
//   - options: functional options configuring present mode, MSAA and limits
//
// Returns:
//   - WGPUDevice: the ready device
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUDeviceOption) WGPUDevice {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:              &sync.Mutex{},
		presentMode:     wgpu.PresentModeImmediate,
		sampleCount:     MSAA4x,
		maxBindGroups:   4,
		layouts:         newArena[*wgpu.BindGroupLayout](),
		bindGroups:      newArena[*wgpu.BindGroup](),
		buffers:         newArena[*wgpu.Buffer](),
		modules:         newArena[*wgpu.ShaderModule](),
		textures:        newArena[texture](),
		views:           newArena[*wgpu.TextureView](),
		samplers:        newArena[*wgpu.Sampler](),
		pipelineLayouts: newArena[*wgpu.PipelineLayout](),
		pipelines:       newArena[*wgpu.RenderPipeline](),
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	if surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		panic(fmt.Sprintf("device: failed to request adapter: %v", err))
	}
	d.adapter = a

	limits := wgpu.DefaultLimits()
	if d.maxBindGroups > limits.MaxBindGroups {
		limits.MaxBindGroups = d.maxBindGroups
	}
	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(fmt.Sprintf("device: failed to request device: %v", err))
	}
	d.device = dev
	d.queue = dev.GetQueue()
	d.surfaceFormat = wgpu.TextureFormatBGRA8UnormSrgb

	common.Logger().Info("device: created wgpu device", "msaa", uint32(d.sampleCount), "headless", d.surface == nil)
	return d
}

func (d *wgpuDevice) setPresentMode(mode PresentMode) {
	switch mode {
	case PresentModeVSync:
		d.presentMode = wgpu.PresentModeFifo
	default:
		d.presentMode = wgpu.PresentModeImmediate
	}
}

func (d *wgpuDevice) CreateBindGroupLayout(label string, entries []wgpu.BindGroupLayoutEntry) (LayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return InvalidLayout, err
	}
	return LayoutID(d.layouts.put(layout)), nil
}

func (d *wgpuDevice) ReleaseBindGroupLayout(id LayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layouts.release(uint32(id))
}

func (d *wgpuDevice) CreateBindGroup(label string, layout LayoutID, entries []BindGroupEntry) (BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	nativeLayout, ok := d.layouts.get(uint32(layout))
	if !ok {
		return InvalidBindGroup, fmt.Errorf("bind group %q layout %d: %w", label, layout, ErrUnknownHandle)
	}

	nativeEntries := make([]wgpu.BindGroupEntry, 0, len(entries))
	for _, e := range entries {
		ne := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != InvalidBuffer:
			buf, ok := d.buffers.get(uint32(e.Buffer))
			if !ok {
				return InvalidBindGroup, fmt.Errorf("bind group %q binding %d buffer %d: %w", label, e.Binding, e.Buffer, ErrUnknownHandle)
			}
			ne.Buffer = buf
			ne.Offset = e.Offset
			ne.Size = common.Coalesce(e.Size, wgpu.WholeSize)
		case e.TextureView != InvalidTextureView:
			view, ok := d.views.get(uint32(e.TextureView))
			if !ok {
				return InvalidBindGroup, fmt.Errorf("bind group %q binding %d view %d: %w", label, e.Binding, e.TextureView, ErrUnknownHandle)
			}
			ne.TextureView = view
		case e.Sampler != InvalidSampler:
			s, ok := d.samplers.get(uint32(e.Sampler))
			if !ok {
				return InvalidBindGroup, fmt.Errorf("bind group %q binding %d sampler %d: %w", label, e.Binding, e.Sampler, ErrUnknownHandle)
			}
			ne.Sampler = s
		}
		nativeEntries = append(nativeEntries, ne)
	}

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  nativeLayout,
		Entries: nativeEntries,
	})
	if err != nil {
		return InvalidBindGroup, err
	}
	return BindGroupID(d.bindGroups.put(bg)), nil
}

func (d *wgpuDevice) ReleaseBindGroup(id BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindGroups.release(uint32(id))
}

func (d *wgpuDevice) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return InvalidBuffer, err
	}
	return BufferID(d.buffers.put(buf)), nil
}

func (d *wgpuDevice) WriteBuffer(id BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers.get(uint32(id))
	if !ok {
		return fmt.Errorf("write buffer %d: %w", id, ErrUnknownHandle)
	}
	return d.queue.WriteBuffer(buf, offset, data)
}

func (d *wgpuDevice) ReleaseBuffer(id BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffers.release(uint32(id))
}

func (d *wgpuDevice) CreateShaderModule(label, wgsl string) (ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: wgsl,
		},
	})
	if err != nil {
		return InvalidShaderModule, err
	}
	return ShaderModuleID(d.modules.put(module)), nil
}

func (d *wgpuDevice) ReleaseShaderModule(id ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modules.release(uint32(id))
}

func (d *wgpuDevice) CreateTexture(desc TextureDescriptor) (TextureID, TextureViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layers := common.Coalesce(desc.Layers, 1)
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: layers,
		},
		Format:        common.Coalesce(desc.Format, wgpu.TextureFormatRGBA8UnormSrgb),
		MipLevelCount: common.Coalesce(desc.MipLevels, 1),
		SampleCount:   1,
	})
	if err != nil {
		return InvalidTexture, InvalidTextureView, err
	}

	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label + " View",
		Format:          common.Coalesce(desc.Format, wgpu.TextureFormatRGBA8UnormSrgb),
		Dimension:       common.Coalesce(desc.ViewDimension, wgpu.TextureViewDimension2D),
		BaseMipLevel:    0,
		MipLevelCount:   common.Coalesce(desc.MipLevels, 1),
		BaseArrayLayer:  0,
		ArrayLayerCount: layers,
	})
	if err != nil {
		tex.Release()
		return InvalidTexture, InvalidTextureView, err
	}

	viewID := TextureViewID(d.views.put(view))
	texID := TextureID(d.textures.put(texture{tex: tex, view: viewID}))
	return texID, viewID, nil
}

func (d *wgpuDevice) WriteTexture(id TextureID, mipLevel, width, height, layers uint32, pixels []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures.get(uint32(id))
	if !ok {
		return fmt.Errorf("write texture %d: %w", id, ErrUnknownHandle)
	}
	return d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: mipLevel,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: common.Coalesce(layers, 1),
		},
	)
}

func (d *wgpuDevice) ReleaseTexture(id TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.textures.get(uint32(id)); ok {
		d.views.release(uint32(t.view))
	}
	d.textures.release(uint32(id))
}

func (d *wgpuDevice) CreateSampler(desc common.SamplerStagingData) (SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  common.Coalesce(desc.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(desc.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(desc.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(desc.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(desc.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(desc.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(desc.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(desc.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(desc.MaxAnisotropy, 1),
		Compare:       desc.Compare,
	})
	if err != nil {
		return InvalidSampler, err
	}
	return SamplerID(d.samplers.put(s)), nil
}

func (d *wgpuDevice) ReleaseSampler(id SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.samplers.release(uint32(id))
}

func (d *wgpuDevice) CreatePipelineLayout(label string, layouts []LayoutID) (PipelineLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	native := make([]*wgpu.BindGroupLayout, len(layouts))
	for i, id := range layouts {
		l, ok := d.layouts.get(uint32(id))
		if !ok {
			return InvalidPipelineLayout, fmt.Errorf("pipeline layout %q group %d layout %d: %w", label, i, id, ErrUnknownHandle)
		}
		native[i] = l
	}

	pl, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: native,
	})
	if err != nil {
		return InvalidPipelineLayout, err
	}
	return PipelineLayoutID(d.pipelineLayouts.put(pl)), nil
}

func (d *wgpuDevice) ReleasePipelineLayout(id PipelineLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pipelineLayouts.release(uint32(id))
}

func (d *wgpuDevice) CreateRenderPipeline(desc RenderPipelineDescriptor) (PipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, ok := d.pipelineLayouts.get(uint32(desc.Layout))
	if !ok {
		return InvalidPipeline, fmt.Errorf("render pipeline %q layout %d: %w", desc.Label, desc.Layout, ErrUnknownHandle)
	}
	module, ok := d.modules.get(uint32(desc.Module))
	if !ok {
		return InvalidPipeline, fmt.Errorf("render pipeline %q module %d: %w", desc.Label, desc.Module, ErrUnknownHandle)
	}

	target := wgpu.ColorTargetState{
		Format:    desc.ColorFormat,
		WriteMask: desc.WriteMask,
		Blend:     desc.Blend,
	}

	var depthStencil *wgpu.DepthStencilState
	if desc.DepthFormat != wgpu.TextureFormatUndefined {
		depthStencil = &wgpu.DepthStencilState{
			Format:              desc.DepthFormat,
			DepthWriteEnabled:   desc.DepthWriteEnabled,
			DepthCompare:        desc.DepthCompare,
			DepthBias:           desc.DepthBias,
			DepthBiasSlopeScale: desc.DepthBiasSlope,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    desc.VertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: desc.Primitive,
		Multisample: wgpu.MultisampleState{
			Count: common.Coalesce(desc.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return InvalidPipeline, err
	}
	return PipelineID(d.pipelines.put(created)), nil
}

func (d *wgpuDevice) ReleaseRenderPipeline(id PipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pipelines.release(uint32(id))
}

func (d *wgpuDevice) ColorFormat() wgpu.TextureFormat {
	return d.surfaceFormat
}

func (d *wgpuDevice) DepthFormat() wgpu.TextureFormat {
	return wgpu.TextureFormatDepth24Plus
}

func (d *wgpuDevice) SampleCount() uint32 {
	return uint32(d.sampleCount)
}

func (d *wgpuDevice) ConfigureSurface(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil {
		return
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]

	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	d.releaseTargets()
	count := uint32(d.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		msaaTexture, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        d.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(fmt.Sprintf("device: failed to create msaa texture: %v", err))
		}
		d.msaaTexture = msaaTexture
		d.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(fmt.Sprintf("device: failed to create msaa view: %v", err))
		}
	}

	depthTexture, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(fmt.Sprintf("device: failed to create depth texture: %v", err))
	}
	d.depthTexture = depthTexture
	d.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(fmt.Sprintf("device: failed to create depth view: %v", err))
	}

	// With MSAA the swapchain view becomes the resolve target each frame; without it the
	// swapchain view is the color attachment itself.
	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	d.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    d.msaaTextureView,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: storeOp,
				ClearValue: wgpu.Color{
					R: 0.1, G: 0.1, B: 0.1, A: 1.0,
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (d *wgpuDevice) releaseTargets() {
	if d.msaaTextureView != nil {
		d.msaaTextureView.Release()
		d.msaaTextureView = nil
	}
	if d.msaaTexture != nil {
		d.msaaTexture.Release()
		d.msaaTexture = nil
	}
	if d.depthTextureView != nil {
		d.depthTextureView.Release()
		d.depthTextureView = nil
	}
	if d.depthTexture != nil {
		d.depthTexture.Release()
		d.depthTexture = nil
	}
}

func (d *wgpuDevice) BeginFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil || d.renderPassDescriptor == nil {
		return ErrNoSurface
	}
	if d.frameSurface != nil {
		return fmt.Errorf("device: previous frame surface not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if d.sampleCount > 1 {
		d.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		d.renderPassDescriptor.ColorAttachments[0].View = view
	}

	d.frameEncoder = encoder
	d.framePass = encoder.BeginRenderPass(d.renderPassDescriptor)
	d.frameSurface = surfaceTexture
	d.frameView = view
	return nil
}

func (d *wgpuDevice) SetPipeline(id PipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pipelines.get(uint32(id)); ok && d.framePass != nil {
		d.framePass.SetPipeline(p)
	}
}

func (d *wgpuDevice) SetBindGroup(index uint32, id BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if bg, ok := d.bindGroups.get(uint32(id)); ok && d.framePass != nil {
		d.framePass.SetBindGroup(index, bg, nil)
	}
}

func (d *wgpuDevice) SetVertexBuffer(slot uint32, id BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if buf, ok := d.buffers.get(uint32(id)); ok && d.framePass != nil {
		d.framePass.SetVertexBuffer(slot, buf, 0, wgpu.WholeSize)
	}
}

func (d *wgpuDevice) SetIndexBuffer(id BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if buf, ok := d.buffers.get(uint32(id)); ok && d.framePass != nil {
		d.framePass.SetIndexBuffer(buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	}
}

func (d *wgpuDevice) DrawIndexed(indexCount, instanceCount uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.framePass != nil {
		d.framePass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
	}
}

func (d *wgpuDevice) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.framePass == nil {
		return nil
	}
	d.framePass.End()
	d.framePass = nil

	commandBuffer, err := d.frameEncoder.Finish(nil)
	d.frameEncoder.Release()
	d.frameEncoder = nil
	if err != nil {
		d.frameView.Release()
		d.frameSurface.Release()
		d.frameSurface = nil
		d.frameView = nil
		return err
	}

	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (d *wgpuDevice) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface == nil {
		return
	}
	d.surface.Present()

	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	d.frameSurface.Release()
	d.frameSurface = nil
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pipelines.releaseAll()
	d.pipelineLayouts.releaseAll()
	d.bindGroups.releaseAll()
	d.layouts.releaseAll()
	d.views.releaseAll()
	d.textures.releaseAll()
	d.samplers.releaseAll()
	d.buffers.releaseAll()
	d.modules.releaseAll()
	d.releaseTargets()

	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
