// Package texture stages textures and samplers on the CPU and materialises them on the GPU
// the first time a uniform store binds them.
package texture

import (
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/draw"
)

// TextureHandle names a texture registered with a Manager. The zero value is invalid.
type TextureHandle uint32

// SamplerHandle names a sampler registered with a Manager. The zero value is invalid and
// resolves to the manager's default sampler at bind time.
type SamplerHandle uint32

const (
	InvalidTexture TextureHandle = 0
	InvalidSampler SamplerHandle = 0
)

// Builtins holds the fallback resources a Manager creates for itself. Uniform stores use
// them for texture and sampler bindings nobody has set yet.
type Builtins struct {
	// White is a 1x1 opaque white 2D texture.
	White TextureHandle
	// WhiteArray is a single-layer 1x1 white 2D array texture.
	WhiteArray TextureHandle
	// WhiteCube is a 1x1 white cube texture.
	WhiteCube TextureHandle
	// WhiteCubeArray is a single-cube 1x1 white cube array texture.
	WhiteCubeArray TextureHandle
	// Depth holds 1x1 depth textures cleared to the far plane.
	Depth DimensionSet
	// Sint and Uint hold 1x1 integer textures with every channel at its maximum.
	Sint DimensionSet
	Uint DimensionSet
	// Sampler is a linear repeating sampler.
	Sampler SamplerHandle
	// ComparisonSampler is a linear clamping sampler that compares with wgpu.CompareFunctionLess.
	ComparisonSampler SamplerHandle
}

// DimensionSet holds one fallback texture per supported view dimension.
type DimensionSet struct {
	Flat      TextureHandle
	Array     TextureHandle
	Cube      TextureHandle
	CubeArray TextureHandle
}

func (d DimensionSet) pick(dim wgpu.TextureViewDimension) TextureHandle {
	switch dim {
	case wgpu.TextureViewDimensionCube:
		return d.Cube
	case wgpu.TextureViewDimensionCubeArray:
		return d.CubeArray
	case wgpu.TextureViewDimension2DArray:
		return d.Array
	default:
		return d.Flat
	}
}

// DefaultTexture returns the white fallback texture compatible with a float binding of the
// given view dimension.
//
// Parameters:
//   - dim: the view dimension the binding was declared with
//
// Returns:
//   - TextureHandle: the matching white texture
func (b Builtins) DefaultTexture(dim wgpu.TextureViewDimension) TextureHandle {
	return DimensionSet{Flat: b.White, Array: b.WhiteArray, Cube: b.WhiteCube, CubeArray: b.WhiteCubeArray}.pick(dim)
}

// DefaultTextureFor returns the fallback texture whose format and view dimension satisfy a
// binding layout entry.
//
// Parameters:
//   - dim: the view dimension the binding was declared with
//   - sampleType: the sample type the binding was declared with
//
// Returns:
//   - TextureHandle: the matching fallback texture
func (b Builtins) DefaultTextureFor(dim wgpu.TextureViewDimension, sampleType wgpu.TextureSampleType) TextureHandle {
	switch sampleType {
	case wgpu.TextureSampleTypeDepth:
		return b.Depth.pick(dim)
	case wgpu.TextureSampleTypeSint:
		return b.Sint.pick(dim)
	case wgpu.TextureSampleTypeUint:
		return b.Uint.pick(dim)
	default:
		return b.DefaultTexture(dim)
	}
}

// DefaultSampler returns the fallback sampler for a sampler binding.
//
// Parameters:
//   - comparison: whether the binding is a sampler_comparison
//
// Returns:
//   - SamplerHandle: the comparison sampler or the default filtering sampler
func (b Builtins) DefaultSampler(comparison bool) SamplerHandle {
	if comparison {
		return b.ComparisonSampler
	}
	return b.Sampler
}

// Manager owns every texture and sampler used by uniform stores.
type Manager interface {
	// AddTexture registers staged pixel data. The GPU texture is created lazily.
	//
	// Parameters:
	//   - data: the staged pixels and texture description
	//
	// Returns:
	//   - TextureHandle: the handle of the registered texture
	AddTexture(data common.TextureStagingData) TextureHandle

	// AddImage converts img to RGBA8 and registers it, optionally generating a full mip chain.
	//
	// Parameters:
	//   - label: debug label for the texture
	//   - img: the decoded image
	//   - genMips: whether to build every mip level down to 1x1
	//
	// Returns:
	//   - TextureHandle: the handle of the registered texture
	AddImage(label string, img image.Image, genMips bool) TextureHandle

	// AddSampler registers a sampler description. The GPU sampler is created lazily.
	//
	// Parameters:
	//   - data: the sampler description
	//
	// Returns:
	//   - SamplerHandle: the handle of the registered sampler
	AddSampler(data common.SamplerStagingData) SamplerHandle

	// EnsureGPUTextureValid creates and uploads the GPU texture for h if it does not exist yet.
	//
	// Returns:
	//   - error: an error if h is unknown or the device failed
	EnsureGPUTextureValid(h TextureHandle) error

	// EnsureGPUSamplerValid creates the GPU sampler for h if it does not exist yet.
	// The invalid handle validates the default sampler.
	//
	// Returns:
	//   - error: an error if h is unknown or the device failed
	EnsureGPUSamplerValid(h SamplerHandle) error

	// TextureView returns the GPU view of h. ok is false until EnsureGPUTextureValid succeeded.
	TextureView(h TextureHandle) (view device.TextureViewID, ok bool)

	// Sampler returns the GPU sampler of h. The invalid handle resolves to the default sampler.
	Sampler(h SamplerHandle) (sampler device.SamplerID, ok bool)

	// ViewDimension returns the view dimension a registered texture is created with.
	ViewDimension(h TextureHandle) (wgpu.TextureViewDimension, bool)

	// Builtins returns the manager's fallback resources.
	Builtins() Builtins

	// RemoveTexture releases the GPU texture of h and forgets it.
	RemoveTexture(h TextureHandle)

	// Release releases every GPU texture and sampler the manager created.
	Release()
}

type textureEntry struct {
	staging common.TextureStagingData
	texture device.TextureID
	view    device.TextureViewID
}

type samplerEntry struct {
	staging common.SamplerStagingData
	sampler device.SamplerID
}

type manager struct {
	mu  *sync.Mutex
	dev device.Device

	nextTexture TextureHandle
	nextSampler SamplerHandle
	textures    map[TextureHandle]*textureEntry
	samplers    map[SamplerHandle]*samplerEntry

	defaultSampler common.SamplerStagingData
	builtins       Builtins
}

var _ Manager = &manager{}

// NewManager creates a texture Manager backed by dev and registers its builtin fallbacks.
//
// Parameters:
//   - dev: the device GPU textures and samplers are created on
//   - options: functional options applied before the builtins are registered
//
// Returns:
//   - Manager: the new texture manager
func NewManager(dev device.Device, options ...ManagerBuilderOption) Manager {
	m := &manager{
		mu:             &sync.Mutex{},
		dev:            dev,
		textures:       make(map[TextureHandle]*textureEntry),
		samplers:       make(map[SamplerHandle]*samplerEntry),
		defaultSampler: common.DefaultSamplerStagingData(),
	}
	for _, opt := range options {
		opt(m)
	}

	white := []byte{255, 255, 255, 255}
	m.builtins = Builtins{
		White: m.AddTexture(common.TextureStagingData{
			Label: "default white", Pixels: white, Width: 1, Height: 1,
			Format: wgpu.TextureFormatRGBA8Unorm,
		}),
		WhiteArray: m.AddTexture(common.TextureStagingData{
			Label: "default white array", Pixels: white, Width: 1, Height: 1,
			Format: wgpu.TextureFormatRGBA8Unorm, ViewDimension: wgpu.TextureViewDimension2DArray,
		}),
		WhiteCube: m.AddTexture(common.TextureStagingData{
			Label: "default white cube", Pixels: repeatPixels(white, 6), Width: 1, Height: 1, Layers: 6,
			Format: wgpu.TextureFormatRGBA8Unorm, ViewDimension: wgpu.TextureViewDimensionCube,
		}),
		WhiteCubeArray: m.AddTexture(common.TextureStagingData{
			Label: "default white cube array", Pixels: repeatPixels(white, 6), Width: 1, Height: 1, Layers: 6,
			Format: wgpu.TextureFormatRGBA8Unorm, ViewDimension: wgpu.TextureViewDimensionCubeArray,
		}),
		// Depth16Unorm is the only depth format the queue can write; 0xffff is depth 1.0.
		// Rows are padded to 4 bytes like every other staged texel.
		Depth:             m.addDimensionSet("default depth", []byte{0xff, 0xff, 0, 0}, wgpu.TextureFormatDepth16Unorm),
		Sint:              m.addDimensionSet("default sint", []byte{0x7f, 0x7f, 0x7f, 0x7f}, wgpu.TextureFormatRGBA8Sint),
		Uint:              m.addDimensionSet("default uint", white, wgpu.TextureFormatRGBA8Uint),
		Sampler:           m.AddSampler(m.defaultSampler),
		ComparisonSampler: m.AddSampler(common.DefaultComparisonSamplerStagingData()),
	}
	return m
}

// addDimensionSet registers a 1x1 texture of one texel for each view dimension in DimensionSet.
func (m *manager) addDimensionSet(label string, texel []byte, format wgpu.TextureFormat) DimensionSet {
	return DimensionSet{
		Flat: m.AddTexture(common.TextureStagingData{
			Label: label, Pixels: texel, Width: 1, Height: 1, Format: format,
		}),
		Array: m.AddTexture(common.TextureStagingData{
			Label: label + " array", Pixels: texel, Width: 1, Height: 1,
			Format: format, ViewDimension: wgpu.TextureViewDimension2DArray,
		}),
		Cube: m.AddTexture(common.TextureStagingData{
			Label: label + " cube", Pixels: repeatPixels(texel, 6), Width: 1, Height: 1, Layers: 6,
			Format: format, ViewDimension: wgpu.TextureViewDimensionCube,
		}),
		CubeArray: m.AddTexture(common.TextureStagingData{
			Label: label + " cube array", Pixels: repeatPixels(texel, 6), Width: 1, Height: 1, Layers: 6,
			Format: format, ViewDimension: wgpu.TextureViewDimensionCubeArray,
		}),
	}
}

func repeatPixels(px []byte, n int) []byte {
	out := make([]byte, 0, len(px)*n)
	for range n {
		out = append(out, px...)
	}
	return out
}

func (m *manager) AddTexture(data common.TextureStagingData) TextureHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTexture++
	m.textures[m.nextTexture] = &textureEntry{staging: data}
	return m.nextTexture
}

func (m *manager) AddImage(label string, img image.Image, genMips bool) TextureHandle {
	base := toRGBA(img)
	b := base.Bounds()
	data := common.TextureStagingData{
		Label:  label,
		Pixels: base.Pix,
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
	}
	if genMips {
		data.Mips = mipChain(base)
	}
	return m.AddTexture(data)
}

// toRGBA returns img as a tightly packed *image.RGBA anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// mipChain downsamples base by halves until both dimensions reach 1.
func mipChain(base *image.RGBA) [][]byte {
	var mips [][]byte
	prev := base
	w, h := base.Rect.Dx(), base.Rect.Dy()
	for w > 1 || h > 1 {
		w, h = max(w/2, 1), max(h/2, 1)
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		mips = append(mips, next.Pix)
		prev = next
	}
	return mips
}

func (m *manager) AddSampler(data common.SamplerStagingData) SamplerHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSampler++
	m.samplers[m.nextSampler] = &samplerEntry{staging: data}
	return m.nextSampler
}

func (m *manager) EnsureGPUTextureValid(h TextureHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.textures[h]
	if !ok {
		return fmt.Errorf("texture: unknown texture handle %d", h)
	}
	if e.texture != device.InvalidTexture {
		return nil
	}

	s := e.staging
	layers := common.Coalesce(s.Layers, 1)
	mipLevels := uint32(len(s.Mips)) + 1
	tex, view, err := m.dev.CreateTexture(device.TextureDescriptor{
		Label:         s.Label,
		Width:         s.Width,
		Height:        s.Height,
		Layers:        layers,
		MipLevels:     mipLevels,
		Format:        s.Format,
		ViewDimension: s.ViewDimension,
	})
	if err != nil {
		return fmt.Errorf("texture: failed to create %q: %w", s.Label, err)
	}

	if err := m.dev.WriteTexture(tex, 0, s.Width, s.Height, layers, s.Pixels); err != nil {
		m.dev.ReleaseTexture(tex)
		return fmt.Errorf("texture: failed to upload %q: %w", s.Label, err)
	}
	w, hgt := s.Width, s.Height
	for i, mip := range s.Mips {
		w, hgt = max(w/2, 1), max(hgt/2, 1)
		if err := m.dev.WriteTexture(tex, uint32(i+1), w, hgt, layers, mip); err != nil {
			m.dev.ReleaseTexture(tex)
			return fmt.Errorf("texture: failed to upload %q mip %d: %w", s.Label, i+1, err)
		}
	}

	e.texture = tex
	e.view = view
	return nil
}

func (m *manager) EnsureGPUSamplerValid(h SamplerHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h = common.Coalesce(h, m.builtins.Sampler)
	e, ok := m.samplers[h]
	if !ok {
		return fmt.Errorf("texture: unknown sampler handle %d", h)
	}
	if e.sampler != device.InvalidSampler {
		return nil
	}
	s, err := m.dev.CreateSampler(e.staging)
	if err != nil {
		return fmt.Errorf("texture: failed to create sampler %q: %w", e.staging.Label, err)
	}
	e.sampler = s
	return nil
}

func (m *manager) TextureView(h TextureHandle) (device.TextureViewID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.textures[h]
	if !ok || e.view == device.InvalidTextureView {
		return device.InvalidTextureView, false
	}
	return e.view, true
}

func (m *manager) Sampler(h SamplerHandle) (device.SamplerID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.samplers[common.Coalesce(h, m.builtins.Sampler)]
	if !ok || e.sampler == device.InvalidSampler {
		return device.InvalidSampler, false
	}
	return e.sampler, true
}

func (m *manager) ViewDimension(h TextureHandle) (wgpu.TextureViewDimension, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.textures[h]
	if !ok {
		return wgpu.TextureViewDimensionUndefined, false
	}
	return common.Coalesce(e.staging.ViewDimension, wgpu.TextureViewDimension2D), true
}

func (m *manager) Builtins() Builtins {
	return m.builtins
}

func (m *manager) RemoveTexture(h TextureHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.textures[h]; ok {
		if e.texture != device.InvalidTexture {
			m.dev.ReleaseTexture(e.texture)
		}
		delete(m.textures, h)
	}
}

func (m *manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.textures {
		if e.texture != device.InvalidTexture {
			m.dev.ReleaseTexture(e.texture)
			e.texture, e.view = device.InvalidTexture, device.InvalidTextureView
		}
	}
	for _, e := range m.samplers {
		if e.sampler != device.InvalidSampler {
			m.dev.ReleaseSampler(e.sampler)
			e.sampler = device.InvalidSampler
		}
	}
}
