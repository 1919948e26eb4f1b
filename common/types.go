// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds pixel data for a texture pending GPU upload.
// The texture manager keeps staging data on the CPU until a uniform store first references the texture,
// at which point the GPU texture and view are created and the pixels uploaded.
type TextureStagingData struct {
	// Label is a debug label forwarded to the GPU texture.
	Label string
	// Pixels holds the base mip level followed by each layer, tightly packed, 4 bytes per texel.
	Pixels []byte
	// Mips holds optional pre-computed mip levels below the base level. Each entry covers every layer of that level.
	Mips [][]byte
	// Width is the width of the base level in pixels.
	Width uint32
	// Height is the height of the base level in pixels.
	Height uint32
	// Layers is the number of array layers. Cube textures use 6. Zero is treated as 1.
	Layers uint32
	// Format is the texel format. Zero selects wgpu.TextureFormatRGBA8UnormSrgb.
	Format wgpu.TextureFormat
	// ViewDimension is the dimension the texture view is created with. Zero selects 2D.
	ViewDimension wgpu.TextureViewDimension
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
type SamplerStagingData struct {
	// Label is a debug label forwarded to the GPU sampler.
	Label string
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// Compare specifies the comparison function for comparison samplers, used in shadow mapping and similar techniques.
	Compare wgpu.CompareFunction
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// DefaultSamplerStagingData returns a linear, repeating sampler description used when a
// sampler binding is left unset.
//
// Returns:
//   - SamplerStagingData: the default sampler description
func DefaultSamplerStagingData() SamplerStagingData {
	return SamplerStagingData{
		Label:         "default sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}

// DefaultComparisonSamplerStagingData returns a linear, clamping comparison sampler description
// used when a sampler_comparison binding is left unset.
//
// Returns:
//   - SamplerStagingData: the default comparison sampler description
func DefaultComparisonSamplerStagingData() SamplerStagingData {
	return SamplerStagingData{
		Label:         "default comparison sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		Compare:       wgpu.CompareFunctionLess,
		MaxAnisotropy: 1,
	}
}
