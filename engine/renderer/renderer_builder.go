package renderer

import (
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLibrary sets the shader library materials are resolved against. The renderer does not
// close a library it was given.
//
// Parameters:
//   - library: the shader library
//
// Returns:
//   - RendererBuilderOption: a function that applies the library option to a renderer
func WithLibrary(library shader.Library) RendererBuilderOption {
	return func(r *renderer) {
		r.library = library
	}
}

// WithFrameEncoder sets the encoder draws are recorded into, overriding the device's own.
//
// Parameters:
//   - enc: the frame encoder
//
// Returns:
//   - RendererBuilderOption: a function that applies the encoder option to a renderer
func WithFrameEncoder(enc device.FrameEncoder) RendererBuilderOption {
	return func(r *renderer) {
		r.enc = enc
	}
}

// WithTextureManager sets the texture manager shared with the caller. The renderer does not
// release a manager it was given.
//
// Parameters:
//   - textures: the texture manager
//
// Returns:
//   - RendererBuilderOption: a function that applies the texture manager option to a renderer
func WithTextureManager(textures texture.Manager) RendererBuilderOption {
	return func(r *renderer) {
		r.res.Textures = textures
	}
}
