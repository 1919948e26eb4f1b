package material

import (
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
)

// MaterialBuilderOption is a functional option used to configure a Material during construction.
type MaterialBuilderOption func(*material)

// WithName sets the material name returned by Label.
//
// Parameters:
//   - name: the name of the material
//
// Returns:
//   - MaterialBuilderOption: a function that sets the material's name
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithRenderState sets the initial render state. Defaults to pipeline.NewRenderState().
//
// Parameters:
//   - rs: the render state to draw with
//
// Returns:
//   - MaterialBuilderOption: a function that sets the material's render state
func WithRenderState(rs pipeline.RenderState) MaterialBuilderOption {
	return func(m *material) {
		m.renderState = rs
	}
}

// WithBuiltins sets the fallback resources used as texture defaults. Without it unset texture
// bindings resolve to the texture manager's builtins at bind time.
//
// Parameters:
//   - b: the texture manager's builtins
//
// Returns:
//   - MaterialBuilderOption: a function that sets the texture defaults
func WithBuiltins(b texture.Builtins) MaterialBuilderOption {
	return func(m *material) {
		m.builtins = b
	}
}

// WithFeatures enables feature bits before the shader is bound.
//
// Parameters:
//   - features: the material feature indices to enable
//
// Returns:
//   - MaterialBuilderOption: a function that enables the features
func WithFeatures(features ...int) MaterialBuilderOption {
	return func(m *material) {
		for _, f := range features {
			m.features.Enable(f)
		}
	}
}
