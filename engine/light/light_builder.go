package light

import "github.com/go-gl/mathgl/mgl32"

type LightBuilderOption func(*light)

// WithDirection sets the direction towards the light. The vector is normalized; a zero vector
// keeps the default.
//
// Parameters:
//   - dir: direction towards the light
//
// Returns:
//   - LightBuilderOption: a function that sets the light's direction
func WithDirection(dir mgl32.Vec3) LightBuilderOption {
	return func(l *light) {
		if n, ok := normalize(dir); ok {
			l.direction = n
		}
	}
}

// WithColor sets the light color.
//
// Parameters:
//   - color: RGB color
//
// Returns:
//   - LightBuilderOption: a function that sets the light's color
func WithColor(color mgl32.Vec3) LightBuilderOption {
	return func(l *light) {
		l.color = color
	}
}

// WithIntensity sets the intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightBuilderOption: a function that sets the light's intensity
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *light) {
		l.intensity = intensity
	}
}

// WithAmbient sets the ambient color.
func WithAmbient(ambient mgl32.Vec3) LightBuilderOption {
	return func(l *light) {
		l.ambient = ambient
	}
}

// WithEnabled sets whether the light starts enabled.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *light) {
		l.enabled = enabled
	}
}
