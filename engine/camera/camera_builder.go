package camera

import "github.com/go-gl/mathgl/mgl32"

type CameraBuilderOption func(*camera)

// WithUp sets the camera's up vector.
//
// Parameters:
//   - up: the up direction
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *camera) {
		c.up = up
	}
}

// WithFov sets the vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *camera) {
		c.fov = fov
	}
}

// WithClipPlanes sets the near and far clipping distances.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the clip planes
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *camera) {
		c.near = near
		c.far = far
	}
}

// WithTarget sets the orbit center.
//
// Parameters:
//   - target: the point the camera looks at
//
// Returns:
//   - CameraBuilderOption: a function that sets the target
func WithTarget(target mgl32.Vec3) CameraBuilderOption {
	return func(c *camera) {
		c.target = target
	}
}

// WithOrbit sets the starting spherical coordinates around the target.
//
// Parameters:
//   - radius: distance from the target
//   - azimuth: horizontal angle around the up axis, in radians
//   - elevation: vertical angle above the horizontal plane, in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the orbit
func WithOrbit(radius, azimuth, elevation float32) CameraBuilderOption {
	return func(c *camera) {
		c.orbit = orbit{radius: radius, azimuth: azimuth, elevation: elevation}
	}
}

// WithRadiusLimits bounds the zoom distance.
func WithRadiusLimits(minRadius, maxRadius float32) CameraBuilderOption {
	return func(c *camera) {
		c.minRadius = minRadius
		c.maxRadius = maxRadius
	}
}

// WithElevationLimits bounds the vertical orbit angle, in radians.
func WithElevationLimits(minElevation, maxElevation float32) CameraBuilderOption {
	return func(c *camera) {
		c.minElevation = minElevation
		c.maxElevation = maxElevation
	}
}
