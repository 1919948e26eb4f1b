package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective camera orbiting a target point. Its position is derived from spherical
// coordinates (radius, azimuth, elevation) around the target, and it produces the per-frame
// camera inputs the renderer consumes.
type Camera interface {
	// Position returns the camera position in world space.
	Position() mgl32.Vec3

	// Target returns the point the camera looks at.
	Target() mgl32.Vec3

	// SetTarget moves the orbit center, keeping the spherical offset.
	//
	// Parameters:
	//   - target: the new orbit center
	SetTarget(target mgl32.Vec3)

	// Orbit rotates the camera around its target. Elevation is clamped to the configured range.
	//
	// Parameters:
	//   - dAzimuth: change in horizontal angle, in radians
	//   - dElevation: change in vertical angle, in radians
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the camera toward the target by delta, clamped to the radius range.
	//
	// Parameters:
	//   - delta: distance to move; positive values move closer
	Zoom(delta float32)

	// Radius returns the current distance from the target.
	Radius() float32

	// ViewMatrix returns the world-to-view transform.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the perspective projection for the given aspect ratio.
	//
	// Parameters:
	//   - aspect: viewport width divided by height
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix(aspect float32) mgl32.Mat4

	// FrameInput packs the view, projection and position into renderer frame input.
	//
	// Parameters:
	//   - aspect: viewport width divided by height
	//   - time: seconds since start, written to the scene time builtin
	//
	// Returns:
	//   - renderer.FrameInput: the frame's camera data
	FrameInput(aspect, time float32) renderer.FrameInput

	// Reset restores the orbit to the values the camera was built with.
	Reset()
}

type orbit struct {
	radius    float32
	azimuth   float32
	elevation float32
}

type camera struct {
	mu *sync.Mutex

	up     mgl32.Vec3
	target mgl32.Vec3
	fov    float32
	near   float32
	far    float32

	orbit   orbit
	initial orbit

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32
}

var _ Camera = &camera{}

// NewCamera creates an orbit camera looking at the origin from the +Z side.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &camera{
		mu:           &sync.Mutex{},
		up:           mgl32.Vec3{0, 1, 0},
		fov:          mgl32.DegToRad(45),
		near:         0.1,
		far:          100,
		orbit:        orbit{radius: 5},
		minRadius:    0.5,
		maxRadius:    500,
		minElevation: -float32(math.Pi/2 - 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),
	}
	for _, option := range options {
		option(c)
	}
	c.orbit = c.clamp(c.orbit)
	c.initial = c.orbit
	return c
}

func (c *camera) clamp(o orbit) orbit {
	o.radius = mgl32.Clamp(o.radius, c.minRadius, c.maxRadius)
	o.elevation = mgl32.Clamp(o.elevation, c.minElevation, c.maxElevation)
	return o
}

// position assumes the mutex is held.
func (c *camera) position() mgl32.Vec3 {
	sinElev, cosElev := math.Sincos(float64(c.orbit.elevation))
	sinAzim, cosAzim := math.Sincos(float64(c.orbit.azimuth))
	return c.target.Add(mgl32.Vec3{
		c.orbit.radius * float32(cosElev*sinAzim),
		c.orbit.radius * float32(sinElev),
		c.orbit.radius * float32(cosElev*cosAzim),
	})
}

func (c *camera) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position()
}

func (c *camera) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *camera) SetTarget(target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
}

func (c *camera) Orbit(dAzimuth, dElevation float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orbit.azimuth += dAzimuth
	c.orbit.elevation += dElevation
	c.orbit = c.clamp(c.orbit)
}

func (c *camera) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orbit.radius -= delta
	c.orbit = c.clamp(c.orbit)
}

func (c *camera) Radius() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orbit.radius
}

func (c *camera) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mgl32.LookAtV(c.position(), c.target, c.up)
}

func (c *camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.Perspective(c.fov, common.Coalesce(aspect, 1), c.near, c.far)
}

func (c *camera) FrameInput(aspect, time float32) renderer.FrameInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	eye := c.position()
	return renderer.FrameInput{
		View:           mgl32.LookAtV(eye, c.target, c.up),
		Projection:     common.Perspective(c.fov, common.Coalesce(aspect, 1), c.near, c.far),
		CameraPosition: eye,
		Time:           time,
	}
}

func (c *camera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orbit = c.initial
}
