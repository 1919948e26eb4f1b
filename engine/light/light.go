package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// Light is a directional light source, such as the sun. It has no position; every fragment is
// lit from the same direction with no attenuation. The renderer consumes it through
// GPUInfo, which packs it into the scene-tier lighting struct.
type Light interface {
	// Direction returns the normalized direction pointing towards the light.
	Direction() mgl32.Vec3

	// Color returns the RGB color of the light.
	Color() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier.
	Intensity() float32

	// Ambient returns the RGB ambient term applied to every fragment.
	Ambient() mgl32.Vec3

	// Enabled reports whether the light contributes to shading.
	Enabled() bool

	// SetDirection sets the direction towards the light. The vector is normalized; a zero
	// vector is ignored.
	//
	// Parameters:
	//   - dir: direction towards the light
	SetDirection(dir mgl32.Vec3)

	// SetColor sets the light color.
	SetColor(color mgl32.Vec3)

	// SetIntensity sets the intensity multiplier.
	SetIntensity(intensity float32)

	// SetAmbient sets the ambient color.
	SetAmbient(ambient mgl32.Vec3)

	// SetEnabled toggles the light.
	SetEnabled(enabled bool)

	// GPUInfo packs the light into its uniform layout. A disabled light keeps its ambient
	// term and reports zero intensity.
	//
	// Returns:
	//   - shader.GPULightingInfo: the lighting struct for the scene tier
	GPUInfo() shader.GPULightingInfo
}

type light struct {
	mu        *sync.Mutex
	direction mgl32.Vec3
	color     mgl32.Vec3
	intensity float32
	ambient   mgl32.Vec3
	enabled   bool
}

var _ Light = &light{}

// NewLight creates a white directional light shining straight down.
//
// Parameters:
//   - opts: functional options to configure the light
//
// Returns:
//   - Light: the newly created light
func NewLight(opts ...LightBuilderOption) Light {
	l := &light{
		mu:        &sync.Mutex{},
		direction: mgl32.Vec3{0, 1, 0},
		color:     mgl32.Vec3{1, 1, 1},
		intensity: 1,
		ambient:   mgl32.Vec3{0.05, 0.05, 0.05},
		enabled:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *light) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *light) Color() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *light) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *light) Ambient() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ambient
}

func (l *light) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *light) SetDirection(dir mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n, ok := normalize(dir); ok {
		l.direction = n
	}
}

func (l *light) SetColor(color mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = color
}

func (l *light) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
}

func (l *light) SetAmbient(ambient mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ambient = ambient
}

func (l *light) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

func (l *light) GPUInfo() shader.GPULightingInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	info := shader.GPULightingInfo{
		Direction: l.direction,
		Intensity: l.intensity,
		Color:     l.color,
		Ambient:   l.ambient,
	}
	if !l.enabled {
		info.Intensity = 0
	}
	return info
}

func normalize(v mgl32.Vec3) (mgl32.Vec3, bool) {
	if v.Len() < 1e-8 {
		return v, false
	}
	return v.Normalize(), true
}
