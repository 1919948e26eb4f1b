package light

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestLight_DirectionIsNormalized(t *testing.T) {
	l := NewLight(WithDirection(mgl32.Vec3{0, 0, 4}))
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, l.Direction())

	l.SetDirection(mgl32.Vec3{})
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, l.Direction(), "a zero vector is ignored")

	l.SetDirection(mgl32.Vec3{3, 0, 0})
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, l.Direction())
}

func TestLight_GPUInfo(t *testing.T) {
	l := NewLight(
		WithColor(mgl32.Vec3{1, 0.5, 0.25}),
		WithIntensity(2),
		WithAmbient(mgl32.Vec3{0.1, 0.1, 0.1}),
	)

	info := l.GPUInfo()
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, info.Direction)
	assert.Equal(t, float32(2), info.Intensity)
	assert.Equal(t, mgl32.Vec3{1, 0.5, 0.25}, info.Color)
	assert.Len(t, info.Marshal(), 48)

	l.SetEnabled(false)
	info = l.GPUInfo()
	assert.Zero(t, info.Intensity)
	assert.Equal(t, mgl32.Vec3{0.1, 0.1, 0.1}, info.Ambient, "ambient survives a disabled light")
}
