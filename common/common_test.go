package common

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "b", Coalesce("", "b"))
	assert.Zero(t, Coalesce[uint32]())
}

func TestMat3Bytes_PadsColumns(t *testing.T) {
	buf := Mat3Bytes(mgl32.Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.Len(t, buf, 48)

	f := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])) }
	assert.Equal(t, []float32{1, 2, 3, 0}, []float32{f(0), f(1), f(2), f(3)})
	assert.Equal(t, []float32{7, 8, 9, 0}, []float32{f(8), f(9), f(10), f(11)})
}

func TestPerspective_MapsDepthToZeroOne(t *testing.T) {
	const near, far = 0.5, 20
	p := Perspective(mgl32.DegToRad(60), 1.5, near, far)

	n := p.Mul4x1(mgl32.Vec4{0, 0, -near, 1})
	fv := p.Mul4x1(mgl32.Vec4{0, 0, -far, 1})
	assert.InDelta(t, 0, n.Z()/n.W(), 1e-5)
	assert.InDelta(t, 1, fv.Z()/fv.W(), 1e-5)
}

func TestNormalMatrix(t *testing.T) {
	assert.Equal(t, mgl32.Ident3(), NormalMatrix(mgl32.Scale3D(0, 1, 1)))

	n := NormalMatrix(mgl32.Scale3D(2, 1, 1))
	assert.InDelta(t, 0.5, n.At(0, 0), 1e-6)
	assert.InDelta(t, 1, n.At(1, 1), 1e-6)
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	Logger().Info("hello", "k", 1)
	assert.Contains(t, buf.String(), "msg=hello k=1")

	SetLogger(nil)
	Logger().Info("dropped")
	assert.NotContains(t, buf.String(), "dropped")
}
