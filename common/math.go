package common

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// PutFloats writes each float into buf as little-endian IEEE-754 bits starting at offset 0.
// buf must hold at least 4*len(values) bytes.
//
// Parameters:
//   - buf: destination buffer
//   - values: the floats to encode
func PutFloats(buf []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}

// PutUints writes each uint32 into buf little-endian starting at offset 0.
//
// Parameters:
//   - buf: destination buffer
//   - values: the integers to encode
func PutUints(buf []byte, values ...uint32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
}

// Mat4Bytes serializes a column-major 4x4 matrix into 64 bytes.
//
// Parameters:
//   - m: the matrix to serialize
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func Mat4Bytes(m mgl32.Mat4) []byte {
	buf := make([]byte, 64)
	PutFloats(buf, m[:]...)
	return buf
}

// Mat3Bytes serializes a 3x3 matrix using the WGSL mat3x3<f32> layout, where each
// column is padded to 16 bytes (48 bytes total).
//
// Parameters:
//   - m: the matrix to serialize
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func Mat3Bytes(m mgl32.Mat3) []byte {
	buf := make([]byte, 48)
	for c := range 3 {
		col := m.Col(c)
		PutFloats(buf[c*16:], col[0], col[1], col[2], 0)
	}
	return buf
}

// Perspective creates a right-handed perspective projection mapping depth to the WebGPU
// clip range [0, 1]. mgl32.Perspective targets the OpenGL range [-1, 1] and is not used.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// NormalMatrix returns the inverse-transpose of the upper-left 3x3 of the model matrix.
// A singular model matrix yields the identity.
//
// Parameters:
//   - model: the object's model matrix
//
// Returns:
//   - mgl32.Mat3: the normal matrix
func NormalMatrix(model mgl32.Mat4) mgl32.Mat3 {
	m3 := model.Mat3()
	if m3.Det() == 0 {
		return mgl32.Ident3()
	}
	return m3.Inv().Transpose()
}
