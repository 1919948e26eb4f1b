package shader

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUMaterialFeaturesSource is the WGSL MaterialFeatures struct, its feature index constants
// and the material_feature helper. The helper reads the _material_features binding.
//
//go:embed assets/material_features.wgsl
var GPUMaterialFeaturesSource string

// GPUGlobalFeaturesSource is the WGSL GlobalFeatures struct, its feature index constants
// and the global_feature helper. The helper reads the _global_features binding.
//
//go:embed assets/global_features.wgsl
var GPUGlobalFeaturesSource string

// GPUCameraMatricesSource is the WGSL CameraMatrices struct. Size: 208 bytes.
//
//go:embed assets/camera_matrices.wgsl
var GPUCameraMatricesSource string

// GPUObjectMatricesSource is the WGSL ObjectMatrices struct. Size: 240 bytes.
//
//go:embed assets/object_matrices.wgsl
var GPUObjectMatricesSource string

// GPULightingInfoSource is the WGSL LightingInfo struct. Size: 48 bytes.
//
//go:embed assets/lighting_info.wgsl
var GPULightingInfoSource string

// GPUCameraMatrices mirrors the WGSL CameraMatrices struct (see GPUCameraMatricesSource).
type GPUCameraMatrices struct {
	View           mgl32.Mat4 // offset   0
	Projection     mgl32.Mat4 // offset  64
	ViewProjection mgl32.Mat4 // offset 128
	Position       mgl32.Vec3 // offset 192, padded to vec4
}

// Size returns the WGSL size of CameraMatrices in bytes.
func (g *GPUCameraMatrices) Size() int {
	return 208
}

// Marshal serializes the struct into its WGSL uniform layout.
//
// Returns:
//   - []byte: the 208-byte buffer
func (g *GPUCameraMatrices) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloats(buf[0:], g.View[:]...)
	common.PutFloats(buf[64:], g.Projection[:]...)
	common.PutFloats(buf[128:], g.ViewProjection[:]...)
	common.PutFloats(buf[192:], g.Position[0], g.Position[1], g.Position[2], 1)
	return buf
}

// GPUObjectMatrices mirrors the WGSL ObjectMatrices struct (see GPUObjectMatricesSource).
type GPUObjectMatrices struct {
	Model               mgl32.Mat4 // offset   0
	ModelView           mgl32.Mat4 // offset  64
	ModelViewProjection mgl32.Mat4 // offset 128
	Normal              mgl32.Mat3 // offset 192, columns padded to 16 bytes
}

// Size returns the WGSL size of ObjectMatrices in bytes.
func (g *GPUObjectMatrices) Size() int {
	return 240
}

// Marshal serializes the struct into its WGSL uniform layout.
//
// Returns:
//   - []byte: the 240-byte buffer
func (g *GPUObjectMatrices) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloats(buf[0:], g.Model[:]...)
	common.PutFloats(buf[64:], g.ModelView[:]...)
	common.PutFloats(buf[128:], g.ModelViewProjection[:]...)
	copy(buf[192:], common.Mat3Bytes(g.Normal))
	return buf
}

// GPULightingInfo mirrors the WGSL LightingInfo struct (see GPULightingInfoSource).
type GPULightingInfo struct {
	Direction mgl32.Vec3 // offset  0
	Intensity float32    // offset 12
	Color     mgl32.Vec3 // offset 16, padded to vec4
	Ambient   mgl32.Vec3 // offset 32, padded to vec4
}

// Size returns the WGSL size of LightingInfo in bytes.
func (g *GPULightingInfo) Size() int {
	return 48
}

// Marshal serializes the struct into its WGSL uniform layout.
//
// Returns:
//   - []byte: the 48-byte buffer
func (g *GPULightingInfo) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloats(buf[0:], g.Direction[0], g.Direction[1], g.Direction[2], g.Intensity)
	common.PutFloats(buf[16:], g.Color[0], g.Color[1], g.Color[2], 1)
	common.PutFloats(buf[32:], g.Ambient[0], g.Ambient[1], g.Ambient[2], 1)
	return buf
}
