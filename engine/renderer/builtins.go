package renderer

import (
	"bytes"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
)

// putMat4 writes m to a mat4 binding, or to a 64-byte struct binding. Unchanged values are not
// rewritten so Sync skips them.
func putMat4(store uniform.UniformStore, name string, m mgl32.Mat4) {
	kind, ok := store.Kind(name)
	if !ok {
		return
	}
	switch kind {
	case shader.DataTypeMat4:
		if cur, _ := store.Mat4(name); cur != m {
			store.SetMat4(name, m)
		}
	case shader.DataTypeStruct:
		putStruct(store, name, common.Mat4Bytes(m))
	default:
		common.Logger().Warn("renderer: builtin has unexpected type", "name", name, "type", kind)
	}
}

// putNormal writes the normal matrix. WGSL mat3x3 cannot be reflected, so shaders declare it as
// a mat4 or as a 48-byte struct of three padded columns.
func putNormal(store uniform.UniformStore, name string, m mgl32.Mat3) {
	kind, ok := store.Kind(name)
	if !ok {
		return
	}
	switch kind {
	case shader.DataTypeMat4:
		putMat4(store, name, m.Mat4())
	case shader.DataTypeMat3:
		if cur, _ := store.Mat3(name); cur != m {
			store.SetMat3(name, m)
		}
	case shader.DataTypeStruct:
		putStruct(store, name, common.Mat3Bytes(m))
	default:
		common.Logger().Warn("renderer: builtin has unexpected type", "name", name, "type", kind)
	}
}

// putPosition writes a point to a vec4 binding with w=1, or to a vec3 binding.
func putPosition(store uniform.UniformStore, name string, p mgl32.Vec3) {
	kind, ok := store.Kind(name)
	if !ok {
		return
	}
	switch kind {
	case shader.DataTypeVec4:
		v := p.Vec4(1)
		if cur, _ := store.Vec4(name); cur != v {
			store.SetVec4(name, v)
		}
	case shader.DataTypeVec3:
		if cur, _ := store.Vec3(name); cur != p {
			store.SetVec3(name, p)
		}
	case shader.DataTypeStruct:
		putStruct(store, name, common.SliceToBytes([]float32{p[0], p[1], p[2], 1}))
	default:
		common.Logger().Warn("renderer: builtin has unexpected type", "name", name, "type", kind)
	}
}

// putStruct writes data to a struct binding whose size must fit it.
func putStruct(store uniform.UniformStore, name string, data []byte) bool {
	d, ok := store.Descriptor(name)
	if !ok || d.DataType != shader.DataTypeStruct {
		return false
	}
	if uint64(len(data)) > d.Size {
		common.Logger().Warn("renderer: builtin struct too small", "name", name, "size", d.Size, "want", len(data))
		return false
	}
	if cur, _ := store.Struct(name); bytes.Equal(cur[:len(data)], data) {
		return true
	}
	return store.SetStruct(name, data)
}

// fillObject writes the object tier builtins the shader declares.
func fillObject(store uniform.UniformStore, flags shader.BuiltinFlags, model mgl32.Mat4, in FrameInput) {
	modelView := in.View.Mul4(model)
	mvp := in.Projection.Mul4(modelView)
	normal := common.NormalMatrix(model)

	if flags.ModelMatrix {
		putMat4(store, shader.BuiltinModelMatrix, model)
	}
	if flags.ModelViewMatrix {
		putMat4(store, shader.BuiltinModelViewMatrix, modelView)
	}
	if flags.ModelViewProjectionMatrix {
		putMat4(store, shader.BuiltinModelViewProjectionMatrix, mvp)
	}
	if flags.NormalMatrix {
		putNormal(store, shader.BuiltinNormalMatrix, normal)
	}
	if flags.ObjectMatrices {
		m := shader.GPUObjectMatrices{Model: model, ModelView: modelView, ModelViewProjection: mvp, Normal: normal}
		putStruct(store, shader.BuiltinObjectMatrices, m.Marshal())
	}
}

// fillCamera writes the camera tier builtins the shader declares.
func fillCamera(store uniform.UniformStore, flags shader.BuiltinFlags, in FrameInput) {
	viewProjection := in.Projection.Mul4(in.View)

	if flags.ViewMatrix {
		putMat4(store, shader.BuiltinViewMatrix, in.View)
	}
	if flags.ProjectionMatrix {
		putMat4(store, shader.BuiltinProjectionMatrix, in.Projection)
	}
	if flags.ViewProjectionMatrix {
		putMat4(store, shader.BuiltinViewProjectionMatrix, viewProjection)
	}
	if flags.CameraPosition {
		putPosition(store, shader.BuiltinCameraPosition, in.CameraPosition)
	}
	if flags.CameraMatrices {
		m := shader.GPUCameraMatrices{View: in.View, Projection: in.Projection, ViewProjection: viewProjection, Position: in.CameraPosition}
		putStruct(store, shader.BuiltinCameraMatrices, m.Marshal())
	}
}

// fillScene writes the per-frame scene builtins. Lighting and IBL values are set through the
// renderer's scene setters and persist across frames.
func fillScene(store uniform.UniformStore, flags shader.BuiltinFlags, in FrameInput) {
	if !flags.Time {
		return
	}
	if kind, _ := store.Kind(shader.BuiltinTime); kind == shader.DataTypeFloat {
		if cur, _ := store.Float(shader.BuiltinTime); cur != in.Time {
			store.SetFloat(shader.BuiltinTime, in.Time)
		}
	}
}
