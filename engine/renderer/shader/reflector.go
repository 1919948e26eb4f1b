package shader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga/ir"
)

// ErrMalformedShader is wrapped by every reflection failure. A shader that fails reflection
// is never registered and produces no property packets.
var ErrMalformedShader = errors.New("shader: malformed shader")

// Builtin names whose visibility cannot always be discovered by the reachability scan.
const (
	BuiltinMaterialFeatures = "_material_features"
	BuiltinGlobalFeatures   = "_global_features"
)

var stageMap = map[ir.ShaderStage]wgpu.ShaderStage{
	ir.StageVertex:   wgpu.ShaderStageVertex,
	ir.StageFragment: wgpu.ShaderStageFragment,
	ir.StageCompute:  wgpu.ShaderStageCompute,
}

// Reflect produces one BindingDescriptor per global resource declared by module, sorted by
// (group, binding). Globals in the private, workgroup and function address spaces are ignored.
//
// Parameters:
//   - module: the lowered shader IR
//
// Returns:
//   - []BindingDescriptor: the reflected bindings
//   - error: an error wrapping ErrMalformedShader if a resource has no binding or an unsupported type
func Reflect(module *ir.Module) ([]BindingDescriptor, error) {
	stages := globalStages(module)

	var out []BindingDescriptor
	seen := make(map[string]struct{})
	for i, g := range module.GlobalVariables {
		space, ok := addressSpaceOf(g)
		if !ok {
			continue
		}
		if g.Binding == nil {
			return nil, fmt.Errorf("%w: resource %q has no @group/@binding", ErrMalformedShader, g.Name)
		}
		if _, dup := seen[g.Name]; dup {
			return nil, fmt.Errorf("%w: resource name %q declared twice", ErrMalformedShader, g.Name)
		}
		seen[g.Name] = struct{}{}

		d := BindingDescriptor{
			Name:         g.Name,
			Group:        g.Binding.Group,
			Binding:      g.Binding.Binding,
			AddressSpace: space,
			Visibility:   stages[ir.GlobalVariableHandle(i)],
		}
		if err := describeType(module, g.Type, &d); err != nil {
			return nil, fmt.Errorf("%w: resource %q: %v", ErrMalformedShader, g.Name, err)
		}

		if d.Visibility == wgpu.ShaderStageNone {
			switch {
			case d.Name == BuiltinMaterialFeatures || d.Name == BuiltinGlobalFeatures:
				d.Visibility = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
			case d.DataType.IsResource():
				d.Visibility = wgpu.ShaderStageFragment
			}
		}
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Binding < out[j].Binding
	})
	return out, nil
}

func addressSpaceOf(g ir.GlobalVariable) (AddressSpace, bool) {
	switch g.Space {
	case ir.SpaceUniform:
		return AddressSpaceUniform, true
	case ir.SpaceStorage:
		if g.Access == ir.StorageRead {
			return AddressSpaceStorage, true
		}
		return AddressSpaceStorageReadWrite, true
	case ir.SpaceHandle:
		return AddressSpaceHandle, true
	default:
		return 0, false
	}
}

// globalStages maps every global referenced by an entry point, directly or through called
// functions, to the union of the stages that reach it.
func globalStages(module *ir.Module) map[ir.GlobalVariableHandle]wgpu.ShaderStage {
	out := make(map[ir.GlobalVariableHandle]wgpu.ShaderStage)
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		stage, ok := stageMap[ep.Stage]
		if !ok {
			continue
		}
		w := &stageWalker{module: module, visited: make(map[ir.FunctionHandle]bool)}
		w.function(&ep.Function)
		for g := range w.globals {
			out[g] |= stage
		}
	}
	return out
}

type stageWalker struct {
	module  *ir.Module
	visited map[ir.FunctionHandle]bool
	globals map[ir.GlobalVariableHandle]struct{}
}

func (w *stageWalker) function(fn *ir.Function) {
	if w.globals == nil {
		w.globals = make(map[ir.GlobalVariableHandle]struct{})
	}
	for _, e := range fn.Expressions {
		if gv, ok := e.Kind.(ir.ExprGlobalVariable); ok {
			w.globals[gv.Variable] = struct{}{}
		}
	}
	w.block(fn.Body)
}

func (w *stageWalker) block(b ir.Block) {
	for _, st := range b {
		switch s := st.Kind.(type) {
		case ir.StmtCall:
			if w.visited[s.Function] || int(s.Function) >= len(w.module.Functions) {
				continue
			}
			w.visited[s.Function] = true
			w.function(&w.module.Functions[s.Function])
		case ir.StmtBlock:
			w.block(s.Block)
		case ir.StmtIf:
			w.block(s.Accept)
			w.block(s.Reject)
		case ir.StmtSwitch:
			for _, c := range s.Cases {
				w.block(c.Body)
			}
		case ir.StmtLoop:
			w.block(s.Body)
			w.block(s.Continuing)
		}
	}
}

// describeType fills the type-dependent fields of d from the IR type.
func describeType(module *ir.Module, th ir.TypeHandle, d *BindingDescriptor) error {
	if int(th) >= len(module.Types) {
		return fmt.Errorf("type handle %d out of range", th)
	}
	switch t := module.Types[th].Inner.(type) {
	case ir.ScalarType:
		if t.Kind != ir.ScalarFloat || t.Width != 4 {
			return fmt.Errorf("unimplemented scalar type (kind %d, width %d)", t.Kind, t.Width)
		}
		d.DataType = DataTypeFloat
	case ir.VectorType:
		if t.Size != ir.Vec4 || t.Scalar.Width != 4 {
			return fmt.Errorf("unimplemented vector type vec%d (width %d)", t.Size, t.Scalar.Width)
		}
		switch t.Scalar.Kind {
		case ir.ScalarFloat:
			d.DataType = DataTypeVec4
		case ir.ScalarUint:
			d.DataType = DataTypeUVec4
		case ir.ScalarSint:
			d.DataType = DataTypeIVec4
		default:
			return fmt.Errorf("unimplemented vec4 scalar kind %d", t.Scalar.Kind)
		}
	case ir.MatrixType:
		if t.Columns != ir.Vec4 || t.Rows != ir.Vec4 || t.Scalar.Kind != ir.ScalarFloat || t.Scalar.Width != 4 {
			return fmt.Errorf("unimplemented matrix type mat%dx%d", t.Columns, t.Rows)
		}
		d.DataType = DataTypeMat4
	case ir.StructType:
		d.DataType = DataTypeStruct
		d.Size = uint64(t.Span)
		if d.Size == 0 {
			d.Size = packedSize(module, th)
		}
		return nil
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return fmt.Errorf("runtime-sized array cannot back a uniform value")
		}
		d.DataType = DataTypeStruct
		d.Size = uint64(t.Stride) * uint64(*t.Size.Constant)
		if d.Size == 0 {
			d.Size = packedSize(module, th)
		}
		return nil
	case ir.ImageType:
		return describeImage(t, d)
	case ir.SamplerType:
		d.DataType = DataTypeSampler
		d.Comparison = t.Comparison
		return nil
	default:
		return fmt.Errorf("unsupported resource type %T", t)
	}
	d.Size = d.DataType.ByteSize()
	return nil
}

func describeImage(t ir.ImageType, d *BindingDescriptor) error {
	switch t.Class {
	case ir.ImageClassSampled:
		switch t.SampledKind {
		case ir.ScalarSint:
			d.SampleType = wgpu.TextureSampleTypeSint
		case ir.ScalarUint:
			d.SampleType = wgpu.TextureSampleTypeUint
		default:
			d.SampleType = wgpu.TextureSampleTypeFloat
			if t.Multisampled {
				d.SampleType = wgpu.TextureSampleTypeUnfilterableFloat
			}
		}
	case ir.ImageClassDepth:
		d.SampleType = wgpu.TextureSampleTypeDepth
	default:
		return fmt.Errorf("unimplemented image class %d", t.Class)
	}

	switch t.Dim {
	case ir.Dim1D:
		d.ViewDimension = wgpu.TextureViewDimension1D
	case ir.Dim2D:
		d.ViewDimension = wgpu.TextureViewDimension2D
		if t.Arrayed {
			d.ViewDimension = wgpu.TextureViewDimension2DArray
		}
	case ir.Dim3D:
		d.ViewDimension = wgpu.TextureViewDimension3D
	case ir.DimCube:
		d.ViewDimension = wgpu.TextureViewDimensionCube
		if t.Arrayed {
			d.ViewDimension = wgpu.TextureViewDimensionCubeArray
		}
	}
	d.DataType = DataTypeTexture
	d.Multisampled = t.Multisampled
	return nil
}

// packedSize computes a byte size without alignment padding: scalar = width, vecN = N*width,
// matrix = rows*cols*width, array = element*length, struct = sum of members.
func packedSize(module *ir.Module, th ir.TypeHandle) uint64 {
	if int(th) >= len(module.Types) {
		return 0
	}
	switch t := module.Types[th].Inner.(type) {
	case ir.ScalarType:
		return uint64(t.Width)
	case ir.VectorType:
		return uint64(t.Size) * uint64(t.Scalar.Width)
	case ir.MatrixType:
		return uint64(t.Rows) * uint64(t.Columns) * uint64(t.Scalar.Width)
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return 0
		}
		return packedSize(module, t.Base) * uint64(*t.Size.Constant)
	case ir.StructType:
		var sum uint64
		for _, m := range t.Members {
			sum += packedSize(module, m.Type)
		}
		return sum
	default:
		return 0
	}
}

// EntryPoint names one shader entry point and its stage.
type EntryPoint struct {
	Name  string
	Stage wgpu.ShaderStage
}

// ReflectEntryPoints lists the module's vertex, fragment and compute entry points in declaration order.
//
// Parameters:
//   - module: the lowered shader IR
//
// Returns:
//   - []EntryPoint: the entry points with their stages
func ReflectEntryPoints(module *ir.Module) []EntryPoint {
	var out []EntryPoint
	for _, ep := range module.EntryPoints {
		if stage, ok := stageMap[ep.Stage]; ok {
			out = append(out, EntryPoint{Name: ep.Name, Stage: stage})
		}
	}
	return out
}

type vertexFormatKey struct {
	kind       ir.ScalarKind
	width      uint8
	components uint8
}

type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// vertexFormats maps an IR scalar/vector shape to the vertex format that feeds it.
var vertexFormats = map[vertexFormatKey]vertexFormatInfo{
	{ir.ScalarFloat, 4, 1}: {wgpu.VertexFormatFloat32, 4},
	{ir.ScalarFloat, 4, 2}: {wgpu.VertexFormatFloat32x2, 8},
	{ir.ScalarFloat, 4, 3}: {wgpu.VertexFormatFloat32x3, 12},
	{ir.ScalarFloat, 4, 4}: {wgpu.VertexFormatFloat32x4, 16},
	{ir.ScalarSint, 4, 1}:  {wgpu.VertexFormatSint32, 4},
	{ir.ScalarSint, 4, 2}:  {wgpu.VertexFormatSint32x2, 8},
	{ir.ScalarSint, 4, 3}:  {wgpu.VertexFormatSint32x3, 12},
	{ir.ScalarSint, 4, 4}:  {wgpu.VertexFormatSint32x4, 16},
	{ir.ScalarUint, 4, 1}:  {wgpu.VertexFormatUint32, 4},
	{ir.ScalarUint, 4, 2}:  {wgpu.VertexFormatUint32x2, 8},
	{ir.ScalarUint, 4, 3}:  {wgpu.VertexFormatUint32x3, 12},
	{ir.ScalarUint, 4, 4}:  {wgpu.VertexFormatUint32x4, 16},
	{ir.ScalarFloat, 2, 2}: {wgpu.VertexFormatFloat16x2, 4},
	{ir.ScalarFloat, 2, 4}: {wgpu.VertexFormatFloat16x4, 8},
}

type vertexInput struct {
	location uint32
	info     vertexFormatInfo
}

// ReflectVertexInputs builds a single interleaved vertex buffer layout from the @location
// inputs of a vertex entry point. Inputs may be plain arguments or members of a struct argument.
// Attributes are packed in location order with no padding.
//
// Parameters:
//   - module: the lowered shader IR
//   - entryPoint: the vertex entry point name
//
// Returns:
//   - []wgpu.VertexBufferLayout: one layout, or nil if the entry point takes no vertex inputs
//   - error: an error if the entry point is missing or an input has no vertex format
func ReflectVertexInputs(module *ir.Module, entryPoint string) ([]wgpu.VertexBufferLayout, error) {
	var ep *ir.EntryPoint
	for i := range module.EntryPoints {
		if module.EntryPoints[i].Name == entryPoint && module.EntryPoints[i].Stage == ir.StageVertex {
			ep = &module.EntryPoints[i]
			break
		}
	}
	if ep == nil {
		return nil, fmt.Errorf("vertex entry point %q not found", entryPoint)
	}

	var inputs []vertexInput
	add := func(name string, th ir.TypeHandle, b *ir.Binding) error {
		if b == nil {
			return nil
		}
		loc, ok := (*b).(ir.LocationBinding)
		if !ok {
			return nil
		}
		info, ok := vertexFormatOf(module, th)
		if !ok {
			return fmt.Errorf("vertex input %q at location %d has no vertex format", name, loc.Location)
		}
		inputs = append(inputs, vertexInput{location: loc.Location, info: info})
		return nil
	}

	for _, arg := range ep.Function.Arguments {
		if arg.Binding != nil {
			if err := add(arg.Name, arg.Type, arg.Binding); err != nil {
				return nil, err
			}
			continue
		}
		if int(arg.Type) >= len(module.Types) {
			continue
		}
		if st, ok := module.Types[arg.Type].Inner.(ir.StructType); ok {
			for _, m := range st.Members {
				if err := add(m.Name, m.Type, m.Binding); err != nil {
					return nil, err
				}
			}
		}
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	sort.Slice(inputs, func(i, j int) bool { return inputs[i].location < inputs[j].location })
	attrs := make([]wgpu.VertexAttribute, len(inputs))
	var offset uint64
	for i, in := range inputs {
		attrs[i] = wgpu.VertexAttribute{
			Format:         in.info.format,
			Offset:         offset,
			ShaderLocation: in.location,
		}
		offset += in.info.size
	}
	return []wgpu.VertexBufferLayout{{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}}, nil
}

func vertexFormatOf(module *ir.Module, th ir.TypeHandle) (vertexFormatInfo, bool) {
	if int(th) >= len(module.Types) {
		return vertexFormatInfo{}, false
	}
	var key vertexFormatKey
	switch t := module.Types[th].Inner.(type) {
	case ir.ScalarType:
		key = vertexFormatKey{t.Kind, t.Width, 1}
	case ir.VectorType:
		key = vertexFormatKey{t.Scalar.Kind, t.Scalar.Width, uint8(t.Size)}
	default:
		return vertexFormatInfo{}, false
	}
	info, ok := vertexFormats[key]
	return info, ok
}
