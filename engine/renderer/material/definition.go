package material

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition is wrapped by every error a Definition reports.
var ErrInvalidDefinition = errors.New("material: invalid definition")

// RenderStateDefinition is the declarative form of a pipeline.RenderState. Empty fields keep
// the defaults of pipeline.NewRenderState.
type RenderStateDefinition struct {
	Cull       string `yaml:"cull" toml:"cull"`
	Polygon    string `yaml:"polygon" toml:"polygon"`
	Queue      string `yaml:"queue" toml:"queue"`
	Blend      string `yaml:"blend" toml:"blend"`
	DepthTest  *bool  `yaml:"depth_test" toml:"depth_test"`
	DepthWrite *bool  `yaml:"depth_write" toml:"depth_write"`
}

// Definition is a declarative material description, written in YAML or TOML.
//
//	name: brick
//	shader: textured
//	render_state:
//	  cull: back
//	  blend: none
//	uniforms:
//	  albedo_color: [1, 0.5, 0.5, 1]
//	  roughness: [0.8]
//	features: [1]
type Definition struct {
	Name        string                `yaml:"name" toml:"name"`
	Shader      string                `yaml:"shader" toml:"shader"`
	RenderState RenderStateDefinition `yaml:"render_state" toml:"render_state"`
	Uniforms    map[string][]float32  `yaml:"uniforms" toml:"uniforms"`
	Features    []int                 `yaml:"features" toml:"features"`
}

// LoadDefinition decodes one YAML material definition.
//
// Parameters:
//   - r: the YAML source
//
// Returns:
//   - Definition: the decoded definition
//   - error: a decode error, or an error wrapping ErrInvalidDefinition if a field is invalid
func LoadDefinition(r io.Reader) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("material: failed to decode definition: %w", err)
	}
	return def, def.validate()
}

// LoadDefinitionTOML decodes one TOML material definition. The keys are the same as the
// YAML form, with render_state and uniforms as tables.
//
// Parameters:
//   - r: the TOML source
//
// Returns:
//   - Definition: the decoded definition
//   - error: a decode error, or an error wrapping ErrInvalidDefinition if a field is invalid
func LoadDefinitionTOML(r io.Reader) (Definition, error) {
	var def Definition
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("material: failed to decode definition: %w", err)
	}
	return def, def.validate()
}

// LoadDefinitionFile decodes the definition at path, choosing the format by extension:
// .toml is TOML and anything else is YAML.
func LoadDefinitionFile(path string) (Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return Definition{}, fmt.Errorf("material: failed to open definition: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return LoadDefinitionTOML(f)
	}
	return LoadDefinition(f)
}

func (d Definition) validate() error {
	if d.Shader == "" {
		return fmt.Errorf("%w: %q has no shader", ErrInvalidDefinition, d.Name)
	}
	if _, err := d.RenderState.Build(); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidDefinition, d.Name, err)
	}
	return nil
}

// Build converts the definition into a pipeline.RenderState.
//
// Returns:
//   - pipeline.RenderState: the render state
//   - error: an error if a field names an unknown mode
func (d RenderStateDefinition) Build() (pipeline.RenderState, error) {
	cull, err := pipeline.ParseCullMode(d.Cull)
	if err != nil {
		return pipeline.RenderState{}, err
	}
	topology, err := pipeline.ParsePolygonMode(d.Polygon)
	if err != nil {
		return pipeline.RenderState{}, err
	}
	queue, err := pipeline.ParseQueue(d.Queue)
	if err != nil {
		return pipeline.RenderState{}, err
	}
	blendEnabled, blend, err := pipeline.ParseBlend(d.Blend)
	if err != nil {
		return pipeline.RenderState{}, err
	}

	rs := pipeline.NewRenderState(
		pipeline.WithCullMode(cull),
		pipeline.WithTopology(topology),
		pipeline.WithQueue(queue),
	)
	if blendEnabled {
		rs.BlendEnabled = true
		rs.BlendState = blend
	}
	if d.DepthTest != nil {
		rs.DepthTestEnabled = *d.DepthTest
	}
	if d.DepthWrite != nil {
		rs.DepthWriteEnabled = *d.DepthWrite
	}
	return rs, nil
}

// Build creates the material the definition describes. The shader must already be loaded so
// uniform values can be checked against its bindings.
//
// Parameters:
//   - library: the library holding the shader
//   - textures: the texture manager whose builtins back unset texture bindings
//
// Returns:
//   - Material: the configured material
//   - error: an error wrapping ErrInvalidDefinition if the shader is missing or a uniform
//     does not match its binding
func (d Definition) Build(library shader.Library, textures texture.Manager) (Material, error) {
	if _, ok := library.Get(d.Shader); !ok {
		return nil, fmt.Errorf("%w: %q: shader %q is not loaded", ErrInvalidDefinition, d.Name, d.Shader)
	}
	rs, err := d.RenderState.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidDefinition, d.Name, err)
	}

	options := []MaterialBuilderOption{
		WithRenderState(rs),
		WithFeatures(d.Features...),
	}
	if d.Name != "" {
		options = append(options, WithName(d.Name))
	}
	if textures != nil {
		options = append(options, WithBuiltins(textures.Builtins()))
	}
	m := NewMaterial(d.Shader, library, options...)

	names := make([]string, 0, len(d.Uniforms))
	for name := range d.Uniforms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := applyUniform(m, name, d.Uniforms[name]); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidDefinition, d.Name, err)
		}
	}

	common.Logger().Debug("material: built from definition", "material", m.Label(), "shader", d.Shader)
	return m, nil
}

// applyUniform writes a list of floats into the binding named name, converted to the
// binding's kind.
func applyUniform(m Material, name string, v []float32) error {
	store := m.Store()
	desc, ok := store.Descriptor(name)
	if !ok {
		return fmt.Errorf("uniform %q is not a material binding of shader %q", name, m.ShaderKey())
	}

	want := map[shader.DataType]int{
		shader.DataTypeFloat: 1,
		shader.DataTypeVec2:  2,
		shader.DataTypeVec3:  3,
		shader.DataTypeVec4:  4,
		shader.DataTypeIVec4: 4,
		shader.DataTypeUVec4: 4,
		shader.DataTypeMat3:  9,
		shader.DataTypeMat4:  16,
	}
	if n, fixed := want[desc.DataType]; fixed && len(v) != n {
		return fmt.Errorf("uniform %q is %s and takes %d values, got %d", name, desc.DataType, n, len(v))
	}

	switch desc.DataType {
	case shader.DataTypeFloat:
		store.SetFloat(name, v[0])
	case shader.DataTypeVec2:
		store.SetVec2(name, mgl32.Vec2{v[0], v[1]})
	case shader.DataTypeVec3:
		store.SetVec3(name, mgl32.Vec3{v[0], v[1], v[2]})
	case shader.DataTypeVec4:
		store.SetVec4(name, mgl32.Vec4{v[0], v[1], v[2], v[3]})
	case shader.DataTypeIVec4:
		store.SetIVec4(name, [4]int32{int32(v[0]), int32(v[1]), int32(v[2]), int32(v[3])})
	case shader.DataTypeUVec4:
		store.SetUVec4(name, [4]uint32{uint32(v[0]), uint32(v[1]), uint32(v[2]), uint32(v[3])})
	case shader.DataTypeMat3:
		var mat mgl32.Mat3
		copy(mat[:], v)
		store.SetMat3(name, mat)
	case shader.DataTypeMat4:
		var mat mgl32.Mat4
		copy(mat[:], v)
		store.SetMat4(name, mat)
	case shader.DataTypeStruct:
		if uint64(len(v))*4 > desc.Size {
			return fmt.Errorf("uniform %q holds %d bytes, got %d values", name, desc.Size, len(v))
		}
		store.SetStruct(name, common.SliceToBytes(v))
	case shader.DataTypeTexture, shader.DataTypeSampler:
		return fmt.Errorf("uniform %q is a %s and cannot be set from values", name, desc.DataType)
	}
	return nil
}
