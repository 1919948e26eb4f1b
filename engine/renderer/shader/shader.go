package shader

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

// shader is the implementation of the Shader interface. Everything except the compiled
// module handle and packet layouts is fixed when NewShader returns.
type shader struct {
	mu *sync.Mutex

	key    string
	source string
	hash   uint64

	bindings []BindingDescriptor
	packets  Packets
	flags    BuiltinFlags

	entryPoints        []EntryPoint
	vertexEntryPoint   string
	fragmentEntryPoint string
	vertexLayouts      []wgpu.VertexBufferLayout
	vertexLayoutHash   uint64

	declarations []Annotation
	roles        map[AnnotationArg]string

	module device.ShaderModuleID
}

// Shader is a pre-processed, reflected and classified WGSL shader. Construction parses the
// source once; the GPU module is created lazily by EnsureCompiled.
type Shader interface {
	// Key returns the unique identifier the shader is registered under.
	Key() string

	// Source returns the pre-processed WGSL source.
	Source() string

	// Hash returns the FNV-1a hash of the pre-processed source.
	Hash() uint64

	// Bindings returns every reflected binding sorted by (group, binding).
	Bindings() []BindingDescriptor

	// Packets returns the per-tier property packets.
	Packets() Packets

	// Packet returns the property packet of one tier.
	Packet(t Tier) PropertyPacket

	// BuiltinFlags returns the builtins the shader declares.
	BuiltinFlags() BuiltinFlags

	// EntryPoints returns the shader's render and compute entry points.
	EntryPoints() []EntryPoint

	// VertexEntryPoint returns the vertex entry point used for render pipelines.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the fragment entry point used for render pipelines.
	FragmentEntryPoint() string

	// VertexLayouts returns the vertex buffer layouts reflected from the vertex entry point.
	VertexLayouts() []wgpu.VertexBufferLayout

	// VertexLayoutHash returns a hash of VertexLayouts, used in pipeline cache keys.
	VertexLayoutHash() uint64

	// Declarations returns the group and provider annotations found in the source.
	Declarations() []Annotation

	// RoleBinding returns the binding name a provider annotation assigned to role.
	//
	// Parameters:
	//   - role: a binding role such as AnnotationArgAlbedoMap
	//
	// Returns:
	//   - string: the binding name
	//   - bool: false if no annotation names the role
	RoleBinding(role AnnotationArg) (string, bool)

	// EnsureCompiled creates the GPU shader module and the layouts of every non-empty packet.
	// Subsequent calls return the existing module.
	//
	// Parameters:
	//   - dev: the device to compile on
	//
	// Returns:
	//   - device.ShaderModuleID: the compiled module
	//   - error: an error if the device rejected the module
	EnsureCompiled(dev device.Device) (device.ShaderModuleID, error)

	// IsCompiled reports whether EnsureCompiled has succeeded.
	IsCompiled() bool

	// Release releases the GPU module and packet layouts. The shader can be compiled again afterward.
	Release(dev device.Device)
}

var _ Shader = &shader{}

// NewShader pre-processes, parses, reflects and classifies WGSL source.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - source: the raw WGSL source, possibly containing @oxy: annotations
//   - options: functional options selecting entry points
//
// Returns:
//   - Shader: the constructed shader
//   - error: an error wrapping ErrMalformedShader if any stage fails
func NewShader(key, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		mu:    &sync.Mutex{},
		key:   key,
		roles: make(map[AnnotationArg]string),
	}
	for _, opt := range options {
		opt(s)
	}

	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: pre-process: %v", ErrMalformedShader, key, err)
	}
	s.source = processed
	s.hash = common.HashString(processed)
	s.declarations = pp.Declarations()

	ast, err := naga.Parse(processed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedShader, key, err)
	}
	module, err := naga.LowerWithSource(ast, processed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedShader, key, err)
	}

	s.bindings, err = Reflect(module)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	s.packets, s.flags = Classify(s.bindings)
	if err := s.checkGroups(); err != nil {
		return nil, err
	}
	if err := s.checkDeclarations(); err != nil {
		return nil, err
	}

	s.entryPoints = ReflectEntryPoints(module)
	for _, ep := range s.entryPoints {
		switch {
		case ep.Stage == wgpu.ShaderStageVertex && s.vertexEntryPoint == "":
			s.vertexEntryPoint = ep.Name
		case ep.Stage == wgpu.ShaderStageFragment && s.fragmentEntryPoint == "":
			s.fragmentEntryPoint = ep.Name
		}
	}
	if s.vertexEntryPoint != "" {
		s.vertexLayouts, err = ReflectVertexInputs(module, s.vertexEntryPoint)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedShader, key, err)
		}
	}
	s.vertexLayoutHash = hashVertexLayouts(s.vertexLayouts)

	common.Logger().Info("shader: loaded", "key", key, "bindings", len(s.bindings), "hash", s.hash)
	return s, nil
}

// NewShaderFromPath reads WGSL source from path and builds a Shader from it.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - path: the WGSL file to read
//   - options: functional options selecting entry points
//
// Returns:
//   - Shader: the constructed shader
//   - error: a read error, or an error wrapping ErrMalformedShader
func NewShaderFromPath(key, path string, options ...ShaderBuilderOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read source file %q: %w", path, err)
	}
	return NewShader(key, string(data), options...)
}

// checkGroups rejects shaders where two tiers share a bind group index.
func (s *shader) checkGroups() error {
	owner := make(map[uint32]Tier)
	for _, p := range s.packets {
		if !p.IsValid() {
			continue
		}
		g := p.BindGroupIndex()
		if other, ok := owner[g]; ok {
			return fmt.Errorf("%w: %s: %s and %s bindings share group %d", ErrMalformedShader, s.key, other, p.Tier(), g)
		}
		owner[g] = p.Tier()
	}
	return nil
}

// checkDeclarations verifies every annotation names a reflected binding and that provider
// tiers agree with classification, then records binding roles.
func (s *shader) checkDeclarations() error {
	for _, a := range s.declarations {
		var found *BindingDescriptor
		for i := range s.bindings {
			if int(s.bindings[i].Group) == *a.Group && int(s.bindings[i].Binding) == *a.Binding {
				found = &s.bindings[i]
				break
			}
		}
		if found == nil {
			return fmt.Errorf("%w: %s: line %d: no resource is bound at group %d binding %d", ErrMalformedShader, s.key, a.Line, *a.Group, *a.Binding)
		}
		if a.Type != AnnotationTypeProvider {
			continue
		}
		want := tierByName[a.Args[0]]
		if got := ClassifyName(found.Name, nil); got != want {
			return fmt.Errorf("%w: %s: line %d: %q is declared %s but classified %s", ErrMalformedShader, s.key, a.Line, found.Name, want, got)
		}
		if len(a.Args) == 2 {
			s.roles[a.Args[1]] = found.Name
		}
	}
	return nil
}

func hashVertexLayouts(layouts []wgpu.VertexBufferLayout) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	for _, l := range layouts {
		put(l.ArrayStride)
		put(uint64(l.StepMode))
		for _, a := range l.Attributes {
			put(uint64(a.Format))
			put(a.Offset)
			put(uint64(a.ShaderLocation))
		}
	}
	return h.Sum64()
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Hash() uint64 {
	return s.hash
}

func (s *shader) Bindings() []BindingDescriptor {
	return s.bindings
}

func (s *shader) Packets() Packets {
	return s.packets
}

func (s *shader) Packet(t Tier) PropertyPacket {
	return s.packets[t]
}

func (s *shader) BuiltinFlags() BuiltinFlags {
	return s.flags
}

func (s *shader) EntryPoints() []EntryPoint {
	return s.entryPoints
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntryPoint
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntryPoint
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) VertexLayoutHash() uint64 {
	return s.vertexLayoutHash
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

func (s *shader) RoleBinding(role AnnotationArg) (string, bool) {
	name, ok := s.roles[role]
	return name, ok
}

func (s *shader) EnsureCompiled(dev device.Device) (device.ShaderModuleID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.module != device.InvalidShaderModule {
		return s.module, nil
	}
	module, err := dev.CreateShaderModule(s.key, s.source)
	if err != nil {
		return device.InvalidShaderModule, fmt.Errorf("shader: %s: %w", s.key, err)
	}
	for _, p := range s.packets {
		p.BuildLayout(dev)
	}
	s.module = module
	common.Logger().Debug("shader: compiled", "key", s.key)
	return module, nil
}

func (s *shader) IsCompiled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.module != device.InvalidShaderModule
}

func (s *shader) Release(dev device.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.packets {
		p.ReleaseLayout(dev)
	}
	if s.module != device.InvalidShaderModule {
		dev.ReleaseShaderModule(s.module)
		s.module = device.InvalidShaderModule
	}
}
