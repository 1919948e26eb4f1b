// pre_processor.go implements the WGSL shader pre-processor. It scans shader source for
// @oxy: annotations, replaces them with generated WGSL declarations or injected builtin
// struct source, and collects the declarations a Shader later checks against reflection.
//
// The pre-processor maintains two registries:
//   - structRegistry: maps struct type keys to embedded WGSL sources and their type names.
//     Used by @oxy:include (to inject the source) and @oxy:group (to name the declared type).
//   - addressSpaceRegistry: maps address space keys to WGSL var<> syntax strings.
package shader

import (
	"fmt"
	"strings"
)

// registryEntry pairs an embedded WGSL struct source with its WGSL type name.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string

	// declarations accumulates group and provider annotations. Reset by every Process call.
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process replaces annotations with their WGSL output. An include of a struct already
	// injected earlier in the same source is dropped. A group annotation whose struct was
	// never included gets the struct injected ahead of the declaration.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if an annotation is malformed
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations of the last Process call in source order.
	//
	// Returns:
	//   - []Annotation: the collected declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with every builtin struct registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgMaterialFeatures: {Source: GPUMaterialFeaturesSource, Type: "MaterialFeatures"},
			AnnotationArgGlobalFeatures:   {Source: GPUGlobalFeaturesSource, Type: "GlobalFeatures"},
			AnnotationArgCameraMatrices:   {Source: GPUCameraMatricesSource, Type: "CameraMatrices"},
			AnnotationArgObjectMatrices:   {Source: GPUObjectMatricesSource, Type: "ObjectMatrices"},
			AnnotationArgLightingInfo:     {Source: GPULightingInfoSource, Type: "LightingInfo"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = nil

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	included := make(map[AnnotationArg]bool)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			if included[a.Args[0]] {
				continue
			}
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, a.Args[0])
			}
			included[a.Args[0]] = true
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			entry := p.structRegistry[a.Args[2]]
			if !included[a.Args[2]] {
				included[a.Args[2]] = true
				out = append(out, entry.Source)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, a.Args[1], entry.Type))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
