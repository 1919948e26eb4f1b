// annotations.go defines the annotation types, argument constants, and parser for the
// WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed with
// @oxy: that drive builtin struct injection, bind group declaration, and binding role
// registration. Parsed results are stored as Annotation values, consumed by the
// PreProcessor and checked against the reflected bindings when a Shader is built.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered builtin struct at the
	// annotation site. It produces no declaration.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include camera_matrices
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration for a
	// registered struct type and records it as a declaration.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <struct_type>
	//
	// Example: //@oxy:group 2 0 storage_uniform _camera_matrices camera_matrices
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider states which tier owns the binding at a group and binding, and
	// optionally the role the binding plays, without generating WGSL. The declaration below
	// the annotation stays hand-written. A provider whose tier disagrees with the binding's
	// classified tier fails shader construction.
	//
	// Syntax:
	//   //@oxy:provider <group> <binding> <tier>
	//   //@oxy:provider <group> <binding> <tier> <binding_role>
	//
	// Examples:
	//   //@oxy:provider 0 1 material albedo_map
	//   //@oxy:provider 3 0 scene
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation is a single parsed @oxy: annotation.
type Annotation struct {
	Type AnnotationType

	// Args depends on Type:
	//   - include:  [0] = struct type key
	//   - group:    [0] = address space, [1] = var name, [2] = struct type key
	//   - provider: [0] = tier, [1] = binding role (optional)
	Args []AnnotationArg

	// Line is the 1-based source line, used for error reporting.
	Line int

	// Group and Binding are nil for include annotations.
	Group   *int
	Binding *int
}

// AnnotationArg is a typed string argument of an annotation.
type AnnotationArg string

// Struct type arguments, each backed by an embedded .wgsl asset.
const (
	// AnnotationArgMaterialFeatures identifies the MaterialFeatures struct and helper.
	AnnotationArgMaterialFeatures AnnotationArg = "material_features"

	// AnnotationArgGlobalFeatures identifies the GlobalFeatures struct and helper.
	AnnotationArgGlobalFeatures AnnotationArg = "global_features"

	// AnnotationArgCameraMatrices identifies the CameraMatrices struct.
	AnnotationArgCameraMatrices AnnotationArg = "camera_matrices"

	// AnnotationArgObjectMatrices identifies the ObjectMatrices struct.
	AnnotationArgObjectMatrices AnnotationArg = "object_matrices"

	// AnnotationArgLightingInfo identifies the LightingInfo struct.
	AnnotationArgLightingInfo AnnotationArg = "lighting_info"
)

// Address space arguments of group annotations.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// Binding role arguments of provider annotations. Materials resolve their convenience
// setters through these roles before falling back to the conventional binding names.
const (
	AnnotationArgAlbedoMap            AnnotationArg = "albedo_map"
	AnnotationArgAlbedoSampler        AnnotationArg = "albedo_sampler"
	AnnotationArgAlbedoColor          AnnotationArg = "albedo_color"
	AnnotationArgNormalMap            AnnotationArg = "normal_map"
	AnnotationArgMetallicRoughnessMap AnnotationArg = "metallic_roughness_map"
	AnnotationArgEmissiveMap          AnnotationArg = "emissive_map"
	AnnotationArgMetallic             AnnotationArg = "metallic"
	AnnotationArgRoughness            AnnotationArg = "roughness"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgMaterialFeatures,
	AnnotationArgGlobalFeatures,
	AnnotationArgCameraMatrices,
	AnnotationArgObjectMatrices,
	AnnotationArgLightingInfo,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

var validBindingRoles = []AnnotationArg{
	AnnotationArgAlbedoMap,
	AnnotationArgAlbedoSampler,
	AnnotationArgAlbedoColor,
	AnnotationArgNormalMap,
	AnnotationArgMetallicRoughnessMap,
	AnnotationArgEmissiveMap,
	AnnotationArgMetallic,
	AnnotationArgRoughness,
}

// tierByName maps the tier argument of a provider annotation to its Tier.
var tierByName = map[AnnotationArg]Tier{
	"material": TierMaterial,
	"object":   TierObject,
	"camera":   TierCamera,
	"scene":    TierScene,
}

// parseLocation parses the group and binding arguments shared by group and provider annotations.
func parseLocation(kind string, groupArg, bindingArg string, lineNum int) (int, int, error) {
	group, err := strconv.Atoi(groupArg)
	if err != nil || group < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid group number %q in @oxy %s annotation", lineNum, groupArg, kind)
	}
	binding, err := strconv.Atoi(bindingArg)
	if err != nil || binding < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid binding number %q in @oxy %s annotation", lineNum, bindingArg, kind)
	}
	return group, binding, nil
}

// parseAnnotation parses one WGSL source line. It returns nil with no error for lines that
// are not annotations and an error for lines with the prefix but invalid syntax.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires five arguments (group, binding, address space, var name, struct type)", lineNum)
		}
		group, binding, err := parseLocation("group", args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[5])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	case AnnotationTypeProvider:
		if len(args) < 4 || len(args) > 5 {
			return nil, fmt.Errorf("line %d: @oxy provider annotation requires three or four arguments (group, binding, tier[, binding role])", lineNum)
		}
		group, binding, err := parseLocation("provider", args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if _, ok := tierByName[AnnotationArg(args[3])]; !ok {
			return nil, fmt.Errorf("line %d: unknown tier %q in @oxy provider annotation", lineNum, args[3])
		}
		providerArgs := []AnnotationArg{AnnotationArg(args[3])}
		if len(args) == 5 {
			if !slices.Contains(validBindingRoles, AnnotationArg(args[4])) {
				return nil, fmt.Errorf("line %d: unknown binding role %q in @oxy provider annotation", lineNum, args[4])
			}
			providerArgs = append(providerArgs, AnnotationArg(args[4]))
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    providerArgs,
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
