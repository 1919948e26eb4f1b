package shader

// Tier is the update frequency of a binding. Each tier maps to its own bind group.
type Tier int

const (
	// TierMaterial bindings change when a material is edited.
	TierMaterial Tier = iota
	// TierObject bindings change per drawn object.
	TierObject
	// TierCamera bindings change once per frame per camera.
	TierCamera
	// TierScene bindings change rarely and are shared by every draw.
	TierScene

	TierCount
)

func (t Tier) String() string {
	switch t {
	case TierMaterial:
		return "material"
	case TierObject:
		return "object"
	case TierCamera:
		return "camera"
	case TierScene:
		return "scene"
	default:
		return "unknown"
	}
}

// Object tier builtin names.
const (
	BuiltinModelMatrix               = "_model_matrix"
	BuiltinNormalMatrix              = "_normal_matrix"
	BuiltinModelViewMatrix           = "_model_view_matrix"
	BuiltinModelViewProjectionMatrix = "_model_view_projection_matrix"
	BuiltinObjectMatrices            = "_object_matrices"
)

// Camera tier builtin names.
const (
	BuiltinViewMatrix           = "_view_matrix"
	BuiltinProjectionMatrix     = "_projection_matrix"
	BuiltinViewProjectionMatrix = "_view_projection_matrix"
	BuiltinCameraMatrices       = "_camera_matrices"
	BuiltinCameraPosition       = "_camera_position"
)

// Scene tier builtin names. BuiltinGlobalFeatures is declared with the reflector.
const (
	BuiltinTime           = "_time"
	BuiltinIrradianceMap  = "_irradiance_map"
	BuiltinReflectionMap  = "_reflection_map"
	BuiltinBRDFLUT        = "_brdf_lut"
	BuiltinIBLSampler     = "_ibl_sampler"
	BuiltinSHCoefficients = "_sh_coefficients"
	BuiltinLightingInfo   = "_lighting_info"
)

// BuiltinFlags records which builtin semantics a shader declares. The renderer consults it
// every frame to skip computing values nobody reads.
type BuiltinFlags struct {
	ModelMatrix               bool
	NormalMatrix              bool
	ModelViewMatrix           bool
	ModelViewProjectionMatrix bool
	ObjectMatrices            bool

	ViewMatrix           bool
	ProjectionMatrix     bool
	ViewProjectionMatrix bool
	CameraMatrices       bool
	CameraPosition       bool

	Time           bool
	IrradianceMap  bool
	ReflectionMap  bool
	BRDFLUT        bool
	IBLSampler     bool
	SHCoefficients bool
	LightingInfo   bool
	GlobalFeatures bool

	MaterialFeatures bool
}

// NeedsObjectMatrices reports whether any per-object matrix must be computed.
func (f BuiltinFlags) NeedsObjectMatrices() bool {
	return f.ModelMatrix || f.NormalMatrix || f.ModelViewMatrix || f.ModelViewProjectionMatrix || f.ObjectMatrices
}

// NeedsViewMatrix reports whether any per-object builtin depends on the camera view.
func (f BuiltinFlags) NeedsViewMatrix() bool {
	return f.ModelViewMatrix || f.ModelViewProjectionMatrix || f.ObjectMatrices
}

// HasEnvironment reports whether the shader samples image based lighting resources.
func (f BuiltinFlags) HasEnvironment() bool {
	return f.IrradianceMap || f.ReflectionMap || f.BRDFLUT || f.SHCoefficients
}

type builtinRule struct {
	name string
	set  func(*BuiltinFlags)
}

// The rule sets are tested in tier order: object, camera, scene.
var tierRules = []struct {
	tier  Tier
	rules []builtinRule
}{
	{TierObject, []builtinRule{
		{BuiltinModelMatrix, func(f *BuiltinFlags) { f.ModelMatrix = true }},
		{BuiltinNormalMatrix, func(f *BuiltinFlags) { f.NormalMatrix = true }},
		{BuiltinModelViewMatrix, func(f *BuiltinFlags) { f.ModelViewMatrix = true }},
		{BuiltinModelViewProjectionMatrix, func(f *BuiltinFlags) { f.ModelViewProjectionMatrix = true }},
		{BuiltinObjectMatrices, func(f *BuiltinFlags) { f.ObjectMatrices = true }},
	}},
	{TierCamera, []builtinRule{
		{BuiltinViewMatrix, func(f *BuiltinFlags) { f.ViewMatrix = true }},
		{BuiltinProjectionMatrix, func(f *BuiltinFlags) { f.ProjectionMatrix = true }},
		{BuiltinViewProjectionMatrix, func(f *BuiltinFlags) { f.ViewProjectionMatrix = true }},
		{BuiltinCameraMatrices, func(f *BuiltinFlags) { f.CameraMatrices = true }},
		{BuiltinCameraPosition, func(f *BuiltinFlags) { f.CameraPosition = true }},
	}},
	{TierScene, []builtinRule{
		{BuiltinTime, func(f *BuiltinFlags) { f.Time = true }},
		{BuiltinIrradianceMap, func(f *BuiltinFlags) { f.IrradianceMap = true }},
		{BuiltinReflectionMap, func(f *BuiltinFlags) { f.ReflectionMap = true }},
		{BuiltinBRDFLUT, func(f *BuiltinFlags) { f.BRDFLUT = true }},
		{BuiltinIBLSampler, func(f *BuiltinFlags) { f.IBLSampler = true }},
		{BuiltinSHCoefficients, func(f *BuiltinFlags) { f.SHCoefficients = true }},
		{BuiltinLightingInfo, func(f *BuiltinFlags) { f.LightingInfo = true }},
		{BuiltinGlobalFeatures, func(f *BuiltinFlags) { f.GlobalFeatures = true }},
	}},
}

// Packets holds one PropertyPacket per tier, indexed by Tier.
type Packets [TierCount]PropertyPacket

// ClassifyName returns the tier a binding name belongs to and applies its flag to flags, if any.
//
// Parameters:
//   - name: the binding name
//   - flags: the flags to update, may be nil
//
// Returns:
//   - Tier: the binding's tier
func ClassifyName(name string, flags *BuiltinFlags) Tier {
	for _, set := range tierRules {
		for _, r := range set.rules {
			if r.name == name {
				if flags != nil {
					r.set(flags)
				}
				return set.tier
			}
		}
	}
	if name == BuiltinMaterialFeatures && flags != nil {
		flags.MaterialFeatures = true
	}
	return TierMaterial
}

// Classify partitions descriptors into per-tier packets by name and records which builtins
// the shader declares. The result does not depend on descriptor order.
//
// Parameters:
//   - descs: the reflected descriptors
//
// Returns:
//   - Packets: one packet per tier; packets of unused tiers are empty
//   - BuiltinFlags: the builtins present
func Classify(descs []BindingDescriptor) (Packets, BuiltinFlags) {
	var packets Packets
	for t := range TierCount {
		packets[t] = NewPropertyPacket(t)
	}
	var flags BuiltinFlags
	for _, d := range descs {
		packets[ClassifyName(d.Name, &flags)].Insert(d)
	}
	return packets, flags
}
