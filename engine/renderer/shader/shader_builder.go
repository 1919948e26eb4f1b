package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithVertexEntryPoint selects the vertex entry point used for render pipelines.
// When not specified, the first @vertex function is used.
//
// Parameters:
//   - name: the entry point name
//
// Returns:
//   - ShaderBuilderOption: a function that sets the vertex entry point
func WithVertexEntryPoint(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.vertexEntryPoint = name
	}
}

// WithFragmentEntryPoint selects the fragment entry point used for render pipelines.
// When not specified, the first @fragment function is used.
//
// Parameters:
//   - name: the entry point name
//
// Returns:
//   - ShaderBuilderOption: a function that sets the fragment entry point
func WithFragmentEntryPoint(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.fragmentEntryPoint = name
	}
}
