package texture

import "github.com/Carmen-Shannon/oxy-bind/common"

// ManagerBuilderOption is a functional option used to configure a Manager during construction.
type ManagerBuilderOption func(*manager)

// WithDefaultSampler overrides the sampler description used for unset sampler bindings.
//
// Parameters:
//   - data: the sampler description
//
// Returns:
//   - ManagerBuilderOption: a function that sets the default sampler
func WithDefaultSampler(data common.SamplerStagingData) ManagerBuilderOption {
	return func(m *manager) {
		m.defaultSampler = data
	}
}
