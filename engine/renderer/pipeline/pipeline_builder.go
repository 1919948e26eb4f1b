package pipeline

// CacheBuilderOption is a functional option used to configure a Cache during construction.
type CacheBuilderOption func(*cache)

// WithLabel sets the prefix of the debug labels given to pipelines and layouts.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - CacheBuilderOption: a function that sets the label prefix
func WithLabel(label string) CacheBuilderOption {
	return func(c *cache) {
		c.label = label
	}
}
