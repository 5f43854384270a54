package di

// Option is a function that configures the dependency injection container.
type Option func(*options)

// WithProviders adds constructor functions to the dependency injection
// container. Each provider is a constructor function whose parameters are
// resolved from the container.
func WithProviders(providers ...any) Option {
	return func(opts *options) {
		opts.providers = append(opts.providers, providers...)
	}
}

type options struct {
	providers []any
}
