package delivery

import (
	"github.com/go-playground/validator/v10"
)

// ResolvePolicy controls how eagerly the resolver builds included resources.
type ResolvePolicy int

const (
	// ResolveEager builds every included resource, referenced or not, so that
	// the included lists of a collection are fully hydrated.
	ResolveEager ResolvePolicy = iota

	// ResolveSelective builds only what is reachable from the page's items.
	// Included lists then hold only the resources that were reached.
	ResolveSelective
)

// String returns the policy name used in configuration.
func (p ResolvePolicy) String() string {
	if p == ResolveSelective {
		return "selective"
	}

	return "eager"
}

// ParseResolvePolicy maps a configuration value to a policy.
func ParseResolvePolicy(value string) (ResolvePolicy, error) {
	switch value {
	case "", "eager":
		return ResolveEager, nil
	case "selective":
		return ResolveSelective, nil
	default:
		return ResolveEager, ErrUnknownResolvePolicy
	}
}

// ResolutionObserver receives every completed resolution pass.
type ResolutionObserver interface {
	ObserveResolution(res *Resolution)
}

// Option configures resolution and materialization.
type Option func(*options)

type options struct {
	policy    ResolvePolicy
	logger    Logger
	observer  ResolutionObserver
	resolver  ContentTypeResolver
	validator *validator.Validate
}

func newOptions(opts []Option) *options {
	o := &options{policy: ResolveEager}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithResolvePolicy sets the eagerness policy of the resolver.
func WithResolvePolicy(policy ResolvePolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithResolutionObserver registers an observer called after each resolution.
func WithResolutionObserver(observer ResolutionObserver) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithContentTypeResolver sets the resolver consulted for interface-typed
// targets.
func WithContentTypeResolver(resolver ContentTypeResolver) Option {
	return func(o *options) {
		o.resolver = resolver
	}
}

// WithValidation checks `validate` struct tags on every materialized struct.
func WithValidation() Option {
	return func(o *options) {
		o.validator = validator.New(validator.WithRequiredStructEnabled())
	}
}

// WithValidator checks `validate` struct tags using a caller-configured
// validator.
func WithValidator(validate *validator.Validate) Option {
	return func(o *options) {
		o.validator = validate
	}
}
