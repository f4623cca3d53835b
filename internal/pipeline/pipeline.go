// Package pipeline implements the interceptor chain wrapped around every
// tool invocation: an authorization gate first, usage accounting second,
// then the tool handler itself.
//
// The chain is assembled once at startup and immutable afterwards. Within a
// single invocation the gate strictly precedes the usage interceptor, which
// strictly precedes the handler; no ordering holds between concurrent
// invocations. Placing the gate outermost keeps rejected calls out of the
// usage statistics entirely: they are never timed and never counted.
package pipeline

import "context"

// Tag names used on tool descriptors.
const (
	// TagAPI marks tools that call the remote API and therefore require a
	// configured token.
	TagAPI = "api"
	// TagGitHub marks GitHub-specific tools.
	TagGitHub = "github"
	// TagRepo marks repository inspection tools.
	TagRepo = "repo"
)

// Descriptor is static metadata for a registered tool: its name and
// capability tags. Owned by the composer, read-only to interceptors.
type Descriptor struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// HasTag reports whether the descriptor carries the given capability tag.
func (d *Descriptor) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Handler is the innermost stage of an invocation: the tool body, or a
// later interceptor wrapping it.
type Handler func(ctx context.Context) (any, error)

// Interceptor wraps one invocation of the next stage. Implementations must
// either call next and return its outcome, or short-circuit with an error.
type Interceptor interface {
	// Name identifies the interceptor in logs.
	Name() string

	// Intercept runs the stage. desc is read-only.
	Intercept(ctx context.Context, desc *Descriptor, next Handler) (any, error)
}

// Chain is an immutable ordered interceptor list. The first interceptor is
// outermost.
type Chain struct {
	interceptors []Interceptor
}

// NewChain builds a chain from interceptors in invocation order.
func NewChain(interceptors ...Interceptor) *Chain {
	ics := make([]Interceptor, len(interceptors))
	copy(ics, interceptors)
	return &Chain{interceptors: ics}
}

// Run executes handler for desc with every interceptor applied in order.
func (c *Chain) Run(ctx context.Context, desc *Descriptor, handler Handler) (any, error) {
	next := handler
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		ic := c.interceptors[i]
		inner := next
		next = func(ctx context.Context) (any, error) {
			return ic.Intercept(ctx, desc, inner)
		}
	}
	return next(ctx)
}

// Len returns the number of interceptors in the chain.
func (c *Chain) Len() int {
	return len(c.interceptors)
}
