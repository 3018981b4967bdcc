package document

import (
	"context"
	"strings"
)

var _ Fetcher = (*Router)(nil)

// Router dispatches a URL to the fetcher registered for its scheme and falls
// back to the default fetcher for everything else.
type Router struct {
	fallback Fetcher
	schemes  map[string]Fetcher
}

// NewRouter creates a Router with fallback for unregistered schemes.
func NewRouter(fallback Fetcher) *Router {
	return &Router{fallback: fallback, schemes: map[string]Fetcher{}}
}

// Handle registers f for scheme (without "://").
func (r *Router) Handle(scheme string, f Fetcher) *Router {
	r.schemes[strings.ToLower(scheme)] = f
	return r
}

func (r *Router) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if i := strings.Index(rawURL, "://"); i > 0 {
		if f, ok := r.schemes[strings.ToLower(rawURL[:i])]; ok {
			return f.Fetch(ctx, rawURL)
		}
	}
	return r.fallback.Fetch(ctx, rawURL)
}
