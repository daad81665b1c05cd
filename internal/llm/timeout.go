package llm

import (
	"context"
	"time"
)

type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout bounds every Generate call, retries included, by d.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{inner: p, timeout: d}
}

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *timeoutProvider) ModelID() string {
	return t.inner.ModelID()
}
