package reasoning

import (
	"context"

	"golang.org/x/time/rate"
)

// limitedGateway wraps a Gateway with token-bucket rate limiting.
// Waiting respects the caller's context; a cancelled wait surfaces as ErrTimeout.
type limitedGateway struct {
	inner   Gateway
	limiter *rate.Limiter
}

func newLimitedGateway(inner Gateway, limiter *rate.Limiter) Gateway {
	return &limitedGateway{inner: inner, limiter: limiter}
}

func (g *limitedGateway) Name() string {
	return g.inner.Name()
}

func (g *limitedGateway) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, ErrTimeout
	}
	return g.inner.Complete(ctx, req)
}
