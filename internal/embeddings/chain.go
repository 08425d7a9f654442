package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Chain tries an ordered list of providers and returns the first success.
// It replaces exception-style "provider unavailable, try next" control flow
// with an explicit combinator; a total failure aggregates every provider's
// error.
type Chain struct {
	providers []Provider
}

// NewChain builds a provider chain. All providers must agree on the vector
// dimension, since the evidence index is built for a single dimension.
func NewChain(providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one provider required")
	}

	dim := providers[0].Dimension()
	for _, p := range providers[1:] {
		if p.Dimension() != dim {
			return nil, fmt.Errorf("provider dimension mismatch: %d != %d", p.Dimension(), dim)
		}
	}

	return &Chain{providers: providers}, nil
}

// Embed returns the first provider's successful result, in order.
func (c *Chain) Embed(ctx context.Context, text string) ([]float32, error) {
	var errs []error

	for i, p := range c.providers {
		embedding, err := p.Embed(ctx, text)
		if err == nil {
			return embedding, nil
		}
		log.Printf("[embeddings] provider %d failed: %v", i, err)
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

// Dimension returns the shared vector dimension of the chain.
func (c *Chain) Dimension() int {
	return c.providers[0].Dimension()
}
