package entry

import (
	"context"
	"errors"
	"fmt"

	"github.com/litescript/ls-constellations/internal/resolver"
)

// Chain asks each provider in turn until one answers. A provider that
// returns ErrNoAnswer is skipped; any other error stops the chain.
type Chain []resolver.MissingDataProvider

// Position implements resolver.MissingDataProvider.
func (c Chain) Position(ctx context.Context, identifier string) (resolver.ManualPosition, error) {
	for _, p := range c {
		pos, err := p.Position(ctx, identifier)
		if errors.Is(err, ErrNoAnswer) {
			continue
		}
		return pos, err
	}
	return resolver.ManualPosition{}, c.exhausted(identifier)
}

// Distance implements resolver.MissingDataProvider.
func (c Chain) Distance(ctx context.Context, identifier string) (float64, error) {
	for _, p := range c {
		d, err := p.Distance(ctx, identifier)
		if errors.Is(err, ErrNoAnswer) {
			continue
		}
		return d, err
	}
	return 0, c.exhausted(identifier)
}

func (c Chain) exhausted(identifier string) error {
	return fmt.Errorf("%w: %w: %d providers had nothing for %q", resolver.ErrIncompleteEntry, ErrNoAnswer, len(c), identifier)
}
