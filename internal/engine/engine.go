package engine

import (
	"context"

	"github.com/astroserve/astroserve/internal/chart"
)

// Engine computes an astral chart from a validated submission. The returned
// payload is opaque to the caller; its schema belongs to the engine.
type Engine interface {
	Compute(ctx context.Context, in chart.Input) (map[string]any, error)
}
