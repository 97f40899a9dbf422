package stage

import (
	"context"

	"mediaflow/internal/catalog"
)

// Handler is one working stage of the pipeline. Execute merges the stage's
// result into item; the caller persists it. A returned error is fatal to the
// run, so handlers wrapping fallible collaborators absorb failures instead.
type Handler interface {
	Execute(ctx context.Context, item *catalog.Item) error
	HealthCheck(ctx context.Context) Health
}

// Func adapts a plain function into a Handler that always reports healthy.
type Func struct {
	Name string
	Fn   func(ctx context.Context, item *catalog.Item) error
}

func (f Func) Execute(ctx context.Context, item *catalog.Item) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx, item)
}

func (f Func) HealthCheck(context.Context) Health {
	return Healthy(f.Name)
}
