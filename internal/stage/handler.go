package stage

import (
	"context"
	"log/slog"

	"texforge/internal/asset"
)

// Handler describes the contract the asset pipeline needs from each stage.
// Execute mutates the asset context in place; returning an error fails the
// asset (or the run, for setup errors).
type Handler interface {
	Name() string
	Execute(context.Context, *asset.Context) error
}

// LoggerAware stages receive a logger scoped to the running asset and stage.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// Func adapts a plain function into a Handler.
type Func struct {
	StageName string
	Fn        func(context.Context, *asset.Context) error
}

// Name returns the stage name.
func (f Func) Name() string { return f.StageName }

// Execute calls the wrapped function.
func (f Func) Execute(ctx context.Context, ac *asset.Context) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx, ac)
}
