package stage

import (
	"context"
	"errors"
	"testing"

	"texforge/internal/asset"
)

func TestFuncAdapter(t *testing.T) {
	called := false
	h := Func{StageName: "probe", Fn: func(_ context.Context, ac *asset.Context) error {
		called = ac != nil
		return errors.New("boom")
	}}
	if h.Name() != "probe" {
		t.Fatalf("unexpected name %q", h.Name())
	}
	if err := h.Execute(context.Background(), &asset.Context{}); err == nil || !called {
		t.Fatalf("expected wrapped function to run and return its error")
	}
	if err := (Func{StageName: "empty"}).Execute(context.Background(), nil); err != nil {
		t.Fatalf("nil function should be a no-op, got %v", err)
	}
}
