package render

import (
	"context"
)

// Renderer produces image bytes for question content. Implementations are
// expected to be slow and occasionally failing; the cache invokes them only
// through its single-flight path and bounds them with a deadline.
type Renderer interface {
	Render(ctx context.Context, content Content) ([]byte, error)
}

// RenderFunc adapts a plain function to the Renderer interface.
type RenderFunc func(ctx context.Context, content Content) ([]byte, error)

func (f RenderFunc) Render(ctx context.Context, content Content) ([]byte, error) {
	return f(ctx, content)
}
