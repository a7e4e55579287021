package quotes

import "context"

type noWaitKey struct{}

// WithNoWait marks ctx so that the fetch it starts fails with rateLimited
// instead of waiting for a token.
func WithNoWait(ctx context.Context) context.Context {
	return context.WithValue(ctx, noWaitKey{}, true)
}

func noWaitFrom(ctx context.Context) bool {
	v, _ := ctx.Value(noWaitKey{}).(bool)
	return v
}
