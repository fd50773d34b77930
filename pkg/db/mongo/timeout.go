package mongo

import (
	"context"
	"time"
)

// WithTimeout bounds ctx by timeout unless it already expires sooner. The
// driver finds a transaction's session through ctx.Value, so a wrapped session
// context stays inside its transaction.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}
