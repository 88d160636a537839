package application

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"shopcore/internal/pkg/logger"
	"shopcore/internal/pkg/metrics"
)

// hook is one post-commit side effect. Hooks run only after the
// transaction has committed; they are isolated from each other and from
// the caller, so a failing or panicking hook can neither affect another
// hook nor convert the committed operation into a reported failure.
type hook struct {
	name string
	fn   func(ctx context.Context) error
}

func runHooks(ctx context.Context, hooks []hook) {
	var g errgroup.Group
	for _, h := range hooks {
		h := h
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					metrics.HookFailures.WithLabelValues(h.name).Inc()
					logger.Ctx(ctx).Error().
						Str("hook", h.name).
						Msg(fmt.Sprintf("post-commit hook panicked: %v", rec))
				}
			}()
			if err := h.fn(ctx); err != nil {
				metrics.HookFailures.WithLabelValues(h.name).Inc()
				logger.Ctx(ctx).Error().Err(err).
					Str("hook", h.name).
					Msg("post-commit hook failed")
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // hooks report their own errors
}
