package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/repository"
)

// StartRevokedTokenJanitor deletes revoked-token rows whose tokens have expired
// on their own. It sweeps once immediately, then every interval until ctx is
// cancelled. The returned channel closes when the loop exits.
func StartRevokedTokenJanitor(ctx context.Context, tokens repository.RevokedTokenRepository, interval time.Duration, now func() time.Time, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		interval = time.Hour
	}
	if now == nil {
		now = time.Now
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			sweepRevokedTokens(ctx, tokens, now(), logger)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}

func sweepRevokedTokens(ctx context.Context, tokens repository.RevokedTokenRepository, before time.Time, logger *zap.Logger) {
	removed, err := tokens.DeleteExpired(ctx, before)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("revoked token sweep failed", zap.Error(err))
		}
		return
	}
	if removed > 0 {
		logger.Info("expired revoked tokens removed", zap.Int64("count", removed))
	}
}
