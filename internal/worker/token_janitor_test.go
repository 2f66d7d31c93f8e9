package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/repository/memstore"
)

func TestRevokedTokenJanitor(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := memstore.New(clock)
	tokens := store.RevokedTokens()
	ctx := context.Background()

	require.NoError(t, tokens.Create(ctx, &domain.RevokedToken{ID: "1", JTI: "expired", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, tokens.Create(ctx, &domain.RevokedToken{ID: "2", JTI: "live", ExpiresAt: now.Add(time.Hour)}))

	runCtx, cancel := context.WithCancel(ctx)
	done := StartRevokedTokenJanitor(runCtx, tokens, time.Hour, clock, zap.NewNop())

	require.Eventually(t, func() bool {
		exists, err := tokens.Exists(ctx, "expired")
		return err == nil && !exists
	}, time.Second, 10*time.Millisecond)

	live, err := tokens.Exists(ctx, "live")
	require.NoError(t, err)
	require.True(t, live)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
