package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matcha-engine/internal/app"
	"github.com/oggyb/matcha-engine/internal/config"
	svcErr "github.com/oggyb/matcha-engine/internal/errors"
)

func retryService(t *testing.T, retries int) *Service {
	t.Helper()
	cfg := config.New()
	cfg.Engine.TxRetries = retries
	cfg.Engine.RetryBackoff = time.Millisecond
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Service{appCtx: app.New(cfg, nil, nil, logger)}
}

func TestWithRetryRecoversFromLockConflicts(t *testing.T) {
	s := retryService(t, 3)

	calls := 0
	err := s.withRetry(context.Background(), func() error {
		calls++
		if calls <= 2 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustionSurfacesConflict(t *testing.T) {
	s := retryService(t, 2)

	calls := 0
	err := s.withRetry(context.Background(), func() error {
		calls++
		return errors.New("Error 1213: Deadlock found when trying to get lock; try restarting transaction")
	})

	assert.ErrorIs(t, err, svcErr.ErrTransactionConflict)
	// initial attempt plus the full retry budget
	assert.Equal(t, 3, calls)
}

func TestWithRetryPassesThroughNonRetryable(t *testing.T) {
	s := retryService(t, 3)

	sentinel := errors.New("UNIQUE constraint failed: likes.liker_id")
	calls := 0
	err := s.withRetry(context.Background(), func() error {
		calls++
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestWithRetryStopsOnCancelledContext(t *testing.T) {
	s := retryService(t, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := s.withRetry(ctx, func() error {
		calls++
		return errors.New("database is locked (5) (SQLITE_BUSY)")
	})

	assert.ErrorIs(t, err, svcErr.ErrUnavailable)
	assert.Equal(t, 1, calls)
}
