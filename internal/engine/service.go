// Package engine is the interaction state machine: it turns view, like
// and unlike events into persisted facts, detects match formation and
// dissolution atomically, and fans the resulting notifications out
// through the delivery pipeline.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/oggyb/matcha-engine/internal/app"
	"github.com/oggyb/matcha-engine/internal/delivery"
	svcErr "github.com/oggyb/matcha-engine/internal/errors"
	"github.com/oggyb/matcha-engine/internal/event"
	"github.com/oggyb/matcha-engine/internal/repository"
)

type Service struct {
	appCtx   *app.AppContext
	repo     *repository.InteractionRepository
	pipeline *delivery.Pipeline
}

// LikeResult is what a like operation produced.
type LikeResult struct {
	Matched bool
	MatchID uint64
}

// NewService creates the interaction state machine with dependencies from
// AppContext.
func NewService(appCtx *app.AppContext, pipeline *delivery.Pipeline) *Service {
	return &Service{
		appCtx:   appCtx,
		repo:     repository.NewInteractionRepository(appCtx.DB),
		pipeline: pipeline,
	}
}

// RecordView persists a View fact and bumps the viewed user's fame
// rating. Repeat views all count; there is no dedup window.
func (s *Service) RecordView(ctx context.Context, viewerID, viewedID uint64) error {
	if viewerID == viewedID {
		return svcErr.ErrSelfReference
	}

	weight := s.appCtx.Cfg.Engine.ViewFameWeight
	err := s.withRetry(ctx, func() error {
		return s.repo.RecordView(ctx, viewerID, viewedID, weight)
	})
	if err != nil {
		return err
	}

	if err := s.appCtx.RedisCache.BumpFameRating(ctx, viewedID, int64(weight)); err != nil {
		s.appCtx.Logger.Warn("fame cache bump failed", "user", viewedID, "err", err)
	}
	return nil
}

// Like records liker→liked and reports whether it completed a match.
// When the reciprocal like already exists, exactly one match is created
// and both parties are notified with the same match id; otherwise the
// liked user gets a best-effort new-like notification.
func (s *Service) Like(ctx context.Context, likerID, likedID uint64) (LikeResult, error) {
	if likerID == likedID {
		return LikeResult{}, svcErr.ErrSelfReference
	}

	weight := s.appCtx.Cfg.Engine.LikeFameWeight

	var outcome repository.LikeOutcome
	err := s.withRetry(ctx, func() error {
		var err error
		outcome, err = s.repo.UpsertLike(ctx, likerID, likedID, weight)
		return err
	})
	if err != nil {
		return LikeResult{}, err
	}

	if outcome.New {
		if err := s.appCtx.RedisCache.BumpFameRating(ctx, likedID, int64(weight)); err != nil {
			s.appCtx.Logger.Warn("fame cache bump failed", "user", likedID, "err", err)
		}
	}

	switch {
	case outcome.Matched:
		s.appCtx.Logger.Info("match formed",
			"match_id", outcome.MatchID, "liker", likerID, "liked", likedID)
		s.pipeline.Notify(likerID, event.MatchFormed(outcome.MatchID, likedID))
		s.pipeline.Notify(likedID, event.MatchFormed(outcome.MatchID, likerID))
	case outcome.New:
		s.pipeline.Notify(likedID, event.NewLike(likerID))
	}

	return LikeResult{Matched: outcome.Matched, MatchID: outcome.MatchID}, nil
}

// Unlike removes liker→liked. If an active match existed it is dissolved
// and both parties are notified; re-matching requires both sides to like
// again.
func (s *Service) Unlike(ctx context.Context, likerID, likedID uint64) error {
	if likerID == likedID {
		return svcErr.ErrSelfReference
	}

	var dissolved uint64
	err := s.withRetry(ctx, func() error {
		var err error
		dissolved, err = s.repo.RemoveLike(ctx, likerID, likedID)
		return err
	})
	if err != nil {
		return err
	}

	if dissolved != 0 {
		s.appCtx.Logger.Info("match dissolved",
			"match_id", dissolved, "liker", likerID, "liked", likedID)
		s.pipeline.Notify(likerID, event.MatchDissolved(dissolved, likedID))
		s.pipeline.Notify(likedID, event.MatchDissolved(dissolved, likerID))
	}

	return nil
}

// FameRating reads a user's fame rating, cache first with DB fallback
// (the DB value is authoritative, redis only absorbs repeat reads).
func (s *Service) FameRating(ctx context.Context, userID uint64) (int64, error) {
	if rating, ok, err := s.appCtx.RedisCache.GetFameRating(ctx, userID); err == nil && ok {
		return rating, nil
	}

	rating, err := s.repo.FameRating(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.appCtx.RedisCache.SetFameRating(ctx, userID, rating); err != nil {
		s.appCtx.Logger.Warn("fame cache set failed", "user", userID, "err", err)
	}
	return rating, nil
}

// withRetry runs fn with bounded retries on transaction conflicts. The
// operation either commits once or surfaces ErrTransactionConflict; a
// like/match decision is never silently dropped.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	retries := s.appCtx.Cfg.Engine.TxRetries
	backoff := s.appCtx.Cfg.Engine.RetryBackoff
	if backoff <= 0 {
		backoff = time.Millisecond
	}

	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(backoff)))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return svcErr.Map(ctx.Err())
			}
		}

		err = fn()
		if err == nil || !repository.IsRetryable(err) {
			return err
		}
		s.appCtx.Logger.Debug("retrying conflicting transaction", "attempt", attempt+1, "err", err)
	}

	return fmt.Errorf("%w: %v", svcErr.ErrTransactionConflict, err)
}
