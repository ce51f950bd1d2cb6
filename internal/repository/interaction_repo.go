package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matcha-engine/internal/db"
	svcErr "github.com/oggyb/matcha-engine/internal/errors"
)

// InteractionRepository provides transactional data access for views,
// likes and matches. Every method is a single transaction: the fame
// rating update commits together with the fact it belongs to, or not at
// all.
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new repository bound to the given DB connection.
func NewInteractionRepository(database *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: database}
}

// LikeOutcome reports what a like write produced.
type LikeOutcome struct {
	// New is true when the like row was inserted, false for a repeat like.
	New bool
	// Matched is true only when this call created the match (the second
	// reciprocal like landing). A repeat like onto an existing match
	// reports false so callers do not re-announce it.
	Matched bool
	MatchID uint64
}

// RecordView inserts a View fact and bumps the viewed user's fame rating
// in the same transaction. Repeat views are separate rows, all counted.
func (r *InteractionRepository) RecordView(
	ctx context.Context,
	viewerID, viewedID uint64,
	fameWeight int,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, viewedID); err != nil {
			return err
		}

		view := db.View{ViewerID: viewerID, ViewedID: viewedID}
		if err := tx.Create(&view).Error; err != nil {
			return err
		}

		return bumpFame(tx, viewedID, fameWeight)
	})
}

// UpsertLike records liker→liked and atomically detects match formation.
//
// Behavior:
//   - The canonical pair row is locked first, so two concurrent
//     opposite-direction likes serialize on the same resource and exactly
//     one of them observes the reciprocal like and creates the match.
//   - A repeat like is a no-op (no fame bump, no re-match).
//   - The fame bump and the match row commit with the like or not at all.
func (r *InteractionRepository) UpsertLike(
	ctx context.Context,
	likerID, likedID uint64,
	fameWeight int,
) (LikeOutcome, error) {
	var out LikeOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, likedID); err != nil {
			return err
		}

		low, high := db.PairKey(likerID, likedID)
		if err := ensurePair(tx, low, high); err != nil {
			return err
		}
		if _, err := lockPair(tx, low, high); err != nil {
			return err
		}

		like := db.Like{LikerID: likerID, LikedID: likedID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// repeat like, idempotent
			return nil
		}
		out.New = true

		if err := bumpFame(tx, likedID, fameWeight); err != nil {
			return err
		}

		var reciprocal int64
		err := tx.Model(&db.Like{}).
			Where("liker_id = ? AND liked_id = ?", likedID, likerID).
			Count(&reciprocal).Error
		if err != nil {
			return err
		}
		if reciprocal == 0 {
			return nil
		}

		match := db.Match{LowID: low, HighID: high}
		if err := tx.Create(&match).Error; err != nil {
			return err
		}
		out.Matched = true
		out.MatchID = match.ID
		return nil
	})

	return out, err
}

// RemoveLike deletes liker→liked and dissolves the match if one existed.
//
// Dissolution revokes the reciprocal like as well: the match must not
// silently reform from the surviving one-way like when the original liker
// likes again. Both sides have to re-like.
//
// Returns the dissolved match id, or 0 when no match existed.
func (r *InteractionRepository) RemoveLike(
	ctx context.Context,
	likerID, likedID uint64,
) (uint64, error) {
	var dissolved uint64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		low, high := db.PairKey(likerID, likedID)

		// No pair row means no interaction history at all.
		if _, err := lockPair(tx, low, high); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.
			Where("liker_id = ? AND liked_id = ?", likerID, likedID).
			Delete(&db.Like{}).Error; err != nil {
			return err
		}

		var match db.Match
		err := tx.Where("low_id = ? AND high_id = ?", low, high).Take(&match).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&db.Match{}, match.ID).Error; err != nil {
			return err
		}
		if err := tx.
			Where("liker_id = ? AND liked_id = ?", likedID, likerID).
			Delete(&db.Like{}).Error; err != nil {
			return err
		}

		dissolved = match.ID
		return nil
	})

	return dissolved, err
}

// HasActiveMatch checks whether a match currently exists for the pair.
func (r *InteractionRepository) HasActiveMatch(ctx context.Context, a, b uint64) (bool, error) {
	low, high := db.PairKey(a, b)
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Match{}).
		Where("low_id = ? AND high_id = ?", low, high).
		Count(&count).Error
	return count > 0, err
}

// FameRating reads the authoritative fame rating from the store.
func (r *InteractionRepository) FameRating(ctx context.Context, userID uint64) (int64, error) {
	var user db.User
	err := r.db.WithContext(ctx).Select("fame_rating").Take(&user, userID).Error
	if err != nil {
		return 0, svcErr.Map(err)
	}
	return user.FameRating, nil
}

// requireUser fails with ErrInvalidTarget when the id is unknown.
func requireUser(tx *gorm.DB, userID uint64) error {
	var count int64
	if err := tx.Model(&db.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return svcErr.ErrInvalidTarget
	}
	return nil
}

func bumpFame(tx *gorm.DB, userID uint64, weight int) error {
	return tx.Model(&db.User{}).
		Where("id = ?", userID).
		UpdateColumn("fame_rating", gorm.Expr("fame_rating + ?", weight)).Error
}
