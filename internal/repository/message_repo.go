package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/matcha-engine/internal/db"
	svcErr "github.com/oggyb/matcha-engine/internal/errors"
)

// MessageRepository persists chat messages with per-direction sequence
// numbers taken from the canonical pair row.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// CreateMessage persists a message inside one transaction:
//
//  1. Lock the canonical pair row. Missing row means the pair never
//     interacted, so no match can exist.
//  2. Verify an active match. A concurrent unlike holds the same lock, so
//     a message can never commit after its match dissolved.
//  3. Increment the sender-direction sequence counter and stamp the
//     message with it. The counter, not wall clock, defines conversation
//     order.
func (r *MessageRepository) CreateMessage(
	ctx context.Context,
	senderID, receiverID uint64,
	content string,
) (*db.Message, error) {
	if content == "" {
		return nil, svcErr.ErrEmptyContent
	}

	var msg *db.Message

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		low, high := db.PairKey(senderID, receiverID)

		pair, err := lockPair(tx, low, high)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.ErrNoActiveMatch
		}
		if err != nil {
			return err
		}

		var matches int64
		if err := tx.Model(&db.Match{}).
			Where("low_id = ? AND high_id = ?", low, high).
			Count(&matches).Error; err != nil {
			return err
		}
		if matches == 0 {
			return svcErr.ErrNoActiveMatch
		}

		seqColumn := "seq_low_high"
		seq := pair.SeqLowHigh + 1
		if senderID == high {
			seqColumn = "seq_high_low"
			seq = pair.SeqHighLow + 1
		}
		if err := tx.Model(&db.Pair{}).
			Where("low_id = ? AND high_id = ?", low, high).
			UpdateColumn(seqColumn, seq).Error; err != nil {
			return err
		}

		m := db.Message{
			SenderID:   senderID,
			ReceiverID: receiverID,
			Seq:        seq,
			Content:    content,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		msg = &m
		return nil
	})

	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Conversation returns both directions of a pair's messages in commit
// order (insertion id ascending, which also orders each direction by its
// sequence). afterID supports incremental fetches on reconnect.
func (r *MessageRepository) Conversation(
	ctx context.Context,
	userID, peerID uint64,
	afterID uint64,
	limit int,
) ([]db.Message, error) {
	var messages []db.Message

	query := r.db.WithContext(ctx).
		Where(
			"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, peerID, peerID, userID,
		).
		Order("id ASC")
	if afterID > 0 {
		query = query.Where("id > ?", afterID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
