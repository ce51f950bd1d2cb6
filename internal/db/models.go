package db

import (
	"time"
)

// User table. Profile editing lives in the external CRUD service; the
// engine only reads the id and maintains fame_rating.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	FameRating   int64  `gorm:"not null;default:0"`
	Verified     bool   `gorm:"default:false"`
	Active       bool   `gorm:"default:true"`
	LastLoginAt  time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// View is an immutable fact: viewer inspected viewed's profile. Repeat
// views are separate rows; every one counts toward fame rating.
type View struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	ViewerID  uint64    `gorm:"not null;index:idx_viewer_viewed,priority:1"`
	ViewedID  uint64    `gorm:"not null;index:idx_viewer_viewed,priority:2;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Like represents liker's active like toward liked.
//
// Composite PK: (LikerID, LikedID)
//   - At most one active like per ordered pair; a repeat like upserts
//     into the same row, so it is naturally idempotent.
//
// Index:
//   - idx_liked_liker(liked_id, liker_id) for the reciprocal-like lookup
//     inside the match transaction.
type Like struct {
	LikerID   uint64    `gorm:"primaryKey"`
	LikedID   uint64    `gorm:"primaryKey;index:idx_liked_liker,priority:1"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Pair is the canonical unordered-pair row: LowID < HighID always. It
// serves two jobs:
//   - transaction scope for match detection: both directions of a
//     reciprocal like lock this one row, so concurrent opposite-direction
//     likes serialize without deadlock;
//   - per-direction message sequence counters (SeqLowHigh counts
//     low→high traffic, SeqHighLow the reverse).
type Pair struct {
	LowID      uint64    `gorm:"primaryKey"`
	HighID     uint64    `gorm:"primaryKey"`
	SeqLowHigh uint64    `gorm:"not null;default:0"`
	SeqHighLow uint64    `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Match is materialized mutual-interest state. Exactly one row may exist
// per unordered pair, enforced by the unique index; dissolution deletes
// the row.
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	LowID     uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:1"`
	HighID    uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Message is an immutable chat fact. Seq is assigned at write time from
// the sender-direction counter on the Pair row, so ordering survives
// clock skew.
type Message struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	SenderID   uint64    `gorm:"not null;index:idx_conversation,priority:1"`
	ReceiverID uint64    `gorm:"not null;index:idx_conversation,priority:2"`
	Seq        uint64    `gorm:"not null;index:idx_conversation,priority:3"`
	Content    string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// PairKey returns the canonical ordering for an unordered user pair.
func PairKey(a, b uint64) (low, high uint64) {
	if a < b {
		return a, b
	}
	return b, a
}
