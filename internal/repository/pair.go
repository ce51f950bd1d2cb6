package repository

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matcha-engine/internal/db"
)

// ensurePair inserts the canonical pair row if it does not exist yet.
// Composite PK (low_id, high_id) makes the insert a no-op on conflict.
func ensurePair(tx *gorm.DB, low, high uint64) error {
	pair := db.Pair{LowID: low, HighID: high}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&pair).Error
}

// lockPair reads the canonical pair row, taking a row lock on MySQL so
// that opposite-direction operations on the same pair serialize. SQLite
// has no SELECT ... FOR UPDATE; its single-writer model already
// serializes the transaction (same dialect switch the seeder uses).
func lockPair(tx *gorm.DB, low, high uint64) (*db.Pair, error) {
	var pair db.Pair
	q := tx.Where("low_id = ? AND high_id = ?", low, high)
	if tx.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Take(&pair).Error; err != nil {
		return nil, err
	}
	return &pair, nil
}

// IsRetryable reports whether a transaction failed due to concurrent
// writers and is worth retrying (MySQL deadlock/lock-wait, SQLite busy).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"Deadlock found",
		"Lock wait timeout",
		"database is locked",
		"database table is locked",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
