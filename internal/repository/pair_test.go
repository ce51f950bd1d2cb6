package repository_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/oggyb/matcha-engine/internal/repository"
)

func TestIsRetryable(t *testing.T) {
	for _, msg := range []string{
		"Error 1213: Deadlock found when trying to get lock; try restarting transaction",
		"Error 1205: Lock wait timeout exceeded; try restarting transaction",
		"database is locked (5) (SQLITE_BUSY)",
		"database table is locked: likes",
	} {
		assert.True(t, repository.IsRetryable(errors.New(msg)), msg)
	}

	assert.False(t, repository.IsRetryable(nil))
	assert.False(t, repository.IsRetryable(gorm.ErrRecordNotFound))
	assert.False(t, repository.IsRetryable(errors.New("UNIQUE constraint failed: matches.low_id")))
}
