package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matcha-engine/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := auth.IssueToken(42, "secret", time.Hour)
	require.NoError(t, err)

	userID, err := auth.ParseUserID(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), userID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := auth.IssueToken(42, "secret", time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseUserID(token, "other-secret")
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := auth.IssueToken(42, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseUserID(token, "secret")
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := auth.ParseUserID("not-a-token", "secret")
	assert.Error(t, err)
}
