package repository_test

import (
	"context"
	"testing"

	svcErr "github.com/oggyb/matcha-engine/internal/errors"
	"github.com/oggyb/matcha-engine/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// matchUsers makes 1 and 2 a matched pair
func matchUsers(t *testing.T, dbase *gorm.DB) {
	t.Helper()
	repo := repository.NewInteractionRepository(dbase)
	_, err := repo.UpsertLike(context.Background(), 1, 2, 5)
	require.NoError(t, err)
	out, err := repo.UpsertLike(context.Background(), 2, 1, 5)
	require.NoError(t, err)
	require.True(t, out.Matched)
}

func TestCreateMessageRequiresMatch(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	msgs := repository.NewMessageRepository(dbase)

	_, err := msgs.CreateMessage(ctx, 1, 2, "hello")
	assert.ErrorIs(t, err, svcErr.ErrNoActiveMatch)

	// a one-way like is still not a match
	_, err = repository.NewInteractionRepository(dbase).UpsertLike(ctx, 1, 2, 5)
	require.NoError(t, err)
	_, err = msgs.CreateMessage(ctx, 1, 2, "hello")
	assert.ErrorIs(t, err, svcErr.ErrNoActiveMatch)
}

func TestCreateMessageRejectsEmptyContent(t *testing.T) {
	dbase := setupTestDB(t)
	matchUsers(t, dbase)
	msgs := repository.NewMessageRepository(dbase)

	_, err := msgs.CreateMessage(context.Background(), 1, 2, "")
	assert.ErrorIs(t, err, svcErr.ErrEmptyContent)
}

func TestMessageSequencesPerDirection(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	matchUsers(t, dbase)
	msgs := repository.NewMessageRepository(dbase)

	m1, err := msgs.CreateMessage(ctx, 1, 2, "hi")
	require.NoError(t, err)
	m2, err := msgs.CreateMessage(ctx, 1, 2, "you there?")
	require.NoError(t, err)
	m3, err := msgs.CreateMessage(ctx, 2, 1, "hey")
	require.NoError(t, err)

	// each direction counts independently, starting at 1
	assert.Equal(t, uint64(1), m1.Seq)
	assert.Equal(t, uint64(2), m2.Seq)
	assert.Equal(t, uint64(1), m3.Seq)
}

func TestMessagesAfterDissolutionFail(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	matchUsers(t, dbase)
	msgs := repository.NewMessageRepository(dbase)

	_, err := msgs.CreateMessage(ctx, 1, 2, "hi")
	require.NoError(t, err)

	_, err = repository.NewInteractionRepository(dbase).RemoveLike(ctx, 1, 2)
	require.NoError(t, err)

	_, err = msgs.CreateMessage(ctx, 1, 2, "still there?")
	assert.ErrorIs(t, err, svcErr.ErrNoActiveMatch)
}

func TestConversationOrderAndCursor(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	matchUsers(t, dbase)
	msgs := repository.NewMessageRepository(dbase)

	want := []string{"hi", "hey", "how are you?"}
	senders := []uint64{1, 2, 1}
	for i, content := range want {
		receiver := uint64(2)
		if senders[i] == 2 {
			receiver = 1
		}
		_, err := msgs.CreateMessage(ctx, senders[i], receiver, content)
		require.NoError(t, err)
	}

	history, err := msgs.Conversation(ctx, 2, 1, 0, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, m := range history {
		assert.Equal(t, want[i], m.Content)
	}

	// sequences observed by user 2 from user 1 are gapless and increasing
	var prev uint64
	for _, m := range history {
		if m.SenderID != 1 {
			continue
		}
		assert.Equal(t, prev+1, m.Seq)
		prev = m.Seq
	}

	// incremental fetch picks up after the cursor
	rest, err := msgs.Conversation(ctx, 2, 1, history[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "how are you?", rest[0].Content)
}
