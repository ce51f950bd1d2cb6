package gateway

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matcha-engine/internal/app"
	"github.com/oggyb/matcha-engine/internal/config"
	svcErr "github.com/oggyb/matcha-engine/internal/errors"
	"github.com/oggyb/matcha-engine/internal/event"
	"github.com/oggyb/matcha-engine/internal/presence"
)

func testClient(t *testing.T, sendBuffer int) *Client {
	t.Helper()
	cfg := config.New()
	cfg.Gateway.SendBuffer = sendBuffer
	appCtx := app.New(cfg, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	gw := New(appCtx, nil, nil, presence.NewRegistry())
	return newClient(gw, 1, nil)
}

func TestPushKeepsConversationOrder(t *testing.T) {
	c := testClient(t, 16)

	require.NoError(t, c.Push(event.MessageReceived(10, 5, 2, "second")))

	// an older sequence arriving after a newer one is dropped, not
	// reordered; the durable store covers it on the next fetch
	require.NoError(t, c.Push(event.MessageReceived(9, 5, 1, "first")))
	require.NoError(t, c.Push(event.MessageReceived(11, 5, 3, "third")))

	assert.Len(t, c.send, 2)
	assert.Equal(t, uint64(2), (<-c.send).Sequence)
	assert.Equal(t, uint64(3), (<-c.send).Sequence)
}

func TestPushTracksSequencePerSender(t *testing.T) {
	c := testClient(t, 16)

	require.NoError(t, c.Push(event.MessageReceived(10, 5, 3, "from 5")))
	// sequence 1 from a different sender is its own conversation
	require.NoError(t, c.Push(event.MessageReceived(11, 6, 1, "from 6")))

	assert.Len(t, c.send, 2)
}

func TestPushAfterCloseIsStale(t *testing.T) {
	c := testClient(t, 16)
	c.Close()

	err := c.Push(event.NewLike(5))
	assert.ErrorIs(t, err, svcErr.ErrPresenceStale)
	assert.Equal(t, StateClosing, c.State())
}

func TestPushEvictsSlowConsumer(t *testing.T) {
	c := testClient(t, 1)

	require.NoError(t, c.Push(event.NewLike(5)))
	err := c.Push(event.NewLike(6))
	assert.ErrorIs(t, err, svcErr.ErrPresenceStale)
}

func TestStateTransitions(t *testing.T) {
	c := testClient(t, 1)
	assert.Equal(t, StateConnecting, c.State())

	c.setState(StateAuthenticated)
	c.setState(StateActive)
	assert.Equal(t, StateActive, c.State())
	assert.Equal(t, "active", c.State().String())
}
