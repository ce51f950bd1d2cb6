// Package delivery routes messages and notifications to live connections,
// falling back to durable-only delivery when the recipient is offline.
// The durable store is the queue: an undelivered message is simply unread
// until the next history fetch.
package delivery

import (
	"context"

	"github.com/oggyb/matcha-engine/internal/app"
	"github.com/oggyb/matcha-engine/internal/db"
	"github.com/oggyb/matcha-engine/internal/event"
	"github.com/oggyb/matcha-engine/internal/presence"
	"github.com/oggyb/matcha-engine/internal/repository"
)

type Pipeline struct {
	appCtx   *app.AppContext
	messages *repository.MessageRepository
	registry *presence.Registry
}

// NewPipeline creates the delivery pipeline with dependencies from AppContext.
func NewPipeline(appCtx *app.AppContext, registry *presence.Registry) *Pipeline {
	return &Pipeline{
		appCtx:   appCtx,
		messages: repository.NewMessageRepository(appCtx.DB),
		registry: registry,
	}
}

// SendMessage persists the message, then attempts a live push to the
// receiver. Persistence always wins: a failed or cancelled push never
// rolls back the committed write, it only downgrades to durable-only
// delivery. Returns the stored message for the sender's ack.
func (p *Pipeline) SendMessage(
	ctx context.Context,
	senderID, receiverID uint64,
	content string,
) (*db.Message, error) {
	msg, err := p.messages.CreateMessage(ctx, senderID, receiverID, content)
	if err != nil {
		return nil, err
	}

	if handle, ok := p.registry.Lookup(receiverID); ok {
		ev := event.MessageReceived(msg.ID, senderID, msg.Seq, msg.Content)
		if err := handle.Push(ev); err == nil {
			return msg, nil
		}
		// Stale handle: the session closed between lookup and push.
		// Treated as offline, not surfaced to the sender.
		p.appCtx.Logger.Debug("push to stale handle, message stays queued",
			"receiver", receiverID, "message_id", msg.ID)
	}

	if _, err := p.appCtx.RedisCache.IncrUnread(ctx, receiverID); err != nil {
		p.appCtx.Logger.Warn("failed to bump unread counter", "receiver", receiverID, "err", err)
	}

	return msg, nil
}

// Notify pushes a non-message event to the user if connected. Best
// effort: offline users miss it, which is fine because events with
// durable consequences are recoverable by re-querying state on connect.
func (p *Pipeline) Notify(userID uint64, ev event.Event) {
	handle, ok := p.registry.Lookup(userID)
	if !ok {
		p.appCtx.Logger.Debug("notification dropped, user offline",
			"user", userID, "event", string(ev.Type))
		return
	}
	if err := handle.Push(ev); err != nil {
		p.appCtx.Logger.Debug("notification dropped, stale handle",
			"user", userID, "event", string(ev.Type))
	}
}

// History returns the conversation between userID and peerID in commit
// order, for reconnect catch-up. The reader's unread counter is cleared
// on the first page only; continuation fetches (afterID set) leave it
// alone so a mid-pagination failure does not lose the count.
func (p *Pipeline) History(
	ctx context.Context,
	userID, peerID uint64,
	afterID uint64,
	limit int,
) ([]db.Message, error) {
	messages, err := p.messages.Conversation(ctx, userID, peerID, afterID, limit)
	if err != nil {
		return nil, err
	}

	if afterID == 0 {
		if err := p.appCtx.RedisCache.ClearUnread(ctx, userID); err != nil {
			p.appCtx.Logger.Warn("failed to clear unread counter", "user", userID, "err", err)
		}
	}

	return messages, nil
}
