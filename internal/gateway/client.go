package gateway

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	svcErr "github.com/oggyb/matcha-engine/internal/errors"
	"github.com/oggyb/matcha-engine/internal/event"
)

// State is a connection's lifecycle position.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// Client owns one user's live websocket. It implements presence.Handle:
// the delivery pipeline pushes through it, the registry closes it when a
// newer session supersedes it.
type Client struct {
	gw     *Gateway
	userID uint64
	conn   *websocket.Conn
	token  uuid.UUID

	send  chan event.Event
	state atomic.Int32

	mu      sync.Mutex
	closed  bool
	lastSeq map[uint64]uint64 // per-sender highest pushed message sequence

	closeOnce sync.Once
	malformed int
}

func newClient(gw *Gateway, userID uint64, conn *websocket.Conn) *Client {
	return &Client{
		gw:      gw,
		userID:  userID,
		conn:    conn,
		send:    make(chan event.Event, gw.appCtx.Cfg.Gateway.SendBuffer),
		lastSeq: make(map[uint64]uint64),
	}
}

func (c *Client) setState(s State) { c.state.Store(int32(s)) }
func (c *Client) State() State     { return State(c.state.Load()) }

// Push enqueues an event for the write pump. Message events carry their
// conversation sequence: once a newer sequence from the same sender has
// been enqueued, older ones are dropped here (the durable store covers
// them on the next fetch), so the wire never reorders a conversation.
// A full buffer means a dead or hopeless consumer; the connection is
// evicted rather than blocking the pipeline.
func (c *Client) Push(ev event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return svcErr.ErrPresenceStale
	}

	if ev.Type == event.TypeMessageReceived {
		if ev.Sequence <= c.lastSeq[ev.SenderID] {
			return nil
		}
	}

	select {
	case c.send <- ev:
		if ev.Type == event.TypeMessageReceived {
			c.lastSeq[ev.SenderID] = ev.Sequence
		}
		return nil
	default:
		go c.Close()
		return svcErr.ErrPresenceStale
	}
}

// Close moves the connection to Closing and lets the write pump drain
// in-flight sends before the socket goes down. Safe to call repeatedly
// and from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.setState(StateClosing)
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.send)
	})
}

// run starts the pumps; returns immediately.
func (c *Client) run() {
	go c.writePump()
	go c.readPump()
}

// readPump is the connection's single inbound task: it deserializes
// frames and dispatches them sequentially. On exit it unregisters the
// session (token-checked, so a superseded session cannot clear its
// successor) and closes the client.
func (c *Client) readPump() {
	cfg := c.gw.appCtx.Cfg.Gateway

	defer func() {
		c.gw.registry.Unregister(c.userID, c.token)
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.gw.appCtx.Logger.Debug("read error", "user", c.userID, "err", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			if !c.protocolError("malformed frame") {
				return
			}
			continue
		}
		if err := frame.Validate(); err != nil {
			if !c.protocolError(err.Error()) {
				return
			}
			continue
		}

		c.malformed = 0
		c.dispatch(frame)
	}
}

// protocolError answers a bad frame without dropping the connection,
// until the consecutive-malformed threshold is crossed. Returns false
// when the connection should terminate.
func (c *Client) protocolError(detail string) bool {
	c.malformed++
	_ = c.Push(event.Error(svcErr.CodeBadFrame, detail))
	if c.malformed >= c.gw.appCtx.Cfg.Gateway.MalformedLimit {
		c.gw.appCtx.Logger.Warn("closing connection, malformed frame threshold",
			"user", c.userID, "count", c.malformed)
		return false
	}
	return true
}

// dispatch routes one valid frame into the state machine or the delivery
// pipeline. Operation errors go back to this sender only; the connection
// stays open.
func (c *Client) dispatch(frame Frame) {
	ctx := context.Background()

	var err error
	switch frame.Type {
	case FrameView:
		err = c.gw.engine.RecordView(ctx, c.userID, frame.ViewedID)
	case FrameLike:
		_, err = c.gw.engine.Like(ctx, c.userID, frame.LikedID)
	case FrameUnlike:
		err = c.gw.engine.Unlike(ctx, c.userID, frame.LikedID)
	case FrameMessage:
		stored, sendErr := c.gw.pipeline.SendMessage(ctx, c.userID, frame.ReceiverID, frame.Content)
		if sendErr == nil {
			_ = c.Push(event.Ack(stored.ID, stored.Seq))
		}
		err = sendErr
	}

	if err != nil {
		_ = c.Push(event.Error(svcErr.Code(err), err.Error()))
	}
}

// writePump serializes outbound events, batching whatever is already
// queued into a single websocket write, and keeps the connection alive
// with pings. It is the only writer on the socket.
func (c *Client) writePump() {
	cfg := c.gw.appCtx.Cfg.Gateway
	pingPeriod := (cfg.PongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.setState(StateClosed)
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				_ = w.Close()
				return
			}

			// flush anything already queued in the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				if next, ok := <-c.send; ok {
					_ = writeEvent(w, next)
				}
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(w io.Writer, ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
