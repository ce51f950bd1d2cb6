// Package gateway owns each user's live bidirectional channel: it
// upgrades the HTTP connection, hands the verified user id to the
// presence registry, multiplexes inbound frames into the interaction
// engine and delivery pipeline, and fans outbound events back to the
// wire.
package gateway

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/oggyb/matcha-engine/internal/app"
	"github.com/oggyb/matcha-engine/internal/auth"
	"github.com/oggyb/matcha-engine/internal/delivery"
	"github.com/oggyb/matcha-engine/internal/engine"
	svcErr "github.com/oggyb/matcha-engine/internal/errors"
	"github.com/oggyb/matcha-engine/internal/event"
	"github.com/oggyb/matcha-engine/internal/presence"
	"github.com/oggyb/matcha-engine/internal/utils/pagination"
)

const historyPageSize = 50

type Gateway struct {
	appCtx   *app.AppContext
	engine   *engine.Service
	pipeline *delivery.Pipeline
	registry *presence.Registry
	upgrader websocket.Upgrader
}

// New creates the gateway with dependencies from AppContext.
func New(
	appCtx *app.AppContext,
	eng *engine.Service,
	pipeline *delivery.Pipeline,
	registry *presence.Registry,
) *Gateway {
	return &Gateway{
		appCtx:   appCtx,
		engine:   eng,
		pipeline: pipeline,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the fronting proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Register attaches the gateway routes to the HTTP server.
func (g *Gateway) Register(r *gin.Engine) {
	r.GET("/ws", g.handleWS)
	r.GET("/api/history/:peer", g.handleHistory)
	r.GET("/api/fame/:user_id", g.handleFame)
	r.GET("/healthz", g.handleHealth)
}

// handleWS runs the connection state machine up to Active:
// Connecting (upgrade) → Authenticated (token handoff) → Active
// (presence registered, pumps running). Registering supersedes any prior
// session for the user, which is notified and closed.
func (g *Gateway) handleWS(c *gin.Context) {
	userID, ok := g.verifiedUserID(c)
	if !ok {
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.appCtx.Logger.Error("websocket upgrade failed", "user", userID, "err", err)
		return
	}

	client := newClient(g, userID, conn)
	client.setState(StateAuthenticated)

	token, prev := g.registry.Register(userID, client)
	client.token = token
	if prev != nil {
		// Superseded is a notification to the old connection, not an
		// error: last writer wins on duplicate logins.
		_ = prev.Handle.Push(event.SessionSuperseded())
		prev.Handle.Close()
	}

	client.setState(StateActive)
	client.run()

	g.appCtx.Logger.Info("connection active",
		"user", userID, "online", g.registry.ActiveCount())
}

// handleHistory returns the caller's conversation with :peer in commit
// order, cursor-paginated. This is the fetch path that recovers messages
// queued while offline.
func (g *Gateway) handleHistory(c *gin.Context) {
	userID, ok := g.verifiedUserID(c)
	if !ok {
		return
	}

	peerID, err := strconv.ParseUint(c.Param("peer"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "peer must be a valid user id"})
		return
	}

	cursor, err := pagination.Decode(c.Query("page_token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	messages, err := g.pipeline.History(c.Request.Context(), userID, peerID, cursor.MessageID, historyPageSize+1)
	if err != nil {
		g.appCtx.Logger.Error("history fetch failed", "user", userID, "peer", peerID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": svcErr.CodeInternal})
		return
	}

	resp := gin.H{}
	if len(messages) > historyPageSize {
		messages = messages[:historyPageSize]
		token, _ := pagination.Encode(pagination.Cursor{MessageID: messages[len(messages)-1].ID})
		resp["next_page_token"] = token
	}

	out := make([]gin.H, 0, len(messages))
	for _, m := range messages {
		out = append(out, gin.H{
			"message_id":  m.ID,
			"sender_id":   m.SenderID,
			"receiver_id": m.ReceiverID,
			"sequence":    m.Seq,
			"content":     m.Content,
			"sent_at":     m.CreatedAt.UnixMilli(),
		})
	}
	resp["messages"] = out

	c.JSON(http.StatusOK, resp)
}

// handleFame serves a user's fame rating, cache first.
func (g *Gateway) handleFame(c *gin.Context) {
	if _, ok := g.verifiedUserID(c); !ok {
		return
	}

	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be a valid user id"})
		return
	}

	rating, err := g.engine.FameRating(c.Request.Context(), userID)
	if err != nil {
		switch code := svcErr.Code(err); code {
		case svcErr.CodeInvalidTarget:
			c.JSON(http.StatusNotFound, gin.H{"error": code})
		case svcErr.CodeUnavailable:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": code})
		default:
			g.appCtx.Logger.Error("fame rating fetch failed", "user", userID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": svcErr.CodeInternal})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "fame_rating": rating})
}

func (g *Gateway) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"online": g.registry.ActiveCount(),
	})
}

// verifiedUserID extracts the auth service's verified user id from the
// bearer token. Writes the 401 itself when the handoff fails.
func (g *Gateway) verifiedUserID(c *gin.Context) (uint64, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return 0, false
	}

	userID, err := auth.ParseUserID(strings.TrimPrefix(header, "Bearer "), g.appCtx.Cfg.Auth.Secret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return 0, false
	}
	return userID, true
}
