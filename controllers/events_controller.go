package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"spinledger/ledger"
	"spinledger/utils"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 30 * time.Second
)

// EventsController bridges the Redis ledger broadcast to browser tabs over
// a WebSocket, so a second tab watching the same identity refreshes its
// "can I spin" state without polling. Delivery is best-effort; the
// authoritative answer is always a fresh eligibility call.
type EventsController struct {
	broadcaster *ledger.Broadcaster
	log         *zap.SugaredLogger
}

func NewEventsController(broadcaster *ledger.Broadcaster, log *zap.SugaredLogger) *EventsController {
	return &EventsController{broadcaster: broadcaster, log: log}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origin checks add nothing here: the feed carries no secrets
	// and identity is named explicitly in the query.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Stream upgrades the connection and forwards events matching the identity.
func (e *EventsController) Stream(ctx *gin.Context) {
	id, err := ledger.ResolveIdentity(ctx.Query("phone_number"), ctx.Query("device_id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid phone number or device id")
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		e.log.Debugw("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	streamCtx, cancel := context.WithCancel(ctx.Request.Context())
	defer cancel()

	events := e.broadcaster.Subscribe(streamCtx)

	// Reads are only needed to notice the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-streamCtx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !ev.Matches(id) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
