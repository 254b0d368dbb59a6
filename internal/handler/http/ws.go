package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/domain"
	"github.com/aniladanir/webhook-inbox/internal/notify"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Subscribe godoc
// @Summary Subscribe to live conversation events
// @Description Upgrades to a websocket that streams message-created and status-changed events
// @Tags Subscriptions
// @Param conversation_id query string true "conversation id"
// @Success 101
// @Failure 400 {object} errorResponse
// @Router /ws [get]
func (h *Handler) subscribe(c *gin.Context) {
	conversationID := c.Query("conversation_id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "conversation_id is required"})
		return
	}

	sub, err := h.inbox.Subscribe(conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrServiceStopped) || errors.Is(err, domain.ErrHubClosed) {
			c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
		h.internalError(c, "failed to subscribe", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		return
	}

	go writePump(conn, sub)
	go readPump(conn, sub)
}

// readPump only watches for the client going away.
func readPump(conn *websocket.Conn, sub *notify.Subscription) {
	defer sub.Close()
	conn.SetReadLimit(8 * 1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *notify.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
