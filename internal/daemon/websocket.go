package daemon

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"mediaflow/internal/logging"
	"mediaflow/internal/progress"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
)

// Client to server message types.
const (
	msgSubscribeItem   = "subscribe-item"
	msgUnsubscribeItem = "unsubscribe-item"
	msgSubscribeUser   = "subscribe-user"
	msgUnsubscribeUser = "unsubscribe-user"
)

type clientMessage struct {
	Type   string `json:"type"`
	ItemID string `json:"itemId,omitempty"`
	UserID string `json:"userId,omitempty"`
}

// wsClient bridges one websocket connection to the progress hub. The
// connection has exactly one writer goroutine.
type wsClient struct {
	conn   *websocket.Conn
	sub    *progress.ChannelSubscriber
	hub    *progress.Hub
	logger *slog.Logger
	done   chan struct{}
}

func (s *apiServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	client := &wsClient{
		conn:   conn,
		sub:    progress.NewChannelSubscriber(s.buffer),
		hub:    s.daemon.hub,
		logger: logging.WithContext(r.Context(), s.logger),
		done:   make(chan struct{}),
	}
	client.logger.Debug("websocket connected", logging.String("remote", r.RemoteAddr))
	client.run()
}

func (c *wsClient) run() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()

	c.readLoop()

	c.hub.UnsubscribeAll(c.sub)
	close(c.done)
	<-writerDone
	_ = c.conn.Close()
	c.logger.Debug("websocket disconnected")
}

func (c *wsClient) readLoop() {
	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read ended", logging.Error(err))
			}
			return
		}
		c.apply(msg)
	}
}

func (c *wsClient) apply(msg clientMessage) {
	itemID := strings.TrimSpace(msg.ItemID)
	userID := strings.TrimSpace(msg.UserID)
	switch msg.Type {
	case msgSubscribeItem:
		if itemID != "" {
			c.hub.Subscribe(c.sub, progress.ItemTopic(itemID))
		}
	case msgUnsubscribeItem:
		if itemID != "" {
			c.hub.Unsubscribe(c.sub, progress.ItemTopic(itemID))
		}
	case msgSubscribeUser:
		if userID != "" {
			c.hub.Subscribe(c.sub, progress.UserTopic(userID))
		}
	case msgUnsubscribeUser:
		if userID != "" {
			c.hub.Unsubscribe(c.sub, progress.UserTopic(userID))
		}
	default:
		c.logger.Debug("ignoring websocket message", logging.String("type", msg.Type))
	}
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-c.sub.Dropped():
			c.logger.Warn("websocket subscriber dropped",
				logging.String(logging.FieldEventType, "subscriber_dropped"),
				logging.String(logging.FieldErrorHint, "client is not reading fast enough; it must reconnect and resubscribe"),
			)
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "slow consumer"))
			_ = c.conn.Close()
			return
		case evt := <-c.sub.Events():
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(evt); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}
