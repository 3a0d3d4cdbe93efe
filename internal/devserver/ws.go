package devserver

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"gameworld/internal/wshub"
)

// handleWS streams ledger, session and reload notifications to a browser tab.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // dev server, pages may be opened from any origin
	})
	if err != nil {
		s.logger().Warn("websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	c := &wshub.Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, 16),
	}
	s.Hub.Register(c)
	defer s.Hub.Unregister(c.ID)

	ctx := r.Context()
	go c.WritePump(ctx)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg wshub.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			s.Hub.SendTo(c.ID, wshub.ServerMessage{Type: "pong"})
		}
	}
}
