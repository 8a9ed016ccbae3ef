package webhook

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/amr/nutrisync/pkg/turn"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsFrame is a server-to-client websocket message.
type wsFrame struct {
	Type   string       `json:"type"` // "ack", "result" or "error"
	Result *turn.Result `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// handleWebSocket upgrades the connection and runs a chat loop: every
// inbound frame is one turn, answered with an ack followed by the result.
// Turns for the same user still serialize through the per-user lane.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("ip", s.clientIP(r)).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.logger.Debug().Str("ip", s.clientIP(r)).Msg("Websocket client connected")

	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("Websocket closed unexpectedly")
			}
			return
		}

		if req.UserID == "" || req.Message == "" {
			if err := s.writeFrame(conn, wsFrame{Type: "error", Error: "user_id and message are required"}); err != nil {
				return
			}
			continue
		}

		if err := s.writeFrame(conn, wsFrame{Type: "ack"}); err != nil {
			return
		}

		result := s.turns.ProcessTurn(r.Context(), turn.Request{
			UserID: req.UserID,
			Text:   req.Message,
		})

		if err := s.writeFrame(conn, wsFrame{Type: "result", Result: &result}); err != nil {
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, frame wsFrame) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(frame); err != nil {
		s.logger.Debug().Err(err).Msg("Websocket write failed")
		return err
	}
	return nil
}
