package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/xhad/askdocs/internal/models"
	"github.com/xhad/askdocs/pkg/qa"
)

const (
	MessageAsk      = "ask"
	MessageStream   = "stream"
	MessageResponse = "response"
	MessageError    = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the JSON frame exchanged over /ws.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// handleWebSocket answers questions one at a time for as long as the client
// keeps the connection open.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.WithError(err).Warn("Error reading message")
			}
			return
		}

		if err := s.handleMessage(c.Request.Context(), conn, msg); err != nil {
			s.log.WithError(err).Warn("Error sending message")
			return
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, msg Message) error {
	if msg.Type != MessageAsk && msg.Type != "" {
		return s.sendMessage(conn, Message{Type: MessageError, Content: "unknown message type " + msg.Type})
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	var (
		answer *models.Answer
		err    error
	)
	if s.config.Streaming {
		answer, err = s.answerer.AskStream(ctx, msg.Content, func(chunk string) error {
			return s.sendMessage(conn, Message{Type: MessageStream, Content: chunk})
		})
	} else {
		answer, err = s.answerer.Ask(ctx, msg.Content)
	}

	if err != nil {
		var invalid *qa.InvalidInputError
		if errors.As(err, &invalid) {
			return s.sendMessage(conn, Message{Type: MessageError, Content: invalid.Message})
		}
		s.log.WithError(err).Error("Failed to answer question")
		return s.sendMessage(conn, Message{Type: MessageError, Content: http.StatusText(http.StatusInternalServerError)})
	}

	return s.sendMessage(conn, Message{Type: MessageResponse, Content: answer.Text, Data: answer})
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) error {
	return conn.WriteJSON(msg)
}
