package handlers

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/chat"
	"github.com/lawbot/backend/pkg/logger"
)

// questionService is the slice of chat.Service the socket needs.
type questionService interface {
	Ask(ctx context.Context, req chat.AskRequest) (*chat.AskResponse, error)
}

// wsConn is the connection surface the session loop reads and writes.
// *websocket.Conn satisfies it.
type wsConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	RemoteAddr() net.Addr
}

type WebSocketHandler struct {
	service questionService
}

func NewWebSocketHandler(service *chat.Service) *WebSocketHandler {
	return &WebSocketHandler{service: service}
}

// HandleConnection serves one widget session. Questions arrive as
// {"type":"ask"} messages; answers stream back word by word so the
// widget can render them progressively.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	h.serve(c)

	c.Close()
	logger.Info("WebSocket connection closed")
}

// serve runs the session loop. The derived context is cancelled when
// the loop exits, so a dropped socket also cancels any in-flight
// completion call.
func (h *WebSocketHandler) serve(c wsConn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The session survives across questions on the same connection.
	sessionID := ""

	for {
		var msg struct {
			Type      string `json:"type"`
			Question  string `json:"question"`
			SessionID string `json:"session_id"`
			UserID    string `json:"user_id"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		if msg.Type != "ask" {
			continue
		}

		if msg.SessionID != "" {
			sessionID = msg.SessionID
		}

		resp, err := h.streamAnswer(ctx, c, msg.Question, sessionID, msg.UserID)
		if err != nil {
			if errors.Is(err, chat.ErrQuestionTooShort) {
				h.sendError(c, chat.MsgQuestionTooShort)
				continue
			}
			logger.Error("Failed to answer WebSocket question", zap.Error(err))
			h.sendError(c, chat.MsgAnswerFailed)
			continue
		}
		sessionID = resp.SessionID
	}
}

func (h *WebSocketHandler) streamAnswer(ctx context.Context, c wsConn, question, sessionID, userID string) (*chat.AskResponse, error) {
	// A failed status frame means the socket is gone; skip the
	// completion call entirely.
	if err := h.sendChunk(c, "status", "جاري البحث..."); err != nil {
		return nil, err
	}

	resp, err := h.service.Ask(ctx, chat.AskRequest{
		Question:  question,
		SessionID: sessionID,
		UserID:    userID,
		IP:        c.RemoteAddr().String(),
	})
	if err != nil {
		return nil, err
	}

	for i, word := range splitIntoWords(resp.Message) {
		chunk := word
		if word != "\n" && i > 0 {
			chunk = " " + chunk
		}
		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return nil, err
		}
	}

	if err := h.sendComplete(c, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func (h *WebSocketHandler) sendChunk(c wsConn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendComplete(c wsConn, resp *chat.AskResponse) error {
	return c.WriteJSON(map[string]interface{}{
		"type":          "complete",
		"success":       resp.Success,
		"session_id":    resp.SessionID,
		"sources":       resp.Sources,
		"remaining":     resp.Remaining,
		"unlimited":     resp.Unlimited,
		"limit_reached": resp.LimitReached,
	})
}

func (h *WebSocketHandler) sendError(c wsConn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	current := ""

	for _, r := range text {
		if r == ' ' || r == '\n' {
			if current != "" {
				words = append(words, current)
				current = ""
			}
			if r == '\n' {
				words = append(words, "\n")
			}
		} else {
			current += string(r)
		}
	}

	if current != "" {
		words = append(words, current)
	}

	return words
}
