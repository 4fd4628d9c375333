package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/chat"
	"github.com/lawbot/backend/pkg/logger"
)

type AskHandler struct {
	service *chat.Service
}

func NewAskHandler(service *chat.Service) *AskHandler {
	return &AskHandler{service: service}
}

// HandleAsk answers one widget question.
func (h *AskHandler) HandleAsk(c *fiber.Ctx) error {
	var req struct {
		Question  string `json:"question"`
		SessionID string `json:"session_id"`
		UserID    string `json:"user_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	resp, err := h.service.Ask(c.Context(), chat.AskRequest{
		Question:  req.Question,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		IP:        c.IP(),
	})
	if err != nil {
		if errors.Is(err, chat.ErrQuestionTooShort) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": chat.MsgQuestionTooShort,
			})
		}
		logger.Error("Failed to answer question", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": chat.MsgAnswerFailed,
		})
	}

	if resp.LimitReached {
		return c.Status(fiber.StatusTooManyRequests).JSON(resp)
	}

	return c.JSON(resp)
}
