package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/keywords"
	"github.com/lawbot/backend/internal/learning"
	"github.com/lawbot/backend/internal/metrics"
	"github.com/lawbot/backend/internal/storage/models"
	"github.com/lawbot/backend/pkg/logger"
)

type FeedbackHandler struct {
	learner *learning.Engine
}

func NewFeedbackHandler(learner *learning.Engine) *FeedbackHandler {
	return &FeedbackHandler{learner: learner}
}

// HandleFeedback records a visitor verdict on an answered question.
// Helpful feedback reinforces the keyword associations; wrong feedback
// marks the pairing so the document is excluded next time the same
// question comes in.
func (h *FeedbackHandler) HandleFeedback(c *fiber.Ctx) error {
	var req struct {
		Question      string `json:"question"`
		DocumentID    int64  `json:"document_id"`
		DocumentTitle string `json:"document_title"`
		Helpful       bool   `json:"helpful"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse feedback body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Question == "" || req.DocumentID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "question and document_id are required",
		})
	}

	ctx := c.Context()

	if req.Helpful {
		metrics.FeedbackTotal.WithLabelValues("helpful").Inc()
		kws := keywords.Extract(req.Question)
		if len(kws) > 0 {
			match := models.SearchResult{DocumentID: req.DocumentID, Title: req.DocumentTitle}
			if err := h.learner.RecordSuccess(ctx, kws, []models.SearchResult{match}); err != nil {
				logger.Error("Failed to record helpful feedback", zap.Error(err))
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": "Failed to record feedback",
				})
			}
		}
	} else {
		metrics.FeedbackTotal.WithLabelValues("wrong").Inc()
		if err := h.learner.RecordFailure(ctx, req.Question, req.DocumentID); err != nil {
			logger.Error("Failed to record wrong-answer feedback", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to record feedback",
			})
		}
	}

	return c.JSON(fiber.Map{"success": true})
}
