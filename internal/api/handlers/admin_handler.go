package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/index"
	"github.com/lawbot/backend/internal/learning"
	"github.com/lawbot/backend/internal/storage/models"
	"github.com/lawbot/backend/internal/storage/sqlite"
	"github.com/lawbot/backend/pkg/config"
	"github.com/lawbot/backend/pkg/logger"
)

// minKeepCount protects recently reinforced associations from the
// maintenance sweep.
const minKeepCount = 3

// AnswerInvalidator drops cached answers after a content change. Nil
// when the answer cache is disabled.
type AnswerInvalidator interface {
	InvalidateAnswers(ctx context.Context) error
}

type AdminHandler struct {
	db        *sqlite.Client
	learner   *learning.Engine
	index     *index.Cache
	answers   AnswerInvalidator
	retention config.LearningConfig
}

func NewAdminHandler(db *sqlite.Client, learner *learning.Engine, idx *index.Cache, answers AnswerInvalidator, retention config.LearningConfig) *AdminHandler {
	return &AdminHandler{db: db, learner: learner, index: idx, answers: answers, retention: retention}
}

// GetStatistics reports widget activity for the dashboard.
func (h *AdminHandler) GetStatistics(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 {
		days = 30
	}

	stats, err := h.db.GetStatistics(c.Context(), days)
	if err != nil {
		logger.Error("Failed to load statistics", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load statistics",
		})
	}

	return c.JSON(stats)
}

// GetLearningStats reports the keyword association table.
func (h *AdminHandler) GetLearningStats(c *fiber.Ctx) error {
	stats, err := h.learner.Stats(c.Context())
	if err != nil {
		logger.Error("Failed to load learning stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load learning statistics",
		})
	}

	return c.JSON(stats)
}

// ListMissingTopics returns questions the content team should cover.
func (h *AdminHandler) ListMissingTopics(c *fiber.Ctx) error {
	handled := c.QueryBool("handled", false)
	limit := c.QueryInt("limit", 50)

	topics, err := h.db.ListMissingTopics(c.Context(), handled, limit)
	if err != nil {
		logger.Error("Failed to list missing topics", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list missing topics",
		})
	}

	return c.JSON(fiber.Map{"topics": topics, "count": len(topics)})
}

// MarkMissingTopicHandled closes one missing topic.
func (h *AdminHandler) MarkMissingTopicHandled(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid topic id",
		})
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.db.MarkMissingTopicHandled(c.Context(), id, req.Notes); err != nil {
		logger.Error("Failed to mark topic handled", zap.Int64("id", id), zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Topic not found",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// SyncDocuments upserts the pushed document batch and invalidates the
// title index plus any cached answers, so new content is searchable on
// the next question.
func (h *AdminHandler) SyncDocuments(c *fiber.Ctx) error {
	var req struct {
		Documents []struct {
			ID      int64  `json:"id"`
			Title   string `json:"title"`
			Link    string `json:"link"`
			Status  string `json:"status"`
			Payload string `json:"payload"`
		} `json:"documents"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(req.Documents) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "documents is required",
		})
	}

	ctx := c.Context()
	synced := 0
	for _, d := range req.Documents {
		if d.ID == 0 || d.Title == "" {
			continue
		}
		doc := models.Document{
			ID:      d.ID,
			Title:   d.Title,
			Link:    d.Link,
			Status:  d.Status,
			Payload: d.Payload,
		}
		if doc.Status == "" {
			doc.Status = models.DocumentStatusPublished
		}
		if err := h.db.UpsertDocument(ctx, doc); err != nil {
			logger.Error("Failed to upsert document", zap.Int64("id", d.ID), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to sync documents",
			})
		}
		synced++
	}

	h.invalidateAfterContentChange(ctx)

	logger.Info("Documents synced", zap.Int("count", synced))
	return c.JSON(fiber.Map{"success": true, "synced": synced})
}

// RefreshIndex drops the title index and cached answers so edits made
// directly in the CMS are picked up on the next question.
func (h *AdminHandler) RefreshIndex(c *fiber.Ctx) error {
	h.invalidateAfterContentChange(c.Context())
	logger.Info("Document index invalidated by admin request")
	return c.JSON(fiber.Map{"success": true})
}

// DeleteDocument removes one document and refreshes the caches.
func (h *AdminHandler) DeleteDocument(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document id",
		})
	}

	if err := h.db.DeleteDocument(c.Context(), id); err != nil {
		logger.Error("Failed to delete document", zap.Int64("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete document",
		})
	}

	h.invalidateAfterContentChange(c.Context())

	return c.JSON(fiber.Map{"success": true})
}

// RunMaintenance prunes stale logs, weak associations and old failed
// matches.
func (h *AdminHandler) RunMaintenance(c *fiber.Ctx) error {
	result, err := h.db.Cleanup(c.Context(), h.retention.LogRetentionDays, h.retention.RetentionDays, minKeepCount)
	if err != nil {
		logger.Error("Maintenance failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Maintenance failed",
		})
	}

	return c.JSON(fiber.Map{"success": true, "removed": result})
}

func (h *AdminHandler) invalidateAfterContentChange(ctx context.Context) {
	h.index.Invalidate()

	if h.answers != nil {
		if err := h.answers.InvalidateAnswers(ctx); err != nil {
			logger.Warn("Failed to invalidate answer cache", zap.Error(err))
		}
	}
}
