// Package quota enforces the per-client daily question allowance.
// Every failure path allows the question through: a broken quota
// table must never take the widget down.
package quota

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/storage/models"
	"github.com/lawbot/backend/pkg/config"
	"github.com/lawbot/backend/pkg/logger"
	"github.com/lawbot/backend/pkg/utils"
)

// limitReachedMessage is shown to the visitor in the widget.
const limitReachedMessage = "وصلت للحد اليومي"

// Store reads and writes usage counters.
type Store interface {
	GetUsage(ctx context.Context, userIdentifier string) (*models.UsageRecord, error)
	SetUsage(ctx context.Context, rec models.UsageRecord) error
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Unlimited bool   `json:"unlimited,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Limiter tracks daily question counts per client.
type Limiter struct {
	store   Store
	limit   int
	premium map[string]struct{}
}

// NewLimiter builds the limiter from configuration. Premium entries
// are matched case-insensitively.
func NewLimiter(store Store, cfg config.QuotaConfig) *Limiter {
	limit := cfg.DailyLimit
	if limit < 1 {
		limit = 5
	}

	premium := make(map[string]struct{}, len(cfg.PremiumUsers))
	for _, user := range cfg.PremiumUsers {
		user = strings.ToLower(strings.TrimSpace(user))
		if user != "" {
			premium[user] = struct{}{}
		}
	}

	return &Limiter{store: store, limit: limit, premium: premium}
}

// Identifier derives the quota key for a request: the user id when
// known, otherwise a digest of the client IP.
func Identifier(userID, ip string) string {
	if userID != "" {
		return "user_" + userID
	}
	if ip == "" {
		ip = "127.0.0.1"
	}
	return "ip_" + utils.HashString(ip)
}

// Check reports whether the client may ask another question today.
func (l *Limiter) Check(ctx context.Context, userIdentifier string) Decision {
	if l.isPremium(userIdentifier) {
		return Decision{Allowed: true, Unlimited: true, Limit: l.limit}
	}

	count := l.currentCount(ctx, userIdentifier)
	if count >= l.limit {
		return Decision{Remaining: 0, Limit: l.limit, Message: limitReachedMessage}
	}

	return Decision{Allowed: true, Remaining: l.limit - count, Limit: l.limit}
}

// Increment counts one asked question. A new day resets the counter
// to one.
func (l *Limiter) Increment(ctx context.Context, userIdentifier string) {
	if l.isPremium(userIdentifier) {
		return
	}

	now := time.Now().UTC()
	rec, err := l.store.GetUsage(ctx, userIdentifier)
	if err != nil {
		logger.Warn("Quota read failed, skipping increment", zap.Error(err))
		return
	}

	next := models.UsageRecord{UserIdentifier: userIdentifier, QuestionCount: 1, LastReset: now}
	if rec != nil && sameDay(rec.LastReset, now) {
		next.QuestionCount = rec.QuestionCount + 1
		next.LastReset = rec.LastReset
	}

	if err := l.store.SetUsage(ctx, next); err != nil {
		logger.Warn("Quota write failed", zap.Error(err))
	}
}

func (l *Limiter) isPremium(userIdentifier string) bool {
	_, ok := l.premium[strings.ToLower(strings.TrimSpace(userIdentifier))]
	return ok
}

// currentCount returns zero when the record is missing, stale or
// unreadable.
func (l *Limiter) currentCount(ctx context.Context, userIdentifier string) int {
	rec, err := l.store.GetUsage(ctx, userIdentifier)
	if err != nil {
		logger.Warn("Quota read failed, allowing request", zap.Error(err))
		return 0
	}
	if rec == nil || !sameDay(rec.LastReset, time.Now().UTC()) {
		return 0
	}
	return rec.QuestionCount
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
