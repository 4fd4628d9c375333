package quota

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lawbot/backend/internal/storage/models"
	"github.com/lawbot/backend/pkg/config"
)

type fakeStore struct {
	records map[string]models.UsageRecord
	getErr  error
	setErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]models.UsageRecord)}
}

func (s *fakeStore) GetUsage(ctx context.Context, userIdentifier string) (*models.UsageRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if rec, ok := s.records[userIdentifier]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *fakeStore) SetUsage(ctx context.Context, rec models.UsageRecord) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.records[rec.UserIdentifier] = rec
	return nil
}

func testQuotaConfig() config.QuotaConfig {
	return config.QuotaConfig{DailyLimit: 3, PremiumUsers: []string{"user_vip"}}
}

func TestCheckAndIncrementUpToLimit(t *testing.T) {
	store := newFakeStore()
	limiter := NewLimiter(store, testQuotaConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision := limiter.Check(ctx, "user_1")
		if !decision.Allowed {
			t.Fatalf("question %d should be allowed: %+v", i+1, decision)
		}
		if decision.Remaining != 3-i {
			t.Errorf("question %d: remaining = %d, want %d", i+1, decision.Remaining, 3-i)
		}
		limiter.Increment(ctx, "user_1")
	}

	decision := limiter.Check(ctx, "user_1")
	if decision.Allowed {
		t.Errorf("fourth question should be denied: %+v", decision)
	}
	if decision.Message == "" {
		t.Error("denial should carry the visitor-facing message")
	}
}

func TestDayRolloverResets(t *testing.T) {
	store := newFakeStore()
	store.records["user_1"] = models.UsageRecord{
		UserIdentifier: "user_1",
		QuestionCount:  3,
		LastReset:      time.Now().UTC().AddDate(0, 0, -1),
	}
	limiter := NewLimiter(store, testQuotaConfig())
	ctx := context.Background()

	decision := limiter.Check(ctx, "user_1")
	if !decision.Allowed || decision.Remaining != 3 {
		t.Errorf("stale counter should not block: %+v", decision)
	}

	limiter.Increment(ctx, "user_1")
	rec := store.records["user_1"]
	if rec.QuestionCount != 1 {
		t.Errorf("counter should reset to 1 on a new day, got %d", rec.QuestionCount)
	}
}

func TestPremiumBypass(t *testing.T) {
	store := newFakeStore()
	limiter := NewLimiter(store, testQuotaConfig())
	ctx := context.Background()

	decision := limiter.Check(ctx, "USER_VIP")
	if !decision.Allowed || !decision.Unlimited {
		t.Errorf("premium client should be unlimited: %+v", decision)
	}

	limiter.Increment(ctx, "user_vip")
	if len(store.records) != 0 {
		t.Error("premium clients should not be counted")
	}
}

func TestFailOpenOnStorageError(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("table missing")
	limiter := NewLimiter(store, testQuotaConfig())

	decision := limiter.Check(context.Background(), "user_1")
	if !decision.Allowed {
		t.Errorf("storage errors must not block visitors: %+v", decision)
	}
}

func TestIdentifier(t *testing.T) {
	if got := Identifier("42", ""); got != "user_42" {
		t.Errorf("Identifier with user id = %q", got)
	}

	anon := Identifier("", "203.0.113.9")
	if !strings.HasPrefix(anon, "ip_") || len(anon) != 3+32 {
		t.Errorf("anonymous identifier should be ip_ plus digest, got %q", anon)
	}
	if anon == Identifier("", "203.0.113.10") {
		t.Error("different IPs should hash differently")
	}
	if Identifier("", "") != Identifier("", "127.0.0.1") {
		t.Error("missing IP should fall back to localhost")
	}
}

func TestLimitFloor(t *testing.T) {
	limiter := NewLimiter(newFakeStore(), config.QuotaConfig{DailyLimit: 0})
	decision := limiter.Check(context.Background(), "user_1")
	if decision.Limit != 5 {
		t.Errorf("zero limit should fall back to default, got %d", decision.Limit)
	}
}
