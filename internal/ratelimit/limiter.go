package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kioskhub/internal/models"
)

// DefaultDailyLimit caps voice-demo sessions per client IP per calendar day.
const DefaultDailyLimit = 5

// Result is the outcome of a single check-and-increment.
type Result struct {
	Allowed    bool      `json:"allowed"`
	DailyCount int64     `json:"daily_count"`
	Limit      int64     `json:"limit"`
	Blocked    bool      `json:"blocked"`
	ResetAt    time.Time `json:"reset_at"`
}

// Store persists per-IP usage stats alongside the Redis counters.
type Store interface {
	RecordSession(ctx context.Context, ip string, dailyCount int64, blocked bool, now time.Time) error
}

// GormStore upserts models.RateLimitRecord rows.
type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) RecordSession(ctx context.Context, ip string, dailyCount int64, blocked bool, now time.Time) error {
	rec := models.RateLimitRecord{
		IP:                ip,
		SessionCount:      1,
		DailySessionCount: dailyCount,
		Blocked:           blocked,
		FirstSessionAt:    now,
		LastSessionAt:     now,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ip"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"session_count":       gorm.Expr("rate_limit_records.session_count + 1"),
			"daily_session_count": dailyCount,
			"blocked":             blocked,
			"last_session_at":     now,
		}),
	}).Create(&rec).Error
}

// Limiter enforces the per-IP daily cap with an atomic Redis INCR, so the
// count is shared across deployed instances. The durable stats row is written
// best-effort and never blocks the decision.
type Limiter struct {
	rdb   *redis.Client
	store Store
	lg    *zap.SugaredLogger
	limit int64
	now   func() time.Time
}

func New(rdb *redis.Client, store Store, lg *zap.SugaredLogger, limit int64) *Limiter {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Limiter{rdb: rdb, store: store, lg: lg, limit: limit, now: time.Now}
}

// CheckAndIncrement counts this call against ip's daily budget and reports
// whether it is still allowed. The counter key expires at the next local
// midnight, which is the reset boundary.
func (l *Limiter) CheckAndIncrement(ctx context.Context, ip string) (Result, error) {
	now := l.now()
	key := fmt.Sprintf("demo:%s:%s", ip, now.Format("2006-01-02"))
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}
	reset := nextMidnight(now)
	if count == 1 {
		if err := l.rdb.ExpireAt(ctx, key, reset).Err(); err != nil {
			l.lg.Warnw("rate limit expiry set failed", "key", key, "error", err)
		}
	}
	res := Result{
		Allowed:    count <= l.limit,
		DailyCount: count,
		Limit:      l.limit,
		ResetAt:    reset,
	}
	res.Blocked = !res.Allowed
	if l.store != nil {
		if err := l.store.RecordSession(ctx, ip, count, res.Blocked, now); err != nil {
			l.lg.Warnw("rate limit stats write failed", "ip", ip, "error", err)
		}
	}
	return res, nil
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}

// ClientIP takes the first X-Forwarded-For entry verbatim when present.
// TODO: honor a trusted-proxy list once the deployment settles on one; a
// client can currently spoof its way past the limiter with a forged header.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
