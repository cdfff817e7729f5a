package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/repository"
)

const (
	cacheKeyPrefix = "dashboard:stats:"
	generationKey  = "dashboard:stats:generation"
)

type Stats struct {
	Total         int64                     `json:"total"`
	Open          int64                     `json:"open"`
	Overdue       int64                     `json:"overdue"`
	DueSoon       int64                     `json:"due_soon"`
	ByStatus      map[domain.Status]int64   `json:"by_status"`
	ByPriority    map[domain.Priority]int64 `json:"by_priority"`
	ByNNCClass    map[domain.NNCClass]int64 `json:"by_nnc_class"`
	LastCreatedAt *domain.Timestamp         `json:"last_created_at"`
	GeneratedAt   domain.Timestamp          `json:"generated_at"`
}

type Service interface {
	GetStats(ctx context.Context) (*Stats, error)
	// Invalidate drops the cached stats after a notification changed.
	Invalidate(ctx context.Context)
	SetClock(now func() time.Time)
}

type service struct {
	notificationRepo repository.NotificationRepository
	redis            *redis.Client
	ttl              time.Duration
	log              *logger.Logger
	now              func() time.Time
}

func NewService(notificationRepo repository.NotificationRepository, redis *redis.Client, ttl time.Duration, log *logger.Logger) Service {
	return &service{
		notificationRepo: notificationRepo,
		redis:            redis,
		ttl:              ttl,
		log:              log,
		now:              time.Now,
	}
}

func (s *service) SetClock(now func() time.Time) {
	s.now = now
}

// GetStats serves the cached stats of the current generation. Invalidate
// bumps the generation, so stats computed from a snapshot that predates a
// write are stored under a key nobody reads again.
func (s *service) GetStats(ctx context.Context) (*Stats, error) {
	key := ""
	if s.redis != nil {
		key = s.cacheKey(ctx)
	}
	if key != "" {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			var stats Stats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		}
	}

	notifications, err := s.notificationRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stats := Compute(notifications, now)

	if key != "" {
		if statsJSON, err := json.Marshal(stats); err == nil {
			if err := s.redis.Set(ctx, key, statsJSON, s.ttl).Err(); err != nil {
				s.log.WithComponent("dashboard").WithError(err).Warn("failed to cache stats")
			}
		}
	}

	return stats, nil
}

func (s *service) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Incr(ctx, generationKey).Err(); err != nil {
		s.log.WithComponent("dashboard").WithError(err).Warn("failed to invalidate stats cache")
	}
}

// cacheKey returns the key for the current generation, or "" when Redis
// cannot be read and the cache should be bypassed.
func (s *service) cacheKey(ctx context.Context) string {
	gen, err := s.redis.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.WithComponent("dashboard").WithError(err).Warn("failed to read stats generation")
		return ""
	}
	return cacheKeyPrefix + strconv.FormatInt(gen, 10)
}

// Compute derives the stats for a snapshot of notifications as of now.
func Compute(notifications []domain.Notification, now time.Time) *Stats {
	today := domain.DateOf(now)
	stats := &Stats{
		Total:       int64(len(notifications)),
		ByStatus:    make(map[domain.Status]int64),
		ByPriority:  make(map[domain.Priority]int64),
		ByNNCClass:  make(map[domain.NNCClass]int64),
		GeneratedAt: domain.NewTimestamp(now),
	}

	for i := range notifications {
		n := &notifications[i]
		stats.ByStatus[n.Status]++

		if stats.LastCreatedAt == nil || n.CreatedAt.After(stats.LastCreatedAt.Time) {
			created := n.CreatedAt
			stats.LastCreatedAt = &created
		}

		if n.Classification != nil {
			stats.ByPriority[n.Classification.Priority]++
			stats.ByNNCClass[n.Classification.NNCClass]++
		}

		if n.Status.IsTerminal() {
			continue
		}
		stats.Open++
		switch n.DeadlineStatus(today) {
		case domain.DeadlineOverdue:
			stats.Overdue++
		case domain.DeadlineDueSoon:
			stats.DueSoon++
		}
	}

	return stats
}
