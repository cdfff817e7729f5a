package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/repository"
	"incident-workflow/internal/service/dashboard"
)

func withDeadline(id int64, status domain.Status, priority domain.Priority, deadline domain.Date, created time.Time) domain.Notification {
	return domain.Notification{
		ID:        id,
		Status:    status,
		CreatedAt: domain.NewTimestamp(created),
		Classification: &domain.Classification{
			NNCClass:     domain.NNCNearMiss,
			Priority:     priority,
			DeadlineDate: &deadline,
		},
	}
}

func TestCompute(t *testing.T) {
	now := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)
	created := now.Add(-72 * time.Hour)

	approvedLate := withDeadline(4, domain.StatusApproved, domain.PriorityLow, domain.NewDate(2025, time.January, 31), created)
	approvedLate.Conclusion = &domain.ConclusionRecord{ConcludedAt: domain.NewTimestamp(time.Date(2025, 2, 5, 9, 0, 0, 0, time.UTC))}

	notifications := []domain.Notification{
		{ID: 1, Status: domain.StatusPendingClassification, CreatedAt: domain.NewTimestamp(now.Add(-time.Hour))},
		withDeadline(2, domain.StatusInExecution, domain.PriorityHigh, domain.NewDate(2025, time.February, 1), created),
		withDeadline(3, domain.StatusClassified, domain.PriorityHigh, domain.NewDate(2025, time.February, 14), created),
		approvedLate,
		{ID: 5, Status: domain.StatusRejectedAtIntake, CreatedAt: domain.NewTimestamp(created)},
	}

	stats := dashboard.Compute(notifications, now)

	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(3), stats.Open)
	assert.Equal(t, int64(1), stats.Overdue, "terminal notifications are not counted as overdue")
	assert.Equal(t, int64(1), stats.DueSoon)
	assert.Equal(t, int64(2), stats.ByPriority[domain.PriorityHigh])
	assert.Equal(t, int64(3), stats.ByNNCClass[domain.NNCNearMiss])
	assert.Equal(t, int64(1), stats.ByStatus[domain.StatusRejectedAtIntake])
	require.NotNil(t, stats.LastCreatedAt)
	assert.True(t, stats.LastCreatedAt.Equal(now.Add(-time.Hour)))
}

func TestDashboardService_GetStatsWithoutCache(t *testing.T) {
	repo, err := repository.NewNotificationRepository(t.TempDir(), nil)
	require.NoError(t, err)
	svc := dashboard.NewService(repo, nil, time.Minute, logger.Nop())
	svc.SetClock(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) })

	ctx := context.Background()
	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Nil(t, stats.LastCreatedAt)

	svc.Invalidate(ctx)
}

func setupCachedService(t *testing.T) (*miniredis.Miniredis, repository.NotificationRepository, dashboard.Service) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	repo, err := repository.NewNotificationRepository(t.TempDir(), nil)
	require.NoError(t, err)
	svc := dashboard.NewService(repo, redisClient, time.Minute, logger.Nop())
	svc.SetClock(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) })
	return mr, repo, svc
}

func TestDashboardService_CachesUntilInvalidated(t *testing.T) {
	_, repo, svc := setupCachedService(t)
	ctx := context.Background()

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	require.NoError(t, repo.Create(ctx, &domain.Notification{Title: "fall", Status: domain.StatusPendingClassification}))

	stats, err = svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Total, "served from cache")

	svc.Invalidate(ctx)
	stats, err = svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
}

func TestDashboardService_IgnoresStatsOfRetiredGeneration(t *testing.T) {
	mr, repo, svc := setupCachedService(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Notification{Title: "fall", Status: domain.StatusPendingClassification}))
	svc.Invalidate(ctx)

	// Stats computed before the write, stored after the invalidation.
	require.NoError(t, mr.Set("dashboard:stats:0", `{"total":0}`))

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.True(t, mr.Exists("dashboard:stats:1"))
}

func TestDashboardService_RedisDownFallsBackToRepository(t *testing.T) {
	mr, repo, svc := setupCachedService(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Notification{Title: "fall", Status: domain.StatusPendingClassification}))
	mr.Close()

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	svc.Invalidate(ctx)
}
