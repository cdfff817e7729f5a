package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-workflow/internal/domain"
)

func newNotification(title string) *domain.Notification {
	return &domain.Notification{
		Title:          title,
		Description:    "desc",
		Location:       "Ward 3",
		OccurrenceDate: domain.NewDate(2024, time.March, 1),
		EventShift:     domain.ShiftDay,
		Status:         domain.StatusPendingClassification,
		CreatedAt:      domain.NewTimestamp(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
	}
}

func TestNotificationRepository_CreateAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := NewNotificationRepository(dir, nil)
	require.NoError(t, err)

	first := newNotification("first")
	second := newNotification("second")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	reopened, err := NewNotificationRepository(dir, nil)
	require.NoError(t, err)

	got, err := reopened.GetByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Title)

	missing, err := reopened.GetByID(ctx, 99)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestNotificationRepository_UpdateKeepsHistoryOrder(t *testing.T) {
	ctx := context.Background()
	repo, err := NewNotificationRepository(t.TempDir(), nil)
	require.NoError(t, err)

	n := newNotification("ordered")
	at := domain.NewTimestamp(time.Now())
	n.RecordHistory("Notification created", "anonymous", at, "")
	require.NoError(t, repo.Create(ctx, n))

	n.RecordHistory("Classified", "maria", at, "NNC: Event-without-harm")
	n.RecordHistory("Action recorded", "joao", at, "first step")
	require.NoError(t, repo.Update(ctx, n))

	got, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 3)
	assert.Equal(t, "Notification created", got.History[0].Action)
	assert.Equal(t, "Classified", got.History[1].Action)
	assert.Equal(t, "Action recorded", got.History[2].Action)
}

func TestNotificationRepository_UpdateMissing(t *testing.T) {
	repo, err := NewNotificationRepository(t.TempDir(), nil)
	require.NoError(t, err)

	n := newNotification("ghost")
	n.ID = 7
	err = repo.Update(context.Background(), n)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotificationRepository_ReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	repo, err := NewNotificationRepository(t.TempDir(), nil)
	require.NoError(t, err)

	n := newNotification("copy")
	n.Executors = []uuid.UUID{uuid.New()}
	require.NoError(t, repo.Create(ctx, n))

	got, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	got.Executors[0] = uuid.Nil
	got.Title = "mutated"

	again, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "copy", again.Title)
	assert.NotEqual(t, uuid.Nil, again.Executors[0])
}

func TestNotificationRepository_PreservesUnknownFields(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	legacy := `[
  {
    "id": 4,
    "title": "legacy",
    "description": "d",
    "location": "ER",
    "occurrence_date": "2023-12-24",
    "event_shift": "Night",
    "status": "pending_classification",
    "attachments": ["photo.jpg"],
    "created_at": "2023-12-24T22:10:00",
    "history": [],
    "ward_code": "X-12"
  }
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notifications.json"), []byte(legacy), 0o644))

	repo, err := NewNotificationRepository(dir, nil)
	require.NoError(t, err)

	n, err := repo.GetByID(ctx, 4)
	require.NoError(t, err)
	require.NotNil(t, n)
	require.Len(t, n.Attachments, 1)
	assert.Equal(t, "photo.jpg", n.Attachments[0].Token)
	assert.Equal(t, "photo.jpg", n.Attachments[0].OriginalName)

	n.Title = "legacy updated"
	require.NoError(t, repo.Update(ctx, n))

	data, err := os.ReadFile(filepath.Join(dir, "notifications.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ward_code": "X-12"`)

	next := newNotification("after legacy")
	require.NoError(t, repo.Create(ctx, next))
	assert.Equal(t, int64(5), next.ID)
}

func TestNotificationRepository_PreservesNestedUnknownFields(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	legacy := `[
  {
    "id": 7,
    "title": "older record",
    "status": "in_execution",
    "occurrence_date": "2024-01-02",
    "created_at": "2024-01-02T08:00:00.000Z",
    "attachments": [{"token": "t1", "original_name": "scan.pdf", "checksum": "deadbeef"}],
    "classification": {"nnc_class": "Near miss", "priority": "Low", "deadline_date": "2024-02-01", "reviewed_by_quality": true},
    "actions": [{"executor_id": "6f1c1e8e-3f4a-4f55-9d8a-0d1c2b3a4f5e", "description": "checked pump", "timestamp": "2024-01-03T09:00:00.000Z", "final": false, "shift_lead": "Ana"}],
    "history": [{"action": "intake", "user": "anonymous", "timestamp": "2024-01-02T08:00:00.000Z", "details": "", "ip": "10.0.0.1"}]
  }
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notifications.json"), []byte(legacy), 0o644))

	repo, err := NewNotificationRepository(dir, nil)
	require.NoError(t, err)

	n, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, n)

	n.Title = "older record, renamed"
	n.RecordHistory("record_action", "Joao", domain.NewTimestamp(time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC)), "follow-up")
	require.NoError(t, repo.Update(ctx, n))

	data, err := os.ReadFile(filepath.Join(dir, "notifications.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ip": "10.0.0.1"`)
	assert.Contains(t, string(data), `"checksum": "deadbeef"`)
	assert.Contains(t, string(data), `"reviewed_by_quality": true`)
	assert.Contains(t, string(data), `"shift_lead": "Ana"`)
	assert.Contains(t, string(data), "older record, renamed")

	reopened, err := NewNotificationRepository(dir, nil)
	require.NoError(t, err)
	again, err := reopened.GetByID(ctx, 7)
	require.NoError(t, err)
	require.Len(t, again.History, 2)
	assert.Contains(t, again.History[0].Unknown, "ip")
	assert.Nil(t, again.History[1].Unknown)
	assert.Contains(t, again.Attachments[0].Unknown, "checksum")
}

func TestNotificationRepository_FailedWriteLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := NewNotificationRepository(dir, nil)
	require.NoError(t, err)

	n := newNotification("stable")
	require.NoError(t, repo.Create(ctx, n))

	// A non-empty directory at the document path makes the final rename fail.
	path := filepath.Join(dir, "notifications.json")
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0o755))

	changed := *n
	changed.Title = "changed"
	err = repo.Update(ctx, &changed)
	assert.ErrorIs(t, err, domain.ErrStorage)

	err = repo.Create(ctx, newNotification("lost"))
	assert.ErrorIs(t, err, domain.ErrStorage)

	got, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "stable", got.Title)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNotificationRepository_Restore(t *testing.T) {
	ctx := context.Background()
	repo, err := NewNotificationRepository(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, newNotification("before")))

	t.Run("rejects duplicate ids", func(t *testing.T) {
		err := repo.Restore(ctx, []byte(`[{"id":1,"title":"a"},{"id":1,"title":"b"}]`))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("rejects non-array documents", func(t *testing.T) {
		err := repo.Restore(ctx, []byte(`{"id":1}`))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("replaces contents", func(t *testing.T) {
		err := repo.Restore(ctx, []byte(`[{"id":10,"title":"restored","status":"approved"}]`))
		require.NoError(t, err)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "restored", all[0].Title)

		snapshot, err := repo.Snapshot(ctx)
		require.NoError(t, err)
		assert.Contains(t, string(snapshot), `"restored"`)
	})
}

func TestNotificationRepository_ReserveID(t *testing.T) {
	ctx := context.Background()
	repo, err := NewNotificationRepository(t.TempDir(), nil)
	require.NoError(t, err)

	reserved, err := repo.ReserveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reserved)

	// A plain Create must not reuse the id handed out above.
	plain := newNotification("plain")
	require.NoError(t, repo.Create(ctx, plain))
	assert.Equal(t, int64(2), plain.ID)

	withAttachments := newNotification("reserved")
	withAttachments.ID = reserved
	require.NoError(t, repo.Create(ctx, withAttachments))

	err = repo.Create(ctx, withAttachments)
	assert.ErrorIs(t, err, domain.ErrValidation)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
