package backup

import (
	"context"
	"encoding/json"
	"time"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/repository"
	"incident-workflow/internal/service/dashboard"
	"incident-workflow/internal/storage"
)

// Backup carries both documents verbatim, unknown fields included.
type Backup struct {
	CreatedAt     domain.Timestamp `json:"created_at"`
	Users         json.RawMessage  `json:"users"`
	Notifications json.RawMessage  `json:"notifications"`
}

type RestoreResult struct {
	Users         int `json:"users"`
	Notifications int `json:"notifications"`
	RemovedBlobs  int `json:"removed_blobs"`
}

type Service interface {
	Snapshot(ctx context.Context, actor string) (*Backup, error)
	// Restore replaces both documents and then deletes blobs that no
	// restored notification references. Either both documents are
	// replaced or neither is.
	Restore(ctx context.Context, actor string, b *Backup) (*RestoreResult, error)
	SetClock(now func() time.Time)
}

type service struct {
	repos *repository.Repositories
	store storage.Store
	stats dashboard.Service
	log   *logger.Logger
	now   func() time.Time
}

func NewService(repos *repository.Repositories, store storage.Store, stats dashboard.Service, log *logger.Logger) Service {
	return &service{
		repos: repos,
		store: store,
		stats: stats,
		log:   log,
		now:   time.Now,
	}
}

func (s *service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *service) Snapshot(ctx context.Context, actor string) (*Backup, error) {
	users, err := s.repos.User.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	notifications, err := s.repos.Notification.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	s.log.Audit(actor, "backup", "documents", true, nil)
	return &Backup{
		CreatedAt:     domain.NewTimestamp(s.now()),
		Users:         users,
		Notifications: notifications,
	}, nil
}

func (s *service) Restore(ctx context.Context, actor string, b *Backup) (*RestoreResult, error) {
	if b == nil || len(b.Users) == 0 || len(b.Notifications) == 0 {
		return nil, domain.ValidationError("backup must contain both users and notifications")
	}

	previousUsers, err := s.repos.User.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repos.User.Restore(ctx, b.Users); err != nil {
		s.log.Audit(actor, "restore", "documents", false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	if err := s.repos.Notification.Restore(ctx, b.Notifications); err != nil {
		if rollbackErr := s.repos.User.Restore(context.WithoutCancel(ctx), previousUsers); rollbackErr != nil {
			s.log.WithComponent("backup").WithError(rollbackErr).Error("failed to roll back users document")
		}
		s.log.Audit(actor, "restore", "documents", false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	s.stats.Invalidate(ctx)

	users, err := s.repos.User.List(ctx)
	if err != nil {
		return nil, err
	}
	notifications, err := s.repos.Notification.List(ctx)
	if err != nil {
		return nil, err
	}

	removed, err := s.removeOrphans(ctx, notifications)
	if err != nil {
		s.log.WithComponent("backup").WithError(err).Warn("orphan attachment cleanup incomplete")
	}

	result := &RestoreResult{
		Users:         len(users),
		Notifications: len(notifications),
		RemovedBlobs:  removed,
	}
	s.log.Audit(actor, "restore", "documents", true, map[string]interface{}{
		"users":         result.Users,
		"notifications": result.Notifications,
		"removed_blobs": result.RemovedBlobs,
	})
	return result, nil
}

func (s *service) removeOrphans(ctx context.Context, notifications []domain.Notification) (int, error) {
	referenced := make(map[string]bool)
	for i := range notifications {
		n := &notifications[i]
		for _, ref := range n.Attachments {
			referenced[ref.Token] = true
		}
		for _, action := range n.Actions {
			for _, ref := range action.EvidenceAttachments {
				referenced[ref.Token] = true
			}
		}
	}

	keys, err := s.store.Keys(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if referenced[storage.TokenFromKey(key)] {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
