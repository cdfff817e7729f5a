package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"incident-workflow/internal/pkg/metrics"
)

type Repositories struct {
	User         UserRepository
	Notification NotificationRepository
}

// NewJSONRepositories opens (or starts) the users and notifications
// documents under dataDir.
func NewJSONRepositories(dataDir string, m *metrics.Collector) (*Repositories, error) {
	users, err := NewUserRepository(dataDir, m)
	if err != nil {
		return nil, err
	}
	notifications, err := NewNotificationRepository(dataDir, m)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		User:         users,
		Notification: notifications,
	}, nil
}

// NewPostgresRepositories stores the same JSON documents one row per record.
func NewPostgresRepositories(ctx context.Context, db *sqlx.DB) (*Repositories, error) {
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return &Repositories{
		User:         NewPostgresUserRepository(db),
		Notification: NewPostgresNotificationRepository(db),
	}, nil
}
