package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"incident-workflow/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS incident_users (
	position BIGSERIAL,
	id UUID PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	document JSONB NOT NULL
);
CREATE SEQUENCE IF NOT EXISTS incident_notifications_id_seq;
CREATE TABLE IF NOT EXISTS incident_notifications (
	id BIGINT PRIMARY KEY,
	document JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const uniqueViolation = "23505"

func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return domain.StorageError(err, "failed to create schema")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func marshalDocuments(docs []string) ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		raws = append(raws, json.RawMessage(doc))
	}
	return json.MarshalIndent(raws, "", "  ")
}

type pgNotificationRepository struct {
	db *sqlx.DB
}

func NewPostgresNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &pgNotificationRepository{db: db}
}

func (r *pgNotificationRepository) ReserveID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.GetContext(ctx, &id, `SELECT nextval('incident_notifications_id_seq')`); err != nil {
		return 0, domain.StorageError(err, "failed to allocate notification id")
	}
	return id, nil
}

func (r *pgNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	id := n.ID
	if id == 0 {
		var err error
		if id, err = r.ReserveID(ctx); err != nil {
			return err
		}
	}

	stored := *n
	stored.ID = id
	raw, err := encodeNotification(stored)
	if err != nil {
		return domain.StorageError(err, "failed to encode notification")
	}

	query := `INSERT INTO incident_notifications (id, document) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, id, string(raw)); err != nil {
		if isUniqueViolation(err) {
			return domain.ValidationError("notification %d already exists", id)
		}
		return domain.StorageError(err, "failed to insert notification")
	}

	n.ID = id
	return nil
}

func (r *pgNotificationRepository) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	var doc string
	query := `SELECT document FROM incident_notifications WHERE id = $1`

	err := r.db.GetContext(ctx, &doc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StorageError(err, "failed to load notification %d", id)
	}

	n, err := decodeNotification(json.RawMessage(doc))
	if err != nil {
		return nil, domain.StorageError(err, "notification %d is corrupt", id)
	}
	return &n, nil
}

func (r *pgNotificationRepository) Update(ctx context.Context, n *domain.Notification) error {
	raw, err := encodeNotification(*n)
	if err != nil {
		return domain.StorageError(err, "failed to encode notification %d", n.ID)
	}

	query := `UPDATE incident_notifications SET document = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, n.ID, string(raw))
	if err != nil {
		return domain.StorageError(err, "failed to update notification %d", n.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.StorageError(err, "failed to update notification %d", n.ID)
	}
	if rows == 0 {
		return domain.NotFoundError("notification %d not found", n.ID)
	}
	return nil
}

func (r *pgNotificationRepository) listDocuments(ctx context.Context) ([]string, error) {
	var docs []string
	query := `SELECT document FROM incident_notifications ORDER BY id`
	if err := r.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, domain.StorageError(err, "failed to list notifications")
	}
	return docs, nil
}

func (r *pgNotificationRepository) List(ctx context.Context) ([]domain.Notification, error) {
	docs, err := r.listDocuments(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Notification, 0, len(docs))
	for _, doc := range docs {
		n, err := decodeNotification(json.RawMessage(doc))
		if err != nil {
			return nil, domain.StorageError(err, "stored notification is corrupt")
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *pgNotificationRepository) Snapshot(ctx context.Context) ([]byte, error) {
	docs, err := r.listDocuments(ctx)
	if err != nil {
		return nil, err
	}
	data, err := marshalDocuments(docs)
	if err != nil {
		return nil, domain.StorageError(err, "failed to encode notifications document")
	}
	return data, nil
}

func (r *pgNotificationRepository) Restore(ctx context.Context, data []byte) error {
	items, err := parseRecords("notifications", data, decodeNotification)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.StorageError(err, "failed to begin restore")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM incident_notifications`); err != nil {
		return domain.StorageError(err, "failed to clear notifications")
	}

	for _, n := range items {
		raw, err := encodeNotification(n)
		if err != nil {
			return domain.StorageError(err, "failed to encode notification %d", n.ID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO incident_notifications (id, document) VALUES ($1, $2)`, n.ID, string(raw)); err != nil {
			if isUniqueViolation(err) {
				return domain.ValidationError("notifications document has a duplicate id %d", n.ID)
			}
			return domain.StorageError(err, "failed to restore notification %d", n.ID)
		}
	}

	resetSeq := `SELECT setval('incident_notifications_id_seq', COALESCE((SELECT MAX(id) FROM incident_notifications), 0) + 1, false)`
	if _, err := tx.ExecContext(ctx, resetSeq); err != nil {
		return domain.StorageError(err, "failed to reset notification ids")
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageError(err, "failed to commit restore")
	}
	return nil
}

type pgUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) error {
	raw, err := encodeUser(*user)
	if err != nil {
		return domain.StorageError(err, "failed to encode user")
	}

	query := `INSERT INTO incident_users (id, username, document) VALUES ($1, $2, $3)`
	_, err = r.db.ExecContext(ctx, query, user.ID, domain.NormalizeUsername(user.Username), string(raw))
	if isUniqueViolation(err) {
		return domain.ValidationError("username %q is already taken", user.Username)
	}
	if err != nil {
		return domain.StorageError(err, "failed to insert user")
	}
	return nil
}

func (r *pgUserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var doc string
	err := r.db.GetContext(ctx, &doc, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StorageError(err, "failed to load user")
	}

	u, err := decodeUser(json.RawMessage(doc))
	if err != nil {
		return nil, domain.StorageError(err, "stored user is corrupt")
	}
	return &u, nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, `SELECT document FROM incident_users WHERE id = $1`, id)
}

func (r *pgUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT document FROM incident_users WHERE username = $1`, domain.NormalizeUsername(username))
}

func (r *pgUserRepository) Update(ctx context.Context, user *domain.User) error {
	raw, err := encodeUser(*user)
	if err != nil {
		return domain.StorageError(err, "failed to encode user %s", user.ID)
	}

	query := `UPDATE incident_users SET username = $2, document = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, user.ID, domain.NormalizeUsername(user.Username), string(raw))
	if isUniqueViolation(err) {
		return domain.ValidationError("username %q is already taken", user.Username)
	}
	if err != nil {
		return domain.StorageError(err, "failed to update user %s", user.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.StorageError(err, "failed to update user %s", user.ID)
	}
	if rows == 0 {
		return domain.NotFoundError("user %s not found", user.ID)
	}
	return nil
}

func (r *pgUserRepository) listDocuments(ctx context.Context) ([]string, error) {
	var docs []string
	if err := r.db.SelectContext(ctx, &docs, `SELECT document FROM incident_users ORDER BY position`); err != nil {
		return nil, domain.StorageError(err, "failed to list users")
	}
	return docs, nil
}

func (r *pgUserRepository) List(ctx context.Context) ([]domain.User, error) {
	docs, err := r.listDocuments(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		u, err := decodeUser(json.RawMessage(doc))
		if err != nil {
			return nil, domain.StorageError(err, "stored user is corrupt")
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *pgUserRepository) Snapshot(ctx context.Context) ([]byte, error) {
	docs, err := r.listDocuments(ctx)
	if err != nil {
		return nil, err
	}
	data, err := marshalDocuments(docs)
	if err != nil {
		return nil, domain.StorageError(err, "failed to encode users document")
	}
	return data, nil
}

func (r *pgUserRepository) Restore(ctx context.Context, data []byte) error {
	users, err := parseRecords("users", data, decodeUser)
	if err != nil {
		return err
	}
	if err := checkUniqueUsers(users); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.StorageError(err, "failed to begin restore")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM incident_users`); err != nil {
		return domain.StorageError(err, "failed to clear users")
	}

	for _, u := range users {
		raw, err := encodeUser(u)
		if err != nil {
			return domain.StorageError(err, "failed to encode user %s", u.ID)
		}
		query := `INSERT INTO incident_users (id, username, document) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, query, u.ID, domain.NormalizeUsername(u.Username), string(raw)); err != nil {
			return domain.StorageError(err, "failed to restore user %s", u.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageError(err, "failed to commit restore")
	}
	return nil
}
