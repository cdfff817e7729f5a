package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-workflow/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestPostgresNotificationRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT nextval('incident_notifications_id_seq')`)).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(42))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO incident_notifications (id, document) VALUES ($1, $2)`)).
		WithArgs(int64(42), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := newNotification("pg")
	require.NoError(t, repo.Create(context.Background(), n))
	assert.Equal(t, int64(42), n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotificationRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresNotificationRepository(db)
	query := regexp.QuoteMeta(`SELECT document FROM incident_notifications WHERE id = $1`)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"document"}).
				AddRow(`{"id":3,"title":"stored","status":"classified","extra":1}`))

		n, err := repo.GetByID(context.Background(), 3)
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, "stored", n.Title)
		assert.Equal(t, domain.StatusClassified, n.Status)
		assert.Contains(t, n.Unknown, "extra")
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"document"}))

		n, err := repo.GetByID(context.Background(), 4)
		assert.NoError(t, err)
		assert.Nil(t, n)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotificationRepository_UpdateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE incident_notifications SET document = $2`)).
		WithArgs(int64(9), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n := newNotification("missing")
	n.ID = 9
	err := repo.Update(context.Background(), n)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotificationRepository_Restore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresNotificationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM incident_notifications`)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO incident_notifications`)).
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO incident_notifications`)).
		WithArgs(int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SELECT setval('incident_notifications_id_seq'`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Restore(context.Background(), []byte(`[{"id":1,"title":"a"},{"id":2,"title":"b"}]`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotificationRepository_RestoreRollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresNotificationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM incident_notifications`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO incident_notifications`)).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Restore(context.Background(), []byte(`[{"id":1,"title":"a"}]`))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepository(db)

	u := newUser("Maria", domain.RoleClassifier)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO incident_users (id, username, document) VALUES ($1, $2, $3)`)).
		WithArgs(u.ID, "maria", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_GetByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepository(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT document FROM incident_users WHERE username = $1`)).
		WithArgs("joao").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).
			AddRow(`{"id":"` + id.String() + `","username":"Joao","password":"h","roles":["executor"]}`))

	u, err := repo.GetByUsername(context.Background(), " JOAO ")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, id, u.ID)
	assert.True(t, u.Active)
	assert.True(t, u.HasRole(domain.RoleExecutor))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT document FROM incident_users ORDER BY position`)).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).
			AddRow(`{"id":"` + uuid.New().String() + `","username":"a","active":false}`).
			AddRow(`{"id":"` + uuid.New().String() + `","username":"b"}`))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.False(t, users[0].Active)
	assert.True(t, users[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS incident_users`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
