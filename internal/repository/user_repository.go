package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/metrics"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	// GetByID and GetByUsername return nil, nil when the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context) ([]domain.User, error)
	Snapshot(ctx context.Context) ([]byte, error)
	Restore(ctx context.Context, data []byte) error
}

// userRecord is the persisted shape; unlike domain.User it carries the hash.
type userRecord struct {
	ID        uuid.UUID         `json:"id"`
	Username  string            `json:"username"`
	Password  string            `json:"password"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Roles     []domain.UserRole `json:"roles"`
	Active    *bool             `json:"active"`
	CreatedAt domain.Timestamp  `json:"created_at"`
}

func encodeUser(u domain.User) (json.RawMessage, error) {
	active := u.Active
	rec := userRecord{
		ID:        u.ID,
		Username:  u.Username,
		Password:  u.PasswordHash,
		Name:      u.Name,
		Email:     u.Email,
		Roles:     u.Roles,
		Active:    &active,
		CreatedAt: u.CreatedAt,
	}
	return encodeRecord(rec, u.Unknown)
}

// decodeUser treats a missing active flag as active, as older documents did
// not carry it.
func decodeUser(raw json.RawMessage) (domain.User, error) {
	var rec userRecord
	unknown, err := decodeRecord(raw, &rec)
	if err != nil {
		return domain.User{}, err
	}

	active := true
	if rec.Active != nil {
		active = *rec.Active
	}
	return domain.User{
		ID:           rec.ID,
		Username:     rec.Username,
		PasswordHash: rec.Password,
		Name:         rec.Name,
		Email:        rec.Email,
		Roles:        append([]domain.UserRole(nil), rec.Roles...),
		Active:       active,
		CreatedAt:    rec.CreatedAt,
		Unknown:      unknown,
	}, nil
}

func cloneUser(u *domain.User) (*domain.User, error) {
	raw, err := encodeUser(*u)
	if err != nil {
		return nil, err
	}
	out, err := decodeUser(raw)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type userRepository struct {
	doc *document[domain.User]
}

func NewUserRepository(dataDir string, m *metrics.Collector) (UserRepository, error) {
	r := &userRepository{
		doc: &document[domain.User]{
			name:    "users",
			path:    documentPath(dataDir, "users"),
			encode:  encodeUser,
			decode:  decodeUser,
			metrics: m,
		},
	}
	if err := r.doc.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	key := domain.NormalizeUsername(user.Username)
	for _, existing := range r.doc.items {
		if domain.NormalizeUsername(existing.Username) == key {
			return domain.ValidationError("username %q is already taken", user.Username)
		}
		if existing.ID == user.ID {
			return domain.ValidationError("user id %s already exists", user.ID)
		}
	}

	stored, err := cloneUser(user)
	if err != nil {
		return domain.StorageError(err, "failed to encode user")
	}
	return r.doc.commit(append(r.doc.snapshot(), *stored))
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.doc.mu.RLock()
	defer r.doc.mu.RUnlock()

	for i := range r.doc.items {
		if r.doc.items[i].ID == id {
			return cloneUser(&r.doc.items[i])
		}
	}
	return nil, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.doc.mu.RLock()
	defer r.doc.mu.RUnlock()

	key := domain.NormalizeUsername(username)
	for i := range r.doc.items {
		if domain.NormalizeUsername(r.doc.items[i].Username) == key {
			return cloneUser(&r.doc.items[i])
		}
	}
	return nil, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	idx := -1
	key := domain.NormalizeUsername(user.Username)
	for i := range r.doc.items {
		if r.doc.items[i].ID == user.ID {
			idx = i
			continue
		}
		if domain.NormalizeUsername(r.doc.items[i].Username) == key {
			return domain.ValidationError("username %q is already taken", user.Username)
		}
	}
	if idx < 0 {
		return domain.NotFoundError("user %s not found", user.ID)
	}

	stored, err := cloneUser(user)
	if err != nil {
		return domain.StorageError(err, "failed to encode user %s", user.ID)
	}

	next := r.doc.snapshot()
	next[idx] = *stored
	return r.doc.commit(next)
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	r.doc.mu.RLock()
	defer r.doc.mu.RUnlock()

	out := make([]domain.User, 0, len(r.doc.items))
	for i := range r.doc.items {
		u, err := cloneUser(&r.doc.items[i])
		if err != nil {
			return nil, domain.StorageError(err, "failed to copy user %s", r.doc.items[i].ID)
		}
		out = append(out, *u)
	}
	return out, nil
}

func (r *userRepository) Snapshot(ctx context.Context) ([]byte, error) {
	r.doc.mu.RLock()
	defer r.doc.mu.RUnlock()

	data, err := r.doc.marshal(r.doc.items)
	if err != nil {
		return nil, domain.StorageError(err, "failed to encode users document")
	}
	return data, nil
}

func (r *userRepository) Restore(ctx context.Context, data []byte) error {
	items, err := r.doc.parse(data)
	if err != nil {
		return err
	}
	if err := checkUniqueUsers(items); err != nil {
		return err
	}

	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	return r.doc.commit(items)
}

func checkUniqueUsers(users []domain.User) error {
	ids := make(map[uuid.UUID]bool, len(users))
	names := make(map[string]bool, len(users))
	for _, u := range users {
		key := domain.NormalizeUsername(u.Username)
		if key == "" || u.ID == uuid.Nil {
			return domain.ValidationError("users document has an entry without id or username")
		}
		if ids[u.ID] || names[key] {
			return domain.ValidationError("users document has a duplicate user %q", u.Username)
		}
		ids[u.ID] = true
		names[key] = true
	}
	return nil
}
