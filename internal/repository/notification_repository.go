package repository

import (
	"context"
	"encoding/json"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/metrics"
)

type NotificationRepository interface {
	// ReserveID hands out an id no other caller will receive, so blobs can be
	// keyed by it before the record exists.
	ReserveID(ctx context.Context) (int64, error)
	// Create persists n under n.ID, reserving a fresh id first when it is zero.
	Create(ctx context.Context, n *domain.Notification) error
	// GetByID returns nil, nil when no notification has that id.
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)
	Update(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context) ([]domain.Notification, error)
	Snapshot(ctx context.Context) ([]byte, error)
	Restore(ctx context.Context, data []byte) error
}

type notificationRepository struct {
	doc      *document[domain.Notification]
	reserved int64
}

func NewNotificationRepository(dataDir string, m *metrics.Collector) (NotificationRepository, error) {
	r := &notificationRepository{
		doc: &document[domain.Notification]{
			name:    "notifications",
			path:    documentPath(dataDir, "notifications"),
			encode:  encodeNotification,
			decode:  decodeNotification,
			metrics: m,
		},
	}
	if err := r.doc.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func encodeNotification(n domain.Notification) (json.RawMessage, error) {
	return encodeRecord(n, n.Unknown)
}

func decodeNotification(raw json.RawMessage) (domain.Notification, error) {
	var n domain.Notification
	unknown, err := decodeRecord(raw, &n)
	if err != nil {
		return domain.Notification{}, err
	}
	n.Unknown = unknown
	return n, nil
}

// cloneNotification deep-copies through the persisted encoding so callers
// never share slices or pointers with the stored value.
func cloneNotification(n *domain.Notification) (*domain.Notification, error) {
	raw, err := encodeNotification(*n)
	if err != nil {
		return nil, err
	}
	out, err := decodeNotification(raw)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// nextID must be called with doc.mu held for writing.
func (r *notificationRepository) nextID() int64 {
	next := r.reserved
	for _, existing := range r.doc.items {
		if existing.ID > next {
			next = existing.ID
		}
	}
	r.reserved = next + 1
	return r.reserved
}

func (r *notificationRepository) ReserveID(ctx context.Context) (int64, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	return r.nextID(), nil
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	id := n.ID
	if id == 0 {
		id = r.nextID()
	}
	for _, existing := range r.doc.items {
		if existing.ID == id {
			return domain.ValidationError("notification %d already exists", id)
		}
	}

	stored, err := cloneNotification(n)
	if err != nil {
		return domain.StorageError(err, "failed to encode notification")
	}
	stored.ID = id

	next := append(r.doc.snapshot(), *stored)
	if err := r.doc.commit(next); err != nil {
		return err
	}

	n.ID = id
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	r.doc.mu.RLock()
	defer r.doc.mu.RUnlock()

	for i := range r.doc.items {
		if r.doc.items[i].ID == id {
			return cloneNotification(&r.doc.items[i])
		}
	}
	return nil, nil
}

func (r *notificationRepository) Update(ctx context.Context, n *domain.Notification) error {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	idx := -1
	for i := range r.doc.items {
		if r.doc.items[i].ID == n.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.NotFoundError("notification %d not found", n.ID)
	}

	stored, err := cloneNotification(n)
	if err != nil {
		return domain.StorageError(err, "failed to encode notification %d", n.ID)
	}

	next := r.doc.snapshot()
	next[idx] = *stored
	return r.doc.commit(next)
}

func (r *notificationRepository) List(ctx context.Context) ([]domain.Notification, error) {
	r.doc.mu.RLock()
	defer r.doc.mu.RUnlock()

	out := make([]domain.Notification, 0, len(r.doc.items))
	for i := range r.doc.items {
		c, err := cloneNotification(&r.doc.items[i])
		if err != nil {
			return nil, domain.StorageError(err, "failed to copy notification %d", r.doc.items[i].ID)
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *notificationRepository) Snapshot(ctx context.Context) ([]byte, error) {
	r.doc.mu.RLock()
	defer r.doc.mu.RUnlock()

	data, err := r.doc.marshal(r.doc.items)
	if err != nil {
		return nil, domain.StorageError(err, "failed to encode notifications document")
	}
	return data, nil
}

func (r *notificationRepository) Restore(ctx context.Context, data []byte) error {
	items, err := r.doc.parse(data)
	if err != nil {
		return err
	}

	seen := make(map[int64]bool, len(items))
	for _, n := range items {
		if n.ID <= 0 || seen[n.ID] {
			return domain.ValidationError("notifications document has a missing or duplicate id %d", n.ID)
		}
		seen[n.ID] = true
	}

	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	r.reserved = 0
	return r.doc.commit(items)
}
