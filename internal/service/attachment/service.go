package attachment

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/pkg/metrics"
	"incident-workflow/internal/storage"
)

const maxParallelUploads = 4

type Service interface {
	Get(ctx context.Context, token string) (*domain.Attachment, error)
	// SaveAll stores every upload of one request. On failure the blobs it
	// already wrote are removed and no references are returned.
	SaveAll(ctx context.Context, notificationID int64, uploads []domain.Upload) ([]domain.AttachmentRef, error)
	// Discard removes blobs written by SaveAll whose record never committed.
	Discard(ctx context.Context, notificationID int64, refs []domain.AttachmentRef)
}

type service struct {
	store   storage.Store
	metrics *metrics.Collector
	log     *logger.Logger
}

func NewService(store storage.Store, m *metrics.Collector, log *logger.Logger) Service {
	return &service{
		store:   store,
		metrics: m,
		log:     log,
	}
}

func (s *service) Get(ctx context.Context, token string) (*domain.Attachment, error) {
	if token == "" {
		return nil, domain.NotFoundError("attachment not found")
	}
	return s.store.Get(ctx, token)
}

func (s *service) SaveAll(ctx context.Context, notificationID int64, uploads []domain.Upload) ([]domain.AttachmentRef, error) {
	if len(uploads) == 0 {
		return nil, nil
	}

	refs := make([]domain.AttachmentRef, len(uploads))
	saved := make([]bool, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)

	for i := range uploads {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			ref, err := s.store.Save(gctx, notificationID, uploads[i].Name, uploads[i].Reader)
			if err != nil {
				return err
			}
			refs[i] = ref
			saved[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var written []domain.AttachmentRef
		for i, ok := range saved {
			if ok {
				written = append(written, refs[i])
			}
		}
		s.Discard(context.WithoutCancel(ctx), notificationID, written)
		var domainErr *domain.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, domain.StorageError(err, "failed to store attachments")
	}

	for _, ref := range refs {
		s.metrics.AddAttachmentBytes(ref.Size)
	}
	return refs, nil
}

func (s *service) Discard(ctx context.Context, notificationID int64, refs []domain.AttachmentRef) {
	for _, ref := range refs {
		key := storage.BlobKey(notificationID, ref.Token, ref.OriginalName)
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.WithComponent("attachment").WithError(err).WithField("key", key).Warn("failed to remove orphaned attachment")
		}
	}
}
