package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"

	"incident-workflow/internal/domain"
)

type filesystemStore struct {
	dir string
}

func NewFilesystemStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.StorageError(err, "failed to create attachment directory")
	}
	return &filesystemStore{dir: dir}, nil
}

func (s *filesystemStore) Save(ctx context.Context, notificationID int64, name string, r io.Reader) (domain.AttachmentRef, error) {
	data, contentType, err := readAll(r)
	if err != nil {
		return domain.AttachmentRef{}, domain.StorageError(err, "failed to read upload %q", name)
	}

	token := newToken()
	path := filepath.Join(s.dir, BlobKey(notificationID, token, name))

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return domain.AttachmentRef{}, domain.StorageError(err, "failed to store attachment %q", name)
	}
	tmpName := tmp.Name()
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		os.Remove(tmpName)
		return domain.AttachmentRef{}, domain.StorageError(err, "failed to store attachment %q", name)
	}

	return domain.AttachmentRef{
		Token:        token,
		OriginalName: name,
		ContentType:  contentType,
		Size:         int64(len(data)),
	}, nil
}

func (s *filesystemStore) Get(ctx context.Context, token string) (*domain.Attachment, error) {
	key, err := s.resolve(token)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return nil, domain.StorageError(err, "failed to read attachment %s", token)
	}
	return describe(token, key, data), nil
}

func (s *filesystemStore) resolve(token string) (string, error) {
	if isGeneratedToken(token) {
		matches, err := filepath.Glob(filepath.Join(s.dir, "*_"+token+"_*"))
		if err != nil {
			return "", domain.StorageError(err, "failed to look up attachment %s", token)
		}
		if len(matches) > 0 {
			return filepath.Base(matches[0]), nil
		}
	}

	if !validLegacyToken(token) {
		return "", domain.NotFoundError("attachment %s not found", token)
	}
	info, err := os.Stat(filepath.Join(s.dir, token))
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", domain.NotFoundError("attachment %s not found", token)
	}
	if err != nil {
		return "", domain.StorageError(err, "failed to look up attachment %s", token)
	}
	return token, nil
}

func (s *filesystemStore) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, domain.StorageError(err, "failed to list attachments")
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		keys = append(keys, e.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *filesystemStore) Delete(ctx context.Context, key string) error {
	if !validLegacyToken(key) {
		return domain.ValidationError("invalid attachment key %q", key)
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.StorageError(err, "failed to delete attachment %s", key)
	}
	return nil
}
