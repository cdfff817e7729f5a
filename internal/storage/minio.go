package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"

	"incident-workflow/internal/domain"
)

const objectPrefix = "attachments/"

type minioStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(client *minio.Client, bucket string) Store {
	return &minioStore{client: client, bucket: bucket}
}

func (s *minioStore) Save(ctx context.Context, notificationID int64, name string, r io.Reader) (domain.AttachmentRef, error) {
	data, contentType, err := readAll(r)
	if err != nil {
		return domain.AttachmentRef{}, domain.StorageError(err, "failed to read upload %q", name)
	}

	token := newToken()
	objectName := objectPrefix + BlobKey(notificationID, token, name)

	_, err = s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"original-name": name,
		},
	})
	if err != nil {
		return domain.AttachmentRef{}, domain.StorageError(err, "failed to upload attachment %q", name)
	}

	return domain.AttachmentRef{
		Token:        token,
		OriginalName: name,
		ContentType:  contentType,
		Size:         int64(len(data)),
	}, nil
}

func (s *minioStore) Get(ctx context.Context, token string) (*domain.Attachment, error) {
	key, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, objectPrefix+key, minio.GetObjectOptions{})
	if err != nil {
		return nil, domain.StorageError(err, "failed to fetch attachment %s", token)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, domain.StorageError(err, "failed to read attachment %s", token)
	}
	return describe(token, key, data), nil
}

func (s *minioStore) resolve(ctx context.Context, token string) (string, error) {
	if isGeneratedToken(token) {
		needle := "_" + token + "_"
		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: objectPrefix}) {
			if obj.Err != nil {
				return "", domain.StorageError(obj.Err, "failed to look up attachment %s", token)
			}
			key := strings.TrimPrefix(obj.Key, objectPrefix)
			if strings.Contains(key, needle) {
				return key, nil
			}
		}
	}

	if !validLegacyToken(token) {
		return "", domain.NotFoundError("attachment %s not found", token)
	}
	_, err := s.client.StatObject(ctx, s.bucket, objectPrefix+token, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", domain.NotFoundError("attachment %s not found", token)
		}
		return "", domain.StorageError(err, "failed to look up attachment %s", token)
	}
	return token, nil
}

func (s *minioStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: objectPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, domain.StorageError(obj.Err, "failed to list attachments")
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, objectPrefix))
	}
	return keys, nil
}

func (s *minioStore) Delete(ctx context.Context, key string) error {
	if !validLegacyToken(key) {
		return domain.ValidationError("invalid attachment key %q", key)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectPrefix+key, minio.RemoveObjectOptions{}); err != nil {
		return domain.StorageError(err, "failed to delete attachment %s", key)
	}
	return nil
}
