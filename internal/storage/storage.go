package storage

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"incident-workflow/internal/domain"
)

// Store keeps attachment blobs. Blobs are write-once: there is no update.
type Store interface {
	Save(ctx context.Context, notificationID int64, name string, r io.Reader) (domain.AttachmentRef, error)
	Get(ctx context.Context, token string) (*domain.Attachment, error)
	// Keys lists every stored blob key; Delete removes one by key.
	Keys(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, key string) error
}

const maxNameLength = 100

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName reduces an uploaded file name to a safe key segment.
func SanitizeName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if len(name) > maxNameLength {
		name = name[len(name)-maxNameLength:]
	}
	if name == "" {
		return "file"
	}
	return name
}

// BlobKey builds "{notification id}_{token}_{sanitized name}".
func BlobKey(notificationID int64, token, name string) string {
	return fmt.Sprintf("%d_%s_%s", notificationID, token, SanitizeName(name))
}

// TokenFromKey extracts the token of a key written by BlobKey. Keys of any
// other shape are legacy blobs whose token is the key itself.
func TokenFromKey(key string) string {
	token, _, ok := splitKey(key)
	if !ok {
		return key
	}
	return token
}

func splitKey(key string) (token, name string, ok bool) {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) != 3 {
		return "", "", false
	}
	if _, err := strconv.ParseInt(parts[0], 10, 64); err != nil {
		return "", "", false
	}
	if _, err := uuid.Parse(parts[1]); err != nil {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func newToken() string {
	return uuid.NewString()
}

func isGeneratedToken(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil && len(token) == 36
}

// validLegacyToken rejects anything that could escape the blob namespace.
func validLegacyToken(token string) bool {
	if token == "" || token == "." || token == ".." {
		return false
	}
	return !strings.ContainsAny(token, `/\`) && !strings.Contains(token, "..")
}

func describe(token, key string, data []byte) *domain.Attachment {
	name := key
	if _, original, ok := splitKey(key); ok {
		name = original
	}
	return &domain.Attachment{
		Token:       token,
		Name:        name,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
}

func readAll(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	return data, mimetype.Detect(data).String(), nil
}
