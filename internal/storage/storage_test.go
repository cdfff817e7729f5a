package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-workflow/internal/domain"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\photos\ward 3.jpg`, "ward_3.jpg"},
		{"résumé final.docx", "r_sum_final.docx"},
		{"...", "file"},
		{"", "file"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}

	long := strings.Repeat("a", 150) + ".png"
	assert.Len(t, SanitizeName(long), maxNameLength)
}

func TestTokenFromKey(t *testing.T) {
	token := uuid.NewString()
	assert.Equal(t, token, TokenFromKey(BlobKey(12, token, "scan.png")))
	assert.Equal(t, "old_photo.jpg", TokenFromKey("old_photo.jpg"))
	assert.Equal(t, "3_notatoken_x.jpg", TokenFromKey("3_notatoken_x.jpg"))
}

func TestFilesystemStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFilesystemStore(dir)
	require.NoError(t, err)

	ref, err := store.Save(ctx, 7, "evidence photo.png", strings.NewReader("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	assert.Equal(t, "evidence photo.png", ref.OriginalName)
	assert.Equal(t, "image/png", ref.ContentType)
	assert.Equal(t, int64(12), ref.Size)

	_, err = os.Stat(filepath.Join(dir, "7_"+ref.Token+"_evidence_photo.png"))
	require.NoError(t, err)

	att, err := store.Get(ctx, ref.Token)
	require.NoError(t, err)
	assert.Equal(t, ref.Token, att.Token)
	assert.Equal(t, "evidence_photo.png", att.Name)
	assert.Equal(t, "image/png", att.ContentType)
}

func TestFilesystemStore_LegacyAndMissing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFilesystemStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.txt"), []byte("hello"), 0o644))

	att, err := store.Get(ctx, "legacy.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), att.Data)
	assert.Equal(t, "legacy.txt", att.Name)

	_, err = store.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Get(ctx, "../secret")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFilesystemStore_KeysAndDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	a, err := store.Save(ctx, 1, "a.txt", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = store.Save(ctx, 2, "b.txt", strings.NewReader("b"))
	require.NoError(t, err)

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	require.NoError(t, store.Delete(ctx, BlobKey(1, a.Token, "a.txt")))
	_, err = store.Get(ctx, a.Token)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "already-gone"))
	assert.ErrorIs(t, store.Delete(ctx, "../x"), domain.ErrValidation)
}
