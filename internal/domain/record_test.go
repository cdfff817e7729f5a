package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-workflow/internal/domain"
)

func TestActionEntry_KeepsUndeclaredFields(t *testing.T) {
	raw := `{"executor_id":"6f1c1e8e-3f4a-4f55-9d8a-0d1c2b3a4f5e","description":"done","timestamp":"2024-01-03T09:00:00.000Z","final":true,"evidence_description":"photo","witness":"Rui"}`

	var entry domain.ActionEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	assert.Equal(t, "done", entry.Description)
	assert.Equal(t, json.RawMessage(`"Rui"`), entry.Unknown["witness"])
	assert.NotContains(t, entry.Unknown, "evidence_description")

	entry.EvidenceDescription = nil
	out, err := json.Marshal(entry)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Contains(t, fields, "witness")
	assert.NotContains(t, fields, "evidence_description", "a cleared optional field is not restored")
}

func TestEncodeRecord_DeclaredFieldsWin(t *testing.T) {
	record := domain.HistoryEntry{
		Action:  "classify",
		Unknown: map[string]json.RawMessage{"action": json.RawMessage(`"stale"`), "ip": json.RawMessage(`"10.0.0.1"`)},
	}

	out, err := json.Marshal(record)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Equal(t, json.RawMessage(`"classify"`), fields["action"])
	assert.Equal(t, json.RawMessage(`"10.0.0.1"`), fields["ip"])
}

func TestAttachmentRef_LegacyNameHasNoUndeclaredFields(t *testing.T) {
	var ref domain.AttachmentRef
	require.NoError(t, json.Unmarshal([]byte(`"photo.jpg"`), &ref))
	assert.Equal(t, "photo.jpg", ref.Token)
	assert.Nil(t, ref.Unknown)

	out, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"photo.jpg","original_name":"photo.jpg"}`, string(out))
}
