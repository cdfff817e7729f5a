package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-workflow/internal/domain"
)

func TestTimestamp_JSON(t *testing.T) {
	t.Run("Millisecond UTC output", func(t *testing.T) {
		ts := domain.NewTimestamp(time.Date(2025, time.January, 10, 14, 30, 5, 123456789, time.UTC))

		data, err := json.Marshal(ts)
		require.NoError(t, err)
		assert.Equal(t, `"2025-01-10T14:30:05.123Z"`, string(data))

		var back domain.Timestamp
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, ts.Equal(back.Time))
	})

	t.Run("Legacy zone-less strings read as UTC", func(t *testing.T) {
		for _, raw := range []string{`"2025-01-10 14:30:05"`, `"10/01/2025 14:30:05"`, `"2025-01-10T14:30:05"`} {
			var ts domain.Timestamp
			require.NoError(t, json.Unmarshal([]byte(raw), &ts), raw)
			assert.Equal(t, time.Date(2025, time.January, 10, 14, 30, 5, 0, time.UTC), ts.Time, raw)
		}
	})

	t.Run("Offset is normalized", func(t *testing.T) {
		var ts domain.Timestamp
		require.NoError(t, json.Unmarshal([]byte(`"2025-01-10T11:30:00-03:00"`), &ts))
		assert.Equal(t, 14, ts.Hour())
	})

	t.Run("Garbage", func(t *testing.T) {
		var ts domain.Timestamp
		assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	})
}

func TestDate(t *testing.T) {
	d, err := domain.ParseDate("2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, domain.NewDate(2025, time.January, 31), d)
	assert.Equal(t, "2025-03-02", d.AddDays(30).String())
	assert.Equal(t, 15, d.DaysUntil(domain.NewDate(2025, time.February, 15)))
	assert.Equal(t, -15, domain.NewDate(2025, time.February, 15).DaysUntil(d))

	legacy, err := domain.ParseDate("31/01/2025")
	require.NoError(t, err)
	assert.Equal(t, d, legacy)

	_, err = domain.ParseDate("Jan 31")
	assert.Error(t, err)
}

func TestAttachmentRef_LegacyShape(t *testing.T) {
	var refs []domain.AttachmentRef
	raw := `["photo.jpg", {"token": "abc", "original_name": "report.pdf"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &refs))

	require.Len(t, refs, 2)
	assert.Equal(t, domain.AttachmentRef{Token: "photo.jpg", OriginalName: "photo.jpg"}, refs[0])
	assert.Equal(t, domain.AttachmentRef{Token: "abc", OriginalName: "report.pdf"}, refs[1])

	out, err := json.Marshal(refs[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"token": "photo.jpg", "original_name": "photo.jpg"}`, string(out))
}
