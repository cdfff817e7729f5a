package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-workflow/internal/pkg/catalog"
)

func TestDefaultCatalog(t *testing.T) {
	c := catalog.Default()
	require.NotNil(t, c)

	assert.Len(t, c.WHOClasses, 12)
	assert.Len(t, c.NNCClasses, 5)
	assert.Equal(t, []string{"Day", "Night"}, c.EventShifts)

	t.Run("Never events", func(t *testing.T) {
		assert.True(t, c.IsNeverEvent(catalog.NotApplicable))
		assert.True(t, c.IsNeverEvent("Infant discharged to the wrong person"))
		assert.False(t, c.IsNeverEvent("Select"))
		assert.False(t, c.IsNeverEvent(""))
	})

	t.Run("Subtypes", func(t *testing.T) {
		assert.True(t, c.IsSubtype("Clinical", "Medication error"))
		assert.False(t, c.IsSubtype("Occupational", "Medication error"))
		assert.Nil(t, c.SubtypesFor("Other"))
		assert.NotEmpty(t, c.SubtypesFor("Non-clinical"))
	})
}

func TestParse(t *testing.T) {
	t.Run("Invalid YAML", func(t *testing.T) {
		_, err := catalog.Parse([]byte("NEVER_EVENTS: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("Missing lists", func(t *testing.T) {
		_, err := catalog.Parse([]byte("PRIORITIES: [Low]"))
		assert.Error(t, err)
	})
}
