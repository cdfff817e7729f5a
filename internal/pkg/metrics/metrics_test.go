package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/metrics"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", metrics.Outcome(nil))
	assert.Equal(t, "invalid_transition", metrics.Outcome(domain.InvalidTransitionError("nope")))
	assert.Equal(t, "storage_error", metrics.Outcome(domain.StorageError(errors.New("disk full"), "write failed")))
	assert.Equal(t, "internal_error", metrics.Outcome(errors.New("boom")))
}

func TestCollector_RecordOperation(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordOperation(domain.OpClassify, nil)
	c.RecordOperation(domain.OpClassify, nil)
	c.RecordOperation(domain.OpClassify, domain.UnauthorizedError("no"))

	count, err := testutil.GatherAndCount(c.Registry(), "workflow_operations_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	var nilCollector *metrics.Collector
	assert.NotPanics(t, func() { nilCollector.RecordOperation(domain.OpApprove, nil) })
}
