package auth

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_InitAndRecord(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics("test_auth", reg)
	m.Init()

	count, err := testutil.GatherAndCount(reg, "test_auth_auth_gate_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	m.RecordResult(OutcomeRejected, "expired")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("rejected", "expired")))

	again := NewMetrics("test_auth", reg)
	again.RecordResult(OutcomeRejected, "expired")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("rejected", "expired")))
}
