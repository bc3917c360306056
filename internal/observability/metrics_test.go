package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/v1/cards", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/v1/cards", "GET", 200, 30*time.Millisecond)
	m.RecordError("/v1/cards/transfer", "POST", "INSUFFICIENT_FUNDS")
	m.RecordEvent("transfer_completed")

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Requests["/v1/cards|GET|200"])
	assert.Equal(t, int64(20000), s.AvgLatencyMicro["/v1/cards|GET|200"])
	assert.Equal(t, int64(1), s.Errors["/v1/cards/transfer|POST|INSUFFICIENT_FUNDS"])
	assert.Equal(t, int64(1), s.Events["transfer_completed"])

	m.RecordEvent("transfer_completed")
	assert.Equal(t, int64(1), s.Events["transfer_completed"], "snapshot is a copy")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordEvent("x")
	assert.Empty(t, m.Snapshot().Requests)
}
