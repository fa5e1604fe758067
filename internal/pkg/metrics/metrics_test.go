package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue sums the counter samples of name whose labels include want.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metrics
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestRecordCompletionCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCompletion("ok", 300*time.Millisecond)
	c.RecordCompletion("ok", time.Second)
	c.RecordCompletion("rate_limited", 100*time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, reg, "genius_completions_total", map[string]string{"outcome": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "genius_completions_total", map[string]string{"outcome": "rate_limited"}))

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "genius_completion_latency_seconds" {
			assert.Equal(t, uint64(3), mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
}

func TestRecordTurnsAndDenials(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTurnPersisted(true)
	c.RecordTurnPersisted(false)
	c.RecordTurnPersisted(false)
	c.RecordEntitlementDenied()
	c.RecordBillingEvent("settlement", false)
	c.RecordBillingEvent("settlement", true)

	assert.Equal(t, 1.0, counterValue(t, reg, "genius_turns_persisted_total", map[string]string{"session": "new"}))
	assert.Equal(t, 2.0, counterValue(t, reg, "genius_turns_persisted_total", map[string]string{"session": "existing"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "genius_entitlement_denied_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "genius_billing_events_total", map[string]string{"status": "settlement", "duplicate": "true"}))
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordEntitlementDenied()

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "genius_entitlement_denied_total 1")
}
