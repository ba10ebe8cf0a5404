package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	m := NewManager()

	m.ObserveRun(Run{
		Result:   ResultOK,
		Duration: 2 * time.Second,
		Speakers: 12,
		Artifacts: map[string]int{
			OutcomeProcessed: 3,
			OutcomeEmpty:     2,
			OutcomeInvalid:   1,
		},
		Cleared: 3,
		Wrote:   true,
	})
	m.ObserveRun(Run{Result: ResultFailed})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(ResultFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.artifacts.WithLabelValues(OutcomeProcessed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.artifacts.WithLabelValues(OutcomeEmpty)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cleared))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.canonicalWrite))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.speakers))
	assert.Equal(t, uint64(2), durationSamples(t, m))
}

func durationSamples(t *testing.T, m *Manager) uint64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if strings.HasSuffix(f.GetName(), "run_duration_seconds") {
			require.Len(t, f.GetMetric(), 1)
			return f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatal("run duration histogram not registered")
	return 0
}

func TestNilManagerIsSafe(t *testing.T) {
	var m *Manager
	m.ObserveRun(Run{Result: ResultOK})
	assert.NoError(t, m.Push(context.Background(), "http://unused", "job"))
}

func TestPush(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		body = buf.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewManager(WithNamespace("test"))
	m.ObserveRun(Run{Result: ResultDryRun})

	require.NoError(t, m.Push(context.Background(), srv.URL, ""))
	assert.Equal(t, "/metrics/job/test_consolidation", path)
	assert.NotEmpty(t, body)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewManager()
	assert.Error(t, m.Push(context.Background(), srv.URL, "job"))
}
