package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/timesheet/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timesheet_scheduler_job_runs_total",
		Help: "runs",
	}, []string{"job"})
	other := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "unrelated_gauge",
		Help: "other",
	})
	reg.MustRegister(runs, other)
	runs.WithLabelValues("purge_sessions").Add(3)
	other.Set(1)
	return reg
}

func TestNewPusher(t *testing.T) {
	log := zap.NewNop()

	assert.Nil(t, NewPusher(config.Config{}, log))
	assert.Nil(t, NewPusher(config.Config{MetricsPush: config.MetricsPushConfig{Exporter: ExporterRemoteWrite}}, log))
	assert.Nil(t, NewPusher(config.Config{MetricsPush: config.MetricsPushConfig{Exporter: "statsd", Endpoint: "x"}}, log))

	rw := NewPusher(config.Config{MetricsPush: config.MetricsPushConfig{
		Exporter: ExporterRemoteWrite,
		Endpoint: "http://localhost:9090/api/v1/write",
	}}, log)
	assert.IsType(t, &RemoteWritePusher{}, rw)

	pg := NewPusher(config.Config{AppName: "timesheet", MetricsPush: config.MetricsPushConfig{
		Exporter: ExporterPushgateway,
		Endpoint: "http://localhost:9091",
	}}, log)
	assert.IsType(t, &PushgatewayPusher{}, pg)
}

func TestRemoteWritePusherSendsSchedulerSeries(t *testing.T) {
	var (
		mu      sync.Mutex
		got     prompb.WriteRequest
		headers http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewRemoteWritePusher(srv.URL, "secret")
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }

	gatherer := PrefixGatherer{Gatherer: testRegistry(t), Prefix: SchedulerPrefix}
	require.NoError(t, p.Push(context.Background(), gatherer))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	require.Len(t, got.Timeseries, 1)
	series := got.Timeseries[0]
	require.Len(t, series.Labels, 2)
	assert.Equal(t, "__name__", series.Labels[0].Name)
	assert.Equal(t, "timesheet_scheduler_job_runs_total", series.Labels[0].Value)
	assert.Equal(t, "job", series.Labels[1].Name)
	assert.Equal(t, "purge_sessions", series.Labels[1].Value)
	require.Len(t, series.Samples, 1)
	assert.Equal(t, 3.0, series.Samples[0].Value)
	assert.Equal(t, int64(1700000000000), series.Samples[0].Timestamp)
}

func TestRemoteWritePusherReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), testRegistry(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestPushgatewayPusherRenamesJobLabel(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPushgatewayPusher(srv.URL, "timesheet", map[string]string{"environment": "test", "empty": ""})
	gatherer := PrefixGatherer{Gatherer: testRegistry(t), Prefix: SchedulerPrefix}
	require.NoError(t, p.Push(context.Background(), gatherer))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/timesheet/environment/test", path)
	assert.Contains(t, body, "exported_job")
	assert.Contains(t, body, "purge_sessions")
	assert.NotContains(t, body, "unrelated_gauge")
}

func TestPrefixGatherer(t *testing.T) {
	families, err := PrefixGatherer{Gatherer: testRegistry(t), Prefix: SchedulerPrefix}.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "timesheet_scheduler_job_runs_total", families[0].GetName())

	families, err = PrefixGatherer{}.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}
