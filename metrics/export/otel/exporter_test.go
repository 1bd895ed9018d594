package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/shopauth"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu      sync.RWMutex
	metrics *shopauth.Metrics
	dropped uint64
}

func (f *fakeSource) MetricsSnapshot() shopauth.MetricsSnapshot {
	return f.metrics.Snapshot()
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += dp.Value
				}
			}
		}
	}
	return out
}

func TestExporterObservesEngineMetrics(t *testing.T) {
	reader, provider := newReader()
	m := shopauth.NewMetrics(shopauth.MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(shopauth.MetricLoginSuccess)
	m.Inc(shopauth.MetricLoginSuccess)
	m.Inc(shopauth.MetricRegistrationRollback)
	m.Observe(shopauth.MetricAuthenticateLatency, 0)
	src := &fakeSource{metrics: m, dropped: 4}

	exp, err := New(provider.Meter("shopauth-test"), src)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	got := collectSums(t, reader)
	want := map[string]int64{
		"shopauth_login_success_total":                          2,
		"shopauth_registration_rollback_total":                  1,
		"shopauth_logout_total":                                 0,
		"shopauth_audit_dropped_total":                          4,
		"shopauth_authenticate_latency_seconds_bucket_le_0_005": 1,
		"shopauth_authenticate_latency_seconds_bucket_le_inf":   1,
		"shopauth_authenticate_latency_seconds_count":           1,
	}
	for name, v := range want {
		if got[name] != v {
			t.Fatalf("%s = %d, want %d (all: %v)", name, got[name], v, got)
		}
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newReader()
	if _, err := New(provider.Meter("shopauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := New(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollect(t *testing.T) {
	reader, provider := newReader()
	m := shopauth.NewMetrics(shopauth.MetricsConfig{Enabled: true})
	src := &fakeSource{metrics: m}

	exp, err := New(provider.Meter("shopauth-test"), src)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Inc(shopauth.MetricLogout)
			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}()
	}
	wg.Wait()

	if got := collectSums(t, reader)["shopauth_logout_total"]; got != 8 {
		t.Fatalf("expected 8 logouts, got %d", got)
	}
}
