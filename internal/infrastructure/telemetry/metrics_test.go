package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/eta/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

// collect gathers everything recorded on reader
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

// findMetric returns the metric with the given name
func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// sumValue returns the int64 sum data point matching attrs
func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	m, ok := findMetric(rm, name)
	require.True(t, ok, "metric %s not recorded", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", name)
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func newReaderProvider(t *testing.T) (*telemetry.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ExportInterval:    60 * time.Second,
		ServiceName:       "test-service",
	}

	mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, mp)

	assert.False(t, mp.IsEnabled())
	assert.Equal(t, cfg, mp.GetConfig())
	assert.NotNil(t, mp.Meter("test-meter"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	cfg := telemetry.MetricsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		ExportInterval:    time.Second,
		ServiceName:       "test-service",
		Insecure:          true,
	}

	mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())

	// the gRPC exporter connects lazily, so shutdown may fail without a collector
	_ = mp.Shutdown(ctx)
}

func TestMeterProviderWithReader(t *testing.T) {
	mp, _ := newReaderProvider(t)
	assert.True(t, mp.IsEnabled())
	assert.NoError(t, mp.ForceFlush(context.Background()))
}

func TestCounter(t *testing.T) {
	mp, reader := newReaderProvider(t)
	ctx := context.Background()

	counter, err := telemetry.NewCounter(mp.Meter("test"), "test.counter", "A test counter", "{item}")
	require.NoError(t, err)

	attr := telemetry.AttrTaskName.String("t1")
	counter.Inc(ctx, attr)
	counter.Add(ctx, 4, attr)

	assert.Equal(t, int64(5), sumValue(t, collect(t, reader), "test.counter", attr))
}

func TestUpDownCounter(t *testing.T) {
	mp, reader := newReaderProvider(t)
	ctx := context.Background()

	counter, err := telemetry.NewUpDownCounter(mp.Meter("test"), "test.updown", "A test gauge", "{item}")
	require.NoError(t, err)

	counter.Add(ctx, 3)
	counter.Add(ctx, -2)

	assert.Equal(t, int64(1), sumValue(t, collect(t, reader), "test.updown"))
}

func TestHistogram(t *testing.T) {
	mp, reader := newReaderProvider(t)
	ctx := context.Background()

	histogram, err := telemetry.NewHistogram(mp.Meter("test"), telemetry.HistogramOpts{
		Name:        "test.duration",
		Description: "A test histogram",
		Unit:        "s",
		Boundaries:  telemetry.TaskDurationBuckets,
	})
	require.NoError(t, err)

	histogram.Record(ctx, 0.2)
	histogram.RecordDuration(ctx, 2*time.Second)

	m, ok := findMetric(collect(t, reader), "test.duration")
	require.True(t, ok)
	data, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, uint64(2), data.DataPoints[0].Count)
	assert.InDelta(t, 2.2, data.DataPoints[0].Sum, 1e-9)
	assert.Equal(t, telemetry.TaskDurationBuckets, data.DataPoints[0].Bounds)
}

func TestHistogram_NoBoundaries(t *testing.T) {
	mp, _ := newReaderProvider(t)
	histogram, err := telemetry.NewHistogram(mp.Meter("test"), telemetry.HistogramOpts{Name: "test.plain", Unit: "s"})
	require.NoError(t, err)
	histogram.Record(context.Background(), 1)
}
