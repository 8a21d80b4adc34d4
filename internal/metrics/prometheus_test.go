package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordOutcome(OutcomeSuccess)
	m.RecordOutcome(OutcomeSuccess)
	m.RecordOutcome("transcription")

	if got := testutil.ToFloat64(m.PipelineRequests.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.PipelineRequests.WithLabelValues("transcription")); got != 1 {
		t.Fatalf("expected 1 transcription failure, got %v", got)
	}
}

func TestObserveStageAndHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveStage("conversion", 120*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/transcribe", "200", time.Second)
	m.RecordCleanupFailure()

	if n := testutil.CollectAndCount(m.StageDuration, "voicechat_pipeline_stage_duration_seconds"); n != 1 {
		t.Fatalf("expected one stage series, got %d", n)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/transcribe", "200")); got != 1 {
		t.Fatalf("unexpected http request count: %v", got)
	}
	if got := testutil.ToFloat64(m.CleanupFailures); got != 1 {
		t.Fatalf("unexpected cleanup failures: %v", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Registering twice against fresh registries must not panic.
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}
