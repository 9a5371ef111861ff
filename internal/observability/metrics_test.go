package observability

import (
	"testing"
	"time"

	"github.com/danmuck/briefctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("briefctl", "GET", "/health", 200, 12*time.Millisecond)
	RecordBriefing("markdown")
	RecordStoreError("upsert")
	SetActiveSessions(3)

	testlog.Logf("observability/metrics: registration idempotent and recording paths executed")
}

func TestRecordInterviewStepCountsByOutcome(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(interviewSteps.WithLabelValues("question"))
	RecordInterviewStep("question")
	RecordInterviewStep("question")
	after := testutil.ToFloat64(interviewSteps.WithLabelValues("question"))
	if after-before != 2 {
		t.Fatalf("expected 2 new question steps, got %v", after-before)
	}
	SetActiveSessions(5)
	if got := testutil.ToFloat64(interviewSessions); got != 5 {
		t.Fatalf("unexpected sessions gauge: %v", got)
	}
}
