package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRunCountsByStatus(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("failed"))
	ObserveRun(time.Now(), errors.New("boom"))
	if got := testutil.ToFloat64(RunsTotal.WithLabelValues("failed")); got != before+1 {
		t.Fatalf("expected %v failed runs, got %v", before+1, got)
	}

	ObserveRun(time.Now(), nil)
	if testutil.ToFloat64(LastSuccess) == 0 {
		t.Fatal("expected last success timestamp to be set")
	}
}

func TestSetGroupSizes(t *testing.T) {
	SetGroupSizes("suspects", 4, 2)
	if got := testutil.ToFloat64(ActiveRecords.WithLabelValues("suspects")); got != 4 {
		t.Fatalf("expected 4 active, got %v", got)
	}
	if got := testutil.ToFloat64(ClosedRecords.WithLabelValues("suspects")); got != 2 {
		t.Fatalf("expected 2 closed, got %v", got)
	}
}
