package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	m := NewMetrics("rangetree-test")

	m.ObserveOperation("sum", "query", nil, time.Microsecond)
	m.ObserveOperation("sum", "query", nil, time.Microsecond)
	m.ObserveOperation("sum", "update", errors.New("out of range"), time.Microsecond)

	if got := testutil.ToFloat64(m.TreeOperationsTotal.WithLabelValues("sum", "query", "ok")); got != 2 {
		t.Errorf("ok queries = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TreeOperationsTotal.WithLabelValues("sum", "update", "error")); got != 1 {
		t.Errorf("failed updates = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.TreeOperationDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestObserveOperationNilReceiver(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("sum", "query", nil, time.Microsecond)
	m.RegisterBuildInfo("svc", "v1")
}

func TestBuildInfoAndHandler(t *testing.T) {
	m := NewMetrics("rangetree-test")
	m.RegisterBuildInfo("rangetree", "v1.0.0")
	m.RegisterBuildInfo("rangetree", "v2.0.0")
	m.VerifyMismatchesTotal.WithLabelValues("concat").Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`build_info{service="rangetree",version="v1.0.0"} 1`,
		`tree_verify_mismatches_total{workload="concat"} 3`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
	if strings.Contains(body, "v2.0.0") {
		t.Errorf("second RegisterBuildInfo must be ignored")
	}
}
