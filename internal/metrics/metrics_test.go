package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAreIndependentPerInstance(t *testing.T) {
	t.Parallel()
	a, b := New(), New()
	a.Commits.WithLabelValues("item", "ok").Inc()
	a.Commits.WithLabelValues("item", "ok").Inc()
	a.Reverts.Inc()

	if got := testutil.ToFloat64(a.Commits.WithLabelValues("item", "ok")); got != 2 {
		t.Fatalf("a commits = %v", got)
	}
	if got := testutil.ToFloat64(b.Commits.WithLabelValues("item", "ok")); got != 0 {
		t.Fatalf("b commits = %v", got)
	}
	if got := testutil.ToFloat64(a.Reverts); got != 1 {
		t.Fatalf("reverts = %v", got)
	}
}

func TestHandler(t *testing.T) {
	t.Parallel()
	m := New()
	m.Subscriptions.Set(3)
	m.Refusals.Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(b)
	for _, want := range []string{
		"planner_live_subscriptions 3",
		"planner_placeholder_refusals_total 1",
		"# TYPE planner_order_commit_seconds histogram",
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if runtime.GOOS == "linux" && !strings.Contains(out, "process_start_time_seconds") {
		t.Fatalf("output missing process metrics:\n%s", out)
	}
}
