package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("GET", "/edit", 200, 10*time.Millisecond)
	m.RecordHTTPRequest("GET", "/edit", 200, 20*time.Millisecond)
	m.RecordHTTPRequest("GET", "/edit", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/edit", "200")); got != 2 {
		t.Errorf("200 count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/edit", "404")); got != 1 {
		t.Errorf("404 count = %v, want 1", got)
	}
}

func TestRecordResolverOutcome(t *testing.T) {
	m := New()
	m.RecordResolverOutcome("file")
	m.RecordResolverOutcome("compressed")
	m.RecordResolverOutcome("file")

	if got := testutil.ToFloat64(m.resolverOutcomes.WithLabelValues("file")); got != 2 {
		t.Errorf("file = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.resolverOutcomes.WithLabelValues("compressed")); got != 1 {
		t.Errorf("compressed = %v, want 1", got)
	}
}

func TestMiddleware(t *testing.T) {
	m := New()
	handler := m.Middleware("/config", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		io.WriteString(w, "ok")
	}))

	for _, method := range []string{http.MethodGet, http.MethodGet, http.MethodPost} {
		req := httptest.NewRequest(method, "/config", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/config", "200")); got != 2 {
		t.Errorf("GET 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/config", "418")); got != 1 {
		t.Errorf("POST 418 = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordEcho("/editc")
	m.Gauge("livereload_clients", "Connected livereload clients", func() float64 { return 3 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`devmanager_echoed_requests_total{route="/editc"} 1`,
		"devmanager_livereload_clients 3",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordEcho("/editd")

	if got := testutil.ToFloat64(b.echoedRequests.WithLabelValues("/editd")); got != 0 {
		t.Errorf("registries should be independent, got %v", got)
	}
}
