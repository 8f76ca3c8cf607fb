package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newMetricsRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/v1/swaps/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	r.POST("/api/v1/quotes", func(c *gin.Context) {
		c.Status(http.StatusServiceUnavailable)
	})
	return r
}

func TestMetrics_RecordsRequestsByRoute(t *testing.T) {
	r := newMetricsRouter()

	// Two hits on the same registered route with distinct raw paths must share
	// one path label.
	for _, id := range []string{"aaa", "bbb"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/swaps/"+id, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("GET swap = %d", w.Code)
		}
	}

	// Error statuses are labeled too.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("POST quotes = %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	body := w.Body.String()

	if !strings.Contains(body, `http_requests_total{method="GET",path="/api/v1/swaps/:id",status="200"}`) {
		t.Fatalf("expected route-templated counter, got:\n%s", grepLines(body, "http_requests_total"))
	}
	if !strings.Contains(body, `status="503"`) {
		t.Fatalf("expected 503 label, got:\n%s", grepLines(body, "http_requests_total"))
	}
	if !strings.Contains(body, "http_request_duration_seconds") {
		t.Fatal("latency histogram missing")
	}
	if !strings.Contains(body, "http_requests_inflight") {
		t.Fatal("inflight gauge missing")
	}
}

func TestMetrics_UnmatchedRouteFallsBackToRawPath(t *testing.T) {
	r := newMetricsRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/definitely/not/registered", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `path="/definitely/not/registered"`) {
		t.Fatal("expected raw-path fallback label for unmatched route")
	}
}

// grepLines returns the lines of s containing substr, for failure messages.
func grepLines(s, substr string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, substr) {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
