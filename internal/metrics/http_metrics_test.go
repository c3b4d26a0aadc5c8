package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetricsWithRegisterer(reg)

	metrics.RecordRequest("/api/cart", http.MethodGet, http.StatusOK, 10*time.Millisecond)
	metrics.RecordRequest("/api/cart", http.MethodGet, http.StatusOK, 20*time.Millisecond)
	metrics.RecordRequest("/api/checkout", http.MethodPost, http.StatusUnprocessableEntity, 5*time.Millisecond)

	if got := testutil.CollectAndCount(reg, "storefront_http_request_duration_seconds"); got != 2 {
		t.Fatalf("expected 2 label series, got %d", got)
	}
}
