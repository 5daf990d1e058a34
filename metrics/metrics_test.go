package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(Answers.WithLabelValues("upstream", "positive"))
	Answers.WithLabelValues("upstream", "positive").Inc()
	after := testutil.ToFloat64(Answers.WithLabelValues("upstream", "positive"))
	if after != before+1 {
		t.Error("Answers counter did not increment", before, after)
	}
}

func TestHandler(t *testing.T) {
	Fallbacks.Inc()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "authzone_fallbacks_total") {
		t.Error("Handler output missing authzone_fallbacks_total", body)
	}
}
