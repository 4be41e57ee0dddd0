package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/museum-members/member-registry-api/internal/domain/ranking"
)

func TestMetrics_RecordSearchByTier(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordSearch(ranking.Page{
		Content: []ranking.Result{
			{Tier: ranking.ExactMatch},
			{Tier: ranking.FuzzyMatch},
			{Tier: ranking.FuzzyMatch},
		},
		TotalElements: 7,
	})

	if got := testutil.ToFloat64(m.SearchResults.WithLabelValues("FUZZY_MATCH")); got != 2 {
		t.Fatalf("fuzzy=%v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SearchResults.WithLabelValues("EXACT_MATCH")); got != 1 {
		t.Fatalf("exact=%v, want 1", got)
	}
}

func TestMetrics_HandlerExposesRequests(t *testing.T) {
	t.Parallel()
	m := New()
	m.RecordRequest(http.MethodGet, "/members/search", 200, 5*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `member_registry_http_requests_total{method="GET",route="/members/search",status="200"} 1`) {
		t.Fatalf("missing request counter in:\n%s", rr.Body.String())
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()
	var m *Metrics
	m.RecordRequest(http.MethodGet, "/", 200, time.Millisecond)
	m.RecordSearch(ranking.Page{})
}
