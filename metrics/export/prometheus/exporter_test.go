package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goPasswordless "github.com/MrEthical07/goPasswordless"
)

type fakeSource struct {
	snapshot  goPasswordless.MetricsSnapshot
	dropped   uint64
	delivered uint64
}

func (f fakeSource) MetricsSnapshot() goPasswordless.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                            { return f.dropped }
func (f fakeSource) AuditDelivered() uint64                          { return f.delivered }

func scrape(t *testing.T, src fakeSource) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(NewCollectorFromSource(src)).ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return rec, string(body)
}

func TestScrapeEmptyWhenMetricsDisabled(t *testing.T) {
	_, out := scrape(t, fakeSource{
		snapshot: goPasswordless.MetricsSnapshot{
			Counters:   map[goPasswordless.MetricID]uint64{},
			Histograms: map[goPasswordless.MetricID][]uint64{},
		},
	})

	if strings.Contains(out, "gopasswordless_") {
		t.Fatalf("expected no gopasswordless metrics, got:\n%s", out)
	}
}

func TestScrapeIncludesCounterAndHistogram(t *testing.T) {
	rec, out := scrape(t, fakeSource{
		snapshot: goPasswordless.MetricsSnapshot{
			Counters: map[goPasswordless.MetricID]uint64{
				goPasswordless.MetricTokenRedeemSuccess: 7,
			},
			Histograms: map[goPasswordless.MetricID][]uint64{
				goPasswordless.MetricRedeemLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped:   2,
		delivered: 5,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, want := range []string{
		"gopasswordless_token_redeem_success_total 7",
		`gopasswordless_redeem_latency_seconds_bucket{le="0.005"} 1`,
		`gopasswordless_redeem_latency_seconds_bucket{le="+Inf"} 36`,
		"gopasswordless_redeem_latency_seconds_count 36",
		"gopasswordless_audit_dropped_total 2",
		"gopasswordless_audit_delivered_total 5",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestScrapeAuditOnly(t *testing.T) {
	_, out := scrape(t, fakeSource{delivered: 3})

	if !strings.Contains(out, "gopasswordless_audit_delivered_total 3") {
		t.Fatalf("expected audit delivered count, got:\n%s", out)
	}
}
