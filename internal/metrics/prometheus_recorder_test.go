package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_Gather(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveTaskDuration("styles", 150*time.Millisecond)
	pr.IncTaskResult("styles", ResultSuccess)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncRunOutcome("success")
	pr.IncTransformSkipped("imagemin")
	pr.IncReloadBroadcast("css")
	pr.SetReloadClients(2)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "assetbuilder_task_results_total")
	assert.Contains(t, names, "assetbuilder_reload_clients")
}

func TestHTTPHandler_ServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncRunOutcome("failed")

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "assetbuilder_run_outcomes_total"))
}

func TestPrometheusRecorder_NilReceiverIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncRunOutcome("success")
	pr.SetReloadClients(1)
}

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)
