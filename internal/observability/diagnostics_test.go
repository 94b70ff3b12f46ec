package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// httpGet fetches a URL with a short timeout and returns status and body.
func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

// --- DiagnosticsServer Tests ---.

func TestDiagnosticsServer_Healthz(t *testing.T) {
	t.Parallel()

	srv, err := NewDiagnosticsServer("127.0.0.1:0")
	require.NoError(t, err)

	defer func() { require.NoError(t, srv.Close()) }()

	status, body := httpGet(t, fmt.Sprintf("http://%s/healthz", srv.Addr()))

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestDiagnosticsServer_Readyz_NoChecks(t *testing.T) {
	t.Parallel()

	srv, err := NewDiagnosticsServer("127.0.0.1:0")
	require.NoError(t, err)

	defer func() { require.NoError(t, srv.Close()) }()

	status, body := httpGet(t, fmt.Sprintf("http://%s/readyz", srv.Addr()))

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestDiagnosticsServer_Readyz_FailingCheck(t *testing.T) {
	t.Parallel()

	failing := func(_ context.Context) error {
		return errors.New("corpus unreachable")
	}

	srv, err := NewDiagnosticsServer("127.0.0.1:0", failing)
	require.NoError(t, err)

	defer func() { require.NoError(t, srv.Close()) }()

	status, body := httpGet(t, fmt.Sprintf("http://%s/readyz", srv.Addr()))

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.JSONEq(t, `{"status":"unavailable"}`, body)
}

func TestDiagnosticsServer_Readyz_PassingCheck(t *testing.T) {
	t.Parallel()

	passing := func(_ context.Context) error { return nil }

	srv, err := NewDiagnosticsServer("127.0.0.1:0", passing)
	require.NoError(t, err)

	defer func() { require.NoError(t, srv.Close()) }()

	status, _ := httpGet(t, fmt.Sprintf("http://%s/readyz", srv.Addr()))

	assert.Equal(t, http.StatusOK, status)
}

func TestDiagnosticsServer_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, err := NewDiagnosticsServer("127.0.0.1:0")
	require.NoError(t, err)

	defer func() { require.NoError(t, srv.Close()) }()

	metrics, err := NewDiscoveryMetrics(srv.Meter())
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordSketch(ctx, "orders.csv")
	metrics.RecordInsert(ctx)
	metrics.RecordQuery(ctx, 3, 250*time.Microsecond)

	status, body := httpGet(t, fmt.Sprintf("http://%s/metrics", srv.Addr()))

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "tablescope_sketches_total")
	assert.Contains(t, body, "tablescope_index_queries_total")
}

func TestDiagnosticsServer_BadAddr(t *testing.T) {
	t.Parallel()

	_, err := NewDiagnosticsServer("not-an-address")

	require.Error(t, err)
}

// --- DiscoveryMetrics Tests ---.

func TestNewDiscoveryMetrics_ZeroValuesRecordable(t *testing.T) {
	t.Parallel()

	srv, err := NewDiagnosticsServer("127.0.0.1:0")
	require.NoError(t, err)

	defer func() { require.NoError(t, srv.Close()) }()

	metrics, err := NewDiscoveryMetrics(srv.Meter())
	require.NoError(t, err)
	require.NotNil(t, metrics)

	// Recording must not panic even with zero values.
	metrics.RecordQuery(context.Background(), 0, 0)
}
