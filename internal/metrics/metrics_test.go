package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	NewRouter(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollector_Counts(t *testing.T) {
	c := New()

	c.Detected("image")
	c.Detected("image")
	c.PageAnalyzed()
	c.InputProcessed(true, 2*time.Second)
	c.InputProcessed(false, time.Second)

	body := scrape(t, c)
	assert.Contains(t, body, `screenshot_wizard_detections_total{kind="image"} 2`)
	assert.Contains(t, body, "screenshot_wizard_pages_analyzed_total 1")
	assert.Contains(t, body, `screenshot_wizard_inputs_processed_total{result="success"} 1`)
	assert.Contains(t, body, `screenshot_wizard_inputs_processed_total{result="failure"} 1`)
	assert.Contains(t, body, `screenshot_wizard_input_duration_seconds_count{result="success"} 1`)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.Detected("image")
	c.PageAnalyzed()
	c.InputProcessed(true, time.Second)
}

func TestRouter(t *testing.T) {
	c := New()
	c.InputProcessed(true, time.Second)
	srv := httptest.NewServer(NewRouter(c))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `screenshot_wizard_inputs_processed_total{result="success"} 1`)
}

func TestServer_StartShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", New(), nil)
	addr, err := s.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
