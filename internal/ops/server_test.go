package ops

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.beyond.io/tdi-ingest/internal/core"
)

type fakePipeline struct {
	name  string
	state core.CycleState
}

func (f fakePipeline) Name() string {
	return f.name
}

func (f fakePipeline) State() core.CycleState {
	return f.state
}

func TestRouter_Healthz(t *testing.T) {
	srv := httptest.NewServer(NewRouter(prometheus.NewRegistry(),
		fakePipeline{name: "store-ftp", state: core.StateProcessing},
		fakePipeline{name: "bucket-drop"},
	))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var h health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, map[string]string{"store-ftp": "processing", "bucket-drop": "idle"}, h.Pipelines)
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "tdi_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)

	srv := httptest.NewServer(NewRouter(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "tdi_test_total 3")
}

func TestRouter_UnknownPath(t *testing.T) {
	srv := httptest.NewServer(NewRouter(prometheus.NewRegistry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_Profiler(t *testing.T) {
	srv := httptest.NewServer(NewRouter(prometheus.NewRegistry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/pprof/cmdline")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ListenAndShutdown(t *testing.T) {
	s := New("127.0.0.1:0", prometheus.NewRegistry())
	assert.Empty(t, s.Addr())

	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe()
	}()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(context.Background()))
	err = <-done
	assert.True(t, errors.Is(err, http.ErrServerClosed))
}
