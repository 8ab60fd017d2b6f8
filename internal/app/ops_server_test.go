package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/stocks/internal/health"
	"github.com/vladislavdragonenkov/stocks/internal/version"
)

func TestOpsRouter_Endpoints(t *testing.T) {
	router := newOpsRouter(healthcheck.NewHandler(version.GetVersion()))

	tests := []struct {
		path     string
		wantBody string
	}{
		{path: "/metrics"},
		{path: "/healthz", wantBody: `"status":"healthy"`},
		{path: "/livez", wantBody: "ok"},
		{path: "/readyz", wantBody: "ready"},
		{path: "/version", wantBody: "version="},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestOpsRouter_ReadinessFollowsCheckers(t *testing.T) {
	handler := healthcheck.NewHandler("test")
	handler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func(context.Context) error {
		return errors.New("connection refused")
	}))
	router := newOpsRouter(handler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOpsRouter_UnknownPath(t *testing.T) {
	router := newOpsRouter(healthcheck.NewHandler("test"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartOpsServer_ShutdownOnCancel(t *testing.T) {
	logger := log.WithField("test", "ops-shutdown")
	port := findFreePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	srv := startOpsServer(ctx, addr, logger, healthcheck.NewHandler("test"))
	require.NotNil(t, srv)

	url := fmt.Sprintf("http://%s/livez", addr)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && strings.TrimSpace(string(body)) == "ok"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return true
		}
		resp.Body.Close()
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	shutdownHTTP(nil, log.WithField("test", "http-nil"))
}

// findFreePort находит свободный порт для тестов
func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}
