package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"matchgogo/backend/internal/api/handler"
	"matchgogo/backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubCounter struct{ queued, pairs int }

func (s stubCounter) Counts() (int, int) { return s.queued, s.pairs }

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, h *handler.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, req)
	return w
}

func TestAlive(t *testing.T) {
	h := handler.NewHandler(stubPinger{}, nil, logger.Discard())

	w := serve(t, h, "/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "I'm alive!", w.Body.String())
}

func TestHealth_OK(t *testing.T) {
	h := handler.NewHandler(stubPinger{}, stubCounter{queued: 2, pairs: 3}, logger.Discard())

	w := serve(t, h, "/healthz")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["queued"])
	assert.EqualValues(t, 3, body["pairs"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	h := handler.NewHandler(stubPinger{err: errors.New("connection refused")}, nil, logger.Discard())

	w := serve(t, h, "/healthz")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")
	assert.NotContains(t, w.Body.String(), "connection refused")
}
