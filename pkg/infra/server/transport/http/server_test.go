package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bizerrors "github.com/kart-io/bookrag/pkg/errors"
	"github.com/kart-io/bookrag/pkg/infra/middleware"
	mwopts "github.com/kart-io/bookrag/pkg/options/middleware"
	options "github.com/kart-io/bookrag/pkg/options/server/http"
	"github.com/kart-io/bookrag/pkg/utils/json"
	"github.com/kart-io/bookrag/pkg/utils/response"
)

func TestServerMiddlewareChain(t *testing.T) {
	s := NewServer(options.NewOptions(), mwopts.NewOptions(), middleware.NewMetricsCollector(prometheus.NewRegistry(), "test"))
	s.Engine().GET("/panic", func(*gin.Context) { panic("boom") })
	s.Engine().GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "ok"}) })

	t.Run("panic 被恢复", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("未知路由返回 JSON 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
		require.Equal(t, http.StatusNotFound, w.Code)

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, bizerrors.ErrRouteNotFound.Code, resp.Code)
		assert.NotEmpty(t, resp.RequestID)
	})

	t.Run("CORS 头", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		s.Engine().ServeHTTP(w, req)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestServerStartStop(t *testing.T) {
	opts := options.NewOptions()
	opts.Addr = "127.0.0.1:0"
	s := NewServer(opts, nil, nil)
	s.Engine().GET("/", func(c *gin.Context) { c.String(http.StatusOK, "online") })

	require.NoError(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "online", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	_, err = http.Get("http://" + s.Addr() + "/")
	assert.Error(t, err)
}

func TestServerStartBindError(t *testing.T) {
	first := NewServer(&options.Options{Addr: "127.0.0.1:0"}, nil, nil)
	require.NoError(t, first.Start(context.Background()))
	t.Cleanup(func() { _ = first.Stop(context.Background()) })

	second := NewServer(&options.Options{Addr: first.Addr()}, nil, nil)
	assert.Error(t, second.Start(context.Background()))
}

func TestServerStopBeforeStart(t *testing.T) {
	s := NewServer(nil, nil, nil)
	assert.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, "http[gin]", s.Name())
}
