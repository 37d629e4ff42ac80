package http_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/comitanigiacomo/kanso-tracker/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

type testEnv struct {
	router *gin.Engine
	store  *repository.MemoryStore
}

// newTestEnv wires every resource handler over an in-memory store. The
// X-User-ID header stands in for the bearer token.
func newTestEnv(t *testing.T, seed repository.Seed, opts ...services.AnalyticsOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore(seed)
	habits, checkIns := store.Habits(), store.CheckIns()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(middleware.ContextUserIDKey, userID)
		}
		c.Next()
	})

	api := r.Group("/api/v1")
	adapterHTTP.NewHabitHandler(services.NewHabitService(habits)).RegisterRoutes(api)
	adapterHTTP.NewCheckInHandler(services.NewCheckInService(checkIns, habits, nil), nil).RegisterRoutes(api)
	adapterHTTP.NewAnalyticsHandler(services.NewAnalyticsService(habits, checkIns, opts...)).RegisterRoutes(api)
	adapterHTTP.NewStatsHandler(services.NewStatsService(habits, checkIns), nil).RegisterRoutes(api)

	return &testEnv{router: r, store: store}
}

type syncResponse[T any] struct {
	Changes []T `json:"changes"`
}

func (e *testEnv) do(method, path, userID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
