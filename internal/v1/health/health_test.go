package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, checker *Checker, path string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", checker.Full)
	router.GET("/health/live", checker.Live)
	router.GET("/health/ready", checker.Ready)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	return w
}

func TestLiveAlwaysOK(t *testing.T) {
	w := serve(t, &Checker{}, "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyWithoutDependencies(t *testing.T) {
	w := serve(t, &Checker{}, "/health/ready")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status     string               `json:"status"`
		Components map[string]component `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "disabled", body.Components["redis"].Status)
	assert.Equal(t, "disabled", body.Components["postgres"].Status)
}

func TestReadyWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	checker := &Checker{Redis: client}

	w := serve(t, checker, "/health/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	mr.Close()
	w = serve(t, checker, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Components map[string]component `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Components["redis"].Status)
}

func TestFullReportsDegradedWith200(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	w := serve(t, &Checker{Redis: client}, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
}
