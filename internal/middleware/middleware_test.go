package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tprmgrc/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	engine := gin.New()
	engine.Use(RequestIDMiddleware(""))
	engine.GET("/whoami", Auth(), func(c *gin.Context) {
		c.String(http.StatusOK, Actor(c))
	})

	token, err := GenerateJWT("u-42", "ann@acme.com", "manager")
	require.NoError(t, err)

	w := serve(engine, http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-42", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	cases := map[string]string{
		"missing":   "",
		"no bearer": token,
		"garbage":   "Bearer not-a-token",
	}
	for name, header := range cases {
		h := http.Header{}
		if header != "" {
			h.Set("Authorization", header)
		}
		w := serve(engine, h)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}

	t.Setenv("JWT_SECRET", "another-secret")
	w = serve(engine, http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "signed with another key")
}

func TestGenerateJWT_NoSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := GenerateJWT("u1", "", "")
	assert.ErrorIs(t, err, ErrNoSecret)
}

type memCounter struct {
	mu   sync.Mutex
	hits map[string]int64
	err  error
}

func (m *memCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits[key]++
	return m.hits[key], window, nil
}

func TestRateLimiter(t *testing.T) {
	counter := &memCounter{hits: map[string]int64{}}
	engine := gin.New()
	engine.Use(NewRateLimiter(counter, logger.NewNop(), 2, time.Minute).Middleware())
	engine.GET("/whoami", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(engine, nil).Code)
	w := serve(engine, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = serve(engine, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	counter.err = errors.New("redis down")
	assert.Equal(t, http.StatusNoContent, serve(engine, nil).Code, "fails open")
}
