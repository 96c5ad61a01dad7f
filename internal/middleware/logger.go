package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"tprmgrc/pkg/logger"

	"github.com/gin-gonic/gin"
)

func setupLogger(engine *gin.Engine, log *logger.FileLogger) {
	engine.Use(LoggerMiddleware(log, MiddlewareConfig{
		LogRequestBody:  true,
		LogResponseBody: false,
		MaxBodySize:     2048,
		SkipPaths:       []string{"/healthcheck/", "/swagger/*any"},
		SensitiveFields: []string{"password", "token", "secret", "unique_token"},
	}))
}

// MiddlewareConfig configures the logging middleware
type MiddlewareConfig struct {
	LogRequestBody  bool
	LogResponseBody bool
	// MaxBodySize caps logged bodies, in bytes
	MaxBodySize int
	// SkipPaths are matched against the route pattern
	SkipPaths  []string
	ErrorsOnly bool
	// SensitiveFields blank out bodies that mention them
	SensitiveFields []string
}

// DefaultMiddlewareConfig logs request bodies up to 1KB
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		LogRequestBody: true,
		MaxBodySize:    1024,
		SkipPaths:      []string{"/healthcheck/"},
	}
}

// responseBodyWriter copies what the handler writes, up to the buffer cap
type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseBodyWriter) Write(data []byte) (int, error) {
	if w.body != nil && w.body.Len()+len(data) <= w.body.Cap() {
		w.body.Write(data)
	}
	return w.ResponseWriter.Write(data)
}

// LoggerMiddleware writes one HTTP entry per request
func LoggerMiddleware(log *logger.FileLogger, config ...MiddlewareConfig) gin.HandlerFunc {
	cfg := DefaultMiddlewareConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	skipPaths := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		if skipPaths[c.FullPath()] {
			c.Next()
			return
		}

		start := time.Now()

		var requestBody string
		if cfg.LogRequestBody && c.Request.Body != nil {
			bodyBytes, err := io.ReadAll(c.Request.Body)
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
				requestBody = cfg.clip(bodyBytes)
			}
		}

		var responseBodyBuf *bytes.Buffer
		if cfg.LogResponseBody {
			responseBodyBuf = bytes.NewBuffer(make([]byte, 0, cfg.MaxBodySize))
			c.Writer = &responseBodyWriter{ResponseWriter: c.Writer, body: responseBodyBuf}
		}

		c.Next()

		statusCode := c.Writer.Status()
		if cfg.ErrorsOnly && statusCode < 400 {
			return
		}

		level, message := logger.LevelInfo, "HTTP Request"
		switch {
		case statusCode >= 500:
			level, message = logger.LevelError, "HTTP Server Error"
		case statusCode >= 400:
			level, message = logger.LevelWarn, "HTTP Client Error"
		}

		httpCtx := &logger.HTTPContext{
			Method:      c.Request.Method,
			Path:        c.Request.URL.Path,
			Query:       c.Request.URL.RawQuery,
			RemoteIP:    c.ClientIP(),
			StatusCode:  statusCode,
			RequestID:   GetRequestID(c),
			Actor:       Actor(c),
			DurationMs:  float64(time.Since(start).Microseconds()) / 1000,
			RequestBody: requestBody,
		}
		if responseBodyBuf != nil {
			httpCtx.ResponseBody = cfg.clip(responseBodyBuf.Bytes())
		}

		fields := map[string]interface{}{"component": "http_middleware", "route": c.FullPath()}
		if custom, ok := c.Get("log_fields"); ok {
			if m, ok := custom.(map[string]interface{}); ok {
				for k, v := range m {
					fields[k] = v
				}
			}
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		log.HTTP(level, message, httpCtx, fields)
	}
}

func (cfg MiddlewareConfig) clip(body []byte) string {
	if len(body) > cfg.MaxBodySize {
		return "[BODY TOO LARGE]"
	}
	s := string(body)
	lower := strings.ToLower(s)
	for _, f := range cfg.SensitiveFields {
		if strings.Contains(lower, strings.ToLower(f)) {
			return "[REDACTED]"
		}
	}
	return s
}

// AddLogFields adds fields to the request's log entry
func AddLogFields(c *gin.Context, fields map[string]interface{}) {
	existing, ok := c.Get("log_fields")
	if m, isMap := existing.(map[string]interface{}); ok && isMap {
		for k, v := range fields {
			m[k] = v
		}
		return
	}
	c.Set("log_fields", fields)
}
