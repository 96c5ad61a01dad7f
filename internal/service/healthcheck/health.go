package healthcheck

import (
	"context"
	"net/http"
	"time"

	"tprmgrc/internal/config"
	"tprmgrc/internal/models/dto"

	"github.com/gin-gonic/gin"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Health - Healthcheck endpoint
// @Summary      Service health
// @Description  Pings the store and every optional backend and lists the registered side-effect handlers
// @Tags         health
// @Produce      json
// @Success      200  {object}  dto.HealthResponse
// @Failure      503  {object}  dto.HealthResponse
// @Router       /healthcheck/ [get]
func Health(cfg *config.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		backends := map[string]pinger{}
		if cfg.SqlServer != nil {
			backends["sqlserver"] = cfg.SqlServer
		}
		if cfg.Redis != nil {
			backends["redis"] = cfg.Redis
		}
		if cfg.ES != nil {
			backends["elasticsearch"] = cfg.ES
		}
		if cfg.Mongo != nil {
			backends["mongo"] = cfg.Mongo
		}

		status, code := "OK", http.StatusOK
		checks := make(map[string]string, len(backends))
		for name, b := range backends {
			if err := b.Ping(ctx); err != nil {
				checks[name] = err.Error()
				if name == "sqlserver" {
					status, code = "DOWN", http.StatusServiceUnavailable
				} else if status == "OK" {
					status = "DEGRADED"
				}
				continue
			}
			checks[name] = "OK"
		}

		uptime := ""
		if !cfg.StartedAt.IsZero() {
			uptime = time.Since(cfg.StartedAt).Round(time.Second).String()
		}
		resp := dto.NewHealthResponse(c, status, "tprmgrc-api", "1.0.0", uptime, checks)
		resp.Handlers = cfg.Handlers
		c.JSON(code, resp)
	}
}
