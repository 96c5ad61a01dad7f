package middleware

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"tprmgrc/internal/config"
	"tprmgrc/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// SetupServer builds the gin engine with the global middleware chain
func SetupServer(cfg *config.App) (engine *gin.Engine) {
	gin.SetMode(gin.ReleaseMode)
	engine = gin.New()

	setupSemaphore(engine)
	setupCors(engine)
	setupIds(engine)
	if cfg.Redis != nil {
		setupRedisDB(engine, cfg)
	}
	if cfg.Logger != nil {
		setupLogger(engine, cfg.Logger)
	}
	setupTimeout(engine, cfg.RequestTimeout)

	certFile, keyFile := utils.GetCertFiles()
	if certFile != "" && keyFile != "" {
		setupSSL(engine, cfg)
	}

	engine.Use(gin.Recovery())

	return engine
}

// setupCors allows the origins listed in CORS_ALLOWED_ORIGINS, or any
// origin when unset
func setupCors(engine *gin.Engine) {
	conf := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				conf.AllowOrigins = append(conf.AllowOrigins, o)
			}
		}
		conf.AllowCredentials = true
	} else {
		conf.AllowAllOrigins = true
	}
	engine.Use(cors.New(conf))
}

// setupTimeout puts a deadline on every request context
func setupTimeout(engine *gin.Engine, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	engine.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
}

// setupSSL redirects plain requests to https
func setupSSL(engine *gin.Engine, cfg *config.App) {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:          true,
		SSLHost:              ":" + utils.GetPort(),
		STSSeconds:           31536000,
		STSIncludeSubdomains: true,
		FrameDeny:            true,
		ContentTypeNosniff:   true,
	})
	engine.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			cfg.Log().Warn("request refused by secure middleware", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			c.Abort()
			return
		}
		c.Next()
	})
}

func getEnvAsInt64(name string, defaultValue int64) int64 {
	valueStr := os.Getenv(name)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return int64(value)
}
