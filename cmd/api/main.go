package main

import (
	"fmt"
	"log"
	"os"

	_ "tprmgrc/docs"
	"tprmgrc/internal/config"
	"tprmgrc/internal/middleware"
	"tprmgrc/internal/routes"
	"tprmgrc/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// @title                       TPRM GRC API
// @version                     1.0.0
// @description                 Contracts, amendments, renewals, approvals and vendor invitations.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {

	envPath := "/app/.env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../../.env"
	}
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("No .env file loaded (%v), using the process environment", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Error creating config: %v", err)
	}
	defer cfg.CloseAll()

	cfg.Logger.Info(fmt.Sprintf("Starting server with execution ID %s", cfg.Logger.ExecutionID), map[string]interface{}{
		"handlers": cfg.Handlers,
	})

	engine := middleware.SetupServer(cfg)

	routes.InitiateRoutes(engine, cfg)

	startServer(engine)
}

func startServer(engine *gin.Engine) {
	addr := ":" + utils.GetPort()
	certFile, keyFile := utils.GetCertFiles()
	if certFile != "" && keyFile != "" {
		log.Printf("Starting server with TLS on %s...", addr)
		if err := engine.RunTLS(addr, certFile, keyFile); err != nil {
			log.Fatalf("Error starting TLS server: %v", err)
		}
	} else {
		log.Printf("Starting server on %s...", addr)
		if err := engine.Run(addr); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	}
}
