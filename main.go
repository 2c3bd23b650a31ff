package main

import (
	"context"
	"log"
	"os"

	"goab/internal/config"
	"goab/internal/container"
	"goab/internal/logging"
)

func main() {
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(logging.ParseLevel(appConfig.LogLevel))

	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	if err := appContainer.InitDatabase(context.Background()); err != nil {
		logger.Error("Failed to initialize database: %v", err)
		os.Exit(1)
	}

	server := appContainer.APIServer()
	logger.Info("Starting A/B evaluation server on port %s", appConfig.Server.Port)
	if err := server.Start(":" + appConfig.Server.Port); err != nil {
		logger.Error("server stopped: %v", err)
		os.Exit(1)
	}
}
