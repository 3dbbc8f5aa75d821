package config

import (
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Parse loads the application configuration from the environment, reading a
// .env file first when one is present.
func Parse(l *slog.Logger) error {
	if err := godotenv.Load(); err != nil {
		l.Debug("No .env file found, using environment only")
	}

	if envBT := os.Getenv(EnvBotToken); envBT != "" {
		l.Debug("Found bot token in environment", slog.String("key", EnvBotToken))
		BotToken = envBT
	}

	if envAppId := os.Getenv(EnvApplicationId); envAppId != "" {
		l.Debug("Found application ID in environment", slog.String("key", EnvApplicationId))
		ApplicationId = envAppId
	}

	if envMongoUri := os.Getenv(EnvMongoUri); envMongoUri != "" {
		l.Debug("Found MongoDB URI in environment", slog.String("key", EnvMongoUri))
		MongoUri = envMongoUri
	}

	if envMonitoringPort := os.Getenv(EnvMonitoringPort); envMonitoringPort != "" {
		l.Debug("Found monitoring port in environment", slog.String("key", EnvMonitoringPort))
		MonitoringPort = envMonitoringPort
	} else {
		// Default to 8080 if not provided.
		MonitoringPort = "8080"

		l.Info("No monitoring port provided in environment, defaulting to 8080", slog.String("key", EnvMonitoringPort))
	}

	if BotToken == "" ||
		ApplicationId == "" ||
		MongoUri == "" {
		return errors.New("incomplete configuration, required environment variables are missing")
	}

	return nil
}
