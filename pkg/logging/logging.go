package logging

import (
	"log/slog"
	"os"
)

const (
	// KeyAppName is the key for the application name.
	KeyAppName = "app"

	// KeyError is the key for an error.
	KeyError = "err"

	// KeyDal is the key for the data access layer.
	KeyDal = "dal"

	// KeyGuild is the key for a guild ID.
	KeyGuild = "guild_id"

	// KeyChannel is the key for a channel ID.
	KeyChannel = "channel_id"

	// KeyUser is the key for a user ID.
	KeyUser = "user_id"
)

// Name is the name of the application.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// name is the name of the application.
	name Name
}

// NewConfig creates a new logger configuration.
func NewConfig(name Name) *Config {
	return &Config{
		name: name,
	}
}

// CommonLogger returns the logger used across the application.
func CommonLogger(c *Config) (*slog.Logger, error) {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return slog.New(h).With(slog.String(KeyAppName, string(c.name))), nil
}
