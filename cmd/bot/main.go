package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/zeakcloud/lynx/cmd/bot/config"
	"github.com/zeakcloud/lynx/pkg/logging"
)

func main() {
	a, err := InitializeApp()
	if err != nil {
		log.Fatalln(err)
	}

	if err := config.Parse(a.Logger); err != nil {
		a.Error("Error parsing configuration", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}

	a.Info("Starting application")
	if err := a.Run(); err != nil {
		a.Error("Error running application", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
}
