package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/zeakcloud/lynx/cmd/bot/monitoring"
	"github.com/zeakcloud/lynx/pkg/logging"
	"github.com/zeakcloud/lynx/pkg/messages"
	"github.com/zeakcloud/lynx/pkg/request"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// PathMetrics is the path for metrics.
	PathMetrics = "/metrics"

	// PathHealth is the path for the health check.
	PathHealth = "/health"
)

// commandController resolves a slash command interaction to its processor.
type commandController func(a *App, i *discordgo.InteractionCreate) (commandProcessor, error)

// commandProcessor processes a single interaction.
type commandProcessor func(a *App, i *discordgo.InteractionCreate) error

type Controller func(w http.ResponseWriter, r *http.Request)

func middlewareHttp(handler Controller, a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := request.NewClientWriter(w)

		// Recover from any panics that occur in the handler.
		defer func() {
			if rec := recover(); rec != nil {
				a.Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprintf("%v", rec)),
					slog.String("stack", string(debug.Stack())),
				)
				cw.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(cw).Encode(request.NewMessage(messages.ErrUserErrorProcessing)); err != nil {
					a.Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
				}
			}
		}()

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				a.Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path // If the route does not define a path, use the URL path.
			}
		} else {
			path = r.URL.Path // If the route is nil, use the URL path.
		}

		defer func() {
			// Run the deferred function after the request has been handled, as the status code will not be available until then.
			monitoring.HttpTotalRequests.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Inc()
			monitoring.HttpRequestDuration.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Observe(time.Since(now).Seconds())
		}()

		handler(cw, r)
	}
}

// interactionHandler dispatches interactions: slash commands go to their
// controller, component presses and modal submissions are parsed into typed
// events at this boundary and routed to the ticketing handlers.
func interactionHandler(a *App, controllers map[string]commandController) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			handleSlashCommand(a, i, controllers)
		case discordgo.InteractionMessageComponent, discordgo.InteractionModalSubmit:
			ev, err := interactionEvent(i)
			if err != nil {
				a.Error("Error parsing interaction event", slog.String(logging.KeyError, err.Error()))
				if err := respondError(a, i); err != nil {
					a.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
				}
				return
			}
			if err := handleTicketEvent(a, i, ev); err != nil {
				a.Error("Error handling ticket event",
					slog.String(logging.KeyGuild, i.GuildID),
					slog.String(logging.KeyError, err.Error()),
				)
				if err := respondError(a, i); err != nil {
					a.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
				}
			}
		}
	}
}

func handleSlashCommand(a *App, i *discordgo.InteractionCreate, controllers map[string]commandController) {
	name := i.ApplicationCommandData().Name
	a.Debug("Handling interaction " + name)

	t := prometheus.NewTimer(monitoring.DiscordCommandDuration.WithLabelValues(name))
	defer t.ObserveDuration()

	controller, ok := controllers[name]
	if !ok {
		a.Error("No controller found for command", slog.String("command", name))
		if err := respondError(a, i); err != nil {
			a.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	processor, err := controller(a, i)
	if err != nil {
		a.Error(fmt.Sprintf("Error getting processor for command %s", name),
			slog.String(logging.KeyError, err.Error()))

		if err := respondError(a, i); err != nil {
			a.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	} else if processor == nil {
		// The controller already responded.
		return
	}

	if err := processor(a, i); err != nil {
		a.Error(fmt.Sprintf("Error processing command %s", name),
			slog.String(logging.KeyError, err.Error()))

		if err := respondError(a, i); err != nil {
			a.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}
