package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/zeakcloud/lynx/cmd/bot/config"
	"github.com/zeakcloud/lynx/cmd/bot/monitoring"
	"github.com/zeakcloud/lynx/pkg/counting"
	"github.com/zeakcloud/lynx/pkg/dataaccess"
	"github.com/zeakcloud/lynx/pkg/dataaccess/connection"
	"github.com/zeakcloud/lynx/pkg/logging"
	"github.com/zeakcloud/lynx/pkg/overlay"
	"github.com/zeakcloud/lynx/pkg/request"
	"github.com/zeakcloud/lynx/pkg/tickets"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
)

type App struct {
	// is the logger.
	*slog.Logger

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// eventNotifier is the channel for notifying of events.
	eventNotifier chan any

	// mongo is the database client.
	mongo *mongo.Client

	// guilds is the guild configuration store.
	guilds dataaccess.GuildDal

	// ticketStore is the ticket store.
	ticketStore dataaccess.TicketDal

	// counts is the counting state store.
	counts dataaccess.CountingDal

	// platform is the discord-facing side-effect surface.
	platform *discordPlatform

	// sched runs deferred tasks.
	sched *scheduler

	// controller is the ticket lifecycle controller.
	controller *tickets.Controller

	// engine is the counting engine.
	engine *counting.Engine
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router) *App {
	return &App{
		Logger: l,
		r:      r,
	}
}

func (a *App) Run() error {
	if err := a.connectMongo(); err != nil {
		return fmt.Errorf("error connecting to mongo: %w", err)
	}

	a.guilds = dataaccess.NewGuildDal(a.Logger, a.mongo)
	a.ticketStore = dataaccess.NewTicketDal(a.Logger, a.mongo)
	a.counts = dataaccess.NewCountingDal(a.Logger, a.mongo)

	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	a.platform = newDiscordPlatform(a.Logger, a.s)
	a.sched = newScheduler(a.Logger)
	a.controller = tickets.NewController(
		a.Logger,
		a.guilds,
		a.ticketStore,
		a.platform,
		overlay.NewManager(a.Logger, a.platform),
		a.sched,
		config.ApplicationId,
	)
	a.engine = counting.NewEngine(a.Logger, a.guilds, a.counts)

	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))
	})

	if err := a.RegisterDiscordHandlers(); err != nil {
		return fmt.Errorf("error registering discord handlers: %w", err)
	}

	// Start event listener.
	go a.eventListener()

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	// Register slash commands.
	if err := a.registerSlashCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	a.Info("Bot is now running.")

	a.generateServer()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Process shutdown signal.
	for sig := range c {
		a.Info("Received shutdown signal", slog.String("signal", sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

func (a *App) connectMongo() error {
	mongoConn := new(connection.MongoDB)
	mongoConn.ConnectionString = config.MongoUri

	db, err := mongoConn.Connect()
	if err != nil {
		return fmt.Errorf("error connecting to mongo: %w", err)
	} else if db == nil {
		return fmt.Errorf("mongo client came back nil")
	}

	a.mongo = db
	a.Debug("Connected to MongoDB")
	return nil
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	// Stop all pending deferred tasks.
	a.sched.Stop()

	// Unregister slash commands.
	if err := a.unregisterSlashCommands(); err != nil {
		return fmt.Errorf("error unregistering slash commands: %w", err)
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}

	// Close the connection to Mongo.
	if err := a.mongo.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("error disconnecting from mongo: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + config.BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAll)

	if a.eventNotifier == nil {
		// Create event notifier. This is used to runServer events. It is buffered to prevent blocking.
		a.eventNotifier = make(chan any, 100)
	}

	dg.SetEventNotifier(a.eventNotifier)

	a.s = dg
	return nil
}

func (a *App) runServer() {
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)
	a.r.HandleFunc(PathHealth, middlewareHttp(a.healthCheck(), a)).Methods(http.MethodGet)

	a.r.NotFoundHandler = request.NotFoundHandler(a.Logger)
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Logger)

	go func() {
		a.Info("Starting monitoring server")
		if err := a.svr.ListenAndServe(); err != nil {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + config.MonitoringPort,
		Handler: a.r,
	}
}

func (a *App) GetJoinedGuilds() ([]*discordgo.UserGuild, error) {
	guilds, err := a.s.UserGuilds(0, "", "")
	if err != nil {
		return nil, fmt.Errorf("error getting guilds: %w", err)
	}
	return guilds, nil
}

func (a *App) RegisterDiscordHandlers() error {
	// Bot joined guild.
	a.s.AddHandler(a.guildJoinedHandler())

	// Bot left guild.
	a.s.AddHandler(a.guildLeaveHandler())

	// Counting channel messages.
	a.s.AddHandler(a.messageCreateHandler())

	// Interaction create handler.
	a.s.AddHandler(interactionHandler(a,
		// Slash Controllers
		map[string]commandController{
			setupCmd.Name: setupCmdController,
			countCmd.Name: countCmdController,
		}))
	return nil
}

func (a *App) eventListener() {
	for e := range a.eventNotifier {
		switch t := e.(type) {
		case *discordgo.Event:
			if t.Type != "" {
				monitoring.TotalDiscordEvents.WithLabelValues(t.Type).Inc()
			} else {
				// If there is no type, then use the operation name.
				monitoring.TotalDiscordEvents.WithLabelValues(strings.ToUpper(t.Operation.String())).Inc()
			}
		default:
			a.Error("Unknown event type", slog.String("type", fmt.Sprintf("%T", e)))
			monitoring.TotalDiscordEvents.WithLabelValues("UNKNOWN").Inc()
		}
	}
}

func (a *App) registerSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Register slash commands for each guild.
	for _, g := range guilds {
		// Register the setup command.
		if _, err := a.s.ApplicationCommandCreate(config.ApplicationId, g.ID, setupCmd); err != nil {
			return fmt.Errorf("error creating setup command for guild %s: %w", g.ID, err)
		}

		// Register the count command.
		if _, err := a.s.ApplicationCommandCreate(config.ApplicationId, g.ID, countCmd); err != nil {
			return fmt.Errorf("error creating count command for guild %s: %w", g.ID, err)
		}
	}
	return nil
}

func (a *App) unregisterSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Delete slash commands for each guild.
	for _, guild := range guilds {
		// Delete the setup command.
		if err := a.s.ApplicationCommandDelete(config.ApplicationId, guild.ID, setupCmd.ID); err != nil {
			return fmt.Errorf("error deleting setup command for guild %s: %w", guild.ID, err)
		}

		// Delete the count command.
		if err := a.s.ApplicationCommandDelete(config.ApplicationId, guild.ID, countCmd.ID); err != nil {
			return fmt.Errorf("error deleting count command for guild %s: %w", guild.ID, err)
		}
	}
	return nil
}

func (a *App) Session() *discordgo.Session {
	return a.s
}
