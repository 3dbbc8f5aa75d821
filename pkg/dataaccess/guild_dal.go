package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zeakcloud/lynx/pkg/dataaccess/monitoring"
	"github.com/zeakcloud/lynx/pkg/entities"
	"github.com/zeakcloud/lynx/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const guildDalName = "guild_dal"

// ErrGuildNotFound is returned when no configuration exists for a guild.
var ErrGuildNotFound = errors.New("guild configuration not found")

type GuildDal interface {
	// SaveGuild saves a guild configuration, overwriting any existing one.
	SaveGuild(ctx context.Context, guild *entities.Guild) error

	// GetGuildByID gets a guild configuration by ID.
	GetGuildByID(ctx context.Context, id string) (*entities.Guild, error)
}

type guildDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewGuildDal creates a new guild data access layer.
func NewGuildDal(l *slog.Logger, client *mongo.Client) GuildDal {
	return &guildDalImpl{
		l:      l.With(slog.String(logging.KeyDal, guildDalName)),
		client: client,
	}
}

func (g *guildDalImpl) SaveGuild(ctx context.Context, guild *entities.Guild) error {
	collection := g.client.Database(mongoDatabase).Collection(guildsCollection)

	monitoring.MongoTotalRequests.WithLabelValues(guildDalName, "save_guild", mongoDatabase, guildsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(guildDalName, "save_guild", mongoDatabase, guildsCollection))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, bson.M{"id": guild.ID}, bson.M{"$set": guild}, opts)
	if err != nil {
		return fmt.Errorf("error updating guild: %w", err)
	}
	return nil
}

func (g *guildDalImpl) GetGuildByID(ctx context.Context, id string) (*entities.Guild, error) {
	collection := g.client.Database(mongoDatabase).Collection(guildsCollection)

	monitoring.MongoTotalRequests.WithLabelValues(guildDalName, "get_guild_by_id", mongoDatabase, guildsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(guildDalName, "get_guild_by_id", mongoDatabase, guildsCollection))
	defer t.ObserveDuration()

	guild := new(entities.Guild)
	err := collection.FindOne(ctx, bson.M{"id": id}).Decode(guild)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrGuildNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	return guild, nil
}
