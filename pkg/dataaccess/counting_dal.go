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

const countingDalName = "counting_dal"

var (
	// ErrCountingNotFound is returned when no counting record exists for a
	// channel.
	ErrCountingNotFound = errors.New("counting record not found")

	// ErrCountConflict is returned when the advance guard fails: the stored
	// sequence moved on, or the submitting user posted the previous number.
	ErrCountConflict = errors.New("count advance guard failed")
)

// CountingDal is the durable store of per-channel counting state. Advance is
// the only mutation used on the hot path and is a single guarded update.
type CountingDal interface {
	// Ensure creates the counting record if it does not exist and returns
	// the current record either way. The create is conditional, so two
	// concurrent first submissions converge on one record.
	Ensure(ctx context.Context, guildID, channelID string, lastNumber int64) (*entities.Counting, error)

	// Get gets the counting record for a channel.
	Get(ctx context.Context, guildID, channelID string) (*entities.Counting, error)

	// Advance accepts number for user, guarded on the stored last number
	// still being number-1 and the last user not being user. Returns the
	// record after the update.
	Advance(ctx context.Context, guildID, channelID, userID string, number int64) (*entities.Counting, error)

	// SetCount force-sets the sequence position and clears the streak.
	// Administrative use.
	SetCount(ctx context.Context, guildID, channelID, userID string, lastNumber int64) error

	// ResetIf rewinds the sequence to lastNumber only if the stored last
	// number still equals observed. Used by the reset-on-wrong policy so
	// racing resets cannot clobber a concurrent legitimate advance.
	ResetIf(ctx context.Context, guildID, channelID string, observed, lastNumber int64) error

	// Delete removes the counting record for a channel.
	Delete(ctx context.Context, guildID, channelID string) error
}

type countingDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewCountingDal creates a new counting data access layer.
func NewCountingDal(l *slog.Logger, client *mongo.Client) CountingDal {
	return &countingDalImpl{
		l:      l.With(slog.String(logging.KeyDal, countingDalName)),
		client: client,
	}
}

func (d *countingDalImpl) collection() *mongo.Collection {
	return d.client.Database(mongoDatabase).Collection(countingCollection)
}

func (d *countingDalImpl) observe(query string) *prometheus.Timer {
	monitoring.MongoTotalRequests.WithLabelValues(countingDalName, query, mongoDatabase, countingCollection).Inc()
	return prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(countingDalName, query, mongoDatabase, countingCollection))
}

func (d *countingDalImpl) Ensure(ctx context.Context, guildID, channelID string, lastNumber int64) (*entities.Counting, error) {
	t := d.observe("ensure")
	defer t.ObserveDuration()

	filter := bson.M{"guild_id": guildID, "channel_id": channelID}
	update := bson.M{"$setOnInsert": &entities.Counting{
		GuildID:    guildID,
		ChannelID:  channelID,
		LastNumber: lastNumber,
		LastUserID: "",
		Streak:     0,
		Counts:     map[string]int64{},
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	record := new(entities.Counting)
	if err := d.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(record); err != nil {
		return nil, fmt.Errorf("error ensuring counting record: %w", err)
	}
	return record, nil
}

func (d *countingDalImpl) Get(ctx context.Context, guildID, channelID string) (*entities.Counting, error) {
	t := d.observe("get")
	defer t.ObserveDuration()

	record := new(entities.Counting)
	err := d.collection().FindOne(ctx, bson.M{
		"guild_id":   guildID,
		"channel_id": channelID,
	}).Decode(record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCountingNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting counting record: %w", err)
	}
	return record, nil
}

func (d *countingDalImpl) Advance(ctx context.Context, guildID, channelID, userID string, number int64) (*entities.Counting, error) {
	t := d.observe("advance")
	defer t.ObserveDuration()

	// The filter is the whole guard: the sequence must still sit one below
	// the submitted number and the previous number must have come from a
	// different user. Exactly one concurrent submitter can match.
	filter := bson.M{
		"guild_id":     guildID,
		"channel_id":   channelID,
		"last_number":  number - 1,
		"last_user_id": bson.M{"$ne": userID},
	}
	update := bson.M{
		"$set": bson.M{"last_number": number, "last_user_id": userID},
		"$inc": bson.M{"streak": 1, "counts." + userID: 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	record := new(entities.Counting)
	err := d.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		monitoring.MongoGuardRejections.WithLabelValues(countingDalName, "advance").Inc()
		return nil, ErrCountConflict
	} else if err != nil {
		return nil, fmt.Errorf("error advancing count: %w", err)
	}
	return record, nil
}

func (d *countingDalImpl) SetCount(ctx context.Context, guildID, channelID, userID string, lastNumber int64) error {
	t := d.observe("set_count")
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := d.collection().UpdateOne(ctx,
		bson.M{"guild_id": guildID, "channel_id": channelID},
		bson.M{"$set": bson.M{
			"last_number":  lastNumber,
			"last_user_id": userID,
			"streak":       int64(0),
		}}, opts)
	if err != nil {
		return fmt.Errorf("error setting count: %w", err)
	}
	return nil
}

func (d *countingDalImpl) ResetIf(ctx context.Context, guildID, channelID string, observed, lastNumber int64) error {
	t := d.observe("reset_if")
	defer t.ObserveDuration()

	res, err := d.collection().UpdateOne(ctx,
		bson.M{
			"guild_id":    guildID,
			"channel_id":  channelID,
			"last_number": observed,
		},
		bson.M{"$set": bson.M{
			"last_number":  lastNumber,
			"last_user_id": "",
			"streak":       int64(0),
		}})
	if err != nil {
		return fmt.Errorf("error resetting count: %w", err)
	}
	if res.MatchedCount == 0 {
		// The sequence moved on; the reset no longer applies.
		monitoring.MongoGuardRejections.WithLabelValues(countingDalName, "reset_if").Inc()
	}
	return nil
}

func (d *countingDalImpl) Delete(ctx context.Context, guildID, channelID string) error {
	t := d.observe("delete")
	defer t.ObserveDuration()

	_, err := d.collection().DeleteOne(ctx, bson.M{"guild_id": guildID, "channel_id": channelID})
	if err != nil {
		return fmt.Errorf("error deleting counting record: %w", err)
	}
	return nil
}
