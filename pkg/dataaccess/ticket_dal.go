package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zeakcloud/lynx/pkg/custom"
	"github.com/zeakcloud/lynx/pkg/dataaccess/monitoring"
	"github.com/zeakcloud/lynx/pkg/entities"
	"github.com/zeakcloud/lynx/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ticketDalName = "ticket_dal"

var (
	// ErrTicketNotFound is returned when no ticket exists for a channel.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrOpenTicketExists is returned by CreateTicket when the creator
	// already has an open ticket in the guild.
	ErrOpenTicketExists = errors.New("creator already has an open ticket")

	// ErrTicketClaimed is returned when the claim guard fails because the
	// ticket is already claimed.
	ErrTicketClaimed = errors.New("ticket already claimed")

	// ErrTicketClosed is returned when the close guard fails because the
	// ticket is already closed.
	ErrTicketClosed = errors.New("ticket already closed")

	// ErrTicketRated is returned when the rating guard fails because a
	// rating is already recorded.
	ErrTicketRated = errors.New("ticket already rated")

	// ErrTicketNotClosed is returned when a rating is submitted for a
	// ticket that is still open.
	ErrTicketNotClosed = errors.New("ticket is not closed")
)

// TicketDal is the durable store of tickets. All state transitions are
// conditional writes; a guard that matches no document returns the relevant
// sentinel error instead of silently overwriting.
type TicketDal interface {
	// CreateTicket inserts the ticket only if the creator has no open
	// ticket in the guild. The check and insert are one atomic upsert.
	CreateTicket(ctx context.Context, ticket *entities.Ticket) error

	// GetTicketByChannel gets the ticket for a channel.
	GetTicketByChannel(ctx context.Context, guildID, channelID string) (*entities.Ticket, error)

	// GetOpenTicketByCreator gets the creator's open ticket, if any.
	GetOpenTicketByCreator(ctx context.Context, guildID, creatorID string) (*entities.Ticket, error)

	// ClaimTicket sets the claimant, guarded on the ticket being unclaimed.
	ClaimTicket(ctx context.Context, guildID, channelID, userID string) error

	// CloseTicket transitions OPEN to CLOSED, guarded on the ticket being open.
	CloseTicket(ctx context.Context, guildID, channelID, closedBy string, at time.Time) error

	// RateTicket records the creator's rating, guarded on no rating existing.
	RateTicket(ctx context.Context, guildID, channelID string, rating int, at time.Time) error

	// SetSetupMessage records the pinned control message for a ticket
	// channel. It writes only that field, so a lifecycle transition that
	// lands while the message is still being sent is left untouched.
	SetSetupMessage(ctx context.Context, guildID, channelID, messageID string) error
}

type ticketDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal(l *slog.Logger, client *mongo.Client) TicketDal {
	return &ticketDalImpl{
		l:      l.With(slog.String(logging.KeyDal, ticketDalName)),
		client: client,
	}
}

func (d *ticketDalImpl) collection() *mongo.Collection {
	return d.client.Database(mongoDatabase).Collection(ticketsCollection)
}

func (d *ticketDalImpl) observe(query string) *prometheus.Timer {
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, query, mongoDatabase, ticketsCollection).Inc()
	return prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, query, mongoDatabase, ticketsCollection))
}

func (d *ticketDalImpl) CreateTicket(ctx context.Context, ticket *entities.Ticket) error {
	t := d.observe("create_ticket")
	defer t.ObserveDuration()

	// Upsert keyed on the open-ticket identity. If a document matches, the
	// creator already has an open ticket and nothing is written; if none
	// matches, the new ticket is inserted. Single round trip, no
	// read-then-write window.
	filter := bson.M{
		"guild_id":   ticket.GuildID,
		"creator_id": ticket.CreatorID,
		"status":     entities.TicketOpen,
	}
	update := bson.M{"$setOnInsert": ticket}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	err := d.collection().FindOneAndUpdate(ctx, filter, update, opts).Err()
	if err == nil {
		// A document already matched the open-ticket key.
		monitoring.MongoGuardRejections.WithLabelValues(ticketDalName, "create_ticket").Inc()
		return ErrOpenTicketExists
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Nothing existed before the upsert; the ticket was inserted.
		return nil
	}
	return fmt.Errorf("error creating ticket: %w", err)
}

func (d *ticketDalImpl) GetTicketByChannel(ctx context.Context, guildID, channelID string) (*entities.Ticket, error) {
	t := d.observe("get_ticket_by_channel")
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := d.collection().FindOne(ctx, bson.M{
		"guild_id":   guildID,
		"channel_id": channelID,
	}).Decode(ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTicketNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDalImpl) GetOpenTicketByCreator(ctx context.Context, guildID, creatorID string) (*entities.Ticket, error) {
	t := d.observe("get_open_ticket_by_creator")
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := d.collection().FindOne(ctx, bson.M{
		"guild_id":   guildID,
		"creator_id": creatorID,
		"status":     entities.TicketOpen,
	}).Decode(ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTicketNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting open ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDalImpl) ClaimTicket(ctx context.Context, guildID, channelID, userID string) error {
	t := d.observe("claim_ticket")
	defer t.ObserveDuration()

	res, err := d.collection().UpdateOne(ctx,
		bson.M{
			"guild_id":   guildID,
			"channel_id": channelID,
			"claimed_by": "",
		},
		bson.M{"$set": bson.M{"claimed_by": userID}},
	)
	if err != nil {
		return fmt.Errorf("error claiming ticket: %w", err)
	}
	if res.MatchedCount == 0 {
		monitoring.MongoGuardRejections.WithLabelValues(ticketDalName, "claim_ticket").Inc()
		// Either the ticket does not exist or it is already claimed.
		if _, err := d.GetTicketByChannel(ctx, guildID, channelID); err != nil {
			return err
		}
		return ErrTicketClaimed
	}
	return nil
}

func (d *ticketDalImpl) CloseTicket(ctx context.Context, guildID, channelID, closedBy string, at time.Time) error {
	t := d.observe("close_ticket")
	defer t.ObserveDuration()

	closedAt := custom.Datetime(at.UTC())
	res, err := d.collection().UpdateOne(ctx,
		bson.M{
			"guild_id":   guildID,
			"channel_id": channelID,
			"status":     entities.TicketOpen,
		},
		bson.M{"$set": bson.M{
			"status":    entities.TicketClosed,
			"closed_by": closedBy,
			"closed_at": &closedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("error closing ticket: %w", err)
	}
	if res.MatchedCount == 0 {
		monitoring.MongoGuardRejections.WithLabelValues(ticketDalName, "close_ticket").Inc()
		if _, err := d.GetTicketByChannel(ctx, guildID, channelID); err != nil {
			return err
		}
		return ErrTicketClosed
	}
	return nil
}

func (d *ticketDalImpl) RateTicket(ctx context.Context, guildID, channelID string, rating int, at time.Time) error {
	t := d.observe("rate_ticket")
	defer t.ObserveDuration()

	ratedAt := custom.Datetime(at.UTC())
	res, err := d.collection().UpdateOne(ctx,
		bson.M{
			"guild_id":   guildID,
			"channel_id": channelID,
			"status":     entities.TicketClosed,
			"rating":     0,
		},
		bson.M{"$set": bson.M{
			"rating":   rating,
			"rated_at": &ratedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("error rating ticket: %w", err)
	}
	if res.MatchedCount == 0 {
		monitoring.MongoGuardRejections.WithLabelValues(ticketDalName, "rate_ticket").Inc()
		ticket, err := d.GetTicketByChannel(ctx, guildID, channelID)
		if err != nil {
			return err
		}
		if !ticket.IsClosed() {
			return ErrTicketNotClosed
		}
		return ErrTicketRated
	}
	return nil
}

func (d *ticketDalImpl) SetSetupMessage(ctx context.Context, guildID, channelID, messageID string) error {
	t := d.observe("set_setup_message")
	defer t.ObserveDuration()

	res, err := d.collection().UpdateOne(ctx,
		bson.M{"guild_id": guildID, "channel_id": channelID},
		bson.M{"$set": bson.M{"setup_message_id": messageID}},
	)
	if err != nil {
		return fmt.Errorf("error recording setup message: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrTicketNotFound
	}
	return nil
}
