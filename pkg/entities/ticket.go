package entities

import (
	"fmt"
	"strings"

	"github.com/zeakcloud/lynx/pkg/custom"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	// TicketOpen is an open ticket.
	TicketOpen TicketStatus = "OPEN"

	// TicketClosed is a closed ticket. Terminal.
	TicketClosed TicketStatus = "CLOSED"
)

// Ticket is a tracked support conversation. The channel ID is the key; at
// most one OPEN ticket exists per (guild, creator).
type Ticket struct {
	// ChannelID is the ID of the ticket channel. Unique.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// GuildID is the ID of the guild the ticket is in.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// CreatorID is the ID of the user that created the ticket.
	CreatorID string `json:"creator_id" bson:"creator_id"`

	// CreatorName is the username of the creator at creation time.
	CreatorName string `json:"creator_name" bson:"creator_name"`

	// Category is the ticket category name.
	Category string `json:"category" bson:"category"`

	// Reason is the free-text reason given when the ticket was opened.
	Reason string `json:"reason" bson:"reason"`

	// ClaimedBy is the ID of the staff member that claimed the ticket.
	// Empty until claimed; set exactly once.
	ClaimedBy string `json:"claimed_by" bson:"claimed_by"`

	// ClosedBy is the ID of the user that closed the ticket.
	ClosedBy string `json:"closed_by" bson:"closed_by"`

	// Status is the lifecycle state.
	Status TicketStatus `json:"status" bson:"status"`

	// Rating is the creator's 1-5 rating. Zero until rated; set at most once.
	Rating int `json:"rating" bson:"rating"`

	// SetupMessageID is the ID of the pinned control message.
	SetupMessageID string `json:"setup_message_id" bson:"setup_message_id"`

	// CreatedAt is when the ticket was created.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`

	// ClosedAt is when the ticket was closed.
	ClosedAt custom.Datetime `json:"closed_at,omitempty" bson:"closed_at,omitempty"`

	// RatedAt is when the ticket was rated.
	RatedAt custom.Datetime `json:"rated_at,omitempty" bson:"rated_at,omitempty"`
}

// Name returns the channel name for the ticket, e.g. "support-mira".
func (t *Ticket) Name() string {
	name := fmt.Sprintf("%s-%s", t.Category, t.CreatorName)
	name = strings.ToLower(name)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, name)
}

// IsClaimed reports whether the ticket has been claimed.
func (t *Ticket) IsClaimed() bool {
	return t.ClaimedBy != ""
}

// IsClosed reports whether the ticket is closed.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketClosed
}

// IsRated reports whether the creator has rated the ticket.
func (t *Ticket) IsRated() bool {
	return t.Rating != 0
}
