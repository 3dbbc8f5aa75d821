package tickets

import (
	"context"
	"time"

	"github.com/zeakcloud/lynx/pkg/entities"
	"github.com/zeakcloud/lynx/pkg/overlay"
	"github.com/zeakcloud/lynx/pkg/transcript"
)

// Actor is the user performing an operation, with everything the controller
// needs for authority checks.
type Actor struct {
	// ID is the user's ID.
	ID string

	// Username is the user's name, used for channel naming and transcripts.
	Username string

	// RoleIDs are the user's role IDs in the guild.
	RoleIDs []string

	// Admin is whether the user holds the administrator permission.
	Admin bool
}

// Control is an affordance the notification layer should attach to a ticket
// channel's control message.
type Control string

const (
	// ControlClaim lets a staff member take ownership of the ticket.
	ControlClaim Control = "claim"

	// ControlClose closes the ticket.
	ControlClose Control = "close"

	// ControlLock toggles the creator's write access.
	ControlLock Control = "lock"

	// ControlTranscript produces a transcript without closing.
	ControlTranscript Control = "transcript"
)

// LogField is one name/value pair in a log entry.
type LogField struct {
	Name  string
	Value string
}

// LogEntry is a structured record for the guild's log destination. The
// controller decides what to log; the platform layer decides how it looks.
type LogEntry struct {
	// Title is the headline of the entry.
	Title string

	// Fields are the entry's details, in order.
	Fields []LogField

	// Transcript is an optional transcript artifact to attach.
	Transcript []byte

	// TranscriptName is the artifact's file name.
	TranscriptName string
}

// ChannelCreateRequest asks the platform for a new access-scoped text
// channel.
type ChannelCreateRequest struct {
	// GuildID is the guild to create the channel in.
	GuildID string

	// Name is the channel name.
	Name string

	// ParentID is the channel category to create the channel under.
	ParentID string

	// Topic is the channel topic.
	Topic string

	// Overlay is the access control state for the channel.
	Overlay overlay.Overlay
}

// Platform is the messaging-platform surface the controller drives. It is
// the only way the controller touches the outside world.
type Platform interface {
	// CreateTicketChannel creates an access-scoped text channel and returns
	// its ID.
	CreateTicketChannel(ctx context.Context, req ChannelCreateRequest) (string, error)

	// ChannelExists reports whether a channel still exists.
	ChannelExists(ctx context.Context, channelID string) (bool, error)

	// DeleteChannel deletes a channel. Deleting a channel that is already
	// gone is not an error.
	DeleteChannel(ctx context.Context, channelID string) error

	// RecentMessages returns up to limit most recent messages of a channel
	// in chronological order.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]transcript.Message, error)

	// PostLog delivers a log entry to the guild's log channel.
	PostLog(ctx context.Context, logChannelID string, entry LogEntry) error

	// NotifyClosed delivers the transcript and a rating prompt directly to
	// the ticket creator.
	NotifyClosed(ctx context.Context, userID string, ticket *entities.Ticket, transcriptDoc []byte) error
}

// Scheduler runs a deferred action after a delay. Tasks are fire-and-forget
// and must be idempotent; a process restart loses pending tasks.
type Scheduler interface {
	Schedule(name string, delay time.Duration, task func(ctx context.Context))
}

// CreateResult is the controller's decision after creating a ticket.
type CreateResult struct {
	// Ticket is the new ticket.
	Ticket *entities.Ticket

	// Controls is the control surface to attach to the ticket channel.
	Controls []Control
}

// CloseResult is the controller's decision after closing a ticket.
type CloseResult struct {
	// Ticket is the closed ticket.
	Ticket *entities.Ticket

	// AlreadyClosed is whether this call was a no-op replay.
	AlreadyClosed bool

	// Transcript is the generated transcript document.
	Transcript []byte

	// LogPosted is whether the log destination received the closure.
	LogPosted bool

	// CreatorNotified is whether the creator received the transcript DM.
	CreatorNotified bool

	// DeleteAfter is the delay before the channel is deleted.
	DeleteAfter time.Duration
}

// RateResult is the controller's decision after recording a rating.
type RateResult struct {
	// Ticket is the rated ticket.
	Ticket *entities.Ticket
}
