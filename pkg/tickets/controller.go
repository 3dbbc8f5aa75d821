package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/zeakcloud/lynx/pkg/custom"
	"github.com/zeakcloud/lynx/pkg/dataaccess"
	"github.com/zeakcloud/lynx/pkg/entities"
	"github.com/zeakcloud/lynx/pkg/errorx"
	"github.com/zeakcloud/lynx/pkg/logging"
	"github.com/zeakcloud/lynx/pkg/overlay"
	"github.com/zeakcloud/lynx/pkg/transcript"
)

// defaultControls is the control surface attached to every new ticket.
var defaultControls = []Control{ControlClaim, ControlClose, ControlLock, ControlTranscript}

// Controller is the ticket lifecycle state machine. It holds no entity state
// between calls; every transition is a guarded write on the repository, so
// replays and concurrent actors are safe.
type Controller struct {
	// l is the logger.
	l *slog.Logger

	// guilds is the guild configuration store.
	guilds dataaccess.GuildDal

	// store is the ticket store.
	store dataaccess.TicketDal

	// platform is the messaging platform surface.
	platform Platform

	// overlays manages channel access control.
	overlays *overlay.Manager

	// sched runs deferred channel deletions.
	sched Scheduler

	// operatorID is the bot's own user ID, granted on every ticket channel.
	operatorID string

	// transcriptLimit is the message window for transcripts.
	transcriptLimit int
}

// NewController creates a new ticket lifecycle controller.
func NewController(
	l *slog.Logger,
	guilds dataaccess.GuildDal,
	store dataaccess.TicketDal,
	platform Platform,
	overlays *overlay.Manager,
	sched Scheduler,
	operatorID string,
) *Controller {
	return &Controller{
		l:               l,
		guilds:          guilds,
		store:           store,
		platform:        platform,
		overlays:        overlays,
		sched:           sched,
		operatorID:      operatorID,
		transcriptLimit: transcript.DefaultLimit,
	}
}

// guild loads the guild configuration, mapping a missing record to a
// configuration error.
func (c *Controller) guild(ctx context.Context, guildID string) (*entities.Guild, error) {
	guild, err := c.guilds.GetGuildByID(ctx, guildID)
	if errors.Is(err, dataaccess.ErrGuildNotFound) {
		return nil, errorx.New(errorx.KindConfiguration, "guild %s is not configured", guildID)
	} else if err != nil {
		return nil, errorx.Wrap(errorx.KindExternal, err, "loading guild configuration")
	}
	return guild, nil
}

// requireStaff rejects actors that hold neither a staff role nor the
// administrator permission.
func requireStaff(guild *entities.Guild, actor Actor) error {
	if actor.Admin || guild.IsStaff(actor.RoleIDs) {
		return nil
	}
	return errorx.New(errorx.KindPermission, "user %s is not staff", actor.ID)
}

// Create opens a new ticket for the actor: an access-scoped channel under
// the category's configured parent, plus a persisted OPEN record. The
// one-open-ticket-per-creator invariant is enforced by the repository's
// conditional insert, never by a read-then-write check.
func (c *Controller) Create(ctx context.Context, guildID string, actor Actor, category, reason string) (*CreateResult, error) {
	guild, err := c.guild(ctx, guildID)
	if err != nil {
		return nil, err
	}

	if !guild.Ticketing.Enabled {
		return nil, errorx.New(errorx.KindConfiguration, "ticketing is not enabled for guild %s", guildID)
	}

	parentID, ok := guild.Ticketing.CategoryID(category)
	if !ok {
		return nil, errorx.New(errorx.KindConfiguration, "no channel category is mapped for %q tickets", category)
	}

	// Recover from external drift: a recorded open ticket whose channel was
	// deleted out from under us is closed so the creator is not locked out.
	if existing, err := c.store.GetOpenTicketByCreator(ctx, guildID, actor.ID); err == nil {
		exists, err := c.platform.ChannelExists(ctx, existing.ChannelID)
		if err == nil && !exists {
			if err := c.store.CloseTicket(ctx, guildID, existing.ChannelID, c.operatorID, time.Now()); err != nil && !errors.Is(err, dataaccess.ErrTicketClosed) {
				return nil, errorx.Wrap(errorx.KindExternal, err, "closing stale ticket")
			}
			c.l.Warn("Closed stale ticket with missing channel",
				slog.String(logging.KeyGuild, guildID),
				slog.String(logging.KeyChannel, existing.ChannelID),
			)
		}
	}

	ticket := &entities.Ticket{
		GuildID:     guildID,
		CreatorID:   actor.ID,
		CreatorName: actor.Username,
		Category:    category,
		Reason:      reason,
		Status:      entities.TicketOpen,
		CreatedAt:   custom.Now(),
	}

	channelID, err := c.platform.CreateTicketChannel(ctx, ChannelCreateRequest{
		GuildID:  guildID,
		Name:     ticket.Name(),
		ParentID: parentID,
		Topic:    fmt.Sprintf("Ticket created by %s", actor.Username),
		Overlay:  overlay.ForTicket(guildID, actor.ID, c.operatorID, guild.Ticketing.StaffRoleIDs),
	})
	if err != nil {
		return nil, errorx.Wrap(errorx.KindExternal, err, "creating ticket channel")
	}
	ticket.ChannelID = channelID

	if err := c.store.CreateTicket(ctx, ticket); err != nil {
		if errors.Is(err, dataaccess.ErrOpenTicketExists) {
			// Lost the create race. Remove the channel we just made; the
			// winning ticket keeps its own.
			if derr := c.platform.DeleteChannel(ctx, channelID); derr != nil {
				c.l.Error("Error deleting channel after create conflict",
					slog.String(logging.KeyChannel, channelID),
					slog.String(logging.KeyError, derr.Error()),
				)
			}
			conflict := errorx.New(errorx.KindConflict, "user %s already has an open ticket", actor.ID)
			if existing, gerr := c.store.GetOpenTicketByCreator(ctx, guildID, actor.ID); gerr == nil {
				conflict.WithMeta("channel_id", existing.ChannelID)
			}
			return nil, conflict
		}
		return nil, errorx.Wrap(errorx.KindExternal, err, "persisting ticket")
	}

	c.postLog(ctx, guild, LogEntry{
		Title: "Ticket created",
		Fields: []LogField{
			{Name: "Channel", Value: ticket.ChannelID},
			{Name: "Creator", Value: ticket.CreatorID},
			{Name: "Category", Value: ticket.Category},
			{Name: "Reason", Value: ticket.Reason},
		},
	})

	return &CreateResult{
		Ticket:   ticket,
		Controls: defaultControls,
	}, nil
}

// Claim assigns the ticket to the actor. Exactly one claimant wins; the
// guard is the repository's conditional write on the claim field being
// empty.
func (c *Controller) Claim(ctx context.Context, guildID, channelID string, actor Actor) (*entities.Ticket, error) {
	guild, err := c.guild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if err := requireStaff(guild, actor); err != nil {
		return nil, err
	}

	err = c.store.ClaimTicket(ctx, guildID, channelID, actor.ID)
	switch {
	case errors.Is(err, dataaccess.ErrTicketNotFound):
		return nil, errorx.New(errorx.KindNotFound, "no ticket exists for channel %s", channelID)
	case errors.Is(err, dataaccess.ErrTicketClaimed):
		conflict := errorx.New(errorx.KindConflict, "ticket is already claimed")
		if ticket, gerr := c.store.GetTicketByChannel(ctx, guildID, channelID); gerr == nil {
			conflict.WithMeta("claimed_by", ticket.ClaimedBy)
		}
		return nil, conflict
	case err != nil:
		return nil, errorx.Wrap(errorx.KindExternal, err, "claiming ticket")
	}

	ticket, err := c.store.GetTicketByChannel(ctx, guildID, channelID)
	if err != nil {
		return nil, errorx.Wrap(errorx.KindExternal, err, "reading claimed ticket")
	}
	return ticket, nil
}

// Close transitions the ticket to CLOSED and performs the closure side
// effects: transcript, log post, creator notification, write revocation and
// deferred channel deletion. The guarded status transition runs first, so
// only the winning closer performs side effects; a replay gets a no-op
// success.
func (c *Controller) Close(ctx context.Context, guildID, channelID string, actor Actor) (*CloseResult, error) {
	guild, err := c.guild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if err := requireStaff(guild, actor); err != nil {
		return nil, err
	}

	err = c.store.CloseTicket(ctx, guildID, channelID, actor.ID, time.Now())
	switch {
	case errors.Is(err, dataaccess.ErrTicketNotFound):
		return nil, errorx.New(errorx.KindNotFound, "no ticket exists for channel %s", channelID)
	case errors.Is(err, dataaccess.ErrTicketClosed):
		ticket, gerr := c.store.GetTicketByChannel(ctx, guildID, channelID)
		if gerr != nil {
			return nil, errorx.Wrap(errorx.KindExternal, gerr, "reading closed ticket")
		}
		return &CloseResult{Ticket: ticket, AlreadyClosed: true}, nil
	case err != nil:
		return nil, errorx.Wrap(errorx.KindExternal, err, "closing ticket")
	}

	ticket, err := c.store.GetTicketByChannel(ctx, guildID, channelID)
	if err != nil {
		return nil, errorx.Wrap(errorx.KindExternal, err, "reading closed ticket")
	}

	doc := c.generateTranscript(ctx, ticket, actor.Username)

	res := &CloseResult{
		Ticket:      ticket,
		Transcript:  doc,
		DeleteAfter: guild.Ticketing.CloseDelay(),
	}

	res.LogPosted = c.postLog(ctx, guild, LogEntry{
		Title: "Ticket closed",
		Fields: []LogField{
			{Name: "Channel", Value: ticket.ChannelID},
			{Name: "Creator", Value: ticket.CreatorID},
			{Name: "Closed by", Value: actor.ID},
			{Name: "Category", Value: ticket.Category},
			{Name: "Reason", Value: ticket.Reason},
		},
		Transcript:     doc,
		TranscriptName: transcriptName(ticket),
	})

	// Best effort: a creator with closed DMs must not abort the close.
	if err := c.platform.NotifyClosed(ctx, ticket.CreatorID, ticket, doc); err != nil {
		c.l.Warn("Error notifying ticket creator of closure",
			slog.String(logging.KeyUser, ticket.CreatorID),
			slog.String(logging.KeyError, err.Error()),
		)
	} else {
		res.CreatorNotified = true
	}

	if err := c.overlays.RevokeWrite(ctx, channelID, ticket.CreatorID); err != nil {
		c.l.Warn("Error revoking creator write access",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	c.sched.Schedule("delete-"+channelID, res.DeleteAfter, func(ctx context.Context) {
		if err := c.platform.DeleteChannel(ctx, channelID); err != nil {
			c.l.Error("Error deleting closed ticket channel",
				slog.String(logging.KeyChannel, channelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	})

	return res, nil
}

// Rate records the creator's 1-5 rating for a closed ticket. Set at most
// once; a replay reports the existing rating back.
func (c *Controller) Rate(ctx context.Context, guildID, channelID string, rater Actor, score int) (*RateResult, error) {
	ticket, err := c.store.GetTicketByChannel(ctx, guildID, channelID)
	if errors.Is(err, dataaccess.ErrTicketNotFound) {
		return nil, errorx.New(errorx.KindNotFound, "no ticket exists for channel %s", channelID)
	} else if err != nil {
		return nil, errorx.Wrap(errorx.KindExternal, err, "reading ticket")
	}

	if rater.ID != ticket.CreatorID {
		return nil, errorx.New(errorx.KindPermission, "only the ticket creator can rate it")
	}
	if score < 1 || score > 5 {
		return nil, errorx.New(errorx.KindValidation, "rating must be between 1 and 5, got %d", score)
	}

	err = c.store.RateTicket(ctx, guildID, channelID, score, time.Now())
	switch {
	case errors.Is(err, dataaccess.ErrTicketNotClosed):
		return nil, errorx.New(errorx.KindConflict, "the ticket is not closed yet")
	case errors.Is(err, dataaccess.ErrTicketRated):
		conflict := errorx.New(errorx.KindConflict, "ticket is already rated")
		if rated, gerr := c.store.GetTicketByChannel(ctx, guildID, channelID); gerr == nil {
			conflict.WithMeta("rating", strconv.Itoa(rated.Rating))
		}
		return nil, conflict
	case errors.Is(err, dataaccess.ErrTicketNotFound):
		return nil, errorx.New(errorx.KindNotFound, "no ticket exists for channel %s", channelID)
	case err != nil:
		return nil, errorx.Wrap(errorx.KindExternal, err, "rating ticket")
	}

	rated, err := c.store.GetTicketByChannel(ctx, guildID, channelID)
	if err != nil {
		return nil, errorx.Wrap(errorx.KindExternal, err, "reading rated ticket")
	}

	if guild, gerr := c.guilds.GetGuildByID(ctx, guildID); gerr == nil {
		c.postLog(ctx, guild, LogEntry{
			Title: "Ticket rated",
			Fields: []LogField{
				{Name: "Channel", Value: rated.ChannelID},
				{Name: "Creator", Value: rated.CreatorID},
				{Name: "Rating", Value: fmt.Sprintf("%d/5", rated.Rating)},
			},
		})
	}

	return &RateResult{Ticket: rated}, nil
}

// ToggleLock flips the creator's write access on the ticket channel and
// reports whether it is now locked.
func (c *Controller) ToggleLock(ctx context.Context, guildID, channelID string, actor Actor) (bool, error) {
	guild, err := c.guild(ctx, guildID)
	if err != nil {
		return false, err
	}
	if err := requireStaff(guild, actor); err != nil {
		return false, err
	}

	ticket, err := c.store.GetTicketByChannel(ctx, guildID, channelID)
	if errors.Is(err, dataaccess.ErrTicketNotFound) {
		return false, errorx.New(errorx.KindNotFound, "no ticket exists for channel %s", channelID)
	} else if err != nil {
		return false, errorx.Wrap(errorx.KindExternal, err, "reading ticket")
	}

	locked, err := c.overlays.ToggleLock(ctx, channelID, ticket.CreatorID)
	if err != nil {
		return false, errorx.Wrap(errorx.KindExternal, err, "toggling lock")
	}
	return locked, nil
}

// Transcript generates the ticket's transcript on demand without closing it.
func (c *Controller) Transcript(ctx context.Context, guildID, channelID string, actor Actor) ([]byte, error) {
	guild, err := c.guild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if err := requireStaff(guild, actor); err != nil {
		return nil, err
	}

	ticket, err := c.store.GetTicketByChannel(ctx, guildID, channelID)
	if errors.Is(err, dataaccess.ErrTicketNotFound) {
		return nil, errorx.New(errorx.KindNotFound, "no ticket exists for channel %s", channelID)
	} else if err != nil {
		return nil, errorx.Wrap(errorx.KindExternal, err, "reading ticket")
	}

	return c.generateTranscript(ctx, ticket, actor.Username), nil
}

// generateTranscript fetches the channel's bounded history and renders it.
// A failed fetch degrades to a transcript with no messages.
func (c *Controller) generateTranscript(ctx context.Context, ticket *entities.Ticket, closer string) []byte {
	msgs, err := c.platform.RecentMessages(ctx, ticket.ChannelID, c.transcriptLimit)
	if err != nil {
		c.l.Warn("Error fetching messages for transcript",
			slog.String(logging.KeyChannel, ticket.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
		msgs = nil
	}

	closedAt := ticket.ClosedAt.Time()
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}

	return transcript.Generate(transcript.Header{
		Channel:  ticket.Name(),
		Category: ticket.Category,
		Creator:  ticket.CreatorID,
		Closer:   closer,
		Reason:   ticket.Reason,
		ClosedAt: closedAt,
	}, msgs, c.transcriptLimit)
}

// postLog delivers a log entry to the guild's log channel, if configured.
// Best effort; failure never aborts the operation.
func (c *Controller) postLog(ctx context.Context, guild *entities.Guild, entry LogEntry) bool {
	if guild.Ticketing.LogChannelID == "" {
		return false
	}
	if err := c.platform.PostLog(ctx, guild.Ticketing.LogChannelID, entry); err != nil {
		c.l.Warn("Error posting to log channel",
			slog.String(logging.KeyGuild, guild.ID),
			slog.String(logging.KeyChannel, guild.Ticketing.LogChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
		return false
	}
	return true
}

// transcriptName returns the artifact file name for a ticket transcript.
func transcriptName(ticket *entities.Ticket) string {
	return fmt.Sprintf("transcript-%s.txt", ticket.Name())
}
