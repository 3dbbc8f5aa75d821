package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/zeakcloud/lynx/pkg/entities"
	"github.com/zeakcloud/lynx/pkg/overlay"
	"github.com/zeakcloud/lynx/pkg/tickets"
	"github.com/zeakcloud/lynx/pkg/transcript"
	"golang.org/x/time/rate"
)

// Outbound REST calls are throttled below Discord's global limit so a close
// burst (log post, DM, permission edits) cannot trip a 429.
const (
	sendRate  = rate.Limit(20)
	sendBurst = 5
)

// discordPlatform is the discord-facing side-effect surface for the ticket
// controller and the overlay manager.
type discordPlatform struct {
	// l is the logger.
	l *slog.Logger

	// s is the discord session.
	s *discordgo.Session

	// limiter throttles outbound REST calls.
	limiter *rate.Limiter
}

func newDiscordPlatform(l *slog.Logger, s *discordgo.Session) *discordPlatform {
	return &discordPlatform{
		l:       l,
		s:       s,
		limiter: rate.NewLimiter(sendRate, sendBurst),
	}
}

func (p *discordPlatform) wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("error waiting for send slot: %w", err)
	}
	return nil
}

// CreateTicketChannel creates the ticket's text channel with its access
// overwrites applied in the one creation request.
func (p *discordPlatform) CreateTicketChannel(ctx context.Context, req tickets.ChannelCreateRequest) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}

	channel, err := p.s.GuildChannelCreateComplex(req.GuildID, discordgo.GuildChannelCreateData{
		Name:                 req.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                req.Topic,
		ParentID:             req.ParentID,
		PermissionOverwrites: overwritesFor(req.Overlay),
	})
	if err != nil {
		return "", fmt.Errorf("error creating channel: %w", err)
	}
	return channel.ID, nil
}

// overwritesFor converts an overlay into discord permission overwrites:
// everyone denied, every grant allowed all text permissions bar mentioning
// everyone.
func overwritesFor(o overlay.Overlay) []*discordgo.PermissionOverwrite {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(o.Grants)+1)
	overwrites = append(overwrites, &discordgo.PermissionOverwrite{
		ID:   o.EveryoneID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: discordgo.PermissionAll,
	})
	for _, grant := range o.Grants {
		overwriteType := discordgo.PermissionOverwriteTypeMember
		if grant.Type == overlay.SubjectRole {
			overwriteType = discordgo.PermissionOverwriteTypeRole
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    grant.ID,
			Type:  overwriteType,
			Allow: discordgo.PermissionAllText,
			Deny:  discordgo.PermissionMentionEveryone,
		})
	}
	return overwrites
}

func (p *discordPlatform) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	if err := p.wait(ctx); err != nil {
		return false, err
	}

	if _, err := p.s.Channel(channelID); err != nil {
		restErr := new(discordgo.RESTError)
		if errors.As(err, &restErr) && (restErr.Message.Code == discordgo.ErrCodeUnknownChannel || restErr.Message.Code == discordgo.ErrCodeGeneralError) {
			return false, nil
		}
		return false, fmt.Errorf("error getting channel: %w", err)
	}
	return true, nil
}

func (p *discordPlatform) DeleteChannel(ctx context.Context, channelID string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}

	if _, err := p.s.ChannelDelete(channelID); err != nil {
		restErr := new(discordgo.RESTError)
		if errors.As(err, &restErr) && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			// Already gone.
			return nil
		}
		return fmt.Errorf("error deleting channel: %w", err)
	}
	return nil
}

// React adds an emoji reaction to a message.
func (p *discordPlatform) React(ctx context.Context, channelID, messageID, emoji string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}

	if err := p.s.MessageReactionAdd(channelID, messageID, emoji); err != nil {
		return fmt.Errorf("error adding reaction: %w", err)
	}
	return nil
}

// RemoveMessage deletes a message. A message that is already gone is not an
// error.
func (p *discordPlatform) RemoveMessage(ctx context.Context, channelID, messageID string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}

	if err := p.s.ChannelMessageDelete(channelID, messageID); err != nil {
		restErr := new(discordgo.RESTError)
		if errors.As(err, &restErr) && restErr.Message.Code == discordgo.ErrCodeUnknownMessage {
			return nil
		}
		return fmt.Errorf("error deleting message: %w", err)
	}
	return nil
}

// SendText posts a plain text message and returns its ID.
func (p *discordPlatform) SendText(ctx context.Context, channelID, content string) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}

	msg, err := p.s.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", fmt.Errorf("error sending message: %w", err)
	}
	return msg.ID, nil
}

// RecentMessages fetches up to limit messages and returns them oldest first.
func (p *discordPlatform) RecentMessages(ctx context.Context, channelID string, limit int) ([]transcript.Message, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	msgs, err := p.s.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("error getting channel messages: %w", err)
	}

	// The API returns newest first.
	out := make([]transcript.Message, 0, len(msgs))
	for idx := len(msgs) - 1; idx >= 0; idx-- {
		m := msgs[idx]
		if m.Author == nil {
			continue
		}

		attachments := make([]string, 0, len(m.Attachments))
		for _, att := range m.Attachments {
			attachments = append(attachments, att.URL)
		}

		out = append(out, transcript.Message{
			Author:      m.Author.Username,
			Timestamp:   m.Timestamp,
			Content:     m.Content,
			Attachments: attachments,
		})
	}
	return out, nil
}

// PostLog renders a log entry as an embed in the guild's log channel,
// attaching the transcript when the entry carries one.
func (p *discordPlatform) PostLog(ctx context.Context, logChannelID string, entry tickets.LogEntry) error {
	if err := p.wait(ctx); err != nil {
		return err
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(entry.Fields))
	for _, f := range entry.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}

	send := &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title:  entry.Title,
			Fields: fields,
		},
	}
	if len(entry.Transcript) > 0 {
		send.Files = []*discordgo.File{
			{
				Name:        entry.TranscriptName,
				ContentType: "text/plain",
				Reader:      bytes.NewReader(entry.Transcript),
			},
		}
	}

	if _, err := p.s.ChannelMessageSendComplex(logChannelID, send); err != nil {
		return fmt.Errorf("error sending log message: %w", err)
	}
	return nil
}

// NotifyClosed DMs the ticket creator the transcript along with the five
// rating buttons.
func (p *discordPlatform) NotifyClosed(ctx context.Context, userID string, ticket *entities.Ticket, transcriptDoc []byte) error {
	if err := p.wait(ctx); err != nil {
		return err
	}

	dm, err := p.s.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("error creating DM channel: %w", err)
	}

	row := discordgo.ActionsRow{}
	for score := 1; score <= 5; score++ {
		row.Components = append(row.Components, discordgo.Button{
			Label:    fmt.Sprintf("%d", score),
			Style:    discordgo.SecondaryButton,
			CustomID: fmt.Sprintf("%s:%d:%s:%s", rateTicketButtonID, score, ticket.ChannelID, ticket.GuildID),
		})
	}

	send := &discordgo.MessageSend{
		Content: fmt.Sprintf("Your ticket **%s** has been closed. A transcript is attached.\nHow would you rate the support you received?", ticket.Name()),
		Components: []discordgo.MessageComponent{
			row,
		},
	}
	if len(transcriptDoc) > 0 {
		send.Files = []*discordgo.File{transcriptFile(ticket.ChannelID, transcriptDoc)}
	}

	if _, err := p.s.ChannelMessageSendComplex(dm.ID, send); err != nil {
		return fmt.Errorf("error sending DM: %w", err)
	}
	return nil
}

// Apply sets the channel's overlay entry by entry.
func (p *discordPlatform) Apply(ctx context.Context, channelID string, o overlay.Overlay) error {
	for _, ow := range overwritesFor(o) {
		if err := p.wait(ctx); err != nil {
			return err
		}
		if err := p.s.ChannelPermissionSet(channelID, ow.ID, ow.Type, ow.Allow, ow.Deny); err != nil {
			return fmt.Errorf("error setting channel permission: %w", err)
		}
	}
	return nil
}

// CanWrite reports whether the user can currently send messages in the
// channel, read from the channel's own overwrites.
func (p *discordPlatform) CanWrite(ctx context.Context, channelID, userID string) (bool, error) {
	if err := p.wait(ctx); err != nil {
		return false, err
	}

	channel, err := p.s.Channel(channelID)
	if err != nil {
		return false, fmt.Errorf("error getting channel: %w", err)
	}

	for _, ow := range channel.PermissionOverwrites {
		if ow.Type != discordgo.PermissionOverwriteTypeMember || ow.ID != userID {
			continue
		}
		if ow.Deny&discordgo.PermissionSendMessages != 0 {
			return false, nil
		}
		return ow.Allow&discordgo.PermissionSendMessages != 0, nil
	}
	return false, nil
}

// SetWrite grants or revokes the user's ability to send messages while
// keeping the channel visible to them.
func (p *discordPlatform) SetWrite(ctx context.Context, channelID, userID string, allow bool) error {
	if err := p.wait(ctx); err != nil {
		return err
	}

	var allowBits, denyBits int64
	if allow {
		allowBits = discordgo.PermissionAllText
		denyBits = discordgo.PermissionMentionEveryone
	} else {
		allowBits = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory
		denyBits = discordgo.PermissionSendMessages
	}

	if err := p.s.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, allowBits, denyBits); err != nil {
		return fmt.Errorf("error setting channel permission: %w", err)
	}
	return nil
}
