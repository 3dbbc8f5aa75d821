package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/zeakcloud/lynx/pkg/entities"
	"github.com/zeakcloud/lynx/pkg/errorx"
	"github.com/zeakcloud/lynx/pkg/logging"
	"github.com/zeakcloud/lynx/pkg/messages"
	"github.com/zeakcloud/lynx/pkg/tickets"
)

const (
	// ClaimEmoji is the emoji used on the claim button. (Ticket)
	ClaimEmoji = "\U0001F3AB"

	// CloseEmoji is the emoji used on the close button. (Padlock)
	CloseEmoji = "\U0001F510"

	// LockEmoji is the emoji used on the lock button. (No entry)
	LockEmoji = "⛔"

	// TranscriptEmoji is the emoji used on the transcript button. (Scroll)
	TranscriptEmoji = "\U0001F4DC"

	// PanelEmoji is the emoji used on the panel buttons. (Envelope with arrow)
	PanelEmoji = "\U0001F4E9"
)

// handleTicketEvent routes a typed interaction event to the lifecycle
// controller and renders the outcome back to the user.
func handleTicketEvent(a *App, i *discordgo.InteractionCreate, ev any) error {
	switch ev := ev.(type) {
	case *panelPressEvent:
		return openReasonModal(a, i, ev.Category)
	case *ticketSubmitEvent:
		return createTicketHandler(a, i, ev)
	case *controlPressEvent:
		switch ev.Control {
		case tickets.ControlClaim:
			return claimTicketHandler(a, i)
		case tickets.ControlClose:
			return closeTicketHandler(a, i)
		case tickets.ControlLock:
			return lockTicketHandler(a, i)
		case tickets.ControlTranscript:
			return transcriptHandler(a, i)
		default:
			return fmt.Errorf("unhandled ticket control %q", ev.Control)
		}
	case *ratingPressEvent:
		return rateTicketHandler(a, i, ev)
	default:
		return fmt.Errorf("unhandled event type %T", ev)
	}
}

// openReasonModal asks the user why they are opening a ticket.
func openReasonModal(a *App, i *discordgo.InteractionCreate, category string) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: ticketModalID + ":" + category,
			Title:    "Open a ticket",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    ticketReasonInputID,
							Label:       "Why are you opening this ticket?",
							Style:       discordgo.TextInputParagraph,
							Placeholder: "Describe your issue",
							Required:    true,
							MaxLength:   500,
						},
					},
				},
			},
		},
	})
}

func createTicketHandler(a *App, i *discordgo.InteractionCreate, ev *ticketSubmitEvent) error {
	actor := interactionActor(i)

	res, err := a.controller.Create(context.Background(), i.GuildID, actor, ev.Category, ev.Reason)
	if err != nil {
		return renderTicketError(a, i, err)
	}

	// Furnish the new channel out of band; the interaction response must not
	// wait on it.
	go func() {
		if err := setupTicketChannel(a, res.Ticket, res.Controls); err != nil {
			a.Error("Error setting up ticket channel",
				slog.String(logging.KeyChannel, res.Ticket.ChannelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}()

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Ticket Created",
					Description: fmt.Sprintf("<@%s>, your ticket has been created.", actor.ID),
					Color:       0x00ff00,
					Fields: []*discordgo.MessageEmbedField{
						{
							Name:   "Ticket Name",
							Value:  res.Ticket.Name(),
							Inline: true,
						},
						{
							Name:   "Ticket Channel",
							Value:  fmt.Sprintf("<#%s>", res.Ticket.ChannelID),
							Inline: true,
						},
					},
				},
			},
		},
	})
}

// setupTicketChannel sends and pins the welcome message carrying the ticket
// controls, then records the message so future edits can find it.
func setupTicketChannel(a *App, ticket *entities.Ticket, controls []tickets.Control) error {
	msg, err := a.Session().ChannelMessageSendComplex(ticket.ChannelID, &discordgo.MessageSend{
		Content: `Your ticket has been created.
Please provide any additional info you deem relevant to help us answer faster.`,
		Components: []discordgo.MessageComponent{controlRow(controls)},
	})
	if err != nil {
		return fmt.Errorf("error sending welcome message: %w", err)
	}

	if err := a.Session().ChannelMessagePin(ticket.ChannelID, msg.ID); err != nil {
		return fmt.Errorf("error pinning welcome message: %w", err)
	}

	// Record only the message ID. The ticket may already have moved on from
	// the snapshot we hold (a fast close beats the pin landing), so a full
	// save here would wind its state back.
	if err := a.ticketStore.SetSetupMessage(context.Background(), ticket.GuildID, ticket.ChannelID, msg.ID); err != nil {
		return fmt.Errorf("error recording setup message: %w", err)
	}
	return nil
}

// controlRow renders the ticket control surface as a button row.
func controlRow(controls []tickets.Control) discordgo.ActionsRow {
	row := discordgo.ActionsRow{}
	for _, control := range controls {
		switch control {
		case tickets.ControlClaim:
			row.Components = append(row.Components, discordgo.Button{
				Label:    fmt.Sprintf("%s Claim", ClaimEmoji),
				Style:    discordgo.PrimaryButton,
				CustomID: claimTicketButtonID,
			})
		case tickets.ControlClose:
			row.Components = append(row.Components, discordgo.Button{
				Label:    fmt.Sprintf("%s Close", CloseEmoji),
				Style:    discordgo.SecondaryButton,
				CustomID: closeTicketButtonID,
			})
		case tickets.ControlLock:
			row.Components = append(row.Components, discordgo.Button{
				Label:    fmt.Sprintf("%s Lock", LockEmoji),
				Style:    discordgo.SecondaryButton,
				CustomID: lockTicketButtonID,
			})
		case tickets.ControlTranscript:
			row.Components = append(row.Components, discordgo.Button{
				Label:    fmt.Sprintf("%s Transcript", TranscriptEmoji),
				Style:    discordgo.SecondaryButton,
				CustomID: transcriptButtonID,
			})
		}
	}
	return row
}

func claimTicketHandler(a *App, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)

	ticket, err := a.controller.Claim(context.Background(), i.GuildID, i.ChannelID, actor)
	if err != nil {
		return renderTicketError(a, i, err)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("<@%s> has claimed this ticket.", ticket.ClaimedBy),
		},
	})
}

func closeTicketHandler(a *App, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)

	res, err := a.controller.Close(context.Background(), i.GuildID, i.ChannelID, actor)
	if err != nil {
		return renderTicketError(a, i, err)
	}

	if res.AlreadyClosed {
		return respondEphemeral(a, i, "This ticket is already closed.")
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: messages.TicketClosedNotice,
		},
	})
}

func lockTicketHandler(a *App, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)

	locked, err := a.controller.ToggleLock(context.Background(), i.GuildID, i.ChannelID, actor)
	if err != nil {
		return renderTicketError(a, i, err)
	}

	content := "The ticket has been unlocked. The creator can write again."
	if locked {
		content = "The ticket has been locked. The creator can no longer write."
	}
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func transcriptHandler(a *App, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)

	doc, err := a.controller.Transcript(context.Background(), i.GuildID, i.ChannelID, actor)
	if err != nil {
		return renderTicketError(a, i, err)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Files: []*discordgo.File{transcriptFile(i.ChannelID, doc)},
		},
	})
}

func rateTicketHandler(a *App, i *discordgo.InteractionCreate, ev *ratingPressEvent) error {
	actor := interactionActor(i)

	res, err := a.controller.Rate(context.Background(), ev.GuildID, ev.ChannelID, actor, ev.Score)
	if err != nil {
		return renderTicketError(a, i, err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Thank you for rating your ticket %d/5.", res.Ticket.Rating))
}

// panelMessage builds the "open a ticket" panel with one button per
// configured category, ordered for stable output.
func panelMessage(guild *entities.Guild) *discordgo.MessageSend {
	categories := make([]string, 0, len(guild.Ticketing.Categories))
	for category := range guild.Ticketing.Categories {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	row := discordgo.ActionsRow{}
	for _, category := range categories {
		row.Components = append(row.Components, discordgo.Button{
			Label:    fmt.Sprintf("%s %s", PanelEmoji, category),
			Style:    discordgo.PrimaryButton,
			CustomID: openTicketButtonID + ":" + category,
		})
	}

	return &discordgo.MessageSend{
		Content: `How can we help?
If you have any questions or inquiries, please open a ticket by clicking the button for the relevant category below.`,
		Components: []discordgo.MessageComponent{row},
	}
}

// renderTicketError turns a known controller error into a user-facing
// ephemeral response. Unknown errors bubble to the generic handler.
func renderTicketError(a *App, i *discordgo.InteractionCreate, err error) error {
	switch errorx.KindOf(err) {
	case errorx.KindConfiguration:
		return respondEphemeral(a, i, messages.ErrNotConfigured)
	case errorx.KindPermission:
		return respondEphemeral(a, i, messages.ErrNotStaff)
	case errorx.KindValidation:
		return respondEphemeral(a, i, "Ratings must be a number between 1 and 5.")
	case errorx.KindNotFound:
		return respondEphemeral(a, i, "There is no ticket for this channel.")
	case errorx.KindConflict:
		if channelID := errorx.Meta(err, "channel_id"); channelID != "" {
			return respondEphemeral(a, i, fmt.Sprintf("You already have an open ticket: <#%s>", channelID))
		}
		if claimedBy := errorx.Meta(err, "claimed_by"); claimedBy != "" {
			return respondEphemeral(a, i, fmt.Sprintf("This ticket is already claimed by <@%s>.", claimedBy))
		}
		if rating := errorx.Meta(err, "rating"); rating != "" {
			return respondEphemeral(a, i, fmt.Sprintf("You have already rated this ticket %s/5.", rating))
		}
		return respondEphemeral(a, i, "That is not possible in the ticket's current state.")
	default:
		return err
	}
}
