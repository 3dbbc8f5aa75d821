package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/zeakcloud/lynx/pkg/tickets"
)

// Component custom IDs. Parameterised IDs carry their parts colon-separated
// so a press can be decoded without any session state.
const (
	// openTicketButtonID prefixes the panel buttons; the category follows.
	openTicketButtonID = "ticket_open"

	// ticketModalID prefixes the reason modal; the category follows.
	ticketModalID = "ticket_modal"

	// ticketReasonInputID is the reason text input inside the modal.
	ticketReasonInputID = "ticket_reason"

	// claimTicketButtonID is the ID for the claim ticket button.
	claimTicketButtonID = "ticket_claim"

	// closeTicketButtonID is the ID for the close ticket button.
	closeTicketButtonID = "ticket_close"

	// lockTicketButtonID is the ID for the lock ticket button.
	lockTicketButtonID = "ticket_lock"

	// transcriptButtonID is the ID for the transcript button.
	transcriptButtonID = "ticket_transcript"

	// rateTicketButtonID prefixes the DM rating buttons; the score, ticket
	// channel ID and guild ID follow. The press happens in a DM, so the
	// interaction itself carries no guild.
	rateTicketButtonID = "ticket_rate"
)

// panelPressEvent is a press on a ticket panel category button.
type panelPressEvent struct {
	Category string
}

// ticketSubmitEvent is a submitted ticket reason modal.
type ticketSubmitEvent struct {
	Category string
	Reason   string
}

// controlPressEvent is a press on one of the ticket channel controls.
type controlPressEvent struct {
	Control tickets.Control
}

// ratingPressEvent is a press on a rating button in the creator's DM. The
// ticket coordinates ride in the custom ID because the press happens outside
// the ticket channel.
type ratingPressEvent struct {
	Score     int
	ChannelID string
	GuildID   string
}

// interactionEvent decodes a component press or modal submission into a typed
// event. Unknown custom IDs are an error; they mean a stale message from an
// older build.
func interactionEvent(i *discordgo.InteractionCreate) (any, error) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		return componentEvent(i.MessageComponentData().CustomID)
	case discordgo.InteractionModalSubmit:
		return modalEvent(i.ModalSubmitData())
	default:
		return nil, fmt.Errorf("unhandled interaction type %d", i.Type)
	}
}

func componentEvent(customID string) (any, error) {
	parts := strings.Split(customID, ":")
	switch parts[0] {
	case openTicketButtonID:
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed panel button ID %q", customID)
		}
		return &panelPressEvent{Category: parts[1]}, nil
	case claimTicketButtonID:
		return &controlPressEvent{Control: tickets.ControlClaim}, nil
	case closeTicketButtonID:
		return &controlPressEvent{Control: tickets.ControlClose}, nil
	case lockTicketButtonID:
		return &controlPressEvent{Control: tickets.ControlLock}, nil
	case transcriptButtonID:
		return &controlPressEvent{Control: tickets.ControlTranscript}, nil
	case rateTicketButtonID:
		if len(parts) != 4 {
			return nil, fmt.Errorf("malformed rating button ID %q", customID)
		}
		score, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("malformed rating score in %q: %w", customID, err)
		}
		return &ratingPressEvent{Score: score, ChannelID: parts[2], GuildID: parts[3]}, nil
	default:
		return nil, fmt.Errorf("unknown component ID %q", customID)
	}
}

func modalEvent(data discordgo.ModalSubmitInteractionData) (any, error) {
	parts := strings.Split(data.CustomID, ":")
	if parts[0] != ticketModalID || len(parts) != 2 {
		return nil, fmt.Errorf("unknown modal ID %q", data.CustomID)
	}

	reason := ""
	for _, comp := range data.Components {
		row, ok := comp.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok && input.CustomID == ticketReasonInputID {
				reason = input.Value
			}
		}
	}

	return &ticketSubmitEvent{
		Category: parts[1],
		Reason:   reason,
	}, nil
}

// interactionActor builds the acting user from the interaction member.
func interactionActor(i *discordgo.InteractionCreate) tickets.Actor {
	if i.Member == nil || i.Member.User == nil {
		// DM interactions carry the user directly.
		if i.User != nil {
			return tickets.Actor{
				ID:       i.User.ID,
				Username: i.User.Username,
			}
		}
		return tickets.Actor{}
	}
	return tickets.Actor{
		ID:       i.Member.User.ID,
		Username: i.Member.User.Username,
		RoleIDs:  i.Member.Roles,
		Admin:    i.Member.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator,
	}
}
