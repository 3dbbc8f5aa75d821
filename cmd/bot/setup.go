package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/zeakcloud/lynx/pkg/dataaccess"
	"github.com/zeakcloud/lynx/pkg/entities"
	"github.com/zeakcloud/lynx/pkg/messages"
)

const (
	// setupCmdName is the command for all configuration commands.
	setupCmdName = "setup"

	// ticketCategoryCmdName maps a ticket category to a channel category.
	ticketCategoryCmdName = "ticket_category"

	// ticketStaffCmdName toggles a staff role.
	ticketStaffCmdName = "ticket_staff"

	// ticketLogCmdName sets the ticket log channel.
	ticketLogCmdName = "ticket_log"

	// ticketDelayCmdName sets the close-to-delete delay.
	ticketDelayCmdName = "ticket_delay"

	// ticketPanelCmdName posts the ticket panel.
	ticketPanelCmdName = "ticket_panel"

	// ticketDisableCmdName disables ticketing.
	ticketDisableCmdName = "ticket_disable"

	// countingAddCmdName enables counting in a channel.
	countingAddCmdName = "counting_add"

	// countingRemoveCmdName disables counting in a channel.
	countingRemoveCmdName = "counting_remove"
)

const (
	// countCmdName is the command for managing a counting sequence.
	countCmdName = "count"

	// countResetCmdName rewinds the sequence to its start.
	countResetCmdName = "reset"

	// countSetCmdName force-sets the sequence position.
	countSetCmdName = "set"
)

const (
	// nameOptName is the text for the name option.
	nameOptName = "name"

	// channelOptName is the text for the channel option.
	channelOptName = "channel"

	// roleOptName is the text for the role option.
	roleOptName = "role"

	// secondsOptName is the text for the seconds option.
	secondsOptName = "seconds"

	// numberOptName is the text for the number option.
	numberOptName = "number"
)

var (
	// setupCmd is the command for all configuration commands.
	setupCmd = &discordgo.ApplicationCommand{
		Name:        setupCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This is the command for all configuration commands.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        ticketCategoryCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This maps a ticket category to the channel category new tickets are created under.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        nameOptName,
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "This is the name shown on the ticket panel button.",
						Required:    true,
					},
					{
						Name:        channelOptName,
						Type:        discordgo.ApplicationCommandOptionChannel,
						Description: "This is the channel category to create tickets under.",
						Required:    true,
					},
				},
			},
			{
				Name:        ticketStaffCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This adds or removes a role from the ticket staff roles.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        roleOptName,
						Type:        discordgo.ApplicationCommandOptionRole,
						Description: "This is the role you want to handle tickets.",
						Required:    true,
					},
				},
			},
			{
				Name:        ticketLogCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This sets the channel ticket activity is logged to.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        channelOptName,
						Type:        discordgo.ApplicationCommandOptionChannel,
						Description: "This is the channel to log ticket activity to.",
						Required:    true,
					},
				},
			},
			{
				Name:        ticketDelayCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This sets how long a closed ticket channel lingers before deletion.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        secondsOptName,
						Type:        discordgo.ApplicationCommandOptionInteger,
						Description: "This is the delay in seconds.",
						Required:    true,
					},
				},
			},
			{
				Name:        ticketPanelCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This posts the ticket panel in the channel you specify and enables ticketing.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        channelOptName,
						Type:        discordgo.ApplicationCommandOptionChannel,
						Description: "This is the channel to post the ticket panel in.",
						Required:    true,
					},
				},
			},
			{
				Name:        ticketDisableCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This will disable ticketing for your server.",
			},
			{
				Name:        countingAddCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This enables counting in the channel you specify.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        channelOptName,
						Type:        discordgo.ApplicationCommandOptionChannel,
						Description: "This is the channel you want to count in.",
						Required:    true,
					},
				},
			},
			{
				Name:        countingRemoveCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This disables counting in the channel you specify and removes its state.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        channelOptName,
						Type:        discordgo.ApplicationCommandOptionChannel,
						Description: "This is the channel to stop counting in.",
						Required:    true,
					},
				},
			},
		},
	}

	// countCmd is the command for managing a counting sequence.
	countCmd = &discordgo.ApplicationCommand{
		Name:        countCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This is the command for managing the counting sequence of a channel.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        countResetCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This rewinds the count in this channel back to the start.",
			},
			{
				Name:        countSetCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This sets the last accepted number for this channel.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        numberOptName,
						Type:        discordgo.ApplicationCommandOptionInteger,
						Description: "This is the last accepted number.",
						Required:    true,
					},
				},
			},
		},
	}
)

func setupCmdController(a *App, i *discordgo.InteractionCreate) (commandProcessor, error) {
	// Ensure the user is an administrator.
	if i.Member.Permissions&discordgo.PermissionAdministrator != discordgo.PermissionAdministrator {
		if err := respondEphemeral(a, i, "You must be an administrator to use this command"); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}

	// Extract the sub command.
	subCmd := i.ApplicationCommandData().Options[0].Name

	switch subCmd {
	case ticketCategoryCmdName:
		return ticketCategoryCmdProcessor, nil
	case ticketStaffCmdName:
		return ticketStaffCmdProcessor, nil
	case ticketLogCmdName:
		return ticketLogCmdProcessor, nil
	case ticketDelayCmdName:
		return ticketDelayCmdProcessor, nil
	case ticketPanelCmdName:
		return ticketPanelCmdProcessor, nil
	case ticketDisableCmdName:
		return ticketDisableCmdProcessor, nil
	case countingAddCmdName:
		return countingAddCmdProcessor, nil
	case countingRemoveCmdName:
		return countingRemoveCmdProcessor, nil
	default:
		return nil, fmt.Errorf("unhandled sub command %s", subCmd)
	}
}

// loadOrInitGuild gets the guild configuration, starting a fresh one for
// guilds that have never been configured.
func loadOrInitGuild(a *App, guildID string) (*entities.Guild, error) {
	guild, err := a.guilds.GetGuildByID(context.Background(), guildID)
	if errors.Is(err, dataaccess.ErrGuildNotFound) {
		return &entities.Guild{ID: guildID}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	return guild, nil
}

func ticketCategoryCmdProcessor(a *App, i *discordgo.InteractionCreate) error {
	name := i.ApplicationCommandData().Options[0].Options[0].StringValue()
	channel := i.ApplicationCommandData().Options[0].Options[1].ChannelValue(a.Session())

	// Tickets are created under a channel category.
	if channel.Type != discordgo.ChannelTypeGuildCategory {
		return respondEphemeral(a, i, "You must provide a channel category for tickets.")
	}

	guild, err := loadOrInitGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	if guild.Ticketing.Categories == nil {
		guild.Ticketing.Categories = make(map[string]string)
	}
	guild.Ticketing.Categories[name] = channel.ID

	if err := a.guilds.SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Tickets for **%s** will be created under <#%s>.", name, channel.ID))
}

func ticketStaffCmdProcessor(a *App, i *discordgo.InteractionCreate) error {
	role := i.ApplicationCommandData().Options[0].Options[0].RoleValue(a.Session(), i.GuildID)

	guild, err := loadOrInitGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	removed := false
	for idx, id := range guild.Ticketing.StaffRoleIDs {
		if id == role.ID {
			guild.Ticketing.StaffRoleIDs = append(guild.Ticketing.StaffRoleIDs[:idx], guild.Ticketing.StaffRoleIDs[idx+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		guild.Ticketing.StaffRoleIDs = append(guild.Ticketing.StaffRoleIDs, role.ID)
	}

	if err := a.guilds.SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	if removed {
		return respondEphemeral(a, i, fmt.Sprintf("<@&%s> no longer handles tickets.", role.ID))
	}
	return respondEphemeral(a, i, fmt.Sprintf("<@&%s> now handles tickets.", role.ID))
}

func ticketLogCmdProcessor(a *App, i *discordgo.InteractionCreate) error {
	channel := i.ApplicationCommandData().Options[0].Options[0].ChannelValue(a.Session())

	if channel.Type != discordgo.ChannelTypeGuildText {
		return respondEphemeral(a, i, "You must provide a text channel for ticket logs.")
	}

	guild, err := loadOrInitGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	guild.Ticketing.LogChannelID = channel.ID

	if err := a.guilds.SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Ticket activity will be logged to <#%s>.", channel.ID))
}

func ticketDelayCmdProcessor(a *App, i *discordgo.InteractionCreate) error {
	seconds := i.ApplicationCommandData().Options[0].Options[0].IntValue()
	if seconds < 0 {
		return respondEphemeral(a, i, "The delay cannot be negative.")
	}

	guild, err := loadOrInitGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	guild.Ticketing.CloseDelaySeconds = int(seconds)

	if err := a.guilds.SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Closed ticket channels will be deleted after %d seconds.", seconds))
}

func ticketPanelCmdProcessor(a *App, i *discordgo.InteractionCreate) error {
	channel := i.ApplicationCommandData().Options[0].Options[0].ChannelValue(a.Session())

	if channel.Type != discordgo.ChannelTypeGuildText {
		return respondEphemeral(a, i, "You must provide a text channel for the ticket panel.")
	}

	guild, err := loadOrInitGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	if len(guild.Ticketing.Categories) == 0 {
		return respondEphemeral(a, i, "Map at least one ticket category before posting the panel.")
	}

	// Replace a previous panel rather than leaving two live ones.
	if guild.Ticketing.PanelChannelID != "" && guild.Ticketing.PanelMessageID != "" {
		if err := a.Session().ChannelMessageDelete(guild.Ticketing.PanelChannelID, guild.Ticketing.PanelMessageID); err != nil {
			a.Warn("Error deleting previous ticket panel")
		}
	}

	msg, err := a.Session().ChannelMessageSendComplex(channel.ID, panelMessage(guild))
	if err != nil {
		return fmt.Errorf("error sending panel message: %w", err)
	}

	guild.Ticketing.Enabled = true
	guild.Ticketing.PanelChannelID = channel.ID
	guild.Ticketing.PanelMessageID = msg.ID

	if err := a.guilds.SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Ticketing has been enabled; the panel is posted in <#%s>.", channel.ID))
}

func ticketDisableCmdProcessor(a *App, i *discordgo.InteractionCreate) error {
	guild, err := loadOrInitGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	guild.Ticketing.Enabled = false

	if err := a.guilds.SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	return respondEphemeral(a, i, "Ticketing has been disabled")
}

func countingAddCmdProcessor(a *App, i *discordgo.InteractionCreate) error {
	channel := i.ApplicationCommandData().Options[0].Options[0].ChannelValue(a.Session())

	if channel.Type != discordgo.ChannelTypeGuildText {
		return respondEphemeral(a, i, "You must provide a text channel for counting.")
	}

	guild, err := loadOrInitGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	if guild.Counting.HasChannel(channel.ID) {
		return respondEphemeral(a, i, fmt.Sprintf("<#%s> is already a counting channel.", channel.ID))
	}
	guild.Counting.ChannelIDs = append(guild.Counting.ChannelIDs, channel.ID)

	if err := a.guilds.SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Counting is enabled in <#%s>. The count starts at %d.", channel.ID, guild.Counting.Start()))
}

func countingRemoveCmdProcessor(a *App, i *discordgo.InteractionCreate) error {
	channel := i.ApplicationCommandData().Options[0].Options[0].ChannelValue(a.Session())

	guild, err := loadOrInitGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	if !guild.Counting.HasChannel(channel.ID) {
		return respondEphemeral(a, i, fmt.Sprintf("<#%s> is not a counting channel.", channel.ID))
	}
	guild.Counting.RemoveChannel(channel.ID)

	if err := a.guilds.SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	// Drop the sequence state with the channel.
	if err := a.counts.Delete(context.Background(), i.GuildID, channel.ID); err != nil {
		return fmt.Errorf("error deleting counting state: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Counting is disabled in <#%s>.", channel.ID))
}

func countCmdController(a *App, i *discordgo.InteractionCreate) (commandProcessor, error) {
	guild, err := a.guilds.GetGuildByID(context.Background(), i.GuildID)
	if errors.Is(err, dataaccess.ErrGuildNotFound) {
		if err := respondEphemeral(a, i, messages.ErrNotConfigured); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}

	// Staff only.
	admin := i.Member.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator
	if !admin && !guild.IsStaff(i.Member.Roles) {
		if err := respondEphemeral(a, i, messages.ErrNotStaff); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}

	if !guild.Counting.HasChannel(i.ChannelID) {
		if err := respondEphemeral(a, i, "This is not a counting channel."); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}

	subCmd := i.ApplicationCommandData().Options[0].Name

	switch subCmd {
	case countResetCmdName:
		return countResetCmdProcessor, nil
	case countSetCmdName:
		return countSetCmdProcessor, nil
	default:
		return nil, fmt.Errorf("unhandled sub command %s", subCmd)
	}
}

func countResetCmdProcessor(a *App, i *discordgo.InteractionCreate) error {
	guild, err := a.guilds.GetGuildByID(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}

	start := guild.Counting.Start()
	if err := a.counts.SetCount(context.Background(), i.GuildID, i.ChannelID, "", start-1); err != nil {
		return fmt.Errorf("error resetting count: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("The count has been reset. The next number is **%d**.", start))
}

func countSetCmdProcessor(a *App, i *discordgo.InteractionCreate) error {
	number := i.ApplicationCommandData().Options[0].Options[0].IntValue()

	if err := a.counts.SetCount(context.Background(), i.GuildID, i.ChannelID, "", number); err != nil {
		return fmt.Errorf("error setting count: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("The count has been set. The next number is **%d**.", number+1))
}
