package entities

import "time"

// DefaultCloseDelay is the delay before a closed ticket channel is deleted
// when the guild has not configured one.
const DefaultCloseDelay = 5 * time.Second

// TicketingConfig is the per-guild ticketing configuration.
type TicketingConfig struct {
	// Enabled is whether ticketing is enabled.
	Enabled bool `json:"enabled" bson:"enabled"`

	// PanelChannelID is the ID of the channel holding the ticket panel.
	PanelChannelID string `json:"panel_channel_id" bson:"panel_channel_id"`

	// PanelMessageID is the ID of the ticket panel message.
	PanelMessageID string `json:"panel_message_id" bson:"panel_message_id"`

	// StaffRoleIDs are the roles that handle tickets.
	StaffRoleIDs []string `json:"staff_role_ids" bson:"staff_role_ids"`

	// Categories maps a ticket category name to the ID of the channel
	// category new tickets of that kind are created under.
	Categories map[string]string `json:"categories" bson:"categories"`

	// LogChannelID is the ID of the channel ticket events are logged to.
	// Empty disables logging.
	LogChannelID string `json:"log_channel_id" bson:"log_channel_id"`

	// CloseDelaySeconds is how long to wait after close before deleting the
	// ticket channel.
	CloseDelaySeconds int `json:"close_delay_seconds" bson:"close_delay_seconds"`
}

// CloseDelay returns the configured close delay.
func (c *TicketingConfig) CloseDelay() time.Duration {
	if c.CloseDelaySeconds <= 0 {
		return DefaultCloseDelay
	}
	return time.Duration(c.CloseDelaySeconds) * time.Second
}

// CategoryID returns the channel category mapped to the given ticket
// category name.
func (c *TicketingConfig) CategoryID(category string) (string, bool) {
	id, ok := c.Categories[category]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
