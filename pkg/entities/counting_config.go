package entities

// DefaultAcceptMarker is the reaction added to an accepted count when the
// guild has not configured one. (White check mark)
const DefaultAcceptMarker = "✅"

// CountingConfig is the per-guild counting configuration.
type CountingConfig struct {
	// ChannelIDs are the channels the counting rules apply to.
	ChannelIDs []string `json:"channel_ids" bson:"channel_ids"`

	// StartNumber is the first number the sequence accepts.
	StartNumber int64 `json:"start_number" bson:"start_number"`

	// AcceptMarker is the reaction added to an accepted count.
	AcceptMarker string `json:"accept_marker" bson:"accept_marker"`

	// DeleteInvalid is whether invalid submissions are deleted.
	DeleteInvalid bool `json:"delete_invalid" bson:"delete_invalid"`

	// ResetOnWrong is whether a wrong number resets the sequence back to
	// the start instead of only rejecting the message.
	ResetOnWrong bool `json:"reset_on_wrong" bson:"reset_on_wrong"`
}

// Start returns the configured start number, defaulting to 1.
func (c *CountingConfig) Start() int64 {
	if c.StartNumber <= 0 {
		return 1
	}
	return c.StartNumber
}

// Marker returns the configured acceptance marker.
func (c *CountingConfig) Marker() string {
	if c.AcceptMarker == "" {
		return DefaultAcceptMarker
	}
	return c.AcceptMarker
}

// HasChannel reports whether the channel is a counting channel.
func (c *CountingConfig) HasChannel(channelID string) bool {
	for _, id := range c.ChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}

// RemoveChannel removes the channel from the counting channel list and
// reports whether it was present.
func (c *CountingConfig) RemoveChannel(channelID string) bool {
	for i, id := range c.ChannelIDs {
		if id == channelID {
			c.ChannelIDs = append(c.ChannelIDs[:i], c.ChannelIDs[i+1:]...)
			return true
		}
	}
	return false
}
