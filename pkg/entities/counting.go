package entities

// Counting is the sequence state for one counting channel. Keyed by
// (guild, channel). LastNumber only ever advances by exactly one per
// accepted submission, enforced by the repository's guarded update.
type Counting struct {
	// GuildID is the ID of the guild.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// ChannelID is the ID of the counting channel.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// LastNumber is the last accepted number.
	LastNumber int64 `json:"last_number" bson:"last_number"`

	// LastUserID is the user that posted the last accepted number. The same
	// user may never be accepted twice in a row.
	LastUserID string `json:"last_user_id" bson:"last_user_id"`

	// Streak is the number of consecutive accepted submissions since the
	// last reset.
	Streak int64 `json:"streak" bson:"streak"`

	// Counts is the historical accepted-count per user.
	Counts map[string]int64 `json:"counts" bson:"counts"`
}

// Expected returns the next number the sequence accepts.
func (c *Counting) Expected() int64 {
	return c.LastNumber + 1
}
