package dataaccess

// mongoDatabase is the database all collections live in.
const mongoDatabase = "lynx"

const (
	// guildsCollection holds one Guild configuration per guild.
	guildsCollection = "guilds"

	// ticketsCollection holds Ticket records keyed by channel ID.
	ticketsCollection = "tickets"

	// countingCollection holds Counting records keyed by (guild, channel).
	countingCollection = "counting"
)
