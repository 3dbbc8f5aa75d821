package entities

// Guild is the configuration for a guild. It is created on first setup and
// only ever overwritten, never deleted.
type Guild struct {
	// ID is the ID of the guild.
	ID string `json:"id" bson:"id"`

	// Ticketing is the ticketing configuration.
	Ticketing TicketingConfig `json:"ticketing" bson:"ticketing"`

	// Counting is the counting configuration.
	Counting CountingConfig `json:"counting" bson:"counting"`
}

// IsStaff reports whether any of the given role IDs is a configured staff
// role for the guild.
func (g *Guild) IsStaff(roleIDs []string) bool {
	for _, id := range roleIDs {
		for _, staff := range g.Ticketing.StaffRoleIDs {
			if id == staff {
				return true
			}
		}
	}
	return false
}
