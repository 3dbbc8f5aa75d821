package messages

const (
	// ErrUserErrorProcessing is the generic failure message shown to a user.
	ErrUserErrorProcessing = "Something went wrong processing your request. Please try again later."

	// ErrNotStaff is shown when a non-staff member uses a staff control.
	ErrNotStaff = "Only staff members can do that."

	// ErrNotConfigured is shown when the guild has not been set up.
	ErrNotConfigured = "This server has not been configured yet. An admin must run the setup command first."

	// TicketClosedNotice is sent to a ticket channel when it is closed.
	TicketClosedNotice = "This ticket has been closed. The channel will be deleted shortly."
)
