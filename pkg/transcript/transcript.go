package transcript

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLimit is the message window used when none is configured.
const DefaultLimit = 100

// Message is one message in a ticket channel.
type Message struct {
	// Author is the author's tag.
	Author string

	// Timestamp is when the message was sent.
	Timestamp time.Time

	// Content is the message text.
	Content string

	// Attachments are the attachment URLs, if any.
	Attachments []string
}

// Header describes the ticket the transcript belongs to.
type Header struct {
	// Channel is the ticket channel name.
	Channel string

	// Category is the ticket category.
	Category string

	// Creator is the ticket creator's tag or ID.
	Creator string

	// Closer is who closed the ticket.
	Closer string

	// Reason is the reason the ticket was opened with.
	Reason string

	// ClosedAt is when the ticket was closed.
	ClosedAt time.Time
}

// Generate renders the transcript for a ticket: a header block followed by
// the most recent limit messages in chronological order. The output is a
// deterministic function of its input.
func Generate(h Header, msgs []Message, limit int) []byte {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	reason := h.Reason
	if reason == "" {
		reason = "Not provided"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Transcript for %s\n", h.Channel)
	fmt.Fprintf(&b, "Category: %s\n", h.Category)
	fmt.Fprintf(&b, "Creator: %s\n", h.Creator)
	fmt.Fprintf(&b, "Closed by: %s\n", h.Closer)
	fmt.Fprintf(&b, "Reason: %s\n", reason)
	fmt.Fprintf(&b, "Closed at: %s\n\n", h.ClosedAt.UTC().Format(time.RFC3339))

	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp.UTC().Format(time.RFC3339), m.Author, m.Content)
		if len(m.Attachments) > 0 {
			fmt.Fprintf(&b, "[Attachments]: %s\n", strings.Join(m.Attachments, ", "))
		}
	}

	return []byte(b.String())
}
