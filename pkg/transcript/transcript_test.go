package transcript

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testHeader() Header {
	return Header{
		Channel:  "support-mira",
		Category: "support",
		Creator:  "mira#0001",
		Closer:   "staffer#0002",
		Reason:   "server is down",
		ClosedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGenerate(t *testing.T) {
	msgs := []Message{
		{
			Author:    "mira#0001",
			Timestamp: time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
			Content:   "hello, my server is down",
		},
		{
			Author:      "staffer#0002",
			Timestamp:   time.Date(2024, 3, 1, 11, 5, 0, 0, time.UTC),
			Content:     "looking into it",
			Attachments: []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
		},
	}

	got := string(Generate(testHeader(), msgs, 0))

	want := "Transcript for support-mira\n" +
		"Category: support\n" +
		"Creator: mira#0001\n" +
		"Closed by: staffer#0002\n" +
		"Reason: server is down\n" +
		"Closed at: 2024-03-01T12:00:00Z\n" +
		"\n" +
		"[2024-03-01T11:00:00Z] mira#0001: hello, my server is down\n" +
		"[2024-03-01T11:05:00Z] staffer#0002: looking into it\n" +
		"[Attachments]: https://cdn.example.com/a.png, https://cdn.example.com/b.png\n"

	require.Equal(t, want, got)

	// Deterministic: identical input gives identical bytes.
	require.Equal(t, got, string(Generate(testHeader(), msgs, 0)))
}

func TestGenerateBounded(t *testing.T) {
	msgs := make([]Message, 150)
	for i := range msgs {
		msgs[i] = Message{
			Author:    "user#0001",
			Timestamp: time.Date(2024, 3, 1, 0, 0, i, 0, time.UTC),
			Content:   fmt.Sprintf("message %d", i),
		}
	}

	got := string(Generate(testHeader(), msgs, 0))

	// Only the most recent DefaultLimit messages survive, in order.
	require.NotContains(t, got, "message 49\n")
	require.Contains(t, got, "message 50\n")
	require.Contains(t, got, "message 149\n")
	require.Equal(t, DefaultLimit, strings.Count(got, "] user#0001:"))

	// An explicit limit overrides the default.
	short := string(Generate(testHeader(), msgs, 10))
	require.Equal(t, 10, strings.Count(short, "] user#0001:"))
	require.Contains(t, short, "message 140\n")
}

func TestGenerateEmptyReason(t *testing.T) {
	h := testHeader()
	h.Reason = ""
	got := string(Generate(h, nil, 0))
	require.Contains(t, got, "Reason: Not provided\n")
}
