package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTicketName(t *testing.T) {
	tests := []struct {
		name   string
		ticket Ticket
		want   string
	}{
		{
			name:   "Simple",
			ticket: Ticket{Category: "support", CreatorName: "mira"},
			want:   "support-mira",
		},
		{
			name:   "StripsInvalidRunes",
			ticket: Ticket{Category: "Billing", CreatorName: "J. Doe!"},
			want:   "billing-jdoe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.ticket.Name())
		})
	}
}

func TestTicketingConfigDefaults(t *testing.T) {
	c := TicketingConfig{}
	require.Equal(t, 5*time.Second, c.CloseDelay())

	c.CloseDelaySeconds = 30
	require.Equal(t, 30*time.Second, c.CloseDelay())

	_, ok := c.CategoryID("support")
	require.False(t, ok)

	c.Categories = map[string]string{"support": "123"}
	id, ok := c.CategoryID("support")
	require.True(t, ok)
	require.Equal(t, "123", id)
}

func TestCountingConfigDefaults(t *testing.T) {
	c := CountingConfig{}
	require.EqualValues(t, 1, c.Start())
	require.Equal(t, DefaultAcceptMarker, c.Marker())

	c.StartNumber = 10
	c.AcceptMarker = "\U0001F522"
	require.EqualValues(t, 10, c.Start())
	require.Equal(t, "\U0001F522", c.Marker())
}

func TestCountingConfigChannels(t *testing.T) {
	c := CountingConfig{ChannelIDs: []string{"1", "2", "3"}}
	require.True(t, c.HasChannel("2"))
	require.True(t, c.RemoveChannel("2"))
	require.False(t, c.HasChannel("2"))
	require.False(t, c.RemoveChannel("2"))
	require.Equal(t, []string{"1", "3"}, c.ChannelIDs)
}

func TestGuildIsStaff(t *testing.T) {
	g := Guild{Ticketing: TicketingConfig{StaffRoleIDs: []string{"a", "b"}}}
	require.True(t, g.IsStaff([]string{"x", "b"}))
	require.False(t, g.IsStaff([]string{"x", "y"}))
	require.False(t, g.IsStaff(nil))
}
