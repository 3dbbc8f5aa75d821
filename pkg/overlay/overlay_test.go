package overlay

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	applied  map[string]Overlay
	writable map[string]bool
	readErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		applied:  make(map[string]Overlay),
		writable: make(map[string]bool),
	}
}

func (f *fakeGateway) Apply(_ context.Context, channelID string, o Overlay) error {
	f.applied[channelID] = o
	return nil
}

func (f *fakeGateway) CanWrite(_ context.Context, channelID, userID string) (bool, error) {
	if f.readErr != nil {
		return false, f.readErr
	}
	return f.writable[channelID+"/"+userID], nil
}

func (f *fakeGateway) SetWrite(_ context.Context, channelID, userID string, allow bool) error {
	f.writable[channelID+"/"+userID] = allow
	return nil
}

func TestForTicket(t *testing.T) {
	o := ForTicket("guild", "creator", "bot", []string{"staff1", "staff2"})

	require.Equal(t, "guild", o.EveryoneID)
	require.Equal(t, []Entry{
		{ID: "creator", Type: SubjectMember},
		{ID: "bot", Type: SubjectMember},
		{ID: "staff1", Type: SubjectRole},
		{ID: "staff2", Type: SubjectRole},
	}, o.Grants)
}

func TestToggleLock(t *testing.T) {
	gw := newFakeGateway()
	m := NewManager(slog.Default(), gw)

	// Creator starts writable; first toggle locks.
	require.NoError(t, gw.SetWrite(context.Background(), "chan", "creator", true))

	locked, err := m.ToggleLock(context.Background(), "chan", "creator")
	require.NoError(t, err)
	require.True(t, locked)
	require.False(t, gw.writable["chan/creator"])

	// Second toggle unlocks.
	locked, err = m.ToggleLock(context.Background(), "chan", "creator")
	require.NoError(t, err)
	require.False(t, locked)
	require.True(t, gw.writable["chan/creator"])
}

func TestToggleLockReadError(t *testing.T) {
	gw := newFakeGateway()
	gw.readErr = errors.New("gateway down")
	m := NewManager(slog.Default(), gw)

	_, err := m.ToggleLock(context.Background(), "chan", "creator")
	require.Error(t, err)
}

func TestRevokeWrite(t *testing.T) {
	gw := newFakeGateway()
	m := NewManager(slog.Default(), gw)

	require.NoError(t, gw.SetWrite(context.Background(), "chan", "creator", true))
	require.NoError(t, m.RevokeWrite(context.Background(), "chan", "creator"))
	require.False(t, gw.writable["chan/creator"])
}
