package overlay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zeakcloud/lynx/pkg/logging"
)

// SubjectType discriminates who an overlay entry applies to.
type SubjectType int

const (
	// SubjectMember grants or denies a single user.
	SubjectMember SubjectType = iota

	// SubjectRole grants or denies a role.
	SubjectRole
)

// Entry is one access grant in a channel overlay.
type Entry struct {
	// ID is the user or role ID.
	ID string

	// Type is whether ID is a member or a role.
	Type SubjectType
}

// Overlay is the declarative access control state for a ticket channel:
// everyone is denied, the listed subjects may view and write.
type Overlay struct {
	// EveryoneID is the guild ID, denied all access.
	EveryoneID string

	// Grants are the subjects allowed to view and write.
	Grants []Entry
}

// ForTicket computes the overlay for a ticket channel: the creator, the
// guild's staff roles, and the operating account may view and write; no one
// else can see the channel.
func ForTicket(guildID, creatorID, botID string, staffRoleIDs []string) Overlay {
	grants := make([]Entry, 0, len(staffRoleIDs)+2)
	grants = append(grants,
		Entry{ID: creatorID, Type: SubjectMember},
		Entry{ID: botID, Type: SubjectMember},
	)
	for _, roleID := range staffRoleIDs {
		grants = append(grants, Entry{ID: roleID, Type: SubjectRole})
	}
	return Overlay{
		EveryoneID: guildID,
		Grants:     grants,
	}
}

// ChannelGateway is the platform surface the manager drives. Reads go to the
// platform, not a local cache, so the manager cannot drift from reality.
type ChannelGateway interface {
	// Apply sets the channel's overlay in one declarative request.
	Apply(ctx context.Context, channelID string, o Overlay) error

	// CanWrite reports whether the user currently has write access.
	CanWrite(ctx context.Context, channelID, userID string) (bool, error)

	// SetWrite grants or revokes the user's write access.
	SetWrite(ctx context.Context, channelID, userID string, allow bool) error
}

// Manager applies ticket channel overlays and toggles the creator lock.
type Manager struct {
	l  *slog.Logger
	gw ChannelGateway
}

// NewManager creates a new overlay manager.
func NewManager(l *slog.Logger, gw ChannelGateway) *Manager {
	return &Manager{
		l:  l,
		gw: gw,
	}
}

// Apply sets the channel overlay.
func (m *Manager) Apply(ctx context.Context, channelID string, o Overlay) error {
	if err := m.gw.Apply(ctx, channelID, o); err != nil {
		return fmt.Errorf("error applying overlay: %w", err)
	}
	return nil
}

// ToggleLock flips the user's write permission on the channel and reports
// whether the channel is now locked for them. The current state is read from
// the platform.
func (m *Manager) ToggleLock(ctx context.Context, channelID, userID string) (bool, error) {
	canWrite, err := m.gw.CanWrite(ctx, channelID, userID)
	if err != nil {
		return false, fmt.Errorf("error reading write permission: %w", err)
	}

	if err := m.gw.SetWrite(ctx, channelID, userID, !canWrite); err != nil {
		return false, fmt.Errorf("error toggling write permission: %w", err)
	}

	m.l.Debug("Toggled channel lock",
		slog.String(logging.KeyChannel, channelID),
		slog.String(logging.KeyUser, userID),
		slog.Bool("locked", canWrite),
	)
	return canWrite, nil
}

// RevokeWrite removes the user's write access to the channel.
func (m *Manager) RevokeWrite(ctx context.Context, channelID, userID string) error {
	if err := m.gw.SetWrite(ctx, channelID, userID, false); err != nil {
		return fmt.Errorf("error revoking write permission: %w", err)
	}
	return nil
}
