package errorx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "Classified",
			err:  New(KindConflict, "ticket already claimed"),
			want: KindConflict,
		},
		{
			name: "Wrapped",
			err:  fmt.Errorf("handling interaction: %w", New(KindPermission, "not staff")),
			want: KindPermission,
		},
		{
			name: "Unclassified",
			err:  errors.New("boom"),
			want: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMeta(t *testing.T) {
	err := New(KindConflict, "ticket already claimed").WithMeta("claimed_by", "123")
	require.Equal(t, "123", Meta(err, "claimed_by"))
	require.Equal(t, "", Meta(err, "missing"))
	require.Equal(t, "", Meta(errors.New("boom"), "claimed_by"))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("no documents")
	err := Wrap(KindNotFound, cause, "ticket not found")
	require.ErrorIs(t, err, cause)
	require.True(t, Is(err, KindNotFound))
	require.False(t, Is(err, KindConflict))
}
