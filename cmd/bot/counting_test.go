package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/zeakcloud/lynx/pkg/counting"
	"github.com/stretchr/testify/require"
)

type fakeCountMessenger struct {
	reacts  []string
	removed []string
	sent    []string
}

func (f *fakeCountMessenger) React(_ context.Context, _, messageID, emoji string) error {
	f.reacts = append(f.reacts, messageID+":"+emoji)
	return nil
}

func (f *fakeCountMessenger) RemoveMessage(_ context.Context, _, messageID string) error {
	f.removed = append(f.removed, messageID)
	return nil
}

func (f *fakeCountMessenger) SendText(_ context.Context, _, content string) (string, error) {
	f.sent = append(f.sent, content)
	return "warn-1", nil
}

type fakeCountScheduler struct {
	delays []time.Duration
	tasks  []func(ctx context.Context)
}

func (f *fakeCountScheduler) Schedule(_ string, delay time.Duration, task func(ctx context.Context)) {
	f.delays = append(f.delays, delay)
	f.tasks = append(f.tasks, task)
}

func (f *fakeCountScheduler) runAll(ctx context.Context) {
	for _, task := range f.tasks {
		task(ctx)
	}
	f.tasks = nil
}

func TestRenderCountRejectionMarksMessage(t *testing.T) {
	msgr := &fakeCountMessenger{}
	sched := &fakeCountScheduler{}

	res := &counting.Result{Reason: counting.ReasonWrongNumber, Expected: 12}
	renderCountRejection(slog.Default(), msgr, sched, "chan", "msg-1", "user", res)

	// The submission stays, marked as rejected.
	require.Equal(t, []string{"msg-1:" + RejectEmoji}, msgr.reacts)
	require.Empty(t, msgr.removed)

	// The warning posts regardless of the delete policy and names the
	// expected number.
	require.Len(t, msgr.sent, 1)
	require.Contains(t, msgr.sent[0], "**12**")

	require.Equal(t, []time.Duration{warningLifetime}, sched.delays)
	sched.runAll(context.Background())
	require.Equal(t, []string{"warn-1"}, msgr.removed)
}

func TestRenderCountRejectionDeletesMessage(t *testing.T) {
	msgr := &fakeCountMessenger{}
	sched := &fakeCountScheduler{}

	res := &counting.Result{Reason: counting.ReasonWrongNumber, Expected: 4, DeleteInvalid: true}
	renderCountRejection(slog.Default(), msgr, sched, "chan", "msg-1", "user", res)

	require.Equal(t, []string{"msg-1"}, msgr.removed)
	require.Empty(t, msgr.reacts)

	require.Len(t, msgr.sent, 1)
	require.Contains(t, msgr.sent[0], "**4**")
}

func TestCountWarningText(t *testing.T) {
	tests := []struct {
		name string
		res  *counting.Result
		want string
	}{
		{
			name: "WrongNumber",
			res:  &counting.Result{Reason: counting.ReasonWrongNumber, Expected: 7},
			want: "<@user> that was not the right number. The next number is **7**.",
		},
		{
			name: "SameUser",
			res:  &counting.Result{Reason: counting.ReasonSameUser, Expected: 7},
			want: "<@user> you cannot count twice in a row. The next number is still **7**.",
		},
		{
			name: "NotANumber",
			res:  &counting.Result{Reason: counting.ReasonNotANumber},
			want: "<@user> counting messages must be just the next number.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, countWarningText("user", tt.res))
		})
	}
}
