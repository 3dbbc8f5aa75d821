package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/zeakcloud/lynx/cmd/bot/monitoring"
	"github.com/zeakcloud/lynx/pkg/counting"
	"github.com/zeakcloud/lynx/pkg/logging"
)

// RejectEmoji marks a rejected submission that is not deleted. (Cross mark)
const RejectEmoji = "❌"

// warningLifetime is how long a counting warning stays before deletion.
const warningLifetime = 5 * time.Second

// countMessenger is the slice of the platform the counting renderer needs.
type countMessenger interface {
	React(ctx context.Context, channelID, messageID, emoji string) error
	RemoveMessage(ctx context.Context, channelID, messageID string) error
	SendText(ctx context.Context, channelID, content string) (string, error)
}

// countScheduler delays the cleanup of counting warnings.
type countScheduler interface {
	Schedule(name string, delay time.Duration, task func(ctx context.Context))
}

// messageCreateHandler feeds counting channel messages to the engine and
// renders its decision: reaction on acceptance, deletion or reaction plus a
// short-lived warning on rejection.
func (a *App) messageCreateHandler() func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.GuildID == "" {
			return
		}

		ctx := context.Background()

		res, err := a.engine.Submit(ctx, m.GuildID, m.ChannelID, m.Author.ID, m.Content)
		if err != nil {
			a.Error("Error processing counting submission",
				slog.String(logging.KeyGuild, m.GuildID),
				slog.String(logging.KeyChannel, m.ChannelID),
				slog.String(logging.KeyError, err.Error()),
			)
			return
		} else if res == nil {
			// Not a counting channel.
			return
		}

		if res.Accepted {
			monitoring.CountSubmissions.WithLabelValues("accepted").Inc()
			if err := a.platform.React(ctx, m.ChannelID, m.ID, res.Marker); err != nil {
				a.Error("Error reacting to accepted count",
					slog.String(logging.KeyChannel, m.ChannelID),
					slog.String(logging.KeyError, err.Error()),
				)
			}
			return
		}

		monitoring.CountSubmissions.WithLabelValues(string(res.Reason)).Inc()
		renderCountRejection(a.Logger, a.platform, a.sched, m.ChannelID, m.ID, m.Author.ID, res)
	}
}

// renderCountRejection applies the guild policy to a rejected submission. The
// offending message is deleted or marked depending on the policy; the warning
// saying what went wrong is posted either way, then cleaned up shortly after.
func renderCountRejection(l *slog.Logger, msgr countMessenger, sched countScheduler, channelID, messageID, userID string, res *counting.Result) {
	ctx := context.Background()

	if res.DeleteInvalid {
		if err := msgr.RemoveMessage(ctx, channelID, messageID); err != nil {
			l.Error("Error deleting rejected count",
				slog.String(logging.KeyChannel, channelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	} else if err := msgr.React(ctx, channelID, messageID, RejectEmoji); err != nil {
		l.Error("Error reacting to rejected count",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	warningID, err := msgr.SendText(ctx, channelID, countWarningText(userID, res))
	if err != nil {
		l.Error("Error sending counting warning",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
		return
	}

	sched.Schedule("count-warn-"+warningID, warningLifetime, func(ctx context.Context) {
		if err := msgr.RemoveMessage(ctx, channelID, warningID); err != nil {
			l.Error("Error deleting counting warning",
				slog.String(logging.KeyChannel, channelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	})
}

func countWarningText(userID string, res *counting.Result) string {
	switch res.Reason {
	case counting.ReasonSameUser:
		return fmt.Sprintf("<@%s> you cannot count twice in a row. The next number is still **%d**.", userID, res.Expected)
	case counting.ReasonNotANumber:
		return fmt.Sprintf("<@%s> counting messages must be just the next number.", userID)
	default:
		return fmt.Sprintf("<@%s> that was not the right number. The next number is **%d**.", userID, res.Expected)
	}
}
