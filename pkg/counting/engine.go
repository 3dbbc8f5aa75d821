package counting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/zeakcloud/lynx/pkg/dataaccess"
	"github.com/zeakcloud/lynx/pkg/errorx"
	"github.com/zeakcloud/lynx/pkg/logging"
)

// Reason tags why a submission was rejected.
type Reason string

const (
	// ReasonNotANumber is a submission that is not a plain decimal integer.
	ReasonNotANumber Reason = "not_a_number"

	// ReasonSameUser is the same user submitting twice in a row.
	ReasonSameUser Reason = "same_user"

	// ReasonWrongNumber is a submission that is not the expected next number.
	ReasonWrongNumber Reason = "wrong_number"

	// ReasonLostRace is a correct submission that lost the commit race to a
	// concurrent submission.
	ReasonLostRace Reason = "lost_race"
)

// Result is the engine's decision on one submission. The caller renders it;
// the engine knows nothing about presentation.
type Result struct {
	// Accepted is whether the submission advanced the sequence.
	Accepted bool

	// Number is the submitted number, when it parsed.
	Number int64

	// Streak is the streak after an accepted submission.
	Streak int64

	// Reason tags a rejection.
	Reason Reason

	// Expected is the next number the sequence accepts, where known.
	Expected int64

	// Marker is the guild's acceptance marker for the renderer.
	Marker string

	// DeleteInvalid is the guild's delete-on-invalid policy for the renderer.
	DeleteInvalid bool
}

// Engine validates and atomically advances per-channel counting sequences.
// It holds no state between calls; every invariant is enforced by the
// repository's guarded writes, so concurrent submissions and multiple
// process instances are safe.
type Engine struct {
	// l is the logger.
	l *slog.Logger

	// guilds is the guild configuration store.
	guilds dataaccess.GuildDal

	// counts is the counting state store.
	counts dataaccess.CountingDal
}

// NewEngine creates a new counting engine.
func NewEngine(l *slog.Logger, guilds dataaccess.GuildDal, counts dataaccess.CountingDal) *Engine {
	return &Engine{
		l:      l,
		guilds: guilds,
		counts: counts,
	}
}

// Submit processes one message posted to a channel. It returns nil when the
// channel is not a counting channel; otherwise a Result describing the
// decision. An error is returned only for storage failures.
func (e *Engine) Submit(ctx context.Context, guildID, channelID, userID, rawText string) (*Result, error) {
	guild, err := e.guilds.GetGuildByID(ctx, guildID)
	if errors.Is(err, dataaccess.ErrGuildNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, errorx.Wrap(errorx.KindExternal, err, "loading guild configuration")
	}

	cfg := guild.Counting
	if !cfg.HasChannel(channelID) {
		return nil, nil
	}

	res := &Result{
		Marker:        cfg.Marker(),
		DeleteInvalid: cfg.DeleteInvalid,
	}

	number, overflowed, ok := parseCount(rawText)
	if !ok {
		res.Reason = ReasonNotANumber
		return res, nil
	}
	res.Number = number

	// Lazy conditional create: the first accepted submission must equal the
	// configured start, so the record begins one below it.
	record, err := e.counts.Ensure(ctx, guildID, channelID, cfg.Start()-1)
	if err != nil {
		return nil, errorx.Wrap(errorx.KindExternal, err, "loading counting record")
	}

	// The consecutive-sender rule applies before the number is considered.
	if record.LastUserID != "" && record.LastUserID == userID {
		res.Reason = ReasonSameUser
		res.Expected = record.Expected()
		return res, nil
	}

	if overflowed || number != record.Expected() {
		res.Reason = ReasonWrongNumber
		res.Expected = record.Expected()
		if cfg.ResetOnWrong {
			// Rewind to the start, but only if the sequence has not moved
			// since we read it.
			if err := e.counts.ResetIf(ctx, guildID, channelID, record.LastNumber, cfg.Start()-1); err != nil {
				return nil, errorx.Wrap(errorx.KindExternal, err, "resetting count")
			}
			res.Expected = cfg.Start()
		}
		return res, nil
	}

	updated, err := e.counts.Advance(ctx, guildID, channelID, userID, number)
	if errors.Is(err, dataaccess.ErrCountConflict) {
		// Another submission was accepted between our read and the commit.
		res.Reason = ReasonLostRace
		if current, err := e.counts.Get(ctx, guildID, channelID); err == nil {
			res.Expected = current.Expected()
		}
		e.l.Debug("Count submission lost the race",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyUser, userID),
			slog.Int64("number", number),
		)
		return res, nil
	} else if err != nil {
		return nil, errorx.Wrap(errorx.KindExternal, err, "advancing count")
	}

	res.Accepted = true
	res.Streak = updated.Streak
	return res, nil
}

// parseCount parses rawText as the strict decimal form of a non-negative
// integer. Signs, whitespace, and leading zeros all invalidate the form. A
// well-formed value beyond the int64 range is still a number, reported with
// overflowed set; it can never match the expected value.
func parseCount(rawText string) (n int64, overflowed, ok bool) {
	if rawText == "" {
		return 0, false, false
	}
	for _, r := range rawText {
		if r < '0' || r > '9' {
			return 0, false, false
		}
	}
	if len(rawText) > 1 && rawText[0] == '0' {
		return 0, false, false
	}

	n, err := strconv.ParseInt(rawText, 10, 64)
	if err != nil {
		return 0, true, true
	}
	return n, false, true
}

// Expected returns the next number a counting channel accepts, for rendering
// status. It does not create the record.
func (e *Engine) Expected(ctx context.Context, guildID, channelID string) (int64, error) {
	record, err := e.counts.Get(ctx, guildID, channelID)
	if errors.Is(err, dataaccess.ErrCountingNotFound) {
		guild, err := e.guilds.GetGuildByID(ctx, guildID)
		if err != nil {
			return 0, fmt.Errorf("error loading guild configuration: %w", err)
		}
		return guild.Counting.Start(), nil
	} else if err != nil {
		return 0, fmt.Errorf("error loading counting record: %w", err)
	}
	return record.Expected(), nil
}
