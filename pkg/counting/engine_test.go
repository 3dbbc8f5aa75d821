package counting

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/zeakcloud/lynx/pkg/dataaccess"
	"github.com/zeakcloud/lynx/pkg/entities"
	"github.com/stretchr/testify/require"
)

type fakeGuildDal struct {
	mu     sync.Mutex
	guilds map[string]*entities.Guild
}

func newFakeGuildDal() *fakeGuildDal {
	return &fakeGuildDal{guilds: make(map[string]*entities.Guild)}
}

func (f *fakeGuildDal) SaveGuild(_ context.Context, guild *entities.Guild) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := *guild
	f.guilds[guild.ID] = &g
	return nil
}

func (f *fakeGuildDal) GetGuildByID(_ context.Context, id string) (*entities.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[id]
	if !ok {
		return nil, dataaccess.ErrGuildNotFound
	}
	cp := *g
	return &cp, nil
}

// fakeCountingDal honors the same guard semantics as the Mongo implementation.
type fakeCountingDal struct {
	mu      sync.Mutex
	records map[string]*entities.Counting

	// afterEnsure, when set, runs once after Ensure returns. Used to
	// simulate a concurrent writer sneaking in between read and commit.
	afterEnsure func()
}

func newFakeCountingDal() *fakeCountingDal {
	return &fakeCountingDal{records: make(map[string]*entities.Counting)}
}

func key(guildID, channelID string) string { return guildID + "/" + channelID }

func (f *fakeCountingDal) Ensure(_ context.Context, guildID, channelID string, lastNumber int64) (*entities.Counting, error) {
	f.mu.Lock()
	r, ok := f.records[key(guildID, channelID)]
	if !ok {
		r = &entities.Counting{
			GuildID:    guildID,
			ChannelID:  channelID,
			LastNumber: lastNumber,
			Counts:     map[string]int64{},
		}
		f.records[key(guildID, channelID)] = r
	}
	cp := *r
	f.mu.Unlock()

	if f.afterEnsure != nil {
		hook := f.afterEnsure
		f.afterEnsure = nil
		hook()
	}
	return &cp, nil
}

func (f *fakeCountingDal) Get(_ context.Context, guildID, channelID string) (*entities.Counting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[key(guildID, channelID)]
	if !ok {
		return nil, dataaccess.ErrCountingNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeCountingDal) Advance(_ context.Context, guildID, channelID, userID string, number int64) (*entities.Counting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[key(guildID, channelID)]
	if !ok || r.LastNumber != number-1 || r.LastUserID == userID {
		return nil, dataaccess.ErrCountConflict
	}
	r.LastNumber = number
	r.LastUserID = userID
	r.Streak++
	if r.Counts == nil {
		r.Counts = map[string]int64{}
	}
	r.Counts[userID]++
	cp := *r
	return &cp, nil
}

func (f *fakeCountingDal) SetCount(_ context.Context, guildID, channelID, userID string, lastNumber int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[key(guildID, channelID)]
	if !ok {
		r = &entities.Counting{GuildID: guildID, ChannelID: channelID, Counts: map[string]int64{}}
		f.records[key(guildID, channelID)] = r
	}
	r.LastNumber = lastNumber
	r.LastUserID = userID
	r.Streak = 0
	return nil
}

func (f *fakeCountingDal) ResetIf(_ context.Context, guildID, channelID string, observed, lastNumber int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[key(guildID, channelID)]
	if !ok || r.LastNumber != observed {
		return nil
	}
	r.LastNumber = lastNumber
	r.LastUserID = ""
	r.Streak = 0
	return nil
}

func (f *fakeCountingDal) Delete(_ context.Context, guildID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, key(guildID, channelID))
	return nil
}

func newTestEngine(t *testing.T, cfg entities.CountingConfig) (*Engine, *fakeCountingDal) {
	t.Helper()
	guilds := newFakeGuildDal()
	require.NoError(t, guilds.SaveGuild(context.Background(), &entities.Guild{
		ID:       "guild",
		Counting: cfg,
	}))
	counts := newFakeCountingDal()
	return NewEngine(slog.Default(), guilds, counts), counts
}

func TestSubmitScenario(t *testing.T) {
	e, _ := newTestEngine(t, entities.CountingConfig{ChannelIDs: []string{"chan"}})
	ctx := context.Background()

	// User A submits "1": accepted, next expected 2.
	res, err := e.Submit(ctx, "guild", "chan", "userA", "1")
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.EqualValues(t, 1, res.Number)
	require.EqualValues(t, 1, res.Streak)

	// User B repeats "1": wrong number, expected 2.
	res, err = e.Submit(ctx, "guild", "chan", "userB", "1")
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, ReasonWrongNumber, res.Reason)
	require.EqualValues(t, 2, res.Expected)

	// User A submits "2": same user twice in a row, number never consulted.
	res, err = e.Submit(ctx, "guild", "chan", "userA", "2")
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, ReasonSameUser, res.Reason)

	// User C submits "2": accepted.
	res, err = e.Submit(ctx, "guild", "chan", "userC", "2")
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.EqualValues(t, 2, res.Streak)
}

func TestSubmitLexicalValidation(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "Empty", text: ""},
		{name: "LeadingZero", text: "007"},
		{name: "LeadingSpace", text: " 7"},
		{name: "TrailingSpace", text: "7 "},
		{name: "PlusSign", text: "+7"},
		{name: "Negative", text: "-1"},
		{name: "Scientific", text: "1e3"},
		{name: "Word", text: "seven"},
		{name: "Decimal", text: "1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, counts := newTestEngine(t, entities.CountingConfig{ChannelIDs: []string{"chan"}})
			res, err := e.Submit(context.Background(), "guild", "chan", "user", tt.text)
			require.NoError(t, err)
			require.False(t, res.Accepted)
			require.Equal(t, ReasonNotANumber, res.Reason)

			// Lexical rejection happens before the record is touched.
			_, err = counts.Get(context.Background(), "guild", "chan")
			require.ErrorIs(t, err, dataaccess.ErrCountingNotFound)
		})
	}
}

func TestSubmitOverflowingNumber(t *testing.T) {
	e, _ := newTestEngine(t, entities.CountingConfig{ChannelIDs: []string{"chan"}})
	ctx := context.Background()

	res, err := e.Submit(ctx, "guild", "chan", "userA", "1")
	require.NoError(t, err)
	require.True(t, res.Accepted)

	// Digits past the int64 range are a number, just never the right one.
	res, err = e.Submit(ctx, "guild", "chan", "userB", "9223372036854775808")
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, ReasonWrongNumber, res.Reason)
	require.EqualValues(t, 2, res.Expected)

	// The consecutive-sender rule still takes precedence.
	res, err = e.Submit(ctx, "guild", "chan", "userA", "99999999999999999999999999")
	require.NoError(t, err)
	require.Equal(t, ReasonSameUser, res.Reason)
}

func TestSubmitIgnoresNonCountingChannel(t *testing.T) {
	e, _ := newTestEngine(t, entities.CountingConfig{ChannelIDs: []string{"chan"}})

	res, err := e.Submit(context.Background(), "guild", "other", "user", "1")
	require.NoError(t, err)
	require.Nil(t, res)

	// Unknown guilds are ignored the same way.
	res, err = e.Submit(context.Background(), "nope", "chan", "user", "1")
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestSubmitConfiguredStart(t *testing.T) {
	e, _ := newTestEngine(t, entities.CountingConfig{ChannelIDs: []string{"chan"}, StartNumber: 100})
	ctx := context.Background()

	res, err := e.Submit(ctx, "guild", "chan", "user", "1")
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.EqualValues(t, 100, res.Expected)

	res, err = e.Submit(ctx, "guild", "chan", "user", "100")
	require.NoError(t, err)
	require.True(t, res.Accepted)
}

func TestSubmitLostRace(t *testing.T) {
	e, counts := newTestEngine(t, entities.CountingConfig{ChannelIDs: []string{"chan"}})
	ctx := context.Background()

	// A concurrent submitter commits "1" between our read and our commit.
	counts.afterEnsure = func() {
		_, err := counts.Advance(ctx, "guild", "chan", "rival", 1)
		require.NoError(t, err)
	}

	res, err := e.Submit(ctx, "guild", "chan", "user", "1")
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, ReasonLostRace, res.Reason)
	require.EqualValues(t, 2, res.Expected)
}

func TestSubmitConcurrentExactlyOneAccepted(t *testing.T) {
	e, counts := newTestEngine(t, entities.CountingConfig{ChannelIDs: []string{"chan"}})
	ctx := context.Background()

	const n = 16
	results := make([]*Result, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Submit(ctx, "guild", "chan", "user"+string(rune('a'+i)), "1")
			require.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, res := range results {
		if res.Accepted {
			accepted++
		}
	}
	require.Equal(t, 1, accepted)

	record, err := counts.Get(ctx, "guild", "chan")
	require.NoError(t, err)
	require.EqualValues(t, 1, record.LastNumber)
	require.EqualValues(t, 1, record.Streak)
}

func TestSubmitResetOnWrong(t *testing.T) {
	e, counts := newTestEngine(t, entities.CountingConfig{
		ChannelIDs:   []string{"chan"},
		ResetOnWrong: true,
	})
	ctx := context.Background()

	_, err := e.Submit(ctx, "guild", "chan", "userA", "1")
	require.NoError(t, err)
	_, err = e.Submit(ctx, "guild", "chan", "userB", "2")
	require.NoError(t, err)

	res, err := e.Submit(ctx, "guild", "chan", "userA", "9")
	require.NoError(t, err)
	require.Equal(t, ReasonWrongNumber, res.Reason)
	require.EqualValues(t, 1, res.Expected)

	record, err := counts.Get(ctx, "guild", "chan")
	require.NoError(t, err)
	require.EqualValues(t, 0, record.LastNumber)
	require.EqualValues(t, 0, record.Streak)
}

func TestSubmitTracksPerUserCounts(t *testing.T) {
	e, counts := newTestEngine(t, entities.CountingConfig{ChannelIDs: []string{"chan"}})
	ctx := context.Background()

	users := []string{"a", "b", "a", "b", "a"}
	for i, u := range users {
		res, err := e.Submit(ctx, "guild", "chan", u, string(rune('1'+i)))
		require.NoError(t, err)
		require.True(t, res.Accepted)
	}

	record, err := counts.Get(ctx, "guild", "chan")
	require.NoError(t, err)
	require.EqualValues(t, 3, record.Counts["a"])
	require.EqualValues(t, 2, record.Counts["b"])
	require.EqualValues(t, 5, record.Streak)
}

func TestExpected(t *testing.T) {
	e, counts := newTestEngine(t, entities.CountingConfig{ChannelIDs: []string{"chan"}, StartNumber: 5})
	ctx := context.Background()

	// No record yet: expected is the configured start.
	expected, err := e.Expected(ctx, "guild", "chan")
	require.NoError(t, err)
	require.EqualValues(t, 5, expected)

	require.NoError(t, counts.SetCount(ctx, "guild", "chan", "admin", 41))
	expected, err = e.Expected(ctx, "guild", "chan")
	require.NoError(t, err)
	require.EqualValues(t, 42, expected)
}
