package bot_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"matchgogo/backend/internal/bot"
	"matchgogo/backend/internal/cache"
	"matchgogo/backend/internal/chathub"
	"matchgogo/backend/internal/config"
	"matchgogo/backend/internal/geo"
	"matchgogo/backend/internal/likes"
	"matchgogo/backend/internal/localization"
	"matchgogo/backend/internal/logger"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/moderation"
	"matchgogo/backend/internal/profile"
	"matchgogo/backend/internal/ranking"
	"matchgogo/backend/internal/storage"
	"matchgogo/backend/internal/storage/storagetest"
	"matchgogo/backend/internal/transport"
	"matchgogo/backend/internal/transport/transporttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type fixture struct {
	bot   *bot.Bot
	rec   *transporttest.Recorder
	store *storage.Service
	hub   *chathub.Hub
	loc   *localization.Localizer
}

func newFixture(t *testing.T) *fixture {
	return newFixtureOn(t, storagetest.NewService(t))
}

// newFixtureOn builds a fresh bot over an existing database, which is what a
// process restart looks like.
func newFixtureOn(t *testing.T, store *storage.Service) *fixture {
	t.Helper()
	log := logger.Discard()
	loc, err := localization.NewBundled()
	require.NoError(t, err)

	rec := transporttest.NewRecorder()
	c := cache.NewMemory(time.Minute)
	b := bot.New(rec, loc, log, bot.Options{Workers: 2, PageSize: 10})

	profiles := profile.NewService(store, c, geo.NewResolver(nil, time.Second, time.Second, log), log)
	engine := ranking.NewEngine(store, profiles, c, ranking.Options{MaxDistanceKM: 100, MinInterestMatch: 1}, log)
	hub := chathub.NewHub(b, nil, chathub.DefaultOptions(), log)
	t.Cleanup(func() { _ = hub.Shutdown(context.Background()) })

	b.Attach(bot.Services{
		Store:      store,
		Profiles:   profiles,
		Ranking:    engine,
		Likes:      likes.NewService(store, profiles, c, b, log),
		Moderation: moderation.NewService(store, b, log),
		Hub:        hub,
	})
	return &fixture{bot: b, rec: rec, store: store, hub: hub, loc: loc}
}

func (f *fixture) en(key string) string { return f.loc.GetString("en", key) }

func (f *fixture) text(chatID int64, body string) {
	f.bot.Dispatch(context.Background(), transport.Event{ChatID: chatID, Language: "en", Kind: transport.KindText, Text: body})
}

func (f *fixture) command(chatID int64, name string) {
	f.bot.Dispatch(context.Background(), transport.Event{ChatID: chatID, Language: "en", Kind: transport.KindCommand, Command: name})
}

func (f *fixture) callback(chatID int64, data string) {
	f.bot.Dispatch(context.Background(), transport.Event{
		ChatID: chatID, Language: "en", Kind: transport.KindCallback, Data: data, CallbackID: fmt.Sprintf("cb-%d", chatID),
	})
}

func countContaining(texts []string, sub string) int {
	n := 0
	for _, s := range texts {
		if strings.Contains(s, sub) {
			n++
		}
	}
	return n
}

func TestSetupFlow_CreatesProfile(t *testing.T) {
	// Arrange
	f := newFixture(t)
	const id = 10

	// Act
	f.command(id, "start")
	f.text(id, "Ann")
	f.text(id, profile.AgeManualLabel)
	f.text(id, "31")
	f.callback(id, "setup_F")
	f.callback(id, "setup_1")
	f.bot.Dispatch(context.Background(), transport.Event{ChatID: id, Language: "en", Kind: transport.KindLocation, Lat: 50.45, Lon: 30.52})
	f.bot.Dispatch(context.Background(), transport.Event{ChatID: id, Language: "en", Kind: transport.KindPhoto, FileID: "photo-1"})
	f.text(id, "music, hiking")

	// Assert
	texts := f.rec.Texts(id)
	for _, key := range []string{"welcome", "ask_name", "ask_age", "ask_age_manual", "ask_gender", "ask_intent", "ask_location", "ask_photo", "ask_interests", "profile_created", "main_menu"} {
		assert.Contains(t, texts, f.en(key), key)
	}

	u, err := f.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, 31, u.Age)
	assert.Equal(t, models.GenderFemale, u.Gender)
	assert.Equal(t, models.IntentDating, u.Intent)
	assert.Equal(t, "50.4500,30.5200", u.Location)
	assert.Equal(t, "photo-1", u.PhotoID)
	assert.Equal(t, "music, hiking", u.Interests)
	assert.Equal(t, "en", u.Language)

	_, err = f.store.GetSession(context.Background(), id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetupFlow_InvalidAnswerReprompts(t *testing.T) {
	f := newFixture(t)
	const id = 11

	f.command(id, "start")
	f.text(id, "Ann")
	f.rec.Reset()

	f.text(id, "twelve")

	assert.Equal(t, []string{f.en("err_age"), f.en("ask_age")}, f.rec.Texts(id))
}

// TestSetupFlow_ResumesAfterRestart covers a crash between the location and
// photo steps: the new process expects a photo and re-prompts on text.
func TestSetupFlow_ResumesAfterRestart(t *testing.T) {
	// Arrange
	first := newFixture(t)
	const id = 12
	first.command(id, "start")
	for _, answer := range []string{"Ann", "25", "f", "2", "Kyiv"} {
		first.text(id, answer)
	}
	require.Contains(t, first.rec.Texts(id), first.en("ask_photo"))

	restarted := newFixtureOn(t, first.store)

	// Act
	restarted.text(id, "here is my photo")

	// Assert
	assert.Equal(t, []string{restarted.en("err_photo"), restarted.en("ask_photo")}, restarted.rec.Texts(id))

	restarted.bot.Dispatch(context.Background(), transport.Event{ChatID: id, Language: "en", Kind: transport.KindPhoto, FileID: "p"})
	assert.Contains(t, restarted.rec.Texts(id), restarted.en("ask_interests"))
}

func TestEditFlow_UpdatesField(t *testing.T) {
	f := newFixture(t)
	storagetest.SeedUser(t, f.store, models.User{ChatID: 13, Name: "Ann"})

	f.callback(13, "my_profile")
	last, ok := f.rec.Last(13)
	require.True(t, ok)
	require.NotNil(t, last.Keyboard)
	assert.Equal(t, "edit_name", last.Keyboard.Rows[0][0].Data)

	f.callback(13, "edit_name")
	f.text(13, "Bob")

	assert.Contains(t, f.rec.Texts(13), f.en("edit_saved"))
	u, err := f.store.GetUser(context.Background(), 13)
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Name)
}

func TestCancel_DropsSession(t *testing.T) {
	f := newFixture(t)
	f.command(14, "start")
	f.command(14, "cancel")
	f.rec.Reset()

	f.text(14, "hello")

	assert.Equal(t, []string{f.en("not_in_chat")}, f.rec.Texts(14))

	f.command(14, "cancel")
	assert.Equal(t, f.en("nothing_to_cancel"), f.rec.Texts(14)[1])
}

// TestMutualMatch_NotifiesBothOnce: U1 likes U2 without a match, then U2
// likes back and each side gets exactly one notice naming the other.
func TestMutualMatch_NotifiesBothOnce(t *testing.T) {
	// Arrange
	f := newFixture(t)
	storagetest.SeedUser(t, f.store, models.User{ChatID: 1, Name: "Max", Gender: models.GenderMale, Interests: "music, hiking", Language: "en"})
	storagetest.SeedUser(t, f.store, models.User{ChatID: 2, Name: "Ivy", Gender: models.GenderFemale, Age: 26, Interests: "music, travel", Language: "en"})
	matchWith := func(name string) string { return f.loc.Format("en", "match_found", name) }

	// Act
	f.callback(1, "like_2")
	require.Zero(t, countContaining(f.rec.Texts(1), matchWith("Ivy")))

	f.callback(2, "like_1")
	f.callback(2, "like_1")
	f.callback(1, "like_2")

	// Assert
	assert.Equal(t, 1, countContaining(f.rec.Texts(1), matchWith("Ivy")))
	assert.Equal(t, 1, countContaining(f.rec.Texts(2), matchWith("Max")))
}

func TestBrowse_ShowsCandidatesAndSkips(t *testing.T) {
	f := newFixture(t)
	storagetest.SeedUser(t, f.store, models.User{ChatID: 20, Gender: models.GenderMale, Interests: "music"})
	storagetest.SeedUser(t, f.store, models.User{ChatID: 21, Name: "Ivy", Gender: models.GenderFemale, Interests: "music", PhotoID: "p-21"})
	storagetest.SeedUser(t, f.store, models.User{ChatID: 22, Gender: models.GenderMale})

	f.callback(20, "view_profiles")

	last, ok := f.rec.Last(20)
	require.True(t, ok)
	assert.Equal(t, "photo", last.Method)
	assert.Equal(t, "p-21", last.FileID)
	assert.True(t, strings.HasPrefix(last.Text, "Ivy, 25"))
	require.NotNil(t, last.Keyboard)
	assert.Equal(t, "like_21", last.Keyboard.Rows[0][0].Data)
	assert.Equal(t, "skip_21", last.Keyboard.Rows[0][1].Data)

	f.callback(20, "skip_21")

	last, _ = f.rec.Last(20)
	assert.Equal(t, f.en("no_profiles"), last.Text)

	f.rec.Reset()
	f.callback(20, "view_profiles")
	assert.Equal(t, []string{f.en("no_profiles")}, f.rec.Texts(20))
}

func TestBrowse_RequiresProfile(t *testing.T) {
	f := newFixture(t)

	f.callback(30, "view_profiles")
	f.callback(30, "random")

	assert.Equal(t, []string{f.en("no_profile_yet"), f.en("no_profile_yet")}, f.rec.Texts(30))
}

// TestRandomChat_RelayThenEnd: a message relayed before /end reaches the
// partner before the end notice, and later messages are not relayed.
func TestRandomChat_RelayThenEnd(t *testing.T) {
	// Arrange
	f := newFixture(t)
	storagetest.SeedUser(t, f.store, models.User{ChatID: 1, Gender: models.GenderMale})
	storagetest.SeedUser(t, f.store, models.User{ChatID: 2, Gender: models.GenderFemale})

	f.callback(1, "random_F")
	require.Equal(t, []string{f.en("random_searching")}, f.rec.Texts(1))
	f.callback(2, "random_M")
	require.True(t, f.rec.WaitFor(1, 2, waitTimeout))
	require.Equal(t, chathub.StatusChatting, f.hub.Status(2))

	// Act
	f.text(1, "hi")
	f.command(1, "end")
	require.True(t, f.rec.WaitFor(2, 4, waitTimeout))
	require.True(t, f.rec.WaitFor(1, 4, waitTimeout))
	f.text(1, "anyone?")

	// Assert
	assert.Equal(t, []string{f.en("random_paired"), "hi", f.en("random_partner_left"), f.en("rate_prompt")}, f.rec.Texts(2))
	assert.Equal(t, []string{
		f.en("random_searching"), f.en("random_paired"), f.en("random_ended"), f.en("rate_prompt"), f.en("not_in_chat"),
	}, f.rec.Texts(1))

	rate, _ := f.rec.Last(2)
	require.NotNil(t, rate.Keyboard)
	assert.Equal(t, "rate_like_1", rate.Keyboard.Rows[0][0].Data)
	assert.Equal(t, chathub.StatusIdle, f.hub.Status(1))
}

func TestRandomChat_PhotoRelayAndUnsupportedKinds(t *testing.T) {
	f := newFixture(t)
	storagetest.SeedUser(t, f.store, models.User{ChatID: 1, Gender: models.GenderMale})
	storagetest.SeedUser(t, f.store, models.User{ChatID: 2, Gender: models.GenderFemale})
	f.callback(1, "random_any")
	f.callback(2, "random_any")
	require.True(t, f.rec.WaitFor(2, 1, waitTimeout))

	f.bot.Dispatch(context.Background(), transport.Event{ChatID: 1, Language: "en", Kind: transport.KindPhoto, FileID: "img", Text: "look"})
	f.bot.Dispatch(context.Background(), transport.Event{ChatID: 1, Language: "en", Kind: transport.KindLocation, Lat: 1, Lon: 1})

	require.True(t, f.rec.WaitFor(2, 2, waitTimeout))
	got, _ := f.rec.Last(2)
	assert.Equal(t, "photo", got.Method)
	assert.Equal(t, "img", got.FileID)
	assert.Equal(t, "look", got.Text)
	assert.Contains(t, f.rec.Texts(1), f.en("relay_unsupported"))
}

func TestRateLike_AfterChatCanMatch(t *testing.T) {
	f := newFixture(t)
	storagetest.SeedUser(t, f.store, models.User{ChatID: 1, Name: "Max", Gender: models.GenderMale, Language: "en"})
	storagetest.SeedUser(t, f.store, models.User{ChatID: 2, Name: "Ivy", Gender: models.GenderFemale, Language: "en"})
	f.callback(1, "random_any")
	f.callback(2, "random_any")
	require.True(t, f.rec.WaitFor(2, 1, waitTimeout))
	f.command(1, "end")
	require.Equal(t, chathub.StatusIdle, f.hub.Status(2))

	f.callback(1, "rate_like_2")
	f.callback(2, "rate_like_1")

	assert.Contains(t, f.rec.Texts(1), f.en("rate_thanks"))
	assert.Equal(t, 1, countContaining(f.rec.Texts(2), f.loc.Format("en", "match_found", "Max")))
}

// TestReports_WarnThenBan: five users report X with distinct tags. X is
// warned after the third report, banned after the fifth, and then rejected.
func TestReports_WarnThenBan(t *testing.T) {
	// Arrange
	f := newFixture(t)
	const x = 100
	storagetest.SeedUser(t, f.store, models.User{ChatID: x})
	for i := range config.ViolationTags {
		_, err := f.store.Like(context.Background(), x, int64(101+i), "")
		require.NoError(t, err)
	}

	// Act
	for i, tag := range config.ViolationTags {
		reporter := int64(101 + i)
		f.callback(reporter, fmt.Sprintf("violation_%s_%d", tag, x))
		assert.Equal(t, []string{f.en("report_thanks")}, f.rec.Texts(reporter))

		warned := countContaining(f.rec.Texts(x), f.en("report_warning"))
		if i+1 < config.WarnThreshold {
			assert.Zero(t, warned, "after report %d", i+1)
		} else {
			assert.Equal(t, 1, warned, "after report %d", i+1)
		}
	}
	f.command(x, "start")

	// Assert
	assert.Equal(t, 2, countContaining(f.rec.Texts(x), f.en("banned_notice")))
	banned, err := f.store.IsBanned(context.Background(), x)
	require.NoError(t, err)
	assert.True(t, banned)
}

func TestReport_RateLimited(t *testing.T) {
	f := newFixture(t)
	storagetest.SeedUser(t, f.store, models.User{ChatID: 2})
	_, err := f.store.Like(context.Background(), 2, 1, "")
	require.NoError(t, err)

	f.callback(1, "report_2")
	f.callback(1, "violation_spam_2")
	f.callback(1, "violation_abuse_2")

	assert.Equal(t, []string{f.en("report_choose"), f.en("report_thanks"), f.en("report_rate_limited")}, f.rec.Texts(1))
	n, err := f.store.CountReportsAgainst(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// TestRateAndReport_RequireAnEncounter: rating or reporting someone the user
// never chatted with, browsed or got a like from is refused.
func TestRateAndReport_RequireAnEncounter(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t)
	storagetest.SeedUser(t, f.store, models.User{ChatID: 1, Gender: models.GenderMale})
	storagetest.SeedUser(t, f.store, models.User{ChatID: 2, Gender: models.GenderFemale})

	// Act
	f.callback(1, "rate_like_2")
	f.callback(1, "report_2")
	f.callback(1, "violation_spam_2")

	// Assert
	unknown := f.en("unknown")
	assert.Equal(t, []string{unknown, unknown, unknown}, f.rec.Texts(1))
	inbound, err := f.store.InboundLikes(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, inbound)
	n, err := f.store.CountReportsAgainst(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCommunity_ListsGroups(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.CreateGroup(context.Background(), &models.Group{Name: "Hikers", InviteLink: "https://t.me/+hikers"}))

	f.callback(1, "community")

	last, ok := f.rec.Last(1)
	require.True(t, ok)
	assert.Contains(t, last.Text, "Hikers")
	require.NotNil(t, last.Keyboard)
	assert.Equal(t, "https://t.me/+hikers", last.Keyboard.Rows[0][0].URL)
}

func TestDispatch_UnknownEventsGetHelpHint(t *testing.T) {
	f := newFixture(t)

	f.command(1, "frobnicate")
	f.callback(1, "no_such_button")
	f.callback(1, "like_abc")

	assert.Equal(t, []string{f.en("unknown"), f.en("unknown"), f.en("unknown")}, f.rec.Texts(1))
	var answered int
	for _, s := range f.rec.To(0) {
		if s.Method == "callback" {
			answered++
		}
	}
	assert.Equal(t, 2, answered)
}

func TestDispatch_RecoversFromPanic(t *testing.T) {
	loc, err := localization.NewBundled()
	require.NoError(t, err)
	rec := transporttest.NewRecorder()
	// No services attached: the first service call panics.
	b := bot.New(rec, loc, logger.Discard(), bot.Options{})

	assert.NotPanics(t, func() {
		b.Dispatch(context.Background(), transport.Event{ChatID: 5, Language: "uk", Kind: transport.KindCommand, Command: "help"})
	})
	assert.Equal(t, []string{loc.GetString("uk", "generic_error")}, rec.Texts(5))
}

func TestRun_DrainsAcceptedEvents(t *testing.T) {
	f := newFixture(t)
	in := make(chan transport.Event)
	done := make(chan error, 1)
	go func() { done <- f.bot.Run(context.Background(), in) }()

	for id := int64(1); id <= 5; id++ {
		in <- transport.Event{ChatID: id, Language: "en", Kind: transport.KindCommand, Command: "help"}
	}
	close(in)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
	}
	for id := int64(1); id <= 5; id++ {
		assert.Equal(t, []string{f.en("help")}, f.rec.Texts(id))
	}
}
