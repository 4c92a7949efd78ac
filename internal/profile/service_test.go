package profile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"matchgogo/backend/internal/cache"
	"matchgogo/backend/internal/geo"
	"matchgogo/backend/internal/logger"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/profile"
	"matchgogo/backend/internal/storage"
	"matchgogo/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeocoder struct {
	forward map[string][3]any
	reverse string
}

func (f *fakeGeocoder) Forward(_ context.Context, q string) (float64, float64, string, error) {
	r, ok := f.forward[q]
	if !ok {
		return 0, 0, "", geo.ErrNoResult
	}
	return r[0].(float64), r[1].(float64), r[2].(string), nil
}

func (f *fakeGeocoder) Reverse(context.Context, float64, float64) (string, error) {
	if f.reverse == "" {
		return "", errors.New("unavailable")
	}
	return f.reverse, nil
}

type fixture struct {
	store *storage.Service
	cache *cache.Memory
	svc   *profile.Service
	geo   *fakeGeocoder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storagetest.NewService(t)
	c := cache.NewMemory(time.Minute)
	g := &fakeGeocoder{forward: map[string][3]any{}}
	resolver := geo.NewResolver(g, time.Second, time.Second, logger.Discard())
	return &fixture{
		store: store,
		cache: c,
		geo:   g,
		svc:   profile.NewService(store, c, resolver, logger.Discard()),
	}
}

func (f *fixture) feed(t *testing.T, chatID int64, inputs ...profile.Input) profile.Result {
	t.Helper()
	var res profile.Result
	for _, in := range inputs {
		var err error
		res, err = f.svc.Advance(context.Background(), chatID, in)
		require.NoError(t, err)
	}
	return res
}

func TestSetup_CompletesAndGeocodesLazily(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.geo.forward["Kyiv"] = [3]any{50.45, 30.52, "Kyiv, Ukraine"}

	_, err := f.svc.StartSetup(ctx, 1, "ann", "uk")
	require.NoError(t, err)

	res := f.feed(t, 1,
		text("Ann"), text("24"), text("F"), text("1"), text("Kyiv"),
		profile.Input{Kind: profile.InputPhoto, PhotoID: "ph"},
		text("music, travel"),
	)
	require.NotNil(t, res.User)
	assert.True(t, res.State.Done())

	got, err := f.store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, "ann", got.Handle)
	assert.Equal(t, "uk", got.Language)
	assert.Equal(t, "Kyiv, Ukraine", got.Location)
	require.True(t, got.HasCoords())
	assert.InDelta(t, 50.45, *got.Lat, 1e-9)

	st, err := f.svc.Session(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, st, "session is deleted on completion")
}

func TestSetup_UnresolvableLocationKeepsText(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StartSetup(context.Background(), 2, "", "en")
	require.NoError(t, err)

	res := f.feed(t, 2,
		text("Bo"), text("30"), text("M"), text("2"), text("Nowhere town"),
		profile.Input{Kind: profile.InputPhoto, PhotoID: "ph"}, text("go"),
	)
	require.NotNil(t, res.User)
	assert.Equal(t, "Nowhere town", res.User.Location)
	assert.False(t, res.User.HasCoords())
}

func TestSetup_SharedLocationIsReverseGeocoded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.geo.reverse = "Lviv, Ukraine"
	_, err := f.svc.StartSetup(ctx, 3, "", "en")
	require.NoError(t, err)

	res := f.feed(t, 3, text("Cy"), text("22"), text("F"), text("1"),
		profile.Input{Kind: profile.InputLocation, Lat: 49.84, Lon: 24.03})
	assert.Equal(t, profile.StepPhoto, res.State.Step)
	assert.Equal(t, "Lviv, Ukraine", res.State.Draft.Location)

	f.geo.reverse = ""
	_, err = f.svc.StartSetup(ctx, 4, "", "en")
	require.NoError(t, err)
	res = f.feed(t, 4, text("Di"), text("22"), text("F"), text("1"),
		profile.Input{Kind: profile.InputLocation, Lat: 49.84, Lon: 24.03})
	assert.Equal(t, "49.8400,24.0300", res.State.Draft.Location)

	_, err = f.svc.StartSetup(ctx, 5, "", "en")
	require.NoError(t, err)
	f.feed(t, 5, text("Ed"), text("22"), text("F"), text("1"))
	_, err = f.svc.Advance(ctx, 5, profile.Input{Kind: profile.InputLocation, Lat: 95, Lon: 0})
	assert.ErrorIs(t, err, profile.ErrInvalidLocation)
}

func TestSetup_ResumesAfterRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.StartSetup(ctx, 7, "", "en")
	require.NoError(t, err)
	f.feed(t, 7, text("Ul"), text("28"), text("M"), text("1"), text("skip"))

	// A fresh service over the same database stands in for a process restart.
	restarted := profile.NewService(f.store, cache.NewMemory(time.Minute),
		geo.NewResolver(nil, time.Second, time.Second, logger.Discard()), logger.Discard())

	st, err := restarted.Session(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, profile.StepPhoto, st.Step)
	assert.Equal(t, "Ul", st.Draft.Name)

	res, err := restarted.Advance(ctx, 7, text("where is my photo?"))
	assert.ErrorIs(t, err, profile.ErrExpectedPhoto)
	assert.Equal(t, profile.StepPhoto, res.State.Step)

	st, err = restarted.Session(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, profile.StepPhoto, st.Step)
}

func TestEdit_UpdatesFieldAndInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storagetest.SeedUser(t, f.store, models.User{ChatID: 9, Name: "Old", Interests: "chess"})

	u, err := f.svc.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "Old", u.Name)
	_ = f.cache.Set(ctx, cache.MatchesKey(9, 0, 10), []byte("[]"))

	_, err = f.svc.StartEdit(ctx, 9, profile.StepName)
	require.NoError(t, err)
	res := f.feed(t, 9, text("New"))
	require.NotNil(t, res.User)

	_, hit, _ := f.cache.Get(ctx, cache.MatchesKey(9, 0, 10))
	assert.False(t, hit)

	u, err = f.svc.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "New", u.Name)
	assert.Equal(t, "chess", u.Interests)
}

func TestEdit_RequiresProfile(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StartEdit(context.Background(), 10, profile.StepName)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	storagetest.SeedUser(t, f.store, models.User{ChatID: 10})
	_, err = f.svc.StartEdit(context.Background(), 10, profile.StepAgeManual)
	assert.Error(t, err)
}

func TestCancelAndNoSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Advance(ctx, 11, text("hi"))
	assert.ErrorIs(t, err, profile.ErrNoSession)

	cancelled, err := f.svc.Cancel(ctx, 11)
	require.NoError(t, err)
	assert.False(t, cancelled)

	_, err = f.svc.StartSetup(ctx, 11, "", "en")
	require.NoError(t, err)
	cancelled, err = f.svc.Cancel(ctx, 11)
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestGet_ReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storagetest.SeedUser(t, f.store, models.User{ChatID: 12, Name: "Cached"})

	_, err := f.svc.Get(ctx, 12)
	require.NoError(t, err)

	require.NoError(t, f.store.DB.Model(&models.User{}).Where("chat_id = ?", 12).Update("name", "Changed").Error)
	u, err := f.svc.Get(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, "Cached", u.Name, "served from cache until invalidated")

	f.svc.Invalidate(ctx, 12)
	u, err = f.svc.Get(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, "Changed", u.Name)
}
