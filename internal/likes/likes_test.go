package likes_test

import (
	"context"
	"testing"
	"time"

	"matchgogo/backend/internal/cache"
	"matchgogo/backend/internal/likes"
	"matchgogo/backend/internal/logger"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/storage"
	"matchgogo/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyMatch(ctx context.Context, recipient, partner *models.User) {
	m.Called(recipient.ChatID, partner.Name)
}

type storeReader struct{ s *storage.Service }

func (r storeReader) Get(ctx context.Context, id int64) (*models.User, error) {
	return r.s.GetUser(ctx, id)
}

func newService(t *testing.T, n likes.Notifier) (*likes.Service, *storage.Service, *cache.Memory) {
	t.Helper()
	s := storagetest.NewService(t)
	c := cache.NewMemory(time.Minute)
	return likes.NewService(s, storeReader{s}, c, n, logger.Discard()), s, c
}

func TestLike_MutualMatchNotifiesBothOnce(t *testing.T) {
	ctx := context.Background()
	n := new(MockNotifier)
	svc, s, _ := newService(t, n)

	storagetest.SeedUser(t, s, models.User{ChatID: 1, Name: "U1", Gender: models.GenderMale, Age: 25, Interests: "music, hiking"})
	storagetest.SeedUser(t, s, models.User{ChatID: 2, Name: "U2", Gender: models.GenderFemale, Age: 26, Interests: "music, travel"})

	res, err := svc.Like(ctx, 1, 2, "")
	require.NoError(t, err)
	assert.False(t, res.Mutual)
	n.AssertNotCalled(t, "NotifyMatch", mock.Anything, mock.Anything)

	n.On("NotifyMatch", int64(1), "U2").Once()
	n.On("NotifyMatch", int64(2), "U1").Once()

	res, err = svc.Like(ctx, 2, 1, "")
	require.NoError(t, err)
	assert.True(t, res.Mutual)

	// Repeats on either side must not re-fire.
	_, err = svc.Like(ctx, 2, 1, "")
	require.NoError(t, err)
	_, err = svc.Like(ctx, 1, 2, "")
	require.NoError(t, err)

	n.AssertExpectations(t)
	n.AssertNumberOfCalls(t, "NotifyMatch", 2)
}

func TestLike_InvalidatesViewerMatches(t *testing.T) {
	ctx := context.Background()
	svc, s, c := newService(t, new(MockNotifier))
	storagetest.SeedUser(t, s, models.User{ChatID: 1})
	storagetest.SeedUser(t, s, models.User{ChatID: 2, Gender: models.GenderFemale})

	_ = c.Set(ctx, cache.MatchesKey(1, 0, 10), []byte("[]"))
	_, err := svc.Like(ctx, 1, 2, "")
	require.NoError(t, err)

	_, hit, _ := c.Get(ctx, cache.MatchesKey(1, 0, 10))
	assert.False(t, hit)
}

func TestLike_Self(t *testing.T) {
	svc, _, _ := newService(t, new(MockNotifier))
	_, err := svc.Like(context.Background(), 5, 5, "")
	assert.ErrorIs(t, err, storage.ErrSelfInteraction)
}

func TestSkip_MarksSeen(t *testing.T) {
	ctx := context.Background()
	svc, s, c := newService(t, new(MockNotifier))
	_ = c.Set(ctx, cache.MatchesKey(1, 0, 10), []byte("[]"))

	require.NoError(t, svc.Skip(ctx, 1, 2))

	var seen models.SeenProfile
	require.NoError(t, s.DB.First(&seen).Error)
	assert.False(t, seen.Liked)
	assert.Equal(t, int64(2), seen.ProfileID)
	_, hit, _ := c.Get(ctx, cache.MatchesKey(1, 0, 10))
	assert.False(t, hit)
}

func TestInbound_EnrichedNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, s, _ := newService(t, new(MockNotifier))
	storagetest.SeedUser(t, s, models.User{ChatID: 10, Name: "Me"})
	storagetest.SeedUser(t, s, models.User{ChatID: 1, Name: "First"})
	storagetest.SeedUser(t, s, models.User{ChatID: 2, Name: "Second"})

	base := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.DB.Create(&models.Like{LikerID: 1, LikedID: 10, CreatedAt: base}).Error)
	require.NoError(t, s.DB.Create(&models.Like{LikerID: 2, LikedID: 10, Note: "hi", CreatedAt: base.Add(time.Minute)}).Error)
	// Liker without a profile.
	require.NoError(t, s.DB.Create(&models.Like{LikerID: 3, LikedID: 10, CreatedAt: base.Add(2 * time.Minute)}).Error)

	got, err := svc.Inbound(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Second", got[0].From.Name)
	assert.Equal(t, "hi", got[0].Note)
	assert.Equal(t, "First", got[1].From.Name)

	none, err := svc.Inbound(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, none)
}
