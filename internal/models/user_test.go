package models_test

import (
	"reflect"
	"testing"

	"matchgogo/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestGroupBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestGroupBeforeCreate_GeneratesUUID(t *testing.T) {
	group := &models.Group{Name: "Hikers", InviteLink: "https://t.me/+hikers"}

	assert.Empty(t, group.ID)

	err := group.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(group.ID)
	assert.NoError(t, parseErr, "Group ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestGroupBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestGroupBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	group := &models.Group{ID: existingID}

	assert.NoError(t, group.BeforeCreate(nil))
	assert.Equal(t, existingID, group.ID)
}

// TestUserStructTags guards the primary keys the storage layer relies on.
func TestUserStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})

	idField, found := userType.FieldByName("ChatID")
	assert.True(t, found)
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")
	assert.Contains(t, idField.Tag.Get("gorm"), "autoIncrement:false")

	likeType := reflect.TypeOf(models.Like{})
	for _, name := range []string{"LikerID", "LikedID"} {
		f, ok := likeType.FieldByName(name)
		assert.True(t, ok)
		assert.Contains(t, f.Tag.Get("gorm"), "primaryKey", "%s must be part of the composite key", name)
	}
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "user_states", models.SessionState{}.TableName())
	assert.Equal(t, "random_chat_queue", models.RandomChatQueueEntry{}.TableName())
}

func TestGenderFilterAccepts(t *testing.T) {
	tests := []struct {
		name   string
		filter models.GenderFilter
		gender models.Gender
		want   bool
	}{
		{"any accepts male", models.FilterAny, models.GenderMale, true},
		{"any accepts female", models.FilterAny, models.GenderFemale, true},
		{"female filter rejects male", models.FilterFemale, models.GenderMale, false},
		{"female filter accepts female", models.FilterFemale, models.GenderFemale, true},
		{"male filter accepts male", models.FilterMale, models.GenderMale, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Accepts(tt.gender))
		})
	}
}

func TestUserHasCoords(t *testing.T) {
	lat, lon := 50.45, 30.52
	assert.False(t, (&models.User{}).HasCoords())
	assert.False(t, (&models.User{Lat: &lat}).HasCoords())
	assert.True(t, (&models.User{Lat: &lat, Lon: &lon}).HasCoords())
	assert.Equal(t, models.GenderFemale, models.GenderMale.Opposite())
	assert.True(t, models.IntentFriends.Valid())
	assert.False(t, models.Intent(3).Valid())
}
