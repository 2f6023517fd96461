package moderation

import (
	"strings"
	"testing"

	"github.com/culturalx/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestScoreCleanContent(t *testing.T) {
	res := Score("My grandmother's dumpling recipe", "A family recipe passed down for three generations, with step by step photos.")
	assert.Equal(t, 0, res.Score)
	assert.False(t, res.Flagged)
	assert.Empty(t, res.Reasons)
}

func TestScoreSpamKeywords(t *testing.T) {
	res := Score("Buy now! Limited offer!", "Click here to claim your free money, guaranteed no risk")
	assert.True(t, res.Flagged)
	assert.GreaterOrEqual(t, res.Score, FlagThreshold)
}

func TestScoreExcessiveLinks(t *testing.T) {
	desc := "check these out http://a.com http://b.com http://c.com http://d.com and more words to pad this description out past the short threshold"
	res := Score("Some links", desc)
	assert.Equal(t, 3, res.Score)
	assert.False(t, res.Flagged)
	assert.Contains(t, res.Reasons[0], "excessive links")
}

func TestScoreCapsRatio(t *testing.T) {
	res := Score("AMAZING TRADITIONAL FOOD YOU MUST SEE", "")
	assert.Equal(t, 2, res.Score)
	assert.Contains(t, res.Reasons, "excessive capitalization")

	// Short shouting is ignored below the letter threshold.
	res = Score("WOW NICE", "")
	assert.Equal(t, 0, res.Score)
}

func TestScoreRepetition(t *testing.T) {
	res := Score("", strings.TrimSpace(strings.Repeat("same ", 20)))
	assert.Equal(t, 2, res.Score)
	assert.Contains(t, res.Reasons, "repetitive content")
}

func TestScoreShortContentWithLink(t *testing.T) {
	res := Score("look", "http://spam.example")
	assert.Equal(t, 2, res.Score)
	assert.Contains(t, res.Reasons, "short content with link")
}

func TestIsDuplicate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.City{}, &models.Post{}))

	user := models.User{Name: "Dana", Email: "dana@example.com"}
	require.NoError(t, db.Create(&user).Error)
	city := models.City{Name: "Lisbon", Country: "Portugal"}
	require.NoError(t, db.Create(&city).Error)

	post := models.Post{
		UserID: user.ID,
		CityID: city.ID,
		Type:   models.PostTypeStory,
		Title:  "Festival of lights",
	}
	require.NoError(t, db.Create(&post).Error)

	dup, err := IsDuplicate(db, user.ID, "Festival of lights")
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = IsDuplicate(db, user.ID, "A different title")
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = IsDuplicate(db, uuid.NewString(), "Festival of lights")
	require.NoError(t, err)
	assert.False(t, dup)
}
