package handlers

import (
	"net/http"

	"github.com/culturalx/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *HandlersTestSuite) createPendingPost(author *models.User, cityID, title string) *models.Post {
	post := &models.Post{
		UserID: author.ID,
		CityID: cityID,
		Type:   models.PostTypeStory,
		Title:  title,
		Status: models.PostStatusPending,
	}
	require.NoError(suite.T(), suite.db.Create(post).Error)
	return post
}

func (suite *HandlersTestSuite) TestPendingQueueScopedToModeratorCities() {
	t := suite.T()

	otherCity := &models.City{Name: "Oslo", Country: "Norway"}
	require.NoError(t, suite.db.Create(otherCity).Error)

	suite.createPendingPost(suite.alice, suite.city.ID, "In scope")
	suite.createPendingPost(suite.bob, otherCity.ID, "Out of scope")

	// Mona only moderates Kyoto
	w := suite.request("GET", "/api/moderation/pending", suite.mod.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Len(t, body["posts"], 1)
	post := body["posts"].([]any)[0].(map[string]any)
	assert.Equal(t, "In scope", post["title"])

	// Admins see the full queue
	admin := &models.User{Name: "Ada", Email: "ada@test.com", Role: models.RoleAdmin}
	require.NoError(t, suite.db.Create(admin).Error)
	w = suite.request("GET", "/api/moderation/pending", admin.ID, nil)
	body = decodeBody(t, w)
	assert.Len(t, body["posts"], 2)
}

func (suite *HandlersTestSuite) TestFlaggedQueueOnlyFlagged() {
	t := suite.T()

	suite.createPendingPost(suite.alice, suite.city.ID, "Clean post")
	flagged := suite.createPendingPost(suite.bob, suite.city.ID, "Suspicious post")
	require.NoError(t, suite.db.Model(flagged).Updates(map[string]interface{}{
		"flagged": true,
	}).Error)

	w := suite.request("GET", "/api/moderation/flagged", suite.mod.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Len(t, body["posts"], 1)
	post := body["posts"].([]any)[0].(map[string]any)
	assert.Equal(t, "Suspicious post", post["title"])
}

func (suite *HandlersTestSuite) TestApprovePost() {
	t := suite.T()

	post := suite.createPendingPost(suite.alice, suite.city.ID, "Temple visit notes")

	w := suite.request("POST", "/api/moderation/posts/"+post.ID+"/approve", suite.mod.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code, "Response body: %s", w.Body.String())

	var fresh models.Post
	require.NoError(t, suite.db.First(&fresh, "id = ?", post.ID).Error)
	assert.Equal(t, models.PostStatusApproved, fresh.Status)
	require.NotNil(t, fresh.ModeratorID)
	assert.Equal(t, suite.mod.ID, *fresh.ModeratorID)
	assert.NotNil(t, fresh.ApprovedAt)

	// The city now has visible content
	var city models.City
	require.NoError(t, suite.db.First(&city, "id = ?", suite.city.ID).Error)
	assert.True(t, city.HasContent)
	assert.Equal(t, 1, city.ContentCount)

	// The author hears about it
	var notif models.Notification
	require.NoError(t, suite.db.First(&notif, "user_id = ?", suite.alice.ID).Error)
	assert.Equal(t, models.NotificationPostApproved, notif.Type)

	// And the post shows up in the feed
	w = suite.request("GET", "/api/posts/feed", suite.bob.ID, nil)
	body := decodeBody(t, w)
	assert.Len(t, body["posts"], 1)
}

func (suite *HandlersTestSuite) TestRejectPostWithReason() {
	t := suite.T()

	post := suite.createPendingPost(suite.alice, suite.city.ID, "Not quite right")

	w := suite.request("POST", "/api/moderation/posts/"+post.ID+"/reject", suite.mod.ID, map[string]any{
		"reason": "needs a city-specific angle",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var fresh models.Post
	require.NoError(t, suite.db.First(&fresh, "id = ?", post.ID).Error)
	assert.Equal(t, models.PostStatusRejected, fresh.Status)

	var notif models.Notification
	require.NoError(t, suite.db.First(&notif, "user_id = ?", suite.alice.ID).Error)
	assert.Equal(t, models.NotificationPostRejected, notif.Type)
	assert.Contains(t, notif.Content, "needs a city-specific angle")

	// Rejection does not touch city counters
	var city models.City
	require.NoError(t, suite.db.First(&city, "id = ?", suite.city.ID).Error)
	assert.False(t, city.HasContent)
}

func (suite *HandlersTestSuite) TestModeratorCannotReviewOtherCity() {
	t := suite.T()

	otherCity := &models.City{Name: "Oslo", Country: "Norway"}
	require.NoError(t, suite.db.Create(otherCity).Error)
	post := suite.createPendingPost(suite.alice, otherCity.ID, "Fjord photos")

	w := suite.request("POST", "/api/moderation/posts/"+post.ID+"/approve", suite.mod.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var fresh models.Post
	require.NoError(t, suite.db.First(&fresh, "id = ?", post.ID).Error)
	assert.Equal(t, models.PostStatusPending, fresh.Status)
}

func (suite *HandlersTestSuite) TestApproveAlreadyReviewedPost() {
	t := suite.T()

	post := suite.createPendingPost(suite.alice, suite.city.ID, "Double review")

	w := suite.request("POST", "/api/moderation/posts/"+post.ID+"/approve", suite.mod.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.request("POST", "/api/moderation/posts/"+post.ID+"/approve", suite.mod.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
