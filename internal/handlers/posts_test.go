package handlers

import (
	"net/http"
	"strings"

	"github.com/culturalx/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *HandlersTestSuite) createApprovedPost(author *models.User, title string) *models.Post {
	post := &models.Post{
		UserID: author.ID,
		CityID: suite.city.ID,
		Type:   models.PostTypeStory,
		Title:  title,
		Status: models.PostStatusApproved,
	}
	require.NoError(suite.T(), suite.db.Create(post).Error)
	return post
}

// =============================================================================
// POST CREATION
// =============================================================================

func (suite *HandlersTestSuite) TestCreatePostStartsPending() {
	t := suite.T()

	w := suite.request("POST", "/api/posts", suite.alice.ID, map[string]any{
		"city_id":     suite.city.ID,
		"type":        "recipe",
		"title":       "Grandmother's feijoada",
		"description": "A slow Saturday stew we make for family gatherings, with farofa on the side.",
	})
	assert.Equal(t, http.StatusCreated, w.Code, "Response body: %s", w.Body.String())

	var post models.Post
	require.NoError(t, suite.db.First(&post, "user_id = ?", suite.alice.ID).Error)
	assert.Equal(t, models.PostStatusPending, post.Status)
	assert.False(t, post.Flagged)

	// Pending posts do not appear in the feed
	w = suite.request("GET", "/api/posts/feed", suite.bob.ID, nil)
	body := decodeBody(t, w)
	assert.Empty(t, body["posts"])
}

func (suite *HandlersTestSuite) TestCreatePostFlagsSpam() {
	t := suite.T()

	w := suite.request("POST", "/api/posts", suite.alice.ID, map[string]any{
		"city_id":     suite.city.ID,
		"type":        "story",
		"title":       "FREE MONEY CLICK HERE NOW",
		"description": "buy now http://a.com http://b.com http://c.com http://d.com",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var post models.Post
	require.NoError(t, suite.db.First(&post, "user_id = ?", suite.alice.ID).Error)
	assert.True(t, post.Flagged)
	assert.NotEmpty(t, post.FlagReasons)
	assert.Equal(t, models.PostStatusPending, post.Status, "flagged posts still await review")
}

func (suite *HandlersTestSuite) TestCreatePostDuplicateTitle() {
	t := suite.T()

	payload := map[string]any{
		"city_id":     suite.city.ID,
		"type":        "photo",
		"title":       "Cherry blossoms at the river",
		"description": "Taken this morning along the Kamo river.",
	}
	w := suite.request("POST", "/api/posts", suite.alice.ID, payload)
	require.Equal(t, http.StatusCreated, w.Code)

	w = suite.request("POST", "/api/posts", suite.alice.ID, payload)
	assert.Equal(t, http.StatusConflict, w.Code)

	// A different author may reuse the title
	w = suite.request("POST", "/api/posts", suite.bob.ID, payload)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func (suite *HandlersTestSuite) TestCreatePostUnknownType() {
	t := suite.T()

	w := suite.request("POST", "/api/posts", suite.alice.ID, map[string]any{
		"city_id": suite.city.ID,
		"type":    "podcast",
		"title":   "Some title",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestCreatePostUnknownCity() {
	t := suite.T()

	w := suite.request("POST", "/api/posts", suite.alice.ID, map[string]any{
		"city_id": "no-such-city",
		"type":    "story",
		"title":   "Some title",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =============================================================================
// FEED
// =============================================================================

func (suite *HandlersTestSuite) TestFeedFiltersAndPagination() {
	t := suite.T()

	other := &models.City{Name: "Lagos", Country: "Nigeria"}
	require.NoError(t, suite.db.Create(other).Error)

	suite.createApprovedPost(suite.alice, "Post one")
	suite.createApprovedPost(suite.alice, "Post two")
	tagged := &models.Post{
		UserID: suite.bob.ID,
		CityID: other.ID,
		Type:   models.PostTypeMusic,
		Title:  "Afrobeat night",
		Status: models.PostStatusApproved,
	}
	require.NoError(t, suite.db.Create(tagged).Error)

	w := suite.request("GET", "/api/posts/feed", suite.alice.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["posts"], 3)

	w = suite.request("GET", "/api/posts/feed?city_id="+other.ID, suite.alice.ID, nil)
	body = decodeBody(t, w)
	assert.Len(t, body["posts"], 1)

	w = suite.request("GET", "/api/posts/feed?type=music", suite.alice.ID, nil)
	body = decodeBody(t, w)
	assert.Len(t, body["posts"], 1)

	w = suite.request("GET", "/api/posts/feed?limit=2", suite.alice.ID, nil)
	body = decodeBody(t, w)
	assert.Len(t, body["posts"], 2)
	assert.Equal(t, true, body["has_more"])
	assert.NotEmpty(t, body["next_cursor"])
}

func (suite *HandlersTestSuite) TestGetPostHidesPendingFromOthers() {
	t := suite.T()

	pending := &models.Post{
		UserID: suite.alice.ID,
		CityID: suite.city.ID,
		Type:   models.PostTypeStory,
		Title:  "Not yet reviewed",
		Status: models.PostStatusPending,
	}
	require.NoError(t, suite.db.Create(pending).Error)

	w := suite.request("GET", "/api/posts/"+pending.ID, suite.bob.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The author still sees their own pending post
	w = suite.request("GET", "/api/posts/"+pending.ID, suite.alice.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// =============================================================================
// LIKES
// =============================================================================

func (suite *HandlersTestSuite) TestLikePostNotifiesAuthor() {
	t := suite.T()

	post := suite.createApprovedPost(suite.alice, "Street food tour")

	w := suite.request("POST", "/api/posts/"+post.ID+"/like", suite.bob.ID, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	var fresh models.Post
	require.NoError(t, suite.db.First(&fresh, "id = ?", post.ID).Error)
	assert.Equal(t, 1, fresh.LikeCount)

	var notif models.Notification
	require.NoError(t, suite.db.First(&notif, "user_id = ?", suite.alice.ID).Error)
	assert.Equal(t, models.NotificationPostLiked, notif.Type)
	assert.True(t, strings.Contains(notif.Content, "Bob"))

	// Double like conflicts and leaves the counter alone
	w = suite.request("POST", "/api/posts/"+post.ID+"/like", suite.bob.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, suite.db.First(&fresh, "id = ?", post.ID).Error)
	assert.Equal(t, 1, fresh.LikeCount)

	w = suite.request("DELETE", "/api/posts/"+post.ID+"/like", suite.bob.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, suite.db.First(&fresh, "id = ?", post.ID).Error)
	assert.Equal(t, 0, fresh.LikeCount)
}

// =============================================================================
// COMMENTS
// =============================================================================

func (suite *HandlersTestSuite) TestCommentAndReplyNotifications() {
	t := suite.T()

	post := suite.createApprovedPost(suite.alice, "Tea ceremony basics")

	w := suite.request("POST", "/api/posts/"+post.ID+"/comments", suite.bob.ID, map[string]any{
		"content": "Loved this, thank you for sharing.",
	})
	assert.Equal(t, http.StatusCreated, w.Code, "Response body: %s", w.Body.String())

	var notif models.Notification
	require.NoError(t, suite.db.First(&notif, "user_id = ?", suite.alice.ID).Error)
	assert.Equal(t, models.NotificationPostCommented, notif.Type)

	var comment models.Comment
	require.NoError(t, suite.db.First(&comment, "post_id = ?", post.ID).Error)

	// Alice replies to Bob's comment; Bob gets a reply notification
	w = suite.request("POST", "/api/posts/"+post.ID+"/comments", suite.alice.ID, map[string]any{
		"content":           "Glad you enjoyed it!",
		"parent_comment_id": comment.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	notif = models.Notification{}
	require.NoError(t, suite.db.First(&notif, "user_id = ?", suite.bob.ID).Error)
	assert.Equal(t, models.NotificationCommentReplied, notif.Type)

	var fresh models.Post
	require.NoError(t, suite.db.First(&fresh, "id = ?", post.ID).Error)
	assert.Equal(t, 2, fresh.CommentCount)

	w = suite.request("GET", "/api/posts/"+post.ID+"/comments", suite.bob.ID, nil)
	body := decodeBody(t, w)
	assert.Len(t, body["comments"], 2)
}

func (suite *HandlersTestSuite) TestCommentUnknownParent() {
	t := suite.T()

	post := suite.createApprovedPost(suite.alice, "Harbor walk")

	w := suite.request("POST", "/api/posts/"+post.ID+"/comments", suite.bob.ID, map[string]any{
		"content":           "reply to nothing",
		"parent_comment_id": "no-such-comment",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =============================================================================
// ACTIVITY FEED & SEARCH
// =============================================================================

func (suite *HandlersTestSuite) TestActivityFeedOnlyFriends() {
	t := suite.T()

	stranger := &models.User{Name: "Zed", Email: "zed@test.com"}
	require.NoError(t, suite.db.Create(stranger).Error)

	require.NoError(t, suite.db.Create(&models.Connection{
		User1ID:     suite.alice.ID,
		User2ID:     suite.bob.ID,
		RequestedBy: suite.alice.ID,
		Status:      models.ConnectionAccepted,
	}).Error)

	suite.createApprovedPost(suite.bob, "Friend post")
	suite.createApprovedPost(stranger, "Stranger post")

	w := suite.request("GET", "/api/posts/feed/activity", suite.alice.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Len(t, body["posts"], 1)
	post := body["posts"].([]any)[0].(map[string]any)
	assert.Equal(t, "Friend post", post["title"])
}

func (suite *HandlersTestSuite) TestSearchPosts() {
	t := suite.T()

	suite.createApprovedPost(suite.alice, "Midsummer bonfire traditions")
	suite.createApprovedPost(suite.bob, "Night market snacks")

	w := suite.request("GET", "/api/posts/search?q=bonfire", suite.bob.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["posts"], 1)

	w = suite.request("GET", "/api/posts/search?q=x", suite.bob.ID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// =============================================================================
// EDIT & DELETE
// =============================================================================

func (suite *HandlersTestSuite) TestUpdatePostReturnsToPending() {
	t := suite.T()

	post := suite.createApprovedPost(suite.alice, "Original title")

	w := suite.request("PUT", "/api/posts/"+post.ID, suite.alice.ID, map[string]any{
		"title": "Revised title",
	})
	assert.Equal(t, http.StatusOK, w.Code, "Response body: %s", w.Body.String())

	var fresh models.Post
	require.NoError(t, suite.db.First(&fresh, "id = ?", post.ID).Error)
	assert.Equal(t, "Revised title", fresh.Title)
	assert.Equal(t, models.PostStatusPending, fresh.Status, "edits go back through review")
	assert.Nil(t, fresh.ModeratorID)

	// Only the author can edit
	w = suite.request("PUT", "/api/posts/"+post.ID, suite.bob.ID, map[string]any{
		"title": "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func (suite *HandlersTestSuite) TestDeletePost() {
	t := suite.T()

	post := suite.createApprovedPost(suite.alice, "Short lived")

	w := suite.request("DELETE", "/api/posts/"+post.ID, suite.bob.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = suite.request("DELETE", "/api/posts/"+post.ID, suite.alice.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.Post{}).Where("id = ?", post.ID).Count(&count)
	assert.Zero(t, count)
}

func (suite *HandlersTestSuite) TestCommentEditAndDelete() {
	t := suite.T()

	post := suite.createApprovedPost(suite.alice, "Old town walk")

	w := suite.request("POST", "/api/posts/"+post.ID+"/comments", suite.bob.ID, map[string]any{
		"content": "first version",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var comment models.Comment
	require.NoError(t, suite.db.First(&comment, "post_id = ?", post.ID).Error)

	// Only the author can edit
	w = suite.request("PUT", "/api/comments/"+comment.ID, suite.alice.ID, map[string]any{
		"content": "edited by someone else",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = suite.request("PUT", "/api/comments/"+comment.ID, suite.bob.ID, map[string]any{
		"content": "second version",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, suite.db.First(&comment, "id = ?", comment.ID).Error)
	assert.Equal(t, "second version", comment.Text)

	// The post author may delete comments on their post
	w = suite.request("DELETE", "/api/comments/"+comment.ID, suite.alice.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var fresh models.Post
	require.NoError(t, suite.db.First(&fresh, "id = ?", post.ID).Error)
	assert.Equal(t, 0, fresh.CommentCount)
}

// =============================================================================
// SAVED POSTS
// =============================================================================

func (suite *HandlersTestSuite) TestSaveAndUnsavePost() {
	t := suite.T()

	post := suite.createApprovedPost(suite.alice, "Hidden ramen spot")

	w := suite.request("POST", "/api/posts/"+post.ID+"/save", suite.bob.ID, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = suite.request("GET", "/api/posts/saved", suite.bob.ID, nil)
	body := decodeBody(t, w)
	assert.Len(t, body["posts"], 1)

	w = suite.request("DELETE", "/api/posts/"+post.ID+"/save", suite.bob.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = suite.request("GET", "/api/posts/saved", suite.bob.ID, nil)
	body = decodeBody(t, w)
	assert.Empty(t, body["posts"])
}
