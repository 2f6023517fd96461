package messaging

import (
	"strings"
	"testing"

	"github.com/culturalx/backend/internal/models"
	ws "github.com/culturalx/backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakePusher records pushed events instead of delivering them
type fakePusher struct {
	sent   []pushedEvent
	online map[string]bool
}

type pushedEvent struct {
	userID  string
	message *ws.Message
}

func (f *fakePusher) SendToUser(userID string, message *ws.Message) {
	f.sent = append(f.sent, pushedEvent{userID: userID, message: message})
}

func (f *fakePusher) IsUserOnline(userID string) bool {
	return f.online[userID]
}

func setupTestService(t *testing.T) (*Service, *gorm.DB, *fakePusher) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.UserBlock{}, &models.Connection{}, &models.Message{},
	))
	pusher := &fakePusher{online: make(map[string]bool)}
	return NewService(db, pusher), db, pusher
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := models.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestSendPersistsThenPushes(t *testing.T) {
	svc, db, pusher := setupTestService(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	pusher.online[bob.ID] = true

	msg, err := svc.Send(alice.ID, bob.ID, "hello from Marrakesh")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.False(t, msg.Read)

	var stored models.Message
	require.NoError(t, db.First(&stored, msg.ID).Error)
	assert.Equal(t, "hello from Marrakesh", stored.Content)

	require.Len(t, pusher.sent, 1)
	assert.Equal(t, bob.ID, pusher.sent[0].userID)
	assert.Equal(t, ws.MessageTypeReceiveMessage, pusher.sent[0].message.Type)

	payload := pusher.sent[0].message.Payload.(ws.MessagePayload)
	assert.Equal(t, msg.ID, payload.MessageID)
	assert.Equal(t, alice.ID, payload.SenderID)
	assert.Equal(t, "alice", payload.SenderName)
}

func TestSendValidation(t *testing.T) {
	svc, db, _ := setupTestService(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	_, err := svc.Send(alice.ID, bob.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.Send(alice.ID, bob.ID, strings.Repeat("x", models.MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrContentTooLong)

	_, err = svc.Send(alice.ID, alice.ID, "note to self")
	assert.ErrorIs(t, err, ErrSelfMessage)

	_, err = svc.Send(alice.ID, "missing-user", "hi")
	assert.ErrorIs(t, err, ErrReceiverNotFound)
}

func TestSendRespectsBlocks(t *testing.T) {
	svc, db, pusher := setupTestService(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	require.NoError(t, db.Create(&models.UserBlock{BlockerID: bob.ID, BlockedID: alice.ID}).Error)

	_, err := svc.Send(alice.ID, bob.ID, "hello?")
	assert.ErrorIs(t, err, ErrBlocked)

	// The block applies in both directions
	_, err = svc.Send(bob.ID, alice.ID, "hello?")
	assert.ErrorIs(t, err, ErrBlocked)

	assert.Empty(t, pusher.sent, "no push for rejected messages")
}

func TestSendFriendsOnlyPrivacy(t *testing.T) {
	svc, db, _ := setupTestService(t)
	alice := createUser(t, db, "alice")

	bob := models.User{Name: "bob", Email: "bob@example.com", MessagingPrivacy: models.MessagingFriendsOnly}
	require.NoError(t, db.Create(&bob).Error)

	_, err := svc.Send(alice.ID, bob.ID, "hi stranger")
	assert.ErrorIs(t, err, ErrNotFriends)

	// A pending request is not enough
	conn := models.Connection{User1ID: alice.ID, User2ID: bob.ID, RequestedBy: alice.ID, Status: models.ConnectionPending}
	require.NoError(t, db.Create(&conn).Error)
	_, err = svc.Send(alice.ID, bob.ID, "hi again")
	assert.ErrorIs(t, err, ErrNotFriends)

	require.NoError(t, db.Model(&conn).Update("status", models.ConnectionAccepted).Error)
	_, err = svc.Send(alice.ID, bob.ID, "hi friend")
	assert.NoError(t, err)
}

func TestConversationHistoryPagination(t *testing.T) {
	svc, db, _ := setupTestService(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	for i := 0; i < 5; i++ {
		from, to := alice.ID, bob.ID
		if i%2 == 1 {
			from, to = bob.ID, alice.ID
		}
		_, err := svc.Send(from, to, "msg")
		require.NoError(t, err)
	}

	// Newest first, limit 2, hasMore set
	page1, hasMore, err := svc.ConversationHistory(alice.ID, bob.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.True(t, hasMore)
	assert.Greater(t, page1[0].ID, page1[1].ID)

	// Next page starts below the last seen ID
	page2, hasMore, err := svc.ConversationHistory(alice.ID, bob.ID, page1[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.True(t, hasMore)
	assert.Less(t, page2[0].ID, page1[1].ID)

	page3, hasMore, err := svc.ConversationHistory(alice.ID, bob.ID, page2[1].ID, 2)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.False(t, hasMore)
}

func TestConversationHistoryMarksRead(t *testing.T) {
	svc, db, _ := setupTestService(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	_, err := svc.Send(bob.ID, alice.ID, "one")
	require.NoError(t, err)
	_, err = svc.Send(bob.ID, alice.ID, "two")
	require.NoError(t, err)

	count, err := svc.UnreadCount(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, _, err = svc.ConversationHistory(alice.ID, bob.ID, 0, 50)
	require.NoError(t, err)

	count, err = svc.UnreadCount(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// Bob's own unread count is untouched
	count, err = svc.UnreadCount(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestConversationsGrouping(t *testing.T) {
	svc, db, _ := setupTestService(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	_, err := svc.Send(alice.ID, bob.ID, "to bob 1")
	require.NoError(t, err)
	_, err = svc.Send(bob.ID, alice.ID, "from bob")
	require.NoError(t, err)
	_, err = svc.Send(carol.ID, alice.ID, "from carol")
	require.NoError(t, err)

	convos, err := svc.Conversations(alice.ID)
	require.NoError(t, err)
	require.Len(t, convos, 2)

	// Most recent conversation first
	assert.Equal(t, carol.ID, convos[0].OtherUser.ID)
	assert.Equal(t, "from carol", convos[0].LastMessage.Content)
	assert.Equal(t, int64(1), convos[0].UnreadCount)

	assert.Equal(t, bob.ID, convos[1].OtherUser.ID)
	assert.Equal(t, "from bob", convos[1].LastMessage.Content)
	assert.Equal(t, int64(1), convos[1].UnreadCount)
}
