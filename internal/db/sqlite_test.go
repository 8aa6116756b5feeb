package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pai-labs/pai/internal/models"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func seedUser(t *testing.T, database *Database) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		Name:         "Test User",
		Role:         models.RoleUser,
		Plan:         models.PlanFree,
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, database.CreateUser(u))
	return u
}

func TestUserRoundtrip(t *testing.T) {
	database := openTestDB(t)
	u := seedUser(t, database)

	got, err := database.GetUser(u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, models.RoleUser, got.Role)

	byEmail, err := database.GetUserByEmail(u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = database.GetUser("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	database := openTestDB(t)
	u := seedUser(t, database)

	require.NoError(t, database.UpdateUser(u.ID, "Renamed", models.RoleAdmin, models.PlanPro))
	got, err := database.GetUser(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, models.PlanPro, got.Plan)

	assert.ErrorIs(t, database.UpdateUser("missing", "x", models.RoleUser, models.PlanFree), ErrNotFound)

	require.NoError(t, database.DeleteUser(u.ID))
	_, err = database.GetUser(u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, database.DeleteUser(u.ID), ErrNotFound)
}

func TestAuthSessionLifecycle(t *testing.T) {
	database := openTestDB(t)
	u := seedUser(t, database)

	token := uuid.NewString()
	require.NoError(t, database.CreateAuthSession(token, u.ID, time.Now().Add(time.Hour)))

	userID, err := database.GetAuthSession(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	require.NoError(t, database.DeleteAuthSession(token))
	_, err = database.GetAuthSession(token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredAuthSessionIsRemoved(t *testing.T) {
	database := openTestDB(t)
	u := seedUser(t, database)

	token := uuid.NewString()
	require.NoError(t, database.CreateAuthSession(token, u.ID, time.Now().Add(-time.Minute)))

	_, err := database.GetAuthSession(token)
	assert.ErrorIs(t, err, ErrNotFound)
	// A second lookup hits the already-deleted row.
	_, err = database.GetAuthSession(token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConversationAndMessages(t *testing.T) {
	database := openTestDB(t)
	u := seedUser(t, database)

	conv, err := database.CreateConversation(u.ID, "New Conversation")
	require.NoError(t, err)
	require.NotZero(t, conv.ID)

	msgs := []*models.StoredMessage{
		{ConvID: conv.ID, Author: models.AuthorAssistant, Content: "welcome"},
		{ConvID: conv.ID, Author: models.AuthorUser, Content: "hello"},
		{ConvID: conv.ID, Author: models.AuthorAssistant, Content: "hi there"},
	}
	for _, m := range msgs {
		require.NoError(t, database.SaveMessage(m))
		assert.NotZero(t, m.ID)
	}

	history, err := database.GetConversationHistory(u.ID, conv.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi there", history[0].Content, "history is newest first")
	assert.Equal(t, "hello", history[1].Content)

	stranger := seedUser(t, database)
	history, err = database.GetConversationHistory(stranger.ID, conv.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, history, "history is scoped to the owner")

	list, err := database.GetConversations(u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "New Conversation", list[0].Title)

	require.NoError(t, database.UpdateConversationTitle(u.ID, conv.ID, "Renamed"))
	assert.ErrorIs(t, database.UpdateConversationTitle(u.ID, 99999, "x"), ErrNotFound)
	assert.ErrorIs(t, database.UpdateConversationTitle(stranger.ID, conv.ID, "x"), ErrNotFound)

	assert.ErrorIs(t, database.DeleteConversation(stranger.ID, conv.ID), ErrNotFound)
	require.NoError(t, database.DeleteConversation(u.ID, conv.ID))
	history, err = database.GetConversationHistory(u.ID, conv.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTaskCRUDIsUserScoped(t *testing.T) {
	database := openTestDB(t)
	owner := seedUser(t, database)
	other := seedUser(t, database)

	task := &models.Task{
		UserID:   owner.ID,
		Title:    "write report",
		Status:   models.TaskTodo,
		Priority: models.PriorityHigh,
	}
	require.NoError(t, database.CreateTask(task))
	require.NotZero(t, task.ID)

	tasks, err := database.ListTasks(owner.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	tasks, err = database.ListTasks(other.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	task.Status = models.TaskDone
	assert.ErrorIs(t, database.UpdateTask(other.ID, task), ErrNotFound,
		"another user's update must not land")
	require.NoError(t, database.UpdateTask(owner.ID, task))

	assert.ErrorIs(t, database.DeleteTask(other.ID, task.ID), ErrNotFound)
	require.NoError(t, database.DeleteTask(owner.ID, task.ID))
}

func TestMemorySearch(t *testing.T) {
	database := openTestDB(t)
	owner := seedUser(t, database)
	other := seedUser(t, database)

	items := []*models.MemoryItem{
		{UserID: owner.ID, Title: "Preferences", Content: "Prefers dark roast coffee in the morning", Type: models.MemoryPreference},
		{UserID: owner.ID, Title: "Project", Content: "Quarterly planning doc lives in the shared drive", Type: models.MemoryNote},
		{UserID: other.ID, Title: "Theirs", Content: "Also mentions coffee but belongs to someone else", Type: models.MemoryNote},
	}
	for _, item := range items {
		require.NoError(t, database.CreateMemoryItem(item))
	}

	found, err := database.SearchMemory(owner.ID, "coffee")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Preferences", found[0].Title)

	// Porter stemming matches inflected forms.
	found, err = database.SearchMemory(owner.ID, "plan")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Project", found[0].Title)

	found, err = database.SearchMemory(owner.ID, "submarine")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemorySearchMatchesTitle(t *testing.T) {
	database := openTestDB(t)
	owner := seedUser(t, database)

	item := &models.MemoryItem{
		UserID:  owner.ID,
		Title:   "Coffee",
		Content: "beans from the local roaster",
		Type:    models.MemoryNote,
	}
	require.NoError(t, database.CreateMemoryItem(item))

	found, err := database.SearchMemory(owner.ID, "Coffee")
	require.NoError(t, err)
	require.Len(t, found, 1, "a title-only hit must be found")
	assert.Equal(t, "Coffee", found[0].Title)

	found, err = database.SearchMemory(owner.ID, "roaster")
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestMemorySearchSeesUpdates(t *testing.T) {
	database := openTestDB(t)
	owner := seedUser(t, database)

	item := &models.MemoryItem{UserID: owner.ID, Title: "Note", Content: "original text", Type: models.MemoryNote}
	require.NoError(t, database.CreateMemoryItem(item))

	item.Content = "replacement text"
	require.NoError(t, database.UpdateMemoryItem(owner.ID, item))

	found, err := database.SearchMemory(owner.ID, "original")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = database.SearchMemory(owner.ID, "replacement")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, database.DeleteMemoryItem(owner.ID, item.ID))
	found, err = database.SearchMemory(owner.ID, "replacement")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCalendarEvents(t *testing.T) {
	database := openTestDB(t)
	owner := seedUser(t, database)

	start := time.Now().Add(time.Hour).Truncate(time.Second)
	event := &models.CalendarEvent{
		UserID:    owner.ID,
		Title:     "Standup",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    models.EventConfirmed,
	}
	require.NoError(t, database.CreateCalendarEvent(event))

	events, err := database.ListCalendarEvents(owner.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Title)
	assert.True(t, events[0].StartTime.Equal(start))

	event.Status = models.EventCancelled
	require.NoError(t, database.UpdateCalendarEvent(owner.ID, event))
	require.NoError(t, database.DeleteCalendarEvent(owner.ID, event.ID))
}

func TestFileRecords(t *testing.T) {
	database := openTestDB(t)
	owner := seedUser(t, database)

	file := &models.FileRecord{
		UserID:      owner.ID,
		Name:        "notes.pdf",
		ContentType: "application/pdf",
		Size:        2048,
		URL:         "https://files.example.com/notes.pdf",
	}
	require.NoError(t, database.CreateFileRecord(file))

	files, err := database.ListFileRecords(owner.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(2048), files[0].Size)

	require.NoError(t, database.DeleteFileRecord(owner.ID, file.ID))
	assert.ErrorIs(t, database.DeleteFileRecord(owner.ID, file.ID), ErrNotFound)
}

func TestNotifications(t *testing.T) {
	database := openTestDB(t)
	owner := seedUser(t, database)

	notice := &models.Notification{
		UserID:  owner.ID,
		Title:   "Chat",
		Message: "Failed to send message. Please check your API keys.",
		Kind:    models.NoticeError,
	}
	require.NoError(t, database.CreateNotification(notice))

	notices, err := database.ListNotifications(owner.ID)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.False(t, notices[0].Read)

	require.NoError(t, database.MarkNotificationRead(owner.ID, notice.ID))
	notices, err = database.ListNotifications(owner.ID)
	require.NoError(t, err)
	assert.True(t, notices[0].Read)
}
