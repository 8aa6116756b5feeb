package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pai-labs/pai/internal/models"
)

func TestAppendTokenSpacing(t *testing.T) {
	store := NewStore()
	msg := models.NewAssistantMessage()
	store.Append(msg)

	got, ok := store.AppendToken(msg.ID, "Hello")
	require.True(t, ok)
	assert.Equal(t, "Hello", got.Content)

	got, ok = store.AppendToken(msg.ID, "there!")
	require.True(t, ok)
	assert.Equal(t, "Hello there!", got.Content)
}

func TestAppendTokenRejectedOnceTerminal(t *testing.T) {
	store := NewStore()
	msg := models.NewAssistantMessage()
	store.Append(msg)

	_, ok := store.AppendToken(msg.ID, "partial")
	require.True(t, ok)
	_, ok = store.Finish(msg.ID)
	require.True(t, ok)

	_, ok = store.AppendToken(msg.ID, "late")
	assert.False(t, ok)

	got, found := store.Get(msg.ID)
	require.True(t, found)
	assert.Equal(t, "partial", got.Content)
}

func TestFinishRequiresRevealing(t *testing.T) {
	store := NewStore()
	user := models.NewUserMessage("hi")
	store.Append(user)

	_, ok := store.Finish(user.ID)
	assert.False(t, ok)
	_, ok = store.Finish("no-such-id")
	assert.False(t, ok)
}

func TestFinishWithSuffixAppendsRaw(t *testing.T) {
	store := NewStore()
	msg := models.NewAssistantMessage()
	store.Append(msg)
	store.AppendToken(msg.ID, "The")
	store.AppendToken(msg.ID, "answer")

	got, ok := store.FinishWithSuffix(msg.ID, " [Generation stopped]")
	require.True(t, ok)
	assert.Equal(t, "The answer [Generation stopped]", got.Content)
	assert.Equal(t, models.DeliveryComplete, got.State)
}

func TestFailReplacesContent(t *testing.T) {
	store := NewStore()
	msg := models.NewAssistantMessage()
	store.Append(msg)
	store.AppendToken(msg.ID, "half")

	got, ok := store.Fail(msg.ID, "Something went wrong")
	require.True(t, ok)
	assert.Equal(t, "Something went wrong", got.Content)
	assert.Equal(t, models.DeliveryErrored, got.State)

	// A failed message is terminal too.
	_, ok = store.Fail(msg.ID, "again")
	assert.False(t, ok)
}

func TestToggleReactionFlagsAreIndependent(t *testing.T) {
	store := NewStore()
	msg := models.NewWelcomeMessage("hello")
	store.Append(msg)

	got, ok := store.ToggleReaction(msg.ID, ReactionLiked)
	require.True(t, ok)
	assert.True(t, got.Reactions.Liked)
	assert.False(t, got.Reactions.Disliked)

	got, ok = store.ToggleReaction(msg.ID, ReactionDisliked)
	require.True(t, ok)
	assert.True(t, got.Reactions.Liked, "disliking must not clear the like")
	assert.True(t, got.Reactions.Disliked)

	got, ok = store.ToggleReaction(msg.ID, ReactionLiked)
	require.True(t, ok)
	assert.False(t, got.Reactions.Liked)
	assert.True(t, got.Reactions.Disliked)
}

func TestToggleReactionUnknown(t *testing.T) {
	store := NewStore()
	msg := models.NewWelcomeMessage("hello")
	store.Append(msg)

	_, ok := store.ToggleReaction("missing", ReactionLiked)
	assert.False(t, ok)
	_, ok = store.ToggleReaction(msg.ID, ReactionKind("applauded"))
	assert.False(t, ok)
}

func TestMessagesReturnsCopy(t *testing.T) {
	store := NewStore()
	store.Append(models.NewUserMessage("hi"))

	msgs := store.Messages()
	msgs[0].Content = "mutated"

	fresh := store.Messages()
	assert.Equal(t, "hi", fresh[0].Content)
}
