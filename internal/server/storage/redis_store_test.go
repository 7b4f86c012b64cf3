package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisStore_SaveLoadDeleteQuestions(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	questions := []protocol.Question{
		{Prompt: "Who wrote Emma?", Answer: "Austen", Extra: map[string]any{"book": "Emma"}},
		{Prompt: "2+2?", Answer: "4"},
	}

	// Save
	require.NoError(t, store.SaveQuestions(ctx, "march", questions))

	// Load，保持顺序和额外字段
	loaded, err := store.LoadQuestions(ctx, "march")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Who wrote Emma?", loaded[0].Prompt)
	assert.Equal(t, "Emma", loaded[0].Extra["book"])
	assert.Equal(t, "2+2?", loaded[1].Prompt)

	sets, err := store.ListQuestionSets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"march"}, sets)

	// 覆盖保存
	require.NoError(t, store.SaveQuestions(ctx, "march", questions[1:]))
	loaded, err = store.LoadQuestions(ctx, "march")
	require.NoError(t, err)
	assert.Len(t, loaded, 1)

	// Delete
	require.NoError(t, store.DeleteQuestions(ctx, "march"))
	loaded, err = store.LoadQuestions(ctx, "march")
	require.NoError(t, err)
	assert.Empty(t, loaded)

	sets, err = store.ListQuestionSets(ctx)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestRedisStore_SaveQuestionsRejectsInvalid(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	assert.Error(t, store.SaveQuestions(ctx, "", nil))
	assert.Error(t, store.SaveQuestions(ctx, "bad", []protocol.Question{{Prompt: "no answer"}}))

	loaded, err := store.LoadQuestions(ctx, "bad")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	t.Parallel()

	client, mr := newTestClient(t)
	store := NewRedisStore(client)
	mr.Close()

	_, err := store.LoadQuestions(context.Background(), "march")
	assert.Error(t, err)
}
