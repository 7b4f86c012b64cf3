package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/bookclub-trivia/internal/server/storage"
)

func setupStore(t *testing.T) *storage.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return storage.NewRedisStore(rdb)
}

func writeBank(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	content := `
questions:
  - q: "Who wrote Dune?"
    ans: "Frank Herbert"
  - q: "Who is Ishmael's captain?"
    ans: "Ahab"
    book: "Moby-Dick"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestManageQuestionSets_Import(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	err := manageQuestionSets(ctx, store, questionSetOptions{importFile: writeBank(t), set: "march"})
	require.NoError(t, err)

	qs, err := store.LoadQuestions(ctx, "march")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "Ahab", qs[1].Answer)
	assert.Equal(t, "Moby-Dick", qs[1].Extra["book"])
}

func TestManageQuestionSets_Delete(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, manageQuestionSets(ctx, store, questionSetOptions{importFile: writeBank(t), set: "march"}))

	require.NoError(t, manageQuestionSets(ctx, store, questionSetOptions{deleteSet: "march"}))

	sets, err := store.ListQuestionSets(ctx)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestManageQuestionSets_Errors(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	assert.Error(t, manageQuestionSets(ctx, store, questionSetOptions{importFile: writeBank(t)}))
	assert.Error(t, manageQuestionSets(ctx, store, questionSetOptions{importFile: "/nonexistent.yaml", set: "x"}))
}

func TestQuestionSetOptions_Requested(t *testing.T) {
	t.Parallel()

	assert.False(t, questionSetOptions{set: "march"}.requested())
	assert.True(t, questionSetOptions{importFile: "a.yaml"}.requested())
	assert.True(t, questionSetOptions{deleteSet: "march"}.requested())
}
