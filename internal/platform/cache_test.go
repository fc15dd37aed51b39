package platform

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSet(version string) *QuestionSet {
	return &QuestionSet{
		Version: VersionRef{SemanticVersion: version},
		Questions: []Question{
			{ID: "1", Tier: 1, Category: "task", Content: "Write a benediction."},
			{ID: "2", Tier: 2, Content: "State the doctrine of the Trinity."},
			{ID: "3", Tier: 3, Content: "Is truth absolute?"},
		},
		JudgePrompts: map[string]string{
			"tier1": "judge this: {question} {response}",
		},
	}
}

func TestCacheStoreAndGet(t *testing.T) {
	cache := NewQuestionCache(t.TempDir())

	require.NoError(t, cache.Store("1.2.0", testSet("1.2.0")))

	got := cache.Get("1.2.0")
	require.NotNil(t, got)
	assert.Equal(t, "1.2.0", got.Version.SemanticVersion)
	assert.Len(t, got.Questions, 3)
	assert.Equal(t, QuestionID("1"), got.Questions[0].ID)

	prompts := cache.JudgePrompts("1.2.0")
	require.NotNil(t, prompts)
	assert.Contains(t, prompts["tier1"], "{question}")
}

func TestCacheMissReturnsNil(t *testing.T) {
	cache := NewQuestionCache(t.TempDir())

	assert.Nil(t, cache.Get("9.9.9"))
	assert.Nil(t, cache.JudgePrompts("9.9.9"))
}

func TestCacheFreshEntryNotStale(t *testing.T) {
	cache := NewQuestionCache(t.TempDir())

	require.NoError(t, cache.Store("1.2.0", testSet("1.2.0")))
	assert.False(t, cache.IsStale("1.2.0"))
}

func TestCacheMissingEntryIsStale(t *testing.T) {
	cache := NewQuestionCache(t.TempDir())
	assert.True(t, cache.IsStale("1.2.0"))
}

func TestCacheAgedEntryIsStale(t *testing.T) {
	dir := t.TempDir()
	cache := NewQuestionCache(dir)
	require.NoError(t, cache.Store("1.2.0", testSet("1.2.0")))

	// Rewrite the metadata with a fetch time past the TTL.
	metaPath := filepath.Join(dir, "v1.2.0", "metadata.json")
	meta := map[string]any{
		"version":        "1.2.0",
		"cached_at":      time.Now().Add(-8 * 24 * time.Hour).Format(time.RFC3339Nano),
		"question_count": 3,
	}
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(metaPath, data, 0o644))

	assert.True(t, cache.IsStale("1.2.0"))

	// Stale entries still read back; the caller decides whether to refetch.
	assert.NotNil(t, cache.Get("1.2.0"))
}

func TestCacheCorruptMetadataIsStale(t *testing.T) {
	dir := t.TempDir()
	cache := NewQuestionCache(dir)
	require.NoError(t, cache.Store("1.2.0", testSet("1.2.0")))

	metaPath := filepath.Join(dir, "v1.2.0", "metadata.json")
	require.NoError(t, os.WriteFile(metaPath, []byte("{not json"), 0o644))

	assert.True(t, cache.IsStale("1.2.0"))
}

func TestCacheCorruptQuestionsReadAsMiss(t *testing.T) {
	dir := t.TempDir()
	cache := NewQuestionCache(dir)
	require.NoError(t, cache.Store("1.2.0", testSet("1.2.0")))

	questionsPath := filepath.Join(dir, "v1.2.0", "questions.json")
	require.NoError(t, os.WriteFile(questionsPath, []byte("{truncated"), 0o644))

	assert.Nil(t, cache.Get("1.2.0"))
}

func TestCacheNeverStoresDrafts(t *testing.T) {
	dir := t.TempDir()
	cache := NewQuestionCache(dir)

	// A published entry exists, then the same version turns draft.
	require.NoError(t, cache.Store("2.0.0", testSet("2.0.0")))
	require.NotNil(t, cache.Get("2.0.0"))

	draft := testSet("2.0.0")
	draft.IsDraft = true
	require.NoError(t, cache.Store("2.0.0", draft))

	assert.Nil(t, cache.Get("2.0.0"))
	assert.NoDirExists(t, filepath.Join(dir, "v2.0.0"))
}

func TestCachePurgesEntryFlaggedDraft(t *testing.T) {
	dir := t.TempDir()
	cache := NewQuestionCache(dir)
	require.NoError(t, cache.Store("2.0.0", testSet("2.0.0")))

	// Simulate an older runner having written a draft payload.
	draft := testSet("2.0.0")
	draft.IsDraft = true
	data, err := json.Marshal(draft)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v2.0.0", "questions.json"), data, 0o644))

	assert.Nil(t, cache.Get("2.0.0"))
	assert.NoDirExists(t, filepath.Join(dir, "v2.0.0"))
}

func TestCacheStoreReplacesPriorEntry(t *testing.T) {
	cache := NewQuestionCache(t.TempDir())
	require.NoError(t, cache.Store("1.2.0", testSet("1.2.0")))

	replacement := &QuestionSet{
		Version:   VersionRef{SemanticVersion: "1.2.0"},
		Questions: []Question{{ID: "9", Tier: 1, Content: "Only question."}},
	}
	require.NoError(t, cache.Store("1.2.0", replacement))

	got := cache.Get("1.2.0")
	require.NotNil(t, got)
	assert.Len(t, got.Questions, 1)

	// The replacement had no prompts, so none should linger.
	assert.Nil(t, cache.JudgePrompts("1.2.0"))
}

func TestCacheClearVersion(t *testing.T) {
	cache := NewQuestionCache(t.TempDir())
	require.NoError(t, cache.Store("1.0.0", testSet("1.0.0")))
	require.NoError(t, cache.Store("2.0.0", testSet("2.0.0")))

	require.NoError(t, cache.Clear("1.0.0"))

	assert.Nil(t, cache.Get("1.0.0"))
	assert.NotNil(t, cache.Get("2.0.0"))
}

func TestCacheClearAll(t *testing.T) {
	cache := NewQuestionCache(t.TempDir())
	require.NoError(t, cache.Store("1.0.0", testSet("1.0.0")))
	require.NoError(t, cache.Store("2.0.0", testSet("2.0.0")))

	require.NoError(t, cache.Clear(""))

	assert.Nil(t, cache.Get("1.0.0"))
	assert.Nil(t, cache.Get("2.0.0"))
}

func TestCacheClearMissingIsNoop(t *testing.T) {
	cache := NewQuestionCache(filepath.Join(t.TempDir(), "never-created"))
	assert.NoError(t, cache.Clear(""))
	assert.NoError(t, cache.Clear("1.0.0"))
}

func TestVersionListRoundTrip(t *testing.T) {
	cache := NewQuestionCache(t.TempDir())

	list := &VersionList{Versions: []VersionInfo{
		{SemanticVersion: "1.2.0", Status: "published", IsCurrent: true, QuestionCount: 100},
		{SemanticVersion: "1.1.0", Status: "published", QuestionCount: 90},
	}}
	require.NoError(t, cache.StoreVersionList(list))

	got := cache.VersionList()
	require.NotNil(t, got)
	assert.Len(t, got.Versions, 2)
	assert.True(t, got.Versions[0].IsCurrent)
	assert.NotEmpty(t, got.CachedAt)
}

func TestVersionListExpires(t *testing.T) {
	dir := t.TempDir()
	cache := NewQuestionCache(dir)
	require.NoError(t, cache.StoreVersionList(&VersionList{}))

	stale := VersionList{
		CachedAt: time.Now().Add(-25 * time.Hour).Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(&stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "versions.json"), data, 0o644))

	assert.Nil(t, cache.VersionList())
}

func TestVersionListMissingReturnsNil(t *testing.T) {
	cache := NewQuestionCache(t.TempDir())
	assert.Nil(t, cache.VersionList())
}
