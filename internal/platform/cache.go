package platform

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// QuestionTTL is how long a cached question set stays fresh.
	QuestionTTL = 7 * 24 * time.Hour
	// VersionListTTL is how long the cached version catalog stays fresh.
	VersionListTTL = 24 * time.Hour
)

const (
	questionsFile = "questions.json"
	promptsFile   = "judge-prompts.json"
	metadataFile  = "metadata.json"
	versionsFile  = "versions.json"
)

// cacheMetadata records when a version was fetched and what it contained.
type cacheMetadata struct {
	Version       string `json:"version"`
	CachedAt      string `json:"cached_at"`
	Checksum      string `json:"checksum,omitempty"`
	QuestionCount int    `json:"question_count"`
}

// QuestionCache is a disk-backed cache of versioned question sets. It
// decouples benchmark runs from platform availability and rate limits.
//
// The cache never raises on corruption: a damaged or missing entry simply
// reads as absent. Draft question sets are never cached, since draft
// content can change between runs.
type QuestionCache struct {
	dir string
}

// NewQuestionCache creates a cache rooted at dir.
func NewQuestionCache(dir string) *QuestionCache {
	return &QuestionCache{dir: dir}
}

func (c *QuestionCache) versionDir(version string) string {
	return filepath.Join(c.dir, "v"+version)
}

// Get returns the cached question set for a version, or nil when no
// usable entry exists. A cached entry flagged as draft is purged and
// treated as absent.
func (c *QuestionCache) Get(version string) *QuestionSet {
	data, err := os.ReadFile(filepath.Join(c.versionDir(version), questionsFile))
	if err != nil {
		return nil
	}

	var set QuestionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil
	}
	if set.IsDraft {
		// Drafts must always be fetched fresh; drop the stale entry.
		_ = c.Clear(version)
		return nil
	}
	return &set
}

// JudgePrompts returns the cached judge prompt templates for a version,
// or nil when absent.
func (c *QuestionCache) JudgePrompts(version string) map[string]string {
	data, err := os.ReadFile(filepath.Join(c.versionDir(version), promptsFile))
	if err != nil {
		return nil
	}

	var prompts map[string]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil
	}
	return prompts
}

// IsStale reports whether the cached entry for a version is older than
// QuestionTTL. Missing or unreadable metadata counts as stale.
func (c *QuestionCache) IsStale(version string) bool {
	data, err := os.ReadFile(filepath.Join(c.versionDir(version), metadataFile))
	if err != nil {
		return true
	}

	var meta cacheMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return true
	}
	if meta.CachedAt == "" {
		return true
	}

	cachedAt, err := time.Parse(time.RFC3339Nano, meta.CachedAt)
	if err != nil {
		return true
	}
	return time.Since(cachedAt) > QuestionTTL
}

// Store persists a question set for a version, fully replacing any prior
// entry. Draft sets are never written; storing one purges the entry
// instead.
func (c *QuestionCache) Store(version string, set *QuestionSet) error {
	if set.IsDraft {
		return c.Clear(version)
	}

	dir := c.versionDir(version)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to replace cache entry: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal question set: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, questionsFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write questions: %w", err)
	}

	if prompts := set.Prompts(); len(prompts) > 0 {
		promptData, err := json.MarshalIndent(prompts, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal judge prompts: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, promptsFile), promptData, 0o644); err != nil {
			return fmt.Errorf("failed to write judge prompts: %w", err)
		}
	}

	meta := cacheMetadata{
		Version:       version,
		CachedAt:      time.Now().Format(time.RFC3339Nano),
		Checksum:      payloadChecksum(set),
		QuestionCount: len(set.Questions),
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), metaData, 0o644); err != nil {
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}
	return nil
}

// VersionList returns the cached version catalog, or nil when absent or
// older than VersionListTTL.
func (c *QuestionCache) VersionList() *VersionList {
	data, err := os.ReadFile(filepath.Join(c.dir, versionsFile))
	if err != nil {
		return nil
	}

	var list VersionList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}
	if list.CachedAt == "" {
		return nil
	}
	cachedAt, err := time.Parse(time.RFC3339Nano, list.CachedAt)
	if err != nil {
		return nil
	}
	if time.Since(cachedAt) > VersionListTTL {
		return nil
	}
	return &list
}

// StoreVersionList persists the version catalog with a fetch timestamp.
func (c *QuestionCache) StoreVersionList(list *VersionList) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	stamped := *list
	stamped.CachedAt = time.Now().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(&stamped, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal version list: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, versionsFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write version list: %w", err)
	}
	return nil
}

// Clear removes the cache entry for one version, or the entire cache
// tree when version is empty.
func (c *QuestionCache) Clear(version string) error {
	if version != "" {
		return os.RemoveAll(c.versionDir(version))
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// payloadChecksum derives an integrity fingerprint for a cached set. The
// platform's own checksum is used when present, otherwise a digest of the
// question payload.
func payloadChecksum(set *QuestionSet) string {
	if set.Version.Checksum != "" {
		return set.Version.Checksum
	}
	data, err := json.Marshal(set.Questions)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}
