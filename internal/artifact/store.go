// Package artifact provides the namespaced persistent store for chain
// results. Artifacts are addressable as topic:name, held in an in-memory
// index, and written through to disk on every save: one directory per
// normalized topic holding <name>.json (data) and <name>.meta.json
// (metadata) per artifact.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when deleting an artifact that does not exist.
var ErrNotFound = errors.New("artifact not found")

const metaSuffix = ".meta.json"

// Artifact pairs persisted data with its metadata record.
type Artifact struct {
	// Data is the saved value: a parsed JSON structure or a string.
	Data any
	// Metadata holds created_at, topic, name, and caller-supplied fields.
	Metadata map[string]any
}

// Store is the in-memory index over a root directory of artifacts.
// Construction loads every persisted artifact eagerly; every save writes
// through to disk before the index is updated. All mutation is serialized
// behind one mutex, so a Store may be shared across concurrent chains.
type Store struct {
	root string

	mu        sync.RWMutex
	artifacts map[string]Artifact
}

// Open creates a store over the given root directory, creating it if
// needed and loading every artifact already on disk.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}

	s := &Store{
		root:      root,
		artifacts: make(map[string]Artifact),
	}

	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the on-disk root directory of the store.
func (s *Store) Root() string {
	return s.root
}

// loadAll walks the topic directories once and indexes every data file,
// pairing each with its .meta.json by stem. Files ending in .meta.json are
// skipped during enumeration.
func (s *Store) loadAll() error {
	topics, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("read artifact root: %w", err)
	}

	for _, topicDir := range topics {
		if !topicDir.IsDir() {
			continue
		}
		topic := topicDir.Name()

		entries, err := os.ReadDir(filepath.Join(s.root, topic))
		if err != nil {
			return fmt.Errorf("read topic %s: %w", topic, err)
		}

		for _, entry := range entries {
			fileName := entry.Name()
			if entry.IsDir() || strings.HasSuffix(fileName, metaSuffix) || !strings.HasSuffix(fileName, ".json") {
				continue
			}
			name := strings.TrimSuffix(fileName, ".json")

			art, err := s.loadOne(topic, name)
			if err != nil {
				return err
			}
			s.artifacts[topic+":"+name] = art
		}
	}

	return nil
}

// loadOne reads an artifact's data and metadata files. A missing metadata
// file leaves empty metadata rather than failing the load.
func (s *Store) loadOne(topic, name string) (Artifact, error) {
	dataBytes, err := os.ReadFile(s.dataPath(topic, name))
	if err != nil {
		return Artifact{}, fmt.Errorf("read artifact %s:%s: %w", topic, name, err)
	}

	var data any
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return Artifact{}, fmt.Errorf("parse artifact %s:%s: %w", topic, name, err)
	}

	meta := make(map[string]any)
	if metaBytes, err := os.ReadFile(s.metaPath(topic, name)); err == nil {
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			return Artifact{}, fmt.Errorf("parse metadata %s:%s: %w", topic, name, err)
		}
	}

	return Artifact{Data: data, Metadata: meta}, nil
}

func (s *Store) dataPath(topic, name string) string {
	return filepath.Join(s.root, topic, name+".json")
}

func (s *Store) metaPath(topic, name string) string {
	return filepath.Join(s.root, topic, name+metaSuffix)
}

// Save persists data under topic:name, overwriting any previous artifact
// at the same key. The write-through completes before the in-memory index
// is updated, so a failed save leaves neither a memory entry nor a
// half-written pair on disk.
func (s *Store) Save(topic, name string, data any, meta map[string]any) error {
	normalized := NormalizeTopic(topic)
	if normalized == "" {
		return fmt.Errorf("topic %q normalizes to an empty namespace", topic)
	}
	if name == "" {
		return errors.New("artifact name is empty")
	}

	metadata := map[string]any{
		"created_at": time.Now().Format(time.RFC3339),
		"topic":      topic,
		"name":       name,
	}
	for k, v := range meta {
		metadata[k] = v
	}

	dataBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact data: %w", err)
	}
	metaBytes, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, normalized)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create topic directory: %w", err)
	}

	if err := os.WriteFile(s.dataPath(normalized, name), dataBytes, 0644); err != nil {
		return fmt.Errorf("write artifact data: %w", err)
	}
	if err := os.WriteFile(s.metaPath(normalized, name), metaBytes, 0644); err != nil {
		// Roll back the data file so the pair is never half-written.
		os.Remove(s.dataPath(normalized, name))
		return fmt.Errorf("write artifact metadata: %w", err)
	}

	s.artifacts[normalized+":"+name] = Artifact{Data: data, Metadata: metadata}
	return nil
}

// Get returns the data saved under topic:name. The topic is normalized
// before lookup.
func (s *Store) Get(topic, name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	art, ok := s.artifacts[MakeKey(topic, name)]
	if !ok {
		return nil, false
	}
	return art.Data, true
}

// GetArtifact returns the full data-plus-metadata record for topic:name.
func (s *Store) GetArtifact(topic, name string) (Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	art, ok := s.artifacts[MakeKey(topic, name)]
	return art, ok
}

// Query returns the sorted keys matching a topic:name pattern, where `*`
// matches any run of characters within the anchored full key.
func (s *Store) Query(pattern string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.artifacts {
		if MatchKey(pattern, key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// ListTopics returns the sorted set of topics with at least one artifact.
func (s *Store) ListTopics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for key := range s.artifacts {
		topic, _ := SplitKey(key)
		seen[topic] = true
	}

	topics := make([]string, 0, len(seen))
	for topic := range seen {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// ListNames returns the sorted artifact names under a topic.
func (s *Store) ListNames(topic string) []string {
	normalized := NormalizeTopic(topic)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for key := range s.artifacts {
		t, name := SplitKey(key)
		if t == normalized {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Delete removes an artifact from memory and disk. Removing the last
// artifact under a topic removes the topic directory as well.
func (s *Store) Delete(topic, name string) error {
	normalized := NormalizeTopic(topic)
	key := normalized + ":" + name

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.artifacts[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err := os.Remove(s.dataPath(normalized, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact data: %w", err)
	}
	if err := os.Remove(s.metaPath(normalized, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact metadata: %w", err)
	}

	delete(s.artifacts, key)

	dir := filepath.Join(s.root, normalized)
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		os.Remove(dir)
	}

	return nil
}

// Len returns the number of indexed artifacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artifacts)
}
