package artifact

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNormalizeTopic(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ocean Facts", "ocean_facts"},
		{"ocean_facts", "ocean_facts"},
		{"  Ocean -- Facts!  ", "ocean_facts"},
		{"OCEAN", "ocean"},
		{"a/b/c", "a_b_c"},
		{"already_clean_123", "already_clean_123"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := NormalizeTopic(tt.in); got != tt.want {
			t.Errorf("NormalizeTopic(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchKey(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"a:*", "a:x", true},
		{"a:*", "a:anything_at_all", true},
		{"ab:*", "abc:x", false},
		{"*:*", "whatever:thing", true},
		{"*:name", "topic:name", true},
		{"*:name", "topic:other", false},
		{"a:b", "a:b", true},
		{"a:b", "a:bc", false},
		{"foo:*", "foobar:x", false},
	}

	for _, tt := range tests {
		if got := MatchKey(tt.pattern, tt.key); got != tt.want {
			t.Errorf("MatchKey(%q, %q) = %v, want %v", tt.pattern, tt.key, got, tt.want)
		}
	}
}

func TestStoreSaveGetRoundTrip(t *testing.T) {
	root := t.TempDir()
	store, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	data := map[string]any{"depth": float64(11000), "unit": "m"}
	if err := store.Save("Ocean Facts", "trench", data, map[string]any{"source": "step"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok := store.Get("Ocean Facts", "trench")
	if !ok {
		t.Fatal("Get returned not found after Save")
	}
	if !reflect.DeepEqual(got, data) {
		t.Errorf("Get = %v, want %v", got, data)
	}

	// Topic normalization makes spelling variants hit the same key.
	if _, ok := store.Get("ocean-facts", "trench"); !ok {
		t.Error("Get with normalized-equivalent topic spelling should find the artifact")
	}
}

func TestStoreSurvivesReload(t *testing.T) {
	root := t.TempDir()

	first, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data := map[string]any{"key": "value"}
	if err := first.Save("topic", "name", data, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := first.Save("topic", "plain", "just text", nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second, err := Open(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	got, ok := second.Get("topic", "name")
	if !ok {
		t.Fatal("artifact missing after reload")
	}
	if !reflect.DeepEqual(got, data) {
		t.Errorf("reloaded data = %v, want %v", got, data)
	}

	text, ok := second.Get("topic", "plain")
	if !ok || text != "just text" {
		t.Errorf("reloaded text = %v, %v; want %q, true", text, ok, "just text")
	}

	art, ok := second.GetArtifact("topic", "name")
	if !ok {
		t.Fatal("GetArtifact missing after reload")
	}
	if art.Metadata["created_at"] == nil {
		t.Error("metadata lost created_at on reload")
	}
}

func TestStoreOverwriteReplaces(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := store.Save("t", "n", "first", map[string]any{"rev": 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save("t", "n", "second", map[string]any{"other": true}); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}

	got, _ := store.Get("t", "n")
	if got != "second" {
		t.Errorf("Get after overwrite = %v, want second", got)
	}

	art, _ := store.GetArtifact("t", "n")
	if _, stale := art.Metadata["rev"]; stale {
		t.Error("overwrite merged old metadata instead of replacing it")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestStoreQuery(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	saves := [][2]string{{"a", "one"}, {"a", "two"}, {"ab", "one"}, {"abc", "one"}}
	for _, sv := range saves {
		if err := store.Save(sv[0], sv[1], "x", nil); err != nil {
			t.Fatalf("Save %v: %v", sv, err)
		}
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"a:*", []string{"a:one", "a:two"}},
		{"ab:*", []string{"ab:one"}},
		{"*:one", []string{"a:one", "ab:one", "abc:one"}},
		{"*:*", []string{"a:one", "a:two", "ab:one", "abc:one"}},
		{"zz:*", nil},
	}

	for _, tt := range tests {
		got := store.Query(tt.pattern)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Query(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}

func TestStoreListTopicsAndNames(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	store.Save("Beta Topic", "b", 1, nil)
	store.Save("alpha", "z", 2, nil)
	store.Save("alpha", "a", 3, nil)

	if got, want := store.ListTopics(), []string{"alpha", "beta_topic"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListTopics = %v, want %v", got, want)
	}
	if got, want := store.ListNames("alpha"), []string{"a", "z"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListNames = %v, want %v", got, want)
	}
}

func TestStoreDelete(t *testing.T) {
	root := t.TempDir()
	store, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	store.Save("t", "keep", "x", nil)
	store.Save("t", "gone", "y", nil)

	if err := store.Delete("t", "gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := store.Get("t", "gone"); ok {
		t.Error("artifact still readable after Delete")
	}
	if _, err := os.Stat(filepath.Join(root, "t", "gone.json")); !os.IsNotExist(err) {
		t.Error("data file still on disk after Delete")
	}

	// Deleting the last artifact removes the topic directory.
	if err := store.Delete("t", "keep"); err != nil {
		t.Fatalf("Delete last: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "t")); !os.IsNotExist(err) {
		t.Error("empty topic directory not removed")
	}

	if err := store.Delete("t", "keep"); err == nil {
		t.Error("Delete of missing artifact should error")
	}
}

func TestStoreFileLayout(t *testing.T) {
	root := t.TempDir()
	store, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := store.Save("My Topic", "result", map[string]any{"a": 1}, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "my_topic", "result.json")); err != nil {
		t.Errorf("data file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "my_topic", "result.meta.json")); err != nil {
		t.Errorf("metadata file missing: %v", err)
	}
}

func TestStoreRejectsEmptyKeyHalves(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := store.Save("!!!", "n", "x", nil); err == nil {
		t.Error("Save with unnormalizable topic should error")
	}
	if err := store.Save("t", "", "x", nil); err == nil {
		t.Error("Save with empty name should error")
	}
}
