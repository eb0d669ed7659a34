package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestFileBackendMissingFileIsEmpty(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "bot_data.json"))
	snap, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if snap.UserMemes == nil || snap.Votes == nil || snap.CategoryMemes == nil {
		t.Fatalf("expected allocated maps, got %+v", snap)
	}
	if len(snap.UserMemes) != 0 || len(snap.Votes) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestFileBackendCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot_data.json")
	if err := os.WriteFile(path, []byte(`{"user_memes": [`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := NewFileBackend(path).Load(context.Background())
	if err == nil {
		t.Fatal("expected error for corrupt file")
	}
	if !strings.Contains(err.Error(), "corrupt") {
		t.Errorf("error = %v, want mention of corrupt file", err)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
	}{
		{"empty", Empty()},
		{
			name: "memes and votes",
			snap: Snapshot{
				UserMemes: map[string][]string{
					"42": {"http://x/1", "http://x/2"},
					"7":  {},
				},
				Votes:         map[string]int{"42": 3, "7": -1},
				CategoryMemes: map[string][]string{},
			},
		},
		{
			name: "with categories",
			snap: Snapshot{
				UserMemes:     map[string][]string{"1": {"https://a"}},
				Votes:         map[string]int{},
				CategoryMemes: map[string][]string{"funny": {"https://f/1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewFileBackend(filepath.Join(t.TempDir(), "state.json"))
			ctx := context.Background()
			if err := b.Save(ctx, tt.snap); err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			got, err := b.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.snap) {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, tt.snap)
			}
		})
	}
}

func TestFileBackendSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(filepath.Join(dir, "state.json"))
	for i := 0; i < 3; i++ {
		if err := b.Save(context.Background(), Empty()); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only state.json, got %v", names)
	}
}

func TestDecodeLegacyDocument(t *testing.T) {
	snap, err := Decode([]byte(`{"user_memes": {"42": ["http://x/1"]}, "votes": {"42": 3}}`))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got := snap.UserMemes["42"]; len(got) != 1 || got[0] != "http://x/1" {
		t.Errorf("user_memes[42] = %v", got)
	}
	if snap.Votes["42"] != 3 {
		t.Errorf("votes[42] = %d, want 3", snap.Votes["42"])
	}
	if snap.CategoryMemes == nil {
		t.Error("category_memes should be normalised to an empty map")
	}
}

func TestEncodeOmitsEmptyCategories(t *testing.T) {
	snap := Empty()
	snap.CategoryMemes["funny"] = []string{}
	data, err := snap.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if strings.Contains(string(data), "category_memes") {
		t.Errorf("expected category_memes to be omitted, got %s", data)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Empty()
	orig.UserMemes["1"] = []string{"http://a"}
	orig.Votes["1"] = 1

	c := orig.Clone()
	c.UserMemes["1"][0] = "http://changed"
	c.UserMemes["2"] = []string{"http://b"}
	c.Votes["1"] = 99

	if orig.UserMemes["1"][0] != "http://a" {
		t.Errorf("clone shares list backing array")
	}
	if _, ok := orig.UserMemes["2"]; ok {
		t.Errorf("clone shares user map")
	}
	if orig.Votes["1"] != 1 {
		t.Errorf("clone shares votes map")
	}
}
