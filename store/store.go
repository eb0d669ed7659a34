// Package store persists the bot's meme and vote state as a single JSON document.
//
// Two backends are provided:
//   - FileBackend: a flat JSON file on disk (DATA_FILE, default bot_data.json).
//   - PostgresBackend: the same document kept as one JSONB row in bot_state.
//
// A missing document is not an error (an empty Snapshot is returned). A document
// that exists but cannot be decoded is an error so callers can refuse to start
// instead of overwriting user data.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Backend loads and saves the whole state document.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Snapshot is the persisted document.
type Snapshot struct {
	UserMemes     map[string][]string `json:"user_memes"`
	Votes         map[string]int      `json:"votes"`
	CategoryMemes map[string][]string `json:"category_memes,omitempty"`
}

// Empty returns a snapshot with all maps allocated.
func Empty() Snapshot {
	return Snapshot{
		UserMemes:     make(map[string][]string),
		Votes:         make(map[string]int),
		CategoryMemes: make(map[string][]string),
	}
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		UserMemes:     cloneLists(s.UserMemes),
		Votes:         make(map[string]int, len(s.Votes)),
		CategoryMemes: cloneLists(s.CategoryMemes),
	}
	for k, v := range s.Votes {
		out.Votes[k] = v
	}
	return out
}

func cloneLists(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		list := make([]string, len(v))
		copy(list, v)
		out[k] = list
	}
	return out
}

func (s *Snapshot) normalize() {
	if s.UserMemes == nil {
		s.UserMemes = make(map[string][]string)
	}
	if s.Votes == nil {
		s.Votes = make(map[string]int)
	}
	if s.CategoryMemes == nil {
		s.CategoryMemes = make(map[string][]string)
	}
	for k, v := range s.UserMemes {
		if v == nil {
			s.UserMemes[k] = []string{}
		}
	}
	for k, v := range s.CategoryMemes {
		if v == nil {
			s.CategoryMemes[k] = []string{}
		}
	}
}

// Decode parses a persisted document.
func Decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode state: %w", err)
	}
	snap.normalize()
	return snap, nil
}

// Encode renders the document. Empty category buckets are dropped so files
// written by older versions (user_memes + votes only) stay byte-compatible.
func (s Snapshot) Encode() ([]byte, error) {
	out := s
	if len(out.CategoryMemes) > 0 {
		pruned := make(map[string][]string, len(out.CategoryMemes))
		for k, v := range out.CategoryMemes {
			if len(v) > 0 {
				pruned[k] = v
			}
		}
		out.CategoryMemes = pruned
	}
	if out.UserMemes == nil {
		out.UserMemes = map[string][]string{}
	}
	if out.Votes == nil {
		out.Votes = map[string]int{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}
