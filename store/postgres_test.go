package store_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/onnwee/memebot/store"
	"github.com/onnwee/memebot/testutil"
)

func TestPostgresBackendRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	b := &store.PostgresBackend{DB: db, Key: "test-" + uuid.NewString()}
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DELETE FROM bot_state WHERE key=$1`, b.Key)
	})

	empty, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on absent row: %v", err)
	}
	if len(empty.UserMemes) != 0 || len(empty.Votes) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", empty)
	}

	want := store.Snapshot{
		UserMemes:     map[string][]string{"42": {"http://x/1", "http://x/2"}},
		Votes:         map[string]int{"42": 3},
		CategoryMemes: map[string][]string{},
	}
	if err := b.Save(ctx, want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	// second save exercises the upsert path
	want.Votes["42"] = 4
	if err := b.Save(ctx, want); err != nil {
		t.Fatalf("Save() upsert error: %v", err)
	}

	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestConnectRequiresDSN(t *testing.T) {
	if _, err := store.Connect(""); err == nil {
		t.Error("expected error for empty DSN")
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	for i := 0; i < 2; i++ {
		if err := store.Migrate(context.Background(), db); err != nil {
			t.Fatalf("Migrate() run %d: %v", i+1, err)
		}
	}
	var n int
	if err := db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM bot_state WHERE key = 'no-such-key'`).Scan(&n); err != nil {
		t.Fatalf("bot_state not queryable: %v", err)
	}
}
