// Package testutil provides shared test helpers backed by real storage.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/invoice-flow/internal/model"
	"github.com/Veraticus/invoice-flow/internal/storage"
)

// TestDB is a migrated in-memory ledger that closes itself when the test ends.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates the ledger and seeds it with entries.
//
// Example:
//
//	db := testutil.SetupTestDB(t, model.LedgerEntry{
//		ContentHash: "abc",
//		Status:      model.StatusSuccess,
//	})
func SetupTestDB(t *testing.T, seed ...model.LedgerEntry) *TestDB {
	t.Helper()

	ctx := context.Background()
	store, err := storage.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	for i := range seed {
		if err := store.SaveResult(ctx, &seed[i]); err != nil {
			t.Fatalf("failed to seed entry %q: %v", seed[i].ContentHash, err)
		}
	}

	return &TestDB{Storage: store, t: t}
}

// Entries returns every ledger row, newest first.
func (db *TestDB) Entries() []model.LedgerEntry {
	db.t.Helper()
	entries, err := db.Storage.ListResults(context.Background(), 0)
	if err != nil {
		db.t.Fatalf("failed to list ledger: %v", err)
	}
	return entries
}

// MustGet returns the row for hash or fails the test.
func (db *TestDB) MustGet(hash string) *model.LedgerEntry {
	db.t.Helper()
	entry, err := db.Storage.GetResult(context.Background(), hash)
	if err != nil {
		db.t.Fatalf("ledger entry %q: %v", hash, err)
	}
	return entry
}
