package index

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestAddAndByLog(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	recs := []Record{
		{Log: "a.json", Character: "Miku", Version: "v1", Path: "/out/Miku.v1.txt", Bytes: 120},
		{Log: "a.json", Character: "Miku", Version: "v2", Path: "/out/Miku.v2.txt", Bytes: 140},
		{Log: "b.json", Character: "Rin", Version: "v1", Path: "/out/Rin.v1.txt", Bytes: 80},
	}
	for i := range recs {
		if err := ix.Add(ctx, &recs[i]); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if recs[i].ID == 0 {
			t.Errorf("Add did not assign an ID")
		}
		if recs[i].CreatedAt.IsZero() {
			t.Errorf("Add did not stamp CreatedAt")
		}
	}

	got, err := ix.ByLog(ctx, "a.json")
	if err != nil {
		t.Fatalf("ByLog: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ByLog returned %d records, want 2", len(got))
	}
	// Newest first.
	if got[0].Version != "v2" || got[1].Version != "v1" {
		t.Errorf("ByLog order = %s, %s; want v2, v1", got[0].Version, got[1].Version)
	}
	if got[0].Character != "Miku" || got[0].Bytes != 140 {
		t.Errorf("record = %+v", got[0])
	}
}

func TestRecent(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	for _, v := range []string{"v1", "v2", "v3"} {
		rec := Record{Log: "a.json", Character: "Miku", Version: v, Path: "/out/x", Bytes: 1}
		if err := ix.Add(ctx, &rec); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	got, err := ix.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d records, want 2", len(got))
	}
	if got[0].Version != "v3" || got[1].Version != "v2" {
		t.Errorf("Recent order = %s, %s; want v3, v2", got[0].Version, got[1].Version)
	}
}

func TestDeleteLog(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	for _, log := range []string{"a.json", "b.json"} {
		rec := Record{Log: log, Character: "Miku", Version: "v1", Path: "/out/x", Bytes: 1}
		if err := ix.Add(ctx, &rec); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	if err := ix.DeleteLog(ctx, "a.json"); err != nil {
		t.Fatalf("DeleteLog: %v", err)
	}
	got, err := ix.ByLog(ctx, "a.json")
	if err != nil {
		t.Fatalf("ByLog: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("deleted log still has %d records", len(got))
	}
	kept, err := ix.ByLog(ctx, "b.json")
	if err != nil {
		t.Fatalf("ByLog: %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("unrelated log lost records: have %d, want 1", len(kept))
	}
}

func TestRenameLog(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	rec := Record{Log: "old.json", Character: "Miku", Version: "v1", Path: "/out/x", Bytes: 1}
	if err := ix.Add(ctx, &rec); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ix.RenameLog(ctx, "old.json", "new.json"); err != nil {
		t.Fatalf("RenameLog: %v", err)
	}

	got, err := ix.ByLog(ctx, "new.json")
	if err != nil {
		t.Fatalf("ByLog: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("renamed log has %d records, want 1", len(got))
	}
	old, err := ix.ByLog(ctx, "old.json")
	if err != nil {
		t.Fatalf("ByLog: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("old log name still has %d records", len(old))
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "history.db")
	ix, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ix.Close()
}
