package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCharnyshevich/worldgen/pkg/world/region"
)

func openTest(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "nested", "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestRecordLookup(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	want := Entry{
		Seed:        42,
		Pos:         region.Pos{X: -1, Y: 0, Z: 3},
		Dim:         256,
		Path:        "world/r.-1.0.3.vxr",
		Digest:      0xfedcba9876543210, // above MaxInt64
		Compression: "zstd",
		RunID:       "run-1",
		GeneratedAt: at,
	}
	if err := ix.Record(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := ix.Lookup(ctx, 42, want.Pos, 256)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("Lookup = %+v, want %+v", got, want)
	}

	if _, err := ix.Lookup(ctx, 43, want.Pos, 256); !errors.Is(err, ErrNotFound) {
		t.Errorf("other seed: err = %v, want ErrNotFound", err)
	}
	if _, err := ix.Lookup(ctx, 42, want.Pos, 128); !errors.Is(err, ErrNotFound) {
		t.Errorf("other dim: err = %v, want ErrNotFound", err)
	}
}

func TestRecordReplaces(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()
	e := Entry{Seed: 1, Pos: region.Pos{X: 2}, Dim: 16, Path: "a", Digest: 1, Compression: "zlib", RunID: "r1", GeneratedAt: time.Unix(0, 0)}
	if err := ix.Record(ctx, e); err != nil {
		t.Fatal(err)
	}
	e.Path, e.Digest, e.RunID = "b", 2, "r2"
	if err := ix.Record(ctx, e); err != nil {
		t.Fatal(err)
	}

	all, err := ix.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Path != "b" || all[0].Digest != 2 || all[0].RunID != "r2" {
		t.Fatalf("List = %+v", all)
	}
}

func TestListOrdered(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()
	for _, p := range []region.Pos{{X: 1}, {X: 0, Z: 1}, {X: 0}, {X: -1, Y: 2}} {
		if err := ix.Record(ctx, Entry{Seed: 5, Pos: p, Dim: 16, GeneratedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	if err := ix.Record(ctx, Entry{Seed: 6, Dim: 16, GeneratedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	all, err := ix.List(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []region.Pos{{X: -1, Y: 2}, {X: 0}, {X: 0, Z: 1}, {X: 1}}
	if len(all) != len(want) {
		t.Fatalf("%d entries, want %d", len(all), len(want))
	}
	for i := range want {
		if all[i].Pos != want[i] {
			t.Errorf("entry %d at %s, want %s", i, all[i].Pos, want[i])
		}
	}
}

func TestRuns(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()
	first := Run{ID: "a", Seed: 1, StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config: "seed: 1\n"}
	second := Run{ID: "b", Seed: 2, StartedAt: first.StartedAt.Add(time.Hour), Config: "seed: 2\n"}
	for _, r := range []Run{second, first} {
		if err := ix.StartRun(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := ix.StartRun(ctx, first); err == nil {
		t.Error("duplicate run id accepted")
	}

	runs, err := ix.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0] != first || runs[1] != second {
		t.Fatalf("Runs = %+v", runs)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ix, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	e := Entry{Seed: 9, Pos: region.Pos{Y: -4}, Dim: 32, Path: "p", GeneratedAt: time.Unix(100, 0).UTC()}
	if err := ix.Record(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if err := ix.Close(); err != nil {
		t.Fatal(err)
	}

	ix, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()
	got, err := ix.Lookup(context.Background(), 9, e.Pos, 32)
	if err != nil {
		t.Fatal(err)
	}
	if got != e {
		t.Fatalf("got %+v, want %+v", got, e)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("empty path accepted")
	}
}
