package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/snapetech/funimationlater/internal/catalog"
	"github.com/snapetech/funimationlater/internal/treefold"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "funimation.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(id, title string, at time.Time) Record {
	return Record{
		ID:       id,
		Title:    title,
		Pointer:  catalog.Pointer{Target: "showmain", Path: "/detail/", Params: "pk=" + id},
		SyncedAt: at,
	}
}

func TestUpsertListCount(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	now := time.Unix(1700000000, 0)
	n, err := s.Upsert(ctx, []Record{rec("8", "trigun", now), rec("7", "Cowboy Bebop", now), {Title: "no id"}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("written = %d, want 2", n)
	}
	// Second sync renames one show.
	if _, err := s.Upsert(ctx, []Record{rec("8", "Trigun", now.Add(time.Hour))}); err != nil {
		t.Fatal(err)
	}
	count, err := s.Count(ctx)
	if err != nil || count != 2 {
		t.Fatalf("count = %d, %v", count, err)
	}
	got, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{rec("7", "Cowboy Bebop", now), rec("8", "Trigun", now.Add(time.Hour))}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("list (-want +got):\n%s", diff)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	now := time.Unix(1700000000, 0)
	if _, err := s.Upsert(ctx, []Record{
		rec("1", "Cowboy Bebop", now),
		rec("2", "Bebop_100%", now),
		rec("3", "Trigun", now),
	}); err != nil {
		t.Fatal(err)
	}
	tests := map[string][]string{
		"bebop": {"2", "1"},
		"_100%": {"2"},
		"%":     {"2"},
		"zzz":   nil,
	}
	for q, wantIDs := range tests {
		got, err := s.Search(ctx, q)
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, r := range got {
			ids = append(ids, r.ID)
		}
		if diff := cmp.Diff(wantIDs, ids); diff != "" {
			t.Errorf("Search(%q) (-want +got):\n%s", q, diff)
		}
	}
}

func TestPruneBefore(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	old := time.Unix(1600000000, 0)
	fresh := time.Unix(1700000000, 0)
	if _, err := s.Upsert(ctx, []Record{rec("1", "Old", old), rec("2", "Fresh", fresh)}); err != nil {
		t.Fatal(err)
	}
	n, err := s.PruneBefore(ctx, fresh)
	if err != nil || n != 1 {
		t.Fatalf("pruned = %d, %v", n, err)
	}
	if c, _ := s.Count(ctx); c != 1 {
		t.Errorf("count after prune = %d", c)
	}
}

func TestFromShowRoundTrip(t *testing.T) {
	m, err := treefold.DecodeString(`<item><id>7</id><title>Cowboy Bebop</title><thumbnail>http://img.example.com/cb.jpg</thumbnail>
		<pointer><target>showmain</target><path>/detail/</path><params>pk=7</params></pointer></item>`)
	if err != nil {
		t.Fatal(err)
	}
	item, err := m.Child("item")
	if err != nil {
		t.Fatal(err)
	}
	show := catalog.NewShow(nil, item, "ios")
	r := FromShow(show, time.Unix(1700000000, 0))
	if r.ID != "7" || r.Pointer.Params != "pk=7" || r.Thumbnail != "http://img.example.com/cb.jpg" {
		t.Fatalf("record = %+v", r)
	}
	back := r.Show(nil, "ios")
	p, ok := back.Pointer()
	if !ok || p.Target != "showmain" || p.Path != "/detail/" || back.Title != "Cowboy Bebop" {
		t.Errorf("restored = %+v (%+v, %v)", back, p, ok)
	}
	if _, ok := (Record{ID: "1"}).Show(nil, "ios").Pointer(); ok {
		t.Error("record without pointer restored a continuation")
	}
}
