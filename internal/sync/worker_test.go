package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	gosync "sync"
	"testing"

	"github.com/renderinc/postboard/internal/posts"
	"github.com/renderinc/postboard/internal/search"
	"github.com/renderinc/postboard/internal/storage"
)

type fakeSource struct {
	mu    gosync.Mutex
	posts []posts.Post
	fail  map[posts.ID]bool
	gets  int
}

func (f *fakeSource) List(ctx context.Context) ([]posts.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]posts.Post(nil), f.posts...), nil
}

func (f *fakeSource) Get(ctx context.Context, id posts.ID) (*posts.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.fail[id] {
		return nil, errors.New("boom")
	}
	for _, p := range f.posts {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, posts.ErrNotFound
}

func newWorker(t *testing.T, src Source, max int) (*Worker, *storage.DB, *search.Index) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "posts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	idx, err := search.NewMemOnly()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	w := NewWorker(src, db, idx, max).WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return w, db, idx
}

func TestSync(t *testing.T) {
	src := &fakeSource{
		posts: []posts.Post{
			{ID: "1", Title: "A", Content: "c1", Author: "Bob"},
			{ID: "2", Title: "B", Content: "c2", Author: "Ann", Image: "http://img/b.png"},
			{ID: "2", Title: "B", Content: "c2", Author: "Ann", Image: "http://img/b.png"},
			{ID: "3", Title: "C", Content: "c3", Author: "Cy"},
			{ID: "x", Title: "bad id"},
		},
		fail: map[posts.ID]bool{"3": true},
	}
	w, db, idx := newWorker(t, src, 0)

	stats, err := w.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 4 || stats.New != 2 || stats.Updated != 0 || stats.Skipped != 0 || stats.Errors != 2 {
		t.Errorf("first sync: got %+v", stats)
	}

	p, err := db.Get(1)
	if err != nil || p == nil {
		t.Fatalf("Get(1): %v, %v", p, err)
	}
	if p.Image != posts.PlaceholderImage {
		t.Errorf("blank image stored as %q, want placeholder", p.Image)
	}
	if n, _ := idx.Count(); n != 2 {
		t.Errorf("index count: got %d, want 2", n)
	}

	// Second run: one post changed, one unchanged.
	src.mu.Lock()
	src.posts[0].Title = "A2"
	src.fail = nil
	src.mu.Unlock()

	stats, err = w.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.New != 1 || stats.Updated != 1 || stats.Skipped != 1 || stats.Errors != 1 {
		t.Errorf("second sync: got %+v", stats)
	}
	if p, _ := db.Get(1); p == nil || p.Title != "A2" {
		t.Errorf("post 1 not updated: %+v", p)
	}
	results, err := idx.Search("title:A2", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "1" {
		t.Errorf("index not updated: %+v", results)
	}
}

func TestSyncMaxPosts(t *testing.T) {
	src := &fakeSource{}
	for _, id := range []posts.ID{"1", "2", "3", "4"} {
		src.posts = append(src.posts, posts.Post{ID: id, Title: "t" + string(id)})
	}
	w, db, _ := newWorker(t, src, 2)

	stats, err := w.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || stats.New != 2 {
		t.Errorf("got %+v", stats)
	}
	if n, _ := db.Count(); n != 2 {
		t.Errorf("stored %d posts, want 2", n)
	}
}

func TestSyncCanceled(t *testing.T) {
	src := &fakeSource{posts: []posts.Post{{ID: "1", Title: "A"}}}
	w, _, _ := newWorker(t, src, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := w.Sync(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if stats == nil || stats.Errors != 1 || src.gets != 0 {
		t.Errorf("canceled sync: stats %+v, gets %d", stats, src.gets)
	}
}
