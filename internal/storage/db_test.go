package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/renderinc/postboard/internal/posts"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "posts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateGetList(t *testing.T) {
	db := openTestDB(t)

	a, err := db.Create(posts.NewPost{Title: "A", Content: "c1", Author: "Bob", Image: posts.PlaceholderImage})
	if err != nil {
		t.Fatal(err)
	}
	b, err := db.Create(posts.NewPost{Title: "B", Content: "c2", Author: "Ann", Image: "http://img/b.png"})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == 0 || b.ID <= a.ID {
		t.Errorf("ids not increasing: %d, %d", a.ID, b.ID)
	}

	got, err := db.Get(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.API() != a.API() {
		t.Errorf("Get:\n got: %+v\nwant: %+v", got.API(), a.API())
	}
	if got.ContentHash != ContentHash(a.API()) {
		t.Errorf("stored hash %q does not match content", got.ContentHash)
	}

	missing, err := db.Get(999)
	if err != nil || missing != nil {
		t.Errorf("Get(999): got %v, %v; want nil, nil", missing, err)
	}

	list, err := db.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Title != "A" || list[1].Title != "B" {
		t.Errorf("List: got %d posts", len(list))
	}
	if n, err := db.Count(); err != nil || n != 2 {
		t.Errorf("Count: got %d, %v", n, err)
	}
}

func TestUpdateDelete(t *testing.T) {
	db := openTestDB(t)
	p, err := db.Create(posts.NewPost{Title: "A", Content: "c1", Author: "Bob", Image: "img"})
	if err != nil {
		t.Fatal(err)
	}

	u, err := db.Update(p.ID, posts.Update{Title: "A2", Content: "c2"})
	if err != nil {
		t.Fatal(err)
	}
	want := posts.Post{ID: p.API().ID, Title: "A2", Content: "c2", Author: "Bob", Image: "img"}
	if u.API() != want {
		t.Errorf("Update:\n got: %+v\nwant: %+v", u.API(), want)
	}
	if hash, _ := db.GetContentHash(p.ID); hash != ContentHash(want) {
		t.Errorf("hash not refreshed on update")
	}

	if _, err := db.Update(999, posts.Update{Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(999): got %v, want ErrNotFound", err)
	}

	if err := db.Delete(p.ID); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: got %v, want ErrNotFound", err)
	}
	if n, _ := db.Count(); n != 0 {
		t.Errorf("Count after delete: got %d", n)
	}
}

func TestUpsert(t *testing.T) {
	db := openTestDB(t)
	p := &Post{ID: 42, Title: "T", Content: "C", Author: "A", Image: "I"}
	p.ContentHash = ContentHash(p.API())
	if err := db.Upsert(p); err != nil {
		t.Fatal(err)
	}
	p.Title = "T2"
	p.ContentHash = ContentHash(p.API())
	if err := db.Upsert(p); err != nil {
		t.Fatal(err)
	}
	got, err := db.Get(42)
	if err != nil || got == nil {
		t.Fatalf("Get(42): %v, %v", got, err)
	}
	if got.Title != "T2" {
		t.Errorf("title: got %q, want T2", got.Title)
	}

	// New posts continue after the highest upserted id.
	np, err := db.Create(posts.NewPost{Title: "next"})
	if err != nil {
		t.Fatal(err)
	}
	if np.ID <= 42 {
		t.Errorf("created id %d, want > 42", np.ID)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      posts.ID
		want    int64
		wantErr bool
	}{
		{"7", 7, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseID(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseID(%q) = %d, %v", tc.in, got, err)
		}
	}
}
