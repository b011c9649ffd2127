package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/renderinc/postboard/internal/posts"
)

// ErrNotFound is returned when updating or deleting a missing post
var ErrNotFound = errors.New("post not found")

// DB wraps SQLite database operations
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database
func Open(path string) (*DB, error) {
	// Importers write from several goroutines; wait for the lock instead of failing
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable foreign keys and WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	storage := &DB{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return storage, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates tables if they don't exist
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		author TEXT NOT NULL,
		image TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_author ON posts(author);
	CREATE INDEX IF NOT EXISTS idx_updated ON posts(updated_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

const postColumns = `id, title, content, author, image, content_hash, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(s scanner) (*Post, error) {
	p := &Post{}
	err := s.Scan(&p.ID, &p.Title, &p.Content, &p.Author, &p.Image, &p.ContentHash, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a new post and returns it with its assigned id
func (d *DB) Create(np posts.NewPost) (*Post, error) {
	now := time.Now().UTC()
	p := &Post{
		Title:     np.Title,
		Content:   np.Content,
		Author:    np.Author,
		Image:     np.Image,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.ContentHash = ContentHash(p.API())

	res, err := d.db.Exec(`
	INSERT INTO posts (title, content, author, image, content_hash, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Title, p.Content, p.Author, p.Image, p.ContentHash, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return p, nil
}

// Upsert inserts or updates a post with a caller-chosen id
func (d *DB) Upsert(p *Post) error {
	query := `
	INSERT INTO posts (` + postColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		author = excluded.author,
		image = excluded.image,
		content_hash = excluded.content_hash,
		updated_at = excluded.updated_at
	`

	_, err := d.db.Exec(query,
		p.ID, p.Title, p.Content, p.Author, p.Image, p.ContentHash, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// Get retrieves a post by ID. It returns nil, nil if there is none.
func (d *DB) Get(id int64) (*Post, error) {
	p, err := scanPost(d.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List retrieves all posts in creation order
func (d *DB) List() ([]*Post, error) {
	rows, err := d.db.Query(`SELECT ` + postColumns + ` FROM posts ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ps []*Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}

	return ps, rows.Err()
}

// Update replaces the title and content of a post
func (d *DB) Update(id int64, u posts.Update) (*Post, error) {
	p, err := d.Get(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}

	p.Title, p.Content = u.Title, u.Content
	p.ContentHash = ContentHash(p.API())
	p.UpdatedAt = time.Now().UTC()

	_, err = d.db.Exec(`
	UPDATE posts SET title = ?, content = ?, content_hash = ?, updated_at = ? WHERE id = ?
	`, p.Title, p.Content, p.ContentHash, p.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return p, nil
}

// Delete removes a post
func (d *DB) Delete(id int64) error {
	res, err := d.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of posts
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	return count, err
}

// GetContentHash retrieves just the content hash for a post
func (d *DB) GetContentHash(id int64) (string, error) {
	var hash string
	err := d.db.QueryRow("SELECT content_hash FROM posts WHERE id = ?", id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}
