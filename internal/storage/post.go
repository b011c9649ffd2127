package storage

import (
	"crypto/md5"
	"fmt"
	"strconv"
	"time"

	"github.com/renderinc/postboard/internal/posts"
)

// Post represents a post row
type Post struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Content     string    `db:"content"`
	Author      string    `db:"author"`
	Image       string    `db:"image"`
	ContentHash string    `db:"content_hash"` // md5 of the user-visible fields
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// API returns the wire representation of the post
func (p *Post) API() posts.Post {
	return posts.Post{
		ID:      posts.ID(strconv.FormatInt(p.ID, 10)),
		Title:   p.Title,
		Content: p.Content,
		Author:  p.Author,
		Image:   p.Image,
	}
}

// ParseID converts a wire id to a row id
func ParseID(id posts.ID) (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid post id %q", id)
	}
	return n, nil
}

// ContentHash hashes the fields a client can see, so unchanged posts can be skipped on import
func ContentHash(p posts.Post) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(p.Title+"\x00"+p.Content+"\x00"+p.Author+"\x00"+p.Image)))
}
