package posts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PlaceholderImage is shown for posts created without an image
const PlaceholderImage = "https://via.placeholder.com/50"

// ID is a server-assigned post identifier.
// Backends emit it either as a JSON number or a JSON string.
type ID string

// UnmarshalJSON accepts both `7` and `"7"`
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("post id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Post is the single record served by the backend
type Post struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
	Image   string `json:"image,omitempty"`
}

// ImageOrPlaceholder returns the post image, or PlaceholderImage if it has none
func (p Post) ImageOrPlaceholder() string {
	if p.Image == "" {
		return PlaceholderImage
	}
	return p.Image
}

// NewPost is the body of a create request
type NewPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
	Image   string `json:"image"`
}

// Normalize trims every field and substitutes the placeholder for a blank image
func (p NewPost) Normalize() NewPost {
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)
	p.Author = strings.TrimSpace(p.Author)
	p.Image = strings.TrimSpace(p.Image)
	if p.Image == "" {
		p.Image = PlaceholderImage
	}
	return p
}

// Update is the body of a partial update. Author and image are not editable.
type Update struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Normalize trims both fields
func (u Update) Normalize() Update {
	u.Title = strings.TrimSpace(u.Title)
	u.Content = strings.TrimSpace(u.Content)
	return u
}
