package search

import (
	"fmt"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/renderinc/postboard/internal/posts"
	"github.com/renderinc/postboard/internal/storage"
)

// Index wraps a Bleve search index
type Index struct {
	index bleve.Index
}

// IndexedPost represents a post in the search index
type IndexedPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Image     string    `json:"image"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult represents a search result
type SearchResult struct {
	ID        posts.ID            `json:"id"`
	Title     string              `json:"title"`
	Author    string              `json:"author"`
	Image     string              `json:"image,omitempty"`
	Score     float64             `json:"score"`
	Fragments map[string][]string `json:"fragments,omitempty"` // Highlighted snippets
}

// Open opens or creates a Bleve index
func Open(path string) (*Index, error) {
	var idx bleve.Index
	var err error

	// Try to open existing index
	idx, err = bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// NewMemOnly creates an index that lives only in memory
func NewMemOnly() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx}, nil
}

// buildIndexMapping uses the English analyzer for titles and content
func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = "en"

	// Authors are matched whole, so "Bob" does not stem
	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = "keyword"

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("author", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("image", storedOnly)
	docMapping.AddFieldMappingsAt("updated_at", bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	indexMapping.DefaultAnalyzer = "en"

	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

func toIndexed(p *storage.Post) *IndexedPost {
	return &IndexedPost{
		ID:        strconv.FormatInt(p.ID, 10),
		Title:     p.Title,
		Content:   p.Content,
		Author:    p.Author,
		Image:     p.Image,
		UpdatedAt: p.UpdatedAt,
	}
}

// IndexPost adds or updates a post in the index
func (i *Index) IndexPost(p *storage.Post) error {
	doc := toIndexed(p)
	return i.index.Index(doc.ID, doc)
}

// Delete removes a post from the index
func (i *Index) Delete(id int64) error {
	return i.index.Delete(strconv.FormatInt(id, 10))
}

// Search performs a query string search (quotes, +/-, fuzzy ~, and the
// title:, content: and author: fields)
func (i *Index) Search(queryStr string, limit int) ([]*SearchResult, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	search := bleve.NewSearchRequestOptions(query, limit, 0, false)
	search.Highlight = bleve.NewHighlightWithStyle("html")
	search.Fields = []string{"title", "author", "image"}

	results, err := i.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	searchResults := make([]*SearchResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		result := &SearchResult{
			ID:        posts.ID(hit.ID),
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}

		if title, ok := hit.Fields["title"].(string); ok {
			result.Title = title
		}
		if author, ok := hit.Fields["author"].(string); ok {
			result.Author = author
		}
		if image, ok := hit.Fields["image"].(string); ok {
			result.Image = image
		}

		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// IndexFromStorage indexes all posts from storage in one batch
func (i *Index) IndexFromStorage(db *storage.DB) (int, error) {
	ps, err := db.List()
	if err != nil {
		return 0, fmt.Errorf("list posts: %w", err)
	}

	batch := i.index.NewBatch()
	for _, p := range ps {
		doc := toIndexed(p)
		if err := batch.Index(doc.ID, doc); err != nil {
			return 0, fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}

	return len(ps), nil
}

// Count returns the number of posts in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
