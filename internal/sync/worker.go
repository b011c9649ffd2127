// Package sync mirrors posts from a remote backend into the local store and search index.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/renderinc/postboard/internal/posts"
	"github.com/renderinc/postboard/internal/search"
	"github.com/renderinc/postboard/internal/storage"
)

// Source is the remote backend being imported. *posts.Client implements it.
type Source interface {
	List(ctx context.Context) ([]posts.Post, error)
	Get(ctx context.Context, id posts.ID) (*posts.Post, error)
}

// Worker handles importing posts from a remote backend
type Worker struct {
	source   Source
	db       *storage.DB
	index    *search.Index
	log      *slog.Logger
	maxPosts int // Limit for testing (0 = unlimited)
}

// NewWorker creates a new import worker
func NewWorker(source Source, db *storage.DB, index *search.Index, maxPosts int) *Worker {
	return &Worker{
		source:   source,
		db:       db,
		index:    index,
		log:      slog.Default(),
		maxPosts: maxPosts,
	}
}

// WithLogger sets the logger used for progress output.
func (w *Worker) WithLogger(l *slog.Logger) *Worker {
	w.log = l
	return w
}

// Stats holds import statistics
type Stats struct {
	Total    int
	New      int
	Updated  int
	Skipped  int
	Errors   int
	Duration time.Duration
}

// Concurrency is the number of posts fetched in parallel.
const Concurrency = 5

// Sync performs a full import of the remote collection
func (w *Worker) Sync(ctx context.Context) (*Stats, error) {
	startTime := time.Now()
	stats := &Stats{}

	w.log.Info("starting import")

	// 1. List the remote collection
	remote, err := w.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	// 2. Deduplicate and apply the limit
	seen := make(map[posts.ID]bool)
	var ids []posts.ID
	for _, p := range remote {
		if w.maxPosts > 0 && len(ids) >= w.maxPosts {
			w.log.Info("reached post limit", "max", w.maxPosts)
			break
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		ids = append(ids, p.ID)
	}

	stats.Total = len(ids)
	w.log.Info("posts to import", "total", stats.Total)

	// 3. Import each post with a worker pool
	idChan := make(chan posts.ID, len(ids))
	for _, id := range ids {
		idChan <- id
	}
	close(idChan)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for range Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idChan {
				if err := w.syncPost(ctx, id, stats, &mu); err != nil {
					w.log.Warn("import post failed", "id", id, "error", err)
					mu.Lock()
					stats.Errors++
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()

	stats.Duration = time.Since(startTime)
	w.log.Info("import complete",
		"new", stats.New, "updated", stats.Updated, "skipped", stats.Skipped,
		"errors", stats.Errors, "duration", stats.Duration)

	return stats, ctx.Err()
}

// syncPost imports a single post
func (w *Worker) syncPost(ctx context.Context, id posts.ID, stats *Stats, mu *sync.Mutex) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rowID, err := storage.ParseID(id)
	if err != nil {
		return err
	}

	// 1. Fetch the full post
	remote, err := w.source.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	// 2. Compare content hashes. Stored images are never blank.
	remote.Image = remote.ImageOrPlaceholder()
	contentHash := storage.ContentHash(*remote)
	existingHash, err := w.db.GetContentHash(rowID)
	if err != nil {
		return fmt.Errorf("get content hash: %w", err)
	}

	if existingHash == contentHash {
		mu.Lock()
		stats.Skipped++
		mu.Unlock()
		return nil
	}

	// 3. Store
	now := time.Now().UTC()
	p := &storage.Post{
		ID:          rowID,
		Title:       remote.Title,
		Content:     remote.Content,
		Author:      remote.Author,
		Image:       remote.Image,
		ContentHash: contentHash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.db.Upsert(p); err != nil {
		return fmt.Errorf("upsert post: %w", err)
	}

	// 4. Index
	if err := w.index.IndexPost(p); err != nil {
		return fmt.Errorf("index post: %w", err)
	}

	mu.Lock()
	if existingHash == "" {
		stats.New++
	} else {
		stats.Updated++
	}
	mu.Unlock()

	w.log.Debug("imported post", "id", id, "title", remote.Title)
	return nil
}
