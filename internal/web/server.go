// Package web serves the posts REST API, the page that hosts the frontend, and search.
package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shurcooL/httperror"
	"github.com/shurcooL/httpgzip"

	"github.com/renderinc/postboard/internal/posts"
	"github.com/renderinc/postboard/internal/search"
	"github.com/renderinc/postboard/internal/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// maxBodyBytes bounds create and update request bodies.
const maxBodyBytes = 1 << 20

type Server struct {
	db        *storage.DB
	idx       *search.Index
	log       *slog.Logger
	templates *template.Template
	metrics   *metrics
	opts      Options
}

// Options configures a Server. The zero value is usable.
type Options struct {
	// BaseURL is the collection URL handed to the frontend. Empty means
	// http://<request host>/posts.
	BaseURL string
	// Timeout is the frontend's per-request timeout.
	Timeout time.Duration
	// AllowedOrigins lists origins allowed to call the API cross-origin. Empty allows all.
	AllowedOrigins []string
	Logger         *slog.Logger
}

type SearchResponse struct {
	Results []*search.SearchResult `json:"results"`
	Query   string                 `json:"query"`
	Count   int                    `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(db *storage.DB, idx *search.Index, opts Options) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		db:        db,
		idx:       idx,
		log:       logger,
		templates: tmpl,
		metrics:   newMetrics(),
		opts:      opts,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Static files, gzipped when the client accepts it
	mux.Handle("GET /static/", httpgzip.FileServer(http.FS(staticFS), httpgzip.FileServerOptions{ServeError: httpgzip.NonSpecific}))

	// Routes
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /posts", s.api(s.handleList))
	mux.Handle("POST /posts", s.api(s.handleCreate))
	mux.Handle("GET /posts/{id}", s.api(s.handleGet))
	mux.Handle("PATCH /posts/{id}", s.api(s.handleUpdate))
	mux.Handle("DELETE /posts/{id}", s.api(s.handleDelete))
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})

	return c.Handler(s.metrics.instrument(mux))
}

// Seed creates ps when the store is empty. It reports how many posts it created.
func (s *Server) Seed(ps []posts.NewPost) (int, error) {
	count, err := s.db.Count()
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	for _, np := range ps {
		p, err := s.db.Create(np.Normalize())
		if err != nil {
			return 0, fmt.Errorf("seed post: %w", err)
		}
		if err := s.idx.IndexPost(p); err != nil {
			return 0, fmt.Errorf("index seeded post: %w", err)
		}
	}
	return len(ps), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	baseURL := s.opts.BaseURL
	if baseURL == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		baseURL = scheme + "://" + r.Host + "/posts"
	}
	_, err := fs.Stat(staticFS, "static/frontend.wasm")

	data := map[string]interface{}{
		"BaseURL":     baseURL,
		"Timeout":     s.opts.Timeout.String(),
		"HasFrontend": err == nil,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.log.Error("render template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) error {
	rows, err := s.db.List()
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}

	out := make([]posts.Post, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.API())
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	p, err := s.db.Get(id)
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}
	if p == nil {
		return errPostNotFound
	}
	writeJSON(w, http.StatusOK, p.API())
	return nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) error {
	var np posts.NewPost
	if err := decodeBody(w, r, &np); err != nil {
		return err
	}
	np = np.Normalize()
	if np.Title == "" {
		return httperror.BadRequest{Err: errors.New("title is required")}
	}

	p, err := s.db.Create(np)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	s.reindex(p)

	s.log.Info("post created", "id", p.ID, "title", p.Title)
	writeJSON(w, http.StatusCreated, p.API())
	return nil
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var u posts.Update
	if err := decodeBody(w, r, &u); err != nil {
		return err
	}

	p, err := s.db.Update(id, u.Normalize())
	if errors.Is(err, storage.ErrNotFound) {
		return errPostNotFound
	}
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	s.reindex(p)

	s.log.Info("post updated", "id", p.ID)
	writeJSON(w, http.StatusOK, p.API())
	return nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	err = s.db.Delete(id)
	if errors.Is(err, storage.ErrNotFound) {
		return errPostNotFound
	}
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if err := s.idx.Delete(id); err != nil {
		s.log.Warn("unindex post", "id", id, "error", err)
	}

	s.log.Info("post deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusOK, SearchResponse{Results: []*search.SearchResult{}})
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	results, err := s.idx.Search(query, limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results: results,
		Query:   query,
		Count:   len(results),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbCount, _ := s.db.Count()
	indexCount, _ := s.idx.Count()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"posts_in_db":    dbCount,
		"posts_in_index": indexCount,
	})
}

// reindex keeps the search index in step with a stored post. The store is
// authoritative, so a failure is logged and the request still succeeds.
func (s *Server) reindex(p *storage.Post) {
	if err := s.idx.IndexPost(p); err != nil {
		s.log.Warn("index post", "id", p.ID, "error", err)
	}
}

var errPostNotFound = httperror.HTTP{Code: http.StatusNotFound, Err: storage.ErrNotFound}

// pathID parses the {id} path segment. Ids that cannot exist are reported as not found.
func pathID(r *http.Request) (int64, error) {
	id, err := storage.ParseID(posts.ID(r.PathValue("id")))
	if err != nil {
		return 0, errPostNotFound
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return httperror.BadRequest{Err: fmt.Errorf("invalid request body: %w", err)}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
