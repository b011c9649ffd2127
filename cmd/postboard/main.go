package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/renderinc/postboard/internal/config"
	"github.com/renderinc/postboard/internal/posts"
	"github.com/renderinc/postboard/internal/search"
	"github.com/renderinc/postboard/internal/storage"
	"github.com/renderinc/postboard/internal/sync"
	"github.com/renderinc/postboard/internal/web"
)

var cfg *config.Config

// seedPosts are created by `serve -seed` on an empty store.
var seedPosts = []posts.NewPost{
	{Title: "Welcome to Postboard", Content: "Click a post to read it, or write one with the form.", Author: "Postboard"},
	{Title: "Editing posts", Content: "Use Edit to change a title or content. Author and image stay as created.", Author: "Postboard"},
	{Title: "Searching", Content: "GET /search?q=... runs a full-text query over every post.", Author: "Postboard"},
}

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Parse global flags
	globalFlags := flag.NewFlagSet("global", flag.ExitOnError)
	dataDirFlag := globalFlags.String("data-dir", cfg.DataDir, "Directory for database and index files")
	urlFlag := globalFlags.String("url", cfg.BaseURL, "Posts collection URL used by client commands")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Find where the command starts (skip global flags)
	commandIdx := 1
	for i := 1; i < len(os.Args); i++ {
		if !strings.HasPrefix(os.Args[i], "-") {
			commandIdx = i
			break
		}
	}
	if commandIdx > 1 {
		globalFlags.Parse(os.Args[1:commandIdx])
	}
	cfg.DataDir = *dataDirFlag
	cfg.BaseURL = *urlFlag

	slog.SetDefault(cfg.Logger(os.Stderr))

	command := os.Args[commandIdx]
	args := os.Args[commandIdx+1:]

	switch command {
	case "list":
		runList()
	case "get":
		if len(args) < 1 {
			usageError("post ID required", "get <id>")
		}
		runGet(posts.ID(args[0]))
	case "create":
		createFlags := flag.NewFlagSet("create", flag.ExitOnError)
		title := createFlags.String("title", "", "Post title")
		content := createFlags.String("content", "", "Post content")
		author := createFlags.String("author", "", "Post author")
		image := createFlags.String("image", "", "Image URL (default: placeholder)")
		createFlags.Parse(args)

		runCreate(posts.NewPost{Title: *title, Content: *content, Author: *author, Image: *image})
	case "edit":
		if len(args) < 1 || strings.HasPrefix(args[0], "-") {
			usageError("post ID required", "edit <id> [-title=<title>] [-content=<content>]")
		}
		editFlags := flag.NewFlagSet("edit", flag.ExitOnError)
		title := editFlags.String("title", "", "New title (default: unchanged)")
		content := editFlags.String("content", "", "New content (default: unchanged)")
		editFlags.Parse(args[1:])

		set := make(map[string]bool)
		editFlags.Visit(func(f *flag.Flag) { set[f.Name] = true })
		runEdit(posts.ID(args[0]), *title, set["title"], *content, set["content"])
	case "delete":
		if len(args) < 1 {
			usageError("post ID required", "delete <id>")
		}
		runDelete(posts.ID(args[0]))
	case "serve":
		serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)
		addr := serveFlags.String("addr", cfg.Addr, "Address to listen on")
		seed := serveFlags.Bool("seed", false, "Create sample posts when the store is empty")
		serveFlags.Parse(args)

		runServe(*addr, *seed)
	case "search":
		searchFlags := flag.NewFlagSet("search", flag.ExitOnError)
		limit := searchFlags.Int("limit", 10, "Maximum number of results")
		searchFlags.Parse(args)

		if searchFlags.NArg() < 1 {
			usageError("search query required", "search [flags] <query>")
		}
		runSearch(strings.Join(searchFlags.Args(), " "), *limit)
	case "import":
		importFlags := flag.NewFlagSet("import", flag.ExitOnError)
		from := importFlags.String("from", "", "Posts collection URL to import from")
		maxPosts := importFlags.Int("max", 0, "Import at most this many posts (0 = all)")
		importFlags.Parse(args)

		if *from == "" {
			usageError("-from is required", "import -from=<url> [-max=<n>]")
		}
		runImport(*from, *maxPosts)
	case "reindex":
		runReindex()
	case "stats":
		runStats()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func usageError(msg, usage string) {
	fmt.Printf("Error: %s\n", msg)
	fmt.Printf("Usage: postboard [global-flags] %s\n", usage)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Postboard - Posts backend, browser frontend and CLI")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  postboard [global-flags] <command> [flags]")
	fmt.Println()
	fmt.Println("Global Flags:")
	fmt.Println("  --data-dir=<dir>  Directory for database and index files (default: $POSTBOARD_DATA_DIR or ./data)")
	fmt.Println("  --url=<url>       Posts collection URL (default: $POSTBOARD_URL or " + posts.DefaultBaseURL + ")")
	fmt.Println()
	fmt.Println("Client Commands:")
	fmt.Println("  list                            List posts")
	fmt.Println("  get <id>                        Show one post")
	fmt.Println("  create [flags]                  Create a post (-title -content -author -image)")
	fmt.Println("  edit <id> [flags]               Change title and/or content (-title -content)")
	fmt.Println("  delete <id>                     Delete a post")
	fmt.Println()
	fmt.Println("Local Commands:")
	fmt.Println("  serve [-addr=<addr>] [-seed]    Start the backend and page (default: " + cfg.Addr + ")")
	fmt.Println("  search [-limit=<n>] <query>     Full-text search over local posts")
	fmt.Println("  import -from=<url> [-max=<n>]   Copy posts from another backend into the local store")
	fmt.Println("  reindex                         Rebuild the search index from the database")
	fmt.Println("  stats                           Show store and index counts")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  postboard serve -seed")
	fmt.Println("  postboard create -title=Hello -content=\"First post\" -author=Ann")
	fmt.Println("  postboard edit 1 -title=\"Hello again\"")
	fmt.Println("  postboard search 'deploy~'")
	fmt.Println("  postboard import -from=http://other:3000/posts")
}

func newClient() *posts.Client {
	return posts.NewClient(cfg.BaseURL, posts.WithTimeout(cfg.Timeout))
}

func printPost(p *posts.Post) {
	fmt.Printf("ID:      %s\n", p.ID)
	fmt.Printf("Title:   %s\n", p.Title)
	fmt.Printf("Author:  %s\n", p.Author)
	fmt.Printf("Image:   %s\n", p.ImageOrPlaceholder())
	fmt.Println()
	fmt.Println(p.Content)
}

func runList() {
	ps, err := newClient().List(context.Background())
	if err != nil {
		log.Fatalf("Error listing posts: %v", err)
	}
	if len(ps) == 0 {
		fmt.Println("No posts")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Title, p.Author)
	}
	tw.Flush()
}

func runGet(id posts.ID) {
	p, err := newClient().Get(context.Background(), id)
	if errors.Is(err, posts.ErrNotFound) {
		log.Fatalf("Post %s not found", id)
	}
	if err != nil {
		log.Fatalf("Error getting post: %v", err)
	}
	printPost(p)
}

func runCreate(np posts.NewPost) {
	if strings.TrimSpace(np.Title) == "" {
		usageError("-title is required", "create -title=<title> [-content=<content>] [-author=<author>] [-image=<url>]")
	}
	p, err := newClient().Create(context.Background(), np)
	if err != nil {
		log.Fatalf("Error creating post: %v", err)
	}
	fmt.Printf("✓ Created post %s\n", p.ID)
}

func runEdit(id posts.ID, title string, titleSet bool, content string, contentSet bool) {
	if !titleSet && !contentSet {
		usageError("nothing to change", "edit <id> [-title=<title>] [-content=<content>]")
	}

	ctx := context.Background()
	client := newClient()

	// The backend replaces both fields, so keep whichever one was not given.
	current, err := client.Get(ctx, id)
	if err != nil {
		log.Fatalf("Error getting post: %v", err)
	}
	u := posts.Update{Title: current.Title, Content: current.Content}
	if titleSet {
		u.Title = title
	}
	if contentSet {
		u.Content = content
	}

	p, err := client.Update(ctx, id, u)
	if err != nil {
		log.Fatalf("Error updating post: %v", err)
	}
	fmt.Printf("✓ Updated post %s: %s\n", p.ID, p.Title)
}

func runDelete(id posts.ID) {
	if err := newClient().Delete(context.Background(), id); err != nil {
		log.Fatalf("Error deleting post: %v", err)
	}
	fmt.Printf("✓ Deleted post %s\n", id)
}

func openStore() (*storage.DB, *search.Index) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Error creating data directory: %v", err)
	}

	db, err := storage.Open(cfg.DBPath())
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}

	idx, err := search.Open(cfg.IndexPath())
	if err != nil {
		db.Close()
		log.Fatalf("Error opening search index: %v", err)
	}
	return db, idx
}

func runServe(addr string, seed bool) {
	db, idx := openStore()
	defer db.Close()
	defer idx.Close()

	server, err := web.NewServer(db, idx, web.Options{Timeout: cfg.Timeout})
	if err != nil {
		log.Fatalf("Error creating server: %v", err)
	}

	if seed {
		n, err := server.Seed(seedPosts)
		if err != nil {
			log.Fatalf("Error seeding posts: %v", err)
		}
		if n > 0 {
			slog.Info("seeded posts", "count", n)
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	fmt.Println()
	fmt.Println("=== Postboard Server ===")
	fmt.Printf("Page:  http://%s/\n", addr)
	fmt.Printf("API:   http://%s/posts\n", addr)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Error starting server: %v", err)
	}
	slog.Info("server stopped")
}

func runSearch(query string, limit int) {
	db, idx := openStore()
	defer db.Close()
	defer idx.Close()

	results, err := idx.Search(query, limit)
	if err != nil {
		log.Fatalf("Error searching: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Printf("\nFound %d results:\n\n", len(results))

	for i, result := range results {
		fmt.Printf("%d. %s (id %s)\n", i+1, result.Title, result.ID)
		if result.Author != "" {
			fmt.Printf("   Author: %s\n", result.Author)
		}
		fmt.Printf("   Score: %.3f\n", result.Score)

		if snippets, ok := result.Fragments["content"]; ok && len(snippets) > 0 {
			fmt.Printf("   Preview: %s\n", snippets[0])
		}
		fmt.Println()
	}
}

func runImport(from string, maxPosts int) {
	db, idx := openStore()
	defer db.Close()
	defer idx.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := posts.NewClient(from, posts.WithTimeout(cfg.Timeout))
	stats, err := sync.NewWorker(source, db, idx, maxPosts).Sync(ctx)
	if err != nil && stats == nil {
		log.Fatalf("Error importing: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Import Complete ===")
	fmt.Printf("Total:    %s\n", humanize.Comma(int64(stats.Total)))
	fmt.Printf("New:      %d\n", stats.New)
	fmt.Printf("Updated:  %d\n", stats.Updated)
	fmt.Printf("Skipped:  %d\n", stats.Skipped)
	fmt.Printf("Errors:   %d\n", stats.Errors)
	fmt.Printf("Duration: %v\n", stats.Duration.Round(time.Millisecond))
	if err != nil {
		log.Fatalf("Import interrupted: %v", err)
	}
}

func runReindex() {
	fmt.Println("Rebuilding search index...")

	if err := os.RemoveAll(cfg.IndexPath()); err != nil {
		log.Fatalf("Error removing old index: %v", err)
	}

	startTime := time.Now()
	db, idx := openStore()
	defer db.Close()
	defer idx.Close()

	n, err := idx.IndexFromStorage(db)
	if err != nil {
		log.Fatalf("Error rebuilding index: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Reindex Complete ===")
	fmt.Printf("Posts indexed: %s\n", humanize.Comma(int64(n)))
	fmt.Printf("Duration:      %v\n", time.Since(startTime).Round(time.Millisecond))
}

func runStats() {
	db, idx := openStore()
	defer db.Close()
	defer idx.Close()

	dbCount, err := db.Count()
	if err != nil {
		log.Fatalf("Error getting database count: %v", err)
	}

	indexCount, err := idx.Count()
	if err != nil {
		log.Fatalf("Error getting index count: %v", err)
	}

	fmt.Println("=== Statistics ===")
	fmt.Printf("Posts in database: %s\n", humanize.Comma(int64(dbCount)))
	fmt.Printf("Posts in index:    %s\n", humanize.Comma(int64(indexCount)))
	if fi, err := os.Stat(cfg.DBPath()); err == nil {
		fmt.Printf("Database size:     %s (modified %s)\n", humanize.Bytes(uint64(fi.Size())), humanize.Time(fi.ModTime()))
	}
}
