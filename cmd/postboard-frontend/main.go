//go:build js && wasm

// Command postboard-frontend is the browser side of postboard. Build it with
//
//	GOOS=js GOARCH=wasm go build -o internal/web/static/frontend.wasm ./cmd/postboard-frontend
//
// and serve it with `postboard serve`, which also ships wasm_exec.js and the page markup.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/renderinc/postboard/internal/posts"
	"github.com/renderinc/postboard/internal/ui"
	"github.com/renderinc/postboard/internal/ui/jsdoc"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	document := jsdoc.New()
	document.OnLoad(func() { setup(document) })

	select {}
}

func setup(document *jsdoc.Document) {
	// The server renders its configuration onto <body>.
	baseURL, timeout := posts.DefaultBaseURL, 30*time.Second
	if body := document.Body(); body != nil {
		if u := body.GetAttribute("data-base-url"); u != "" {
			baseURL = u
		}
		if d, err := time.ParseDuration(body.GetAttribute("data-timeout")); err == nil && d > 0 {
			timeout = d
		}
	}

	client := posts.NewClient(baseURL, posts.WithTimeout(timeout))
	app, err := ui.New(client, document)
	if err != nil {
		slog.Error("page setup failed", "error", err)
		return
	}
	slog.Info("postboard started", "backend", baseURL)
	app.Start(context.Background())
}
