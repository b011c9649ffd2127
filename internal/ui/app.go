// Package ui implements the posts page: a list of posts, the detail pane
// of the selected post, and the create, edit and delete forms.
//
// The view is written against the Document interface so it runs both in the
// browser (package jsdoc) and against an in-memory HTML tree (package htmldoc).
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/renderinc/postboard/internal/posts"
)

// ErrNoSelection is returned by edit and delete when no post is displayed.
var ErrNoSelection = errors.New("no post selected")

// Service is the backend the view talks to. *posts.Client implements it.
type Service interface {
	List(ctx context.Context) ([]posts.Post, error)
	Get(ctx context.Context, id posts.ID) (*posts.Post, error)
	Create(ctx context.Context, p posts.NewPost) (*posts.Post, error)
	Update(ctx context.Context, id posts.ID, u posts.Update) (*posts.Post, error)
	Delete(ctx context.Context, id posts.ID) error
}

// State is the state of the detail pane.
type State int

const (
	Empty State = iota
	Viewing
	Editing
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// App binds a Service to a Document.
type App struct {
	svc   Service
	doc   Document
	log   *slog.Logger
	spawn func(func())

	el elements

	mu       sync.Mutex
	ctx      context.Context
	selected posts.ID
	hasSel   bool
	// selectSeq is bumped by every detail fetch and by a delete of the
	// displayed post that no later fetch has superseded.
	selectSeq uint64
	rows      map[posts.ID]Element
}

type elements struct {
	list Element

	detailTitle   Element
	detailAuthor  Element
	detailContent Element
	editButton    Element
	deleteButton  Element

	editForm    Element
	editTitle   Element
	editContent Element
	cancelEdit  Element

	newForm    Element
	newTitle   Element
	newContent Element
	newAuthor  Element
	newImage   Element
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger failures are reported to. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithSpawn sets how event listeners run their work.
// The default starts a goroutine, since a browser event callback must not block.
func WithSpawn(spawn func(func())) Option {
	return func(a *App) { a.spawn = spawn }
}

// New looks up every element of the page and returns an App ready to Start.
func New(svc Service, doc Document, opts ...Option) (*App, error) {
	a := &App{
		svc:   svc,
		doc:   doc,
		log:   slog.Default(),
		spawn: func(f func()) { go f() },
		ctx:   context.Background(),
		rows:  make(map[posts.ID]Element),
	}
	for _, opt := range opts {
		opt(a)
	}

	var missing []string
	get := func(id string) Element {
		e := doc.GetElementByID(id)
		if e == nil {
			missing = append(missing, id)
		}
		return e
	}
	a.el = elements{
		list:          get(PostListID),
		detailTitle:   get(DetailTitleID),
		detailAuthor:  get(DetailAuthorID),
		detailContent: get(DetailContentID),
		editButton:    get(EditButtonID),
		deleteButton:  get(DeleteButtonID),
		editForm:      get(EditFormID),
		editTitle:     get(EditTitleID),
		editContent:   get(EditContentID),
		cancelEdit:    get(CancelEditID),
		newForm:       get(NewFormID),
		newTitle:      get(NewTitleID),
		newContent:    get(NewContentID),
		newAuthor:     get(NewAuthorID),
		newImage:      get(NewImageID),
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("page is missing elements %q", missing)
	}
	return a, nil
}

// Start binds the page controls and displays the posts.
// ctx is used for every request the page makes afterwards.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	a.el.newForm.AddEventListener("submit", func(e Event) {
		e.PreventDefault()
		a.run("create post", a.CreatePost)
	})
	a.el.editButton.AddEventListener("click", func(Event) {
		a.RevealEdit()
	})
	a.el.cancelEdit.AddEventListener("click", func(Event) {
		a.CancelEdit()
	})
	a.el.editForm.AddEventListener("submit", func(e Event) {
		e.PreventDefault()
		a.run("update post", a.SubmitEdit)
	})
	a.el.deleteButton.AddEventListener("click", func(Event) {
		a.run("delete post", a.DeleteSelected)
	})

	a.run("display posts", a.DisplayPosts)
}

// run hands op to the spawner and logs its failure.
func (a *App) run(name string, op func(context.Context) error) {
	a.mu.Lock()
	ctx := a.ctx
	a.mu.Unlock()
	a.spawn(func() {
		if err := op(ctx); err != nil {
			a.log.Error("request failed", "op", name, "error", err)
		}
	})
}

// Selected returns the id of the post shown in the detail pane.
func (a *App) Selected() (posts.ID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected, a.hasSel
}

// State returns the state of the detail pane.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case !a.hasSel:
		return Empty
	case a.el.editForm.HasClass(HiddenClass):
		return Viewing
	default:
		return Editing
	}
}

// DisplayPosts replaces the list with the backend's collection and shows the first post.
// On failure the list is left as it was.
func (a *App) DisplayPosts(ctx context.Context) error {
	list, err := a.svc.List(ctx)
	if err != nil {
		return err
	}

	rows := make([]Element, 0, len(list))
	for _, p := range list {
		row, err := a.newRow(p)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	a.mu.Lock()
	a.el.list.RemoveChildren()
	a.rows = make(map[posts.ID]Element, len(rows))
	for i, row := range rows {
		a.el.list.AppendChild(row)
		a.rows[list[i].ID] = row
	}
	a.mu.Unlock()

	if len(list) == 0 {
		return nil
	}
	// The list is up; a failed auto-select only leaves the detail pane as it was.
	if err := a.HandlePostClick(ctx, list[0].ID); err != nil {
		a.log.Error("request failed", "op", "display post", "id", list[0].ID, "error", err)
	}
	return nil
}

// newRow builds a list row for p that selects p when clicked.
func (a *App) newRow(p posts.Post) (Element, error) {
	row, err := a.doc.Build(postRow{Post: p})
	if err != nil {
		return nil, fmt.Errorf("build row for post %s: %w", p.ID, err)
	}
	id := p.ID
	row.AddEventListener("click", func(Event) {
		a.run("display post", func(ctx context.Context) error {
			return a.HandlePostClick(ctx, id)
		})
	})
	return row, nil
}

// HandlePostClick fetches post id and shows it in the detail pane.
// If another selection or a delete happens before the response arrives, the response is dropped.
func (a *App) HandlePostClick(ctx context.Context, id posts.ID) error {
	a.mu.Lock()
	a.selectSeq++
	seq := a.selectSeq
	a.mu.Unlock()

	post, err := a.svc.Get(ctx, id)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if seq != a.selectSeq {
		a.log.Debug("dropping stale post response", "id", id)
		return nil
	}
	a.el.detailTitle.SetTextContent(post.Title)
	a.el.detailAuthor.SetTextContent("By " + post.Author)
	a.el.detailContent.SetTextContent(post.Content)
	a.el.editButton.RemoveClass(HiddenClass)
	a.el.deleteButton.RemoveClass(HiddenClass)
	a.el.editForm.SetAttribute(IDAttr, string(post.ID))
	a.el.deleteButton.SetAttribute(IDAttr, string(post.ID))
	a.selected, a.hasSel = post.ID, true
	return nil
}

// CreatePost sends the new-post form and appends the created post to the list.
// The form is reset on success and keeps its values on failure.
func (a *App) CreatePost(ctx context.Context) error {
	a.mu.Lock()
	np := posts.NewPost{
		Title:   a.el.newTitle.Value(),
		Content: a.el.newContent.Value(),
		Author:  a.el.newAuthor.Value(),
		Image:   a.el.newImage.Value(),
	}.Normalize()
	a.mu.Unlock()

	post, err := a.svc.Create(ctx, np)
	if err != nil {
		return err
	}
	row, err := a.newRow(*post)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.el.list.AppendChild(row)
	a.rows[post.ID] = row
	a.el.newForm.Reset()
	return nil
}

// RevealEdit seeds the edit form from the detail pane as displayed and shows it.
func (a *App) RevealEdit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.el.editTitle.SetValue(a.el.detailTitle.TextContent())
	a.el.editContent.SetValue(a.el.detailContent.TextContent())
	a.el.editForm.RemoveClass(HiddenClass)
}

// CancelEdit hides the edit form.
func (a *App) CancelEdit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.el.editForm.AddClass(HiddenClass)
}

// SubmitEdit sends the edit form as a partial update of the selected post,
// then patches its row and, if still displayed, the detail pane.
func (a *App) SubmitEdit(ctx context.Context) error {
	a.mu.Lock()
	id, ok := a.selected, a.hasSel
	u := posts.Update{
		Title:   a.el.editTitle.Value(),
		Content: a.el.editContent.Value(),
	}.Normalize()
	a.mu.Unlock()
	if !ok {
		return ErrNoSelection
	}

	post, err := a.svc.Update(ctx, id, u)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if row, ok := a.rows[post.ID]; ok {
		if title := row.QuerySelector("span"); title != nil {
			title.SetTextContent(post.Title)
		}
		if img := row.QuerySelector("img"); img != nil {
			img.SetAttribute("alt", post.Title)
		}
	}
	if a.hasSel && a.selected == post.ID {
		a.el.detailTitle.SetTextContent(post.Title)
		a.el.detailContent.SetTextContent(post.Content)
	}
	a.el.editForm.AddClass(HiddenClass)
	return nil
}

// DeleteSelected deletes the selected post, removes its row and empties the detail pane.
// A post clicked while the delete is in flight still gets displayed.
func (a *App) DeleteSelected(ctx context.Context) error {
	a.mu.Lock()
	id, ok := a.selected, a.hasSel
	seq := a.selectSeq
	a.mu.Unlock()
	if !ok {
		return ErrNoSelection
	}

	if err := a.svc.Delete(ctx, id); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if row, ok := a.rows[id]; ok {
		a.el.list.RemoveChild(row)
		delete(a.rows, id)
	}
	if a.hasSel && a.selected == id {
		a.clearDetail()
	}
	if a.selectSeq == seq {
		// Drop any fetch of the deleted post that was already in flight.
		a.selectSeq++
	}
	return nil
}

// clearDetail empties the detail pane and hides its controls. a.mu must be held.
func (a *App) clearDetail() {
	a.selected, a.hasSel = "", false
	a.el.detailTitle.SetTextContent("")
	a.el.detailAuthor.SetTextContent("")
	a.el.detailContent.SetTextContent("")
	a.el.editButton.AddClass(HiddenClass)
	a.el.deleteButton.AddClass(HiddenClass)
	a.el.editForm.AddClass(HiddenClass)
	a.el.editForm.SetAttribute(IDAttr, "")
	a.el.deleteButton.SetAttribute(IDAttr, "")
}
