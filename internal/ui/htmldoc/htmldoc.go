// Package htmldoc is an in-memory ui.Document over a golang.org/x/net/html tree.
//
// It keeps live form values and event listeners beside the tree, so a page can be
// driven the way a browser would drive it: set values, click, submit, then inspect
// the rendered markup.
package htmldoc

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/renderinc/postboard/internal/ui"
	"github.com/shurcooL/htmlg"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML page.
type Document struct {
	root *html.Node

	mu        sync.Mutex
	values    map[*html.Node]string
	listeners map[*html.Node]map[string][]func(ui.Event)
}

// Parse parses an HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{
		root:      root,
		values:    make(map[*html.Node]string),
		listeners: make(map[*html.Node]map[string][]func(ui.Event)),
	}, nil
}

// ParseString parses an HTML page held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// GetElementByID implements ui.Document.
func (d *Document) GetElementByID(id string) ui.Element {
	n := find(d.root, func(n *html.Node) bool { return attr(n, "id") == id })
	if n == nil {
		return nil
	}
	return d.wrap(n)
}

// Build implements ui.Document.
func (d *Document) Build(c htmlg.Component) (ui.Element, error) {
	nodes := c.Render()
	if len(nodes) != 1 || nodes[0].Type != html.ElementNode {
		return nil, fmt.Errorf("component rendered %d nodes, want a single element", len(nodes))
	}
	return d.wrap(nodes[0]), nil
}

// Node returns the tree node behind an element of d.
func (d *Document) Node(e ui.Element) *html.Node {
	return e.(*element).n
}

// QuerySelectorAll returns every element matching a simple selector, in document order.
func (d *Document) QuerySelectorAll(sel string) []ui.Element {
	s := parseSelector(sel)
	var es []ui.Element
	walk(d.root, func(n *html.Node) {
		if s.match(n) {
			es = append(es, d.wrap(n))
		}
	})
	return es
}

// Dispatch delivers an event of type typ to the listeners of e.
// It reports whether no listener prevented the default action.
func (d *Document) Dispatch(e ui.Element, typ string) bool {
	n := d.Node(e)
	d.mu.Lock()
	ls := slices.Clone(d.listeners[n][typ])
	d.mu.Unlock()

	ev := &event{}
	for _, l := range ls {
		l(ev)
	}
	return !ev.prevented
}

// Click dispatches a click to the element with the given id.
func (d *Document) Click(id string) error {
	return d.dispatchID(id, "click")
}

// Submit dispatches a submit to the form with the given id.
func (d *Document) Submit(id string) error {
	return d.dispatchID(id, "submit")
}

func (d *Document) dispatchID(id, typ string) error {
	e := d.GetElementByID(id)
	if e == nil {
		return fmt.Errorf("no element with id %q", id)
	}
	d.Dispatch(e, typ)
	return nil
}

// Render writes the page markup. Live form values are not reflected.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// OuterHTML returns the markup of e.
func OuterHTML(e ui.Element) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.(*element).n); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Document) wrap(n *html.Node) *element {
	return &element{d: d, n: n}
}

type event struct {
	prevented bool
}

func (e *event) PreventDefault() { e.prevented = true }

// element implements ui.Element.
type element struct {
	d *Document
	n *html.Node
}

func (e *element) TextContent() string {
	var sb strings.Builder
	walk(e.n, func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
	})
	return sb.String()
}

func (e *element) SetTextContent(s string) {
	removeChildren(e.n)
	if s != "" {
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

func (e *element) Value() string {
	e.d.mu.Lock()
	v, ok := e.d.values[e.n]
	e.d.mu.Unlock()
	if ok {
		return v
	}
	if e.n.DataAtom == atom.Textarea {
		return e.TextContent()
	}
	return attr(e.n, "value")
}

func (e *element) SetValue(s string) {
	e.d.mu.Lock()
	e.d.values[e.n] = s
	e.d.mu.Unlock()
}

func (e *element) GetAttribute(name string) string {
	return attr(e.n, name)
}

func (e *element) SetAttribute(name, value string) {
	for i := range e.n.Attr {
		if e.n.Attr[i].Key == name {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
}

func (e *element) AddClass(class string) {
	classes := strings.Fields(attr(e.n, "class"))
	for _, c := range classes {
		if c == class {
			return
		}
	}
	e.SetAttribute("class", strings.Join(append(classes, class), " "))
}

func (e *element) RemoveClass(class string) {
	classes := strings.Fields(attr(e.n, "class"))
	kept := classes[:0]
	for _, c := range classes {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(classes) {
		return
	}
	e.SetAttribute("class", strings.Join(kept, " "))
}

func (e *element) HasClass(class string) bool {
	return hasClass(e.n, class)
}

func (e *element) AppendChild(child ui.Element) {
	c := e.d.Node(child)
	if c.Parent != nil {
		c.Parent.RemoveChild(c)
	}
	e.n.AppendChild(c)
}

func (e *element) RemoveChild(child ui.Element) {
	if c := e.d.Node(child); c.Parent == e.n {
		e.n.RemoveChild(c)
	}
}

func (e *element) RemoveChildren() {
	removeChildren(e.n)
}

func (e *element) QuerySelector(sel string) ui.Element {
	s := parseSelector(sel)
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if n := find(c, s.match); n != nil {
			return e.d.wrap(n)
		}
	}
	return nil
}

func (e *element) AddEventListener(typ string, listener func(ui.Event)) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.d.listeners[e.n] == nil {
		e.d.listeners[e.n] = make(map[string][]func(ui.Event))
	}
	e.d.listeners[e.n][typ] = append(e.d.listeners[e.n][typ], listener)
}

func (e *element) Reset() {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	walk(e.n, func(n *html.Node) {
		delete(e.d.values, n)
	})
}

// selector is a compound of an optional tag, an optional id and classes.
type selector struct {
	tag     string
	id      string
	classes []string
}

func parseSelector(sel string) selector {
	var s selector
	sel = strings.TrimSpace(sel)
	for len(sel) > 0 {
		end := strings.IndexAny(sel[1:], ".#") + 1
		if end == 0 {
			end = len(sel)
		}
		part := sel[:end]
		switch part[0] {
		case '.':
			s.classes = append(s.classes, part[1:])
		case '#':
			s.id = part[1:]
		default:
			s.tag = strings.ToLower(part)
		}
		sel = sel[end:]
	}
	return s
}

func (s selector) match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && attr(n, "id") != s.id {
		return false
	}
	for _, c := range s.classes {
		if !hasClass(n, c) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

// walk calls f for n and all its descendants, in document order.
func walk(n *html.Node, f func(*html.Node)) {
	f(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, f)
	}
}

// find returns the first node at or below n for which match is true.
func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := find(c, match); m != nil {
			return m
		}
	}
	return nil
}
