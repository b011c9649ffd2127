//go:build js && wasm

// Package jsdoc implements ui.Document on top of the browser DOM via syscall/js.
package jsdoc

import (
	"fmt"
	"syscall/js"

	"github.com/renderinc/postboard/internal/ui"
	"github.com/shurcooL/htmlg"
)

// Document is the page loaded in the browser.
type Document struct {
	doc js.Value
}

// New returns the current page.
func New() *Document {
	return &Document{doc: js.Global().Get("document")}
}

// Body returns the page body.
func (d *Document) Body() ui.Element {
	return wrap(d.doc.Get("body"))
}

// ReadyState returns document.readyState.
func (d *Document) ReadyState() string {
	return d.doc.Get("readyState").String()
}

// OnLoad calls f once the document has been parsed.
func (d *Document) OnLoad(f func()) {
	if d.ReadyState() != "loading" {
		f()
		return
	}
	var cb js.Func
	cb = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		cb.Release()
		go f()
		return nil
	})
	d.doc.Call("addEventListener", "DOMContentLoaded", cb)
}

// GetElementByID implements ui.Document.
func (d *Document) GetElementByID(id string) ui.Element {
	return wrap(d.doc.Call("getElementById", id))
}

// Build implements ui.Document. The component is serialized by
// golang.org/x/net/html, so text and attribute values arrive escaped.
func (d *Document) Build(c htmlg.Component) (ui.Element, error) {
	nodes := c.Render()
	if len(nodes) != 1 {
		return nil, fmt.Errorf("component rendered %d nodes, want a single element", len(nodes))
	}
	template := d.doc.Call("createElement", "template")
	template.Set("innerHTML", string(htmlg.Render(nodes...)))
	first := template.Get("content").Get("firstElementChild")
	if first.IsNull() || first.IsUndefined() {
		return nil, fmt.Errorf("component did not render an element")
	}
	first.Call("remove")
	return element{first}, nil
}

func wrap(v js.Value) ui.Element {
	if v.IsNull() || v.IsUndefined() {
		return nil
	}
	return element{v}
}

// element implements ui.Element.
type element struct {
	v js.Value
}

func (e element) TextContent() string     { return e.v.Get("textContent").String() }
func (e element) SetTextContent(s string) { e.v.Set("textContent", s) }

func (e element) Value() string     { return e.v.Get("value").String() }
func (e element) SetValue(s string) { e.v.Set("value", s) }

func (e element) GetAttribute(name string) string {
	a := e.v.Call("getAttribute", name)
	if a.IsNull() {
		return ""
	}
	return a.String()
}

func (e element) SetAttribute(name, value string) {
	e.v.Call("setAttribute", name, value)
}

func (e element) AddClass(class string)    { e.v.Get("classList").Call("add", class) }
func (e element) RemoveClass(class string) { e.v.Get("classList").Call("remove", class) }

func (e element) HasClass(class string) bool {
	return e.v.Get("classList").Call("contains", class).Bool()
}

func (e element) AppendChild(child ui.Element) {
	e.v.Call("appendChild", child.(element).v)
}

func (e element) RemoveChild(child ui.Element) {
	c := child.(element).v
	if c.Get("parentNode").Equal(e.v) {
		e.v.Call("removeChild", c)
	}
}

func (e element) RemoveChildren() {
	e.v.Call("replaceChildren")
}

func (e element) QuerySelector(sel string) ui.Element {
	return wrap(e.v.Call("querySelector", sel))
}

// AddEventListener registers listener. The callback is never released.
func (e element) AddEventListener(typ string, listener func(ui.Event)) {
	e.v.Call("addEventListener", typ, js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		listener(event{args[0]})
		return nil
	}))
}

func (e element) Reset() {
	e.v.Call("reset")
}

type event struct {
	v js.Value
}

func (ev event) PreventDefault() { ev.v.Call("preventDefault") }
