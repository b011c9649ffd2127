package ui

import "github.com/shurcooL/htmlg"

// Element ids the page markup must provide.
const (
	PostListID      = "post-list"
	DetailTitleID   = "detail-title"
	DetailAuthorID  = "detail-author"
	DetailContentID = "detail-content"
	EditButtonID    = "edit-button"
	DeleteButtonID  = "delete-button"
	EditFormID      = "edit-post-form"
	EditTitleID     = "edit-title"
	EditContentID   = "edit-content"
	CancelEditID    = "cancel-edit"
	NewFormID       = "new-post-form"
	NewTitleID      = "new-title"
	NewContentID    = "new-content"
	NewAuthorID     = "new-author"
	NewImageID      = "new-image"
)

// HiddenClass hides an element when present in its class list.
const HiddenClass = "hidden"

// RowClass marks a post row in the list container.
const RowClass = "post-item"

// IDAttr carries a post id on rows, the edit form and the delete control.
const IDAttr = "data-id"

// Event is a DOM event delivered to a listener.
type Event interface {
	PreventDefault()
}

// Element is the part of a DOM element the view touches.
type Element interface {
	TextContent() string
	SetTextContent(s string)

	// Value and SetValue access the live value of form controls.
	Value() string
	SetValue(s string)

	GetAttribute(name string) string
	SetAttribute(name, value string)

	AddClass(class string)
	RemoveClass(class string)
	HasClass(class string) bool

	AppendChild(child Element)
	RemoveChild(child Element)
	RemoveChildren()

	// QuerySelector returns the first descendant matching a simple
	// selector (tag, .class, #id or a compound of those), or nil.
	QuerySelector(sel string) Element

	AddEventListener(typ string, listener func(Event))

	// Reset restores the default values of the form controls below the element.
	Reset()
}

// Document is the page the view renders into.
type Document interface {
	// GetElementByID returns nil when no element has the id.
	GetElementByID(id string) Element

	// Build creates a detached element from a component rendering exactly one root node.
	Build(c htmlg.Component) (Element, error)
}
