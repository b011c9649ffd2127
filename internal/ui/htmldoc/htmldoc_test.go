package htmldoc

import (
	"testing"

	"github.com/renderinc/postboard/internal/ui"
	"github.com/shurcooL/htmlg"
	"golang.org/x/net/html"
)

const page = `<!DOCTYPE html><html><body>
<div id="list" class="a b"><p class="x"><span>one</span></p></div>
<form id="form"><input id="in" value="default"><textarea id="ta">text</textarea></form>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	d, err := ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestValuesAndReset(t *testing.T) {
	d := mustParse(t)
	in, ta := d.GetElementByID("in"), d.GetElementByID("ta")
	if got := in.Value(); got != "default" {
		t.Errorf("input default: got %q", got)
	}
	if got := ta.Value(); got != "text" {
		t.Errorf("textarea default: got %q", got)
	}
	in.SetValue("typed")
	ta.SetValue("more")
	if in.Value() != "typed" || ta.Value() != "more" {
		t.Errorf("after SetValue: got %q, %q", in.Value(), ta.Value())
	}
	d.GetElementByID("form").Reset()
	if in.Value() != "default" || ta.Value() != "text" {
		t.Errorf("after Reset: got %q, %q", in.Value(), ta.Value())
	}
}

func TestClasses(t *testing.T) {
	d := mustParse(t)
	e := d.GetElementByID("list")
	e.AddClass("b")
	e.AddClass("hidden")
	if got := e.GetAttribute("class"); got != "a b hidden" {
		t.Errorf("after AddClass: got %q", got)
	}
	e.RemoveClass("a")
	if e.HasClass("a") || !e.HasClass("hidden") {
		t.Errorf("after RemoveClass: got %q", e.GetAttribute("class"))
	}
}

func TestQuerySelector(t *testing.T) {
	d := mustParse(t)
	list := d.GetElementByID("list")
	tests := []struct {
		sel  string
		want string
	}{
		{"span", "one"},
		{"p.x", "one"},
		{".x", "one"},
		{"p.y", ""},
		{"#in", ""}, // not below list
	}
	for _, tc := range tests {
		got := ""
		if e := list.QuerySelector(tc.sel); e != nil {
			got = e.TextContent()
		}
		if got != tc.want {
			t.Errorf("QuerySelector(%q): got %q, want %q", tc.sel, got, tc.want)
		}
	}
	if got := len(d.QuerySelectorAll("form input")); got != 0 {
		t.Errorf("descendant combinators are unsupported, got %d matches", got)
	}
	if got := len(d.QuerySelectorAll("#in")); got != 1 {
		t.Errorf("QuerySelectorAll(#in): got %d matches", got)
	}
}

func TestBuildAndChildren(t *testing.T) {
	d := mustParse(t)
	list := d.GetElementByID("list")
	row, err := d.Build(htmlg.NodeComponent(*htmlg.DivClass("row", htmlg.Text("<b>escaped</b>"))))
	if err != nil {
		t.Fatal(err)
	}
	list.RemoveChildren()
	list.AppendChild(row)
	if got, want := OuterHTML(list), `<div id="list" class="a b"><div class="row">&lt;b&gt;escaped&lt;/b&gt;</div></div>`; got != want {
		t.Errorf("\n got: %s\nwant: %s", got, want)
	}
	list.RemoveChild(row)
	if got := list.TextContent(); got != "" {
		t.Errorf("after RemoveChild: got %q", got)
	}

	if _, err := d.Build(htmlg.NodeComponent(html.Node{Type: html.TextNode, Data: "x"})); err == nil {
		t.Error("Build of a text node: got nil error")
	}
}

func TestDispatch(t *testing.T) {
	d := mustParse(t)
	var got []string
	form := d.GetElementByID("form")
	form.AddEventListener("submit", func(e ui.Event) {
		e.PreventDefault()
		got = append(got, "first")
	})
	form.AddEventListener("submit", func(ui.Event) { got = append(got, "second") })
	if d.Dispatch(form, "submit") {
		t.Error("Dispatch: default not prevented")
	}
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("listeners ran: %v", got)
	}
	if err := d.Click("missing"); err == nil {
		t.Error("Click on missing id: got nil error")
	}
}

func TestDispatchListenerAddsListener(t *testing.T) {
	d := mustParse(t)
	form := d.GetElementByID("form")
	var n int
	form.AddEventListener("click", func(ui.Event) {
		n++
		form.AddEventListener("click", func(ui.Event) { n += 10 })
	})

	if !d.Dispatch(form, "click") {
		t.Error("Dispatch: default prevented")
	}
	if n != 1 {
		t.Fatalf("first dispatch: n = %d, want 1", n)
	}
	d.Dispatch(form, "click")
	if n != 12 {
		t.Errorf("second dispatch: n = %d, want 12", n)
	}
}
