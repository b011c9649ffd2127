package ui

import (
	"github.com/renderinc/postboard/internal/posts"
	"github.com/shurcooL/htmlg"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// postRow is one entry of the post list: thumbnail and title, stamped with the post id.
type postRow struct {
	Post posts.Post
}

func (r postRow) Render() []*html.Node {
	img := &html.Node{
		Type: html.ElementNode, Data: atom.Img.String(), DataAtom: atom.Img,
		Attr: []html.Attribute{
			{Key: atom.Src.String(), Val: r.Post.ImageOrPlaceholder()},
			{Key: atom.Alt.String(), Val: r.Post.Title},
		},
	}
	div := htmlg.DivClass(RowClass, img, htmlg.Span(htmlg.Text(r.Post.Title)))
	div.Attr = append(div.Attr, html.Attribute{Key: IDAttr, Val: string(r.Post.ID)})
	return []*html.Node{div}
}
