// Package htmldom implements dom.Document over an in-memory html.Node tree.
// Tests and offline tooling use it in place of the live client.
package htmldom

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/DoyleJ11/historic-flag-overlay/internal/dom"
)

const labelID = "historic-flag-label"

type Document struct {
	mu        sync.Mutex
	root      *html.Node
	observers []observer
}

type observer struct {
	ctx    context.Context
	scope  dom.Selector
	notify func()
}

func Parse(r io.Reader) (*Document, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func (d *Document) Find(sel dom.Selector) (dom.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.find(d.root, sel.XPath(false))
}

func (d *Document) FindAll(sel dom.Selector) ([]dom.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.findAll(d.root, sel.XPath(false))
}

func (d *Document) find(top *html.Node, expr string) (dom.Element, error) {
	n, err := htmlquery.Query(top, expr)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	return &element{doc: d, node: n}, nil
}

func (d *Document) findAll(top *html.Node, expr string) ([]dom.Element, error) {
	nodes, err := htmlquery.QueryAll(top, expr)
	if err != nil {
		return nil, err
	}
	out := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{doc: d, node: n})
	}
	return out, nil
}

// Observe registers notify for structural changes made through Mutate.
func (d *Document) Observe(ctx context.Context, scope dom.Selector, notify func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, observer{ctx: ctx, scope: scope, notify: notify})
	return nil
}

// Mutate runs fn against the tree and then notifies live observers, the way
// a MutationObserver fires after the UI rebuilds part of the page.
func (d *Document) Mutate(fn func(root *html.Node)) {
	d.mu.Lock()
	fn(d.root)
	live := d.observers[:0]
	var notify []func()
	for _, o := range d.observers {
		if o.ctx.Err() != nil {
			continue
		}
		live = append(live, o)
		notify = append(notify, o.notify)
	}
	d.observers = live
	d.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

// MutateHTML replaces the children of the first element matching sel with
// the parsed fragment.
func (d *Document) MutateHTML(sel dom.Selector, fragment string) error {
	var outErr error
	d.Mutate(func(root *html.Node) {
		target, err := htmlquery.Query(root, sel.XPath(false))
		if err != nil || target == nil {
			outErr = fmt.Errorf("no element matches %s", sel.CSS())
			return
		}
		nodes, err := html.ParseFragment(strings.NewReader(fragment), target)
		if err != nil {
			outErr = err
			return
		}
		for c := target.FirstChild; c != nil; {
			next := c.NextSibling
			target.RemoveChild(c)
			c = next
		}
		for _, n := range nodes {
			target.AppendChild(n)
		}
	})
	return outErr
}

func (d *Document) ShowLabel(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	label := d.labelNode()
	if label == nil {
		body := htmlquery.FindOne(d.root, "//body")
		if body == nil {
			return fmt.Errorf("document has no body")
		}
		label = &html.Node{
			Type:     html.ElementNode,
			Data:     "div",
			DataAtom: atom.Div,
			Attr: []html.Attribute{
				{Key: "id", Val: labelID},
				{Key: "class", Val: labelID},
			},
		}
		body.AppendChild(label)
	}
	for c := label.FirstChild; c != nil; {
		next := c.NextSibling
		label.RemoveChild(c)
		c = next
	}
	label.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return nil
}

func (d *Document) RemoveLabel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if label := d.labelNode(); label != nil && label.Parent != nil {
		label.Parent.RemoveChild(label)
	}
	return nil
}

// Label returns the label text and whether the label is shown.
func (d *Document) Label() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	label := d.labelNode()
	if label == nil {
		return "", false
	}
	return htmlquery.InnerText(label), true
}

// DismissLabel simulates the user closing the label.
func (d *Document) DismissLabel() {
	_ = d.RemoveLabel()
}

func (d *Document) labelNode() *html.Node {
	return htmlquery.FindOne(d.root, "//*[@id='"+labelID+"']")
}

// Render serializes the current tree.
func (d *Document) Render() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	_ = html.Render(&b, d.root)
	return b.String()
}
