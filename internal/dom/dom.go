// Package dom is the overlay's view of the client UI. Implementations live
// in subpackages: htmldom keeps a parsed tree in memory, roddom drives the
// live client over the DevTools protocol.
package dom

import (
	"context"
	"strings"
)

// Selector matches elements that carry every listed class.
type Selector []string

func Classes(names ...string) Selector { return Selector(names) }

// CSS renders the selector as a compound class selector, e.g. ".a.b".
func (s Selector) CSS() string {
	var b strings.Builder
	for _, c := range s {
		b.WriteByte('.')
		b.WriteString(c)
	}
	return b.String()
}

// XPath renders the selector as a descendant query. relative queries start
// at the context node instead of the document root.
func (s Selector) XPath(relative bool) string {
	prefix := "//*"
	if relative {
		prefix = ".//*"
	}
	if len(s) == 0 {
		return prefix
	}
	preds := make([]string, 0, len(s))
	for _, c := range s {
		preds = append(preds, "contains(concat(' ', normalize-space(@class), ' '), ' "+c+" ')")
	}
	return prefix + "[" + strings.Join(preds, " and ") + "]"
}

// Element is a handle to a node owned by the UI. Handles may go stale at any
// time; callers re-resolve instead of caching them across events.
type Element interface {
	// Key identifies the underlying node; two handles to the same node
	// share a key.
	Key() string
	Attr(name string) (string, bool, error)
	SetAttr(name, value string) error
	RemoveAttr(name string) error
	// Find returns the first matching descendant, or nil when none matches.
	Find(sel Selector) (Element, error)
	FindAll(sel Selector) ([]Element, error)
}

type Document interface {
	// Find returns the first matching element, or nil when none matches.
	Find(sel Selector) (Element, error)
	FindAll(sel Selector) ([]Element, error)
	// Observe calls notify after structural changes under the first element
	// matching scope (or the whole document while it is absent) until ctx
	// ends.
	Observe(ctx context.Context, scope Selector, notify func()) error
	// ShowLabel creates or updates the floating, dismissible name label.
	ShowLabel(text string) error
	RemoveLabel() error
}
