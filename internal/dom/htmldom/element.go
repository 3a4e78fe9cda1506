package htmldom

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"

	"github.com/DoyleJ11/historic-flag-overlay/internal/dom"
)

var errDetached = errors.New("element detached from document")

type element struct {
	doc  *Document
	node *html.Node
}

func (e *element) Key() string { return fmt.Sprintf("%p", e.node) }

// attached reports whether the node is still reachable from the root.
// Callers hold doc.mu.
func (e *element) attached() bool {
	for n := e.node; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

func (e *element) Attr(name string) (string, bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}

func (e *element) SetAttr(name, value string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.attached() {
		return errDetached
	}
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return nil
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
	return nil
}

func (e *element) RemoveAttr(name string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.attached() {
		return errDetached
	}
	kept := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		kept = append(kept, a)
	}
	e.node.Attr = kept
	return nil
}

func (e *element) Find(sel dom.Selector) (dom.Element, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.find(e.node, sel.XPath(true))
}

func (e *element) FindAll(sel dom.Selector) ([]dom.Element, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.findAll(e.node, sel.XPath(true))
}
