package roddom

import (
	"strconv"

	"github.com/go-rod/rod"

	"github.com/DoyleJ11/historic-flag-overlay/internal/dom"
)

type element struct {
	el  *rod.Element
	key string
}

// wrap resolves the backend node id, which stays the same for every handle
// to one node.
func wrap(el *rod.Element) (*element, error) {
	node, err := el.Describe(0, false)
	if err != nil {
		return nil, err
	}
	return &element{el: el, key: strconv.Itoa(int(node.BackendNodeID))}, nil
}

func wrapAll(els rod.Elements) ([]dom.Element, error) {
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		w, err := wrap(el)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func (e *element) Key() string { return e.key }

func (e *element) Attr(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) SetAttr(name, value string) error {
	_, err := e.el.Eval(`function (name, value) { this.setAttribute(name, value) }`, name, value)
	return err
}

func (e *element) RemoveAttr(name string) error {
	_, err := e.el.Eval(`function (name) { this.removeAttribute(name) }`, name)
	return err
}

func (e *element) Find(sel dom.Selector) (dom.Element, error) {
	has, el, err := e.el.Has(sel.CSS())
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	w, err := wrap(el)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (e *element) FindAll(sel dom.Selector) ([]dom.Element, error) {
	els, err := e.el.Elements(sel.CSS())
	if err != nil {
		return nil, err
	}
	return wrapAll(els)
}
