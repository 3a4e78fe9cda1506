package viewsync

import (
	"errors"

	"github.com/DoyleJ11/historic-flag-overlay/internal/dom"
)

var ErrElementNotFound = errors.New("target element not found")

// Locator describes where the flag's host element lives in the client UI.
type Locator struct {
	// Scope is the narrowest container observed for mutations.
	Scope dom.Selector

	SelectedItem dom.Selector
	Target       dom.Selector
	Global       dom.Selector

	Carousel       dom.Selector
	CarouselItem   dom.Selector
	CarouselMarker string
}

func DefaultLocator() Locator {
	return Locator{
		Scope:          dom.Classes("champion-select"),
		SelectedItem:   dom.Classes("skin-selection-item", "skin-selection-item-selected"),
		Target:         dom.Classes("skin-selection-item-information", "loyalty-reward-icon--rewards"),
		Global:         dom.Classes("loyalty-reward-icon--rewards", "loyalty-reward-icon--selected"),
		Carousel:       dom.Classes("skin-selection-carousel"),
		CarouselItem:   dom.Classes("skin-selection-item"),
		CarouselMarker: "skin-carousel-offset-2",
	}
}

// Locate resolves the target element from the live tree, trying the
// selected item first, then a direct match, then the carousel item carrying
// the marker class. It returns ErrElementNotFound when every strategy
// comes up empty.
func (l Locator) Locate(doc dom.Document) (dom.Element, error) {
	item, err := doc.Find(l.SelectedItem)
	if err != nil {
		return nil, err
	}
	if item != nil {
		el, err := item.Find(l.Target)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}
	}

	el, err := doc.Find(l.Global)
	if err != nil {
		return nil, err
	}
	if el != nil {
		return el, nil
	}

	carousel, err := doc.Find(l.Carousel)
	if err != nil {
		return nil, err
	}
	if carousel == nil {
		return nil, ErrElementNotFound
	}
	items, err := carousel.FindAll(l.CarouselItem)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		marked, err := dom.HasClass(item, l.CarouselMarker)
		if err != nil {
			return nil, err
		}
		if !marked {
			continue
		}
		el, err := item.Find(l.Target)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}
	}
	return nil, ErrElementNotFound
}
