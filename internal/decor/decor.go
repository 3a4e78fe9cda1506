// Package decor shows and hides the historic flag on the target element.
//
// The element is hidden by default in the client UI and may also carry the
// random-flag decoration, which shares the same presentation properties.
package decor

import (
	"encoding/json"
	"strings"

	"github.com/DoyleJ11/historic-flag-overlay/internal/dom"
)

const (
	MarkerClass   = "historic-flag-active"
	CoexistClass  = "random-flag-active"
	AssetName     = "historic_flag.png"
	snapshotAttr  = "data-historic-flag-prev"
	bgImage       = "background-image"
	hiddenDisplay = "none"
	hiddenOpacity = "0"
)

type prop struct {
	name      string
	value     string
	important bool
}

// presentation is every property Apply sets besides background-image.
var presentation = []prop{
	{"display", "block", true},
	{"visibility", "visible", true},
	{"opacity", "1", true},
	{"background-size", "contain", false},
	{"background-repeat", "no-repeat", false},
	{"background-position", "center", false},
	{"width", "24px", false},
	{"height", "24px", false},
	{"position", "absolute", false},
	{"top", "-4px", false},
	{"right", "-4px", false},
	{"pointer-events", "none", false},
	{"user-select", "none", false},
}

func managedProps() []string {
	names := make([]string, 0, len(presentation)+1)
	names = append(names, bgImage)
	for _, p := range presentation {
		names = append(names, p.name)
	}
	return names
}

// Apply decorates el with the flag image at url. Repeated calls converge on
// the same attributes. The element's own inline values are recorded on the
// first call so Clear can put them back.
func Apply(el dom.Element, url string) error {
	marked, err := dom.HasClass(el, MarkerClass)
	if err != nil {
		return err
	}
	style, err := dom.GetStyle(el)
	if err != nil {
		return err
	}

	if !marked {
		if _, has, err := el.Attr(snapshotAttr); err != nil {
			return err
		} else if !has {
			if err := el.SetAttr(snapshotAttr, snapshot(style)); err != nil {
				return err
			}
		}
	}

	style = style.Set(bgImage, `url("`+url+`")`, true)
	for _, p := range presentation {
		style = style.Set(p.name, p.value, p.important)
	}
	if err := dom.SetStyle(el, style); err != nil {
		return err
	}
	return dom.AddClass(el, MarkerClass)
}

// Clear removes the decoration. An element that carries nothing of ours is
// left alone. When the random flag shares the element only our background
// image goes, and only if it is ours; everything else stays because the
// other decoration relies on it. url is the resolved asset URL, if known.
func Clear(el dom.Element, url string) error {
	marked, err := dom.HasClass(el, MarkerClass)
	if err != nil {
		return err
	}
	raw, recorded, err := el.Attr(snapshotAttr)
	if err != nil {
		return err
	}
	style, err := dom.GetStyle(el)
	if err != nil {
		return err
	}
	bg, hasBg := style.Get(bgImage)
	ours := hasBg && isOurImage(bg.Value, url)
	if !marked && !recorded && !ours {
		return nil
	}

	if err := dom.RemoveClass(el, MarkerClass); err != nil {
		return err
	}
	coexist, err := dom.HasClass(el, CoexistClass)
	if err != nil {
		return err
	}
	if coexist {
		if ours {
			if err := dom.SetStyle(el, style.Remove(bgImage)); err != nil {
				return err
			}
		}
		return el.RemoveAttr(snapshotAttr)
	}

	for _, name := range managedProps() {
		style = style.Remove(name)
	}
	if prev, ok := restore(raw); recorded && ok {
		for _, d := range prev {
			style = style.Set(d.Prop, d.Value, d.Important)
		}
	} else {
		style = style.Set("display", hiddenDisplay, true)
		style = style.Set("opacity", hiddenOpacity, true)
	}

	if err := dom.SetStyle(el, style); err != nil {
		return err
	}
	return el.RemoveAttr(snapshotAttr)
}

func isOurImage(value, url string) bool {
	if strings.Contains(value, AssetName) {
		return true
	}
	return url != "" && strings.Contains(value, url)
}

type savedDecl struct {
	Prop      string `json:"p"`
	Value     string `json:"v"`
	Important bool   `json:"i,omitempty"`
}

// snapshot records the element's own values for the properties Apply is
// about to overwrite.
func snapshot(style dom.Style) string {
	saved := []savedDecl{}
	for _, name := range managedProps() {
		if d, ok := style.Get(name); ok {
			saved = append(saved, savedDecl{Prop: d.Prop, Value: d.Value, Important: d.Important})
		}
	}
	b, _ := json.Marshal(saved)
	return string(b)
}

func restore(raw string) (dom.Style, bool) {
	var saved []savedDecl
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return nil, false
	}
	out := make(dom.Style, 0, len(saved))
	for _, s := range saved {
		out = append(out, dom.Declaration{Prop: s.Prop, Value: s.Value, Important: s.Important})
	}
	return out, true
}
