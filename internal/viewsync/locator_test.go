package viewsync

import (
	"errors"
	"testing"

	"github.com/DoyleJ11/historic-flag-overlay/internal/dom/htmldom"
)

func TestLocate(t *testing.T) {
	cases := []struct {
		name   string
		page   string
		wantID string
	}{
		{
			name: "selected item wins",
			page: `<div class="champion-select">
<div class="loyalty-reward-icon--rewards loyalty-reward-icon--selected" id="global"></div>
<div class="skin-selection-item skin-selection-item-selected"><div class="skin-selection-item-information loyalty-reward-icon--rewards" id="selected"></div></div>
</div>`,
			wantID: "selected",
		},
		{
			name:   "global match",
			page:   `<div class="loyalty-reward-icon--rewards loyalty-reward-icon--selected" id="global"></div>`,
			wantID: "global",
		},
		{
			name: "selected item without an icon falls through",
			page: `<div class="skin-selection-item skin-selection-item-selected"></div>
<div class="skin-selection-carousel"><div class="skin-selection-item skin-carousel-offset-2"><div class="skin-selection-item-information loyalty-reward-icon--rewards" id="carousel"></div></div></div>`,
			wantID: "carousel",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := htmldom.ParseString("<html><body>" + tc.page + "</body></html>")
			if err != nil {
				t.Fatal(err)
			}
			el, err := DefaultLocator().Locate(doc)
			if err != nil {
				t.Fatalf("Locate: %v", err)
			}
			if id, _, _ := el.Attr("id"); id != tc.wantID {
				t.Fatalf("located %q, want %q", id, tc.wantID)
			}
		})
	}
}

func TestLocate_NotFound(t *testing.T) {
	doc, err := htmldom.ParseString(`<html><body><div class="skin-selection-carousel">
<div class="skin-selection-item skin-carousel-offset-1"><div class="skin-selection-item-information loyalty-reward-icon--rewards"></div></div>
</div></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DefaultLocator().Locate(doc); !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("want ErrElementNotFound, got %v", err)
	}
}
