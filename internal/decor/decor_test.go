package decor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/historic-flag-overlay/internal/dom"
	"github.com/DoyleJ11/historic-flag-overlay/internal/dom/htmldom"
)

const flagURL = "http://127.0.0.1:50000/assets/historic_flag.png"

func iconFixture(t *testing.T, attrs string) dom.Element {
	t.Helper()
	doc, err := htmldom.ParseString(`<html><body><div class="skin-selection-item">` +
		`<div id="icon" ` + attrs + `></div></div></body></html>`)
	require.NoError(t, err)
	el, err := doc.Find(dom.Classes("loyalty-reward-icon--rewards"))
	require.NoError(t, err)
	require.NotNil(t, el)
	return el
}

type attrs struct {
	class string
	style dom.Style
	snap  bool
}

func read(t *testing.T, el dom.Element) attrs {
	t.Helper()
	class, _, err := el.Attr("class")
	require.NoError(t, err)
	style, err := dom.GetStyle(el)
	require.NoError(t, err)
	_, snap, err := el.Attr(snapshotAttr)
	require.NoError(t, err)
	return attrs{class: class, style: style, snap: snap}
}

func styleMap(s dom.Style) map[string]dom.Declaration {
	out := map[string]dom.Declaration{}
	for _, d := range s {
		out[d.Prop] = d
	}
	return out
}

func TestApply_ShowsFlag(t *testing.T) {
	el := iconFixture(t, `class="loyalty-reward-icon--rewards" style="display: none; opacity: 0"`)
	require.NoError(t, Apply(el, flagURL))

	got := read(t, el)
	assert.Contains(t, got.class, MarkerClass)
	m := styleMap(got.style)
	assert.Equal(t, dom.Declaration{Prop: "display", Value: "block", Important: true}, m["display"])
	assert.Equal(t, dom.Declaration{Prop: "opacity", Value: "1", Important: true}, m["opacity"])
	assert.Equal(t, `url("`+flagURL+`")`, m["background-image"].Value)
	assert.Equal(t, "none", m["pointer-events"].Value)
	assert.Equal(t, "none", m["user-select"].Value)
	assert.True(t, got.snap)
}

func TestApply_Idempotent(t *testing.T) {
	el := iconFixture(t, `class="loyalty-reward-icon--rewards" style="opacity: 0"`)
	require.NoError(t, Apply(el, flagURL))
	once := read(t, el)
	snapOnce, _, _ := el.Attr(snapshotAttr)

	require.NoError(t, Apply(el, flagURL))
	twice := read(t, el)
	snapTwice, _, _ := el.Attr(snapshotAttr)

	assert.Equal(t, once, twice)
	assert.Equal(t, snapOnce, snapTwice, "second apply must not re-record applied values")
}

func TestClearAfterApply_RestoresOriginal(t *testing.T) {
	cases := []struct {
		name  string
		attrs string
	}{
		{"no inline style", `class="loyalty-reward-icon--rewards"`},
		{"hidden inline", `class="loyalty-reward-icon--rewards" style="display: none; opacity: 0; color: red"`},
		{"important inline", `class="loyalty-reward-icon--rewards extra" style="visibility: hidden !important"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			el := iconFixture(t, tc.attrs)
			before := read(t, el)

			require.NoError(t, Apply(el, flagURL))
			require.NoError(t, Clear(el, flagURL))
			after := read(t, el)

			assert.Equal(t, before.class, after.class)
			assert.Equal(t, styleMap(before.style), styleMap(after.style))
			assert.False(t, after.snap)
		})
	}
}

func TestClear_WithoutRecordForcesHidden(t *testing.T) {
	el := iconFixture(t, `class="loyalty-reward-icon--rewards historic-flag-active" style="display: block !important; background-image: url(&#34;x/historic_flag.png&#34;)"`)
	require.NoError(t, Clear(el, ""))

	got := read(t, el)
	assert.Equal(t, "loyalty-reward-icon--rewards", got.class)
	m := styleMap(got.style)
	assert.Equal(t, dom.Declaration{Prop: "display", Value: "none", Important: true}, m["display"])
	assert.Equal(t, dom.Declaration{Prop: "opacity", Value: "0", Important: true}, m["opacity"])
	_, hasBg := m["background-image"]
	assert.False(t, hasBg)
}

func TestClear_UntouchedElementIsLeftAlone(t *testing.T) {
	el := iconFixture(t, `class="loyalty-reward-icon--rewards" style="width: 10px"`)
	before := read(t, el)
	require.NoError(t, Clear(el, flagURL))
	assert.Equal(t, before, read(t, el))
}

func TestClear_CoexistingRandomFlag(t *testing.T) {
	el := iconFixture(t, `class="loyalty-reward-icon--rewards random-flag-active"`)
	require.NoError(t, Apply(el, flagURL))
	applied := styleMap(read(t, el).style)

	require.NoError(t, Clear(el, flagURL))
	got := read(t, el)

	assert.Equal(t, "loyalty-reward-icon--rewards random-flag-active", got.class)
	m := styleMap(got.style)
	_, hasBg := m["background-image"]
	assert.False(t, hasBg, "our image must go")
	delete(applied, "background-image")
	assert.Equal(t, applied, m, "shared properties must stay for the random flag")
	assert.False(t, got.snap)
}

func TestClear_CoexistingKeepsForeignImage(t *testing.T) {
	el := iconFixture(t, `class="loyalty-reward-icon--rewards random-flag-active historic-flag-active" style="background-image: url(&#34;random_flag.png&#34;); display: block"`)
	require.NoError(t, Clear(el, flagURL))

	got := read(t, el)
	m := styleMap(got.style)
	assert.Equal(t, `url("random_flag.png")`, m["background-image"].Value)
	assert.Equal(t, "block", m["display"].Value)
	assert.NotContains(t, got.class, MarkerClass)
}

func TestIsOurImage(t *testing.T) {
	assert.True(t, isOurImage(`url("http://x/historic_flag.png")`, ""))
	assert.True(t, isOurImage(`url("http://x/img/42")`, "http://x/img/42"))
	assert.False(t, isOurImage(`url("http://x/random.png")`, "http://x/img/42"))
	assert.False(t, isOurImage(`url("http://x/random.png")`, ""))
}
