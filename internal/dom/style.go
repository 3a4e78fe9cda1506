package dom

import "strings"

type Declaration struct {
	Prop      string
	Value     string
	Important bool
}

// Style is an inline style attribute as an ordered declaration list.
type Style []Declaration

// ParseStyle reads a style attribute value. Malformed declarations are
// skipped the way a browser skips them.
func ParseStyle(s string) Style {
	var out Style
	for _, part := range splitDeclarations(s) {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" || value == "" {
			continue
		}
		d := Declaration{Prop: prop, Value: value}
		if lower := strings.ToLower(value); strings.HasSuffix(lower, "!important") {
			d.Value = strings.TrimSpace(value[:len(value)-len("!important")])
			d.Important = true
		}
		out = out.Set(d.Prop, d.Value, d.Important)
	}
	return out
}

// splitDeclarations splits on ';' outside of parentheses and quotes so
// url("a;b") survives.
func splitDeclarations(s string) []string {
	var (
		parts []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			if depth > 0 {
				depth--
			}
		case ch == ';' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func (s Style) Get(prop string) (Declaration, bool) {
	for _, d := range s {
		if d.Prop == prop {
			return d, true
		}
	}
	return Declaration{}, false
}

// Set replaces prop in place or appends it.
func (s Style) Set(prop, value string, important bool) Style {
	d := Declaration{Prop: prop, Value: value, Important: important}
	for i := range s {
		if s[i].Prop == prop {
			out := append(Style(nil), s...)
			out[i] = d
			return out
		}
	}
	return append(append(Style(nil), s...), d)
}

func (s Style) Remove(prop string) Style {
	out := make(Style, 0, len(s))
	for _, d := range s {
		if d.Prop != prop {
			out = append(out, d)
		}
	}
	return out
}

func (s Style) String() string {
	parts := make([]string, 0, len(s))
	for _, d := range s {
		v := d.Value
		if d.Important {
			v += " !important"
		}
		parts = append(parts, d.Prop+": "+v)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

func GetStyle(el Element) (Style, error) {
	v, _, err := el.Attr("style")
	if err != nil {
		return nil, err
	}
	return ParseStyle(v), nil
}

// SetStyle writes s back, dropping the attribute entirely when s is empty.
func SetStyle(el Element, s Style) error {
	if len(s) == 0 {
		return el.RemoveAttr("style")
	}
	return el.SetAttr("style", s.String())
}
