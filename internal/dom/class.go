package dom

import "strings"

func classList(el Element) ([]string, error) {
	v, _, err := el.Attr("class")
	if err != nil {
		return nil, err
	}
	return strings.Fields(v), nil
}

func HasClass(el Element, name string) (bool, error) {
	list, err := classList(el)
	if err != nil {
		return false, err
	}
	for _, c := range list {
		if c == name {
			return true, nil
		}
	}
	return false, nil
}

// AddClass is a no-op when the class is already present.
func AddClass(el Element, name string) error {
	list, err := classList(el)
	if err != nil {
		return err
	}
	for _, c := range list {
		if c == name {
			return nil
		}
	}
	return el.SetAttr("class", strings.Join(append(list, name), " "))
}

func RemoveClass(el Element, name string) error {
	list, err := classList(el)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, c := range list {
		if c != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	if len(kept) == 0 {
		return el.RemoveAttr("class")
	}
	return el.SetAttr("class", strings.Join(kept, " "))
}
