package workflow

import "strings"

// Crumb is one breadcrumb. Href is empty for crumbs that do not link.
type Crumb struct {
	Label   string
	Href    string
	Current bool
}

// Names are the display names resolved for the ids in a route.
type Names struct {
	Text     string
	Instance string
	Person   string
}

// Breadcrumbs derives the trail for a route path such as
// /texts/{text_id}/instances/{instance_id} or /persons. Crumbs whose name is
// not known yet are left out. The last crumb is marked current.
func Breadcrumbs(path string, names Names) []Crumb {
	segs := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	var crumbs []Crumb

	switch {
	case indexOf(segs, "texts") >= 0:
		crumbs = append(crumbs, Crumb{Label: "Texts", Href: "/texts"})
		textID := after(segs, "texts")
		if textID == "" || textID == "instances" || names.Text == "" {
			break
		}
		crumbs = append(crumbs, Crumb{Label: names.Text, Href: "/texts/" + textID + "/instances"})
		if after(segs, "instances") != "" && names.Instance != "" {
			crumbs = append(crumbs, Crumb{Label: names.Instance})
		}
	case indexOf(segs, "persons") >= 0 && names.Person != "":
		crumbs = append(crumbs, Crumb{Label: names.Person, Href: "/persons"})
	}

	if n := len(crumbs); n > 0 {
		crumbs[n-1].Current = true
	}
	return crumbs
}

func indexOf(segs []string, s string) int {
	for i, v := range segs {
		if v == s {
			return i
		}
	}
	return -1
}

// after returns the segment following s, or "".
func after(segs []string, s string) string {
	i := indexOf(segs, s)
	if i < 0 || i+1 >= len(segs) {
		return ""
	}
	return segs[i+1]
}
