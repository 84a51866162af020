package workflow

import (
	"strings"

	"github.com/openpecha/catalog/internal/models"
)

// Picker result caps.
const (
	MaxTextMatches   = 50
	MaxPersonMatches = 10
)

// FilterTexts returns the texts whose id or any title contains query,
// ignoring case, capped at MaxTextMatches. A blank query returns the head
// of the list.
func FilterTexts(texts []models.Text, query string) []models.Text {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Text, 0, min(len(texts), MaxTextMatches))
	for _, t := range texts {
		if len(out) == MaxTextMatches {
			break
		}
		if q == "" || contains(t.ID, q) || anyContains(t.Title, q) {
			out = append(out, t)
		}
	}
	return out
}

// FilterPersons matches the primary name, the alternative names or the id,
// capped at MaxPersonMatches.
func FilterPersons(persons []models.Person, query string) []models.Person {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Person, 0, min(len(persons), MaxPersonMatches))
	for _, p := range persons {
		if len(out) == MaxPersonMatches {
			break
		}
		if q == "" || contains(p.ID, q) || contains(personName(p), q) || altContains(p.AltNames, q) {
			out = append(out, p)
		}
	}
	return out
}

// personName is the name shown in the person picker.
func personName(p models.Person) string {
	if v, ok := p.Name.Preferred(); ok {
		return v
	}
	return "Unknown"
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}

func anyContains(l models.Localized, q string) bool {
	for _, v := range l {
		if contains(v, q) {
			return true
		}
	}
	return false
}

func altContains(alts []models.Localized, q string) bool {
	for _, alt := range alts {
		if anyContains(alt, q) {
			return true
		}
	}
	return false
}
