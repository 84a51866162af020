// Package models defines the OpenPecha resources passed through the gateway.
package models

// TextType classifies a Text within the catalog tree.
type TextType string

// Text types accepted by the upstream API.
const (
	TextTypeRoot        TextType = "root"
	TextTypeTranslation TextType = "translation"
	TextTypeCommentary  TextType = "commentary"
)

// TextTypes lists every valid TextType in display order.
var TextTypes = []TextType{TextTypeRoot, TextTypeTranslation, TextTypeCommentary}

// Role is the part a contributor played in producing a Text.
type Role string

// Contribution roles.
const (
	RoleAuthor     Role = "author"
	RoleTranslator Role = "translator"
	RoleReviser    Role = "reviser"
	RoleEditor     Role = "editor"
	RoleScholar    Role = "scholar"
)

// Roles lists every valid Role in display order.
var Roles = []Role{RoleAuthor, RoleTranslator, RoleReviser, RoleEditor, RoleScholar}

// Localized maps a language code (en, bo, sa, ...) to a string in that language.
type Localized map[string]string

// Preferred returns the Tibetan value, then English, then any other.
// ok is false when no non-empty value exists.
func (l Localized) Preferred() (string, bool) {
	if v := l["bo"]; v != "" {
		return v, true
	}
	if v := l["en"]; v != "" {
		return v, true
	}
	for _, v := range l {
		if v != "" {
			return v, true
		}
	}
	return "", false
}

// HasEnOrBo reports whether the English or Tibetan value is non-empty.
func (l Localized) HasEnOrBo() bool {
	return l["en"] != "" || l["bo"] != ""
}

// Contribution attributes a Text to a Person or an AI system.
// Exactly one of PersonID and AIID is set.
type Contribution struct {
	PersonID     string `json:"person_id,omitempty"`
	PersonBDRCID string `json:"person_bdrc_id,omitempty"`
	AIID         string `json:"ai_id,omitempty"`
	Role         Role   `json:"role"`
}

// Text is a work in the catalog: a root text, a translation or a commentary.
type Text struct {
	ID            string         `json:"id"`
	Type          TextType       `json:"type"`
	Title         Localized      `json:"title"`
	Language      string         `json:"language"`
	Parent        *string        `json:"parent"`
	Contributions []Contribution `json:"contributions"`
	Date          *string        `json:"date"`
	BDRC          string         `json:"bdrc"`
	Wiki          *string        `json:"wiki"`
	AltTitles     []Localized    `json:"alt_titles"`
}

// DisplayTitle returns the title shown in lists and breadcrumbs.
func (t *Text) DisplayTitle() string {
	if v, ok := t.Title.Preferred(); ok {
		return v
	}
	return "Untitled"
}
