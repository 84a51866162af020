package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/openpecha/catalog/internal/apperr"
	"github.com/openpecha/catalog/internal/models"
)

// NoParent is submitted as the parent of a translation without one.
const NoParent = "N/A"

// TextForm is the new-text form. A contributor is optional; when given it
// is either a person or an AI system.
type TextForm struct {
	Type     models.TextType `json:"type"`
	TitleEN  string          `json:"title_en"`
	TitleBO  string          `json:"title_bo"`
	Language string          `json:"language"`
	Parent   string          `json:"parent"`
	PersonID string          `json:"person_id"`
	AIID     string          `json:"ai_id"`
	Role     models.Role     `json:"role"`
	Date     string          `json:"date"`
	BDRC     string          `json:"bdrc"`
}

// TextPayload is the POST /text body built from a TextForm.
type TextPayload struct {
	Type          models.TextType       `json:"type"`
	Title         models.Localized      `json:"title"`
	Language      string                `json:"language"`
	Parent        string                `json:"parent,omitempty"`
	Contributions []models.Contribution `json:"contributions,omitempty"`
	Date          string                `json:"date,omitempty"`
	BDRC          string                `json:"bdrc,omitempty"`
}

// Validate returns the first problem in the form, in field order.
func (f TextForm) Validate() error {
	if err := validation.Validate(string(f.Type), validation.Required); err != nil {
		return apperr.Invalid("Type is required", "")
	}
	if err := validation.Validate(f.Type, validation.In(toAny(models.TextTypes)...)); err != nil {
		return apperr.Invalid("Invalid text type", "")
	}
	if strings.TrimSpace(f.TitleEN) == "" && strings.TrimSpace(f.TitleBO) == "" {
		return apperr.Invalid("Title is required in English or Tibetan", "")
	}
	if err := validation.Validate(strings.TrimSpace(f.Language), validation.Required); err != nil {
		return apperr.Invalid("Language is required", "")
	}
	if f.PersonID == "" && f.AIID == "" {
		return nil
	}
	if f.PersonID != "" && f.AIID != "" {
		return apperr.Invalid("Choose either a person or an AI contributor, not both", "")
	}
	if err := validation.Validate(string(f.Role), validation.Required); err != nil {
		return apperr.Invalid("Role is required for a contributor", "")
	}
	if err := validation.Validate(f.Role, validation.In(toAny(models.Roles)...)); err != nil {
		return apperr.Invalid("Invalid contribution role", "")
	}
	return nil
}

// Payload builds the request body. Empty titles and optional fields are left out.
func (f TextForm) Payload() TextPayload {
	p := TextPayload{
		Type:     f.Type,
		Title:    models.Localized{},
		Language: strings.TrimSpace(f.Language),
		Parent:   strings.TrimSpace(f.Parent),
		Date:     strings.TrimSpace(f.Date),
		BDRC:     strings.TrimSpace(f.BDRC),
	}
	if v := strings.TrimSpace(f.TitleEN); v != "" {
		p.Title["en"] = v
	}
	if v := strings.TrimSpace(f.TitleBO); v != "" {
		p.Title["bo"] = v
	}
	if f.Type == models.TextTypeTranslation && p.Parent == "" {
		p.Parent = NoParent
	}
	if f.PersonID != "" || f.AIID != "" {
		p.Contributions = []models.Contribution{{PersonID: f.PersonID, AIID: f.AIID, Role: f.Role}}
	}
	return p
}

// InstanceForm is the new-instance form. Annotations are segmentation spans.
type InstanceForm struct {
	Metadata    models.InstanceMetadata `json:"metadata"`
	Content     string                  `json:"content"`
	Annotations []models.Annotation     `json:"annotations"`
}

// InstancePayload is the POST /text/{id}/instances body built from an
// InstanceForm. The API files the annotation list under segmentation.
type InstancePayload struct {
	Metadata   models.InstanceMetadata `json:"metadata"`
	Annotation []models.Annotation     `json:"annotation"`
	Content    string                  `json:"content"`
}

// NewInstanceForm returns a form with the defaults the UI opens with: a
// public diplomatic edition and one blank annotation row.
func NewInstanceForm() *InstanceForm {
	f := &InstanceForm{
		Metadata: models.InstanceMetadata{
			Type:         models.InstanceDiplomatic,
			Copyright:    "public",
			IncipitTitle: models.Localized{"en": "", "bo": ""},
		},
	}
	f.AddAnnotation()
	return f
}

// AddAnnotation appends a blank annotation row.
func (f *InstanceForm) AddAnnotation() {
	f.Annotations = append(f.Annotations, models.Annotation{
		Index:          len(f.Annotations),
		AlignmentIndex: []int{0},
	})
}

// RemoveAnnotation drops row i and renumbers the rest from 0.
func (f *InstanceForm) RemoveAnnotation(i int) {
	if i < 0 || i >= len(f.Annotations) {
		return
	}
	f.Annotations = append(f.Annotations[:i], f.Annotations[i+1:]...)
	for j := range f.Annotations {
		f.Annotations[j].Index = j
	}
}

// SetSpan sets the span of row i.
func (f *InstanceForm) SetSpan(i, start, end int) {
	if i < 0 || i >= len(f.Annotations) {
		return
	}
	f.Annotations[i].Span = models.Span{Start: start, End: end}
}

// Validate returns the first problem in the form. Annotation rows are
// numbered from 1 in messages.
func (f *InstanceForm) Validate() error {
	if err := validation.Validate(string(f.Metadata.Type), validation.Required); err != nil {
		return apperr.Invalid("Type is required", "")
	}
	if err := validation.Validate(f.Metadata.Type, validation.In(toAny(models.InstanceTypes)...)); err != nil {
		return apperr.Invalid("Invalid instance type", "")
	}
	if strings.TrimSpace(f.Content) == "" {
		return apperr.Invalid("Content is required", "")
	}
	if f.Metadata.Type == models.InstanceDiplomatic && strings.TrimSpace(f.Metadata.BDRC) == "" {
		return apperr.Invalid("BDRC ID is required when type is Diplomatic", "")
	}
	n := utf8.RuneCountInString(f.Content)
	for i, a := range f.Annotations {
		switch {
		case a.Span.Start < 0 || a.Span.End < 0:
			return apperr.Invalid(fmt.Sprintf("Annotation %d: Start and End positions must be non-negative", i+1), "")
		case a.Span.Start >= a.Span.End:
			return apperr.Invalid(fmt.Sprintf("Annotation %d: Start position must be less than End position", i+1), "")
		case a.Span.End > n:
			return apperr.Invalid(fmt.Sprintf("Annotation %d: End position must not exceed content length (%d)", i+1, n), "")
		}
	}
	return nil
}

// Payload builds the request body.
func (f *InstanceForm) Payload() InstancePayload {
	list := make([]models.Annotation, len(f.Annotations))
	copy(list, f.Annotations)
	return InstancePayload{Metadata: f.Metadata, Annotation: list, Content: f.Content}
}

// PersonForm is the new-person form.
type PersonForm struct {
	NameEN   string             `json:"name_en"`
	NameBO   string             `json:"name_bo"`
	AltNames []models.Localized `json:"alt_names"`
	BDRC     string             `json:"bdrc"`
	Wiki     string             `json:"wiki"`
}

// PersonPayload is the POST /person body built from a PersonForm.
type PersonPayload struct {
	Name     models.Localized   `json:"name"`
	AltNames []models.Localized `json:"alt_names"`
	BDRC     string             `json:"bdrc"`
	Wiki     string             `json:"wiki"`
}

// Validate requires a name in English or Tibetan.
func (f *PersonForm) Validate() error {
	if strings.TrimSpace(f.NameEN) == "" && strings.TrimSpace(f.NameBO) == "" {
		return apperr.Invalid("Name is required with at least one language (en or bo)", "Please provide a name in English or Tibetan")
	}
	return nil
}

// Payload builds the request body.
func (f *PersonForm) Payload() PersonPayload {
	p := PersonPayload{
		Name:     models.Localized{},
		AltNames: []models.Localized{},
		BDRC:     strings.TrimSpace(f.BDRC),
		Wiki:     strings.TrimSpace(f.Wiki),
	}
	if v := strings.TrimSpace(f.NameEN); v != "" {
		p.Name["en"] = v
	}
	if v := strings.TrimSpace(f.NameBO); v != "" {
		p.Name["bo"] = v
	}
	for _, alt := range f.AltNames {
		if _, ok := alt.Preferred(); ok {
			p.AltNames = append(p.AltNames, alt)
		}
	}
	return p
}

func toAny[T any](vals []T) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
