package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/openpecha/catalog/internal/apperr"
	"github.com/openpecha/catalog/internal/models"
)

// CreateTextRequest is the subset of a text submission the gateway checks.
// The submitted body itself is forwarded untouched.
type CreateTextRequest struct {
	Type          string                `json:"type"`
	Title         json.RawMessage       `json:"title"`
	Language      string                `json:"language"`
	Contributions []ContributionRequest `json:"contributions"`
}

// ContributionRequest is one submitted contribution.
type ContributionRequest struct {
	PersonID string `json:"person_id"`
	AIID     string `json:"ai_id"`
	Role     string `json:"role"`
}

// Validate checks required fields, the type enum and every contribution.
func (r *CreateTextRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required),
		validation.Field(&r.Title, validation.By(present)),
		validation.Field(&r.Language, validation.Required),
	); err != nil {
		return apperr.Invalid("Missing required fields", "type, title, and language are required")
	}
	if err := validation.Validate(r.Type, validation.In(toAny(models.TextTypes)...)); err != nil {
		return apperr.Invalid("Invalid text type", "type must be one of: "+joinEnum(models.TextTypes))
	}
	for i := range r.Contributions {
		c := &r.Contributions[i]
		if err := validation.ValidateStruct(c,
			validation.Field(&c.PersonID, validation.Required),
			validation.Field(&c.Role, validation.Required),
		); err != nil {
			return apperr.Invalid("Invalid contribution", "Each contribution must have person_id and role")
		}
		if err := validation.Validate(c.Role, validation.In(toAny(models.Roles)...)); err != nil {
			return apperr.Invalid("Invalid contribution role", "role must be one of: "+joinEnum(models.Roles))
		}
	}
	return nil
}

// CreateInstanceRequest is the subset of an instance submission the gateway checks.
type CreateInstanceRequest struct {
	Content string `json:"content"`
}

// Validate requires non-empty content.
func (r *CreateInstanceRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
	); err != nil {
		return apperr.Invalid("Missing required field", "content is required")
	}
	return nil
}

// CreatePersonRequest is a person submission. Absent optional fields are
// normalised before forwarding.
type CreatePersonRequest struct {
	Name     models.Localized `json:"name"`
	AltNames json.RawMessage  `json:"alt_names"`
	BDRC     string           `json:"bdrc"`
	Wiki     string           `json:"wiki"`
}

// Validate requires an English or Tibetan name.
func (r *CreatePersonRequest) Validate() error {
	if !r.Name.HasEnOrBo() {
		return apperr.Invalid("Name is required with at least one language (en or bo)",
			"Please provide a name in English or Tibetan")
	}
	return nil
}

// Payload returns the body sent upstream: name, alt_names (default []),
// bdrc and wiki (default "").
func (r *CreatePersonRequest) Payload() ([]byte, error) {
	alt := r.AltNames
	if len(alt) == 0 || string(alt) == "null" {
		alt = json.RawMessage("[]")
	}
	return json.Marshal(struct {
		Name     models.Localized `json:"name"`
		AltNames json.RawMessage  `json:"alt_names"`
		BDRC     string           `json:"bdrc"`
		Wiki     string           `json:"wiki"`
	}{r.Name, alt, r.BDRC, r.Wiki})
}

// decodeRequest unmarshals body into v and runs its Validate method.
func decodeRequest[T any, P interface {
	*T
	Validate() error
}](body []byte) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(body, v); err != nil {
		return nil, apperr.Invalid("Invalid JSON body", err.Error())
	}
	if err := P(v).Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// present fails for absent, null, empty string and empty object values.
func present(value any) error {
	raw, _ := value.(json.RawMessage)
	switch strings.TrimSpace(string(raw)) {
	case "", "null", `""`, "{}", "false", "0":
		return fmt.Errorf("cannot be blank")
	}
	return nil
}

func toAny[T ~string](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
