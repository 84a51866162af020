package models

// Person is a contributor referenced by Text contributions.
type Person struct {
	ID       string      `json:"id"`
	Name     Localized   `json:"name"`
	AltNames []Localized `json:"alt_names"`
	BDRC     string      `json:"bdrc"`
	Wiki     *string     `json:"wiki"`
}

// DisplayName returns the name shown in lists and breadcrumbs.
func (p *Person) DisplayName() string {
	if v, ok := p.Name.Preferred(); ok {
		return v
	}
	return p.ID
}
