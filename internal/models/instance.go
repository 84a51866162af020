package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf8"
)

// InstanceType classifies an edition of a Text.
type InstanceType string

// Instance types accepted by the upstream API.
const (
	InstanceDiplomatic InstanceType = "diplomatic"
	InstanceCritical   InstanceType = "critical"
	InstanceCollated   InstanceType = "collated"
)

// InstanceTypes lists every valid InstanceType in display order.
var InstanceTypes = []InstanceType{InstanceDiplomatic, InstanceCritical, InstanceCollated}

// InstanceMetadata describes where an Instance comes from.
type InstanceMetadata struct {
	Type         InstanceType `json:"type"`
	Copyright    string       `json:"copyright,omitempty"`
	BDRC         string       `json:"bdrc,omitempty"`
	Colophon     string       `json:"colophon,omitempty"`
	IncipitTitle Localized    `json:"incipit_title,omitempty"`
}

// Instance is one concrete edition of a Text with its raw content and
// span-based annotations.
type Instance struct {
	ID          string           `json:"id"`
	TextID      string           `json:"text_id,omitempty"`
	Metadata    InstanceMetadata `json:"metadata"`
	Content     string           `json:"content"`
	Annotations Annotations      `json:"annotations"`
}

// ContentLength is the content length in code points, the unit spans are measured in.
func (i *Instance) ContentLength() int {
	return utf8.RuneCountInString(i.Content)
}

// CheckSpans verifies 0 <= start < end <= len(content) for every annotation.
func (i *Instance) CheckSpans() error {
	n := i.ContentLength()
	for _, kind := range i.Annotations.Kinds() {
		for j, a := range i.Annotations.Spans[kind] {
			if err := a.Span.Check(n); err != nil {
				return fmt.Errorf("annotation %s[%d]: %w", kind, j, err)
			}
		}
	}
	return nil
}

// Span is a half-open code point range [Start, End) into Instance content.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Check validates the span against a content length. A negative length
// skips the upper-bound check.
func (s Span) Check(contentLen int) error {
	switch {
	case s.Start < 0 || s.End < 0:
		return fmt.Errorf("span [%d, %d) has a negative position", s.Start, s.End)
	case s.Start >= s.End:
		return fmt.Errorf("span [%d, %d) is empty or reversed", s.Start, s.End)
	case contentLen >= 0 && s.End > contentLen:
		return fmt.Errorf("span [%d, %d) exceeds content length %d", s.Start, s.End, contentLen)
	}
	return nil
}

// Annotation is a single span annotation.
type Annotation struct {
	Span           Span  `json:"span"`
	Index          int   `json:"index"`
	AlignmentIndex []int `json:"alignment_index,omitempty"`
}

// AnnotationKind names a family of annotations.
type AnnotationKind string

// Annotation kinds known to the catalog. Anything else is KindUnknown.
const (
	KindSegmentation AnnotationKind = "segmentation"
	KindAlignment    AnnotationKind = "alignment"
	KindPagination   AnnotationKind = "pagination"
	KindUnknown      AnnotationKind = "unknown"
)

// KindOf classifies an annotation key.
func KindOf(name string) AnnotationKind {
	switch k := AnnotationKind(name); k {
	case KindSegmentation, KindAlignment, KindPagination:
		return k
	}
	return KindUnknown
}

// Annotations maps annotation keys to their entries. Keys whose entries
// decode as span annotations land in Spans; anything else is kept verbatim
// in Other so it survives a round trip.
type Annotations struct {
	Spans map[string][]Annotation
	Other map[string]json.RawMessage
}

// Kinds returns the keys of Spans in sorted order.
func (a Annotations) Kinds() []string {
	keys := make([]string, 0, len(a.Spans))
	for k := range a.Spans {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of span annotations across every key.
func (a Annotations) Len() int {
	n := 0
	for _, list := range a.Spans {
		n += len(list)
	}
	return n
}

// MarshalJSON encodes both variants back into a single object.
func (a Annotations) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(a.Spans)+len(a.Other))
	for k, raw := range a.Other {
		out[k] = raw
	}
	for k, list := range a.Spans {
		b, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		out[k] = b
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts an object of key to list. A null or absent value
// yields empty annotations.
func (a *Annotations) UnmarshalJSON(data []byte) error {
	a.Spans = nil
	a.Other = nil
	if string(data) == "null" {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("annotations: %w", err)
	}
	for k, v := range raw {
		if list, ok := decodeSpanList(v); ok {
			if a.Spans == nil {
				a.Spans = make(map[string][]Annotation)
			}
			a.Spans[k] = list
			continue
		}
		if a.Other == nil {
			a.Other = make(map[string]json.RawMessage)
		}
		a.Other[k] = v
	}
	return nil
}

// decodeSpanList decodes v as a list of span annotations. Every entry must
// carry a span object.
func decodeSpanList(v json.RawMessage) ([]Annotation, bool) {
	var shape []map[string]json.RawMessage
	if err := json.Unmarshal(v, &shape); err != nil {
		return nil, false
	}
	for _, entry := range shape {
		if _, ok := entry["span"]; !ok {
			return nil, false
		}
	}
	var list []Annotation
	if err := json.Unmarshal(v, &list); err != nil {
		return nil, false
	}
	return list, true
}
