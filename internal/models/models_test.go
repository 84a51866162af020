package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLocalizedPreferred(t *testing.T) {
	tests := []struct {
		in   Localized
		want string
		ok   bool
	}{
		{Localized{"en": "Heart Sutra", "bo": "ཤེས་རབ"}, "ཤེས་རབ", true},
		{Localized{"en": "Heart Sutra", "bo": ""}, "Heart Sutra", true},
		{Localized{"sa": "prajñā"}, "prajñā", true},
		{Localized{}, "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := tt.in.Preferred()
		if got != tt.want || ok != tt.ok {
			t.Errorf("Preferred(%v) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDisplayNames(t *testing.T) {
	text := Text{ID: "T1"}
	if got := text.DisplayTitle(); got != "Untitled" {
		t.Errorf("DisplayTitle = %q", got)
	}
	p := Person{ID: "P1"}
	if got := p.DisplayName(); got != "P1" {
		t.Errorf("DisplayName = %q", got)
	}
	p.Name = Localized{"en": "Atisha"}
	if got := p.DisplayName(); got != "Atisha" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestFilterValues(t *testing.T) {
	if got := (TextFilter{}).Values().Encode(); got != "limit=0&offset=0" {
		t.Errorf("TextFilter = %q", got)
	}
	if got := (PersonFilter{Nationality: "Indian"}).Values().Encode(); got != "nationality=Indian" {
		t.Errorf("PersonFilter = %q", got)
	}
	if got := (PersonFilter{Limit: 10, Offset: 20}).Values().Encode(); got != "limit=10&offset=20" {
		t.Errorf("PersonFilter = %q", got)
	}
}

func TestSpanCheck(t *testing.T) {
	tests := []struct {
		span Span
		n    int
		ok   bool
	}{
		{Span{0, 5}, 5, true},
		{Span{0, 6}, 5, false},
		{Span{3, 3}, 5, false},
		{Span{4, 2}, 5, false},
		{Span{-1, 2}, 5, false},
		{Span{0, 100}, -1, true},
	}
	for _, tt := range tests {
		err := tt.span.Check(tt.n)
		if (err == nil) != tt.ok {
			t.Errorf("Check(%+v, %d) = %v, want ok=%v", tt.span, tt.n, err, tt.ok)
		}
	}
}

func TestInstanceCheckSpansCountsRunes(t *testing.T) {
	inst := Instance{
		Content: "བཀྲ་ཤིས",
		Annotations: Annotations{Spans: map[string][]Annotation{
			"segmentation": {{Span: Span{0, 7}, Index: 0}},
		}},
	}
	if n := inst.ContentLength(); n != 7 {
		t.Fatalf("ContentLength = %d, want 7", n)
	}
	if err := inst.CheckSpans(); err != nil {
		t.Fatalf("CheckSpans: %v", err)
	}
	inst.Annotations.Spans["segmentation"][0].Span.End = 8
	if err := inst.CheckSpans(); err == nil {
		t.Fatal("span past content end should fail")
	}
}

func TestAnnotationsKeepUnknownShapes(t *testing.T) {
	in := `{"segmentation":[{"span":{"start":0,"end":4},"index":0}],"bibliography":[{"type":"colophon","value":"x"}]}`
	var a Annotations
	if err := json.Unmarshal([]byte(in), &a); err != nil {
		t.Fatal(err)
	}
	if a.Len() != 1 {
		t.Errorf("Len = %d, want 1", a.Len())
	}
	if _, ok := a.Other["bibliography"]; !ok {
		t.Fatal("unknown annotation shape should be kept verbatim")
	}
	if KindOf("bibliography") != KindUnknown || KindOf("alignment") != KindAlignment {
		t.Error("KindOf misclassified")
	}

	out, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	var want, got map[string]any
	_ = json.Unmarshal([]byte(in), &want)
	_ = json.Unmarshal(out, &got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAnnotationsNull(t *testing.T) {
	var inst Instance
	if err := json.Unmarshal([]byte(`{"id":"I1","content":"abc","annotations":null}`), &inst); err != nil {
		t.Fatal(err)
	}
	if inst.Annotations.Len() != 0 {
		t.Errorf("expected empty annotations")
	}
}
