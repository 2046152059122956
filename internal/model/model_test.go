package model

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{name: "thousands and decimals", input: "€ 1.200,50", want: 1200.50, wantOK: true},
		{name: "currency with short group", input: "€ 1.20", want: 1200, wantOK: true},
		{name: "plain integer", input: "1200", want: 1200, wantOK: true},
		{name: "bid placeholder", input: "Bieden", wantOK: false},
		{name: "three digit group without currency", input: "1.200", want: 1200, wantOK: true},
		{name: "lone decimal dot", input: "1.20", want: 1.2, wantOK: true},
		{name: "currency with one decimal", input: "€ 12.5", want: 12.5, wantOK: true},
		{name: "currency below one euro", input: "€ 0.99", want: 0.99, wantOK: true},
		{name: "currency with two leading digits", input: "€ 15.50", want: 15.5, wantOK: true},
		{name: "currency with single trailing digit", input: "€ 2.5", want: 2.5, wantOK: true},
		{name: "comma decimals only", input: "€ 35,00", want: 35, wantOK: true},
		{name: "dash decimals", input: "€ 2.450,-", want: 2450, wantOK: true},
		{name: "non-breaking space", input: "€ 899,00", want: 899, wantOK: true},
		{name: "millions", input: "€ 1.250.000", want: 1250000, wantOK: true},
		{name: "empty", input: "", wantOK: false},
		{name: "on request", input: "Op aanvraag", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			if diff := cmp.Diff(tt.wantOK, ok); diff != "" {
				t.Fatalf("ParsePrice(%q) ok mismatch (-want +got):\n%s", tt.input, diff)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestListingAttributes(t *testing.T) {
	l := Listing{
		Title:      "Canyon Ultimate CF SL maat 56",
		Attributes: []string{"Zo goed als nieuw", "Carbon", "54 tot 57 cm", "Ophalen"},
	}

	tests := []struct {
		name   string
		get    func() (string, bool)
		want   string
		wantOK bool
	}{
		{name: "condition", get: l.Condition, want: "Zo goed als nieuw", wantOK: true},
		{name: "material", get: l.FrameMaterial, want: "Carbon", wantOK: true},
		{name: "size from attributes", get: l.FrameSize, want: "54 tot 57 cm", wantOK: true},
		{name: "brand", get: l.Brand, want: "Canyon", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.get()
			if diff := cmp.Diff(tt.wantOK, ok); diff != "" {
				t.Fatalf("ok mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListingAttributesAbsent(t *testing.T) {
	l := Listing{Title: "Oude stadsfiets", Attributes: []string{"Ophalen"}}

	for name, get := range map[string]func() (string, bool){
		"condition": l.Condition,
		"material":  l.FrameMaterial,
		"size":      l.FrameSize,
		"brand":     l.Brand,
	} {
		if got, ok := get(); ok {
			t.Errorf("%s: expected no value, got %q", name, got)
		}
	}
}

func TestFrameSizeFromTitle(t *testing.T) {
	l := Listing{Title: "Racefiets Trek Emonda 58cm", Attributes: []string{"Gebruikt"}}
	got, ok := l.FrameSize()
	if !ok {
		t.Fatal("expected a frame size")
	}
	if diff := cmp.Diff("58cm", got); diff != "" {
		t.Errorf("FrameSize() mismatch (-want +got):\n%s", diff)
	}
}

func TestBrandCanonicalName(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{title: "EDDY MERCKX San Remo 76", want: "Eddy Merckx"},
		{title: "bmc teammachine slr01", want: "BMC"},
		{title: "Specialized Tarmac SL7", want: "Specialized"},
	}
	for _, tt := range tests {
		got, ok := BrandOf(tt.title)
		if !ok {
			t.Errorf("BrandOf(%q): expected a brand", tt.title)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("BrandOf(%q) mismatch (-want +got):\n%s", tt.title, diff)
		}
	}
}

func TestTitleSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "Canyon Ultimate CF", b: "Canyon Ultimate CF", want: 1},
		{name: "stop words ignored", a: "Racefiets Canyon Ultimate", b: "Canyon Ultimate", want: 1},
		{name: "partial overlap", a: "Canyon Ultimate carbon", b: "Canyon Endurace carbon", want: 0.5},
		{name: "both empty", a: "de een", b: "", want: 1},
		{name: "one empty", a: "Canyon", b: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TitleSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("TitleSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestListingFootprint(t *testing.T) {
	at := time.Date(2025, 9, 7, 15, 55, 0, 0, time.UTC)
	l := Listing{Title: "Giant TCR", Price: "€ 900,00", Href: "https://example.com/m1", Seller: "Jan", ScrapedAt: at}

	want := Footprint{Title: "Giant TCR", Price: "€ 900,00", Href: "https://example.com/m1", FirstSeenAt: at}
	if diff := cmp.Diff(want, l.Footprint()); diff != "" {
		t.Errorf("Footprint() mismatch (-want +got):\n%s", diff)
	}
}
