package model

import (
	"regexp"
	"strings"
)

var conditionKeywords = []string{"nieuw", "gebruikt", "zo goed als nieuw"}

var materialKeywords = []string{"carbon", "aluminium", "staal", "steel", "titanium"}

var sizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*tot\s*(\d+)\s*cm`),
	regexp.MustCompile(`(\d+)\s*cm`),
	regexp.MustCompile(`(\d+)\s*inch`),
	regexp.MustCompile(`\b(xxs|xs|s|m|l|xl|xxl)\b`),
}

// brands maps the lower-case keyword searched in titles to the display name.
// Multi-word and longer names come first so "eddy merckx" wins over shorter
// accidental matches.
var brands = []struct {
	keyword string
	name    string
}{
	{"eddy merckx", "Eddy Merckx"},
	{"specialized", "Specialized"},
	{"cannondale", "Cannondale"},
	{"pinarello", "Pinarello"},
	{"thompson", "Thompson"},
	{"cervelo", "Cervelo"},
	{"colnago", "Colnago"},
	{"bianchi", "Bianchi"},
	{"prorace", "Prorace"},
	{"canyon", "Canyon"},
	{"wilier", "Wilier"},
	{"ridley", "Ridley"},
	{"merida", "Merida"},
	{"factor", "Factor"},
	{"giant", "Giant"},
	{"scott", "Scott"},
	{"focus", "Focus"},
	{"orbea", "Orbea"},
	{"isaac", "Isaac"},
	{"trek", "Trek"},
	{"cube", "Cube"},
	{"felt", "Felt"},
	{"koga", "Koga"},
	{"look", "Look"},
	{"bmc", "BMC"},
}

// Condition returns the first attribute describing the bike's condition,
// e.g. "Zo goed als nieuw".
func (l Listing) Condition() (string, bool) {
	return firstAttribute(l.Attributes, conditionKeywords)
}

// FrameMaterial returns the first attribute naming a frame material.
func (l Listing) FrameMaterial() (string, bool) {
	return firstAttribute(l.Attributes, materialKeywords)
}

// FrameSize returns the first attribute that looks like a frame size. When no
// attribute matches, the size mentioned in the title is returned instead.
func (l Listing) FrameSize() (string, bool) {
	for _, attr := range l.Attributes {
		lower := strings.ToLower(attr)
		for _, re := range sizePatterns {
			if re.MatchString(lower) {
				return attr, true
			}
		}
	}
	title := strings.ToLower(l.Title)
	for _, re := range sizePatterns {
		if m := re.FindString(title); m != "" {
			return m, true
		}
	}
	return "", false
}

// Brand returns the canonical brand name found in the title or attributes.
func (l Listing) Brand() (string, bool) {
	if name, ok := BrandOf(l.Title); ok {
		return name, true
	}
	for _, attr := range l.Attributes {
		if name, ok := BrandOf(attr); ok {
			return name, true
		}
	}
	return "", false
}

// BrandOf returns the canonical brand name mentioned in text.
func BrandOf(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, b := range brands {
		if strings.Contains(lower, b.keyword) {
			return b.name, true
		}
	}
	return "", false
}

func firstAttribute(attrs, keywords []string) (string, bool) {
	for _, attr := range attrs {
		lower := strings.ToLower(attr)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return attr, true
			}
		}
	}
	return "", false
}
