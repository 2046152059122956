package model

import (
	"regexp"
	"strings"
)

var titleWord = regexp.MustCompile(`\w+`)

var titleStopWords = map[string]struct{}{
	"de": {}, "het": {}, "een": {}, "van": {}, "op": {}, "in": {}, "met": {},
	"voor": {}, "en": {}, "of": {}, "racefiets": {}, "fiets": {}, "bike": {},
}

// TitleSimilarity returns the Jaccard similarity of the meaningful words in
// two titles, between 0 and 1. It is informational only: listing identity is
// decided by Href alone.
func TitleSimilarity(a, b string) float64 {
	wa, wb := titleWords(a), titleWords(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1
	}
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	shared := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			shared++
		}
	}
	union := len(wa) + len(wb) - shared
	return float64(shared) / float64(union)
}

func titleWords(title string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range titleWord.FindAllString(strings.ToLower(title), -1) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := titleStopWords[w]; stop {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}
