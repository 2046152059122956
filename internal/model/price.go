package model

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const currencySymbols = "€$£¥"

var priceNumber = regexp.MustCompile(`\d[\d.]*(?:,\d+)?`)

// NumericPrice returns the listing's asking price as a number.
func (l Listing) NumericPrice() (float64, bool) {
	return ParsePrice(l.Price)
}

// NumericPrice returns the footprint's asking price as a number.
func (f Footprint) NumericPrice() (float64, bool) {
	return ParsePrice(f.Price)
}

// ParsePrice converts a localized price label such as "€ 1.200,50" into a
// number. A comma is the decimal separator and dots group thousands. Without
// a comma, dots group thousands when the last group has three digits and are
// a decimal point otherwise, except for currency-marked amounts of the form
// "€ D.DD" with a non-zero leading digit, which are thousands with the last
// zero dropped ("€ 1.20" is 1200, "€ 12.5" is 12.5, "€ 0.99" is 0.99). Labels without digits ("Bieden", "Op aanvraag") yield false.
func ParsePrice(text string) (float64, bool) {
	hasCurrency := strings.ContainsAny(text, currencySymbols)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(currencySymbols, r) {
			return -1
		}
		return r
	}, text)

	num := strings.TrimRight(priceNumber.FindString(cleaned), ".")
	if num == "" {
		return 0, false
	}

	if i := strings.IndexByte(num, ','); i >= 0 {
		whole := strings.ReplaceAll(num[:i], ".", "")
		return parseFloat(whole + "." + num[i+1:])
	}

	if !strings.Contains(num, ".") {
		return parseFloat(num)
	}

	groups := strings.Split(num, ".")
	last := groups[len(groups)-1]
	switch {
	case len(last) == 3:
		return parseFloat(strings.Join(groups, ""))
	case hasCurrency && len(groups) == 2 && len(groups[0]) == 1 && groups[0] != "0" && len(last) == 2:
		return parseFloat(groups[0] + last + "0")
	default:
		whole := strings.Join(groups[:len(groups)-1], "")
		return parseFloat(whole + "." + last)
	}
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
