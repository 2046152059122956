package filter

import (
	"fmt"
	"strings"

	"bike_monitor/internal/model"
)

// Criteria are the per-monitor conditions a new listing must meet before a
// notification is sent.
type Criteria struct {
	Rules       []model.Filter
	MinPrice    float64
	MaxPrice    float64
	SellerTypes []string
}

// Empty reports whether the criteria let every listing through.
func (c Criteria) Empty() bool {
	return len(c.Rules) == 0 && c.MinPrice <= 0 && c.MaxPrice <= 0 && len(c.SellerTypes) == 0
}

// Check reports whether l passes the criteria and, if not, why. d may be
// nil when no detail page was fetched; seller type rules then pass.
// Listings without a numeric price pass the price range.
func (c Criteria) Check(l model.Listing, d *model.Detail) (bool, string) {
	if price, ok := l.NumericPrice(); ok {
		if c.MinPrice > 0 && price < c.MinPrice {
			return false, fmt.Sprintf("price %.2f below %.2f", price, c.MinPrice)
		}
		if c.MaxPrice > 0 && price > c.MaxPrice {
			return false, fmt.Sprintf("price %.2f above %.2f", price, c.MaxPrice)
		}
	}

	if len(c.SellerTypes) > 0 && d != nil && d.SellerType != "" && !containsFold(c.SellerTypes, d.SellerType) {
		return false, "seller type " + d.SellerType
	}

	if !Match(ItemOf(l, d), c.Rules) {
		return false, "keyword rules"
	}
	return true, ""
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
