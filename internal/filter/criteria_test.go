package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"bike_monitor/internal/model"
)

func TestCriteriaCheck(t *testing.T) {
	bike := model.Listing{Title: "Canyon Endurace", Price: "€ 1.450,00"}
	private := &model.Detail{SellerType: "Particulier"}
	dealer := &model.Detail{SellerType: "Handelaar"}

	tests := []struct {
		name     string
		criteria Criteria
		listing  model.Listing
		detail   *model.Detail
		want     bool
	}{
		{
			name:     "empty criteria pass",
			criteria: Criteria{},
			listing:  bike,
			want:     true,
		},
		{
			name:     "within price range",
			criteria: Criteria{MinPrice: 500, MaxPrice: 2000},
			listing:  bike,
			want:     true,
		},
		{
			name:     "below minimum",
			criteria: Criteria{MinPrice: 1500},
			listing:  bike,
			want:     false,
		},
		{
			name:     "above maximum",
			criteria: Criteria{MaxPrice: 1000},
			listing:  bike,
			want:     false,
		},
		{
			name:     "unpriced listing passes price range",
			criteria: Criteria{MinPrice: 500, MaxPrice: 1000},
			listing:  model.Listing{Title: "Ridley", Price: "Bieden"},
			want:     true,
		},
		{
			name:     "seller type allowed",
			criteria: Criteria{SellerTypes: []string{"particulier"}},
			listing:  bike,
			detail:   private,
			want:     true,
		},
		{
			name:     "seller type rejected",
			criteria: Criteria{SellerTypes: []string{"Particulier"}},
			listing:  bike,
			detail:   dealer,
			want:     false,
		},
		{
			name:     "unknown seller type passes",
			criteria: Criteria{SellerTypes: []string{"Particulier"}},
			listing:  bike,
			want:     true,
		},
		{
			name: "keyword rules applied",
			criteria: Criteria{Rules: []model.Filter{
				{Kind: model.FilterExclude, Scope: model.ScopeTitle, Value: "endurace"},
			}},
			listing: bike,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := tt.criteria.Check(tt.listing, tt.detail)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Check() mismatch (-want +got):\n%s", diff)
			}
			if !got && reason == "" {
				t.Error("expected a reason for a rejected listing")
			}
		})
	}
}

func TestCriteriaEmpty(t *testing.T) {
	if !(Criteria{}).Empty() {
		t.Error("zero criteria should be empty")
	}
	if (Criteria{MaxPrice: 100}).Empty() {
		t.Error("criteria with a price bound should not be empty")
	}
}
