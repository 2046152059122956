package window

import (
	"math"

	"bike_monitor/internal/model"
)

// Stats summarises the listings held in a window.
type Stats = model.WindowStats

// Stats computes price and brand statistics over the window.
func (w *Window) Stats() Stats {
	st := Stats{Size: len(w.entries), Brands: make(map[string]int)}

	var sum float64
	for _, fp := range w.entries {
		if p, ok := fp.NumericPrice(); ok {
			if st.WithPrice == 0 || p < st.MinPrice {
				st.MinPrice = p
			}
			if st.WithPrice == 0 || p > st.MaxPrice {
				st.MaxPrice = p
			}
			sum += p
			st.WithPrice++
		}
		if brand, ok := model.BrandOf(fp.Title); ok {
			st.Brands[brand]++
		}
	}

	st.WithoutPrice = st.Size - st.WithPrice
	if st.WithPrice > 0 {
		st.AveragePrice = math.Round(sum/float64(st.WithPrice)*100) / 100
	}
	return st
}
