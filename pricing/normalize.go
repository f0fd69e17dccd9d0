package pricing

import (
	"fmt"
	"math"
	"sort"
)

// Normalize converts vendor rows into back-adjusted candles.
//
// For each row factor = Close / AdjClose; open, high, low and close are
// divided by factor and volume is multiplied by it. Rows are returned in
// ascending date order and a repeated date keeps its first occurrence.
func Normalize(raw []RawBar) ([]Candle, error) {
	rows := make([]RawBar, len(raw))
	copy(rows, raw)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Time.Before(rows[j].Time)
	})

	out := make([]Candle, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for _, r := range rows {
		day := Day(r.Time)
		key := FormatDate(day)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if !finite(r.Open, r.High, r.Low, r.Close, r.AdjClose, r.Volume) {
			return nil, fmt.Errorf("normalize %s: non-finite value", key)
		}
		if r.AdjClose <= 0 || r.Close <= 0 {
			return nil, fmt.Errorf("normalize %s: close=%v adjusted close=%v", key, r.Close, r.AdjClose)
		}

		factor := r.Close / r.AdjClose
		out = append(out, Candle{
			Time:   day,
			Open:   r.Open / factor,
			High:   r.High / factor,
			Low:    r.Low / factor,
			Close:  r.Close / factor,
			Volume: r.Volume * factor,
		})
	}

	return out, nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
