package fibonacci

// DefaultSwingOrder is the comparison window used when callers do not
// specify one. Five bars each side filters intraweek noise on daily
// data without hiding multi-week swings.
const DefaultSwingOrder = 5

// FindSwings locates local price extrema using a symmetric comparison
// window. A point at index i is a swing high when prices[i] is strictly
// greater than every value in prices[i-order..i-1] and
// prices[i+1..i+order]; a swing low mirrors the condition. Equal
// neighbours disqualify a candidate.
//
// Series shorter than 3*order yield empty results.
func FindSwings(prices []float64, order int) (highs, lows []int) {
	if order <= 0 {
		panic("fibonacci: swing order must be positive")
	}
	if len(prices) < 3*order {
		return nil, nil
	}

	for i := order; i < len(prices)-order; i++ {
		isHigh := true
		isLow := true
		for j := i - order; j <= i+order; j++ {
			if j == i {
				continue
			}
			if prices[j] >= prices[i] {
				isHigh = false
			}
			if prices[j] <= prices[i] {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			highs = append(highs, i)
		}
		if isLow {
			lows = append(lows, i)
		}
	}

	return highs, lows
}

// FindSwingsMinDistance runs FindSwings and then greedily drops, in
// ascending index order, any swing closer than minDistance bars to the
// last accepted swing of the same kind.
func FindSwingsMinDistance(prices []float64, order, minDistance int) (highs, lows []int) {
	rawHighs, rawLows := FindSwings(prices, order)
	return filterByDistance(rawHighs, minDistance), filterByDistance(rawLows, minDistance)
}

func filterByDistance(indices []int, minDistance int) []int {
	if minDistance <= 1 || len(indices) == 0 {
		return indices
	}

	kept := []int{indices[0]}
	for _, idx := range indices[1:] {
		if idx-kept[len(kept)-1] >= minDistance {
			kept = append(kept, idx)
		}
	}
	return kept
}
