package domain

import (
	"fmt"
	"time"
)

// StatementType identifies a financial statement table
type StatementType string

const (
	StatementIncome   StatementType = "income_statement"
	StatementBalance  StatementType = "balance_sheet"
	StatementCashFlow StatementType = "cash_flow"
	StatementRatios   StatementType = "ratios"
)

// Period is the reporting frequency of a statement table
type Period string

const (
	PeriodYear    Period = "year"
	PeriodQuarter Period = "quarter"
)

// Interval is the sampling frequency of a price series
type Interval string

const (
	IntervalDaily  Interval = "1D"
	IntervalWeekly Interval = "1W"
)

// PriceBar is a single OHLCV observation
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ordered OHLCV history for one instrument.
// Invariant: dates are unique and strictly ascending.
type PriceSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars in the series
func (s PriceSeries) Len() int {
	return len(s.Bars)
}

// Closes extracts the close column
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high column
func (s PriceSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts the volume column
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// Tail returns the last n bars (or the whole series when shorter)
func (s PriceSeries) Tail(n int) PriceSeries {
	if n >= len(s.Bars) {
		return s
	}
	return PriceSeries{Symbol: s.Symbol, Bars: s.Bars[len(s.Bars)-n:]}
}

// Validate checks the series invariants: ascending unique dates,
// high >= low, open/close within [low, high], non-negative volume.
func (s PriceSeries) Validate() error {
	for i, b := range s.Bars {
		if i > 0 && !s.Bars[i-1].Date.Before(b.Date) {
			return fmt.Errorf("series %s: bar %d date %s not after previous", s.Symbol, i, b.Date.Format("2006-01-02"))
		}
		if b.High < b.Low {
			return fmt.Errorf("series %s: bar %d high %.4f below low %.4f", s.Symbol, i, b.High, b.Low)
		}
		if b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
			return fmt.Errorf("series %s: bar %d open/close outside [low, high]", s.Symbol, i)
		}
		if b.Volume < 0 {
			return fmt.Errorf("series %s: bar %d negative volume", s.Symbol, i)
		}
	}
	return nil
}

// StatementRow is one (ticker, fiscal period) observation of a statement.
// Values maps the provider's raw column names to numeric values, in
// billions of VND. Canonical field resolution happens in the
// fundamentals normalizer, not here.
type StatementRow struct {
	Ticker  string             `json:"ticker"`
	Year    int                `json:"year"`
	Quarter int                `json:"quarter,omitempty"` // 0 for annual rows
	Values  map[string]float64 `json:"values"`
}

// StatementTable is the set of rows of one statement type for one ticker.
// Invariant: (ticker, year, quarter) is unique within a table.
type StatementTable struct {
	Ticker string         `json:"ticker"`
	Type   StatementType  `json:"type"`
	Period Period         `json:"period"`
	Rows   []StatementRow `json:"rows"`
}
