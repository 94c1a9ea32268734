package vnmarket

// quoteHistoryResponse is the provider's OHLCV history payload. Columns
// arrive as parallel arrays keyed by epoch seconds.
type quoteHistoryResponse struct {
	Symbol string    `json:"ticker"`
	Time   []int64   `json:"t"`
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
	Volume []float64 `json:"v"`
}

// statementResponse is one statement table. Items carry the provider's
// own column spellings; no normalization happens at this layer.
type statementResponse struct {
	Ticker string         `json:"ticker"`
	Items  []statementRow `json:"items"`
}

type statementRow struct {
	Year    int                `json:"year"`
	Quarter int                `json:"quarter"`
	Values  map[string]float64 `json:"values"`
}

// listingResponse is the tradable symbol list.
type listingResponse struct {
	Symbols []ListedSymbol `json:"symbols"`
}

// ListedSymbol is one tradable instrument on HOSE/HNX/UPCOM.
type ListedSymbol struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"organ_name"`
	Exchange string `json:"exchange"`
}
