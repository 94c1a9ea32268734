package fundamentals

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnfinlab/vnquant/internal/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	norm, err := NewNormalizer()
	require.NoError(t, err)
	return NewService(norm, zerolog.Nop())
}

func incomeRow(ticker string, year int, revenue, netIncome float64) domain.StatementRow {
	return domain.StatementRow{
		Ticker: ticker,
		Year:   year,
		Values: map[string]float64{
			"Revenue (Bn. VND)":       revenue,
			"Net Profit For the Year": netIncome,
		},
	}
}

func balanceRow(ticker string, year int, assets, equity float64) domain.StatementRow {
	return domain.StatementRow{
		Ticker: ticker,
		Year:   year,
		Values: map[string]float64{
			"TOTAL ASSETS (Bn. VND)": assets,
			"OWNER'S EQUITY(Bn.VND)": equity,
		},
	}
}

func TestNormalizerResolvesSynonyms(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name   string
		column string
		field  string
	}{
		{"primary revenue spelling", "Revenue (Bn. VND)", "Revenue"},
		{"net sales variant", "Net sales (Bn. VND)", "Revenue"},
		{"bank revenue variant", "Net interest income (Bn. VND)", "Revenue"},
		{"equity with cramped spacing", "OWNER'S EQUITY(Bn.VND)", "OwnersEquity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := domain.StatementRow{Ticker: "VNM", Year: 2023, Values: map[string]float64{tt.column: 42}}
			v, ok := svc.normalizer.Resolve(row, tt.field)
			require.True(t, ok)
			assert.Equal(t, 42.0, v)
		})
	}
}

func TestNormalizerIsExactMatch(t *testing.T) {
	svc := newTestService(t)

	// Case or spacing drift must not match; fuzzy matching invites
	// false positives like "Revenue deductions".
	row := domain.StatementRow{Ticker: "VNM", Year: 2023, Values: map[string]float64{
		"revenue (bn. vnd)":  1,
		"Revenue deductions": 2,
	}}
	_, ok := svc.normalizer.Resolve(row, "Revenue")
	assert.False(t, ok)
}

func TestNormalizerResolveAllNamesMissingFields(t *testing.T) {
	svc := newTestService(t)

	row := domain.StatementRow{Ticker: "VNM", Year: 2023, Values: map[string]float64{
		"Revenue (Bn. VND)": 100,
	}}
	_, err := svc.normalizer.ResolveAll(row, "Revenue", "NetIncome", "TotalAssets")

	var mf *domain.MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, []string{"NetIncome", "TotalAssets"}, mf.Fields)
}

func TestDuPontAlgebraicIdentity(t *testing.T) {
	svc := newTestService(t)

	income := domain.StatementTable{Ticker: "VNM", Type: domain.StatementIncome, Period: domain.PeriodYear,
		Rows: []domain.StatementRow{
			incomeRow("VNM", 2021, 60000, 10500),
			incomeRow("VNM", 2022, 61000, 9500),
			incomeRow("VNM", 2023, 63000, 9000),
		}}
	balance := domain.StatementTable{Ticker: "VNM", Type: domain.StatementBalance, Period: domain.PeriodYear,
		Rows: []domain.StatementRow{
			balanceRow("VNM", 2021, 53000, 33000),
			balanceRow("VNM", 2022, 48500, 32000),
			balanceRow("VNM", 2023, 52700, 35000),
		}}

	records, err := svc.DuPont(income, balance)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for _, rec := range records {
		assert.InDelta(t, rec.ROEDirect, rec.ROEComputed, ROEDivergenceTolerance,
			"year %d: decomposition must reproduce direct ROE", rec.Year)
		assert.True(t, rec.Consistent, "year %d", rec.Year)
	}
}

func TestDuPontAveragesWithPriorYear(t *testing.T) {
	svc := newTestService(t)

	income := domain.StatementTable{Rows: []domain.StatementRow{
		incomeRow("FPT", 2022, 1000, 100),
		incomeRow("FPT", 2023, 1200, 150),
	}}
	balance := domain.StatementTable{Rows: []domain.StatementRow{
		balanceRow("FPT", 2022, 2000, 800),
		balanceRow("FPT", 2023, 2400, 1000),
	}}

	records, err := svc.DuPont(income, balance)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// First year has no predecessor: unaveraged values.
	first := records[0]
	assert.Equal(t, 2022, first.Year)
	assert.InDelta(t, 1000.0/2000.0, first.AssetTurnover, 1e-12)
	assert.InDelta(t, 100.0/800.0*100, first.ROEDirect, 1e-12)

	// Second year averages assets (2200) and equity (900).
	second := records[1]
	assert.Equal(t, 2023, second.Year)
	assert.InDelta(t, 1200.0/2200.0, second.AssetTurnover, 1e-12)
	assert.InDelta(t, 2200.0/900.0, second.FinancialLeverage, 1e-12)
	assert.InDelta(t, 150.0/900.0*100, second.ROEDirect, 1e-12)
}

func TestDuPontMissingFields(t *testing.T) {
	svc := newTestService(t)

	income := domain.StatementTable{Rows: []domain.StatementRow{
		{Ticker: "HPG", Year: 2023, Values: map[string]float64{"Unrelated column": 1}},
	}}
	balance := domain.StatementTable{Rows: []domain.StatementRow{
		balanceRow("HPG", 2023, 100, 50),
	}}

	_, err := svc.DuPont(income, balance)
	var mf *domain.MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.ElementsMatch(t, []string{"Revenue", "NetIncome"}, mf.Fields)
}

func TestDuPontSkipsOnlyAffectedRows(t *testing.T) {
	svc := newTestService(t)

	income := domain.StatementTable{Rows: []domain.StatementRow{
		incomeRow("HPG", 2022, 1000, 100),
		{Ticker: "HPG", Year: 2023, Values: map[string]float64{"Unrelated column": 1}},
	}}
	balance := domain.StatementTable{Rows: []domain.StatementRow{
		balanceRow("HPG", 2022, 2000, 900),
		balanceRow("HPG", 2023, 2200, 950),
	}}

	records, err := svc.DuPont(income, balance)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2022, records[0].Year)
}

func TestCapitalEmployedDebtDefaultsToZero(t *testing.T) {
	svc := newTestService(t)

	balance := domain.StatementTable{Rows: []domain.StatementRow{
		{Ticker: "VCB", Year: 2023, Values: map[string]float64{
			"OWNER'S EQUITY(Bn.VND)": 500,
		}},
	}}

	records, err := svc.CapitalEmployed(balance)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Zero(t, rec.ShortTermDebt)
	assert.Zero(t, rec.LongTermDebt)
	assert.Equal(t, 500.0, rec.CapitalEmployed)
	assert.InDelta(t, 100.0, rec.EquityPct, 1e-12)
}

func TestCapitalEmployedComponents(t *testing.T) {
	svc := newTestService(t)

	balance := domain.StatementTable{Rows: []domain.StatementRow{
		{Ticker: "HPG", Year: 2023, Values: map[string]float64{
			"Short-term borrowings (Bn. VND)": 100,
			"Long-term borrowings (Bn. VND)":  300,
			"OWNER'S EQUITY(Bn.VND)":          600,
		}},
	}}

	records, err := svc.CapitalEmployed(balance)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, 1000.0, rec.CapitalEmployed)
	assert.InDelta(t, 10.0, rec.ShortTermPct, 1e-12)
	assert.InDelta(t, 30.0, rec.LongTermPct, 1e-12)
	assert.InDelta(t, 60.0, rec.EquityPct, 1e-12)
	assert.InDelta(t, 100.0, rec.ShortTermPct+rec.LongTermPct+rec.EquityPct, 1e-9)
}

func TestCapitalEmployedMissingEquityIsHardError(t *testing.T) {
	svc := newTestService(t)

	balance := domain.StatementTable{Rows: []domain.StatementRow{
		{Ticker: "HPG", Year: 2023, Values: map[string]float64{
			"Short-term borrowings (Bn. VND)": 100,
		}},
	}}

	_, err := svc.CapitalEmployed(balance)
	var mf *domain.MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, []string{"OwnersEquity"}, mf.Fields)
}

func TestEffectiveTaxRate(t *testing.T) {
	svc := newTestService(t)

	income := domain.StatementTable{Rows: []domain.StatementRow{
		{Ticker: "FPT", Year: 2023, Values: map[string]float64{
			"Profit before tax (Bn. VND)": 1000,
		}},
	}}
	cashFlow := domain.StatementTable{Rows: []domain.StatementRow{
		{Ticker: "FPT", Year: 2023, Values: map[string]float64{
			// Stored as an outflow by the provider.
			"Business income tax paid (Bn. VND)": -200,
		}},
	}}

	records, err := svc.EffectiveTaxRate(income, cashFlow)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, 200.0, rec.TaxPaid)
	assert.Equal(t, 1000.0, rec.ProfitBeforeTax)
	assert.InDelta(t, 0.2, rec.Rate, 1e-12)
}

func TestEffectiveTaxRateFallsBackToCashFlowPBT(t *testing.T) {
	svc := newTestService(t)

	income := domain.StatementTable{} // no income statement rows at all
	cashFlow := domain.StatementTable{Rows: []domain.StatementRow{
		{Ticker: "FPT", Year: 2023, Values: map[string]float64{
			"Business income tax paid (Bn. VND)":     -150,
			"Accounting profit before tax (Bn. VND)": 600,
		}},
	}}

	records, err := svc.EffectiveTaxRate(income, cashFlow)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 0.25, records[0].Rate, 1e-12)
}

func TestEffectiveTaxRateClamping(t *testing.T) {
	tests := []struct {
		name     string
		taxPaid  float64
		pbt      float64
		wantRate float64
	}{
		{"negative profit clamps to one", 100, -50, 1},
		{"zero profit no tax", 0, 0, 0},
		{"zero profit with tax", 10, 0, 1},
		{"rate above one clamps", 150, 100, 1},
		{"normal rate passes through", 20, 100, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRate, clampRate(tt.taxPaid, tt.pbt))
		})
	}
}
