package growth

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/modules/availability"
)

// Result is one period-over-period growth computation for a single metric.
// GrowthRate may be non-finite when AnomalousValues is set; callers must
// branch on the flag before using the number.
type Result struct {
	Metric             string                      `json:"metric"`
	CurrentValue       float64                     `json:"currentValue"`
	PriorValue         float64                     `json:"priorValue"`
	GrowthRate         float64                     `json:"growthRate"`
	ComparisonType     availability.ComparisonType `json:"comparisonType"`
	CurrentPeriodLabel string                      `json:"currentPeriodLabel"`
	PriorPeriodLabel   string                      `json:"priorPeriodLabel"`
	Flags              availability.QualityFlags   `json:"dataQualityFlags"`
}

// Analysis aggregates growth results for one security.
type Analysis struct {
	Symbol       string                        `json:"symbol"`
	Availability availability.DataAvailability `json:"availability"`
	Metrics      map[string]Result             `json:"metrics"`
}

// StandardMetrics are the metrics computed for every analysis run.
var StandardMetrics = []string{"revenue", "netIncome", "operatingIncome", "freeCashFlow"}

// metricAliases maps metric names to accessor lists. Extraction takes the
// first non-zero value in order; unmatched metrics resolve to 0. This is the
// single alias table for the whole pipeline - provider-specific field names
// are normalized away at the ingestion boundary, not here.
var metricAliases = map[string][]func(domain.FinancialStatement) float64{
	"revenue": {
		func(s domain.FinancialStatement) float64 { return s.Revenue },
	},
	"totalRevenue": {
		func(s domain.FinancialStatement) float64 { return s.Revenue },
	},
	"netIncome": {
		func(s domain.FinancialStatement) float64 { return s.NetIncome },
	},
	"operatingIncome": {
		func(s domain.FinancialStatement) float64 { return s.OperatingIncome },
		func(s domain.FinancialStatement) float64 { return s.NetIncome },
	},
	"freeCashFlow": {
		func(s domain.FinancialStatement) float64 { return s.FreeCashFlow },
	},
	"eps": {
		func(s domain.FinancialStatement) float64 { return s.EPS },
	},
}

// Calculator computes period-aware growth for snapshot metrics.
type Calculator struct {
	detector *availability.Detector
	log      zerolog.Logger
}

// NewCalculator creates a growth calculator.
func NewCalculator(detector *availability.Detector, log zerolog.Logger) *Calculator {
	return &Calculator{
		detector: detector,
		log:      log.With().Str("module", "growth").Logger(),
	}
}

// Analyze computes growth for all standard metrics of a snapshot.
func (c *Calculator) Analyze(fd *domain.FinancialData) Analysis {
	avail := c.detector.Detect(fd.QuarterlyFinancials, fd.Financials)

	metrics := make(map[string]Result, len(StandardMetrics))
	for _, metric := range StandardMetrics {
		metrics[metric] = c.calculate(metric, fd.QuarterlyFinancials, fd.Financials, avail)
	}

	return Analysis{
		Symbol:       fd.Symbol,
		Availability: avail,
		Metrics:      metrics,
	}
}

// CalculateGrowth computes growth for a single metric. The comparison
// strategy is re-derived from the statement sequences on every call.
func (c *Calculator) CalculateGrowth(metric string, quarterly, annual []domain.FinancialStatement) Result {
	avail := c.detector.Detect(quarterly, annual)
	return c.calculate(metric, quarterly, annual, avail)
}

func (c *Calculator) calculate(metric string, quarterly, annual []domain.FinancialStatement, avail availability.DataAvailability) Result {
	res := Result{
		Metric:         metric,
		ComparisonType: avail.ComparisonType,
		Flags:          avail.Flags,
	}

	switch avail.ComparisonType {
	case availability.ComparisonTTMvsFY:
		ttm, partial := trailingSum(metric, quarterly)
		res.CurrentValue = ttm
		res.Flags.TTMPartial = partial
		res.CurrentPeriodLabel = fmt.Sprintf("TTM (through %s %d)", avail.LatestQuarter, avail.LatestQuarterYear)

		prior := priorFiscalYear(metric, annual, avail.LatestQuarterYear)
		if prior == nil {
			res.ComparisonType = availability.ComparisonInsufficient
			return res
		}
		res.PriorValue = prior.value
		res.PriorPeriodLabel = fmt.Sprintf("FY%d", prior.year)

	case availability.ComparisonTTMvsTTM:
		ttm, partial := trailingSum(metric, quarterly)
		res.CurrentValue = ttm
		res.Flags.TTMPartial = partial
		res.CurrentPeriodLabel = fmt.Sprintf("TTM (through %s %d)", avail.LatestQuarter, avail.LatestQuarterYear)

		priorTTM, priorCount := priorYearTrailing(metric, quarterly, avail.LatestQuarterYear-1)
		res.PriorValue = priorTTM
		if priorCount < 4 {
			res.PriorPeriodLabel = fmt.Sprintf("TTM FY%d (annualized from %d quarters)", avail.LatestQuarterYear-1, priorCount)
		} else {
			res.PriorPeriodLabel = fmt.Sprintf("TTM FY%d", avail.LatestQuarterYear-1)
		}

	case availability.ComparisonFYvsFY:
		res.CurrentValue = extract(annual[0], metric)
		res.PriorValue = extract(annual[1], metric)
		res.CurrentPeriodLabel = fmt.Sprintf("FY%d", annual[0].FiscalYear)
		res.PriorPeriodLabel = fmt.Sprintf("FY%d", annual[1].FiscalYear)

	default:
		return res
	}

	res.GrowthRate, res.Flags.AnomalousValues = growthRate(res.CurrentValue, res.PriorValue)
	return res
}

// growthRate computes (current - prior) / |prior| * 100. A zero or non-finite
// prior yields a non-finite rate together with the anomalous flag; the value
// is returned rather than raised.
func growthRate(current, prior float64) (float64, bool) {
	rate := (current - prior) / math.Abs(prior) * 100
	anomalous := prior == 0 || math.IsNaN(prior) || math.IsInf(prior, 0) ||
		math.IsNaN(rate) || math.IsInf(rate, 0)
	return rate, anomalous
}

// extract resolves a metric value from a statement through the alias table.
func extract(stmt domain.FinancialStatement, metric string) float64 {
	for _, accessor := range metricAliases[metric] {
		if v := accessor(stmt); v != 0 {
			return v
		}
	}
	return 0
}

// trailingSum sums the metric over the 4 most recent quarters. When fewer
// than 4 exist it sums what is present and reports partial=true; it never
// extrapolates in this path.
func trailingSum(metric string, quarterly []domain.FinancialStatement) (sum float64, partial bool) {
	n := len(quarterly)
	if n > 4 {
		n = 4
	}
	for i := 0; i < n; i++ {
		sum += extract(quarterly[i], metric)
	}
	return sum, n < 4
}

// priorYearTrailing computes the prior fiscal year's TTM. A prior year with
// 1-3 quarters is annualized as (sum/count)*4.
func priorYearTrailing(metric string, quarterly []domain.FinancialStatement, year int) (float64, int) {
	var sum float64
	count := 0
	for _, q := range quarterly {
		if q.FiscalYear == year {
			sum += extract(q, metric)
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	if count < 4 {
		return sum / float64(count) * 4, count
	}
	return sum, count
}

type fiscalValue struct {
	year  int
	value float64
}

// priorFiscalYear finds the most recent full fiscal year strictly before the
// given year.
func priorFiscalYear(metric string, annual []domain.FinancialStatement, beforeYear int) *fiscalValue {
	for _, a := range annual {
		if a.FiscalYear < beforeYear {
			return &fiscalValue{year: a.FiscalYear, value: extract(a, metric)}
		}
	}
	return nil
}
