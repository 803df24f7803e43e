package availability

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/domain"
)

// ComparisonType selects how a growth comparison is made.
type ComparisonType string

const (
	// ComparisonTTMvsFY compares the trailing twelve months against the
	// immediately preceding full fiscal year.
	ComparisonTTMvsFY ComparisonType = "TTM_VS_FY"
	// ComparisonTTMvsTTM compares the current TTM against the prior-year TTM,
	// annualizing the prior year when it is incomplete.
	ComparisonTTMvsTTM ComparisonType = "TTM_VS_TTM"
	// ComparisonFYvsFY compares the two latest complete fiscal years.
	ComparisonFYvsFY ComparisonType = "FY_VS_FY"
	// ComparisonInsufficient means no strategy resolves on the given data.
	ComparisonInsufficient ComparisonType = "INSUFFICIENT_DATA"
)

// QualityFlags are the data-quality observations attached to every growth
// result. The detector sets the availability flags; the growth calculator
// adds TTMPartial and AnomalousValues.
type QualityFlags struct {
	OnlyQ1Available        bool `json:"onlyQ1Available"`
	TTMNotAvailable        bool `json:"ttmNotAvailable"`
	LimitedQuarterlyData   bool `json:"limitedQuarterlyData"`
	SingleQuarterAvailable bool `json:"singleQuarterAvailable"`
	TTMPartial             bool `json:"ttmPartial"`
	AnomalousValues        bool `json:"anomalousValues"`
}

// DataAvailability captures which reporting periods are usable and which
// comparison strategy applies. Recomputed per analysis, never persisted.
type DataAvailability struct {
	LatestAnnualYear        int            `json:"latestAnnualYear"`
	LatestQuarter           string         `json:"latestQuarter"`
	LatestQuarterYear       int            `json:"latestQuarterYear"`
	CurrentYearQuarterCount int            `json:"currentYearQuarterCount"`
	PriorYearQuarterCount   int            `json:"priorYearQuarterCount"`
	TTMAvailable            bool           `json:"ttmAvailable"`
	ComparisonType          ComparisonType `json:"comparisonType"`
	Flags                   QualityFlags   `json:"dataQualityFlags"`
}

// Detector classifies reporting-period availability for a snapshot.
type Detector struct {
	log zerolog.Logger
}

// NewDetector creates a new availability detector.
func NewDetector(log zerolog.Logger) *Detector {
	return &Detector{
		log: log.With().Str("module", "availability").Logger(),
	}
}

// Detect derives availability facts from the annual and quarterly statement
// sequences (both ordered most recent first).
func (d *Detector) Detect(quarterly, annual []domain.FinancialStatement) DataAvailability {
	avail := DataAvailability{ComparisonType: ComparisonInsufficient}

	if len(annual) > 0 {
		avail.LatestAnnualYear = annual[0].FiscalYear
	}

	if len(quarterly) > 0 {
		latest := quarterly[0]
		avail.LatestQuarter = QuarterLabel(latest)
		avail.LatestQuarterYear = latest.FiscalYear

		for _, q := range quarterly {
			switch q.FiscalYear {
			case avail.LatestQuarterYear:
				avail.CurrentYearQuarterCount++
			case avail.LatestQuarterYear - 1:
				avail.PriorYearQuarterCount++
			}
		}
	}

	// A trailing sum needs at least two fresh quarters to say anything
	// meaningful about the current year.
	avail.TTMAvailable = avail.CurrentYearQuarterCount >= 2

	avail.ComparisonType = DetermineComparisonType(
		avail.LatestQuarter,
		avail.TTMAvailable,
		avail.CurrentYearQuarterCount,
		avail.PriorYearQuarterCount,
		len(annual),
	)

	avail.Flags = QualityFlags{
		OnlyQ1Available:        avail.LatestQuarter == "Q1" && avail.CurrentYearQuarterCount == 1,
		TTMNotAvailable:        !avail.TTMAvailable,
		LimitedQuarterlyData:   avail.CurrentYearQuarterCount < 2,
		SingleQuarterAvailable: len(quarterly) == 1,
	}

	d.log.Debug().
		Str("comparison", string(avail.ComparisonType)).
		Str("latest_quarter", avail.LatestQuarter).
		Int("current_year_quarters", avail.CurrentYearQuarterCount).
		Bool("ttm_available", avail.TTMAvailable).
		Msg("Availability detected")

	return avail
}

// DetermineComparisonType resolves the comparison strategy in strict priority
// order. It is a pure function of its arguments.
func DetermineComparisonType(latestQuarter string, ttmAvailable bool, currentYearCount, priorYearCount, annualCount int) ComparisonType {
	switch {
	case latestQuarter != "" && latestQuarter != "Q1" && currentYearCount >= 2:
		return ComparisonTTMvsFY
	case currentYearCount >= 1 && priorYearCount >= 1:
		return ComparisonTTMvsTTM
	case annualCount >= 2:
		return ComparisonFYvsFY
	default:
		return ComparisonInsufficient
	}
}

// QuarterLabel returns the calendar-quarter label for a statement, preferring
// the adapter-provided label and falling back to the period-end month
// (months 1-3 map to Q1, ..., 10-12 to Q4).
func QuarterLabel(stmt domain.FinancialStatement) string {
	if stmt.Quarter != "" {
		return stmt.Quarter
	}
	return QuarterFromPeriod(stmt.Period)
}

// QuarterFromPeriod maps an ISO period-end date ("2025-03-31") to its
// calendar quarter. Unparseable periods yield "".
func QuarterFromPeriod(period string) string {
	parts := strings.Split(period, "-")
	if len(parts) < 2 {
		return ""
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return ""
	}
	return "Q" + strconv.Itoa((month-1)/3+1)
}
