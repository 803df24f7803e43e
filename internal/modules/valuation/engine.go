package valuation

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/modules/growth"
)

// Engine runs the valuation methods over an immutable snapshot and reconciles
// them into a consensus range.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a valuation engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("module", "valuation").Logger(),
	}
}

// Evaluate runs the four methods concurrently. The methods share no mutable
// state, so parallel and sequential execution produce identical results.
func (e *Engine) Evaluate(fd *domain.FinancialData, ga growth.Analysis) Findings {
	methods := make([]Method, 4)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); methods[0] = dcfMethod(fd, ga) }()
	go func() { defer wg.Done(); methods[1] = comparableMethod(fd, ga) }()
	go func() { defer wg.Done(); methods[2] = ddmMethod(fd, ga) }()
	go func() { defer wg.Done(); methods[3] = assetBasedMethod(fd) }()
	wg.Wait()

	findings := reconcile(fd.Symbol, fd.Price.Current, methods)

	e.log.Debug().
		Str("symbol", fd.Symbol).
		Str("agreement", string(findings.MethodAgreement)).
		Float64("low", findings.Consensus.Low).
		Float64("high", findings.Consensus.High).
		Msg("Valuation reconciled")

	return findings
}

// reconcile excludes inapplicable methods, brackets the rest and derives the
// overall assessment from the bracket midpoint.
func reconcile(symbol string, price float64, methods []Method) Findings {
	findings := Findings{
		Symbol:       symbol,
		CurrentPrice: price,
		Methods:      methods,
	}

	var applicable []Method
	for _, m := range methods {
		if m.Assessment != UnableToValue {
			applicable = append(applicable, m)
		}
	}

	if len(applicable) == 0 {
		findings.MethodAgreement = AgreementWeak
		findings.OverallAssessment = UnableToValue
		return findings
	}

	low, high := applicable[0].IntrinsicValue, applicable[0].IntrinsicValue
	confidenceSum := 0.0
	distinct := map[Assessment]bool{}
	for _, m := range applicable {
		if m.IntrinsicValue < low {
			low = m.IntrinsicValue
		}
		if m.IntrinsicValue > high {
			high = m.IntrinsicValue
		}
		confidenceSum += m.Confidence
		distinct[m.Assessment] = true
	}

	findings.Consensus = ConsensusRange{
		Low:      low,
		Midpoint: (low + high) / 2,
		High:     high,
	}
	findings.OverallConfidence = confidenceSum / float64(len(applicable))

	switch len(distinct) {
	case 1:
		findings.MethodAgreement = AgreementStrong
	case 2:
		findings.MethodAgreement = AgreementModerate
	default:
		findings.MethodAgreement = AgreementDivergent
	}

	overall := Method{IntrinsicValue: findings.Consensus.Midpoint}
	classify(&overall, price)
	findings.OverallAssessment = overall.Assessment

	return findings
}
