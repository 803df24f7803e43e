package valuation

// Assessment categorizes a method's view of the current price.
type Assessment string

const (
	Undervalued   Assessment = "UNDERVALUED"
	Overvalued    Assessment = "OVERVALUED"
	FairlyValued  Assessment = "FAIRLY_VALUED"
	UnableToValue Assessment = "UNABLE_TO_VALUE"
)

// Agreement describes how closely the applicable methods agree.
type Agreement string

const (
	AgreementStrong    Agreement = "STRONG"
	AgreementModerate  Agreement = "MODERATE"
	AgreementDivergent Agreement = "DIVERGENT"
	AgreementWeak      Agreement = "WEAK"
)

// MethodName identifies one of the fixed valuation methods.
type MethodName string

const (
	MethodDCF        MethodName = "DCF"
	MethodComparable MethodName = "COMPARABLE"
	MethodDDM        MethodName = "DDM"
	MethodAssetBased MethodName = "ASSET_BASED"
)

// Method is the outcome of a single valuation method.
type Method struct {
	Name           MethodName `json:"name"`
	IntrinsicValue float64    `json:"intrinsicValue"`
	UpsidePercent  float64    `json:"upsidePercent"`
	Assessment     Assessment `json:"assessment"`
	Confidence     float64    `json:"confidence"` // 0..1
	Assumptions    []string   `json:"assumptions,omitempty"`
	Limitations    []string   `json:"limitations,omitempty"`
}

// ConsensusRange brackets the applicable methods' intrinsic values.
// The midpoint is the mean of the two bounds, not of all methods: methods can
// diverge by orders of magnitude under noisy inputs, and the bracket is meant
// to communicate that spread rather than hide it.
type ConsensusRange struct {
	Low      float64 `json:"low"`
	Midpoint float64 `json:"midpoint"`
	High     float64 `json:"high"`
}

// Findings aggregates all valuation methods for one security.
type Findings struct {
	Symbol            string         `json:"symbol"`
	CurrentPrice      float64        `json:"currentPrice"`
	Methods           []Method       `json:"methods"`
	Consensus         ConsensusRange `json:"consensus"`
	MethodAgreement   Agreement      `json:"methodAgreement"`
	OverallAssessment Assessment     `json:"overallAssessment"`
	OverallConfidence float64        `json:"overallConfidence"`
}

// upside thresholds shared by every method's classification.
const (
	undervaluedThreshold = 20.0
	overvaluedThreshold  = -20.0
)

// classify applies the shared assessment thresholds. A non-positive intrinsic
// value forces UNABLE_TO_VALUE with zero confidence.
func classify(m *Method, price float64) {
	if m.IntrinsicValue <= 0 || price <= 0 {
		m.Assessment = UnableToValue
		m.Confidence = 0
		return
	}
	m.UpsidePercent = (m.IntrinsicValue - price) / price * 100
	switch {
	case m.UpsidePercent > undervaluedThreshold:
		m.Assessment = Undervalued
	case m.UpsidePercent < overvaluedThreshold:
		m.Assessment = Overvalued
	default:
		m.Assessment = FairlyValued
	}
}

// unableToValue builds a terminal method result with the given limitation.
func unableToValue(name MethodName, limitation string) Method {
	return Method{
		Name:        name,
		Assessment:  UnableToValue,
		Confidence:  0,
		Limitations: []string{limitation},
	}
}
