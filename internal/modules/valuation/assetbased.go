package valuation

import (
	"github.com/tavendale/equity-council/internal/domain"
)

// assetBasedMethod values the security at tangible book value per share.
// Missing balance-sheet data or negative equity makes the method inapplicable
// without affecting the other methods.
func assetBasedMethod(fd *domain.FinancialData) Method {
	bs := fd.BalanceSheet
	if bs.TotalAssets == 0 && bs.TotalEquity == 0 {
		return unableToValue(MethodAssetBased, "balance sheet data unavailable")
	}
	if bs.TotalEquity < 0 {
		return unableToValue(MethodAssetBased, "negative equity")
	}

	tbvps := bs.TangibleBookValuePerShare
	if tbvps == 0 {
		tbvps = bs.BookValuePerShare
	}
	if tbvps == 0 && fd.Profile.DilutedSharesOutstanding > 0 {
		tbvps = bs.TotalEquity / fd.Profile.DilutedSharesOutstanding
	}
	if tbvps <= 0 {
		return unableToValue(MethodAssetBased, "tangible book value not derivable")
	}

	m := Method{
		Name:           MethodAssetBased,
		IntrinsicValue: tbvps,
		Confidence:     0.5,
		Assumptions:    []string{"intrinsic value equals tangible book value per share"},
		Limitations:    []string{"ignores going-concern earnings power"},
	}
	classify(&m, fd.Price.Current)
	return m
}
