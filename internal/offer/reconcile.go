package offer

import (
	"math"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/money"
)

// ApplyManualEarned treats a hand-entered earned amount as authoritative for
// percentage offers: when it disagrees with the computed value by at least
// money.Epsilon, TotalSpendTracked is back-solved from it. Threshold offers and
// rate-less offers ignore the override. The second result reports whether the
// offer was changed.
func ApplyManualEarned(o domain.Offer, earned float64) (domain.Offer, bool) {
	if o.Type == domain.RewardThreshold || o.Rate <= 0 {
		return o, false
	}
	if math.IsNaN(earned) || math.IsInf(earned, 0) {
		return o, false
	}
	computed := RecalcProgress(o).CashbackEarned
	if math.Abs(money.Gap(earned, computed)) < money.Epsilon {
		return o, false
	}

	earned = math.Max(math.Min(earned, o.CashbackCap), 0)
	o.TotalSpendTracked = money.Round(earned / o.Rate)
	o.CashbackEarned = money.Round(earned)
	return o, true
}
