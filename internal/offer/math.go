// Package offer derives accrual, progress and status from an offer snapshot.
// Every function here is total: degenerate inputs (zero rate, zero threshold,
// negative residuals) resolve to a defined number instead of an error.
package offer

import (
	"math"

	"offer-tracker/internal/domain"
	"offer-tracker/internal/money"
)

// Stats is the read-only projection shown next to an offer.
type Stats struct {
	Earned           float64 `json:"earned"`
	RemainCashback   float64 `json:"remainCashback"`
	RemainSpendToCap float64 `json:"remainSpendToCap"`
	Percent          float64 `json:"percent"`
}

// RecalcProgress recomputes CashbackEarned from TotalSpendTracked.
// Percentage offers with a non-positive rate come back unchanged.
func RecalcProgress(o domain.Offer) domain.Offer {
	switch o.Type {
	case domain.RewardThreshold:
		if o.SpendThreshold <= 0 {
			o.CashbackEarned = 0
			return o
		}
		o.CashbackEarned = thresholdEarned(o)
	default:
		if o.Rate <= 0 {
			return o
		}
		o.CashbackEarned = percentageEarned(o)
	}
	return o
}

// ComputeStats projects earned, remaining cashback, remaining spend before the
// cap stops accruing, and progress in [0,1].
func ComputeStats(o domain.Offer) Stats {
	if o.Type == domain.RewardThreshold {
		return thresholdStats(o)
	}
	return percentageStats(o)
}

// IsMaxedOut reports whether the offer has reached its cap or threshold, within
// money.Epsilon. Archived offers are never maxed.
func IsMaxedOut(o domain.Offer) bool {
	if o.Status == domain.StatusArchived {
		return false
	}
	if o.Type == domain.RewardThreshold {
		return money.Reached(o.TotalSpendTracked, o.SpendThreshold)
	}
	return money.Reached(o.CashbackEarned, o.CashbackCap)
}

// RemainingSpendToCap is the dollar spend left before the offer maxes out.
// Percentage offers without a positive rate never max out and report +Inf.
func RemainingSpendToCap(o domain.Offer) float64 {
	var target float64
	if o.Type == domain.RewardThreshold {
		target = o.SpendThreshold
	} else {
		if o.Rate <= 0 {
			return math.Inf(1)
		}
		target = o.CashbackCap / o.Rate
	}
	if money.Reached(o.TotalSpendTracked, target) {
		return 0
	}
	return nonNeg(money.Round(money.Gap(target, o.TotalSpendTracked)))
}

func spendCap(o domain.Offer) float64 {
	return o.CashbackCap / o.Rate
}

// percentageEarned expects Rate > 0.
func percentageEarned(o domain.Offer) float64 {
	effective := math.Min(o.TotalSpendTracked, spendCap(o))
	earned := money.Round(effective * o.Rate)
	earned = math.Min(earned, o.CashbackCap)
	if earned < 0 || math.IsNaN(earned) {
		return 0
	}
	return earned
}

// thresholdEarned expects SpendThreshold > 0. Payout is all or nothing.
func thresholdEarned(o domain.Offer) float64 {
	if o.TotalSpendTracked >= o.SpendThreshold {
		return o.RewardAmount
	}
	return 0
}

func percentageStats(o domain.Offer) Stats {
	if o.Rate <= 0 {
		return Stats{}
	}
	earned := percentageEarned(o)
	limit := spendCap(o)

	percent := 1.0
	if limit > 0 {
		percent = clamp01(o.TotalSpendTracked / limit)
	}
	return Stats{
		Earned:           earned,
		RemainCashback:   nonNeg(money.Round(money.Gap(o.CashbackCap, earned))),
		RemainSpendToCap: nonNeg(money.Round(money.Gap(limit, o.TotalSpendTracked))),
		Percent:          percent,
	}
}

func thresholdStats(o domain.Offer) Stats {
	if o.SpendThreshold <= 0 {
		return Stats{
			RemainCashback: o.RewardAmount,
		}
	}
	earned := thresholdEarned(o)
	return Stats{
		Earned:           earned,
		RemainCashback:   money.Round(money.Gap(o.RewardAmount, earned)),
		RemainSpendToCap: nonNeg(money.Round(money.Gap(o.SpendThreshold, o.TotalSpendTracked))),
		Percent:          clamp01(o.TotalSpendTracked / o.SpendThreshold),
	}
}

func nonNeg(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
