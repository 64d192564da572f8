package offer

import (
	"time"

	"offer-tracker/internal/domain"
)

// ComputeStatus derives the status an offer should have at now.
// Precedence: archived > expired > maxed > active.
func ComputeStatus(o domain.Offer, now time.Time) domain.OfferStatus {
	switch {
	case o.Status == domain.StatusArchived:
		return domain.StatusArchived
	case now.After(o.ExpireAt):
		return domain.StatusExpired
	case IsMaxedOut(o):
		return domain.StatusMaxed
	default:
		return domain.StatusActive
	}
}

// Normalize returns the offer with its status re-derived at now and whether
// the status changed. Archived offers and already-normalized offers are
// returned untouched, so the caller only persists when changed is true.
func Normalize(o domain.Offer, now time.Time) (domain.Offer, bool) {
	if o.Status == domain.StatusArchived {
		return o, false
	}
	next := ComputeStatus(o, now)
	if next == o.Status {
		return o, false
	}
	o.Status = next
	return o, true
}
