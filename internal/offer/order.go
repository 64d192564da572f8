package offer

import (
	"cmp"
	"slices"

	"offer-tracker/internal/domain"
)

var statusRank = map[domain.OfferStatus]int{
	domain.StatusActive:   0,
	domain.StatusMaxed:    1,
	domain.StatusExpired:  2,
	domain.StatusArchived: 3,
}

// Compare orders offers for display: by status rank, then soonest expiry,
// then least spend remaining to cap, then oldest first.
func Compare(a, b domain.Offer) int {
	if c := cmp.Compare(rank(a.Status), rank(b.Status)); c != 0 {
		return c
	}
	if c := a.ExpireAt.Compare(b.ExpireAt); c != 0 {
		return c
	}
	if c := cmp.Compare(RemainingSpendToCap(a), RemainingSpendToCap(b)); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Sort sorts offers in place with Compare.
func Sort(offers []domain.Offer) {
	slices.SortStableFunc(offers, Compare)
}

func rank(s domain.OfferStatus) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(statusRank)
}
