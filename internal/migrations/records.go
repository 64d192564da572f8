package migrations

import (
	"time"

	"offer-tracker/internal/domain"
)

// OfferRecord is an offer as it may exist at any schema version. Nil means the
// field is absent from the stored record.
type OfferRecord struct {
	ID                 string     `json:"id"`
	CardID             *string    `json:"cardId,omitempty"`
	Merchant           *string    `json:"merchant,omitempty"`
	Note               *string    `json:"note,omitempty"`
	Category           *string    `json:"category,omitempty"`
	RewardType         *string    `json:"rewardType,omitempty"`
	Rate               *float64   `json:"rate,omitempty"`
	CashbackCap        *float64   `json:"cashbackCap,omitempty"`
	SpendThreshold     *float64   `json:"spendThreshold,omitempty"`
	RewardAmount       *float64   `json:"rewardAmount,omitempty"`
	TotalSpendTracked  *float64   `json:"totalSpendTracked,omitempty"`
	CashbackEarned     *float64   `json:"cashbackEarned,omitempty"`
	Status             *string    `json:"status,omitempty"`
	ArchivedAt         *time.Time `json:"archivedAt,omitempty"`
	CreditedToLifetime *bool      `json:"creditedToLifetime,omitempty"`
	ExpireAt           *time.Time `json:"expireAt,omitempty"`
	CreatedAt          *time.Time `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
}

// BackfillOfferV2 introduces the lifecycle fields.
func BackfillOfferV2(r OfferRecord) OfferRecord {
	if r.Status == nil || *r.Status == "" {
		r.Status = ptr(string(domain.StatusActive))
	}
	if r.CreditedToLifetime == nil {
		r.CreditedToLifetime = ptr(false)
	}
	return r
}

// BackfillOfferV3 introduces reward types. Untyped offers become percentage
// offers; reward amount and spend threshold are derived from the cap.
func BackfillOfferV3(r OfferRecord) OfferRecord {
	if r.RewardType == nil || *r.RewardType == "" {
		r.RewardType = ptr(string(domain.RewardPercentage))
	}

	switch domain.RewardType(*r.RewardType) {
	case domain.RewardPercentage:
		if r.RewardAmount == nil && r.CashbackCap != nil {
			r.RewardAmount = ptr(*r.CashbackCap)
		}
		if r.SpendThreshold == nil && r.CashbackCap != nil && r.Rate != nil && *r.Rate > 0 {
			r.SpendThreshold = ptr(*r.CashbackCap / *r.Rate)
		}
	case domain.RewardThreshold:
		if r.RewardAmount == nil && r.CashbackCap != nil {
			r.RewardAmount = ptr(*r.CashbackCap)
		}
		if r.SpendThreshold == nil {
			r.SpendThreshold = ptr(0.0)
		}
	}
	return r
}

// UpgradeOffer runs every backfill newer than from, in order.
func UpgradeOffer(r OfferRecord, from int64) OfferRecord {
	for _, s := range steps {
		if s.version > from && s.offer != nil {
			r = s.offer(r)
		}
	}
	return r
}

// Offer converts an upgraded record into the current domain shape.
func (r OfferRecord) Offer() domain.Offer {
	o := domain.Offer{
		ID:                 r.ID,
		CardID:             deref(r.CardID),
		Merchant:           deref(r.Merchant),
		Note:               deref(r.Note),
		Category:           domain.Category(deref(r.Category)),
		Type:               domain.RewardType(deref(r.RewardType)),
		Rate:               deref(r.Rate),
		CashbackCap:        deref(r.CashbackCap),
		SpendThreshold:     deref(r.SpendThreshold),
		RewardAmount:       deref(r.RewardAmount),
		TotalSpendTracked:  deref(r.TotalSpendTracked),
		CashbackEarned:     deref(r.CashbackEarned),
		Status:             domain.OfferStatus(deref(r.Status)),
		CreditedToLifetime: deref(r.CreditedToLifetime),
		ExpireAt:           deref(r.ExpireAt),
		CreatedAt:          deref(r.CreatedAt),
		UpdatedAt:          deref(r.UpdatedAt),
	}
	if r.ArchivedAt != nil {
		at := *r.ArchivedAt
		o.ArchivedAt = &at
	}
	return o
}

// RecordFromOffer is the inverse of OfferRecord.Offer for current-version offers.
func RecordFromOffer(o domain.Offer) OfferRecord {
	r := OfferRecord{
		ID:                 o.ID,
		CardID:             ptr(o.CardID),
		Merchant:           ptr(o.Merchant),
		Category:           ptr(string(o.Category)),
		RewardType:         ptr(string(o.Type)),
		Rate:               ptr(o.Rate),
		CashbackCap:        ptr(o.CashbackCap),
		SpendThreshold:     ptr(o.SpendThreshold),
		RewardAmount:       ptr(o.RewardAmount),
		TotalSpendTracked:  ptr(o.TotalSpendTracked),
		CashbackEarned:     ptr(o.CashbackEarned),
		Status:             ptr(string(o.Status)),
		CreditedToLifetime: ptr(o.CreditedToLifetime),
		ExpireAt:           ptr(o.ExpireAt),
		CreatedAt:          ptr(o.CreatedAt),
		UpdatedAt:          ptr(o.UpdatedAt),
	}
	if o.Note != "" {
		r.Note = ptr(o.Note)
	}
	if o.ArchivedAt != nil {
		r.ArchivedAt = ptr(*o.ArchivedAt)
	}
	return r
}

func ptr[T any](v T) *T {
	return &v
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
