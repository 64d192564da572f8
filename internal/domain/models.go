// internal/domain/models.go
package domain

import "time"

type Issuer string

const (
	IssuerChase Issuer = "Chase"
	IssuerAmex  Issuer = "Amex"
	IssuerCiti  Issuer = "Citi"
	IssuerOther Issuer = "Other"
)

var Issuers = []Issuer{IssuerChase, IssuerAmex, IssuerCiti, IssuerOther}

type Category string

const (
	CategoryDining        Category = "dining"
	CategoryGroceries     Category = "groceries"
	CategoryGas           Category = "gas"
	CategoryTravel        Category = "travel"
	CategoryShopping      Category = "shopping"
	CategoryStreaming     Category = "streaming"
	CategoryEntertainment Category = "entertainment"
	CategoryDrugstores    Category = "drugstores"
	CategoryWholesale     Category = "wholesale"
	CategoryUtilities     Category = "utilities"
	CategoryOther         Category = "other"
)

var Categories = []Category{
	CategoryDining, CategoryGroceries, CategoryGas, CategoryTravel, CategoryShopping,
	CategoryStreaming, CategoryEntertainment, CategoryDrugstores, CategoryWholesale,
	CategoryUtilities, CategoryOther,
}

// RewardType selects the accrual formula of an offer.
type RewardType string

const (
	RewardPercentage RewardType = "percentage"
	RewardThreshold  RewardType = "threshold"
)

type OfferStatus string

const (
	StatusActive   OfferStatus = "active"
	StatusExpired  OfferStatus = "expired"
	StatusMaxed    OfferStatus = "maxed"
	StatusArchived OfferStatus = "archived"
)

// StatsID is the key of the single AppStats row.
const StatsID = "app"

type Card struct {
	ID        string    `json:"id"`
	Issuer    Issuer    `json:"issuer"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Offer is a card-linked reward offer. TotalSpendTracked and CashbackEarned are
// stored next to the inputs they are derived from.
type Offer struct {
	ID       string     `json:"id"`
	CardID   string     `json:"cardId"`
	Merchant string     `json:"merchant"`
	Note     string     `json:"note,omitempty"`
	Category Category   `json:"category"`
	Type     RewardType `json:"rewardType"`

	// percentage
	Rate        float64 `json:"rate"`
	CashbackCap float64 `json:"cashbackCap"`

	// threshold
	SpendThreshold float64 `json:"spendThreshold"`
	RewardAmount   float64 `json:"rewardAmount"`

	TotalSpendTracked float64 `json:"totalSpendTracked"`
	CashbackEarned    float64 `json:"cashbackEarned"`

	Status             OfferStatus `json:"status"`
	ArchivedAt         *time.Time  `json:"archivedAt,omitempty"`
	CreditedToLifetime bool        `json:"creditedToLifetime"`

	ExpireAt  time.Time `json:"expireAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SpendLog struct {
	ID        string    `json:"id"`
	OfferID   string    `json:"offerId"`
	Amount    float64   `json:"amount"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type AppStats struct {
	ID                     string    `json:"id"`
	LifetimeCashbackEarned float64   `json:"lifetimeCashbackEarned"`
	LastUpdatedAt          time.Time `json:"lastUpdatedAt"`
}

func ValidIssuer(s string) bool {
	for _, i := range Issuers {
		if string(i) == s {
			return true
		}
	}
	return false
}

func ValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

func ValidRewardType(s string) bool {
	return s == string(RewardPercentage) || s == string(RewardThreshold)
}
