package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ListingKind string

const (
	ListingSell ListingKind = "WTS" // want to sell
	ListingBuy  ListingKind = "WTB" // want to buy
)

func (k ListingKind) Valid() bool {
	return k == ListingSell || k == ListingBuy
}

func ParseListingKind(s string) (ListingKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WTS", "SELL":
		return ListingSell, true
	case "WTB", "BUY":
		return ListingBuy, true
	default:
		return "", false
	}
}

type Listing struct {
	ID                     string           `json:"id"`
	Title                  string           `json:"title"`
	Price                  decimal.Decimal  `json:"price"`
	Description            string           `json:"description"`
	Category               string           `json:"category"`
	Kind                   ListingKind      `json:"type"`
	Source                 string           `json:"source"`
	SellerID               string           `json:"seller_id"`
	IsVerified             bool             `json:"is_verified"`
	InterestedBuyersCount  int              `json:"interested_buyers_count"`
	InterestedSellersCount int              `json:"interested_sellers_count"`
	HighestBid             *decimal.Decimal `json:"highest_bid,omitempty"` // Nullable
	Image                  string           `json:"image,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
}

// CompetingInterest is the number of other people on the same side as a new negotiator.
func (l Listing) CompetingInterest() int {
	if l.Kind == ListingBuy {
		return l.InterestedSellersCount
	}
	return l.InterestedBuyersCount
}

// ListingDraft is the unvalidated form input for a new listing.
// Price is kept as typed so a non-numeric value can be reported instead of defaulted.
type ListingDraft struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Kind        string `json:"type"`
	SellerID    string `json:"seller_id"`
}

type Image struct {
	MIMEType string
	Data     []byte
	// Ref is what gets stored on the listing (the original data URL).
	Ref string
}

type MessageClass string

const (
	MessageWTS   MessageClass = "WTS"
	MessageWTB   MessageClass = "WTB"
	MessageNoise MessageClass = "NOISE"
)
