package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Persona string

const (
	PersonaSavvySaver  Persona = "SAVVY_SAVER"
	PersonaSpeedSeeker Persona = "SPEED_SEEKER"
)

func (p Persona) Valid() bool {
	return p == PersonaSavvySaver || p == PersonaSpeedSeeker
}

type Theme string

const (
	ThemeDark     Theme = "dark"
	ThemeMidnight Theme = "midnight"
	ThemeEmerald  Theme = "emerald"
	ThemeCrimson  Theme = "crimson"
	ThemeLight    Theme = "light"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeDark, ThemeMidnight, ThemeEmerald, ThemeCrimson, ThemeLight:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentUPI  PaymentMethod = "UPI"
	PaymentCash PaymentMethod = "Cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentUPI || m == PaymentCash
}

type WishlistEntry struct {
	ID       string          `json:"id"`
	ItemName string          `json:"item_name"`
	MaxPrice decimal.Decimal `json:"max_price"` // 0 = no ceiling
}

type DealType string

const (
	DealBought DealType = "bought"
	DealSold   DealType = "sold"
)

// Deal is append-only history; never mutated once recorded.
type Deal struct {
	ID            string          `json:"id"`
	ItemTitle     string          `json:"item_title"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	Date          time.Time       `json:"date"`
	Type          DealType        `json:"type"`
	PartnerName   string          `json:"partner_name"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

type UserProfile struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Course         string          `json:"course"`
	CampusID       string          `json:"campus_id"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	BudgetLimit    decimal.Decimal `json:"budget_limit"`
	Persona        Persona         `json:"vibe"`
	Calendar       []string        `json:"calendar"`
	CompletedDeals []Deal          `json:"completed_deals"`
	Wishlist       []WishlistEntry `json:"wishlist"`
	Theme          Theme           `json:"theme"`
	UPIQR          string          `json:"upi_qr,omitempty"`
}

// Account is the registry record; Credential never leaves the dao package.
type Account struct {
	UserProfile
	Credential string `json:"credential,omitempty"`
}

// WishlistMatch is the toast payload fired when a new listing satisfies a standing want.
type WishlistMatch struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	EntryID      string          `json:"entry_id"`
	ItemName     string          `json:"item_name"`
	ListingID    string          `json:"listing_id"`
	ListingTitle string          `json:"listing_title"`
	Price        decimal.Decimal `json:"price"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
}
