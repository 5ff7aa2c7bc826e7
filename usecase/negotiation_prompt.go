package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dormscout-backend/model"
	"dormscout-backend/pkg/gemini"
)

const (
	calendarTool  = "check_user_calendar"
	benchmarkTool = "get_market_price_benchmark"
)

func personaLabel(p model.Persona) string {
	switch p {
	case model.PersonaSpeedSeeker:
		return "Speed Seeker"
	default:
		return "Savvy Saver"
	}
}

func personaGuidance(p model.Persona) string {
	if p == model.PersonaSpeedSeeker {
		return "Focus on closing fast. Accept a minor discount if it gets the deal done quickly."
	}
	return "Push for a 20-30% discount and counter-offer firmly before conceding."
}

// NegotiationDirective is the system prompt binding the agent to the user's
// persona and budget. The budget is advisory to the agent only.
func NegotiationDirective(persona model.Persona, budget decimal.Decimal) string {
	return fmt.Sprintf(`You are "Arbitrator", an autonomous marketplace negotiator for DormScout.
Negotiate the best deal in Rupees (₹) for your user.
User personality: %s.
Strict budget limit: ₹%s. NEVER commit to a price above this.

Rules:
1. Open with interest in the item.
2. Ask about condition and wear.
3. %s
4. If other people are interested or there is a highest bid, tell the user about the bidding status.
5. Use %q when a meeting time is mentioned and %q to compare the asking price with campus prices.
6. Be polite but firm.
7. When both sides agree on a price, finish your reply with "%s <integer>".`,
		personaLabel(persona), budget.String(), personaGuidance(persona), calendarTool, benchmarkTool, agreedPriceMarker)
}

// OpeningPrompt asks the agent for its first message about the listing.
func OpeningPrompt(l model.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Initiate contact for the item: %q priced at ₹%s in the campus dorm.\n", l.Title, l.Price.String())
	fmt.Fprintf(&b, "Note: %d others are interested.", l.CompetingInterest())
	if l.HighestBid != nil {
		fmt.Fprintf(&b, " Highest bid is ₹%s.", l.HighestBid.String())
	}
	b.WriteString("\nNegotiate a fair deal or bid if necessary.")
	return b.String()
}

func (u *NegotiationUsecase) tools(user model.UserProfile, listing model.Listing) []gemini.Tool {
	return []gemini.Tool{
		{
			Name:             calendarTool,
			Description:      "Checks if the user is free at a specific time for a meetup.",
			Param:            "proposedTime",
			ParamDescription: `The date and time being proposed, e.g., "Tomorrow at 4 PM" or "2023-11-01 14:00".`,
			Call: func(_ context.Context, proposed string) (map[string]any, error) {
				return CheckCalendar(user.Calendar, proposed), nil
			},
		},
		{
			Name:             benchmarkTool,
			Description:      "Retrieves historical sales data for an item to determine if a price is fair.",
			Param:            "itemName",
			ParamDescription: "The name or model of the item.",
			Call: func(ctx context.Context, itemName string) (map[string]any, error) {
				all, err := u.listingRepo.GetAll(ctx)
				if err != nil {
					return nil, err
				}
				return Benchmark(all, itemName, listing.Price), nil
			},
		},
	}
}

// CheckCalendar treats each calendar entry as a busy slot and reports a
// conflict when the proposal and a slot mention each other.
func CheckCalendar(busy []string, proposed string) map[string]any {
	p := strings.ToLower(strings.TrimSpace(proposed))
	conflicts := []any{}
	for _, slot := range busy {
		s := strings.ToLower(strings.TrimSpace(slot))
		if s == "" || p == "" {
			continue
		}
		if strings.Contains(p, s) || strings.Contains(s, p) {
			conflicts = append(conflicts, slot)
		}
	}
	return map[string]any{
		"proposedTime": proposed,
		"available":    len(conflicts) == 0,
		"conflicts":    conflicts,
	}
}

// Benchmark summarizes campus listings whose title contains itemName and
// labels asking against their average.
func Benchmark(listings []model.Listing, itemName string, asking decimal.Decimal) map[string]any {
	name := strings.ToLower(strings.TrimSpace(itemName))
	var prices []decimal.Decimal
	for _, l := range listings {
		if name != "" && strings.Contains(strings.ToLower(l.Title), name) {
			prices = append(prices, l.Price)
		}
	}
	if len(prices) == 0 {
		return map[string]any{"itemName": itemName, "count": 0, "note": "no comparable campus listings"}
	}
	avg := decimal.Avg(prices[0], prices[1:]...)
	label := "Average"
	switch {
	case asking.LessThanOrEqual(avg.Mul(decimal.NewFromFloat(0.9))):
		label = "Good"
	case asking.GreaterThan(avg.Mul(decimal.NewFromFloat(1.1))):
		label = "Overpriced"
	}
	return map[string]any{
		"itemName":  itemName,
		"count":     len(prices),
		"average":   avg.Round(2).InexactFloat64(),
		"min":       decimal.Min(prices[0], prices[1:]...).InexactFloat64(),
		"max":       decimal.Max(prices[0], prices[1:]...).InexactFloat64(),
		"asking":    asking.InexactFloat64(),
		"benchmark": label,
	}
}

// UPIURI builds the payment link rendered as a QR code.
func UPIURI(payee string, amount int64, txn string) string {
	q := url.Values{}
	q.Set("pa", payee)
	q.Set("pn", "DormScout")
	q.Set("am", strconv.FormatInt(amount, 10))
	q.Set("cu", "INR")
	q.Set("tr", txn)
	return "upi://pay?" + q.Encode()
}

func TransactionID() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "DORM-SCOUT-" + id[:9]
}
