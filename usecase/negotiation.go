package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dormscout-backend/dao"
	"dormscout-backend/model"
	"dormscout-backend/pkg/gemini"
	"dormscout-backend/pkg/metrics"
)

// ChatAgent opens a stateful conversation with the negotiation agent.
type ChatAgent interface {
	StartChat(ctx context.Context, systemPrompt string, tools []gemini.Tool) (gemini.Session, error)
}

type PaymentFinalization struct {
	Method        model.PaymentMethod `json:"method"`
	Amount        int64               `json:"amount"`
	Instructions  string              `json:"instructions"`
	UPIURI        string              `json:"upi_uri,omitempty"`
	TransactionID string              `json:"transaction_id,omitempty"`
	SellerQR      string              `json:"seller_qr,omitempty"`
	BusySlots     []string            `json:"busy_slots,omitempty"`
}

// NegotiationView is a snapshot of one session.
type NegotiationView struct {
	ID            string                 `json:"id"`
	ListingID     string                 `json:"listing_id"`
	UserID        string                 `json:"user_id"`
	Phase         model.NegotiationPhase `json:"phase"`
	Transcript    []model.Turn           `json:"transcript"`
	AgreedPrice   *int64                 `json:"agreed_price,omitempty"`
	PaymentMethod *model.PaymentMethod   `json:"payment_method,omitempty"`
	Payment       *PaymentFinalization   `json:"payment,omitempty"`
	OpeningError  string                 `json:"opening_error,omitempty"`
}

type negotiationSession struct {
	mu sync.Mutex

	id      string
	listing model.Listing
	user    model.UserProfile
	chat    gemini.Session

	transcript   []model.Turn
	phase        model.NegotiationPhase
	agreedPrice  *int64
	payment      *PaymentFinalization
	openingError string
	inFlight     bool
	closed       bool
}

func (s *negotiationSession) view() *NegotiationView {
	v := &NegotiationView{
		ID:           s.id,
		ListingID:    s.listing.ID,
		UserID:       s.user.ID,
		Phase:        s.phase,
		Transcript:   append([]model.Turn{}, s.transcript...),
		OpeningError: s.openingError,
	}
	if s.agreedPrice != nil {
		p := *s.agreedPrice
		v.AgreedPrice = &p
	}
	if s.payment != nil {
		pay := *s.payment
		v.Payment = &pay
		v.PaymentMethod = &pay.Method
	}
	return v
}

type NegotiationUsecase struct {
	agent       ChatAgent
	parser      PriceParser
	listingRepo *dao.ListingRepository
	userRepo    *dao.UserRepository
	upiPayee    string
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*negotiationSession
	// joined holds the users already counted on each listing's interest counter.
	joined map[string]map[string]struct{}
}

func NewNegotiationUsecase(agent ChatAgent, parser PriceParser, listingRepo *dao.ListingRepository, userRepo *dao.UserRepository, upiPayee string, logger *zap.Logger) *NegotiationUsecase {
	if parser == nil {
		parser = MarkerParser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NegotiationUsecase{
		agent:       agent,
		parser:      parser,
		listingRepo: listingRepo,
		userRepo:    userRepo,
		upiPayee:    upiPayee,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*negotiationSession),
		joined:      make(map[string]map[string]struct{}),
	}
}

// Start opens a fresh session for the user on the listing. Any session the
// user still has open on the same listing is closed first.
func (u *NegotiationUsecase) Start(ctx context.Context, userID, listingID string) (*NegotiationView, error) {
	if u.agent == nil {
		return nil, fmt.Errorf("%w: no negotiation agent configured", ErrServiceUnavailable)
	}
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	listing, err := u.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}

	chat, err := u.agent.StartChat(ctx, NegotiationDirective(user.Persona, user.BudgetLimit), u.tools(*user, *listing))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	s := &negotiationSession{
		id:       newID(),
		listing:  *listing,
		user:     *user,
		chat:     chat,
		phase:    model.PhaseChatting,
		inFlight: true,
	}
	u.register(s)
	metrics.NegotiationsStarted.Inc()

	// The opening prompt reports rivals only, so a returning user is taken
	// back off the count it already contributes to.
	rivals := *listing
	if u.markJoined(listing.ID, user.ID) {
		if _, err := u.listingRepo.Update(ctx, listing.ID, joinInterest); err != nil {
			u.logger.Warn("interest counter not updated", zap.String("listing_id", listing.ID), zap.Error(err))
		}
	} else {
		leaveInterest(&rivals)
	}

	reply, err := chat.Send(ctx, OpeningPrompt(rivals))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if s.closed {
		return nil, ErrSessionClosed
	}
	if err != nil {
		metrics.NegotiationTurnFailures.Inc()
		u.logger.Warn("opening turn failed, session kept for retry",
			zap.String("session_id", s.id),
			zap.Bool("transient", gemini.IsTransient(err)),
			zap.Error(err))
		s.openingError = ErrServiceUnavailable.Error()
		return s.view(), nil
	}
	if strings.TrimSpace(reply) == "" {
		reply = fmt.Sprintf("Hello! I'm Arbitrator. I see ₹%s for %q. Let's discuss.", listing.Price.String(), listing.Title)
	}
	s.transcript = append(s.transcript, u.turn(model.SenderAgent, reply))
	agreed := u.applyReply(s, reply)
	view := s.view()
	if agreed {
		u.raiseBid(ctx, s.listing.ID, *s.agreedPrice)
	}
	return view, nil
}

func (u *NegotiationUsecase) register(s *negotiationSession) {
	u.mu.Lock()
	var stale []*negotiationSession
	for id, other := range u.sessions {
		if other.user.ID == s.user.ID && other.listing.ID == s.listing.ID {
			stale = append(stale, other)
			delete(u.sessions, id)
		}
	}
	u.sessions[s.id] = s
	u.mu.Unlock()

	for _, other := range stale {
		other.mu.Lock()
		other.closed = true
		other.mu.Unlock()
	}
}

// markJoined reports whether this is the user's first negotiation on the listing.
func (u *NegotiationUsecase) markJoined(listingID, userID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	users, ok := u.joined[listingID]
	if !ok {
		users = make(map[string]struct{})
		u.joined[listingID] = users
	}
	if _, seen := users[userID]; seen {
		return false
	}
	users[userID] = struct{}{}
	return true
}

func (u *NegotiationUsecase) session(id string) (*negotiationSession, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.sessions[id]
	if !ok {
		return nil, fmt.Errorf("negotiation %s: %w", id, ErrNotFound)
	}
	return s, nil
}

func (u *NegotiationUsecase) Get(_ context.Context, id string) (*NegotiationView, error) {
	s, err := u.session(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// Send forwards the counterparty's message and records both turns once the
// agent replies. A failed call records nothing.
func (u *NegotiationUsecase) Send(ctx context.Context, id, text string) (*NegotiationView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("text", "must not be empty")
	}
	s, err := u.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	case s.phase != model.PhaseChatting:
		s.mu.Unlock()
		return nil, ErrInvalidPhase
	case s.inFlight:
		s.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	s.inFlight = true
	sent := u.turn(model.SenderCounterparty, text)
	s.mu.Unlock()

	reply, err := s.chat.Send(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if s.closed {
		u.logger.Info("discarding reply for closed session", zap.String("session_id", s.id))
		return nil, ErrSessionClosed
	}
	if err != nil {
		metrics.NegotiationTurnFailures.Inc()
		u.logger.Warn("agent turn dropped",
			zap.String("session_id", s.id),
			zap.Bool("transient", gemini.IsTransient(err)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	s.openingError = ""
	s.transcript = append(s.transcript, sent, u.turn(model.SenderAgent, reply))
	agreed := u.applyReply(s, reply)
	view := s.view()
	if agreed {
		u.raiseBid(ctx, s.listing.ID, *s.agreedPrice)
	}
	return view, nil
}

// applyReply moves Chatting to Agreed on the first well-formed marker.
// Callers hold s.mu.
func (u *NegotiationUsecase) applyReply(s *negotiationSession, reply string) bool {
	if s.phase != model.PhaseChatting {
		return false
	}
	ext := u.parser.Parse(reply)
	switch ext.Status {
	case Agreed:
		price := ext.Price
		s.agreedPrice = &price
		s.phase = model.PhaseAgreed
		metrics.NegotiationAgreements.Inc()
		u.logger.Info("negotiation agreed", zap.String("session_id", s.id), zap.Int64("price", price))
		return true
	case Malformed:
		u.logger.Warn("agent reply ignored", zap.String("session_id", s.id), zap.Error(ErrProtocolMismatch))
	}
	return false
}

func (u *NegotiationUsecase) raiseBid(ctx context.Context, listingID string, price int64) {
	bid := decimal.NewFromInt(price)
	_, err := u.listingRepo.Update(ctx, listingID, func(l *model.Listing) error {
		if l.HighestBid == nil || bid.GreaterThan(*l.HighestBid) {
			l.HighestBid = &bid
		}
		return nil
	})
	if err != nil {
		u.logger.Warn("highest bid not updated", zap.String("listing_id", listingID), zap.Error(err))
	}
}

// joinInterest counts the negotiator on the side opposite the poster.
func joinInterest(l *model.Listing) error {
	if l.Kind == model.ListingBuy {
		l.InterestedSellersCount++
	} else {
		l.InterestedBuyersCount++
	}
	return nil
}

func leaveInterest(l *model.Listing) {
	if l.Kind == model.ListingBuy {
		l.InterestedSellersCount = max(l.InterestedSellersCount-1, 0)
	} else {
		l.InterestedBuyersCount = max(l.InterestedBuyersCount-1, 0)
	}
}

// ChoosePayment moves Agreed to Payment and records the deal on the user.
func (u *NegotiationUsecase) ChoosePayment(ctx context.Context, id string, method model.PaymentMethod) (*NegotiationView, error) {
	if !method.Valid() {
		return nil, invalid("method", "must be UPI or Cash")
	}
	s, err := u.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.phase != model.PhaseAgreed {
		return nil, ErrInvalidPhase
	}

	fin := u.finalize(ctx, s, method)
	deal := model.Deal{
		ID:            newID(),
		ItemTitle:     s.listing.Title,
		FinalPrice:    decimal.NewFromInt(fin.Amount),
		Date:          u.now(),
		Type:          model.DealBought,
		PartnerName:   u.partnerName(ctx, s.listing.SellerID),
		PaymentMethod: method,
	}
	if s.listing.Kind == model.ListingBuy {
		deal.Type = model.DealSold
	}
	updated, err := u.userRepo.Update(ctx, s.user.ID, func(p *model.UserProfile) error {
		p.CompletedDeals = append(p.CompletedDeals, deal)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("user %s: %w", s.user.ID, ErrNotFound)
	}

	s.payment = &fin
	s.phase = model.PhasePayment
	metrics.Payments.WithLabelValues(string(method)).Inc()
	u.logger.Info("negotiation finalized",
		zap.String("session_id", s.id),
		zap.String("method", string(method)),
		zap.Int64("amount", fin.Amount))
	return s.view(), nil
}

func (u *NegotiationUsecase) partnerName(ctx context.Context, sellerID string) string {
	p, err := u.userRepo.GetByID(ctx, sellerID)
	if err != nil || p == nil || p.Name == "" {
		return sellerID
	}
	return p.Name
}

func (u *NegotiationUsecase) finalize(ctx context.Context, s *negotiationSession, method model.PaymentMethod) PaymentFinalization {
	amount := *s.agreedPrice
	if method == model.PaymentCash {
		return PaymentFinalization{
			Method:       method,
			Amount:       amount,
			Instructions: fmt.Sprintf("Coordinate a meeting for Cash Exchange of ₹%d", amount),
			BusySlots:    append([]string{}, s.user.Calendar...),
		}
	}
	txn := TransactionID()
	fin := PaymentFinalization{
		Method:        method,
		Amount:        amount,
		Instructions:  fmt.Sprintf("Scan the Seller's QR Code below to pay ₹%d", amount),
		UPIURI:        UPIURI(u.upiPayee, amount, txn),
		TransactionID: txn,
	}
	if seller, err := u.userRepo.GetByID(ctx, s.listing.SellerID); err == nil && seller != nil {
		fin.SellerQR = seller.UPIQR
	}
	return fin
}

// Close discards the session. A reply still in flight is dropped when it lands.
func (u *NegotiationUsecase) Close(_ context.Context, id string) error {
	u.mu.Lock()
	s, ok := u.sessions[id]
	delete(u.sessions, id)
	u.mu.Unlock()
	if !ok {
		return fmt.Errorf("negotiation %s: %w", id, ErrNotFound)
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (u *NegotiationUsecase) turn(sender model.TurnSender, text string) model.Turn {
	return model.Turn{ID: newID(), Sender: sender, Text: text, Timestamp: u.now()}
}
