package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"dormscout-backend/dao"
	"dormscout-backend/model"
	"dormscout-backend/pkg/metrics"
	"dormscout-backend/pkg/notify"
)

// EvaluateMatch reports the first wishlist entry the listing satisfies: the
// title contains the entry's item name (case-insensitive) and the price is
// within the entry's ceiling, where a zero ceiling means no limit.
func EvaluateMatch(listing model.Listing, wishlist []model.WishlistEntry) (model.WishlistEntry, bool) {
	title := strings.ToLower(listing.Title)
	for _, entry := range wishlist {
		if !strings.Contains(title, strings.ToLower(entry.ItemName)) {
			continue
		}
		if entry.MaxPrice.IsZero() || listing.Price.LessThanOrEqual(entry.MaxPrice) {
			return entry, true
		}
	}
	return model.WishlistEntry{}, false
}

type MatchUsecase struct {
	userRepo *dao.UserRepository
	notifier notify.Notifier
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewMatchUsecase(userRepo *dao.UserRepository, notifier notify.Notifier, ttl time.Duration, logger *zap.Logger) *MatchUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchUsecase{
		userRepo: userRepo,
		notifier: notifier,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// NotifyMatches checks the listing against every stored wishlist and emits one
// toast per matching user. Delivery failures are logged and do not fail the call.
func (u *MatchUsecase) NotifyMatches(ctx context.Context, listing model.Listing) ([]model.WishlistMatch, error) {
	profiles, err := u.userRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var matches []model.WishlistMatch
	for _, p := range profiles {
		if len(p.Wishlist) == 0 {
			continue
		}
		entry, ok := EvaluateMatch(listing, p.Wishlist)
		if !ok {
			continue
		}
		now := u.now()
		match := model.WishlistMatch{
			ID:           newID(),
			UserID:       p.ID,
			EntryID:      entry.ID,
			ItemName:     entry.ItemName,
			ListingID:    listing.ID,
			ListingTitle: listing.Title,
			Price:        listing.Price,
			CreatedAt:    now,
			ExpiresAt:    now.Add(u.ttl),
		}
		matches = append(matches, match)
		metrics.WishlistMatches.Inc()

		if u.notifier == nil {
			continue
		}
		if err := u.notifier.Notify(ctx, match); err != nil {
			u.logger.Warn("wishlist match notification failed",
				zap.String("user_id", p.ID),
				zap.String("listing_id", listing.ID),
				zap.Error(err))
		}
	}
	return matches, nil
}
