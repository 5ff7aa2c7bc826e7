package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dormscout-backend/dao"
	"dormscout-backend/model"
	"dormscout-backend/pkg/metrics"
)

const (
	defaultCategory = "Electronics"
	localSource     = "Local"
)

type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, img model.Image, description string) (string, error)
}

type MessageClassifier interface {
	ClassifyMessage(ctx context.Context, text string) (model.MessageClass, error)
}

type ListingUsecase struct {
	listingRepo *dao.ListingRepository
	analyzer    ImageAnalyzer
	classifier  MessageClassifier
	matcher     *MatchUsecase
	logger      *zap.Logger
}

func NewListingUsecase(listingRepo *dao.ListingRepository, analyzer ImageAnalyzer, classifier MessageClassifier, matcher *MatchUsecase, logger *zap.Logger) *ListingUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingUsecase{
		listingRepo: listingRepo,
		analyzer:    analyzer,
		classifier:  classifier,
		matcher:     matcher,
		logger:      logger,
	}
}

func (u *ListingUsecase) GetAll(ctx context.Context) ([]model.Listing, error) {
	return u.listingRepo.GetAll(ctx)
}

func (u *ListingUsecase) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	listing, err := u.listingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrNotFound
	}
	return listing, nil
}

// ValidateDraft turns form input into a listing skeleton without touching
// the store or any remote service.
func ValidateDraft(draft model.ListingDraft) (model.Listing, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return model.Listing{}, invalid("title", "must not be empty")
	}
	rawPrice := strings.TrimSpace(draft.Price)
	if rawPrice == "" {
		return model.Listing{}, invalid("price", "is required")
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return model.Listing{}, invalid("price", strconv.Quote(rawPrice)+" is not a number")
	}
	if price.IsNegative() {
		return model.Listing{}, invalid("price", "must not be negative")
	}
	kind, ok := model.ParseListingKind(draft.Kind)
	if !ok {
		return model.Listing{}, invalid("type", "must be WTS or WTB")
	}
	if strings.TrimSpace(draft.SellerID) == "" {
		return model.Listing{}, invalid("seller_id", "must not be empty")
	}
	category := strings.TrimSpace(draft.Category)
	if category == "" {
		category = defaultCategory
	}
	return model.Listing{
		Title:       title,
		Price:       price,
		Description: strings.TrimSpace(draft.Description),
		Category:    category,
		Kind:        kind,
		Source:      localSource,
		SellerID:    strings.TrimSpace(draft.SellerID),
	}, nil
}

// CreateListing validates the draft, runs the image gate for sell listings,
// prepends the listing to the shared collection and fires wishlist matches.
func (u *ListingUsecase) CreateListing(ctx context.Context, draft model.ListingDraft, img *model.Image) (*model.Listing, error) {
	listing, err := ValidateDraft(draft)
	if err != nil {
		return nil, err
	}

	listing.ID = newID()
	listing.CreatedAt = time.Now()
	if img != nil {
		listing.Image = img.Ref
	}
	if listing.Kind == model.ListingSell {
		listing.InterestedSellersCount = 1
	} else {
		listing.InterestedBuyersCount = 1
	}
	listing.IsVerified = u.verify(ctx, listing, img)

	if err := u.listingRepo.Prepend(ctx, listing); err != nil {
		return nil, err
	}
	metrics.ListingsCreated.WithLabelValues(string(listing.Kind), strconv.FormatBool(listing.IsVerified)).Inc()
	u.logger.Info("listing created",
		zap.String("listing_id", listing.ID),
		zap.String("type", string(listing.Kind)),
		zap.Bool("verified", listing.IsVerified))

	if u.matcher != nil {
		if _, err := u.matcher.NotifyMatches(ctx, listing); err != nil {
			u.logger.Warn("wishlist matching failed", zap.String("listing_id", listing.ID), zap.Error(err))
		}
	}
	return &listing, nil
}

// verify only runs for sell listings with an image. Any analyzer failure
// leaves the listing unverified.
func (u *ListingUsecase) verify(ctx context.Context, listing model.Listing, img *model.Image) bool {
	if listing.Kind != model.ListingSell || img == nil || u.analyzer == nil {
		return false
	}
	description := listing.Description
	if description == "" {
		description = listing.Title
	}
	verdict, err := u.analyzer.AnalyzeImage(ctx, *img, description)
	if err != nil {
		u.logger.Warn("image analysis unavailable, listing left unverified",
			zap.String("listing_id", listing.ID), zap.Error(err))
		return false
	}
	return VerdictPasses(verdict)
}

// VerdictPasses is a plain substring test; "not a scam" still fails it.
func VerdictPasses(verdict string) bool {
	v := strings.ToLower(verdict)
	return !strings.Contains(v, "scam") && !strings.Contains(v, "fake")
}

// ClassifyMessage sorts a free-text post. Service failures degrade to NOISE.
func (u *ListingUsecase) ClassifyMessage(ctx context.Context, text string) (model.MessageClass, error) {
	if strings.TrimSpace(text) == "" {
		return "", invalid("message", "must not be empty")
	}
	if u.classifier == nil {
		return model.MessageNoise, nil
	}
	class, err := u.classifier.ClassifyMessage(ctx, text)
	if err != nil {
		u.logger.Warn("message classification unavailable", zap.Error(err))
		return model.MessageNoise, nil
	}
	return class, nil
}
