package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormscout-backend/dao"
	"dormscout-backend/model"
)

func listingAt(title string, price int64) model.Listing {
	return model.Listing{ID: "l-" + title, Title: title, Price: decimal.NewFromInt(price)}
}

func TestEvaluateMatch(t *testing.T) {
	chair := model.WishlistEntry{ID: "w1", ItemName: "chair", MaxPrice: decimal.NewFromInt(500)}

	tests := []struct {
		name     string
		listing  model.Listing
		wishlist []model.WishlistEntry
		wantID   string
	}{
		{"under ceiling", listingAt("Study Chair", 400), []model.WishlistEntry{chair}, "w1"},
		{"at ceiling", listingAt("Study Chair", 500), []model.WishlistEntry{chair}, "w1"},
		{"over ceiling", listingAt("Study Chair", 600), []model.WishlistEntry{chair}, ""},
		{"name not in title", listingAt("Desk Lamp", 100), []model.WishlistEntry{chair}, ""},
		{"case insensitive", listingAt("ERGONOMIC CHAIR", 100), []model.WishlistEntry{chair}, "w1"},
		{"zero ceiling means no limit", listingAt("Gaming Chair", 99999),
			[]model.WishlistEntry{{ID: "w2", ItemName: "Chair"}}, "w2"},
		{"first satisfying entry wins", listingAt("Study Chair", 450), []model.WishlistEntry{
			{ID: "w3", ItemName: "chair", MaxPrice: decimal.NewFromInt(300)},
			chair,
			{ID: "w4", ItemName: "study"},
		}, "w1"},
		{"empty wishlist", listingAt("Study Chair", 1), nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EvaluateMatch(tt.listing, tt.wishlist)
			if tt.wantID == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func seedProfile(t *testing.T, repo *dao.UserRepository, id string, wishlist ...model.WishlistEntry) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), model.Account{UserProfile: model.UserProfile{
		ID:       id,
		Name:     id,
		Email:    id + "@muj.manipal.edu",
		Wishlist: wishlist,
	}}))
}

func TestMatchUsecase_NotifyMatches(t *testing.T) {
	ctx := context.Background()
	users := dao.NewUserRepository(dao.NewMemoryStore())
	seedProfile(t, users, "asha", model.WishlistEntry{ID: "w1", ItemName: "chair", MaxPrice: decimal.NewFromInt(500)})
	seedProfile(t, users, "ravi", model.WishlistEntry{ID: "w2", ItemName: "kettle"})
	seedProfile(t, users, "meera")

	notifier := &recordingNotifier{}
	uc := NewMatchUsecase(users, notifier, 5*time.Second, nil)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }

	listing := listingAt("Study Chair", 400)
	matches, err := uc.NotifyMatches(ctx, listing)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "asha", m.UserID)
	assert.Equal(t, "w1", m.EntryID)
	assert.Equal(t, listing.ID, m.ListingID)
	assert.Equal(t, "Study Chair", m.ListingTitle)
	assert.Equal(t, now.Add(5*time.Second), m.ExpiresAt)
	assert.Equal(t, matches, notifier.matches)
}

func TestMatchUsecase_NotifierFailureIsNotFatal(t *testing.T) {
	users := dao.NewUserRepository(dao.NewMemoryStore())
	seedProfile(t, users, "asha", model.WishlistEntry{ID: "w1", ItemName: "chair"})

	uc := NewMatchUsecase(users, &recordingNotifier{err: errors.New("broker down")}, time.Second, nil)
	matches, err := uc.NotifyMatches(context.Background(), listingAt("Chair", 10))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
