package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"dormscout-backend/model"
)

// Inbox keeps each user's recent matches until they auto-dismiss.
type Inbox struct {
	c   *ristretto.Cache
	ttl time.Duration
	mu  sync.Mutex
	now func() time.Time
}

func NewInbox(maxCost int64, ttl time.Duration) (*Inbox, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Inbox{c: c, ttl: ttl, now: time.Now}, nil
}

func (i *Inbox) Notify(_ context.Context, match model.WishlistMatch) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	pending := append(i.pending(match.UserID), match)
	i.c.SetWithTTL(match.UserID, pending, int64(len(pending)), i.ttl)
	i.c.Wait()
	return nil
}

// Pending returns the user's matches that have not expired yet, oldest first.
func (i *Inbox) Pending(userID string) []model.WishlistMatch {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pending(userID)
}

func (i *Inbox) pending(userID string) []model.WishlistMatch {
	v, ok := i.c.Get(userID)
	if !ok {
		return nil
	}
	stored, _ := v.([]model.WishlistMatch)
	now := i.now()
	live := make([]model.WishlistMatch, 0, len(stored))
	for _, m := range stored {
		if m.ExpiresAt.IsZero() || now.Before(m.ExpiresAt) {
			live = append(live, m)
		}
	}
	return live
}

func (i *Inbox) Close() {
	i.c.Close()
}
