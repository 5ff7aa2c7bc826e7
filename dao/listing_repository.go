package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"dormscout-backend/model"
)

func readJSON(ctx context.Context, store KVStore, key string, out any) (bool, error) {
	data, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func writeJSON(ctx context.Context, store KVStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Put(ctx, key, data)
}

// ListingRepository owns the shared, most-recent-first listing collection.
// Reads return fresh copies decoded from the store.
type ListingRepository struct {
	store KVStore
	mu    sync.Mutex
}

func NewListingRepository(store KVStore) *ListingRepository {
	return &ListingRepository{store: store}
}

func (r *ListingRepository) GetAll(ctx context.Context) ([]model.Listing, error) {
	var items []model.Listing
	if _, err := readJSON(ctx, r.store, KeyListings, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	items, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, nil // Not found
}

// Prepend inserts a listing at the head of the collection.
func (r *ListingRepository) Prepend(ctx context.Context, item model.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.GetAll(ctx)
	if err != nil {
		return err
	}
	updated := make([]model.Listing, 0, len(items)+1)
	updated = append(updated, item)
	updated = append(updated, items...)
	return writeJSON(ctx, r.store, KeyListings, updated)
}

// Update applies fn to the listing with the given id and persists the result.
// Returns nil, nil when the listing does not exist.
func (r *ListingRepository) Update(ctx context.Context, id string, fn func(*model.Listing) error) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if err := fn(&items[i]); err != nil {
			return nil, err
		}
		if err := writeJSON(ctx, r.store, KeyListings, items); err != nil {
			return nil, err
		}
		updated := items[i]
		return &updated, nil
	}
	return nil, nil
}
