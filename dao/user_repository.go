package dao

import (
	"context"
	"errors"
	"strings"
	"sync"

	"dormscout-backend/model"
)

var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository stores every registered account plus the currently signed-in profile.
type UserRepository struct {
	store KVStore
	mu    sync.Mutex
}

func NewUserRepository(store KVStore) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) accounts(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	if _, err := readJSON(ctx, r.store, KeyProfiles, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetAll returns every profile with credentials stripped.
func (r *UserRepository) GetAll(ctx context.Context) ([]model.UserProfile, error) {
	accounts, err := r.accounts(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]model.UserProfile, 0, len(accounts))
	for _, a := range accounts {
		profiles = append(profiles, a.UserProfile)
	}
	return profiles, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.UserProfile, error) {
	accounts, err := r.accounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.ID == id {
			p := a.UserProfile
			return &p, nil
		}
	}
	return nil, nil
}

// GetByEmail is the only read that exposes the credential.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	accounts, err := r.accounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if strings.EqualFold(a.Email, email) {
			acc := a
			return &acc, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) Insert(ctx context.Context, account model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.accounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return ErrDuplicateEmail
		}
	}
	accounts = append(accounts, account)
	return writeJSON(ctx, r.store, KeyProfiles, accounts)
}

// Update applies fn to the profile (never the credential) and persists it.
// The signed-in copy is refreshed when it belongs to the same user.
func (r *UserRepository) Update(ctx context.Context, id string, fn func(*model.UserProfile) error) (*model.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.accounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].ID != id {
			continue
		}
		if err := fn(&accounts[i].UserProfile); err != nil {
			return nil, err
		}
		if err := writeJSON(ctx, r.store, KeyProfiles, accounts); err != nil {
			return nil, err
		}
		updated := accounts[i].UserProfile
		current, err := r.current(ctx)
		if err == nil && current != nil && current.ID == id {
			if err := writeJSON(ctx, r.store, KeyCurrentUser, updated); err != nil {
				return nil, err
			}
		}
		return &updated, nil
	}
	return nil, nil
}

func (r *UserRepository) current(ctx context.Context) (*model.UserProfile, error) {
	var p model.UserProfile
	ok, err := readJSON(ctx, r.store, KeyCurrentUser, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (r *UserRepository) Current(ctx context.Context) (*model.UserProfile, error) {
	return r.current(ctx)
}

func (r *UserRepository) SetCurrent(ctx context.Context, profile model.UserProfile) error {
	return writeJSON(ctx, r.store, KeyCurrentUser, profile)
}

func (r *UserRepository) ClearCurrent(ctx context.Context) error {
	return r.store.Delete(ctx, KeyCurrentUser)
}
