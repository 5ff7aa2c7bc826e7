package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dormscout-backend/dao"
	"dormscout-backend/model"
)

type UserUsecase struct {
	repo          *dao.UserRepository
	emailDomain   string
	defaultBudget decimal.Decimal
	logger        *zap.Logger
}

func NewUserUsecase(repo *dao.UserRepository, emailDomain string, defaultBudget decimal.Decimal, logger *zap.Logger) *UserUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserUsecase{
		repo:          repo,
		emailDomain:   strings.ToLower(emailDomain),
		defaultBudget: defaultBudget,
		logger:        logger,
	}
}

// Login signs a campus user in, registering the address on first use.
func (u *UserUsecase) Login(ctx context.Context, email, password string) (*model.UserProfile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.HasSuffix(email, u.emailDomain) || len(email) == len(u.emailDomain) {
		return nil, invalid("email", "must be a "+u.emailDomain+" address")
	}
	if password == "" {
		return nil, invalid("password", "must not be empty")
	}

	// 1. Existing account
	existing, err := u.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if bcrypt.CompareHashAndPassword([]byte(existing.Credential), []byte(password)) != nil {
			return nil, ErrUnauthorized
		}
		return u.signIn(ctx, existing.UserProfile)
	}

	// 2. Register
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	local := strings.TrimSuffix(email, u.emailDomain)
	account := model.Account{
		UserProfile: model.UserProfile{
			ID:             newID(),
			Name:           local,
			Course:         "B.Tech CS",
			CampusID:       strings.ToUpper(local),
			Email:          email,
			BudgetLimit:    u.defaultBudget,
			Persona:        model.PersonaSavvySaver,
			Calendar:       []string{},
			CompletedDeals: []model.Deal{},
			Wishlist:       []model.WishlistEntry{},
			Theme:          model.ThemeDark,
		},
		Credential: string(hash),
	}
	if err := u.repo.Insert(ctx, account); err != nil {
		if errors.Is(err, dao.ErrDuplicateEmail) {
			return nil, invalid("email", err.Error())
		}
		return nil, err
	}
	u.logger.Info("user registered", zap.String("user_id", account.ID))
	return u.signIn(ctx, account.UserProfile)
}

func (u *UserUsecase) signIn(ctx context.Context, p model.UserProfile) (*model.UserProfile, error) {
	if err := u.repo.SetCurrent(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (u *UserUsecase) Logout(ctx context.Context) error {
	return u.repo.ClearCurrent(ctx)
}

func (u *UserUsecase) Current(ctx context.Context) (*model.UserProfile, error) {
	p, err := u.repo.Current(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (u *UserUsecase) Get(ctx context.Context, id string) (*model.UserProfile, error) {
	p, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// ProfileUpdate carries the editable fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	Name        *string          `json:"name"`
	Course      *string          `json:"course"`
	Phone       *string          `json:"phone"`
	BudgetLimit *decimal.Decimal `json:"budget_limit"`
	Persona     *model.Persona   `json:"vibe"`
	Theme       *model.Theme     `json:"theme"`
	Calendar    []string         `json:"calendar"`
	UPIQR       *string          `json:"upi_qr"`
}

func (in ProfileUpdate) validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return invalid("name", "must not be empty")
	}
	if in.BudgetLimit != nil && in.BudgetLimit.IsNegative() {
		return invalid("budget_limit", "must not be negative")
	}
	if in.Persona != nil && !in.Persona.Valid() {
		return invalid("vibe", "unknown persona")
	}
	if in.Theme != nil && !in.Theme.Valid() {
		return invalid("theme", "unknown theme")
	}
	return nil
}

func (u *UserUsecase) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*model.UserProfile, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return u.update(ctx, id, func(p *model.UserProfile) error {
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Course != nil {
			p.Course = *in.Course
		}
		if in.Phone != nil {
			p.Phone = *in.Phone
		}
		if in.BudgetLimit != nil {
			p.BudgetLimit = *in.BudgetLimit
		}
		if in.Persona != nil {
			p.Persona = *in.Persona
		}
		if in.Theme != nil {
			p.Theme = *in.Theme
		}
		if in.Calendar != nil {
			p.Calendar = in.Calendar
		}
		if in.UPIQR != nil {
			p.UPIQR = *in.UPIQR
		}
		return nil
	})
}

func (u *UserUsecase) AddWishlistEntry(ctx context.Context, userID, itemName string, maxPrice decimal.Decimal) (*model.WishlistEntry, error) {
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return nil, invalid("item_name", "must not be empty")
	}
	if maxPrice.IsNegative() {
		return nil, invalid("max_price", "must not be negative")
	}
	entry := model.WishlistEntry{ID: newID(), ItemName: itemName, MaxPrice: maxPrice}
	if _, err := u.update(ctx, userID, func(p *model.UserProfile) error {
		p.Wishlist = append(p.Wishlist, entry)
		return nil
	}); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (u *UserUsecase) RemoveWishlistEntry(ctx context.Context, userID, entryID string) error {
	_, err := u.update(ctx, userID, func(p *model.UserProfile) error {
		for i, e := range p.Wishlist {
			if e.ID == entryID {
				p.Wishlist = append(p.Wishlist[:i], p.Wishlist[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("wishlist entry %s: %w", entryID, ErrNotFound)
	})
	return err
}

func (u *UserUsecase) Deals(ctx context.Context, userID string) ([]model.Deal, error) {
	p, err := u.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.CompletedDeals, nil
}

func (u *UserUsecase) update(ctx context.Context, id string, fn func(*model.UserProfile) error) (*model.UserProfile, error) {
	p, err := u.repo.Update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return p, nil
}
