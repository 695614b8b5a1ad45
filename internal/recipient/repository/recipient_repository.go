package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsroom-backend/internal/recipient/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipientRepository reads recipients together with their current tokens.
type RecipientRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]domain.Target, error)
	// FindActive returns active users and reachable guests with push not disabled.
	FindActive(ctx context.Context, pref string) ([]domain.Target, error)
	// FindCategorySubscribers returns active users whose selected categories contain category.
	FindCategorySubscribers(ctx context.Context, category, pref string) ([]domain.Target, error)
	FindUserByID(ctx context.Context, id string) (*domain.RegisteredUser, error)
	FindGuestByDevice(ctx context.Context, deviceID string) (*domain.GuestUser, error)
	FindOrCreateGuest(ctx context.Context, deviceID string) (*domain.GuestUser, error)
}

// prefColumns whitelists the preference keys usable in queries.
var prefColumns = map[string]string{
	domain.PrefBreakingNews: "pref_breaking_news",
	domain.PrefLocalNews:    "pref_local_news",
	domain.PrefEpaper:       "pref_epaper",
	domain.PrefSubscription: "pref_subscription",
}

type recipientRepository struct {
	db *gorm.DB
}

func NewRecipientRepository(db *gorm.DB) RecipientRepository {
	return &recipientRepository{db: db}
}

func (r *recipientRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Target, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var users []*domain.RegisteredUser
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("find users by ids: %w", err)
	}
	var guests []*domain.GuestUser
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&guests).Error; err != nil {
		return nil, fmt.Errorf("find guests by ids: %w", err)
	}
	return merge(users, guests), nil
}

func (r *recipientRepository) FindActive(ctx context.Context, pref string) ([]domain.Target, error) {
	q, err := r.activeUsers(ctx, pref)
	if err != nil {
		return nil, err
	}
	var users []*domain.RegisteredUser
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("find active users: %w", err)
	}

	// Guests without any token are unreachable and have no other identity.
	var guests []*domain.GuestUser
	err = r.db.WithContext(ctx).
		Where("pref_push IS DISTINCT FROM FALSE").
		Where("cardinality(web_tokens) + cardinality(mobile_tokens) > 0").
		Find(&guests).Error
	if err != nil {
		return nil, fmt.Errorf("find reachable guests: %w", err)
	}
	return merge(users, guests), nil
}

func (r *recipientRepository) FindCategorySubscribers(ctx context.Context, category, pref string) ([]domain.Target, error) {
	q, err := r.activeUsers(ctx, pref)
	if err != nil {
		return nil, err
	}
	var users []*domain.RegisteredUser
	if err := q.Where("? = ANY(selected_categories)", category).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("find subscribers of %q: %w", category, err)
	}
	return merge(users, nil), nil
}

func (r *recipientRepository) activeUsers(ctx context.Context, pref string) (*gorm.DB, error) {
	q := r.db.WithContext(ctx).
		Where("status = ?", domain.UserStatusActive).
		Where("pref_push IS DISTINCT FROM FALSE")
	if pref != "" {
		col, ok := prefColumns[pref]
		if !ok {
			return nil, &domain.ValidationError{Field: "preference", Message: fmt.Sprintf("unknown preference %q", pref)}
		}
		q = q.Where(col + " IS DISTINCT FROM FALSE")
	}
	return q, nil
}

func (r *recipientRepository) FindUserByID(ctx context.Context, id string) (*domain.RegisteredUser, error) {
	var user domain.RegisteredUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return &user, nil
}

func (r *recipientRepository) FindGuestByDevice(ctx context.Context, deviceID string) (*domain.GuestUser, error) {
	var guest domain.GuestUser
	err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&guest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find guest by device: %w", err)
	}
	return &guest, nil
}

// FindOrCreateGuest registers deviceID on first sight; concurrent callers
// converge on the same row through the unique device_id index.
func (r *recipientRepository) FindOrCreateGuest(ctx context.Context, deviceID string) (*domain.GuestUser, error) {
	now := time.Now()
	guest := &domain.GuestUser{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "device_id"}}, DoNothing: true}).
		Create(guest).Error
	if err != nil {
		return nil, fmt.Errorf("create guest: %w", err)
	}
	return r.FindGuestByDevice(ctx, deviceID)
}

func merge(users []*domain.RegisteredUser, guests []*domain.GuestUser) []domain.Target {
	out := make([]domain.Target, 0, len(users)+len(guests))
	for _, u := range users {
		out = append(out, u)
	}
	for _, g := range guests {
		out = append(out, g)
	}
	return out
}
