package repository

import (
	"context"
	"fmt"
	"time"

	"newsroom-backend/internal/notification/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	insertBatchSize  = 200

	// maxRecipientIDLen bounds recipient ids, which come from the user store as-is.
	maxRecipientIDLen = 64
)

// NotificationRepository defines the interface for notification record operations
type NotificationRepository interface {
	// CreateMany writes one record per recipient and returns how many were stored
	CreateMany(ctx context.Context, recipientIDs []string, payload domain.Payload) (int, error)
	List(ctx context.Context, recipientID string, filter domain.Filter, page, limit int) (*domain.Page, error)
	MarkRead(ctx context.Context, recipientID, id string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string, typ *domain.NotificationType) (int64, error)
	Remove(ctx context.Context, recipientID, id string) error
	Stats(ctx context.Context, recipientID string) (*domain.Stats, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type notificationRepository struct {
	db  *gorm.DB
	ttl time.Duration
	log *zap.SugaredLogger
	now func() time.Time
}

// NewNotificationRepository creates a new instance of notificationRepository
func NewNotificationRepository(db *gorm.DB, ttl time.Duration, log *zap.Logger) NotificationRepository {
	if ttl <= 0 {
		ttl = domain.DefaultTTL
	}
	return &notificationRepository{
		db:  db,
		ttl: ttl,
		log: log.Sugar(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreateMany inserts in batches and falls back to row-by-row inserts when a
// batch fails, so one bad row only costs itself.
func (r *notificationRepository) CreateMany(ctx context.Context, recipientIDs []string, payload domain.Payload) (int, error) {
	now := r.now()
	records := make([]*domain.Notification, 0, len(recipientIDs))
	for _, rid := range recipientIDs {
		if rid == "" || len(rid) > maxRecipientIDLen {
			r.log.Warnw("skipping notification for malformed recipient id", "recipient_id", rid, "type", payload.Type)
			continue
		}
		records = append(records, &domain.Notification{
			ID:          uuid.New().String(),
			RecipientID: rid,
			Title:       payload.Title,
			Message:     payload.Body,
			Type:        payload.Type,
			Data:        payload.Data.Map(),
			SentAt:      now,
			ExpiresAt:   now.Add(r.ttl),
		})
	}
	if len(records) == 0 {
		if len(recipientIDs) > 0 {
			return 0, fmt.Errorf("%w: no valid recipient ids among %d", domain.ErrInvalidInput, len(recipientIDs))
		}
		return 0, nil
	}

	err := r.db.WithContext(ctx).CreateInBatches(records, insertBatchSize).Error
	if err == nil {
		return len(records), nil
	}
	r.log.Warnw("batch insert failed, retrying per record", "type", payload.Type, "count", len(records), "error", err)

	stored := 0
	for _, rec := range records {
		if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
			r.log.Errorw("failed to store notification", "recipient_id", rec.RecipientID, "type", rec.Type, "error", err)
			continue
		}
		stored++
	}
	if stored == 0 {
		return 0, fmt.Errorf("store notifications: %w", err)
	}
	return stored, nil
}

func (r *notificationRepository) List(ctx context.Context, recipientID string, filter domain.Filter, page, limit int) (*domain.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("recipient_id = ?", recipientID)
		if filter.Type != nil {
			db = db.Where("type = ?", *filter.Type)
		}
		if filter.IsRead != nil {
			db = db.Where("is_read = ?", *filter.IsRead)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Notification{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	items := make([]domain.Notification, 0)
	err := r.db.WithContext(ctx).Scopes(scope).
		Order("sent_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &domain.Page{
		Items:      items,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		Total:      total,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

// MarkRead keeps the first read time when called again.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id string) (*domain.Notification, error) {
	res := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": gorm.Expr("COALESCE(read_at, ?)", r.now()),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("mark read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	var n domain.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, fmt.Errorf("reload notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string, typ *domain.NotificationType) (int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false)
	if typ != nil {
		q = q.Where("type = ?", *typ)
	}
	res := q.Updates(map[string]interface{}{"is_read": true, "read_at": r.now()})
	if res.Error != nil {
		return 0, fmt.Errorf("mark all read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) Remove(ctx context.Context, recipientID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND recipient_id = ?", id, recipientID).Delete(&domain.Notification{})
	if res.Error != nil {
		return fmt.Errorf("remove notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type typeCount struct {
	Type   domain.NotificationType
	Total  int64
	Unread int64
}

func (r *notificationRepository) Stats(ctx context.Context, recipientID string) (*domain.Stats, error) {
	var rows []typeCount
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Select("type, COUNT(*) AS total, SUM(CASE WHEN is_read THEN 0 ELSE 1 END) AS unread").
		Where("recipient_id = ?", recipientID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("notification stats: %w", err)
	}

	stats := &domain.Stats{ByType: make(map[domain.NotificationType]domain.TypeStats, len(rows))}
	for _, row := range rows {
		stats.Total += row.Total
		stats.Unread += row.Unread
		stats.ByType[row.Type] = domain.TypeStats{Total: row.Total, Unread: row.Unread}
	}
	return stats, nil
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&domain.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}
