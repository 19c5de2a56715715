package repository

import (
	"context"
	"fmt"
	"time"

	"lane-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockLogRepository is the stock ledger. Entries are append-only.
type StockLogRepository interface {
	Append(tx *gorm.DB, entry *model.StockLog) error
	FindRecentByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.StockLog, error)
	FindByReference(ctx context.Context, referenceID uuid.UUID) ([]model.StockLog, error)
	List(ctx context.Context, filter StockLogFilter) ([]model.StockLog, int64, error)
	FindBetween(ctx context.Context, from, to time.Time) ([]model.StockLog, error)
}

type StockLogFilter struct {
	ProductID  *uuid.UUID
	ChangeType model.ChangeType
	Page       int
	Limit      int
}

type stockLogRepo struct {
	db *gorm.DB
}

func NewStockLogRepo(db *gorm.DB) StockLogRepository {
	return &stockLogRepo{db}
}

// Append records one entry inside the caller's transaction. An unbalanced
// entry is a programming error.
func (r *stockLogRepo) Append(tx *gorm.DB, entry *model.StockLog) error {
	if !entry.Balanced() {
		panic(fmt.Sprintf("stock ledger: unbalanced entry %s", entry))
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return tx.Omit("Product").Create(entry).Error
}

func (r *stockLogRepo) FindRecentByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.StockLog, error) {
	var logs []model.StockLog
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *stockLogRepo) FindByReference(ctx context.Context, referenceID uuid.UUID) ([]model.StockLog, error) {
	var logs []model.StockLog
	err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

func (r *stockLogRepo) List(ctx context.Context, filter StockLogFilter) ([]model.StockLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockLog{})
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.ChangeType != "" {
		q = q.Where("change_type = ?", filter.ChangeType)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	var logs []model.StockLog
	err := q.Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&logs).Error
	return logs, total, err
}

// FindBetween returns entries with from <= created_at < to, oldest first.
func (r *stockLogRepo) FindBetween(ctx context.Context, from, to time.Time) ([]model.StockLog, error) {
	var logs []model.StockLog
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
