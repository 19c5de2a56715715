package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"lane-inventory/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(tx *gorm.DB, sale *model.Sale) error
	FindAll(ctx context.Context, filter SaleFilter) ([]model.Sale, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	LockByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	Delete(tx *gorm.DB, id uuid.UUID) error

	Summarize(ctx context.Context, filter SaleFilter) (*SalesSummary, error)
	SummarizePeriods(ctx context.Context, bounds []time.Time) ([]SalesSummary, error)
	BestSelling(ctx context.Context, limit int) ([]ProductSales, error)
}

// SaleFilter bounds sales by creation time; nil bounds are open.
type SaleFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

type SalesSummary struct {
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

type ProductSales struct {
	ProductID     uuid.UUID       `json:"product_id"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// withItems loads items and their products, including products deleted since the sale.
func withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Items.Product", unscoped).
		Preload("Items.Product.Category", unscoped).
		Preload("Items.Product.Supplier", unscoped)
}

func applySaleFilter(db *gorm.DB, filter SaleFilter) *gorm.DB {
	if filter.From != nil {
		db = db.Where("sales.created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		db = db.Where("sales.created_at < ?", filter.To.UTC())
	}
	return db
}

// Create inserts the sale and its items.
func (r *saleRepo) Create(tx *gorm.DB, sale *model.Sale) error {
	return tx.Omit("Items.Product").Create(sale).Error
}

func (r *saleRepo) FindAll(ctx context.Context, filter SaleFilter) ([]model.Sale, error) {
	var sales []model.Sale
	q := applySaleFilter(withItems(r.db.WithContext(ctx)), filter).Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	err := q.Find(&sales).Error
	return sales, err
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := withItems(r.db.WithContext(ctx)).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := tx.Clauses(lockForUpdate).
		Preload("Items").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// Delete removes the sale and its items for good. The ledger keeps the sale id
// as a plain reference.
func (r *saleRepo) Delete(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("sale_id = ?", id).Delete(&model.SaleItem{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Delete(&model.Sale{}, "id = ?", id).Error
}

func (r *saleRepo) Summarize(ctx context.Context, filter SaleFilter) (*SalesSummary, error) {
	var row struct {
		Count   int64
		Revenue decimal.NullDecimal
		Profit  decimal.NullDecimal
	}
	err := applySaleFilter(r.db.WithContext(ctx).Model(&model.Sale{}), filter).
		Select("COUNT(*) AS count, SUM(total) AS revenue, SUM(profit) AS profit").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &SalesSummary{
		Count:   row.Count,
		Revenue: row.Revenue.Decimal.Round(2),
		Profit:  row.Profit.Decimal.Round(2),
	}, nil
}

// SummarizePeriods totals sales per consecutive period, where period i is
// bounds[i] <= created_at < bounds[i+1]. Bounds must be ascending. Periods
// without sales come back as zeros.
func (r *saleRepo) SummarizePeriods(ctx context.Context, bounds []time.Time) ([]SalesSummary, error) {
	if len(bounds) < 2 {
		return nil, nil
	}
	periods := len(bounds) - 1

	var bucket strings.Builder
	args := make([]interface{}, 0, periods)
	bucket.WriteString("CASE")
	for i := 1; i <= periods; i++ {
		bucket.WriteString(" WHEN created_at < ? THEN ")
		bucket.WriteString(strconv.Itoa(i - 1))
		args = append(args, bounds[i].UTC())
	}
	bucket.WriteString(" END AS bucket")

	var rows []struct {
		Bucket  int
		Count   int64
		Revenue decimal.NullDecimal
		Profit  decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.Sale{}).
		Select(bucket.String()+", COUNT(*) AS count, SUM(total) AS revenue, SUM(profit) AS profit", args...).
		Where("created_at >= ? AND created_at < ?", bounds[0].UTC(), bounds[periods].UTC()).
		Group("bucket").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]SalesSummary, periods)
	for i := range out {
		out[i] = SalesSummary{Revenue: decimal.Zero, Profit: decimal.Zero}
	}
	for _, row := range rows {
		if row.Bucket < 0 || row.Bucket >= periods {
			continue
		}
		out[row.Bucket] = SalesSummary{
			Count:   row.Count,
			Revenue: row.Revenue.Decimal.Round(2),
			Profit:  row.Profit.Decimal.Round(2),
		}
	}
	return out, nil
}

// BestSelling ranks products by units sold across all sales.
func (r *saleRepo) BestSelling(ctx context.Context, limit int) ([]ProductSales, error) {
	var rows []ProductSales
	err := r.db.WithContext(ctx).
		Table("sale_items").
		Select("sale_items.product_id, CAST(SUM(sale_items.quantity) AS BIGINT) AS total_quantity, SUM(sale_items.subtotal) AS total_revenue").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Group("sale_items.product_id").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].TotalRevenue = rows[i].TotalRevenue.Round(2)
	}
	return rows, nil
}
