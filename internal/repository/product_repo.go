package repository

import (
	"context"
	"errors"

	"lane-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStockUnderflow is returned when a guarded stock update would take stock below zero.
var ErrStockUnderflow = errors.New("stock would become negative")

var lockForUpdate = clause.Locking{Strength: "UPDATE"}

type ProductRepository interface {
	Create(tx *gorm.DB, product *model.Product) error
	FindAll(ctx context.Context) ([]model.Product, error)
	FindLowStock(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	Count(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context) (int64, error)

	LockByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	LockByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.Product, error)
	ApplyStockDelta(tx *gorm.DB, id uuid.UUID, delta int, updatedBy string) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

// Create runs inside the caller's transaction so the opening ledger entry commits with it.
func (r *productRepo) Create(tx *gorm.DB, product *model.Product) error {
	return tx.Omit(clause.Associations).Create(product).Error
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").Preload("Supplier").
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) FindLowStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").Preload("Supplier").
		Where("stock < min_stock").
		Order("stock ASC").Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").Preload("Supplier").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs includes deleted products, for reports over past sales.
func (r *productRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Unscoped().
		Preload("Category", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Supplier", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}

// FindBySKU also matches deleted products; SKUs are never reused.
func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Unscoped().First(&product, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Update writes the catalog fields only. Stock moves through ApplyStockDelta.
func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Model(product).
		Select("sku", "name", "price", "cost", "min_stock", "category_id", "supplier_id", "updated_by").
		Updates(product).Error
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Product{}).Where("id = ?", id).Update("deleted_by", deletedBy)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Delete(&model.Product{}, "id = ?", id).Error
	})
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&n).Error
	return n, err
}

func (r *productRepo) CountLowStock(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("stock < min_stock").Count(&n).Error
	return n, err
}

// LockByID reads a product with a row lock held until tx ends.
func (r *productRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := tx.Clauses(lockForUpdate).First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// LockByIDs locks in id order so concurrent sales touching the same products
// cannot deadlock each other.
func (r *productRepo) LockByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := tx.Clauses(lockForUpdate).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

// ApplyStockDelta adds delta to stock only if the result stays non-negative.
func (r *productRepo) ApplyStockDelta(tx *gorm.DB, id uuid.UUID, delta int, updatedBy string) error {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockUnderflow
	}
	return nil
}
