package repository

import (
	"context"

	"lane-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	FindAll(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	CountProducts(ctx context.Context, id uuid.UUID) (int64, error)
}

type SupplierRepository interface {
	Create(ctx context.Context, supplier *model.Supplier) error
	FindAll(ctx context.Context) ([]model.Supplier, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	Update(ctx context.Context, supplier *model.Supplier) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	CountProducts(ctx context.Context, id uuid.UUID) (int64, error)
}

type categoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db}
}

type supplierRepo struct {
	db *gorm.DB
}

func NewSupplierRepo(db *gorm.DB) SupplierRepository {
	return &supplierRepo{db}
}

type productCount struct {
	OwnerID uuid.UUID
	Total   int64
}

// productCounts groups live products by the given foreign key column.
func productCounts(db *gorm.DB, column string) (map[uuid.UUID]int64, error) {
	var rows []productCount
	err := db.Model(&model.Product{}).
		Select(column + " AS owner_id, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		counts[r.OwnerID] = r.Total
	}
	return counts, nil
}

func countProducts(db *gorm.DB, column string, id uuid.UUID) (int64, error) {
	var n int64
	err := db.Model(&model.Product{}).Where(column+" = ?", id).Count(&n).Error
	return n, err
}

func softDelete(db *gorm.DB, value interface{}, id uuid.UUID, deletedBy string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(value).Where("id = ?", id).Update("deleted_by", deletedBy)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Delete(value, "id = ?", id).Error
	})
}

func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepo) FindAll(ctx context.Context) ([]model.Category, error) {
	db := r.db.WithContext(ctx)

	var categories []model.Category
	if err := db.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	counts, err := productCounts(db, "category_id")
	if err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].ProductCount = counts[categories[i].ID]
	}
	return categories, nil
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	db := r.db.WithContext(ctx)

	var category model.Category
	if err := db.First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	n, err := countProducts(db, "category_id", id)
	if err != nil {
		return nil, err
	}
	category.ProductCount = n
	return &category, nil
}

func (r *categoryRepo) Update(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Model(category).Select("name", "updated_by").Updates(category).Error
}

func (r *categoryRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return softDelete(r.db.WithContext(ctx), &model.Category{}, id, deletedBy)
}

func (r *categoryRepo) CountProducts(ctx context.Context, id uuid.UUID) (int64, error) {
	return countProducts(r.db.WithContext(ctx), "category_id", id)
}

func (r *supplierRepo) Create(ctx context.Context, supplier *model.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *supplierRepo) FindAll(ctx context.Context) ([]model.Supplier, error) {
	db := r.db.WithContext(ctx)

	var suppliers []model.Supplier
	if err := db.Order("name ASC").Find(&suppliers).Error; err != nil {
		return nil, err
	}
	counts, err := productCounts(db, "supplier_id")
	if err != nil {
		return nil, err
	}
	for i := range suppliers {
		suppliers[i].ProductCount = counts[suppliers[i].ID]
	}
	return suppliers, nil
}

func (r *supplierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	db := r.db.WithContext(ctx)

	var supplier model.Supplier
	if err := db.First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	n, err := countProducts(db, "supplier_id", id)
	if err != nil {
		return nil, err
	}
	supplier.ProductCount = n
	return &supplier, nil
}

func (r *supplierRepo) Update(ctx context.Context, supplier *model.Supplier) error {
	return r.db.WithContext(ctx).Model(supplier).Select("name", "email", "phone", "updated_by").Updates(supplier).Error
}

func (r *supplierRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return softDelete(r.db.WithContext(ctx), &model.Supplier{}, id, deletedBy)
}

func (r *supplierRepo) CountProducts(ctx context.Context, id uuid.UUID) (int64, error) {
	return countProducts(r.db.WithContext(ctx), "supplier_id", id)
}
