package service

import (
	"context"
	"errors"
	"fmt"

	"lane-inventory/internal/metrics"
	"lane-inventory/internal/model"
	"lane-inventory/internal/repository"
	"lane-inventory/internal/ws"
	"lane-inventory/pkg/logger"
	"lane-inventory/pkg/telemetry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// RecentStockLogs is how many ledger entries a product detail view carries.
const RecentStockLogs = 20

type InventoryService interface {
	CreateProduct(ctx context.Context, in CreateProductInput, actor Actor) (*model.ProductView, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in UpdateProductInput, actor Actor) (*model.ProductView, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error
	GetProducts(ctx context.Context) ([]model.ProductView, error)
	GetLowStockProducts(ctx context.Context) ([]model.LowStockProduct, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.ProductDetail, error)
	AdjustStock(ctx context.Context, id uuid.UUID, in AdjustStockInput, actor Actor) (*model.ProductView, error)
	GetStockLogs(ctx context.Context, filter repository.StockLogFilter) ([]model.StockLog, int64, error)
}

type CreateProductInput struct {
	Name       string          `json:"name" validate:"required,max=255"`
	SKU        string          `json:"sku" validate:"required,max=50"`
	Price      decimal.Decimal `json:"price" validate:"gte=0"`
	Cost       decimal.Decimal `json:"cost" validate:"gte=0"`
	Stock      int             `json:"stock" validate:"gte=0"`
	MinStock   int             `json:"min_stock" validate:"gte=0"`
	CategoryID uuid.UUID       `json:"category_id" validate:"uuid_required"`
	SupplierID uuid.UUID       `json:"supplier_id" validate:"uuid_required"`
}

// UpdateProductInput changes only the fields that are set. Stock is not
// editable here; use AdjustStock so the ledger records the change.
type UpdateProductInput struct {
	Name       *string          `json:"name" validate:"omitempty,min=1,max=255"`
	SKU        *string          `json:"sku" validate:"omitempty,min=1,max=50"`
	Price      *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	Cost       *decimal.Decimal `json:"cost" validate:"omitempty,gte=0"`
	MinStock   *int             `json:"min_stock" validate:"omitempty,gte=0"`
	CategoryID *uuid.UUID       `json:"category_id" validate:"omitempty,uuid_required"`
	SupplierID *uuid.UUID       `json:"supplier_id" validate:"omitempty,uuid_required"`
}

// AdjustStockInput is a signed manual stock change. Sales write their own
// ledger entries, so SALE is not accepted here.
type AdjustStockInput struct {
	Quantity   int              `json:"quantity" validate:"ne=0"`
	ChangeType model.ChangeType `json:"change_type" validate:"required,oneof=RESTOCK ADJUSTMENT DAMAGE RETURN"`
	Notes      *string          `json:"notes" validate:"omitempty,max=500"`
}

type inventoryService struct {
	Deps
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	supplierRepo repository.SupplierRepository
	stockLogRepo repository.StockLogRepository
}

func NewInventoryService(
	deps Deps,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	supplierRepo repository.SupplierRepository,
	stockLogRepo repository.StockLogRepository,
) InventoryService {
	return &inventoryService{
		Deps:         deps.withDefaults(),
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		supplierRepo: supplierRepo,
		stockLogRepo: stockLogRepo,
	}
}

func (s *inventoryService) CreateProduct(ctx context.Context, in CreateProductInput, actor Actor) (*model.ProductView, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	if err := s.ensureSKUFree(ctx, in.SKU, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.ensureReferences(ctx, &in.CategoryID, &in.SupplierID); err != nil {
		return nil, err
	}

	product := &model.Product{
		SKU:        in.SKU,
		Name:       in.Name,
		Price:      in.Price,
		Cost:       in.Cost,
		Stock:      in.Stock,
		MinStock:   in.MinStock,
		CategoryID: in.CategoryID,
		SupplierID: in.SupplierID,
	}
	product.CreatedBy = actor.AuditID()
	product.UpdatedBy = actor.AuditID()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.productRepo.Create(tx, product); err != nil {
			return translate(err, "Product", product.ID)
		}
		if product.Stock == 0 {
			return nil
		}
		note := "Initial stock"
		return s.stockLogRepo.Append(tx, model.NewStockLog(product.ID, model.ChangeRestock, 0, product.Stock, &note, nil, actor.AuditID()))
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Str("product_id", product.ID.String()).
		Str("sku", product.SKU).
		Int("stock", product.Stock).
		Msg("product created")

	view := product.View()
	s.afterCommit(ctx, ws.Event{
		Type:    "stock_update",
		Action:  "product_created",
		Data:    view,
		User:    actor.wsUser(),
		Message: describe(actor, "created product '%s'", product.Name),
	})
	return s.view(ctx, product.ID)
}

func (s *inventoryService) UpdateProduct(ctx context.Context, id uuid.UUID, in UpdateProductInput, actor Actor) (*model.ProductView, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Product", id)
	}

	if in.SKU != nil && *in.SKU != product.SKU {
		if err := s.ensureSKUFree(ctx, *in.SKU, id); err != nil {
			return nil, err
		}
		product.SKU = *in.SKU
	}
	if err := s.ensureReferences(ctx, in.CategoryID, in.SupplierID); err != nil {
		return nil, err
	}
	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	if in.Cost != nil {
		product.Cost = *in.Cost
	}
	if in.MinStock != nil {
		product.MinStock = *in.MinStock
	}
	if in.CategoryID != nil {
		product.CategoryID = *in.CategoryID
	}
	if in.SupplierID != nil {
		product.SupplierID = *in.SupplierID
	}
	product.UpdatedBy = actor.AuditID()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, translate(err, "Product", id)
	}

	view, err := s.view(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, ws.Event{
		Type:    "stock_update",
		Action:  "product_updated",
		Data:    view,
		User:    actor.wsUser(),
		Message: describe(actor, "updated product '%s'", view.Name),
	})
	return view, nil
}

func (s *inventoryService) DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := s.productRepo.Delete(ctx, id, actor.AuditID()); err != nil {
		return translate(err, "Product", id)
	}
	s.afterCommit(ctx, ws.Event{
		Type:    "stock_update",
		Action:  "product_deleted",
		Data:    map[string]string{"id": id.String()},
		User:    actor.wsUser(),
		Message: describe(actor, "deleted a product"),
	})
	return nil
}

func (s *inventoryService) GetProducts(ctx context.Context) ([]model.ProductView, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]model.ProductView, len(products))
	for i := range products {
		views[i] = products[i].View()
	}
	return views, nil
}

func (s *inventoryService) GetLowStockProducts(ctx context.Context) ([]model.LowStockProduct, error) {
	products, err := s.productRepo.FindLowStock(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.LowStockProduct, len(products))
	for i, p := range products {
		out[i] = model.LowStockProduct{Product: p, StockDeficit: p.MinStock - p.Stock}
	}
	return out, nil
}

func (s *inventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*model.ProductDetail, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Product", id)
	}
	logs, err := s.stockLogRepo.FindRecentByProduct(ctx, id, RecentStockLogs)
	if err != nil {
		return nil, err
	}
	return &model.ProductDetail{ProductView: product.View(), StockLogs: logs}, nil
}

// AdjustStock applies a signed delta to one product and records it in the
// ledger, both in one transaction. The product row stays locked from the
// read to the commit, and the write itself refuses to go below zero.
func (s *inventoryService) AdjustStock(ctx context.Context, id uuid.UUID, in AdjustStockInput, actor Actor) (*model.ProductView, error) {
	ctx, span := telemetry.StartSpan(ctx, "InventoryService.AdjustStock",
		attribute.String("product.id", id.String()),
		attribute.String("stock.change_type", string(in.ChangeType)),
		attribute.Int("stock.quantity", in.Quantity),
	)
	view, err := s.adjustStock(ctx, id, in, actor)
	telemetry.EndSpan(span, err)
	return view, err
}

func (s *inventoryService) adjustStock(ctx context.Context, id uuid.UUID, in AdjustStockInput, actor Actor) (*model.ProductView, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}

	var entry *model.StockLog
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.productRepo.LockByID(tx, id)
		if err != nil {
			return translate(err, "Product", id)
		}

		newStock := product.Stock + in.Quantity
		if newStock < 0 {
			return fmt.Errorf("%w: Stock cannot be negative (current %d, change %d)", ErrInvalidOperation, product.Stock, in.Quantity)
		}

		if err := s.productRepo.ApplyStockDelta(tx, product.ID, in.Quantity, actor.AuditID()); err != nil {
			if errors.Is(err, repository.ErrStockUnderflow) {
				return fmt.Errorf("%w: Stock cannot be negative", ErrInvalidOperation)
			}
			return err
		}

		entry = model.NewStockLog(product.ID, in.ChangeType, product.Stock, in.Quantity, in.Notes, nil, actor.AuditID())
		return s.stockLogRepo.Append(tx, entry)
	})
	if err != nil {
		return nil, err
	}

	metrics.StockAdjustments.WithLabelValues(string(in.ChangeType)).Inc()
	logger.FromContext(ctx).Info().
		Str("product_id", id.String()).
		Str("change_type", string(in.ChangeType)).
		Int("before", entry.Before).
		Int("after", entry.After).
		Msg("stock adjusted")

	view, err := s.view(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, ws.Event{
		Type:    "stock_update",
		Action:  "stock_adjusted",
		Data:    map[string]interface{}{"product": view, "log": entry},
		User:    actor.wsUser(),
		Message: describe(actor, "adjusted '%s' by %+d (%s)", view.Name, in.Quantity, in.ChangeType),
	})
	return view, nil
}

func (s *inventoryService) GetStockLogs(ctx context.Context, filter repository.StockLogFilter) ([]model.StockLog, int64, error) {
	return s.stockLogRepo.List(ctx, filter)
}

func (s *inventoryService) view(ctx context.Context, id uuid.UUID) (*model.ProductView, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Product", id)
	}
	v := product.View()
	return &v, nil
}

func (s *inventoryService) ensureSKUFree(ctx context.Context, sku string, self uuid.UUID) error {
	existing, err := s.productRepo.FindBySKU(ctx, sku)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		return fmt.Errorf("%w: Product with SKU %s already exists", ErrConflict, sku)
	}
	return nil
}

func (s *inventoryService) ensureReferences(ctx context.Context, categoryID, supplierID *uuid.UUID) error {
	if categoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *categoryID); err != nil {
			return translate(err, "Category", *categoryID)
		}
	}
	if supplierID != nil {
		if _, err := s.supplierRepo.FindByID(ctx, *supplierID); err != nil {
			return translate(err, "Supplier", *supplierID)
		}
	}
	return nil
}
