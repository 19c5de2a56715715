package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

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

type SaleService interface {
	CreateSale(ctx context.Context, in CreateSaleInput, actor Actor) (*model.Sale, error)
	GetSales(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	DeleteSale(ctx context.Context, id uuid.UUID, actor Actor) error
}

type SaleLineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
}

type CreateSaleInput struct {
	Items []SaleLineInput `json:"items" validate:"required,min=1,dive"`
}

type saleService struct {
	Deps
	productRepo  repository.ProductRepository
	saleRepo     repository.SaleRepository
	stockLogRepo repository.StockLogRepository
}

func NewSaleService(
	deps Deps,
	productRepo repository.ProductRepository,
	saleRepo repository.SaleRepository,
	stockLogRepo repository.StockLogRepository,
) SaleService {
	return &saleService{
		Deps:         deps.withDefaults(),
		productRepo:  productRepo,
		saleRepo:     saleRepo,
		stockLogRepo: stockLogRepo,
	}
}

// CreateSale records a multi-line sale. All products are locked and checked
// before anything is written; then every decrement, ledger entry, and the
// sale itself commit in one transaction or not at all.
func (s *saleService) CreateSale(ctx context.Context, in CreateSaleInput, actor Actor) (*model.Sale, error) {
	ctx, span := telemetry.StartSpan(ctx, "SaleService.CreateSale", attribute.Int("sale.lines", len(in.Items)))
	sale, err := s.createSale(ctx, in, actor)
	telemetry.EndSpan(span, err)
	return sale, err
}

func (s *saleService) createSale(ctx context.Context, in CreateSaleInput, actor Actor) (*model.Sale, error) {
	if err := validate(&in); err != nil {
		metrics.SalesRejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	saleID := uuid.New()
	sale := &model.Sale{Total: decimal.Zero, Profit: decimal.Zero}
	sale.ID = saleID
	sale.CreatedBy = actor.AuditID()
	sale.UpdatedBy = actor.AuditID()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products, err := s.lockAndCheck(tx, in.Items)
		if err != nil {
			return err
		}

		// Lines for the same product see the stock left by the previous line.
		running := make(map[uuid.UUID]int, len(products))
		for id, p := range products {
			running[id] = p.Stock
		}

		sale.Items = make([]model.SaleItem, 0, len(in.Items))
		for i, line := range in.Items {
			product := products[line.ProductID]
			item := model.NewSaleItem(saleID, product, line.Quantity)
			item.Position = i
			sale.Items = append(sale.Items, item)
			sale.Total = sale.Total.Add(item.Subtotal)
			sale.Profit = sale.Profit.Add(item.Profit)

			if err := s.productRepo.ApplyStockDelta(tx, product.ID, -line.Quantity, actor.AuditID()); err != nil {
				if errors.Is(err, repository.ErrStockUnderflow) {
					return &InsufficientStockError{
						ProductID:   product.ID,
						ProductName: product.Name,
						Available:   running[product.ID],
						Requested:   line.Quantity,
					}
				}
				return err
			}

			note := "Sale transaction"
			entry := model.NewStockLog(product.ID, model.ChangeSale, running[product.ID], -line.Quantity, &note, &saleID, actor.AuditID())
			if err := s.stockLogRepo.Append(tx, entry); err != nil {
				return err
			}
			running[product.ID] = entry.After
		}

		return s.saleRepo.Create(tx, sale)
	})
	if err != nil {
		s.recordRejection(ctx, err)
		return nil, err
	}

	created, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, translate(err, "Sale", saleID)
	}

	revenue, _ := created.Total.Float64()
	metrics.SalesCompleted.Inc()
	metrics.SalesRevenue.Add(revenue)
	metrics.StockAdjustments.WithLabelValues(string(model.ChangeSale)).Add(float64(len(created.Items)))
	logger.FromContext(ctx).Info().
		Str("sale_id", saleID.String()).
		Int("items", len(created.Items)).
		Str("total", created.Total.StringFixed(2)).
		Str("profit", created.Profit.StringFixed(2)).
		Msg("sale created")

	s.afterCommit(ctx, ws.Event{
		Type:    "sale",
		Action:  "sale_created",
		Data:    created,
		User:    actor.wsUser(),
		Message: describe(actor, "recorded a sale of %s", created.Total.StringFixed(2)),
	})
	return created, nil
}

// lockAndCheck locks every product on the sale in id order and verifies it
// exists and covers the requested quantity, summed over duplicate lines.
func (s *saleService) lockAndCheck(tx *gorm.DB, lines []SaleLineInput) (map[uuid.UUID]*model.Product, error) {
	requested := make(map[uuid.UUID]int, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, seen := requested[line.ProductID]; !seen {
			ids = append(ids, line.ProductID)
		}
		requested[line.ProductID] += line.Quantity
	}

	locked, err := s.productRepo.LockByIDs(tx, ids)
	if err != nil {
		return nil, err
	}
	products := make(map[uuid.UUID]*model.Product, len(locked))
	for i := range locked {
		products[locked[i].ID] = &locked[i]
	}

	// Report problems in the order the lines were given.
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, notFound("Product", line.ProductID)
		}
		if p.Stock < requested[p.ID] {
			return nil, &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   requested[p.ID],
			}
		}
	}
	return products, nil
}

func (s *saleService) recordRejection(ctx context.Context, err error) {
	reason := "error"
	switch {
	case errors.Is(err, ErrInsufficientStock):
		reason = "insufficient_stock"
	case errors.Is(err, ErrNotFound):
		reason = "not_found"
	}
	metrics.SalesRejected.WithLabelValues(reason).Inc()

	ev := logger.FromContext(ctx).Warn()
	if reason == "error" {
		ev = logger.FromContext(ctx).Error()
	}
	ev.Err(err).Str("reason", reason).Msg("sale rejected")
}

func (s *saleService) GetSales(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, error) {
	return s.saleRepo.FindAll(ctx, filter)
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Sale", id)
	}
	return sale, nil
}

// DeleteSale voids a sale: each line's quantity goes back on the shelf with a
// RETURN ledger entry, then the sale and its items are removed.
func (s *saleService) DeleteSale(ctx context.Context, id uuid.UUID, actor Actor) error {
	ctx, span := telemetry.StartSpan(ctx, "SaleService.DeleteSale", attribute.String("sale.id", id.String()))
	err := s.deleteSale(ctx, id, actor)
	telemetry.EndSpan(span, err)
	return err
}

func (s *saleService) deleteSale(ctx context.Context, id uuid.UUID, actor Actor) error {
	var restocked int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.saleRepo.LockByID(tx, id)
		if err != nil {
			return translate(err, "Sale", id)
		}

		returned := make(map[uuid.UUID]int)
		ids := make([]uuid.UUID, 0, len(sale.Items))
		for _, item := range sale.Items {
			if _, seen := returned[item.ProductID]; !seen {
				ids = append(ids, item.ProductID)
			}
			returned[item.ProductID] += item.Quantity
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

		note := fmt.Sprintf("Sale %s deleted", id)
		for _, productID := range ids {
			// Deleted products still take their stock back.
			product, err := s.productRepo.LockByID(tx.Unscoped(), productID)
			if err != nil {
				return translate(err, "Product", productID)
			}
			qty := returned[productID]
			if err := s.productRepo.ApplyStockDelta(tx.Unscoped(), productID, qty, actor.AuditID()); err != nil {
				return err
			}
			entry := model.NewStockLog(productID, model.ChangeReturn, product.Stock, qty, &note, &id, actor.AuditID())
			if err := s.stockLogRepo.Append(tx, entry); err != nil {
				return err
			}
			restocked++
		}

		return s.saleRepo.Delete(tx, id)
	})
	if err != nil {
		return err
	}

	metrics.StockAdjustments.WithLabelValues(string(model.ChangeReturn)).Add(float64(restocked))
	logger.FromContext(ctx).Info().
		Str("sale_id", id.String()).
		Int("products_restocked", restocked).
		Msg("sale deleted")

	s.afterCommit(ctx, ws.Event{
		Type:    "sale",
		Action:  "sale_deleted",
		Data:    map[string]string{"id": id.String()},
		User:    actor.wsUser(),
		Message: describe(actor, "deleted a sale"),
	})
	return nil
}
