package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lane-inventory/internal/cache"
	"lane-inventory/internal/model"
	"lane-inventory/internal/repository"
	"lane-inventory/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	bestSellingLimit = 10
	recentSalesLimit = 10
	profitMonths     = 12
)

type ReportService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	SalesReport(ctx context.Context, startDate, endDate *time.Time) (*SalesReport, error)
	InventoryReport(ctx context.Context) (*InventoryReport, error)
	ProfitReport(ctx context.Context) (*ProfitReport, error)
	StockMovement(ctx context.Context, days int) ([]StockMovementData, error)
}

type PeriodStats struct {
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
	Sales   int64           `json:"sales"`
}

type InventoryStats struct {
	TotalProducts int64 `json:"total_products"`
	LowStockCount int64 `json:"low_stock_count"`
}

type BestSeller struct {
	Product       *model.Product  `json:"product"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type Dashboard struct {
	Daily       PeriodStats    `json:"daily"`
	Monthly     PeriodStats    `json:"monthly"`
	Inventory   InventoryStats `json:"inventory"`
	BestSelling []BestSeller   `json:"best_selling"`
	RecentSales []model.Sale   `json:"recent_sales"`
}

type SalesSummary struct {
	TotalSales        int             `json:"total_sales"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

type SalesReport struct {
	Sales   []model.Sale `json:"sales"`
	Summary SalesSummary `json:"summary"`
}

type InventoryLine struct {
	model.ProductView
	StockValue  decimal.Decimal `json:"stock_value"`
	RetailValue decimal.Decimal `json:"retail_value"`
}

type InventorySummary struct {
	TotalProducts    int             `json:"total_products"`
	TotalStockValue  decimal.Decimal `json:"total_stock_value"`
	TotalRetailValue decimal.Decimal `json:"total_retail_value"`
	PotentialProfit  decimal.Decimal `json:"potential_profit"`
}

type InventoryReport struct {
	Products []InventoryLine  `json:"products"`
	Summary  InventorySummary `json:"summary"`
}

type MonthlyProfit struct {
	Month   string          `json:"month"`
	Start   time.Time       `json:"start"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
	Sales   int64           `json:"sales"`
}

type ProfitReport struct {
	MonthlyData []MonthlyProfit `json:"monthly_data"`
}

// StockMovementData is one day of ledger activity.
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

type ReportOptions struct {
	Location *time.Location
	CacheTTL time.Duration
	Now      func() time.Time
}

type reportService struct {
	productRepo  repository.ProductRepository
	saleRepo     repository.SaleRepository
	stockLogRepo repository.StockLogRepository
	cache        cache.ReportCache
	loc          *time.Location
	ttl          time.Duration
	now          func() time.Time
}

func NewReportService(
	productRepo repository.ProductRepository,
	saleRepo repository.SaleRepository,
	stockLogRepo repository.StockLogRepository,
	reportCache cache.ReportCache,
	opts ReportOptions,
) ReportService {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &reportService{
		productRepo:  productRepo,
		saleRepo:     saleRepo,
		stockLogRepo: stockLogRepo,
		cache:        reportCache,
		loc:          opts.Location,
		ttl:          opts.CacheTTL,
		now:          opts.Now,
	}
}

func (s *reportService) startOfDay(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

func (s *reportService) startOfMonth(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, s.loc)
}

// cached serves key from the report cache, computing and storing it on a miss.
// A report computed while a write invalidated the cache is returned but not stored.
func cached[T any](ctx context.Context, s *reportService, key string, compute func() (*T, error)) (*T, error) {
	log := logger.FromContext(ctx)

	var hit T
	if ok, err := s.cache.Get(ctx, key, &hit); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache read failed")
	} else if ok {
		return &hit, nil
	}

	version, verr := s.cache.Version(ctx)
	if verr != nil {
		log.Warn().Err(verr).Str("key", key).Msg("report cache version read failed")
	}

	value, err := compute()
	if err != nil {
		return nil, err
	}
	if s.ttl > 0 && verr == nil {
		err := s.cache.Set(ctx, key, value, s.ttl, version)
		switch {
		case errors.Is(err, cache.ErrStale):
			log.Debug().Str("key", key).Msg("report changed during compute, not cached")
		case err != nil:
			log.Warn().Err(err).Str("key", key).Msg("report cache write failed")
		}
	}
	return value, nil
}

func periodStats(sum *repository.SalesSummary) PeriodStats {
	return PeriodStats{Revenue: sum.Revenue, Profit: sum.Profit, Sales: sum.Count}
}

func (s *reportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	return cached(ctx, s, "dashboard", func() (*Dashboard, error) {
		now := s.now()
		dayStart := s.startOfDay(now)
		dayEnd := dayStart.AddDate(0, 0, 1)
		monthStart := s.startOfMonth(now)
		monthEnd := monthStart.AddDate(0, 1, 0)

		daily, err := s.saleRepo.Summarize(ctx, repository.SaleFilter{From: &dayStart, To: &dayEnd})
		if err != nil {
			return nil, err
		}
		monthly, err := s.saleRepo.Summarize(ctx, repository.SaleFilter{From: &monthStart, To: &monthEnd})
		if err != nil {
			return nil, err
		}

		totalProducts, err := s.productRepo.Count(ctx)
		if err != nil {
			return nil, err
		}
		lowStock, err := s.productRepo.CountLowStock(ctx)
		if err != nil {
			return nil, err
		}

		best, err := s.bestSelling(ctx)
		if err != nil {
			return nil, err
		}

		recent, err := s.saleRepo.FindAll(ctx, repository.SaleFilter{Limit: recentSalesLimit})
		if err != nil {
			return nil, err
		}

		return &Dashboard{
			Daily:       periodStats(daily),
			Monthly:     periodStats(monthly),
			Inventory:   InventoryStats{TotalProducts: totalProducts, LowStockCount: lowStock},
			BestSelling: best,
			RecentSales: recent,
		}, nil
	})
}

func (s *reportService) bestSelling(ctx context.Context) ([]BestSeller, error) {
	rows, err := s.saleRepo.BestSelling(ctx, bestSellingLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ProductID
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	out := make([]BestSeller, len(rows))
	for i, r := range rows {
		out[i] = BestSeller{
			Product:       byID[r.ProductID],
			TotalQuantity: r.TotalQuantity,
			TotalRevenue:  r.TotalRevenue,
		}
	}
	return out, nil
}

// SalesReport lists sales between two calendar dates, both inclusive. Either
// bound may be omitted.
func (s *reportService) SalesReport(ctx context.Context, startDate, endDate *time.Time) (*SalesReport, error) {
	var filter repository.SaleFilter
	if startDate != nil {
		from := s.startOfDay(*startDate)
		filter.From = &from
	}
	if endDate != nil {
		to := s.startOfDay(*endDate).AddDate(0, 0, 1)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, fmt.Errorf("%w: start date must not be after end date", ErrInvalidOperation)
	}

	sales, err := s.saleRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := SalesSummary{
		TotalSales:        len(sales),
		TotalRevenue:      decimal.Zero,
		TotalProfit:       decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	for _, sale := range sales {
		summary.TotalRevenue = summary.TotalRevenue.Add(sale.Total)
		summary.TotalProfit = summary.TotalProfit.Add(sale.Profit)
	}
	if len(sales) > 0 {
		summary.AverageOrderValue = summary.TotalRevenue.Div(decimal.NewFromInt(int64(len(sales)))).Round(2)
	}
	summary.TotalRevenue = summary.TotalRevenue.Round(2)
	summary.TotalProfit = summary.TotalProfit.Round(2)

	return &SalesReport{Sales: sales, Summary: summary}, nil
}

func (s *reportService) InventoryReport(ctx context.Context) (*InventoryReport, error) {
	return cached(ctx, s, "inventory", func() (*InventoryReport, error) {
		products, err := s.productRepo.FindAll(ctx)
		if err != nil {
			return nil, err
		}

		report := &InventoryReport{
			Products: make([]InventoryLine, len(products)),
			Summary: InventorySummary{
				TotalProducts:    len(products),
				TotalStockValue:  decimal.Zero,
				TotalRetailValue: decimal.Zero,
			},
		}
		for i := range products {
			p := &products[i]
			qty := decimal.NewFromInt(int64(p.Stock))
			line := InventoryLine{
				ProductView: p.View(),
				StockValue:  p.Cost.Mul(qty).Round(2),
				RetailValue: p.Price.Mul(qty).Round(2),
			}
			report.Products[i] = line
			report.Summary.TotalStockValue = report.Summary.TotalStockValue.Add(line.StockValue)
			report.Summary.TotalRetailValue = report.Summary.TotalRetailValue.Add(line.RetailValue)
		}
		report.Summary.PotentialProfit = report.Summary.TotalRetailValue.Sub(report.Summary.TotalStockValue)
		return report, nil
	})
}

// ProfitReport buckets the trailing twelve calendar months, current month
// included, oldest first. Months without sales report zeros.
func (s *reportService) ProfitReport(ctx context.Context) (*ProfitReport, error) {
	return cached(ctx, s, "profit", func() (*ProfitReport, error) {
		current := s.startOfMonth(s.now())
		first := current.AddDate(0, -(profitMonths - 1), 0)

		bounds := make([]time.Time, profitMonths+1)
		for i := range bounds {
			bounds[i] = first.AddDate(0, i, 0)
		}
		totals, err := s.saleRepo.SummarizePeriods(ctx, bounds)
		if err != nil {
			return nil, err
		}

		buckets := make([]MonthlyProfit, profitMonths)
		for i := range buckets {
			buckets[i] = MonthlyProfit{
				Month:   bounds[i].Format("Jan 2006"),
				Start:   bounds[i],
				Revenue: totals[i].Revenue,
				Profit:  totals[i].Profit,
				Sales:   totals[i].Count,
			}
		}
		return &ProfitReport{MonthlyData: buckets}, nil
	})
}

// StockMovement sums ledger quantities per day over the last days days,
// today included. Positive entries count as inbound, negative as outbound.
func (s *reportService) StockMovement(ctx context.Context, days int) ([]StockMovementData, error) {
	if days <= 0 {
		days = 7
	}
	first := s.startOfDay(s.now()).AddDate(0, 0, -(days - 1))
	end := first.AddDate(0, 0, days)

	logs, err := s.stockLogRepo.FindBetween(ctx, first, end)
	if err != nil {
		return nil, err
	}

	out := make([]StockMovementData, days)
	index := make(map[string]int, days)
	for i := range out {
		d := first.AddDate(0, 0, i).Format("2006-01-02")
		out[i].Date = d
		index[d] = i
	}
	for _, l := range logs {
		i, ok := index[l.CreatedAt.In(s.loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		if l.Quantity > 0 {
			out[i].Inbound += l.Quantity
		} else {
			out[i].Outbound -= l.Quantity
		}
	}
	return out, nil
}
