package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"lane-inventory/internal/model"
	"lane-inventory/internal/repository"
	"lane-inventory/internal/ws"
	"lane-inventory/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ws.Event
}

func (p *recordingPublisher) Publish(ev ws.Event) bool {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return true
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Action
	}
	return out
}

type fixture struct {
	db     *gorm.DB
	clock  *testClock
	events *recordingPublisher

	productRepo  repository.ProductRepository
	saleRepo     repository.SaleRepository
	stockLogRepo repository.StockLogRepository
	categoryRepo repository.CategoryRepository
	supplierRepo repository.SupplierRepository
	userRepo     repository.UserRepository

	inventory InventoryService
	sales     SaleService
	catalog   CatalogService
	reports   ReportService

	category *model.Category
	supplier *model.Supplier
}

var staff = Actor{Name: "Staff User", Email: "staff@test.com"}

// newTestDB opens a private in-memory database. One connection keeps every
// statement on the same memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), database.GormConfig(zerolog.Nop(), database.DefaultOptions()))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, model.AutoMigrate(db))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	clock := &testClock{}
	clock.Set(time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))
	db.Config.NowFunc = clock.Now

	f := &fixture{
		db:           db,
		clock:        clock,
		events:       &recordingPublisher{},
		productRepo:  repository.NewProductRepo(db),
		saleRepo:     repository.NewSaleRepo(db),
		stockLogRepo: repository.NewStockLogRepo(db),
		categoryRepo: repository.NewCategoryRepo(db),
		supplierRepo: repository.NewSupplierRepo(db),
		userRepo:     repository.NewUserRepo(db),
	}

	deps := Deps{DB: db, Events: f.events}
	f.inventory = NewInventoryService(deps, f.productRepo, f.categoryRepo, f.supplierRepo, f.stockLogRepo)
	f.sales = NewSaleService(deps, f.productRepo, f.saleRepo, f.stockLogRepo)
	f.catalog = NewCatalogService(deps, f.categoryRepo, f.supplierRepo)
	f.reports = NewReportService(f.productRepo, f.saleRepo, f.stockLogRepo, nil, ReportOptions{Now: clock.Now})

	ctx := context.Background()
	var err error
	f.category, err = f.catalog.CreateCategory(ctx, CategoryInput{Name: "Electronics"}, staff)
	require.NoError(t, err)
	f.supplier, err = f.catalog.CreateSupplier(ctx, SupplierInput{Name: "Tech Supplies Inc"}, staff)
	require.NoError(t, err)
	return f
}

func (f *fixture) createProduct(t *testing.T, sku string, price, cost float64, stock, minStock int) *model.ProductView {
	t.Helper()
	p, err := f.inventory.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Product " + sku,
		SKU:        sku,
		Price:      decimal.NewFromFloat(price),
		Cost:       decimal.NewFromFloat(cost),
		Stock:      stock,
		MinStock:   minStock,
		CategoryID: f.category.ID,
		SupplierID: f.supplier.ID,
	}, staff)
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id interface{}) int {
	t.Helper()
	var p model.Product
	require.NoError(t, f.db.Unscoped().First(&p, "id = ?", id).Error)
	return p.Stock
}

func (f *fixture) ledger(t *testing.T, productID interface{}) []model.StockLog {
	t.Helper()
	var logs []model.StockLog
	require.NoError(t, f.db.Where("product_id = ?", productID).Order("created_at ASC, rowid ASC").Find(&logs).Error)
	return logs
}

func (f *fixture) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Unscoped().Model(m).Count(&n).Error)
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
