//go:build integration

package service

// Runs against a real Postgres started with testcontainers:
//   go test -tags integration ./internal/service/...

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lane-inventory/internal/model"
	"lane-inventory/internal/repository"
	"lane-inventory/pkg/database"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func newPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("inventory_test"),
		tcPostgres.WithUsername("inventory"),
		tcPostgres.WithPassword("inventory"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(dsn, zerolog.Nop(), database.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, model.AutoMigrate(db))
	return db
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	db := newPostgres(t)
	ctx := context.Background()

	productRepo := repository.NewProductRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	supplierRepo := repository.NewSupplierRepo(db)
	stockLogRepo := repository.NewStockLogRepo(db)
	deps := Deps{DB: db}

	catalog := NewCatalogService(deps, categoryRepo, supplierRepo)
	inventory := NewInventoryService(deps, productRepo, categoryRepo, supplierRepo, stockLogRepo)
	sales := NewSaleService(deps, productRepo, repository.NewSaleRepo(db), stockLogRepo)

	category, err := catalog.CreateCategory(ctx, CategoryInput{Name: "Electronics"}, staff)
	require.NoError(t, err)
	supplier, err := catalog.CreateSupplier(ctx, SupplierInput{Name: "Tech Supplies Inc"}, staff)
	require.NoError(t, err)

	const initial = 10
	product, err := inventory.CreateProduct(ctx, CreateProductInput{
		Name:       "Limited Edition",
		SKU:        "LTD-001",
		Price:      decimal.NewFromInt(50),
		Cost:       decimal.NewFromInt(20),
		Stock:      initial,
		CategoryID: category.ID,
		SupplierID: supplier.ID,
	}, staff)
	require.NoError(t, err)

	const buyers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
		other     []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sales.CreateSale(ctx, CreateSaleInput{
				Items: []SaleLineInput{{ProductID: product.ID, Quantity: 1}},
			}, staff)

			mu.Lock()
			defer mu.Unlock()
			var stockErr *InsufficientStockError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &stockErr):
				rejected++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, initial, succeeded)
	assert.Equal(t, buyers-initial, rejected)

	var p model.Product
	require.NoError(t, db.First(&p, "id = ?", product.ID).Error)
	assert.Equal(t, 0, p.Stock)

	var saleEntries int64
	require.NoError(t, db.Model(&model.StockLog{}).
		Where("product_id = ? AND change_type = ?", product.ID, model.ChangeSale).
		Count(&saleEntries).Error)
	assert.EqualValues(t, initial, saleEntries)

	// Replaying the ledger lands on the stored stock.
	var sum int64
	require.NoError(t, db.Model(&model.StockLog{}).
		Where("product_id = ?", product.ID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error)
	assert.EqualValues(t, p.Stock, sum)
}
