package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"lane-inventory/internal/model"
	"lane-inventory/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateSale_DecrementsStockAndWritesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	laptop := f.createProduct(t, "LAP-001", 10, 6, 10, 2)
	mouse := f.createProduct(t, "MOU-001", 2.5, 1, 5, 1)

	sale, err := f.sales.CreateSale(ctx, CreateSaleInput{Items: []SaleLineInput{
		{ProductID: laptop.ID, Quantity: 3},
		{ProductID: mouse.ID, Quantity: 2},
	}}, staff)
	require.NoError(t, err)

	assert.True(t, dec("35").Equal(sale.Total), "total = %s", sale.Total)
	assert.True(t, dec("15").Equal(sale.Profit), "profit = %s", sale.Profit)
	require.Len(t, sale.Items, 2)

	assert.Equal(t, 7, f.stock(t, laptop.ID))
	assert.Equal(t, 3, f.stock(t, mouse.ID))

	entries, err := f.stockLogRepo.FindByReference(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, model.ChangeSale, e.ChangeType)
		assert.True(t, e.Balanced())
		require.NotNil(t, e.Notes)
		assert.Equal(t, "Sale transaction", *e.Notes)
	}

	assert.Contains(t, f.events.actions(), "sale_created")
}

func TestCreateSale_LinePricesSnapshotProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "KB-001", 20, 12, 10, 0)

	sale, err := f.sales.CreateSale(ctx, CreateSaleInput{Items: []SaleLineInput{{ProductID: p.ID, Quantity: 2}}}, staff)
	require.NoError(t, err)

	newPrice := dec("99")
	_, err = f.inventory.UpdateProduct(ctx, p.ID, UpdateProductInput{Price: &newPrice}, staff)
	require.NoError(t, err)

	again, err := f.sales.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, again.Items, 1)
	item := again.Items[0]
	assert.True(t, dec("20").Equal(item.Price))
	assert.True(t, dec("12").Equal(item.Cost))
	assert.True(t, dec("40").Equal(item.Subtotal))
	assert.True(t, dec("16").Equal(item.Profit))
	assert.True(t, dec("40").Equal(again.Total))
}

func TestCreateSale_InsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ok := f.createProduct(t, "OK-001", 5, 3, 10, 0)
	short := f.createProduct(t, "SHORT-001", 5, 3, 2, 0)

	_, err := f.sales.CreateSale(ctx, CreateSaleInput{Items: []SaleLineInput{
		{ProductID: ok.ID, Quantity: 1},
		{ProductID: short.ID, Quantity: 3},
	}}, staff)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, short.ID, stockErr.ProductID)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, "Insufficient stock for Product SHORT-001. Available: 2, Requested: 3", stockErr.Error())

	assert.Equal(t, 10, f.stock(t, ok.ID))
	assert.Equal(t, 2, f.stock(t, short.ID))
	assert.Equal(t, int64(0), f.count(t, &model.Sale{}))
	assert.Equal(t, int64(0), f.count(t, &model.SaleItem{}))
	assert.Len(t, f.ledger(t, ok.ID), 1)
	assert.Len(t, f.ledger(t, short.ID), 1)
	assert.NotContains(t, f.events.actions(), "sale_created")
}

func TestCreateSale_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, "P-001", 5, 3, 10, 0)

	_, err := f.sales.CreateSale(context.Background(), CreateSaleInput{Items: []SaleLineInput{
		{ProductID: p.ID, Quantity: 1},
		{ProductID: uuid.New(), Quantity: 1},
	}}, staff)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 10, f.stock(t, p.ID))
}

func TestCreateSale_DeletedProductCannotBeSold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "GONE-001", 5, 3, 10, 0)
	require.NoError(t, f.inventory.DeleteProduct(ctx, p.ID, staff))

	_, err := f.sales.CreateSale(ctx, CreateSaleInput{Items: []SaleLineInput{{ProductID: p.ID, Quantity: 1}}}, staff)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateSale_DuplicateLinesShareStock(t *testing.T) {
	t.Run("combined quantity exceeds stock", func(t *testing.T) {
		f := newFixture(t)
		p := f.createProduct(t, "DUP-001", 5, 3, 5, 0)

		_, err := f.sales.CreateSale(context.Background(), CreateSaleInput{Items: []SaleLineInput{
			{ProductID: p.ID, Quantity: 3},
			{ProductID: p.ID, Quantity: 3},
		}}, staff)

		var stockErr *InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, 5, stockErr.Available)
		assert.Equal(t, 6, stockErr.Requested)
		assert.Equal(t, 5, f.stock(t, p.ID))
	})

	t.Run("ledger chains through each line", func(t *testing.T) {
		f := newFixture(t)
		p := f.createProduct(t, "DUP-002", 5, 3, 5, 0)

		sale, err := f.sales.CreateSale(context.Background(), CreateSaleInput{Items: []SaleLineInput{
			{ProductID: p.ID, Quantity: 2},
			{ProductID: p.ID, Quantity: 3},
		}}, staff)
		require.NoError(t, err)
		assert.Len(t, sale.Items, 2)
		assert.Equal(t, 0, f.stock(t, p.ID))

		logs := f.ledger(t, p.ID)
		require.Len(t, logs, 3)
		assert.Equal(t, []int{0, 5, 3}, []int{logs[0].Before, logs[1].Before, logs[2].Before})
		assert.Equal(t, []int{5, 3, 0}, []int{logs[0].After, logs[1].After, logs[2].After})
	})
}

func TestGetSale_KeepsLineOrder(t *testing.T) {
	f := newFixture(t)
	skus := []string{"ORD-C", "ORD-A", "ORD-B"}
	lines := make([]SaleLineInput, len(skus))
	for i, sku := range skus {
		p := f.createProduct(t, sku, 5, 3, 10, 0)
		lines[i] = SaleLineInput{ProductID: p.ID, Quantity: i + 1}
	}

	// Every line is written in one insert, so they share a timestamp.
	created, err := f.sales.CreateSale(context.Background(), CreateSaleInput{Items: lines}, staff)
	require.NoError(t, err)

	sale, err := f.sales.GetSale(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, sale.Items, len(skus))
	for i, item := range sale.Items {
		assert.Equal(t, i, item.Position)
		assert.Equal(t, lines[i].ProductID, item.ProductID)
		require.NotNil(t, item.Product)
		assert.Equal(t, skus[i], item.Product.SKU)
	}
}

func TestCreateSale_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, "VAL-001", 5, 3, 5, 0)

	tests := []struct {
		name  string
		input CreateSaleInput
		field string
	}{
		{"no items", CreateSaleInput{}, "items"},
		{"zero quantity", CreateSaleInput{Items: []SaleLineInput{{ProductID: p.ID, Quantity: 0}}}, "items[0].quantity"},
		{"missing product", CreateSaleInput{Items: []SaleLineInput{{Quantity: 1}}}, "items[0].product_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sales.CreateSale(context.Background(), tt.input, staff)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tt.field, verr.Fields[0].FailedField)
			assert.True(t, errors.Is(err, ErrInvalidOperation))
		})
	}
	assert.Equal(t, 5, f.stock(t, p.ID))
}

func TestCreateSale_RollsBackWhenLedgerWriteFails(t *testing.T) {
	f := newFixture(t)
	a := f.createProduct(t, "ATOM-001", 5, 3, 10, 0)
	b := f.createProduct(t, "ATOM-002", 5, 3, 10, 0)

	inserts := 0
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_second_ledger_entry", func(tx *gorm.DB) {
		if tx.Statement.Table != "stock_logs" {
			return
		}
		inserts++
		if inserts == 2 {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := f.sales.CreateSale(context.Background(), CreateSaleInput{Items: []SaleLineInput{
		{ProductID: a.ID, Quantity: 4},
		{ProductID: b.ID, Quantity: 4},
	}}, staff)
	require.Error(t, err)

	assert.Equal(t, 10, f.stock(t, a.ID))
	assert.Equal(t, 10, f.stock(t, b.ID))
	assert.Equal(t, int64(0), f.count(t, &model.Sale{}))
	assert.Len(t, f.ledger(t, a.ID), 1)
	assert.Len(t, f.ledger(t, b.ID), 1)
}

func TestGetSales_FiltersByDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "FLT-001", 5, 3, 10, 0)

	f.clock.Set(time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC))
	_, err := f.sales.CreateSale(ctx, CreateSaleInput{Items: []SaleLineInput{{ProductID: p.ID, Quantity: 1}}}, staff)
	require.NoError(t, err)
	f.clock.Set(time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC))
	later, err := f.sales.CreateSale(ctx, CreateSaleInput{Items: []SaleLineInput{{ProductID: p.ID, Quantity: 1}}}, staff)
	require.NoError(t, err)

	all, err := f.sales.GetSales(ctx, repository.SaleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, later.ID, all[0].ID, "newest first")

	from := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	filtered, err := f.sales.GetSales(ctx, repository.SaleFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, later.ID, filtered[0].ID)
}

func TestDeleteSale_ReturnsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createProduct(t, "DEL-001", 5, 3, 10, 0)
	b := f.createProduct(t, "DEL-002", 5, 3, 10, 0)

	sale, err := f.sales.CreateSale(ctx, CreateSaleInput{Items: []SaleLineInput{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 1},
		{ProductID: a.ID, Quantity: 3},
	}}, staff)
	require.NoError(t, err)
	require.Equal(t, 5, f.stock(t, a.ID))

	require.NoError(t, f.sales.DeleteSale(ctx, sale.ID, staff))

	assert.Equal(t, 10, f.stock(t, a.ID))
	assert.Equal(t, 10, f.stock(t, b.ID))
	_, err = f.sales.GetSale(ctx, sale.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, int64(0), f.count(t, &model.SaleItem{}))

	logs := f.ledger(t, a.ID)
	last := logs[len(logs)-1]
	assert.Equal(t, model.ChangeReturn, last.ChangeType)
	assert.Equal(t, 5, last.Quantity)
	assert.Equal(t, 5, last.Before)
	assert.Equal(t, 10, last.After)
	require.NotNil(t, last.ReferenceID)
	assert.Equal(t, sale.ID, *last.ReferenceID)

	assert.Contains(t, f.events.actions(), "sale_deleted")
}

func TestDeleteSale_RestocksDeletedProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "DEL-003", 5, 3, 10, 0)

	sale, err := f.sales.CreateSale(ctx, CreateSaleInput{Items: []SaleLineInput{{ProductID: p.ID, Quantity: 4}}}, staff)
	require.NoError(t, err)
	require.NoError(t, f.inventory.DeleteProduct(ctx, p.ID, staff))

	require.NoError(t, f.sales.DeleteSale(ctx, sale.ID, staff))
	assert.Equal(t, 10, f.stock(t, p.ID))
}

func TestDeleteSale_NotFound(t *testing.T) {
	f := newFixture(t)
	err := f.sales.DeleteSale(context.Background(), uuid.New(), staff)
	assert.True(t, errors.Is(err, ErrNotFound))
}
