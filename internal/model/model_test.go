package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProduct_IsLowStock(t *testing.T) {
	cases := []struct {
		stock, min int
		want       bool
	}{
		{stock: 3, min: 5, want: true},
		{stock: 5, min: 5, want: false},
		{stock: 0, min: 0, want: false},
		{stock: 0, min: 1, want: true},
	}
	for _, c := range cases {
		p := Product{Stock: c.stock, MinStock: c.min}
		assert.Equal(t, c.want, p.IsLowStock(), "stock=%d min=%d", c.stock, c.min)
		assert.Equal(t, c.want, p.View().IsLowStock)
	}
}

func TestNewSaleItem(t *testing.T) {
	p := &Product{
		BaseModel: BaseModel{ID: uuid.New()},
		Price:     decimal.RequireFromString("10.00"),
		Cost:      decimal.RequireFromString("6.00"),
	}
	saleID := uuid.New()

	item := NewSaleItem(saleID, p, 3)

	assert.Equal(t, saleID, item.SaleID)
	assert.Equal(t, p.ID, item.ProductID)
	assert.True(t, item.Subtotal.Equal(decimal.NewFromInt(30)))
	assert.True(t, item.Profit.Equal(decimal.NewFromInt(12)))
}

func TestNewStockLog_Balanced(t *testing.T) {
	l := NewStockLog(uuid.New(), ChangeDamage, 10, -4, nil, nil, "u1")
	assert.Equal(t, 6, l.After)
	assert.True(t, l.Balanced())

	l.After = 7
	assert.False(t, l.Balanced())
}

func TestChangeType_Valid(t *testing.T) {
	for _, c := range []ChangeType{ChangeSale, ChangeRestock, ChangeAdjustment, ChangeDamage, ChangeReturn} {
		assert.True(t, c.Valid())
	}
	assert.False(t, ChangeType("THEFT").Valid())
}

func TestUser_Password(t *testing.T) {
	u := &User{}
	assert.NoError(t, u.SetPassword("password123"))
	assert.NotEqual(t, "password123", u.Password)
	assert.True(t, u.CheckPassword("password123"))
	assert.False(t, u.CheckPassword("wrong"))
}
