package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	SKU      string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku"`
	Name     string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Cost     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost"`
	Stock    int             `gorm:"not null;default:0;check:chk_products_stock_non_negative,stock >= 0" json:"stock"`
	MinStock int             `gorm:"not null;default:0" json:"min_stock"`

	CategoryID uuid.UUID `gorm:"type:uuid;not null;index" json:"category_id"`
	Category   *Category `gorm:"constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	SupplierID uuid.UUID `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier   *Supplier `gorm:"constraint:OnDelete:RESTRICT" json:"supplier,omitempty"`
}

// IsLowStock reports whether stock has fallen under the reorder threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock < p.MinStock
}

// ProductView is a product as served to clients, with derived fields.
type ProductView struct {
	Product
	IsLowStock bool `json:"is_low_stock"`
}

func (p *Product) View() ProductView {
	return ProductView{Product: *p, IsLowStock: p.IsLowStock()}
}

// LowStockProduct adds how many units are missing to reach MinStock.
type LowStockProduct struct {
	Product
	StockDeficit int `json:"stock_deficit"`
}

// ProductDetail is a product with its most recent ledger entries.
type ProductDetail struct {
	ProductView
	StockLogs []StockLog `json:"stock_logs"`
}
