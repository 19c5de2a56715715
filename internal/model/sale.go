package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is one completed checkout.
type Sale struct {
	BaseModel
	Total  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Profit decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"profit"`
	Items  []SaleItem      `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

// SaleItem captures price and cost at the moment of sale. Later product
// edits never change it.
type SaleItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	// Position is the line's index in the checkout request.
	Position  int             `gorm:"not null;default:0" json:"position"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Cost      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Profit    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"profit"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewSaleItem prices a line from the product's current price and cost.
func NewSaleItem(saleID uuid.UUID, p *Product, quantity int) SaleItem {
	q := decimal.NewFromInt(int64(quantity))
	return SaleItem{
		ID:        uuid.New(),
		SaleID:    saleID,
		ProductID: p.ID,
		Quantity:  quantity,
		Price:     p.Price,
		Cost:      p.Cost,
		Subtotal:  p.Price.Mul(q),
		Profit:    p.Price.Sub(p.Cost).Mul(q),
	}
}
