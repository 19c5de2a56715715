package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ChangeType string

const (
	ChangeSale       ChangeType = "SALE"
	ChangeRestock    ChangeType = "RESTOCK"
	ChangeAdjustment ChangeType = "ADJUSTMENT"
	ChangeDamage     ChangeType = "DAMAGE"
	ChangeReturn     ChangeType = "RETURN"
)

func (c ChangeType) Valid() bool {
	switch c {
	case ChangeSale, ChangeRestock, ChangeAdjustment, ChangeDamage, ChangeReturn:
		return true
	}
	return false
}

// StockLog is one immutable ledger entry. It has no UpdatedAt or DeletedAt:
// entries are only ever inserted.
type StockLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_stock_logs_product_created,priority:1" json:"product_id"`
	Product     *Product   `gorm:"constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	ChangeType  ChangeType `gorm:"type:varchar(20);not null;index" json:"change_type"`
	Quantity    int        `gorm:"not null" json:"quantity"`
	Before      int        `gorm:"column:before_stock;not null" json:"before"`
	After       int        `gorm:"column:after_stock;not null" json:"after"`
	Notes       *string    `gorm:"type:text" json:"notes,omitempty"`
	ReferenceID *uuid.UUID `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	CreatedBy   string     `gorm:"type:varchar(64)" json:"created_by,omitempty"`
	CreatedAt   time.Time  `gorm:"index:idx_stock_logs_product_created,priority:2" json:"created_at"`
}

// NewStockLog builds an entry for a stock change from before by delta.
func NewStockLog(productID uuid.UUID, changeType ChangeType, before, delta int, notes *string, referenceID *uuid.UUID, actor string) *StockLog {
	return &StockLog{
		ID:          uuid.New(),
		ProductID:   productID,
		ChangeType:  changeType,
		Quantity:    delta,
		Before:      before,
		After:       before + delta,
		Notes:       notes,
		ReferenceID: referenceID,
		CreatedBy:   actor,
	}
}

// Balanced reports whether After == Before + Quantity.
func (l *StockLog) Balanced() bool {
	return l.After == l.Before+l.Quantity
}

func (l *StockLog) String() string {
	return fmt.Sprintf("%s %s %+d (%d -> %d)", l.ProductID, l.ChangeType, l.Quantity, l.Before, l.After)
}
