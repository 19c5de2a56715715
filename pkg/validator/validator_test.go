package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
}

type order struct {
	Items []line          `json:"items" validate:"required,min=1,dive"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

func TestValidateStruct_Valid(t *testing.T) {
	errs := ValidateStruct(&order{
		Items: []line{{ProductID: uuid.New(), Quantity: 2}},
		Price: decimal.RequireFromString("9.99"),
	})
	assert.Empty(t, errs)
}

func TestValidateStruct_ReportsEveryField(t *testing.T) {
	errs := ValidateStruct(&order{
		Items: []line{{ProductID: uuid.Nil, Quantity: 0}},
		Price: decimal.NewFromInt(-1),
	})
	require.Len(t, errs, 3)

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.FailedField] = e.Tag
	}
	assert.Equal(t, "uuid_required", fields["items[0].product_id"])
	assert.Equal(t, "gte", fields["items[0].quantity"])
	assert.Equal(t, "gte", fields["price"])
}

func TestValidateStruct_EmptyItems(t *testing.T) {
	errs := ValidateStruct(&order{Items: []line{}})
	require.Len(t, errs, 1)
	assert.Equal(t, "items", errs[0].FailedField)
	assert.Equal(t, "min", errs[0].Tag)
}
