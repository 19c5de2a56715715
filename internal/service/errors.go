package service

import (
	"errors"
	"fmt"

	"lane-inventory/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError names the product that could not cover a sale.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d", e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ValidationError carries every field that failed boundary validation.
type ValidationError struct {
	Fields []*validator.ErrorResponse
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	f := e.Fields[0]
	return fmt.Sprintf("validation failed: field '%s' failed on tag '%s'", f.FailedField, f.Tag)
}

// Is reports a validation failure as an invalid operation. Handlers still
// render it as 422 with the failing fields.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOperation
}

func validate(input interface{}) error {
	if errs := validator.ValidateStruct(input); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func notFound(entity string, id uuid.UUID) error {
	return fmt.Errorf("%w: %s with ID %s not found", ErrNotFound, entity, id)
}

// translate maps store errors onto service errors; other errors pass through.
func translate(err error, entity string, id uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s already exists", ErrConflict, entity)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %s is still referenced", ErrConflict, entity)
	}
	return err
}
