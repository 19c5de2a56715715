package service

import (
	"context"
	"fmt"

	"lane-inventory/internal/model"
	"lane-inventory/internal/repository"
	"lane-inventory/internal/ws"

	"github.com/google/uuid"
)

type CatalogService interface {
	CreateCategory(ctx context.Context, in CategoryInput, actor Actor) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput, actor Actor) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID, actor Actor) error

	CreateSupplier(ctx context.Context, in SupplierInput, actor Actor) (*model.Supplier, error)
	GetSuppliers(ctx context.Context) ([]model.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, in SupplierInput, actor Actor) (*model.Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID, actor Actor) error
}

type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type SupplierInput struct {
	Name  string  `json:"name" validate:"required,max=255"`
	Email *string `json:"email" validate:"omitempty,email"`
	Phone *string `json:"phone" validate:"omitempty,max=50"`
}

type catalogService struct {
	Deps
	categoryRepo repository.CategoryRepository
	supplierRepo repository.SupplierRepository
}

func NewCatalogService(deps Deps, categoryRepo repository.CategoryRepository, supplierRepo repository.SupplierRepository) CatalogService {
	return &catalogService{Deps: deps.withDefaults(), categoryRepo: categoryRepo, supplierRepo: supplierRepo}
}

// changed runs after a committed catalog write. Reports embed category and
// supplier names, so cached reports are dropped.
func (s *catalogService) changed(ctx context.Context, entity, action string, data interface{}, actor Actor) {
	s.afterCommit(ctx, ws.Event{
		Type:    entity,
		Action:  entity + "_" + action,
		Data:    data,
		User:    actor.wsUser(),
		Message: describe(actor, "%s a %s", action, entity),
	})
}

func (s *catalogService) CreateCategory(ctx context.Context, in CategoryInput, actor Actor) (*model.Category, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	category := &model.Category{Name: in.Name}
	category.CreatedBy = actor.AuditID()
	category.UpdatedBy = actor.AuditID()
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, translate(err, "Category", category.ID)
	}
	s.changed(ctx, "category", "created", category, actor)
	return category, nil
}

func (s *catalogService) GetCategories(ctx context.Context) ([]model.Category, error) {
	return s.categoryRepo.FindAll(ctx)
}

func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Category", id)
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput, actor Actor) (*model.Category, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Category", id)
	}
	category.Name = in.Name
	category.UpdatedBy = actor.AuditID()
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, translate(err, "Category", id)
	}
	s.changed(ctx, "category", "updated", category, actor)
	return category, nil
}

// DeleteCategory refuses while any product still belongs to the category.
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID, actor Actor) error {
	n, err := s.categoryRepo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: Category still has %d product(s)", ErrConflict, n)
	}
	if err := s.categoryRepo.Delete(ctx, id, actor.AuditID()); err != nil {
		return translate(err, "Category", id)
	}
	s.changed(ctx, "category", "deleted", map[string]string{"id": id.String()}, actor)
	return nil
}

func (s *catalogService) CreateSupplier(ctx context.Context, in SupplierInput, actor Actor) (*model.Supplier, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	supplier := &model.Supplier{Name: in.Name, Email: in.Email, Phone: in.Phone}
	supplier.CreatedBy = actor.AuditID()
	supplier.UpdatedBy = actor.AuditID()
	if err := s.supplierRepo.Create(ctx, supplier); err != nil {
		return nil, translate(err, "Supplier", supplier.ID)
	}
	s.changed(ctx, "supplier", "created", supplier, actor)
	return supplier, nil
}

func (s *catalogService) GetSuppliers(ctx context.Context) ([]model.Supplier, error) {
	return s.supplierRepo.FindAll(ctx)
}

func (s *catalogService) GetSupplier(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	supplier, err := s.supplierRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Supplier", id)
	}
	return supplier, nil
}

func (s *catalogService) UpdateSupplier(ctx context.Context, id uuid.UUID, in SupplierInput, actor Actor) (*model.Supplier, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	supplier, err := s.supplierRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Supplier", id)
	}
	supplier.Name = in.Name
	supplier.Email = in.Email
	supplier.Phone = in.Phone
	supplier.UpdatedBy = actor.AuditID()
	if err := s.supplierRepo.Update(ctx, supplier); err != nil {
		return nil, translate(err, "Supplier", id)
	}
	s.changed(ctx, "supplier", "updated", supplier, actor)
	return supplier, nil
}

// DeleteSupplier refuses while any product is still sourced from the supplier.
func (s *catalogService) DeleteSupplier(ctx context.Context, id uuid.UUID, actor Actor) error {
	n, err := s.supplierRepo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: Supplier still has %d product(s)", ErrConflict, n)
	}
	if err := s.supplierRepo.Delete(ctx, id, actor.AuditID()); err != nil {
		return translate(err, "Supplier", id)
	}
	s.changed(ctx, "supplier", "deleted", map[string]string{"id": id.String()}, actor)
	return nil
}
