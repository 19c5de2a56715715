// Package seed loads a small demo dataset: two users, a catalog of ten
// products, and two sample sales.
package seed

import (
	"context"
	"fmt"

	"lane-inventory/internal/model"
	"lane-inventory/internal/repository"
	"lane-inventory/internal/service"
	"lane-inventory/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultPassword = "password123"

type Result struct {
	Skipped  bool
	Users    int
	Products int
	Sales    int
}

type productSeed struct {
	name, sku   string
	price, cost string
	stock, min  int
	category    int
	supplier    int
}

var products = []productSeed{
	{"Wireless Mouse", "ELEC-001", "29.99", "15.00", 50, 10, 0, 0},
	{"Mechanical Keyboard", "ELEC-002", "89.99", "45.00", 30, 5, 0, 0},
	{"USB-C Hub", "ELEC-003", "49.99", "25.00", 25, 10, 0, 0},
	{"Webcam HD", "ELEC-004", "79.99", "40.00", 8, 10, 0, 0},
	{"Office Chair", "FURN-001", "199.99", "100.00", 15, 5, 1, 1},
	{"Standing Desk", "FURN-002", "399.99", "200.00", 10, 3, 1, 1},
	{"Desk Lamp", "FURN-003", "39.99", "20.00", 40, 10, 1, 1},
	{"Notebook Set", "SUPP-001", "12.99", "6.00", 100, 20, 2, 2},
	{"Pen Pack (12pcs)", "SUPP-002", "8.99", "4.00", 150, 30, 2, 2},
	{"Sticky Notes", "SUPP-003", "5.99", "2.50", 200, 50, 2, 2},
}

// Run seeds db through the services, so opening stock and the sample sales
// land in the stock ledger like any other change. With reset false an already
// seeded database is left alone.
func Run(ctx context.Context, db *gorm.DB, reset bool) (*Result, error) {
	log := logger.FromContext(ctx)

	if reset {
		if err := wipe(db.WithContext(ctx)); err != nil {
			return nil, fmt.Errorf("reset: %w", err)
		}
		log.Info().Msg("existing data removed")
	} else {
		var n int64
		if err := db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			return &Result{Skipped: true}, nil
		}
	}

	productRepo := repository.NewProductRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	supplierRepo := repository.NewSupplierRepo(db)
	stockLogRepo := repository.NewStockLogRepo(db)
	deps := service.Deps{DB: db}

	users := service.NewUserService(repository.NewUserRepo(db))
	catalog := service.NewCatalogService(deps, categoryRepo, supplierRepo)
	inventory := service.NewInventoryService(deps, productRepo, categoryRepo, supplierRepo, stockLogRepo)
	sales := service.NewSaleService(deps, productRepo, repository.NewSaleRepo(db), stockLogRepo)

	actor := service.SystemActor
	res := &Result{}

	for _, u := range []service.CreateUserInput{
		{Email: "admin@test.com", Password: DefaultPassword, Name: "Admin User", Role: model.RoleAdmin},
		{Email: "staff@test.com", Password: DefaultPassword, Name: "Staff User", Role: model.RoleStaff},
	} {
		if _, err := users.CreateUser(ctx, u, actor); err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Email, err)
		}
		res.Users++
	}

	var categoryIDs []uuid.UUID
	for _, name := range []string{"Electronics", "Furniture", "Office Supplies"} {
		c, err := catalog.CreateCategory(ctx, service.CategoryInput{Name: name}, actor)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", name, err)
		}
		categoryIDs = append(categoryIDs, c.ID)
	}

	var supplierIDs []uuid.UUID
	for _, s := range []service.SupplierInput{
		{Name: "Tech Distributors Inc.", Email: strPtr("sales@techdist.com"), Phone: strPtr("+1-555-1000")},
		{Name: "Furniture World", Email: strPtr("orders@furnitureworld.com"), Phone: strPtr("+1-555-2000")},
		{Name: "Office Mart", Email: strPtr("info@officemart.com"), Phone: strPtr("+1-555-3000")},
	} {
		sup, err := catalog.CreateSupplier(ctx, s, actor)
		if err != nil {
			return nil, fmt.Errorf("supplier %s: %w", s.Name, err)
		}
		supplierIDs = append(supplierIDs, sup.ID)
	}

	productIDs := make([]uuid.UUID, len(products))
	for i, p := range products {
		created, err := inventory.CreateProduct(ctx, service.CreateProductInput{
			Name:       p.name,
			SKU:        p.sku,
			Price:      decimal.RequireFromString(p.price),
			Cost:       decimal.RequireFromString(p.cost),
			Stock:      p.stock,
			MinStock:   p.min,
			CategoryID: categoryIDs[p.category],
			SupplierID: supplierIDs[p.supplier],
		}, actor)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", p.sku, err)
		}
		productIDs[i] = created.ID
		res.Products++
	}

	for _, lines := range [][]service.SaleLineInput{
		{{ProductID: productIDs[0], Quantity: 2}, {ProductID: productIDs[7], Quantity: 2}, {ProductID: productIDs[8], Quantity: 2}},
		{{ProductID: productIDs[1], Quantity: 1}, {ProductID: productIDs[4], Quantity: 1}},
	} {
		if _, err := sales.CreateSale(ctx, service.CreateSaleInput{Items: lines}, actor); err != nil {
			return nil, fmt.Errorf("sample sale: %w", err)
		}
		res.Sales++
	}

	return res, nil
}

func wipe(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&model.StockLog{}, &model.SaleItem{}, &model.Sale{},
			&model.Product{}, &model.Category{}, &model.Supplier{}, &model.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func strPtr(s string) *string { return &s }
