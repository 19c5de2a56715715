package router

import (
	"context"
	"time"

	"lane-inventory/internal/cache"
	"lane-inventory/internal/config"
	"lane-inventory/internal/handler"
	"lane-inventory/internal/middleware"
	"lane-inventory/internal/model"
	"lane-inventory/internal/repository"
	"lane-inventory/internal/service"
	"lane-inventory/internal/ws"
	"lane-inventory/pkg/jwt"
	"lane-inventory/pkg/logger"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Infra is what the router needs from the process: the database, the report
// cache, and the websocket hub. A nil Hub disables /ws and live events.
type Infra struct {
	DB    *gorm.DB
	Cache cache.ReportCache
	Hub   *ws.Hub
	Now   func() time.Time
}

// New wires repositories, services, and handlers and returns the Fiber app.
// Dependency graph: Handler <- Service <- Repository <- DB/Redis
func New(cfg *config.Config, infra Infra) *fiber.App {
	loc := cfg.Location()

	// Repositories
	productRepo := repository.NewProductRepo(infra.DB)
	saleRepo := repository.NewSaleRepo(infra.DB)
	stockLogRepo := repository.NewStockLogRepo(infra.DB)
	categoryRepo := repository.NewCategoryRepo(infra.DB)
	supplierRepo := repository.NewSupplierRepo(infra.DB)
	userRepo := repository.NewUserRepo(infra.DB)

	// Services
	deps := service.Deps{DB: infra.DB, Cache: infra.Cache}
	if infra.Hub != nil {
		deps.Events = infra.Hub
	}
	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTExpiration())

	invService := service.NewInventoryService(deps, productRepo, categoryRepo, supplierRepo, stockLogRepo)
	saleService := service.NewSaleService(deps, productRepo, saleRepo, stockLogRepo)
	catalogService := service.NewCatalogService(deps, categoryRepo, supplierRepo)
	reportService := service.NewReportService(productRepo, saleRepo, stockLogRepo, infra.Cache, service.ReportOptions{
		Location: loc,
		CacheTTL: cfg.ReportCacheTTL,
		Now:      infra.Now,
	})
	authService := service.NewAuthService(userRepo, tokens, cfg.JWTExpiration())
	userService := service.NewUserService(userRepo)

	// Handlers
	invHandler := handler.NewInventoryHandler(invService)
	saleHandler := handler.NewSaleHandler(saleService, loc)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	reportHandler := handler.NewReportHandler(reportService, loc)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/health" || c.Path() == "/metrics"
	})))
	app.Use(middleware.RequestLogger(logger.Logger))
	app.Use(middleware.Metrics())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := infra.DB.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy", "database": "unreachable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(authService))
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/change-password", authHandler.ChangePassword)

	// Users
	protected.Get("/users", adminOnly, userHandler.GetUsers)
	protected.Post("/users", adminOnly, userHandler.CreateUser)
	protected.Get("/users/:id", adminOnly, userHandler.GetUser)
	protected.Patch("/users/:id", adminOnly, userHandler.UpdateUser)

	// Products and stock
	protected.Get("/products", invHandler.GetProducts)
	protected.Get("/products/low-stock", invHandler.GetLowStockProducts)
	protected.Get("/products/:id", invHandler.GetProduct)
	protected.Post("/products", adminOnly, invHandler.CreateProduct)
	protected.Patch("/products/:id", adminOnly, invHandler.UpdateProduct)
	protected.Delete("/products/:id", adminOnly, invHandler.DeleteProduct)
	protected.Post("/products/:id/adjust-stock", invHandler.AdjustStock)
	protected.Get("/stock-logs", invHandler.GetStockLogs)

	// Catalog
	protected.Get("/categories", catalogHandler.GetCategories)
	protected.Get("/categories/:id", catalogHandler.GetCategory)
	protected.Post("/categories", adminOnly, catalogHandler.CreateCategory)
	protected.Patch("/categories/:id", adminOnly, catalogHandler.UpdateCategory)
	protected.Delete("/categories/:id", adminOnly, catalogHandler.DeleteCategory)
	protected.Get("/suppliers", catalogHandler.GetSuppliers)
	protected.Get("/suppliers/:id", catalogHandler.GetSupplier)
	protected.Post("/suppliers", adminOnly, catalogHandler.CreateSupplier)
	protected.Patch("/suppliers/:id", adminOnly, catalogHandler.UpdateSupplier)
	protected.Delete("/suppliers/:id", adminOnly, catalogHandler.DeleteSupplier)

	// Sales
	protected.Post("/sales", saleHandler.CreateSale)
	protected.Get("/sales", saleHandler.GetSales)
	protected.Get("/sales/:id", saleHandler.GetSale)
	protected.Delete("/sales/:id", adminOnly, saleHandler.DeleteSale)

	// Reports
	reports := protected.Group("/reports")
	reports.Get("/dashboard", reportHandler.Dashboard)
	reports.Get("/sales", reportHandler.Sales)
	reports.Get("/inventory", reportHandler.Inventory)
	reports.Get("/profit", reportHandler.Profit)
	reports.Get("/stock-movement", reportHandler.StockMovement)

	if infra.Hub != nil {
		registerWebSocket(app, infra.Hub)
	}

	return app
}

func registerWebSocket(app *fiber.App, hub *ws.Hub) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		// The hub is gone during shutdown; returning closes the connection.
		if !hub.Join(c) {
			return
		}
		defer hub.Leave(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
