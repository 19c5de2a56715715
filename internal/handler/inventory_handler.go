package handler

import (
	"lane-inventory/internal/model"
	"lane-inventory/internal/repository"
	"lane-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

// GET /api/v1/products
func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetProducts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// GET /api/v1/products/low-stock
func (h *InventoryHandler) GetLowStockProducts(c *fiber.Ctx) error {
	products, err := h.service.GetLowStockProducts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// GET /api/v1/products/:id
func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "product")
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// POST /api/v1/products
func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var in service.CreateProductInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.service.CreateProduct(c.UserContext(), in, currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

// PATCH /api/v1/products/:id
func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "product")
	}

	var in service.UpdateProductInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.service.UpdateProduct(c.UserContext(), id, in, currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": product})
}

// DELETE /api/v1/products/:id
func (h *InventoryHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "product")
	}
	if err := h.service.DeleteProduct(c.UserContext(), id, currentActor(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// POST /api/v1/products/:id/adjust-stock
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "product")
	}

	var in service.AdjustStockInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.service.AdjustStock(c.UserContext(), id, in, currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock adjusted", "data": product})
}

// GET /api/v1/stock-logs?product_id=&change_type=&page=&limit=
func (h *InventoryHandler) GetStockLogs(c *fiber.Ctx) error {
	filter := repository.StockLogFilter{
		ChangeType: model.ChangeType(c.Query("change_type")),
		Page:       queryInt(c, "page", 1),
		Limit:      queryInt(c, "limit", 50),
	}
	if raw := c.Query("product_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return invalidID(c, "product")
		}
		filter.ProductID = &id
	}
	if filter.ChangeType != "" && !filter.ChangeType.Valid() {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid change_type"})
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}

	logs, total, err := h.service.GetStockLogs(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"data":  logs,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}
