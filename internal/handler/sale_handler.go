package handler

import (
	"time"

	"lane-inventory/internal/repository"
	"lane-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SaleHandler struct {
	service service.SaleService
	loc     *time.Location
}

func NewSaleHandler(s service.SaleService, loc *time.Location) *SaleHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SaleHandler{service: s, loc: loc}
}

// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var in service.CreateSaleInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	sale, err := h.service.CreateSale(c.UserContext(), in, currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Sale recorded", "data": sale})
}

// GET /api/v1/sales?start_date=&end_date=&limit=
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	start, err := queryDate(c, "start_date", h.loc)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid start_date, expected YYYY-MM-DD"})
	}
	end, err := queryDate(c, "end_date", h.loc)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid end_date, expected YYYY-MM-DD"})
	}

	filter := repository.SaleFilter{From: start, Limit: queryInt(c, "limit", 0)}
	if end != nil {
		next := end.AddDate(0, 0, 1)
		filter.To = &next
	}

	sales, err := h.service.GetSales(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sales)
}

// GET /api/v1/sales/:id
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "sale")
	}
	sale, err := h.service.GetSale(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sale)
}

// DELETE /api/v1/sales/:id
func (h *SaleHandler) DeleteSale(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "sale")
	}
	if err := h.service.DeleteSale(c.UserContext(), id, currentActor(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sale deleted and stock restored"})
}
