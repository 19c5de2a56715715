package handler

import (
	"time"

	"lane-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	service service.ReportService
	loc     *time.Location
}

func NewReportHandler(s service.ReportService, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{service: s, loc: loc}
}

// GET /api/v1/reports/dashboard
func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.service.Dashboard(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GET /api/v1/reports/sales?start_date=&end_date=
func (h *ReportHandler) Sales(c *fiber.Ctx) error {
	start, err := queryDate(c, "start_date", h.loc)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid start_date, expected YYYY-MM-DD"})
	}
	end, err := queryDate(c, "end_date", h.loc)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid end_date, expected YYYY-MM-DD"})
	}

	report, err := h.service.SalesReport(c.UserContext(), start, end)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// GET /api/v1/reports/inventory
func (h *ReportHandler) Inventory(c *fiber.Ctx) error {
	report, err := h.service.InventoryReport(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// GET /api/v1/reports/profit
func (h *ReportHandler) Profit(c *fiber.Ctx) error {
	report, err := h.service.ProfitReport(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// GET /api/v1/reports/stock-movement?days=7
func (h *ReportHandler) StockMovement(c *fiber.Ctx) error {
	days := queryInt(c, "days", 7)
	if days < 1 || days > 90 {
		return c.Status(400).JSON(fiber.Map{"error": "days must be between 1 and 90"})
	}

	data, err := h.service.StockMovement(c.UserContext(), days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(data)
}
