package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"lane-inventory/internal/service"
	"lane-inventory/pkg/jwt"
	"lane-inventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// currentActor builds the acting user from the locals set by RequireAuth.
func currentActor(c *fiber.Ctx) service.Actor {
	var actor service.Actor
	if id, ok := c.Locals("user_id").(string); ok {
		actor.ID, _ = uuid.Parse(id)
	}
	actor.Name, _ = c.Locals("user_name").(string)
	actor.Email, _ = c.Locals("user_email").(string)
	return actor
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

func invalidID(c *fiber.Ctx, entity string) error {
	return c.Status(400).JSON(fiber.Map{"error": "Invalid " + entity + " ID"})
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}

// queryDate reads an optional YYYY-MM-DD query value as midnight in loc.
func queryDate(c *fiber.Ctx, key string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// message strips the sentinel prefix added by service errors.
func message(err error, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

// respondError writes the JSON error envelope for err. Unexpected errors are
// logged and reported without detail.
func respondError(c *fiber.Ctx, err error) error {
	var verr *service.ValidationError
	var stockErr *service.InsufficientStockError

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.As(err, &stockErr):
		return c.Status(400).JSON(fiber.Map{
			"error":      stockErr.Error(),
			"product_id": stockErr.ProductID,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": message(err, service.ErrNotFound)})
	case errors.Is(err, service.ErrInvalidOperation):
		return c.Status(400).JSON(fiber.Map{"error": message(err, service.ErrInvalidOperation)})
	case errors.Is(err, service.ErrConflict):
		return c.Status(409).JSON(fiber.Map{"error": message(err, service.ErrConflict)})
	case errors.Is(err, service.ErrWrongPassword):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrSessionReplaced),
		errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrMissingToken):
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	logger.FromContext(c.UserContext()).Error().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
}
