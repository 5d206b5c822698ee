package audit

import (
	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/httpx"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/admin/audit-logs?entity_type=purchase_order&entity_id=1&user_id=2&action=cancel
func ListAuditLogsHandler(reader Reader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := httpx.ListOptions(c)
		f := Filter{
			EntityType: c.Query("entity_type"),
			EntityID:   uint(c.QueryInt("entity_id", 0)),
			UserID:     uint(c.QueryInt("user_id", 0)),
			Action:     c.Query("action"),
			Page:       opts.Page,
			Limit:      opts.Limit,
		}

		logs, total, err := reader.List(c.UserContext(), f)
		if err != nil {
			return apperr.Wrap(err)
		}
		return c.JSON(httpx.NewPage[models.AuditLog](logs, total, opts))
	}
}
