package sales

import (
	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/httpx"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/sales-orders?status=&q=&page=&limit=&sort=&order=
func ListOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := httpx.ListOptions(c)
		rows, total, err := svc.List(c.UserContext(), opts)
		if err != nil {
			return err
		}
		return c.JSON(httpx.NewPage(rows, total, opts))
	}
}

// GET /api/sales-orders/stats
func StatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := svc.Stats(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(st)
	}
}

// GET /api/sales-orders/:id
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		so, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(so)
	}
}

// POST /api/sales-orders
func CreateOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body OrderInput
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		so, err := svc.Create(c.UserContext(), auth.ActorFrom(c), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(so)
	}
}

// POST /api/sales-orders/:id/status  {"status": "Processing", "payment_status": "Paid"}
func UpdateStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body StatusInput
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		so, err := svc.UpdateStatus(c.UserContext(), auth.ActorFrom(c), id, body)
		if err != nil {
			return err
		}
		return c.JSON(so)
	}
}

// POST /api/sales-orders/:id/cancel  {"reason": "customer request"}
func CancelHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body struct {
			Reason string `json:"reason"`
		}
		if len(c.Body()) > 0 {
			if err := httpx.Decode(c, &body); err != nil {
				return err
			}
		}
		so, err := svc.Cancel(c.UserContext(), auth.ActorFrom(c), id, body.Reason)
		if err != nil {
			return err
		}
		return c.JSON(so)
	}
}

// Routes mounts the sales order endpoints. Cancelling needs a manager or admin.
func Routes(r fiber.Router, svc *Service) {
	g := r.Group("/sales-orders")
	g.Get("/", ListOrdersHandler(svc))
	g.Get("/stats", StatsHandler(svc))
	g.Post("/", CreateOrderHandler(svc))
	g.Get("/:id", GetOrderHandler(svc))
	g.Post("/:id/status", UpdateStatusHandler(svc))
	g.Post("/:id/cancel", auth.RequireRole(models.RoleAdmin, models.RoleManager), CancelHandler(svc))
}
