package shipping

import (
	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/httpx"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/shipments?status=&q=&sales_order_id=
func ListShipmentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := httpx.ListOptions(c)
		if v := c.QueryInt("sales_order_id", 0); v > 0 {
			opts.ParentID = uint(v)
		}
		rows, total, err := svc.List(c.UserContext(), opts)
		if err != nil {
			return err
		}
		return c.JSON(httpx.NewPage(rows, total, opts))
	}
}

// GET /api/shipments/stats
func StatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := svc.Stats(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(st)
	}
}

// GET /api/shipments/:id
func GetShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		sh, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(sh)
	}
}

// POST /api/shipments
func CreateShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateInput
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		sh, err := svc.Create(c.UserContext(), auth.ActorFrom(c), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(sh)
	}
}

// POST /api/shipments/:id/status  {"status": "In Transit", "location": "Hub 4"}
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
		sh, err := svc.UpdateStatus(c.UserContext(), auth.ActorFrom(c), id, body)
		if err != nil {
			return err
		}
		return c.JSON(sh)
	}
}

// DELETE /api/shipments/:id
func DeleteShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), auth.ActorFrom(c), id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func Routes(r fiber.Router, svc *Service) {
	g := r.Group("/shipments")
	g.Get("/", ListShipmentsHandler(svc))
	g.Get("/stats", StatsHandler(svc))
	g.Post("/", CreateShipmentHandler(svc))
	g.Get("/:id", GetShipmentHandler(svc))
	g.Post("/:id/status", UpdateStatusHandler(svc))
	g.Delete("/:id", auth.RequireRole(models.RoleAdmin, models.RoleManager), DeleteShipmentHandler(svc))
}
