package purchasing

import (
	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/httpx"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type noteBody struct {
	Notes string `json:"notes"`
}

// GET /api/purchase-orders?status=&q=&page=&limit=&sort=&order=
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

// GET /api/purchase-orders/stats
func StatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := svc.Stats(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(st)
	}
}

// GET /api/purchase-orders/:id
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		po, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// POST /api/purchase-orders
func CreateOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body OrderInput
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		po, err := svc.Create(c.UserContext(), auth.ActorFrom(c), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(po)
	}
}

// PUT /api/purchase-orders/:id (Draft only)
func UpdateOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body OrderInput
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		po, err := svc.Update(c.UserContext(), auth.ActorFrom(c), id, body)
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// DELETE /api/purchase-orders/:id
func DeleteOrderHandler(svc *Service) fiber.Handler {
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

// POST /api/purchase-orders/:id/approve  {"notes": "..."}
func ApproveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body noteBody
		if len(c.Body()) > 0 {
			if err := httpx.Decode(c, &body); err != nil {
				return err
			}
		}
		po, err := svc.Approve(c.UserContext(), auth.ActorFrom(c), id, body.Notes)
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// POST /api/purchase-orders/:id/status  {"status": "Acknowledged", "notes": "..."}
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
		po, err := svc.UpdateStatus(c.UserContext(), auth.ActorFrom(c), id, body)
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// POST /api/purchase-orders/:id/cancel  {"notes": "vendor out of stock"}
func CancelHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body noteBody
		if len(c.Body()) > 0 {
			if err := httpx.Decode(c, &body); err != nil {
				return err
			}
		}
		po, err := svc.Cancel(c.UserContext(), auth.ActorFrom(c), id, body.Notes)
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// POST /api/purchase-orders/:id/notes  {"notes": "..."}
func AddNoteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body noteBody
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		po, err := svc.AddNote(c.UserContext(), auth.ActorFrom(c), id, body.Notes)
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// POST /api/purchase-orders/:id/receive
func ReceiveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body ReceiveInput
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		res, err := svc.Receive(c.UserContext(), auth.ActorFrom(c), id, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GET /api/purchase-orders/:id/receipts
func OrderReceiptsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		rows, err := svc.ReceiptsForOrder(c.UserContext(), id)
		if err != nil {
			return err
		}
		if rows == nil {
			rows = []models.ReceivingReceipt{}
		}
		return c.JSON(rows)
	}
}

// GET /api/receipts?purchase_order_id=&status=&q=
func ListReceiptsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := httpx.ListOptions(c)
		if v := c.QueryInt("purchase_order_id", 0); v > 0 {
			opts.ParentID = uint(v)
		}
		rows, total, err := svc.ListReceipts(c.UserContext(), opts)
		if err != nil {
			return err
		}
		return c.JSON(httpx.NewPage(rows, total, opts))
	}
}

// GET /api/receipts/:id
func GetReceiptHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		r, err := svc.GetReceipt(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}

// POST /api/receipts/:id/status  {"status": "Inspected", "notes": "..."}
func ReviewReceiptHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body ReviewInput
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		r, err := svc.ReviewReceipt(c.UserContext(), auth.ActorFrom(c), id, body)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}

// Routes mounts purchasing and receiving. Staff may receive goods; approval, cancellation
// and deletion need a manager or admin.
func Routes(r fiber.Router, svc *Service) {
	manage := auth.RequireRole(models.RoleAdmin, models.RoleManager)

	po := r.Group("/purchase-orders")
	po.Get("/", ListOrdersHandler(svc))
	po.Get("/stats", StatsHandler(svc))
	po.Post("/", manage, CreateOrderHandler(svc))
	po.Get("/:id", GetOrderHandler(svc))
	po.Put("/:id", manage, UpdateOrderHandler(svc))
	po.Delete("/:id", manage, DeleteOrderHandler(svc))
	po.Post("/:id/approve", manage, ApproveHandler(svc))
	po.Post("/:id/status", manage, UpdateStatusHandler(svc))
	po.Post("/:id/cancel", manage, CancelHandler(svc))
	po.Post("/:id/notes", AddNoteHandler(svc))
	po.Post("/:id/receive", ReceiveHandler(svc))
	po.Get("/:id/receipts", OrderReceiptsHandler(svc))

	rc := r.Group("/receipts")
	rc.Get("/", ListReceiptsHandler(svc))
	rc.Get("/:id", GetReceiptHandler(svc))
	rc.Post("/:id/status", manage, ReviewReceiptHandler(svc))
}
