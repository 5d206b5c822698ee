package reconcile

import "github.com/gofiber/fiber/v2"

// GET /api/reconciliation
func RunHandler(checker *Checker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rep, err := checker.Run(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"ok":     rep.OK(),
			"report": rep,
		})
	}
}
