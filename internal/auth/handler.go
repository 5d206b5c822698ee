package auth

import (
	"strings"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/config"
	"warehouse-backend/internal/httpx"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"omitempty,oneof=admin manager staff"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func userJSON(u *models.User) fiber.Map {
	return fiber.Map{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
}

func createUser(users UserStore, body RegisterRequest, role models.UserRole) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "password could not be hashed")
	}
	user := &models.User{
		Name:         body.Name,
		Email:        strings.TrimSpace(strings.ToLower(body.Email)),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := users.Create(user); err != nil {
		return nil, apperr.Wrap(err)
	}
	return user, nil
}

// RegisterAdminHandler bootstraps the first admin. Refused once one exists.
func RegisterAdminHandler(users UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		count, err := users.CountByRole(models.RoleAdmin)
		if err != nil {
			return apperr.Wrap(err)
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "an admin already exists")
		}

		user, err := createUser(users, body, models.RoleAdmin)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(userJSON(user))
	}
}

// CreateUserHandler lets an admin add managers and staff.
func CreateUserHandler(users UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		role := body.Role
		if role == "" {
			role = models.RoleStaff
		}
		user, err := createUser(users, body, role)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(userJSON(user))
	}
}

func LoginHandler(cfg *config.Config, users UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		user, err := users.FindByEmail(strings.TrimSpace(strings.ToLower(body.Email)))
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
			}
			return apperr.Wrap(err)
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}

		token, err := GenerateToken(cfg.JWTSecret, user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "token could not be created")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  userJSON(user),
		})
	}
}

func MeHandler(users UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFrom(c)
		user, err := users.Get(actor.ID)
		if err != nil {
			// token is valid but the account is gone; answer from the claims
			return c.JSON(fiber.Map{
				"id":   actor.ID,
				"name": actor.Name,
				"role": c.Locals(CtxUserRoleKey),
			})
		}
		return c.JSON(userJSON(user))
	}
}
