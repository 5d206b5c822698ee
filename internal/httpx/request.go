package httpx

import (
	"strconv"
	"strings"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ParseID reads a positive numeric route parameter.
func ParseID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(v), nil
}

// Bind parses the JSON body into dst and runs struct validation.
func Bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return validation.Struct(dst)
}

// Decode parses the JSON body only; services validate their own inputs.
func Decode(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

// ListOptions reads ?page=&limit=&sort=&order=&status=&q=
func ListOptions(c *fiber.Ctx) store.ListOptions {
	opts := store.ListOptions{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", store.DefaultLimit),
		Sort:   c.Query("sort"),
		Desc:   strings.EqualFold(c.Query("order"), "desc"),
		Status: c.Query("status"),
		Search: strings.TrimSpace(c.Query("q", c.Query("search"))),
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = store.DefaultLimit
	}
	if opts.Limit > store.MaxLimit {
		opts.Limit = store.MaxLimit
	}
	return opts
}

type Page[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func NewPage[T any](rows []T, total int64, opts store.ListOptions) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{Data: rows, Total: total, Page: opts.Page, Limit: opts.Limit}
}
