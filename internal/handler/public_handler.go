package handler

import (
	"github.com/gofiber/fiber/v2"

	"incident-workflow/internal/pkg/catalog"
)

// PublicHandler serves what the anonymous intake form needs.
type PublicHandler struct {
	catalog *catalog.Catalog
}

func NewPublicHandler(c *catalog.Catalog) *PublicHandler {
	return &PublicHandler{catalog: c}
}

func (h *PublicHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *PublicHandler) GetCatalog(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.catalog)
}
