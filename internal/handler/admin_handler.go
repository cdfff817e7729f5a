package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"incident-workflow/internal/middleware"
	"incident-workflow/internal/service/backup"
)

type AdminHandler struct {
	backupService backup.Service
}

func NewAdminHandler(backupService backup.Service) *AdminHandler {
	return &AdminHandler{backupService: backupService}
}

func (h *AdminHandler) Backup(c *fiber.Ctx) error {
	snapshot, err := h.backupService.Snapshot(c.Context(), middleware.Actor(c))
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("backup-%s.json", snapshot.CreatedAt.Format("20060102-150405"))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Status(fiber.StatusOK).JSON(snapshot)
}

func (h *AdminHandler) Restore(c *fiber.Ctx) error {
	var input backup.Backup
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid backup document")
	}

	result, err := h.backupService.Restore(c.Context(), middleware.Actor(c), &input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
