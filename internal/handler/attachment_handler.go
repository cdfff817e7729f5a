package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"incident-workflow/internal/service/attachment"
)

type AttachmentHandler struct {
	attachmentService attachment.Service
}

func NewAttachmentHandler(attachmentService attachment.Service) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

func (h *AttachmentHandler) Get(c *fiber.Ctx) error {
	att, err := h.attachmentService.Get(c.Context(), c.Params("token"))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, att.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, att.Name))
	c.Set("X-Content-Type-Options", "nosniff")
	return c.Status(fiber.StatusOK).Send(att.Data)
}
