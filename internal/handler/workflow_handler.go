package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/middleware"
	"incident-workflow/internal/service/workflow"
)

type WorkflowHandler struct {
	workflowService workflow.Service
}

func NewWorkflowHandler(workflowService workflow.Service) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService}
}

// transition parses the id and JSON body, runs op, and answers with the
// updated notification.
func transition[T any](c *fiber.Ctx, op func(ctx context.Context, id int64, caller uuid.UUID, input T) (*domain.Notification, error)) error {
	id, err := notificationID(c)
	if err != nil {
		return err
	}

	var input T
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	n, err := op(c.Context(), id, middleware.GetCurrentUserID(c), input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(n)
}

func (h *WorkflowHandler) Reject(c *fiber.Ctx) error {
	return transition(c, h.workflowService.RejectAtClassification)
}

func (h *WorkflowHandler) Classify(c *fiber.Ctx) error {
	return transition(c, h.workflowService.Classify)
}

func (h *WorkflowHandler) RecordAction(c *fiber.Ctx) error {
	return transition(c, h.workflowService.RecordAction)
}

func (h *WorkflowHandler) AddExecutor(c *fiber.Ctx) error {
	return transition(c, h.workflowService.AddExecutor)
}

func (h *WorkflowHandler) Review(c *fiber.Ctx) error {
	return transition(c, h.workflowService.ReviewExecution)
}

func (h *WorkflowHandler) Approval(c *fiber.Ctx) error {
	return transition(c, h.workflowService.DecideApproval)
}

// Conclude accepts JSON, or a multipart form with "description",
// "evidence_description" and "evidence" file fields.
func (h *WorkflowHandler) Conclude(c *fiber.Ctx) error {
	id, err := notificationID(c)
	if err != nil {
		return err
	}

	var input domain.ConcludeInput
	var evidence []domain.Upload

	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return middleware.BadRequest("Invalid multipart form")
		}
		input.Description = formValue(form, "description")
		if text := formValue(form, "evidence_description"); text != "" {
			input.EvidenceDescription = &text
		}
		files, closeFiles, err := formUploads(form, "evidence")
		if err != nil {
			return err
		}
		defer closeFiles()
		evidence = files
	} else if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	n, err := h.workflowService.ConcludeMyPart(c.Context(), id, middleware.GetCurrentUserID(c), input, evidence)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(n)
}
