package handler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/middleware"
	"incident-workflow/internal/service/export"
	"incident-workflow/internal/service/notification"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type NotificationHandler struct {
	notificationService notification.Service
	exportService       export.Service
}

func NewNotificationHandler(notificationService notification.Service, exportService export.Service) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		exportService:       exportService,
	}
}

// Create accepts either a JSON body or a multipart form whose "payload"
// field holds the same JSON and whose "attachments" fields hold files.
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var input domain.CreateNotificationInput
	var uploads []domain.Upload

	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return middleware.BadRequest("Invalid multipart form")
		}
		if err := json.Unmarshal([]byte(formValue(form, "payload")), &input); err != nil {
			return middleware.BadRequest("Invalid payload field")
		}
		files, closeFiles, err := formUploads(form, "attachments")
		if err != nil {
			return err
		}
		defer closeFiles()
		uploads = files
	} else if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	n, err := h.notificationService.Create(c.Context(), input, uploads)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":          n.ID,
		"status":      n.Status,
		"attachments": n.Attachments,
	})
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	result, err := h.notificationService.List(c.Context(), filter, getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *NotificationHandler) Get(c *fiber.Ctx) error {
	id, err := notificationID(c)
	if err != nil {
		return err
	}

	detail, err := h.notificationService.GetByID(c.Context(), id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(detail)
}

func (h *NotificationHandler) History(c *fiber.Ctx) error {
	id, err := notificationID(c)
	if err != nil {
		return err
	}

	history, err := h.notificationService.History(c.Context(), id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": history})
}

func (h *NotificationHandler) Export(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	data, err := h.exportService.Notifications(c.Context(), middleware.Actor(c), filter)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("notifications-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Status(fiber.StatusOK).Send(data)
}

func parseFilter(c *fiber.Ctx) (domain.NotificationFilter, error) {
	filter := domain.NotificationFilter{
		Search: c.Query("search"),
		SortBy: domain.SortField(c.Query("sort_by", string(domain.SortByID))),
	}

	for _, v := range queryValues(c, "status") {
		status := domain.Status(v)
		if !status.IsValid() {
			return filter, domain.ValidationError("unknown status %q", v)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, v := range queryValues(c, "nnc_class") {
		class := domain.NNCClass(v)
		if !class.IsValid() {
			return filter, domain.ValidationError("unknown nnc_class %q", v)
		}
		filter.NNCClasses = append(filter.NNCClasses, class)
	}
	for _, v := range queryValues(c, "priority") {
		priority := domain.Priority(v)
		if !priority.IsValid() {
			return filter, domain.ValidationError("unknown priority %q", v)
		}
		filter.Priorities = append(filter.Priorities, priority)
	}

	for key, target := range map[string]**domain.Date{
		"created_from": &filter.CreatedFrom,
		"created_to":   &filter.CreatedTo,
	} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		d, err := domain.ParseDate(raw)
		if err != nil {
			return filter, domain.ValidationError("%s: %v", key, err)
		}
		*target = &d
	}

	switch strings.ToLower(c.Query("order", "asc")) {
	case "asc":
	case "desc":
		filter.Descending = true
	default:
		return filter, domain.ValidationError("order must be asc or desc")
	}

	return filter, nil
}
