package handler

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/middleware"
	"incident-workflow/internal/pkg/catalog"
	"incident-workflow/internal/service"
)

type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Notification *NotificationHandler
	Workflow     *WorkflowHandler
	Attachment   *AttachmentHandler
	Dashboard    *DashboardHandler
	Admin        *AdminHandler
	Public       *PublicHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(services.Auth),
		User:         NewUserHandler(services.User),
		Notification: NewNotificationHandler(services.Notification, services.Export),
		Workflow:     NewWorkflowHandler(services.Workflow),
		Attachment:   NewAttachmentHandler(services.Attachment),
		Dashboard:    NewDashboardHandler(services.Dashboard),
		Admin:        NewAdminHandler(services.Backup),
		Public:       NewPublicHandler(catalog.Default()),
	}
}

func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	params := domain.DefaultPagination()

	if page := c.QueryInt("page", 1); page > 0 {
		params.Page = page
	}
	if perPage := c.QueryInt("per_page", 0); perPage > 0 {
		params.PerPage = perPage
	}

	params.Validate()
	return params
}

func notificationID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, middleware.BadRequest("Invalid notification ID")
	}
	return id, nil
}

func userID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, middleware.BadRequest("Invalid user ID")
	}
	return id, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// formUploads opens every file sent under field. The returned closer must
// be called once the uploads have been consumed.
func formUploads(form *multipart.Form, field string) ([]domain.Upload, func(), error) {
	headers := form.File[field]
	uploads := make([]domain.Upload, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, middleware.BadRequest("Failed to read uploaded file")
		}
		files = append(files, f)
		uploads = append(uploads, domain.Upload{Name: fh.Filename, Size: fh.Size, Reader: f})
	}
	return uploads, closeAll, nil
}

// queryValues collects a repeated and/or comma-separated query parameter.
func queryValues(c *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		for _, part := range strings.Split(string(raw), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
