package handler

import (
	"github.com/gofiber/fiber/v2"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/middleware"
	"incident-workflow/internal/service/user"
)

type UserHandler struct {
	userService user.Service
}

func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	result, err := h.userService.List(c.Context(), getPaginationParams(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var input domain.CreateUserInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	created, err := h.userService.Create(c.Context(), middleware.Actor(c), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	var input domain.UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	updated, err := h.userService.Update(c.Context(), middleware.Actor(c), id, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(updated)
}

func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if id == middleware.GetCurrentUserID(c) {
		return domain.ValidationError("you cannot deactivate your own account")
	}

	if err := h.userService.Deactivate(c.Context(), middleware.Actor(c), id); err != nil {
		return err
	}
	return c.Status(fiber.StatusNoContent).SendString("")
}

// Assignable lists active users holding ?role=, executor by default.
func (h *UserHandler) Assignable(c *fiber.Ctx) error {
	role := domain.UserRole(c.Query("role", string(domain.RoleExecutor)))

	users, err := h.userService.ListAssignable(c.Context(), role)
	if err != nil {
		return err
	}

	out := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		out = append(out, fiber.Map{"id": u.ID, "username": u.Username, "name": u.Name})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": out})
}
