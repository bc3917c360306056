package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bankcards-service/internal/api/dto"
	"github.com/spec-kit/bankcards-service/internal/domain"
	"github.com/spec-kit/bankcards-service/internal/service"
)

// AdminUsersHandler exposes user management for administrators.
type AdminUsersHandler struct {
	users *service.UserAdminService
}

// NewAdminUsersHandler constructs handler.
func NewAdminUsersHandler(users *service.UserAdminService) *AdminUsersHandler {
	return &AdminUsersHandler{users: users}
}

// List handles GET /v1/admin/users.
func (h *AdminUsersHandler) List(c *fiber.Ctx) error {
	page, err := h.users.List(c.UserContext(), c.Query("q"), c.QueryInt("page", 0), c.QueryInt("size", 10))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserPageResponse(page)})
}

// Get handles GET /v1/admin/users/:id.
func (h *AdminUsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Create handles POST /v1/admin/users.
func (h *AdminUsersHandler) Create(c *fiber.Ctx) error {
	var req dto.AdminCreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), req.Username, req.Password, domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update handles PATCH /v1/admin/users/:id.
func (h *AdminUsersHandler) Update(c *fiber.Ctx) error {
	var req dto.AdminUpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Delete handles DELETE /v1/admin/users/:id.
func (h *AdminUsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
