package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bankcards-service/internal/api/dto"
	"github.com/spec-kit/bankcards-service/internal/auth"
	"github.com/spec-kit/bankcards-service/internal/domain"
	"github.com/spec-kit/bankcards-service/internal/service"
	apperrors "github.com/spec-kit/bankcards-service/pkg/util/errorutil"
)

// CardsHandler exposes card endpoints.
type CardsHandler struct {
	cards *service.CardService
}

// NewCardsHandler constructs handler.
func NewCardsHandler(cards *service.CardService) *CardsHandler {
	return &CardsHandler{cards: cards}
}

// Create handles POST /v1/cards.
func (h *CardsHandler) Create(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CardRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	view, err := h.cards.CreateCard(c.UserContext(), req.ToInput(), principal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCardResponse(view)})
}

// List handles GET /v1/cards.
func (h *CardsHandler) List(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	filter := service.CardListFilter{
		Status: c.Query("status"),
		Owner:  c.Query("owner"),
		Page:   c.QueryInt("page", 0),
		Size:   c.QueryInt("size", 0),
	}

	page, err := h.cards.ListCards(c.UserContext(), filter, principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCardPageResponse(page)})
}

// Get handles GET /v1/cards/:id.
func (h *CardsHandler) Get(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	view, err := h.cards.GetCard(c.UserContext(), c.Params("id"), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCardResponse(view)})
}

// Update handles PATCH /v1/cards/:id.
func (h *CardsHandler) Update(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CardRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	view, err := h.cards.UpdateCard(c.UserContext(), c.Params("id"), req.ToInput(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCardResponse(view)})
}

// Delete handles DELETE /v1/cards/:id.
func (h *CardsHandler) Delete(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.cards.DeleteCard(c.UserContext(), c.Params("id"), principal); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Transfer handles POST /v1/cards/transfer.
func (h *CardsHandler) Transfer(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.TransferRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	transfer, err := h.cards.Transfer(c.UserContext(), service.TransferInput{
		FromCardID: req.FromCardID,
		ToCardID:   req.ToCardID,
		Amount:     req.Amount,
	}, principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransferResponse{
		ID:         transfer.ID,
		FromCardID: transfer.FromCardID,
		ToCardID:   transfer.ToCardID,
		Amount:     transfer.Amount,
		CreatedAt:  transfer.CreatedAt.UTC().Format(time.RFC3339),
	}})
}

// RequestBlock handles POST /v1/cards/:id/block.
func (h *CardsHandler) RequestBlock(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.cards.RequestBlock(c.UserContext(), c.Params("id"), principal); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AdminBlock handles POST /v1/cards/:id/block-admin.
func (h *CardsHandler) AdminBlock(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.cards.AdminBlock(c.UserContext(), c.Params("id"), principal); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AdminActivate handles POST /v1/cards/:id/activate.
func (h *CardsHandler) AdminActivate(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.cards.AdminActivate(c.UserContext(), c.Params("id"), principal); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func requirePrincipal(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}
