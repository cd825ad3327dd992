package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storekit/shopcore/internal/engine"
	"github.com/storekit/shopcore/internal/events"
	"github.com/storekit/shopcore/internal/identity"
	"github.com/storekit/shopcore/internal/models"
)

type AccountHandler struct {
	Engine   *engine.Engine
	Producer *events.Producer
}

func (h *AccountHandler) CreateAccount(c echo.Context) error {
	var req struct {
		Handle   string `json:"handle"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	acct, err := h.Engine.CreateAccount(c.Request().Context(), engine.AccountInput{
		Handle:   req.Handle,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return engineError(c, err)
	}

	publish(c, h.Producer, fmt.Sprint(acct.ID), map[string]any{
		"type":       "account_created",
		"account_id": acct.ID,
		"handle":     acct.Handle,
	})
	return c.JSON(http.StatusCreated, acct)
}

func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.Engine.DeleteAccount(c.Request().Context(), id); err != nil {
		return engineError(c, err)
	}
	publish(c, h.Producer, fmt.Sprint(id), map[string]any{
		"type":       "account_deleted",
		"account_id": id,
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) ListAddresses(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	addrs, err := h.Engine.Repo().Addresses(c.Request().Context(), accountID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, addrs)
}

func (h *AccountHandler) CreateAddress(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	var addr models.Address
	if err := c.Bind(&addr); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	addr.AccountID = accountID

	created, err := h.Engine.CreateAddress(c.Request().Context(), &addr)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *AccountHandler) UpdateAddress(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var addr models.Address
	if err := c.Bind(&addr); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	addr.ID = id
	addr.AccountID = accountID

	updated, err := h.Engine.UpdateAddress(c.Request().Context(), &addr)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *AccountHandler) DeleteAddress(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	addr, err := h.Engine.Repo().Address(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"error": "address not found"})
	}
	if addr.AccountID != accountID && !identity.IsAdmin(c) {
		return echo.NewHTTPError(http.StatusForbidden, "not your address")
	}
	if err := h.Engine.DeleteAddress(c.Request().Context(), id); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) GetCart(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	lines, err := h.Engine.Repo().CartLines(c.Request().Context(), accountID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *AccountHandler) AddToCart(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	line, err := h.Engine.AddCartLine(c.Request().Context(), accountID, req.ProductID, req.Quantity)
	if err != nil {
		return engineError(c, err)
	}

	publish(c, h.Producer, fmt.Sprint(accountID), map[string]any{
		"type":       "cart_line_added",
		"account_id": accountID,
		"product_id": req.ProductID,
		"quantity":   line.Quantity,
	})
	return c.JSON(http.StatusOK, line)
}

func (h *AccountHandler) UpdateCartLine(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	line, err := h.Engine.UpdateCartLine(c.Request().Context(), id, req.Quantity)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, line)
}

func (h *AccountHandler) RemoveCartLine(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.Engine.RemoveCartLine(c.Request().Context(), id); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) ClearCart(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	if err := h.Engine.ClearCart(c.Request().Context(), accountID); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) GetWishlist(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	lines, err := h.Engine.Repo().WishlistLines(c.Request().Context(), accountID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *AccountHandler) AddToWishlist(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	var req struct {
		ProductID uint `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	line, err := h.Engine.AddWishlistLine(c.Request().Context(), accountID, req.ProductID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, line)
}

func (h *AccountHandler) RemoveFromWishlist(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.Engine.RemoveWishlistLine(c.Request().Context(), id); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) CreateReview(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	var rv models.Review
	if err := c.Bind(&rv); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	rv.AccountID = accountID

	created, err := h.Engine.CreateReview(c.Request().Context(), &rv)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *AccountHandler) DeleteReview(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.Engine.DeleteReview(c.Request().Context(), id); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type DiscountHandler struct {
	Engine *engine.Engine
}

func (h *DiscountHandler) CreateDiscount(c echo.Context) error {
	var d models.Discount
	if err := c.Bind(&d); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	created, err := h.Engine.CreateDiscount(c.Request().Context(), &d)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *DiscountHandler) UpdateDiscount(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var d models.Discount
	if err := c.Bind(&d); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	d.ID = id
	updated, err := h.Engine.UpdateDiscount(c.Request().Context(), &d)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *DiscountHandler) DeleteDiscount(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.Engine.DeleteDiscount(c.Request().Context(), id); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type SeedHandler struct {
	Engine *engine.Engine
}

func (h *SeedHandler) Import(c echo.Context) error {
	var bundle engine.SeedBundle
	if err := c.Bind(&bundle); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	if err := h.Engine.Import(c.Request().Context(), &bundle); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
