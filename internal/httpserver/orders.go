package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/storekit/shopcore/internal/engine"
	"github.com/storekit/shopcore/internal/events"
	"github.com/storekit/shopcore/internal/identity"
	"github.com/storekit/shopcore/internal/models"
	"github.com/storekit/shopcore/internal/util"
)

type OrderHandler struct {
	Engine   *engine.Engine
	Producer *events.Producer
}

func idParam(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	var req struct {
		Lines             []engine.LineInput `json:"lines"`
		ShippingAddressID uint               `json:"shipping_address_id"`
		BillingAddressID  uint               `json:"billing_address_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	order, err := h.Engine.PlaceOrder(c.Request().Context(), accountID, req.Lines, req.ShippingAddressID, req.BillingAddressID)
	if err != nil {
		return engineError(c, err)
	}
	lines, err := h.Engine.Repo().OrderLines(c.Request().Context(), order.ID)
	if err != nil {
		return engineError(c, err)
	}

	publish(c, h.Producer, fmt.Sprint(accountID), map[string]any{
		"type":     "order_placed",
		"order_id": order.ID,
		"total":    order.TotalAmount,
		"lines":    lines,
	})
	return c.JSON(http.StatusCreated, map[string]any{"order": order, "lines": lines})
}

func (h *OrderHandler) PlaceOrderFromCart(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	var req struct {
		ShippingAddressID uint `json:"shipping_address_id"`
		BillingAddressID  uint `json:"billing_address_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	order, err := h.Engine.PlaceOrderFromCart(c.Request().Context(), accountID, req.ShippingAddressID, req.BillingAddressID)
	if err != nil {
		return engineError(c, err)
	}

	publish(c, h.Producer, fmt.Sprint(accountID), map[string]any{
		"type":     "order_placed",
		"order_id": order.ID,
		"total":    order.TotalAmount,
	})
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	order, err := h.Engine.Repo().Order(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"error": "order not found"})
	}
	if acting, _ := identity.AccountID(c); order.AccountID != acting && !identity.IsAdmin(c) {
		return echo.NewHTTPError(http.StatusForbidden, "not your order")
	}

	lines, err := h.Engine.Repo().OrderLines(ctx, id)
	if err != nil {
		return engineError(c, err)
	}
	discounts, err := h.Engine.Repo().OrderDiscounts(ctx, id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"order": order, "lines": lines, "discounts": discounts,
	})
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	accountID, ok := identity.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	orders, err := h.Engine.Repo().OrdersForAccount(c.Request().Context(), accountID, offset, limit)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) ApplyDiscount(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	applied, err := h.Engine.ApplyDiscount(c.Request().Context(), id, req.Code)
	if err != nil {
		return engineError(c, err)
	}

	publish(c, h.Producer, fmt.Sprint(id), map[string]any{
		"type":     "discount_applied",
		"order_id": id,
		"code":     req.Code,
		"amount":   applied.Amount,
	})
	return c.JSON(http.StatusOK, applied)
}

func (h *OrderHandler) RecordPayment(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Method models.PaymentMethod `json:"method"`
		Amount decimal.Decimal      `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	payment, err := h.Engine.RecordPayment(c.Request().Context(), id, req.Method, req.Amount)
	if err != nil {
		return engineError(c, err)
	}

	publish(c, h.Producer, fmt.Sprint(id), map[string]any{
		"type":       "payment_recorded",
		"order_id":   id,
		"payment_id": payment.ID,
		"amount":     payment.Amount,
	})
	return c.JSON(http.StatusCreated, payment)
}

func (h *OrderHandler) SettlePayment(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Outcome models.PaymentStatus `json:"outcome"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	payment, err := h.Engine.SettlePayment(c.Request().Context(), id, req.Outcome)
	if err != nil {
		return engineError(c, err)
	}

	publish(c, h.Producer, fmt.Sprint(payment.OrderID), map[string]any{
		"type":       "payment_settled",
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"outcome":    payment.Status,
	})
	return c.JSON(http.StatusOK, payment)
}

func (h *OrderHandler) CancelOrder(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	order, err := h.Engine.CancelOrder(c.Request().Context(), id)
	if err != nil {
		return engineError(c, err)
	}

	publish(c, h.Producer, fmt.Sprint(order.AccountID), map[string]any{
		"type":     "order_cancelled",
		"order_id": order.ID,
	})
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AdvanceOrder(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	order, err := h.Engine.AdvanceOrder(c.Request().Context(), id, req.Status)
	if err != nil {
		return engineError(c, err)
	}

	publish(c, h.Producer, fmt.Sprint(order.AccountID), map[string]any{
		"type":     "order_advanced",
		"order_id": order.ID,
		"status":   order.Status,
	})
	return c.JSON(http.StatusOK, order)
}
