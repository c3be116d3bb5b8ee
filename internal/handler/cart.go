package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nkazemy/marketplace-api/internal/model"
	"github.com/nkazemy/marketplace-api/internal/queue"
	"github.com/nkazemy/marketplace-api/internal/repository"
)

// CartHandler exposes the CUSTOMER cart endpoints.
type CartHandler struct {
	Cart     *repository.CartRepo
	Products *repository.ProductRepo
	Events   *queue.Publisher
}

func NewCartHandler(cart *repository.CartRepo, products *repository.ProductRepo, events *queue.Publisher) *CartHandler {
	return &CartHandler{Cart: cart, Products: products, Events: events}
}

// AddItem handles POST /v1/cart. The requested quantity is capped by the
// product's current stock; the hard guarantee happens again at checkout.
func (h *CartHandler) AddItem(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ProductID uint64 `json:"product_id"`
		Qty       uint32 `json:"qty"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ProductID == 0 || body.Qty == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_id and qty are required"})
	}

	ctx := c.Request().Context()
	p, err := h.Products.GetByID(ctx, body.ProductID)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if body.Qty > p.StockQty {
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient stock"})
	}

	if err := h.Cart.Upsert(ctx, userID, body.ProductID, body.Qty); err != nil {
		c.Logger().Errorf("cart upsert failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add to cart"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "added"})
}

// ListItems handles GET /v1/cart.
func (h *CartHandler) ListItems(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Cart.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if items == nil {
		items = []model.CartItem{}
	}
	return c.JSON(http.StatusOK, items)
}

// RemoveItem handles DELETE /v1/cart/:id where :id is the product id.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	productID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Cart.Remove(c.Request().Context(), userID, productID); err != nil {
		if err == repository.ErrCartItemNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cart item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not remove item"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Checkout handles POST /v1/cart/checkout: decrement stock for every cart
// line and empty the cart in one transaction, then emit order.placed.
func (h *CartHandler) Checkout(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	lines, total, err := h.Cart.Checkout(ctx, userID)
	if err != nil {
		switch err {
		case repository.ErrCartItemNotFound:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart is empty"})
		case repository.ErrInsufficientStock:
			return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient stock"})
		}
		c.Logger().Errorf("checkout failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed"})
	}

	ev := queue.OrderPlacedEvent{
		UserID:           userID,
		TotalAmountCents: total,
		PlacedAt:         time.Now().UTC().Format(time.RFC3339),
	}
	for _, l := range lines {
		ev.Lines = append(ev.Lines, queue.OrderLine{
			ProductID: l.ProductID, Name: l.Name, Qty: l.Qty, PriceCents: l.PriceCents,
		})
	}
	h.Events.PublishOrderPlaced(ctx, ev)

	return c.JSON(http.StatusOK, echo.Map{"message": "order placed", "total_cents": total})
}
