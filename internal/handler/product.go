package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nkazemy/marketplace-api/internal/model"
	"github.com/nkazemy/marketplace-api/internal/repository"
)

// ProductHandler exposes product CRUD. Writes are VENDOR-only and scoped to
// the vendor's own store; reads are public.
type ProductHandler struct {
	Products *repository.ProductRepo
	Stores   *repository.StoreRepo
}

func NewProductHandler(products *repository.ProductRepo, stores *repository.StoreRepo) *ProductHandler {
	return &ProductHandler{Products: products, Stores: stores}
}

type productReq struct {
	CategoryID uint64 `json:"category_id"`
	Name       string `json:"name"`
	PriceCents uint32 `json:"price_cents"`
	StockQty   uint32 `json:"stock_qty"`
}

// ownStore resolves the calling vendor's store. The store is the ownership
// boundary: every product write must land in it.
func (h *ProductHandler) ownStore(c echo.Context) (*model.Store, error) {
	ownerID, err := getUserID(c)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	s, err := h.Stores.GetByOwner(c.Request().Context(), ownerID)
	if err != nil {
		if err == repository.ErrStoreNotFound {
			return nil, echo.NewHTTPError(http.StatusConflict, "vendor has no store")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return s, nil
}

// CreateProduct handles POST /v1/products.
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	s, err := h.ownStore(c)
	if err != nil {
		return err
	}
	var body productReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" || body.CategoryID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and category_id are required"})
	}

	p := &model.Product{
		StoreID:    s.ID,
		CategoryID: body.CategoryID,
		Name:       name,
		PriceCents: body.PriceCents,
		StockQty:   body.StockQty,
	}
	if err := h.Products.Create(c.Request().Context(), p); err != nil {
		// MySQL 1452 = foreign key failure, here an unknown category.
		if strings.Contains(strings.ToLower(err.Error()), "1452") {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
		}
		c.Logger().Errorf("create product failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create product"})
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdateProduct handles PUT /v1/products/:id.
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	s, err := h.ownStore(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	p, err := h.Products.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if p.StoreID != s.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var body productReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if name := strings.TrimSpace(body.Name); name != "" {
		p.Name = name
	}
	if body.CategoryID != 0 {
		p.CategoryID = body.CategoryID
	}
	p.PriceCents = body.PriceCents
	p.StockQty = body.StockQty

	if err := h.Products.Update(c.Request().Context(), p); err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, p)
}

// DeleteProduct handles DELETE /v1/products/:id.
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	s, err := h.ownStore(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	p, err := h.Products.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if p.StoreID != s.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	if err := h.Products.Delete(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// GetProduct handles GET /v1/products/:id (public).
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	p, err := h.Products.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, p)
}

// ListProducts handles GET /v1/products (public). Optional ?category_id= and
// ?store_id= filters.
func (h *ProductHandler) ListProducts(c echo.Context) error {
	categoryID, _ := strconv.ParseUint(c.QueryParam("category_id"), 10, 64)
	storeID, _ := strconv.ParseUint(c.QueryParam("store_id"), 10, 64)

	items, err := h.Products.List(c.Request().Context(), categoryID, storeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if items == nil {
		items = []model.Product{}
	}
	return c.JSON(http.StatusOK, items)
}
