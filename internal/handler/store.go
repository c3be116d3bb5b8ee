package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nkazemy/marketplace-api/internal/model"
	"github.com/nkazemy/marketplace-api/internal/repository"
)

// StoreHandler exposes the vendor storefront endpoints. Creation is
// restricted to VENDOR users (enforced by route middleware); reads are public.
type StoreHandler struct {
	Stores *repository.StoreRepo
}

func NewStoreHandler(stores *repository.StoreRepo) *StoreHandler {
	return &StoreHandler{Stores: stores}
}

// CreateStore handles POST /v1/stores. A vendor owns at most one store; a
// second create returns 409.
func (h *StoreHandler) CreateStore(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	s := &model.Store{OwnerID: ownerID, Name: name, Description: strings.TrimSpace(body.Description)}
	if err := h.Stores.Create(c.Request().Context(), s); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "vendor already has a store"})
		}
		c.Logger().Errorf("create store failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create store"})
	}
	return c.JSON(http.StatusCreated, s)
}

// GetStore handles GET /v1/stores/:id (public).
func (h *StoreHandler) GetStore(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	s, err := h.Stores.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrStoreNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, s)
}

// ListStores handles GET /v1/stores (public).
func (h *StoreHandler) ListStores(c echo.Context) error {
	items, err := h.Stores.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if items == nil {
		items = []model.Store{}
	}
	return c.JSON(http.StatusOK, items)
}
