// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nkazemy/marketplace-api/internal/handler"
	"github.com/nkazemy/marketplace-api/internal/middleware"
	"github.com/nkazemy/marketplace-api/internal/model"
	"github.com/nkazemy/marketplace-api/internal/utils"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires all authentication-related routes. Register, login and
// refresh are reachable without an access token; refresh is protected by
// RefreshGuard (refresh secret), logout and /me by AuthGuard (access secret).
// The rate limiter runs in front of every auth endpoint to slow down
// credential stuffing.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, issuer *utils.TokenIssuer, rateLimit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if rateLimit != nil {
		g.Use(rateLimit)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// The refresh endpoint takes the refresh token as the bearer credential;
	// the guard verifies it against the refresh secret and passes the raw
	// string through for rotation.
	g.POST("/refresh", a.Refresh, middleware.RefreshGuard(issuer))
	// Logout revokes the session of the authenticated caller; no refresh
	// token is needed or verified here.
	g.POST("/logout", a.Logout, middleware.AuthGuard(issuer))
	g.GET("/me", a.Me, middleware.AuthGuard(issuer))
}

// RegisterCatalog wires the marketplace surface: public reads plus
// role-gated writes for categories (ADMIN), stores and products (VENDOR) and
// the cart (CUSTOMER).
func RegisterCatalog(e *echo.Echo, issuer *utils.TokenIssuer, cache echo.MiddlewareFunc,
	cat *handler.CategoryHandler, st *handler.StoreHandler,
	pr *handler.ProductHandler, cart *handler.CartHandler) {

	// Public browse endpoints, served through the response cache when one is
	// configured. Authenticated surfaces stay uncached: the cache key does
	// not include the caller's identity.
	pub := []echo.MiddlewareFunc{}
	if cache != nil {
		pub = append(pub, cache)
	}
	e.GET("/v1/categories", cat.ListCategories, pub...)
	e.GET("/v1/stores", st.ListStores, pub...)
	e.GET("/v1/stores/:id", st.GetStore, pub...)
	e.GET("/v1/products", pr.ListProducts, pub...)
	e.GET("/v1/products/:id", pr.GetProduct, pub...)

	// ADMIN-only category management.
	admin := e.Group("/v1/categories")
	admin.Use(middleware.AuthGuard(issuer))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.POST("", cat.CreateCategory)
	admin.PUT("/:id", cat.UpdateCategory)
	admin.DELETE("/:id", cat.DeleteCategory)

	// VENDOR-only storefront management.
	vendor := e.Group("/v1")
	vendor.Use(middleware.AuthGuard(issuer))
	vendor.Use(middleware.RequireRole(model.RoleVendor))
	vendor.POST("/stores", st.CreateStore)
	vendor.POST("/products", pr.CreateProduct)
	vendor.PUT("/products/:id", pr.UpdateProduct)
	vendor.DELETE("/products/:id", pr.DeleteProduct)

	// CUSTOMER-only cart.
	customer := e.Group("/v1/cart")
	customer.Use(middleware.AuthGuard(issuer))
	customer.Use(middleware.RequireRole(model.RoleCustomer))
	customer.POST("", cart.AddItem)
	customer.GET("", cart.ListItems)
	customer.DELETE("/:id", cart.RemoveItem)
	customer.POST("/checkout", cart.Checkout)
}
