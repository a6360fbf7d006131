// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/avelov/photo-share-gallery/internal/handler"
	"github.com/avelov/photo-share-gallery/internal/middleware"
)

// RegisterRoutes registers the unauthenticated infrastructure endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session endpoints. Register, login and the
// refresh flows live under /v1/auth and need no token; /v1/me requires one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token and returns a fresh pair.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout takes the refresh token in the body, so no JWT is required.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("MEMBER", "ADMIN"))
	auth.GET("/me", a.Me)
}

// RegisterGallery registers the photo and slideshow endpoints. Every route
// requires a valid member token; ownership checks happen in the handlers.
// The extra middleware (rate limiting, response caching) is applied by the
// caller so tests can register routes without Redis.
func RegisterGallery(e *echo.Echo, ph *handler.PhotoHandler, sh *handler.SlideshowHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("MEMBER", "ADMIN"))
	g.Use(extra...)

	g.POST("/photos", ph.Upload)
	g.GET("/photos", ph.List)
	g.GET("/photos/:id", ph.Get)
	g.DELETE("/photos/:id", ph.Delete)
	g.POST("/photos/:id/tags", ph.AddTags)
	g.DELETE("/photos/:id/tags/:tag", ph.RemoveTag)

	g.POST("/slideshows", sh.Create)
	g.GET("/slideshows", sh.ListMine)
	// Registered before /slideshows/:id so "public" is not parsed as an id.
	g.GET("/slideshows/public", sh.ListPublic)
	g.GET("/slideshows/:id", sh.Get)
	g.PUT("/slideshows/:id", sh.Update)
	g.DELETE("/slideshows/:id", sh.Delete)
	g.POST("/slideshows/:id/photos", sh.AppendPhotos)
	g.DELETE("/slideshows/:id/photos/:photoID", sh.RemovePhoto)
	g.PUT("/slideshows/:id/order", sh.Reorder)
}

// RegisterAdmin registers the allow-list management endpoints, restricted to
// the ADMIN role.
func RegisterAdmin(e *echo.Echo, ah *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	g.GET("/allowed-emails", ah.ListAllowedEmails)
	g.POST("/allowed-emails", ah.AddAllowedEmail)
	g.DELETE("/allowed-emails/:email", ah.RemoveAllowedEmail)
}
