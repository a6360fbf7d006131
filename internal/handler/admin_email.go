package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelov/photo-share-gallery/internal/repository"
)

// AdminHandler exposes the registration allow list to admins. Only emails on
// this list may register; removing one never touches existing accounts.
type AdminHandler struct {
	Allowed *repository.AllowedEmailRepo
}

func NewAdminHandler(a *repository.AllowedEmailRepo) *AdminHandler {
	if a == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Allowed: a}
}

type allowedEmailResp struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	AddedBy   uint64    `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAllowedEmails handles GET /v1/admin/allowed-emails.
func (h *AdminHandler) ListAllowedEmails(c echo.Context) error {
	entries, err := h.Allowed.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]allowedEmailResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, allowedEmailResp{ID: e.ID, Email: e.Email, AddedBy: e.AddedBy, CreatedAt: e.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"allowed_emails": out})
}

// AddAllowedEmail handles POST /v1/admin/allowed-emails. Re-adding an
// address that is already approved succeeds silently.
func (h *AdminHandler) AddAllowedEmail(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || !strings.Contains(email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a valid email is required"})
	}
	if err := h.Allowed.Add(c.Request().Context(), email, adminID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"email": email})
}

// RemoveAllowedEmail handles DELETE /v1/admin/allowed-emails/:email.
func (h *AdminHandler) RemoveAllowedEmail(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.Param("email")))
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}
	if err := h.Allowed.Remove(c.Request().Context(), email); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "email not on allow list"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}
