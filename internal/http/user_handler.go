package http

import (
	"errors"
	"log/slog"
	"net/http"

	"homestead/internal/users"
)

// UserHandler serves the authenticated user's own record and the admin
// user listing.
type UserHandler struct {
	users  *users.Service
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *users.Service, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: svc, logger: logger}
}

// Get handles GET /api/auth/user
// Returns the caller's durable user record.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		unauthorized(w)
		return
	}

	user, err := h.users.Get(r.Context(), identity.Session.Claims.Sub)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("user lookup failed", "sub", identity.Session.Claims.Sub, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Update handles PATCH /api/auth/user
// Applies the allow-listed profile fields. Anything else in the body,
// including role, is dropped.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		unauthorized(w)
		return
	}

	var body struct {
		Phone *string `json:"phone"`
		Bio   *string `json:"bio"`
	}
	if err := decodeJSONBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), identity.Session.Claims.Sub, users.ProfileUpdate{
		Phone: body.Phone,
		Bio:   body.Bio,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrValidation):
			writeError(w, http.StatusBadRequest, "no valid fields to update")
		case errors.Is(err, users.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			h.logger.Error("profile update failed", "sub", identity.Session.Claims.Sub, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// List handles GET /api/admin/users
// Returns every user record. Admin only; the router gates this route on the
// admin role.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error("user listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": all})
}
