package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/assetdesk/internal/authz"
	"github.com/odyssey-erp/assetdesk/internal/platform/db"
	"github.com/odyssey-erp/assetdesk/internal/platform/httpx"
	"github.com/odyssey-erp/assetdesk/internal/shared"
)

// Handler manages user administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, gate: gate, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireCapability(authz.CanViewUsers))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAdmin())
		r.Patch("/{id}/permissions", h.updatePermissions)
		r.Post("/{id}/activate", h.setActive(true))
		r.Post("/{id}/deactivate", h.setActive(false))
		r.Post("/{id}/approve", h.approve)
		r.Delete("/{id}", h.deleteUser)
	})
}

type permissionsForm struct {
	Role  string          `json:"role" validate:"omitempty,oneof=admin user"`
	Flags map[string]bool `json:"flags" validate:"omitempty,max=24"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, "list users failed", err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get user failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) updatePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var form permissionsForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, describeValidation(err)))
		return
	}
	upd := PermissionUpdate{Flags: make(map[authz.Capability]bool, len(form.Flags))}
	if form.Role != "" {
		role := authz.ParseRole(form.Role)
		upd.Role = &role
	}
	for name, on := range form.Flags {
		c, err := authz.ParseCapability(name)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		upd.Flags[c] = on
	}
	if err := h.service.UpdatePermissions(r.Context(), id, upd); err != nil {
		h.fail(w, r, "update permissions failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.userID(w, r)
		if !ok {
			return
		}
		if err := h.service.SetActive(r.Context(), actorID(r), id, active); err != nil {
			h.fail(w, r, "set active failed", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.service.Approve(r.Context(), id); err != nil {
		h.fail(w, r, "approve user failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), actorID(r), id); err != nil {
		h.fail(w, r, "delete user failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := h.validator.Var(id, "required,uuid"); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: id must be a uuid", httpx.ErrValidation))
		return "", false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: user", httpx.ErrNotFound))
	case errors.Is(err, ErrSelfLockout), errors.Is(err, ErrEmptyUpdate):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	default:
		if h.logger != nil {
			h.logger.Error(msg, slog.Any("error", err))
		}
		if db.IsTransient(err) {
			httpx.RespondError(w, httpx.ErrUnavailable)
			return
		}
		httpx.RespondError(w, err)
	}
}

func actorID(r *http.Request) string {
	if id, ok := shared.IdentityFromContext(r.Context()); ok {
		return id.UserID
	}
	return ""
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, strings.ToLower(fe.Field())+" "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
