package authz

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/assetdesk/internal/platform/httpx"
)

// Handler exposes the caller's own permissions.
type Handler struct {
	gate Middleware
}

// NewHandler builds Handler instance.
func NewHandler(gate Middleware) *Handler {
	return &Handler{gate: gate}
}

// MountRoutes registers /me routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireActive())
		r.Get("/permissions", h.myPermissions)
	})
}

type capabilityCheck struct {
	Capability string `json:"capability"`
	Allowed    bool   `json:"allowed"`
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	rec, ok := RecordFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if name := r.URL.Query().Get("check"); name != "" {
		c, err := ParseCapability(name)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		httpx.JSON(w, http.StatusOK, capabilityCheck{Capability: c.String(), Allowed: HasCapability(&rec, c)})
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}
