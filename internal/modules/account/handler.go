package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/versostore/verso-backend/internal/middleware"
)

// Handler exposes identity and staff-management HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(router *chi.Mux, requireAuth func(http.Handler) http.Handler) {
	router.Post("/api/v1/accounts/register", h.register)

	router.Route("/api/v1/accounts", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.updateProfile)
	})

	router.Route("/api/v1/staff", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.createStaff)
		r.Get("/", h.listStaff)
		r.Patch("/{id}/role", h.changeRole)
		r.Post("/{id}/permissions/revoke", h.revokePermission)
		r.Post("/{id}/permissions/grant", h.grantPermission)
		r.Delete("/{id}", h.deleteIdentity)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	identity, err := h.service.RegisterCustomer(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, identity)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.Get(r.Context(), middleware.ActorID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, identity)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	identity, err := h.service.UpdateProfile(r.Context(), middleware.ActorID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, identity)
}

func (h *Handler) createStaff(w http.ResponseWriter, r *http.Request) {
	var req CreateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	identity, err := h.service.CreateStaff(r.Context(), middleware.ActorID(r.Context()), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, identity)
}

func (h *Handler) listStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.service.ListStaff(r.Context(), middleware.ActorID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, staff)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	identity, err := h.service.ChangeRole(r.Context(), middleware.ActorID(r.Context()), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, identity)
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	h.togglePermission(w, r, h.service.RevokePermission)
}

func (h *Handler) grantPermission(w http.ResponseWriter, r *http.Request) {
	h.togglePermission(w, r, h.service.GrantPermission)
}

func (h *Handler) togglePermission(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, actorID, targetID, permission string) error) {
	var req struct {
		Permission string `json:"permission"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	err := apply(r.Context(), middleware.ActorID(r.Context()), chi.URLParam(r, "id"), req.Permission)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) deleteIdentity(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteIdentity(r.Context(), middleware.ActorID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "identity deleted"})
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, ErrPermissionDenied):
		code = http.StatusForbidden
	case strings.Contains(msg, "not found"):
		code = http.StatusNotFound
	case strings.Contains(msg, "unknown role"), strings.Contains(msg, "unknown permission"),
		strings.Contains(msg, "required"), strings.Contains(msg, "not a staff role"):
		code = http.StatusBadRequest
	}
	respond(w, code, map[string]string{"error": msg})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
