package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/versostore/verso-backend/internal/middleware"
	"github.com/versostore/verso-backend/internal/modules/account"
)

// Handler exposes order HTTP endpoints. Checkout accepts both guests (via
// the session token header) and authenticated customers; everything else
// requires authentication.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// sessionHeader mirrors the cart module's guest token header.
const sessionHeader = "X-Session-Token"

func (h *Handler) RegisterRoutes(router *chi.Mux, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	router.Route("/api/v1/orders", func(r chi.Router) {
		r.With(optionalAuth).Post("/checkout", h.checkout) // POST  /api/v1/orders/checkout

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", h.list)                       // GET   /api/v1/orders?status=PENDING
			r.Get("/mine", h.listMine)               // GET   /api/v1/orders/mine
			r.Get("/{id}", h.get)                    // GET   /api/v1/orders/{id}
			r.Patch("/{id}/status", h.transition)    // PATCH /api/v1/orders/{id}/status
		})
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	req.IdentityID = middleware.ActorID(r.Context())
	if req.SessionToken == "" {
		req.SessionToken = r.Header.Get(sessionHeader)
	}

	o, err := h.service.Checkout(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, o)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), middleware.ActorID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context(), middleware.ActorID(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListMine(r.Context(), middleware.ActorID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.service.Transition(r.Context(), middleware.ActorID(r.Context()), chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, account.ErrPermissionDenied):
		code = http.StatusForbidden
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrInsufficientStock):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, ErrEmptyCart):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, ErrStoreUnavailable):
		code = http.StatusServiceUnavailable
	case strings.Contains(msg, "not found"):
		code = http.StatusNotFound
	case strings.Contains(msg, "required"), strings.Contains(msg, "unknown status"):
		code = http.StatusBadRequest
	}
	respond(w, code, map[string]string{"error": msg})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
