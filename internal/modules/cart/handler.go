package cart

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/versostore/verso-backend/internal/middleware"
)

// sessionHeader carries the guest cart token for unauthenticated requests.
const sessionHeader = "X-Session-Token"

// Handler exposes cart HTTP endpoints. Guest requests identify their cart
// through the session token header; authenticated requests use the actor id
// from the bearer token.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(router *chi.Mux, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	router.Route("/api/v1/cart", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/", h.getCart)
			r.Post("/items", h.addItem)
			r.Put("/items/{variant_id}", h.updateItem)
			r.Delete("/items/{variant_id}", h.removeItem)
			r.Delete("/", h.clear)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/merge", h.merge)
		})
	})
}

// cartKey resolves the cart for this request: the identity cart when
// authenticated, otherwise the guest session cart.
func cartKey(r *http.Request) (string, bool) {
	if actorID := middleware.ActorID(r.Context()); actorID != "" {
		return IdentityKey(actorID), true
	}
	if tok := r.Header.Get(sessionHeader); tok != "" {
		return SessionKey(tok), true
	}
	return "", false
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	key, ok := cartKey(r)
	if !ok {
		respond(w, http.StatusBadRequest, map[string]string{"error": "missing session token"})
		return
	}
	c, err := h.service.Get(r.Context(), key)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, c)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	key, ok := cartKey(r)
	if !ok {
		respond(w, http.StatusBadRequest, map[string]string{"error": "missing session token"})
		return
	}

	var req struct {
		VariantID string `json:"variant_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	c, err := h.service.AddItem(r.Context(), key, req.VariantID, req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	key, ok := cartKey(r)
	if !ok {
		respond(w, http.StatusBadRequest, map[string]string{"error": "missing session token"})
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	c, err := h.service.UpdateItem(r.Context(), key, chi.URLParam(r, "variant_id"), req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	key, ok := cartKey(r)
	if !ok {
		respond(w, http.StatusBadRequest, map[string]string{"error": "missing session token"})
		return
	}
	c, err := h.service.RemoveItem(r.Context(), key, chi.URLParam(r, "variant_id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	key, ok := cartKey(r)
	if !ok {
		respond(w, http.StatusBadRequest, map[string]string{"error": "missing session token"})
		return
	}
	if err := h.service.Clear(r.Context(), key); err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "cart cleared"})
}

func (h *Handler) merge(w http.ResponseWriter, r *http.Request) {
	tok := r.Header.Get(sessionHeader)
	if tok == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "missing session token"})
		return
	}
	c, err := h.service.Merge(r.Context(), tok, middleware.ActorID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		code = http.StatusNotFound
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "must be"):
		code = http.StatusBadRequest
	}
	respond(w, code, map[string]string{"error": msg})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
