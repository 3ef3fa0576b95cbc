package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"organisekaro/backend/internal/billing"
	"organisekaro/backend/internal/cart"
	"organisekaro/backend/internal/domain"
	"organisekaro/backend/internal/service"
	"organisekaro/backend/internal/state"
	"organisekaro/backend/internal/store"
)

const maxBodyBytes = 4 << 20

type API struct {
	service       *service.Service
	allowedOrigin string
	log           zerolog.Logger
	gatherer      prometheus.Gatherer
}

func New(svc *service.Service, allowedOrigin string, logger zerolog.Logger, gatherer prometheus.Gatherer) *API {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &API{
		service:       svc,
		allowedOrigin: allowedOrigin,
		log:           logger,
		gatherer:      gatherer,
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{a.allowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(limitBody)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", a.handleState)

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", a.handleListItems)
			r.Post("/", a.handleCreateItem)
			r.Put("/{id}", a.handleUpdateItem)
			r.Delete("/{id}", a.handleDeleteItem)
		})

		r.Route("/parties", func(r chi.Router) {
			r.Get("/", a.handleListParties)
			r.Post("/", a.handleCreateParty)
			r.Post("/quick-add", a.handleQuickAddParty)
			r.Put("/{id}", a.handleUpdateParty)
			r.Delete("/{id}", a.handleDeleteParty)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", a.handleCart)
			r.Delete("/", a.handleClearCart)
			r.Post("/items", a.handleAddToCart)
			r.Patch("/items/{id}", a.handleUpdateCartLine)
			r.Post("/items/{id}/adjust", a.handleAdjustCartLine)
			r.Delete("/items/{id}", a.handleRemoveCartLine)
		})

		r.Post("/checkout", a.handleCheckout)
		r.Get("/invoices", a.handleListInvoices)
		r.Get("/invoices/{id}", a.handleGetInvoice)

		r.Get("/settings", a.handleGetSettings)
		r.Patch("/settings", a.handleUpdateSettings)

		r.Get("/backup", a.handleBackup)
		r.Post("/restore", a.handleRestore)
		r.Post("/reset", a.handleReset)

		r.Get("/reports/dashboard", a.handleDashboard)
		r.Get("/reports/snapshot", a.handleSnapshot)
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().UTC(),
	})
}

func (a *API) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.service.State())
}

func (a *API) handleListItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": a.service.ListItems()})
}

func (a *API) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req domain.ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.CreateItem(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (a *API) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req domain.ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.UpdateItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListParties(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"parties": a.service.ListParties()})
}

func (a *API) handleCreateParty(w http.ResponseWriter, r *http.Request) {
	var req domain.PartyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	party, err := a.service.CreateParty(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, party)
}

func (a *API) handleQuickAddParty(w http.ResponseWriter, r *http.Request) {
	var req domain.QuickPartyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	party, err := a.service.QuickAddParty(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, party)
}

func (a *API) handleUpdateParty(w http.ResponseWriter, r *http.Request) {
	var req domain.PartyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	party, err := a.service.UpdateParty(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, party)
}

func (a *API) handleDeleteParty(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteParty(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.service.CartView())
}

func (a *API) handleClearCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.ClearCart(r.Context()))
}

func (a *API) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req domain.AddToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.AddToCart(r.Context(), req.ItemID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleUpdateCartLine(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateCartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.UpdateCartLine(r.Context(), chi.URLParam(r, "id"), req.Field, req.Value)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleAdjustCartLine(w http.ResponseWriter, r *http.Request) {
	var req domain.AdjustCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.AdjustCartQuantity(r.Context(), chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleRemoveCartLine(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.RemoveCartLine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.Checkout(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleListInvoices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"invoices": a.service.ListInvoices()})
}

func (a *API) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := a.service.GetInvoice(chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (a *API) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.service.GetSettings())
}

func (a *API) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settings, err := a.service.UpdateSettings(r.Context(), patch)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleBackup(w http.ResponseWriter, r *http.Request) {
	name, doc, err := a.service.Backup(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (a *API) handleRestore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.Restore(r.Context(), data)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Reset(r.Context()))
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Dashboard(r.Context()))
}

func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.BusinessSnapshot(r.Context()))
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		startedAt := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		a.log.Info().
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Int64("duration_ms", time.Since(startedAt).Milliseconds()).
			Int("bytes", ww.BytesWritten()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http_request")
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	var verr *billing.ValidationError
	switch {
	case errors.Is(err, store.ErrInsufficientStock), errors.Is(err, store.ErrDuplicate),
		errors.Is(err, cart.ErrStockExceeded), errors.Is(err, cart.ErrOutOfStock):
		writeError(w, http.StatusConflict, err)
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, state.ErrInvalidDocument):
		writeError(w, http.StatusBadRequest, err)
	default:
		a.log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; 4xx messages are meant for the cashier.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": strings.TrimSpace(msg),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
