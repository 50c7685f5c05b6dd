package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/action"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/api"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/cache"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/export"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/models"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/prefs"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderSource is the read side of the row cache. Narrow interface for
// testability.
type OrderSource interface {
	Filter(mode, query string) []models.OrderRecord
}

// PendingBadge reports the latest displayed pending count.
type PendingBadge interface {
	Badge() int
}

// Orchestrator drives user-initiated actions against the backend.
// Satisfied by *action.Orchestrator.
type Orchestrator interface {
	AdvanceStep(ctx context.Context, id int64, step models.Step, passcode string) (*api.UpdateStatusResult, error)
	DownloadSlip(ctx context.Context, id int64) (*action.Slip, error)
}

// PrefsStore persists the alert preferences.
type PrefsStore interface {
	Get(ctx context.Context) prefs.Preferences
	Put(ctx context.Context, p prefs.Preferences) error
}

// Handler serves the dashboard view API over the locally cached rows.
// It never proxies reads to the upstream backend.
type Handler struct {
	orders   OrderSource
	badge    PendingBadge
	orch     Orchestrator
	prefs    PrefsStore
	brand    string
	pageSize int
	logger   *zap.Logger
}

func NewHandler(orders OrderSource, badge PendingBadge, orch Orchestrator, prefsStore PrefsStore, brand string, pageSize int, logger *zap.Logger) *Handler {
	return &Handler{
		orders:   orders,
		badge:    badge,
		orch:     orch,
		prefs:    prefsStore,
		brand:    brand,
		pageSize: pageSize,
		logger:   logger,
	}
}

// RegisterRoutes mounts the view API under /api/v1.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.ListOrders)
	r.Get("/pending", h.Pending)
	r.Post("/orders/{id}/advance", h.Advance)
	r.Post("/orders/{id}/slip", h.Slip)
	r.Get("/prefs", h.GetPrefs)
	r.Put("/prefs", h.PutPrefs)
	r.Get("/export.xlsx", h.Export)
	r.Get("/meta", h.Meta)
}

// viewRow is one rendered order row with the derived display fields.
type viewRow struct {
	models.OrderRecord
	State   models.LifecycleState `json:"state"`
	Summary string                `json:"summary"`
}

type ordersData struct {
	Rows   []viewRow `json:"rows"`
	Total  int       `json:"total"`
	Offset int       `json:"offset"`
	Limit  int       `json:"limit"`
}

// ListOrders serves the filtered, paged view. Paging is cumulative:
// the response holds the first offset+limit rows.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("mode")
	if mode != "" && mode != cache.ModePending && mode != cache.ModeAll {
		writeErr(w, http.StatusBadRequest, "mode must be pending or all")
		return
	}
	offset := parseInt(q.Get("offset"), 0)
	limit := parseInt(q.Get("limit"), h.pageSize)

	filtered := h.orders.Filter(mode, q.Get("q"))
	page := cache.Page(filtered, offset, limit)

	rows := make([]viewRow, len(page))
	for i := range page {
		rows[i] = viewRow{
			OrderRecord: page[i],
			State:       page[i].State(),
			Summary:     models.Summarize(&page[i]),
		}
	}
	writeOK(w, ordersData{Rows: rows, Total: len(filtered), Offset: offset, Limit: limit})
}

// Pending serves the badge count.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]int{"pendingCount": h.badge.Badge()})
}

type advanceRequest struct {
	Step     int    `json:"step"`
	Passcode string `json:"passcode"`
}

type advanceData struct {
	Status string `json:"status"`
	Warn   string `json:"warn,omitempty"`
}

// Advance posts one passcode-gated step transition.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.orch.AdvanceStep(r.Context(), id, models.Step(req.Step), req.Passcode)
	if err != nil {
		h.writeActionErr(w, err)
		return
	}
	writeOK(w, advanceData{Status: res.Status, Warn: res.Warn})
}

// Slip streams the generated PDF slip. Slips need no passcode.
func (h *Handler) Slip(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	slip, err := h.orch.DownloadSlip(r.Context(), id)
	if err != nil {
		h.writeActionErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", slip.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(slip.PDF)
}

func (h *Handler) GetPrefs(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.prefs.Get(r.Context()))
}

func (h *Handler) PutPrefs(w http.ResponseWriter, r *http.Request) {
	var p prefs.Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid preferences body")
		return
	}
	if err := h.prefs.Put(r.Context(), p); err != nil {
		h.logger.Error("Failed to persist preferences", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	writeOK(w, h.prefs.Get(r.Context()))
}

// Export streams the current filtered view as an Excel workbook.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows := h.orders.Filter(q.Get("mode"), q.Get("q"))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="meal-orders.xlsx"`)
	if err := export.WriteOrders(w, rows); err != nil {
		h.logger.Error("Excel export failed", zap.Error(err))
	}
}

// Meta serves the branding/config surface the front-end reads once.
func (h *Handler) Meta(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{
		"brandTitle": h.brand,
		"pageSize":   h.pageSize,
	})
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	n, ok := models.ParseCount(chi.URLParam(r, "id"))
	if !ok || n <= 0 {
		writeErr(w, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return int64(n), true
}

// writeActionErr maps orchestrator failures onto the envelope:
// user mistakes are 4xx with the message, upstream trouble is 502.
func (h *Handler) writeActionErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, action.ErrEmptyPasscode), errors.Is(err, action.ErrInvalidStep):
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			writeErr(w, http.StatusUnprocessableEntity, apiErr.Message)
			return
		}
		h.logger.Error("Upstream action failed", zap.Error(err))
		writeErr(w, http.StatusBadGateway, "upstream API unavailable")
	}
}
