package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pos-sync/internal/lifecycle"
	"pos-sync/internal/livesync"
	"pos-sync/internal/logger"
	"pos-sync/internal/tables"
	"pos-sync/internal/utils"
)

// Handler exposes the cached state and the mutation entry points of one
// client surface over HTTP.
type Handler struct {
	Store   *livesync.Store
	Sync    *livesync.Client
	Actions *lifecycle.Actions
	Log     *logger.Logger
}

// StateResponse is the render-ready view of the caches. Table statuses are
// the locally derived ones, not the raw cached values.
type StateResponse struct {
	Orders    any  `json:"orders"`
	Tables    any  `json:"tables"`
	Connected bool `json:"connected"`
}

// Routes mounts the shared surface endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/state", h.GetState)
	r.Post("/refresh", h.Refresh)
	r.Post("/orders", h.CreateOrder)
	r.Patch("/orders/{orderID}", h.UpdateDraft)
	r.Patch("/orders/{orderID}/status", h.AdvanceOrder)
	r.Patch("/orders/{orderID}/items/{itemID}", h.SetItemReady)
	r.Post("/orders/{orderID}/table", h.BindTable)
	r.Post("/orders/{orderID}/payment", h.SetPaymentStatus)
	r.Post("/orders/{orderID}/close", h.CloseOrder)
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	snap := h.Store.Snapshot()
	resp := StateResponse{
		Orders:    snap.Orders,
		Tables:    tables.ApplyDerived(snap.Tables, snap.Orders),
		Connected: h.Sync != nil && h.Sync.Connected(),
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("current state", resp))
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Sync.Refresh(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, utils.ErrorResponse("refresh failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("refreshed", nil))
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var draft lifecycle.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid draft", err.Error()))
		return
	}

	order, err := h.Actions.CreateOrder(r.Context(), draft)
	if err != nil {
		h.writeActionError(w, "create order failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, utils.SuccessResponse("order created", order))
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var draft lifecycle.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid draft", err.Error()))
		return
	}

	order, err := h.Actions.UpdateDraft(r.Context(), orderID, draft)
	if err != nil {
		h.writeActionError(w, "order update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("order updated", order))
}

func (h *Handler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request", err.Error()))
		return
	}

	order, err := h.Actions.Advance(r.Context(), orderID, body.Status)
	if err != nil {
		h.writeActionError(w, "status change failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("status updated", order))
}

func (h *Handler) SetItemReady(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	itemID := chi.URLParam(r, "itemID")

	var body struct {
		IsReady bool `json:"isReady"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request", err.Error()))
		return
	}

	order, err := h.Actions.SetItemReady(r.Context(), orderID, itemID, body.IsReady)
	if err != nil {
		h.writeActionError(w, "item update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("item updated", order))
}

func (h *Handler) BindTable(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var body struct {
		TableID string `json:"tableId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request", err.Error()))
		return
	}

	order, err := h.Actions.BindTable(r.Context(), orderID, body.TableID)
	if err != nil {
		h.writeActionError(w, "table binding failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("table bound", order))
}

func (h *Handler) SetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var body struct {
		PaymentStatus string `json:"paymentStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request", err.Error()))
		return
	}

	order, err := h.Actions.SetPaymentStatus(r.Context(), orderID, body.PaymentStatus)
	if err != nil {
		h.writeActionError(w, "payment update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("payment updated", order))
}

func (h *Handler) CloseOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.Actions.CloseOrder(r.Context(), orderID)
	if err != nil {
		h.writeActionError(w, "close failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("order closed", order))
}

func (h *Handler) writeActionError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, livesync.ErrOrderNotFound), errors.Is(err, livesync.ErrTableNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrOrderCompleted),
		errors.Is(err, lifecycle.ErrPaymentDue),
		errors.Is(err, lifecycle.ErrItemNotFound):
		status = http.StatusConflict
	}
	h.Log.Warn("API", msg+": "+err.Error())
	writeJSON(w, status, utils.ErrorResponse(msg, err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
