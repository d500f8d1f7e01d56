package collab

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pos-sync/internal/logger"
	"pos-sync/internal/models"
	"pos-sync/internal/utils"
)

// Handler exposes the order-service REST surface the client terminals poll
// and mutate against.
type Handler struct {
	Service *Service
	Log     *logger.Logger
}

// Routes mounts the order-service endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{orderID}", h.GetOrder)
		r.Patch("/{orderID}", h.UpdateOrder)
		r.Delete("/{orderID}", h.DeleteOrder)
	})
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", h.ListTables)
		r.Get("/{tableID}", h.GetTable)
		r.Patch("/{tableID}", h.UpdateTable)
	})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Service.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, "failed to list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("orders retrieved", orders))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Service.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, "order lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("order retrieved", order))
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid order", err.Error()))
		return
	}

	created, err := h.Service.CreateOrder(r.Context(), order)
	if err != nil {
		h.writeError(w, "order creation failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, utils.SuccessResponse("order created", created))
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	patch, err := io.ReadAll(r.Body)
	if err != nil || len(patch) == 0 {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid patch", "empty or unreadable body"))
		return
	}

	order, err := h.Service.UpdateOrder(r.Context(), chi.URLParam(r, "orderID"), patch)
	if err != nil {
		h.writeError(w, "order update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("order updated", order))
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteOrder(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		h.writeError(w, "order deletion failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("order deleted", nil))
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tbls, err := h.Service.ListTables(r.Context())
	if err != nil {
		h.writeError(w, "failed to list tables", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("tables retrieved", tbls))
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	tbl, err := h.Service.GetTable(r.Context(), chi.URLParam(r, "tableID"))
	if err != nil {
		h.writeError(w, "table lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("table retrieved", tbl))
}

func (h *Handler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	patch, err := io.ReadAll(r.Body)
	if err != nil || len(patch) == 0 {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid patch", "empty or unreadable body"))
		return
	}

	tbl, err := h.Service.UpdateTable(r.Context(), chi.URLParam(r, "tableID"), patch)
	if err != nil {
		h.writeError(w, "table update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("table updated", tbl))
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrTableBusy):
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
