package tables

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pos-sync/internal/livesync"
	"pos-sync/internal/logger"
	"pos-sync/internal/models"
	"pos-sync/internal/sse"
	"pos-sync/internal/utils"
)

// StreamFloor is the SSE stream name for the floor plan.
const StreamFloor = "floor"

// FloorTable is the floor-plan view of a table: the record with its derived
// status plus the open order bound to it, when one exists.
type FloorTable struct {
	models.Table
	OrderID       string  `json:"orderId,omitempty"`
	OrderStatus   string  `json:"orderStatus,omitempty"`
	OrderTotal    float64 `json:"orderTotal,omitempty"`
	PaymentStatus string  `json:"paymentStatus,omitempty"`
}

// FloorPlan builds the render-ready table set for the floor view.
func FloorPlan(tbls []models.Table, orders []models.Order) []FloorTable {
	out := make([]FloorTable, 0, len(tbls))
	for _, tbl := range ApplyDerived(tbls, orders) {
		ft := FloorTable{Table: tbl}
		if o, ok := OpenOrderFor(tbl.ID, orders); ok {
			ft.OrderID = o.ID
			ft.OrderStatus = o.Status
			ft.OrderTotal = o.Total
			ft.PaymentStatus = o.PaymentStatus
		}
		out = append(out, ft)
	}
	return out
}

// Handler serves the floor plan view and its SSE stream.
type Handler struct {
	Store   *livesync.Store
	Emitter *sse.Emitter
	Log     *logger.Logger
}

// Routes mounts the floor endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/plan", h.GetPlan)
	r.Get("/events", h.StreamEvents)
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	snap := h.Store.Snapshot()
	writeJSON(w, http.StatusOK, utils.SuccessResponse("floor plan", FloorPlan(snap.Tables, snap.Orders)))
}

// StreamEvents hangs an SSE connection on the floor stream: a full derived
// floor plan on every cache change.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := h.Emitter.Subscribe(r.Context(), StreamFloor)
	h.Log.Info("SSE", fmt.Sprintf("floor client connected (%d active)", h.Emitter.ClientCount(StreamFloor)))

	for msg := range events {
		data, err := json.Marshal(msg.Data)
		if err != nil {
			h.Log.Warn("SSE", fmt.Sprintf("drop unencodable %s event: %v", msg.Event, err))
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, data)
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
