package kitchen

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pos-sync/internal/livesync"
	"pos-sync/internal/logger"
	"pos-sync/internal/models"
	"pos-sync/internal/sse"
	"pos-sync/internal/utils"
)

// Ticket is the kitchen-facing view of an order: the record plus its derived
// urgency tier and item progress.
type Ticket struct {
	models.Order
	Urgency    Tier `json:"urgency"`
	ReadyCount int  `json:"readyCount"`
	TotalItems int  `json:"totalItems"`
}

// Tickets derives the kitchen display feed: held orders are parked off the
// board and completed ones are gone, everything else is classified and
// annotated with progress.
func Tickets(orders []models.Order, now time.Time) []Ticket {
	out := make([]Ticket, 0, len(orders))
	for _, o := range orders {
		if o.Status == models.StatusHeld || models.IsTerminal(o.Status) {
			continue
		}
		ready := 0
		for _, it := range o.Items {
			if it.IsReady {
				ready++
			}
		}
		out = append(out, Ticket{
			Order:      o,
			Urgency:    Classify(o, now),
			ReadyCount: ready,
			TotalItems: len(o.Items),
		})
	}
	return out
}

// Stream names on the kitchen SSE channel.
const (
	StreamKitchen = "kitchen"
)

// Handler serves the kitchen display views and its SSE stream.
type Handler struct {
	Store   *livesync.Store
	Emitter *sse.Emitter
	Log     *logger.Logger
}

// Routes mounts the kitchen endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/tickets", h.GetTickets)
	r.Get("/mise-en-place", h.GetMiseEnPlace)
	r.Get("/events", h.StreamEvents)
}

func (h *Handler) GetTickets(w http.ResponseWriter, r *http.Request) {
	snap := h.Store.Snapshot()
	writeJSON(w, http.StatusOK, utils.SuccessResponse("kitchen tickets", Tickets(snap.Orders, time.Now())))
}

func (h *Handler) GetMiseEnPlace(w http.ResponseWriter, r *http.Request) {
	snap := h.Store.Snapshot()
	writeJSON(w, http.StatusOK, utils.SuccessResponse("mise en place", Ranked(Aggregate(snap.Orders))))
}

// StreamEvents hangs an SSE connection on the kitchen stream: ticket
// snapshots on every cache change and urgency tick, plus one-shot new-order
// alerts the front-end turns into sound and toast.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := h.Emitter.Subscribe(r.Context(), StreamKitchen)
	h.Log.Info("SSE", fmt.Sprintf("kitchen client connected (%d active)", h.Emitter.ClientCount(StreamKitchen)))

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
