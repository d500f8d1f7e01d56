package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-sync/internal/api"
	"pos-sync/internal/lifecycle"
	"pos-sync/internal/livesync"
	"pos-sync/internal/logger"
	"pos-sync/internal/models"
)

// echoAPI stands in for the order-service: it accepts everything, assigns IDs
// and echoes the patch back merged onto the cached record.
type echoAPI struct {
	store     *livesync.Store
	nextID    string
	rejectAll bool
}

func (e *echoAPI) CreateOrder(ctx context.Context, order models.Order) (*models.Order, error) {
	if e.rejectAll {
		return nil, errors.New("rejected")
	}
	order.ID = e.nextID
	return &order, nil
}

func (e *echoAPI) UpdateOrder(ctx context.Context, id string, patch map[string]any) (*models.Order, error) {
	if e.rejectAll {
		return nil, errors.New("rejected")
	}
	current, ok := e.store.OrderByID(id)
	if !ok {
		return nil, errors.New("not found")
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	merged, err := models.MergeOrderPatch(current, raw)
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

func (e *echoAPI) UpdateTable(ctx context.Context, id string, patch map[string]any) (*models.Table, error) {
	if e.rejectAll {
		return nil, errors.New("rejected")
	}
	current, ok := e.store.TableByID(id)
	if !ok {
		return nil, errors.New("not found")
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	merged, err := models.MergeTablePatch(current, raw)
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

func newTestServer(t *testing.T, store *livesync.Store, backend *echoAPI) *httptest.Server {
	t.Helper()
	log := logger.NewLogger("test")
	handler := &api.Handler{
		Store:   store,
		Actions: lifecycle.NewActions(store, backend, log, 0.10),
		Log:     log,
	}
	r := chi.NewRouter()
	r.Route("/api", handler.Routes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type stateBody struct {
	Success bool `json:"success"`
	Data    struct {
		Orders []models.Order `json:"orders"`
		Tables []models.Table `json:"tables"`
	} `json:"data"`
}

func getState(t *testing.T, srv *httptest.Server) stateBody {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body stateBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// A dine-in order walks its full life: creation occupies the table, every
// advance sticks, completion frees the table again.
func TestOrderLifecycleOverHTTP(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceTables([]models.Table{{ID: "tbl-1", Number: 1, Status: models.TableAvailable}})
	backend := &echoAPI{store: store, nextID: "ord-1"}
	srv := newTestServer(t, store, backend)

	draft := `{"items":[{"id":"item-1","name":"Bibimbap","price":15,"quantity":1}],"tableId":"tbl-1","cashierName":"dana"}`
	resp, err := http.Post(srv.URL+"/api/orders", "application/json", strings.NewReader(draft))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	state := getState(t, srv)
	require.Len(t, state.Data.Orders, 1)
	assert.Equal(t, models.StatusNew, state.Data.Orders[0].Status)
	assert.Equal(t, models.TableOccupied, state.Data.Tables[0].Status)

	client := srv.Client()
	for _, status := range []string{"preparing", "ready", "completed"} {
		req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/orders/ord-1/status",
			strings.NewReader(`{"status":"`+status+`"}`))
		res, err := client.Do(req)
		require.NoError(t, err)
		res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode, "advance to %s", status)
	}

	state = getState(t, srv)
	assert.Equal(t, models.StatusCompleted, state.Data.Orders[0].Status)
	assert.Equal(t, models.TableAvailable, state.Data.Tables[0].Status,
		"completing the order must free its table")
}

func TestInvalidAdvanceReturnsConflict(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceOrders([]models.Order{{ID: "ord-1", Status: models.StatusNew, CreatedAt: time.Now()}})
	srv := newTestServer(t, store, &echoAPI{store: store})

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/orders/ord-1/status",
		strings.NewReader(`{"status":"completed"}`))
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Cache untouched.
	state := getState(t, srv)
	assert.Equal(t, models.StatusNew, state.Data.Orders[0].Status)
}

func TestRejectedMutationRollsBackAndReturnsBadGateway(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceOrders([]models.Order{{ID: "ord-1", Status: models.StatusNew, CreatedAt: time.Now()}})
	srv := newTestServer(t, store, &echoAPI{store: store, rejectAll: true})

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/orders/ord-1/status",
		strings.NewReader(`{"status":"preparing"}`))
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	state := getState(t, srv)
	assert.Equal(t, models.StatusNew, state.Data.Orders[0].Status)
}

func TestUnknownOrderReturnsNotFound(t *testing.T) {
	store := livesync.NewStore()
	srv := newTestServer(t, store, &echoAPI{store: store})

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/orders/ghost/status",
		strings.NewReader(`{"status":"preparing"}`))
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCloseUnpaidOrderReturnsConflict(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceOrders([]models.Order{{
		ID: "ord-1", Status: models.StatusReady,
		PaymentStatus: models.PaymentUnpaid, CreatedAt: time.Now(),
	}})
	srv := newTestServer(t, store, &echoAPI{store: store})

	resp, err := http.Post(srv.URL+"/api/orders/ord-1/close", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
