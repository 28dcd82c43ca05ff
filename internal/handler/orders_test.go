package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/storelane/api/internal/database"
	"github.com/storelane/api/internal/enum"
	"github.com/storelane/api/internal/handler"
	mw "github.com/storelane/api/internal/middleware"
	"github.com/storelane/api/internal/service"
	"github.com/storelane/api/internal/ws"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// --- Mocks ---

type mockOrderService struct {
	filterErr error
	gotQuery  service.OrderQuery

	created   *database.Order
	createErr error

	updated   *database.Order
	updateErr error
	gotPatch  service.UpdateOrderRequest
}

func (m *mockOrderService) BuildOrderFilter(_ context.Context, q service.OrderQuery) (bson.M, error) {
	m.gotQuery = q
	if m.filterErr != nil {
		return nil, m.filterErr
	}
	return bson.M{}, nil
}

func (m *mockOrderService) CreateOrder(_ context.Context, _ service.CreateOrderRequest) (*database.Order, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.created, nil
}

func (m *mockOrderService) ApplyOrderUpdate(_ context.Context, _ primitive.ObjectID, patch service.UpdateOrderRequest) (*database.Order, error) {
	m.gotPatch = patch
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.updated, nil
}

type mockOrderReadStore struct {
	orders  map[primitive.ObjectID]database.Order
	details map[primitive.ObjectID]database.OrderDetail
}

func newMockOrderReadStore() *mockOrderReadStore {
	return &mockOrderReadStore{
		orders:  make(map[primitive.ObjectID]database.Order),
		details: make(map[primitive.ObjectID]database.OrderDetail),
	}
}

func (m *mockOrderReadStore) ListOrders(_ context.Context, _ bson.M, _, _ int64) ([]database.Order, error) {
	result := []database.Order{}
	for _, o := range m.orders {
		result = append(result, o)
	}
	return result, nil
}

func (m *mockOrderReadStore) GetOrder(_ context.Context, id primitive.ObjectID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, mongo.ErrNoDocuments
	}
	return o, nil
}

func (m *mockOrderReadStore) DeleteOrder(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.orders[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(m.orders, id)
	return nil
}

func (m *mockOrderReadStore) ListOrderDetailsByOrder(_ context.Context, orderID primitive.ObjectID) ([]database.OrderDetail, error) {
	result := []database.OrderDetail{}
	for _, d := range m.details {
		if d.OrderID == orderID {
			result = append(result, d)
		}
	}
	return result, nil
}

func (m *mockOrderReadStore) count(_ context.Context) (int64, error) {
	return int64(len(m.orders)), nil
}

type mockBroadcaster struct {
	events []ws.Event
}

func (m *mockBroadcaster) Broadcast(event ws.Event) {
	m.events = append(m.events, event)
}

func newOrderRouter(svc handler.OrderServicer, store *mockOrderReadStore, hub handler.Broadcaster) chi.Router {
	h := handler.NewOrderHandler(svc, store, hub)
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		h.RegisterRoutes(r, mw.ValidatePagination(store.count))
	})
	return r
}

func testOrder() database.Order {
	total, _ := primitive.ParseDecimal128("0")
	return database.Order{
		ID:           primitive.NewObjectID(),
		CustomerID:   primitive.NewObjectID(),
		EmployeeID:   primitive.NewObjectID(),
		OrderDate:    time.Now(),
		Status:       enum.OrderStatusPending,
		OrderDetails: []primitive.ObjectID{},
		Total:        total,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return body
}

// --- List ---

func TestListOrders(t *testing.T) {
	store := newMockOrderReadStore()
	o := testOrder()
	store.orders[o.ID] = o

	svc := &mockOrderService{}
	r := newOrderRouter(svc, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/orders?customerName=ann&status=Pending", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Error("success != true")
	}
	results, ok := body["results"].([]interface{})
	if !ok || len(results) != 1 {
		t.Errorf("results = %v, want 1 order", body["results"])
	}

	if svc.gotQuery.CustomerName != "ann" || svc.gotQuery.Status != "Pending" {
		t.Errorf("filter query = %+v, want customerName=ann status=Pending", svc.gotQuery)
	}
}

func TestListOrdersInvalidDate(t *testing.T) {
	svc := &mockOrderService{filterErr: &service.InvalidDateError{Field: "orderAfterDate"}}
	r := newOrderRouter(svc, newMockOrderReadStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/orders?orderAfterDate=31-02-2024", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Invalid orderAfterDate format. Accepted format: DD/MM/YYYY" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestListOrdersInvalidPagination(t *testing.T) {
	r := newOrderRouter(&mockOrderService{}, newMockOrderReadStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/orders?limit=abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- Create ---

func TestCreateOrder(t *testing.T) {
	o := testOrder()
	svc := &mockOrderService{created: &o}
	hub := &mockBroadcaster{}
	r := newOrderRouter(svc, newMockOrderReadStore(), hub)

	payload := map[string]interface{}{
		"customerId": o.CustomerID.Hex(),
		"employeeId": o.EmployeeID.Hex(),
		"orderDetails": []map[string]interface{}{
			{"productId": primitive.NewObjectID().Hex(), "quantity": 2},
		},
	}
	raw, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["msg"] != "Order added" {
		t.Errorf("msg = %q, want 'Order added'", body["msg"])
	}
	if len(hub.events) != 1 || hub.events[0].Type != "order.created" {
		t.Errorf("broadcasts = %v, want one order.created", hub.events)
	}
}

func TestCreateOrderProductNotFound(t *testing.T) {
	svc := &mockOrderService{createErr: service.ErrProductNotFound}
	r := newOrderRouter(svc, newMockOrderReadStore(), nil)

	payload := map[string]interface{}{
		"customerId": primitive.NewObjectID().Hex(),
		"employeeId": primitive.NewObjectID().Hex(),
		"orderDetails": []map[string]interface{}{
			{"productId": primitive.NewObjectID().Hex(), "quantity": 1},
		},
	}
	raw, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Product not found." {
		t.Errorf("error = %q, want 'Product not found.'", body["error"])
	}
}

func TestCreateOrderRejectsBadBody(t *testing.T) {
	r := newOrderRouter(&mockOrderService{}, newMockOrderReadStore(), nil)

	// Missing customerId and an invalid quantity.
	payload := map[string]interface{}{
		"employeeId": primitive.NewObjectID().Hex(),
		"orderDetails": []map[string]interface{}{
			{"productId": primitive.NewObjectID().Hex(), "quantity": 0},
		},
	}
	raw, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- Get ---

func TestGetOrder(t *testing.T) {
	store := newMockOrderReadStore()
	o := testOrder()
	store.orders[o.ID] = o
	r := newOrderRouter(&mockOrderService{}, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+o.ID.Hex(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Error("success != true")
	}
	order, ok := body["order"].(map[string]interface{})
	if !ok || order["id"] != o.ID.Hex() {
		t.Errorf("order = %v, want id %s", body["order"], o.ID.Hex())
	}
}

func TestGetOrderNotFound(t *testing.T) {
	r := newOrderRouter(&mockOrderService{}, newMockOrderReadStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+primitive.NewObjectID().Hex(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Order not found" || body["success"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestGetOrderInvalidID(t *testing.T) {
	r := newOrderRouter(&mockOrderService{}, newMockOrderReadStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/orders/not-an-id", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Invalid order id" {
		t.Errorf("error = %q, want 'Invalid order id'", body["error"])
	}
}

func TestListOrderDetails(t *testing.T) {
	store := newMockOrderReadStore()
	o := testOrder()
	store.orders[o.ID] = o

	price, _ := primitive.ParseDecimal128("4.95")
	d := database.OrderDetail{
		ID:        primitive.NewObjectID(),
		OrderID:   o.ID,
		ProductID: primitive.NewObjectID(),
		Quantity:  3,
		SellPrice: price,
	}
	store.details[d.ID] = d
	// A detail belonging to another order stays out of the listing.
	other := database.OrderDetail{
		ID:        primitive.NewObjectID(),
		OrderID:   primitive.NewObjectID(),
		ProductID: primitive.NewObjectID(),
		Quantity:  1,
		SellPrice: price,
	}
	store.details[other.ID] = other

	r := newOrderRouter(&mockOrderService{}, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+o.ID.Hex()+"/details", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Results []struct {
			ID        string `json:"id"`
			Quantity  int32  `json:"quantity"`
			SellPrice string `json:"sellPrice"`
		} `json:"results"`
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || len(body.Results) != 1 {
		t.Fatalf("body = %+v, want 1 detail", body)
	}
	if body.Results[0].ID != d.ID.Hex() || body.Results[0].Quantity != 3 || body.Results[0].SellPrice != "4.95" {
		t.Errorf("detail = %+v", body.Results[0])
	}
}

func TestListOrderDetailsUnknownOrder(t *testing.T) {
	r := newOrderRouter(&mockOrderService{}, newMockOrderReadStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+primitive.NewObjectID().Hex()+"/details", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// --- Update ---

func TestUpdateOrder(t *testing.T) {
	o := testOrder()
	o.Status = enum.OrderStatusShipped
	svc := &mockOrderService{updated: &o}
	hub := &mockBroadcaster{}
	r := newOrderRouter(svc, newMockOrderReadStore(), hub)

	payload := map[string]interface{}{
		"status":             "Shipped",
		"deleteOrderDetails": []string{primitive.NewObjectID().Hex()},
		"newOrderDetails": []map[string]interface{}{
			{"productId": primitive.NewObjectID().Hex(), "quantity": 2},
		},
	}
	raw, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPatch, "/orders/"+o.ID.Hex(), bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["msg"] != "Order updated" {
		t.Errorf("msg = %q, want 'Order updated'", body["msg"])
	}
	if svc.gotPatch.Status == nil || *svc.gotPatch.Status != "Shipped" {
		t.Errorf("patch status = %v, want Shipped", svc.gotPatch.Status)
	}
	if len(svc.gotPatch.DeleteOrderDetails) != 1 || len(svc.gotPatch.NewOrderDetails) != 1 {
		t.Errorf("patch details = %+v", svc.gotPatch)
	}
	if len(hub.events) != 1 || hub.events[0].Type != "order.updated" {
		t.Errorf("broadcasts = %v, want one order.updated", hub.events)
	}
}

func TestUpdateOrderNotFound(t *testing.T) {
	svc := &mockOrderService{updateErr: service.ErrOrderNotFound}
	r := newOrderRouter(svc, newMockOrderReadStore(), nil)

	raw, _ := json.Marshal(map[string]string{"status": "Shipped"})
	req := httptest.NewRequest(http.MethodPatch, "/orders/"+primitive.NewObjectID().Hex(), bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Order not found" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestUpdateOrderBadDate(t *testing.T) {
	svc := &mockOrderService{updateErr: &service.InvalidDateError{Field: "orderDate"}}
	r := newOrderRouter(svc, newMockOrderReadStore(), nil)

	raw, _ := json.Marshal(map[string]string{"orderDate": "2024-01-01"})
	req := httptest.NewRequest(http.MethodPatch, "/orders/"+primitive.NewObjectID().Hex(), bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Invalid orderDate format. Accepted format: DD/MM/YYYY" {
		t.Errorf("error = %q", body["error"])
	}
}

// --- Delete ---

func TestDeleteOrderThenGet(t *testing.T) {
	store := newMockOrderReadStore()
	o := testOrder()
	store.orders[o.ID] = o
	hub := &mockBroadcaster{}
	r := newOrderRouter(&mockOrderService{}, store, hub)

	req := httptest.NewRequest(http.MethodDelete, "/orders/"+o.ID.Hex(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["msg"] != "Order deleted" {
		t.Errorf("msg = %q, want 'Order deleted'", body["msg"])
	}
	if len(hub.events) != 1 || hub.events[0].Type != "order.deleted" {
		t.Errorf("broadcasts = %v, want one order.deleted", hub.events)
	}

	// The deleted order is gone for subsequent reads.
	req = httptest.NewRequest(http.MethodGet, "/orders/"+o.ID.Hex(), nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status = %d, want 404", rec.Code)
	}
}

func TestDeleteOrderNotFound(t *testing.T) {
	r := newOrderRouter(&mockOrderService{}, newMockOrderReadStore(), nil)

	req := httptest.NewRequest(http.MethodDelete, "/orders/"+primitive.NewObjectID().Hex(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Order not found" {
		t.Errorf("error = %q", body["error"])
	}
}
