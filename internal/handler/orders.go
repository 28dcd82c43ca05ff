package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/storelane/api/internal/database"
	"github.com/storelane/api/internal/middleware"
	"github.com/storelane/api/internal/service"
	"github.com/storelane/api/internal/ws"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	BuildOrderFilter(ctx context.Context, q service.OrderQuery) (bson.M, error)
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*database.Order, error)
	ApplyOrderUpdate(ctx context.Context, id primitive.ObjectID, patch service.UpdateOrderRequest) (*database.Order, error)
}

// OrderStore defines the database methods needed by order read/delete
// handlers. Satisfied by *database.Store; narrow interface for testability.
type OrderStore interface {
	ListOrders(ctx context.Context, filter bson.M, limit, skip int64) ([]database.Order, error)
	GetOrder(ctx context.Context, id primitive.ObjectID) (database.Order, error)
	DeleteOrder(ctx context.Context, id primitive.ObjectID) error
	ListOrderDetailsByOrder(ctx context.Context, orderID primitive.ObjectID) ([]database.OrderDetail, error)
}

// Broadcaster pushes order lifecycle events to connected staff clients.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router. The
// paginate middleware validates limit/startIndex for the list endpoint.
func (h *OrderHandler) RegisterRoutes(r chi.Router, paginate func(http.Handler) http.Handler) {
	r.With(paginate).Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/details", h.ListDetails)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerID   string               `json:"customerId" validate:"required,len=24,hexadecimal"`
	EmployeeID   string               `json:"employeeId" validate:"required,len=24,hexadecimal"`
	OrderDetails []orderDetailRequest `json:"orderDetails" validate:"required,min=1,dive"`
}

type orderDetailRequest struct {
	ProductID string `json:"productId" validate:"required,len=24,hexadecimal"`
	Quantity  int32  `json:"quantity" validate:"required,gt=0"`
}

type updateOrderRequest struct {
	CustomerID         *string              `json:"customerId" validate:"omitempty,len=24,hexadecimal"`
	EmployeeID         *string              `json:"employeeId" validate:"omitempty,len=24,hexadecimal"`
	OrderDate          *string              `json:"orderDate"`
	Status             *string              `json:"status"`
	Total              *string              `json:"total"`
	DeleteOrderDetails []string             `json:"deleteOrderDetails" validate:"omitempty,dive,len=24,hexadecimal"`
	NewOrderDetails    []orderDetailRequest `json:"newOrderDetails" validate:"omitempty,dive"`
}

type orderResponse struct {
	ID           primitive.ObjectID   `json:"id"`
	CustomerID   primitive.ObjectID   `json:"customerId"`
	EmployeeID   primitive.ObjectID   `json:"employeeId"`
	OrderDate    time.Time            `json:"orderDate"`
	Status       string               `json:"status"`
	OrderDetails []primitive.ObjectID `json:"orderDetails"`
	Total        string               `json:"total"`
}

type orderListResponse struct {
	Results []orderResponse `json:"results"`
	Success bool            `json:"success"`
}

type orderGetResponse struct {
	Order   orderResponse `json:"order"`
	Success bool          `json:"success"`
}

type orderDetailResponse struct {
	ID        primitive.ObjectID `json:"id"`
	OrderID   primitive.ObjectID `json:"orderId"`
	ProductID primitive.ObjectID `json:"productId"`
	Quantity  int32              `json:"quantity"`
	SellPrice string             `json:"sellPrice"`
}

type orderDetailListResponse struct {
	Results []orderDetailResponse `json:"results"`
	Success bool                  `json:"success"`
}

type orderMsgResponse struct {
	Msg   string        `json:"msg"`
	Order orderResponse `json:"order"`
}

func toOrderResponse(o database.Order) orderResponse {
	details := o.OrderDetails
	if details == nil {
		details = []primitive.ObjectID{}
	}
	return orderResponse{
		ID:           o.ID,
		CustomerID:   o.CustomerID,
		EmployeeID:   o.EmployeeID,
		OrderDate:    o.OrderDate,
		Status:       o.Status,
		OrderDetails: details,
		Total:        decimal128ToString(o.Total),
	}
}

// --- Handlers ---

// List handles GET /orders. Filter parameters compose with AND; pagination
// comes from the validated Page in context.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := h.svc.BuildOrderFilter(r.Context(), service.OrderQuery{
		CustomerName:    q.Get("customerName"),
		EmployeeName:    q.Get("employeeName"),
		OrderDate:       q.Get("orderDate"),
		OrderBeforeDate: q.Get("orderBeforeDate"),
		OrderAfterDate:  q.Get("orderAfterDate"),
		Status:          q.Get("status"),
	})
	if err != nil {
		var dateErr *service.InvalidDateError
		if errors.As(err, &dateErr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": dateErr.Error()})
			return
		}
		log.Printf("ERROR: build order filter: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	page := middleware.PageFromContext(r.Context())
	orders, err := h.store.ListOrders(r.Context(), filter, page.Limit, page.Skip)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	results := make([]orderResponse, len(orders))
	for i, o := range orders {
		results[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{Results: results, Success: true})
}

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	details := make([]service.NewOrderDetailRequest, len(req.OrderDetails))
	for i, d := range req.OrderDetails {
		details[i] = service.NewOrderDetailRequest{ProductID: d.ProductID, Quantity: d.Quantity}
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CustomerID:   req.CustomerID,
		EmployeeID:   req.EmployeeID,
		OrderDetails: details,
	})
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Product not found."})
			return
		}
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(*order)
	h.broadcast("order.created", resp)
	writeJSON(w, http.StatusOK, orderMsgResponse{Msg: "Order added", Order: resp})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid order id"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "Order not found", "success": false})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, orderGetResponse{Order: toOrderResponse(order), Success: true})
}

// ListDetails handles GET /orders/{id}/details. The back office renders line
// items from here; the order document itself carries only detail ids.
func (h *OrderHandler) ListDetails(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid order id"})
		return
	}

	if _, err := h.store.GetOrder(r.Context(), id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	details, err := h.store.ListOrderDetailsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order details: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	results := make([]orderDetailResponse, len(details))
	for i, d := range details {
		results[i] = orderDetailResponse{
			ID:        d.ID,
			OrderID:   d.OrderID,
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
			SellPrice: decimal128ToString(d.SellPrice),
		}
	}

	writeJSON(w, http.StatusOK, orderDetailListResponse{Results: results, Success: true})
}

// Update handles PATCH /orders/{id}. Generally used to update the status;
// header fields and incremental line-item changes go through the same body.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid order id"})
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	newDetails := make([]service.NewOrderDetailRequest, len(req.NewOrderDetails))
	for i, d := range req.NewOrderDetails {
		newDetails[i] = service.NewOrderDetailRequest{ProductID: d.ProductID, Quantity: d.Quantity}
	}

	order, err := h.svc.ApplyOrderUpdate(r.Context(), id, service.UpdateOrderRequest{
		CustomerID:         req.CustomerID,
		EmployeeID:         req.EmployeeID,
		OrderDate:          req.OrderDate,
		Status:             req.Status,
		Total:              req.Total,
		DeleteOrderDetails: req.DeleteOrderDetails,
		NewOrderDetails:    newDetails,
	})
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Order not found"})
			return
		}
		var dateErr *service.InvalidDateError
		if errors.As(err, &dateErr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": dateErr.Error()})
			return
		}
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: update order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(*order)
	h.broadcast("order.updated", resp)
	writeJSON(w, http.StatusOK, orderMsgResponse{Msg: "Order updated", Order: resp})
}

// Delete handles DELETE /orders/{id}. Cascades the order's line-item
// documents.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid order id"})
		return
	}

	if err := h.store.DeleteOrder(r.Context(), id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Order not found"})
			return
		}
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast("order.deleted", map[string]string{"id": id.Hex()})
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Order deleted"})
}

// --- Helpers ---

func (h *OrderHandler) broadcast(eventType string, payload interface{}) {
	if h.hub == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.hub.Broadcast(ws.Event{Type: eventType, Payload: raw})
}

// isOrderValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyOrderDetails) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidCustomerID) ||
		errors.Is(err, service.ErrInvalidEmployeeID) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrInvalidOrderDetailID) ||
		errors.Is(err, service.ErrInvalidTotal)
}

func decimal128ToString(n primitive.Decimal128) string {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
