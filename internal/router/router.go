package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/storelane/api/internal/config"
	"github.com/storelane/api/internal/database"
	"github.com/storelane/api/internal/enum"
	"github.com/storelane/api/internal/handler"
	mw "github.com/storelane/api/internal/middleware"
	"github.com/storelane/api/internal/service"
	"github.com/storelane/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Order, product, customer and employee routes sit behind authentication and
// the employee/admin role gate.
func New(cfg *config.Config, store *database.Store, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(store, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication + staff role)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(enum.RoleEmployee, enum.RoleAdmin))

		// Orders
		orderService := service.NewOrderService(store)
		orderHandler := handler.NewOrderHandler(orderService, store, hub)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r, mw.ValidatePagination(store.CountOrders))
		})

		// Products
		productHandler := handler.NewProductHandler(store)
		r.Route("/products", productHandler.RegisterRoutes)

		// Customers
		customerHandler := handler.NewCustomerHandler(store)
		r.Route("/customers", customerHandler.RegisterRoutes)

		// Employees
		employeeHandler := handler.NewEmployeeHandler(store)
		r.Route("/employees", employeeHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
