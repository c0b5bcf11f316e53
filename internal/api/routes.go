package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes. health and metrics may be nil.
func SetupRoutes(handler *Handler, health, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()

	if health != nil {
		r.Handle("/health", health).Methods("GET")
	} else {
		r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	}
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/stocks", handler.GetStocks).Methods("GET")
	api.HandleFunc("/stocks/{symbol}", handler.GetStock).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/indicators", handler.GetIndicators).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/history", handler.GetHistory).Methods("GET")

	return r
}
