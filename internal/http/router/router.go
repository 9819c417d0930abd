package router

import (
	"cloudfiles/internal/db"
	"cloudfiles/internal/http/handlers"
	"cloudfiles/internal/http/middleware"
	"cloudfiles/internal/metrics"
	"cloudfiles/internal/security"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func Setup(store *db.DB, sessionStore *security.SessionStore, log *zap.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log, m))

	// Initialize handlers
	fileHandler := handlers.NewFileHandler(store, sessionStore, log)
	healthHandler := handlers.NewHealthHandler(store, log)

	r.HandleFunc("/", fileHandler.Index).Methods("GET")
	r.HandleFunc("/", fileHandler.Submit).Methods("POST")
	r.HandleFunc("/edit/{filename}", fileHandler.Edit).Methods("GET")
	r.HandleFunc("/edit/{filename}", fileHandler.SubmitEdit).Methods("POST")
	r.HandleFunc("/delete/{filename}", fileHandler.Delete).Methods("GET")

	r.HandleFunc("/healthz", healthHandler.Health).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	return r
}
