package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kubedeck/kubedeck-backend/internal/service"
)

// Handler manages HTTP request handlers
type Handler struct {
	scalingService service.ScalingService
	logsService    service.LogsService
	tailDefault    int64
}

// NewHandler creates a new HTTP handler. tailDefault is the log window size
// used when the request does not specify one; 0 picks a sane default.
func NewHandler(ss service.ScalingService, ls service.LogsService, tailDefault int64) *Handler {
	if tailDefault <= 0 {
		tailDefault = 100
	}
	return &Handler{
		scalingService: ss,
		logsService:    ls,
		tailDefault:    tailDefault,
	}
}

// SetupRoutes configures API routes
func SetupRoutes(router *mux.Router, h *Handler) {
	// Scaling routes
	router.HandleFunc("/workloads/{kind}/{namespace}/{name}/scale/up", h.ScaleUp).Methods("POST")
	router.HandleFunc("/workloads/{kind}/{namespace}/{name}/scale/down", h.ScaleDown).Methods("POST")
	router.HandleFunc("/workloads/{kind}/{namespace}/{name}/scale", h.GetScaleSession).Methods("GET")
	router.HandleFunc("/scaling/history", h.ScalingHistory).Methods("GET")

	// Log routes
	router.HandleFunc("/logs/{namespace}/{pod}", h.GetPodLogs).Methods("GET")
	router.HandleFunc("/logs/{namespace}/{pod}/search", h.SearchPodLogs).Methods("GET")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods("GET")
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
