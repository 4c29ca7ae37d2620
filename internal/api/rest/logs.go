package rest

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kubedeck/kubedeck-backend/internal/pkg/validate"
)

// GetPodLogs handles GET /logs/{namespace}/{pod}
// Streams pod logs from the K8s API (container, tail, follow query params).
func (h *Handler) GetPodLogs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	namespace := vars["namespace"]
	pod := vars["pod"]
	if !validate.Namespace(namespace) || !validate.Name(pod) {
		respondError(w, http.StatusBadRequest, "Invalid namespace or pod")
		return
	}

	container := r.URL.Query().Get("container")
	follow := r.URL.Query().Get("follow") == "true" || r.URL.Query().Get("follow") == "1"
	tailLines := h.tailParam(r)

	stream, err := h.logsService.GetPodLogs(r.Context(), namespace, pod, container, follow, tailLines)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	_, _ = io.Copy(w, stream)
}

// SearchPodLogs handles GET /logs/{namespace}/{pod}/search?q=term
// Runs a substring search over the tail window and returns match positions
// plus highlight markup for the matching lines.
func (h *Handler) SearchPodLogs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	namespace := vars["namespace"]
	pod := vars["pod"]
	if !validate.Namespace(namespace) || !validate.Name(pod) {
		respondError(w, http.StatusBadRequest, "Invalid namespace or pod")
		return
	}

	query := r.URL.Query().Get("q")
	container := r.URL.Query().Get("container")
	tailLines := h.tailParam(r)

	result, err := h.logsService.SearchPodLogs(r.Context(), namespace, pod, container, query, tailLines)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) tailParam(r *http.Request) int64 {
	if t := r.URL.Query().Get("tail"); t != "" {
		if n, err := strconv.ParseInt(t, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return h.tailDefault
}
