package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kubedeck/kubedeck-backend/internal/models"
	"github.com/kubedeck/kubedeck-backend/internal/pkg/validate"
	"github.com/kubedeck/kubedeck-backend/internal/scaling"
)

// ScaleUp handles POST /workloads/{kind}/{namespace}/{name}/scale/up
// Adds one replica on top of the current count. The response carries the
// optimistic desired count so the UI can render it immediately.
func (h *Handler) ScaleUp(w http.ResponseWriter, r *http.Request) {
	h.scale(w, r, h.scalingService.ScaleUp)
}

// ScaleDown handles POST /workloads/{kind}/{namespace}/{name}/scale/down
func (h *Handler) ScaleDown(w http.ResponseWriter, r *http.Request) {
	h.scale(w, r, h.scalingService.ScaleDown)
}

func (h *Handler) scale(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, kind, namespace, name string) (*models.ScaleResult, error)) {
	kind, namespace, name, ok := workloadVars(w, r)
	if !ok {
		return
	}

	result, err := op(r.Context(), kind, namespace, name)
	if err != nil {
		respondError(w, scaleErrorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, result)
}

// GetScaleSession handles GET /workloads/{kind}/{namespace}/{name}/scale
// Returns the active scaling session for a workload, so a re-opened view can
// restore its pending indicator. 404 when no scale is in progress.
func (h *Handler) GetScaleSession(w http.ResponseWriter, r *http.Request) {
	kind, namespace, name, ok := workloadVars(w, r)
	if !ok {
		return
	}

	session, ok := h.scalingService.ActiveSession(kind, namespace, name)
	if !ok {
		respondError(w, http.StatusNotFound, "No scaling operation in progress")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// ScalingHistory handles GET /scaling/history?limit=N
func (h *Handler) ScalingHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	events, err := h.scalingService.History(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []models.ScalingEvent{}
	}

	respondJSON(w, http.StatusOK, events)
}

func workloadVars(w http.ResponseWriter, r *http.Request) (kind, namespace, name string, ok bool) {
	vars := mux.Vars(r)
	kind = vars["kind"]
	namespace = vars["namespace"]
	name = vars["name"]
	if !validate.Kind(kind) || !validate.Namespace(namespace) || !validate.Name(name) {
		respondError(w, http.StatusBadRequest, "Invalid kind, namespace, or name")
		return "", "", "", false
	}
	return kind, namespace, name, true
}

func scaleErrorStatus(err error) int {
	switch {
	case errors.Is(err, scaling.ErrScaleInProgress):
		return http.StatusConflict
	case errors.Is(err, scaling.ErrBelowZero), errors.Is(err, scaling.ErrNotScalable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
