// Package httpapi exposes the appeal lifecycle over a JSON REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	app "github.com/appealdesk/appealdesk/internal/app"
	"github.com/appealdesk/appealdesk/internal/app/domain/appeal"
	"github.com/appealdesk/appealdesk/internal/app/metrics"
	"github.com/appealdesk/appealdesk/internal/app/services/appeals"
	"github.com/appealdesk/appealdesk/internal/app/storage"
	"github.com/appealdesk/appealdesk/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a mux exposing the appeals REST API alongside the
// health and metrics endpoints.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/appeals", h.appeals)
	mux.HandleFunc("/appeals/", h.appealResources)
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (h *handler) appeals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		created, err := h.app.Appeals.Create(r.Context(), payload.Title, payload.Description)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		metrics.RecordAppealCreated()
		writeJSON(w, http.StatusCreated, map[string]string{
			"message": "appeal created",
			"id":      created.ID,
		})

	case http.MethodGet:
		query := r.URL.Query()
		items, pagination, err := h.app.Appeals.List(r.Context(), appeals.ListQuery{
			Date:      query.Get("date"),
			StartDate: query.Get("startDate"),
			EndDate:   query.Get("endDate"),
			Status:    query.Get("status"),
			Limit:     query.Get("limit"),
			Page:      query.Get("page"),
		})
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"appeals":    items,
			"pagination": pagination,
		})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) appealResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/appeals"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if parts[0] == "bulk-cancel" {
		if len(parts) != 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.bulkCancel(w, r)
		return
	}

	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := parts[0]
	switch parts[1] {
	case "in-progress":
		h.startProgress(w, r, id)
	case "complete":
		h.complete(w, r, id)
	case "cancel":
		h.cancel(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) startProgress(w http.ResponseWriter, r *http.Request, id string) {
	updated, err := h.app.Appeals.StartProgress(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	metrics.RecordTransition(string(appeal.StatusInProgress), 1)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "appeal in progress",
		"appeal":  updated,
	})
}

func (h *handler) complete(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		Solution string `json:"solution"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Appeals.Complete(r.Context(), id, payload.Solution)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	metrics.RecordTransition(string(appeal.StatusCompleted), 1)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "appeal completed",
		"appeal":  updated,
	})
}

func (h *handler) cancel(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Appeals.Cancel(r.Context(), id, payload.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	metrics.RecordTransition(string(appeal.StatusCanceled), 1)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "appeal canceled",
		"appeal":  updated,
	})
}

func (h *handler) bulkCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	canceled, err := h.app.Appeals.CancelAllInProgress(r.Context(), payload.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	metrics.RecordTransition(string(appeal.StatusCanceled), canceled)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "in-progress appeals canceled",
		"canceled": canceled,
	})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps service errors onto HTTP statuses. Unexpected errors
// are logged and reported opaquely.
func (h *handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appeals.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, appeals.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
