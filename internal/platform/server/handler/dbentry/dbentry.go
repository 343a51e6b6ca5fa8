package dbentry

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lsmkv/internal/application/service"
	"lsmkv/internal/platform/repository/lsmtree"
)

// DbEntryHandler is the HTTP demo surface over the engine's point and
// range operations.
type DbEntryHandler struct {
	saveService   *service.SaveEntryService
	deleteService *service.DeleteEntryService
	getService    *service.GetEntryService
	rangeService  *service.RangeQueryService
}

func NewDbEntryHandler(
	saveService *service.SaveEntryService,
	deleteService *service.DeleteEntryService,
	getService *service.GetEntryService,
	rangeService *service.RangeQueryService,
) *DbEntryHandler {
	return &DbEntryHandler{
		saveService:   saveService,
		deleteService: deleteService,
		getService:    getService,
		rangeService:  rangeService,
	}
}

type entryResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, lsmtree.ErrEmptyKey):
		return http.StatusBadRequest
	case errors.Is(err, lsmtree.ErrClosed), errors.Is(err, lsmtree.ErrLocked):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// SaveEntry handles PUT /db/{key}, storing the request body as the
// raw JSON value.
func (h *DbEntryHandler) SaveEntry(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.saveService.Execute(service.SaveEntryCommand{Key: key, Value: body})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, entryResponse{Key: result.Key, Value: result.Value})
}

// GetEntry handles GET /db/{key}.
func (h *DbEntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	result, err := h.getService.Execute(service.GetEntryQuery{Key: key})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !result.Found {
		writeError(w, http.StatusNotFound, errors.New("key not found"))
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{Key: key, Value: result.Value})
}

// DeleteEntry handles DELETE /db/{key}.
func (h *DbEntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	result, err := h.deleteService.Execute(service.DeleteEntryCommand{Key: key})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{Key: result.Key})
}

// RangeScan handles GET /range?lo=...&hi=..., returning the inclusive
// ascending key range.
func (h *DbEntryHandler) RangeScan(w http.ResponseWriter, r *http.Request) {
	lo := r.URL.Query().Get("lo")
	hi := r.URL.Query().Get("hi")
	result, err := h.rangeService.Execute(service.RangeQuery{Lo: lo, Hi: hi})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	out := make([]entryResponse, 0, len(result.Entries))
	for _, e := range result.Entries {
		out = append(out, entryResponse{Key: e.Key(), Value: e.Value()})
	}
	writeJSON(w, http.StatusOK, out)
}
