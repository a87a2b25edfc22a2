// Package api exposes charts, imports, renders and graph analysis over
// HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/chartstore"
	"github.com/mla/mla/chart-go/internal/config"
	"github.com/mla/mla/chart-go/internal/history"
	"github.com/mla/mla/chart-go/internal/metrics"
	"github.com/mla/mla/chart-go/internal/plugin"
	"github.com/mla/mla/chart-go/internal/store"
)

const maxImportSize = 10 << 20 // 10MB

type Handler struct {
	charts    *chartstore.Service
	importers *plugin.Registry
	catalog   func() *config.Catalog
	metrics   *metrics.Collector
	now       func() time.Time
}

// NewHandler creates the chart API. catalog returns the type catalog in
// effect for each request; collector may be nil.
func NewHandler(charts *chartstore.Service, importers *plugin.Registry, catalog func() *config.Catalog, collector *metrics.Collector) *Handler {
	if catalog == nil {
		catalog = config.EmptyCatalog
	}
	return &Handler{
		charts:    charts,
		importers: importers,
		catalog:   catalog,
		metrics:   collector,
		now:       time.Now,
	}
}

type createRequest struct {
	Name string `json:"name"`
}

type saveResponse struct {
	Version int `json:"version"`
}

type importResponse struct {
	Version  int `json:"version"`
	Entities int `json:"entities"`
	Links    int `json:"links"`
	Events   int `json:"events"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	c, err := h.charts.Create(r.Context(), req.Name)
	if err != nil {
		slog.Error("create chart failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.charts.Get(r.Context(), mux.Vars(r)["chartId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	charts, err := h.charts.List(r.Context())
	if err != nil {
		slog.Error("list charts failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, charts)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.charts.Delete(r.Context(), mux.Vars(r)["chartId"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Load returns the latest snapshot of a chart.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	snap, err := h.charts.Load(r.Context(), mux.Vars(r)["chartId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Save stores the request body as the chart's next snapshot.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var file chart.SaveFile
	if err := json.NewDecoder(r.Body).Decode(&file); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	version, err := h.charts.Save(r.Context(), mux.Vars(r)["chartId"], file)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saveResponse{Version: version})
}

// Search answers GET /charts/{chartId}/search?q=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	batch, err := h.charts.Search(r.Context(), mux.Vars(r)["chartId"], r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batch)
}

// Import runs the named importer over the request body, merges the batch
// into the latest snapshot and saves the result as a new version.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chartID, name := vars["chartId"], vars["importer"]

	im, err := h.importers.Get(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request too large"})
		return
	}

	batch, err := im.Import(r.Context(), raw)
	if err != nil {
		h.countImport(name, "error")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if batch.ErrorMessage != "" {
		h.countImport(name, "rejected")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": batch.ErrorMessage})
		return
	}
	if err := chart.ValidateBatch(batch); err != nil {
		h.countImport(name, "rejected")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	snap, err := h.charts.Load(r.Context(), chartID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	st := store.New()
	if err := st.Apply(store.Load{File: snap.File}, store.MergeBatch{Batch: batch}); err != nil {
		h.countImport(name, "rejected")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	version, err := h.charts.Save(r.Context(), chartID, st.Snapshot())
	if err != nil {
		h.countImport(name, "error")
		handleServiceError(w, err)
		return
	}
	h.countImport(name, "ok")

	slog.Info("import merged", "chart", chartID, "importer", name, "version", version)
	writeJSON(w, http.StatusOK, importResponse{
		Version:  version,
		Entities: len(batch.Entities),
		Links:    len(batch.Links),
		Events:   len(batch.Events),
	})
}

func (h *Handler) Importers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.importers.Names())
}

// Catalog returns the type catalog in effect.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog())
}

func (h *Handler) countImport(importer, status string) {
	if h.metrics != nil {
		h.metrics.Imports.WithLabelValues(importer, status).Inc()
	}
}

// loadStore returns a store holding the latest snapshot of the chart in
// the request path.
func (h *Handler) loadStore(r *http.Request) (*store.Store, error) {
	snap, err := h.charts.Load(r.Context(), mux.Vars(r)["chartId"])
	if err != nil {
		return nil, err
	}
	st := store.New()
	if err := st.Apply(store.Load{File: snap.File}); err != nil {
		return nil, fmt.Errorf("%w: %v", chartstore.ErrInvalid, err)
	}
	return st, nil
}

// dateParam reads the "date" query parameter as a day or an RFC 3339
// timestamp. It defaults to the start of today.
func (h *Handler) dateParam(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return history.StartOfDay(h.now()), nil
	}
	if d, err := time.Parse(time.DateOnly, v); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", chartstore.ErrInvalid, v)
	}
	return d, nil
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chartstore.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, chartstore.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
