package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mla/mla/chart-go/internal/analysis"
	"github.com/mla/mla/chart-go/internal/engine"
	"github.com/mla/mla/chart-go/internal/store"
)

const (
	defaultRenderWidth  = 1200
	defaultRenderHeight = 800
	maxRenderSide       = 4096
	defaultMaxHops      = 2
)

// Slice returns the entities and links current at ?date=.
func (h *Handler) Slice(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	st, err := h.loadStore(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, st.Slice(date))
}

// Render rasterizes the chart as it looked at ?date= into a PNG of
// ?width= by ?height= pixels, framed to fit.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	date, err := h.dateParam(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	width := intParam(r, "width", defaultRenderWidth, maxRenderSide)
	height := intParam(r, "height", defaultRenderHeight, maxRenderSide)

	snap, err := h.charts.Load(r.Context(), mux.Vars(r)["chartId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	e, err := engine.New(store.New(), engine.Options{
		Width:   float64(width),
		Height:  float64(height),
		Catalog: h.catalog(),
	})
	if err != nil {
		slog.Error("create render engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	defer e.Close()

	e.SetDate(date)
	if err := e.Load(snap.File); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := e.RenderPNG(&buf); err != nil {
		slog.Error("render chart", "error", err, "chart", snap.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if h.metrics != nil {
		h.metrics.Renders.Observe(time.Since(start).Seconds())
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Degree ranks the nodes current at ?date= by degree centrality.
func (h *Handler) Degree(w http.ResponseWriter, r *http.Request) {
	g, ok := h.graph(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analysis.Degree(g))
}

// Path returns the shortest path between ?from= and ?to= render keys.
func (h *Handler) Path(w http.ResponseWriter, r *http.Request) {
	g, ok := h.graph(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	path, err := analysis.ShortestPath(g, q.Get("from"), q.Get("to"))
	if err != nil {
		handleAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"path": path})
}

// Reachable returns the nodes within ?hops= of ?from= and their distance.
func (h *Handler) Reachable(w http.ResponseWriter, r *http.Request) {
	g, ok := h.graph(w, r)
	if !ok {
		return
	}
	hops := intParam(r, "hops", defaultMaxHops, 64)
	dist, err := analysis.Reachable(g, r.URL.Query().Get("from"), hops)
	if err != nil {
		handleAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dist)
}

// Communities groups the nodes current at ?date= by label propagation.
func (h *Handler) Communities(w http.ResponseWriter, r *http.Request) {
	g, ok := h.graph(w, r)
	if !ok {
		return
	}
	groups := analysis.Groups(analysis.Communities(g, analysis.DefaultIterations))
	writeJSON(w, http.StatusOK, map[string][][]string{"communities": groups})
}

func (h *Handler) graph(w http.ResponseWriter, r *http.Request) (*analysis.Graph, bool) {
	date, err := h.dateParam(r)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	st, err := h.loadStore(r)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return analysis.FromSlice(st.Slice(date)), true
}

func handleAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrUnknownNode):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, analysis.ErrNoPath):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		handleServiceError(w, err)
	}
}

// intParam reads a positive integer query parameter, capped at limit.
func intParam(r *http.Request, name string, def, limit int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return def
	}
	if n > limit {
		return limit
	}
	return n
}
