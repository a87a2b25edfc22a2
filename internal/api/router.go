package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mla/mla/chart-go/internal/icon"
	"github.com/mla/mla/chart-go/internal/metrics"
	mw "github.com/mla/mla/chart-go/internal/middleware"
)

// Deps are the collaborators the router mounts. Icons, Metrics and Rooms
// are optional.
type Deps struct {
	Charts         *Handler
	Icons          *icon.Handler
	Metrics        *metrics.Collector
	Rooms          http.Handler
	AllowedOrigins string
}

// NewRouter wires the HTTP surface of the server.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(d.AllowedOrigins))
	if d.Metrics != nil {
		r.Use(mw.Metrics(d.Metrics))
		r.Handle("/metrics", d.Metrics.Handler()).Methods("GET")
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if d.Icons != nil {
		r.HandleFunc("/icons", d.Icons.Upload).Methods("POST", "OPTIONS")
		r.HandleFunc("/icons", d.Icons.List).Methods("GET")
		r.HandleFunc("/icons/{iconId}", func(w http.ResponseWriter, r *http.Request) {
			if err := d.Icons.Delete(mux.Vars(r)["iconId"]); err != nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}).Methods("DELETE", "OPTIONS")
		r.PathPrefix("/icons/").Handler(d.Icons.Serve()).Methods("GET")
	}

	h := d.Charts
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/catalog", h.Catalog).Methods("GET")
	api.HandleFunc("/importers", h.Importers).Methods("GET")

	api.HandleFunc("/charts", h.List).Methods("GET")
	api.HandleFunc("/charts", h.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/charts/{chartId}", h.Get).Methods("GET")
	api.HandleFunc("/charts/{chartId}", h.Delete).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/charts/{chartId}/snapshot", h.Load).Methods("GET")
	api.HandleFunc("/charts/{chartId}/snapshot", h.Save).Methods("PUT", "OPTIONS")
	api.HandleFunc("/charts/{chartId}/search", h.Search).Methods("GET")
	api.HandleFunc("/charts/{chartId}/import/{importer}", h.Import).Methods("POST", "OPTIONS")
	api.HandleFunc("/charts/{chartId}/slice", h.Slice).Methods("GET")
	api.HandleFunc("/charts/{chartId}/render.png", h.Render).Methods("GET")

	api.HandleFunc("/charts/{chartId}/analysis/degree", h.Degree).Methods("GET")
	api.HandleFunc("/charts/{chartId}/analysis/path", h.Path).Methods("GET")
	api.HandleFunc("/charts/{chartId}/analysis/reachable", h.Reachable).Methods("GET")
	api.HandleFunc("/charts/{chartId}/analysis/communities", h.Communities).Methods("GET")

	if d.Rooms != nil {
		r.Handle("/ws/chart/{chartId}", d.Rooms)
	}

	return r
}
