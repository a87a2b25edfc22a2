package collab

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Handler upgrades GET /ws/chart/{chartId} to a room connection. Clients
// are anonymous; ?name= sets the display name shown to collaborators.
func (h *Hub) Handler(allowedOrigins string) http.Handler {
	patterns := OriginPatterns(allowedOrigins)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chartID := mux.Vars(r)["chartId"]
		if chartID == "" {
			http.Error(w, "missing chart id", http.StatusBadRequest)
			return
		}

		id := uuid.New().String()
		userID := "anon-" + id[:8]
		displayName := strings.TrimSpace(r.URL.Query().Get("name"))
		if displayName == "" {
			displayName = "Anonymous"
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: patterns,
		})
		if err != nil {
			slog.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(h, conn, userID, displayName, chartID, id)
		h.Register(client)

		ctx := r.Context()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	})
}

// OriginPatterns turns a comma separated list of allowed origins into the
// host patterns the websocket handshake checks against.
func OriginPatterns(allowedOrigins string) []string {
	var patterns []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		patterns = append(patterns, o)
	}
	return patterns
}
