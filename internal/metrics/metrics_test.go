package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("mla")
	b := NewCollector("mla")
	a.ChartsSaved.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.ChartsSaved))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ChartsSaved))
}

func TestObserveDB(t *testing.T) {
	c := NewCollector("mla")
	c.ObserveDB("save", time.Now(), nil)
	c.ObserveDB("save", time.Now(), errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DBOperations.WithLabelValues("save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DBOperations.WithLabelValues("save", "error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("mla")
	c.RoomClients.Set(3)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mla_room_clients 3")
}
