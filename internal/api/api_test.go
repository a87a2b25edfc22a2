package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/chartstore"
	"github.com/mla/mla/chart-go/internal/config"
	"github.com/mla/mla/chart-go/internal/icon"
	"github.com/mla/mla/chart-go/internal/metrics"
	"github.com/mla/mla/chart-go/internal/plugin"
	"github.com/mla/mla/chart-go/internal/store"
)

type testServer struct {
	router  *mux.Router
	metrics *metrics.Collector
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	c := metrics.NewCollector("mla_test")
	catalog, err := config.ParseCatalog(`
[entities.person]
color = "#3366ff"
show = true
`)
	require.NoError(t, err)

	h := NewHandler(
		chartstore.NewService(chartstore.NewMemory(), c),
		plugin.NewDefaultRegistry(),
		func() *config.Catalog { return catalog },
		c,
	)
	return &testServer{
		router: NewRouter(Deps{
			Charts:         h,
			Icons:          icon.NewHandler(t.TempDir()),
			Metrics:        c,
			AllowedOrigins: "http://localhost:5173",
		}),
		metrics: c,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createChart(t *testing.T, name string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/charts", []byte(`{"name":"`+name+`"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c chartstore.Chart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c.ID
}

func (s *testServer) save(t *testing.T, chartID string, file chart.SaveFile) {
	t.Helper()
	body, err := json.Marshal(file)
	require.NoError(t, err)
	rec := s.do(t, http.MethodPut, "/api/charts/"+chartID+"/snapshot", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func person(id string, x, y float64) chart.Entity {
	return chart.Entity{Object: chart.Object{ID: id, TypeID: "person", LabelShort: strings.ToUpper(id), PosX: x, PosY: y}}
}

func knows(id, from, to string) chart.Link {
	return chart.Link{
		Object:       chart.Object{ID: id, TypeID: "knows"},
		FromEntityID: from, FromEntityTypeID: "person",
		ToEntityID: to, ToEntityTypeID: "person",
		Direction: chart.DirectionTo,
	}
}

func mustDay(t *testing.T, v string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, v)
	require.NoError(t, err)
	return d
}

// chain is a-b-c plus an isolated d.
func chain() chart.SaveFile {
	return chart.SaveFile{
		Entities: []chart.Entity{person("a", 0, 0), person("b", 100, 0), person("c", 200, 0), person("d", 0, 200)},
		Links:    []chart.Link{knows("l1", "a", "b"), knows("l2", "b", "c")},
	}
}

func TestChartLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/charts", []byte(`{"name":"  "}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	id := s.createChart(t, "case-42")

	rec = s.do(t, http.MethodGet, "/api/charts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []chartstore.Chart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "case-42", list[0].Name)

	rec = s.do(t, http.MethodGet, "/api/charts/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/charts/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/charts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestServer(t)
	id := s.createChart(t, "case")

	rec := s.do(t, http.MethodGet, "/api/charts/"+id+"/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fresh chartstore.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	name, ok := chart.ContextGet(fresh.File.Context, "filename")
	assert.True(t, ok)
	assert.Equal(t, "case", name)

	s.save(t, id, chain())

	rec = s.do(t, http.MethodGet, "/api/charts/"+id+"/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap chartstore.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Greater(t, snap.Version, fresh.Version)
	assert.Len(t, snap.File.Entities, 4)
	assert.Len(t, snap.File.Links, 2)

	invalid := chart.SaveFile{Entities: []chart.Entity{{Object: chart.Object{ID: "x"}}}}
	body, _ := json.Marshal(invalid)
	rec = s.do(t, http.MethodPut, "/api/charts/"+id+"/snapshot", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/charts/missing/snapshot", []byte(`{}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	s := newTestServer(t)
	id := s.createChart(t, "case")
	s.save(t, id, chain())

	rec := s.do(t, http.MethodGet, "/api/charts/"+id+"/search?q=A", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var b chart.Batch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	require.Len(t, b.Links, 1)
	assert.Equal(t, "l1", b.Links[0].ID)
	assert.Len(t, b.Entities, 2)
}

func TestImportMergesAndSaves(t *testing.T) {
	s := newTestServer(t)
	id := s.createChart(t, "case")
	s.save(t, id, chain())

	raw := strings.Join([]string{
		"kind,id,type,label,x,y,from,from_type,to,to_type,direction,date_from,date_to",
		"entity,e,person,Eve,300,0,,,,,,,",
		"link,l3,knows,,,,c,person,e,person,to,,",
	}, "\n")
	rec := s.do(t, http.MethodPost, "/api/charts/"+id+"/import/csv", []byte(raw))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Entities)
	assert.Equal(t, 1, res.Links)

	rec = s.do(t, http.MethodGet, "/api/charts/"+id+"/snapshot", nil)
	var snap chartstore.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, res.Version, snap.Version)
	assert.Len(t, snap.File.Entities, 5)
	assert.Len(t, snap.File.Links, 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Imports.WithLabelValues("csv", "ok")))

	rec = s.do(t, http.MethodPost, "/api/charts/"+id+"/import/csv", []byte("kind,type,x\nentity,person,abc\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Imports.WithLabelValues("csv", "rejected")))

	rec = s.do(t, http.MethodPost, "/api/charts/"+id+"/import/json", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/charts/"+id+"/import/xml", []byte("<a/>"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSliceFollowsDate(t *testing.T) {
	s := newTestServer(t)
	id := s.createChart(t, "case")
	file := chain()
	from := mustDay(t, "2024-06-01")
	file.Entities[3].DateFrom = &from
	s.save(t, id, file)

	rec := s.do(t, http.MethodGet, "/api/charts/"+id+"/slice?date=2024-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var slice store.Slice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slice))
	assert.Len(t, slice.Entities, 3)

	rec = s.do(t, http.MethodGet, "/api/charts/"+id+"/slice?date=2024-07-01T12:00:00Z", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slice))
	assert.Len(t, slice.Entities, 4)

	rec = s.do(t, http.MethodGet, "/api/charts/"+id+"/slice?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderPNG(t *testing.T) {
	s := newTestServer(t)
	id := s.createChart(t, "case")
	s.save(t, id, chain())

	rec := s.do(t, http.MethodGet, "/api/charts/"+id+"/render.png?width=300&height=200", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestAnalysisEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createChart(t, "case")
	s.save(t, id, chain())
	base := "/api/charts/" + id + "/analysis/"

	rec := s.do(t, http.MethodGet, base+"degree", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var scores []struct {
		Key   string  `json:"key"`
		Value float64 `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scores))
	require.Len(t, scores, 4)
	assert.Equal(t, "bperson", scores[0].Key)

	rec = s.do(t, http.MethodGet, base+"path?from=aperson&to=cperson", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var path map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &path))
	assert.Equal(t, []string{"aperson", "bperson", "cperson"}, path["path"])

	rec = s.do(t, http.MethodGet, base+"path?from=aperson&to=dperson", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, base+"path?from=aperson&to=nobody", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, base+"reachable?from=aperson&hops=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dist map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dist))
	assert.Equal(t, map[string]int{"aperson": 0, "bperson": 1}, dist)

	rec = s.do(t, http.MethodGet, base+"communities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups map[string][][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	assert.Len(t, groups["communities"], 2)
}

func TestServiceRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "#3366ff")

	rec = s.do(t, http.MethodGet, "/api/importers", nil)
	assert.JSONEq(t, `["csv","json"]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/icons", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mla_test_http_requests_total{method="GET",route="/api/importers",status="200"} 1`)
}
