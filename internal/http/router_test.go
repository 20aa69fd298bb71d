package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/facility-backend/internal/data/aggregates"
	"github.com/yungbote/facility-backend/internal/data/repos/testutil"
	apphttp "github.com/yungbote/facility-backend/internal/http"
	"github.com/yungbote/facility-backend/internal/http/handlers"
	"github.com/yungbote/facility-backend/internal/http/middleware"
	"github.com/yungbote/facility-backend/internal/observability"
)

type api struct {
	t       *testing.T
	engine  *gin.Engine
	tenant  string
	metrics *observability.Metrics
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := testutil.DB(t)
	reg := testutil.Registry(t)
	log := testutil.Logger(t)
	m := observability.NewMetrics()
	repo := aggregates.NewRepository(aggregates.RepositoryDeps{
		Base:     aggregates.BaseDeps{DB: gdb, Log: log, Hooks: aggregates.NewObservabilityHooks(m)},
		Registry: reg,
	})
	engine := apphttp.NewRouter(apphttp.RouterConfig{
		Log:              log,
		Registry:         reg,
		Metrics:          m,
		AggregateHandler: handlers.NewAggregateHandler(log, repo),
		HealthHandler:    handlers.NewHealthHandler(nil),
		ExposeMetrics:    true,
	})
	return &api{t: t, engine: engine, tenant: testutil.Tenant(), metrics: m}
}

func (a *api) do(method, path, body string) (int, map[string]any) {
	a.t.Helper()
	return a.doAs(a.tenant, method, path, body)
}

func (a *api) doAs(tenant, method, path, body string) (int, map[string]any) {
	a.t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set(middleware.HeaderPropertyID, tenant)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func errorCode(body map[string]any) string {
	env, _ := body["error"].(map[string]any)
	code, _ := env["code"].(string)
	return code
}

func TestAggregateRoutesRequireTenant(t *testing.T) {
	a := newAPI(t)
	status, body := a.doAs("", http.MethodGet, "/api/activity", "")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "missing_property_id", errorCode(body))
}

func TestIncidentLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	incidentID := testutil.UniqueTag("IR")
	create := `{
		"incident_id": "` + incidentID + `",
		"title": "Slip in lobby",
		"severity": "medium",
		"site_details": {"location": "Lobby"},
		"personnel_involved": [{"name": "Ana", "role": "guard"}, {"name": "Ben"}]
	}`

	status, doc := a.do(http.MethodPost, "/api/incident_report", create)
	require.Equal(t, http.StatusCreated, status, "%v", doc)
	id, _ := doc["id"].(string)
	require.NotEmpty(t, id)
	require.Equal(t, a.tenant, doc["property_id"])
	require.Len(t, doc["personnel_involved"], 2)
	require.Nil(t, doc["classification"])

	status, body := a.do(http.MethodPost, "/api/incident_report", create)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "conflict", errorCode(body))

	// Absent keys stay, null clears, a list replaces.
	status, doc = a.do(http.MethodPatch, "/api/incident_report/"+id,
		`{"status":"investigating","site_details":null,"personnel_involved":[{"name":"Cy"}]}`)
	require.Equal(t, http.StatusOK, status, "%v", doc)
	require.Equal(t, "investigating", doc["status"])
	require.Equal(t, "Slip in lobby", doc["title"])
	require.Nil(t, doc["site_details"])
	require.Len(t, doc["personnel_involved"], 1)

	status, _ = a.doAs(testutil.Tenant(), http.MethodGet, "/api/incident_report/"+id, "")
	require.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(http.MethodPut, "/api/incident_report/"+id, `{"severity":"critical"}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = a.do(http.MethodDelete, "/api/incident_report/"+id, "")
	require.Equal(t, http.StatusNoContent, status)
	status, body = a.do(http.MethodGet, "/api/incident_report/"+id, "")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "not_found", errorCode(body))
}

func TestRejectsBadRequests(t *testing.T) {
	a := newAPI(t)
	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/activity", `{"name":`},
		{http.MethodPost, "/api/activity", `{"name":"x","colour":"red"}`},
		{http.MethodPost, "/api/activity", `{"description":"no name"}`},
		{http.MethodPost, "/api/activity", `{"name":"x","status":"exploded"}`},
		{http.MethodGet, "/api/activity/not-a-uuid", ""},
		{http.MethodGet, "/api/activity?skip=abc", ""},
		{http.MethodGet, "/api/activity?limit=-1", ""},
		{http.MethodGet, "/api/activity?name=x", ""},
	}
	for _, tc := range cases {
		status, body := a.do(tc.method, tc.path, tc.body)
		require.Equal(t, http.StatusBadRequest, status, "%s %s %s", tc.method, tc.path, tc.body)
		require.Equal(t, "validation", errorCode(body), "%s %s", tc.method, tc.path)
	}
}

func TestActivityItemsAndCounters(t *testing.T) {
	a := newAPI(t)
	status, doc := a.do(http.MethodPost, "/api/activity",
		`{"name":"Chiller service","tasks":[{"title":"isolate","status":"completed"},{"title":"drain","status":"pending"}]}`)
	require.Equal(t, http.StatusCreated, status, "%v", doc)
	id := doc["id"].(string)
	require.Equal(t, float64(2), doc["total_tasks"])
	require.Equal(t, float64(1), doc["completed_tasks"])

	status, item := a.do(http.MethodPost, "/api/activity/"+id+"/tasks", `{"title":"refill","status":"pending","active":false}`)
	require.Equal(t, http.StatusCreated, status, "%v", item)
	itemID := item["id"].(string)

	status, item = a.do(http.MethodPatch, "/api/activity/"+id+"/tasks/"+itemID, `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, status, "%v", item)
	require.Equal(t, "completed", item["status"])
	require.Equal(t, "refill", item["title"])

	_, doc = a.do(http.MethodGet, "/api/activity/"+id, "")
	require.Equal(t, float64(3), doc["total_tasks"])
	require.Equal(t, float64(2), doc["completed_tasks"])
	require.Equal(t, float64(1), doc["pending_tasks"])

	status, _ = a.do(http.MethodDelete, "/api/activity/"+id+"/tasks/"+itemID, "")
	require.Equal(t, http.StatusNoContent, status)
	status, _ = a.do(http.MethodDelete, "/api/activity/"+id+"/tasks/"+itemID, "")
	require.Equal(t, http.StatusNotFound, status)

	status, doc = a.do(http.MethodPost, "/api/activity/"+id+"/resync", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(2), doc["total_tasks"])
}

func TestListFiltersAndPages(t *testing.T) {
	a := newAPI(t)
	for _, status := range []string{"scheduled", "completed", "scheduled"} {
		code, _ := a.do(http.MethodPost, "/api/activity", `{"name":"a","status":"`+status+`"}`)
		require.Equal(t, http.StatusCreated, code)
	}
	status, body := a.do(http.MethodGet, "/api/activity?status=scheduled&limit=1", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(2), body["total"])
	require.Equal(t, float64(1), body["limit"])
	require.Len(t, body["items"], 1)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	a := newAPI(t)
	a.do(http.MethodGet, "/api/activity", "")

	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `facility_aggregate_operations_total{op="aggregate.list",status="success"} 1`)
	require.Contains(t, rec.Body.String(), `route="/api/activity"`)
}
