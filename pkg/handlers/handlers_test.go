package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	config "cbm-estimator-api/configs"
	"cbm-estimator-api/pkg/models"
	"cbm-estimator-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersCSV = "order_id,product_id,brand_name,category,measurement_value,unit_count,product_amount,supplier_name,customer_area\n" +
	"O1,P1,A,X,10,2,4,Acme,Giza\n" +
	"O1,P2,B,X,10,2,1,Acme,Giza\n" +
	"O2,P3,A,Y,1,1,,Nile,Cairo\n"

type stubReference struct {
	index *services.ReferenceIndex
	err   error
}

func (s stubReference) LoadReference(context.Context) (*services.ReferenceIndex, error) {
	return s.index, s.err
}

func referenceStub() stubReference {
	return stubReference{index: services.NewReferenceIndex([]models.ReferenceRecord{
		{BrandName: "A", Category: "X", Measure: 10, UnitCount: 2, CBM: 0.5, Weight: 3},
	})}
}

func multipartRequest(t *testing.T, target, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newCBMRouter(reference services.ReferenceProvider, monitoring *services.MonitoringService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCBMHandler(reference, monitoring, 1<<20, 0, nil)
	router := gin.New()
	router.POST("/cbm/calculate", h.Calculate)
	router.POST("/cbm/breakdown", h.Breakdown)
	router.POST("/cbm/export", h.Export)
	router.POST("/trips/assign", h.AssignTrips)
	return router
}

func TestCalculate(t *testing.T) {
	monitoring := services.NewMonitoringService()
	router := newCBMRouter(referenceStub(), monitoring)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "/cbm/calculate", "orders.csv", ordersCSV, nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var batch models.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	require.Len(t, batch.Results, 3)
	assert.Equal(t, models.ConfidenceExact, batch.Results[0].Confidence)
	assert.Equal(t, 2.0, batch.Results[0].TotalCBM)
	assert.Equal(t, models.ConfidenceCategory, batch.Results[1].Confidence)
	assert.Equal(t, models.ConfidenceNone, batch.Results[2].Confidence)
	assert.Equal(t, 2.5, batch.Summary.TotalCBM)
	assert.Equal(t, 15.0, batch.Summary.TotalWeight)
	assert.Contains(t, w.Body.String(), `"confidence_levels":{`)

	assert.Equal(t, 1, monitoring.GetDashboardData(1).Estimation.Batches)
}

func TestCalculateReferenceUnavailable(t *testing.T) {
	reference := stubReference{err: fmt.Errorf("%w: %w", services.ErrReferenceUnavailable, services.ErrSheetForbidden)}
	router := newCBMRouter(reference, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "/cbm/calculate", "orders.csv", ordersCSV, nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body["error"], "Failed to load fallback data: "), body["error"])
	assert.NotContains(t, w.Body.String(), "results")
}

func TestCalculateUploadErrors(t *testing.T) {
	router := newCBMRouter(referenceStub(), nil)

	testCases := []struct {
		name     string
		req      *http.Request
		expected int
	}{
		{"missing file", multipartRequest(t, "/cbm/calculate", "", "", nil), http.StatusBadRequest},
		{"unsupported format", multipartRequest(t, "/cbm/calculate", "orders.pdf", "x", nil), http.StatusBadRequest},
		{"empty table", multipartRequest(t, "/cbm/calculate", "orders.csv", "", nil), http.StatusBadRequest},
		{"invalid quantity", multipartRequest(t, "/cbm/calculate", "orders.csv", "category,product_amount\nX,many\n", nil), http.StatusBadRequest},
		{"too large", multipartRequest(t, "/cbm/calculate", "orders.csv", strings.Repeat("a", 2<<20), nil), http.StatusRequestEntityTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.req)

			assert.Equal(t, tc.expected, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestCalculateHeaderOnly(t *testing.T) {
	router := newCBMRouter(referenceStub(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "/cbm/calculate", "orders.csv", "order_id,category\n", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
}

func TestBreakdown(t *testing.T) {
	router := newCBMRouter(referenceStub(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "/cbm/breakdown", "orders.csv", ordersCSV, nil))

	require.Equal(t, http.StatusOK, w.Code)
	var b models.Breakdown
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	require.Len(t, b.Orders, 2)
	assert.Equal(t, 2.5, b.Orders[0].TotalCBM)
	assert.Equal(t, 85.0, b.Orders[0].AvgConfidence)
	require.Len(t, b.Suppliers, 2)
	assert.Equal(t, "Acme", b.Suppliers[0].Name)
	require.Len(t, b.Unmatched, 1)
	assert.Equal(t, "P3", b.Unmatched[0].ProductID)
}

func TestExport(t *testing.T) {
	router := newCBMRouter(referenceStub(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "/cbm/export", "orders.csv", ordersCSV, nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cbm_results.xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestAssignTrips(t *testing.T) {
	router := newCBMRouter(referenceStub(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "/trips/assign", "orders.csv", ordersCSV, map[string]string{"max_cbm": "2"}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var plan models.TripPlan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, 2.0, plan.Constraints.MaxCBM)
	assert.Equal(t, services.DefaultMaxTripStops, plan.Constraints.MaxStops)
	require.Len(t, plan.Trips, 2)
	assert.True(t, plan.Trips[0].Overloaded, "O1 alone carries 2.5 cbm")
	assert.Equal(t, []string{"O2"}, plan.Trips[1].Stops)
}

func TestAssignTripsInvalidConstraints(t *testing.T) {
	router := newCBMRouter(referenceStub(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "/trips/assign", "orders.csv", ordersCSV, map[string]string{"max_stops": "-1"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid trip constraints")
}

func TestAssignTripsTooLarge(t *testing.T) {
	router := newCBMRouter(referenceStub(), nil)
	content := strings.Repeat("a", 2<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "/trips/assign", "orders.csv", content, map[string]string{"max_stops": "3"}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.NotContains(t, w.Body.String(), "Invalid trip constraints")
}

type stubFetcher map[string][][]interface{}

func (s stubFetcher) FetchValues(_ context.Context, sheet string) ([][]interface{}, error) {
	values, ok := s[sheet]
	if !ok {
		return nil, services.ErrSheetNotFound
	}
	return values, nil
}

func newSheetsRouter(fetcher services.SheetValuesFetcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSheetsHandler(fetcher, services.NewRetailerService(fetcher, "Tasks", nil), []string{"Tasks", "Runsheet"}, 0)
	router := gin.New()
	router.GET("/retailers", h.GetRetailers)
	router.GET("/sheets/:name", h.GetSheet)
	return router
}

func TestGetRetailers(t *testing.T) {
	router := newSheetsRouter(stubFetcher{"Tasks": {
		{"order_id", "customer_latitude", "customer_longitude"},
		{"O1", "30.1", "31.2"},
		{"O2", "0", "0"},
	}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/retailers", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var retailers []models.Retailer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &retailers))
	require.Len(t, retailers, 1)
	assert.Equal(t, "O1", retailers[0]["order_id"])
}

func TestGetRetailersNoData(t *testing.T) {
	router := newSheetsRouter(stubFetcher{"Tasks": {}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/retailers", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"No data found"}`, w.Body.String())
}

func TestGetSheet(t *testing.T) {
	router := newSheetsRouter(stubFetcher{
		"Runsheet": {{"trip", "driver"}, {"Trip_1", "Sam"}},
		"Secrets":  {{"key"}, {"value"}},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/sheets/Runsheet", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"trip":"Trip_1","driver":"Sam"}]`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/sheets/Secrets", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/sheets/Tasks", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code, "exposed but absent")
}

type stubStatus struct {
	status models.ReferenceStatus
	err    error
}

func (s stubStatus) Status(context.Context) (models.ReferenceStatus, error) {
	return s.status, s.err
}

func TestMaintenanceMode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(&config.Config{AdminUsername: "admin", AdminPassword: "pw"}, nil)
	router := gin.New()
	router.GET("/health", HealthCheck)
	router.POST("/maintenance/start", h.StartMaintenance)
	router.POST("/maintenance/stop", h.StopMaintenance)
	t.Cleanup(func() { isMaintenanceMode.Store(false) })

	post := func(path, body string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w.Code
	}
	health := func() int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, health())
	assert.Equal(t, http.StatusBadRequest, post("/maintenance/start", `{}`))
	assert.Equal(t, http.StatusUnauthorized, post("/maintenance/start", `{"username":"admin","password":"nope"}`))
	assert.Equal(t, http.StatusOK, post("/maintenance/start", `{"username":"admin","password":"pw"}`))
	assert.Equal(t, http.StatusServiceUnavailable, health())
	assert.Equal(t, http.StatusOK, post("/maintenance/stop", `{"username":"admin","password":"pw"}`))
	assert.Equal(t, http.StatusOK, health())
}

func TestMaintenanceRequiresConfiguredAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(&config.Config{}, nil)
	router := gin.New()
	router.POST("/maintenance/start", h.StartMaintenance)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/maintenance/start", strings.NewReader(`{"username":"x","password":"y"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, isMaintenanceMode.Load())
}

func TestGetReferenceStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ok := NewAdminHandler(&config.Config{}, stubStatus{status: models.ReferenceStatus{Sheet: "Fallback", Records: 12, Categories: 3}})
	failing := NewAdminHandler(&config.Config{}, stubStatus{err: fmt.Errorf("%w: timeout", services.ErrReferenceUnavailable)})
	router := gin.New()
	router.GET("/ok", ok.GetReferenceStatus)
	router.GET("/failing", failing.GetReferenceStatus)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ok", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sheet":"Fallback","records":12,"categories":3}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/failing", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetLogsPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := services.NewMonitoringService()
	router := gin.New()
	router.GET("/logs", NewMonitoringHandler(svc).GetLogs)

	for _, period := range []string{"1h", "7d", "bogus"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/logs?period="+period, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"estimation"`)
	}
}
