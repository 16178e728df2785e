package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gopanel/app"
	"gopanel/domain/core"
	"gopanel/internal/config"
	"gopanel/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func scenarioCSV() string {
	var b strings.Builder
	b.WriteString("id,year,x,y\n")
	a := map[string]float64{"A": 1, "B": 5, "C": 3}
	for _, e := range []string{"A", "B", "C"} {
		for i, x := range []float64{1, 2, 4, 3} {
			fmt.Fprintf(&b, "%s,%d,%g,%g\n", e, 2020+i, x, a[e]+2*x)
		}
	}
	return b.String()
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.GinMode = "test"
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, app.NewAnalysisService(cfg.Analysis))
}

func uploadRequest(t *testing.T, filename, content string, fields map[string][]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyses", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

var scenarioFields = map[string][]string{
	"entity": {"id"},
	"time":   {"year"},
	"y":      {"y"},
	"x":      {"x"},
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestHealth(t *testing.T) {
	rec := serve(newTestServer(t, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateAnalysisAndFetchArtifacts(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, uploadRequest(t, "panel.csv", scenarioCSV(), scenarioFields))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		RunID      string `json:"run_id"`
		Wooldridge struct {
			Statistic *float64 `json:"statistic"`
		} `json:"wooldridge"`
		Interpretations app.Interpretations `json:"interpretations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	_, err := core.ParseRunID(created.RunID)
	require.NoError(t, err)
	assert.Nil(t, created.Wooldridge.Statistic)
	assert.Equal(t, app.InterpretInconclusive, created.Interpretations.Wooldridge)

	base := "/api/analyses/" + created.RunID

	rec = serve(s, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.RunID)

	rec = serve(s, httptest.NewRequest(http.MethodGet, base+"/report.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), created.RunID)
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	assert.Len(t, f.GetSheetList(), 6)
	require.NoError(t, f.Close())

	rec = serve(s, httptest.NewRequest(http.MethodGet, base+"/summary", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<table>")

	rec = serve(s, httptest.NewRequest(http.MethodGet, base+"/summary?format=md", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Panel analysis"))
}

func TestCreateAnalysis_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string][]string
		status   int
		code     string
	}{
		{"missing file", "", "", scenarioFields, http.StatusBadRequest, errors.CodeInvalidInput},
		{"header only", "panel.csv", "id,year,x,y\n", scenarioFields, http.StatusBadRequest, errors.CodeInvalidInput},
		{"unknown column", "panel.csv", scenarioCSV(), map[string][]string{
			"entity": {"id"}, "time": {"year"}, "y": {"gdp"}, "x": {"x"},
		}, http.StatusBadRequest, errors.CodeInvalidSelection},
		{"dependent among regressors", "panel.csv", scenarioCSV(), map[string][]string{
			"entity": {"id"}, "time": {"year"}, "y": {"y"}, "x": {"x,y"},
		}, http.StatusBadRequest, errors.CodeInvalidSelection},
		{"too few rows", "panel.csv", "id,year,x,y\nA,1,1,2\nA,2,2,\nB,1,3,4\n", scenarioFields,
			http.StatusUnprocessableEntity, errors.CodeInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, uploadRequest(t, tt.filename, tt.content, tt.fields))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
	assert.Zero(t, s.reports.Len())
}

func TestCreateAnalysis_UploadLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.Limits.MaxUploadMB = 0 })
	rec := serve(s, uploadRequest(t, "panel.csv", scenarioCSV(), scenarioFields))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetAnalysis_NotFound(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/api/analyses/nope", "/api/analyses/nope/report.xlsx", "/api/analyses/nope/summary"} {
		rec := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, errors.CodeNotFound, errorCode(t, rec))
	}
}

func TestSelectionFromForm_SplitsRegressors(t *testing.T) {
	s := newTestServer(t, nil)
	var got []string
	s.router.POST("/echo", func(c *gin.Context) {
		got = selectionFromForm(c).Model.Independents
	})
	req := uploadRequest(t, "", "", map[string][]string{"x": {"a, b", "c", " "}})
	req.URL.Path = "/echo"
	serve(s, req)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestReportCache_EvictsOldest(t *testing.T) {
	c := newReportCache(2)
	ids := make([]string, 3)
	for i := range ids {
		r := &app.AnalysisReport{RunID: core.NewRunID()}
		ids[i] = r.RunID.String()
		c.Put(r)
	}
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ids[0])
	assert.False(t, ok)
	for _, id := range ids[1:] {
		_, ok := c.Get(id)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, newReportCache(0).capacity)
}
