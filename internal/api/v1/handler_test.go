package v1

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"choma/internal/importer"
	"choma/internal/model"
	"choma/internal/service/calculator"
	"choma/internal/service/excel"
	"choma/internal/session"
	"choma/internal/store"
	"choma/internal/submit"
)

var csvHeader = []string{
	"Meal Name",
	"Ingredients (₦)",
	"Packaging (₦)",
	"Delivery (₦)",
	"Platform Fee (₦)",
	"Category",
	"Preparation Time (mins)",
	"Tags",
	"Available",
}

type testEnv struct {
	router   *gin.Engine
	store    *store.Store
	sessions *session.MemoryStore
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "choma.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	engine := calculator.NewEngine(calculator.DefaultCostModel())
	sessions := session.NewMemoryStore(session.DefaultTTL)
	submitter := importer.NewSubmitter(submit.NewStoreBackend(st), st)

	if opts.SubmitMode == "" {
		opts.SubmitMode = "local"
	}
	h := NewHandler(importer.NewCoordinator(engine), sessions, submitter, st, opts)

	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))
	return &testEnv{router: router, store: st, sessions: sessions}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func csvFile(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(csvHeader))
	for _, r := range rows {
		require.NoError(t, w.Write(r))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf.Bytes()
}

func uploadRequest(t *testing.T, path, filename string, content []byte, operator string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if operator != "" {
		req.Header.Set(OperatorHeader, operator)
	}
	return req
}

func withOperator(req *http.Request, operator string) *http.Request {
	if operator != "" {
		req.Header.Set(OperatorHeader, operator)
	}
	return req
}

func previewBatch(t *testing.T, env *testEnv, operator string, rows ...[]string) importer.Preview {
	t.Helper()
	w := env.do(uploadRequest(t, "/api/meals/import/preview", "meals.csv", csvFile(t, rows...), operator))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var p importer.Preview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestPreviewThenConfirm_CreatesMeals(t *testing.T) {
	env := newTestEnv(t, Options{})

	p := previewBatch(t, env, "",
		[]string{"Jollof Rice", "1500", "200", "300", "100", "Lunch", "60", "spicy, rice", "TRUE"},
		[]string{"Zobo Drink", "300", "100", "200", "50", "Beverage", "20", "", "FALSE"},
	)
	require.NotEmpty(t, p.BatchID)
	require.Len(t, p.Rows, 2)
	assert.Equal(t, 2, p.Rows[0].Row)
	assert.Equal(t, 2650.0, p.Rows[0].CookingCost)
	assert.Equal(t, 6610.0, p.Rows[0].TotalPrice)
	assert.Equal(t, model.ComplexityMedium, p.Rows[0].ComplexityLevel)
	assert.Equal(t, calculator.CostModelV2, p.CostModelVersion)

	w := env.do(httptest.NewRequest(http.MethodPost, "/api/meals/import/"+p.BatchID+"/confirm", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result model.UploadResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, model.UploadSucceeded, result.Status)
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Zero(t, result.FailedCount)
	assert.Empty(t, result.Errors)

	count, err := env.store.CountMeals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// 同一批次只能确认一次
	w = env.do(httptest.NewRequest(http.MethodPost, "/api/meals/import/"+p.BatchID+"/confirm", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/meals/import/logs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Logs []model.ImportLog `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs.Logs, 1)
	assert.Equal(t, p.BatchID, logs.Logs[0].BatchID)
	assert.Equal(t, "meals.csv", logs.Logs[0].Filename)
	assert.Equal(t, model.UploadSucceeded, logs.Logs[0].Status)
}

func TestPreview_ValidationFailureStagesNothing(t *testing.T) {
	env := newTestEnv(t, Options{})

	content := csvFile(t,
		[]string{"Jollof Rice", "1500", "200", "300", "100", "Lunch", "60", "", "TRUE"},
		[]string{"Bad Meal", "abc", "200", "300", "100", "Brunch", "60", "", "TRUE"},
	)
	w := env.do(uploadRequest(t, "/api/meals/import/preview", "meals.csv", content, ""))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	var body struct {
		Error  string                  `json:"error"`
		Errors []model.ValidationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Errors, 2)
	assert.Equal(t, 3, body.Errors[0].Row)
	assert.Equal(t, "Ingredients (₦)", body.Errors[0].Field)
	assert.Equal(t, "Category", body.Errors[1].Field)

	_, err := env.sessions.Get(context.Background(), defaultOperator)
	assert.ErrorIs(t, err, session.ErrBatchNotFound)
}

func TestPreview_StructuralErrors(t *testing.T) {
	env := newTestEnv(t, Options{})

	tests := []struct {
		name    string
		content []byte
	}{
		{name: "empty file", content: []byte("  \n")},
		{name: "missing required column", content: []byte("Meal Name,Category\nJollof,Lunch\n")},
		{name: "header only", content: csvFile(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(uploadRequest(t, "/api/meals/import/preview", "meals.csv", tt.content, ""))
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/meals/import/preview", strings.NewReader(""))
	w := env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreview_RejectsOversizedUpload(t *testing.T) {
	env := newTestEnv(t, Options{MaxUploadBytes: 16})

	content := csvFile(t, []string{"Jollof Rice", "1500", "200", "300", "100", "Lunch", "60", "", "TRUE"})
	w := env.do(uploadRequest(t, "/api/meals/import/preview", "meals.csv", content, ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestConfirm_PartialFailureReportsRow(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.store.InsertMeals(context.Background(), []model.Meal{{Name: "Zobo Drink"}})
	require.NoError(t, err)

	p := previewBatch(t, env, "",
		[]string{"Jollof Rice", "1500", "200", "300", "100", "Lunch", "60", "", "TRUE"},
		[]string{"Zobo Drink", "300", "100", "200", "50", "Beverage", "20", "", "FALSE"},
		[]string{"Moi Moi", "800", "100", "200", "50", "Snack", "45", "", ""},
	)

	w := env.do(httptest.NewRequest(http.MethodPost, "/api/meals/import/"+p.BatchID+"/confirm", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result model.UploadResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, model.UploadPartial, result.Status)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
}

func TestCancel_DiscardsStagedBatch(t *testing.T) {
	env := newTestEnv(t, Options{})

	p := previewBatch(t, env, "ops-1",
		[]string{"Jollof Rice", "1500", "200", "300", "100", "Lunch", "60", "", "TRUE"},
	)

	// 其他会话看不到该批次
	w := env.do(withOperator(httptest.NewRequest(http.MethodDelete, "/api/meals/import/"+p.BatchID, nil), "ops-2"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(withOperator(httptest.NewRequest(http.MethodDelete, "/api/meals/import/"+p.BatchID, nil), "ops-1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), string(importer.StageCancelled))

	w = env.do(withOperator(httptest.NewRequest(http.MethodPost, "/api/meals/import/"+p.BatchID+"/confirm", nil), "ops-1"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	count, err := env.store.CountMeals(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPreview_ReplacesEarlierBatchForSameOperator(t *testing.T) {
	env := newTestEnv(t, Options{})

	first := previewBatch(t, env, "", []string{"Jollof Rice", "1500", "200", "300", "100", "Lunch", "60", "", "TRUE"})
	second := previewBatch(t, env, "", []string{"Moi Moi", "800", "100", "200", "50", "Snack", "45", "", ""})
	require.NotEqual(t, first.BatchID, second.BatchID)

	w := env.do(httptest.NewRequest(http.MethodPost, "/api/meals/import/"+first.BatchID+"/confirm", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(httptest.NewRequest(http.MethodPost, "/api/meals/import/"+second.BatchID+"/confirm", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPreviewStream_EmitsStagesAndStagesBatch(t *testing.T) {
	env := newTestEnv(t, Options{})

	content := csvFile(t, []string{"Jollof Rice", "1500", "200", "300", "100", "Lunch", "60", "", "TRUE"})
	w := env.do(uploadRequest(t, "/api/meals/import/preview/stream", "meals.csv", content, ""))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var types []string
	for _, line := range strings.Split(w.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev importer.ProgressEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"start", "parsed", "validated", "transformed", "done"}, types)

	b, err := env.sessions.Get(context.Background(), defaultOperator)
	require.NoError(t, err)
	assert.Equal(t, importer.StageTransformed, b.Stage)
}

func TestPreviewStream_ValidationFailure(t *testing.T) {
	env := newTestEnv(t, Options{})

	content := csvFile(t, []string{"", "1500", "200", "300", "100", "Lunch", "60", "", "TRUE"})
	w := env.do(uploadRequest(t, "/api/meals/import/preview/stream", "meals.csv", content, ""))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"invalid"`)
	assert.NotContains(t, w.Body.String(), `"type":"done"`)

	_, err := env.sessions.Get(context.Background(), defaultOperator)
	assert.ErrorIs(t, err, session.ErrBatchNotFound)
}

func TestDownloadTemplate(t *testing.T) {
	env := newTestEnv(t, Options{TemplateRows: 3})

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/meals/import/template", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), excel.TemplateFilename)

	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, excel.TemplateSheet, wb.GetSheetList()[0])

	rows, err := wb.GetRows(excel.TemplateSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestBulkCreate_AttemptsEveryMeal(t *testing.T) {
	env := newTestEnv(t, Options{})
	engine := calculator.NewEngine(calculator.DefaultCostModel())

	q := engine.Quote(calculator.Inputs{Ingredients: 1500, Packaging: 200, Delivery: 300, PlatformFee: 100, PreparationTime: 60})
	good := model.Meal{Name: "Jollof Rice", CorrelationID: "c-1", Pricing: q.Pricing, ComplexityLevel: q.Complexity}
	blank := model.Meal{Name: "  ", CorrelationID: "c-2", Pricing: q.Pricing}

	payload, err := json.Marshal(model.BulkCreateRequest{Meals: []model.Meal{good, blank}})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/meals/bulk", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.BulkCreateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.Created)
	assert.Equal(t, 1, resp.Summary.Failed)
	require.Len(t, resp.Created, 1)
	assert.Equal(t, "c-1", resp.Created[0].CorrelationID)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "c-2", resp.Errors[0].Meal.CorrelationID)

	req = httptest.NewRequest(http.MethodPost, "/api/meals/bulk", strings.NewReader(`{"meals":[]}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, env.do(req).Code)
}

func TestListMeals(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.store.InsertMeals(context.Background(), []model.Meal{{Name: "A"}, {Name: "B"}, {Name: "C"}})
	require.NoError(t, err)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/meals?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp MealListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.Limit)
	assert.Len(t, resp.Items, 2)
}

func TestPricingEndpoints(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/meals/pricing/model", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var m calculator.CostModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, calculator.DefaultCostModel(), m)

	req := httptest.NewRequest(http.MethodPost, "/api/meals/pricing/quote",
		strings.NewReader(`{"ingredients":1500,"packaging":200,"delivery":300,"platformFee":100,"preparationTime":60}`))
	req.Header.Set("Content-Type", "application/json")
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var q calculator.Quote
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, "2650", q.Pricing.CookingCost.String())
	assert.Equal(t, "6610", q.Pricing.TotalPrice.String())
	assert.Contains(t, w.Body.String(), `"totalPrice":6610`)
	assert.Equal(t, model.ComplexityMedium, q.Complexity)

	req = httptest.NewRequest(http.MethodPost, "/api/meals/pricing/quote", strings.NewReader(`{"ingredients":0,"delivery":-5}`))
	req.Header.Set("Content-Type", "application/json")
	w = env.do(req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var bad struct {
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bad))
	assert.ElementsMatch(t, []string{"ingredients must be greater than 0", "delivery must be 0 or more"}, bad.Details)
}

func TestGetStatus(t *testing.T) {
	env := newTestEnv(t, Options{})

	previewed := previewBatch(t, env, "", []string{"Jollof Rice", "1500", "200", "300", "100", "Lunch", "60", "", "TRUE"})
	w := env.do(httptest.NewRequest(http.MethodPost, "/api/meals/import/"+previewed.BatchID+"/confirm", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "sqlite", status.StorageDriver)
	assert.Equal(t, "local", status.SubmitMode)
	assert.Equal(t, calculator.CostModelV2, status.CostModelVersion)
	assert.Equal(t, int64(1), status.TotalMeals)
	assert.Equal(t, string(model.UploadSucceeded), status.LastImportStatus)
	assert.NotEmpty(t, status.LastImportTime)
}
