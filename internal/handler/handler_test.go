package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alicebob/miniredis/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/assets"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/report"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/store"
)

const (
	testCapacities = `[
		{"resourceGroupId": "A", "dailyCapacities": [8, 8, 8, 8, 8, 8, 8]},
		{"resourceGroupId": "B", "dailyCapacities": [16, 16, 16, 16, 16, 4, 4]}
	]`
	// 1704067200000 为 2024-01-01 00:00 UTC
	testJobs = `{"data": [
		{"Job": 1, "Opr": 10, "resourceGroupId": "A", "plannedStartDate": "1704067200000", "standardProcessTimeHours": 4, "plannedMultiDayBreakdown": null, "scheduledMultiDayBreakdown": null},
		{"Job": 1, "Opr": 20, "resourceGroupId": "B", "plannedStartDate": "1704067200000", "standardProcessTimeHours": 6, "plannedMultiDayBreakdown": [3, 3], "scheduledMultiDayBreakdown": null}
	]}`
)

type fakeRepository struct {
	mu       sync.Mutex
	datasets []domain.Dataset
	err      error
}

func (f *fakeRepository) ReplaceDataset(ds domain.Dataset) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.datasets = append(f.datasets, ds)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	keys      []string
	published []amqp.Publishing
}

func (f *fakePublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

type testEnv struct {
	handler   *Handler
	store     *store.Store
	repo      *fakeRepository
	publisher *fakePublisher
	redis     *miniredis.Miniredis
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Admin.Username = "admin"
	cfg.Admin.Password = "secret"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 3600
	cfg.Calendar.Timezone = "UTC"
	cfg.Upload.MaxSize = 1 << 20
	cfg.Redis.OperationExpiration = 5
	cfg.Redis.ReportExpiration = 60
	cfg.RabbitMQ.Queue = "email_queue"
	cfg.RabbitMQ.PublishTimeout = 5
	return cfg
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.New(fstest.MapFS{
		assets.CapacityDataFile: {Data: []byte(testCapacities)},
		assets.JobDataFile:      {Data: []byte(testJobs)},
	})
	st.Load()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	repo := &fakeRepository{}
	publisher := &fakePublisher{}

	h, err := NewHandler(testConfig(), st, repo, publisher, rdb)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{
		handler:   h,
		store:     st,
		repo:      repo,
		publisher: publisher,
		redis:     mr,
	}
}

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	e.handler.Mux.ServeHTTP(rec, req)

	var resp testResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && rec.Header().Get("Content-Disposition") == "" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username": "admin", "password": "secret"}`))
	rec, resp := e.do(t, req)
	require.True(t, resp.Success, resp.Message)

	for _, c := range rec.Result().Cookies() {
		if c.Name == tokenCookieName {
			return c
		}
	}
	t.Fatal("login did not set the token cookie")
	return nil
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username": "admin", "password": "nope"}`))
	rec, resp := env.do(t, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Success)
	assert.Empty(t, rec.Result().Cookies())
}

func TestGetResourceGroups(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, httptest.NewRequest(http.MethodGet, "/resource-groups", nil))
	require.True(t, resp.Success)

	var data struct {
		ResourceGroups []string `json:"resourceGroups"`
		MaxCapacity    float64  `json:"maxCapacity"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, []string{"A", "B"}, data.ResourceGroups)
	assert.Equal(t, 16.0, data.MaxCapacity)
}

func TestGetHours(t *testing.T) {
	env := newTestEnv(t)

	var data struct {
		Hours float64 `json:"hours"`
	}

	_, resp := env.do(t, httptest.NewRequest(http.MethodGet, "/resource-groups/B/hours?date=2024-01-02", nil))
	require.True(t, resp.Success, resp.Message)
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 3.0, data.Hours)

	_, resp = env.do(t, httptest.NewRequest(http.MethodGet, "/jobs/1/hours?date=2024-01-01&useScheduled=true", nil))
	require.True(t, resp.Success, resp.Message)
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 7.0, data.Hours)

	_, resp = env.do(t, httptest.NewRequest(http.MethodGet, "/jobs/1/hours", nil))
	assert.False(t, resp.Success)

	_, resp = env.do(t, httptest.NewRequest(http.MethodGet, "/jobs/abc/hours?date=2024-01-01", nil))
	assert.False(t, resp.Success)
}

func TestGetWeeklyCapacity(t *testing.T) {
	env := newTestEnv(t)

	// 2024-01-06 为周六
	_, resp := env.do(t, httptest.NewRequest(http.MethodGet, "/capacities/B/weekly?date=2024-01-06", nil))
	require.True(t, resp.Success, resp.Message)

	var data struct {
		Weekday  int     `json:"weekday"`
		Capacity float64 `json:"capacity"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 6, data.Weekday)
	assert.Equal(t, 4.0, data.Capacity)

	_, resp = env.do(t, httptest.NewRequest(http.MethodGet, "/capacities/missing/weekly?date=2024-01-06", nil))
	assert.False(t, resp.Success)
	assert.Equal(t, "资源组不存在", resp.Message)
}

func TestGetReport_CachesByVersion(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, httptest.NewRequest(http.MethodGet, "/report?startDate=2024-01-01&jobId=1", nil))
	require.True(t, resp.Success, resp.Message)

	var rep domain.Report
	require.NoError(t, json.Unmarshal(resp.Data, &rep))
	assert.Equal(t, "2024-01-01", rep.StartDate)
	require.NotNil(t, rep.SelectedJob)
	assert.Equal(t, "1", *rep.SelectedJob)
	require.Len(t, rep.ResourceGroups, 2)
	assert.Len(t, rep.ResourceGroups[0].DailyData, domain.ReportDays)
	assert.Equal(t, 4.0, rep.ResourceGroups[0].DailyData[0].PlannedCapacity)
	assert.Equal(t, 7.0, rep.ResourceGroups[0].DailyData[0].JobUsage["1"].Usage)

	start := rep.ResourceGroups[0].DailyData[0].Date
	id := int64(1)
	key := reportCacheKey(env.store.Version(), report.Options{
		StartDate:     mustDate(t, start),
		SelectedJobID: &id,
	})
	assert.True(t, env.redis.Exists(key))

	// 缓存命中时返回的内容与首次生成的一致
	_, cached := env.do(t, httptest.NewRequest(http.MethodGet, "/report?startDate=2024-01-01&jobId=1", nil))
	require.True(t, cached.Success)
	assert.JSONEq(t, string(resp.Data), string(cached.Data))
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()

	d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	require.NoError(t, err)
	return d
}

func TestGetReport_InvalidQuery(t *testing.T) {
	env := newTestEnv(t)

	for _, query := range []string{"startDate=2024-13-01", "jobId=abc", "useScheduled=maybe"} {
		_, resp := env.do(t, httptest.NewRequest(http.MethodGet, "/report?"+query, nil))
		assert.False(t, resp.Success, query)
	}
}

func TestDownloadReport(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/report/download?startDate=2024-01-01", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), report.ExportFileName)

	var rep domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Nil(t, rep.SelectedJob)
	assert.Len(t, rep.ResourceGroups, 2)
	assert.Contains(t, rec.Body.String(), "\n  \"")
}

func TestMutationsRequireLogin(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, httptest.NewRequest(http.MethodPut, "/capacities", strings.NewReader(`[]`)))
	assert.False(t, resp.Success)
	assert.Equal(t, "用户未登录", resp.Message)

	req := httptest.NewRequest(http.MethodPost, "/dataset/reload", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: "garbage"})
	_, resp = env.do(t, req)
	assert.False(t, resp.Success)
	assert.Equal(t, "无效的令牌", resp.Message)

	assert.Empty(t, env.repo.datasets)
}

func TestReplaceCapacities(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	req := httptest.NewRequest(http.MethodPut, "/capacities", strings.NewReader(`[
		["C", 1, 2, 3, 4, 5, 6, 7],
		{"group": "D", "mon": "x", "tue": 1, "wed": 1, "thu": 1, "fri": 1, "sat": 1, "sun": 1},
		["E", 1, 2]
	]`))
	req.AddCookie(cookie)
	_, resp := env.do(t, req)
	require.True(t, resp.Success, resp.Message)

	assert.Equal(t, []string{"C", "D", "E"}, env.store.ResourceGroups())
	d, ok := env.store.Capacity("D")
	require.True(t, ok)
	assert.Equal(t, []float64{24, 1, 1, 1, 1, 1, 1}, d.DailyCapacities)
	e, ok := env.store.Capacity("E")
	require.True(t, ok)
	assert.Equal(t, domain.DefaultDailyCapacities(), e.DailyCapacities)

	// 作业保持不变，且替换后的数据已持久化
	assert.Len(t, env.store.Snapshot().Jobs, 2)
	require.Len(t, env.repo.datasets, 1)
	assert.Len(t, env.repo.datasets[0].Capacities, 3)
}

func TestReplaceJobs(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	req := httptest.NewRequest(http.MethodPut, "/jobs", strings.NewReader(`[
		{"Job": 5, "Opr": 1, "resourceGroupId": "X", "plannedStartDate": 1704067200000, "standardProcessTimeHours": 2},
		{"Job": "bad", "plannedStartDate": 1704067200000}
	]`))
	req.AddCookie(cookie)
	_, resp := env.do(t, req)
	require.True(t, resp.Success, resp.Message)

	ds := env.store.Snapshot()
	require.Len(t, ds.Jobs, 1)
	assert.Equal(t, int64(5), ds.Jobs[0].Job)
	assert.Equal(t, []string{"X"}, env.store.ResourceGroups())
	require.Len(t, env.repo.datasets, 1)
}

func TestImportJobs_CSV(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "jobs.csv")
	require.NoError(t, err)
	_, err = io.WriteString(part, "Job,Opr,resourceGroupId,plannedStartDate,standardProcessTimeHours,plannedMultiDayBreakdown\n"+
		"7,10,B,1704153600000,6,\"2,4\"\n"+
		"8,10,C,1704153600000,1,\n")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/imports/jobs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	_, resp := env.do(t, req)
	require.True(t, resp.Success, resp.Message)

	ds := env.store.Snapshot()
	require.Len(t, ds.Jobs, 2)
	assert.Equal(t, []float64{2, 4}, ds.Jobs[0].PlannedMultiDayBreakdown)
	assert.Nil(t, ds.Jobs[1].PlannedMultiDayBreakdown)
	assert.Equal(t, []string{"B", "C"}, env.store.ResourceGroups())
}

func TestImportCapacities_UnsupportedFile(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "capacities.txt")
	require.NoError(t, err)
	_, err = io.WriteString(part, "A,1,2,3,4,5,6,7\n")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/imports/capacities", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	_, resp := env.do(t, req)

	assert.False(t, resp.Success)
	assert.Equal(t, []string{"A", "B"}, env.store.ResourceGroups())
}

func TestMailReport(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	req := httptest.NewRequest(http.MethodPost, "/report/mail", strings.NewReader(`{"to": "planner@example.com", "startDate": "2024-01-01", "jobId": 1}`))
	req.AddCookie(cookie)
	_, resp := env.do(t, req)
	require.True(t, resp.Success, resp.Message)

	require.Len(t, env.publisher.published, 1)
	assert.Equal(t, "email_queue", env.publisher.keys[0])

	var msg domain.MailMessage
	require.NoError(t, json.Unmarshal(env.publisher.published[0].Body, &msg))
	assert.Equal(t, domain.MailTypeCapacityReport, msg.Type)
	assert.Equal(t, "planner@example.com", msg.To)

	var data domain.CapacityReportMailData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "admin", data.RequestedBy)
	assert.Equal(t, "2024-01-01", data.StartDate)
	assert.Equal(t, 2, data.ResourceGroups)

	var rep domain.Report
	require.NoError(t, json.Unmarshal(data.Report, &rep))
	assert.Len(t, rep.ResourceGroups, 2)
}

func TestMailReport_InvalidAddress(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	req := httptest.NewRequest(http.MethodPost, "/report/mail", strings.NewReader(`{"to": "not-an-address"}`))
	req.AddCookie(cookie)
	_, resp := env.do(t, req)

	assert.False(t, resp.Success)
	assert.Empty(t, env.publisher.published)
}

func TestMutations_FailedSaveKeepsData(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.repo.err = errors.New("connection refused")
	version := env.store.Version()

	requests := []*http.Request{
		httptest.NewRequest(http.MethodPut, "/capacities", strings.NewReader(`[["Z", 1, 1, 1, 1, 1, 1, 1]]`)),
		httptest.NewRequest(http.MethodPut, "/jobs", strings.NewReader(`[{"Job": 9, "resourceGroupId": "Z", "plannedStartDate": 1704067200000}]`)),
		httptest.NewRequest(http.MethodPost, "/dataset/reload", nil),
	}
	for _, req := range requests {
		req.AddCookie(cookie)
		rec, resp := env.do(t, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code, req.URL.Path)
		assert.False(t, resp.Success)
	}

	assert.Equal(t, []string{"A", "B"}, env.store.ResourceGroups())
	assert.Len(t, env.store.Snapshot().Jobs, 2)
	assert.Equal(t, version, env.store.Version())
}
