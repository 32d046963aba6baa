package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/attendance/model"
	"axiapac.com/attendance/attendance/workbook"
	"axiapac.com/attendance/security"
	"axiapac.com/attendance/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slackSecret = "8f742231b10e8888abcd99yyyzzz85a5"

var apiSecret = []byte("api-secret")

type testServer struct {
	router *gin.Engine
	svc    *attendance.Service
	wb     *workbook.Workbook
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	wb, err := workbook.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { wb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := attendance.NewService(wb, wb, attendance.NewDeduplicator(100), attendance.ServiceOptions{Logger: logger})

	token, err := security.CreateIdentityToken(security.Identity{Name: "payroll"}, apiSecret, time.Hour)
	require.NoError(t, err)

	router := NewRouter(Options{
		Service:            svc,
		Events:             wb,
		Summaries:          wb,
		APISecret:          apiSecret,
		SlackSigningSecret: slackSecret,
		Location:           utils.BrisbaneTZ,
		Logger:             logger,
	})
	return &testServer{router: router, svc: svc, wb: wb, token: token}
}

func (s *testServer) api(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) slack(body string, secret string) *httptest.ResponseRecorder {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":" + body))

	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func messageCallback(eventID, user, text, ts string) string {
	return fmt.Sprintf(`{
		"token": "legacy",
		"team_id": "T1",
		"api_app_id": "A1",
		"type": "event_callback",
		"event_id": %q,
		"event_time": 1714521600,
		"event": {"type": "message", "channel": "C1", "user": %q, "text": %q, "ts": %q, "channel_type": "channel"}
	}`, eventID, user, text, ts)
}

// 2024-05-01 09:00:00 +10:00
const nineAM = "1714518000.000100"

func TestPing(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSlackURLVerification(t *testing.T) {
	s := newTestServer(t)

	w := s.slack(`{"token":"legacy","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P","type":"url_verification"}`, slackSecret)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P", w.Body.String())
}

func TestSlackRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)

	w := s.slack(messageCallback("Ev1", "U1", "#entry", nineAM), "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewBufferString("{}"))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSlackMessageIsRecorded(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	w := s.slack(messageCallback("Ev1", "U1", "morning #entry", nineAM), slackSecret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"recorded"`)

	// retry of the same delivery
	w = s.slack(messageCallback("Ev1", "U1", "morning #entry", nineAM), slackSecret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"duplicate"`)

	s.svc.Wait()

	events, err := s.wb.QueryByDay(ctx, "2024-05-01", "U1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "09:00:00", events[0].Time)
	assert.Equal(t, model.SourceSlack, events[0].Source)
	assert.Equal(t, nineAM, events[0].Reference)

	summary, err := s.wb.FindSummary(ctx, "2024-05-01", "U1")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "09:00", model.FormatClock(summary.EntryTime))
}

func TestSlackIgnoresChatterAndBots(t *testing.T) {
	s := newTestServer(t)

	w := s.slack(messageCallback("Ev1", "U1", "good morning", nineAM), slackSecret)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"ignored"`)

	bot := `{"type":"event_callback","event_id":"Ev2","event":{"type":"message","channel":"C1","bot_id":"B1","text":"#entry","ts":"1714518000.000200"}}`
	w = s.slack(bot, slackSecret)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"ignored"`)

	edit := `{"type":"event_callback","event_id":"Ev3","event":{"type":"message","subtype":"message_changed","channel":"C1","ts":"1714518000.000300"}}`
	w = s.slack(edit, slackSecret)
	assert.Equal(t, http.StatusOK, w.Code)

	s.svc.Wait()
	employees, err := s.wb.EmployeesOnDay(context.Background(), "2024-05-01")
	require.NoError(t, err)
	assert.Empty(t, employees)
}

func TestCreateEvent(t *testing.T) {
	s := newTestServer(t)

	w := s.api(http.MethodPost, "/api/attendance/v1/events", EventRequest{
		EventID: "e1", Date: "2024-05-01", Time: "09:00", EmployeeKey: "U1", Keyword: "#entry",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"recorded"`)

	w = s.api(http.MethodPost, "/api/attendance/v1/events", EventRequest{
		EventID: "e1", Date: "2024-05-01", Time: "09:00", EmployeeKey: "U1", Keyword: "ENTRY",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"duplicate"`)

	w = s.api(http.MethodPost, "/api/attendance/v1/events", EventRequest{
		EventID: "e2", Date: "2024-05-01", Time: "18:00", EmployeeKey: "U1", Text: "#exit",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	s.svc.Wait()

	w = s.api(http.MethodGet, "/api/attendance/v1/events?date=2024-05-01&employee=U1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []model.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Data, 2)

	w = s.api(http.MethodGet, "/api/attendance/v1/summaries/2024-05-01/U1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Data model.DailySummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 540, got.Data.TotalPresenceMinutes)
}

func TestCreateEventValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		req     EventRequest
		status  int
		message string
	}{
		{name: "Missing keyword and text", req: EventRequest{EventID: "e1", Date: "2024-05-01", Time: "09:00", EmployeeKey: "U1"}, status: http.StatusBadRequest, message: "keyword"},
		{name: "Bad date", req: EventRequest{EventID: "e1", Date: "1/5/2024", Time: "09:00", EmployeeKey: "U1", Text: "#entry"}, status: http.StatusBadRequest, message: "date"},
		{name: "Unknown keyword", req: EventRequest{EventID: "e1", Date: "2024-05-01", Time: "09:00", EmployeeKey: "U1", Keyword: "NAP"}, status: http.StatusBadRequest, message: "unknown keyword"},
		{name: "Malformed time", req: EventRequest{EventID: "e1", Date: "2024-05-01", Time: "9am", EmployeeKey: "U1", Text: "#entry"}, status: http.StatusUnprocessableEntity, message: "malformed time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.api(http.MethodPost, "/api/attendance/v1/events", tt.req)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)
	s.token = "garbage"

	w := s.api(http.MethodGet, "/api/attendance/v1/events?date=2024-05-01&employee=U1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetSummaryNotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.api(http.MethodGet, "/api/attendance/v1/summaries/2024-05-01/U9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.api(http.MethodGet, "/api/attendance/v1/summaries/yesterday/U9", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchAndRecompute(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	for _, in := range []attendance.Inbound{
		{EventID: "a", Date: "2024-05-01", Time: "09:00", EmployeeKey: "U1", Text: "#entry"},
		{EventID: "b", Date: "2024-05-01", Time: "08:00", EmployeeKey: "U2", Text: "#entry"},
		{EventID: "c", Date: "2024-05-02", Time: "08:00", EmployeeKey: "U1", Text: "#entry"},
	} {
		_, _, err := s.svc.Record(ctx, in)
		require.NoError(t, err)
	}

	w := s.api(http.MethodPost, "/api/attendance/v1/summaries/recompute", RecomputeParams{Date: "2024-05-01"})
	require.Equal(t, http.StatusOK, w.Code)
	var recomputed struct {
		Data attendance.ReconcileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recomputed))
	assert.Equal(t, []string{"U1", "U2"}, recomputed.Data.Recomputed)

	w = s.api(http.MethodPost, "/api/attendance/v1/summaries/recompute", RecomputeParams{Date: "2024-05-02", Employees: []string{"U1"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.api(http.MethodPost, "/api/attendance/v1/summaries/search?limit=2", SearchParams{StartDate: "2024-05-01", EndDate: "2024-05-31"})
	require.Equal(t, http.StatusOK, w.Code)
	var search struct {
		Data       []model.DailySummary `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &search))
	assert.Len(t, search.Data, 2)
	assert.EqualValues(t, 3, search.Pagination.Total)

	// non-positive limits fall back to the default page size
	w = s.api(http.MethodPost, "/api/attendance/v1/summaries/search?limit=-5&offset=-1", SearchParams{StartDate: "2024-05-01", EndDate: "2024-05-31"})
	require.Equal(t, http.StatusOK, w.Code)
	var clamped struct {
		Data       []model.DailySummary `json:"data"`
		Pagination struct {
			Total  int64 `json:"total"`
			Limit  int   `json:"limit"`
			Offset int   `json:"offset"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &clamped))
	assert.Len(t, clamped.Data, 3)
	assert.Equal(t, 1000, clamped.Pagination.Limit)
	assert.Zero(t, clamped.Pagination.Offset)

	w = s.api(http.MethodPost, "/api/attendance/v1/summaries/search", SearchParams{StartDate: "2024-05-31", EndDate: "2024-05-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type downStore struct{ *workbook.Workbook }

func (downStore) Append(context.Context, *model.Event) (bool, error) {
	return false, errors.New("connection refused")
}

func TestSlackStoreFailureAsksForRetry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	wb, err := workbook.Open("")
	require.NoError(t, err)
	defer wb.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := attendance.NewService(downStore{wb}, wb, nil, attendance.ServiceOptions{Logger: logger})
	s := &testServer{
		router: NewRouter(Options{Service: svc, Events: wb, Summaries: wb, SlackSigningSecret: slackSecret, Logger: logger}),
		svc:    svc,
		wb:     wb,
	}

	w := s.slack(messageCallback("Ev1", "U1", "#entry", nineAM), slackSecret)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// API is not mounted without a secret
	w = s.api(http.MethodGet, "/api/attendance/v1/events?date=2024-05-01&employee=U1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
