package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"certhub/backend/internal/dto"
	"certhub/backend/internal/service"
	"certhub/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult   *dto.TokenResponse
	loginErr      error
	refreshResult *dto.TokenResponse
	refreshErr    error
	logoutErr     error
	meResult      *dto.UserResponse
	meErr         error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Refresh(_ context.Context, _ *dto.RefreshRequest) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, _ string) error {
	return m.logoutErr
}
func (m *mockAuthService) Me(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.meResult, m.meErr
}

// ── Mock ExamService ──

type mockExamService struct {
	scheduleResult   *dto.ExamResponse
	scheduleErr      error
	rescheduleResult *dto.ExamResponse
	rescheduleErr    error
	cancelErr        error
	getResult        *dto.ExamResponse
	getErr           error
	listResult       []dto.ExamResponse
	listTotal        int64
	listErr          error
}

func (m *mockExamService) Schedule(_ context.Context, _ string, _ *dto.ScheduleExamRequest) (*dto.ExamResponse, error) {
	return m.scheduleResult, m.scheduleErr
}
func (m *mockExamService) Reschedule(_ context.Context, _, _ string, _ *dto.RescheduleExamRequest) (*dto.ExamResponse, error) {
	return m.rescheduleResult, m.rescheduleErr
}
func (m *mockExamService) Cancel(_ context.Context, _, _ string) error {
	return m.cancelErr
}
func (m *mockExamService) GetByID(_ context.Context, _ string) (*dto.ExamResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockExamService) List(_ context.Context, _ *dto.ExamListRequest) ([]dto.ExamResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockExamService) AutoScheduleSession(_ context.Context, _ string) error {
	return nil
}

// ── Mock AvailabilityService ──

type mockAvailabilityService struct {
	createResult *dto.AvailabilityResponse
	createErr    error
	listResult   []dto.AvailabilityResponse
	listErr      error
	revokeResult *dto.RevocationResponse
	revokeErr    error
	importResult *dto.ImportAvailabilityICSResponse
	importErr    error
}

func (m *mockAvailabilityService) Create(_ context.Context, _ string, _ *dto.CreateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockAvailabilityService) ListByExaminer(_ context.Context, _ string) ([]dto.AvailabilityResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockAvailabilityService) Revoke(_ context.Context, _, _, _ string) (*dto.RevocationResponse, error) {
	return m.revokeResult, m.revokeErr
}
func (m *mockAvailabilityService) ImportICS(_ context.Context, _ string, _ *dto.ImportAvailabilityICSRequest) (*dto.ImportAvailabilityICSResponse, error) {
	return m.importResult, m.importErr
}

// ── Mock SessionService ──

type mockSessionService struct {
	createResult *dto.SessionResponse
	createErr    error
	getResult    *dto.SessionResponse
	getErr       error
	listResult   []dto.SessionResponse
	listTotal    int64
	listErr      error
	updateResult *dto.SessionResponse
	updateErr    error
	deleteErr    error
	enrollErr    error
}

func (m *mockSessionService) Create(_ context.Context, _ string, _ *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockSessionService) GetByID(_ context.Context, _ string) (*dto.SessionResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockSessionService) List(_ context.Context, _ *dto.SessionListRequest) ([]dto.SessionResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockSessionService) Update(_ context.Context, _, _ string, _ *dto.UpdateSessionRequest) (*dto.SessionResponse, error) {
	return m.updateResult, m.updateErr
}
func (m *mockSessionService) Delete(_ context.Context, _ string) error {
	return m.deleteErr
}
func (m *mockSessionService) Enroll(_ context.Context, _, _ string) error {
	return m.enrollErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportExams(_ context.Context, _ *dto.ExamExportRequest) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportCalendar(_ context.Context, _ *dto.ExamExportRequest) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// injectAuth stands in for the JWT middleware.
func injectAuth(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

func serve(method, target string, body io.Reader, register func(*gin.Engine)) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	r := gin.New()
	register(r)
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock)

	w := serve("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "coordinator@certhub.test",
		Password: "Test1234",
	}), func(r *gin.Engine) {
		r.POST("/auth/login", h.Login)
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/login", bytes.NewReader([]byte("invalid json")), func(r *gin.Engine) {
		r.POST("/auth/login", h.Login)
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	w := serve("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "coordinator@certhub.test",
		Password: "wrong-password",
	}), func(r *gin.Engine) {
		r.POST("/auth/login", h.Login)
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_Refresh_Invalid(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrInvalidRefresh})

	w := serve("POST", "/auth/refresh", jsonBody(dto.RefreshRequest{
		RefreshToken: "stale-token",
	}), func(r *gin.Engine) {
		r.POST("/auth/refresh", h.Refresh)
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11002 {
		t.Errorf("expected error code 11002, got %d", resp.Code)
	}
}

func TestAuthHandler_Logout_MissingBearer(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/logout", nil, func(r *gin.Engine) {
		r.POST("/auth/logout", h.Logout)
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExamHandler Tests
// ═══════════════════════════════════════════════════════════

func scheduleExamBody() io.Reader {
	return jsonBody(dto.ScheduleExamRequest{
		SessionID:       "7b0d9c1e-5a3f-4f6b-9b9f-1f2e3d4c5b6a",
		Date:            "2024-03-11",
		Time:            "10:00",
		DurationMinutes: 120,
	})
}

func TestExamHandler_Schedule_Success(t *testing.T) {
	mock := &mockExamService{
		scheduleResult: &dto.ExamResponse{ID: "exam-1", Date: "2024-03-11", Time: "10:00"},
	}
	h := NewExamHandler(mock)

	w := serve("POST", "/exams", scheduleExamBody(), func(r *gin.Engine) {
		r.POST("/exams", injectAuth("coordinator-1", "coordinator"), h.Schedule)
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestExamHandler_Schedule_SlotConflict(t *testing.T) {
	mock := &mockExamService{
		scheduleErr: &service.SlotConflictError{
			Message:   "the requested slot overlaps an existing exam",
			Conflicts: []dto.ExamResponse{{ID: "exam-0"}},
		},
	}
	h := NewExamHandler(mock)

	w := serve("POST", "/exams", scheduleExamBody(), func(r *gin.Engine) {
		r.POST("/exams", injectAuth("coordinator-1", "coordinator"), h.Schedule)
	})

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 14003 {
		t.Errorf("expected error code 14003, got %d", resp.Code)
	}
	if resp.Details == nil {
		t.Error("expected conflicting exams in details")
	}
}

func TestExamHandler_Schedule_OutsideWindow(t *testing.T) {
	mock := &mockExamService{scheduleErr: service.ErrExamOutsideWindow}
	h := NewExamHandler(mock)

	w := serve("POST", "/exams", scheduleExamBody(), func(r *gin.Engine) {
		r.POST("/exams", injectAuth("coordinator-1", "coordinator"), h.Schedule)
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 14001 {
		t.Errorf("expected error code 14001, got %d", resp.Code)
	}
}

func TestExamHandler_Schedule_Unauthenticated(t *testing.T) {
	h := NewExamHandler(&mockExamService{})

	w := serve("POST", "/exams", scheduleExamBody(), func(r *gin.Engine) {
		r.POST("/exams", h.Schedule)
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestExamHandler_Get_NotFound(t *testing.T) {
	h := NewExamHandler(&mockExamService{getErr: service.ErrExamNotFound})

	w := serve("GET", "/exams/missing", nil, func(r *gin.Engine) {
		r.GET("/exams/:id", h.Get)
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 14004 {
		t.Errorf("expected error code 14004, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SessionHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSessionHandler_Create_Success(t *testing.T) {
	mock := &mockSessionService{
		createResult: &dto.SessionResponse{ID: "session-1", Title: "Cloud Practitioner"},
	}
	h := NewSessionHandler(mock)

	w := serve("POST", "/sessions", jsonBody(dto.CreateSessionRequest{
		Title:  "Cloud Practitioner",
		IsLive: true,
		ClassSlots: []dto.ClassSlotRequest{
			{Date: "2024-03-02", Time: "09:00", DurationMinutes: 90},
		},
	}), func(r *gin.Engine) {
		r.POST("/sessions", injectAuth("teacher-1", "teacher"), h.Create)
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestSessionHandler_Enroll_Duplicate(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{enrollErr: service.ErrAlreadyEnrolled})

	w := serve("POST", "/sessions/session-1/enroll", nil, func(r *gin.Engine) {
		r.POST("/sessions/:id/enroll", injectAuth("student-1", "student"), h.Enroll)
	})

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 13005 {
		t.Errorf("expected error code 13005, got %d", resp.Code)
	}
}

func TestSessionHandler_Get_NotFound(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{getErr: service.ErrSessionNotFound})

	w := serve("GET", "/sessions/missing", nil, func(r *gin.Engine) {
		r.GET("/sessions/:id", h.Get)
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AvailabilityHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAvailabilityHandler_Revoke_ReturnsCascade(t *testing.T) {
	mock := &mockAvailabilityService{
		revokeResult: &dto.RevocationResponse{
			Removed: dto.AvailabilityResponse{ID: "window-1"},
			Message: "availability window removed, 1 exams affected",
			Outcomes: []dto.CascadeOutcome{
				{ExamID: "exam-1", Status: dto.CascadeStatusReassigned},
			},
		},
	}
	h := NewAvailabilityHandler(mock)

	w := serve("DELETE", "/availability/window-1", nil, func(r *gin.Engine) {
		r.DELETE("/availability/:id", injectAuth("examiner-1", "examiner"), h.Revoke)
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAvailabilityHandler_Revoke_NotOwner(t *testing.T) {
	h := NewAvailabilityHandler(&mockAvailabilityService{revokeErr: service.ErrNotWindowOwner})

	w := serve("DELETE", "/availability/window-1", nil, func(r *gin.Engine) {
		r.DELETE("/availability/:id", injectAuth("examiner-2", "examiner"), h.Revoke)
	})

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 15004 {
		t.Errorf("expected error code 15004, got %d", resp.Code)
	}
}

func TestAvailabilityHandler_ImportICS_NoInput(t *testing.T) {
	h := NewAvailabilityHandler(&mockAvailabilityService{importErr: service.ErrICSNoInput})

	w := serve("POST", "/availability/import-ics", jsonBody(dto.ImportAvailabilityICSRequest{}), func(r *gin.Engine) {
		r.POST("/availability/import-ics", injectAuth("examiner-1", "examiner"), h.ImportICS)
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 15005 {
		t.Errorf("expected error code 15005, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportExams_SetsDownloadHeaders(t *testing.T) {
	mock := &mockExportService{
		buf:      bytes.NewBufferString("workbook-bytes"),
		filename: "exams_2024-03-01_2024-03-31.xlsx",
	}
	h := NewExportHandler(mock)

	w := serve("GET", "/exams/export?from=2024-03-01&to=2024-03-31", nil, func(r *gin.Engine) {
		r.GET("/exams/export", h.ExportExams)
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != contentTypeXLSX {
		t.Errorf("unexpected content type %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); got == "" {
		t.Error("expected a Content-Disposition header")
	}
}

func TestExportHandler_ExportExams_MissingRange(t *testing.T) {
	h := NewExportHandler(&mockExportService{})

	w := serve("GET", "/exams/export", nil, func(r *gin.Engine) {
		r.GET("/exams/export", h.ExportExams)
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestExportHandler_ExportCalendar_NoExams(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoExams})

	w := serve("GET", "/exams/calendar.ics?from=2024-03-01&to=2024-03-31", nil, func(r *gin.Engine) {
		r.GET("/exams/calendar.ics", h.ExportCalendar)
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 16101 {
		t.Errorf("expected error code 16101, got %d", resp.Code)
	}
}
