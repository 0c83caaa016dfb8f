package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"certhub/backend/internal/dto"
)

// stubExamService records scheduling triggers without running the resolver.
type stubExamService struct {
	autoScheduled chan string
	cancelled     []string
}

func newStubExamService() *stubExamService {
	return &stubExamService{autoScheduled: make(chan string, 4)}
}

func (s *stubExamService) Schedule(context.Context, string, *dto.ScheduleExamRequest) (*dto.ExamResponse, error) {
	return nil, nil
}

func (s *stubExamService) Reschedule(context.Context, string, string, *dto.RescheduleExamRequest) (*dto.ExamResponse, error) {
	return nil, nil
}

func (s *stubExamService) Cancel(_ context.Context, _ string, examID string) error {
	s.cancelled = append(s.cancelled, examID)
	return nil
}

func (s *stubExamService) GetByID(context.Context, string) (*dto.ExamResponse, error) {
	return nil, nil
}

func (s *stubExamService) List(context.Context, *dto.ExamListRequest) ([]dto.ExamResponse, int64, error) {
	return nil, 0, nil
}

func (s *stubExamService) AutoScheduleSession(_ context.Context, sessionID string) error {
	s.autoScheduled <- sessionID
	return nil
}

func setupSessionService() (SessionService, *stubExamService, *testMocks) {
	repo, m := newTestRepo()
	stub := newStubExamService()
	svc := NewSessionService(schedulingConfigForTest(), repo, stub, zap.NewNop())
	return svc, stub, m
}

func validCreateRequest() *dto.CreateSessionRequest {
	return &dto.CreateSessionRequest{
		Title:  "Safety Certification A",
		IsLive: true,
		ClassSlots: []dto.ClassSlotRequest{
			{Date: "2024-02-26", Time: "09:00", DurationMinutes: 90},
			{Date: "2024-03-02", Time: "09:00", DurationMinutes: 90},
		},
	}
}

// ── creation ──

func TestSessionCreate_Success(t *testing.T) {
	svc, stub, m := setupSessionService()

	resp, err := svc.Create(context.Background(), "teacher-1", validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(resp.ClassSlots) != 2 {
		t.Errorf("expected 2 class slots, got %d", len(resp.ClassSlots))
	}
	if len(m.sessions.sessions) != 1 {
		t.Errorf("expected 1 stored session, got %d", len(m.sessions.sessions))
	}

	// the post-commit hook must fire for the new session
	select {
	case id := <-stub.autoScheduled:
		if id != resp.ID {
			t.Errorf("auto-schedule triggered for %s, want %s", id, resp.ID)
		}
	case <-time.After(2 * time.Second):
		t.Error("auto-scheduling was not triggered")
	}
}

func TestSessionCreate_RejectsSelfOverlap(t *testing.T) {
	svc, _, _ := setupSessionService()

	req := validCreateRequest()
	req.ClassSlots = []dto.ClassSlotRequest{
		{Date: "2024-02-26", Time: "09:00", DurationMinutes: 90},
		{Date: "2024-02-26", Time: "10:00", DurationMinutes: 60},
	}
	_, err := svc.Create(context.Background(), "teacher-1", req)
	var conflictErr *SlotConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected SlotConflictError, got %v", err)
	}
}

func TestSessionCreate_RejectsCreatorOverlap(t *testing.T) {
	svc, _, _ := setupSessionService()

	if _, err := svc.Create(context.Background(), "teacher-1", validCreateRequest()); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	req := validCreateRequest()
	req.Title = "Another Session"
	req.ClassSlots = []dto.ClassSlotRequest{
		{Date: "2024-02-26", Time: "09:30", DurationMinutes: 30},
	}
	_, err := svc.Create(context.Background(), "teacher-1", req)
	var conflictErr *SlotConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected SlotConflictError against the creator's first session, got %v", err)
	}
}

func TestSessionCreate_OtherCreatorsMayOverlap(t *testing.T) {
	svc, _, _ := setupSessionService()

	if _, err := svc.Create(context.Background(), "teacher-1", validCreateRequest()); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := svc.Create(context.Background(), "teacher-2", validCreateRequest()); err != nil {
		t.Fatalf("a different creator may hold the same slots: %v", err)
	}
}

func TestSessionCreate_SlotValidation(t *testing.T) {
	svc, _, _ := setupSessionService()

	cases := []struct {
		slot dto.ClassSlotRequest
		want error
	}{
		{dto.ClassSlotRequest{Date: "02/26/2024", Time: "09:00", DurationMinutes: 60}, ErrInvalidSlotDate},
		{dto.ClassSlotRequest{Date: "2024-02-26", Time: "9am", DurationMinutes: 60}, ErrInvalidSlotTime},
		{dto.ClassSlotRequest{Date: "2024-02-26", Time: "05:30", DurationMinutes: 60}, ErrSlotOutsideWindow},
		{dto.ClassSlotRequest{Date: "2024-02-26", Time: "18:00", DurationMinutes: 60}, ErrSlotOutsideWindow},
	}
	for _, c := range cases {
		req := validCreateRequest()
		req.ClassSlots = []dto.ClassSlotRequest{c.slot}
		if _, err := svc.Create(context.Background(), "teacher-1", req); !errors.Is(err, c.want) {
			t.Errorf("slot %+v: expected %v, got %v", c.slot, c.want, err)
		}
	}

	// 17:30 is past the manual exam cutoff but fine for a class
	req := validCreateRequest()
	req.ClassSlots = []dto.ClassSlotRequest{{Date: "2024-02-26", Time: "17:30", DurationMinutes: 60}}
	if _, err := svc.Create(context.Background(), "teacher-1", req); err != nil {
		t.Errorf("a 17:30 class start should be accepted: %v", err)
	}
}

// ── update ──

func TestSessionUpdate_ReplaceSlotsExcludesOwnSession(t *testing.T) {
	svc, _, _ := setupSessionService()

	created, err := svc.Create(context.Background(), "teacher-1", validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// moving a slot half an hour still overlaps the session's own old
	// slots, which must not count as a conflict
	resp, err := svc.Update(context.Background(), "teacher-1", created.ID, &dto.UpdateSessionRequest{
		ClassSlots: []dto.ClassSlotRequest{
			{Date: "2024-02-26", Time: "09:30", DurationMinutes: 90},
		},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(resp.ClassSlots) != 1 || resp.ClassSlots[0].Time != "09:30" {
		t.Errorf("slots not replaced: %+v", resp.ClassSlots)
	}
}

func TestSessionUpdate_NotFound(t *testing.T) {
	svc, _, _ := setupSessionService()
	title := "New Title"
	_, err := svc.Update(context.Background(), "teacher-1", "nope", &dto.UpdateSessionRequest{Title: &title})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

// ── exam resolution and deletion ──

func TestSessionGetByID_ResolvesExam(t *testing.T) {
	svc, _, m := setupSessionService()
	addExaminer(m, "ex-a", 1, nil)
	addSession(m, "session-1", "teacher-1", true, "2024-03-02")
	exam := addAssignedExam(m, "ex-a", "2024-03-11", "10:00")
	exam.SessionID = "session-1"

	resp, err := svc.GetByID(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if resp.Exam == nil || resp.Exam.ID != exam.ExamID {
		t.Errorf("expected the session's exam resolved, got %+v", resp.Exam)
	}
}

func TestSessionDelete_CancelsExam(t *testing.T) {
	svc, stub, m := setupSessionService()
	addExaminer(m, "ex-a", 1, nil)
	addSession(m, "session-1", "teacher-1", true, "2024-03-02")
	exam := addAssignedExam(m, "ex-a", "2024-03-11", "10:00")
	exam.SessionID = "session-1"

	if err := svc.Delete(context.Background(), "session-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(m.sessions.sessions) != 0 {
		t.Error("session should be removed")
	}
	if len(stub.cancelled) != 1 || stub.cancelled[0] != exam.ExamID {
		t.Errorf("the session's exam should be cancelled, got %v", stub.cancelled)
	}
}

// ── enrollment ──

func TestSessionEnroll(t *testing.T) {
	svc, _, m := setupSessionService()
	addSession(m, "session-1", "teacher-1", true, "2024-03-02")

	if err := svc.Enroll(context.Background(), "student-1", "session-1"); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	if err := svc.Enroll(context.Background(), "student-1", "session-1"); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Errorf("expected ErrAlreadyEnrolled, got %v", err)
	}
	if err := svc.Enroll(context.Background(), "student-1", "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}
