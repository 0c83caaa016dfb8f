package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"certhub/backend/internal/model"
	"certhub/backend/internal/repository"
	pkgerrors "certhub/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%03d", m.seq)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) List(_ context.Context, role string, offset, limit int) ([]model.User, int64, error) {
	var result []model.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			result = append(result, *u)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return pkgerrors.ErrOptimisticLock
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	delete(m.users, id)
	return nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	sessions map[string]*model.TrainingSession
	seq      int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.TrainingSession)}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.TrainingSession) error {
	if session.SessionID == "" {
		m.seq++
		session.SessionID = fmt.Sprintf("session-%03d", m.seq)
	}
	for i := range session.ClassSlots {
		session.ClassSlots[i].SessionID = session.SessionID
	}
	m.sessions[session.SessionID] = session
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.TrainingSession, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) List(_ context.Context, createdBy string, offset, limit int) ([]model.TrainingSession, int64, error) {
	var result []model.TrainingSession
	for _, s := range m.sessions {
		if createdBy == "" || s.CreatedByID == createdBy {
			result = append(result, *s)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockSessionRepo) ListSlotsByCreator(_ context.Context, creatorID, excludeSessionID string) ([]model.ClassSlot, error) {
	var result []model.ClassSlot
	for _, s := range m.sessions {
		if s.CreatedByID != creatorID || s.SessionID == excludeSessionID {
			continue
		}
		result = append(result, s.ClassSlots...)
	}
	return result, nil
}

func (m *mockSessionRepo) Update(_ context.Context, session *model.TrainingSession) error {
	if _, ok := m.sessions[session.SessionID]; !ok {
		return pkgerrors.ErrOptimisticLock
	}
	m.sessions[session.SessionID] = session
	return nil
}

func (m *mockSessionRepo) ReplaceSlots(_ context.Context, sessionID string, slots []model.ClassSlot) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.ClassSlots = slots
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

// ── Mock ExamRepository ──

// mockExamRepo mirrors the capacity guard of the real repository: writes
// carrying an examiner recount the day's exams against the examiner's cap.
type mockExamRepo struct {
	exams map[string]*model.Exam
	users *mockUserRepo
	seq   int
}

func newMockExamRepo(users *mockUserRepo) *mockExamRepo {
	return &mockExamRepo{exams: make(map[string]*model.Exam), users: users}
}

func (m *mockExamRepo) Create(_ context.Context, exam *model.Exam) error {
	if exam.ExamID == "" {
		m.seq++
		exam.ExamID = fmt.Sprintf("exam-%03d", m.seq)
	}
	if exam.Version == 0 {
		exam.Version = 1
	}
	m.exams[exam.ExamID] = exam
	return nil
}

func (m *mockExamRepo) CreateAssigned(ctx context.Context, exam *model.Exam, defaultMaxPerDay int) error {
	if exam.AssignedExaminerID != nil {
		if err := m.capacityCheck(*exam.AssignedExaminerID, exam.Date, defaultMaxPerDay, ""); err != nil {
			return err
		}
	}
	return m.Create(ctx, exam)
}

func (m *mockExamRepo) GetByID(_ context.Context, id string) (*model.Exam, error) {
	if e, ok := m.exams[id]; ok {
		e.AssignedExaminer = nil
		if e.AssignedExaminerID != nil {
			if u, ok := m.users.users[*e.AssignedExaminerID]; ok {
				e.AssignedExaminer = u
			}
		}
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExamRepo) GetBySession(_ context.Context, sessionID string) (*model.Exam, error) {
	for _, e := range m.exams {
		if e.SessionID == sessionID {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExamRepo) ListOnDate(_ context.Context, date time.Time, excludeExamID string) ([]model.Exam, error) {
	var result []model.Exam
	for _, e := range m.exams {
		if e.ExamID == excludeExamID {
			continue
		}
		if sameCalendarDay(e.Date, date) {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockExamRepo) ListBetween(_ context.Context, from, to time.Time) ([]model.Exam, error) {
	var result []model.Exam
	for _, e := range m.exams {
		if !e.Date.Before(from) && !e.Date.After(to) {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockExamRepo) ListByExaminerWithin(_ context.Context, examinerID string, from, to time.Time) ([]model.Exam, error) {
	var result []model.Exam
	for _, e := range m.exams {
		if e.AssignedExaminerID == nil || *e.AssignedExaminerID != examinerID {
			continue
		}
		if !e.Date.Before(truncateToDay(from)) && !e.Date.After(to) {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockExamRepo) List(_ context.Context, date *time.Time, sessionID, examinerID string, offset, limit int) ([]model.Exam, int64, error) {
	var result []model.Exam
	for _, e := range m.exams {
		if date != nil && !sameCalendarDay(e.Date, *date) {
			continue
		}
		if sessionID != "" && e.SessionID != sessionID {
			continue
		}
		if examinerID != "" && (e.AssignedExaminerID == nil || *e.AssignedExaminerID != examinerID) {
			continue
		}
		result = append(result, *e)
	}
	return result, int64(len(result)), nil
}

func (m *mockExamRepo) CountByExaminerOnDate(_ context.Context, examinerID string, date time.Time) (int64, error) {
	var count int64
	for _, e := range m.exams {
		if e.AssignedExaminerID != nil && *e.AssignedExaminerID == examinerID && sameCalendarDay(e.Date, date) {
			count++
		}
	}
	return count, nil
}

func (m *mockExamRepo) Update(_ context.Context, exam *model.Exam, defaultMaxPerDay int) error {
	if _, ok := m.exams[exam.ExamID]; !ok {
		return pkgerrors.ErrOptimisticLock
	}
	if exam.AssignedExaminerID != nil {
		if err := m.capacityCheck(*exam.AssignedExaminerID, exam.Date, defaultMaxPerDay, exam.ExamID); err != nil {
			return err
		}
	}
	exam.Version++
	m.exams[exam.ExamID] = exam
	return nil
}

func (m *mockExamRepo) Reassign(_ context.Context, exam *model.Exam, examinerID, reason string, defaultMaxPerDay int) error {
	if _, ok := m.exams[exam.ExamID]; !ok {
		return pkgerrors.ErrOptimisticLock
	}
	if err := m.capacityCheck(examinerID, exam.Date, defaultMaxPerDay, exam.ExamID); err != nil {
		return err
	}
	exam.AssignedExaminerID = &examinerID
	exam.AssignmentReason = reason
	exam.Version++
	m.exams[exam.ExamID] = exam
	return nil
}

func (m *mockExamRepo) Delete(_ context.Context, id string) error {
	delete(m.exams, id)
	return nil
}

func (m *mockExamRepo) capacityCheck(examinerID string, date time.Time, defaultMaxPerDay int, excludeExamID string) error {
	limit := defaultMaxPerDay
	if u, ok := m.users.users[examinerID]; ok && u.MaxExamsPerDay != nil {
		limit = *u.MaxExamsPerDay
	}
	var count int
	for _, e := range m.exams {
		if e.ExamID == excludeExamID {
			continue
		}
		if e.AssignedExaminerID != nil && *e.AssignedExaminerID == examinerID && sameCalendarDay(e.Date, date) {
			count++
		}
	}
	if count >= limit {
		return pkgerrors.ErrExaminerAtCapacity
	}
	return nil
}

// ── Mock AvailabilityRepository ──

type mockAvailabilityRepo struct {
	windows map[string]*model.AvailabilityWindow
	seq     int
}

func newMockAvailabilityRepo() *mockAvailabilityRepo {
	return &mockAvailabilityRepo{windows: make(map[string]*model.AvailabilityWindow)}
}

func (m *mockAvailabilityRepo) Create(_ context.Context, window *model.AvailabilityWindow) error {
	if window.AvailabilityID == "" {
		m.seq++
		window.AvailabilityID = fmt.Sprintf("window-%03d", m.seq)
	}
	m.windows[window.AvailabilityID] = window
	return nil
}

func (m *mockAvailabilityRepo) GetByID(_ context.Context, id string) (*model.AvailabilityWindow, error) {
	if w, ok := m.windows[id]; ok {
		return w, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAvailabilityRepo) ListByExaminer(_ context.Context, examinerID string) ([]model.AvailabilityWindow, error) {
	var result []model.AvailabilityWindow
	for _, w := range m.windows {
		if w.ExaminerID == examinerID {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (m *mockAvailabilityRepo) ListOverlapping(_ context.Context, examinerID string, from, to time.Time) ([]model.AvailabilityWindow, error) {
	var result []model.AvailabilityWindow
	for _, w := range m.windows {
		if w.ExaminerID == examinerID && w.AvailableFrom.Before(to) && w.AvailableTo.After(from) {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (m *mockAvailabilityRepo) ListCovering(_ context.Context, start, end time.Time) ([]model.AvailabilityWindow, error) {
	var result []model.AvailabilityWindow
	for _, w := range m.windows {
		if !w.AvailableFrom.After(start) && !w.AvailableTo.Before(end) {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (m *mockAvailabilityRepo) Delete(_ context.Context, id string) error {
	delete(m.windows, id)
	return nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	enrollments []*model.Enrollment
	seq         int
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{}
}

func (m *mockEnrollmentRepo) Create(_ context.Context, enrollment *model.Enrollment) error {
	m.seq++
	enrollment.EnrollmentID = fmt.Sprintf("enrollment-%03d", m.seq)
	m.enrollments = append(m.enrollments, enrollment)
	return nil
}

func (m *mockEnrollmentRepo) ListBySession(_ context.Context, sessionID string) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.enrollments {
		if e.SessionID == sessionID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockEnrollmentRepo) Delete(_ context.Context, sessionID, studentID string) error {
	kept := m.enrollments[:0]
	for _, e := range m.enrollments {
		if e.SessionID == sessionID && e.StudentID == studentID {
			continue
		}
		kept = append(kept, e)
	}
	m.enrollments = kept
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications []*model.Notification
	seq           int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, notification *model.Notification) error {
	m.seq++
	notification.NotificationID = fmt.Sprintf("notification-%03d", m.seq)
	m.notifications = append(m.notifications, notification)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.Notification, int64, error) {
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			result = append(result, *n)
		}
	}
	return result, int64(len(result)), nil
}

// ── shared test wiring ──

type testMocks struct {
	users         *mockUserRepo
	sessions      *mockSessionRepo
	exams         *mockExamRepo
	windows       *mockAvailabilityRepo
	enrollments   *mockEnrollmentRepo
	notifications *mockNotificationRepo
}

func newTestRepo() (*repository.Repository, *testMocks) {
	m := &testMocks{
		users:         newMockUserRepo(),
		sessions:      newMockSessionRepo(),
		windows:       newMockAvailabilityRepo(),
		enrollments:   newMockEnrollmentRepo(),
		notifications: newMockNotificationRepo(),
	}
	m.exams = newMockExamRepo(m.users)
	repo := &repository.Repository{
		User:         m.users,
		Session:      m.sessions,
		Exam:         m.exams,
		Availability: m.windows,
		Enrollment:   m.enrollments,
		Notification: m.notifications,
	}
	return repo, m
}

// ── Mock Mailer ──

type mockMailer struct {
	sent []string // "to|subject"
}

func (m *mockMailer) Send(to, subject, _ string) error {
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}
