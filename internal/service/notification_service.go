package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"certhub/backend/config"
	"certhub/backend/internal/model"
	"certhub/backend/internal/repository"
)

// Mailer delivers a single message. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(to, subject, body string) error
}

// NewSMTPMailer builds the gomail-backed Mailer. Returns nil when mail
// dispatch is disabled; the notifier records undelivered notifications in
// that case.
func NewSMTPMailer(cfg *config.MailConfig) Mailer {
	if !cfg.Enabled {
		return nil
	}
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

// Notifier dispatches exam lifecycle notifications. Every call is
// best-effort: failures are logged and recorded, never returned, so a
// notification problem cannot fail or roll back a scheduling operation.
type Notifier interface {
	ExamScheduled(ctx context.Context, exam *model.Exam)
	ExamRescheduled(ctx context.Context, exam *model.Exam)
	ExamReassigned(ctx context.Context, exam *model.Exam)
	ExamCancelled(ctx context.Context, exam *model.Exam, reason string)
}

type notifier struct {
	repo   *repository.Repository
	mailer Mailer
	logger *zap.Logger
}

// NewNotifier creates the repository-backed Notifier. Recipients are
// resolved per exam: the requester, the assigned examiner when present, and
// the session's enrolled students.
func NewNotifier(repo *repository.Repository, mailer Mailer, logger *zap.Logger) Notifier {
	return &notifier{repo: repo, mailer: mailer, logger: logger}
}

func (n *notifier) ExamScheduled(ctx context.Context, exam *model.Exam) {
	subject := "Exam scheduled"
	body := fmt.Sprintf("An exam has been scheduled on %s at %s (%d minutes). %s",
		exam.Date.Format("2006-01-02"), exam.StartTime, exam.DurationMinutes, exam.AssignmentReason)
	n.dispatch(ctx, exam, "exam_scheduled", subject, body)
}

func (n *notifier) ExamRescheduled(ctx context.Context, exam *model.Exam) {
	subject := "Exam rescheduled"
	body := fmt.Sprintf("The exam has been moved to %s at %s (%d minutes). %s",
		exam.Date.Format("2006-01-02"), exam.StartTime, exam.DurationMinutes, exam.AssignmentReason)
	n.dispatch(ctx, exam, "exam_rescheduled", subject, body)
}

func (n *notifier) ExamReassigned(ctx context.Context, exam *model.Exam) {
	subject := "Exam examiner changed"
	body := fmt.Sprintf("The exam on %s at %s has a new examiner. %s",
		exam.Date.Format("2006-01-02"), exam.StartTime, exam.AssignmentReason)
	n.dispatch(ctx, exam, "exam_reassigned", subject, body)
}

func (n *notifier) ExamCancelled(ctx context.Context, exam *model.Exam, reason string) {
	subject := "Exam cancelled"
	body := fmt.Sprintf("The exam scheduled on %s at %s has been cancelled: %s.",
		exam.Date.Format("2006-01-02"), exam.StartTime, reason)
	n.dispatch(ctx, exam, "exam_cancelled", subject, body)
}

// dispatch resolves recipients and delivers to each independently; one
// recipient's failure does not stop the others.
func (n *notifier) dispatch(ctx context.Context, exam *model.Exam, ntype, subject, body string) {
	for _, recipient := range n.resolveRecipients(ctx, exam) {
		n.deliver(ctx, recipient, exam, ntype, subject, body)
	}
}

func (n *notifier) resolveRecipients(ctx context.Context, exam *model.Exam) []model.User {
	var recipients []model.User
	seen := make(map[string]bool)

	add := func(u *model.User) {
		if u == nil || seen[u.UserID] {
			return
		}
		seen[u.UserID] = true
		recipients = append(recipients, *u)
	}

	requester, err := n.repo.User.GetByID(ctx, exam.CreatedByID)
	if err != nil {
		n.logger.Warn("resolve requester failed",
			zap.String("user_id", exam.CreatedByID), zap.Error(err))
	}
	add(requester)

	if exam.AssignedExaminerID != nil {
		examiner, err := n.repo.User.GetByID(ctx, *exam.AssignedExaminerID)
		if err != nil {
			n.logger.Warn("resolve examiner failed",
				zap.String("user_id", *exam.AssignedExaminerID), zap.Error(err))
		}
		add(examiner)
	}

	enrollments, err := n.repo.Enrollment.ListBySession(ctx, exam.SessionID)
	if err != nil {
		n.logger.Warn("resolve enrolled students failed",
			zap.String("session_id", exam.SessionID), zap.Error(err))
	}
	for i := range enrollments {
		add(enrollments[i].Student)
	}

	return recipients
}

func (n *notifier) deliver(ctx context.Context, recipient model.User, exam *model.Exam, ntype, subject, body string) {
	delivered := false
	if n.mailer != nil {
		if err := n.mailer.Send(recipient.Email, subject, body); err != nil {
			n.logger.Error("send notification mail failed",
				zap.String("to", recipient.Email),
				zap.String("type", ntype),
				zap.Error(err))
		} else {
			delivered = true
		}
	}

	relatedType := "exam"
	record := &model.Notification{
		UserID:      recipient.UserID,
		Type:        ntype,
		Subject:     subject,
		Body:        body,
		Delivered:   delivered,
		RelatedType: &relatedType,
		RelatedID:   &exam.ExamID,
	}
	if err := n.repo.Notification.Create(ctx, record); err != nil {
		n.logger.Error("persist notification record failed",
			zap.String("user_id", recipient.UserID),
			zap.String("type", ntype),
			zap.Error(err))
	}
}
