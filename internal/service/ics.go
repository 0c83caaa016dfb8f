package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"certhub/backend/internal/model"
)

// ── iCalendar support ──
//
// Two directions: examiner availability can be imported from an RFC 5545
// feed (each VEVENT becomes one availability window), and the exam schedule
// can be exported as a calendar.

const (
	icsMaxFeedSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
)

var (
	ErrICSNoInput = errors.New("either an ICS URL or inline content is required")
	ErrICSInvalid = errors.New("calendar content could not be parsed")
)

// icsInterval is one imported [from, to) window.
type icsInterval struct {
	from time.Time
	to   time.Time
}

// fetchICS downloads a calendar feed, capping the response size.
func fetchICS(ctx context.Context, rawURL string) (string, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("fetch ics feed: %w", err)
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch ics feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch ics feed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, icsMaxFeedSize))
	if err != nil {
		return "", fmt.Errorf("read ics feed: %w", err)
	}
	return string(data), nil
}

// parseAvailabilityICS extracts the [start, end) interval of every VEVENT.
// Events without a usable start or end are skipped, not errors.
func parseAvailabilityICS(content string) ([]icsInterval, error) {
	cal, err := ics.ParseCalendar(strings.NewReader(content))
	if err != nil {
		return nil, ErrICSInvalid
	}

	var intervals []icsInterval
	for _, evt := range cal.Events() {
		start, err := parseICSStamp(evt, ics.ComponentPropertyDtStart)
		if err != nil {
			continue
		}
		end, err := parseICSStamp(evt, ics.ComponentPropertyDtEnd)
		if err != nil {
			continue
		}
		if !end.After(start) {
			continue
		}
		intervals = append(intervals, icsInterval{from: start.UTC(), to: end.UTC()})
	}
	return intervals, nil
}

// parseICSStamp reads one datetime property, honoring a TZID parameter.
func parseICSStamp(evt *ics.VEvent, propName ics.ComponentProperty) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
	}
	for _, layout := range formats {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t, nil
		}
		loc := time.UTC
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				loc = tzLoc
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("unparseable datetime %q", val)
}

// buildExamCalendar serializes exams as an iCalendar document.
func buildExamCalendar(exams []model.Exam) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//certhub//exam schedule//EN")

	now := time.Now().UTC()
	for i := range exams {
		exam := &exams[i]
		start, err := combineDateTime(exam.Date, exam.StartTime)
		if err != nil {
			return "", err
		}
		end := start.Add(time.Duration(exam.DurationMinutes) * time.Minute)

		evt := cal.AddEvent(fmt.Sprintf("exam-%s@certhub", exam.ExamID))
		evt.SetCreatedTime(now)
		evt.SetDtStampTime(now)
		evt.SetStartAt(start)
		evt.SetEndAt(end)

		summary := "Certification exam"
		if exam.Session != nil {
			summary = fmt.Sprintf("Exam: %s", exam.Session.Title)
		}
		evt.SetSummary(summary)

		if exam.IsOnline {
			if exam.OnlineLink != nil {
				evt.SetLocation(*exam.OnlineLink)
			}
		} else if exam.Location != nil {
			evt.SetLocation(*exam.Location)
		}
		evt.SetDescription(exam.AssignmentReason)
	}

	return cal.Serialize(), nil
}
