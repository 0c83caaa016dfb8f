package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"certhub/backend/internal/dto"
	"certhub/backend/internal/model"
	"certhub/backend/internal/repository"
)

var (
	ErrExportInvalidRange = errors.New("invalid export range, expected from <= to")
	ErrExportNoExams      = errors.New("no exams in the requested range")
	ErrExportGenerateFail = errors.New("generating the Excel file failed")
)

// ExportService renders the exam schedule in downloadable formats.
//
// Both exports return the content as a buffer plus a suggested filename;
// the handler sets the HTTP headers and streams the body.
type ExportService interface {
	// ExportExams renders the exams of [from, to] as an .xlsx workbook.
	ExportExams(ctx context.Context, req *dto.ExamExportRequest) (*bytes.Buffer, string, error)
	// ExportCalendar renders the exams of [from, to] as an iCalendar feed.
	ExportCalendar(ctx context.Context, req *dto.ExamExportRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService creates an ExportService.
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════
// Excel export
// ════════════════════════════════════════════

func (s *exportService) ExportExams(ctx context.Context, req *dto.ExamExportRequest) (*bytes.Buffer, string, error) {
	exams, from, to, err := s.loadRange(ctx, req)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Exam Schedule"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 8)
	f.SetColWidth(sheetName, "C", "C", 10)
	f.SetColWidth(sheetName, "D", "D", 30)
	f.SetColWidth(sheetName, "E", "E", 10)
	f.SetColWidth(sheetName, "F", "F", 24)
	f.SetColWidth(sheetName, "G", "G", 22)
	f.SetColWidth(sheetName, "H", "H", 40)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// title row
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Exam Schedule %s — %s",
		from.Format("2006-01-02"), to.Format("2006-01-02")))
	f.MergeCell(sheetName, "A1", "H1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	headers := []string{"Date", "Time", "Duration", "Session", "Mode", "Location / Link", "Examiner", "Assignment"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}

	row := 3
	for i := range exams {
		exam := &exams[i]

		sessionTitle := exam.SessionID
		if exam.Session != nil {
			sessionTitle = exam.Session.Title
		}
		mode := "on-site"
		place := ""
		if exam.IsOnline {
			mode = "online"
			if exam.OnlineLink != nil {
				place = *exam.OnlineLink
			}
		} else if exam.Location != nil {
			place = *exam.Location
		}
		examiner := "unassigned"
		if exam.AssignedExaminer != nil {
			examiner = exam.AssignedExaminer.Name
		}

		f.SetCellValue(sheetName, cell("A", row), exam.Date.Format("2006-01-02"))
		f.SetCellValue(sheetName, cell("B", row), exam.StartTime)
		f.SetCellValue(sheetName, cell("C", row), fmt.Sprintf("%d min", exam.DurationMinutes))
		f.SetCellValue(sheetName, cell("D", row), sessionTitle)
		f.SetCellValue(sheetName, cell("E", row), mode)
		f.SetCellValue(sheetName, cell("F", row), place)
		f.SetCellValue(sheetName, cell("G", row), examiner)
		f.SetCellValue(sheetName, cell("H", row), exam.AssignmentReason)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("write excel failed", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("exam_schedule_%s_%s.xlsx",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	return buf, filename, nil
}

// ════════════════════════════════════════════
// iCalendar export
// ════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, req *dto.ExamExportRequest) (*bytes.Buffer, string, error) {
	exams, from, to, err := s.loadRange(ctx, req)
	if err != nil {
		return nil, "", err
	}

	content, err := buildExamCalendar(exams)
	if err != nil {
		s.logger.Error("build exam calendar failed", zap.Error(err))
		return nil, "", err
	}

	filename := fmt.Sprintf("exam_schedule_%s_%s.ics",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	return bytes.NewBufferString(content), filename, nil
}

// ── helpers ──

func (s *exportService) loadRange(ctx context.Context, req *dto.ExamExportRequest) ([]model.Exam, time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return nil, time.Time{}, time.Time{}, ErrInvalidExamDate
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		return nil, time.Time{}, time.Time{}, ErrInvalidExamDate
	}
	if to.Before(from) {
		return nil, time.Time{}, time.Time{}, ErrExportInvalidRange
	}

	exams, err := s.repo.Exam.ListBetween(ctx, from, to)
	if err != nil {
		s.logger.Error("list exams for export failed", zap.Error(err))
		return nil, time.Time{}, time.Time{}, err
	}
	if len(exams) == 0 {
		return nil, time.Time{}, time.Time{}, ErrExportNoExams
	}
	return exams, from, to, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
