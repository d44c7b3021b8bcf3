package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pustak-labs/library-admin-api/internal/models"
	appErrors "github.com/pustak-labs/library-admin-api/pkg/errors"
	"github.com/pustak-labs/library-admin-api/pkg/export"
)

type registerLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

// RegisterExport bundles a rendered register document.
type RegisterExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the active student register as CSV or PDF.
type ExportService struct {
	students registerLister
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(students registerLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		students: students,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

var registerHeaders = []string{"ID", "Name", "Guardian", "Phone", "Sheet No", "Shift", "Month", "Fee", "Admission Date"}

// Register renders the current active register in the given format.
func (s *ExportService) Register(ctx context.Context, format string) (*RegisterExport, error) {
	active := true
	students, err := s.students.List(ctx, models.StudentFilter{Active: &active})
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: registerHeaders, Rows: make([]map[string]string, 0, len(students))}
	for _, st := range students {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":             strconv.FormatInt(st.ID, 10),
			"Name":           st.Name,
			"Guardian":       st.GuardianName,
			"Phone":          st.Phone,
			"Sheet No":       st.SheetNo,
			"Shift":          st.Shift,
			"Month":          st.AdmissionMonth,
			"Fee":            strconv.FormatFloat(st.FeeAmount, 'f', 2, 64),
			"Admission Date": st.AdmissionDate.Format("2006-01-02"),
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case "csv", "":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv register")
		}
		return &RegisterExport{
			Filename:    fmt.Sprintf("student_register_%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case "pdf":
		data, err := s.pdf.Render(dataset, "Student Register")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf register")
		}
		return &RegisterExport{
			Filename:    fmt.Sprintf("student_register_%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
