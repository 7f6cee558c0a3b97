package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/healthpredictor/platform/pkg/catalog"
	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/common/models"
)

var (
	ErrExportNotImplemented = errors.New("export format not implemented")
	ErrUnsupportedFormat    = errors.New("unsupported export format")
)

// CatalogReader resolves catalog records for export. Missing ids are simply
// absent from the returned maps.
type CatalogReader interface {
	SymptomsByID(ctx context.Context, ids catalog.IDSet) (map[uint]models.Symptom, error)
	DiseasesByID(ctx context.Context, ids catalog.IDSet) (map[uint]models.Disease, error)
	RemediesByID(ctx context.Context, ids catalog.IDSet) (map[uint]models.Remedy, error)
}

type PatientDirectory interface {
	PatientName(ctx context.Context, id uint) (string, error)
}

type Exporter struct {
	catalog  CatalogReader
	patients PatientDirectory
}

// NewExporter builds an exporter. patients may be nil, in which case the
// patient row is left blank.
func NewExporter(catalog CatalogReader, patients PatientDirectory) *Exporter {
	return &Exporter{catalog: catalog, patients: patients}
}

func (e *Exporter) Export(ctx context.Context, w io.Writer, report models.Report, format string) error {
	switch format {
	case "csv":
		return e.WriteCSV(ctx, w, report)
	case "pdf":
		return ErrExportNotImplemented
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// WriteCSV renders a header block followed by the symptom, condition and
// remedy sections, each in stored order. Conditions and remedies use the
// names captured at creation; descriptions come from the live catalog.
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer, report models.Report) error {
	symptomIDs, diseaseIDs, remedyIDs := catalog.NewIDSet(), catalog.NewIDSet(), catalog.NewIDSet()
	for _, s := range report.Symptoms {
		symptomIDs.Add(s.SymptomID)
	}
	for _, d := range report.Diseases {
		diseaseIDs.Add(d.DiseaseID)
	}
	for _, r := range report.Remedies {
		remedyIDs.Add(r.RemedyID)
	}

	symptoms, err := e.catalog.SymptomsByID(ctx, symptomIDs)
	if err != nil {
		return fmt.Errorf("failed to load symptoms: %w", err)
	}
	diseases, err := e.catalog.DiseasesByID(ctx, diseaseIDs)
	if err != nil {
		return fmt.Errorf("failed to load diseases: %w", err)
	}
	remedies, err := e.catalog.RemediesByID(ctx, remedyIDs)
	if err != nil {
		return fmt.Errorf("failed to load remedies: %w", err)
	}

	patient := ""
	if report.PatientID != nil && e.patients != nil {
		if patient, err = e.patients.PatientName(ctx, *report.PatientID); err != nil {
			logger.Log.WithError(err).WithField("patient_id", *report.PatientID).Warn("Exporting report without patient name")
			patient = ""
		}
	}

	cw := csv.NewWriter(w)
	rows := [][]string{
		{"Health Report", report.Title},
		{"Patient", patient},
		{"Date", report.CreatedAt.Format("2006-01-02")},
		{"Status", string(report.Status)},
		{},
		{"Symptoms"},
	}
	for _, s := range report.Symptoms {
		sym, ok := symptoms[s.SymptomID]
		if !ok {
			continue
		}
		rows = append(rows, []string{sym.Name, sym.Description, strconv.Itoa(s.Severity), string(s.Duration)})
	}
	rows = append(rows, []string{}, []string{"Predicted Conditions"})
	for _, d := range report.Diseases {
		rows = append(rows, []string{d.Name, diseases[d.DiseaseID].Description, strconv.FormatFloat(d.MatchScore, 'f', 1, 64)})
	}
	rows = append(rows, []string{}, []string{"Recommended Remedies"})
	for _, r := range report.Remedies {
		rows = append(rows, []string{r.Name, r.Category.Display(), remedies[r.RemedyID].Description})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func ExportFilename(report models.Report, format string) string {
	return "health_report_" + report.ShareToken.String() + "." + format
}
