package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/healthpredictor/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Input is everything a report is built from. Diseases and Remedies must be
// in ranked order; Build preserves it.
type Input struct {
	PatientID *uint
	Title     string
	Notes     string
	Status    models.ReportStatus
	Symptoms  []models.ReportedSymptom
	Diseases  []models.RankedDisease
	Remedies  []models.RankedRemedy
}

type Assembler struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAssembler(db *gorm.DB) *Assembler {
	return &Assembler{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func DefaultTitle(at time.Time) string {
	return "Health Report - " + at.Format("2006-01-02")
}

// Build constructs a report without touching the store. The share token is a
// fresh random UUID and never derives from report content.
func (a *Assembler) Build(in Input) (models.Report, error) {
	status := in.Status
	if status == "" {
		status = models.ReportDraft
	}
	if !status.ValidInitial() {
		return models.Report{}, fmt.Errorf("%w: reports cannot start as %q", ErrInvalidTransition, status)
	}

	token, err := uuid.NewRandom()
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to generate share token: %w", err)
	}

	now := a.now()
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = DefaultTitle(now)
	}

	report := models.Report{
		ShareToken: token,
		PatientID:  in.PatientID,
		Title:      title,
		Notes:      in.Notes,
		Status:     status,
		Symptoms:   make([]models.ReportedSymptom, 0, len(in.Symptoms)),
		Diseases:   make([]models.ReportDisease, 0, len(in.Diseases)),
		Remedies:   make([]models.ReportRemedy, 0, len(in.Remedies)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	report.Symptoms = append(report.Symptoms, in.Symptoms...)
	for i, d := range in.Diseases {
		report.Diseases = append(report.Diseases, models.ReportDisease{
			DiseaseID:  d.Disease.ID,
			Name:       d.Disease.Name,
			Rank:       i + 1,
			MatchScore: d.MatchScore,
		})
	}
	for i, r := range in.Remedies {
		report.Remedies = append(report.Remedies, models.ReportRemedy{
			RemedyID:            r.Remedy.ID,
			Name:                r.Remedy.Name,
			Category:            r.Remedy.Category,
			Rank:                i + 1,
			EffectivenessRating: r.Remedy.EffectivenessRating,
		})
	}
	return report, nil
}

// Persist writes the report, its associations and a creation audit entry in
// one transaction and sets report.ID. A report that already has an ID is
// rejected so each Build is stored at most once.
func (a *Assembler) Persist(ctx context.Context, report *models.Report) error {
	if report.ID != 0 {
		return &PersistenceError{Op: "create", Err: fmt.Errorf("report %d already stored", report.ID)}
	}
	if report.ShareToken == uuid.Nil {
		return &PersistenceError{Op: "create", Err: fmt.Errorf("report has no share token")}
	}

	row := reportModel{
		ShareToken: report.ShareToken,
		PatientID:  report.PatientID,
		Title:      report.Title,
		Notes:      report.Notes,
		Status:     string(report.Status),
		CreatedAt:  report.CreatedAt,
		UpdatedAt:  report.UpdatedAt,
	}

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if len(report.Symptoms) > 0 {
			rows := make([]reportSymptomModel, 0, len(report.Symptoms))
			for i, s := range report.Symptoms {
				rows = append(rows, reportSymptomModel{
					ReportID:  row.ID,
					Position:  i + 1,
					SymptomID: s.SymptomID,
					Severity:  s.Severity,
					Duration:  string(s.Duration),
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if len(report.Diseases) > 0 {
			rows := make([]reportDiseaseModel, 0, len(report.Diseases))
			for _, d := range report.Diseases {
				rows = append(rows, reportDiseaseModel{
					ReportID:   row.ID,
					Rank:       d.Rank,
					DiseaseID:  d.DiseaseID,
					Name:       d.Name,
					MatchScore: d.MatchScore,
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if len(report.Remedies) > 0 {
			rows := make([]reportRemedyModel, 0, len(report.Remedies))
			for _, r := range report.Remedies {
				rows = append(rows, reportRemedyModel{
					ReportID:            row.ID,
					Rank:                r.Rank,
					RemedyID:            r.RemedyID,
					Name:                r.Name,
					Category:            string(r.Category),
					EffectivenessRating: r.EffectivenessRating,
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return tx.Create(&auditLogModel{
			ReportID: row.ID,
			Action:   AuditCreated,
			ToStatus: row.Status,
			Payload: datatypes.JSONMap{
				"share_token": row.ShareToken.String(),
				"diseases":    len(report.Diseases),
				"remedies":    len(report.Remedies),
				"symptoms":    len(report.Symptoms),
			},
			CreatedAt: row.CreatedAt,
		}).Error
	})
	if err != nil {
		return &PersistenceError{Op: "create", Err: err}
	}
	report.ID = row.ID
	return nil
}
