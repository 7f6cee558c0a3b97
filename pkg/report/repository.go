package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/healthpredictor/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&reportModel{},
		&reportSymptomModel{},
		&reportDiseaseModel{},
		&reportRemedyModel{},
		&auditLogModel{},
	)
}

func (r *Repository) Get(ctx context.Context, id uint) (models.Report, error) {
	return r.load(ctx, "id = ?", id)
}

// GetByToken looks a report up by its share token alone.
func (r *Repository) GetByToken(ctx context.Context, token uuid.UUID) (models.Report, error) {
	return r.load(ctx, "share_token = ?", token)
}

// load reads the report row and its associations in one transaction so a
// concurrent writer cannot be observed half way.
func (r *Repository) load(ctx context.Context, query string, arg interface{}) (models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row reportModel
		if err := tx.Where(query, arg).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		report = row.toModel()

		var symptoms []reportSymptomModel
		if err := tx.Where("report_id = ?", row.ID).Order("position").Find(&symptoms).Error; err != nil {
			return err
		}
		for _, s := range symptoms {
			report.Symptoms = append(report.Symptoms, models.ReportedSymptom{
				SymptomID: s.SymptomID,
				Severity:  s.Severity,
				Duration:  models.Duration(s.Duration),
			})
		}

		var diseases []reportDiseaseModel
		if err := tx.Where("report_id = ?", row.ID).Order("rank").Find(&diseases).Error; err != nil {
			return err
		}
		for _, d := range diseases {
			report.Diseases = append(report.Diseases, models.ReportDisease{
				DiseaseID:  d.DiseaseID,
				Name:       d.Name,
				Rank:       d.Rank,
				MatchScore: d.MatchScore,
			})
		}

		var remedies []reportRemedyModel
		if err := tx.Where("report_id = ?", row.ID).Order("rank").Find(&remedies).Error; err != nil {
			return err
		}
		for _, rem := range remedies {
			report.Remedies = append(report.Remedies, models.ReportRemedy{
				RemedyID:            rem.RemedyID,
				Name:                rem.Name,
				Category:            models.RemedyCategory(rem.Category),
				Rank:                rem.Rank,
				EffectivenessRating: rem.EffectivenessRating,
			})
		}
		return nil
	})
	if err != nil {
		return models.Report{}, err
	}
	return report, nil
}

// ListByPatient returns a patient's reports, newest first, without their
// associations.
func (r *Repository) ListByPatient(ctx context.Context, patientID uint, limit int) ([]models.ReportSummary, error) {
	return r.summaries(ctx, r.db.WithContext(ctx).Where("patient_id = ?", patientID), limit)
}

func (r *Repository) Recent(ctx context.Context, limit int) ([]models.ReportSummary, error) {
	return r.summaries(ctx, r.db.WithContext(ctx), limit)
}

func (r *Repository) summaries(_ context.Context, query *gorm.DB, limit int) ([]models.ReportSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []reportModel
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.ReportSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toSummary())
	}
	return out, nil
}

// UpdateDetails edits the free-text fields. Status, token and associations
// are left untouched.
func (r *Repository) UpdateDetails(ctx context.Context, id uint, title, notes string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&reportModel{}).Where("id = ?", id).Updates(map[string]interface{}{
			"title":      title,
			"notes":      notes,
			"updated_at": time.Now().UTC(),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(&auditLogModel{
			ReportID:  id,
			Action:    AuditUpdated,
			Payload:   datatypes.JSONMap{"title": title},
			CreatedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return &PersistenceError{Op: "update", Err: err}
	}
	return err
}

// AdvanceStatus moves a report one step along draft -> completed -> shared.
// The update is conditional on the status read, so two racing writers cannot
// both apply a transition. Requesting the current status is a no-op and
// reports changed=false.
func (r *Repository) AdvanceStatus(ctx context.Context, id uint, to models.ReportStatus) (from models.ReportStatus, changed bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row reportModel
		if err := tx.Select("id", "status").First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		from = models.ReportStatus(row.Status)
		if !from.CanAdvanceTo(to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		if from == to {
			return nil
		}

		now := time.Now().UTC()
		result := tx.Model(&reportModel{}).
			Where("id = ? AND status = ?", id, string(from)).
			Updates(map[string]interface{}{"status": string(to), "updated_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: status of report %d changed concurrently", ErrInvalidTransition, id)
		}
		changed = true
		return tx.Create(&auditLogModel{
			ReportID:   id,
			Action:     AuditStatusChanged,
			FromStatus: string(from),
			ToStatus:   string(to),
			CreatedAt:  now,
		}).Error
	})
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidTransition) {
		return from, false, &PersistenceError{Op: "status change", Err: err}
	}
	return from, changed, err
}

func (r *Repository) Audit(ctx context.Context, id uint) ([]models.ReportAuditEntry, error) {
	var rows []auditLogModel
	if err := r.db.WithContext(ctx).Where("report_id = ?", id).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.ReportAuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&reportModel{}).Count(&n).Error
	return n, err
}

// CreatedSince returns creation times of reports made at or after since.
// Bucketing happens in Go so the query stays portable.
func (r *Repository) CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).
		Model(&reportModel{}).
		Where("created_at >= ?", since).
		Order("created_at").
		Pluck("created_at", &times).Error
	return times, err
}

// TopDiseases counts how often each disease was predicted across reports.
func (r *Repository) TopDiseases(ctx context.Context, limit int) ([]models.DiseaseCount, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []models.DiseaseCount
	err := r.db.WithContext(ctx).
		Model(&reportDiseaseModel{}).
		Select("name, COUNT(*) AS count").
		Group("name").
		Order("count DESC, name").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
