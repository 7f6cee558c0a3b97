package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/healthpredictor/platform/pkg/common/models"
	"gorm.io/datatypes"
)

var (
	ErrNotFound          = errors.New("report not found")
	ErrInvalidTransition = errors.New("invalid report status transition")
)

// PersistenceError marks a failed write. Nothing from the failed call is
// visible to readers and it is never retried automatically.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("report %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

const (
	AuditCreated       = "created"
	AuditStatusChanged = "status_changed"
	AuditUpdated       = "updated"
)

type reportModel struct {
	ID         uint      `gorm:"primaryKey;column:id"`
	ShareToken uuid.UUID `gorm:"column:share_token;type:uuid;uniqueIndex;not null"`
	PatientID  *uint     `gorm:"column:patient_id;index"`
	Title      string    `gorm:"column:title;size:200;not null"`
	Notes      string    `gorm:"column:notes;type:text"`
	Status     string    `gorm:"column:status;size:20;not null;index"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (reportModel) TableName() string { return "reports" }

type reportSymptomModel struct {
	ID        uint   `gorm:"primaryKey;column:id"`
	ReportID  uint   `gorm:"column:report_id;index;not null"`
	Position  int    `gorm:"column:position"`
	SymptomID uint   `gorm:"column:symptom_id;not null"`
	Severity  int    `gorm:"column:severity"`
	Duration  string `gorm:"column:duration;size:10"`
}

func (reportSymptomModel) TableName() string { return "report_symptoms" }

// Disease and remedy rows copy name, score and rating so a stored report
// reads back the same after the catalog changes.
type reportDiseaseModel struct {
	ID         uint    `gorm:"primaryKey;column:id"`
	ReportID   uint    `gorm:"column:report_id;index;not null"`
	Rank       int     `gorm:"column:rank"`
	DiseaseID  uint    `gorm:"column:disease_id;index;not null"`
	Name       string  `gorm:"column:name;size:100"`
	MatchScore float64 `gorm:"column:match_score"`
}

func (reportDiseaseModel) TableName() string { return "report_diseases" }

type reportRemedyModel struct {
	ID                  uint   `gorm:"primaryKey;column:id"`
	ReportID            uint   `gorm:"column:report_id;index;not null"`
	Rank                int    `gorm:"column:rank"`
	RemedyID            uint   `gorm:"column:remedy_id;not null"`
	Name                string `gorm:"column:name;size:100"`
	Category            string `gorm:"column:category;size:20"`
	EffectivenessRating int    `gorm:"column:effectiveness_rating"`
}

func (reportRemedyModel) TableName() string { return "report_remedies" }

type auditLogModel struct {
	ID         uint              `gorm:"primaryKey;column:id"`
	ReportID   uint              `gorm:"column:report_id;index;not null"`
	Action     string            `gorm:"column:action;size:30"`
	FromStatus string            `gorm:"column:from_status;size:20"`
	ToStatus   string            `gorm:"column:to_status;size:20"`
	Payload    datatypes.JSONMap `gorm:"column:payload"`
	CreatedAt  time.Time         `gorm:"column:created_at"`
}

func (auditLogModel) TableName() string { return "report_audit_logs" }

func (m reportModel) toModel() models.Report {
	return models.Report{
		ID:         m.ID,
		ShareToken: m.ShareToken,
		PatientID:  m.PatientID,
		Title:      m.Title,
		Notes:      m.Notes,
		Status:     models.ReportStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		Symptoms:   []models.ReportedSymptom{},
		Diseases:   []models.ReportDisease{},
		Remedies:   []models.ReportRemedy{},
	}
}

func (m reportModel) toSummary() models.ReportSummary {
	return models.ReportSummary{
		ID:        m.ID,
		Title:     m.Title,
		PatientID: m.PatientID,
		Status:    models.ReportStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

func (m auditLogModel) toModel() models.ReportAuditEntry {
	return models.ReportAuditEntry{
		ID:         m.ID,
		ReportID:   m.ReportID,
		Action:     m.Action,
		FromStatus: models.ReportStatus(m.FromStatus),
		ToStatus:   models.ReportStatus(m.ToStatus),
		Payload:    map[string]interface{}(m.Payload),
		CreatedAt:  m.CreatedAt,
	}
}
