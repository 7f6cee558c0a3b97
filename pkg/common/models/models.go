package models

import (
	"time"

	"github.com/google/uuid"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // report.created, report.status_changed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

const (
	EventReportCreated       = "report.created"
	EventReportStatusChanged = "report.status_changed"
)

// Catalog reference data
type Symptom struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	SeverityLevel int     `json:"severity_level"`
	BodyPart      *string `json:"body_part,omitempty"`
}

type Disease struct {
	ID             uint    `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	SeverityLevel  int     `json:"severity_level"`
	CommonAgeGroup *string `json:"common_age_group,omitempty"`
	SymptomIDs     []uint  `json:"symptom_ids"`
}

type RemedyCategory string

const (
	RemedyNatural   RemedyCategory = "NATURAL"
	RemedyYoga      RemedyCategory = "YOGA"
	RemedyDiet      RemedyCategory = "DIET"
	RemedyLifestyle RemedyCategory = "LIFESTYLE"
)

func (c RemedyCategory) Valid() bool {
	switch c {
	case RemedyNatural, RemedyYoga, RemedyDiet, RemedyLifestyle:
		return true
	}
	return false
}

func (c RemedyCategory) Display() string {
	switch c {
	case RemedyNatural:
		return "Natural Remedy"
	case RemedyYoga:
		return "Yoga Practice"
	case RemedyDiet:
		return "Dietary Recommendation"
	case RemedyLifestyle:
		return "Lifestyle Change"
	}
	return string(c)
}

type Remedy struct {
	ID                  uint           `json:"id"`
	Name                string         `json:"name"`
	Category            RemedyCategory `json:"category"`
	Description         string         `json:"description"`
	Instructions        string         `json:"instructions"`
	Contraindications   *string        `json:"contraindications,omitempty"`
	EffectivenessRating int            `json:"effectiveness_rating"`
	DiseaseIDs          []uint         `json:"disease_ids"`
	SymptomIDs          []uint         `json:"symptom_ids"`
}

// Assessment input
type Duration string

const (
	DurationHours  Duration = "hours"
	DurationDays   Duration = "days"
	DurationWeeks  Duration = "weeks"
	DurationMonths Duration = "months"
	DurationYears  Duration = "years"
)

func (d Duration) Valid() bool {
	switch d {
	case DurationHours, DurationDays, DurationWeeks, DurationMonths, DurationYears:
		return true
	}
	return false
}

const (
	MinSeverity     = 1
	MaxSeverity     = 10
	DefaultSeverity = 5
	DefaultDuration = DurationDays
)

type SymptomRating struct {
	Severity int      `json:"severity"`
	Duration Duration `json:"duration"`
}

type ReportedSymptom struct {
	SymptomID uint     `json:"symptom_id"`
	Severity  int      `json:"severity"`
	Duration  Duration `json:"duration"`
}

// Ranking output
type RankedDisease struct {
	Disease    Disease `json:"disease"`
	MatchScore float64 `json:"match_score"`
}

type RankedRemedy struct {
	Remedy         Remedy `json:"remedy"`
	MatchedDisease bool   `json:"matched_disease"`
	MatchedSymptom bool   `json:"matched_symptom"`
}

// Reports
type ReportStatus string

const (
	ReportDraft     ReportStatus = "draft"
	ReportCompleted ReportStatus = "completed"
	ReportShared    ReportStatus = "shared"
)

func (s ReportStatus) rank() int {
	switch s {
	case ReportDraft:
		return 0
	case ReportCompleted:
		return 1
	case ReportShared:
		return 2
	}
	return -1
}

func (s ReportStatus) Valid() bool {
	return s.rank() >= 0
}

// ValidInitial reports whether a report may be created in this status.
func (s ReportStatus) ValidInitial() bool {
	return s == ReportDraft || s == ReportCompleted
}

// CanAdvanceTo allows exactly one forward step; staying put is a no-op and
// is reported as allowed.
func (s ReportStatus) CanAdvanceTo(next ReportStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	diff := next.rank() - s.rank()
	return diff == 0 || diff == 1
}

type ReportDisease struct {
	DiseaseID  uint    `json:"disease_id"`
	Name       string  `json:"name"`
	Rank       int     `json:"rank"`
	MatchScore float64 `json:"match_score"`
}

type ReportRemedy struct {
	RemedyID            uint           `json:"remedy_id"`
	Name                string         `json:"name"`
	Category            RemedyCategory `json:"category"`
	Rank                int            `json:"rank"`
	EffectivenessRating int            `json:"effectiveness_rating"`
}

type Report struct {
	ID         uint              `json:"id"`
	ShareToken uuid.UUID         `json:"share_token"`
	PatientID  *uint             `json:"patient_id,omitempty"`
	Title      string            `json:"title"`
	Symptoms   []ReportedSymptom `json:"symptoms"`
	Diseases   []ReportDisease   `json:"predicted_diseases"`
	Remedies   []ReportRemedy    `json:"recommended_remedies"`
	Notes      string            `json:"notes"`
	Status     ReportStatus      `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (r Report) SharePath() string {
	return "/shared/" + r.ShareToken.String()
}

type ReportAuditEntry struct {
	ID         uint                   `json:"id"`
	ReportID   uint                   `json:"report_id"`
	Action     string                 `json:"action"`
	FromStatus ReportStatus           `json:"from_status,omitempty"`
	ToStatus   ReportStatus           `json:"to_status,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Patients
type Patient struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Age            int       `json:"age"`
	Gender         string    `json:"gender"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Address        string    `json:"address,omitempty"`
	MedicalHistory string    `json:"medical_history,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type PatientRequest struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	MedicalHistory string `json:"medical_history,omitempty"`
}

// Dashboard
type DiseaseCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type ReportSummary struct {
	ID        uint         `json:"id"`
	Title     string       `json:"title"`
	PatientID *uint        `json:"patient_id,omitempty"`
	Status    ReportStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

type Dashboard struct {
	PatientCount   int64           `json:"patient_count"`
	ReportCount    int64           `json:"report_count"`
	SymptomCount   int64           `json:"symptom_count"`
	RecentReports  []ReportSummary `json:"recent_reports"`
	CommonDiseases []DiseaseCount  `json:"common_diseases"`
	ChartLabels    []string        `json:"chart_labels"`
	ChartData      []int64         `json:"chart_data"`
}
