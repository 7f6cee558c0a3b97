package report

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/common/models"
	"github.com/healthpredictor/platform/pkg/observability/metrics"
)

const (
	eventSource           = "assessment-service"
	defaultPublishTimeout = 2 * time.Second
)

// EventPublisher is satisfied by kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key, eventType, source string, data map[string]interface{}) error
}

// Redactor masks personal identifiers in free text. It is satisfied by
// dlp.Redactor.
type Redactor interface {
	Redact(text string) (string, []string)
}

type Service struct {
	assembler *Assembler
	repo      *Repository
	events    EventPublisher
	redactor  Redactor

	publishTimeout time.Duration
}

type ServiceOption func(*Service)

// WithRedactor masks title and notes on reports opened through a share link.
func WithRedactor(r Redactor) ServiceOption {
	return func(s *Service) {
		s.redactor = r
	}
}

// WithPublishTimeout bounds how long a request waits on the event broker.
func WithPublishTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// NewService wires the report lifecycle. events may be nil.
func NewService(assembler *Assembler, repo *Repository, events EventPublisher, opts ...ServiceOption) *Service {
	s := &Service{assembler: assembler, repo: repo, events: events, publishTimeout: defaultPublishTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Build(in Input) (models.Report, error) {
	return s.assembler.Build(in)
}

// Create persists a built report and announces it.
func (s *Service) Create(ctx context.Context, report *models.Report) error {
	if err := s.assembler.Persist(ctx, report); err != nil {
		metrics.ObservePersistenceFailure()
		logger.Log.WithError(err).WithField("share_token", report.ShareToken.String()).Error("Failed to persist report")
		return err
	}
	metrics.ObserveReportPersisted()

	names := make([]string, 0, len(report.Diseases))
	for _, d := range report.Diseases {
		names = append(names, d.Name)
	}
	data := map[string]interface{}{
		"report_id":  report.ID,
		"status":     string(report.Status),
		"diseases":   names,
		"created_at": report.CreatedAt,
	}
	if report.PatientID != nil {
		data["patient_id"] = *report.PatientID
	}
	s.publish(ctx, report.ID, models.EventReportCreated, data)
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (models.Report, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByToken(ctx context.Context, token uuid.UUID) (models.Report, error) {
	return s.repo.GetByToken(ctx, token)
}

// Shared is the public view of a report reached through its share token.
func (s *Service) Shared(ctx context.Context, token uuid.UUID) (models.Report, error) {
	report, err := s.repo.GetByToken(ctx, token)
	if err != nil || s.redactor == nil {
		return report, err
	}
	var found, more []string
	report.Title, found = s.redactor.Redact(report.Title)
	report.Notes, more = s.redactor.Redact(report.Notes)
	if found = append(found, more...); len(found) > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"report_id": report.ID,
			"types":     found,
		}).Info("Redacted shared report")
	}
	return report, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uint, limit int) ([]models.ReportSummary, error) {
	return s.repo.ListByPatient(ctx, patientID, limit)
}

func (s *Service) UpdateDetails(ctx context.Context, id uint, title, notes string) (models.Report, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Report{}, err
	}
	if title == "" {
		title = current.Title
	}
	if err := s.repo.UpdateDetails(ctx, id, title, notes); err != nil {
		return models.Report{}, err
	}
	return s.repo.Get(ctx, id)
}

// AdvanceStatus applies one transition and publishes it when it changed
// anything.
func (s *Service) AdvanceStatus(ctx context.Context, id uint, to models.ReportStatus) (models.Report, error) {
	from, changed, err := s.repo.AdvanceStatus(ctx, id, to)
	if err != nil {
		return models.Report{}, err
	}
	if changed {
		metrics.ObserveStatusChange()
		s.publish(ctx, id, models.EventReportStatusChanged, map[string]interface{}{
			"report_id": id,
			"from":      string(from),
			"to":        string(to),
		})
	}
	return s.repo.Get(ctx, id)
}

// Share walks the report forward to shared, completing a draft on the way,
// and returns it together with its share path. Sharing twice is harmless.
func (s *Service) Share(ctx context.Context, id uint) (models.Report, string, error) {
	report, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Report{}, "", err
	}
	for _, step := range []models.ReportStatus{models.ReportCompleted, models.ReportShared} {
		if report.Status == step || report.Status == models.ReportShared {
			continue
		}
		if report, err = s.AdvanceStatus(ctx, id, step); err != nil {
			return models.Report{}, "", err
		}
	}
	return report, report.SharePath(), nil
}

func (s *Service) Audit(ctx context.Context, id uint) ([]models.ReportAuditEntry, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Audit(ctx, id)
}

func (s *Service) publish(ctx context.Context, id uint, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.events.PublishEvent(ctx, strconv.FormatUint(uint64(id), 10), eventType, eventSource, data); err != nil {
		metrics.ObservePublishFailure()
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"report_id":  id,
			"event_type": eventType,
		}).Error("failed to publish report event")
	}
}
