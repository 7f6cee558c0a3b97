package assessment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/healthpredictor/platform/pkg/common/models"
)

var (
	errNoSymptoms      = errors.New("select at least one symptom")
	errInvalidSymptom  = errors.New("symptom id must be positive")
	errNotSelected     = errors.New("symptom is not part of the selection")
	errSeverityRange   = fmt.Errorf("severity must be between %d and %d", models.MinSeverity, models.MaxSeverity)
	errInvalidDuration = errors.New("duration must be one of hours, days, weeks, months, years")
	errInitialStatus   = errors.New("status must be draft or completed")
	errTitleTooLong    = errors.New("title must be at most 200 characters")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

func invalid(format string, args ...interface{}) error {
	return ValidationError{reason: fmt.Errorf(format, args...)}
}

// Draft is an assessment in progress. It is owned by the caller and carried
// between the selection, rating and submission steps; nothing about it is
// held by the service.
type Draft struct {
	PatientID *uint
	Title     string
	Notes     string
	// Status is the report's initial status; empty means draft.
	Status models.ReportStatus
	// Persist stores the report even without an owning patient.
	Persist bool
	Ratings map[uint]models.SymptomRating
}

// Select replaces the selection. Symptoms already rated keep their rating,
// new ones start at the default severity and duration.
func (d *Draft) Select(ids ...uint) error {
	if len(ids) == 0 {
		return ValidationError{reason: errNoSymptoms}
	}
	next := make(map[uint]models.SymptomRating, len(ids))
	for _, id := range ids {
		if id == 0 {
			return ValidationError{reason: errInvalidSymptom}
		}
		if rating, ok := d.Ratings[id]; ok {
			next[id] = rating
			continue
		}
		next[id] = models.SymptomRating{Severity: models.DefaultSeverity, Duration: models.DefaultDuration}
	}
	d.Ratings = next
	return nil
}

// Rate records how bad a selected symptom is and for how long it has lasted.
func (d *Draft) Rate(id uint, severity int, duration models.Duration) error {
	if _, ok := d.Ratings[id]; !ok {
		return invalid("symptom %d: %w", id, errNotSelected)
	}
	rating := models.SymptomRating{Severity: severity, Duration: duration}
	if err := validateRating(rating); err != nil {
		return invalid("symptom %d: %w", id, err)
	}
	d.Ratings[id] = rating
	return nil
}

func (d *Draft) Validate() error {
	if len(d.Ratings) == 0 {
		return ValidationError{reason: errNoSymptoms}
	}
	for _, id := range d.SymptomIDs() {
		if id == 0 {
			return ValidationError{reason: errInvalidSymptom}
		}
		if err := validateRating(d.Ratings[id]); err != nil {
			return invalid("symptom %d: %w", id, err)
		}
	}
	if d.Status != "" && !d.Status.ValidInitial() {
		return ValidationError{reason: errInitialStatus}
	}
	if len(d.Title) > 200 {
		return ValidationError{reason: errTitleTooLong}
	}
	return nil
}

// SymptomIDs returns the selection in ascending id order.
func (d *Draft) SymptomIDs() []uint {
	ids := make([]uint, 0, len(d.Ratings))
	for id := range d.Ratings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Reported lists the rated symptoms accepted by keep, in ascending id order.
func (d *Draft) Reported(keep func(id uint) bool) []models.ReportedSymptom {
	out := make([]models.ReportedSymptom, 0, len(d.Ratings))
	for _, id := range d.SymptomIDs() {
		if keep != nil && !keep(id) {
			continue
		}
		rating := d.Ratings[id]
		out = append(out, models.ReportedSymptom{SymptomID: id, Severity: rating.Severity, Duration: rating.Duration})
	}
	return out
}

func validateRating(r models.SymptomRating) error {
	if r.Severity < models.MinSeverity || r.Severity > models.MaxSeverity {
		return errSeverityRange
	}
	if !r.Duration.Valid() {
		return errInvalidDuration
	}
	return nil
}
