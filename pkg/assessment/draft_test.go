package assessment

import (
	"testing"

	"github.com/healthpredictor/platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftSelectAppliesDefaults(t *testing.T) {
	var d Draft
	err := d.Select()
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	require.NoError(t, d.Select(3, 1, 3))
	assert.Equal(t, []uint{1, 3}, d.SymptomIDs())
	assert.Equal(t, models.SymptomRating{Severity: 5, Duration: models.DurationDays}, d.Ratings[1])
	assert.NoError(t, d.Validate())

	assert.True(t, IsValidationError(d.Select(4, 0)))
}

func TestDraftReselectKeepsRatings(t *testing.T) {
	var d Draft
	require.NoError(t, d.Select(1, 2))
	require.NoError(t, d.Rate(2, 9, models.DurationWeeks))

	require.NoError(t, d.Select(2, 7))
	assert.Equal(t, []uint{2, 7}, d.SymptomIDs())
	assert.Equal(t, 9, d.Ratings[2].Severity)
	assert.Equal(t, models.DefaultSeverity, d.Ratings[7].Severity)
}

func TestDraftRateValidates(t *testing.T) {
	var d Draft
	require.NoError(t, d.Select(1))

	cases := []struct {
		id       uint
		severity int
		duration models.Duration
	}{
		{1, 0, models.DurationDays},
		{1, 11, models.DurationDays},
		{1, 4, models.Duration("fortnight")},
		{2, 4, models.DurationDays},
	}
	for _, tc := range cases {
		err := d.Rate(tc.id, tc.severity, tc.duration)
		assert.True(t, IsValidationError(err), "%+v", tc)
	}
	assert.Equal(t, models.DefaultSeverity, d.Ratings[1].Severity)

	require.NoError(t, d.Rate(1, 10, models.DurationYears))
	reported := d.Reported(nil)
	assert.Equal(t, []models.ReportedSymptom{{SymptomID: 1, Severity: 10, Duration: models.DurationYears}}, reported)
}

func TestDraftValidate(t *testing.T) {
	var empty Draft
	assert.ErrorIs(t, empty.Validate(), errNoSymptoms)

	d := Draft{Ratings: map[uint]models.SymptomRating{4: {Severity: 12, Duration: models.DurationDays}}}
	assert.ErrorIs(t, d.Validate(), errSeverityRange)

	d.Ratings[4] = models.SymptomRating{Severity: 2, Duration: models.DurationHours}
	d.Status = models.ReportShared
	assert.ErrorIs(t, d.Validate(), errInitialStatus)

	d.Status = models.ReportCompleted
	assert.NoError(t, d.Validate())
}

func TestDraftReportedFilters(t *testing.T) {
	var d Draft
	require.NoError(t, d.Select(5, 2, 9))
	kept := d.Reported(func(id uint) bool { return id != 9 })
	require.Len(t, kept, 2)
	assert.Equal(t, uint(2), kept[0].SymptomID)
	assert.Equal(t, uint(5), kept[1].SymptomID)
}
