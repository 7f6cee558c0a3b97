package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/healthpredictor/platform/pkg/common/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("catalog entry not found")

const defaultSearchLimit = 20

// Store is the read contract the prediction and recommendation stages rely on.
// Results are ordered by ascending catalog id.
type Store interface {
	DiseasesWithAnySymptom(ctx context.Context, symptomIDs IDSet) ([]models.Disease, error)
	RemediesMatching(ctx context.Context, diseaseIDs, symptomIDs IDSet) ([]models.Remedy, error)
}

type Repository struct {
	db       *gorm.DB
	snapshot *sql.TxOptions
}

type Option func(*Repository)

// WithSnapshotIsolation makes LoadSnapshot read every table inside one
// repeatable-read transaction. SQLite does not accept the isolation level, so
// it is opt-in for PostgreSQL deployments.
func WithSnapshotIsolation() Option {
	return func(r *Repository) {
		r.snapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
}

func NewRepository(db *gorm.DB, opts ...Option) *Repository {
	r := &Repository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&symptomModel{},
		&diseaseModel{},
		&remedyModel{},
	)
}

type linkRow struct {
	OwnerID  uint
	TargetID uint
}

// links returns target ids per owner from a join table, ascending on both.
// A nil owners slice loads the entire table.
func links(ctx context.Context, db *gorm.DB, table, ownerCol, targetCol string, owners []uint) (map[uint][]uint, error) {
	query := db.WithContext(ctx).
		Table(table).
		Select(fmt.Sprintf("%s AS owner_id, %s AS target_id", ownerCol, targetCol)).
		Order(ownerCol + ", " + targetCol)
	if owners != nil {
		if len(owners) == 0 {
			return map[uint][]uint{}, nil
		}
		query = query.Where(ownerCol+" IN ?", owners)
	}
	var rows []linkRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}
	out := make(map[uint][]uint, len(rows))
	for _, row := range rows {
		out[row.OwnerID] = append(out[row.OwnerID], row.TargetID)
	}
	return out, nil
}

func (r *Repository) DiseasesWithAnySymptom(ctx context.Context, symptomIDs IDSet) ([]models.Disease, error) {
	if symptomIDs.Len() == 0 {
		return nil, nil
	}
	sub := r.db.Table("disease_symptoms").Select("disease_id").Where("symptom_id IN ?", symptomIDs.Sorted())

	var rows []diseaseModel
	if err := r.db.WithContext(ctx).Where("id IN (?)", sub).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query diseases: %w", err)
	}
	return r.buildDiseases(ctx, r.db, rows)
}

func (r *Repository) RemediesMatching(ctx context.Context, diseaseIDs, symptomIDs IDSet) ([]models.Remedy, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if diseaseIDs.Len() > 0 {
		clauses = append(clauses, "id IN (?)")
		args = append(args, r.db.Table("remedy_diseases").Select("remedy_id").Where("disease_id IN ?", diseaseIDs.Sorted()))
	}
	if symptomIDs.Len() > 0 {
		clauses = append(clauses, "id IN (?)")
		args = append(args, r.db.Table("remedy_symptoms").Select("remedy_id").Where("symptom_id IN ?", symptomIDs.Sorted()))
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	var rows []remedyModel
	if err := r.db.WithContext(ctx).Where(strings.Join(clauses, " OR "), args...).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query remedies: %w", err)
	}
	return r.buildRemedies(ctx, r.db, rows)
}

func (r *Repository) buildDiseases(ctx context.Context, db *gorm.DB, rows []diseaseModel) ([]models.Disease, error) {
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	symptoms, err := links(ctx, db, "disease_symptoms", "disease_id", "symptom_id", ids)
	if err != nil {
		return nil, err
	}
	diseases := make([]models.Disease, 0, len(rows))
	for _, row := range rows {
		diseases = append(diseases, row.toModel(symptoms[row.ID]))
	}
	return diseases, nil
}

func (r *Repository) buildRemedies(ctx context.Context, db *gorm.DB, rows []remedyModel) ([]models.Remedy, error) {
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	diseases, err := links(ctx, db, "remedy_diseases", "remedy_id", "disease_id", ids)
	if err != nil {
		return nil, err
	}
	symptoms, err := links(ctx, db, "remedy_symptoms", "remedy_id", "symptom_id", ids)
	if err != nil {
		return nil, err
	}
	remedies := make([]models.Remedy, 0, len(rows))
	for _, row := range rows {
		remedies = append(remedies, row.toModel(diseases[row.ID], symptoms[row.ID]))
	}
	return remedies, nil
}

// ListSymptoms returns every symptom grouped by body part, then by name.
func (r *Repository) ListSymptoms(ctx context.Context) ([]models.Symptom, error) {
	var rows []symptomModel
	if err := r.db.WithContext(ctx).Order("body_part, name").Find(&rows).Error; err != nil {
		return nil, err
	}
	return symptomsFromRows(rows), nil
}

// SearchSymptoms matches keyword against name or description without regard
// to case, optionally narrowed to one body part.
func (r *Repository) SearchSymptoms(ctx context.Context, keyword, bodyPart string, limit int) ([]models.Symptom, error) {
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}
	query := r.db.WithContext(ctx).Model(&symptomModel{})
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		pattern := "%" + strings.ToLower(keyword) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if bodyPart = strings.TrimSpace(bodyPart); bodyPart != "" {
		query = query.Where("body_part = ?", bodyPart)
	}
	var rows []symptomModel
	if err := query.Order("name").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return symptomsFromRows(rows), nil
}

func (r *Repository) BodyParts(ctx context.Context) ([]string, error) {
	var parts []string
	err := r.db.WithContext(ctx).
		Model(&symptomModel{}).
		Where("body_part IS NOT NULL AND body_part <> ''").
		Distinct("body_part").
		Order("body_part").
		Pluck("body_part", &parts).Error
	if err != nil {
		return nil, err
	}
	return parts, nil
}

func (r *Repository) GetSymptom(ctx context.Context, id uint) (models.Symptom, error) {
	var row symptomModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Symptom{}, ErrNotFound
		}
		return models.Symptom{}, err
	}
	return row.toModel(), nil
}

// SymptomsByID returns the symptoms that still exist, keyed by id.
func (r *Repository) SymptomsByID(ctx context.Context, ids IDSet) (map[uint]models.Symptom, error) {
	out := make(map[uint]models.Symptom, ids.Len())
	if ids.Len() == 0 {
		return out, nil
	}
	var rows []symptomModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids.Sorted()).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.toModel()
	}
	return out, nil
}

func (r *Repository) DiseasesByID(ctx context.Context, ids IDSet) (map[uint]models.Disease, error) {
	out := make(map[uint]models.Disease, ids.Len())
	if ids.Len() == 0 {
		return out, nil
	}
	var rows []diseaseModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids.Sorted()).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	diseases, err := r.buildDiseases(ctx, r.db, rows)
	if err != nil {
		return nil, err
	}
	for _, d := range diseases {
		out[d.ID] = d
	}
	return out, nil
}

func (r *Repository) RemediesByID(ctx context.Context, ids IDSet) (map[uint]models.Remedy, error) {
	out := make(map[uint]models.Remedy, ids.Len())
	if ids.Len() == 0 {
		return out, nil
	}
	var rows []remedyModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids.Sorted()).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	remedies, err := r.buildRemedies(ctx, r.db, rows)
	if err != nil {
		return nil, err
	}
	for _, rem := range remedies {
		out[rem.ID] = rem
	}
	return out, nil
}

type Counts struct {
	Symptoms int64 `json:"symptoms"`
	Diseases int64 `json:"diseases"`
	Remedies int64 `json:"remedies"`
}

func (r *Repository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := r.db.WithContext(ctx)
	if err := db.Model(&symptomModel{}).Count(&c.Symptoms).Error; err != nil {
		return Counts{}, err
	}
	if err := db.Model(&diseaseModel{}).Count(&c.Diseases).Error; err != nil {
		return Counts{}, err
	}
	if err := db.Model(&remedyModel{}).Count(&c.Remedies).Error; err != nil {
		return Counts{}, err
	}
	return c, nil
}

// LoadSnapshot reads the whole catalog and its associations into memory.
func (r *Repository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var (
			symptomRows []symptomModel
			diseaseRows []diseaseModel
			remedyRows  []remedyModel
		)
		if err := tx.Order("id").Find(&symptomRows).Error; err != nil {
			return fmt.Errorf("failed to load symptoms: %w", err)
		}
		if err := tx.Order("id").Find(&diseaseRows).Error; err != nil {
			return fmt.Errorf("failed to load diseases: %w", err)
		}
		if err := tx.Order("id").Find(&remedyRows).Error; err != nil {
			return fmt.Errorf("failed to load remedies: %w", err)
		}

		diseaseSymptoms, err := links(ctx, tx, "disease_symptoms", "disease_id", "symptom_id", nil)
		if err != nil {
			return err
		}
		remedyDiseases, err := links(ctx, tx, "remedy_diseases", "remedy_id", "disease_id", nil)
		if err != nil {
			return err
		}
		remedySymptoms, err := links(ctx, tx, "remedy_symptoms", "remedy_id", "symptom_id", nil)
		if err != nil {
			return err
		}

		diseases := make([]models.Disease, 0, len(diseaseRows))
		for _, row := range diseaseRows {
			diseases = append(diseases, row.toModel(diseaseSymptoms[row.ID]))
		}
		remedies := make([]models.Remedy, 0, len(remedyRows))
		for _, row := range remedyRows {
			remedies = append(remedies, row.toModel(remedyDiseases[row.ID], remedySymptoms[row.ID]))
		}
		snap = NewSnapshot(symptomsFromRows(symptomRows), diseases, remedies)
		return nil
	}, r.snapshot)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func symptomsFromRows(rows []symptomModel) []models.Symptom {
	out := make([]models.Symptom, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out
}
