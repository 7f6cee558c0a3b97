package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/common/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

type SeedSymptom struct {
	Name          string `yaml:"name" json:"name"`
	Description   string `yaml:"description" json:"description"`
	SeverityLevel int    `yaml:"severity_level" json:"severity_level"`
	BodyPart      string `yaml:"body_part" json:"body_part"`
}

type SeedDisease struct {
	Name           string   `yaml:"name" json:"name"`
	Description    string   `yaml:"description" json:"description"`
	SeverityLevel  int      `yaml:"severity_level" json:"severity_level"`
	CommonAgeGroup string   `yaml:"common_age_group" json:"common_age_group"`
	Symptoms       []string `yaml:"symptoms" json:"symptoms"`
}

type SeedRemedy struct {
	Name                string   `yaml:"name" json:"name"`
	Type                string   `yaml:"type" json:"type"`
	Description         string   `yaml:"description" json:"description"`
	Instructions        string   `yaml:"instructions" json:"instructions"`
	Contraindications   string   `yaml:"contraindications" json:"contraindications"`
	EffectivenessRating int      `yaml:"effectiveness_rating" json:"effectiveness_rating"`
	Diseases            []string `yaml:"diseases" json:"diseases"`
	Symptoms            []string `yaml:"symptoms" json:"symptoms"`
}

type Seed struct {
	Symptoms []SeedSymptom `yaml:"symptoms" json:"symptoms"`
	Diseases []SeedDisease `yaml:"diseases" json:"diseases"`
	Remedies []SeedRemedy  `yaml:"remedies" json:"remedies"`
}

func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Seed{}, err
	}
	return parseSeed(content)
}

// DefaultSeed is the built-in starter catalog.
func DefaultSeed() Seed {
	seed, err := parseSeed(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default catalog is invalid: %v", err))
	}
	return seed
}

func parseSeed(content []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(content, &seed); err != nil {
		return Seed{}, err
	}
	if len(seed.Symptoms) == 0 && len(seed.Diseases) == 0 && len(seed.Remedies) == 0 {
		return Seed{}, errors.New("catalog seed empty")
	}
	if err := seed.Validate(); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

func (s Seed) Validate() error {
	for _, sym := range s.Symptoms {
		if strings.TrimSpace(sym.Name) == "" {
			return errors.New("symptom name is required")
		}
		if sym.SeverityLevel != 0 && (sym.SeverityLevel < models.MinSeverity || sym.SeverityLevel > models.MaxSeverity) {
			return fmt.Errorf("symptom %q: severity_level must be between 1 and 10", sym.Name)
		}
	}
	for _, d := range s.Diseases {
		if strings.TrimSpace(d.Name) == "" {
			return errors.New("disease name is required")
		}
		if d.SeverityLevel != 0 && (d.SeverityLevel < models.MinSeverity || d.SeverityLevel > models.MaxSeverity) {
			return fmt.Errorf("disease %q: severity_level must be between 1 and 10", d.Name)
		}
	}
	for _, r := range s.Remedies {
		if strings.TrimSpace(r.Name) == "" {
			return errors.New("remedy name is required")
		}
		if !models.RemedyCategory(r.Type).Valid() {
			return fmt.Errorf("remedy %q: unknown type %q", r.Name, r.Type)
		}
		if r.EffectivenessRating != 0 && (r.EffectivenessRating < 1 || r.EffectivenessRating > 5) {
			return fmt.Errorf("remedy %q: effectiveness_rating must be between 1 and 5", r.Name)
		}
	}
	return nil
}

// SeedResult summarizes an Upsert. Unresolved lists link targets that did not
// match any catalog entry, formatted as "owner -> target".
type SeedResult struct {
	Symptoms   int      `json:"symptoms"`
	Diseases   int      `json:"diseases"`
	Remedies   int      `json:"remedies"`
	Links      int      `json:"links"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// Upsert writes the seed in one transaction. Entries are matched by name; the
// link sets of every seeded disease and remedy are replaced by the seed's.
func (r *Repository) Upsert(ctx context.Context, seed Seed) (SeedResult, error) {
	if err := seed.Validate(); err != nil {
		return SeedResult{}, err
	}
	var result SeedResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range seed.Symptoms {
			row := symptomModel{
				Name:          strings.TrimSpace(s.Name),
				Description:   s.Description,
				SeverityLevel: orDefault(s.SeverityLevel, 1),
				BodyPart:      optional(s.BodyPart),
			}
			if err := upsertByName(tx, &row, "description", "severity_level", "body_part"); err != nil {
				return fmt.Errorf("symptom %q: %w", s.Name, err)
			}
			result.Symptoms++
		}
		for _, d := range seed.Diseases {
			row := diseaseModel{
				Name:           strings.TrimSpace(d.Name),
				Description:    d.Description,
				SeverityLevel:  orDefault(d.SeverityLevel, 1),
				CommonAgeGroup: optional(d.CommonAgeGroup),
			}
			if err := upsertByName(tx, &row, "description", "severity_level", "common_age_group"); err != nil {
				return fmt.Errorf("disease %q: %w", d.Name, err)
			}
			result.Diseases++
		}
		for _, rem := range seed.Remedies {
			row := remedyModel{
				Name:                strings.TrimSpace(rem.Name),
				RemedyType:          rem.Type,
				Description:         rem.Description,
				Instructions:        rem.Instructions,
				Contraindications:   optional(rem.Contraindications),
				EffectivenessRating: orDefault(rem.EffectivenessRating, 1),
			}
			if err := upsertByName(tx, &row, "remedy_type", "description", "instructions", "contraindications", "effectiveness_rating"); err != nil {
				return fmt.Errorf("remedy %q: %w", rem.Name, err)
			}
			result.Remedies++
		}

		symptoms, err := loadNames(tx, "symptoms")
		if err != nil {
			return err
		}
		diseases, err := loadNames(tx, "diseases")
		if err != nil {
			return err
		}
		remedies, err := loadNames(tx, "remedies")
		if err != nil {
			return err
		}

		link := func(table, ownerCol, targetCol, owner string, ownerIDs nameIndex, targets []string, targetIDs nameIndex) error {
			ownerID, ok := ownerIDs.resolve(owner)
			if !ok {
				return fmt.Errorf("%s %q vanished during seeding", ownerCol, owner)
			}
			ids := NewIDSet()
			for _, name := range targets {
				id, ok := targetIDs.resolve(name)
				if !ok {
					result.Unresolved = append(result.Unresolved, owner+" -> "+name)
					logger.Log.WithFields(map[string]interface{}{
						"owner":  owner,
						"target": name,
						"table":  table,
					}).Warn("Seed link target not found")
					continue
				}
				ids.Add(id)
			}
			n, err := replaceLinks(tx, table, ownerCol, targetCol, ownerID, ids.Sorted())
			result.Links += n
			return err
		}

		for _, d := range seed.Diseases {
			if err := link("disease_symptoms", "disease_id", "symptom_id", d.Name, diseases, d.Symptoms, symptoms); err != nil {
				return err
			}
		}
		for _, rem := range seed.Remedies {
			if err := link("remedy_diseases", "remedy_id", "disease_id", rem.Name, remedies, rem.Diseases, diseases); err != nil {
				return err
			}
			if err := link("remedy_symptoms", "remedy_id", "symptom_id", rem.Name, remedies, rem.Symptoms, symptoms); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return result, nil
}

func upsertByName(tx *gorm.DB, row interface{}, columns ...string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(row).Error
}

func replaceLinks(tx *gorm.DB, table, ownerCol, targetCol string, ownerID uint, targets []uint) (int, error) {
	if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, ownerCol), ownerID).Error; err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", table, err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", table, ownerCol, targetCol)
	for _, target := range targets {
		if err := tx.Exec(insert, ownerID, target).Error; err != nil {
			return 0, fmt.Errorf("failed to link %s: %w", table, err)
		}
	}
	return len(targets), nil
}

type namedRow struct {
	ID   uint
	Name string
}

// nameIndex resolves seed link names: exact match ignoring case first, then
// a unique case-insensitive substring match.
type nameIndex []namedRow

func loadNames(tx *gorm.DB, table string) (nameIndex, error) {
	var rows []namedRow
	if err := tx.Table(table).Select("id, name").Order("id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", table, err)
	}
	return nameIndex(rows), nil
}

func (idx nameIndex) resolve(name string) (uint, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return 0, false
	}
	var partial []uint
	for _, row := range idx {
		hay := strings.ToLower(row.Name)
		if hay == needle {
			return row.ID, true
		}
		if strings.Contains(hay, needle) {
			partial = append(partial, row.ID)
		}
	}
	if len(partial) == 1 {
		return partial[0], true
	}
	return 0, false
}

// Names lists the seed's entry names per kind, sorted; used for dry runs.
func (s Seed) Names() (symptoms, diseases, remedies []string) {
	for _, sym := range s.Symptoms {
		symptoms = append(symptoms, sym.Name)
	}
	for _, d := range s.Diseases {
		diseases = append(diseases, d.Name)
	}
	for _, r := range s.Remedies {
		remedies = append(remedies, r.Name)
	}
	sort.Strings(symptoms)
	sort.Strings(diseases)
	sort.Strings(remedies)
	return symptoms, diseases, remedies
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func orDefault(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}
