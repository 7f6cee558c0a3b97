package catalog

import (
	"github.com/healthpredictor/platform/pkg/common/models"
)

type symptomModel struct {
	ID            uint    `gorm:"primaryKey;column:id"`
	Name          string  `gorm:"column:name;size:100;uniqueIndex;not null"`
	Description   string  `gorm:"column:description;type:text"`
	SeverityLevel int     `gorm:"column:severity_level;default:1"`
	BodyPart      *string `gorm:"column:body_part;size:50;index"`
}

func (symptomModel) TableName() string { return "symptoms" }

type diseaseModel struct {
	ID             uint           `gorm:"primaryKey;column:id"`
	Name           string         `gorm:"column:name;size:100;uniqueIndex;not null"`
	Description    string         `gorm:"column:description;type:text"`
	SeverityLevel  int            `gorm:"column:severity_level;default:1"`
	CommonAgeGroup *string        `gorm:"column:common_age_group;size:50"`
	Symptoms       []symptomModel `gorm:"many2many:disease_symptoms;joinForeignKey:DiseaseID;joinReferences:SymptomID"`
}

func (diseaseModel) TableName() string { return "diseases" }

type remedyModel struct {
	ID                  uint           `gorm:"primaryKey;column:id"`
	Name                string         `gorm:"column:name;size:100;uniqueIndex;not null"`
	RemedyType          string         `gorm:"column:remedy_type;size:20;not null"`
	Description         string         `gorm:"column:description;type:text"`
	Instructions        string         `gorm:"column:instructions;type:text"`
	Contraindications   *string        `gorm:"column:contraindications;type:text"`
	EffectivenessRating int            `gorm:"column:effectiveness_rating;default:1"`
	Diseases            []diseaseModel `gorm:"many2many:remedy_diseases;joinForeignKey:RemedyID;joinReferences:DiseaseID"`
	Symptoms            []symptomModel `gorm:"many2many:remedy_symptoms;joinForeignKey:RemedyID;joinReferences:SymptomID"`
}

func (remedyModel) TableName() string { return "remedies" }

func (m symptomModel) toModel() models.Symptom {
	return models.Symptom{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		SeverityLevel: m.SeverityLevel,
		BodyPart:      m.BodyPart,
	}
}

func (m diseaseModel) toModel(symptomIDs []uint) models.Disease {
	return models.Disease{
		ID:             m.ID,
		Name:           m.Name,
		Description:    m.Description,
		SeverityLevel:  m.SeverityLevel,
		CommonAgeGroup: m.CommonAgeGroup,
		SymptomIDs:     nonNil(symptomIDs),
	}
}

func (m remedyModel) toModel(diseaseIDs, symptomIDs []uint) models.Remedy {
	return models.Remedy{
		ID:                  m.ID,
		Name:                m.Name,
		Category:            models.RemedyCategory(m.RemedyType),
		Description:         m.Description,
		Instructions:        m.Instructions,
		Contraindications:   m.Contraindications,
		EffectivenessRating: m.EffectivenessRating,
		DiseaseIDs:          nonNil(diseaseIDs),
		SymptomIDs:          nonNil(symptomIDs),
	}
}

func nonNil(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}
	return ids
}
