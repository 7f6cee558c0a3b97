package patient

import (
	"context"
	"errors"
	"time"

	"github.com/healthpredictor/platform/pkg/common/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("patient not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type patientModel struct {
	ID             uint      `gorm:"primaryKey;column:id"`
	Name           string    `gorm:"column:name;size:100;not null"`
	Age            int       `gorm:"column:age"`
	Gender         string    `gorm:"column:gender;size:1"`
	Email          string    `gorm:"column:email;size:254"`
	Phone          string    `gorm:"column:phone;size:15"`
	Address        string    `gorm:"column:address;type:text"`
	MedicalHistory string    `gorm:"column:medical_history;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;index"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (patientModel) TableName() string { return "patients" }

func (m patientModel) toModel() models.Patient {
	return models.Patient{
		ID:             m.ID,
		Name:           m.Name,
		Age:            m.Age,
		Gender:         m.Gender,
		Email:          m.Email,
		Phone:          m.Phone,
		Address:        m.Address,
		MedicalHistory: m.MedicalHistory,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&patientModel{})
}

func (r *Repository) Create(ctx context.Context, req models.PatientRequest) (models.Patient, error) {
	now := time.Now().UTC()
	row := patientModel{
		Name:           req.Name,
		Age:            req.Age,
		Gender:         req.Gender,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		MedicalHistory: req.MedicalHistory,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Patient{}, err
	}
	return row.toModel(), nil
}

func (r *Repository) Get(ctx context.Context, id uint) (models.Patient, error) {
	var row patientModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Patient{}, ErrNotFound
		}
		return models.Patient{}, err
	}
	return row.toModel(), nil
}

// List returns one page of patients, newest first, plus the total count.
// Pages start at 1.
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.Patient, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&patientModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []patientModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]models.Patient, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, total, nil
}

func (r *Repository) Update(ctx context.Context, id uint, req models.PatientRequest) (models.Patient, error) {
	result := r.db.WithContext(ctx).Model(&patientModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":            req.Name,
		"age":             req.Age,
		"gender":          req.Gender,
		"email":           req.Email,
		"phone":           req.Phone,
		"address":         req.Address,
		"medical_history": req.MedicalHistory,
		"updated_at":      time.Now().UTC(),
	})
	if result.Error != nil {
		return models.Patient{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Patient{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&patientModel{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&patientModel{}).Count(&n).Error
	return n, err
}
