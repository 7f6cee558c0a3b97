package patient

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/healthpredictor/platform/pkg/common/models"
)

// PageSize is the number of patients per listing page.
const PageSize = 10

var ErrInvalid = errors.New("invalid patient")

// ReportLister is satisfied by report.Service.
type ReportLister interface {
	ListByPatient(ctx context.Context, patientID uint, limit int) ([]models.ReportSummary, error)
}

type Service struct {
	repo    *Repository
	reports ReportLister
}

func NewService(repo *Repository, reports ReportLister) *Service {
	return &Service{repo: repo, reports: reports}
}

type Page struct {
	Items    []models.Patient `json:"items"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Total    int64            `json:"total"`
}

func (s *Service) Create(ctx context.Context, req models.PatientRequest) (models.Patient, error) {
	req, err := normalize(req)
	if err != nil {
		return models.Patient{}, err
	}
	return s.repo.Create(ctx, req)
}

func (s *Service) Update(ctx context.Context, id uint, req models.PatientRequest) (models.Patient, error) {
	req, err := normalize(req)
	if err != nil {
		return models.Patient{}, err
	}
	return s.repo.Update(ctx, id, req)
}

func (s *Service) Get(ctx context.Context, id uint) (models.Patient, error) {
	return s.repo.Get(ctx, id)
}

// GetWithReports returns the patient and their reports, newest first.
func (s *Service) GetWithReports(ctx context.Context, id uint) (models.Patient, []models.ReportSummary, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Patient{}, nil, err
	}
	reports, err := s.reports.ListByPatient(ctx, id, 0)
	if err != nil {
		return models.Patient{}, nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return p, reports, nil
}

func (s *Service) List(ctx context.Context, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	items, total, err := s.repo.List(ctx, page, PageSize)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Page: page, PageSize: PageSize, Total: total}, nil
}

func (s *Service) Exists(ctx context.Context, id uint) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// PatientName is used by report export.
func (s *Service) PatientName(ctx context.Context, id uint) (string, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func normalize(req models.PatientRequest) (models.PatientRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Gender = strings.ToUpper(strings.TrimSpace(req.Gender))
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	switch {
	case req.Name == "":
		return req, fmt.Errorf("%w: name is required", ErrInvalid)
	case len(req.Name) > 100:
		return req, fmt.Errorf("%w: name must be at most 100 characters", ErrInvalid)
	case req.Age < 0 || req.Age > 150:
		return req, fmt.Errorf("%w: age must be between 0 and 150", ErrInvalid)
	case len(req.Phone) > 15:
		return req, fmt.Errorf("%w: phone must be at most 15 characters", ErrInvalid)
	}
	switch req.Gender {
	case "M", "F", "O":
	default:
		return req, fmt.Errorf("%w: gender must be M, F or O", ErrInvalid)
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return req, fmt.Errorf("%w: email is malformed", ErrInvalid)
		}
	}
	return req, nil
}
