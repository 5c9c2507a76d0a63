package service

import (
	"errors"

	"schooltrack/internal/core/geo"
	"schooltrack/internal/core/model"
	"schooltrack/internal/core/repository"
)

type SchoolService interface {
	CreateSchool(name string, location model.ReferenceLocation) (*model.School, error)
	UpdateLocation(id string, location model.ReferenceLocation) (*model.School, error)
	GetSchool(id string) (*model.School, error)
	GetSchools() ([]*model.School, error)
}

type schoolService struct {
	schoolRepo repository.SchoolRepository
}

func NewSchoolService(schoolRepo repository.SchoolRepository) SchoolService {
	return &schoolService{
		schoolRepo: schoolRepo,
	}
}

func validateLocation(location model.ReferenceLocation) error {
	if err := geo.Validate(location.Coordinate); err != nil {
		return err
	}
	if location.RadiusMeters <= 0 {
		return errors.New("reference location radius must be positive")
	}
	return nil
}

func (s *schoolService) CreateSchool(name string, location model.ReferenceLocation) (*model.School, error) {
	if name == "" {
		return nil, errors.New("invalid school data")
	}
	if err := validateLocation(location); err != nil {
		return nil, err
	}

	school := model.NewSchool(name, location)
	if err := s.schoolRepo.Create(school); err != nil {
		return nil, err
	}
	return school, nil
}

func (s *schoolService) UpdateLocation(id string, location model.ReferenceLocation) (*model.School, error) {
	if err := validateLocation(location); err != nil {
		return nil, err
	}

	school, err := s.schoolRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if school == nil {
		return nil, errors.New("school not found")
	}

	school.Location = location
	if err := s.schoolRepo.Update(school); err != nil {
		return nil, err
	}
	return school, nil
}

func (s *schoolService) GetSchool(id string) (*model.School, error) {
	if id == "" {
		return nil, errors.New("invalid school ID")
	}
	return s.schoolRepo.FindByID(id)
}

func (s *schoolService) GetSchools() ([]*model.School, error) {
	return s.schoolRepo.FindAll()
}
