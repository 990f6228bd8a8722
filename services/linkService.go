package services

import (
	"MediCare/models"
	"MediCare/repositories"
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint
	Role   string
}

// LinkService maintains patient-caregiver links and answers access checks.
type LinkService struct {
	users repositories.UserRepository
	links repositories.LinkRepository
}

func NewLinkService(users repositories.UserRepository, links repositories.LinkRepository) *LinkService {
	return &LinkService{users: users, links: links}
}

// CreateLink links the caregiver to the patient with the given email.
// Linking an already linked pair succeeds without change.
func (s *LinkService) CreateLink(ctx context.Context, patientEmail string, caregiverID uint) (*models.User, error) {
	patientEmail = strings.TrimSpace(strings.ToLower(patientEmail))
	if err := validation.Validate(patientEmail, validation.Required, is.Email); err != nil {
		return nil, invalid(validation.Errors{"patient_email": err})
	}

	patient, err := s.users.GetUserByEmail(ctx, patientEmail)
	if err != nil {
		return nil, storageErr("load patient", err)
	}
	if patient == nil || patient.Role.Name != models.RolePatient {
		return nil, ErrNotFound
	}

	caregiver, err := s.users.GetUserByID(ctx, caregiverID)
	if err != nil {
		return nil, storageErr("load caregiver", err)
	}
	if caregiver == nil || !caregiver.IsCaregiver() {
		return nil, ErrNotFound
	}

	if err := s.links.Create(ctx, patient.ID, caregiver.ID); err != nil {
		return nil, storageErr("create link", err)
	}
	return patient, nil
}

func (s *LinkService) ListLinkedPatients(ctx context.Context, caregiverID uint) ([]models.User, error) {
	patients, err := s.links.ListPatients(ctx, caregiverID)
	if err != nil {
		return nil, storageErr("list linked patients", err)
	}
	return patients, nil
}

func (s *LinkService) ListLinkedCaregivers(ctx context.Context, patientID uint) ([]models.User, error) {
	caregivers, err := s.links.ListCaregivers(ctx, patientID)
	if err != nil {
		return nil, storageErr("list linked caregivers", err)
	}
	return caregivers, nil
}

// CanAccessPatientData reports whether actor may read or write the
// patient's data: the patient themself, or a caregiver linked to them.
func (s *LinkService) CanAccessPatientData(ctx context.Context, actor Actor, patientID uint) (bool, error) {
	if actor.UserID == patientID {
		return true, nil
	}
	if actor.Role != models.RoleCaregiver {
		return false, nil
	}
	linked, err := s.links.Exists(ctx, patientID, actor.UserID)
	if err != nil {
		return false, storageErr("check link", err)
	}
	return linked, nil
}
