package repositories

import (
	"MediCare/models"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LinkRepository interface {
	Create(ctx context.Context, patientID, caregiverID uint) error
	Exists(ctx context.Context, patientID, caregiverID uint) (bool, error)
	ListPatients(ctx context.Context, caregiverID uint) ([]models.User, error)
	ListCaregivers(ctx context.Context, patientID uint) ([]models.User, error)
}

type linkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts the link. An existing pair is left untouched.
func (r *linkRepository) Create(ctx context.Context, patientID, caregiverID uint) error {
	link := models.PatientCaregiver{PatientID: patientID, CaregiverID: caregiverID}
	return r.db.WithContext(ctx).
		Omit("Patient", "Caregiver").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
}

func (r *linkRepository) Exists(ctx context.Context, patientID, caregiverID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PatientCaregiver{}).
		Where("patient_id = ? AND caregiver_id = ?", patientID, caregiverID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *linkRepository) ListPatients(ctx context.Context, caregiverID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Joins("JOIN patient_caregivers pc ON pc.patient_id = users.id").
		Where("pc.caregiver_id = ?", caregiverID).
		Order("users.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *linkRepository) ListCaregivers(ctx context.Context, patientID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Joins("JOIN patient_caregivers pc ON pc.caregiver_id = users.id").
		Where("pc.patient_id = ?", patientID).
		Order("users.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
