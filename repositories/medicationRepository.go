package repositories

import (
	"MediCare/models"
	"context"
	"errors"

	"gorm.io/gorm"
)

type MedicationRepository interface {
	Create(ctx context.Context, med *models.Medication) error
	GetByID(ctx context.Context, id uint) (*models.Medication, error)
	ListByPatient(ctx context.Context, patientID uint) ([]models.Medication, error)
	ListWithSchedules(ctx context.Context, patientID uint) ([]models.Medication, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	CreateSlot(ctx context.Context, slot *models.ScheduleSlot) error
	GetSlot(ctx context.Context, id uint) (*models.ScheduleSlot, error)
}

type medicationRepository struct {
	db *gorm.DB
}

func NewMedicationRepository(db *gorm.DB) MedicationRepository {
	return &medicationRepository{db: db}
}

func (r *medicationRepository) Create(ctx context.Context, med *models.Medication) error {
	return r.db.WithContext(ctx).Omit("Patient").Create(med).Error
}

func (r *medicationRepository) GetByID(ctx context.Context, id uint) (*models.Medication, error) {
	var med models.Medication
	err := r.db.WithContext(ctx).
		Preload("Schedules", func(db *gorm.DB) *gorm.DB {
			return db.Order("scheduled_time ASC, id ASC")
		}).
		First(&med, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &med, nil
}

func (r *medicationRepository) ListByPatient(ctx context.Context, patientID uint) ([]models.Medication, error) {
	var meds []models.Medication
	err := r.db.WithContext(ctx).
		Preload("Schedules", func(db *gorm.DB) *gorm.DB {
			return db.Order("scheduled_time ASC, id ASC")
		}).
		Where("patient_id = ?", patientID).
		Order("created_at DESC, id DESC").
		Find(&meds).Error
	if err != nil {
		return nil, err
	}
	return meds, nil
}

// ListWithSchedules returns the patient's active medications with their
// slots. Date range filtering is left to the caller.
func (r *medicationRepository) ListWithSchedules(ctx context.Context, patientID uint) ([]models.Medication, error) {
	var meds []models.Medication
	err := r.db.WithContext(ctx).
		Preload("Schedules").
		Where("patient_id = ? AND is_active = ?", patientID, true).
		Find(&meds).Error
	if err != nil {
		return nil, err
	}
	return meds, nil
}

func (r *medicationRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Medication{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the medication together with its slots and dose logs.
func (r *medicationRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("medication_id = ?", id).Delete(&models.DoseLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("medication_id = ?", id).Delete(&models.ScheduleSlot{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Medication{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *medicationRepository) CreateSlot(ctx context.Context, slot *models.ScheduleSlot) error {
	return r.db.WithContext(ctx).Omit("Medication").Create(slot).Error
}

func (r *medicationRepository) GetSlot(ctx context.Context, id uint) (*models.ScheduleSlot, error) {
	var slot models.ScheduleSlot
	err := r.db.WithContext(ctx).First(&slot, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}
