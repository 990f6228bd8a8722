package repositories

import (
	"MediCare/database"
	"MediCare/models"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SupplyChange reports the medication supply around a logged dose. Both
// values are nil when the medication does not track supply.
type SupplyChange struct {
	Before    *int
	After     *int
	Threshold *int
}

type DoseLogRepository interface {
	Record(ctx context.Context, entry *models.DoseLog) (*SupplyChange, error)
	ListInWindow(ctx context.Context, medicationIDs []uint, from, to time.Time) ([]models.DoseLog, error)
	ListRecentByPatient(ctx context.Context, patientID uint, limit int) ([]models.DoseLog, error)
}

type doseLogRepository struct {
	db     *gorm.DB
	locker *database.Locker
	log    zerolog.Logger
}

func NewDoseLogRepository(db *gorm.DB, locker *database.Locker, log zerolog.Logger) DoseLogRepository {
	return &doseLogRepository{db: db, locker: locker, log: log}
}

// Record inserts the log and, for a taken dose, decrements the medication
// supply by one without going below zero. Both writes share one transaction
// and run under the per-medication lock.
func (r *doseLogRepository) Record(ctx context.Context, entry *models.DoseLog) (*SupplyChange, error) {
	lockKey := fmt.Sprintf("dose_lock:%d", entry.MedicationID)
	release, err := r.locker.Acquire(ctx, lockKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			r.log.Warn().Err(err).Str("key", lockKey).Msg("failed to release dose lock")
		}
	}()

	change := &SupplyChange{}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var med models.Medication
		if err := tx.Select("id, current_supply, refill_threshold").First(&med, entry.MedicationID).Error; err != nil {
			return err
		}
		change.Before = med.CurrentSupply
		change.Threshold = med.RefillThreshold

		if err := tx.Omit("Medication").Create(entry).Error; err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}

		if entry.Status != models.DoseTaken || med.CurrentSupply == nil {
			change.After = med.CurrentSupply
			return nil
		}

		err := tx.Model(&models.Medication{}).
			Where("id = ? AND current_supply > 0", entry.MedicationID).
			Update("current_supply", gorm.Expr("current_supply - 1")).Error
		if err != nil {
			return err
		}

		var after models.Medication
		if err := tx.Select("id, current_supply").First(&after, entry.MedicationID).Error; err != nil {
			return err
		}
		change.After = after.CurrentSupply
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// ListInWindow returns logs of the given medications whose scheduled time
// lies in [from, to).
func (r *doseLogRepository) ListInWindow(ctx context.Context, medicationIDs []uint, from, to time.Time) ([]models.DoseLog, error) {
	if len(medicationIDs) == 0 {
		return nil, nil
	}
	var logs []models.DoseLog
	err := r.db.WithContext(ctx).
		Where("medication_id IN ?", medicationIDs).
		Where("scheduled_datetime >= ? AND scheduled_datetime < ?", from.UTC(), to.UTC()).
		Order("actual_datetime ASC, id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// ListRecentByPatient returns the newest logs across the patient's
// medications, each carrying the medication name.
func (r *doseLogRepository) ListRecentByPatient(ctx context.Context, patientID uint, limit int) ([]models.DoseLog, error) {
	var logs []models.DoseLog
	err := r.db.WithContext(ctx).
		Model(&models.DoseLog{}).
		Select("dose_logs.*, medications.name AS medication_name").
		Joins("JOIN medications ON medications.id = dose_logs.medication_id").
		Where("medications.patient_id = ?", patientID).
		Order("dose_logs.actual_datetime DESC, dose_logs.id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
