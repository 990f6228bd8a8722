package services

import (
	"MediCare/models"
	"MediCare/repositories"
	"MediCare/utils"
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// SlotInput describes one schedule slot.
type SlotInput struct {
	ScheduledTime string `json:"scheduled_time"`
	DaysOfWeek    []int  `json:"days_of_week"`
}

func (in SlotInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ScheduledTime, validation.Required, utils.ClockTimeRule),
		validation.Field(&in.DaysOfWeek, validation.Each(validation.Min(0), validation.Max(6))),
	)
}

// CreateMedicationInput is the payload for a new medication.
type CreateMedicationInput struct {
	PatientID       uint        `json:"patient_id"`
	Name            string      `json:"name"`
	Dosage          string      `json:"dosage"`
	Frequency       string      `json:"frequency"`
	Instructions    string      `json:"instructions"`
	StartDate       string      `json:"start_date"`
	EndDate         *string     `json:"end_date"`
	CurrentSupply   *int        `json:"current_supply"`
	RefillThreshold *int        `json:"refill_threshold"`
	Schedules       []SlotInput `json:"schedules"`
}

func (in CreateMedicationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.PatientID, validation.Required),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Dosage, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Frequency, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.StartDate, validation.Required, validation.Date(dateLayout)),
		validation.Field(&in.EndDate, validation.NilOrNotEmpty, validation.Date(dateLayout)),
		validation.Field(&in.CurrentSupply, validation.Min(0)),
		validation.Field(&in.RefillThreshold, validation.Min(0)),
		validation.Field(&in.Schedules),
	)
}

// UpdateMedicationInput carries a partial update. Nil fields are left as is.
type UpdateMedicationInput struct {
	Name            *string `json:"name"`
	Dosage          *string `json:"dosage"`
	Frequency       *string `json:"frequency"`
	Instructions    *string `json:"instructions"`
	StartDate       *string `json:"start_date"`
	EndDate         *string `json:"end_date"`
	ClearEndDate    bool    `json:"clear_end_date"`
	IsActive        *bool   `json:"is_active"`
	CurrentSupply   *int    `json:"current_supply"`
	RefillThreshold *int    `json:"refill_threshold"`
}

func (in UpdateMedicationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&in.Dosage, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&in.Frequency, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&in.StartDate, validation.NilOrNotEmpty, validation.Date(dateLayout)),
		validation.Field(&in.EndDate, validation.NilOrNotEmpty, validation.Date(dateLayout),
			validation.When(in.ClearEndDate, validation.Nil.Error("must be omitted when clear_end_date is set"))),
		validation.Field(&in.CurrentSupply, validation.Min(0)),
		validation.Field(&in.RefillThreshold, validation.Min(0)),
	)
}

// MedicationService manages medications and their schedule slots.
type MedicationService struct {
	medications repositories.MedicationRepository
	schedules   *ScheduleService
}

func NewMedicationService(medications repositories.MedicationRepository, schedules *ScheduleService) *MedicationService {
	return &MedicationService{medications: medications, schedules: schedules}
}

func parseDate(value string) time.Time {
	t, _ := time.Parse(dateLayout, value)
	return t
}

func buildSlot(in SlotInput) models.ScheduleSlot {
	return models.ScheduleSlot{
		ScheduledTime: utils.NormalizeClockTime(in.ScheduledTime),
		DaysOfWeek:    datatypes.JSONSlice[int](in.DaysOfWeek),
	}
}

func (s *MedicationService) Create(ctx context.Context, in CreateMedicationInput) (*models.Medication, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	med := &models.Medication{
		PatientID:       in.PatientID,
		Name:            in.Name,
		Dosage:          in.Dosage,
		Frequency:       in.Frequency,
		Instructions:    in.Instructions,
		StartDate:       parseDate(in.StartDate),
		IsActive:        true,
		CurrentSupply:   in.CurrentSupply,
		RefillThreshold: in.RefillThreshold,
	}
	if in.EndDate != nil {
		end := parseDate(*in.EndDate)
		if end.Before(med.StartDate) {
			return nil, invalidf("end_date must not be before start_date")
		}
		med.EndDate = &end
	}
	for _, slot := range in.Schedules {
		med.Schedules = append(med.Schedules, buildSlot(slot))
	}

	if err := s.medications.Create(ctx, med); err != nil {
		return nil, storageErr("create medication", err)
	}
	s.schedules.Invalidate(ctx, med.PatientID)
	return med, nil
}

func (s *MedicationService) GetByID(ctx context.Context, id uint) (*models.Medication, error) {
	med, err := s.medications.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("load medication", err)
	}
	if med == nil {
		return nil, ErrNotFound
	}
	return med, nil
}

func (s *MedicationService) ListByPatient(ctx context.Context, patientID uint) ([]models.Medication, error) {
	meds, err := s.medications.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, storageErr("list medications", err)
	}
	return meds, nil
}

// Update applies a partial update and returns the stored medication.
func (s *MedicationService) Update(ctx context.Context, id uint, in UpdateMedicationInput) (*models.Medication, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Dosage != nil {
		fields["dosage"] = *in.Dosage
	}
	if in.Frequency != nil {
		fields["frequency"] = *in.Frequency
	}
	if in.Instructions != nil {
		fields["instructions"] = *in.Instructions
	}
	start := existing.StartDate
	if in.StartDate != nil {
		start = parseDate(*in.StartDate)
		fields["start_date"] = start
	}
	switch {
	case in.ClearEndDate:
		fields["end_date"] = nil
	case in.EndDate != nil:
		end := parseDate(*in.EndDate)
		if end.Before(start) {
			return nil, invalidf("end_date must not be before start_date")
		}
		fields["end_date"] = end
	case in.StartDate != nil && existing.EndDate != nil:
		if start.Format(dateLayout) > existing.EndDate.UTC().Format(dateLayout) {
			return nil, invalidf("start_date must not be after end_date")
		}
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if in.CurrentSupply != nil {
		fields["current_supply"] = *in.CurrentSupply
	}
	if in.RefillThreshold != nil {
		fields["refill_threshold"] = *in.RefillThreshold
	}
	if len(fields) == 0 {
		return existing, nil
	}

	if err := s.medications.Update(ctx, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("update medication", err)
	}
	s.schedules.Invalidate(ctx, existing.PatientID)
	return s.GetByID(ctx, id)
}

func (s *MedicationService) Delete(ctx context.Context, id uint) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.medications.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return storageErr("delete medication", err)
	}
	s.schedules.Invalidate(ctx, existing.PatientID)
	return nil
}

// AddSlot attaches a new schedule slot. Slots are never edited afterwards.
func (s *MedicationService) AddSlot(ctx context.Context, medicationID uint, in SlotInput) (*models.ScheduleSlot, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	med, err := s.GetByID(ctx, medicationID)
	if err != nil {
		return nil, err
	}

	slot := buildSlot(in)
	slot.MedicationID = med.ID
	if err := s.medications.CreateSlot(ctx, &slot); err != nil {
		return nil, storageErr("create schedule slot", err)
	}
	s.schedules.Invalidate(ctx, med.PatientID)
	return &slot, nil
}
