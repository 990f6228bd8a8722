package services

import (
	"MediCare/models"
	"MediCare/repositories"
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const DefaultRecentLogLimit = 50

// LogDoseInput is a request to record a dose outcome.
type LogDoseInput struct {
	MedicationID      uint    `json:"medication_id"`
	ScheduleID        *uint   `json:"schedule_id"`
	ScheduledDatetime string  `json:"scheduled_datetime"`
	ActualDatetime    *string `json:"actual_datetime"`
	Status            string  `json:"status"`
	Notes             string  `json:"notes"`
}

func (in LogDoseInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.MedicationID, validation.Required),
		validation.Field(&in.ScheduledDatetime, validation.Required, validation.Date(time.RFC3339)),
		validation.Field(&in.ActualDatetime, validation.NilOrNotEmpty, validation.Date(time.RFC3339)),
		validation.Field(&in.Status, validation.Required, validation.In(
			string(models.DoseTaken), string(models.DoseMissed), string(models.DoseSkipped),
		).Error("must be one of taken, missed, skipped")),
		validation.Field(&in.Notes, validation.Length(0, 2000)),
	)
}

// DoseService applies dose transitions.
type DoseService struct {
	medications   repositories.MedicationRepository
	doseLogs      repositories.DoseLogRepository
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
	schedules     *ScheduleService
	push          PushSender
	mailer        Mailer
	now           func() time.Time
	log           zerolog.Logger
}

// DoseServiceDeps groups the collaborators of a DoseService. Push and Mailer
// may be nil.
type DoseServiceDeps struct {
	Medications   repositories.MedicationRepository
	DoseLogs      repositories.DoseLogRepository
	Users         repositories.UserRepository
	Notifications repositories.NotificationRepository
	Schedules     *ScheduleService
	Push          PushSender
	Mailer        Mailer
	Now           func() time.Time
	Log           zerolog.Logger
}

func NewDoseService(deps DoseServiceDeps) *DoseService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &DoseService{
		medications:   deps.Medications,
		doseLogs:      deps.DoseLogs,
		users:         deps.Users,
		notifications: deps.Notifications,
		schedules:     deps.Schedules,
		push:          deps.Push,
		mailer:        deps.Mailer,
		now:           now,
		log:           deps.Log,
	}
}

// LogDose validates and records a dose. A taken dose decrements the
// medication supply by one, never below zero, in the same transaction.
func (s *DoseService) LogDose(ctx context.Context, in LogDoseInput) (*models.DoseLog, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	scheduled, _ := time.Parse(time.RFC3339, in.ScheduledDatetime)
	actual := s.now()
	if in.ActualDatetime != nil {
		actual, _ = time.Parse(time.RFC3339, *in.ActualDatetime)
	}

	med, err := s.medications.GetByID(ctx, in.MedicationID)
	if err != nil {
		return nil, storageErr("load medication", err)
	}
	if med == nil {
		return nil, ErrNotFound
	}

	if in.ScheduleID != nil {
		owned := false
		for _, slot := range med.Schedules {
			if slot.ID == *in.ScheduleID {
				owned = true
				break
			}
		}
		if !owned {
			return nil, invalidf("schedule %d does not belong to medication %d", *in.ScheduleID, med.ID)
		}
	}

	entry := &models.DoseLog{
		MedicationID:      med.ID,
		ScheduleID:        in.ScheduleID,
		ScheduledDatetime: scheduled.UTC(),
		ScheduledDate:     scheduled.Format(dateLayout),
		ActualDatetime:    actual.UTC(),
		Status:            models.DoseStatus(in.Status),
		Notes:             in.Notes,
	}

	change, err := s.doseLogs.Record(ctx, entry)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicate):
			return nil, fmt.Errorf("%w: dose already logged for this slot on %s", ErrConflict, entry.ScheduledDate)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrNotFound
		}
		return nil, storageErr("record dose", err)
	}

	s.schedules.Invalidate(ctx, med.PatientID)

	if entry.Status == models.DoseTaken {
		s.checkRefill(context.WithoutCancel(ctx), med, change)
	}
	return entry, nil
}

// refillCrossed reports whether supply moved from above the threshold to at
// or below it.
func refillCrossed(change *repositories.SupplyChange) bool {
	if change == nil || change.Before == nil || change.After == nil || change.Threshold == nil {
		return false
	}
	return *change.Before > *change.Threshold && *change.After <= *change.Threshold
}

func (s *DoseService) checkRefill(ctx context.Context, med *models.Medication, change *repositories.SupplyChange) {
	if !refillCrossed(change) {
		return
	}
	remaining := *change.After

	logger := s.log.With().Uint("medication_id", med.ID).Int("remaining", remaining).Logger()

	title := "Refill reminder"
	body := fmt.Sprintf("%s is running low: %d doses left.", med.Name, remaining)
	data := map[string]interface{}{
		"medication_id":  med.ID,
		"current_supply": remaining,
	}

	notification := &models.Notification{
		UserID: med.PatientID,
		Type:   models.NotificationRefill,
		Title:  title,
		Body:   body,
		Data:   data,
		SentAt: s.now().UTC(),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		logger.Error().Err(err).Msg("failed to record refill notification")
	}

	patient, err := s.users.GetUserByID(ctx, med.PatientID)
	if err != nil || patient == nil {
		logger.Warn().Err(err).Msg("refill reminder: patient not loaded")
		return
	}

	if s.push != nil && patient.HasPushToken() {
		if err := s.push.Send(ctx, *patient.PushToken, title, body, data); err != nil {
			logger.Warn().Err(err).Msg("refill push failed")
		}
	}
	if s.mailer != nil {
		if err := s.mailer.SendRefillReminder(patient.Email, med.Name, remaining); err != nil {
			logger.Warn().Err(err).Msg("refill email failed")
		}
	}
}

// GetRecentDoseLogs returns the patient's newest logs with medication names.
func (s *DoseService) GetRecentDoseLogs(ctx context.Context, patientID uint, limit int) ([]models.DoseLog, error) {
	if limit <= 0 || limit > 500 {
		limit = DefaultRecentLogLimit
	}
	logs, err := s.doseLogs.ListRecentByPatient(ctx, patientID, limit)
	if err != nil {
		return nil, storageErr("list dose logs", err)
	}
	return logs, nil
}
