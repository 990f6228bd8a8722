package testfixtures

import (
	"MediCare/models"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateUser inserts a user with the named role. An empty token leaves the
// push token unset.
func CreateUser(tb testing.TB, db *gorm.DB, email, name, role, pushToken string) *models.User {
	tb.Helper()

	var r models.Role
	if err := db.Where("name = ?", role).First(&r).Error; err != nil {
		tb.Fatalf("role %s not seeded: %v", role, err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: "x",
		RoleID:       r.ID,
		Timezone:     "UTC",
	}
	if pushToken != "" {
		user.PushToken = &pushToken
	}
	if err := db.Create(user).Error; err != nil {
		tb.Fatalf("failed to create user %s: %v", email, err)
	}
	user.Role = r
	return user
}

// MedicationOption tweaks a fixture medication before insert.
type MedicationOption func(*models.Medication)

// WithSupply sets current supply and refill threshold.
func WithSupply(supply, threshold int) MedicationOption {
	return func(m *models.Medication) {
		m.CurrentSupply = &supply
		m.RefillThreshold = &threshold
	}
}

// WithDates sets the active date range.
func WithDates(start time.Time, end *time.Time) MedicationOption {
	return func(m *models.Medication) {
		m.StartDate = start
		m.EndDate = end
	}
}

// Inactive marks the medication inactive.
func Inactive() MedicationOption {
	return func(m *models.Medication) {
		m.IsActive = false
	}
}

// CreateMedication inserts an active medication that started on 2024-01-01.
func CreateMedication(tb testing.TB, db *gorm.DB, patientID uint, name, dosage string, opts ...MedicationOption) *models.Medication {
	tb.Helper()

	med := &models.Medication{
		PatientID: patientID,
		Name:      name,
		Dosage:    dosage,
		Frequency: "daily",
		StartDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	}
	for _, opt := range opts {
		opt(med)
	}
	if err := db.Create(med).Error; err != nil {
		tb.Fatalf("failed to create medication %s: %v", name, err)
	}
	return med
}

// CreateSlot inserts a schedule slot.
func CreateSlot(tb testing.TB, db *gorm.DB, medicationID uint, hhmm string, days ...int) *models.ScheduleSlot {
	tb.Helper()

	slot := &models.ScheduleSlot{
		MedicationID:  medicationID,
		ScheduledTime: hhmm,
		DaysOfWeek:    datatypes.JSONSlice[int](days),
	}
	if err := db.Create(slot).Error; err != nil {
		tb.Fatalf("failed to create slot %s: %v", hhmm, err)
	}
	return slot
}

// Link inserts a patient-caregiver link.
func Link(tb testing.TB, db *gorm.DB, patientID, caregiverID uint) {
	tb.Helper()

	link := &models.PatientCaregiver{PatientID: patientID, CaregiverID: caregiverID}
	if err := db.Create(link).Error; err != nil {
		tb.Fatalf("failed to link %d to %d: %v", caregiverID, patientID, err)
	}
}
