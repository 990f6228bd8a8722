package services

import (
	"MediCare/models"
	"MediCare/repositories"
	"MediCare/testfixtures"
	"context"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func supplyOf(t *testing.T, env *testEnv, medID uint) *int {
	t.Helper()
	var med models.Medication
	require.NoError(t, env.db.First(&med, medID).Error)
	return med.CurrentSupply
}

func TestLogDose_TakenDecrementsSupply(t *testing.T) {
	env := newTestEnv(t)
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	med := testfixtures.CreateMedication(t, env.db, patient.ID, "Lisinopril", "10mg", testfixtures.WithSupply(10, 2))
	slot := testfixtures.CreateSlot(t, env.db, med.ID, "08:00")

	entry, err := env.doses.LogDose(context.Background(), LogDoseInput{
		MedicationID:      med.ID,
		ScheduleID:        uintPtr(slot.ID),
		ScheduledDatetime: "2024-03-14T08:00:00Z",
		Status:            "taken",
	})
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, "2024-03-14", entry.ScheduledDate)
	assert.Equal(t, testfixtures.ReferenceTime(), entry.ActualDatetime)

	assert.Equal(t, 9, *supplyOf(t, env, med.ID))
}

func TestLogDose_MissedAndSkippedKeepSupply(t *testing.T) {
	env := newTestEnv(t)
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	med := testfixtures.CreateMedication(t, env.db, patient.ID, "Lisinopril", "10mg", testfixtures.WithSupply(10, 2))
	morning := testfixtures.CreateSlot(t, env.db, med.ID, "08:00")
	evening := testfixtures.CreateSlot(t, env.db, med.ID, "20:00")

	_, err := env.doses.LogDose(context.Background(), LogDoseInput{
		MedicationID: med.ID, ScheduleID: uintPtr(morning.ID),
		ScheduledDatetime: "2024-03-14T08:00:00Z", Status: "missed",
	})
	require.NoError(t, err)
	_, err = env.doses.LogDose(context.Background(), LogDoseInput{
		MedicationID: med.ID, ScheduleID: uintPtr(evening.ID),
		ScheduledDatetime: "2024-03-14T20:00:00Z", Status: "skipped",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, *supplyOf(t, env, med.ID))
}

func TestLogDose_SupplyNeverNegative(t *testing.T) {
	env := newTestEnv(t)
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	med := testfixtures.CreateMedication(t, env.db, patient.ID, "Lisinopril", "10mg", testfixtures.WithSupply(0, 0))
	slot := testfixtures.CreateSlot(t, env.db, med.ID, "08:00")

	entry, err := env.doses.LogDose(context.Background(), LogDoseInput{
		MedicationID: med.ID, ScheduleID: uintPtr(slot.ID),
		ScheduledDatetime: "2024-03-14T08:00:00Z", Status: "taken",
	})
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, 0, *supplyOf(t, env, med.ID))
}

func TestLogDose_UntrackedSupplyStaysNil(t *testing.T) {
	env := newTestEnv(t)
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	med := testfixtures.CreateMedication(t, env.db, patient.ID, "Vitamin D", "1000IU")
	slot := testfixtures.CreateSlot(t, env.db, med.ID, "08:00")

	_, err := env.doses.LogDose(context.Background(), LogDoseInput{
		MedicationID: med.ID, ScheduleID: uintPtr(slot.ID),
		ScheduledDatetime: "2024-03-14T08:00:00Z", Status: "taken",
	})
	require.NoError(t, err)
	assert.Nil(t, supplyOf(t, env, med.ID))
}

func TestLogDose_ExplicitActualTime(t *testing.T) {
	env := newTestEnv(t)
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	med := testfixtures.CreateMedication(t, env.db, patient.ID, "Lisinopril", "10mg")

	entry, err := env.doses.LogDose(context.Background(), LogDoseInput{
		MedicationID:      med.ID,
		ScheduledDatetime: "2024-03-14T08:00:00+02:00",
		ActualDatetime:    strPtr("2024-03-14T08:10:00+02:00"),
		Status:            "taken",
		Notes:             "with breakfast",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 14, 6, 10, 0, 0, time.UTC), entry.ActualDatetime)
	assert.Equal(t, time.Date(2024, 3, 14, 6, 0, 0, 0, time.UTC), entry.ScheduledDatetime)
	assert.Equal(t, "2024-03-14", entry.ScheduledDate)
}

func TestLogDose_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	med := testfixtures.CreateMedication(t, env.db, patient.ID, "Lisinopril", "10mg")

	tests := []struct {
		name  string
		in    LogDoseInput
		field string
	}{
		{
			name:  "upcoming is not a loggable status",
			in:    LogDoseInput{MedicationID: med.ID, ScheduledDatetime: "2024-03-14T08:00:00Z", Status: "upcoming"},
			field: "status",
		},
		{
			name:  "unknown status",
			in:    LogDoseInput{MedicationID: med.ID, ScheduledDatetime: "2024-03-14T08:00:00Z", Status: "forgot"},
			field: "status",
		},
		{
			name:  "unparseable scheduled time",
			in:    LogDoseInput{MedicationID: med.ID, ScheduledDatetime: "yesterday", Status: "taken"},
			field: "scheduled_datetime",
		},
		{
			name:  "missing medication",
			in:    LogDoseInput{ScheduledDatetime: "2024-03-14T08:00:00Z", Status: "taken"},
			field: "medication_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.doses.LogDose(context.Background(), tt.in)
			require.ErrorIs(t, err, ErrInvalidArgument)

			var fields validation.Errors
			require.ErrorAs(t, err, &fields)
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestLogDose_UnknownMedication(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.doses.LogDose(context.Background(), LogDoseInput{
		MedicationID: 999, ScheduledDatetime: "2024-03-14T08:00:00Z", Status: "taken",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogDose_ForeignSlotRejected(t *testing.T) {
	env := newTestEnv(t)
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	lisinopril := testfixtures.CreateMedication(t, env.db, patient.ID, "Lisinopril", "10mg")
	metformin := testfixtures.CreateMedication(t, env.db, patient.ID, "Metformin", "500mg")
	slot := testfixtures.CreateSlot(t, env.db, metformin.ID, "08:00")

	_, err := env.doses.LogDose(context.Background(), LogDoseInput{
		MedicationID: lisinopril.ID, ScheduleID: uintPtr(slot.ID),
		ScheduledDatetime: "2024-03-14T08:00:00Z", Status: "taken",
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLogDose_DuplicateSlotSameDayConflicts(t *testing.T) {
	env := newTestEnv(t)
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	med := testfixtures.CreateMedication(t, env.db, patient.ID, "Lisinopril", "10mg", testfixtures.WithSupply(10, 2))
	slot := testfixtures.CreateSlot(t, env.db, med.ID, "08:00")

	in := LogDoseInput{
		MedicationID: med.ID, ScheduleID: uintPtr(slot.ID),
		ScheduledDatetime: "2024-03-14T08:00:00Z", Status: "taken",
	}
	_, err := env.doses.LogDose(context.Background(), in)
	require.NoError(t, err)

	_, err = env.doses.LogDose(context.Background(), in)
	assert.ErrorIs(t, err, ErrConflict)
	// The rejected log rolls back with its supply change.
	assert.Equal(t, 9, *supplyOf(t, env, med.ID))

	in.ScheduledDatetime = "2024-03-15T08:00:00Z"
	_, err = env.doses.LogDose(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 8, *supplyOf(t, env, med.ID))
}

func TestLogDose_ConcurrentTakenDosesSerialize(t *testing.T) {
	env := newTestEnv(t)
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	med := testfixtures.CreateMedication(t, env.db, patient.ID, "Lisinopril", "10mg", testfixtures.WithSupply(5, 0))
	morning := testfixtures.CreateSlot(t, env.db, med.ID, "08:00")
	evening := testfixtures.CreateSlot(t, env.db, med.ID, "20:00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, slot := range []*models.ScheduleSlot{morning, evening} {
		wg.Add(1)
		go func(i int, slotID uint) {
			defer wg.Done()
			_, errs[i] = env.doses.LogDose(context.Background(), LogDoseInput{
				MedicationID: med.ID, ScheduleID: uintPtr(slotID),
				ScheduledDatetime: "2024-03-14T08:00:00Z", Status: "taken",
			})
		}(i, slot.ID)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 3, *supplyOf(t, env, med.ID))
}

func TestLogDose_RefillReminderOnCrossing(t *testing.T) {
	env := newTestEnv(t)
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "ExponentPushToken[ada]")
	med := testfixtures.CreateMedication(t, env.db, patient.ID, "Lisinopril", "10mg", testfixtures.WithSupply(5, 4))
	morning := testfixtures.CreateSlot(t, env.db, med.ID, "08:00")
	evening := testfixtures.CreateSlot(t, env.db, med.ID, "20:00")

	_, err := env.doses.LogDose(context.Background(), LogDoseInput{
		MedicationID: med.ID, ScheduleID: uintPtr(morning.ID),
		ScheduledDatetime: "2024-03-14T08:00:00Z", Status: "taken",
	})
	require.NoError(t, err)

	notifications, err := env.notifRepo.ListByUser(context.Background(), patient.ID, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationRefill, notifications[0].Type)
	assert.Contains(t, notifications[0].Body, "Lisinopril")

	sent := env.push.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ExponentPushToken[ada]", sent[0].Token)
	assert.Equal(t, []string{"ada@example.com:Lisinopril:4"}, env.mailer.refills)

	// Already below the threshold: no second reminder.
	_, err = env.doses.LogDose(context.Background(), LogDoseInput{
		MedicationID: med.ID, ScheduleID: uintPtr(evening.ID),
		ScheduledDatetime: "2024-03-14T20:00:00Z", Status: "taken",
	})
	require.NoError(t, err)

	notifications, err = env.notifRepo.ListByUser(context.Background(), patient.ID, 10)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Len(t, env.push.Sent(), 1)
}

func TestRefillCrossed(t *testing.T) {
	change := func(before, after, threshold int) *repositories.SupplyChange {
		return &repositories.SupplyChange{Before: intPtr(before), After: intPtr(after), Threshold: intPtr(threshold)}
	}

	assert.True(t, refillCrossed(change(5, 4, 4)))
	assert.True(t, refillCrossed(change(1, 0, 0)))
	assert.False(t, refillCrossed(change(4, 3, 4)))
	assert.False(t, refillCrossed(change(10, 9, 4)))
	assert.False(t, refillCrossed(&repositories.SupplyChange{Before: intPtr(5), After: intPtr(4)}))
	assert.False(t, refillCrossed(nil))
}

func TestGetRecentDoseLogs_NewestFirstWithNames(t *testing.T) {
	env := newTestEnv(t)
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	other := testfixtures.CreateUser(t, env.db, "bob@example.com", "Bob", models.RolePatient, "")
	lisinopril := testfixtures.CreateMedication(t, env.db, patient.ID, "Lisinopril", "10mg")
	metformin := testfixtures.CreateMedication(t, env.db, patient.ID, "Metformin", "500mg")
	foreign := testfixtures.CreateMedication(t, env.db, other.ID, "Aspirin", "81mg")

	for _, in := range []LogDoseInput{
		{MedicationID: lisinopril.ID, ScheduledDatetime: "2024-03-14T08:00:00Z", ActualDatetime: strPtr("2024-03-14T08:01:00Z"), Status: "taken"},
		{MedicationID: metformin.ID, ScheduledDatetime: "2024-03-14T09:00:00Z", ActualDatetime: strPtr("2024-03-14T09:05:00Z"), Status: "missed"},
		{MedicationID: foreign.ID, ScheduledDatetime: "2024-03-14T09:00:00Z", Status: "taken"},
	} {
		_, err := env.doses.LogDose(context.Background(), in)
		require.NoError(t, err)
	}

	logs, err := env.doses.GetRecentDoseLogs(context.Background(), patient.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Metformin", logs[0].MedicationName)
	assert.Equal(t, "Lisinopril", logs[1].MedicationName)

	logs, err = env.doses.GetRecentDoseLogs(context.Background(), patient.ID, 1)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
