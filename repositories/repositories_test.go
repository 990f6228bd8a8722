package repositories

import (
	"MediCare/database"
	"MediCare/models"
	"MediCare/testfixtures"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDoseLogRepo(t *testing.T, db *gorm.DB) DoseLogRepository {
	t.Helper()
	_, client := testfixtures.NewTestRedis(t)
	return NewDoseLogRepository(db, database.NewLocker(client, time.Second, 10, 5*time.Millisecond), zerolog.Nop())
}

func TestIsDuplicate(t *testing.T) {
	assert.False(t, isDuplicate(nil))
	assert.True(t, isDuplicate(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicate(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isDuplicate(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isDuplicate(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, isDuplicate(errors.New("connection refused")))
}

func TestUserRepository(t *testing.T) {
	db := testfixtures.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	role, err := repo.GetRoleByName(ctx, models.RolePatient)
	require.NoError(t, err)
	require.NotNil(t, role)

	missingRole, err := repo.GetRoleByName(ctx, "dentist")
	require.NoError(t, err)
	assert.Nil(t, missingRole)

	user := &models.User{Email: "ada@example.com", Name: "Ada", PasswordHash: "h", RoleID: role.ID, Timezone: "UTC"}
	require.NoError(t, repo.CreateUser(ctx, user))

	dup := &models.User{Email: "ada@example.com", Name: "Ada 2", PasswordHash: "h", RoleID: role.ID, Timezone: "UTC"}
	assert.ErrorIs(t, repo.CreateUser(ctx, dup), ErrDuplicate)

	exists, err := repo.EmailExists(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	byEmail, err := repo.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, models.RolePatient, byEmail.Role.Name)

	missing, err := repo.GetUserByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, repo.UpdatePushToken(ctx, 999, nil), gorm.ErrRecordNotFound)
	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))
	reloaded, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", reloaded.PasswordHash)
}

func TestLinkRepository(t *testing.T) {
	db := testfixtures.NewTestDB(t)
	repo := NewLinkRepository(db)
	ctx := context.Background()

	patient := testfixtures.CreateUser(t, db, "ada@example.com", "Ada", models.RolePatient, "")
	c1 := testfixtures.CreateUser(t, db, "c1@example.com", "C1", models.RoleCaregiver, "")
	c2 := testfixtures.CreateUser(t, db, "c2@example.com", "C2", models.RoleCaregiver, "")

	require.NoError(t, repo.Create(ctx, patient.ID, c2.ID))
	require.NoError(t, repo.Create(ctx, patient.ID, c1.ID))
	require.NoError(t, repo.Create(ctx, patient.ID, c1.ID))

	caregivers, err := repo.ListCaregivers(ctx, patient.ID)
	require.NoError(t, err)
	require.Len(t, caregivers, 2)
	assert.Equal(t, c1.ID, caregivers[0].ID)
	assert.Equal(t, c2.ID, caregivers[1].ID)

	patients, err := repo.ListPatients(ctx, c1.ID)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, patient.ID, patients[0].ID)

	ok, err := repo.Exists(ctx, patient.ID, c1.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists(ctx, c1.ID, patient.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMedicationRepository_DeleteCascades(t *testing.T) {
	db := testfixtures.NewTestDB(t)
	meds := NewMedicationRepository(db)
	doses := newDoseLogRepo(t, db)
	ctx := context.Background()

	patient := testfixtures.CreateUser(t, db, "ada@example.com", "Ada", models.RolePatient, "")
	med := testfixtures.CreateMedication(t, db, patient.ID, "Lisinopril", "10mg")
	slot := testfixtures.CreateSlot(t, db, med.ID, "08:00")

	_, err := doses.Record(ctx, &models.DoseLog{
		MedicationID:      med.ID,
		ScheduleID:        &slot.ID,
		ScheduledDatetime: time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC),
		ScheduledDate:     "2024-03-14",
		ActualDatetime:    time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC),
		Status:            models.DoseTaken,
	})
	require.NoError(t, err)

	require.NoError(t, meds.Delete(ctx, med.ID))

	var logs, slots int64
	require.NoError(t, db.Model(&models.DoseLog{}).Count(&logs).Error)
	require.NoError(t, db.Model(&models.ScheduleSlot{}).Count(&slots).Error)
	assert.Zero(t, logs)
	assert.Zero(t, slots)

	assert.ErrorIs(t, meds.Delete(ctx, med.ID), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, meds.Update(ctx, med.ID, map[string]interface{}{"name": "x"}), gorm.ErrRecordNotFound)

	gone, err := meds.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMedicationRepository_ListWithSchedulesSkipsInactive(t *testing.T) {
	db := testfixtures.NewTestDB(t)
	meds := NewMedicationRepository(db)

	patient := testfixtures.CreateUser(t, db, "ada@example.com", "Ada", models.RolePatient, "")
	active := testfixtures.CreateMedication(t, db, patient.ID, "Lisinopril", "10mg")
	testfixtures.CreateMedication(t, db, patient.ID, "Paused", "1mg", testfixtures.Inactive())
	testfixtures.CreateSlot(t, db, active.ID, "08:00")

	list, err := meds.ListWithSchedules(context.Background(), patient.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)
	assert.Len(t, list[0].Schedules, 1)

	all, err := meds.ListByPatient(context.Background(), patient.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDoseLogRepository_RecordAndWindow(t *testing.T) {
	db := testfixtures.NewTestDB(t)
	repo := newDoseLogRepo(t, db)
	ctx := context.Background()

	patient := testfixtures.CreateUser(t, db, "ada@example.com", "Ada", models.RolePatient, "")
	med := testfixtures.CreateMedication(t, db, patient.ID, "Lisinopril", "10mg", testfixtures.WithSupply(1, 0))
	slot := testfixtures.CreateSlot(t, db, med.ID, "08:00")

	entry := func(day int, status models.DoseStatus) *models.DoseLog {
		at := time.Date(2024, 3, day, 8, 0, 0, 0, time.UTC)
		return &models.DoseLog{
			MedicationID:      med.ID,
			ScheduleID:        &slot.ID,
			ScheduledDatetime: at,
			ScheduledDate:     at.Format("2006-01-02"),
			ActualDatetime:    at,
			Status:            status,
		}
	}

	change, err := repo.Record(ctx, entry(13, models.DoseTaken))
	require.NoError(t, err)
	assert.Equal(t, 1, *change.Before)
	assert.Equal(t, 0, *change.After)

	change, err = repo.Record(ctx, entry(14, models.DoseTaken))
	require.NoError(t, err)
	assert.Equal(t, 0, *change.Before)
	assert.Equal(t, 0, *change.After)

	_, err = repo.Record(ctx, entry(14, models.DoseMissed))
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.Record(ctx, &models.DoseLog{MedicationID: 999, ScheduledDate: "2024-03-14", Status: models.DoseTaken})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	logs, err := repo.ListInWindow(ctx, []uint{med.ID},
		time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "2024-03-14", logs[0].ScheduledDate)

	none, err := repo.ListInWindow(ctx, nil, time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, none)

	recent, err := repo.ListRecentByPatient(ctx, patient.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2024-03-14", recent[0].ScheduledDate)
	assert.Equal(t, "Lisinopril", recent[0].MedicationName)
}

func TestNotificationRepository(t *testing.T) {
	db := testfixtures.NewTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	user := testfixtures.CreateUser(t, db, "ada@example.com", "Ada", models.RolePatient, "")
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.Notification{
			UserID: user.ID,
			Type:   models.NotificationRefill,
			Title:  fmt.Sprintf("n%d", i),
			Body:   "body",
			Data:   map[string]interface{}{"i": i},
			SentAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := repo.ListByUser(ctx, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].Title)
	assert.Equal(t, "n1", list[1].Title)
	// JSONMap decodes numbers as json.Number.
	require.IsType(t, json.Number(""), list[1].Data["i"])
	i, err := list[1].Data["i"].(json.Number).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1), i)

	ok, err := repo.MarkRead(ctx, list[0].ID, user.ID+1, base)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.MarkRead(ctx, list[0].ID, user.ID, base)
	require.NoError(t, err)
	assert.True(t, ok)
}
