package services

import (
	"MediCare/cache"
	"MediCare/database"
	"MediCare/repositories"
	"MediCare/testfixtures"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentPush struct {
	Token string
	Title string
	Body  string
	Data  map[string]interface{}
}

// recordingSender records every push and fails for tokens listed in fail.
type recordingSender struct {
	mu    sync.Mutex
	sent  []sentPush
	fail  map[string]error
	block map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{fail: map[string]error{}, block: map[string]bool{}}
}

func (s *recordingSender) Send(ctx context.Context, token, title, body string, data map[string]interface{}) error {
	s.mu.Lock()
	s.sent = append(s.sent, sentPush{Token: token, Title: title, Body: body, Data: data})
	err := s.fail[token]
	block := s.block[token]
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (s *recordingSender) Sent() []sentPush {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentPush, len(s.sent))
	copy(out, s.sent)
	return out
}

type recordingMailer struct {
	mu      sync.Mutex
	refills []string
	resets  map[string]string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{resets: map[string]string{}}
}

func (m *recordingMailer) SendResetCode(email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[email] = code
	return nil
}

func (m *recordingMailer) SendRefillReminder(email, medication string, remaining int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refills = append(m.refills, fmt.Sprintf("%s:%s:%d", email, medication, remaining))
	return nil
}

type testEnv struct {
	db            *gorm.DB
	clock         *testfixtures.Clock
	push          *recordingSender
	mailer        *recordingMailer
	cache         *cache.Cache
	users         repositories.UserRepository
	medRepo       repositories.MedicationRepository
	doseRepo      repositories.DoseLogRepository
	linkRepo      repositories.LinkRepository
	notifRepo     repositories.NotificationRepository
	schedules     *ScheduleService
	medications   *MedicationService
	doses         *DoseService
	links         *LinkService
	notifications *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testfixtures.NewTestDB(t)
	_, client := testfixtures.NewTestRedis(t)
	c, err := cache.NewCache(client)
	require.NoError(t, err)

	clock := testfixtures.NewClock(time.Time{})
	log := zerolog.Nop()
	push := newRecordingSender()
	mailer := newRecordingMailer()

	locker := database.NewLocker(client, 5*time.Second, 100, 5*time.Millisecond)

	env := &testEnv{
		db:        db,
		clock:     clock,
		push:      push,
		mailer:    mailer,
		cache:     c,
		users:     repositories.NewUserRepository(db),
		medRepo:   repositories.NewMedicationRepository(db),
		doseRepo:  repositories.NewDoseLogRepository(db, locker, log),
		linkRepo:  repositories.NewLinkRepository(db),
		notifRepo: repositories.NewNotificationRepository(db),
	}
	env.schedules = NewScheduleService(env.medRepo, env.doseRepo, env.users, c, time.Minute, clock.NowFunc(), log)
	env.medications = NewMedicationService(env.medRepo, env.schedules)
	env.doses = NewDoseService(DoseServiceDeps{
		Medications:   env.medRepo,
		DoseLogs:      env.doseRepo,
		Users:         env.users,
		Notifications: env.notifRepo,
		Schedules:     env.schedules,
		Push:          push,
		Mailer:        mailer,
		Now:           clock.NowFunc(),
		Log:           log,
	})
	env.links = NewLinkService(env.users, env.linkRepo)
	env.notifications = NewNotificationService(env.notifRepo, clock.NowFunc())
	return env
}

func intPtr(v int) *int { return &v }

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }
