package services

import (
	"MediCare/cache"
	"MediCare/models"
	"MediCare/repositories"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const DefaultScheduleCacheTTL = 10 * time.Minute

// ScheduleService projects schedules onto calendar days.
type ScheduleService struct {
	medications repositories.MedicationRepository
	doseLogs    repositories.DoseLogRepository
	users       repositories.UserRepository
	cache       *cache.Cache
	ttl         time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

func NewScheduleService(
	medications repositories.MedicationRepository,
	doseLogs repositories.DoseLogRepository,
	users repositories.UserRepository,
	c *cache.Cache,
	ttl time.Duration,
	now func() time.Time,
	log zerolog.Logger,
) *ScheduleService {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultScheduleCacheTTL
	}
	return &ScheduleService{
		medications: medications,
		doseLogs:    doseLogs,
		users:       users,
		cache:       c,
		ttl:         ttl,
		now:         now,
		log:         log,
	}
}

func scheduleCacheKey(patientID uint, generation int64, ref time.Time) string {
	return fmt.Sprintf("schedule_cache:%d:%d:%s:%s", patientID, generation, ref.Format("2006-01-02"), ref.Location().String())
}

func scheduleGenerationKey(patientID uint) string {
	return fmt.Sprintf("schedule_gen:%d", patientID)
}

func schedulePattern(patientID uint) string {
	return fmt.Sprintf("schedule_cache:%d:*", patientID)
}

// GetTodaySchedule returns the dose occurrences of patientID on the calendar
// day of referenceDate. An unknown patient yields an empty list.
func (s *ScheduleService) GetTodaySchedule(ctx context.Context, patientID uint, referenceDate time.Time) ([]models.DoseOccurrence, error) {
	// The generation is read before loading. An Invalidate that lands during
	// the load bumps it, so the entry written below is never read again.
	useCache := s.cache != nil
	var key string
	if useCache {
		generation, err := s.cache.Counter(ctx, scheduleGenerationKey(patientID))
		if err != nil {
			s.log.Warn().Err(err).Uint("patient_id", patientID).Msg("failed to read schedule generation")
			useCache = false
		}
		key = scheduleCacheKey(patientID, generation, referenceDate)
	}
	if useCache {
		var cached []models.DoseOccurrence
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to read schedule cache")
		}
	}

	meds, err := s.medications.ListWithSchedules(ctx, patientID)
	if err != nil {
		return nil, storageErr("load schedules", err)
	}

	ids := make([]uint, 0, len(meds))
	for _, m := range meds {
		ids = append(ids, m.ID)
	}

	// Widen the storage query by a day on each side; the exact day bounds in
	// the reference location are applied by the projection.
	start, end := DayBounds(referenceDate)
	logs, err := s.doseLogs.ListInWindow(ctx, ids, start.AddDate(0, 0, -1), end.AddDate(0, 0, 1))
	if err != nil {
		return nil, storageErr("load dose logs", err)
	}

	occurrences := ProjectOccurrences(meds, logs, referenceDate)

	if useCache {
		if err := s.cache.SetJSON(ctx, key, occurrences, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to write schedule cache")
		}
	}
	return occurrences, nil
}

func (s *ScheduleService) patientLocation(ctx context.Context, patientID uint) (*time.Location, error) {
	user, err := s.users.GetUserByID(ctx, patientID)
	if err != nil {
		return nil, storageErr("load patient", err)
	}
	if user == nil {
		return time.UTC, nil
	}
	return user.Location(), nil
}

// TodayFor resolves the current day in the patient's timezone and returns
// that day's schedule along with the reference instant used.
func (s *ScheduleService) TodayFor(ctx context.Context, patientID uint) ([]models.DoseOccurrence, time.Time, error) {
	loc, err := s.patientLocation(ctx, patientID)
	if err != nil {
		return nil, time.Time{}, err
	}
	ref := s.now().In(loc)
	occurrences, err := s.GetTodaySchedule(ctx, patientID, ref)
	if err != nil {
		return nil, time.Time{}, err
	}
	return occurrences, ref, nil
}

// ForDate returns the schedule of a YYYY-MM-DD day in the patient's timezone.
func (s *ScheduleService) ForDate(ctx context.Context, patientID uint, day string) ([]models.DoseOccurrence, time.Time, error) {
	loc, err := s.patientLocation(ctx, patientID)
	if err != nil {
		return nil, time.Time{}, err
	}
	ref, err := time.ParseInLocation(dateLayout, day, loc)
	if err != nil {
		return nil, time.Time{}, invalidf("date must be formatted as YYYY-MM-DD")
	}
	occurrences, err := s.GetTodaySchedule(ctx, patientID, ref)
	if err != nil {
		return nil, time.Time{}, err
	}
	return occurrences, ref, nil
}

// Invalidate retires every cached projection of the patient, including
// ones still being computed by concurrent reads.
func (s *ScheduleService) Invalidate(ctx context.Context, patientID uint) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, scheduleGenerationKey(patientID)); err != nil {
		s.log.Warn().Err(err).Uint("patient_id", patientID).Msg("failed to bump schedule generation")
	}
	if err := s.cache.DeleteAll(ctx, schedulePattern(patientID)); err != nil {
		s.log.Warn().Err(err).Uint("patient_id", patientID).Msg("failed to invalidate schedule cache")
	}
}
