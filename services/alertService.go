package services

import (
	"MediCare/models"
	"MediCare/repositories"
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// FanoutResult counts the outcome of one SOS fan-out.
type FanoutResult struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Persisted int `json:"persisted"`
}

// AlertConfig tunes the SOS fan-out.
type AlertConfig struct {
	PushTimeout        time.Duration
	Concurrency        int
	RecordWithoutToken bool
}

// AlertService fans SOS alerts out to linked caregivers.
type AlertService struct {
	users         repositories.UserRepository
	links         repositories.LinkRepository
	notifications repositories.NotificationRepository
	push          PushSender
	cfg           AlertConfig
	now           func() time.Time
	log           zerolog.Logger
}

func NewAlertService(
	users repositories.UserRepository,
	links repositories.LinkRepository,
	notifications repositories.NotificationRepository,
	push PushSender,
	cfg AlertConfig,
	now func() time.Time,
	log zerolog.Logger,
) *AlertService {
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 5 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if now == nil {
		now = time.Now
	}
	return &AlertService{
		users:         users,
		links:         links,
		notifications: notifications,
		push:          push,
		cfg:           cfg,
		now:           now,
		log:           log,
	}
}

// ValidateCoordinates checks optional SOS coordinates. Both or neither must be set.
func ValidateCoordinates(latitude, longitude *float64) error {
	err := validation.Errors{
		"latitude": validation.Validate(latitude,
			validation.When(longitude != nil, validation.NotNil),
			validation.Min(-90.0), validation.Max(90.0)),
		"longitude": validation.Validate(longitude,
			validation.When(latitude != nil, validation.NotNil),
			validation.Min(-180.0), validation.Max(180.0)),
	}.Filter()
	if err != nil {
		return invalid(err)
	}
	return nil
}

// LocationText renders the location line of an SOS message.
func LocationText(latitude, longitude *float64) string {
	if latitude == nil || longitude == nil {
		return "Location not available"
	}
	return fmt.Sprintf("Location: https://maps.google.com/?q=%s,%s", formatCoord(*latitude), formatCoord(*longitude))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SendSOSAlert notifies every caregiver linked to the patient. A failed
// delivery to one caregiver never affects the others and never fails the call.
// Unusable coordinates are dropped and the alert goes out without a location.
func (s *AlertService) SendSOSAlert(ctx context.Context, patientID uint, latitude, longitude *float64) (FanoutResult, error) {
	var result FanoutResult

	if err := ValidateCoordinates(latitude, longitude); err != nil {
		s.log.Warn().Err(err).Uint("patient_id", patientID).Msg("sos coordinates ignored")
		latitude, longitude = nil, nil
	}

	patient, err := s.users.GetUserByID(ctx, patientID)
	if err != nil {
		return result, storageErr("load patient", err)
	}
	if patient == nil {
		return result, ErrNotFound
	}

	caregivers, err := s.links.ListCaregivers(ctx, patientID)
	if err != nil {
		return result, storageErr("load caregivers", err)
	}
	if len(caregivers) == 0 {
		s.log.Info().Uint("patient_id", patientID).Msg("sos raised with no linked caregivers")
		return result, nil
	}

	name := patient.Name
	if name == "" {
		name = "Patient"
	}
	title := "SOS from " + name
	body := fmt.Sprintf("EMERGENCY! %s needs help. %s", name, LocationText(latitude, longitude))
	data := map[string]interface{}{
		"latitude":   latitude,
		"longitude":  longitude,
		"patient_id": patientID,
	}

	// Records outlive a cancelled request.
	persistCtx := context.WithoutCancel(ctx)

	var attempted, delivered, failed, skipped, persisted int64
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)

	for i := range caregivers {
		caregiver := caregivers[i]
		logger := s.log.With().Uint("patient_id", patientID).Uint("caregiver_id", caregiver.ID).Logger()

		if !caregiver.HasPushToken() {
			atomic.AddInt64(&skipped, 1)
			if s.cfg.RecordWithoutToken && s.record(persistCtx, logger, caregiver.ID, title, body, data) {
				atomic.AddInt64(&persisted, 1)
			}
			continue
		}

		g.Go(func() error {
			atomic.AddInt64(&attempted, 1)

			sendCtx, cancel := context.WithTimeout(ctx, s.cfg.PushTimeout)
			err := s.push.Send(sendCtx, *caregiver.PushToken, title, body, data)
			cancel()
			if err != nil {
				atomic.AddInt64(&failed, 1)
				logger.Warn().Err(err).Msg("sos push failed")
			} else {
				atomic.AddInt64(&delivered, 1)
			}

			if s.record(persistCtx, logger, caregiver.ID, title, body, data) {
				atomic.AddInt64(&persisted, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result = FanoutResult{
		Attempted: int(attempted),
		Delivered: int(delivered),
		Failed:    int(failed),
		Skipped:   int(skipped),
		Persisted: int(persisted),
	}
	s.log.Info().
		Uint("patient_id", patientID).
		Int("attempted", result.Attempted).
		Int("delivered", result.Delivered).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("sos fan-out complete")
	return result, nil
}

func (s *AlertService) record(ctx context.Context, logger zerolog.Logger, userID uint, title, body string, data map[string]interface{}) bool {
	n := &models.Notification{
		UserID: userID,
		Type:   models.NotificationSOS,
		Title:  title,
		Body:   body,
		Data:   data,
		SentAt: s.now().UTC(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		logger.Error().Err(err).Msg("failed to record sos notification")
		return false
	}
	return true
}
