package services

import (
	"MediCare/models"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DayBounds returns [start, end) of the calendar day containing ref, in
// ref's location.
func DayBounds(ref time.Time) (time.Time, time.Time) {
	y, m, d := ref.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, ref.Location())
	return start, start.AddDate(0, 0, 1)
}

// ProjectOccurrences expands the slots of medications active on the day of
// ref into one occurrence each and attaches the matching dose log state.
// Logs outside the day or without a slot are ignored. When several logs hit
// the same slot, the one with the latest actual time wins, then the highest id.
func ProjectOccurrences(meds []models.Medication, logs []models.DoseLog, ref time.Time) []models.DoseOccurrence {
	start, end := DayBounds(ref)

	latest := make(map[uint]*models.DoseLog)
	for i := range logs {
		l := &logs[i]
		if l.ScheduleID == nil {
			continue
		}
		if l.ScheduledDatetime.Before(start) || !l.ScheduledDatetime.Before(end) {
			continue
		}
		if cur, ok := latest[*l.ScheduleID]; !ok || newerLog(l, cur) {
			latest[*l.ScheduleID] = l
		}
	}

	weekday := ref.Weekday()
	out := make([]models.DoseOccurrence, 0)
	for i := range meds {
		med := &meds[i]
		if !med.ActiveOn(ref) {
			continue
		}
		for j := range med.Schedules {
			slot := &med.Schedules[j]
			if slot.MedicationID != med.ID || !slot.RunsOn(weekday) {
				continue
			}
			occ := models.DoseOccurrence{
				MedicationID:  med.ID,
				Name:          med.Name,
				Dosage:        med.Dosage,
				ScheduleID:    slot.ID,
				ScheduledTime: slot.ScheduledTime,
				State:         models.StateUpcoming,
			}
			if l, ok := latest[slot.ID]; ok && l.MedicationID == med.ID {
				occ.State = models.StateFromStatus(l.Status)
				actual := l.ActualDatetime
				occ.ActualDatetime = &actual
			}
			out = append(out, occ)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ma, mb := clockMinutes(a.ScheduledTime), clockMinutes(b.ScheduledTime)
		if ma != mb {
			return ma < mb
		}
		if a.MedicationID != b.MedicationID {
			return a.MedicationID < b.MedicationID
		}
		return a.ScheduleID < b.ScheduleID
	})
	return out
}

func newerLog(a, b *models.DoseLog) bool {
	if !a.ActualDatetime.Equal(b.ActualDatetime) {
		return a.ActualDatetime.After(b.ActualDatetime)
	}
	return a.ID > b.ID
}

// clockMinutes parses H:MM, HH:MM or HH:MM:SS into minutes past midnight.
// Unparseable values sort last.
func clockMinutes(value string) int {
	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		return 24 * 60
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 24 * 60
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 24 * 60
	}
	return h*60 + m
}
