package models

import (
	"time"

	"gorm.io/datatypes"
)

// DoseStatus is the persisted outcome of a dose.
type DoseStatus string

const (
	DoseTaken   DoseStatus = "taken"
	DoseMissed  DoseStatus = "missed"
	DoseSkipped DoseStatus = "skipped"
)

// Valid reports whether s may be stored on a dose log.
func (s DoseStatus) Valid() bool {
	switch s {
	case DoseTaken, DoseMissed, DoseSkipped:
		return true
	}
	return false
}

// DoseState is the computed state of a dose occurrence. Upcoming is never stored.
type DoseState string

const (
	StateUpcoming DoseState = "upcoming"
	StateTaken    DoseState = "taken"
	StateMissed   DoseState = "missed"
	StateSkipped  DoseState = "skipped"
)

// StateFromStatus maps a persisted status onto an occurrence state.
func StateFromStatus(s DoseStatus) DoseState {
	switch s {
	case DoseTaken:
		return StateTaken
	case DoseMissed:
		return StateMissed
	case DoseSkipped:
		return StateSkipped
	}
	return StateUpcoming
}

// Medication model
type Medication struct {
	ID              uint           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID       uint           `gorm:"column:patient_id;not null;index" json:"patient_id"`
	Name            string         `gorm:"column:name;size:255;not null" json:"name"`
	Dosage          string         `gorm:"column:dosage;size:100;not null" json:"dosage"`
	Frequency       string         `gorm:"column:frequency;size:100;not null" json:"frequency"`
	Instructions    string         `gorm:"column:instructions;type:text" json:"instructions"`
	StartDate       time.Time      `gorm:"column:start_date;not null" json:"start_date"`
	EndDate         *time.Time     `gorm:"column:end_date" json:"end_date,omitempty"`
	IsActive        bool           `gorm:"column:is_active;not null" json:"is_active"`
	CurrentSupply   *int           `gorm:"column:current_supply;check:current_supply >= 0" json:"current_supply,omitempty"`
	RefillThreshold *int           `gorm:"column:refill_threshold" json:"refill_threshold,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	Patient         User           `gorm:"foreignKey:PatientID;references:ID" json:"-"`
	Schedules       []ScheduleSlot `gorm:"foreignKey:MedicationID;references:ID;constraint:OnDelete:CASCADE" json:"schedules,omitempty"`
}

func (Medication) TableName() string {
	return "medications"
}

// ActiveOn reports whether the medication should be taken on the calendar day
// of date. Start and end dates are stored as UTC midnights.
func (m *Medication) ActiveOn(date time.Time) bool {
	if !m.IsActive {
		return false
	}
	y, mo, d := date.Date()
	day := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	if storedDay(m.StartDate).After(day) {
		return false
	}
	if m.EndDate != nil && storedDay(*m.EndDate).Before(day) {
		return false
	}
	return true
}

// ScheduleSlot model
type ScheduleSlot struct {
	ID            uint                     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	MedicationID  uint                     `gorm:"column:medication_id;not null;index" json:"medication_id"`
	ScheduledTime string                   `gorm:"column:scheduled_time;size:5;not null" json:"scheduled_time"`
	DaysOfWeek    datatypes.JSONSlice[int] `gorm:"column:days_of_week" json:"days_of_week,omitempty"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	Medication    *Medication              `gorm:"foreignKey:MedicationID;references:ID" json:"-"`
}

func (ScheduleSlot) TableName() string {
	return "medication_schedules"
}

// RunsOn reports whether the slot applies to the given weekday. An empty
// day set means every day.
func (s *ScheduleSlot) RunsOn(day time.Weekday) bool {
	if len(s.DaysOfWeek) == 0 {
		return true
	}
	for _, d := range s.DaysOfWeek {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}

// DoseLog model
type DoseLog struct {
	ID                uint        `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	MedicationID      uint        `gorm:"column:medication_id;not null;index;uniqueIndex:idx_dose_once_per_day" json:"medication_id"`
	ScheduleID        *uint       `gorm:"column:schedule_id;index;uniqueIndex:idx_dose_once_per_day" json:"schedule_id,omitempty"`
	ScheduledDatetime time.Time   `gorm:"column:scheduled_datetime;not null;index" json:"scheduled_datetime"`
	ScheduledDate     string      `gorm:"column:scheduled_date;size:10;not null;uniqueIndex:idx_dose_once_per_day" json:"scheduled_date"`
	ActualDatetime    time.Time   `gorm:"column:actual_datetime;not null" json:"actual_datetime"`
	Status            DoseStatus  `gorm:"column:status;size:16;check:status IN ('taken', 'missed', 'skipped');not null" json:"status"`
	Notes             string      `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt         time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	MedicationName    string      `gorm:"->;-:migration;column:medication_name" json:"medication_name,omitempty"`
	Medication        *Medication `gorm:"foreignKey:MedicationID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (DoseLog) TableName() string {
	return "dose_logs"
}

// DoseOccurrence is one calendar-day instance of a schedule slot. It is
// computed at read time and never stored.
type DoseOccurrence struct {
	MedicationID   uint       `json:"medication_id"`
	Name           string     `json:"name"`
	Dosage         string     `json:"dosage"`
	ScheduleID     uint       `json:"schedule_id"`
	ScheduledTime  string     `json:"scheduled_time"`
	State          DoseState  `json:"state"`
	ActualDatetime *time.Time `json:"actual_datetime,omitempty"`
}

func storedDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
