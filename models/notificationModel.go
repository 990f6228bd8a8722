package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationSOS    = "sos"
	NotificationRefill = "refill"
)

// PatientCaregiver links a caregiver to a patient. The pair is the identity.
type PatientCaregiver struct {
	PatientID   uint      `gorm:"primaryKey;column:patient_id;autoIncrement:false" json:"patient_id"`
	CaregiverID uint      `gorm:"primaryKey;column:caregiver_id;autoIncrement:false;index" json:"caregiver_id"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	Patient     User      `gorm:"foreignKey:PatientID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Caregiver   User      `gorm:"foreignKey:CaregiverID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (PatientCaregiver) TableName() string {
	return "patient_caregivers"
}

// Notification model
type Notification struct {
	ID     uint              `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	UserID uint              `gorm:"column:user_id;not null;index" json:"user_id"`
	Type   string            `gorm:"column:type;size:32;not null;index" json:"type"`
	Title  string            `gorm:"column:title;size:255;not null" json:"title"`
	Body   string            `gorm:"column:body;type:text;not null" json:"body"`
	Data   datatypes.JSONMap `gorm:"column:data" json:"data,omitempty"`
	SentAt time.Time         `gorm:"column:sent_at;not null;index" json:"sent_at"`
	ReadAt *time.Time        `gorm:"column:read_at" json:"read_at,omitempty"`
	User   User              `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

// AllModels lists every table in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Role{},
		&User{},
		&PatientCaregiver{},
		&Medication{},
		&ScheduleSlot{},
		&DoseLog{},
		&Notification{},
	}
}
