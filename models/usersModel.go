package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RolePatient   = "patient"
	RoleCaregiver = "caregiver"
)

// Role represents a user role
type Role struct {
	ID          int64     `gorm:"primaryKey;column:id" json:"id"`
	Name        string    `gorm:"size:50;not null;unique;index;column:name" json:"name"`
	Description string    `gorm:"type:text;column:description" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (Role) TableName() string {
	return "roles"
}

// SeedRoles inserts initial roles into the database
func SeedRoles(db *gorm.DB) error {
	initialRoles := []Role{
		{Name: RolePatient, Description: "Owns medications, logs doses and raises SOS alerts"},
		{Name: RoleCaregiver, Description: "Manages linked patients and receives their alerts"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, role := range initialRoles {
			if err := tx.FirstOrCreate(&role, Role{Name: role.Name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// User represents a patient or caregiver account
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Email        string    `gorm:"size:255;not null;unique;index;column:email" json:"email"`
	Name         string    `gorm:"size:255;not null;column:name" json:"name"`
	PasswordHash string    `gorm:"size:255;not null;column:password_hash" json:"-"`
	RoleID       int64     `gorm:"index;not null;column:role_id" json:"role_id"`
	Role         Role      `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"role"`
	Timezone     string    `gorm:"size:64;not null;default:UTC;column:timezone" json:"timezone"`
	PushToken    *string   `gorm:"size:255;column:push_token" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// IsCaregiver reports whether the user holds the caregiver role.
func (u *User) IsCaregiver() bool {
	return u.Role.Name == RoleCaregiver
}

// HasPushToken reports whether a push delivery token is registered.
func (u *User) HasPushToken() bool {
	return u.PushToken != nil && *u.PushToken != ""
}

// Location resolves the user's timezone, falling back to UTC.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
