package services

import (
	"MediCare/models"
	"MediCare/repositories"
	"MediCare/utils"
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// RegisterInput is the payload for a new account.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Timezone string `json:"timezone"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required.Error("password cannot be blank"), utils.PasswordRule),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Role, validation.Required, validation.In(models.RolePatient, models.RoleCaregiver)),
		validation.Field(&in.Timezone, utils.TimezoneRule),
	)
}

// UserService handles accounts, credentials and push tokens.
type UserService struct {
	users      repositories.UserRepository
	resetCodes *utils.ResetCodeStore
	mailer     Mailer
	log        zerolog.Logger
}

func NewUserService(users repositories.UserRepository, resetCodes *utils.ResetCodeStore, mailer Mailer, log zerolog.Logger) *UserService {
	return &UserService{users: users, resetCodes: resetCodes, mailer: mailer, log: log}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, storageErr("check email", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	role, err := s.users.GetRoleByName(ctx, in.Role)
	if err != nil {
		return nil, storageErr("load role", err)
	}
	if role == nil {
		return nil, invalidf("unknown role %q", in.Role)
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	timezone := in.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	user := &models.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hashed,
		RoleID:       role.ID,
		Timezone:     timezone,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, storageErr("create user", err)
	}
	user.Role = *role
	return user, nil
}

// Authenticate checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storageErr("load user", err)
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storageErr("load user", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// RegisterPushToken stores the device token used for push delivery. An
// empty token clears it.
func (s *UserService) RegisterPushToken(ctx context.Context, userID uint, token string) error {
	token = strings.TrimSpace(token)
	if err := validation.Validate(token, validation.Length(0, 255)); err != nil {
		return invalid(validation.Errors{"push_token": err})
	}
	var value *string
	if token != "" {
		value = &token
	}
	if err := s.users.UpdatePushToken(ctx, userID, value); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return storageErr("update push token", err)
	}
	return nil
}

// SendResetCode emails a one-time password reset code.
func (s *UserService) SendResetCode(ctx context.Context, email string) error {
	if s.mailer == nil {
		return fmt.Errorf("%w: email is not configured", ErrDeliveryUnavailable)
	}
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return storageErr("load user", err)
	}
	if user == nil {
		return ErrNotFound
	}

	code, err := utils.GenerateResetCode()
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}
	if err := s.resetCodes.Set(ctx, user.Email, code); err != nil {
		return storageErr("store reset code", err)
	}
	if err := s.mailer.SendResetCode(user.Email, code); err != nil {
		s.log.Error().Err(err).Uint("user_id", user.ID).Msg("failed to send reset code email")
		return fmt.Errorf("%w: %w", ErrDeliveryUnavailable, err)
	}
	return nil
}

// ResetPassword replaces the password when code matches the stored one.
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := utils.ValidatePasswordReset(code, newPassword); err != nil {
		return invalid(err)
	}
	email = normalizeEmail(email)

	stored, err := s.resetCodes.Get(ctx, email)
	if err != nil {
		return storageErr("load reset code", err)
	}
	if stored == nil || *stored != code {
		return ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return storageErr("load user", err)
	}
	if user == nil {
		return ErrNotFound
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return storageErr("update password", err)
	}
	if err := s.resetCodes.Delete(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to delete reset code")
	}
	return nil
}
