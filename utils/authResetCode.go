package utils

import (
	"MediCare/cache"
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const resetCodeTTL = 15 * time.Minute

// GenerateResetCode generates a random 6-digit reset code.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ResetCodeStore keeps password reset codes in Redis.
type ResetCodeStore struct {
	cache *cache.Cache
}

func NewResetCodeStore(c *cache.Cache) *ResetCodeStore {
	return &ResetCodeStore{cache: c}
}

func resetCodeKey(email string) string {
	return "reset_code:" + email
}

// Set stores the code for email for 15 minutes.
func (s *ResetCodeStore) Set(ctx context.Context, email, code string) error {
	return s.cache.Set(ctx, resetCodeKey(email), code, resetCodeTTL)
}

// Get returns nil when no code is stored for email.
func (s *ResetCodeStore) Get(ctx context.Context, email string) (*string, error) {
	code, err := s.cache.Get(ctx, resetCodeKey(email))
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, nil
	}
	return &code, nil
}

func (s *ResetCodeStore) Delete(ctx context.Context, email string) error {
	return s.cache.Delete(ctx, resetCodeKey(email))
}
