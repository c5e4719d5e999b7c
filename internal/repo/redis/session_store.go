package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flexora/jobboard-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Key layout: `otp:{email}` holds the live challenge as `{"otp":"123456"}`,
// `user_session:{email}` holds the staged registration JSON. The two keys
// expire independently; resending an OTP refreshes only the challenge.
const (
	otpKeyPrefix     = "otp:"
	sessionKeyPrefix = "user_session:"
)

type SessionStore interface {
	SetOTP(ctx context.Context, email, code string, ttl time.Duration) error
	// GetOTP returns "" with no error when no live challenge exists.
	GetOTP(ctx context.Context, email string) (string, error)
	DeleteOTP(ctx context.Context, email string) error

	StageRegistration(ctx context.Context, pending *domain.PendingRegistration, ttl time.Duration) error
	// GetRegistration returns nil with no error when the staged data expired.
	GetRegistration(ctx context.Context, email string) (*domain.PendingRegistration, error)
	DeleteRegistration(ctx context.Context, email string) error
}

type sessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) SessionStore {
	return &sessionStore{client: client}
}

type otpRecord struct {
	OTP string `json:"otp"`
}

func (s *sessionStore) SetOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	payload, err := json.Marshal(otpRecord{OTP: code})
	if err != nil {
		return fmt.Errorf("failed to marshal otp record: %w", err)
	}

	if err := s.client.Set(ctx, otpKeyPrefix+email, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (s *sessionStore) GetOTP(ctx context.Context, email string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	raw, err := s.client.Get(ctx, otpKeyPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read otp: %w", err)
	}

	var rec otpRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", fmt.Errorf("corrupt otp record: %w", err)
	}
	return rec.OTP, nil
}

func (s *sessionStore) DeleteOTP(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := s.client.Del(ctx, otpKeyPrefix+email).Err(); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

func (s *sessionStore) StageRegistration(ctx context.Context, pending *domain.PendingRegistration, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal staged registration: %w", err)
	}

	if err := s.client.Set(ctx, sessionKeyPrefix+pending.Email, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to stage registration: %w", err)
	}
	return nil
}

func (s *sessionStore) GetRegistration(ctx context.Context, email string) (*domain.PendingRegistration, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	raw, err := s.client.Get(ctx, sessionKeyPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read staged registration: %w", err)
	}

	var pending domain.PendingRegistration
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("corrupt staged registration: %w", err)
	}
	return &pending, nil
}

func (s *sessionStore) DeleteRegistration(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := s.client.Del(ctx, sessionKeyPrefix+email).Err(); err != nil {
		return fmt.Errorf("failed to delete staged registration: %w", err)
	}
	return nil
}
