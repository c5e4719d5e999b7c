package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/flexora/jobboard-api/internal/domain"
	"github.com/flexora/jobboard-api/internal/pkg/validate"
	"github.com/flexora/jobboard-api/internal/platform/mailer"
	"github.com/flexora/jobboard-api/internal/repo/postgres"
	rediscache "github.com/flexora/jobboard-api/internal/repo/redis"
	"github.com/flexora/jobboard-api/pkg/auth"
	"github.com/flexora/jobboard-api/pkg/config"
	"github.com/flexora/jobboard-api/pkg/events"
	"github.com/flexora/jobboard-api/pkg/logger"
	"github.com/google/uuid"
)

// AuthResult is returned by operations that establish a session. User carries
// the role-shaped view (seeker or employer).
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         interface{}
}

type RefreshResult struct {
	AccessToken string
	User        interface{}
}

type AuthService interface {
	Register(ctx context.Context, reg domain.Registration) error
	VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error)
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*RefreshResult, error)
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, userID string, req *postgres.UpdateAccountRequest) (*domain.Account, error)
}

type authService struct {
	userRepo postgres.UserRepository
	sessions rediscache.SessionStore
	mailer   mailer.Service
	eventBus events.Publisher
	config   *config.Config
}

func NewAuthService(
	userRepo postgres.UserRepository,
	sessions rediscache.SessionStore,
	mailer mailer.Service,
	eventBus events.Publisher,
	config *config.Config,
) AuthService {
	return &authService{
		userRepo: userRepo,
		sessions: sessions,
		mailer:   mailer,
		eventBus: eventBus,
		config:   config,
	}
}

// Register validates and stages a registration attempt without creating a
// durable account. The OTP email is sent before the challenge and staged data
// become visible, so a delivery failure leaves nothing behind to verify
// against. Re-registering a still-pending email overwrites the staged data.
func (s *authService) Register(ctx context.Context, reg domain.Registration) error {
	base := reg.Base()
	base.Normalize()
	if err := validate.Struct(reg); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrBadRequest, err)
	}

	existing, err := s.userRepo.FindByEmail(ctx, base.Email)
	if err != nil {
		return fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return domain.ErrEmailExists
	}

	otp, err := generateOTP(s.config.Auth.OTPLength)
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	passwordHash, err := argon2id.CreateHash(base.Password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.mailer.SendOTPEmail(base.Email, otp); err != nil {
		logger.ErrorContext(ctx, "Failed to send OTP email", "error", err, "email", base.Email)
		return fmt.Errorf("%w: %s", domain.ErrNotificationFailure, err)
	}

	if err := s.sessions.SetOTP(ctx, base.Email, otp, s.config.Auth.OTPTTL); err != nil {
		return fmt.Errorf("failed to store otp challenge: %w", err)
	}

	pending := domain.Stage(reg, passwordHash)
	if err := s.sessions.StageRegistration(ctx, pending, s.config.Auth.RegistrationTTL); err != nil {
		return fmt.Errorf("failed to stage registration: %w", err)
	}

	s.publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		Email:        base.Email,
		Role:         reg.Role(),
		RegisteredAt: time.Now(),
	})

	return nil
}

// VerifyOTP promotes a staged registration into a durable account. Account
// creation happens before the staged records are deleted, so a failure midway
// leaves the staged data intact and the same code can be retried; a
// concurrent duplicate create is caught by the directory's unique email index
// and surfaces as ErrEmailExists.
func (s *authService) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)

	stored, err := s.sessions.GetOTP(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up otp challenge: %w", err)
	}
	if stored == "" {
		// No live challenge. If the staged registration is also gone the whole
		// attempt is over (already verified or fully expired); if it is still
		// alive only the code lapsed and a resend can recover.
		pending, err := s.sessions.GetRegistration(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up staged registration: %w", err)
		}
		if pending == nil {
			return nil, domain.ErrSessionExpired
		}
		return nil, domain.ErrOTPExpired
	}
	if code != stored {
		// Challenge is not consumed; the correct code can still be submitted
		// until it expires or is replaced.
		return nil, domain.ErrInvalidOTP
	}

	pending, err := s.sessions.GetRegistration(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up staged registration: %w", err)
	}
	if pending == nil {
		return nil, domain.ErrSessionExpired
	}
	if !domain.IsValidRole(pending.Role) {
		return nil, fmt.Errorf("%w: invalid role in staged registration", domain.ErrBadRequest)
	}

	account, err := s.userRepo.Create(ctx, pending.ToAccount(uuid.NewString()))
	if err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	accessToken, refreshToken, err := s.issueTokenPair(account)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.DeleteOTP(ctx, email); err != nil {
		logger.WarnContext(ctx, "Failed to delete consumed otp", "error", err, "email", email)
	}
	if err := s.sessions.DeleteRegistration(ctx, email); err != nil {
		logger.WarnContext(ctx, "Failed to delete staged registration", "error", err, "email", email)
	}

	s.publish(ctx, events.UserVerified, events.UserVerifiedEvent{
		UserID:     account.UserID,
		Email:      account.Email,
		Role:       account.Role,
		VerifiedAt: time.Now(),
	})

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         account.View(),
	}, nil
}

// ResendOTP issues a fresh challenge for a still-pending registration. It
// replaces the previous code and its TTL but never extends the staged
// registration's window.
func (s *authService) ResendOTP(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	pending, err := s.sessions.GetRegistration(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up staged registration: %w", err)
	}
	if pending == nil {
		return domain.ErrSessionExpired
	}

	otp, err := generateOTP(s.config.Auth.OTPLength)
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	if err := s.mailer.SendOTPEmail(email, otp); err != nil {
		logger.ErrorContext(ctx, "Failed to resend OTP email", "error", err, "email", email)
		return fmt.Errorf("%w: %s", domain.ErrNotificationFailure, err)
	}

	if err := s.sessions.SetOTP(ctx, email, otp, s.config.Auth.OTPTTL); err != nil {
		return fmt.Errorf("failed to store otp challenge: %w", err)
	}

	return nil
}

// Login checks credentials and issues a token pair. Unknown email and wrong
// password share one error so responses cannot enumerate accounts.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrBadRequest)
	}

	account, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, domain.ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.issueTokenPair(account)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.UserLoggedIn, events.UserLoggedInEvent{
		UserID:     account.UserID,
		Email:      account.Email,
		Role:       account.Role,
		LoggedInAt: time.Now(),
	})

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         account.View(),
	}, nil
}

// RefreshAccessToken exchanges a valid refresh token for a new access token.
// The refresh token itself is not rotated.
func (s *authService) RefreshAccessToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := auth.Parse(refreshToken, s.config.Auth.RefreshTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidToken, err)
	}

	account, err := s.userRepo.FindByUserID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	accessToken, err := auth.NewToken(account.UserID, account.Role,
		s.config.Auth.AccessTokenSecret, s.config.Auth.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return &RefreshResult{
		AccessToken: accessToken,
		User:        account.View(),
	}, nil
}

func (s *authService) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	account, err := s.userRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

// UpdateProfile applies a partial update to the authenticated account. Fields
// left nil in the request are not touched.
func (s *authService) UpdateProfile(ctx context.Context, userID string, req *postgres.UpdateAccountRequest) (*domain.Account, error) {
	account, err := s.userRepo.Update(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

func (s *authService) issueTokenPair(account *domain.Account) (accessToken, refreshToken string, err error) {
	accessToken, err = auth.NewToken(account.UserID, account.Role,
		s.config.Auth.AccessTokenSecret, s.config.Auth.AccessTokenTTL)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err = auth.NewToken(account.UserID, account.Role,
		s.config.Auth.RefreshTokenSecret, s.config.Auth.RefreshTokenTTL)
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// publish is best effort; a broker outage must not fail the auth operation.
func (s *authService) publish(ctx context.Context, subject string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}

// generateOTP returns a fresh numeric code of the given length, zero-padded.
func generateOTP(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
