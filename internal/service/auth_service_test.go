package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/flexora/jobboard-api/internal/domain"
	"github.com/flexora/jobboard-api/internal/repo/postgres"
	"github.com/flexora/jobboard-api/pkg/auth"
	"github.com/flexora/jobboard-api/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- Fakes ----------

type entry struct {
	value     interface{}
	expiresAt time.Time
}

type fakeSessionStore struct {
	otps     map[string]entry
	sessions map[string]entry
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		otps:     make(map[string]entry),
		sessions: make(map[string]entry),
	}
}

func (f *fakeSessionStore) SetOTP(_ context.Context, email, code string, ttl time.Duration) error {
	f.otps[email] = entry{value: code, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (f *fakeSessionStore) GetOTP(_ context.Context, email string) (string, error) {
	e, ok := f.otps[email]
	if !ok || time.Now().After(e.expiresAt) {
		return "", nil
	}
	return e.value.(string), nil
}

func (f *fakeSessionStore) DeleteOTP(_ context.Context, email string) error {
	delete(f.otps, email)
	return nil
}

func (f *fakeSessionStore) StageRegistration(_ context.Context, pending *domain.PendingRegistration, ttl time.Duration) error {
	f.sessions[pending.Email] = entry{value: pending, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (f *fakeSessionStore) GetRegistration(_ context.Context, email string) (*domain.PendingRegistration, error) {
	e, ok := f.sessions[email]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, nil
	}
	return e.value.(*domain.PendingRegistration), nil
}

func (f *fakeSessionStore) DeleteRegistration(_ context.Context, email string) error {
	delete(f.sessions, email)
	return nil
}

func (f *fakeSessionStore) expireOTP(email string) {
	if e, ok := f.otps[email]; ok {
		e.expiresAt = time.Now().Add(-time.Second)
		f.otps[email] = e
	}
}

func (f *fakeSessionStore) expireRegistration(email string) {
	if e, ok := f.sessions[email]; ok {
		e.expiresAt = time.Now().Add(-time.Second)
		f.sessions[email] = e
	}
}

type fakeUserRepo struct {
	nextID   int64
	byEmail  map[string]*domain.Account
	byUserID map[string]*domain.Account
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		nextID:   1,
		byEmail:  make(map[string]*domain.Account),
		byUserID: make(map[string]*domain.Account),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	if _, exists := f.byEmail[account.Email]; exists {
		return nil, domain.ErrEmailExists
	}
	a := *account
	a.ID = f.nextID
	f.nextID++
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	f.byEmail[a.Email] = &a
	f.byUserID[a.UserID] = &a
	return &a, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserRepo) FindByUserID(_ context.Context, userID string) (*domain.Account, error) {
	return f.byUserID[userID], nil
}

func (f *fakeUserRepo) Update(_ context.Context, userID string, _ *postgres.UpdateAccountRequest) (*domain.Account, error) {
	return f.byUserID[userID], nil
}

type fakeMailer struct {
	sent    []string // codes, in send order
	lastTo  string
	sendErr error
}

func (f *fakeMailer) SendOTPEmail(toEmail, code string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.lastTo = toEmail
	f.sent = append(f.sent, code)
	return nil
}

func (f *fakeMailer) lastCode() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

// ---------- Helpers ----------

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			AccessTokenSecret:  "test-access-secret",
			RefreshTokenSecret: "test-refresh-secret",
			AccessTokenTTL:     time.Hour,
			RefreshTokenTTL:    7 * 24 * time.Hour,
			OTPLength:          6,
			OTPTTL:             150 * time.Second,
			RegistrationTTL:    10 * time.Minute,
		},
	}
}

type testEnv struct {
	svc      AuthService
	users    *fakeUserRepo
	sessions *fakeSessionStore
	mail     *fakeMailer
	cfg      *config.Config
}

func newTestEnv() *testEnv {
	users := newFakeUserRepo()
	sessions := newFakeSessionStore()
	mail := &fakeMailer{}
	cfg := testConfig()
	return &testEnv{
		svc:      NewAuthService(users, sessions, mail, nil, cfg),
		users:    users,
		sessions: sessions,
		mail:     mail,
		cfg:      cfg,
	}
}

func seekerReg(email string) *domain.SeekerRegistration {
	return &domain.SeekerRegistration{
		RegistrationBase: domain.RegistrationBase{
			Email:    email,
			Password: "p@ssw0rd1",
			Name:     "Alice",
		},
		Skills:       []string{"catering"},
		Experience:   "2 years in catering",
		Availability: "Weekends",
	}
}

func employerReg(email string) *domain.EmployerRegistration {
	return &domain.EmployerRegistration{
		RegistrationBase: domain.RegistrationBase{
			Email:    email,
			Password: "p@ssw0rd1",
			Name:     "Acme Owner",
		},
		BusinessDetails: &domain.BusinessDetails{
			ShopName:     "Acme",
			BusinessType: "retail",
		},
	}
}

// ---------- Register ----------

func TestRegisterStagesChallengeAndProfile(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	err := env.svc.Register(ctx, seekerReg("alice@x.com"))
	require.NoError(t, err)

	assert.Equal(t, "alice@x.com", env.mail.lastTo)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), env.mail.lastCode())

	stored, err := env.sessions.GetOTP(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, env.mail.lastCode(), stored)

	pending, err := env.sessions.GetRegistration(ctx, "alice@x.com")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, domain.RoleSeeker, pending.Role)
	assert.Equal(t, "Alice", pending.Name)
	assert.NotEqual(t, "p@ssw0rd1", pending.HashedPassword)

	match, err := argon2id.ComparePasswordAndHash("p@ssw0rd1", pending.HashedPassword)
	require.NoError(t, err)
	assert.True(t, match)

	// Nothing durable yet
	account, _ := env.users.FindByEmail(ctx, "alice@x.com")
	assert.Nil(t, account)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	env := newTestEnv()

	reg := seekerReg("  Alice@X.COM ")
	require.NoError(t, env.svc.Register(context.Background(), reg))

	pending, err := env.sessions.GetRegistration(context.Background(), "alice@x.com")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "alice@x.com", pending.Email)
}

func TestMixedCaseEmailReachesStagedRecords(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, seekerReg("Alice@X.com")))

	// Lookups must hit the same canonical key the registration was staged
	// under, whatever casing the client sends afterward.
	require.NoError(t, env.svc.ResendOTP(ctx, "ALICE@x.com"))

	result, err := env.svc.VerifyOTP(ctx, " Alice@X.COM ", env.mail.lastCode())
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	account, _ := env.users.FindByEmail(ctx, "alice@x.com")
	require.NotNil(t, account)

	login, err := env.svc.Login(ctx, "Alice@X.com", "p@ssw0rd1")
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
}

func TestRegisterMissingFields(t *testing.T) {
	env := newTestEnv()

	reg := &domain.SeekerRegistration{
		RegistrationBase: domain.RegistrationBase{
			Email: "alice@x.com",
			// no password, no name
		},
	}

	err := env.svc.Register(context.Background(), reg)
	require.ErrorIs(t, err, domain.ErrBadRequest)

	// Validation happens before any side effect
	assert.Empty(t, env.mail.sent)
	assert.Empty(t, env.sessions.otps)
	assert.Empty(t, env.sessions.sessions)
}

func TestRegisterDuplicateVerifiedEmail(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.users.Create(ctx, &domain.Account{
		UserID: "u-1", Email: "alice@x.com", Role: domain.RoleSeeker, IsVerified: true,
	})
	require.NoError(t, err)

	err = env.svc.Register(ctx, seekerReg("alice@x.com"))
	require.ErrorIs(t, err, domain.ErrEmailExists)
	assert.Empty(t, env.mail.sent)
}

func TestRegisterMailFailureLeavesNothingStaged(t *testing.T) {
	env := newTestEnv()
	env.mail.sendErr = errors.New("smtp down")

	err := env.svc.Register(context.Background(), seekerReg("alice@x.com"))
	require.ErrorIs(t, err, domain.ErrNotificationFailure)

	assert.Empty(t, env.sessions.otps)
	assert.Empty(t, env.sessions.sessions)
}

func TestRegisterOverwritesPendingAttempt(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first := seekerReg("alice@x.com")
	first.Name = "Old Name"
	require.NoError(t, env.svc.Register(ctx, first))

	second := seekerReg("alice@x.com")
	second.Name = "New Name"
	require.NoError(t, env.svc.Register(ctx, second))

	// Only the latest payload is promoted
	result, err := env.svc.VerifyOTP(ctx, "alice@x.com", env.mail.lastCode())
	require.NoError(t, err)

	view, ok := result.User.(domain.SeekerView)
	require.True(t, ok)
	assert.Equal(t, "New Name", view.Name)
}

// ---------- VerifyOTP ----------

func TestVerifyOTPSuccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, seekerReg("alice@x.com")))

	result, err := env.svc.VerifyOTP(ctx, "alice@x.com", env.mail.lastCode())
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	account, _ := env.users.FindByEmail(ctx, "alice@x.com")
	require.NotNil(t, account)
	assert.True(t, account.IsVerified)
	assert.NotEmpty(t, account.UserID)
	assert.Equal(t, domain.RoleSeeker, account.Role)

	// Tokens are bound to the external identity and role
	accessClaims, err := auth.Parse(result.AccessToken, env.cfg.Auth.AccessTokenSecret)
	require.NoError(t, err)
	assert.Equal(t, account.UserID, accessClaims.UserID)
	assert.Equal(t, domain.RoleSeeker, accessClaims.Role)

	refreshClaims, err := auth.Parse(result.RefreshToken, env.cfg.Auth.RefreshTokenSecret)
	require.NoError(t, err)
	assert.Equal(t, account.UserID, refreshClaims.UserID)

	// A refresh token must never validate as an access token
	_, err = auth.Parse(result.RefreshToken, env.cfg.Auth.AccessTokenSecret)
	assert.Error(t, err)

	// Both staged records are gone
	otp, _ := env.sessions.GetOTP(ctx, "alice@x.com")
	assert.Empty(t, otp)
	pending, _ := env.sessions.GetRegistration(ctx, "alice@x.com")
	assert.Nil(t, pending)

	view, ok := result.User.(domain.SeekerView)
	require.True(t, ok)
	assert.Equal(t, []string{"catering"}, view.Skills)
}

func TestVerifyOTPWrongCodeDoesNotConsume(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, seekerReg("alice@x.com")))
	code := env.mail.lastCode()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < 3; i++ {
		_, err := env.svc.VerifyOTP(ctx, "alice@x.com", wrong)
		require.ErrorIs(t, err, domain.ErrInvalidOTP)
	}

	// The correct code still succeeds afterward
	_, err := env.svc.VerifyOTP(ctx, "alice@x.com", code)
	require.NoError(t, err)
}

func TestVerifyOTPExpiredChallenge(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, seekerReg("alice@x.com")))
	code := env.mail.lastCode()

	env.sessions.expireOTP("alice@x.com")

	_, err := env.svc.VerifyOTP(ctx, "alice@x.com", code)
	require.ErrorIs(t, err, domain.ErrOTPExpired)
}

func TestVerifyOTPExpiredSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, seekerReg("alice@x.com")))
	env.sessions.expireRegistration("alice@x.com")

	_, err := env.svc.VerifyOTP(ctx, "alice@x.com", env.mail.lastCode())
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestVerifyOTPReplayAfterSuccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, seekerReg("alice@x.com")))
	code := env.mail.lastCode()

	_, err := env.svc.VerifyOTP(ctx, "alice@x.com", code)
	require.NoError(t, err)

	// The challenge was consumed; a replay never creates a second account.
	_, err = env.svc.VerifyOTP(ctx, "alice@x.com", code)
	require.ErrorIs(t, err, domain.ErrSessionExpired)

	assert.Len(t, env.users.byEmail, 1)
}

// ---------- ResendOTP ----------

func TestResendOTPReplacesCode(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, seekerReg("alice@x.com")))
	oldCode := env.mail.lastCode()

	regExpiry := env.sessions.sessions["alice@x.com"].expiresAt

	require.NoError(t, env.svc.ResendOTP(ctx, "alice@x.com"))
	newCode := env.mail.lastCode()
	require.Len(t, env.mail.sent, 2)

	stored, _ := env.sessions.GetOTP(ctx, "alice@x.com")
	assert.Equal(t, newCode, stored)

	// Resend never extends the registration window
	assert.Equal(t, regExpiry, env.sessions.sessions["alice@x.com"].expiresAt)

	if oldCode != newCode {
		_, err := env.svc.VerifyOTP(ctx, "alice@x.com", oldCode)
		require.ErrorIs(t, err, domain.ErrInvalidOTP)
	}

	_, err := env.svc.VerifyOTP(ctx, "alice@x.com", newCode)
	require.NoError(t, err)
}

func TestResendOTPWithoutPendingRegistration(t *testing.T) {
	env := newTestEnv()

	err := env.svc.ResendOTP(context.Background(), "nobody@x.com")
	require.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.Empty(t, env.mail.sent)
}

// ---------- Login ----------

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, employerReg("shop@x.com")))
	_, err := env.svc.VerifyOTP(ctx, "shop@x.com", env.mail.lastCode())
	require.NoError(t, err)

	result, err := env.svc.Login(ctx, "shop@x.com", "p@ssw0rd1")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	view, ok := result.User.(domain.EmployerView)
	require.True(t, ok)
	assert.Equal(t, "Acme", view.BusinessDetails.ShopName)
	assert.Equal(t, domain.RoleEmployer, view.Role)
}

func TestLoginEnumerationResistance(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, seekerReg("alice@x.com")))
	_, err := env.svc.VerifyOTP(ctx, "alice@x.com", env.mail.lastCode())
	require.NoError(t, err)

	_, errWrongPass := env.svc.Login(ctx, "alice@x.com", "wrong-password")
	_, errNoUser := env.svc.Login(ctx, "nobody@x.com", "p@ssw0rd1")

	require.ErrorIs(t, errWrongPass, domain.ErrInvalidCredentials)
	require.ErrorIs(t, errNoUser, domain.ErrInvalidCredentials)
	assert.Equal(t, errWrongPass.Error(), errNoUser.Error())
}

// ---------- RefreshAccessToken ----------

func TestRefreshAccessToken(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, seekerReg("alice@x.com")))
	verified, err := env.svc.VerifyOTP(ctx, "alice@x.com", env.mail.lastCode())
	require.NoError(t, err)

	result, err := env.svc.RefreshAccessToken(ctx, verified.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	claims, err := auth.Parse(result.AccessToken, env.cfg.Auth.AccessTokenSecret)
	require.NoError(t, err)

	account, _ := env.users.FindByEmail(ctx, "alice@x.com")
	assert.Equal(t, account.UserID, claims.UserID)
	assert.Equal(t, account.Role, claims.Role)
}

func TestRefreshAccessTokenForged(t *testing.T) {
	env := newTestEnv()

	forged, err := auth.NewToken("u-1", domain.RoleSeeker, "some-other-secret", time.Hour)
	require.NoError(t, err)

	_, err = env.svc.RefreshAccessToken(context.Background(), forged)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRefreshAccessTokenExpired(t *testing.T) {
	env := newTestEnv()

	expired, err := auth.NewToken("u-1", domain.RoleSeeker, env.cfg.Auth.RefreshTokenSecret, -time.Minute)
	require.NoError(t, err)

	_, err = env.svc.RefreshAccessToken(context.Background(), expired)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRefreshAccessTokenUnknownAccount(t *testing.T) {
	env := newTestEnv()

	token, err := auth.NewToken("ghost", domain.RoleSeeker, env.cfg.Auth.RefreshTokenSecret, time.Hour)
	require.NoError(t, err)

	_, err = env.svc.RefreshAccessToken(context.Background(), token)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}
