package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace-auth/internal/auth"
	"marketplace-auth/internal/otp"
	"marketplace-auth/internal/security"
	"marketplace-auth/internal/telemetry"
	"marketplace-auth/internal/user/domain"
)

// Sentinel errors for the auth service; the HTTP layer maps them to status codes.
var (
	// ErrInvalidOTP covers every OTP verification failure: no record, wrong
	// code, attempts exhausted, expired. One error keeps the client-facing
	// message uniform so identifiers cannot be enumerated.
	ErrInvalidOTP = errors.New("invalid or expired code")
	// ErrInvalidRefreshToken covers every refresh failure except server-side
	// misconfiguration.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// AuthResult holds the outcome of LoginWithOTP or Refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	IsNewUser    bool
}

// OTPRequest is the outcome of RequestOTP. Code is set only when the service
// runs in dev OTP mode; in production the code travels exclusively over SMS
// or email.
type OTPRequest struct {
	ExpiresAt time.Time
	Code      string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

// SMSSender delivers a one-time code to a phone number.
type SMSSender interface {
	SendOTP(phone, code string) error
}

// EmailSender delivers a one-time code to an email address.
type EmailSender interface {
	SendOTP(to, code string) error
}

// AuthService implements OTP-based login, token refresh, and logout for the
// marketplace. Users are created on first successful OTP verification.
type AuthService struct {
	users         UserRepo
	codes         *otp.Service
	tokens        *security.TokenProvider
	authn         *auth.Authenticator
	sms           SMSSender
	email         EmailSender
	metrics       *telemetry.AuthMetrics
	logger        *slog.Logger
	devReturnCode bool
}

// NewAuthService returns an AuthService with the given dependencies.
// sms, email, and metrics may be nil; devReturnCode enables dev OTP mode and
// must never be set in production (config enforces this).
func NewAuthService(
	users UserRepo,
	codes *otp.Service,
	tokens *security.TokenProvider,
	authn *auth.Authenticator,
	sms SMSSender,
	email EmailSender,
	metrics *telemetry.AuthMetrics,
	logger *slog.Logger,
	devReturnCode bool,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:         users,
		codes:         codes,
		tokens:        tokens,
		authn:         authn,
		sms:           sms,
		email:         email,
		metrics:       metrics,
		logger:        logger,
		devReturnCode: devReturnCode,
	}
}

// RequestOTP generates a code for the given phone and/or email and
// dispatches it over the matching channels. At least one identifier is
// required (otp.ErrMissingIdentifier otherwise). Requesting a new code is
// always permitted and overwrites any live one.
func (s *AuthService) RequestOTP(ctx context.Context, phone, email string) (*OTPRequest, error) {
	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(strings.ToLower(email))
	issued, err := s.codes.Generate(ctx, phone, email)
	if err != nil {
		return nil, err
	}
	if phone != "" && s.sms != nil {
		if err := s.sms.SendOTP(phone, issued.Code); err != nil {
			s.logger.Error("otp sms dispatch failed", "error", err)
			return nil, err
		}
	}
	if email != "" && s.email != nil {
		if err := s.email.SendOTP(email, issued.Code); err != nil {
			s.logger.Error("otp email dispatch failed", "error", err)
			return nil, err
		}
	}
	s.metrics.OTPIssued(ctx)
	s.logger.Info("otp issued", "has_phone", phone != "", "has_email", email != "")
	out := &OTPRequest{ExpiresAt: issued.ExpiresAt}
	if s.devReturnCode {
		out.Code = issued.Code
	}
	return out, nil
}

// LoginWithOTP verifies and consumes the code for the given identifier, then
// finds or creates the user and mints a token pair. Every verification
// failure surfaces as ErrInvalidOTP.
func (s *AuthService) LoginWithOTP(ctx context.Context, phone, email, code string) (*AuthResult, error) {
	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(strings.ToLower(email))
	identifier := phone
	if identifier == "" {
		identifier = email
	}
	if identifier == "" {
		return nil, otp.ErrMissingIdentifier
	}
	ok, err := s.codes.Verify(ctx, identifier, code)
	if err != nil {
		return nil, err
	}
	s.metrics.OTPVerified(ctx, ok)
	if !ok {
		return nil, ErrInvalidOTP
	}

	u, err := s.findUser(ctx, phone, email)
	if err != nil {
		return nil, err
	}
	isNew := false
	if u == nil {
		u, err = s.createUser(ctx, phone, email)
		if err != nil {
			return nil, err
		}
		isNew = true
	}
	if u.Status != domain.UserStatusActive {
		return nil, ErrInvalidOTP
	}

	pair, err := s.tokens.GeneratePair(u.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.PairMinted(ctx, "login")
	s.logger.Info("login", "user_id", u.ID, "new_user", isNew)
	return &AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		UserID:       u.ID,
		IsNewUser:    isNew,
	}, nil
}

// Refresh validates the refresh token, re-resolves the user, and mints a
// fresh pair. All client-side failures collapse to ErrInvalidRefreshToken;
// misconfiguration (missing secret) passes through as a server error.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	principal, err := s.authn.Authenticate(ctx, refreshToken, security.KindRefresh)
	if err != nil {
		if errors.Is(err, security.ErrMissingSecret) {
			return nil, err
		}
		s.metrics.AuthFailure(ctx, "refresh")
		return nil, ErrInvalidRefreshToken
	}
	pair, err := s.tokens.GeneratePair(principal.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.PairMinted(ctx, "refresh")
	return &AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		UserID:       principal.ID,
	}, nil
}

// Logout acknowledges the client discarding its tokens. Tokens are stateless
// and there is no revocation list; a token remains technically valid until
// its expiry. Adding a denylist keyed by token id with a TTL matching the
// token expiry is the extension point.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return nil
}

func (s *AuthService) findUser(ctx context.Context, phone, email string) (*domain.User, error) {
	if phone != "" {
		u, err := s.users.GetByPhone(ctx, phone)
		if err != nil || u != nil {
			return u, err
		}
	}
	if email != "" {
		return s.users.GetByEmail(ctx, email)
	}
	return nil, nil
}

func (s *AuthService) createUser(ctx context.Context, phone, email string) (*domain.User, error) {
	now := time.Now().UTC()
	u := &domain.User{
		ID:        uuid.New().String(),
		Phone:     phone,
		Email:     email,
		Role:      domain.RoleBuyer,
		Status:    domain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
