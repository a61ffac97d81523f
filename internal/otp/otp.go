// Package otp issues and verifies short-lived, attempt-limited one-time
// codes bound to a phone number or email address.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"strconv"
	"time"
)

// ErrMissingIdentifier is returned when an OTP is requested with neither a
// phone number nor an email address.
var ErrMissingIdentifier = errors.New("otp: phone number or email required")

// DefaultMaxAttempts is the attempt ceiling used when the service is
// configured with a non-positive value. Capping at 3 bounds brute-force
// guessing of the 6-digit space within the TTL window.
const DefaultMaxAttempts = 3

const codeDigits = 6

// Record is the transient per-identifier OTP state held in the backing store.
type Record struct {
	Code      string    `json:"code"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// identifiers returns every store key the record is bound to.
func (r *Record) identifiers() []string {
	keys := make([]string, 0, 2)
	if r.Phone != "" {
		keys = append(keys, r.Phone)
	}
	if r.Email != "" {
		keys = append(keys, r.Email)
	}
	return keys
}

// Issued is the outcome of Generate: the plain code and its expiry.
type Issued struct {
	Code      string
	ExpiresAt time.Time
}

// Store is the key-value collaborator holding OTP records with per-key TTL.
// Get returns nil (not an error) for a missing or expired key.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, rec *Record, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Service generates and verifies one-time codes against a Store.
//
// Attempt counting is a read-increment-write over the store, so concurrent
// verifications for the same identifier may each observe the same count.
// Lockout is best-effort under that race, matching the store's single-key
// atomicity only.
type Service struct {
	store       Store
	ttl         time.Duration
	maxAttempts int
	nowF        func() time.Time
}

// NewService returns an OTP service with the given record TTL and attempt
// ceiling. A non-positive maxAttempts falls back to DefaultMaxAttempts.
func NewService(store Store, ttl time.Duration, maxAttempts int) *Service {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Service{
		store:       store,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		nowF:        func() time.Time { return time.Now().UTC() },
	}
}

// Generate creates a fresh 6-digit code bound to the given identifiers and
// persists it under each of them, overwriting any prior live record.
// At least one of phone or email is required.
func (s *Service) Generate(ctx context.Context, phone, email string) (*Issued, error) {
	if phone == "" && email == "" {
		return nil, ErrMissingIdentifier
	}
	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	now := s.nowF()
	rec := &Record{
		Code:      code,
		Phone:     phone,
		Email:     email,
		Attempts:  0,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	for _, key := range rec.identifiers() {
		if err := s.store.Set(ctx, key, rec, s.ttl); err != nil {
			return nil, err
		}
	}
	return &Issued{Code: code, ExpiresAt: rec.ExpiresAt}, nil
}

// Verify checks code against the record for identifier. It returns false for
// a missing record, an exhausted record, or a mismatch; the caller cannot
// tell which, so client-facing messaging stays uniform. On an exact match
// below the attempt ceiling the record is consumed (deleted under every
// bound identifier) and Verify returns true.
//
// A failed attempt re-persists the record with the TTL remaining until the
// original deadline: the lockout window counts from issuance, not from the
// last attempt.
func (s *Service) Verify(ctx context.Context, identifier, code string) (bool, error) {
	rec, err := s.store.Get(ctx, identifier)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	if rec.Attempts >= s.maxAttempts {
		if err := s.clearRecord(ctx, rec); err != nil {
			return false, err
		}
		return false, nil
	}
	if codeEqual(code, rec.Code) {
		if err := s.clearRecord(ctx, rec); err != nil {
			return false, err
		}
		return true, nil
	}
	rec.Attempts++
	if rec.Attempts >= s.maxAttempts {
		if err := s.clearRecord(ctx, rec); err != nil {
			return false, err
		}
		return false, nil
	}
	remaining := rec.ExpiresAt.Sub(s.nowF())
	if remaining <= 0 {
		if err := s.clearRecord(ctx, rec); err != nil {
			return false, err
		}
		return false, nil
	}
	for _, key := range rec.identifiers() {
		if err := s.store.Set(ctx, key, rec, remaining); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Info returns the live record for identifier, or nil if none exists.
func (s *Service) Info(ctx context.Context, identifier string) (*Record, error) {
	return s.store.Get(ctx, identifier)
}

// IsValid reports whether a live, non-exhausted record exists for identifier.
func (s *Service) IsValid(ctx context.Context, identifier string) (bool, error) {
	rec, err := s.store.Get(ctx, identifier)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.Attempts < s.maxAttempts, nil
}

// Clear removes the record for identifier and any other identifier it is
// bound to.
func (s *Service) Clear(ctx context.Context, identifier string) error {
	rec, err := s.store.Get(ctx, identifier)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	return s.clearRecord(ctx, rec)
}

func (s *Service) clearRecord(ctx context.Context, rec *Record) error {
	for _, key := range rec.identifiers() {
		if err := s.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// generateCode returns a uniformly random code in 100000–999999, so the
// result is always exactly 6 digits with no leading zero.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// codeEqual performs constant-time comparison of the provided code with the
// stored one.
func codeEqual(provided, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) == 1
}
