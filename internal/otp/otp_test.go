package otp

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService() *Service {
	return NewService(NewMemoryStore(), 5*time.Minute, 3)
}

// wrongCode returns a 6-digit code guaranteed to differ from code.
func wrongCode(code string) string {
	if code == "999999" {
		return "100000"
	}
	return "999999"
}

func TestService_GenerateAndVerify(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	issued, err := s.Generate(ctx, "+15551234567", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(issued.Code) != 6 {
		t.Fatalf("code = %q, want 6 digits", issued.Code)
	}
	if issued.Code < "100000" || issued.Code > "999999" {
		t.Errorf("code = %q, want in 100000..999999", issued.Code)
	}
	if !issued.ExpiresAt.After(time.Now()) {
		t.Error("expiry in the past")
	}

	ok, err := s.Verify(ctx, "+15551234567", issued.Code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("Verify with correct code should return true")
	}

	// Consumed: the same code fails a second time.
	ok, err = s.Verify(ctx, "+15551234567", issued.Code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("Verify after consumption should return false")
	}
}

func TestService_GenerateCodeRange(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		issued, err := s.Generate(ctx, "+15551234567", "")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(issued.Code) != 6 || issued.Code < "100000" || issued.Code > "999999" {
			t.Fatalf("code = %q, want 6 digits in 100000..999999", issued.Code)
		}
	}
}

func TestService_MissingIdentifier(t *testing.T) {
	s := newTestService()
	if _, err := s.Generate(context.Background(), "", ""); !errors.Is(err, ErrMissingIdentifier) {
		t.Errorf("want ErrMissingIdentifier, got %v", err)
	}
}

func TestService_Lockout(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	issued, err := s.Generate(ctx, "+15551234567", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	bad := wrongCode(issued.Code)

	for i := 0; i < 3; i++ {
		ok, err := s.Verify(ctx, "+15551234567", bad)
		if err != nil {
			t.Fatalf("Verify #%d: %v", i+1, err)
		}
		if ok {
			t.Fatalf("Verify #%d with wrong code should return false", i+1)
		}
	}

	// Record is gone after the third wrong attempt.
	rec, err := s.Info(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if rec != nil {
		t.Fatal("record should be deleted after attempts exhausted")
	}

	// Even the correct code fails now.
	ok, err := s.Verify(ctx, "+15551234567", issued.Code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("correct code after lockout should return false")
	}
}

func TestService_TwoWrongThenCorrect(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	issued, err := s.Generate(ctx, "", "user@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	bad := wrongCode(issued.Code)

	for i := 0; i < 2; i++ {
		ok, err := s.Verify(ctx, "user@example.com", bad)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if ok {
			t.Fatal("wrong code should return false")
		}
	}

	rec, err := s.Info(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if rec == nil {
		t.Fatal("record should still exist after two wrong attempts")
	}
	if rec.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", rec.Attempts)
	}

	ok, err := s.Verify(ctx, "user@example.com", issued.Code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("correct code on third attempt should return true")
	}

	rec, err = s.Info(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if rec != nil {
		t.Error("record should be deleted after successful verification")
	}
}

func TestService_IdentifierIsolation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	a, err := s.Generate(ctx, "+15551111111", "")
	if err != nil {
		t.Fatalf("Generate A: %v", err)
	}
	b, err := s.Generate(ctx, "+15552222222", "")
	if err != nil {
		t.Fatalf("Generate B: %v", err)
	}

	// Exhaust A.
	bad := wrongCode(a.Code)
	for i := 0; i < 3; i++ {
		if _, err := s.Verify(ctx, "+15551111111", bad); err != nil {
			t.Fatalf("Verify: %v", err)
		}
	}

	// B is untouched.
	ok, err := s.Verify(ctx, "+15552222222", b.Code)
	if err != nil {
		t.Fatalf("Verify B: %v", err)
	}
	if !ok {
		t.Error("exhausting identifier A must not affect identifier B")
	}
}

func TestService_NoRecord(t *testing.T) {
	s := newTestService()
	ok, err := s.Verify(context.Background(), "+15550000000", "123456")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("Verify without a record should return false")
	}
}

func TestService_RegenerateOverwrites(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	first, err := s.Generate(ctx, "+15551234567", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// Burn an attempt against the first code.
	if _, err := s.Verify(ctx, "+15551234567", wrongCode(first.Code)); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	second, err := s.Generate(ctx, "+15551234567", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rec, err := s.Info(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if rec == nil {
		t.Fatal("record missing after regeneration")
	}
	if rec.Attempts != 0 {
		t.Errorf("attempts = %d, want 0 after regeneration", rec.Attempts)
	}
	if rec.Code != second.Code {
		t.Error("regeneration should overwrite the stored code")
	}
}

func TestService_BothIdentifiersBound(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	issued, err := s.Generate(ctx, "+15551234567", "user@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Consuming via the phone also clears the email binding.
	ok, err := s.Verify(ctx, "+15551234567", issued.Code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("Verify should succeed")
	}
	rec, err := s.Info(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if rec != nil {
		t.Error("email binding should be cleared when consumed via phone")
	}
}

func TestService_FailedAttemptKeepsDeadline(t *testing.T) {
	store := NewMemoryStore()
	s := NewService(store, 5*time.Minute, 3)
	ctx := context.Background()

	base := time.Now().UTC()
	s.nowF = func() time.Time { return base }
	issued, err := s.Generate(ctx, "+15551234567", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// A failed attempt 4 minutes in must not push the deadline past the
	// original issuance-relative expiry.
	s.nowF = func() time.Time { return base.Add(4 * time.Minute) }
	if _, err := s.Verify(ctx, "+15551234567", wrongCode(issued.Code)); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	rec, err := s.Info(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if rec == nil {
		t.Fatal("record should survive a failed attempt before the deadline")
	}
	if rec.ExpiresAt.After(issued.ExpiresAt) {
		t.Errorf("deadline moved from %v to %v on failed attempt", issued.ExpiresAt, rec.ExpiresAt)
	}

	// Past the original deadline the store evicts regardless of attempts.
	store.nowF = func() time.Time { return base.Add(6 * time.Minute) }
	rec, err = s.Info(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if rec != nil {
		t.Error("record should expire at the original deadline")
	}
}

func TestService_IsValidAndClear(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Generate(ctx, "+15551234567", ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	valid, err := s.IsValid(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if !valid {
		t.Error("IsValid should be true for a fresh record")
	}

	if err := s.Clear(ctx, "+15551234567"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	valid, err = s.IsValid(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if valid {
		t.Error("IsValid should be false after Clear")
	}
}
