// Package telemetry records auth-flow metrics through the OpenTelemetry
// meter API.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics holds the counters emitted by the auth flows. All methods are
// safe on a nil receiver so callers need no metrics wiring in tests.
type AuthMetrics struct {
	otpIssued        metric.Int64Counter
	otpVerifications metric.Int64Counter
	tokenPairs       metric.Int64Counter
	authFailures     metric.Int64Counter
}

// NewAuthMetrics creates the auth counters on the given meter.
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	otpIssued, err := meter.Int64Counter("auth.otp.issued",
		metric.WithDescription("One-time codes generated and dispatched"))
	if err != nil {
		return nil, err
	}
	otpVerifications, err := meter.Int64Counter("auth.otp.verifications",
		metric.WithDescription("OTP verification attempts by result"))
	if err != nil {
		return nil, err
	}
	tokenPairs, err := meter.Int64Counter("auth.tokens.pairs_minted",
		metric.WithDescription("Access/refresh pairs minted, by flow"))
	if err != nil {
		return nil, err
	}
	authFailures, err := meter.Int64Counter("auth.failures",
		metric.WithDescription("Authentication failures by path"))
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{
		otpIssued:        otpIssued,
		otpVerifications: otpVerifications,
		tokenPairs:       tokenPairs,
		authFailures:     authFailures,
	}, nil
}

// OTPIssued records one generated code.
func (m *AuthMetrics) OTPIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.otpIssued.Add(ctx, 1)
}

// OTPVerified records one verification attempt. result is "ok" or "failed".
func (m *AuthMetrics) OTPVerified(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "ok"
	}
	m.otpVerifications.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// PairMinted records one minted token pair for the given flow ("login" or "refresh").
func (m *AuthMetrics) PairMinted(ctx context.Context, flow string) {
	if m == nil {
		return
	}
	m.tokenPairs.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", flow)))
}

// AuthFailure records one failed authentication on the given path ("access" or "refresh").
func (m *AuthMetrics) AuthFailure(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.authFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}
