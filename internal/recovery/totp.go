// Package recovery verifies the master recovery credential that authorizes
// administrative paths (unlock, factory reset) without a signed-in session.
//
// The credential is a time-based one-time password over a secret provisioned
// at manufacturing time and kept off-device by the owner.
package recovery

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrNoSecret is returned when no recovery secret is configured.
var ErrNoSecret = errors.New("recovery secret not configured")

// Verifier checks a recovery code.
type Verifier interface {
	Verify(code string) bool
}

// TOTP verifies 6-digit SHA1 codes with a 30 s period and one step of skew.
// A code is accepted at most once.
type TOTP struct {
	secret   string
	now      func() time.Time
	lastUsed string
}

// Option configures a TOTP verifier.
type Option func(*TOTP)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *TOTP) { t.now = now }
}

// NewTOTP validates secret (base32, padding optional) and returns a verifier.
func NewTOTP(secret string, opts ...Option) (*TOTP, error) {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	if secret == "" {
		return nil, ErrNoSecret
	}
	if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(secret, "=")); err != nil {
		return nil, fmt.Errorf("recovery secret is not base32: %w", err)
	}
	t := &TOTP{secret: secret, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

func (t *TOTP) Verify(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" || code == t.lastUsed {
		return false
	}
	ok, err := totp.ValidateCustom(code, t.secret, t.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		return false
	}
	t.lastUsed = code
	return true
}

// Code returns the current code for t's secret. Used by provisioning tools
// and tests.
func (t *TOTP) Code() (string, error) {
	return totp.GenerateCode(t.secret, t.now())
}

// GenerateSecret creates a new recovery secret for a device and returns the
// base32 secret and its otpauth:// URL.
func GenerateSecret(deviceID string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "safekeeper",
		AccountName: deviceID,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate recovery secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}
