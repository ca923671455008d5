// Package otp mints, delivers, and verifies one-time email codes. Codes are
// valid for five minutes and single-use; only a hash of the code is stored.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	codeLength = 6
	codeTTL    = 5 * time.Minute

	statusPending = "pending"
	statusUsed    = "used"
)

var (
	ErrNotFound = errors.New("No OTP found for this email.")
	ErrUsed     = errors.New("OTP already used.")
	ErrExpired  = errors.New("OTP has expired.")
	ErrMismatch = errors.New("Invalid OTP code.")
)

// Mailer delivers a plain-text message.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Record is one stored OTP request, keyed by email.
type Record struct {
	Email     string
	CodeHash  string
	Status    string
	ExpiresAt time.Time
}

type StoreAPI interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, email string) (*Record, error)
	MarkUsed(ctx context.Context, email string) error
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

type Service struct {
	Store  StoreAPI
	Mailer Mailer
	From   string
}

func NewService(store StoreAPI, mailer Mailer, from string) *Service {
	return &Service{Store: store, Mailer: mailer, From: from}
}

// Send mints a fresh code, emails it, and stores its hash with a five-minute
// expiry. A resend replaces any earlier code for the same email.
func (s *Service) Send(ctx context.Context, email string) error {
	code, err := randomCode(codeLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	subject := "Your verification code"
	body := fmt.Sprintf(
		"Your one-time password is %s.\r\n\r\nThis code expires in 5 minutes. Do not share it with anyone.\r\n",
		code,
	)
	if err := s.Mailer.Send(ctx, s.From, email, subject, body); err != nil {
		return fmt.Errorf("send verification code: %w", err)
	}

	return s.Store.Save(ctx, Record{
		Email:     email,
		CodeHash:  hashCode(code),
		Status:    statusPending,
		ExpiresAt: time.Now().Add(codeTTL),
	})
}

// Verify checks the code and marks it used on success. Each failure mode has
// a distinct display-ready message.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	rec, err := s.Store.Get(ctx, email)
	if err != nil {
		return fmt.Errorf("verify code: %w", err)
	}
	if rec == nil {
		return ErrNotFound
	}
	if rec.Status == statusUsed {
		return ErrUsed
	}
	if time.Now().After(rec.ExpiresAt) {
		return ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(rec.CodeHash), []byte(hashCode(code))) != 1 {
		return ErrMismatch
	}
	return s.Store.MarkUsed(ctx, email)
}

// PurgeExpired removes stale requests; run periodically.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	return s.Store.PurgeExpired(ctx, time.Now())
}

func randomCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
