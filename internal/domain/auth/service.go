// Package auth is the login engine: offline-first PIN login against the
// local cache with a remote fallback, PIN reset/change dual-writes, OTP
// gating, and federated-identity login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"policedir/internal/domain/directory"
	"policedir/internal/platform/pinhash"
	"policedir/internal/session"
)

var (
	// ErrInvalidCredentials deliberately does not distinguish "no such
	// email" from "wrong PIN" so the login endpoint cannot be used to
	// enumerate accounts.
	ErrInvalidCredentials   = errors.New("Invalid email or PIN")
	ErrPINNotSet            = errors.New("PIN not set for this account")
	ErrNotApproved          = errors.New("account is pending admin approval")
	ErrRegistrationRequired = errors.New("registration required")
	ErrIncorrectOldPIN      = errors.New("Incorrect old PIN")
)

// OTPProvider delivers and verifies one-time codes out-of-band. It is the
// sole source of truth for code correctness and expiry; this engine only
// gates eligibility around it.
type OTPProvider interface {
	Send(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) error
}

// IdentityVerifier exchanges an opaque federated identity token for a
// verified email claim. Token internals are never inspected here.
type IdentityVerifier interface {
	EmailFromToken(token string) (string, error)
}

type Service struct {
	Cache    *directory.Cache
	Remote   directory.RemoteAPI
	Dir      *directory.Service
	Session  *session.Manager
	OTP      OTPProvider
	Identity IdentityVerifier
}

func NewService(cache *directory.Cache, remote directory.RemoteAPI, dir *directory.Service, sess *session.Manager, otp OTPProvider, identity IdentityVerifier) *Service {
	return &Service{Cache: cache, Remote: remote, Dir: dir, Session: sess, OTP: otp, Identity: identity}
}

// LoginWithPIN resolves email+PIN to a directory record. The local cache is
// tried first so a previously logged-in device works offline; only on a
// cache miss or stale hash does it fall back to the remote store, re-caching
// the record on success.
func (s *Service) LoginWithPIN(ctx context.Context, email, pin string) (*directory.Employee, error) {
	email = normalizeEmail(email)

	if local := s.Cache.GetByEmail(email); local != nil {
		if local.PINHash != "" && pinhash.Verify(pin, local.PINHash) {
			s.saveSession(*local)
			return local, nil
		}
	}

	remote, err := s.Remote.QueryByField(ctx, []directory.Filter{{Field: directory.FieldEmail, Value: email}}, 1)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if len(remote) == 0 {
		return nil, ErrInvalidCredentials
	}

	emp := remote[0]
	if emp.PINHash == "" {
		return nil, ErrPINNotSet
	}
	if !pinhash.Verify(pin, emp.PINHash) {
		return nil, ErrInvalidCredentials
	}

	s.Cache.Upsert(emp)
	s.saveSession(emp)
	return &emp, nil
}

// ApplyNewPINAfterReset installs a new PIN once the OTP reset flow has
// authorized the caller. The remote write must succeed; the cache mirror is
// attempted unconditionally afterwards but never rolls the remote back.
func (s *Service) ApplyNewPINAfterReset(ctx context.Context, email, newPIN string) error {
	return s.writePIN(ctx, normalizeEmail(email), newPIN)
}

// UpdatePIN is the authenticated in-app PIN change. When oldPIN is supplied
// it is verified against the remote hash before anything is written.
// Concurrent updates to the same email are last-writer-wins.
func (s *Service) UpdatePIN(ctx context.Context, email, oldPIN, newPIN string) error {
	email = normalizeEmail(email)
	if oldPIN != "" {
		remote, err := s.Remote.QueryByField(ctx, []directory.Filter{{Field: directory.FieldEmail, Value: email}}, 1)
		if err != nil {
			return fmt.Errorf("update PIN: %w", err)
		}
		if len(remote) == 0 {
			return fmt.Errorf("no employee found for %s", email)
		}
		if !pinhash.Verify(oldPIN, remote[0].PINHash) {
			return ErrIncorrectOldPIN
		}
	}
	return s.writePIN(ctx, email, newPIN)
}

func (s *Service) writePIN(ctx context.Context, email, newPIN string) error {
	hash, err := pinhash.Hash(newPIN)
	if err != nil {
		return fmt.Errorf("hash PIN: %w", err)
	}

	remote, err := s.Remote.QueryByField(ctx, []directory.Filter{{Field: directory.FieldEmail, Value: email}}, 1)
	if err != nil {
		return fmt.Errorf("update PIN: %w", err)
	}
	if len(remote) == 0 {
		return fmt.Errorf("no employee found for %s", email)
	}
	emp := remote[0]

	if err := s.Remote.UpdateFields(ctx, emp.KGID, map[string]any{directory.FieldPINHash: hash}); err != nil {
		return err
	}

	// Best-effort cache mirror; both stores should carry the new hash.
	if local := s.Cache.GetByEmail(email); local != nil {
		local.PINHash = hash
		s.Cache.Upsert(*local)
	} else {
		emp.PINHash = hash
		s.Cache.Upsert(emp)
	}
	return nil
}

// SendOTP mints and delivers a reset code for an approved account.
func (s *Service) SendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	emp, err := s.Dir.GetEmployeeByEmail(ctx, email)
	if err != nil {
		return err
	}
	if emp == nil {
		return fmt.Errorf("no employee found for %s", email)
	}
	if !emp.IsApproved {
		return ErrNotApproved
	}
	return s.OTP.Send(ctx, email)
}

// VerifyOTP checks account eligibility, delegates code verification to the
// provider, and on success caches the account record. Eligibility is gated
// before the provider call: codes are single-use, so an ineligible account
// must not consume one.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*directory.Employee, error) {
	email = normalizeEmail(email)

	remote, err := s.Remote.QueryByField(ctx, []directory.Filter{{Field: directory.FieldEmail, Value: email}}, 1)
	if err != nil {
		return nil, fmt.Errorf("verify code: %w", err)
	}
	if len(remote) == 0 {
		return nil, fmt.Errorf("no employee found for %s", email)
	}
	emp := remote[0]
	if !emp.IsApproved {
		return nil, ErrNotApproved
	}

	if err := s.OTP.Verify(ctx, email, code); err != nil {
		return nil, err
	}
	s.Cache.Upsert(emp)
	return &emp, nil
}

// LoginWithIdentityToken logs in via a federated identity token. An email
// claim with no directory record signals that registration is required; the
// account is never auto-created.
func (s *Service) LoginWithIdentityToken(ctx context.Context, token string) (*directory.Employee, error) {
	email, err := s.Identity.EmailFromToken(token)
	if err != nil {
		return nil, fmt.Errorf("identity token rejected: %w", err)
	}

	emp, err := s.Dir.GetEmployeeByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrRegistrationRequired
	}
	s.saveSession(*emp)
	return emp, nil
}

// Logout clears the durable session and the local cache.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.Session.Clear(); err != nil {
		return err
	}
	s.Cache.ClearAll()
	return nil
}

// RestoreSession runs once at startup. A logged-in session whose email no
// longer resolves to a directory record is unrecoverable and forces a
// logout rather than surfacing an error.
func (s *Service) RestoreSession(ctx context.Context) (*directory.Employee, error) {
	state := s.Session.Snapshot()
	if !state.LoggedIn {
		return nil, nil
	}
	if strings.TrimSpace(state.Email) == "" {
		return nil, s.forceLogout("blank email in session")
	}

	emp, err := s.Dir.GetEmployeeByEmail(ctx, state.Email)
	if err != nil {
		// The remote store may simply be unreachable while offline; keep
		// the session and let the next read retry.
		slog.Warn("session restore lookup failed", "err", err)
		return nil, nil
	}
	if emp == nil {
		return nil, s.forceLogout(state.Email)
	}
	return emp, nil
}

func (s *Service) forceLogout(reason string) error {
	slog.Warn("session invalidated", "reason", reason)
	return s.Session.Clear()
}

func (s *Service) saveSession(emp directory.Employee) {
	if err := s.Session.SaveLogin(emp.Email, emp.IsAdmin); err != nil {
		slog.Warn("session save failed", "email", emp.Email, "err", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
