// Package registration manages the pending-registration approval pipeline:
// submit → dedupe-check → admin notify → approve or reject. pending is the
// only non-terminal state.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"policedir/internal/domain/directory"
)

var (
	ErrAlreadyPending = errors.New("a registration for this KGID or email is already pending")
	ErrMissingFields  = errors.New("KGID and email are required")
)

// AdminNotifier fans a message out to admin devices. Delivery failures never
// fail a registration.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, title, body string) error
}

type Service struct {
	Remote   directory.RemoteAPI
	Cache    *directory.Cache
	Notifier AdminNotifier

	// notifyWG lets tests wait for the async admin fan-out.
	notifyWG sync.WaitGroup
}

func NewService(remote directory.RemoteAPI, cache *directory.Cache, notifier AdminNotifier) *Service {
	return &Service{Remote: remote, Cache: cache, Notifier: notifier}
}

// Submit stages a candidate record for admin moderation.
//
// The duplicate probe checks the pending collection for the same KGID first,
// then the same email. If the probe itself fails (transient remote error)
// the submission proceeds: availability is preferred over strictness here.
func (s *Service) Submit(ctx context.Context, reg directory.PendingRegistration) error {
	reg.KGID = strings.TrimSpace(reg.KGID)
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	if reg.KGID == "" || reg.Email == "" {
		return ErrMissingFields
	}

	dup, err := s.pendingExists(ctx, reg.KGID, reg.Email)
	if err != nil {
		slog.Warn("duplicate probe failed, proceeding with submission", "kgid", reg.KGID, "err", err)
	} else if dup {
		return ErrAlreadyPending
	}

	reg.IsApproved = false
	reg.Status = directory.StatusPending
	reg.RejectionReason = ""
	if reg.Rank == "" {
		reg.Rank = directory.RankPending
	}
	if reg.SubmittedAt.IsZero() {
		reg.SubmittedAt = time.Now().UTC()
	}

	if err := s.Remote.SetPending(ctx, reg.KGID, reg); err != nil {
		return err
	}
	s.Cache.UpsertPending(reg)

	// Fan out to admins asynchronously; registration success is independent
	// of notification delivery.
	s.notifyWG.Add(1)
	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.notifyWG.Done()
		title := "New registration request"
		body := fmt.Sprintf("%s (%s) is awaiting approval.", reg.Name, reg.KGID)
		if err := s.Notifier.NotifyAdmins(notifyCtx, title, body); err != nil {
			slog.Warn("admin notification failed", "kgid", reg.KGID, "err", err)
		}
	}()
	return nil
}

// Approve promotes a pending registration into the main directory under the
// same id and removes the staging document, both in one atomic batch. The
// cache mirror follows. Approving an already-approved id re-sets identical
// data and leaves the pending collection empty, so the batch itself is
// idempotent without a guard.
func (s *Service) Approve(ctx context.Context, reg directory.PendingRegistration) error {
	emp := reg.Employee
	emp.Rank = directory.RankVerified
	emp.IsApproved = true
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now().UTC()
	}
	emp.UpdatedAt = time.Now().UTC()

	ops := []directory.BatchOp{
		{Op: directory.BatchSet, Collection: directory.CollectionEmployees, ID: emp.KGID, Doc: emp},
	}

	// The staging document normally shares the target id, but a registration
	// submitted under a different document id must still be cleared.
	stagingID := emp.KGID
	if staged, err := s.Remote.QueryPending(ctx, []directory.Filter{{Field: directory.FieldKGID, Value: emp.KGID}}, 1); err == nil && len(staged) > 0 && staged[0].KGID != "" {
		stagingID = staged[0].KGID
	}
	ops = append(ops, directory.BatchOp{Op: directory.BatchDelete, Collection: directory.CollectionPending, ID: stagingID})
	if stagingID != emp.KGID {
		ops = append(ops, directory.BatchOp{Op: directory.BatchDelete, Collection: directory.CollectionPending, ID: emp.KGID})
	}

	if err := s.Remote.RunBatch(ctx, ops); err != nil {
		return fmt.Errorf("approve %s: %w", emp.KGID, err)
	}

	s.Cache.Upsert(emp)
	s.Cache.DeletePendingByID(emp.KGID)
	return nil
}

// Reject deletes the staging document; nothing is promoted. The reason is
// kept for the audit log only.
func (s *Service) Reject(ctx context.Context, reg directory.PendingRegistration, reason string) error {
	if err := s.Remote.DeletePending(ctx, reg.KGID); err != nil {
		return fmt.Errorf("reject %s: %w", reg.KGID, err)
	}
	s.Cache.DeletePendingByID(reg.KGID)
	slog.Info("registration rejected", "kgid", reg.KGID, "email", reg.Email, "reason", reason)
	return nil
}

// ListPending fetches the moderation queue and mirrors it into the cache.
func (s *Service) ListPending(ctx context.Context) ([]directory.PendingRegistration, error) {
	regs, err := s.Remote.QueryPending(ctx, []directory.Filter{{Field: directory.FieldStatus, Value: directory.StatusPending}}, 0)
	if err != nil {
		return nil, fmt.Errorf("list pending registrations: %w", err)
	}
	s.Cache.ReplacePending(regs)
	return regs, nil
}

// WaitForNotifications blocks until in-flight admin fan-outs finish.
func (s *Service) WaitForNotifications() {
	s.notifyWG.Wait()
}

func (s *Service) pendingExists(ctx context.Context, kgid, email string) (bool, error) {
	byID, err := s.Remote.QueryPending(ctx, []directory.Filter{
		{Field: directory.FieldKGID, Value: kgid},
		{Field: directory.FieldStatus, Value: directory.StatusPending},
	}, 1)
	if err != nil {
		return false, err
	}
	if len(byID) > 0 {
		return true, nil
	}

	byEmail, err := s.Remote.QueryPending(ctx, []directory.Filter{
		{Field: directory.FieldEmail, Value: email},
		{Field: directory.FieldStatus, Value: directory.StatusPending},
	}, 1)
	if err != nil {
		return false, err
	}
	return len(byEmail) > 0, nil
}
