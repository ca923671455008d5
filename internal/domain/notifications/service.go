// Package notifications selects push targets by role, district, station, or
// individual, fans messages out in transport-sized batches, and prunes
// tokens the transport reports permanently invalid.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"policedir/internal/domain/directory"
	"policedir/internal/platform/push"
)

var ErrInvalidTarget = errors.New("invalid or incomplete notification target")

// Request addresses one notification. The target-kind decides which of the
// optional fields are required.
type Request struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	Target         Target `json:"targetType"`
	TargetKGID     string `json:"targetKgid,omitempty"`
	TargetDistrict string `json:"targetDistrict,omitempty"`
	TargetStation  string `json:"targetStation,omitempty"`
	RequesterKGID  string `json:"requesterKgid,omitempty"`
}

// Result summarizes one processed notification.
type Result struct {
	Status     string
	Recipients int
	Sent       int
	Failed     int
}

// StoreAPI keeps the queue audit trail.
type StoreAPI interface {
	CreateQueued(ctx context.Context, id string, req Request) error
	MarkProcessed(ctx context.Context, id, status string, sent, failed, recipients int, errMsg string) error
}

type Service struct {
	Remote directory.RemoteAPI
	Cache  *directory.Cache
	Store  StoreAPI
	Push   push.Transport
}

func NewService(remote directory.RemoteAPI, cache *directory.Cache, store StoreAPI, transport push.Transport) *Service {
	return &Service{Remote: remote, Cache: cache, Store: store, Push: transport}
}

// Send resolves the target set, pushes in batches, prunes dead tokens, and
// records the outcome in the queue audit trail.
func (s *Service) Send(ctx context.Context, req Request) (Result, error) {
	id := uuid.NewString()
	s.audit(func() error { return s.Store.CreateQueued(ctx, id, req) })

	filters, err := targetFilters(req)
	if err != nil {
		s.audit(func() error {
			return s.Store.MarkProcessed(ctx, id, StatusInvalidParams, 0, 0, 0, err.Error())
		})
		return Result{Status: StatusInvalidParams}, err
	}

	recipients, err := s.Remote.QueryByField(ctx, filters, 0)
	if err != nil {
		s.audit(func() error {
			return s.Store.MarkProcessed(ctx, id, StatusFailed, 0, 0, 0, err.Error())
		})
		return Result{Status: StatusFailed}, fmt.Errorf("resolve notification targets: %w", err)
	}
	if len(recipients) == 0 {
		s.audit(func() error { return s.Store.MarkProcessed(ctx, id, StatusNoRecipients, 0, 0, 0, "") })
		return Result{Status: StatusNoRecipients}, nil
	}

	tokens := collectTokens(recipients)
	if len(tokens) == 0 {
		s.audit(func() error {
			return s.Store.MarkProcessed(ctx, id, StatusNoTokens, 0, 0, len(recipients), "")
		})
		return Result{Status: StatusNoTokens, Recipients: len(recipients)}, nil
	}

	data := map[string]string{
		"targetType":    string(req.Target),
		"timestamp":     strconv.FormatInt(time.Now().UnixMilli(), 10),
		"requesterKgid": req.RequesterKGID,
	}

	var sent, failed int
	var invalid []string
	for start := 0; start < len(tokens); start += batchSize {
		end := min(start+batchSize, len(tokens))
		res, err := s.Push.SendToTokens(ctx, tokens[start:end], req.Title, req.Body, data)
		if err != nil {
			slog.Warn("push batch failed", "batch", start/batchSize+1, "err", err)
			failed += end - start
			continue
		}
		sent += res.SuccessCount
		failed += res.FailureCount
		invalid = append(invalid, res.Invalid...)
	}

	s.pruneTokens(ctx, recipients, invalid)

	status := StatusProcessed
	if failed > 0 {
		status = StatusPartialSuccess
	}
	s.audit(func() error {
		return s.Store.MarkProcessed(ctx, id, status, sent, failed, len(recipients), "")
	})
	return Result{Status: status, Recipients: len(recipients), Sent: sent, Failed: failed}, nil
}

// NotifyAdmins implements the approval workflow's admin fan-out.
func (s *Service) NotifyAdmins(ctx context.Context, title, body string) error {
	_, err := s.Send(ctx, Request{Title: title, Body: body, Target: TargetAdmin})
	return err
}

// RegisterToken stores a device's push token on its directory record and
// mirrors the change into the cache.
func (s *Service) RegisterToken(ctx context.Context, kgid, token string) error {
	if err := s.Remote.UpdateFields(ctx, kgid, map[string]any{directory.FieldPushToken: token}); err != nil {
		return err
	}
	if local := s.Cache.GetByID(kgid); local != nil {
		local.PushToken = token
		s.Cache.Upsert(*local)
	}
	return nil
}

// pruneTokens clears tokens the transport reported permanently invalid so
// later sends skip them.
func (s *Service) pruneTokens(ctx context.Context, recipients []directory.Employee, invalid []string) {
	if len(invalid) == 0 {
		return
	}
	dead := make(map[string]bool, len(invalid))
	for _, token := range invalid {
		dead[token] = true
	}
	for _, emp := range recipients {
		if emp.PushToken == "" || !dead[emp.PushToken] {
			continue
		}
		if err := s.Remote.UpdateFields(ctx, emp.KGID, map[string]any{directory.FieldPushToken: ""}); err != nil {
			slog.Warn("token prune failed", "kgid", emp.KGID, "err", err)
			continue
		}
		if local := s.Cache.GetByID(emp.KGID); local != nil {
			local.PushToken = ""
			s.Cache.Upsert(*local)
		}
	}
}

func (s *Service) audit(write func() error) {
	if s.Store == nil {
		return
	}
	if err := write(); err != nil {
		slog.Warn("notification audit write failed", "err", err)
	}
}

func targetFilters(req Request) ([]directory.Filter, error) {
	switch req.Target {
	case TargetAll:
		return nil, nil
	case TargetSingle:
		if req.TargetKGID == "" {
			return nil, ErrInvalidTarget
		}
		return []directory.Filter{{Field: directory.FieldKGID, Value: req.TargetKGID}}, nil
	case TargetDistrict:
		if req.TargetDistrict == "" {
			return nil, ErrInvalidTarget
		}
		return []directory.Filter{{Field: directory.FieldDistrict, Value: req.TargetDistrict}}, nil
	case TargetStation:
		if req.TargetDistrict == "" || req.TargetStation == "" {
			return nil, ErrInvalidTarget
		}
		return []directory.Filter{
			{Field: directory.FieldDistrict, Value: req.TargetDistrict},
			{Field: directory.FieldStation, Value: req.TargetStation},
		}, nil
	case TargetAdmin:
		return []directory.Filter{{Field: directory.FieldIsAdmin, Value: "true"}}, nil
	default:
		return nil, ErrInvalidTarget
	}
}

func collectTokens(emps []directory.Employee) []string {
	seen := make(map[string]bool, len(emps))
	var tokens []string
	for _, emp := range emps {
		if emp.PushToken == "" || seen[emp.PushToken] {
			continue
		}
		seen[emp.PushToken] = true
		tokens = append(tokens, emp.PushToken)
	}
	return tokens
}
