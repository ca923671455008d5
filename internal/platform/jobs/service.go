package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"policedir/internal/domain/directory"
	"policedir/internal/domain/otp"
	"policedir/internal/platform/config"
)

const (
	JobDirectorySync = "directory_sync"
	JobOTPCleanup    = "otp_cleanup"
)

type Service struct {
	DB    *pgxpool.Pool
	Cfg   config.Config
	Dir   *directory.Service
	OTP   *otp.Service
	queue chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config, dir *directory.Service, otpSvc *otp.Service) *Service {
	return &Service{
		DB:    db,
		Cfg:   cfg,
		Dir:   dir,
		OTP:   otpSvc,
		queue: make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.SyncInterval > 0 {
		go s.scheduleSync(ctx, s.Cfg.SyncInterval)
	}
	if s.Cfg.OTPCleanupInterval > 0 {
		go s.scheduleOTPCleanup(ctx, s.Cfg.OTPCleanupInterval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, j.Type, "running").Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobDirectorySync, func(ctx context.Context) (any, error) {
				if err := s.Dir.SyncAll(ctx); err != nil {
					return nil, err
				}
				return map[string]any{"records": s.Dir.Cache.Len()}, nil
			})
		}
	}
}

func (s *Service) scheduleOTPCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobOTPCleanup, func(ctx context.Context) (any, error) {
				purged, err := s.OTP.PurgeExpired(ctx)
				return map[string]any{"purged": purged}, err
			})
		}
	}
}
