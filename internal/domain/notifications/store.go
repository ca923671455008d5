package notifications

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

var _ StoreAPI = (*Store)(nil)

func (s *Store) CreateQueued(ctx context.Context, id string, req Request) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications_queue
      (id, title, body, target_type, target_kgid, target_district, target_station, requester_kgid, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, id, req.Title, req.Body, string(req.Target), nullIfEmpty(req.TargetKGID),
		nullIfEmpty(req.TargetDistrict), nullIfEmpty(req.TargetStation), nullIfEmpty(req.RequesterKGID), StatusQueued)
	return err
}

func (s *Store) MarkProcessed(ctx context.Context, id, status string, sent, failed, recipients int, errMsg string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE notifications_queue
    SET status = $1, sent_count = $2, failed_count = $3, total_recipients = $4, error = $5, processed_at = now()
    WHERE id = $6
  `, status, sent, failed, recipients, nullIfEmpty(errMsg), id)
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
