package otp

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

var _ StoreAPI = (*Store)(nil)

func (s *Store) Save(ctx context.Context, rec Record) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO otp_requests (email, code_hash, status, expires_at, created_at, verified_at)
    VALUES ($1, $2, $3, $4, now(), NULL)
    ON CONFLICT (email) DO UPDATE
      SET code_hash = EXCLUDED.code_hash,
          status = EXCLUDED.status,
          expires_at = EXCLUDED.expires_at,
          created_at = now(),
          verified_at = NULL
  `, rec.Email, rec.CodeHash, rec.Status, rec.ExpiresAt)
	return err
}

func (s *Store) Get(ctx context.Context, email string) (*Record, error) {
	var rec Record
	err := s.DB.QueryRow(ctx, `
    SELECT email, code_hash, status, expires_at
    FROM otp_requests
    WHERE email = $1
  `, email).Scan(&rec.Email, &rec.CodeHash, &rec.Status, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) MarkUsed(ctx context.Context, email string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE otp_requests SET status = $1, verified_at = now() WHERE email = $2
  `, statusUsed, email)
	return err
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM otp_requests WHERE expires_at < $1", now)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}
