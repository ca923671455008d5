package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"policedir/internal/domain/directory"
	"policedir/internal/platform/config"
	"policedir/internal/platform/pinhash"
)

// Seed bootstraps an initial admin record when the directory is empty.
// Subsequent runs are no-ops, so it is safe to leave enabled.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if strings.TrimSpace(cfg.SeedAdminEmail) == "" || strings.TrimSpace(cfg.SeedAdminPIN) == "" {
		return nil
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM employees").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	remote := directory.NewRemote(pool)

	kgid := strings.TrimSpace(cfg.SeedAdminKGID)
	if kgid == "" {
		next, err := remote.NextCounter(ctx, directory.CounterContacts)
		if err != nil {
			return err
		}
		kgid = fmt.Sprintf("AGID%04d", next)
	}

	hash, err := pinhash.Hash(cfg.SeedAdminPIN)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return remote.SetByID(ctx, kgid, directory.Employee{
		KGID:       kgid,
		Name:       cfg.SeedAdminName,
		Email:      strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail)),
		PINHash:    hash,
		Rank:       directory.RankVerified,
		IsAdmin:    true,
		IsApproved: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}
