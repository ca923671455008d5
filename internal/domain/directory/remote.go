package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Remote is the pgx-backed RemoteAPI. Records live as JSONB documents so the
// store tolerates fields written by clients this server version predates.
type Remote struct {
	DB *pgxpool.Pool
}

func NewRemote(db *pgxpool.Pool) *Remote {
	return &Remote{DB: db}
}

var _ RemoteAPI = (*Remote)(nil)

func (r *Remote) QueryByField(ctx context.Context, filters []Filter, limit int) ([]Employee, error) {
	query, args := buildDocQuery("employees", filters, limit)
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, DecodeEmployee(doc))
	}
	return out, rows.Err()
}

func (r *Remote) ListAll(ctx context.Context) ([]Employee, error) {
	return r.QueryByField(ctx, nil, 0)
}

func (r *Remote) GetByID(ctx context.Context, kgid string) (*Employee, error) {
	var doc []byte
	err := r.DB.QueryRow(ctx, "SELECT doc FROM employees WHERE id = $1", kgid).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get employee %s: %w", kgid, err)
	}
	emp := DecodeEmployee(doc)
	return &emp, nil
}

func (r *Remote) SetByID(ctx context.Context, kgid string, emp Employee) error {
	doc, err := json.Marshal(emp)
	if err != nil {
		return fmt.Errorf("encode employee %s: %w", kgid, err)
	}
	_, err = r.DB.Exec(ctx, `
    INSERT INTO employees (id, doc)
    VALUES ($1, $2)
    ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
  `, kgid, doc)
	if err != nil {
		return fmt.Errorf("set employee %s: %w", kgid, err)
	}
	return nil
}

func (r *Remote) UpdateFields(ctx context.Context, kgid string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode field update for %s: %w", kgid, err)
	}
	cmd, err := r.DB.Exec(ctx, `
    UPDATE employees SET doc = doc || $2::jsonb, updated_at = now() WHERE id = $1
  `, kgid, patch)
	if err != nil {
		return fmt.Errorf("update employee %s: %w", kgid, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update employee %s: no such record", kgid)
	}
	return nil
}

func (r *Remote) DeleteByID(ctx context.Context, kgid string) error {
	if _, err := r.DB.Exec(ctx, "DELETE FROM employees WHERE id = $1", kgid); err != nil {
		return fmt.Errorf("delete employee %s: %w", kgid, err)
	}
	return nil
}

func (r *Remote) QueryPending(ctx context.Context, filters []Filter, limit int) ([]PendingRegistration, error) {
	query, args := buildDocQuery("pending_registrations", filters, limit)
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending registrations: %w", err)
	}
	defer rows.Close()

	var out []PendingRegistration
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan pending registration: %w", err)
		}
		out = append(out, DecodePendingRegistration(doc))
	}
	return out, rows.Err()
}

func (r *Remote) GetPendingByID(ctx context.Context, kgid string) (*PendingRegistration, error) {
	var doc []byte
	err := r.DB.QueryRow(ctx, "SELECT doc FROM pending_registrations WHERE id = $1", kgid).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending registration %s: %w", kgid, err)
	}
	reg := DecodePendingRegistration(doc)
	return &reg, nil
}

func (r *Remote) SetPending(ctx context.Context, kgid string, reg PendingRegistration) error {
	doc, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encode pending registration %s: %w", kgid, err)
	}
	_, err = r.DB.Exec(ctx, `
    INSERT INTO pending_registrations (id, doc)
    VALUES ($1, $2)
    ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
  `, kgid, doc)
	if err != nil {
		return fmt.Errorf("set pending registration %s: %w", kgid, err)
	}
	return nil
}

func (r *Remote) DeletePending(ctx context.Context, kgid string) error {
	if _, err := r.DB.Exec(ctx, "DELETE FROM pending_registrations WHERE id = $1", kgid); err != nil {
		return fmt.Errorf("delete pending registration %s: %w", kgid, err)
	}
	return nil
}

func (r *Remote) NextCounter(ctx context.Context, name string) (int64, error) {
	var next int64
	err := r.DB.QueryRow(ctx, `
    INSERT INTO counters (name, value)
    VALUES ($1, 1)
    ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
    RETURNING value
  `, name).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return next, nil
}

func (r *Remote) RunBatch(ctx context.Context, ops []BatchOp) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, op := range ops {
		table, err := batchTable(op.Collection)
		if err != nil {
			return err
		}
		switch op.Op {
		case BatchSet:
			doc, err := json.Marshal(op.Doc)
			if err != nil {
				return fmt.Errorf("encode batch doc %s: %w", op.ID, err)
			}
			if _, err := tx.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, doc)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
      `, table), op.ID, doc); err != nil {
				return fmt.Errorf("batch set %s/%s: %w", op.Collection, op.ID, err)
			}
		case BatchDelete:
			if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), op.ID); err != nil {
				return fmt.Errorf("batch delete %s/%s: %w", op.Collection, op.ID, err)
			}
		default:
			return fmt.Errorf("batch op %q not supported", op.Op)
		}
	}
	return tx.Commit(ctx)
}

func batchTable(collection string) (string, error) {
	switch collection {
	case CollectionEmployees:
		return "employees", nil
	case CollectionPending:
		return "pending_registrations", nil
	default:
		return "", fmt.Errorf("collection %q not supported", collection)
	}
}

func buildDocQuery(table string, filters []Filter, limit int) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT doc FROM ")
	sb.WriteString(table)
	args := make([]any, 0, len(filters)*2)
	for i, f := range filters {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		fmt.Fprintf(&sb, "doc->>$%d = $%d", len(args)+1, len(args)+2)
		args = append(args, f.Field, f.Value)
	}
	sb.WriteString(" ORDER BY id")
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	return sb.String(), args
}
