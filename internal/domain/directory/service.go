package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ObjectStore holds photo blobs. Records only ever reference blobs by URL.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, path string) (string, error)
	Delete(ctx context.Context, url string) error
}

// LegacyMirror is the best-effort Sheets/Drive bridge. Mirror failures are
// logged, never propagated: the remote store is the source of truth.
type LegacyMirror interface {
	AddEmployee(ctx context.Context, emp Employee) error
	UpdateEmployee(ctx context.Context, emp Employee) error
	DeleteEmployee(ctx context.Context, kgid string) error
	UploadImage(ctx context.Context, kgid string, image []byte) (string, error)
}

// Service is the sync reconciler. It decides when the local cache is
// authoritative for a read and keeps it converged with the remote store.
// Cache mirroring after a remote write is best-effort: a stale cache
// self-heals on the next read miss.
type Service struct {
	Cache   *Cache
	Remote  RemoteAPI
	Objects ObjectStore
	Legacy  LegacyMirror
}

func NewService(cache *Cache, remote RemoteAPI, objects ObjectStore, legacy LegacyMirror) *Service {
	return &Service{Cache: cache, Remote: remote, Objects: objects, Legacy: legacy}
}

// GetEmployeeByEmail is the read-through lookup: cache wins on the hot path,
// a miss falls back to the remote store and repopulates the cache. A record
// found in neither store returns nil, nil: "no such user" is not an error.
func (s *Service) GetEmployeeByEmail(ctx context.Context, email string) (*Employee, error) {
	if local := s.Cache.GetByEmail(email); local != nil {
		return local, nil
	}

	remote, err := s.Remote.QueryByField(ctx, []Filter{{Field: FieldEmail, Value: email}}, 1)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", email, err)
	}
	if len(remote) == 0 {
		return nil, nil
	}
	emp := remote[0]
	s.Cache.Upsert(emp)
	return &emp, nil
}

// GetEmployeeByID follows the same read-through path keyed by KGID.
func (s *Service) GetEmployeeByID(ctx context.Context, kgid string) (*Employee, error) {
	if local := s.Cache.GetByID(kgid); local != nil {
		return local, nil
	}

	emp, err := s.Remote.GetByID(ctx, kgid)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", kgid, err)
	}
	if emp == nil {
		return nil, nil
	}
	s.Cache.Upsert(*emp)
	return emp, nil
}

// GetAllEmployees returns cache contents when warm; on a cold cache it does
// one full remote fetch, bulk-upserts, and re-reads the cache so both paths
// return through the same code.
func (s *Service) GetAllEmployees(ctx context.Context) ([]Employee, error) {
	if s.Cache.Len() == 0 {
		if err := s.SyncAll(ctx); err != nil {
			return nil, err
		}
	}
	return s.Cache.All(), nil
}

// SyncAll unconditionally fetches the full remote directory and overwrites
// cached records. Entries that no longer exist remotely are kept: stale data
// beats no data under transient remote failure. RefreshAll is the strict
// variant.
func (s *Service) SyncAll(ctx context.Context) error {
	emps, err := s.Remote.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("sync employees: %w", err)
	}
	s.Cache.UpsertAll(emps)
	return nil
}

// RefreshAll drops the cache before syncing, removing records deleted
// remotely. Admin-triggered only.
func (s *Service) RefreshAll(ctx context.Context) error {
	s.Cache.ClearAll()
	return s.SyncAll(ctx)
}

// Search queries the cache, warming it first when empty.
func (s *Service) Search(ctx context.Context, query, filter string) ([]Employee, error) {
	if s.Cache.Len() == 0 {
		if err := s.SyncAll(ctx); err != nil {
			return nil, err
		}
	}
	return s.Cache.Query(query, filter), nil
}

// AddOrUpdateEmployee writes the full record remotely, mirrors it into the
// cache, and best-effort mirrors it to the legacy bridge. When the record
// carries no id one is minted from the transactional contacts counter.
func (s *Service) AddOrUpdateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	isNew := false
	if strings.TrimSpace(emp.KGID) == "" {
		next, err := s.Remote.NextCounter(ctx, CounterContacts)
		if err != nil {
			return Employee{}, fmt.Errorf("mint id: %w", err)
		}
		emp.KGID = fmt.Sprintf("AGID%04d", next)
		isNew = true
	}
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now().UTC()
	}
	emp.UpdatedAt = time.Now().UTC()

	if err := s.Remote.SetByID(ctx, emp.KGID, emp); err != nil {
		return Employee{}, err
	}
	s.Cache.Upsert(emp)

	if s.Legacy != nil {
		mirror := s.Legacy.UpdateEmployee
		if isNew {
			mirror = s.Legacy.AddEmployee
		}
		if err := mirror(ctx, emp); err != nil {
			slog.Warn("legacy mirror write failed", "kgid", emp.KGID, "err", err)
		}
	}
	return emp, nil
}

// DeleteEmployee cascades: legacy mirror (best-effort), remote store
// (authoritative), local cache, then best-effort deletion of the stored
// photo.
func (s *Service) DeleteEmployee(ctx context.Context, kgid string) error {
	photoURL := ""
	if emp, err := s.GetEmployeeByID(ctx, kgid); err == nil && emp != nil {
		photoURL = emp.PhotoURL
	}

	if s.Legacy != nil {
		if err := s.Legacy.DeleteEmployee(ctx, kgid); err != nil {
			slog.Warn("legacy mirror delete failed", "kgid", kgid, "err", err)
		}
	}

	if err := s.Remote.DeleteByID(ctx, kgid); err != nil {
		return err
	}
	s.Cache.DeleteByID(kgid)

	if photoURL != "" && s.Objects != nil {
		if err := s.Objects.Delete(ctx, photoURL); err != nil {
			slog.Warn("photo delete failed", "kgid", kgid, "err", err)
		}
	}
	return nil
}

// UploadPhoto stores the blob first and only writes the URL into the record
// once the upload succeeded.
func (s *Service) UploadPhoto(ctx context.Context, kgid string, data []byte) (string, error) {
	if s.Objects == nil {
		return "", fmt.Errorf("object storage not configured")
	}
	url, err := s.Objects.Upload(ctx, data, fmt.Sprintf("profile_photos/%s.jpg", kgid))
	if err != nil {
		return "", fmt.Errorf("upload photo for %s: %w", kgid, err)
	}

	if err := s.Remote.UpdateFields(ctx, kgid, map[string]any{FieldPhotoURL: url}); err != nil {
		return "", err
	}
	if local := s.Cache.GetByID(kgid); local != nil {
		local.PhotoURL = url
		s.Cache.Upsert(*local)
	}

	if s.Legacy != nil {
		if _, err := s.Legacy.UploadImage(ctx, kgid, data); err != nil {
			slog.Warn("legacy image mirror failed", "kgid", kgid, "err", err)
		}
	}
	return url, nil
}
