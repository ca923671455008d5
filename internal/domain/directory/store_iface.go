package directory

import "context"

// Filter is an equality predicate on a document field. Multiple filters
// compose as AND, matching the remote store's compound queries.
type Filter struct {
	Field string
	Value string
}

const (
	CollectionEmployees = "employees"
	CollectionPending   = "pending_registrations"

	BatchSet    = "set"
	BatchDelete = "delete"
)

// BatchOp is one step of an all-or-nothing multi-document write.
type BatchOp struct {
	Op         string
	Collection string
	ID         string
	Doc        any
}

// RemoteAPI is the authoritative directory store. Network and permission
// failures surface as errors with the underlying message preserved; a lookup
// that finds nothing returns nil, nil.
type RemoteAPI interface {
	QueryByField(ctx context.Context, filters []Filter, limit int) ([]Employee, error)
	ListAll(ctx context.Context) ([]Employee, error)
	GetByID(ctx context.Context, kgid string) (*Employee, error)
	SetByID(ctx context.Context, kgid string, emp Employee) error
	UpdateFields(ctx context.Context, kgid string, fields map[string]any) error
	DeleteByID(ctx context.Context, kgid string) error

	QueryPending(ctx context.Context, filters []Filter, limit int) ([]PendingRegistration, error)
	GetPendingByID(ctx context.Context, kgid string) (*PendingRegistration, error)
	SetPending(ctx context.Context, kgid string, reg PendingRegistration) error
	DeletePending(ctx context.Context, kgid string) error

	// NextCounter transactionally increments the named counter and returns
	// the new value; used to mint sequential ids.
	NextCounter(ctx context.Context, name string) (int64, error)

	// RunBatch applies every op or none of them.
	RunBatch(ctx context.Context, ops []BatchOp) error
}
