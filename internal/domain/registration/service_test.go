package registration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"policedir/internal/domain/directory"
)

type fakeRemote struct {
	mu       sync.Mutex
	pending  map[string]directory.PendingRegistration
	main     map[string]directory.Employee
	probeErr error
	setErr   error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		pending: make(map[string]directory.PendingRegistration),
		main:    make(map[string]directory.Employee),
	}
}

func (f *fakeRemote) QueryPending(ctx context.Context, filters []directory.Filter, limit int) ([]directory.PendingRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	var out []directory.PendingRegistration
	for _, reg := range f.pending {
		match := true
		for _, flt := range filters {
			var field string
			switch flt.Field {
			case directory.FieldKGID:
				field = reg.KGID
			case directory.FieldEmail:
				field = reg.Email
			case directory.FieldStatus:
				field = reg.Status
			}
			if !strings.EqualFold(field, flt.Value) {
				match = false
			}
		}
		if match {
			out = append(out, reg)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRemote) GetPendingByID(ctx context.Context, kgid string) (*directory.PendingRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reg, ok := f.pending[kgid]; ok {
		return &reg, nil
	}
	return nil, nil
}

func (f *fakeRemote) SetPending(ctx context.Context, kgid string, reg directory.PendingRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.pending[kgid] = reg
	return nil
}

func (f *fakeRemote) DeletePending(ctx context.Context, kgid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, kgid)
	return nil
}

func (f *fakeRemote) RunBatch(ctx context.Context, ops []directory.BatchOp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range ops {
		switch {
		case op.Op == directory.BatchSet && op.Collection == directory.CollectionEmployees:
			f.main[op.ID] = op.Doc.(directory.Employee)
		case op.Op == directory.BatchDelete && op.Collection == directory.CollectionEmployees:
			delete(f.main, op.ID)
		case op.Op == directory.BatchSet && op.Collection == directory.CollectionPending:
			f.pending[op.ID] = op.Doc.(directory.PendingRegistration)
		case op.Op == directory.BatchDelete && op.Collection == directory.CollectionPending:
			delete(f.pending, op.ID)
		}
	}
	return nil
}

func (f *fakeRemote) QueryByField(ctx context.Context, filters []directory.Filter, limit int) ([]directory.Employee, error) {
	return nil, nil
}
func (f *fakeRemote) ListAll(ctx context.Context) ([]directory.Employee, error) { return nil, nil }
func (f *fakeRemote) GetByID(ctx context.Context, kgid string) (*directory.Employee, error) {
	return nil, nil
}
func (f *fakeRemote) SetByID(ctx context.Context, kgid string, emp directory.Employee) error {
	return nil
}
func (f *fakeRemote) UpdateFields(ctx context.Context, kgid string, fields map[string]any) error {
	return nil
}
func (f *fakeRemote) DeleteByID(ctx context.Context, kgid string) error           { return nil }
func (f *fakeRemote) NextCounter(ctx context.Context, name string) (int64, error) { return 0, nil }

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNotifier) NotifyAdmins(ctx context.Context, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeNotifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func pendingFor(kgid, email string) directory.PendingRegistration {
	return directory.PendingRegistration{
		Employee: directory.Employee{KGID: kgid, Name: "Test User", Email: email},
	}
}

func TestSubmitStagesAndNotifies(t *testing.T) {
	remote := newFakeRemote()
	notifier := &fakeNotifier{}
	svc := NewService(remote, directory.NewCache(), notifier)

	if err := svc.Submit(context.Background(), pendingFor("K1", "U@Ex.com")); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	svc.WaitForNotifications()

	staged, ok := remote.pending["K1"]
	if !ok {
		t.Fatal("registration not staged")
	}
	if staged.Email != "u@ex.com" {
		t.Fatalf("email not normalized: %q", staged.Email)
	}
	if staged.Status != directory.StatusPending || staged.IsApproved {
		t.Fatalf("unexpected staged state: %+v", staged)
	}
	if staged.Rank != directory.RankPending {
		t.Fatalf("expected default rank, got %q", staged.Rank)
	}
	if notifier.callCount() != 1 {
		t.Fatalf("expected one admin notification, got %d", notifier.callCount())
	}
}

func TestSubmitMissingFields(t *testing.T) {
	svc := NewService(newFakeRemote(), directory.NewCache(), &fakeNotifier{})
	if err := svc.Submit(context.Background(), pendingFor("", "u@ex.com")); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
}

func TestSubmitDuplicateByIDAndEmail(t *testing.T) {
	remote := newFakeRemote()
	svc := NewService(remote, directory.NewCache(), &fakeNotifier{})

	if err := svc.Submit(context.Background(), pendingFor("K1", "u@ex.com")); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	if err := svc.Submit(context.Background(), pendingFor("K1", "other@ex.com")); !errors.Is(err, ErrAlreadyPending) {
		t.Fatalf("expected duplicate kgid to be rejected, got %v", err)
	}
	if err := svc.Submit(context.Background(), pendingFor("K2", "u@ex.com")); !errors.Is(err, ErrAlreadyPending) {
		t.Fatalf("expected duplicate email to be rejected, got %v", err)
	}

	svc.WaitForNotifications()
	if len(remote.pending) != 1 {
		t.Fatalf("expected exactly one staged registration, got %d", len(remote.pending))
	}
}

func TestSubmitProceedsWhenProbeFails(t *testing.T) {
	remote := newFakeRemote()
	remote.probeErr = errors.New("remote flaky")
	svc := NewService(remote, directory.NewCache(), &fakeNotifier{})

	if err := svc.Submit(context.Background(), pendingFor("K1", "u@ex.com")); err != nil {
		t.Fatalf("submission must proceed despite probe failure: %v", err)
	}
	svc.WaitForNotifications()
	if _, ok := remote.pending["K1"]; !ok {
		t.Fatal("registration not staged")
	}
}

func TestSubmitSurvivesNotifierFailure(t *testing.T) {
	remote := newFakeRemote()
	notifier := &fakeNotifier{err: errors.New("push down")}
	svc := NewService(remote, directory.NewCache(), notifier)

	if err := svc.Submit(context.Background(), pendingFor("K1", "u@ex.com")); err != nil {
		t.Fatalf("notification failure must not fail the submission: %v", err)
	}
	svc.WaitForNotifications()
}

func TestApprovePromotesAndClearsStaging(t *testing.T) {
	remote := newFakeRemote()
	cache := directory.NewCache()
	svc := NewService(remote, cache, &fakeNotifier{})

	reg := pendingFor("K1", "u@ex.com")
	if err := svc.Submit(context.Background(), reg); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	svc.WaitForNotifications()

	staged := remote.pending["K1"]
	if err := svc.Approve(context.Background(), staged); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	emp, ok := remote.main["K1"]
	if !ok {
		t.Fatal("approved record not promoted")
	}
	if !emp.IsApproved || emp.Rank != directory.RankVerified {
		t.Fatalf("unexpected promoted record: %+v", emp)
	}
	if len(remote.pending) != 0 {
		t.Fatal("staging document not removed")
	}
	if cache.GetByID("K1") == nil {
		t.Fatal("approved record not cached")
	}
}

func TestApproveIdempotent(t *testing.T) {
	remote := newFakeRemote()
	svc := NewService(remote, directory.NewCache(), &fakeNotifier{})

	reg := pendingFor("K1", "u@ex.com")
	if err := svc.Approve(context.Background(), reg); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}
	if err := svc.Approve(context.Background(), reg); err != nil {
		t.Fatalf("second approve must be a no-op re-set: %v", err)
	}
	if len(remote.main) != 1 || len(remote.pending) != 0 {
		t.Fatalf("unexpected store state: main=%d pending=%d", len(remote.main), len(remote.pending))
	}
}

func TestApproveOverwritesExistingActiveRecord(t *testing.T) {
	remote := newFakeRemote()
	remote.main["K1"] = directory.Employee{KGID: "K1", Name: "Old Data", IsApproved: true}
	remote.pending["K1"] = directory.PendingRegistration{
		Employee: directory.Employee{KGID: "K1", Name: "New Data", Email: "u@ex.com"},
		Status:   directory.StatusPending,
	}
	svc := NewService(remote, directory.NewCache(), &fakeNotifier{})

	if err := svc.Approve(context.Background(), remote.pending["K1"]); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if len(remote.main) != 1 {
		t.Fatalf("expected exactly one main document, got %d", len(remote.main))
	}
	if remote.main["K1"].Name != "New Data" {
		t.Fatalf("approved data must win, got %+v", remote.main["K1"])
	}
	if len(remote.pending) != 0 {
		t.Fatal("staging document must be gone")
	}
}

func TestRejectRemovesStagingOnly(t *testing.T) {
	remote := newFakeRemote()
	cache := directory.NewCache()
	svc := NewService(remote, cache, &fakeNotifier{})

	if err := svc.Submit(context.Background(), pendingFor("K1", "u@ex.com")); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	svc.WaitForNotifications()

	staged := remote.pending["K1"]
	if err := svc.Reject(context.Background(), staged, "incomplete details"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if len(remote.pending) != 0 {
		t.Fatal("staging document not removed")
	}
	if len(remote.main) != 0 {
		t.Fatal("rejected registration must not be promoted")
	}
}

func TestListPendingMirrorsCache(t *testing.T) {
	remote := newFakeRemote()
	cache := directory.NewCache()
	svc := NewService(remote, cache, &fakeNotifier{})

	if err := svc.Submit(context.Background(), pendingFor("K1", "u@ex.com")); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	svc.WaitForNotifications()

	regs, err := svc.ListPending(context.Background())
	if err != nil || len(regs) != 1 {
		t.Fatalf("expected one pending registration, got %v, %v", regs, err)
	}
	if len(cache.ListPending()) != 1 {
		t.Fatal("pending queue not mirrored into cache")
	}
}
