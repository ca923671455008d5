package directoryhandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"policedir/internal/domain/directory"
)

// fakeRemote covers only the surface HandleUpsert and HandleList reach.
type fakeRemote struct {
	employees map[string]directory.Employee
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{employees: make(map[string]directory.Employee)}
}

func (f *fakeRemote) SetByID(ctx context.Context, kgid string, emp directory.Employee) error {
	f.employees[kgid] = emp
	return nil
}

func (f *fakeRemote) ListAll(ctx context.Context) ([]directory.Employee, error) {
	var out []directory.Employee
	for _, emp := range f.employees {
		out = append(out, emp)
	}
	return out, nil
}

func (f *fakeRemote) NextCounter(ctx context.Context, name string) (int64, error) { return 1, nil }

func (f *fakeRemote) QueryByField(ctx context.Context, filters []directory.Filter, limit int) ([]directory.Employee, error) {
	return nil, nil
}
func (f *fakeRemote) GetByID(ctx context.Context, kgid string) (*directory.Employee, error) {
	return nil, nil
}
func (f *fakeRemote) UpdateFields(ctx context.Context, kgid string, fields map[string]any) error {
	return nil
}
func (f *fakeRemote) DeleteByID(ctx context.Context, kgid string) error { return nil }
func (f *fakeRemote) QueryPending(ctx context.Context, filters []directory.Filter, limit int) ([]directory.PendingRegistration, error) {
	return nil, nil
}
func (f *fakeRemote) GetPendingByID(ctx context.Context, kgid string) (*directory.PendingRegistration, error) {
	return nil, nil
}
func (f *fakeRemote) SetPending(ctx context.Context, kgid string, reg directory.PendingRegistration) error {
	return nil
}
func (f *fakeRemote) DeletePending(ctx context.Context, kgid string) error        { return nil }
func (f *fakeRemote) RunBatch(ctx context.Context, ops []directory.BatchOp) error { return nil }

func newTestHandler(remote *fakeRemote) *Handler {
	return NewHandler(directory.NewService(directory.NewCache(), remote, nil, nil))
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/employees", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestUpsertDefaultsApprovedWhenFieldAbsent(t *testing.T) {
	remote := newFakeRemote()
	h := newTestHandler(remote)

	rec := postJSON(t, h.HandleUpsert, `{"kgid":"K1","name":"New Officer","email":"n@ex.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, ok := remote.employees["K1"]
	if !ok {
		t.Fatal("record not written to remote store")
	}
	if !stored.IsApproved {
		t.Fatal("admin-created record must default to approved")
	}

	// An unapproved record would be filtered out of the listing.
	listReq := httptest.NewRequest(http.MethodGet, "/employees", nil)
	listRec := httptest.NewRecorder()
	h.HandleList(listRec, listReq)
	if !strings.Contains(listRec.Body.String(), `"kgid":"K1"`) {
		t.Fatalf("admin-created record missing from listing: %s", listRec.Body.String())
	}
}

func TestUpsertHonorsExplicitUnapproved(t *testing.T) {
	remote := newFakeRemote()
	h := newTestHandler(remote)

	rec := postJSON(t, h.HandleUpsert, `{"kgid":"K2","name":"Held Back","isApproved":false}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if remote.employees["K2"].IsApproved {
		t.Fatal("explicit isApproved:false must be preserved")
	}
}

func TestUpsertRejectsMalformedBody(t *testing.T) {
	h := newTestHandler(newFakeRemote())

	rec := postJSON(t, h.HandleUpsert, `{"kgid":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
