package otp

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	records map[string]Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]Record)}
}

func (f *fakeStore) Save(ctx context.Context, rec Record) error {
	f.records[rec.Email] = rec
	return nil
}

func (f *fakeStore) Get(ctx context.Context, email string) (*Record, error) {
	if rec, ok := f.records[email]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (f *fakeStore) MarkUsed(ctx context.Context, email string) error {
	rec, ok := f.records[email]
	if !ok {
		return errors.New("no record")
	}
	rec.Status = statusUsed
	f.records[email] = rec
	return nil
}

func (f *fakeStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	purged := 0
	for email, rec := range f.records {
		if rec.ExpiresAt.Before(now) {
			delete(f.records, email)
			purged++
		}
	}
	return purged, nil
}

type captureMailer struct {
	to   string
	body string
	err  error
}

func (c *captureMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if c.err != nil {
		return c.err
	}
	c.to = to
	c.body = body
	return nil
}

// codeFromBody digs the 6-digit code out of the sent mail so tests can verify
// the exact code that was delivered.
func codeFromBody(body string) string {
	for i := 0; i+codeLength <= len(body); i++ {
		allDigits := true
		for j := 0; j < codeLength; j++ {
			if body[i+j] < '0' || body[i+j] > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			return body[i : i+codeLength]
		}
	}
	return ""
}

func TestSendAndVerifyRoundTrip(t *testing.T) {
	store := newFakeStore()
	mailer := &captureMailer{}
	svc := NewService(store, mailer, "noreply@ex.com")

	if err := svc.Send(context.Background(), "u@ex.com"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if mailer.to != "u@ex.com" {
		t.Fatalf("mail sent to %q", mailer.to)
	}

	code := codeFromBody(mailer.body)
	if len(code) != codeLength {
		t.Fatalf("no code found in mail body %q", mailer.body)
	}
	if store.records["u@ex.com"].CodeHash == code {
		t.Fatal("store must hold a hash, not the raw code")
	}

	if err := svc.Verify(context.Background(), "u@ex.com", code); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestVerifySingleUse(t *testing.T) {
	store := newFakeStore()
	mailer := &captureMailer{}
	svc := NewService(store, mailer, "noreply@ex.com")

	if err := svc.Send(context.Background(), "u@ex.com"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	code := codeFromBody(mailer.body)

	if err := svc.Verify(context.Background(), "u@ex.com", code); err != nil {
		t.Fatalf("first verify failed: %v", err)
	}
	if err := svc.Verify(context.Background(), "u@ex.com", code); !errors.Is(err, ErrUsed) {
		t.Fatalf("expected ErrUsed on replay, got %v", err)
	}
}

func TestVerifyDistinctFailures(t *testing.T) {
	store := newFakeStore()
	mailer := &captureMailer{}
	svc := NewService(store, mailer, "noreply@ex.com")

	if err := svc.Verify(context.Background(), "nobody@ex.com", "123456"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := svc.Send(context.Background(), "u@ex.com"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := svc.Verify(context.Background(), "u@ex.com", "000000"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}

	rec := store.records["u@ex.com"]
	rec.ExpiresAt = time.Now().Add(-time.Minute)
	store.records["u@ex.com"] = rec
	code := codeFromBody(mailer.body)
	if err := svc.Verify(context.Background(), "u@ex.com", code); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestSendMailFailureDoesNotStoreCode(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &captureMailer{err: errors.New("smtp down")}, "noreply@ex.com")

	if err := svc.Send(context.Background(), "u@ex.com"); err == nil {
		t.Fatal("expected mail failure to surface")
	}
	if len(store.records) != 0 {
		t.Fatal("undelivered code must not be stored")
	}
}

func TestResendReplacesCode(t *testing.T) {
	store := newFakeStore()
	mailer := &captureMailer{}
	svc := NewService(store, mailer, "noreply@ex.com")

	if err := svc.Send(context.Background(), "u@ex.com"); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if err := svc.Send(context.Background(), "u@ex.com"); err != nil {
		t.Fatalf("second send failed: %v", err)
	}
	secondCode := codeFromBody(mailer.body)

	if err := svc.Verify(context.Background(), "u@ex.com", secondCode); err != nil {
		t.Fatalf("latest code must verify: %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	store := newFakeStore()
	store.records["old@ex.com"] = Record{Email: "old@ex.com", Status: statusPending, ExpiresAt: time.Now().Add(-time.Hour)}
	store.records["new@ex.com"] = Record{Email: "new@ex.com", Status: statusPending, ExpiresAt: time.Now().Add(time.Hour)}
	svc := NewService(store, &captureMailer{}, "noreply@ex.com")

	purged, err := svc.PurgeExpired(context.Background())
	if err != nil || purged != 1 {
		t.Fatalf("expected one purge, got %d, %v", purged, err)
	}
	if _, ok := store.records["new@ex.com"]; !ok {
		t.Fatal("live record must survive purge")
	}
}
