package directory

import "testing"

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache()
	emp := Employee{KGID: "AGID0001", Name: "A", Email: "A@Ex.com", IsApproved: true}
	cache.Upsert(emp)

	got := cache.GetByID("AGID0001")
	if got == nil || got.Name != "A" {
		t.Fatalf("unexpected cached record: %+v", got)
	}

	// Email lookup is case-insensitive.
	if cache.GetByEmail("a@ex.com") == nil {
		t.Fatal("expected case-insensitive email lookup to hit")
	}

	// Returned pointers are copies; mutating them must not touch the cache.
	got.Name = "mutated"
	if cache.GetByID("AGID0001").Name != "A" {
		t.Fatal("cache returned a live reference")
	}
}

func TestCacheIgnoresBlankID(t *testing.T) {
	cache := NewCache()
	cache.Upsert(Employee{Name: "no id"})
	if cache.Len() != 0 {
		t.Fatal("blank id must not be cached")
	}
}

func TestCacheQueryHidesUnapproved(t *testing.T) {
	cache := NewCache()
	cache.UpsertAll([]Employee{
		{KGID: "A1", Name: "Visible", IsApproved: true},
		{KGID: "A2", Name: "Hidden", IsApproved: false},
	})

	all := cache.All()
	if len(all) != 1 || all[0].KGID != "A1" {
		t.Fatalf("expected only approved records, got %+v", all)
	}
}

func TestCacheQuerySorted(t *testing.T) {
	cache := NewCache()
	cache.UpsertAll([]Employee{
		{KGID: "B", Name: "Zed", IsApproved: true},
		{KGID: "A", Name: "Ann", IsApproved: true},
		{KGID: "C", Name: "Ann", IsApproved: true},
	})

	out := cache.All()
	if len(out) != 3 || out[0].KGID != "A" || out[1].KGID != "C" || out[2].KGID != "B" {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func TestCacheClearAll(t *testing.T) {
	cache := NewCache()
	cache.Upsert(Employee{KGID: "A1", IsApproved: true})
	cache.UpsertPending(PendingRegistration{Employee: Employee{KGID: "P1"}})

	cache.ClearAll()
	if cache.Len() != 0 || len(cache.ListPending()) != 0 {
		t.Fatal("expected empty cache after ClearAll")
	}
}

func TestCacheReplacePending(t *testing.T) {
	cache := NewCache()
	cache.UpsertPending(PendingRegistration{Employee: Employee{KGID: "OLD"}})
	cache.ReplacePending([]PendingRegistration{{Employee: Employee{KGID: "NEW"}}})

	pending := cache.ListPending()
	if len(pending) != 1 || pending[0].KGID != "NEW" {
		t.Fatalf("expected replacement, got %+v", pending)
	}
}
