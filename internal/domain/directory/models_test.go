package directory

import (
	"testing"
	"time"
)

func TestDecodeEmployeeStrict(t *testing.T) {
	doc := []byte(`{"kgid":"AGID0001","name":"A Kumar","email":"a@ex.com","isAdmin":true,"isApproved":false}`)
	emp := DecodeEmployee(doc)

	if emp.KGID != "AGID0001" || emp.Name != "A Kumar" || emp.Email != "a@ex.com" {
		t.Fatalf("unexpected employee: %+v", emp)
	}
	if !emp.IsAdmin {
		t.Fatal("expected isAdmin true")
	}
	if emp.IsApproved {
		t.Fatal("expected explicit isApproved false to be honored")
	}
}

func TestDecodeEmployeeMissingApprovalDefaultsTrue(t *testing.T) {
	emp := DecodeEmployee([]byte(`{"kgid":"AGID0002","name":"B Rao"}`))
	if !emp.IsApproved {
		t.Fatal("records without isApproved must stay visible")
	}
}

func TestDecodeEmployeeMalformedFields(t *testing.T) {
	// name is a number and isAdmin a string: the strict decode fails and the
	// loose decode falls back to defaults per field.
	doc := []byte(`{"kgid":"AGID0003","name":42,"email":"c@ex.com","isAdmin":"yes"}`)
	emp := DecodeEmployee(doc)

	if emp.KGID != "AGID0003" {
		t.Fatalf("expected kgid to survive, got %q", emp.KGID)
	}
	if emp.Name != "" {
		t.Fatalf("expected malformed name to default empty, got %q", emp.Name)
	}
	if emp.Email != "c@ex.com" {
		t.Fatalf("expected email to survive, got %q", emp.Email)
	}
	if emp.IsAdmin {
		t.Fatal("malformed isAdmin must default false")
	}
	if !emp.IsApproved {
		t.Fatal("missing isApproved must default true")
	}
}

func TestDecodeEmployeeEpochMillisTimestamp(t *testing.T) {
	doc := []byte(`{"kgid":"AGID0004","name":7,"createdAt":1700000000000}`)
	emp := DecodeEmployee(doc)

	want := time.UnixMilli(1700000000000).UTC()
	if !emp.CreatedAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, emp.CreatedAt)
	}
}

func TestDecodePendingRegistrationDefaultsStatus(t *testing.T) {
	reg := DecodePendingRegistration([]byte(`{"kgid":"AGID0005","email":"e@ex.com","status":7}`))
	if reg.Status != StatusPending {
		t.Fatalf("expected default status pending, got %q", reg.Status)
	}
	if reg.KGID != "AGID0005" {
		t.Fatalf("unexpected kgid %q", reg.KGID)
	}
}

func TestEmployeeMatches(t *testing.T) {
	emp := Employee{KGID: "AGID0010", Name: "Shankar Gowda", Rank: "Inspector", Mobile1: "9900112233", District: "Mysuru", Station: "North", Email: "s@ex.com"}

	cases := []struct {
		query, filter string
		want          bool
	}{
		{"shankar", "name", true},
		{"gowda", "all", true},
		{"0010", "kgid", true},
		{"9900", "mobile", true},
		{"mysuru", "district", true},
		{"south", "station", false},
		{"inspector", "rank", true},
		{"nobody", "", false},
	}
	for _, tc := range cases {
		if got := emp.Matches(tc.query, tc.filter); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.query, tc.filter, got, tc.want)
		}
	}
}
