package directory

import (
	"encoding/json"
	"time"
)

const (
	CounterContacts = "contactsCounter"

	RankPending  = "Pending Verification"
	RankVerified = "Verified"

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Document field names as stored in the remote directory store.
const (
	FieldKGID      = "kgid"
	FieldEmail     = "email"
	FieldPINHash   = "pin"
	FieldPushToken = "fcmToken"
	FieldPhotoURL  = "photoUrl"
	FieldDistrict  = "district"
	FieldStation   = "station"
	FieldIsAdmin   = "isAdmin"
	FieldStatus    = "status"
)

// Employee is a directory record. KGID is the stable external identifier and
// doubles as the document id; Email is unique and used for login.
type Employee struct {
	KGID           string    `json:"kgid"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PINHash        string    `json:"pin,omitempty"`
	Mobile1        string    `json:"mobile1,omitempty"`
	Mobile2        string    `json:"mobile2,omitempty"`
	Rank           string    `json:"rank,omitempty"`
	MetalNumber    string    `json:"metalNumber,omitempty"`
	District       string    `json:"district,omitempty"`
	Station        string    `json:"station,omitempty"`
	BloodGroup     string    `json:"bloodGroup,omitempty"`
	PhotoURL       string    `json:"photoUrl,omitempty"`
	GooglePhotoURL string    `json:"photoUrlFromGoogle,omitempty"`
	PushToken      string    `json:"fcmToken,omitempty"`
	IsAdmin        bool      `json:"isAdmin"`
	IsApproved     bool      `json:"isApproved"`
	IdentityRef    string    `json:"identityRef,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

// PendingRegistration stages an unapproved candidate record until an admin
// resolves it. On approval the embedded Employee is promoted under the same
// id and the staging document is deleted.
type PendingRegistration struct {
	Employee
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	SubmittedAt     time.Time `json:"submittedAt,omitempty"`
}

// Matches reports whether the record matches a case-insensitive substring
// query against the given filter field ("" or "all" searches every field).
func (e Employee) Matches(query, filter string) bool {
	q := lowerTrim(query)
	switch lowerTrim(filter) {
	case "name":
		return containsFold(e.Name, q)
	case "kgid":
		return containsFold(e.KGID, q)
	case "rank":
		return containsFold(e.Rank, q)
	case "mobile":
		return containsFold(e.Mobile1, q) || containsFold(e.Mobile2, q)
	case "metalnumber":
		return containsFold(e.MetalNumber, q)
	case "district":
		return containsFold(e.District, q)
	case "station":
		return containsFold(e.Station, q)
	case "email":
		return containsFold(e.Email, q)
	default:
		for _, field := range []string{e.Name, e.KGID, e.Rank, e.Mobile1, e.Mobile2, e.District, e.Station, e.Email} {
			if containsFold(field, q) {
				return true
			}
		}
		return false
	}
}

// DecodeEmployee maps a raw store document into an Employee. It first
// attempts a strict schema decode; if the document does not unmarshal
// cleanly it rebuilds the record field by field, defaulting missing strings
// to empty and missing booleans to false. isApproved defaults to true so
// legacy records predating moderation stay visible. Never fails.
func DecodeEmployee(doc []byte) Employee {
	emp := Employee{IsApproved: true}
	if err := json.Unmarshal(doc, &emp); err == nil {
		return emp
	}

	var raw map[string]any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return Employee{IsApproved: true}
	}
	return decodeEmployeeLoose(raw)
}

// DecodePendingRegistration is the staging-collection counterpart of
// DecodeEmployee.
func DecodePendingRegistration(doc []byte) PendingRegistration {
	reg := PendingRegistration{Employee: Employee{IsApproved: true}}
	if err := json.Unmarshal(doc, &reg); err == nil {
		return reg
	}

	var raw map[string]any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return PendingRegistration{Status: StatusPending}
	}
	reg = PendingRegistration{
		Employee:        decodeEmployeeLoose(raw),
		Status:          stringField(raw, "status", StatusPending),
		RejectionReason: stringField(raw, "rejectionReason", ""),
		SubmittedAt:     timeField(raw, "submittedAt"),
	}
	return reg
}

func decodeEmployeeLoose(raw map[string]any) Employee {
	return Employee{
		KGID:           stringField(raw, "kgid", ""),
		Name:           stringField(raw, "name", ""),
		Email:          stringField(raw, "email", ""),
		PINHash:        stringField(raw, "pin", ""),
		Mobile1:        stringField(raw, "mobile1", ""),
		Mobile2:        stringField(raw, "mobile2", ""),
		Rank:           stringField(raw, "rank", ""),
		MetalNumber:    stringField(raw, "metalNumber", ""),
		District:       stringField(raw, "district", ""),
		Station:        stringField(raw, "station", ""),
		BloodGroup:     stringField(raw, "bloodGroup", ""),
		PhotoURL:       stringField(raw, "photoUrl", ""),
		GooglePhotoURL: stringField(raw, "photoUrlFromGoogle", ""),
		PushToken:      stringField(raw, "fcmToken", ""),
		IsAdmin:        boolField(raw, "isAdmin", false),
		IsApproved:     boolField(raw, "isApproved", true),
		IdentityRef:    stringField(raw, "identityRef", ""),
		CreatedAt:      timeField(raw, "createdAt"),
		UpdatedAt:      timeField(raw, "updatedAt"),
	}
}

func stringField(raw map[string]any, key, fallback string) string {
	value, ok := raw[key]
	if !ok || value == nil {
		return fallback
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fallback
}

func boolField(raw map[string]any, key string, fallback bool) bool {
	value, ok := raw[key]
	if !ok || value == nil {
		return fallback
	}
	if b, ok := value.(bool); ok {
		return b
	}
	return fallback
}

func timeField(raw map[string]any, key string) time.Time {
	value, ok := raw[key]
	if !ok || value == nil {
		return time.Time{}
	}
	if s, ok := value.(string); ok {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts
		}
	}
	// Epoch milliseconds from older mobile clients.
	if f, ok := value.(float64); ok {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Time{}
}
