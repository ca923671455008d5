package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestSuccessEchoesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]string{"hello": "world"}, "req-1")

	env := decodeEnvelope(t, rec)
	if !env.Success || env.RequestID != "req-1" || env.Error != nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatal("missing content type")
	}
}

func TestInvalidUsesSharedCode(t *testing.T) {
	rec := httptest.NewRecorder()
	Invalid(rec, "bad body", "req-2")

	env := decodeEnvelope(t, rec)
	if rec.Code != 400 || env.Success || env.Error == nil {
		t.Fatalf("unexpected response: %d %+v", rec.Code, env)
	}
	if env.Error.Code != CodeInvalidPayload || env.Error.Message != "bad body" {
		t.Fatalf("unexpected error: %+v", env.Error)
	}
}

func TestNotFoundUsesSharedCode(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, "no such record", "req-3")

	env := decodeEnvelope(t, rec)
	if rec.Code != 404 || env.Error == nil || env.Error.Code != CodeNotFound {
		t.Fatalf("unexpected response: %d %+v", rec.Code, env)
	}
}
