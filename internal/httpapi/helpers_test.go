package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPrincipalFromRequestRequiresBearerPrefix(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/begin_recording", nil)
	r.Header.Set("Authorization", "token-without-prefix")
	if _, ok := principalFromRequest(r); ok {
		t.Error("expected no principal without Bearer prefix")
	}
}

func TestPrincipalFromRequestExtractsToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/begin_recording", nil)
	r.Header.Set("Authorization", "Bearer alice-token")
	principal, ok := principalFromRequest(r)
	if !ok || principal != "alice-token" {
		t.Errorf("principal = %q, %v; want %q, true", principal, ok, "alice-token")
	}
}

func TestPrincipalFromRequestRejectsEmptyToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/begin_recording", nil)
	r.Header.Set("Authorization", "Bearer ")
	if _, ok := principalFromRequest(r); ok {
		t.Error("expected no principal for empty token")
	}
}
