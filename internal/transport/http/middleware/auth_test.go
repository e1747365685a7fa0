package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hrflow/internal/domain/auth"
)

func TestAuthMiddlewareSetsUser(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{EmployeeCode: "H1", Name: "Hana", Role: auth.RoleHR}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	called := false
	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		user, ok := GetUser(r.Context())
		if !ok {
			t.Fatal("expected user in context")
		}
		if user.EmployeeCode != "H1" || user.Role != auth.RoleHR || user.Name != "Hana" {
			t.Fatalf("unexpected user: %+v", user)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if !called {
		t.Fatal("expected handler to run")
	}
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("did not expect user in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
}

func TestAuthMiddlewareIgnoresForeignSignature(t *testing.T) {
	token, err := auth.GenerateToken("other-secret", auth.Claims{EmployeeCode: "SA1", Role: auth.RoleSuperAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	handler := Auth("secret")(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a forged token")
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	secret := "test-secret"
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := Auth(secret)(RequirePermission(auth.PermRequestsApprove)(ok))

	cases := []struct {
		role auth.Role
		want int
	}{
		{auth.RoleEmployee, http.StatusForbidden},
		{auth.RoleManager, http.StatusNoContent},
		{auth.RoleHR, http.StatusNoContent},
		{auth.RoleSuperAdmin, http.StatusNoContent},
	}
	for _, tc := range cases {
		token, err := auth.GenerateToken(secret, auth.Claims{EmployeeCode: "X", Role: tc.role}, time.Hour)
		if err != nil {
			t.Fatalf("token error: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.role, tc.want, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}
