package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authcore "github.com/authcore-dev/authcore"
	"github.com/authcore-dev/authcore/middleware"
	"github.com/authcore-dev/authcore/password"
	"github.com/authcore-dev/authcore/store"
)

func newTestEngine(t *testing.T) (*authcore.Engine, *store.Memory) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := authcore.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.Issuer = "authcore-test"
	cfg.Session.JitterEnabled = false
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	mem := store.NewMemory()
	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(mem).
		WithRole("api", "member").
		WithRole("api", "admin", "users.manage").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine, mem
}

func seedAndLogin(t *testing.T, engine *authcore.Engine, mem *store.Memory, email string, roles ...string) *authcore.LoginResult {
	t.Helper()
	ctx := context.Background()

	hasher, err := password.NewHasher(password.Params{
		Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	hash, err := hasher.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if len(roles) == 0 {
		roles = []string{"member"}
	}

	if err := mem.CreateUser(ctx, &store.User{
		TenantID:      "0",
		Email:         email,
		PasswordHash:  hash,
		EmailVerified: true,
		Status:        store.StatusActive,
		Roles:         roles,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	result, err := engine.Login(ctx, "password", authcore.Credentials{
		"email": email, "password": "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return result
}

func okHandler(t *testing.T, wantSubject string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			t.Error("claims missing from request context")
		} else if wantSubject != "" && claims.Subject != wantSubject {
			t.Errorf("subject = %q, want %q", claims.Subject, wantSubject)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthBearer(t *testing.T) {
	engine, mem := newTestEngine(t)
	result := seedAndLogin(t, engine, mem, "alice@example.com")

	handler := middleware.RequireAuth(engine)(okHandler(t, result.User.ID))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+result.Tokens.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// no credentials at all
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	// garbage token
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthCookieFallback(t *testing.T) {
	engine, mem := newTestEngine(t)
	result := seedAndLogin(t, engine, mem, "alice@example.com")

	handler := middleware.RequireAuth(engine)(okHandler(t, result.User.ID))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{
		Name:  engine.Config().Cookies.AccessName,
		Value: result.Tokens.AccessToken,
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequireSessionRejectsRevoked(t *testing.T) {
	engine, mem := newTestEngine(t)
	result := seedAndLogin(t, engine, mem, "alice@example.com")
	ctx := context.Background()

	stateless := middleware.RequireAuth(engine)(okHandler(t, ""))
	strict := middleware.RequireSession(engine)(okHandler(t, ""))

	if err := engine.Logout(ctx, result.SessionID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+result.Tokens.AccessToken)

	rec := httptest.NewRecorder()
	stateless.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("stateless guard: status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	strict.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("strict guard: status = %d, want 401", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	engine, mem := newTestEngine(t)
	admin := seedAndLogin(t, engine, mem, "alice@example.com", "admin")
	member := seedAndLogin(t, engine, mem, "bob@example.com", "member")

	handler := middleware.RequirePermission(engine, "api", "users.manage")(okHandler(t, ""))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+admin.Tokens.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+member.Tokens.AccessToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member: status = %d, want 403", rec.Code)
	}
}

func TestAutoRefreshRotatesCookies(t *testing.T) {
	engine, mem := newTestEngine(t)
	result := seedAndLogin(t, engine, mem, "alice@example.com")
	cookies := engine.Config().Cookies

	var sawAuth string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.AutoRefresh(engine)(next)

	// no access cookie, valid refresh cookie: middleware rotates
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: cookies.RefreshName, Value: result.Tokens.RefreshToken})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.HasPrefix(sawAuth, "Bearer ") {
		t.Fatalf("expected Authorization header to be injected, got %q", sawAuth)
	}
	fresh := strings.TrimPrefix(sawAuth, "Bearer ")
	if _, err := engine.ValidateAccessToken(fresh); err != nil {
		t.Fatalf("injected access token invalid: %v", err)
	}

	var gotAccess, gotRefresh bool
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case cookies.AccessName:
			gotAccess = c.Value != ""
		case cookies.RefreshName:
			gotRefresh = c.Value != "" && c.Value != result.Tokens.RefreshToken
		}
	}
	if !gotAccess || !gotRefresh {
		t.Fatalf("expected rotated token cookies, got access=%v refresh=%v", gotAccess, gotRefresh)
	}
}

func TestAutoRefreshLeavesHeaderClientsAlone(t *testing.T) {
	engine, mem := newTestEngine(t)
	result := seedAndLogin(t, engine, mem, "alice@example.com")

	handler := middleware.AutoRefresh(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+result.Tokens.AccessToken)
	req.AddCookie(&http.Cookie{
		Name:  engine.Config().Cookies.RefreshName,
		Value: result.Tokens.RefreshToken,
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("header-based client must not get cookies, got %d", len(rec.Result().Cookies()))
	}
}

func TestAutoRefreshClearsDeadCookies(t *testing.T) {
	engine, _ := newTestEngine(t)
	cookies := engine.Config().Cookies

	handler := middleware.AutoRefresh(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: cookies.RefreshName, Value: "bogus"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (pass through)", rec.Code)
	}
	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	if cleared != 2 {
		t.Fatalf("expected both cookies cleared, got %d", cleared)
	}
}
