package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mindflow/internal/domain"
	"mindflow/internal/service"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.usersByID[user.ID] = user
	if user.Email != "" {
		m.usersByEmail[user.Email] = user.ID
	}
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, bool, error) {
	user, ok := m.usersByID[id]
	return user, ok, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, bool, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, false, nil
	}
	return m.usersByID[id], true, nil
}

func (m *mockUserRepo) SetPasswordHash(_ context.Context, id, passwordHash string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return nil
	}
	user.PasswordHash = passwordHash
	m.usersByID[id] = user
	return nil
}

type mockBindingRepo struct {
	bindings map[string]domain.AuthBinding
}

func newMockBindingRepo() *mockBindingRepo {
	return &mockBindingRepo{bindings: make(map[string]domain.AuthBinding)}
}

func (m *mockBindingRepo) Upsert(_ context.Context, binding domain.AuthBinding) (domain.AuthBinding, error) {
	key := binding.UserID + "|" + string(binding.Provider)
	if existing, ok := m.bindings[key]; ok {
		existing.IsVerified = existing.IsVerified || binding.IsVerified
		m.bindings[key] = existing
		return existing, nil
	}
	m.bindings[key] = binding
	return binding, nil
}

func (m *mockBindingRepo) Get(_ context.Context, userID string, provider domain.ProviderKind) (domain.AuthBinding, bool, error) {
	binding, ok := m.bindings[userID+"|"+string(provider)]
	return binding, ok, nil
}

func (m *mockBindingRepo) ListByUser(_ context.Context, userID string) ([]domain.AuthBinding, error) {
	var out []domain.AuthBinding
	for _, binding := range m.bindings {
		if binding.UserID == userID {
			out = append(out, binding)
		}
	}
	return out, nil
}

func (m *mockBindingRepo) CountVerified(_ context.Context, userID string) (int, error) {
	count := 0
	for _, binding := range m.bindings {
		if binding.UserID == userID && binding.IsVerified {
			count++
		}
	}
	return count, nil
}

func (m *mockBindingRepo) Delete(_ context.Context, userID string, provider domain.ProviderKind) error {
	delete(m.bindings, userID+"|"+string(provider))
	return nil
}

func (m *mockBindingRepo) MarkUsed(_ context.Context, userID string, provider domain.ProviderKind, at time.Time) error {
	key := userID + "|" + string(provider)
	binding, ok := m.bindings[key]
	if !ok {
		return nil
	}
	binding.LastUsed = &at
	m.bindings[key] = binding
	return nil
}

type mockSender struct {
	sent []string
}

func (m *mockSender) SendMagicLink(_ context.Context, toEmail, linkURL string, _ time.Time) error {
	m.sent = append(m.sent, toEmail+"|"+linkURL)
	return nil
}

func (m *mockSender) SendLinkConfirmation(_ context.Context, toEmail, providerName string) error {
	m.sent = append(m.sent, toEmail+"|"+providerName)
	return nil
}

type stubCaptcha struct{ ok bool }

func (s stubCaptcha) Verify(context.Context, string, string) bool { return s.ok }

type stubLimiter struct{ ok bool }

func (s stubLimiter) Allow(string) bool { return s.ok }

type authFixture struct {
	handler    *AuthHandler
	reconciler *service.AuthReconciler
	users      *mockUserRepo
	captcha    *stubCaptcha
	limiter    *stubLimiter
}

func newAuthFixture() *authFixture {
	users := newMockUserRepo()
	bindings := newMockBindingRepo()
	reconciler := service.NewAuthReconciler(zap.NewNop(), users, bindings)
	magicSvc := service.NewMagicLinkService(zap.NewNop(), reconciler, nil, &mockSender{}, nil, "http://localhost:8080")
	jwtSvc := service.NewJWTService("test-secret", 15*time.Minute, time.Hour)
	captcha := &stubCaptcha{ok: true}
	limiter := &stubLimiter{ok: true}
	handler := NewAuthHandler(zap.NewNop(), reconciler, magicSvc, jwtSvc, captcha, limiter)
	return &authFixture{handler: handler, reconciler: reconciler, users: users, captcha: captcha, limiter: limiter}
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newAuthRouter(f *authFixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/signup", f.handler.SignUp)
	r.POST("/auth/signin", f.handler.SignIn)
	r.POST("/auth/magic/request", f.handler.RequestMagicLink)
	return r
}

func TestAuthHandler_SignUpIssuesTokens(t *testing.T) {
	f := newAuthFixture()
	r := newAuthRouter(f)

	rec := postJSON(t, r, "/auth/signup", gin.H{
		"email": "alice@example.com", "display_name": "Alice", "password": "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Tokens service.TokenPair `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", resp.Tokens)
	}
}

func TestAuthHandler_SignUpExistingAccountWrongPasswordGetsNoTokens(t *testing.T) {
	f := newAuthFixture()
	r := newAuthRouter(f)

	if rec := postJSON(t, r, "/auth/signup", gin.H{"email": "victim@example.com", "password": "correct-horse"}); rec.Code != http.StatusCreated {
		t.Fatalf("signup failed: %d", rec.Code)
	}

	rec := postJSON(t, r, "/auth/signup", gin.H{"email": "victim@example.com", "password": "attacker-guess"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "access_token") || strings.Contains(rec.Body.String(), "refresh_token") {
		t.Fatalf("rejected signup must not carry tokens: %s", rec.Body.String())
	}
}

func TestAuthHandler_SignUpBlockedByCaptchaAndRateLimit(t *testing.T) {
	f := newAuthFixture()
	r := newAuthRouter(f)
	body := gin.H{"email": "alice@example.com", "password": "hunter22"}

	f.captcha.ok = false
	if rec := postJSON(t, r, "/auth/signup", body); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on captcha failure, got %d", rec.Code)
	}

	f.captcha.ok = true
	f.limiter.ok = false
	if rec := postJSON(t, r, "/auth/signup", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on rate limit, got %d", rec.Code)
	}
}

func TestAuthHandler_SignInDenialNamesProvider(t *testing.T) {
	f := newAuthFixture()
	r := newAuthRouter(f)

	// Cuenta existente sin binding de email verificado: creada directo en el repo.
	if err := f.users.Create(context.Background(), domain.User{
		ID: "u1", Email: "alice@example.com", PasswordHash: "x", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	rec := postJSON(t, r, "/auth/signin", gin.H{"email": "alice@example.com", "password": "hunter22"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Email/password") {
		t.Fatalf("denial must name the provider, got %s", rec.Body.String())
	}
}

func TestAuthHandler_SignInWrongPassword(t *testing.T) {
	f := newAuthFixture()
	r := newAuthRouter(f)

	if rec := postJSON(t, r, "/auth/signup", gin.H{"email": "alice@example.com", "password": "hunter22"}); rec.Code != http.StatusCreated {
		t.Fatalf("signup failed: %d", rec.Code)
	}
	if rec := postJSON(t, r, "/auth/signin", gin.H{"email": "alice@example.com", "password": "wrong"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthHandler_MagicLinkRequestIsEnumerationResistant(t *testing.T) {
	f := newAuthFixture()
	r := newAuthRouter(f)

	// Cuenta existente para el primer request, inexistente para el segundo.
	if rec := postJSON(t, r, "/auth/signup", gin.H{"email": "alice@example.com", "password": "hunter22"}); rec.Code != http.StatusCreated {
		t.Fatalf("signup failed: %d", rec.Code)
	}

	existing := postJSON(t, r, "/auth/magic/request", gin.H{"email": "alice@example.com"})
	missing := postJSON(t, r, "/auth/magic/request", gin.H{"email": "nobody@example.com"})

	if existing.Code != http.StatusOK || missing.Code != http.StatusOK {
		t.Fatalf("expected 200/200, got %d/%d", existing.Code, missing.Code)
	}
	if !bytes.Equal(existing.Body.Bytes(), missing.Body.Bytes()) {
		t.Fatalf("responses must be byte-identical: %q vs %q", existing.Body.String(), missing.Body.String())
	}
}
