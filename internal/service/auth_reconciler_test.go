package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"mindflow/internal/domain"
)

func newTestReconciler() (*AuthReconciler, *mockUserRepo, *mockBindingRepo) {
	users := newMockUserRepo()
	bindings := newMockBindingRepo()
	return NewAuthReconciler(zap.NewNop(), users, bindings), users, bindings
}

func TestAuthReconciler_SignUpCreatesUserAndVerifiedBinding(t *testing.T) {
	reconciler, users, bindings := newTestReconciler()

	user, err := reconciler.SignUp(context.Background(), " Alice@Example.com ", "Alice", "hunter22")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "hunter22" {
		t.Fatalf("expected hashed password, got %q", user.PasswordHash)
	}

	binding, found, _ := bindings.Get(context.Background(), user.ID, domain.ProviderEmail)
	if !found || !binding.IsVerified {
		t.Fatalf("expected verified email binding, got found=%v verified=%v", found, binding.IsVerified)
	}
	if _, found, _ := users.GetByEmail(context.Background(), "alice@example.com"); !found {
		t.Fatalf("expected user persisted")
	}
}

func TestAuthReconciler_SignUpRetryWithSamePasswordIsIdempotent(t *testing.T) {
	reconciler, users, _ := newTestReconciler()

	first, err := reconciler.SignUp(context.Background(), "alice@example.com", "Alice", "hunter22")
	if err != nil {
		t.Fatalf("first signup failed: %v", err)
	}
	second, err := reconciler.SignUp(context.Background(), "alice@example.com", "Alice Again", "hunter22")
	if err != nil {
		t.Fatalf("retry signup failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same account, got %q vs %q", second.ID, first.ID)
	}

	stored, _, _ := users.GetByID(context.Background(), first.ID)
	if stored.PasswordHash != first.PasswordHash {
		t.Fatalf("expected existing password untouched")
	}
}

func TestAuthReconciler_SignUpRejectsExistingAccountWrongPassword(t *testing.T) {
	reconciler, users, _ := newTestReconciler()

	first, err := reconciler.SignUp(context.Background(), "victim@example.com", "Victim", "correct-horse")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	if _, err := reconciler.SignUp(context.Background(), "victim@example.com", "Attacker", "attacker-guess"); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse for wrong password, got %v", err)
	}

	stored, _, _ := users.GetByID(context.Background(), first.ID)
	if stored.PasswordHash != first.PasswordHash {
		t.Fatalf("expected password untouched after rejected signup")
	}
}

func TestAuthReconciler_SignUpRejectsPasswordlessAccount(t *testing.T) {
	reconciler, users, _ := newTestReconciler()

	// Cuenta creada por un proveedor que atestigua, sin password.
	owner, created, err := reconciler.SignInAttested(context.Background(), domain.ProviderGoogle, "victim@example.com", "google-sub", "Victim")
	if err != nil || !created {
		t.Fatalf("seed attested account: err=%v created=%v", err, created)
	}

	if _, err := reconciler.SignUp(context.Background(), "victim@example.com", "Attacker", "any-password"); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse for passwordless account, got %v", err)
	}

	stored, _, _ := users.GetByID(context.Background(), owner.ID)
	if stored.PasswordHash != "" {
		t.Fatalf("signup must not set a password on an existing account")
	}
}

func TestAuthReconciler_SignInPasswordHappyPath(t *testing.T) {
	reconciler, _, bindings := newTestReconciler()

	created, err := reconciler.SignUp(context.Background(), "alice@example.com", "Alice", "hunter22")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	user, err := reconciler.SignInPassword(context.Background(), "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("expected same account")
	}

	binding, _, _ := bindings.Get(context.Background(), user.ID, domain.ProviderEmail)
	if binding.LastUsed == nil {
		t.Fatalf("expected last_used stamped on success")
	}
}

func TestAuthReconciler_SignInPasswordWrongPassword(t *testing.T) {
	reconciler, _, _ := newTestReconciler()

	if _, err := reconciler.SignUp(context.Background(), "alice@example.com", "Alice", "hunter22"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := reconciler.SignInPassword(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthReconciler_SignInPasswordUnknownEmail(t *testing.T) {
	reconciler, _, _ := newTestReconciler()

	if _, err := reconciler.SignInPassword(context.Background(), "nobody@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthReconciler_AttestedSignInForLinkedAccountRequiresBinding(t *testing.T) {
	reconciler, _, _ := newTestReconciler()

	// Cuenta creada con email/password, sin google vinculado.
	if _, err := reconciler.SignUp(context.Background(), "alice@example.com", "Alice", "hunter22"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	_, _, err := reconciler.SignInAttested(context.Background(), domain.ProviderGoogle, "alice@example.com", "google-sub-1", "Alice")
	if !errors.Is(err, ErrProviderNotLinked) {
		t.Fatalf("expected ErrProviderNotLinked, got %v", err)
	}

	var denial *ProviderNotLinkedError
	if !errors.As(err, &denial) {
		t.Fatalf("expected structured denial, got %T", err)
	}
	if denial.Provider != domain.ProviderGoogle {
		t.Fatalf("expected denial naming google, got %q", denial.Provider)
	}
	if !strings.Contains(err.Error(), "Google") {
		t.Fatalf("expected user-facing message naming the provider, got %q", err.Error())
	}
}

func TestAuthReconciler_AttestedSignInAutoCreatesNewAccount(t *testing.T) {
	reconciler, _, bindings := newTestReconciler()

	user, created, err := reconciler.SignInAttested(context.Background(), domain.ProviderGoogle, "fresh@example.com", "google-sub-2", "Fresh")
	if err != nil {
		t.Fatalf("attested signin failed: %v", err)
	}
	if !created {
		t.Fatalf("expected account auto-created")
	}
	if user.PasswordHash != "" {
		t.Fatalf("expected no password for oauth-created account")
	}

	binding, found, _ := bindings.Get(context.Background(), user.ID, domain.ProviderGoogle)
	if !found || !binding.IsVerified || binding.ProviderUserID != "google-sub-2" {
		t.Fatalf("expected verified google binding with subject, got %+v found=%v", binding, found)
	}
}

func TestAuthReconciler_AttestedSignInExistingLinkedAccount(t *testing.T) {
	reconciler, _, _ := newTestReconciler()

	first, created, err := reconciler.SignInAttested(context.Background(), domain.ProviderMagicLink, "alice@example.com", "", "")
	if err != nil || !created {
		t.Fatalf("first attested signin: err=%v created=%v", err, created)
	}

	second, created, err := reconciler.SignInAttested(context.Background(), domain.ProviderMagicLink, "alice@example.com", "", "")
	if err != nil {
		t.Fatalf("second attested signin failed: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected existing account reused, created=%v", created)
	}
}

func TestAuthReconciler_AttestedRejectsEmailKind(t *testing.T) {
	reconciler, _, _ := newTestReconciler()

	if _, _, err := reconciler.SignInAttested(context.Background(), domain.ProviderEmail, "alice@example.com", "", ""); !errors.Is(err, ErrProviderNotAttested) {
		t.Fatalf("expected ErrProviderNotAttested, got %v", err)
	}
}

func TestAuthReconciler_LinkVerifiedIsMonotonic(t *testing.T) {
	reconciler, _, bindings := newTestReconciler()

	unverified := domain.AuthBinding{
		ID:       "b1",
		UserID:   "u1",
		Provider: domain.ProviderGoogle,
	}
	if _, err := bindings.Upsert(context.Background(), unverified); err != nil {
		t.Fatalf("seed binding: %v", err)
	}

	if _, err := reconciler.LinkVerified(context.Background(), "u1", domain.ProviderGoogle, "alice@example.com", "sub"); err != nil {
		t.Fatalf("link verified failed: %v", err)
	}
	binding, _, _ := bindings.Get(context.Background(), "u1", domain.ProviderGoogle)
	if !binding.IsVerified {
		t.Fatalf("expected binding upgraded to verified")
	}

	// Relink no degrada un binding verificado.
	if _, err := reconciler.LinkVerified(context.Background(), "u1", domain.ProviderGoogle, "alice@example.com", "sub"); err != nil {
		t.Fatalf("relink failed: %v", err)
	}
	binding, _, _ = bindings.Get(context.Background(), "u1", domain.ProviderGoogle)
	if !binding.IsVerified {
		t.Fatalf("expected binding still verified")
	}
}
