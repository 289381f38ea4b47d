package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mindflow/internal/domain"
	"mindflow/internal/repository"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrEmailInUse          = errors.New("email already registered")
	ErrProviderNotLinked   = errors.New("auth provider not linked")
	ErrProviderNotAttested = errors.New("provider cannot attest identity")
)

// ProviderNotLinkedError es la negacion estructurada cuando un proveedor reporta
// el email de una cuenta existente que nunca lo vinculo. Nunca otorga acceso.
type ProviderNotLinkedError struct {
	Provider domain.ProviderKind
}

func (e *ProviderNotLinkedError) Error() string {
	return fmt.Sprintf(
		"%s authentication is not enabled for this account. Please use your configured authentication method or enable %s in your account settings.",
		e.Provider.DisplayName(), e.Provider.DisplayName(),
	)
}

func (e *ProviderNotLinkedError) Is(target error) bool {
	return target == ErrProviderNotLinked
}

// AuthReconciler decide si un evento de autenticacion procede y que estado muta.
// Regla central: un proveedor debe estar vinculado y verificado antes de
// autenticar una cuenta existente; el primer uso de un email nuevo auto-vincula.
type AuthReconciler struct {
	logger   *zap.Logger
	users    repository.UserRepository
	bindings repository.AuthBindingRepository
	now      func() time.Time
}

func NewAuthReconciler(logger *zap.Logger, users repository.UserRepository, bindings repository.AuthBindingRepository) *AuthReconciler {
	return &AuthReconciler{
		logger:   logger,
		users:    users,
		bindings: bindings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SignUp registra una cuenta con email/password. Para un email ya registrado
// solo procede el reintento idempotente con la credencial correcta; cualquier
// otro password es un intento de tomar la cuenta y se rechaza sin sesion.
// El binding de email se (re)verifica en el exito; nunca pisa un password.
func (s *AuthReconciler) SignUp(ctx context.Context, emailAddr, displayName, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, found, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		return domain.User{}, err
	}

	if found {
		// Cuenta sin password (creada por un proveedor que atestigua): el
		// password se fija via el flujo de vinculacion, nunca por sign-up.
		if user.PasswordHash == "" {
			return domain.User{}, ErrEmailInUse
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return domain.User{}, ErrEmailInUse
		}
	} else {
		hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return domain.User{}, err
		}
		user = domain.User{
			ID:           uuid.NewString(),
			Email:        emailAddr,
			DisplayName:  strings.TrimSpace(displayName),
			PasswordHash: string(hashBytes),
			CreatedAt:    s.now(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return domain.User{}, err
		}
	}

	if _, err := s.linkVerified(ctx, user.ID, domain.ProviderEmail, emailAddr, ""); err != nil {
		return domain.User{}, err
	}

	return user, nil
}

// SignInPassword autentica con email/password. El chequeo de credenciales solo
// corre si el binding de email esta vinculado y verificado para la cuenta.
func (s *AuthReconciler) SignInPassword(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, found, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		return domain.User{}, err
	}
	if !found {
		// El kind email no atestigua identidad por si mismo: sin cuenta no hay
		// auto-creacion, el chequeo de credenciales simplemente falla.
		return domain.User{}, ErrInvalidCredentials
	}

	if err := s.requireVerifiedBinding(ctx, user.ID, domain.ProviderEmail); err != nil {
		return domain.User{}, err
	}

	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	s.markUsed(ctx, user.ID, domain.ProviderEmail)
	return user, nil
}

// SignInAttested procesa un sign-in de un proveedor que verifica identidad por
// si mismo (OAuth o magic link). Para un email nunca visto crea la cuenta y el
// binding verificado; para una cuenta existente exige binding verificado.
func (s *AuthReconciler) SignInAttested(ctx context.Context, kind domain.ProviderKind, providerEmail, subject, displayName string) (domain.User, bool, error) {
	if !kind.Attested() {
		return domain.User{}, false, ErrProviderNotAttested
	}
	providerEmail = normalizeEmail(providerEmail)
	if providerEmail == "" {
		return domain.User{}, false, ErrInvalidEmail
	}

	user, found, err := s.users.GetByEmail(ctx, providerEmail)
	if err != nil {
		return domain.User{}, false, err
	}

	if !found {
		user = domain.User{
			ID:          uuid.NewString(),
			Email:       providerEmail,
			DisplayName: strings.TrimSpace(displayName),
			CreatedAt:   s.now(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return domain.User{}, false, err
		}
		if _, err := s.linkVerified(ctx, user.ID, kind, providerEmail, subject); err != nil {
			return domain.User{}, false, err
		}
		s.markUsed(ctx, user.ID, kind)
		return user, true, nil
	}

	if err := s.requireVerifiedBinding(ctx, user.ID, kind); err != nil {
		return domain.User{}, false, err
	}

	// Refresca email/subject reportados por el proveedor en cada sign-in.
	if _, err := s.linkVerified(ctx, user.ID, kind, providerEmail, subject); err != nil {
		return domain.User{}, false, err
	}
	s.markUsed(ctx, user.ID, kind)
	return user, false, nil
}

// LinkVerified hace el upsert de un binding verificado para (user, provider).
// Idempotente: un binding ya verificado queda igual, uno sin verificar sube a verificado.
func (s *AuthReconciler) LinkVerified(ctx context.Context, userID string, kind domain.ProviderKind, providerEmail, subject string) (domain.AuthBinding, error) {
	return s.linkVerified(ctx, userID, kind, providerEmail, subject)
}

func (s *AuthReconciler) linkVerified(ctx context.Context, userID string, kind domain.ProviderKind, providerEmail, subject string) (domain.AuthBinding, error) {
	binding := domain.AuthBinding{
		ID:             uuid.NewString(),
		UserID:         userID,
		Provider:       kind,
		ProviderUserID: subject,
		ProviderEmail:  normalizeEmail(providerEmail),
		IsVerified:     true,
		CreatedAt:      s.now(),
	}
	return s.bindings.Upsert(ctx, binding)
}

func (s *AuthReconciler) requireVerifiedBinding(ctx context.Context, userID string, kind domain.ProviderKind) error {
	binding, found, err := s.bindings.Get(ctx, userID, kind)
	if err != nil {
		return err
	}
	if !found || !binding.IsVerified {
		return &ProviderNotLinkedError{Provider: kind}
	}
	return nil
}

func (s *AuthReconciler) markUsed(ctx context.Context, userID string, kind domain.ProviderKind) {
	if err := s.bindings.MarkUsed(ctx, userID, kind, s.now()); err != nil && s.logger != nil {
		s.logger.Warn("mark binding used failed", zap.Error(err), zap.String("user_id", userID), zap.String("provider", string(kind)))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
