package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mindflow/internal/domain"
	"mindflow/internal/email"
	"mindflow/internal/oauth"
	"mindflow/internal/repository"
)

var (
	ErrAlreadyLinked       = errors.New("provider already linked")
	ErrLinkTokenInvalid    = errors.New("linking token invalid")
	ErrLinkTokenExpired    = errors.New("linking token expired")
	ErrLastAuthMethod      = errors.New("cannot unlink the last auth method")
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

const linkingTokenTTL = time.Hour

// Acciones posibles al iniciar una vinculacion.
const (
	LinkActionRedirect        = "redirect"
	LinkActionCollectPassword = "collect_password"
	LinkActionMagicLinkSent   = "magic_link_sent"
)

// LinkInstruction indica al cliente como continuar el flujo de vinculacion.
type LinkInstruction struct {
	Action      string `json:"action"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Token       string `json:"token,omitempty"`
}

type oauthState struct {
	LinkingToken string `json:"linking_token"`
}

// LinkingService emite tokens de vinculacion y completa los flujos por proveedor.
type LinkingService struct {
	logger     *zap.Logger
	users      repository.UserRepository
	bindings   repository.AuthBindingRepository
	tokens     repository.LinkingTokenRepository
	reconciler *AuthReconciler
	exchanger  oauth.Exchanger
	sender     email.Sender
	now        func() time.Time
}

func NewLinkingService(
	logger *zap.Logger,
	users repository.UserRepository,
	bindings repository.AuthBindingRepository,
	tokens repository.LinkingTokenRepository,
	reconciler *AuthReconciler,
	exchanger oauth.Exchanger,
	sender email.Sender,
) *LinkingService {
	return &LinkingService{
		logger:     logger,
		users:      users,
		bindings:   bindings,
		tokens:     tokens,
		reconciler: reconciler,
		exchanger:  exchanger,
		sender:     sender,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// InitiateLink emite un token de un solo uso y despacha segun el proveedor.
// Para magic_link la respuesta es siempre "enviado", falle o no el correo.
func (s *LinkingService) InitiateLink(ctx context.Context, user domain.User, kind domain.ProviderKind) (LinkInstruction, error) {
	if !kind.Valid() {
		return LinkInstruction{}, ErrUnsupportedProvider
	}

	binding, found, err := s.bindings.Get(ctx, user.ID, kind)
	if err != nil {
		return LinkInstruction{}, err
	}
	if found && binding.IsVerified {
		return LinkInstruction{}, ErrAlreadyLinked
	}

	token, err := s.mintToken(ctx, user.ID, kind)
	if err != nil {
		return LinkInstruction{}, err
	}

	switch kind {
	case domain.ProviderGoogle, domain.ProviderLinkedIn:
		stateBytes, err := json.Marshal(oauthState{LinkingToken: token})
		if err != nil {
			return LinkInstruction{}, err
		}
		redirectURL, err := s.exchanger.AuthCodeURL(kind, string(stateBytes))
		if err != nil {
			return LinkInstruction{}, err
		}
		return LinkInstruction{Action: LinkActionRedirect, RedirectURL: redirectURL}, nil

	case domain.ProviderEmail:
		return LinkInstruction{Action: LinkActionCollectPassword, Token: token}, nil

	case domain.ProviderMagicLink:
		if err := s.sender.SendLinkConfirmation(ctx, user.Email, kind.DisplayName()); err != nil && s.logger != nil {
			s.logger.Warn("link confirmation email failed", zap.Error(err), zap.String("user_id", user.ID))
		}
		return LinkInstruction{Action: LinkActionMagicLinkSent}, nil
	}

	return LinkInstruction{}, ErrUnsupportedProvider
}

// CompleteOAuthLink procesa el callback OAuth: valida el token embebido en el
// state, intercambia el code y vincula. El token se consume solo despues de un
// intercambio exitoso; si el intercambio falla el token sigue usable y el
// usuario puede reintentar mientras no expire.
func (s *LinkingService) CompleteOAuthLink(ctx context.Context, kind domain.ProviderKind, code, state string) (domain.AuthBinding, error) {
	var parsed oauthState
	if err := json.Unmarshal([]byte(state), &parsed); err != nil || parsed.LinkingToken == "" {
		return domain.AuthBinding{}, ErrLinkTokenInvalid
	}

	token, err := s.lookupToken(ctx, parsed.LinkingToken, kind)
	if err != nil {
		return domain.AuthBinding{}, err
	}

	info, err := s.exchanger.Exchange(ctx, kind, code)
	if err != nil {
		return domain.AuthBinding{}, err
	}

	binding, err := s.reconciler.LinkVerified(ctx, token.UserID, kind, info.Email, info.Subject)
	if err != nil {
		return domain.AuthBinding{}, err
	}

	if err := s.tokens.MarkUsed(ctx, token.ID); err != nil {
		return domain.AuthBinding{}, err
	}

	s.notifyLinked(ctx, token.UserID, kind)
	return binding, nil
}

// SetPasswordForLink completa la vinculacion del kind email fijando el password.
func (s *LinkingService) SetPasswordForLink(ctx context.Context, tokenValue, password string) error {
	token, err := s.lookupToken(ctx, tokenValue, domain.ProviderEmail)
	if err != nil {
		return err
	}
	if password == "" {
		return ErrInvalidCredentials
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, token.UserID, string(hashBytes)); err != nil {
		return err
	}

	user, found, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	if !found {
		return ErrLinkTokenInvalid
	}

	if _, err := s.reconciler.LinkVerified(ctx, token.UserID, domain.ProviderEmail, user.Email, ""); err != nil {
		return err
	}

	return s.tokens.MarkUsed(ctx, token.ID)
}

// Unlink borra el binding del proveedor. Una cuenta nunca queda sin metodos:
// con uno o menos bindings verificados la operacion se rechaza.
func (s *LinkingService) Unlink(ctx context.Context, userID string, kind domain.ProviderKind) error {
	if !kind.Valid() {
		return ErrUnsupportedProvider
	}
	count, err := s.bindings.CountVerified(ctx, userID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastAuthMethod
	}
	return s.bindings.Delete(ctx, userID, kind)
}

// ListLinked devuelve los bindings del usuario junto con la disponibilidad
// de cada proveedor segun configuracion.
func (s *LinkingService) ListLinked(ctx context.Context, userID string) ([]domain.AuthBinding, map[domain.ProviderKind]bool, error) {
	bindings, err := s.bindings.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	available := map[domain.ProviderKind]bool{
		domain.ProviderEmail:     true,
		domain.ProviderMagicLink: true,
		domain.ProviderGoogle:    s.exchanger.Configured(domain.ProviderGoogle),
		domain.ProviderLinkedIn:  s.exchanger.Configured(domain.ProviderLinkedIn),
	}
	return bindings, available, nil
}

func (s *LinkingService) mintToken(ctx context.Context, userID string, kind domain.ProviderKind) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	value := base64.RawURLEncoding.EncodeToString(raw)

	token := domain.LinkingToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Provider:  kind,
		Token:     value,
		ExpiresAt: s.now().Add(linkingTokenTTL),
		IsUsed:    false,
		CreatedAt: s.now(),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", err
	}
	return value, nil
}

// lookupToken valida sin consumir: un token expirado queda inerte pero no usado.
func (s *LinkingService) lookupToken(ctx context.Context, value string, kind domain.ProviderKind) (domain.LinkingToken, error) {
	token, found, err := s.tokens.GetUnused(ctx, value)
	if err != nil {
		return domain.LinkingToken{}, err
	}
	if !found || token.Provider != kind {
		return domain.LinkingToken{}, ErrLinkTokenInvalid
	}
	if token.Expired(s.now()) {
		return domain.LinkingToken{}, ErrLinkTokenExpired
	}
	return token, nil
}

func (s *LinkingService) notifyLinked(ctx context.Context, userID string, kind domain.ProviderKind) {
	user, found, err := s.users.GetByID(ctx, userID)
	if err != nil || !found {
		return
	}
	if err := s.sender.SendLinkConfirmation(ctx, user.Email, kind.DisplayName()); err != nil && s.logger != nil {
		s.logger.Warn("link confirmation email failed", zap.Error(err), zap.String("user_id", userID))
	}
}
