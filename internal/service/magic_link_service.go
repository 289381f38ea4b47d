package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mindflow/internal/domain"
	"mindflow/internal/email"
)

var ErrMagicLinkInvalid = errors.New("magic link invalid")

const magicLinkTTL = 15 * time.Minute

// MagicLinkStore guarda tokens de magic link hasheados, de un solo uso.
type MagicLinkStore interface {
	Save(ctx context.Context, tokenHash, email string, ttl time.Duration) error
	Consume(ctx context.Context, tokenHash string) (string, bool, error)
}

// MagicLinkService implementa el kind passwordless de punta a punta.
// La respuesta de Request es indistinguible exista o no la cuenta: resistencia
// a enumeracion publica.
type MagicLinkService struct {
	logger     *zap.Logger
	reconciler *AuthReconciler
	store      MagicLinkStore
	sender     email.Sender
	limiter    RateLimiter
	baseURL    string
}

func NewMagicLinkService(
	logger *zap.Logger,
	reconciler *AuthReconciler,
	store MagicLinkStore,
	sender email.Sender,
	limiter RateLimiter,
	baseURL string,
) *MagicLinkService {
	if store == nil {
		store = NewMemoryMagicLinkStore()
	}
	return &MagicLinkService{
		logger:     logger,
		reconciler: reconciler,
		store:      store,
		sender:     sender,
		limiter:    limiter,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Request dispara el envio del magic link. Devuelve siempre nil: rate limit,
// fallas de correo o de storage se registran pero no cambian la respuesta.
func (s *MagicLinkService) Request(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return nil
	}

	if s.limiter != nil && !s.limiter.Allow(emailAddr) {
		s.warn("magic link rate limited", nil, emailAddr)
		return nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		s.warn("magic link token generation failed", err, emailAddr)
		return nil
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	expiresAt := time.Now().UTC().Add(magicLinkTTL)

	if err := s.store.Save(ctx, hashMagicLinkToken(token), emailAddr, magicLinkTTL); err != nil {
		s.warn("magic link store failed", err, emailAddr)
		return nil
	}

	linkURL := fmt.Sprintf("%s/auth/magic/verify?token=%s", s.baseURL, token)
	if err := s.sender.SendMagicLink(ctx, emailAddr, linkURL, expiresAt); err != nil {
		s.warn("magic link email failed", err, emailAddr)
		return nil
	}

	return nil
}

// Consume valida el token y resuelve el sign-in via el reconciler.
func (s *MagicLinkService) Consume(ctx context.Context, token string) (domain.User, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, false, ErrMagicLinkInvalid
	}

	emailAddr, found, err := s.store.Consume(ctx, hashMagicLinkToken(token))
	if err != nil {
		return domain.User{}, false, err
	}
	if !found {
		return domain.User{}, false, ErrMagicLinkInvalid
	}

	return s.reconciler.SignInAttested(ctx, domain.ProviderMagicLink, emailAddr, "", "")
}

func (s *MagicLinkService) warn(msg string, err error, emailAddr string) {
	if s.logger == nil {
		return
	}
	fields := []zap.Field{zap.String("email", emailAddr)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Warn(msg, fields...)
}

func hashMagicLinkToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type memoryMagicLinkStore struct {
	mu    sync.Mutex
	items map[string]memoryMagicLink
}

type memoryMagicLink struct {
	email     string
	expiresAt time.Time
}

func NewMemoryMagicLinkStore() MagicLinkStore {
	return &memoryMagicLinkStore{items: make(map[string]memoryMagicLink)}
}

func (s *memoryMagicLinkStore) Save(_ context.Context, tokenHash, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[tokenHash] = memoryMagicLink{email: email, expiresAt: time.Now().UTC().Add(ttl)}
	return nil
}

func (s *memoryMagicLinkStore) Consume(_ context.Context, tokenHash string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[tokenHash]
	if !ok {
		return "", false, nil
	}
	delete(s.items, tokenHash)
	if time.Now().UTC().After(item.expiresAt) {
		return "", false, nil
	}
	return item.email, true, nil
}

type redisMagicLinkStore struct {
	client *redis.Client
	prefix string
}

func NewRedisMagicLinkStore(client *redis.Client) MagicLinkStore {
	if client == nil {
		return nil
	}
	return &redisMagicLinkStore{client: client, prefix: "auth:magic:"}
}

func (s *redisMagicLinkStore) Save(ctx context.Context, tokenHash, email string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+tokenHash, email, ttl).Err()
}

func (s *redisMagicLinkStore) Consume(ctx context.Context, tokenHash string) (string, bool, error) {
	val, err := s.client.GetDel(ctx, s.prefix+tokenHash).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
