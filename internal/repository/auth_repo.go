package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mindflow/internal/domain"
)

// AuthBindingRepository persiste los vinculos usuario-proveedor.
// Las restricciones unique sobre (user_id, provider) y (provider, provider_user_id)
// son el respaldo de concurrencia contra double-linking.
type AuthBindingRepository interface {
	Upsert(ctx context.Context, binding domain.AuthBinding) (domain.AuthBinding, error)
	Get(ctx context.Context, userID string, provider domain.ProviderKind) (domain.AuthBinding, bool, error)
	ListByUser(ctx context.Context, userID string) ([]domain.AuthBinding, error)
	CountVerified(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID string, provider domain.ProviderKind) error
	MarkUsed(ctx context.Context, userID string, provider domain.ProviderKind, at time.Time) error
}

// LinkingTokenRepository persiste tokens de vinculacion de un solo uso.
type LinkingTokenRepository interface {
	Create(ctx context.Context, token domain.LinkingToken) error
	GetUnused(ctx context.Context, token string) (domain.LinkingToken, bool, error)
	MarkUsed(ctx context.Context, id string) error
}

// PgAuthBindingRepository implementa AuthBindingRepository usando pgxpool.
type PgAuthBindingRepository struct {
	pool *pgxpool.Pool
}

func NewPgAuthBindingRepository(pool *pgxpool.Pool) *PgAuthBindingRepository {
	return &PgAuthBindingRepository{pool: pool}
}

// Upsert crea el binding o, si ya existe para (user, provider), lo reverifica.
// is_verified nunca baja de true a false por esta via. Un subject vacio se
// guarda como NULL para no colisionar en el unique (provider, provider_user_id).
func (r *PgAuthBindingRepository) Upsert(ctx context.Context, binding domain.AuthBinding) (domain.AuthBinding, error) {
	const query = `
		INSERT INTO auth_providers (id, user_id, provider, provider_user_id, provider_email, is_verified, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			is_verified = auth_providers.is_verified OR EXCLUDED.is_verified,
			provider_email = EXCLUDED.provider_email,
			provider_user_id = COALESCE(NULLIF(EXCLUDED.provider_user_id, ''), auth_providers.provider_user_id)
		RETURNING id, user_id, provider, COALESCE(provider_user_id, ''), provider_email, is_verified, created_at, last_used
	`
	return r.scanBindingRow(r.pool.QueryRow(ctx, query,
		binding.ID,
		binding.UserID,
		string(binding.Provider),
		binding.ProviderUserID,
		binding.ProviderEmail,
		binding.IsVerified,
		binding.CreatedAt,
	))
}

func (r *PgAuthBindingRepository) Get(ctx context.Context, userID string, provider domain.ProviderKind) (domain.AuthBinding, bool, error) {
	const query = `
		SELECT id, user_id, provider, COALESCE(provider_user_id, ''), provider_email, is_verified, created_at, last_used
		FROM auth_providers
		WHERE user_id = $1 AND provider = $2
	`
	b, err := r.scanBindingRow(r.pool.QueryRow(ctx, query, userID, string(provider)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AuthBinding{}, false, nil
	}
	if err != nil {
		return domain.AuthBinding{}, false, err
	}
	return b, true, nil
}

func (r *PgAuthBindingRepository) ListByUser(ctx context.Context, userID string) ([]domain.AuthBinding, error) {
	const query = `
		SELECT id, user_id, provider, COALESCE(provider_user_id, ''), provider_email, is_verified, created_at, last_used
		FROM auth_providers
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []domain.AuthBinding
	for rows.Next() {
		b, err := r.scanBindingRow(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

func (r *PgAuthBindingRepository) CountVerified(ctx context.Context, userID string) (int, error) {
	const query = `
		SELECT COUNT(*) FROM auth_providers WHERE user_id = $1 AND is_verified = TRUE
	`
	var n int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&n)
	return n, err
}

func (r *PgAuthBindingRepository) Delete(ctx context.Context, userID string, provider domain.ProviderKind) error {
	const query = `
		DELETE FROM auth_providers WHERE user_id = $1 AND provider = $2
	`
	_, err := r.pool.Exec(ctx, query, userID, string(provider))
	return err
}

func (r *PgAuthBindingRepository) MarkUsed(ctx context.Context, userID string, provider domain.ProviderKind, at time.Time) error {
	const query = `
		UPDATE auth_providers SET last_used = $3 WHERE user_id = $1 AND provider = $2
	`
	_, err := r.pool.Exec(ctx, query, userID, string(provider), at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PgAuthBindingRepository) scanBindingRow(row rowScanner) (domain.AuthBinding, error) {
	var b domain.AuthBinding
	var provider string
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&provider,
		&b.ProviderUserID,
		&b.ProviderEmail,
		&b.IsVerified,
		&b.CreatedAt,
		&b.LastUsed,
	)
	if err != nil {
		return domain.AuthBinding{}, err
	}
	b.Provider = domain.ProviderKind(provider)
	return b, nil
}

// PgLinkingTokenRepository implementa LinkingTokenRepository usando pgxpool.
type PgLinkingTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPgLinkingTokenRepository(pool *pgxpool.Pool) *PgLinkingTokenRepository {
	return &PgLinkingTokenRepository{pool: pool}
}

func (r *PgLinkingTokenRepository) Create(ctx context.Context, token domain.LinkingToken) error {
	const query = `
		INSERT INTO linking_tokens (id, user_id, provider, token, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.UserID,
		string(token.Provider),
		token.Token,
		token.ExpiresAt,
		token.IsUsed,
		token.CreatedAt,
	)
	return err
}

func (r *PgLinkingTokenRepository) GetUnused(ctx context.Context, token string) (domain.LinkingToken, bool, error) {
	const query = `
		SELECT id, user_id, provider, token, expires_at, is_used, created_at
		FROM linking_tokens
		WHERE token = $1 AND is_used = FALSE
	`
	var t domain.LinkingToken
	var provider string
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&t.ID,
		&t.UserID,
		&provider,
		&t.Token,
		&t.ExpiresAt,
		&t.IsUsed,
		&t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LinkingToken{}, false, nil
	}
	if err != nil {
		return domain.LinkingToken{}, false, err
	}
	t.Provider = domain.ProviderKind(provider)
	return t, true, nil
}

// MarkUsed consume el token; is_used es monotonico y nunca vuelve a false.
func (r *PgLinkingTokenRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
		UPDATE linking_tokens SET is_used = TRUE WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
