package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"mindflow/internal/domain"
)

// NoteRepository persiste notas y sus anotaciones derivadas por IA.
type NoteRepository interface {
	Create(ctx context.Context, note domain.Note) error
	GetByID(ctx context.Context, id string) (domain.Note, bool, error)
	ListByIDs(ctx context.Context, userID string, ids []string) ([]domain.Note, error)
	UpdateAnnotation(ctx context.Context, note domain.Note) error
	SetEmbeddingID(ctx context.Context, noteID, embeddingID string) error
}

// NoteEmbeddingRepository guarda vectores y resuelve vecinos cercanos por usuario.
type NoteEmbeddingRepository interface {
	Upsert(ctx context.Context, emb domain.NoteEmbedding) error
	Search(ctx context.Context, userID string, query pgvector.Vector, k int) ([]domain.SimilarNote, error)
}

// PlanRepository persiste planes generados.
type PlanRepository interface {
	Create(ctx context.Context, plan domain.Plan) error
}

// PgNoteRepository implementa NoteRepository usando pgxpool.
type PgNoteRepository struct {
	pool *pgxpool.Pool
}

func NewPgNoteRepository(pool *pgxpool.Pool) *PgNoteRepository {
	return &PgNoteRepository{pool: pool}
}

func (r *PgNoteRepository) Create(ctx context.Context, note domain.Note) error {
	const query = `
		INSERT INTO notes (id, user_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		note.ID,
		note.UserID,
		note.Content,
		note.CreatedAt,
		note.UpdatedAt,
	)
	return err
}

func (r *PgNoteRepository) GetByID(ctx context.Context, id string) (domain.Note, bool, error) {
	const query = `
		SELECT id, user_id, content, validation_message, gentle_reframe, energy_impact,
		       actionable_items, processing_items, supportive_tags, category, next_steps,
		       embedding_id, created_at, updated_at
		FROM notes
		WHERE id = $1
	`
	n, err := scanNote(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Note{}, false, nil
	}
	if err != nil {
		return domain.Note{}, false, err
	}
	return n, true, nil
}

func (r *PgNoteRepository) ListByIDs(ctx context.Context, userID string, ids []string) ([]domain.Note, error) {
	const query = `
		SELECT id, user_id, content, validation_message, gentle_reframe, energy_impact,
		       actionable_items, processing_items, supportive_tags, category, next_steps,
		       embedding_id, created_at, updated_at
		FROM notes
		WHERE user_id = $1 AND id = ANY($2)
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, userID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// UpdateAnnotation sobrescribe la anotacion completa; nunca se mezcla con la pasada anterior.
func (r *PgNoteRepository) UpdateAnnotation(ctx context.Context, note domain.Note) error {
	const query = `
		UPDATE notes SET
			validation_message = $2,
			gentle_reframe = $3,
			energy_impact = $4,
			actionable_items = $5,
			processing_items = $6,
			supportive_tags = $7,
			category = $8,
			next_steps = $9,
			updated_at = $10
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		note.ID,
		note.ValidationMessage,
		note.GentleReframe,
		note.EnergyImpact,
		note.ActionableItems,
		note.ProcessingItems,
		note.SupportiveTags,
		note.Category,
		note.NextSteps,
		note.UpdatedAt,
	)
	return err
}

func (r *PgNoteRepository) SetEmbeddingID(ctx context.Context, noteID, embeddingID string) error {
	const query = `
		UPDATE notes SET embedding_id = $2 WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, noteID, embeddingID)
	return err
}

func scanNote(row rowScanner) (domain.Note, error) {
	var n domain.Note
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Content,
		&n.ValidationMessage,
		&n.GentleReframe,
		&n.EnergyImpact,
		&n.ActionableItems,
		&n.ProcessingItems,
		&n.SupportiveTags,
		&n.Category,
		&n.NextSteps,
		&n.EmbeddingID,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	return n, err
}

// PgNoteEmbeddingRepository implementa NoteEmbeddingRepository usando pgvector.
type PgNoteEmbeddingRepository struct {
	pool *pgxpool.Pool
}

func NewPgNoteEmbeddingRepository(pool *pgxpool.Pool) *PgNoteEmbeddingRepository {
	return &PgNoteEmbeddingRepository{pool: pool}
}

func (r *PgNoteEmbeddingRepository) Upsert(ctx context.Context, emb domain.NoteEmbedding) error {
	const query = `
		INSERT INTO note_embeddings (note_id, user_id, content, embedding, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (note_id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			category = EXCLUDED.category
	`
	_, err := r.pool.Exec(ctx, query,
		emb.NoteID,
		emb.UserID,
		emb.Content,
		emb.Embedding,
		emb.Category,
		emb.CreatedAt,
	)
	return err
}

func (r *PgNoteEmbeddingRepository) Search(ctx context.Context, userID string, query pgvector.Vector, k int) ([]domain.SimilarNote, error) {
	if k <= 0 {
		k = 5
	}
	const sql = `
		SELECT note_id, content, category, embedding <=> $2 AS distance
		FROM note_embeddings
		WHERE user_id = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, sql, userID, query, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SimilarNote
	for rows.Next() {
		var s domain.SimilarNote
		if err := rows.Scan(&s.NoteID, &s.Content, &s.Category, &s.Distance); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

// PgPlanRepository implementa PlanRepository; los pasos van como JSONB.
type PgPlanRepository struct {
	pool *pgxpool.Pool
}

func NewPgPlanRepository(pool *pgxpool.Pool) *PgPlanRepository {
	return &PgPlanRepository{pool: pool}
}

func (r *PgPlanRepository) Create(ctx context.Context, plan domain.Plan) error {
	stepsJSON, err := json.Marshal(plan.Steps)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO plans (id, user_id, title, description, recommended_energy, steps, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		plan.ID,
		plan.UserID,
		plan.Title,
		plan.Description,
		plan.RecommendedEnergy,
		stepsJSON,
		plan.CreatedAt,
	)
	return err
}
