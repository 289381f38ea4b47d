package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"mindflow/internal/domain"
	"mindflow/internal/llm"
	"mindflow/internal/repository"
)

// Parametros de muestreo fijos para las llamadas generativas.
var aiSampling = llm.GenerateOptions{Temperature: 0.7, TopP: 0.9}

// ProcessContext acompana un volcado con contexto opcional del usuario.
type ProcessContext struct {
	EnergyLevel string
}

// PlanPreferences son preferencias opcionales al armar un plan.
type PlanPreferences struct {
	AttentionSpan string
}

// AIGateway envuelve al modelo generativo y al de embeddings.
// Ninguna falla externa cruza hacia el caller: las respuestas degradan a un
// fallback deterministico y la busqueda vectorial es best-effort.
type AIGateway struct {
	logger     *zap.Logger
	client     llm.Client
	embeddings repository.NoteEmbeddingRepository
}

func NewAIGateway(logger *zap.Logger, client llm.Client, embeddings repository.NoteEmbeddingRepository) *AIGateway {
	return &AIGateway{
		logger:     logger,
		client:     client,
		embeddings: embeddings,
	}
}

// ProcessOverwhelm analiza un volcado de pensamientos. El resultado trae
// siempre las ocho claves, derivadas del modelo o del fallback.
func (g *AIGateway) ProcessOverwhelm(ctx context.Context, content string, pctx ProcessContext) domain.OverwhelmResult {
	prompt := buildOverwhelmPrompt(content, pctx.EnergyLevel)

	raw, err := g.client.Generate(ctx, prompt, aiSampling)
	if err != nil {
		g.logger.Error("process overwhelm generation failed", zap.Error(err))
		return fallbackOverwhelm()
	}

	var result domain.OverwhelmResult
	if err := g.parseModelJSON(raw, &result); err != nil {
		return fallbackOverwhelm()
	}
	if result.ActionableItems == nil {
		result.ActionableItems = []string{}
	}
	if result.ProcessingItems == nil {
		result.ProcessingItems = []string{}
	}
	if result.SupportiveTags == nil {
		result.SupportiveTags = []string{}
	}
	return result
}

// CreateManageablePlan arma un plan por pasos a partir de pensamientos.
// El fallback tiene exactamente un paso, asi el flujo de creacion de planes
// siempre tiene al menos un paso que persistir.
func (g *AIGateway) CreateManageablePlan(ctx context.Context, thoughts []string, energyLevel string, prefs PlanPreferences) domain.PlanResult {
	prompt := buildPlanPrompt(thoughts, energyLevel, prefs.AttentionSpan)

	raw, err := g.client.Generate(ctx, prompt, aiSampling)
	if err != nil {
		g.logger.Error("create plan generation failed", zap.Error(err))
		return fallbackPlan()
	}

	var result domain.PlanResult
	if err := g.parseModelJSON(raw, &result); err != nil {
		return fallbackPlan()
	}
	if len(result.Steps) == 0 {
		return fallbackPlan()
	}
	return result
}

// GenerateEmbedding devuelve el vector del texto, o vacio ante cualquier
// falla: vacio significa "no indexar".
func (g *AIGateway) GenerateEmbedding(ctx context.Context, text string) []float32 {
	embedding, err := g.client.Embed(ctx, text)
	if err != nil {
		g.logger.Warn("generate embedding failed", zap.Error(err))
		return nil
	}
	return embedding
}

// StoreNoteEmbedding indexa la nota para busqueda semantica. Best-effort:
// devuelve si quedo indexada.
func (g *AIGateway) StoreNoteEmbedding(ctx context.Context, noteID, userID, content, category string) bool {
	embedding := g.GenerateEmbedding(ctx, content)
	if len(embedding) == 0 {
		return false
	}
	emb := domain.NoteEmbedding{
		NoteID:    noteID,
		UserID:    userID,
		Content:   content,
		Embedding: pgvector.NewVector(embedding),
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.embeddings.Upsert(ctx, emb); err != nil {
		g.logger.Warn("store note embedding failed", zap.Error(err), zap.String("note_id", noteID))
		return false
	}
	return true
}

// FindSimilarNotes busca notas semanticamente cercanas del mismo usuario.
// Cualquier falla devuelve lista vacia.
func (g *AIGateway) FindSimilarNotes(ctx context.Context, userID, query string, n int) []domain.SimilarNote {
	embedding := g.GenerateEmbedding(ctx, query)
	if len(embedding) == 0 {
		return nil
	}
	results, err := g.embeddings.Search(ctx, userID, pgvector.NewVector(embedding), n)
	if err != nil {
		g.logger.Warn("find similar notes failed", zap.Error(err), zap.String("user_id", userID))
		return nil
	}
	return results
}

// parseModelJSON aplica la politica de parseo: limpiar fences y parsear como
// JSON estricto. Un fallo se loguea con el texto ofensivo y dispara fallback.
func (g *AIGateway) parseModelJSON(raw string, out any) error {
	cleaned := cleanModelJSON(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		g.logger.Error("model response parse failed", zap.Error(err), zap.String("response", raw))
		return fmt.Errorf("parse model response: %w", err)
	}
	return nil
}

// fallbackOverwhelm es la respuesta fija cuando el modelo no esta disponible
// o devuelve algo no parseable.
func fallbackOverwhelm() domain.OverwhelmResult {
	return domain.OverwhelmResult{
		Validation:      "I hear you. What you're experiencing is valid, and it's okay to feel overwhelmed.",
		Category:        "mixed",
		EnergyImpact:    domain.EnergyMedium,
		ActionableItems: []string{},
		ProcessingItems: []string{"Take a moment to breathe", "It's okay to feel this way"},
		SupportiveTags:  []string{"self-care", "processing", "valid-feelings"},
		GentleReframe:   "Sometimes our minds need to empty out. This is part of the process.",
		NextSteps:       "Take a deep breath and know you don't have to figure it all out right now",
	}
}

func fallbackPlan() domain.PlanResult {
	return domain.PlanResult{
		Title:             "Gentle Next Steps",
		Description:       "Let's take this one small step at a time",
		RecommendedEnergy: domain.EnergyLow,
		Steps: []domain.PlanStep{
			{
				Title:            "Take a breath",
				Description:      "Center yourself for a moment",
				MicroTasks:       []string{"Close your eyes", "Take 3 deep breaths", "Notice how you feel"},
				EnergyCost:       domain.EnergyLow,
				EstimatedMinutes: 2,
			},
		},
	}
}
