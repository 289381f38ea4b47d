package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mindflow/internal/domain"
	"mindflow/internal/repository"
)

var ErrNoteNotFound = errors.New("note not found")

// NoteService coordina captura y procesamiento de volcados de pensamientos.
type NoteService struct {
	logger  *zap.Logger
	notes   repository.NoteRepository
	plans   repository.PlanRepository
	gateway *AIGateway
}

func NewNoteService(logger *zap.Logger, notes repository.NoteRepository, plans repository.PlanRepository, gateway *AIGateway) *NoteService {
	return &NoteService{
		logger:  logger,
		notes:   notes,
		plans:   plans,
		gateway: gateway,
	}
}

func (s *NoteService) Capture(ctx context.Context, userID, content string) (domain.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Note{}, ErrNoteNotFound
	}
	now := time.Now().UTC()
	note := domain.Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

// Process corre el gateway sobre la nota y sobrescribe la anotacion completa.
// El embedding es best-effort y nunca bloquea el flujo de captura.
func (s *NoteService) Process(ctx context.Context, userID, noteID, energyLevel string) (domain.Note, error) {
	note, found, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return domain.Note{}, err
	}
	if !found || note.UserID != userID {
		return domain.Note{}, ErrNoteNotFound
	}

	result := s.gateway.ProcessOverwhelm(ctx, note.Content, ProcessContext{EnergyLevel: energyLevel})

	note.ValidationMessage = result.Validation
	note.GentleReframe = result.GentleReframe
	note.EnergyImpact = result.EnergyImpact
	note.ActionableItems = result.ActionableItems
	note.ProcessingItems = result.ProcessingItems
	note.SupportiveTags = result.SupportiveTags
	note.Category = titleCase(result.Category)
	note.NextSteps = result.NextSteps
	note.UpdatedAt = time.Now().UTC()

	if err := s.notes.UpdateAnnotation(ctx, note); err != nil {
		return domain.Note{}, err
	}

	if s.gateway.StoreNoteEmbedding(ctx, note.ID, note.UserID, note.Content, note.Category) {
		note.EmbeddingID = note.ID
		if err := s.notes.SetEmbeddingID(ctx, note.ID, note.EmbeddingID); err != nil {
			s.logger.Warn("set embedding id failed", zap.Error(err), zap.String("note_id", note.ID))
			note.EmbeddingID = ""
		}
	}

	return note, nil
}

// CreatePlan genera y persiste un plan a partir de notas seleccionadas.
func (s *NoteService) CreatePlan(ctx context.Context, userID string, noteIDs []string, energyLevel, attentionSpan string) (domain.Plan, error) {
	notes, err := s.notes.ListByIDs(ctx, userID, noteIDs)
	if err != nil {
		return domain.Plan{}, err
	}
	if len(notes) == 0 {
		return domain.Plan{}, ErrNoteNotFound
	}

	thoughts := make([]string, 0, len(notes))
	for _, n := range notes {
		thoughts = append(thoughts, n.Content)
	}

	result := s.gateway.CreateManageablePlan(ctx, thoughts, energyLevel, PlanPreferences{AttentionSpan: attentionSpan})

	plan := domain.Plan{
		ID:                uuid.NewString(),
		UserID:            userID,
		Title:             result.Title,
		Description:       result.Description,
		RecommendedEnergy: result.RecommendedEnergy,
		Steps:             result.Steps,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

func (s *NoteService) FindSimilar(ctx context.Context, userID, query string, n int) []domain.SimilarNote {
	return s.gateway.FindSimilarNotes(ctx, userID, query, n)
}

// titleCase normaliza la categoria reportada por el modelo ("mixed" -> "Mixed").
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
