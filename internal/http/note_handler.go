package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mindflow/internal/domain"
	"mindflow/internal/service"
)

// NoteHandler mantiene dependencias para endpoints de notas y planes.
type NoteHandler struct {
	logger   *zap.Logger
	noteServ *service.NoteService
}

func NewNoteHandler(logger *zap.Logger, noteServ *service.NoteService) *NoteHandler {
	return &NoteHandler{
		logger:   logger,
		noteServ: noteServ,
	}
}

// CreateNote maneja POST /notes.
func (h *NoteHandler) CreateNote(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create note request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	note, err := h.noteServ.Capture(c.Request.Context(), claims.UserID, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrNoteNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		h.logger.Error("create note failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create note"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"note":    note,
		"message": service.CelebrationMessage("note_captured"),
	})
}

// ProcessNote maneja POST /notes/:id/process.
func (h *NoteHandler) ProcessNote(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		EnergyLevel string `json:"energy_level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid process note request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	note, err := h.noteServ.Process(c.Request.Context(), claims.UserID, c.Param("id"), req.EnergyLevel)
	if err != nil {
		if errors.Is(err, service.ErrNoteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
			return
		}
		h.logger.Error("process note failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process note"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

// SimilarNotes maneja GET /notes/similar.
func (h *NoteHandler) SimilarNotes(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}
	n, err := strconv.Atoi(c.DefaultQuery("n", "5"))
	if err != nil || n <= 0 {
		n = 5
	}

	results := h.noteServ.FindSimilar(c.Request.Context(), claims.UserID, query, n)
	if results == nil {
		results = []domain.SimilarNote{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// CreatePlan maneja POST /plans.
func (h *NoteHandler) CreatePlan(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		NoteIDs       []string `json:"note_ids" binding:"required"`
		EnergyLevel   string   `json:"energy_level"`
		AttentionSpan string   `json:"attention_span"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create plan request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	plan, err := h.noteServ.CreatePlan(c.Request.Context(), claims.UserID, req.NoteIDs, req.EnergyLevel, req.AttentionSpan)
	if err != nil {
		if errors.Is(err, service.ErrNoteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notes not found"})
			return
		}
		h.logger.Error("create plan failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create plan"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"plan":    plan,
		"message": service.CelebrationMessage("plan_created"),
	})
}

// BreakSuggestion maneja GET /support/break.
func (h *NoteHandler) BreakSuggestion(c *gin.Context) {
	suggestion := service.SuggestBreakTime(c.DefaultQuery("energy_level", "medium"))
	c.JSON(http.StatusOK, suggestion)
}

// Celebration maneja GET /support/celebrate.
func (h *NoteHandler) Celebration(c *gin.Context) {
	event := c.Query("event")
	if event == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": service.CelebrationMessage(event)})
}
