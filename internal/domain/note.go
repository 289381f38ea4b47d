package domain

import (
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

// Niveles de energia usados en notas y planes.
const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"
)

// Note es un volcado de pensamientos capturado por el usuario.
// Los campos de anotacion se sobrescriben completos en cada pasada de procesamiento.
type Note struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Content           string    `json:"content"`
	ValidationMessage string    `json:"validation_message,omitempty"`
	GentleReframe     string    `json:"gentle_reframe,omitempty"`
	EnergyImpact      string    `json:"energy_impact,omitempty"`
	ActionableItems   []string  `json:"actionable_items,omitempty"`
	ProcessingItems   []string  `json:"processing_items,omitempty"`
	SupportiveTags    []string  `json:"supportive_tags,omitempty"`
	Category          string    `json:"category,omitempty"`
	NextSteps         string    `json:"next_steps,omitempty"`
	EmbeddingID       string    `json:"embedding_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NoteEmbedding guarda el vector asociado a una nota para busqueda semantica.
type NoteEmbedding struct {
	NoteID    string          `json:"note_id"`
	UserID    string          `json:"user_id"`
	Content   string          `json:"content"`
	Embedding pgvector.Vector `json:"embedding"`
	Category  string          `json:"category,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SimilarNote es un resultado de busqueda por cercania vectorial.
type SimilarNote struct {
	NoteID   string  `json:"note_id"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
	Category string  `json:"category,omitempty"`
}

// OverwhelmResult es la salida estructurada esperada del modelo al procesar un volcado.
// Garantia: las ocho claves siempre vienen pobladas, del modelo o del fallback.
type OverwhelmResult struct {
	Validation      string   `json:"validation"`
	Category        string   `json:"category"`
	EnergyImpact    string   `json:"energy_impact"`
	ActionableItems []string `json:"actionable_items"`
	ProcessingItems []string `json:"processing_items"`
	SupportiveTags  []string `json:"supportive_tags"`
	GentleReframe   string   `json:"gentle_reframe"`
	NextSteps       string   `json:"next_steps"`
}

// PlanResult es la salida estructurada esperada del modelo al armar un plan.
type PlanResult struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	RecommendedEnergy string     `json:"recommended_energy"`
	Steps             []PlanStep `json:"steps"`
}

type PlanStep struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	MicroTasks       []string `json:"micro_tasks"`
	EnergyCost       string   `json:"energy_cost"`
	EstimatedMinutes int      `json:"estimated_minutes"`
}

// Plan persiste un plan creado a partir de pensamientos seleccionados.
// Invariante: recien creado via el gateway nunca queda con cero pasos.
type Plan struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	RecommendedEnergy string     `json:"recommended_energy"`
	Steps             []PlanStep `json:"steps"`
	CreatedAt         time.Time  `json:"created_at"`
}
