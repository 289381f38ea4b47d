package service

import (
	"math/rand"

	"mindflow/internal/domain"
)

// BreakSuggestion sugiere pausas segun patrones de atencion.
type BreakSuggestion struct {
	SuggestedBreakInterval int      `json:"suggested_break_interval"`
	BreakActivities        []string `json:"break_activities"`
	Message                string   `json:"message"`
}

// SuggestBreakTime devuelve el intervalo de pausa recomendado por nivel de energia.
func SuggestBreakTime(energyLevel string) BreakSuggestion {
	interval := 15
	switch energyLevel {
	case domain.EnergyHigh:
		interval = 25
	case domain.EnergyMedium:
		interval = 15
	case domain.EnergyLow:
		interval = 10
	}

	return BreakSuggestion{
		SuggestedBreakInterval: interval,
		BreakActivities: []string{
			"Deep breathing for 2 minutes",
			"Stretch your arms and neck",
			"Drink some water",
			"Look at something far away",
			"Quick walk around the room",
		},
		Message: "Your brain has been working hard. A small break helps it process better.",
	}
}

var celebrationMessages = map[string][]string{
	"note_captured": {
		"Beautiful work! You've captured that thought.",
		"Great job getting that out of your head!",
		"You're building your thought garden.",
	},
	"plan_created": {
		"Wonderful! You've made a plan. That's powerful.",
		"Look at you, turning thoughts into action!",
		"You're moving from overwhelm to clarity.",
	},
	"step_completed": {
		"Yes! You did it!",
		"One step closer. You're amazing.",
		"Progress! This is how change happens.",
	},
	"plan_completed": {
		"Incredible! You completed a whole plan!",
		"Look what you accomplished! Seriously amazing.",
		"You turned overwhelm into achievement. Celebrate this!",
	},
	"energy_check": {
		"Thank you for checking in with yourself.",
		"Self-awareness is a superpower. Good job.",
		"Taking time to understand your energy is wise.",
	},
}

// CelebrationMessage devuelve un mensaje de aliento para el evento dado.
func CelebrationMessage(event string) string {
	options, ok := celebrationMessages[event]
	if !ok || len(options) == 0 {
		return "Great work!"
	}
	return options[rand.Intn(len(options))]
}
