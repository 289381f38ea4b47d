package service

import (
	"fmt"
	"strings"
)

func buildOverwhelmPrompt(content, energyLevel string) string {
	contextLine := ""
	if energyLevel != "" {
		contextLine = fmt.Sprintf("Context: Energy level is %s\n", energyLevel)
	}

	return fmt.Sprintf(`You are a gentle, understanding AI assistant helping someone who feels overwhelmed.
They've shared these thoughts: "%s"

%s
Please analyze with empathy and provide:

1. **Validation** - Acknowledge their feelings warmly (2-3 sentences)
2. **Category** - What type of thoughts are these? (Choose ONE: thoughts, feelings, tasks, worries, ideas, mixed)
3. **Energy Impact** - How much mental energy is this taking? (low, medium, high)
4. **Actionable Items** - Specific things they could do (list 0-5 items)
5. **Processing Items** - Things to think about or feel (list 0-5 items)
6. **Supportive Tags** - Helpful organizing tags (3-7 tags)
7. **Gentle Reframe** - A kinder way to see these thoughts (2-3 sentences)
8. **Next Steps** - ONE suggested next action

Remember: This person may have ADHD, autism, anxiety, or other neurodivergent traits.
Be supportive, non-judgmental, and practical.

Respond ONLY with valid JSON in this exact format (no markdown, no code blocks):
{
    "validation": "gentle acknowledgment of their experience",
    "category": "thoughts",
    "energy_impact": "medium",
    "actionable_items": ["specific action 1", "specific action 2"],
    "processing_items": ["feeling to process", "thought to explore"],
    "supportive_tags": ["tag1", "tag2", "tag3"],
    "gentle_reframe": "a kinder perspective",
    "next_steps": "one clear next action"
}`, content, contextLine)
}

func buildPlanPrompt(thoughts []string, energyLevel, attentionSpan string) string {
	thoughtsText := strings.Join(thoughts, "\n- ")
	preferenceLine := ""
	if attentionSpan != "" {
		preferenceLine = fmt.Sprintf("Preferences: %s attention span\n", attentionSpan)
	}

	return fmt.Sprintf(`Help create a manageable action plan for someone who feels overwhelmed.

Their energy level is: %s
Their thoughts:
- %s

%s
Create a plan that:
- Breaks things into tiny, manageable steps
- Considers executive function challenges
- Includes rest and rewards
- Has flexibility built in
- Feels achievable, not overwhelming

Provide:
1. An **encouraging title** (4-8 words)
2. A brief **description** (1-2 sentences)
3. **Maximum 5 main steps**, each with:
   - Clear title
   - Simple description
   - 2-4 micro-tasks (very specific, tiny actions)
   - Energy cost (low, medium, high)
   - Time estimate in minutes
4. **Recommended energy level** to work on this (low, medium, high)

Respond ONLY with valid JSON (no markdown, no code blocks):
{
    "title": "Encouraging Plan Title",
    "description": "Brief supportive description",
    "recommended_energy": "medium",
    "steps": [
        {
            "title": "Step title",
            "description": "What this step involves",
            "micro_tasks": ["tiny task 1", "tiny task 2"],
            "energy_cost": "low",
            "estimated_minutes": 10
        }
    ]
}`, energyLevel, thoughtsText, preferenceLine)
}
