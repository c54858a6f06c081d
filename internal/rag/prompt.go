package rag

import "strings"

const (
	// ContextSeparator joins retrieved chunk texts in the prompt.
	ContextSeparator = "\n---\n"
	// NoContextPlaceholder stands in for the context block when nothing was retrieved.
	NoContextPlaceholder = "No specific context available."
	// EscalationNotice is appended to low-confidence answers.
	EscalationNotice = "\n\n💡 **Need more help?** Contact our customer service team for personalized assistance."
)

const systemPromptTemplate = `You are a financial assistant. Provide concise, helpful answers using the context below.
Keep responses under 150 words for mobile users.

CONTEXT:
{context}`

// BuildContext joins chunk texts with ContextSeparator, or returns the
// placeholder when texts is empty.
func BuildContext(texts []string) string {
	if len(texts) == 0 {
		return NoContextPlaceholder
	}
	return strings.Join(texts, ContextSeparator)
}

// SystemPrompt renders the system instruction around a context block.
func SystemPrompt(context string) string {
	return strings.Replace(systemPromptTemplate, "{context}", context, 1)
}

// Confidence scores an answer by how many chunks backed it: 0.2 with none,
// otherwise 0.5 plus half the share of a three-chunk context, capped at 1.
func Confidence(retrieved int) float64 {
	if retrieved <= 0 {
		return 0.2
	}
	return min(1.0, 0.5+(float64(retrieved)/3.0)*0.5)
}

// SuggestTicket reports whether an answer is weak enough to point the user at
// customer service.
func SuggestTicket(confidence float64) bool {
	return confidence < 0.5
}
