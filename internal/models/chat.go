package models

// DefaultUserID is used when a chat request carries no user id.
const DefaultUserID = "anonymous"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

// ChatResponse is the answer to a single chat message. It is not persisted.
type ChatResponse struct {
	Response        string  `json:"response"`
	UserID          string  `json:"user_id"`
	ConfidenceScore float64 `json:"confidence_score"`
	SuggestTicket   bool    `json:"suggest_ticket"`
}
