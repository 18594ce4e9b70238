package models

// Citation links an assistant claim back to a specific document, and
// optionally the chunk the quote was taken from. Citations are
// turn-scoped: they exist only inside a single chat response.
type Citation struct {
	DocID     string  `json:"doc_id"`
	ChunkID   *string `json:"chunk_id,omitempty"`
	Quote     string  `json:"quote"`
	Relevance string  `json:"relevance"`
}

// ChatRequest is a single player message to the investigation assistant.
// The conversation id is caller-supplied and otherwise inert; a fresh one
// is generated when absent.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Language       string `json:"language,omitempty"`
}

// ChatResponse is the assistant's answer for one conversation turn.
type ChatResponse struct {
	Message          string     `json:"message"`
	Citations        []Citation `json:"citations"`
	ConversationID   string     `json:"conversation_id"`
	SuggestedActions []string   `json:"suggested_actions"`
	HintsRemaining   int        `json:"hints_remaining"`
}
