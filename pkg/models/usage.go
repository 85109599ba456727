package models

// Usage records token consumption reported by a backend for one call.
// Backends that do not report usage leave the zero value.
type Usage struct {
	// PromptTokens is the number of input tokens billed for the request.
	PromptTokens int64 `json:"prompt_tokens"`
	// CompletionTokens is the number of output tokens in the response.
	CompletionTokens int64 `json:"completion_tokens"`
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int64 {
	return u.PromptTokens + u.CompletionTokens
}

// Add accumulates another usage payload into this one.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}
