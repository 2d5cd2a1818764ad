package models

// TokenUsage is the accounting of one generation call.
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd,omitempty"`
	Model        string  `json:"model,omitempty"`
	Provider     string  `json:"provider,omitempty"`
	DurationMs   int64   `json:"duration_ms,omitempty"`
}

// NewTokenUsage fills TotalTokens from the two counts.
func NewTokenUsage(input, output int) TokenUsage {
	return TokenUsage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}
}
