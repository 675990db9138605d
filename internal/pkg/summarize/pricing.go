package summarize

import openai "github.com/sashabaranov/go-openai"

// modelPricing holds USD cost per 1K tokens. Best-effort estimates for
// accounting display, not billing truth.
type modelPricing struct {
	PromptPer1K     float64
	CompletionPer1K float64
}

var pricingTable = map[string]modelPricing{
	openai.GPT4oMini:     {PromptPer1K: 0.00015, CompletionPer1K: 0.0006},
	openai.GPT4o:         {PromptPer1K: 0.0025, CompletionPer1K: 0.01},
	openai.GPT3Dot5Turbo: {PromptPer1K: 0.0005, CompletionPer1K: 0.0015},
	openai.GPT4Turbo:     {PromptPer1K: 0.01, CompletionPer1K: 0.03},
}

// estimateCost computes a cost estimate from token usage against the
// static pricing table. Unknown models return nil: better no number than a
// wrong one.
func estimateCost(model string, promptTokens, completionTokens int) *float64 {
	p, ok := pricingTable[model]
	if !ok {
		return nil
	}
	cost := float64(promptTokens)/1000*p.PromptPer1K + float64(completionTokens)/1000*p.CompletionPer1K
	return &cost
}

// approxTokens is the character-based fallback when the API response
// carries no usage block.
func approxTokens(text string) int {
	return len(text) / 4
}
