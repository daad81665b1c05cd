package llm

// ModelCost is per-million-token pricing in USD.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost returns the USD cost of a call with the given token counts.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model ID, or nil if unknown.
func LookupCost(modelID string) *ModelCost {
	if c, ok := modelCosts[modelID]; ok {
		return &c
	}
	return nil
}

// modelCosts covers the models reachable through the friendly names above
// plus their common dated aliases. Prices as listed on models.dev.
var modelCosts = map[string]ModelCost{
	"gemini-2.0-flash":      {0.1, 0.4},
	"gemini-2.0-flash-001":  {0.1, 0.4},
	"gemini-2.0-flash-lite": {0.075, 0.3},
	"gemini-2.5-flash":      {0.3, 2.5},
	"gemini-2.5-flash-lite": {0.1, 0.4},
	"gemini-2.5-pro":        {1.25, 10},

	"gpt-4o":            {2.5, 10},
	"gpt-4o-2024-08-06": {2.5, 10},
	"gpt-4o-mini":       {0.15, 0.6},
	"gpt-4.1-mini":      {0.4, 1.6},
	"gpt-4.1-nano":      {0.1, 0.4},

	"claude-haiku-4-5-20251001": {1, 5},
	"claude-sonnet-4-20250514":  {3, 15},

	"google/gemini-2.0-flash-001": {0.1, 0.4},
	"openai/gpt-4o-mini":          {0.15, 0.6},
}
