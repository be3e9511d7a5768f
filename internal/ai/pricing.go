package ai

// ModelRate prices a model in USD per million tokens.
type ModelRate struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// rateTable holds the fixed per-model pricing used for cost reporting.
// Unknown models fall back to the default rate.
var rateTable = map[string]ModelRate{
	"gemini-2.0-flash":      {InputPerMillion: 0.10, OutputPerMillion: 0.40},
	"gemini-2.0-flash-lite": {InputPerMillion: 0.075, OutputPerMillion: 0.30},
	"gemini-1.5-pro":        {InputPerMillion: 1.25, OutputPerMillion: 5.00},
}

var defaultRate = ModelRate{InputPerMillion: 0.10, OutputPerMillion: 0.40}

// CostFor computes the USD cost of a call from its token counts.
func CostFor(model string, inputTokens, outputTokens int) float64 {
	rate, ok := rateTable[model]
	if !ok {
		rate = defaultRate
	}
	return float64(inputTokens)/1e6*rate.InputPerMillion +
		float64(outputTokens)/1e6*rate.OutputPerMillion
}
