package llm

import "log/slog"

// PriceRow is the USD-per-million-token rate for a model, grounded on
// original_source/llm/pricing.py's static table.
type PriceRow struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var pricingTable = map[string]PriceRow{
	"gpt-4o":          {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":     {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"claude-sonnet":   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-haiku":    {InputPerMillion: 0.80, OutputPerMillion: 4.00},
}

// Cost computes the USD cost of a call for model, given token counts. An
// unrecognized model logs a warning and reports zero cost rather than
// erroring, since pricing is informational, not load-bearing.
func Cost(model string, inputTokens, outputTokens int) float64 {
	row, ok := pricingTable[model]
	if !ok {
		slog.Warn("llm: no pricing entry for model, reporting zero cost", "model", model)
		return 0
	}
	return float64(inputTokens)/1_000_000*row.InputPerMillion + float64(outputTokens)/1_000_000*row.OutputPerMillion
}
