package usage

// Operation labels the kind of model call being accounted.
const (
	OperationGraph = "graph" // curriculum generation
	OperationChat  = "chat"  // tutoring turn exchange
)

// Data is the root structure stored in persistence.
type Data struct {
	Version   string          `json:"version"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// AggregatedStats holds counters broken down by dimension.
type AggregatedStats struct {
	Total       TokenCounts            `json:"total"`
	ByModel     map[string]TokenCounts `json:"by_model"`
	ByOperation map[string]TokenCounts `json:"by_operation"`
}

// TokenCounts holds prompt/output sums plus a call counter.
type TokenCounts struct {
	Prompt int64 `json:"prompt"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
	Calls  int64 `json:"calls"`
}

func (tc *TokenCounts) Add(prompt, output int) {
	tc.Prompt += int64(prompt)
	tc.Output += int64(output)
	tc.Total += int64(prompt + output)
	tc.Calls++
}
