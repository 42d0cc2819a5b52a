package curriculum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"graphtutor/internal/llm"
	"graphtutor/internal/logging"
	"graphtutor/internal/usage"
)

// ErrGenerationFailed marks any graph-generation failure. Callers always
// receive the fallback graph next to it, so the UI can render something
// while the failure stays distinguishable for logging and tests.
var ErrGenerationFailed = errors.New("graph generation failed")

const graphSystemPrompt = "You are a curriculum planner. You decompose a learning objective " +
	"into a small dependency-ordered concept graph and reply with JSON only."

// Generator builds learning graphs through the model boundary.
type Generator struct {
	client llm.Client
}

// NewGenerator creates a generator over the given client.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate decomposes objective into a 6-10 node concept graph. On any
// failure it returns the fixed fallback graph together with a non-nil
// error wrapping ErrGenerationFailed; the returned graph is always usable.
func (g *Generator) Generate(ctx context.Context, objective string) (LearningGraph, error) {
	log := logging.Get(logging.CategoryCurriculum)

	objective = strings.TrimSpace(objective)
	if objective == "" {
		return FallbackGraph(), fmt.Errorf("%w: empty objective", ErrGenerationFailed)
	}

	ctx = usage.ContextWithOperation(ctx, usage.OperationGraph)
	reply, err := g.client.CompleteWithSchema(ctx, graphSystemPrompt, buildGraphPrompt(objective), GraphSchema)
	if err != nil {
		log.Warnw("model call failed, using fallback graph", "objective", objective, "error", err)
		return FallbackGraph(), fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	graph, err := parseGraph(reply)
	if err != nil {
		log.Warnw("reply unparseable, using fallback graph", "objective", objective, "error", err)
		return FallbackGraph(), fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	res := normalize(&graph)
	if len(graph.Nodes) == 0 {
		log.Warnw("graph empty after normalization, using fallback graph", "objective", objective)
		return FallbackGraph(), fmt.Errorf("%w: no nodes returned", ErrGenerationFailed)
	}
	if res.droppedLinks > 0 || res.duplicateNodes > 0 || res.promotedStartID != "" {
		log.Infow("graph normalized",
			"objective", objective,
			"dropped_links", res.droppedLinks,
			"duplicate_nodes", res.duplicateNodes,
			"promoted_start_from", res.promotedStartID)
	}

	log.Infow("graph generated", "objective", objective, "nodes", len(graph.Nodes), "links", len(graph.Links))
	return graph, nil
}

func buildGraphPrompt(objective string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Learning objective: %s\n\n", objective)
	b.WriteString("Decompose this objective into 6 to 10 concepts ordered by dependency.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Exactly one node is the entry point and its id must be \"start\".\n")
	b.WriteString("- The \"start\" node has status \"active\"; every other node is \"pending\".\n")
	b.WriteString("- Every link points from a prerequisite concept to the concept that needs it.\n")
	b.WriteString("- Link source and target must both be node ids that appear in nodes.\n")
	b.WriteString("- Labels are short human-readable concept names.\n")
	return b.String()
}

// parseGraph extracts the first decodable JSON object from reply text.
// Schema-constrained replies are bare JSON, but the scanner also tolerates
// fenced or chatty output from engines that ignored the constraint.
func parseGraph(reply string) (LearningGraph, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return LearningGraph{}, fmt.Errorf("empty reply")
	}

	candidates := findJSONCandidates(reply)
	if len(candidates) == 0 {
		return LearningGraph{}, fmt.Errorf("no JSON object in reply")
	}

	var lastErr error
	for _, candidate := range candidates {
		var graph LearningGraph
		if err := json.Unmarshal([]byte(candidate), &graph); err != nil {
			lastErr = err
			continue
		}
		if len(graph.Nodes) == 0 && len(graph.Links) == 0 {
			lastErr = fmt.Errorf("object has no graph content")
			continue
		}
		return graph, nil
	}
	return LearningGraph{}, fmt.Errorf("no candidate decoded as a graph: %v", lastErr)
}
