package curriculum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"graphtutor/internal/llm"
)

// fakeClient returns canned replies for each completion method.
type fakeClient struct {
	reply string
	err   error

	lastSystem string
	lastUser   string
	lastSchema string
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.reply, f.err
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastSystem, f.lastUser = systemPrompt, userPrompt
	return f.reply, f.err
}

func (f *fakeClient) CompleteWithHistory(ctx context.Context, systemPrompt string, history []llm.Turn, userPrompt string) (string, error) {
	return f.reply, f.err
}

func (f *fakeClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error) {
	f.lastSystem, f.lastUser, f.lastSchema = systemPrompt, userPrompt, jsonSchema
	return f.reply, f.err
}

const twoNodeReply = `{
	"nodes": [
		{"id": "start", "label": "Start", "status": "active"},
		{"id": "n2", "label": "Base Case", "status": "pending"}
	],
	"links": [{"source": "start", "target": "n2"}]
}`

func TestGenerateParsesWellFormedGraph(t *testing.T) {
	fake := &fakeClient{reply: twoNodeReply}
	gen := NewGenerator(fake)

	graph, err := gen.Generate(context.Background(), "Learn recursion")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := LearningGraph{
		Nodes: []ConceptNode{
			{ID: "start", Label: "Start", Status: StatusActive},
			{ID: "n2", Label: "Base Case", Status: StatusPending},
		},
		Links: []ConceptLink{{Source: "start", Target: "n2"}},
	}
	if diff := cmp.Diff(want, graph); diff != "" {
		t.Errorf("graph mismatch (-want +got):\n%s", diff)
	}
	if fake.lastSchema != GraphSchema {
		t.Error("graph schema not passed to the client")
	}
}

func TestGeneratePromptMentionsObjectiveAndBounds(t *testing.T) {
	fake := &fakeClient{reply: twoNodeReply}
	gen := NewGenerator(fake)

	if _, err := gen.Generate(context.Background(), "  Learn recursion  "); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, want := range []string{"Learn recursion", "6 to 10", `"start"`} {
		if !strings.Contains(fake.lastUser, want) {
			t.Errorf("prompt missing %q:\n%s", want, fake.lastUser)
		}
	}
}

func TestGenerateFallbackOnClientError(t *testing.T) {
	fake := &fakeClient{err: fmt.Errorf("network down")}
	gen := NewGenerator(fake)

	graph, err := gen.Generate(context.Background(), "Learn recursion")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	if diff := cmp.Diff(FallbackGraph(), graph); diff != "" {
		t.Errorf("expected exact fallback graph (-want +got):\n%s", diff)
	}
}

func TestGenerateFallbackOnJunkReply(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"prose":        "I cannot help with that.",
		"broken json":  `{"nodes": [`,
		"no content":   `{}`,
		"wrong shapes": `{"nodes": "yes", "links": 3}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			gen := NewGenerator(&fakeClient{reply: reply})
			graph, err := gen.Generate(context.Background(), "Learn recursion")
			if !errors.Is(err, ErrGenerationFailed) {
				t.Fatalf("expected ErrGenerationFailed, got %v", err)
			}
			if diff := cmp.Diff(FallbackGraph(), graph); diff != "" {
				t.Errorf("expected fallback (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateEmptyObjective(t *testing.T) {
	gen := NewGenerator(&fakeClient{reply: twoNodeReply})
	graph, err := gen.Generate(context.Background(), "   ")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if diff := cmp.Diff(FallbackGraph(), graph); diff != "" {
		t.Errorf("expected fallback (-want +got):\n%s", diff)
	}
}

func TestGenerateExtractsGraphFromChattyReply(t *testing.T) {
	fake := &fakeClient{reply: "Here is your curriculum:\n```json\n" + twoNodeReply + "\n```\nEnjoy!"}
	gen := NewGenerator(fake)

	graph, err := gen.Generate(context.Background(), "Learn recursion")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(graph.Nodes) != 2 {
		t.Errorf("expected 2 nodes, got %d", len(graph.Nodes))
	}
}

func TestGenerateDropsDanglingLinks(t *testing.T) {
	reply := `{
		"nodes": [
			{"id": "start", "label": "Start", "status": "active"},
			{"id": "n2", "label": "Two", "status": "pending"}
		],
		"links": [
			{"source": "start", "target": "n2"},
			{"source": "n2", "target": "ghost"},
			{"source": "n2", "target": "n2"}
		]
	}`
	gen := NewGenerator(&fakeClient{reply: reply})

	graph, err := gen.Generate(context.Background(), "x")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []ConceptLink{{Source: "start", Target: "n2"}}
	if diff := cmp.Diff(want, graph.Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateDedupesNodesAndRepairsStart(t *testing.T) {
	reply := `{
		"nodes": [
			{"id": "intro", "label": "Intro", "status": "bogus"},
			{"id": "intro", "label": "Intro Again", "status": "pending"},
			{"id": "n2", "label": "", "status": "pending"}
		],
		"links": [{"source": "intro", "target": "n2"}]
	}`
	gen := NewGenerator(&fakeClient{reply: reply})

	graph, err := gen.Generate(context.Background(), "x")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := LearningGraph{
		Nodes: []ConceptNode{
			{ID: StartNodeID, Label: "Intro", Status: StatusPending},
			{ID: "n2", Label: "n2", Status: StatusPending},
		},
		Links: []ConceptLink{{Source: StartNodeID, Target: "n2"}},
	}
	if diff := cmp.Diff(want, graph); diff != "" {
		t.Errorf("graph mismatch (-want +got):\n%s", diff)
	}
}
