package curriculum

import "testing"

func TestFindJSONCandidates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"bare object", `{"a":1}`, []string{`{"a":1}`}},
		{"fenced", "```json\n{\"a\":1}\n```", []string{`{"a":1}`}},
		{"prose around", `sure: {"a":1} done`, []string{`{"a":1}`}},
		{"nested braces", `{"a":{"b":2}}`, []string{`{"a":{"b":2}}`}},
		{"brace in string", `{"a":"}"}`, []string{`{"a":"}"}`}},
		{"escaped quote", `{"a":"\"}"}`, []string{`{"a":"\"}"}`}},
		{"two objects", `{"a":1} {"b":2}`, []string{`{"a":1}`, `{"b":2}`}},
		{"none", "no json here", nil},
		{"unclosed", `{"a":1`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findJSONCandidates(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d candidates, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("candidate %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestGraphHelpers(t *testing.T) {
	g := LearningGraph{
		Nodes: []ConceptNode{
			{ID: "start", Label: "Start", Status: StatusActive},
			{ID: "n2", Label: "Base Case", Status: StatusPending},
			{ID: "n3", Label: "Recursive Case", Status: StatusPending},
		},
		Links: []ConceptLink{
			{Source: "start", Target: "n2"},
			{Source: "start", Target: "n3"},
		},
	}

	if n, ok := g.Node("n2"); !ok || n.Label != "Base Case" {
		t.Errorf("Node lookup failed: %+v %v", n, ok)
	}
	if _, ok := g.Node("ghost"); ok {
		t.Error("unexpected hit for unknown node")
	}

	labels := g.Labels()
	if len(labels) != 3 || labels[0] != "Start" {
		t.Errorf("unexpected labels: %v", labels)
	}

	children := g.ChildrenOf("start")
	if len(children) != 2 || children[0] != "n2" || children[1] != "n3" {
		t.Errorf("unexpected children: %v", children)
	}

	if err := g.Validate(); err != nil {
		t.Errorf("expected valid graph, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := (LearningGraph{}).Validate(); err == nil {
		t.Error("expected error for empty graph")
	}

	noStart := LearningGraph{Nodes: []ConceptNode{{ID: "a", Label: "A", Status: StatusPending}}}
	if err := noStart.Validate(); err == nil {
		t.Error("expected error for graph without start")
	}

	dangling := LearningGraph{
		Nodes: []ConceptNode{{ID: "start", Label: "Start", Status: StatusActive}},
		Links: []ConceptLink{{Source: "start", Target: "ghost"}},
	}
	if err := dangling.Validate(); err == nil {
		t.Error("expected error for dangling link")
	}

	if err := FallbackGraph().Validate(); err != nil {
		t.Errorf("fallback graph must validate, got %v", err)
	}
}
