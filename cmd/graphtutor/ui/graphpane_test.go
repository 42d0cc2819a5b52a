package ui

import (
	"strings"
	"testing"

	"graphtutor/internal/curriculum"
)

func testGraph() curriculum.LearningGraph {
	return curriculum.LearningGraph{
		Nodes: []curriculum.ConceptNode{
			{ID: "start", Label: "What Is Recursion", Status: curriculum.StatusActive},
			{ID: "base_case", Label: "Base Cases", Status: curriculum.StatusPending},
			{ID: "call_stack", Label: "The Call Stack", Status: curriculum.StatusCompleted},
			{ID: "island", Label: "Tail Calls", Status: curriculum.StatusPending},
		},
		Links: []curriculum.ConceptLink{
			{Source: "start", Target: "base_case"},
			{Source: "base_case", Target: "call_stack"},
		},
	}
}

func TestGraphPaneToggleMode(t *testing.T) {
	pane := NewGraphPane(DefaultStyles(), 80, 20)
	if pane.Mode != ModeSinglePane {
		t.Fatalf("expected initial mode single pane")
	}

	pane.ToggleMode()
	if pane.Mode != ModeSplitPane {
		t.Fatalf("expected mode split pane")
	}

	pane.ToggleMode()
	if pane.Mode != ModeFullGraph {
		t.Fatalf("expected mode full graph")
	}

	pane.ToggleMode()
	if pane.Mode != ModeSinglePane {
		t.Fatalf("expected mode single pane again")
	}
}

func TestFlattenGraphOrdersFromStart(t *testing.T) {
	rows := flattenGraph(testGraph())
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	wantOrder := []string{"start", "base_case", "call_stack", "island"}
	wantDepth := []int{0, 1, 2, 0}
	for i, row := range rows {
		if row.Node.ID != wantOrder[i] {
			t.Fatalf("row %d: expected %s, got %s", i, wantOrder[i], row.Node.ID)
		}
		if row.Depth != wantDepth[i] {
			t.Fatalf("row %d: expected depth %d, got %d", i, wantDepth[i], row.Depth)
		}
	}
}

func TestFlattenGraphCutsCycles(t *testing.T) {
	graph := curriculum.LearningGraph{
		Nodes: []curriculum.ConceptNode{
			{ID: "start", Label: "A", Status: curriculum.StatusActive},
			{ID: "b", Label: "B", Status: curriculum.StatusPending},
		},
		Links: []curriculum.ConceptLink{
			{Source: "start", Target: "b"},
			{Source: "b", Target: "start"},
		},
	}
	rows := flattenGraph(graph)
	if len(rows) != 2 {
		t.Fatalf("expected cycle to be cut, got %d rows", len(rows))
	}
}

func TestGraphPaneSetGraphSelectsCurrentNode(t *testing.T) {
	pane := NewGraphPane(DefaultStyles(), 80, 20)
	pane.SetGraph(testGraph(), "call_stack")

	if got := pane.SelectedNodeID(); got != "call_stack" {
		t.Fatalf("expected selection on current node, got %q", got)
	}

	content := pane.renderContent()
	if !strings.Contains(content, "Curriculum") {
		t.Fatalf("expected header in content")
	}
	if !strings.Contains(content, "The Call Stack") {
		t.Fatalf("expected node label in content")
	}
	if !strings.Contains(content, "current") {
		t.Fatalf("expected current marker in content")
	}
	if !strings.Contains(content, "Completed: 1") {
		t.Fatalf("expected progress line in content")
	}
}

func TestGraphPaneSelectionBounds(t *testing.T) {
	pane := NewGraphPane(DefaultStyles(), 80, 20)
	pane.SetGraph(testGraph(), "start")

	pane.SelectPrev()
	if pane.SelectedRow != 0 {
		t.Fatalf("expected selection clamped at 0")
	}

	for i := 0; i < 10; i++ {
		pane.SelectNext()
	}
	if pane.SelectedRow != len(pane.Rows)-1 {
		t.Fatalf("expected selection clamped at last row")
	}
}

func TestGraphPaneEmptyState(t *testing.T) {
	pane := NewGraphPane(DefaultStyles(), 80, 20)
	content := pane.renderContent()
	if !strings.Contains(content, "No curriculum yet.") {
		t.Fatalf("expected empty state content")
	}
}

func TestSplitPaneViewRenderModes(t *testing.T) {
	view := NewSplitPaneView(DefaultStyles(), 80, 20)
	left := "left content"

	view.SetMode(ModeSinglePane)
	if got := view.Render(left); got != left {
		t.Fatalf("expected single pane to return left content")
	}

	view.SetMode(ModeFullGraph)
	got := view.Render(left)
	if !strings.Contains(got, "No curriculum yet.") {
		t.Fatalf("expected full graph to render empty state")
	}

	view.RightPane = nil
	view.Mode = ModeSplitPane
	if got = view.Render(left); got != left {
		t.Fatalf("expected split pane with nil right pane to return left content")
	}
}

func TestSplitPaneRatioClamped(t *testing.T) {
	view := NewSplitPaneViewWithRatio(DefaultStyles(), 80, 20, 0.99)
	if view.SplitRatio != MaxSplitRatio {
		t.Fatalf("expected ratio clamped to max, got %f", view.SplitRatio)
	}

	for i := 0; i < 30; i++ {
		view.DecreaseSplitRatio()
	}
	if view.SplitRatio != MinSplitRatio {
		t.Fatalf("expected ratio clamped to min, got %f", view.SplitRatio)
	}
}
