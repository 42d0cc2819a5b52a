// Package curriculum turns a learning objective into a concept dependency
// graph by asking the model for schema-constrained JSON, and normalizes
// whatever comes back into a graph the UI can always render.
package curriculum

import (
	"errors"
	"fmt"
	"strings"
)

// StartNodeID is the id the model must assign to the entry concept.
const StartNodeID = "start"

// Node statuses.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// ConceptNode is one unit of material in the generated curriculum graph.
type ConceptNode struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// ConceptLink is a directed prerequisite edge between two concepts.
type ConceptLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// LearningGraph is one session's concept dependency graph. Replaced
// wholesale on session start, never mutated in place.
type LearningGraph struct {
	Nodes []ConceptNode `json:"nodes"`
	Links []ConceptLink `json:"links"`
}

// FallbackGraph is the fixed degraded graph returned when generation fails.
func FallbackGraph() LearningGraph {
	return LearningGraph{
		Nodes: []ConceptNode{{ID: StartNodeID, Label: "Start", Status: StatusActive}},
	}
}

// Node returns the node with the given id.
func (g LearningGraph) Node(id string) (ConceptNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return ConceptNode{}, false
}

// Labels returns all node labels in order.
func (g LearningGraph) Labels() []string {
	labels := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		labels[i] = n.Label
	}
	return labels
}

// Validate reports the first structural problem in the graph: no nodes,
// missing "start", duplicate ids, or a link referencing an unknown id.
// Normalized graphs always pass.
func (g LearningGraph) Validate() error {
	if len(g.Nodes) == 0 {
		return errors.New("graph has no nodes")
	}
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	}
	if !seen[StartNodeID] {
		return fmt.Errorf("no %q node", StartNodeID)
	}
	for _, l := range g.Links {
		if !seen[l.Source] || !seen[l.Target] {
			return fmt.Errorf("link %s -> %s references an unknown node", l.Source, l.Target)
		}
	}
	return nil
}

// ChildrenOf returns the targets linked from the given node, in link order.
func (g LearningGraph) ChildrenOf(id string) []string {
	var children []string
	for _, l := range g.Links {
		if l.Source == id {
			children = append(children, l.Target)
		}
	}
	return children
}

// normalizeResult reports what normalization changed, for logging.
type normalizeResult struct {
	droppedLinks     int
	duplicateNodes   int
	relabeledNodes   int
	promotedStartID  string
	statusesRepaired int
}

// normalize enforces referential integrity on a decoded graph: duplicate
// ids keep their first occurrence, links referencing unknown ids are
// dropped, empty labels default to the id, invalid statuses become pending,
// and a graph without a "start" id has its first node promoted. Dangling
// edges are removed here precisely so the renderer never sees one.
func normalize(g *LearningGraph) normalizeResult {
	var res normalizeResult

	seen := make(map[string]bool, len(g.Nodes))
	nodes := g.Nodes[:0]
	for _, n := range g.Nodes {
		n.ID = strings.TrimSpace(n.ID)
		if n.ID == "" || seen[n.ID] {
			res.duplicateNodes++
			continue
		}
		seen[n.ID] = true

		if strings.TrimSpace(n.Label) == "" {
			n.Label = n.ID
			res.relabeledNodes++
		}
		switch n.Status {
		case StatusPending, StatusActive, StatusCompleted:
		default:
			n.Status = StatusPending
			res.statusesRepaired++
		}
		nodes = append(nodes, n)
	}
	g.Nodes = nodes

	if len(g.Nodes) > 0 && !seen[StartNodeID] {
		old := g.Nodes[0].ID
		delete(seen, old)
		seen[StartNodeID] = true
		g.Nodes[0].ID = StartNodeID
		res.promotedStartID = old
		for i := range g.Links {
			if g.Links[i].Source == old {
				g.Links[i].Source = StartNodeID
			}
			if g.Links[i].Target == old {
				g.Links[i].Target = StartNodeID
			}
		}
	}

	links := g.Links[:0]
	for _, l := range g.Links {
		if !seen[l.Source] || !seen[l.Target] || l.Source == l.Target {
			res.droppedLinks++
			continue
		}
		links = append(links, l)
	}
	g.Links = links

	return res
}
