package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"graphtutor/internal/curriculum"
)

var indentCache [50]string

func init() {
	for i := 0; i < len(indentCache); i++ {
		indentCache[i] = strings.Repeat("  ", i)
	}
}

func getIndent(depth int) string {
	if depth >= 0 && depth < len(indentCache) {
		return indentCache[depth]
	}
	return strings.Repeat("  ", depth)
}

// PaneMode represents the current display mode of the split pane
type PaneMode int

const (
	ModeSinglePane PaneMode = iota // Chat only
	ModeSplitPane                  // Chat + graph
	ModeFullGraph                  // Graph only
)

// graphRow is one flattened entry of the concept tree.
type graphRow struct {
	Node  curriculum.ConceptNode
	Depth int
}

// GraphPane renders the concept graph as a navigable tree.
type GraphPane struct {
	Viewport      viewport.Model
	Styles        Styles
	Graph         curriculum.LearningGraph
	HasGraph      bool
	CurrentNodeID string
	Mode          PaneMode
	Width         int
	Height        int
	SelectedRow   int
	Rows          []graphRow

	cachedContent  string
	cacheValid     bool
	lastCacheWidth int
}

// NewGraphPane creates a new concept graph pane
func NewGraphPane(styles Styles, width, height int) GraphPane {
	vp := viewport.New(width, height)
	vp.SetContent("")

	return GraphPane{
		Viewport: vp,
		Styles:   styles,
		Mode:     ModeSinglePane,
		Width:    width,
		Height:   height,
	}
}

// SetSize updates the pane dimensions
func (p *GraphPane) SetSize(width, height int) {
	p.Width = width
	p.Height = height
	p.Viewport.Width = width
	p.Viewport.Height = height
}

// SetGraph replaces the displayed graph and rebuilds the row list.
// Selection moves to the current node when it is present.
func (p *GraphPane) SetGraph(graph curriculum.LearningGraph, currentNodeID string) {
	p.Graph = graph
	p.HasGraph = len(graph.Nodes) > 0
	p.CurrentNodeID = currentNodeID
	p.Rows = flattenGraph(graph)
	p.SelectedRow = 0
	for i, row := range p.Rows {
		if row.Node.ID == currentNodeID {
			p.SelectedRow = i
			break
		}
	}
	p.invalidateCache()
	p.Viewport.SetContent(p.renderContent())
}

// SetCurrentNode moves the current-node highlight without rebuilding rows.
func (p *GraphPane) SetCurrentNode(id string) {
	p.CurrentNodeID = id
	p.invalidateCache()
	p.Viewport.SetContent(p.renderContent())
}

// ToggleMode cycles through display modes
func (p *GraphPane) ToggleMode() {
	switch p.Mode {
	case ModeSinglePane:
		p.Mode = ModeSplitPane
	case ModeSplitPane:
		p.Mode = ModeFullGraph
	case ModeFullGraph:
		p.Mode = ModeSinglePane
	}
}

// SelectNext selects the next row
func (p *GraphPane) SelectNext() {
	if len(p.Rows) == 0 {
		return
	}
	if p.SelectedRow < len(p.Rows)-1 {
		p.SelectedRow++
		p.invalidateCache()
		p.Viewport.SetContent(p.renderContent())
	}
}

// SelectPrev selects the previous row
func (p *GraphPane) SelectPrev() {
	if len(p.Rows) == 0 {
		return
	}
	if p.SelectedRow > 0 {
		p.SelectedRow--
		p.invalidateCache()
		p.Viewport.SetContent(p.renderContent())
	}
}

// SelectedNodeID returns the id under the selection cursor, or "".
func (p *GraphPane) SelectedNodeID() string {
	if p.SelectedRow < 0 || p.SelectedRow >= len(p.Rows) {
		return ""
	}
	return p.Rows[p.SelectedRow].Node.ID
}

// flattenGraph orders nodes depth-first from the start node, then appends
// any nodes unreachable through links at depth zero. Cycles are cut at the
// first revisit.
func flattenGraph(graph curriculum.LearningGraph) []graphRow {
	rows := make([]graphRow, 0, len(graph.Nodes))
	visited := make(map[string]bool, len(graph.Nodes))

	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if visited[id] {
			return
		}
		node, ok := graph.Node(id)
		if !ok {
			return
		}
		visited[id] = true
		rows = append(rows, graphRow{Node: node, Depth: depth})
		for _, child := range graph.ChildrenOf(id) {
			walk(child, depth+1)
		}
	}

	walk(curriculum.StartNodeID, 0)
	for _, node := range graph.Nodes {
		if !visited[node.ID] {
			walk(node.ID, 0)
		}
	}
	return rows
}

func (p *GraphPane) invalidateCache() {
	p.cacheValid = false
}

// renderContent renders the graph pane content with caching
func (p *GraphPane) renderContent() string {
	if p.cacheValid && p.lastCacheWidth == p.Width {
		return p.cachedContent
	}

	var content string
	if !p.HasGraph {
		content = p.renderEmptyState()
	} else {
		var sb strings.Builder

		headerStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Styles.Theme.Primary).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(p.Styles.Theme.Border).
			Width(p.Width-4).
			Padding(0, 1)

		sb.WriteString(headerStyle.Render("Curriculum"))
		sb.WriteString("\n\n")

		done, total := p.progress()
		infoStyle := lipgloss.NewStyle().Foreground(p.Styles.Theme.Muted)
		sb.WriteString(infoStyle.Render(fmt.Sprintf("Concepts: %d │ Completed: %d", total, done)))
		sb.WriteString("\n\n")

		sb.WriteString(p.renderTree())
		sb.WriteString("\n")
		sb.WriteString(p.renderLegend())
		content = sb.String()
	}

	p.cachedContent = content
	p.cacheValid = true
	p.lastCacheWidth = p.Width
	return content
}

func (p *GraphPane) progress() (done, total int) {
	for _, node := range p.Graph.Nodes {
		total++
		if node.Status == curriculum.StatusCompleted {
			done++
		}
	}
	return done, total
}

// renderEmptyState renders the placeholder before a session starts
func (p *GraphPane) renderEmptyState() string {
	emptyStyle := lipgloss.NewStyle().
		Foreground(p.Styles.Theme.Muted).
		Italic(true).
		Padding(2).
		Width(p.Width - 4).
		Align(lipgloss.Center)

	msg := "No curriculum yet.\n\nUse /start <objective>\nto generate a concept graph."
	return emptyStyle.Render(msg)
}

// renderTree renders the flattened concept tree
func (p *GraphPane) renderTree() string {
	if len(p.Rows) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, row := range p.Rows {
		sb.WriteString(p.renderRow(row, i == p.SelectedRow))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (p *GraphPane) statusGlyph(status string) (string, lipgloss.Style) {
	switch status {
	case curriculum.StatusCompleted:
		return "✓", p.Styles.NodeCompleted
	case curriculum.StatusActive:
		return "●", p.Styles.NodeActive
	default:
		return "○", p.Styles.NodePending
	}
}

// renderRow renders a single concept row
func (p *GraphPane) renderRow(row graphRow, selected bool) string {
	var sb strings.Builder

	indent := getIndent(row.Depth)
	connector := "├─"
	if row.Depth == 0 {
		connector = "●"
	}

	glyph, labelStyle := p.statusGlyph(row.Node.Status)
	if selected {
		labelStyle = labelStyle.Background(p.Styles.Theme.Secondary)
	}

	marker := " "
	if row.Node.ID == p.CurrentNodeID {
		marker = "◀"
	}

	sb.WriteString(indent)
	sb.WriteString(connector)
	sb.WriteString(" ")
	sb.WriteString(glyph)
	sb.WriteString(" ")
	sb.WriteString(labelStyle.Render(row.Node.Label))
	if marker != " " {
		sb.WriteString(" ")
		sb.WriteString(p.Styles.Prompt.Render(marker + " current"))
	}
	return sb.String()
}

// renderLegend renders the legend explaining the symbols
func (p *GraphPane) renderLegend() string {
	legendStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Styles.Theme.Border).
		Padding(0, 1).
		Width(p.Width - 4)

	legend := "✓ Completed │ ● Active │ ○ Pending\nCtrl+N/Ctrl+P move │ Enter select"
	return legendStyle.Render(legend)
}

// View returns the rendered view
func (p *GraphPane) View() string {
	return p.Viewport.View()
}

// Split ratio adjustment constants
const (
	MinSplitRatio     = 0.2
	MaxSplitRatio     = 0.9
	SplitRatioStep    = 0.05
	DefaultSplitRatio = 0.67
)

// SplitPaneView renders the chat alongside the concept graph pane.
type SplitPaneView struct {
	Styles     Styles
	RightPane  *GraphPane
	Mode       PaneMode
	Width      int
	Height     int
	SplitRatio float64
	FocusRight bool
}

// NewSplitPaneView creates a new split pane view with the default ratio
func NewSplitPaneView(styles Styles, width, height int) SplitPaneView {
	return NewSplitPaneViewWithRatio(styles, width, height, DefaultSplitRatio)
}

// NewSplitPaneViewWithRatio creates a new split pane view with a configurable ratio
func NewSplitPaneViewWithRatio(styles Styles, width, height int, splitRatio float64) SplitPaneView {
	if splitRatio < MinSplitRatio {
		splitRatio = MinSplitRatio
	}
	if splitRatio > MaxSplitRatio {
		splitRatio = MaxSplitRatio
	}

	rightWidth := int(float64(width) * (1 - splitRatio))
	graphPane := NewGraphPane(styles, rightWidth, height-4)

	return SplitPaneView{
		Styles:     styles,
		RightPane:  &graphPane,
		Mode:       ModeSinglePane,
		Width:      width,
		Height:     height,
		SplitRatio: splitRatio,
	}
}

// SetSize updates dimensions
func (s *SplitPaneView) SetSize(width, height int) {
	s.Width = width
	s.Height = height
	s.updatePaneSizes()
}

// SetMode sets the display mode
func (s *SplitPaneView) SetMode(mode PaneMode) {
	s.Mode = mode
	s.RightPane.Mode = mode
}

// ToggleFocus switches focus between panes
func (s *SplitPaneView) ToggleFocus() {
	s.FocusRight = !s.FocusRight
}

// IncreaseSplitRatio increases the left pane size (moves divider right)
func (s *SplitPaneView) IncreaseSplitRatio() {
	s.SplitRatio += SplitRatioStep
	if s.SplitRatio > MaxSplitRatio {
		s.SplitRatio = MaxSplitRatio
	}
	s.updatePaneSizes()
}

// DecreaseSplitRatio decreases the left pane size (moves divider left)
func (s *SplitPaneView) DecreaseSplitRatio() {
	s.SplitRatio -= SplitRatioStep
	if s.SplitRatio < MinSplitRatio {
		s.SplitRatio = MinSplitRatio
	}
	s.updatePaneSizes()
}

func (s *SplitPaneView) updatePaneSizes() {
	rightWidth := int(float64(s.Width) * (1 - s.SplitRatio))
	s.RightPane.SetSize(rightWidth-4, s.Height-4)
}

// Render renders the complete split pane view
func (s *SplitPaneView) Render(leftContent string) string {
	switch s.Mode {
	case ModeSinglePane:
		return leftContent

	case ModeFullGraph:
		if s.RightPane == nil {
			return leftContent
		}
		s.RightPane.SetSize(s.Width-4, s.Height-4)
		return s.RightPane.renderContent()

	case ModeSplitPane:
		if s.RightPane == nil {
			return leftContent
		}
		return s.renderSplit(leftContent)

	default:
		return leftContent
	}
}

// renderSplit renders the split view
func (s *SplitPaneView) renderSplit(leftContent string) string {
	leftWidth := int(float64(s.Width) * s.SplitRatio)
	rightWidth := s.Width - leftWidth - 1 // -1 for divider

	leftStyle := lipgloss.NewStyle().
		Width(leftWidth).
		Height(s.Height).
		MaxHeight(s.Height)

	dividerStyle := lipgloss.NewStyle().
		Width(1).
		Height(s.Height).
		Background(s.Styles.Theme.Border).
		Foreground(s.Styles.Theme.Muted)

	rightBorder := lipgloss.NormalBorder()
	if s.FocusRight {
		rightBorder = lipgloss.ThickBorder()
	}
	rightStyle := lipgloss.NewStyle().
		Width(rightWidth - 2).
		Height(s.Height - 2).
		MaxHeight(s.Height - 2).
		Border(rightBorder).
		BorderForeground(func() lipgloss.Color {
			if s.FocusRight {
				return s.Styles.Theme.Accent
			}
			return s.Styles.Theme.Border
		}())

	var divider strings.Builder
	for i := 0; i < s.Height; i++ {
		divider.WriteString("│\n")
	}

	s.RightPane.SetSize(rightWidth-4, s.Height-4)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftStyle.Render(leftContent),
		dividerStyle.Render(divider.String()),
		rightStyle.Render(s.RightPane.renderContent()),
	)
}
