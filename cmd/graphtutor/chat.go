// Package main provides the graphtutor CLI entry point.
// This file implements the interactive tutoring interface using bubbletea.
package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"graphtutor/cmd/graphtutor/ui"
	"graphtutor/internal/config"
	"graphtutor/internal/curriculum"
	"graphtutor/internal/llm"
	"graphtutor/internal/persona"
	"graphtutor/internal/tutor"
)

// chatModel is the main model for the interactive tutoring interface
type chatModel struct {
	// UI components
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	styles    ui.Styles
	renderer  *glamour.TermRenderer

	// Split-pane TUI (curriculum view)
	splitPane *ui.SplitPaneView
	showGraph bool
	paneMode  ui.PaneMode

	// State
	history   []chatMessage
	isLoading bool
	err       error
	width     int
	height    int
	ready     bool
	config    config.Config

	// Backend
	session *tutor.Session
}

type chatMessage struct {
	role    string // "user", "tutor", or "system"
	author  string // persona name for tutor messages
	content string
	time    time.Time
}

// Messages for tea updates
type (
	sessionStartedMsg struct{ err error }
	turnDoneMsg       struct {
		msg tutor.Message
		err error
	}
	errorMsg error
)

// initChat initializes the interactive chat model
func initChat(cfg config.Config, session *tutor.Session) chatModel {
	styles := ui.NewStyles(ui.ThemeByName(cfg.Theme))

	ti := textinput.New()
	ti.Placeholder = "Type /start <objective> to begin... (Enter to send, Ctrl+C to exit)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 4096
	ti.Width = 80
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.UserInput

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)
	vp.SetContent("")

	var renderer *glamour.TermRenderer
	if styles.Theme.IsDark {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	} else {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(80),
		)
	}

	splitPaneView := ui.NewSplitPaneView(styles, 80, 24)

	return chatModel{
		textinput: ti,
		viewport:  vp,
		spinner:   sp,
		styles:    styles,
		renderer:  renderer,
		splitPane: &splitPaneView,
		paneMode:  ui.ModeSinglePane,
		history:   []chatMessage{},
		config:    cfg,
		session:   session,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyCtrlG:
			// Cycle views: Chat -> Split -> Graph -> Chat
			switch m.paneMode {
			case ui.ModeSinglePane:
				m.paneMode = ui.ModeSplitPane
				m.showGraph = true
			case ui.ModeSplitPane:
				m.paneMode = ui.ModeFullGraph
			case ui.ModeFullGraph:
				m.paneMode = ui.ModeSinglePane
				m.showGraph = false
			}
			m.splitPane.SetMode(m.paneMode)
			return m, nil

		case tea.KeyCtrlR:
			if m.paneMode == ui.ModeSplitPane {
				m.splitPane.ToggleFocus()
			}
			return m, nil

		case tea.KeyCtrlN:
			m.splitPane.RightPane.SelectNext()
			return m, nil

		case tea.KeyCtrlP:
			m.splitPane.RightPane.SelectPrev()
			return m, nil

		case tea.KeyCtrlT:
			if m.session.Started() {
				style := m.session.ToggleStyle()
				m.appendSystem(fmt.Sprintf("Teaching style is now **%s**.", style))
				m.viewport.SetContent(m.renderHistory())
				m.viewport.GotoBottom()
			}
			return m, nil

		case tea.KeyEnter:
			if m.splitPane.FocusRight {
				return m.handleNodeSelect()
			}
			if !m.isLoading {
				return m.handleSubmit()
			}
		}

		if m.splitPane.FocusRight {
			// Vim-style movement while the graph pane holds focus.
			switch msg.String() {
			case "j":
				m.splitPane.RightPane.SelectNext()
			case "k":
				m.splitPane.RightPane.SelectPrev()
			}
			return m, nil
		}

		if !m.isLoading {
			m.textinput, tiCmd = m.textinput.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		footerHeight := 3
		inputHeight := 3

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-footerHeight-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - footerHeight - inputHeight
		}

		m.textinput.Width = msg.Width - 4

		if m.splitPane != nil {
			m.splitPane.SetSize(msg.Width, msg.Height-headerHeight-footerHeight-inputHeight)
		}

		if m.renderer != nil {
			m.renderer, _ = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(msg.Width-8),
			)
		}

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case sessionStartedMsg:
		m.isLoading = false
		m.history = m.historyFromSession()
		m.splitPane.RightPane.SetGraph(m.session.Graph(), m.session.CurrentNodeID())
		if msg.err != nil {
			if errors.Is(msg.err, curriculum.ErrGenerationFailed) {
				m.appendSystem("Couldn't generate a full curriculum for that objective. Starting with a minimal one; chatting still works.")
			} else {
				m.err = msg.err
			}
		}
		if !m.showGraph {
			m.paneMode = ui.ModeSplitPane
			m.showGraph = true
			m.splitPane.SetMode(ui.ModeSplitPane)
		}
		m.textinput.Placeholder = "Ask about the current concept... (Enter to send)"
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()

	case turnDoneMsg:
		m.isLoading = false
		m.history = append(m.history, chatMessage{
			role:    "tutor",
			author:  msg.msg.Author,
			content: msg.msg.Text,
			time:    msg.msg.Timestamp,
		})
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()

	case errorMsg:
		m.isLoading = false
		m.err = msg
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

// handleNodeSelect wires the graph pane cursor to the session's current node.
func (m chatModel) handleNodeSelect() (tea.Model, tea.Cmd) {
	id := m.splitPane.RightPane.SelectedNodeID()
	if id == "" {
		return m, nil
	}
	m.session.SelectNode(id)
	m.splitPane.RightPane.SetCurrentNode(id)
	m.appendSystem(fmt.Sprintf("Now focusing on **%s**.", m.session.CurrentNodeLabel()))
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
	return m, nil
}

func (m chatModel) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textinput.Value())
	if input == "" {
		return m, nil
	}

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	if !m.session.Started() {
		m.appendSystem("No session yet. Use `/start <objective>` first.")
		m.textinput.Reset()
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil
	}

	m.history = append(m.history, chatMessage{
		role:    "user",
		content: input,
		time:    time.Now(),
	})

	m.textinput.Reset()
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
	m.isLoading = true
	m.err = nil

	return m, tea.Batch(
		m.spinner.Tick,
		m.processSend(input),
	)
}

func (m chatModel) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]
	m.textinput.Reset()

	switch cmd {
	case "/quit", "/exit", "/q":
		return m, tea.Quit

	case "/clear":
		m.history = m.historyFromSession()
		m.viewport.SetContent(m.renderHistory())
		return m, nil

	case "/start":
		if len(parts) < 2 {
			m.appendSystem("Usage: `/start <learning objective>`")
			break
		}
		objective := strings.Join(parts[1:], " ")
		m.isLoading = true
		m.err = nil
		m.appendSystem(fmt.Sprintf("Building a curriculum for %q...", objective))
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, tea.Batch(m.spinner.Tick, m.processStart(objective))

	case "/style":
		if !m.session.Started() {
			m.appendSystem("No session yet. Use `/start <objective>` first.")
			break
		}
		if len(parts) < 2 {
			m.appendSystem(fmt.Sprintf("Teaching style is now **%s**.", m.session.ToggleStyle()))
			break
		}
		style, err := parseStyle(parts[1])
		if err != nil {
			m.appendSystem("Usage: `/style [socratic|direct|hybrid]`")
			break
		}
		if err := m.session.SetStyle(style); err != nil {
			m.appendSystem(err.Error())
			break
		}
		m.appendSystem(fmt.Sprintf("Teaching style is now **%s**.", style))

	case "/select":
		if len(parts) < 2 {
			m.appendSystem("Usage: `/select <node-id>`")
			break
		}
		m.session.SelectNode(parts[1])
		m.splitPane.RightPane.SetCurrentNode(parts[1])
		m.appendSystem(fmt.Sprintf("Now focusing on **%s**.", m.session.CurrentNodeLabel()))

	case "/graph":
		m.appendSystem(renderGraphMarkdown(m.session.Graph(), m.session.CurrentNodeID()))

	case "/help":
		m.appendSystem(helpText)

	default:
		m.appendSystem(fmt.Sprintf("Unknown command `%s`. Try `/help`.", cmd))
	}

	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
	return m, nil
}

const helpText = `## Commands

| Command | Description |
|---------|-------------|
| /start <objective> | Start a session and generate the curriculum |
| /style [socratic\|direct\|hybrid] | Set the teaching style (no argument toggles) |
| /select <node-id> | Focus a concept by id |
| /graph | Show the curriculum as text |
| /clear | Clear system notices |
| /help | Show this help message |
| /quit, /exit, /q | Exit |

## Keybindings

| Key | Description |
|-----|-------------|
| Enter | Send message (or select concept when graph focused) |
| Ctrl+G | Cycle views: Chat → Split → Graph |
| Ctrl+R | Toggle focus between panes |
| Ctrl+N / Ctrl+P | Move the graph cursor |
| Ctrl+T | Toggle teaching style |
| Ctrl+C / Esc | Exit |
`

func parseStyle(raw string) (tutor.Style, error) {
	switch strings.ToLower(raw) {
	case "socratic":
		return tutor.StyleSocratic, nil
	case "direct":
		return tutor.StyleDirect, nil
	case "hybrid":
		return tutor.StyleHybrid, nil
	default:
		return "", fmt.Errorf("unknown style: %s", raw)
	}
}

// renderGraphMarkdown formats the concept graph for the chat transcript.
func renderGraphMarkdown(graph curriculum.LearningGraph, currentID string) string {
	if len(graph.Nodes) == 0 {
		return "No curriculum yet. Use `/start <objective>` first."
	}

	var sb strings.Builder
	sb.WriteString("## Curriculum\n\n")
	for _, node := range graph.Nodes {
		glyph := "○"
		switch node.Status {
		case curriculum.StatusCompleted:
			glyph = "✓"
		case curriculum.StatusActive:
			glyph = "●"
		}
		marker := ""
		if node.ID == currentID {
			marker = " ← current"
		}
		fmt.Fprintf(&sb, "- %s **%s** (`%s`)%s\n", glyph, node.Label, node.ID, marker)
	}
	return sb.String()
}

func (m chatModel) processStart(objective string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.TimeoutDuration())
		defer cancel()
		return sessionStartedMsg{err: m.session.StartSession(ctx, objective)}
	}
}

func (m chatModel) processSend(input string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.TimeoutDuration())
		defer cancel()

		msg, err := m.session.SendMessage(ctx, input)
		if err != nil && !errors.Is(err, tutor.ErrChatFailed) {
			return errorMsg(err)
		}
		// Chat failures already carry the apology message; show it.
		return turnDoneMsg{msg: msg, err: err}
	}
}

// appendSystem adds a notice to the display transcript. Notices are local
// to the UI and never enter the session history sent to the model.
func (m *chatModel) appendSystem(content string) {
	m.history = append(m.history, chatMessage{
		role:    "system",
		content: content,
		time:    time.Now(),
	})
}

// historyFromSession rebuilds the display transcript from session state.
func (m chatModel) historyFromSession() []chatMessage {
	msgs := m.session.Messages()
	out := make([]chatMessage, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case tutor.RoleUser:
			out = append(out, chatMessage{role: "user", content: msg.Text, time: msg.Timestamp})
		case tutor.RoleModel:
			out = append(out, chatMessage{role: "tutor", author: msg.Author, content: msg.Text, time: msg.Timestamp})
		}
	}
	return out
}

func (m chatModel) renderHistory() string {
	var sb strings.Builder

	for _, msg := range m.history {
		switch msg.role {
		case "user":
			userStyle := m.styles.Bold.
				Foreground(m.styles.Theme.Primary).
				MarginTop(1)
			sb.WriteString(userStyle.Render("You") + "\n")
			sb.WriteString(m.styles.UserInput.Render(msg.content))
			sb.WriteString("\n\n")

		case "system":
			sb.WriteString(m.safeRenderMarkdown(m.styles.Muted.Render("· ") + msg.content))
			sb.WriteString("\n")

		default:
			author := msg.author
			if author == "" {
				author = persona.DefaultName
			}
			sb.WriteString(m.styles.PersonaBadge.Render(author) + "\n")
			sb.WriteString(m.safeRenderMarkdown(persona.StripMarker(msg.content)))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery
func (m chatModel) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			// If glamour panics, fall back to plain text
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

func (m chatModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()

	chatView := m.styles.Content.Render(m.viewport.View())

	if m.isLoading {
		chatView += "\n" + m.styles.Spinner.Render(m.spinner.View()) + " Thinking..."
	}

	if m.err != nil {
		chatView += "\n" + m.styles.Error.Render("Error: "+m.err.Error())
	}

	if m.showGraph && m.splitPane != nil {
		chatView = m.splitPane.Render(chatView)
	}

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Accent).
		Padding(0, 1)

	inputArea := inputStyle.Render(m.textinput.View())

	footer := m.renderFooter()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		chatView,
		inputArea,
		footer,
	)
}

func (m chatModel) renderHeader() string {
	title := m.styles.Header.Render(" graphtutor ")

	var status string
	if m.isLoading {
		status = m.styles.Warning.Render("● Thinking")
	} else {
		status = m.styles.Success.Render("● Ready")
	}

	var sessionLine string
	if m.session.Started() {
		sessionLine = m.styles.Muted.Render(fmt.Sprintf(" %s │ %s │ focusing: %s",
			m.session.Objective(), m.session.Style(), m.session.CurrentNodeLabel()))
	} else {
		sessionLine = m.styles.Muted.Render(" no session yet, /start <objective>")
	}

	headerLine := lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		"  ",
		status,
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerLine,
		sessionLine,
		m.styles.RenderDivider(m.width),
	)
}

func (m chatModel) renderFooter() string {
	modeIndicator := ""
	switch m.paneMode {
	case ui.ModeSinglePane:
		modeIndicator = "Chat"
	case ui.ModeSplitPane:
		modeIndicator = "Split (Chat + Graph)"
	case ui.ModeFullGraph:
		modeIndicator = "Graph"
	}

	help := m.styles.Muted.Render(fmt.Sprintf("%s • Enter: send • Ctrl+G: cycle views • Ctrl+T: style • /help: commands • Ctrl+C: exit", modeIndicator))
	return lipgloss.NewStyle().
		MarginTop(1).
		Render(help)
}

// runInteractiveChat starts the interactive tutoring interface
func runInteractiveChat(cfg config.Config, client llm.Client) error {
	session := tutor.New(client, tutor.Options{Difficulty: cfg.Difficulty})

	p := tea.NewProgram(
		initChat(cfg, session),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()
	return err
}
