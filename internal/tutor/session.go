// Package tutor holds the per-session state: objective, learning style,
// concept graph position, and the append-only message log. A Session is an
// owned value threaded through the interface layer; there is no package
// level session state.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"graphtutor/internal/curriculum"
	"graphtutor/internal/llm"
	"graphtutor/internal/logging"
	"graphtutor/internal/persona"
)

// Message roles.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// Learning styles. ToggleStyle alternates between Socratic and Direct;
// Hybrid is reachable only through SetStyle.
type Style string

const (
	StyleSocratic Style = "Socratic"
	StyleDirect   Style = "Direct"
	StyleHybrid   Style = "Hybrid"
)

var (
	// ErrChatFailed marks a failed turn exchange. The apology message has
	// already been appended when it is returned.
	ErrChatFailed = errors.New("chat turn failed")

	// ErrTurnInFlight is returned when a model call is already outstanding
	// for this session. One request at a time, no queueing.
	ErrTurnInFlight = errors.New("a model call is already in flight")

	// ErrNotStarted is returned by SendMessage before StartSession.
	ErrNotStarted = errors.New("session not started")
)

// ApologyText is the fixed degraded reply appended when a turn fails.
const ApologyText = "I'm sorry, I ran into a problem answering that. Please try again."

// Message is one entry in the append-only transcript.
type Message struct {
	ID        string
	Role      Role
	Author    string
	Text      string
	Timestamp time.Time
}

// Options configure a new session.
type Options struct {
	Style      Style
	Difficulty string
}

// Session is the in-memory state of one tutoring session.
type Session struct {
	mu            sync.Mutex
	objective     string
	style         Style
	difficulty    string
	currentNodeID string
	graph         curriculum.LearningGraph
	messages      []Message
	started       bool

	client    llm.Client
	generator *curriculum.Generator

	// inflight is a weight-1 guard: the second Start/Send while one call
	// is outstanding is rejected rather than interleaved.
	inflight *semaphore.Weighted
}

// New creates a session over the given model client.
func New(client llm.Client, opts Options) *Session {
	style := opts.Style
	if style == "" {
		style = StyleSocratic
	}
	return &Session{
		style:      style,
		difficulty: opts.Difficulty,
		client:     client,
		generator:  curriculum.NewGenerator(client),
		inflight:   semaphore.NewWeighted(1),
	}
}

// StartSession generates the concept graph for objective, seeds the
// transcript with a welcome message, and marks the session started. On
// generation failure the fallback graph is used, the session still starts,
// and the returned error (wrapping curriculum.ErrGenerationFailed) is the
// internal signal only; callers render the session either way.
func (s *Session) StartSession(ctx context.Context, objective string) error {
	objective = strings.TrimSpace(objective)
	if objective == "" {
		return fmt.Errorf("objective required")
	}

	if !s.inflight.TryAcquire(1) {
		return ErrTurnInFlight
	}
	defer s.inflight.Release(1)

	log := logging.Get(logging.CategorySession)

	graph, genErr := s.generator.Generate(ctx, objective)
	if genErr != nil {
		log.Warnw("starting with fallback graph", "objective", objective, "error", genErr)
	}

	currentID := curriculum.StartNodeID
	if len(graph.Nodes) > 0 {
		currentID = graph.Nodes[0].ID
	}
	label := currentID
	if node, ok := graph.Node(currentID); ok {
		label = node.Label
	}

	welcome := Message{
		ID:     uuid.NewString(),
		Role:   RoleModel,
		Author: persona.DefaultName,
		Text: fmt.Sprintf("Welcome! Our objective is %q. We'll start with **%s**. Ask me anything when you're ready.",
			objective, label),
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	s.objective = objective
	s.graph = graph
	s.currentNodeID = currentID
	s.messages = []Message{welcome}
	s.started = true
	s.mu.Unlock()

	log.Infow("session started",
		"objective", objective,
		"nodes", len(graph.Nodes),
		"current_node", currentID,
		"degraded", genErr != nil)
	return genErr
}

// SendMessage appends the user message immediately (optimistic), sends the
// full prior history plus the new text in one round trip, and appends the
// reply attributed via persona detection. On model failure the fixed
// apology is appended as the model message and the returned error wraps
// ErrChatFailed. The transcript grows by exactly two per completed call.
func (s *Session) SendMessage(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, fmt.Errorf("message required")
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return Message{}, ErrNotStarted
	}
	s.mu.Unlock()

	if !s.inflight.TryAcquire(1) {
		return Message{}, ErrTurnInFlight
	}
	defer s.inflight.Release(1)

	userMsg := Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	history := historyTurns(s.messages)
	system := buildSystemInstruction(s.objective, s.style, s.difficulty, s.currentNodeLabelLocked(), s.graph.Labels())
	s.messages = append(s.messages, userMsg)
	s.mu.Unlock()

	log := logging.Get(logging.CategorySession)

	reply, err := s.client.CompleteWithHistory(ctx, system, history, text)
	if err != nil {
		log.Warnw("turn failed, appending apology", "error", err)
		apology := Message{
			ID:        uuid.NewString(),
			Role:      RoleModel,
			Author:    persona.DefaultName,
			Text:      ApologyText,
			Timestamp: time.Now(),
		}
		s.mu.Lock()
		s.messages = append(s.messages, apology)
		s.mu.Unlock()
		return apology, fmt.Errorf("%w: %v", ErrChatFailed, err)
	}

	modelMsg := Message{
		ID:        uuid.NewString(),
		Role:      RoleModel,
		Author:    persona.Classify(reply),
		Text:      reply,
		Timestamp: time.Now(),
	}
	s.mu.Lock()
	s.messages = append(s.messages, modelMsg)
	s.mu.Unlock()

	log.Infow("turn completed", "author", modelMsg.Author, "reply_len", len(reply))
	return modelMsg, nil
}

// SelectNode moves the current-node pointer. The id is not validated
// against the graph; an unknown id is accepted and logged.
func (s *Session) SelectNode(id string) {
	s.mu.Lock()
	_, known := s.graph.Node(id)
	s.currentNodeID = id
	s.mu.Unlock()

	if !known {
		logging.Get(logging.CategorySession).Warnw("selected node not in graph", "node", id)
	}
}

// ToggleStyle flips between Socratic and Direct. Hybrid is never produced
// here; a session in Hybrid toggles back to Socratic.
func (s *Session) ToggleStyle() Style {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.style == StyleSocratic {
		s.style = StyleDirect
	} else {
		s.style = StyleSocratic
	}
	return s.style
}

// SetStyle sets any of the three styles.
func (s *Session) SetStyle(style Style) error {
	switch style {
	case StyleSocratic, StyleDirect, StyleHybrid:
	default:
		return fmt.Errorf("unknown style: %s", style)
	}
	s.mu.Lock()
	s.style = style
	s.mu.Unlock()
	return nil
}

// Started reports whether StartSession has completed.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Objective returns the session objective.
func (s *Session) Objective() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objective
}

// Style returns the current learning style.
func (s *Session) Style() Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// Graph returns the current concept graph.
func (s *Session) Graph() curriculum.LearningGraph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// CurrentNodeID returns the current-node pointer.
func (s *Session) CurrentNodeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentNodeID
}

// CurrentNodeLabel returns the label of the current node, or the raw id
// when the pointer references a node missing from the graph.
func (s *Session) CurrentNodeLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentNodeLabelLocked()
}

func (s *Session) currentNodeLabelLocked() string {
	if node, ok := s.graph.Node(s.currentNodeID); ok {
		return node.Label
	}
	return s.currentNodeID
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// historyTurns converts the transcript into wire turns. System entries are
// kept out of the wire history; they only exist for display.
func historyTurns(messages []Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			turns = append(turns, llm.Turn{Role: llm.RoleUser, Text: m.Text})
		case RoleModel:
			turns = append(turns, llm.Turn{Role: llm.RoleModel, Text: m.Text})
		}
	}
	return turns
}
