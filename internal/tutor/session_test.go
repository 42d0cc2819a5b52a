package tutor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"graphtutor/internal/curriculum"
	"graphtutor/internal/llm"
)

func TestMain(m *testing.M) {
	// go.opencensus.io (an indirect dependency of the genai SDK) starts a
	// stats worker goroutine in its package init; it is not started by the
	// code under test.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// scriptedClient returns canned replies per entry point and records the
// last history round trip.
type scriptedClient struct {
	mu          sync.Mutex
	graphReply  string
	graphErr    error
	chatReplies []string
	chatErr     error
	chatCalls   int

	lastSystem  string
	lastHistory []llm.Turn
	lastPrompt  string

	// block, when non-nil, holds chat calls open until closed; entered
	// receives once per call that reaches the blocking point.
	block   chan struct{}
	entered chan struct{}
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *scriptedClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.CompleteWithHistory(ctx, systemPrompt, nil, userPrompt)
}

func (c *scriptedClient) CompleteWithHistory(ctx context.Context, systemPrompt string, history []llm.Turn, userPrompt string) (string, error) {
	if c.block != nil {
		if c.entered != nil {
			c.entered <- struct{}{}
		}
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSystem = systemPrompt
	c.lastHistory = append([]llm.Turn(nil), history...)
	c.lastPrompt = userPrompt
	if c.chatErr != nil {
		return "", c.chatErr
	}
	reply := "ok"
	if c.chatCalls < len(c.chatReplies) {
		reply = c.chatReplies[c.chatCalls]
	}
	c.chatCalls++
	return reply, nil
}

func (c *scriptedClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error) {
	if c.graphErr != nil {
		return "", c.graphErr
	}
	return c.graphReply, nil
}

const recursionGraph = `{
  "nodes": [
    {"id": "start", "label": "What Is Recursion", "status": "active"},
    {"id": "base_case", "label": "Base Cases", "status": "pending"},
    {"id": "call_stack", "label": "The Call Stack", "status": "pending"}
  ],
  "links": [
    {"source": "start", "target": "base_case"},
    {"source": "base_case", "target": "call_stack"}
  ]
}`

func startedSession(t *testing.T, client *scriptedClient) *Session {
	t.Helper()
	if client.graphReply == "" {
		client.graphReply = recursionGraph
	}
	s := New(client, Options{})
	require.NoError(t, s.StartSession(context.Background(), "Learn recursion"))
	return s
}

func TestStartSessionSeedsStateAndWelcome(t *testing.T) {
	client := &scriptedClient{graphReply: recursionGraph}
	s := New(client, Options{Difficulty: "beginner"})

	require.NoError(t, s.StartSession(context.Background(), "Learn recursion"))

	assert.True(t, s.Started())
	assert.Equal(t, "Learn recursion", s.Objective())
	assert.Equal(t, "start", s.CurrentNodeID())
	assert.Equal(t, "What Is Recursion", s.CurrentNodeLabel())
	require.Len(t, s.Graph().Nodes, 3)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleModel, msgs[0].Role)
	assert.Equal(t, "AI_Tutor", msgs[0].Author)
	assert.Contains(t, msgs[0].Text, "Learn recursion")
	assert.Contains(t, msgs[0].Text, "What Is Recursion")
}

func TestStartSessionFallsBackOnGenerationFailure(t *testing.T) {
	client := &scriptedClient{graphErr: fmt.Errorf("boom")}
	s := New(client, Options{})

	err := s.StartSession(context.Background(), "Learn recursion")
	require.Error(t, err)
	assert.ErrorIs(t, err, curriculum.ErrGenerationFailed)

	// Session starts anyway, on the fallback graph.
	assert.True(t, s.Started())
	require.Len(t, s.Graph().Nodes, 1)
	assert.Equal(t, curriculum.StartNodeID, s.CurrentNodeID())
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Start")
}

func TestStartSessionRejectsEmptyObjective(t *testing.T) {
	s := New(&scriptedClient{}, Options{})
	assert.Error(t, s.StartSession(context.Background(), "   "))
	assert.False(t, s.Started())
}

func TestSendMessageRoundTrip(t *testing.T) {
	client := &scriptedClient{chatReplies: []string{"**Quizmaster:** What happens without a base case?"}}
	s := startedSession(t, client)

	msg, err := s.SendMessage(context.Background(), "What is a base case?")
	require.NoError(t, err)

	assert.Equal(t, RoleModel, msg.Role)
	assert.Equal(t, "Quizmaster", msg.Author)
	assert.Contains(t, msg.Text, "base case")

	// Welcome, user, model.
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "What is a base case?", msgs[1].Text)
	assert.Equal(t, msg.ID, msgs[2].ID)

	// History sent to the model is everything before the new user text.
	require.Len(t, client.lastHistory, 1)
	assert.Equal(t, llm.RoleModel, client.lastHistory[0].Role)
	assert.Equal(t, "What is a base case?", client.lastPrompt)
}

func TestSendMessageSystemInstructionReflectsState(t *testing.T) {
	client := &scriptedClient{}
	s := startedSession(t, client)
	s.SelectNode("base_case")
	require.NoError(t, s.SetStyle(StyleDirect))

	_, err := s.SendMessage(context.Background(), "go on")
	require.NoError(t, err)

	sys := client.lastSystem
	assert.Contains(t, sys, "Learn recursion")
	assert.Contains(t, sys, "Base Cases")
	assert.Contains(t, sys, "Direct")
	assert.Contains(t, sys, "**Quizmaster:**")
}

func TestSendMessageAppendsApologyOnFailure(t *testing.T) {
	client := &scriptedClient{}
	s := startedSession(t, client)
	client.chatErr = fmt.Errorf("network down")

	msg, err := s.SendMessage(context.Background(), "hello?")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChatFailed)
	assert.Equal(t, ApologyText, msg.Text)
	assert.Equal(t, "AI_Tutor", msg.Author)

	// User message stays; apology closes the turn. Two entries either way.
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "hello?", msgs[1].Text)
	assert.Equal(t, ApologyText, msgs[2].Text)

	// A later successful turn continues the same transcript.
	client.chatErr = nil
	_, err = s.SendMessage(context.Background(), "try again")
	require.NoError(t, err)
	assert.Len(t, s.Messages(), 5)
}

func TestSendMessageBeforeStart(t *testing.T) {
	s := New(&scriptedClient{}, Options{})
	_, err := s.SendMessage(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestSendMessageRejectsConcurrentTurn(t *testing.T) {
	client := &scriptedClient{}
	s := startedSession(t, client)
	client.block = make(chan struct{})
	client.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := s.SendMessage(context.Background(), "slow question")
		done <- err
	}()

	// Wait for the first turn to be holding the guard.
	select {
	case <-client.entered:
	case <-time.After(time.Second):
		t.Fatal("first turn never reached the model call")
	}

	_, err := s.SendMessage(context.Background(), "second question")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(client.block)
	require.NoError(t, <-done)
}

func TestSelectNodeAcceptsUnknownID(t *testing.T) {
	s := startedSession(t, &scriptedClient{})

	s.SelectNode("call_stack")
	assert.Equal(t, "The Call Stack", s.CurrentNodeLabel())

	s.SelectNode("no_such_node")
	assert.Equal(t, "no_such_node", s.CurrentNodeID())
	assert.Equal(t, "no_such_node", s.CurrentNodeLabel())
}

func TestToggleStyleNeverProducesHybrid(t *testing.T) {
	s := New(&scriptedClient{}, Options{})

	assert.Equal(t, StyleSocratic, s.Style())
	assert.Equal(t, StyleDirect, s.ToggleStyle())
	assert.Equal(t, StyleSocratic, s.ToggleStyle())

	require.NoError(t, s.SetStyle(StyleHybrid))
	assert.Equal(t, StyleSocratic, s.ToggleStyle())
}

func TestSetStyleValidates(t *testing.T) {
	s := New(&scriptedClient{}, Options{})
	assert.Error(t, s.SetStyle("Freestyle"))
	assert.Equal(t, StyleSocratic, s.Style())
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := startedSession(t, &scriptedClient{})
	msgs := s.Messages()
	msgs[0].Text = "mutated"
	assert.NotEqual(t, "mutated", s.Messages()[0].Text)
}

func TestHistoryTurnsSkipsSystemEntries(t *testing.T) {
	msgs := []Message{
		{Role: RoleModel, Text: "welcome"},
		{Role: RoleUser, Text: "hi"},
		{Role: RoleSystem, Text: "style changed"},
		{Role: RoleModel, Text: "**Analogist:** like nesting dolls"},
	}
	turns := historyTurns(msgs)
	require.Len(t, turns, 3)
	for _, turn := range turns {
		assert.NotEqual(t, "style changed", turn.Text)
	}
	assert.True(t, strings.HasPrefix(turns[2].Text, "**Analogist:**"))
}
