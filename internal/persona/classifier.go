// Package persona detects which named persona authored a model reply.
// Replies may open with a bold marker like "**ScopeGuard:**"; detection is
// a presentation heuristic for display attribution, not a protocol.
package persona

import "strings"

// DefaultName is the attribution used when no marker is present.
const DefaultName = "AI_Tutor"

// Roster is the fixed, ordered set of personas the model may adopt.
// Order matters: the first marker found in the reply wins.
var Roster = []Persona{
	{Name: "ScopeGuard", Description: "pulls the conversation back to the current concept when it drifts"},
	{Name: "Quizmaster", Description: "checks understanding with short questions before moving on"},
	{Name: "Analogist", Description: "explains the current concept through a concrete analogy"},
	{Name: "DevilsAdvocate", Description: "challenges the learner's reasoning to expose gaps"},
	{Name: DefaultName, Description: "the default tutoring voice"},
}

// Persona is a named role the model may adopt when formatting a reply.
type Persona struct {
	Name        string
	Description string
}

// Marker returns the bold prefix the model uses for this persona.
func (p Persona) Marker() string {
	return "**" + p.Name + ":**"
}

// Classify returns the persona name for a reply. Total and deterministic:
// the first roster marker contained anywhere in the text wins, and text
// with no marker is attributed to DefaultName.
func Classify(text string) string {
	for _, p := range Roster {
		if strings.Contains(text, p.Marker()) {
			return p.Name
		}
	}
	return DefaultName
}

// StripMarker removes a leading persona marker so the transcript doesn't
// repeat the attribution already shown next to the message.
func StripMarker(text string) string {
	trimmed := strings.TrimLeft(text, " \t\n")
	for _, p := range Roster {
		if strings.HasPrefix(trimmed, p.Marker()) {
			return strings.TrimLeft(strings.TrimPrefix(trimmed, p.Marker()), " \t")
		}
	}
	return text
}

// Names returns the roster names in order.
func Names() []string {
	names := make([]string, len(Roster))
	for i, p := range Roster {
		names[i] = p.Name
	}
	return names
}
