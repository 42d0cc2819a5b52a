package tutor

import (
	"fmt"
	"strings"

	"graphtutor/internal/persona"
)

// styleGuidance phrases each learning style as an instruction.
var styleGuidance = map[Style]string{
	StyleSocratic: "Prefer guiding questions over direct answers. Lead the learner to discover the idea themselves.",
	StyleDirect:   "Explain directly and concisely. Give the answer first, then the reasoning.",
	StyleHybrid:   "Blend direct explanation with guiding questions. Explain the core idea, then probe understanding.",
}

// buildSystemInstruction renders the per-turn system prompt from session
// state. Every field the model needs to stay on topic is inlined here; the
// wire history carries no system turns.
func buildSystemInstruction(objective string, style Style, difficulty, currentLabel string, nodeLabels []string) string {
	var b strings.Builder

	b.WriteString("You are an expert tutor guiding a learner through a structured curriculum.\n\n")
	fmt.Fprintf(&b, "Learning objective: %s\n", objective)
	fmt.Fprintf(&b, "Current concept: %s\n", currentLabel)
	if len(nodeLabels) > 0 {
		fmt.Fprintf(&b, "Curriculum concepts, in order: %s\n", strings.Join(nodeLabels, ", "))
	}
	if difficulty != "" {
		fmt.Fprintf(&b, "Learner level: %s\n", difficulty)
	}

	b.WriteString("\nTeaching style: ")
	b.WriteString(string(style))
	if guidance, ok := styleGuidance[style]; ok {
		b.WriteString(". ")
		b.WriteString(guidance)
	}
	b.WriteString("\n")

	b.WriteString("\nStay focused on the current concept. If the learner drifts to a concept outside the curriculum, gently steer them back.\n")

	b.WriteString("\nYou may adopt one of these personas when it helps, prefixing the reply with its bold marker:\n")
	for _, p := range persona.Roster {
		if p.Name == persona.DefaultName {
			continue
		}
		fmt.Fprintf(&b, "- %s %s\n", p.Marker(), p.Description)
	}
	fmt.Fprintf(&b, "Replies without a marker speak as %s, %s.\n", persona.DefaultName, rosterDescription(persona.DefaultName))

	b.WriteString("\nKeep replies short enough to read in a chat pane. Use Markdown for structure.")
	return b.String()
}

func rosterDescription(name string) string {
	for _, p := range persona.Roster {
		if p.Name == name {
			return p.Description
		}
	}
	return ""
}
