package agent

import (
	"fmt"
	"strings"

	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/schema"
)

// RetryReminder is appended to the schema prompt for the single retry.
const RetryReminder = "Follow EXACTLY one line: @say {name: Ck}"

// FreeTextPrompt builds the prompt for the free-text modes.
func FreeTextPrompt(agentID, round int, anchor models.Symbol) string {
	lines := []string{
		fmt.Sprintf("You are agent %d in round %d.", agentID, round),
		fmt.Sprintf("Your current proposed name is %s.", anchor),
		"Reply EXACTLY one line proposing your name.",
	}
	return strings.Join(lines, "\n")
}

// SchemaPrompt builds the prompt for schema mode. A positive payloadLimit
// adds a word cap for the rationale.
func SchemaPrompt(agentID, round int, anchor models.Symbol, payloadLimit int) string {
	lines := []string{
		fmt.Sprintf("You are agent %d in round %d.", agentID, round),
		fmt.Sprintf("Your current proposed name is %s.", anchor),
		fmt.Sprintf("Reply EXACTLY one line as: %s | rationale.", schema.Render(anchor)),
	}
	if payloadLimit > 0 {
		lines = append(lines, fmt.Sprintf("Keep the rationale under %d words.", payloadLimit))
	}
	return strings.Join(lines, "\n")
}

// RetryPrompt appends the reminder line to a schema prompt.
func RetryPrompt(prompt string) string {
	return prompt + "\n" + RetryReminder
}
