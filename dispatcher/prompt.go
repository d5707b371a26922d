package dispatcher

import (
	"time"

	"github.com/effective-security/calagent/pkg/llms"
)

// DefaultSystemPrompt instructs the model to use the calendar tools.
const DefaultSystemPrompt = `You are a calendar assistant.
Use the provided tools to create, get, update, delete and list calendar events.
Use ISO 8601 date and time values for event times.
If a request is not about the calendar, reply that you can only help with calendar tasks.`

// SystemPrompt returns the prompt followed by the tool list, when not empty, and the current date.
func SystemPrompt(prompt, tools string, now time.Time) string {
	if tools != "" {
		prompt += "\n\nAvailable tools:\n" + tools
	}
	return prompt + "\n\nToday is " + now.Format("Monday, 2006-01-02") + "."
}

// conversation returns the messages sent to the model for the turn.
func (d *Dispatcher) conversation(message string) []llms.Message {
	messages := make([]llms.Message, 0, 2)
	if d.cfg.SystemPrompt != "" {
		messages = append(messages, llms.SystemMessage(SystemPrompt(d.cfg.SystemPrompt, d.registry.Describe(), d.cfg.Now())))
	}
	return append(messages, llms.UserMessage(message))
}
