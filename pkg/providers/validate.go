package providers

import "fmt"

// ValidateMessages checks a message sequence before any upstream I/O.
// Every adapter calls it first in Open.
func ValidateMessages(messages []Message) error {
	if len(messages) == 0 {
		return &ValidationError{
			Field:   "messages",
			Message: "at least one message is required",
		}
	}

	for i, msg := range messages {
		if !msg.Role.Valid() {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unsupported role %q (want system, user or assistant)", msg.Role),
			}
		}
	}

	return nil
}

// SplitSystem separates system messages from the conversation turns, for
// backends that take the system prompt out of band. Multiple system messages
// are joined with a blank line.
func SplitSystem(messages []Message) (string, []Message) {
	var system string
	turns := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		turns = append(turns, msg)
	}
	return system, turns
}
