package conversations

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

const assistantName = "Sahayak"

// RouterContext renders the recent history plus the message being routed in
// the tagged layout the router prompt expects.
func RouterContext(history []*schema.Message, maxTurns int, current string) string {
	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	for _, msg := range trimTail(history, maxTurns) {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("UserMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			b.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}
	b.WriteString("</conversation_context>\n")
	b.WriteString("<current_message_to_analyze>\n")
	b.WriteString("UserMessage(" + current + ")\n")
	b.WriteString("</current_message_to_analyze>")
	return b.String()
}

// Lines renders user and assistant messages as "User: ..." and
// "Sahayak: ..." lines, oldest first. Tool traffic is skipped.
func Lines(messages []*schema.Message) []string {
	out := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			out = append(out, "User: "+msg.Content)
		case schema.Assistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, assistantName+": "+msg.Content)
			}
		}
	}
	return out
}

// tail returns the last n lines, or all of them when there are fewer.
func tail(lines []string, n int) []string {
	if n <= 0 || len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
