package agent

import "strings"

const (
	toolCallStart = "[TOOL_CALL]"
	toolCallEnd   = "[/TOOL_CALL]"
)

// ToolCall is a parsed tool invocation from a model response.
type ToolCall struct {
	Name   string
	Params map[string]string
}

// ParseToolCall extracts the first tool call from a model response. The
// expected format is:
//
//	[TOOL_CALL] tool_name: param1=value1, param2=value2 [/TOOL_CALL]
//
// Returns nil when the response contains no well-formed call.
func ParseToolCall(response string) *ToolCall {
	start := strings.Index(response, toolCallStart)
	if start == -1 {
		return nil
	}

	rest := response[start+len(toolCallStart):]
	end := strings.Index(rest, toolCallEnd)
	if end == -1 {
		return nil
	}

	section := strings.TrimSpace(rest[:end])
	name, paramSection, hasParams := strings.Cut(section, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	params := make(map[string]string)
	if hasParams {
		for _, pair := range strings.Split(paramSection, ",") {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			params[key] = strings.TrimSpace(value)
		}
	}

	return &ToolCall{Name: name, Params: params}
}
