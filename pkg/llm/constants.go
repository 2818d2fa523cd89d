package llm

// Message roles understood by every provider adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// StopReason constants define normalized reasons for generation termination.
// All providers must normalize their native stop reasons to these values.
const (
	StopReasonStop     = "stop"       // Normal completion
	StopReasonLength   = "length"     // Output truncated due to token limit
	StopReasonToolCall = "tool_calls" // Model delegated work to tools
)

// ValidRole reports whether role is one of the four conversation roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}
