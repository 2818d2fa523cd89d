package llm

// Tool describes a capability advertised to the completion provider.
// Execution lives in the api package; clients only need the declaration.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON-schema "properties" object.
	Parameters() map[string]any
	RequiredParameters() []string
}

// ToolSchema renders the parameter schema of t as a JSON-schema object.
func ToolSchema(t Tool) map[string]any {
	props := t.Parameters()
	if props == nil {
		props = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if req := t.RequiredParameters(); len(req) > 0 {
		schema["required"] = req
	}
	return schema
}
