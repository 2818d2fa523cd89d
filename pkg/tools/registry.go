package tools

import (
	"sync"

	"supportdesk/pkg/api"
)

// ToolRegistry acts as a central inventory for all tools available to the Agent.
// GetAll preserves registration order so the schema advertised to the model
// is stable between turns.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]api.Tool
	order []string
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]api.Tool),
	}
}

// NewDefaultRegistry returns a registry holding the support capabilities
// backed by store.
func NewDefaultRegistry(store *OrderStore) *ToolRegistry {
	tr := NewToolRegistry()
	tr.Register(NewOrderStatusTool(store))
	tr.Register(NewEscalationTool())
	return tr
}

// Register adds a tool to the registry. Registering a name twice replaces the
// implementation but keeps the original position.
func (tr *ToolRegistry) Register(tool api.Tool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if _, exists := tr.tools[tool.Name()]; !exists {
		tr.order = append(tr.order, tool.Name())
	}
	tr.tools[tool.Name()] = tool
}

// Get retrieves a tool by name
func (tr *ToolRegistry) Get(name string) (api.Tool, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	tool, ok := tr.tools[name]
	return tool, ok
}

// GetAll returns all registered tools in registration order.
func (tr *ToolRegistry) GetAll() []api.Tool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	tools := make([]api.Tool, 0, len(tr.order))
	for _, name := range tr.order {
		tools = append(tools, tr.tools[name])
	}
	return tools
}
