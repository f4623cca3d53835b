package mcp

import (
	"sort"
	"sync"

	"github.com/mcp-tg/github-reader/internal/pipeline"
)

// ToolRegistry holds the descriptors of all registered tools. The pipeline
// receives descriptors directly per invocation; the registry exists for
// introspection and tests.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*pipeline.Descriptor
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]*pipeline.Descriptor),
	}
}

// Register adds a tool descriptor to the registry.
func (r *ToolRegistry) Register(desc *pipeline.Descriptor) {
	if desc == nil || desc.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[desc.Name] = desc
}

// Get returns the descriptor for a specific tool.
func (r *ToolRegistry) Get(name string) (*pipeline.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.tools[name]
	return desc, ok
}

// List returns all registered descriptors sorted by name.
func (r *ToolRegistry) List() []*pipeline.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*pipeline.Descriptor, 0, len(r.tools))
	for _, desc := range r.tools {
		result = append(result, desc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ListByTag returns all descriptors carrying the given tag, sorted by name.
func (r *ToolRegistry) ListByTag(tag string) []*pipeline.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*pipeline.Descriptor, 0)
	for _, desc := range r.tools {
		if desc.HasTag(tag) {
			result = append(result, desc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Count returns the total number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
