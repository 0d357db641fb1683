// Package builder provides a fluent builder for composing workflows client-side before
// submitting them through the SDK.
package builder

import (
	"fmt"

	"github.com/flowforge/orchestrator/sdk/go/models"
)

// WorkflowBuilder accumulates nodes and edges and validates them on Build.
type WorkflowBuilder struct {
	workflow   *models.Workflow
	nodeIDs    map[string]bool
	autoLayout bool
	errs       []error
}

// NewWorkflow starts a builder for a named workflow.
func NewWorkflow(name string, opts ...WorkflowOption) *WorkflowBuilder {
	b := &WorkflowBuilder{
		workflow: &models.Workflow{
			Name:      name,
			Status:    models.WorkflowStatusDraft,
			Version:   1,
			Variables: make(map[string]any),
			Metadata:  make(map[string]any),
		},
		nodeIDs: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddNode appends a node with the given logical ID, display name and type.
func (b *WorkflowBuilder) AddNode(id, name, nodeType string, opts ...NodeOption) *WorkflowBuilder {
	if b.nodeIDs[id] {
		b.errs = append(b.errs, fmt.Errorf("duplicate node id %q", id))
		return b
	}
	node := &models.Node{
		ID:     id,
		Name:   name,
		Type:   nodeType,
		Config: make(map[string]any),
	}
	for _, opt := range opts {
		opt(node)
	}
	b.workflow.Nodes = append(b.workflow.Nodes, node)
	b.nodeIDs[id] = true
	return b
}

// Connect adds a directed edge between two already-added nodes.
func (b *WorkflowBuilder) Connect(from, to string, opts ...EdgeOption) *WorkflowBuilder {
	edge := &models.Edge{
		ID:   fmt.Sprintf("%s-%s", from, to),
		From: from,
		To:   to,
	}
	for _, opt := range opts {
		opt(edge)
	}
	b.workflow.Edges = append(b.workflow.Edges, edge)
	return b
}

// WithAutoLayout assigns grid positions to nodes that have none, left to right in
// insertion order.
func (b *WorkflowBuilder) WithAutoLayout() *WorkflowBuilder {
	b.autoLayout = true
	return b
}

// Build validates the accumulated graph and returns the workflow.
func (b *WorkflowBuilder) Build() (*models.Workflow, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	if b.workflow.Name == "" {
		return nil, fmt.Errorf("workflow name is required")
	}
	for _, edge := range b.workflow.Edges {
		if !b.nodeIDs[edge.From] {
			return nil, fmt.Errorf("edge %s references unknown source node %q", edge.ID, edge.From)
		}
		if !b.nodeIDs[edge.To] {
			return nil, fmt.Errorf("edge %s references unknown target node %q", edge.ID, edge.To)
		}
	}

	if b.autoLayout {
		const spacingX, spacingY = 250.0, 120.0
		for i, node := range b.workflow.Nodes {
			if node.Position == nil {
				node.Position = &models.Position{
					X: float64(i) * spacingX,
					Y: float64(i%2) * spacingY,
				}
			}
		}
	}

	return b.workflow, nil
}

// MustBuild is Build, panicking on validation failure. Intended for static workflow
// definitions where an error is a programming mistake.
func (b *WorkflowBuilder) MustBuild() *models.Workflow {
	wf, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("builder: %v", err))
	}
	return wf
}
