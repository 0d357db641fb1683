package engine

import (
	"context"
	"encoding/json"

	"github.com/flowforge/orchestrator/pkg/models"
)

// findNodeByID finds a node by ID in a slice of nodes
func findNodeByID(nodes []*models.Node, nodeID string) *models.Node {
	for _, node := range nodes {
		if node.ID == nodeID {
			return node
		}
	}
	return nil
}

// collectIncomingEdges collects all edges that have the given node as target
func collectIncomingEdges(edges []*models.Edge, targetNodeID string) []*models.Edge {
	var incoming []*models.Edge
	for _, edge := range edges {
		if edge.To == targetNodeID {
			incoming = append(incoming, edge)
		}
	}
	return incoming
}

// collectOutgoingEdges collects all edges that have the given node as source
func collectOutgoingEdges(edges []*models.Edge, sourceNodeID string) []*models.Edge {
	var outgoing []*models.Edge
	for _, edge := range edges {
		if edge.From == sourceNodeID {
			outgoing = append(outgoing, edge)
		}
	}
	return outgoing
}

// getNodePriority extracts priority from node metadata, returns default if not found
func getNodePriority(node *models.Node) int {
	if node.Metadata == nil {
		return DefaultNodePriority
	}

	if priority, ok := node.Metadata["priority"]; ok {
		switch p := priority.(type) {
		case int:
			return p
		case float64:
			return int(p)
		case int64:
			return int(p)
		}
	}

	return DefaultNodePriority
}

// getNodeTimeout extracts timeout from node config, returns 0 if not found
func getNodeTimeout(node *models.Node) int64 {
	if node.Config == nil {
		return 0
	}

	if timeout, ok := node.Config["timeout"]; ok {
		switch t := timeout.(type) {
		case int:
			return int64(t)
		case int64:
			return t
		case float64:
			return int64(t)
		}
	}

	return 0
}

// emittedEventDecl is one entry of a node output's reserved "_emitEvents" declaration.
type emittedEventDecl struct {
	Name    string
	Payload map[string]interface{}
}

// extractEmittedEvents reads the reserved "_emitEvents" key a node's output may carry: a
// list of {"name": ..., "payload": {...}} entries. Anything else in the output is
// left untouched; absence of the key is the common case and yields no events.
func extractEmittedEvents(output interface{}) []emittedEventDecl {
	m := toMapInterface(output)
	if m == nil {
		return nil
	}
	raw, ok := m["_emitEvents"]
	if !ok {
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]emittedEventDecl, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		if name == "" {
			continue
		}
		payload, _ := entry["payload"].(map[string]interface{})
		out = append(out, emittedEventDecl{Name: name, Payload: payload})
	}
	return out
}

// extractBackgroundActions reads the reserved "_backgroundActions" key a node's output may
// carry. Unlike "_emitEvents" the key is removed from the output map: the entries are live
// function values that must never reach serialization.
func extractBackgroundActions(output interface{}) []BackgroundAction {
	m, ok := output.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := m["_backgroundActions"]
	if !ok {
		return nil
	}
	delete(m, "_backgroundActions")

	switch actions := raw.(type) {
	case []BackgroundAction:
		return actions
	case BackgroundAction:
		return []BackgroundAction{actions}
	case []func(ctx context.Context) error:
		out := make([]BackgroundAction, 0, len(actions))
		for _, fn := range actions {
			out = append(out, BackgroundAction(fn))
		}
		return out
	case func(ctx context.Context) error:
		return []BackgroundAction{BackgroundAction(actions)}
	case []interface{}:
		out := make([]BackgroundAction, 0, len(actions))
		for _, item := range actions {
			if fn, ok := item.(func(ctx context.Context) error); ok {
				out = append(out, BackgroundAction(fn))
			}
		}
		return out
	}
	return nil
}

// toMapInterface converts any value to map[string]interface{}.
// Fast path for already-map values, JSON roundtrip for structs.
func toMapInterface(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{"value": v}
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]interface{}{"value": v}
	}
	return result
}
