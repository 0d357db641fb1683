package builder

import "github.com/flowforge/orchestrator/sdk/go/models"

// Typed node helpers: thin wrappers over AddNode for the common built-in node types, each
// with its own option vocabulary writing into the node's config map.

// AddHTTPNode appends an "http" node.
func (b *WorkflowBuilder) AddHTTPNode(id, name string, opts ...NodeOption) *WorkflowBuilder {
	return b.AddNode(id, name, "http", opts...)
}

// AddLLMNode appends an "llm" node.
func (b *WorkflowBuilder) AddLLMNode(id, name string, opts ...NodeOption) *WorkflowBuilder {
	return b.AddNode(id, name, "llm", opts...)
}

// AddTransformNode appends a "transform" node.
func (b *WorkflowBuilder) AddTransformNode(id, name string, opts ...NodeOption) *WorkflowBuilder {
	return b.AddNode(id, name, "transform", opts...)
}

// AddConditionalNode appends a "conditional" node.
func (b *WorkflowBuilder) AddConditionalNode(id, name string, opts ...NodeOption) *WorkflowBuilder {
	return b.AddNode(id, name, "conditional", opts...)
}

// AddSubWorkflowNode appends a "sub_workflow" node.
func (b *WorkflowBuilder) AddSubWorkflowNode(id, name string, opts ...NodeOption) *WorkflowBuilder {
	return b.AddNode(id, name, "sub_workflow", opts...)
}

// URL sets the request URL of an http node.
func URL(url string) NodeOption {
	return WithConfig("url", url)
}

// Method sets the request method of an http node.
func Method(method string) NodeOption {
	return WithConfig("method", method)
}

// Header adds one request header on an http node.
func Header(key, value string) NodeOption {
	return func(n *models.Node) {
		headers, _ := n.Config["headers"].(map[string]string)
		if headers == nil {
			headers = make(map[string]string)
			n.Config["headers"] = headers
		}
		headers[key] = value
	}
}

// Provider sets the LLM provider of an llm node.
func Provider(provider string) NodeOption {
	return WithConfig("provider", provider)
}

// Model sets the model name of an llm node.
func Model(model string) NodeOption {
	return WithConfig("model", model)
}

// Prompt sets the prompt template of an llm node.
func Prompt(prompt string) NodeOption {
	return WithConfig("prompt", prompt)
}

// APIKey sets the provider API key of an llm node.
func APIKey(key string) NodeOption {
	return WithConfig("api_key", key)
}

// Temperature sets the sampling temperature of an llm node.
func Temperature(t float64) NodeOption {
	return WithConfig("temperature", t)
}

// MaxTokens caps the completion size of an llm node.
func MaxTokens(n int) NodeOption {
	return WithConfig("max_tokens", n)
}

// TransformType selects the transform engine (jq, template, passthrough).
func TransformType(t string) NodeOption {
	return WithConfig("type", t)
}

// TransformExpression sets the transform expression.
func TransformExpression(expr string) NodeOption {
	return WithConfig("expression", expr)
}

// Expression sets the condition of a conditional node.
func Expression(expr string) NodeOption {
	return WithConfig("expression", expr)
}

// WorkflowID points a sub_workflow node at its child workflow.
func WorkflowID(id string) NodeOption {
	return WithConfig("workflow_id", id)
}

// ForEach fans a sub_workflow node out over a collection expression.
func ForEach(expr string) NodeOption {
	return WithConfig("for_each", expr)
}

// ItemVar names the per-item variable of a ForEach sub_workflow node.
func ItemVar(name string) NodeOption {
	return WithConfig("item_var", name)
}

// MaxParallelism caps concurrent child runs of a ForEach sub_workflow node.
func MaxParallelism(n int) NodeOption {
	return WithConfig("max_parallelism", n)
}
