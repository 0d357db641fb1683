package engine

import (
	storagemodels "github.com/flowforge/orchestrator/internal/infrastructure/storage/models"
	"github.com/flowforge/orchestrator/pkg/models"
)

// The engine historically carried its own copies of the storage/domain converters; they
// now live with the storage models, and these aliases keep the engine's call sites stable.

// WorkflowModelToDomain converts storage WorkflowModel to domain Workflow
func WorkflowModelToDomain(wm *storagemodels.WorkflowModel) *models.Workflow {
	return storagemodels.WorkflowModelToDomain(wm)
}

// NodeModelToDomain converts storage NodeModel to domain Node
func NodeModelToDomain(nm *storagemodels.NodeModel) *models.Node {
	return storagemodels.NodeModelToDomain(nm)
}

// EdgeModelToDomain converts storage EdgeModel to domain Edge
func EdgeModelToDomain(em *storagemodels.EdgeModel) *models.Edge {
	return storagemodels.EdgeModelToDomain(em)
}

// ExecutionModelToDomain converts storage ExecutionModel to domain Execution
func ExecutionModelToDomain(exm *storagemodels.ExecutionModel) *models.Execution {
	return storagemodels.ExecutionModelToDomain(exm)
}

// ExecutionDomainToModel converts domain Execution to storage ExecutionModel
func ExecutionDomainToModel(exec *models.Execution) *storagemodels.ExecutionModel {
	return storagemodels.ExecutionDomainToModel(exec)
}

// NodeExecutionModelToDomain converts storage NodeExecutionModel to domain NodeExecution
func NodeExecutionModelToDomain(nem *storagemodels.NodeExecutionModel) *models.NodeExecution {
	return storagemodels.NodeExecutionModelToDomain(nem)
}

// NodeExecutionDomainToModel converts domain NodeExecution to storage NodeExecutionModel
func NodeExecutionDomainToModel(ne *models.NodeExecution) *storagemodels.NodeExecutionModel {
	return storagemodels.NodeExecutionDomainToModel(ne)
}
