package provisioning

import "context"

// InstanceStatus is a provider-independent instance lifecycle state.
type InstanceStatus string

const (
	StatusProvisioning InstanceStatus = "PROVISIONING"
	StatusRunning      InstanceStatus = "RUNNING"
	StatusTerminated   InstanceStatus = "TERMINATED"
	StatusUnknown      InstanceStatus = "UNKNOWN"
)

// OperationStatus is the state of an asynchronous provider operation.
type OperationStatus string

const (
	OperationPending OperationStatus = "PENDING"
	OperationDone    OperationStatus = "DONE"
)

// Instance is one fleet member as reported by the provider.
type Instance struct {
	// Name is unique within a project and zone.
	Name   string
	Zone   string
	Status InstanceStatus

	// Raw keeps the provider-specific record for callers that need
	// fields outside the common surface.
	Raw interface{}
}

// Operation is a provider-side handle for an in-flight create or
// delete. It exists only for the duration of a wait cycle.
type Operation struct {
	ID     string
	Status OperationStatus

	// Err carries the operation error payload, set only once the
	// operation is DONE and failed.
	Err error
}

// InstanceSpec describes a single instance to create. Shape parameters
// (image, machine type, zone) live in the provider configuration; the
// spec carries only the per-instance pieces.
type InstanceSpec struct {
	Name          string
	StartupScript string
}

// Compute is the remote provider surface the fleet controller depends
// on. Insert and Delete return an operation id to be polled through
// GetOperation until DONE.
type Compute interface {
	InsertInstance(ctx context.Context, spec InstanceSpec) (string, error)
	DeleteInstance(ctx context.Context, name string) (string, error)
	ListInstances(ctx context.Context) ([]Instance, error)
	GetOperation(ctx context.Context, id string) (*Operation, error)
}
