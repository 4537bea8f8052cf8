package provisioning

import (
	"context"
	"fmt"

	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
)

const (
	startupScriptKey = "startup-script"
	bucketKey        = "bucket"
)

// GCEProvisioner implements the Compute interface for Google Compute
// Engine. Operations returned by Insert/Delete are real zone
// operations polled through ZoneOperations.Get.
type GCEProvisioner struct {
	service     *compute.Service
	project     string
	zone        string
	diskImage   string
	machineType string
}

// NewGCEProvisioner creates a new instance of GCEProvisioner.
// Credentials are acquired once here and reused for the provisioner's
// lifetime.
func NewGCEProvisioner(ctx context.Context, project, zone, diskImage, machineType, credentialsFile string) (*GCEProvisioner, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}

	service, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute service: %w", err)
	}

	return &GCEProvisioner{
		service:     service,
		project:     project,
		zone:        zone,
		diskImage:   diskImage,
		machineType: machineType,
	}, nil
}

// InsertInstance issues an asynchronous instance create and returns
// the zone operation name.
func (p *GCEProvisioner) InsertInstance(ctx context.Context, spec InstanceSpec) (string, error) {
	op, err := p.service.Instances.Insert(p.project, p.zone, p.buildInstance(spec)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to insert instance: %w", err)
	}
	return op.Name, nil
}

// DeleteInstance issues an asynchronous instance delete and returns
// the zone operation name.
func (p *GCEProvisioner) DeleteInstance(ctx context.Context, name string) (string, error) {
	op, err := p.service.Instances.Delete(p.project, p.zone, name).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to delete instance: %w", err)
	}
	return op.Name, nil
}

// ListInstances returns every instance in the configured project and
// zone, in provider order.
func (p *GCEProvisioner) ListInstances(ctx context.Context) ([]Instance, error) {
	list, err := p.service.Instances.List(p.project, p.zone).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	instances := make([]Instance, 0, len(list.Items))
	for _, item := range list.Items {
		instances = append(instances, Instance{
			Name:   item.Name,
			Zone:   p.zone,
			Status: mapGCEStatus(item.Status),
			Raw:    item,
		})
	}
	return instances, nil
}

// GetOperation looks up the current status of a zone operation.
func (p *GCEProvisioner) GetOperation(ctx context.Context, id string) (*Operation, error) {
	op, err := p.service.ZoneOperations.Get(p.project, p.zone, id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	result := &Operation{ID: id, Status: OperationPending}
	if op.Status == "DONE" {
		result.Status = OperationDone
		if op.Error != nil && len(op.Error.Errors) > 0 {
			result.Err = fmt.Errorf("%s: %s", op.Error.Errors[0].Code, op.Error.Errors[0].Message)
		}
	}
	return result, nil
}

// buildInstance shapes the instance payload: boot disk from the
// configured image, default network with public NAT, storage and
// logging scopes, and metadata carrying the startup script plus the
// project's default bucket name.
func (p *GCEProvisioner) buildInstance(spec InstanceSpec) *compute.Instance {
	startupScript := spec.StartupScript
	bucket := p.project

	return &compute.Instance{
		Name:        spec.Name,
		MachineType: fmt.Sprintf("zones/%s/machineTypes/%s", p.zone, p.machineType),
		Disks: []*compute.AttachedDisk{
			{
				AutoDelete: true,
				Boot:       true,
				Type:       "PERSISTENT",
				InitializeParams: &compute.AttachedDiskInitializeParams{
					SourceImage: fmt.Sprintf("projects/%s/global/images/%s", p.project, p.diskImage),
				},
			},
		},
		NetworkInterfaces: []*compute.NetworkInterface{
			{
				Network: "global/networks/default",
				AccessConfigs: []*compute.AccessConfig{
					{
						Type: "ONE_TO_ONE_NAT",
						Name: "External NAT",
					},
				},
			},
		},
		ServiceAccounts: []*compute.ServiceAccount{
			{
				Email: "default",
				Scopes: []string{
					"https://www.googleapis.com/auth/devstorage.read_write",
					"https://www.googleapis.com/auth/logging.write",
				},
			},
		},
		Metadata: &compute.Metadata{
			Items: []*compute.MetadataItems{
				{
					Key:   startupScriptKey,
					Value: &startupScript,
				},
				{
					Key:   bucketKey,
					Value: &bucket,
				},
			},
		},
	}
}

func mapGCEStatus(status string) InstanceStatus {
	switch status {
	case "PROVISIONING", "STAGING":
		return StatusProvisioning
	case "RUNNING":
		return StatusRunning
	case "STOPPING", "STOPPED", "TERMINATED":
		return StatusTerminated
	default:
		return StatusUnknown
	}
}
