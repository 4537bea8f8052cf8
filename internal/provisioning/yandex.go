package provisioning

import (
	"context"
	"fmt"
	"strings"

	computev1 "github.com/yandex-cloud/go-genproto/yandex/cloud/compute/v1"
	operationv1 "github.com/yandex-cloud/go-genproto/yandex/cloud/operation"
	"github.com/yandex-cloud/go-genproto/yandex/cloud/vpc/v1"
	ycsdk "github.com/yandex-cloud/go-sdk"
)

// YcProvisioner implements the Compute interface for Yandex Cloud.
// Create and Delete return real operation ids polled through the
// operation service.
type YcProvisioner struct {
	sdk        *ycsdk.SDK
	folderID   string
	project    string
	zone       string
	imageID    string
	cores      int64
	memoryGB   int64
	diskSizeGB int64
}

// NewYcProvisioner creates a new instance of YcProvisioner.
func NewYcProvisioner(ctx context.Context, iamToken, folderID, project, zone, imageID string, cores, memoryGB, diskSizeGB int64) (*YcProvisioner, error) {
	sdk, err := ycsdk.Build(ctx, ycsdk.Config{
		Credentials: ycsdk.NewIAMTokenCredentials(iamToken),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SDK: %w", err)
	}

	if cores <= 0 {
		cores = 2
	}
	if memoryGB <= 0 {
		memoryGB = 2
	}
	if diskSizeGB <= 0 {
		diskSizeGB = 20
	}

	return &YcProvisioner{
		sdk:        sdk,
		folderID:   folderID,
		project:    project,
		zone:       zone,
		imageID:    imageID,
		cores:      cores,
		memoryGB:   memoryGB,
		diskSizeGB: diskSizeGB,
	}, nil
}

// InsertInstance issues an asynchronous instance create and returns
// the operation id.
func (p *YcProvisioner) InsertInstance(ctx context.Context, spec InstanceSpec) (string, error) {
	subnetID, err := p.findSubnet(ctx)
	if err != nil {
		return "", err
	}

	request := &computev1.CreateInstanceRequest{
		FolderId:   p.folderID,
		Name:       spec.Name,
		ZoneId:     p.zone,
		PlatformId: "standard-v1",
		ResourcesSpec: &computev1.ResourcesSpec{
			Cores:  p.cores,
			Memory: p.memoryGB * 1024 * 1024 * 1024,
		},
		BootDiskSpec: &computev1.AttachedDiskSpec{
			AutoDelete: true,
			Disk: &computev1.AttachedDiskSpec_DiskSpec_{
				DiskSpec: &computev1.AttachedDiskSpec_DiskSpec{
					TypeId: "network-hdd",
					Size:   p.diskSizeGB * 1024 * 1024 * 1024,
					Source: &computev1.AttachedDiskSpec_DiskSpec_ImageId{
						ImageId: p.imageID,
					},
				},
			},
		},
		NetworkInterfaceSpecs: []*computev1.NetworkInterfaceSpec{
			{
				SubnetId: subnetID,
				PrimaryV4AddressSpec: &computev1.PrimaryAddressSpec{
					OneToOneNatSpec: &computev1.OneToOneNatSpec{
						IpVersion: computev1.IpVersion_IPV4,
					},
				},
			},
		},
		Metadata: map[string]string{
			"user-data": spec.StartupScript,
		},
	}

	op, err := p.sdk.Compute().Instance().Create(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to create VM: %w", err)
	}
	return op.Id, nil
}

// DeleteInstance issues an asynchronous delete for the named instance
// and returns the operation id.
func (p *YcProvisioner) DeleteInstance(ctx context.Context, name string) (string, error) {
	instanceID, err := p.findInstanceID(ctx, name)
	if err != nil {
		return "", err
	}

	op, err := p.sdk.Compute().Instance().Delete(ctx, &computev1.DeleteInstanceRequest{
		InstanceId: instanceID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to delete VM: %w", err)
	}
	return op.Id, nil
}

// ListInstances returns every instance in the folder whose name
// carries the project prefix.
func (p *YcProvisioner) ListInstances(ctx context.Context) ([]Instance, error) {
	resp, err := p.sdk.Compute().Instance().List(ctx, &computev1.ListInstancesRequest{
		FolderId: p.folderID,
		PageSize: 1000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list VMs: %w", err)
	}

	var instances []Instance
	for _, inst := range resp.Instances {
		if !strings.HasPrefix(inst.Name, p.project+"-") {
			continue
		}
		instances = append(instances, Instance{
			Name:   inst.Name,
			Zone:   inst.ZoneId,
			Status: mapYcStatus(inst.Status),
			Raw:    inst,
		})
	}
	return instances, nil
}

// GetOperation looks up the current status of an operation.
func (p *YcProvisioner) GetOperation(ctx context.Context, id string) (*Operation, error) {
	op, err := p.sdk.Operation().Get(ctx, &operationv1.GetOperationRequest{
		OperationId: id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	result := &Operation{ID: id, Status: OperationPending}
	if op.Done {
		result.Status = OperationDone
		if errStatus := op.GetError(); errStatus != nil {
			result.Err = fmt.Errorf("%s", errStatus.GetMessage())
		}
	}
	return result, nil
}

func (p *YcProvisioner) findInstanceID(ctx context.Context, name string) (string, error) {
	resp, err := p.sdk.Compute().Instance().List(ctx, &computev1.ListInstancesRequest{
		FolderId: p.folderID,
		Filter:   fmt.Sprintf("name = %q", name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to list VMs: %w", err)
	}
	if len(resp.Instances) == 0 {
		return "", fmt.Errorf("VM %s not found", name)
	}
	return resp.Instances[0].Id, nil
}

// findSubnet picks the first subnet in the configured zone.
func (p *YcProvisioner) findSubnet(ctx context.Context) (string, error) {
	resp, err := p.sdk.VPC().Subnet().List(ctx, &vpc.ListSubnetsRequest{
		FolderId: p.folderID,
		PageSize: 100,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list subnets: %w", err)
	}

	for _, subnet := range resp.Subnets {
		if subnet.ZoneId == p.zone {
			return subnet.Id, nil
		}
	}
	return "", fmt.Errorf("no subnet found in zone %s", p.zone)
}

func mapYcStatus(status computev1.Instance_Status) InstanceStatus {
	switch status {
	case computev1.Instance_PROVISIONING, computev1.Instance_STARTING:
		return StatusProvisioning
	case computev1.Instance_RUNNING:
		return StatusRunning
	case computev1.Instance_STOPPING, computev1.Instance_STOPPED, computev1.Instance_DELETING:
		return StatusTerminated
	default:
		return StatusUnknown
	}
}
