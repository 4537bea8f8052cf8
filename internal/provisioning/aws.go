package provisioning

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// fleetTag scopes instances to one fleet; its value is the project.
const fleetTag = "fleet"

// AWSProvisioner implements the Compute interface for AWS EC2. EC2
// operations are synchronous calls plus instance state transitions, so
// Insert/Delete hand out synthetic handles ("run/<id>",
// "terminate/<id>") resolved by polling the instance state.
type AWSProvisioner struct {
	client      *ec2.Client
	project     string
	zone        string
	machineType string
	image       string
}

// NewAWSProvisioner creates a new instance of AWSProvisioner. Empty
// access keys fall back to the default credential chain.
func NewAWSProvisioner(ctx context.Context, region, accessKey, secretKey, project, zone, machineType, image string) (*AWSProvisioner, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSProvisioner{
		client:      ec2.NewFromConfig(cfg),
		project:     project,
		zone:        zone,
		machineType: machineType,
		image:       image,
	}, nil
}

// InsertInstance launches an EC2 instance with the startup script as
// user data.
func (p *AWSProvisioner) InsertInstance(ctx context.Context, spec InstanceSpec) (string, error) {
	encodedUserData := base64.StdEncoding.EncodeToString([]byte(spec.StartupScript))

	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(p.image),
		InstanceType: types.InstanceType(p.machineType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		UserData:     aws.String(encodedUserData),
		Placement: &types.Placement{
			AvailabilityZone: aws.String(p.zone),
		},
		TagSpecifications: []types.TagSpecification{
			{
				ResourceType: types.ResourceTypeInstance,
				Tags: []types.Tag{
					{Key: aws.String("Name"), Value: aws.String(spec.Name)},
					{Key: aws.String(fleetTag), Value: aws.String(p.project)},
				},
			},
		},
	}

	output, err := p.client.RunInstances(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run instance: %w", err)
	}

	return encodeEC2Op("run", aws.ToString(output.Instances[0].InstanceId)), nil
}

// DeleteInstance terminates the instance with the given Name tag.
func (p *AWSProvisioner) DeleteInstance(ctx context.Context, name string) (string, error) {
	instanceID, err := p.findInstanceID(ctx, name)
	if err != nil {
		return "", err
	}

	if _, err := p.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	}); err != nil {
		return "", fmt.Errorf("failed to terminate instance: %w", err)
	}

	return encodeEC2Op("terminate", instanceID), nil
}

// ListInstances returns every pending or running instance tagged with
// the project name.
func (p *AWSProvisioner) ListInstances(ctx context.Context) ([]Instance, error) {
	desc, err := p.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: aws.String("tag:" + fleetTag), Values: []string{p.project}},
			{Name: aws.String("instance-state-name"), Values: []string{"pending", "running"}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe instances: %w", err)
	}

	var instances []Instance
	for _, reservation := range desc.Reservations {
		for i := range reservation.Instances {
			inst := reservation.Instances[i]
			instances = append(instances, Instance{
				Name:   ec2NameTag(inst.Tags),
				Zone:   aws.ToString(inst.Placement.AvailabilityZone),
				Status: mapEC2State(inst.State.Name),
				Raw:    inst,
			})
		}
	}
	return instances, nil
}

// GetOperation resolves a synthetic operation handle from the current
// instance state.
func (p *AWSProvisioner) GetOperation(ctx context.Context, id string) (*Operation, error) {
	verb, instanceID, err := decodeEC2Op(id)
	if err != nil {
		return nil, err
	}

	desc, err := p.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe instance: %w", err)
	}
	if len(desc.Reservations) == 0 || len(desc.Reservations[0].Instances) == 0 {
		return nil, fmt.Errorf("instance %s not found", instanceID)
	}

	state := desc.Reservations[0].Instances[0].State.Name
	result := &Operation{ID: id, Status: OperationPending}
	switch verb {
	case "run":
		switch state {
		case types.InstanceStateNameRunning:
			result.Status = OperationDone
		case types.InstanceStateNameShuttingDown, types.InstanceStateNameTerminated, types.InstanceStateNameStopped:
			result.Status = OperationDone
			result.Err = fmt.Errorf("instance %s entered state %s during launch", instanceID, state)
		}
	case "terminate":
		if state == types.InstanceStateNameTerminated {
			result.Status = OperationDone
		}
	}
	return result, nil
}

func (p *AWSProvisioner) findInstanceID(ctx context.Context, name string) (string, error) {
	desc, err := p.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: aws.String("tag:Name"), Values: []string{name}},
			{Name: aws.String("tag:" + fleetTag), Values: []string{p.project}},
			{Name: aws.String("instance-state-name"), Values: []string{"pending", "running"}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe instances: %w", err)
	}

	for _, reservation := range desc.Reservations {
		for _, inst := range reservation.Instances {
			return aws.ToString(inst.InstanceId), nil
		}
	}
	return "", fmt.Errorf("instance %s not found", name)
}

func ec2NameTag(tags []types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}

func encodeEC2Op(verb, instanceID string) string {
	return verb + "/" + instanceID
}

func decodeEC2Op(id string) (string, string, error) {
	verb, instanceID, ok := strings.Cut(id, "/")
	if !ok || instanceID == "" {
		return "", "", fmt.Errorf("invalid operation id: %s", id)
	}
	if verb != "run" && verb != "terminate" {
		return "", "", fmt.Errorf("invalid operation id: %s", id)
	}
	return verb, instanceID, nil
}

func mapEC2State(state types.InstanceStateName) InstanceStatus {
	switch state {
	case types.InstanceStateNamePending:
		return StatusProvisioning
	case types.InstanceStateNameRunning:
		return StatusRunning
	case types.InstanceStateNameShuttingDown, types.InstanceStateNameStopped, types.InstanceStateNameTerminated:
		return StatusTerminated
	default:
		return StatusUnknown
	}
}
