package provisioning

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/digitalocean/godo"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
)

// DOProvisioner implements the Compute interface for DigitalOcean.
// The API has no first-class operation objects, so Insert/Delete hand
// out synthetic handles ("create/<id>", "delete/<id>") that
// GetOperation resolves by polling the droplet itself.
type DOProvisioner struct {
	client  *godo.Client
	project string
	region  string
	size    string
	image   string
}

// NewDOProvisioner creates a new instance of DOProvisioner. Outbound
// requests go through a retrying HTTP client; droplets are tagged with
// the project name so listing stays scoped to this fleet.
func NewDOProvisioner(ctx context.Context, token, project, region, size, image string) (*DOProvisioner, error) {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	ctx = context.WithValue(ctx, oauth2.HTTPClient, retryClient.StandardClient())
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client, err := godo.New(oauth2.NewClient(ctx, ts))
	if err != nil {
		return nil, err
	}

	return &DOProvisioner{
		client:  client,
		project: project,
		region:  region,
		size:    size,
		image:   image,
	}, nil
}

// InsertInstance creates a droplet running the startup script as
// cloud-init user data.
func (p *DOProvisioner) InsertInstance(ctx context.Context, spec InstanceSpec) (string, error) {
	createRequest := &godo.DropletCreateRequest{
		Name:   spec.Name,
		Region: p.region,
		Size:   p.size,
		Image: godo.DropletCreateImage{
			Slug: p.image,
		},
		UserData: spec.StartupScript,
		Tags:     []string{p.project},
	}

	droplet, _, err := p.client.Droplets.Create(ctx, createRequest)
	if err != nil {
		return "", fmt.Errorf("failed to create droplet: %w", err)
	}

	return encodeDropletOp("create", droplet.ID), nil
}

// DeleteInstance deletes the droplet with the given name.
func (p *DOProvisioner) DeleteInstance(ctx context.Context, name string) (string, error) {
	droplet, err := p.findDroplet(ctx, name)
	if err != nil {
		return "", err
	}

	if _, err := p.client.Droplets.Delete(ctx, droplet.ID); err != nil {
		return "", fmt.Errorf("failed to delete droplet: %w", err)
	}

	return encodeDropletOp("delete", droplet.ID), nil
}

// ListInstances returns every droplet tagged with the project name.
func (p *DOProvisioner) ListInstances(ctx context.Context) ([]Instance, error) {
	droplets, _, err := p.client.Droplets.ListByTag(ctx, p.project, &godo.ListOptions{PerPage: 200})
	if err != nil {
		return nil, fmt.Errorf("failed to list droplets: %w", err)
	}

	instances := make([]Instance, 0, len(droplets))
	for i := range droplets {
		d := droplets[i]
		instances = append(instances, Instance{
			Name:   d.Name,
			Zone:   d.Region.Slug,
			Status: mapDropletStatus(d.Status),
			Raw:    d,
		})
	}
	return instances, nil
}

// GetOperation resolves a synthetic operation handle. A create is DONE
// once the droplet reports active; a delete is DONE once the droplet
// is gone (404).
func (p *DOProvisioner) GetOperation(ctx context.Context, id string) (*Operation, error) {
	verb, dropletID, err := decodeDropletOp(id)
	if err != nil {
		return nil, err
	}

	droplet, resp, err := p.client.Droplets.Get(ctx, dropletID)
	notFound := resp != nil && resp.StatusCode == http.StatusNotFound

	result := &Operation{ID: id, Status: OperationPending}
	switch verb {
	case "create":
		if err != nil {
			return nil, fmt.Errorf("failed to get droplet: %w", err)
		}
		if droplet.Status == "active" {
			result.Status = OperationDone
		}
	case "delete":
		if notFound {
			result.Status = OperationDone
		} else if err != nil {
			return nil, fmt.Errorf("failed to get droplet: %w", err)
		}
	}
	return result, nil
}

func (p *DOProvisioner) findDroplet(ctx context.Context, name string) (*godo.Droplet, error) {
	droplets, _, err := p.client.Droplets.ListByTag(ctx, p.project, &godo.ListOptions{PerPage: 200})
	if err != nil {
		return nil, fmt.Errorf("failed to list droplets: %w", err)
	}

	for i := range droplets {
		if droplets[i].Name == name {
			return &droplets[i], nil
		}
	}
	return nil, fmt.Errorf("droplet %s not found", name)
}

func encodeDropletOp(verb string, dropletID int) string {
	return fmt.Sprintf("%s/%d", verb, dropletID)
}

func decodeDropletOp(id string) (string, int, error) {
	verb, rest, ok := strings.Cut(id, "/")
	if !ok {
		return "", 0, fmt.Errorf("invalid operation id: %s", id)
	}
	dropletID, err := strconv.Atoi(rest)
	if err != nil {
		return "", 0, fmt.Errorf("invalid operation id %s: %w", id, err)
	}
	if verb != "create" && verb != "delete" {
		return "", 0, fmt.Errorf("invalid operation id: %s", id)
	}
	return verb, dropletID, nil
}

func mapDropletStatus(status string) InstanceStatus {
	switch status {
	case "new":
		return StatusProvisioning
	case "active":
		return StatusRunning
	case "off", "archive":
		return StatusTerminated
	default:
		return StatusUnknown
	}
}
