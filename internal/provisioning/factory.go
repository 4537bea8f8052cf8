package provisioning

import (
	"context"
	"fmt"

	"github.com/m45t3r/google-cloud-bench/internal/config"
)

// NewCompute creates a provider backend based on config type (factory
// pattern). This implements the discriminated union dispatch.
func NewCompute(ctx context.Context, cfg *config.Config) (Compute, error) {
	switch cfg.Provider.Type {
	case config.ProviderGCE:
		gce := cfg.Provider.GCE
		if gce == nil {
			gce = &config.GCEConfig{}
		}
		return NewGCEProvisioner(ctx, cfg.Project, cfg.Zone, cfg.DiskImage, cfg.MachineType, gce.CredentialsFile)

	case config.ProviderDigitalOcean:
		if cfg.Provider.DigitalOcean == nil {
			return nil, fmt.Errorf("digitalocean config is nil")
		}
		return NewDOProvisioner(ctx, cfg.Provider.DigitalOcean.Token, cfg.Project, cfg.Zone, cfg.MachineType, cfg.DiskImage)

	case config.ProviderAWS:
		if cfg.Provider.AWS == nil {
			return nil, fmt.Errorf("aws config is nil")
		}
		aws := cfg.Provider.AWS
		return NewAWSProvisioner(ctx, aws.Region, aws.AccessKey, aws.SecretKey, cfg.Project, cfg.Zone, cfg.MachineType, cfg.DiskImage)

	case config.ProviderYandexCloud:
		if cfg.Provider.YandexCloud == nil {
			return nil, fmt.Errorf("yandex_cloud config is nil")
		}
		yc := cfg.Provider.YandexCloud
		return NewYcProvisioner(ctx, yc.IAMToken, yc.FolderID, cfg.Project, cfg.Zone, cfg.DiskImage,
			int64(yc.Cores), yc.Memory, yc.DiskSize)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider.Type)
	}
}
