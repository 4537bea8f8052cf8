package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// ProviderType identifies which cloud backend provisions the fleet.
type ProviderType string

const (
	ProviderGCE          ProviderType = "gce"
	ProviderDigitalOcean ProviderType = "digitalocean"
	ProviderAWS          ProviderType = "aws"
	ProviderYandexCloud  ProviderType = "yandex_cloud"
)

// GCEConfig contains Google Compute Engine connection parameters.
type GCEConfig struct {
	// Path to a service account JSON key. Empty means application
	// default credentials.
	CredentialsFile string `yaml:"credentials_file"`
}

// DigitalOceanConfig contains DigitalOcean connection parameters.
type DigitalOceanConfig struct {
	Token string `yaml:"token"`
}

// AWSConfig contains AWS connection parameters. Empty keys fall back
// to the default credential chain.
type AWSConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// YandexCloudConfig contains Yandex Cloud connection parameters.
type YandexCloudConfig struct {
	IAMToken string `yaml:"iam_token"`
	FolderID string `yaml:"folder_id"`
	Cores    int    `yaml:"cores"`
	Memory   int64  `yaml:"memory"`    // in GB
	DiskSize int64  `yaml:"disk_size"` // in GB
}

// ProviderConfig is a discriminated union over the supported backends.
type ProviderConfig struct {
	Type         ProviderType        `yaml:"type"`
	GCE          *GCEConfig          `yaml:"gce"`
	DigitalOcean *DigitalOceanConfig `yaml:"digitalocean"`
	AWS          *AWSConfig          `yaml:"aws"`
	YandexCloud  *YandexCloudConfig  `yaml:"yandex_cloud"`
}

// Config contains application configuration. The fleet parameters are
// immutable after Load; zone, disk image and machine type are
// interpreted by the active provider (region/size/slug on
// DigitalOcean, availability zone/instance type/AMI on AWS).
type Config struct {
	Zone          string `yaml:"zone"`
	Project       string `yaml:"project"`
	DiskImage     string `yaml:"disk_image"`
	MachineType   string `yaml:"machine_type"`
	InstanceCount int    `yaml:"instance_count"`

	// Startup script embedded into every instance, read once per
	// create cycle.
	StartupScript string `yaml:"startup_script"`

	// Operation polling knobs. MaxPolls of 0 waits forever.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	MaxPolls            int `yaml:"max_polls"`

	Provider ProviderConfig `yaml:"provider"`
}

// PollInterval returns the configured polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Load loads configuration from a YAML file. An empty path falls back
// to the CONFIG_PATH environment variable, then to
// google-cloud-bench.yaml in the working directory.
func Load(path string) (*Config, error) {
	config := &Config{
		Zone:                "us-central1-f",
		Project:             "default",
		DiskImage:           "image",
		MachineType:         "n1-standard-1",
		InstanceCount:       1,
		StartupScript:       "startup-script.sh",
		PollIntervalSeconds: 1,
		Provider: ProviderConfig{
			Type: ProviderGCE,
			GCE:  &GCEConfig{},
		},
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "google-cloud-bench.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	// Expand environment variables in string fields
	config.Zone = os.ExpandEnv(config.Zone)
	config.Project = os.ExpandEnv(config.Project)
	config.DiskImage = os.ExpandEnv(config.DiskImage)
	config.MachineType = os.ExpandEnv(config.MachineType)
	config.StartupScript = os.ExpandEnv(config.StartupScript)

	if c := config.Provider.GCE; c != nil {
		c.CredentialsFile = os.ExpandEnv(c.CredentialsFile)
	}
	if c := config.Provider.DigitalOcean; c != nil {
		c.Token = os.ExpandEnv(c.Token)
		if token := os.Getenv("DIGITALOCEAN_TOKEN"); token != "" {
			c.Token = token
		}
	}
	if c := config.Provider.AWS; c != nil {
		c.Region = os.ExpandEnv(c.Region)
		c.AccessKey = os.ExpandEnv(c.AccessKey)
		c.SecretKey = os.ExpandEnv(c.SecretKey)
	}
	if c := config.Provider.YandexCloud; c != nil {
		c.IAMToken = os.ExpandEnv(c.IAMToken)
		c.FolderID = os.ExpandEnv(c.FolderID)
		if token := os.Getenv("YC_TOKEN"); token != "" {
			c.IAMToken = token
		}
		if folderID := os.Getenv("YC_FOLDER_ID"); folderID != "" {
			c.FolderID = folderID
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Project == "" {
		return fmt.Errorf("project is required")
	}
	if c.InstanceCount < 0 {
		return fmt.Errorf("instance_count must not be negative, got %d", c.InstanceCount)
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive, got %d", c.PollIntervalSeconds)
	}

	switch c.Provider.Type {
	case ProviderGCE, ProviderDigitalOcean, ProviderAWS, ProviderYandexCloud:
		return nil
	default:
		return fmt.Errorf("unsupported provider type: %s", c.Provider.Type)
	}
}
