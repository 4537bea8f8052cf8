package fleet

import (
	"context"
	"fmt"
	"os"

	"github.com/m45t3r/google-cloud-bench/internal/config"
	"github.com/m45t3r/google-cloud-bench/internal/logging"
	"github.com/m45t3r/google-cloud-bench/internal/provisioning"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager drives the create/delete lifecycle for one homogeneous batch
// of instances and keeps the in-memory roster. The roster is rebuilt
// wholesale from a list call after every create batch; drift caused by
// external changes is not reconciled.
type Manager struct {
	cloud  provisioning.Compute
	waiter *Waiter
	logger *zap.Logger

	project       string
	zone          string
	count         int
	startupScript string

	roster []provisioning.Instance
}

// NewManager creates a Manager for the configured fleet.
func NewManager(cfg *config.Config, cloud provisioning.Compute, waiter *Waiter, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Debug("using the following configuration",
		zap.String("disk_image", cfg.DiskImage),
		zap.String("machine_type", cfg.MachineType),
		zap.String("zone", cfg.Zone),
		zap.String("project", cfg.Project),
		zap.Int("instance_count", cfg.InstanceCount))

	return &Manager{
		cloud:         cloud,
		waiter:        waiter,
		logger:        logger,
		project:       cfg.Project,
		zone:          cfg.Zone,
		count:         cfg.InstanceCount,
		startupScript: cfg.StartupScript,
	}
}

// CreateAll creates the configured number of instances, waits for
// every create operation to finish and refreshes the roster. The first
// failed create call aborts the batch; instances already requested are
// not rolled back.
func (m *Manager) CreateAll(ctx context.Context) error {
	batch := uuid.NewString()
	m.logger.Info("creating instances", zap.Int("count", m.count), zap.String("batch", batch))

	// The script is read once per invocation and embedded verbatim
	// into every instance.
	script, err := os.ReadFile(m.startupScript)
	if err != nil {
		return fmt.Errorf("reading startup script: %w", err)
	}
	m.logger.Debug("loaded startup script",
		zap.String("path", m.startupScript),
		zap.String("content", logging.Truncate(string(script))))

	operations := make([]string, 0, m.count)
	for i := 0; i < m.count; i++ {
		name := fmt.Sprintf("%s-%d", m.project, i)
		opID, err := m.cloud.InsertInstance(ctx, provisioning.InstanceSpec{
			Name:          name,
			StartupScript: string(script),
		})
		if err != nil {
			return fmt.Errorf("creating instance %s: %w", name, err)
		}
		m.logger.Debug("creating instance",
			zap.String("name", name),
			zap.String("operation", opID),
			zap.String("batch", batch))
		operations = append(operations, opID)
	}

	if err := m.waiter.WaitAll(ctx, operations); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// DeleteAll deletes every instance in the roster, waits for the delete
// operations to finish and clears the roster.
func (m *Manager) DeleteAll(ctx context.Context) error {
	batch := uuid.NewString()
	m.logger.Info("deleting all instances", zap.Int("count", len(m.roster)), zap.String("batch", batch))

	operations := make([]string, 0, len(m.roster))
	for _, instance := range m.roster {
		opID, err := m.cloud.DeleteInstance(ctx, instance.Name)
		if err != nil {
			return fmt.Errorf("deleting instance %s: %w", instance.Name, err)
		}
		m.logger.Debug("deleting instance",
			zap.String("name", instance.Name),
			zap.String("operation", opID),
			zap.String("batch", batch))
		operations = append(operations, opID)
	}

	if err := m.waiter.WaitAll(ctx, operations); err != nil {
		return err
	}
	m.roster = nil
	return nil
}

// ListInstances queries the provider for the current instances. Zero
// instances is an error, not an empty success.
func (m *Manager) ListInstances(ctx context.Context) ([]provisioning.Instance, error) {
	instances, err := m.cloud.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	if len(instances) == 0 {
		return nil, &EmptyRosterError{Project: m.project, Zone: m.zone}
	}
	return instances, nil
}

// Refresh rebuilds the roster from a list call.
func (m *Manager) Refresh(ctx context.Context) error {
	instances, err := m.ListInstances(ctx)
	if err != nil {
		return err
	}
	m.roster = instances
	return nil
}

// Roster returns the instances known from the last successful create
// or refresh.
func (m *Manager) Roster() []provisioning.Instance {
	return m.roster
}
