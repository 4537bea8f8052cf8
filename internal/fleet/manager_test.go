package fleet_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/m45t3r/google-cloud-bench/internal/config"
	"github.com/m45t3r/google-cloud-bench/internal/fleet"
	"github.com/m45t3r/google-cloud-bench/internal/provisioning"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

const startupScript = "#!/bin/bash\necho benchmark\n"

var _ = Describe("Manager", func() {
	var (
		cloud   *fakeCloud
		manager *fleet.Manager
		cfg     *config.Config
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		cloud = newFakeCloud()

		scriptPath := filepath.Join(GinkgoT().TempDir(), "startup-script.sh")
		Expect(os.WriteFile(scriptPath, []byte(startupScript), 0644)).To(Succeed())

		cfg = &config.Config{
			Zone:          "us-central1-f",
			Project:       "demo",
			DiskImage:     "bench-image",
			MachineType:   "n1-standard-1",
			InstanceCount: 3,
			StartupScript: scriptPath,
		}

		waiter := fleet.NewWaiter(cloud, time.Second, 0, zap.NewNop())
		waiter.SetSleeper(&fakeSleeper{})
		manager = fleet.NewManager(cfg, cloud, waiter, zap.NewNop())
	})

	Describe("CreateAll", func() {
		BeforeEach(func() {
			cloud.instances = []provisioning.Instance{
				{Name: "demo-0", Status: provisioning.StatusRunning},
				{Name: "demo-1", Status: provisioning.StatusRunning},
				{Name: "demo-2", Status: provisioning.StatusRunning},
			}
		})

		It("issues one create per instance with deterministic names, then one list", func() {
			Expect(manager.CreateAll(ctx)).To(Succeed())

			Expect(cloud.inserts).To(HaveLen(3))
			for i, spec := range cloud.inserts {
				Expect(spec.Name).To(Equal(fmt.Sprintf("demo-%d", i)))
				Expect(spec.StartupScript).To(Equal(startupScript))
			}
			Expect(cloud.listCalls).To(Equal(1))
			Expect(manager.Roster()).To(HaveLen(3))
		})

		It("fails fast on the first rejected create without compensating deletes", func() {
			cloud.failInsertAt = 1

			err := manager.CreateAll(ctx)
			Expect(err).To(MatchError(ContainSubstring("insert refused for demo-1")))

			Expect(cloud.insertOps).To(HaveLen(1))
			Expect(cloud.deletes).To(BeEmpty())
			Expect(cloud.listCalls).To(BeZero())
			Expect(cloud.getCalls).To(BeEmpty())
		})

		It("fails before issuing any create when the startup script is missing", func() {
			cfg.StartupScript = filepath.Join(GinkgoT().TempDir(), "absent.sh")
			waiter := fleet.NewWaiter(cloud, time.Second, 0, zap.NewNop())
			waiter.SetSleeper(&fakeSleeper{})
			manager = fleet.NewManager(cfg, cloud, waiter, zap.NewNop())

			Expect(manager.CreateAll(ctx)).NotTo(Succeed())
			Expect(cloud.inserts).To(BeEmpty())
		})

		It("propagates a failed create operation without cleanup", func() {
			cloud.setOperation("op-create-1", 0, errors.New("resource exhausted"))

			err := manager.CreateAll(ctx)
			var opErr *fleet.OperationError
			Expect(errors.As(err, &opErr)).To(BeTrue())
			Expect(opErr.ID).To(Equal("op-create-1"))

			Expect(cloud.deletes).To(BeEmpty())
			Expect(cloud.listCalls).To(BeZero())
		})

		It("fails with an empty roster when the provider lists nothing afterwards", func() {
			cloud.instances = nil

			err := manager.CreateAll(ctx)
			var emptyErr *fleet.EmptyRosterError
			Expect(errors.As(err, &emptyErr)).To(BeTrue())
			Expect(emptyErr.Project).To(Equal("demo"))
			Expect(emptyErr.Zone).To(Equal("us-central1-f"))
		})
	})

	Describe("DeleteAll", func() {
		BeforeEach(func() {
			cloud.instances = []provisioning.Instance{
				{Name: "demo-0"},
				{Name: "demo-1"},
			}
			Expect(manager.Refresh(ctx)).To(Succeed())
		})

		It("issues one delete per roster entry, waits on the whole batch and clears the roster", func() {
			Expect(manager.DeleteAll(ctx)).To(Succeed())

			Expect(cloud.deletes).To(Equal([]string{"demo-0", "demo-1"}))
			Expect(cloud.getCalls["op-delete-0"]).To(Equal(1))
			Expect(cloud.getCalls["op-delete-1"]).To(Equal(1))
			Expect(manager.Roster()).To(BeEmpty())
		})

		It("keeps the roster when a delete operation fails", func() {
			cloud.setOperation("op-delete-1", 0, errors.New("instance busy"))

			Expect(manager.DeleteAll(ctx)).NotTo(Succeed())
			Expect(manager.Roster()).To(HaveLen(2))
		})
	})

	Describe("ListInstances", func() {
		It("returns instances unmodified in provider order", func() {
			cloud.instances = []provisioning.Instance{
				{Name: "demo-2", Status: provisioning.StatusRunning},
				{Name: "demo-0", Status: provisioning.StatusProvisioning},
			}

			instances, err := manager.ListInstances(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(instances[0].Name).To(Equal("demo-2"))
			Expect(instances[1].Name).To(Equal("demo-0"))
		})

		It("treats zero instances as a named failure", func() {
			_, err := manager.ListInstances(ctx)

			var emptyErr *fleet.EmptyRosterError
			Expect(errors.As(err, &emptyErr)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("no instances available in project demo, zone us-central1-f"))
		})

		It("propagates provider list errors", func() {
			cloud.listErr = errors.New("backend unavailable")

			_, err := manager.ListInstances(ctx)
			Expect(err).To(MatchError(ContainSubstring("backend unavailable")))
		})
	})

	Context("with an instance count of zero", func() {
		It("creates nothing and reports the empty roster", func() {
			cfg.InstanceCount = 0
			waiter := fleet.NewWaiter(cloud, time.Second, 0, zap.NewNop())
			waiter.SetSleeper(&fakeSleeper{})
			manager = fleet.NewManager(cfg, cloud, waiter, zap.NewNop())

			err := manager.CreateAll(ctx)
			var emptyErr *fleet.EmptyRosterError
			Expect(errors.As(err, &emptyErr)).To(BeTrue())
			Expect(cloud.inserts).To(BeEmpty())
			Expect(cloud.getCalls).To(BeEmpty())
		})
	})
})
