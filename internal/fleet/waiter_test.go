package fleet_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m45t3r/google-cloud-bench/internal/fleet"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("Waiter", func() {
	var (
		cloud   *fakeCloud
		sleeper *fakeSleeper
		waiter  *fleet.Waiter
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		cloud = newFakeCloud()
		sleeper = &fakeSleeper{}
		waiter = fleet.NewWaiter(cloud, time.Second, 0, zap.NewNop())
		waiter.SetSleeper(sleeper)
	})

	Context("with an empty operation set", func() {
		It("succeeds immediately without issuing a single lookup", func() {
			Expect(waiter.WaitAll(ctx, nil)).To(Succeed())
			Expect(cloud.getCalls).To(BeEmpty())
			Expect(sleeper.sleeps).To(BeZero())
		})
	})

	Context("when every operation is already done", func() {
		It("succeeds after one polling round", func() {
			cloud.setOperation("op-a", 0, nil)
			cloud.setOperation("op-b", 0, nil)

			Expect(waiter.WaitAll(ctx, []string{"op-a", "op-b"})).To(Succeed())
			Expect(cloud.getCalls["op-a"]).To(Equal(1))
			Expect(cloud.getCalls["op-b"]).To(Equal(1))
			Expect(sleeper.sleeps).To(BeZero())
		})
	})

	Context("when one operation stays pending for k rounds", func() {
		It("performs exactly k+1 polling rounds over the whole batch", func() {
			const k = 4
			cloud.setOperation("op-slow", k, nil)
			cloud.setOperation("op-fast", 0, nil)

			Expect(waiter.WaitAll(ctx, []string{"op-slow", "op-fast"})).To(Succeed())

			// Every round polls every operation, even the ones that
			// settled earlier.
			Expect(cloud.getCalls["op-slow"]).To(Equal(k + 1))
			Expect(cloud.getCalls["op-fast"]).To(Equal(k + 1))
			Expect(sleeper.sleeps).To(Equal(k))
		})
	})

	Context("when several operations fail", func() {
		It("surfaces only the first error in input order", func() {
			cloud.setOperation("op-0", 0, nil)
			cloud.setOperation("op-1", 1, fmt.Errorf("quota exceeded"))
			cloud.setOperation("op-2", 0, fmt.Errorf("disk not found"))

			err := waiter.WaitAll(ctx, []string{"op-0", "op-1", "op-2"})
			Expect(err).To(HaveOccurred())

			var opErr *fleet.OperationError
			Expect(errors.As(err, &opErr)).To(BeTrue())
			Expect(opErr.ID).To(Equal("op-1"))
			Expect(opErr.Err).To(MatchError("quota exceeded"))
		})
	})

	Context("when a status lookup itself fails", func() {
		It("aborts the wait with the provider error", func() {
			cloud.setOperation("op-a", 0, nil)

			err := waiter.WaitAll(ctx, []string{"op-a", "op-missing"})
			Expect(err).To(MatchError(ContainSubstring("unknown operation op-missing")))
		})
	})

	Context("with a bounded number of polls", func() {
		It("gives up once the bound is reached", func() {
			cloud.setOperation("op-stuck", 1000, nil)

			waiter = fleet.NewWaiter(cloud, time.Second, 3, zap.NewNop())
			waiter.SetSleeper(sleeper)

			err := waiter.WaitAll(ctx, []string{"op-stuck"})
			Expect(err).To(MatchError(ContainSubstring("still pending after 3 polls")))
			Expect(cloud.getCalls["op-stuck"]).To(Equal(3))
		})
	})

	Context("when the context is cancelled", func() {
		It("stops waiting between rounds", func() {
			cloud.setOperation("op-stuck", 1000, nil)

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			err := waiter.WaitAll(cancelled, []string{"op-stuck"})
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
