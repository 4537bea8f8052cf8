package fleet_test

import (
	"context"
	"fmt"
	"time"

	"github.com/m45t3r/google-cloud-bench/internal/provisioning"
)

// fakeOperation drives one operation through the fake provider:
// PENDING for pendingPolls lookups, then DONE carrying err.
type fakeOperation struct {
	pendingPolls int
	err          error
}

// fakeCloud is an in-memory Compute implementation recording every
// call in order.
type fakeCloud struct {
	inserts      []provisioning.InstanceSpec
	insertOps    []string
	failInsertAt int // index of the insert call that fails, -1 for none

	deletes   []string
	deleteOps []string

	instances []provisioning.Instance
	listCalls int
	listErr   error

	ops      map[string]*fakeOperation
	getCalls map[string]int
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		failInsertAt: -1,
		ops:          make(map[string]*fakeOperation),
		getCalls:     make(map[string]int),
	}
}

func (f *fakeCloud) InsertInstance(ctx context.Context, spec provisioning.InstanceSpec) (string, error) {
	if f.failInsertAt == len(f.inserts) {
		return "", fmt.Errorf("insert refused for %s", spec.Name)
	}
	f.inserts = append(f.inserts, spec)

	id := fmt.Sprintf("op-create-%d", len(f.inserts)-1)
	f.insertOps = append(f.insertOps, id)
	if _, ok := f.ops[id]; !ok {
		f.ops[id] = &fakeOperation{}
	}
	return id, nil
}

func (f *fakeCloud) DeleteInstance(ctx context.Context, name string) (string, error) {
	f.deletes = append(f.deletes, name)

	id := fmt.Sprintf("op-delete-%d", len(f.deletes)-1)
	f.deleteOps = append(f.deleteOps, id)
	if _, ok := f.ops[id]; !ok {
		f.ops[id] = &fakeOperation{}
	}
	return id, nil
}

func (f *fakeCloud) ListInstances(ctx context.Context) ([]provisioning.Instance, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.instances, nil
}

func (f *fakeCloud) GetOperation(ctx context.Context, id string) (*provisioning.Operation, error) {
	op, ok := f.ops[id]
	if !ok {
		return nil, fmt.Errorf("unknown operation %s", id)
	}

	f.getCalls[id]++
	result := &provisioning.Operation{ID: id, Status: provisioning.OperationPending}
	if f.getCalls[id] > op.pendingPolls {
		result.Status = provisioning.OperationDone
		result.Err = op.err
	}
	return result, nil
}

// setOperation registers a scripted operation before it is handed out.
func (f *fakeCloud) setOperation(id string, pendingPolls int, err error) {
	f.ops[id] = &fakeOperation{pendingPolls: pendingPolls, err: err}
}

// fakeSleeper counts polling pauses instead of sleeping.
type fakeSleeper struct {
	sleeps int
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.sleeps++
	return nil
}
